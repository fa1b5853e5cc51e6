package errors

import (
	"errors"
	"fmt"
)

// ErrOptimisticLock 乐观锁冲突：时段已被其他操作修改
var ErrOptimisticLock = errors.New("时段已被其他操作修改，请刷新后重试")

// VersionConflict 带上过期版本号的乐观锁错误，errors.Is(err, ErrOptimisticLock) 为真
func VersionConflict(entity, id string, version int) error {
	return fmt.Errorf("%s %s 版本 %d 已过期: %w", entity, id, version, ErrOptimisticLock)
}
