package service

import (
	"context"

	"phias/backend/internal/schedule"
	"phias/backend/internal/store"
)

// localStore 以本库 PostgreSQL 实现 store.Store
type localStore struct {
	ReferenceService
	slots SlotService
}

// NewLocalStore 组合时段与参考数据服务，供导入流水线与规划接口使用
func NewLocalStore(slots SlotService, refs ReferenceService) store.Store {
	return &localStore{ReferenceService: refs, slots: slots}
}

func (l *localStore) ListSlots(ctx context.Context, f store.Filter) ([]schedule.Slot, error) {
	return l.slots.List(ctx, f)
}

func (l *localStore) GetSlot(ctx context.Context, id string) (schedule.Slot, error) {
	return l.slots.GetByID(ctx, id)
}

func (l *localStore) CreateSlot(ctx context.Context, slot schedule.Slot) (string, error) {
	created, err := l.slots.Create(ctx, slot)
	if err != nil {
		return "", err
	}
	return created.ID, nil
}

func (l *localStore) UpdateSlot(ctx context.Context, id string, u store.SlotUpdate) error {
	_, err := l.slots.Update(ctx, id, u)
	return err
}

func (l *localStore) SetActive(ctx context.Context, id string, active bool) error {
	_, err := l.slots.SetActive(ctx, id, active)
	return err
}
