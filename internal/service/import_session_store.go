package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"phias/backend/internal/importer"
	"phias/backend/pkg/redis"
)

// errSnapshotNotFound 快照不存在或已过期
var errSnapshotNotFound = errors.New("导入会话快照不存在")

// ImportSessionStore 导入会话快照存储（状态、诊断、报告；不含参考索引）
type ImportSessionStore interface {
	Save(ctx context.Context, snap importer.Snapshot) error
	Load(ctx context.Context, id string) (importer.Snapshot, error)
	Delete(ctx context.Context, id string) error
}

// ── Redis 实现 ──

const importSessionPrefix = "import:session:"

type redisSessionStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisSessionStore 以 JSON 写入 Redis，TTL 到期自动清除
func NewRedisSessionStore(rdb *redis.Client, ttl time.Duration) ImportSessionStore {
	return &redisSessionStore{rdb: rdb, ttl: ttl}
}

func (s *redisSessionStore) Save(ctx context.Context, snap importer.Snapshot) error {
	return s.rdb.SetJSON(ctx, importSessionPrefix+snap.ID, snap, s.ttl)
}

func (s *redisSessionStore) Load(ctx context.Context, id string) (importer.Snapshot, error) {
	var snap importer.Snapshot
	if err := s.rdb.GetJSON(ctx, importSessionPrefix+id, &snap); err != nil {
		if errors.Is(err, redis.ErrNotFound) {
			return importer.Snapshot{}, errSnapshotNotFound
		}
		return importer.Snapshot{}, err
	}
	return snap, nil
}

func (s *redisSessionStore) Delete(ctx context.Context, id string) error {
	return s.rdb.Delete(ctx, importSessionPrefix+id)
}

// ── 进程内实现（Redis 不可用时降级） ──

type memoryEntry struct {
	snap    importer.Snapshot
	expires time.Time
}

type memorySessionStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemorySessionStore 进程内快照存储，读写时顺带清理过期项
func NewMemorySessionStore(ttl time.Duration) ImportSessionStore {
	return &memorySessionStore{
		ttl:     ttl,
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (s *memorySessionStore) Save(_ context.Context, snap importer.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweep()
	s.entries[snap.ID] = memoryEntry{snap: snap, expires: s.now().Add(s.ttl)}
	return nil
}

func (s *memorySessionStore) Load(_ context.Context, id string) (importer.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweep()
	e, ok := s.entries[id]
	if !ok {
		return importer.Snapshot{}, errSnapshotNotFound
	}
	return e.snap, nil
}

func (s *memorySessionStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, id)
	return nil
}

func (s *memorySessionStore) sweep() {
	if s.ttl <= 0 {
		return
	}
	now := s.now()
	for id, e := range s.entries {
		if now.After(e.expires) {
			delete(s.entries, id)
		}
	}
}
