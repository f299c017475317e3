package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"goal-image-service/internal/domain"
)

// StatusStore records the externally visible state of jobs.
type StatusStore interface {
	Set(ctx context.Context, st domain.JobStatus) error
	// Get returns domain.ErrJobNotFound for unknown or expired ids.
	Get(ctx context.Context, id string) (domain.JobStatus, error)
}

const statusKeyPrefix = "goal-image:job:"

// RedisStatusStore keeps job statuses as JSON strings with a TTL.
type RedisStatusStore struct {
	client *redis.Client
	ttl    time.Duration
}

var _ StatusStore = (*RedisStatusStore)(nil)

func NewRedisStatusStore(client *redis.Client, ttl time.Duration) *RedisStatusStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisStatusStore{client: client, ttl: ttl}
}

func (s *RedisStatusStore) Set(ctx context.Context, st domain.JobStatus) error {
	if st.UpdatedAt.IsZero() {
		st.UpdatedAt = time.Now().UTC()
	}
	data, err := json.Marshal(st)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, statusKeyPrefix+st.ID, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("store job status: %w", err)
	}
	return nil
}

func (s *RedisStatusStore) Get(ctx context.Context, id string) (domain.JobStatus, error) {
	raw, err := s.client.Get(ctx, statusKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.JobStatus{}, domain.ErrJobNotFound
	}
	if err != nil {
		return domain.JobStatus{}, fmt.Errorf("read job status: %w", err)
	}
	var st domain.JobStatus
	if err := json.Unmarshal(raw, &st); err != nil {
		return domain.JobStatus{}, fmt.Errorf("decode job status: %w", err)
	}
	return st, nil
}

// MemoryStatusStore is the process-local StatusStore.
type MemoryStatusStore struct {
	mu    sync.Mutex
	ttl   time.Duration
	items map[string]domain.JobStatus
	now   func() time.Time
}

var _ StatusStore = (*MemoryStatusStore)(nil)

func NewMemoryStatusStore(ttl time.Duration) *MemoryStatusStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &MemoryStatusStore{ttl: ttl, items: make(map[string]domain.JobStatus), now: time.Now}
}

func (s *MemoryStatusStore) Set(_ context.Context, st domain.JobStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st.UpdatedAt.IsZero() {
		st.UpdatedAt = s.now().UTC()
	}
	s.items[st.ID] = st
	s.evictLocked()
	return nil
}

func (s *MemoryStatusStore) Get(_ context.Context, id string) (domain.JobStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.items[id]
	if !ok || s.now().Sub(st.UpdatedAt) > s.ttl {
		return domain.JobStatus{}, domain.ErrJobNotFound
	}
	return st, nil
}

func (s *MemoryStatusStore) evictLocked() {
	cutoff := s.now().Add(-s.ttl)
	for id, st := range s.items {
		if st.UpdatedAt.Before(cutoff) {
			delete(s.items, id)
		}
	}
}
