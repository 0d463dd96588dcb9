package otp

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository keeps codes in process; a single mutex serializes all writes
type MemoryRepository struct {
	mu    sync.Mutex
	codes map[uuid.UUID][]Code
}

// NewMemoryRepository creates an empty in-memory repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		codes: make(map[uuid.UUID][]Code),
	}
}

func (r *MemoryRepository) Replace(ctx context.Context, code Code) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.retire(code.UserID, code.CreatedAt)
	r.codes[code.UserID] = append(r.codes[code.UserID], code)
	return nil
}

func (r *MemoryRepository) Consume(ctx context.Context, userID uuid.UUID, codeHash string, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	codes := r.codes[userID]
	for i := range codes {
		c := &codes[i]
		if !c.Used && c.CodeHash == codeHash && c.ExpiresAt.After(now) {
			c.Used = true
			usedAt := now
			c.UsedAt = &usedAt
			return true, nil
		}
	}
	return false, nil
}

func (r *MemoryRepository) InvalidateAll(ctx context.Context, userID uuid.UUID, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.retire(userID, now), nil
}

func (r *MemoryRepository) retire(userID uuid.UUID, now time.Time) int64 {
	var n int64
	codes := r.codes[userID]
	for i := range codes {
		if !codes[i].Used {
			codes[i].Used = true
			usedAt := now
			codes[i].UsedAt = &usedAt
			n++
		}
	}
	return n
}

func (r *MemoryRepository) DeleteStale(ctx context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for userID, codes := range r.codes {
		kept := codes[:0]
		for _, c := range codes {
			if c.Used || !c.ExpiresAt.After(before) {
				n++
				continue
			}
			kept = append(kept, c)
		}
		if len(kept) == 0 {
			delete(r.codes, userID)
		} else {
			r.codes[userID] = kept
		}
	}
	return n, nil
}

func (r *MemoryRepository) CountUnused(ctx context.Context, userID uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, c := range r.codes[userID] {
		if !c.Used {
			n++
		}
	}
	return n, nil
}
