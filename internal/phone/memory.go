package phone

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryRepository keeps the ledger in process with the same
// compare-and-swap semantics as PostgresRepository.
type MemoryRepository struct {
	mu     sync.RWMutex
	phones map[uuid.UUID]Phone
}

func NewMemoryRepository(seed []Phone) *MemoryRepository {
	phones := make(map[uuid.UUID]Phone, len(seed))
	for _, p := range seed {
		phones[p.ID] = clonePhone(p)
	}
	return &MemoryRepository{phones: phones}
}

func (r *MemoryRepository) FindByID(ctx context.Context, id uuid.UUID) (Phone, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.phones[id]
	if !ok {
		return Phone{}, ErrNotFound
	}
	return clonePhone(p), nil
}

func (r *MemoryRepository) Save(ctx context.Context, p Phone) (Phone, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.phones[p.ID]
	if !ok || current.Version != p.Version {
		return Phone{}, ErrVersionConflict
	}

	current.BookerName = p.BookerName
	current.BookingTime = p.BookingTime
	current.Version++
	r.phones[p.ID] = clonePhone(current)
	return clonePhone(current), nil
}

func (r *MemoryRepository) ListOrdered(ctx context.Context) ([]Phone, error) {
	r.mu.RLock()
	phones := make([]Phone, 0, len(r.phones))
	for _, p := range r.phones {
		phones = append(phones, clonePhone(p))
	}
	r.mu.RUnlock()

	SortPhones(phones)
	return phones, nil
}
