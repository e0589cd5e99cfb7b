package repositories

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"tryon-storefront/internal/domain/entities"
	domainrepos "tryon-storefront/internal/domain/repositories"
)

type MemorySessionStore[T any] struct {
	sessions map[entities.SessionID]T
	order    map[entities.SessionID]uint64
	seq      uint64
	mu       sync.RWMutex
}

func NewMemorySessionStore[T any]() domainrepos.SessionStore[T] {
	return &MemorySessionStore[T]{
		sessions: make(map[entities.SessionID]T),
		order:    make(map[entities.SessionID]uint64),
	}
}

func (r *MemorySessionStore[T]) Save(ctx context.Context, id entities.SessionID, session T) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[id]; !exists {
		r.seq++
		r.order[id] = r.seq
	}
	r.sessions[id] = session
	return nil
}

func (r *MemorySessionStore[T]) FindByID(ctx context.Context, id entities.SessionID) (T, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, exists := r.sessions[id]
	if !exists {
		var zero T
		return zero, fmt.Errorf("%w: %s", entities.ErrSessionNotFound, id)
	}

	return session, nil
}

func (r *MemorySessionStore[T]) Delete(ctx context.Context, id entities.SessionID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[id]; !exists {
		return fmt.Errorf("%w: %s", entities.ErrSessionNotFound, id)
	}
	delete(r.sessions, id)
	delete(r.order, id)
	return nil
}

// List returns sessions in creation order.
func (r *MemorySessionStore[T]) List(ctx context.Context) ([]T, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]entities.SessionID, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return r.order[ids[i]] < r.order[ids[j]]
	})

	sessions := make([]T, 0, len(ids))
	for _, id := range ids {
		sessions = append(sessions, r.sessions[id])
	}
	return sessions, nil
}
