package usecases

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"tryon-storefront/internal/domain/entities"
	"tryon-storefront/internal/domain/repositories"
)

// SessionManager owns the orchestrators of all open try-on modals.
type SessionManager struct {
	store  repositories.SessionStore[*TryOnOrchestrator]
	deps   OrchestratorDeps
	config OrchestratorConfig
	logger *zap.Logger
}

func NewSessionManager(
	store repositories.SessionStore[*TryOnOrchestrator],
	deps OrchestratorDeps,
	config OrchestratorConfig,
	logger *zap.Logger,
) *SessionManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionManager{
		store:  store,
		deps:   deps,
		config: config,
		logger: logger,
	}
}

func (m *SessionManager) Create(ctx context.Context) (*TryOnOrchestrator, error) {
	id := entities.SessionID(uuid.NewString())
	orchestrator := NewTryOnOrchestrator(id, m.deps, m.config, m.logger)
	if err := m.store.Save(ctx, id, orchestrator); err != nil {
		orchestrator.Close()
		return nil, fmt.Errorf("failed to save session: %w", err)
	}
	m.logger.Debug("session created", zap.String("session_id", string(id)))
	return orchestrator, nil
}

func (m *SessionManager) Get(ctx context.Context, id entities.SessionID) (*TryOnOrchestrator, error) {
	return m.store.FindByID(ctx, id)
}

// Close cancels the session's run and forgets it.
func (m *SessionManager) Close(ctx context.Context, id entities.SessionID) error {
	orchestrator, err := m.store.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := m.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	orchestrator.Close()
	m.logger.Debug("session closed", zap.String("session_id", string(id)))
	return nil
}

// EvictIdle closes sessions untouched for longer than ttl. Sessions with a
// run in flight are kept.
func (m *SessionManager) EvictIdle(ctx context.Context, ttl time.Duration) (int, error) {
	sessions, err := m.store.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list sessions: %w", err)
	}

	cutoff := time.Now().Add(-ttl)
	evicted := 0
	for _, orchestrator := range sessions {
		if orchestrator.Busy() || orchestrator.LastActivity().After(cutoff) {
			continue
		}
		err := m.Close(ctx, orchestrator.ID())
		if err != nil && !errors.Is(err, entities.ErrSessionNotFound) {
			return evicted, err
		}
		if err == nil {
			evicted++
		}
	}
	return evicted, nil
}

// RunJanitor evicts idle sessions every interval until ctx is done.
func (m *SessionManager) RunJanitor(ctx context.Context, interval, ttl time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := m.EvictIdle(ctx, ttl)
			if err != nil {
				m.logger.Error("session eviction failed", zap.Error(err))
				continue
			}
			if n > 0 {
				m.logger.Info("evicted idle sessions", zap.Int("count", n))
			}
		}
	}
}

// Shutdown closes every session.
func (m *SessionManager) Shutdown(ctx context.Context) error {
	sessions, err := m.store.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}
	for _, orchestrator := range sessions {
		if err := m.Close(ctx, orchestrator.ID()); err != nil && !errors.Is(err, entities.ErrSessionNotFound) {
			return err
		}
	}
	return nil
}
