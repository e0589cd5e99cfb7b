package repositories

import (
	"context"

	"tryon-storefront/internal/domain/entities"
)

type SessionStore[T any] interface {
	Save(ctx context.Context, id entities.SessionID, session T) error
	FindByID(ctx context.Context, id entities.SessionID) (T, error)
	Delete(ctx context.Context, id entities.SessionID) error
	List(ctx context.Context) ([]T, error)
}
