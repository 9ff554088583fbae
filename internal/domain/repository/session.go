package repository

import (
	"context"

	"github.com/polkiloo/flowershop/internal/domain/model"
)

// SessionRepository keeps ephemeral ordering sessions.
type SessionRepository interface {
	// Get returns stored session or domain not found error.
	Get(ctx context.Context, customerID int64) (*model.Session, error)
	Save(ctx context.Context, session *model.Session) error
	Delete(ctx context.Context, customerID int64) error
}
