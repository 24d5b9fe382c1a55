package repository

import (
	"context"
	"errors"

	"notes-server/internal/domain"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("record already exists")
)

// UserRepository is the credential store.
type UserRepository interface {
	// Create returns ErrDuplicate when the email is already taken.
	Create(ctx context.Context, user *domain.User) error
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
}

// NoteRepository reads and writes notes. Every lookup is keyed by (id, owner);
// a note owned by someone else is reported as ErrNotFound.
type NoteRepository interface {
	Create(ctx context.Context, note *domain.Note) error
	FindByOwner(ctx context.Context, id, userID string) (*domain.Note, error)
	ListByOwner(ctx context.Context, userID string) ([]*domain.Note, error)
	Update(ctx context.Context, note *domain.Note) error
	Delete(ctx context.Context, id, userID string) error
}
