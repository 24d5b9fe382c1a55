package couchdb

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-kivik/kivik/v4"

	"notes-server/internal/domain"
	"notes-server/internal/repository"
)

type userDoc struct {
	Type string `json:"type"`
	*domain.User
}

// emailDoc reserves an email address. Its document id is derived from the
// email, so a second reservation fails with a CouchDB conflict.
type emailDoc struct {
	Type   string `json:"type"`
	UserID string `json:"user_id"`
}

type userRepository struct {
	client *kivik.Client
	dbName string
}

func NewUserRepository(client *kivik.Client, dbName string) repository.UserRepository {
	return &userRepository{
		client: client,
		dbName: dbName,
	}
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	db := r.client.DB(r.dbName)

	emailID := docID(typeEmail, user.Email)
	emailRev, err := db.Put(ctx, emailID, emailDoc{Type: typeEmail, UserID: user.ID})
	if err != nil {
		if errors.Is(translate(err), repository.ErrDuplicate) {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("failed to reserve email: %w", err)
	}

	if _, err := db.Put(ctx, docID(typeUser, user.ID), userDoc{Type: typeUser, User: user}); err != nil {
		if _, delErr := db.Delete(ctx, emailID, emailRev); delErr != nil {
			err = errors.Join(err, delErr)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	db := r.client.DB(r.dbName)

	var reservation emailDoc
	if err := db.Get(ctx, docID(typeEmail, email)).ScanDoc(&reservation); err != nil {
		if errors.Is(translate(err), repository.ErrNotFound) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}

	return r.FindByID(ctx, reservation.UserID)
}

func (r *userRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	db := r.client.DB(r.dbName)

	doc := userDoc{User: &domain.User{}}
	if err := db.Get(ctx, docID(typeUser, id)).ScanDoc(&doc); err != nil {
		if errors.Is(translate(err), repository.ErrNotFound) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find user by ID: %w", err)
	}

	return doc.User, nil
}

func (r *userRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	_, err := r.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
