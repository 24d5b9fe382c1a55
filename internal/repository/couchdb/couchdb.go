// Package couchdb stores users and notes as CouchDB documents through kivik.
package couchdb

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-kivik/kivik/v4"
	_ "github.com/go-kivik/kivik/v4/couchdb"

	"notes-server/internal/repository"
)

const (
	typeUser  = "user"
	typeEmail = "email"
	typeNote  = "note"

	// ownerIndex names both the Mango index and its design document.
	ownerIndex = "notes-by-owner"
)

// Connect opens a client and makes sure the database and the Mango index used
// for listing notes exist.
func Connect(ctx context.Context, url, dbName string) (*kivik.Client, error) {
	client, err := kivik.New("couch", url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to CouchDB: %w", err)
	}

	if err := EnsureDatabase(ctx, client, dbName); err != nil {
		return nil, err
	}

	return client, nil
}

func EnsureDatabase(ctx context.Context, client *kivik.Client, dbName string) error {
	exists, err := client.DBExists(ctx, dbName)
	if err != nil {
		return fmt.Errorf("failed to check database existence: %w", err)
	}

	if !exists {
		if err := client.CreateDB(ctx, dbName); err != nil {
			return fmt.Errorf("failed to create database: %w", err)
		}
	}

	index := map[string]interface{}{
		"fields": []string{"type", "user_id"},
	}
	if err := client.DB(dbName).CreateIndex(ctx, ownerIndex, ownerIndex, index); err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	return nil
}

func docID(kind, id string) string {
	return fmt.Sprintf("%s:%s", kind, id)
}

// translate maps CouchDB status codes onto repository sentinels.
func translate(err error) error {
	switch kivik.HTTPStatus(err) {
	case http.StatusNotFound:
		return repository.ErrNotFound
	case http.StatusConflict:
		return repository.ErrDuplicate
	default:
		return err
	}
}
