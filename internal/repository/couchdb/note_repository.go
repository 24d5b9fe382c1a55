package couchdb

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/go-kivik/kivik/v4"

	"notes-server/internal/domain"
	"notes-server/internal/repository"
)

const (
	listPageSize   = 200
	updateAttempts = 3
)

type noteDoc struct {
	Rev  string `json:"_rev,omitempty"`
	Type string `json:"type"`
	*domain.Note
}

type noteRepository struct {
	client *kivik.Client
	dbName string
}

func NewNoteRepository(client *kivik.Client, dbName string) repository.NoteRepository {
	return &noteRepository{
		client: client,
		dbName: dbName,
	}
}

func (r *noteRepository) Create(ctx context.Context, note *domain.Note) error {
	db := r.client.DB(r.dbName)

	_, err := db.Put(ctx, docID(typeNote, note.ID), noteDoc{Type: typeNote, Note: note})
	if err != nil {
		return fmt.Errorf("failed to create note: %w", err)
	}

	return nil
}

func (r *noteRepository) FindByOwner(ctx context.Context, id, userID string) (*domain.Note, error) {
	doc, err := r.get(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	return doc.Note, nil
}

func (r *noteRepository) ListByOwner(ctx context.Context, userID string) ([]*domain.Note, error) {
	db := r.client.DB(r.dbName)

	notes := []*domain.Note{}
	for skip := 0; ; skip += listPageSize {
		query := map[string]interface{}{
			"selector": map[string]interface{}{
				"type":    typeNote,
				"user_id": userID,
			},
			"use_index": []string{ownerIndex, ownerIndex},
			"limit":     listPageSize,
			"skip":      skip,
		}

		page, err := r.find(ctx, db, query)
		if err != nil {
			return nil, err
		}
		notes = append(notes, page...)

		if len(page) < listPageSize {
			break
		}
	}

	sort.SliceStable(notes, func(i, j int) bool {
		return notes[i].CreatedAt.Before(notes[j].CreatedAt)
	})

	return notes, nil
}

func (r *noteRepository) find(ctx context.Context, db *kivik.DB, query map[string]interface{}) ([]*domain.Note, error) {
	rows := db.Find(ctx, query)
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}
	defer rows.Close()

	var notes []*domain.Note
	for rows.Next() {
		doc := noteDoc{Note: &domain.Note{}}
		if err := rows.ScanDoc(&doc); err != nil {
			return nil, fmt.Errorf("failed to scan note: %w", err)
		}
		notes = append(notes, doc.Note)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}

	return notes, nil
}

// Update overwrites the mutable fields of an owned note. A revision conflict
// means another writer got there first; the write is replayed on top of the
// newer revision so the last writer wins.
func (r *noteRepository) Update(ctx context.Context, note *domain.Note) error {
	db := r.client.DB(r.dbName)

	var err error
	for attempt := 0; attempt < updateAttempts; attempt++ {
		var existing *noteDoc
		existing, err = r.get(ctx, note.ID, note.UserID)
		if err != nil {
			return err
		}

		existing.Title = note.Title
		existing.Content = note.Content
		existing.Tag = note.Tag
		existing.IsPinned = note.IsPinned
		existing.UpdatedAt = note.UpdatedAt

		_, err = db.Put(ctx, docID(typeNote, note.ID), existing)
		if err == nil {
			return nil
		}
		if !errors.Is(translate(err), repository.ErrDuplicate) {
			return fmt.Errorf("failed to update note: %w", err)
		}
	}

	return fmt.Errorf("failed to update note: %w", err)
}

func (r *noteRepository) Delete(ctx context.Context, id, userID string) error {
	db := r.client.DB(r.dbName)

	existing, err := r.get(ctx, id, userID)
	if err != nil {
		return err
	}

	if _, err := db.Delete(ctx, docID(typeNote, id), existing.Rev); err != nil {
		if errors.Is(translate(err), repository.ErrNotFound) {
			return repository.ErrNotFound
		}
		return fmt.Errorf("failed to delete note: %w", err)
	}

	return nil
}

func (r *noteRepository) get(ctx context.Context, id, userID string) (*noteDoc, error) {
	db := r.client.DB(r.dbName)

	doc := &noteDoc{Note: &domain.Note{}}
	if err := db.Get(ctx, docID(typeNote, id)).ScanDoc(doc); err != nil {
		if errors.Is(translate(err), repository.ErrNotFound) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find note: %w", err)
	}

	if doc.Type != typeNote || doc.UserID != userID {
		return nil, repository.ErrNotFound
	}

	return doc, nil
}
