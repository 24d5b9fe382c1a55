// Package memory keeps users and notes in process memory. It backs tests and
// the "memory" store driver.
package memory

import (
	"context"
	"sync"

	"notes-server/internal/domain"
	"notes-server/internal/repository"
)

// Store holds both collections behind one lock so the email index and the
// user table never disagree.
type Store struct {
	mu      sync.RWMutex
	users   map[string]domain.User
	emails  map[string]string
	notes   map[string]domain.Note
	ordered []string
}

func NewStore() *Store {
	return &Store{
		users:  make(map[string]domain.User),
		emails: make(map[string]string),
		notes:  make(map[string]domain.Note),
	}
}

func (s *Store) Users() repository.UserRepository {
	return &userRepository{s: s}
}

func (s *Store) Notes() repository.NoteRepository {
	return &noteRepository{s: s}
}

type userRepository struct {
	s *Store
}

func (r *userRepository) Create(_ context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.emails[user.Email]; ok {
		return repository.ErrDuplicate
	}
	if _, ok := r.s.users[user.ID]; ok {
		return repository.ErrDuplicate
	}

	r.s.users[user.ID] = *user
	r.s.emails[user.Email] = user.ID
	return nil
}

func (r *userRepository) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	id, ok := r.s.emails[email]
	if !ok {
		return nil, repository.ErrNotFound
	}
	user := r.s.users[id]
	return &user, nil
}

func (r *userRepository) FindByID(_ context.Context, id string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	user, ok := r.s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &user, nil
}

func (r *userRepository) EmailExists(_ context.Context, email string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	_, ok := r.s.emails[email]
	return ok, nil
}

type noteRepository struct {
	s *Store
}

func (r *noteRepository) Create(_ context.Context, note *domain.Note) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.notes[note.ID]; ok {
		return repository.ErrDuplicate
	}

	r.s.notes[note.ID] = *note
	r.s.ordered = append(r.s.ordered, note.ID)
	return nil
}

func (r *noteRepository) FindByOwner(_ context.Context, id, userID string) (*domain.Note, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	note, ok := r.s.owned(id, userID)
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &note, nil
}

// ListByOwner returns notes in creation order.
func (r *noteRepository) ListByOwner(_ context.Context, userID string) ([]*domain.Note, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	notes := []*domain.Note{}
	for _, id := range r.s.ordered {
		note := r.s.notes[id]
		if note.UserID == userID {
			notes = append(notes, &note)
		}
	}
	return notes, nil
}

func (r *noteRepository) Update(_ context.Context, note *domain.Note) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	existing, ok := r.s.owned(note.ID, note.UserID)
	if !ok {
		return repository.ErrNotFound
	}

	existing.Title = note.Title
	existing.Content = note.Content
	existing.Tag = note.Tag
	existing.IsPinned = note.IsPinned
	existing.UpdatedAt = note.UpdatedAt
	r.s.notes[note.ID] = existing
	return nil
}

func (r *noteRepository) Delete(_ context.Context, id, userID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.owned(id, userID); !ok {
		return repository.ErrNotFound
	}

	delete(r.s.notes, id)
	for i, v := range r.s.ordered {
		if v == id {
			r.s.ordered = append(r.s.ordered[:i], r.s.ordered[i+1:]...)
			break
		}
	}
	return nil
}

func (s *Store) owned(id, userID string) (domain.Note, bool) {
	note, ok := s.notes[id]
	if !ok || note.UserID != userID {
		return domain.Note{}, false
	}
	return note, true
}
