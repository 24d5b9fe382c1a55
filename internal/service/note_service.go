package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"notes-server/internal/domain"
	"notes-server/internal/logger"
	"notes-server/internal/repository"
)

// NoteNotifier is told about every successful note mutation. deviceID is the
// device that caused it and may be empty.
type NoteNotifier interface {
	NoteCreated(userID, deviceID string, note *domain.Note)
	NoteUpdated(userID, deviceID string, note *domain.Note)
	NoteDeleted(userID, deviceID string, note *domain.Note)
}

type deviceKey struct{}

// WithDeviceID tags ctx with the device a request originates from.
func WithDeviceID(ctx context.Context, deviceID string) context.Context {
	return context.WithValue(ctx, deviceKey{}, deviceID)
}

func deviceID(ctx context.Context) string {
	id, _ := ctx.Value(deviceKey{}).(string)
	return id
}

type NoteService struct {
	repo     repository.NoteRepository
	notifier NoteNotifier
	log      *logger.Logger
	now      func() time.Time
	newID    func() string
}

// NewNoteService creates a NoteService. notifier may be nil.
func NewNoteService(repo repository.NoteRepository, notifier NoteNotifier, log *logger.Logger) *NoteService {
	return &NoteService{
		repo:     repo,
		notifier: notifier,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
		newID:    func() string { return uuid.New().String() },
	}
}

func (s *NoteService) List(ctx context.Context, userID string) ([]*domain.Note, error) {
	notes, err := s.repo.ListByOwner(ctx, userID)
	if err != nil {
		return nil, domain.NewInternalError("failed to list notes", err)
	}
	return notes, nil
}

func (s *NoteService) Get(ctx context.Context, userID, noteID string) (*domain.Note, error) {
	return s.find(ctx, userID, noteID)
}

func (s *NoteService) Create(ctx context.Context, userID string, req *domain.CreateNoteRequest) (*domain.Note, error) {
	note, err := domain.NewNote(s.newID(), userID, req, s.now())
	if err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, note); err != nil {
		return nil, domain.NewInternalError("failed to create note", err)
	}

	if s.notifier != nil {
		s.notifier.NoteCreated(userID, deviceID(ctx), note)
	}

	return note, nil
}

// Update applies a partial update. Concurrent updates of the same note are
// last-writer-wins.
func (s *NoteService) Update(ctx context.Context, userID, noteID string, req *domain.UpdateNoteRequest) (*domain.Note, error) {
	note, err := s.find(ctx, userID, noteID)
	if err != nil {
		return nil, err
	}

	if err := note.Apply(req, s.now()); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, note); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.NewNotFoundError("note not found")
		}
		return nil, domain.NewInternalError("failed to update note", err)
	}

	if s.notifier != nil {
		s.notifier.NoteUpdated(userID, deviceID(ctx), note)
	}

	return note, nil
}

// Delete removes an owned note and returns it as it was before removal.
func (s *NoteService) Delete(ctx context.Context, userID, noteID string) (*domain.Note, error) {
	note, err := s.find(ctx, userID, noteID)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Delete(ctx, noteID, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.NewNotFoundError("note not found")
		}
		return nil, domain.NewInternalError("failed to delete note", err)
	}

	s.log.Debug("note deleted", "user_id", userID, "note_id", noteID)

	if s.notifier != nil {
		s.notifier.NoteDeleted(userID, deviceID(ctx), note)
	}

	return note, nil
}

func (s *NoteService) find(ctx context.Context, userID, noteID string) (*domain.Note, error) {
	note, err := s.repo.FindByOwner(ctx, noteID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.NewNotFoundError("note not found")
		}
		return nil, domain.NewInternalError("failed to find note", err)
	}
	return note, nil
}
