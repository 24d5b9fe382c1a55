package couchdb

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notes-server/internal/domain"
	"notes-server/internal/repository"
)

func TestEnsureDatabase(t *testing.T) {
	fake, client := newFakeCouch(t)
	require.NoError(t, EnsureDatabase(context.Background(), client, testDB))
	assert.Equal(t, ownerIndex, fake.indexDDoc)
}

func TestUserRepository_CreateAndFind(t *testing.T) {
	ctx := context.Background()
	_, client := newFakeCouch(t)
	repo := NewUserRepository(client, testDB)

	user := &domain.User{
		ID:           "u-1",
		Name:         "Alice Smith",
		Email:        "alice@example.com",
		PasswordHash: "$2a$04$hash",
		CreatedAt:    time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	}
	require.NoError(t, repo.Create(ctx, user))

	byID, err := repo.FindByID(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, user, byID)

	byEmail, err := repo.FindByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u-1", byEmail.ID)
	assert.Equal(t, "$2a$04$hash", byEmail.PasswordHash)

	exists, err := repo.EmailExists(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.EmailExists(ctx, "bob@example.com")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestUserRepository_DuplicateEmail(t *testing.T) {
	ctx := context.Background()
	fake, client := newFakeCouch(t)
	repo := NewUserRepository(client, testDB)

	require.NoError(t, repo.Create(ctx, &domain.User{ID: "u-1", Email: "alice@example.com"}))

	err := repo.Create(ctx, &domain.User{ID: "u-2", Email: "alice@example.com"})
	assert.ErrorIs(t, err, repository.ErrDuplicate)

	_, ok := fake.docs["user:u-2"]
	assert.False(t, ok, "second user document must not be written")
}

func TestUserRepository_NotFound(t *testing.T) {
	ctx := context.Background()
	_, client := newFakeCouch(t)
	repo := NewUserRepository(client, testDB)

	_, err := repo.FindByID(ctx, "missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = repo.FindByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func newNote(id, owner string, created time.Time) *domain.Note {
	return &domain.Note{
		ID:        id,
		UserID:    owner,
		Content:   "content " + id,
		Tag:       domain.DefaultTag,
		CreatedAt: created,
		UpdatedAt: created,
	}
}

func TestNoteRepository_OwnershipScoping(t *testing.T) {
	ctx := context.Background()
	fake, client := newFakeCouch(t)
	repo := NewNoteRepository(client, testDB)

	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Create(ctx, newNote("n-2", "alice", base.Add(time.Minute))))
	require.NoError(t, repo.Create(ctx, newNote("n-1", "alice", base)))
	require.NoError(t, repo.Create(ctx, newNote("n-3", "bob", base)))

	got, err := repo.FindByOwner(ctx, "n-1", "alice")
	require.NoError(t, err)
	assert.Equal(t, "content n-1", got.Content)

	_, err = repo.FindByOwner(ctx, "n-1", "bob")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = repo.FindByOwner(ctx, "missing", "alice")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	notes, err := repo.ListByOwner(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, notes, 2)
	assert.Equal(t, "n-1", notes[0].ID)
	assert.Equal(t, "n-2", notes[1].ID)

	assert.Equal(t, []interface{}{ownerIndex, ownerIndex}, fake.useIndex)

	notes, err = repo.ListByOwner(ctx, "carol")
	require.NoError(t, err)
	assert.Empty(t, notes)
}

func TestNoteRepository_ListPaginates(t *testing.T) {
	ctx := context.Background()
	fake, client := newFakeCouch(t)
	repo := NewNoteRepository(client, testDB)

	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	total := listPageSize + 5
	for i := 0; i < total; i++ {
		require.NoError(t, repo.Create(ctx, newNote(fmt.Sprintf("n-%03d", i), "alice", base.Add(time.Duration(i)*time.Second))))
	}

	notes, err := repo.ListByOwner(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, notes, total)
	assert.Equal(t, 2, fake.finds)
}

func TestNoteRepository_UpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	_, client := newFakeCouch(t)
	repo := NewNoteRepository(client, testDB)

	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Create(ctx, newNote("n-1", "alice", created)))

	updated := newNote("n-1", "alice", created)
	updated.Title = "groceries"
	updated.IsPinned = true
	updated.UpdatedAt = created.Add(time.Hour)
	require.NoError(t, repo.Update(ctx, updated))

	got, err := repo.FindByOwner(ctx, "n-1", "alice")
	require.NoError(t, err)
	assert.Equal(t, "groceries", got.Title)
	assert.True(t, got.IsPinned)
	assert.Equal(t, created, got.CreatedAt)
	assert.Equal(t, created.Add(time.Hour), got.UpdatedAt)

	foreign := newNote("n-1", "bob", created)
	assert.ErrorIs(t, repo.Update(ctx, foreign), repository.ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, "n-1", "bob"), repository.ErrNotFound)

	require.NoError(t, repo.Delete(ctx, "n-1", "alice"))
	_, err = repo.FindByOwner(ctx, "n-1", "alice")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, "n-1", "alice"), repository.ErrNotFound)
}

func TestNoteRepository_UpdateReplaysOnConflict(t *testing.T) {
	ctx := context.Background()
	fake, client := newFakeCouch(t)
	repo := NewNoteRepository(client, testDB)

	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Create(ctx, newNote("n-1", "alice", created)))

	fake.conflicts = 1
	mine := newNote("n-1", "alice", created)
	mine.Title = "mine"
	mine.UpdatedAt = created.Add(time.Minute)
	require.NoError(t, repo.Update(ctx, mine))

	got, err := repo.FindByOwner(ctx, "n-1", "alice")
	require.NoError(t, err)
	assert.Equal(t, "mine", got.Title)
	assert.Equal(t, created.Add(time.Minute), got.UpdatedAt)
	assert.Equal(t, 3, fake.puts)
}

func TestNoteRepository_UpdateGivesUpAfterRepeatedConflicts(t *testing.T) {
	ctx := context.Background()
	fake, client := newFakeCouch(t)
	repo := NewNoteRepository(client, testDB)

	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Create(ctx, newNote("n-1", "alice", created)))

	fake.conflicts = updateAttempts
	mine := newNote("n-1", "alice", created)
	mine.Title = "mine"

	err := repo.Update(ctx, mine)
	require.Error(t, err)
	assert.NotErrorIs(t, err, repository.ErrNotFound)

	got, err := repo.FindByOwner(ctx, "n-1", "alice")
	require.NoError(t, err)
	assert.Equal(t, "theirs", got.Title)
}
