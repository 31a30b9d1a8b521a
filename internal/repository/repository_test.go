package repository_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/linksight/gateway/internal/model"
	"github.com/linksight/gateway/internal/repository"
	"github.com/linksight/gateway/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testDB *testutil.TestDB

func TestMain(m *testing.M) {
	ctx := context.Background()

	var err error
	testDB, err = testutil.SetupTestDB(ctx)
	if err != nil {
		panic("failed to setup test database: " + err.Error())
	}

	code := m.Run()

	testDB.Teardown(ctx)
	os.Exit(code)
}

func createTestUser(ctx context.Context, t *testing.T, email string) *model.User {
	t.Helper()
	users := repository.NewUserRepository(testDB.Pool)
	user := &model.User{Email: email, PasswordHash: "x"}
	require.NoError(t, users.Create(ctx, user))
	return user
}

func TestUserRepository(t *testing.T) {
	ctx := context.Background()
	users := repository.NewUserRepository(testDB.Pool)

	t.Run("creates and fetches a user", func(t *testing.T) {
		testDB.Cleanup(ctx)

		user := &model.User{Email: "a@example.com", PasswordHash: "hash"}
		require.NoError(t, users.Create(ctx, user))
		assert.NotZero(t, user.ID)
		assert.False(t, user.CreatedAt.IsZero())

		got, err := users.GetByEmail(ctx, "a@example.com")
		require.NoError(t, err)
		assert.Equal(t, user.ID, got.ID)
		assert.Equal(t, "hash", got.PasswordHash)
	})

	t.Run("duplicate email maps to ErrEmailTaken", func(t *testing.T) {
		testDB.Cleanup(ctx)

		first := &model.User{Email: "dup@example.com", PasswordHash: "x"}
		require.NoError(t, users.Create(ctx, first))

		second := &model.User{Email: "dup@example.com", PasswordHash: "y"}
		err := users.Create(ctx, second)
		assert.ErrorIs(t, err, repository.ErrEmailTaken)
	})

	t.Run("unknown email maps to ErrUserNotFound", func(t *testing.T) {
		testDB.Cleanup(ctx)

		_, err := users.GetByEmail(ctx, "nobody@example.com")
		assert.ErrorIs(t, err, repository.ErrUserNotFound)
	})
}

func TestURLRepository_Create(t *testing.T) {
	ctx := context.Background()
	urls := repository.NewURLRepository(testDB.Pool)

	t.Run("inserts and assigns id", func(t *testing.T) {
		testDB.Cleanup(ctx)
		user := createTestUser(ctx, t, "u@example.com")

		url := &model.URL{UserID: user.ID, OriginalURL: "https://example.com", ShortCode: "abc123"}
		require.NoError(t, urls.Create(ctx, url))
		assert.NotZero(t, url.ID)
		assert.False(t, url.CreatedAt.IsZero())
	})

	t.Run("duplicate short code maps to ErrCodeConflict", func(t *testing.T) {
		testDB.Cleanup(ctx)
		user := createTestUser(ctx, t, "u@example.com")

		first := &model.URL{UserID: user.ID, OriginalURL: "https://example.com/1", ShortCode: "same00"}
		require.NoError(t, urls.Create(ctx, first))

		// Uniqueness must come from the storage layer itself so that
		// concurrent inserts cannot race a check-then-insert.
		second := &model.URL{UserID: user.ID, OriginalURL: "https://example.com/2", ShortCode: "same00"}
		err := urls.Create(ctx, second)
		assert.ErrorIs(t, err, repository.ErrCodeConflict)

		got, err := urls.GetByCode(ctx, "same00")
		require.NoError(t, err)
		assert.Equal(t, "https://example.com/1", got.OriginalURL, "conflicting insert must not overwrite")
	})
}

func TestURLRepository_GetByCode(t *testing.T) {
	ctx := context.Background()
	urls := repository.NewURLRepository(testDB.Pool)

	testDB.Cleanup(ctx)
	user := createTestUser(ctx, t, "u@example.com")
	url := &model.URL{UserID: user.ID, OriginalURL: "https://example.com/x", ShortCode: "findme"}
	require.NoError(t, urls.Create(ctx, url))

	got, err := urls.GetByCode(ctx, "findme")
	require.NoError(t, err)
	assert.Equal(t, url.ID, got.ID)
	assert.Equal(t, user.ID, got.UserID)
	assert.Equal(t, "https://example.com/x", got.OriginalURL)

	_, err = urls.GetByCode(ctx, "zzzzzz")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestURLRepository_ListByUser(t *testing.T) {
	ctx := context.Background()
	urls := repository.NewURLRepository(testDB.Pool)

	testDB.Cleanup(ctx)
	owner := createTestUser(ctx, t, "owner@example.com")
	other := createTestUser(ctx, t, "other@example.com")

	for i, code := range []string{"list01", "list02", "list03"} {
		url := &model.URL{UserID: owner.ID, OriginalURL: "https://example.com/" + code, ShortCode: code}
		require.NoError(t, urls.Create(ctx, url))
		// created_at has microsecond resolution; keep inserts apart so
		// the ordering assertion is deterministic.
		if i < 2 {
			time.Sleep(10 * time.Millisecond)
		}
	}
	foreign := &model.URL{UserID: other.ID, OriginalURL: "https://example.com/f", ShortCode: "list99"}
	require.NoError(t, urls.Create(ctx, foreign))

	got, err := urls.ListByUser(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, got, 3, "must only contain the owner's urls")

	assert.Equal(t, "list03", got[0].ShortCode, "newest first")
	assert.Equal(t, "list02", got[1].ShortCode)
	assert.Equal(t, "list01", got[2].ShortCode)
}

func TestURLRepository_VerifyOwnership(t *testing.T) {
	ctx := context.Background()
	urls := repository.NewURLRepository(testDB.Pool)

	testDB.Cleanup(ctx)
	owner := createTestUser(ctx, t, "owner@example.com")
	other := createTestUser(ctx, t, "other@example.com")

	url := &model.URL{UserID: owner.ID, OriginalURL: "https://example.com", ShortCode: "own001"}
	require.NoError(t, urls.Create(ctx, url))

	owned, err := urls.VerifyOwnership(ctx, url.ID, owner.ID)
	require.NoError(t, err)
	assert.True(t, owned)

	owned, err = urls.VerifyOwnership(ctx, url.ID, other.ID)
	require.NoError(t, err)
	assert.False(t, owned)

	owned, err = urls.VerifyOwnership(ctx, 424242, owner.ID)
	require.NoError(t, err)
	assert.False(t, owned, "unknown id must look exactly like a foreign id")
}

func TestVisitRepository_Create(t *testing.T) {
	ctx := context.Background()
	urls := repository.NewURLRepository(testDB.Pool)
	visits := repository.NewVisitRepository(testDB.Pool)

	t.Run("appends a visit row", func(t *testing.T) {
		testDB.Cleanup(ctx)
		user := createTestUser(ctx, t, "u@example.com")
		url := &model.URL{UserID: user.ID, OriginalURL: "https://example.com", ShortCode: "visit1"}
		require.NoError(t, urls.Create(ctx, url))

		visit := &model.Visit{
			URLID:         url.ID,
			VisitorIPHash: "deadbeef",
			UserAgent:     "curl/8",
			Referer:       "https://news.ycombinator.com",
		}
		require.NoError(t, visits.Create(ctx, visit))
		assert.NotZero(t, visit.ID)
		assert.False(t, visit.ClickedAt.IsZero())
	})

	t.Run("rejects a visit for a url that never existed", func(t *testing.T) {
		testDB.Cleanup(ctx)

		visit := &model.Visit{URLID: 999999, VisitorIPHash: "deadbeef"}
		assert.Error(t, visits.Create(ctx, visit), "foreign key must hold")
	})

	t.Run("visits cascade when a url row is removed out-of-band", func(t *testing.T) {
		testDB.Cleanup(ctx)
		user := createTestUser(ctx, t, "u@example.com")
		url := &model.URL{UserID: user.ID, OriginalURL: "https://example.com", ShortCode: "visit2"}
		require.NoError(t, urls.Create(ctx, url))

		visit := &model.Visit{URLID: url.ID, VisitorIPHash: "deadbeef"}
		require.NoError(t, visits.Create(ctx, visit))

		_, err := testDB.Pool.Exec(ctx, "DELETE FROM urls WHERE id = $1", url.ID)
		require.NoError(t, err)

		var count int
		require.NoError(t, testDB.Pool.QueryRow(ctx, "SELECT COUNT(*) FROM visits WHERE url_id = $1", url.ID).Scan(&count))
		assert.Zero(t, count)
	})
}
