package service

import (
	"context"
	"testing"
	"time"

	"github.com/linksight/gateway/internal/model"
	"github.com/linksight/gateway/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeURLRepo implements URLRepositoryInterface in memory. conflicts
// makes the first n Create calls fail with the storage conflict error
// to exercise the retry loop.
type fakeURLRepo struct {
	byCode    map[string]*model.URL
	conflicts int
	createErr error
	nextID    int64
}

func newFakeURLRepo() *fakeURLRepo {
	return &fakeURLRepo{byCode: make(map[string]*model.URL)}
}

func (f *fakeURLRepo) Create(ctx context.Context, url *model.URL) error {
	if f.createErr != nil {
		return f.createErr
	}
	if f.conflicts > 0 {
		f.conflicts--
		return repository.ErrCodeConflict
	}
	if _, ok := f.byCode[url.ShortCode]; ok {
		return repository.ErrCodeConflict
	}
	f.nextID++
	url.ID = f.nextID
	url.CreatedAt = time.Now()
	f.byCode[url.ShortCode] = url
	return nil
}

func (f *fakeURLRepo) GetByCode(ctx context.Context, code string) (*model.URL, error) {
	if url, ok := f.byCode[code]; ok {
		return url, nil
	}
	return nil, repository.ErrNotFound
}

func (f *fakeURLRepo) ListByUser(ctx context.Context, userID int64) ([]model.URL, error) {
	urls := make([]model.URL, 0)
	for _, url := range f.byCode {
		if url.UserID == userID {
			urls = append(urls, *url)
		}
	}
	return urls, nil
}

func (f *fakeURLRepo) VerifyOwnership(ctx context.Context, urlID, userID int64) (bool, error) {
	for _, url := range f.byCode {
		if url.ID == urlID {
			return url.UserID == userID, nil
		}
	}
	return false, nil
}

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		wantErr  bool
	}{
		{
			name:     "absolute https URL is kept verbatim",
			input:    "https://example.com/page?foo=bar",
			expected: "https://example.com/page?foo=bar",
		},
		{
			name:     "absolute http URL is kept verbatim",
			input:    "http://example.com/page",
			expected: "http://example.com/page",
		},
		{
			name:     "scheme-less input gets https prepended verbatim",
			input:    "example.com",
			expected: "https://example.com",
		},
		{
			name:     "scheme-less input with path",
			input:    "example.com/a/b?c=d",
			expected: "https://example.com/a/b?c=d",
		},
		{
			name:     "scheme-less input with an absolute URL in the query",
			input:    "example.com/go?next=https://other.com",
			expected: "https://example.com/go?next=https://other.com",
		},
		{
			name:     "scheme-less input with an absolute URL in the fragment",
			input:    "example.com/doc#see=http://other.com",
			expected: "https://example.com/doc#see=http://other.com",
		},
		{
			name:     "absolute URL with another URL in the query is kept verbatim",
			input:    "http://example.com/go?next=https://other.com",
			expected: "http://example.com/go?next=https://other.com",
		},
		{
			name:    "empty input",
			input:   "",
			wantErr: true,
		},
		{
			name:    "no host",
			input:   "https://",
			wantErr: true,
		},
		{
			name:    "unparseable input",
			input:   "http://[::1]:namedport",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := NormalizeURL(tt.input)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidURL)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestURLService_CreateShortURL(t *testing.T) {
	ctx := context.Background()

	t.Run("creates short URL successfully", func(t *testing.T) {
		repo := newFakeURLRepo()
		svc := NewURLService(repo, 6, 3)

		url, err := svc.CreateShortURL(ctx, 1, "https://example.com/very/long/url")
		require.NoError(t, err)

		assert.Len(t, url.ShortCode, 6)
		assert.Equal(t, int64(1), url.UserID)
		assert.Equal(t, "https://example.com/very/long/url", url.OriginalURL)
		assert.NotZero(t, url.ID)
	})

	t.Run("prepends https to scheme-less input", func(t *testing.T) {
		repo := newFakeURLRepo()
		svc := NewURLService(repo, 6, 3)

		url, err := svc.CreateShortURL(ctx, 1, "example.com")
		require.NoError(t, err)
		assert.Equal(t, "https://example.com", url.OriginalURL)
	})

	t.Run("rejects malformed input", func(t *testing.T) {
		repo := newFakeURLRepo()
		svc := NewURLService(repo, 6, 3)

		_, err := svc.CreateShortURL(ctx, 1, "https://")
		assert.ErrorIs(t, err, ErrInvalidURL)
	})

	t.Run("retries on collision and succeeds", func(t *testing.T) {
		repo := newFakeURLRepo()
		repo.conflicts = 2
		svc := NewURLService(repo, 6, 3)

		url, err := svc.CreateShortURL(ctx, 1, "https://collision.example")
		require.NoError(t, err, "expected creation to succeed after retries")
		assert.Len(t, url.ShortCode, 6)
	})

	t.Run("fails with exhausted code space after retry budget", func(t *testing.T) {
		repo := newFakeURLRepo()
		repo.conflicts = 3
		svc := NewURLService(repo, 6, 3)

		_, err := svc.CreateShortURL(ctx, 1, "https://collision.example")
		assert.ErrorIs(t, err, ErrCodeSpaceExhausted)
	})

	t.Run("propagates unexpected storage errors", func(t *testing.T) {
		repo := newFakeURLRepo()
		repo.createErr = assert.AnError
		svc := NewURLService(repo, 6, 3)

		_, err := svc.CreateShortURL(ctx, 1, "https://example.com")
		assert.ErrorIs(t, err, assert.AnError)
	})
}

func TestURLService_Resolve(t *testing.T) {
	ctx := context.Background()
	repo := newFakeURLRepo()
	svc := NewURLService(repo, 6, 3)

	created, err := svc.CreateShortURL(ctx, 1, "https://example.com/target")
	require.NoError(t, err)

	t.Run("resolves existing code", func(t *testing.T) {
		url, err := svc.Resolve(ctx, created.ShortCode)
		require.NoError(t, err)
		assert.Equal(t, "https://example.com/target", url.OriginalURL)
	})

	t.Run("repeated resolution is idempotent", func(t *testing.T) {
		first, err := svc.Resolve(ctx, created.ShortCode)
		require.NoError(t, err)
		second, err := svc.Resolve(ctx, created.ShortCode)
		require.NoError(t, err)
		assert.Equal(t, first.OriginalURL, second.OriginalURL)
	})

	t.Run("maps missing code to ErrURLNotFound", func(t *testing.T) {
		_, err := svc.Resolve(ctx, "missing")
		assert.ErrorIs(t, err, ErrURLNotFound)
	})
}

func TestURLService_VerifyOwnership(t *testing.T) {
	ctx := context.Background()
	repo := newFakeURLRepo()
	svc := NewURLService(repo, 6, 3)

	created, err := svc.CreateShortURL(ctx, 1, "https://example.com/owned")
	require.NoError(t, err)

	owned, err := svc.VerifyOwnership(ctx, created.ID, 1)
	require.NoError(t, err)
	assert.True(t, owned)

	foreign, err := svc.VerifyOwnership(ctx, created.ID, 2)
	require.NoError(t, err)
	assert.False(t, foreign, "foreign user must not own the url")

	unknown, err := svc.VerifyOwnership(ctx, 9999, 1)
	require.NoError(t, err)
	assert.False(t, unknown, "unknown url id must report not owned, not an error")
}
