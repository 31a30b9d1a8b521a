package service

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/linksight/gateway/internal/model"
	"github.com/linksight/gateway/internal/repository"
)

var (
	ErrInvalidURL         = errors.New("invalid URL format")
	ErrURLNotFound        = errors.New("URL not found")
	ErrCodeSpaceExhausted = errors.New("failed to allocate a unique short code")
)

// URLRepositoryInterface defines the storage contract for the URL service.
type URLRepositoryInterface interface {
	Create(ctx context.Context, url *model.URL) error
	GetByCode(ctx context.Context, code string) (*model.URL, error)
	ListByUser(ctx context.Context, userID int64) ([]model.URL, error)
	VerifyOwnership(ctx context.Context, urlID, userID int64) (bool, error)
}

// URLService handles business logic for URL operations
type URLService struct {
	repo       URLRepositoryInterface
	gen        *ShortCodeGenerator
	maxRetries int
}

// URLServiceInterface defines the contract for URL shortening operations
type URLServiceInterface interface {
	CreateShortURL(ctx context.Context, userID int64, rawURL string) (*model.URL, error)
	ListURLs(ctx context.Context, userID int64) ([]model.URL, error)
	Resolve(ctx context.Context, code string) (*model.URL, error)
	VerifyOwnership(ctx context.Context, urlID, userID int64) (bool, error)
}

// NewURLService creates a new URL service
func NewURLService(repo URLRepositoryInterface, codeLength, maxRetries int) *URLService {
	return &URLService{
		repo:       repo,
		gen:        NewShortCodeGenerator(codeLength),
		maxRetries: maxRetries,
	}
}

// NormalizeURL validates rawURL and prepends "https://" when no scheme
// is present. Scheme detection is positional: a "://" appearing after
// the authority, as in a redirect target embedded in the query, does
// not count as one. The input is otherwise stored verbatim.
func NormalizeURL(rawURL string) (string, error) {
	normalized := rawURL
	idx := strings.Index(rawURL, "://")
	if idx == -1 || strings.ContainsAny(rawURL[:idx], "/?#") {
		normalized = "https://" + normalized
	}

	u, err := url.Parse(normalized)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", ErrInvalidURL
	}
	return normalized, nil
}

// CreateShortURL validates and persists a new short URL for userID.
// The generator proposes a code and the insert enforces uniqueness;
// a storage-level conflict is an expected condition answered with a
// fresh code, up to maxRetries attempts, after which the code space is
// treated as exhausted.
func (s *URLService) CreateShortURL(ctx context.Context, userID int64, rawURL string) (*model.URL, error) {
	originalURL, err := NormalizeURL(rawURL)
	if err != nil {
		return nil, err
	}

	for attempt := 0; attempt < s.maxRetries; attempt++ {
		code, genErr := s.gen.Generate()
		if genErr != nil {
			return nil, genErr
		}

		u := &model.URL{
			UserID:      userID,
			OriginalURL: originalURL,
			ShortCode:   code,
		}
		if err := s.repo.Create(ctx, u); err != nil {
			if errors.Is(err, repository.ErrCodeConflict) {
				continue
			}
			return nil, err
		}
		return u, nil
	}
	return nil, ErrCodeSpaceExhausted
}

// ListURLs returns the user's URLs, newest first.
func (s *URLService) ListURLs(ctx context.Context, userID int64) ([]model.URL, error) {
	return s.repo.ListByUser(ctx, userID)
}

// Resolve looks up the URL for a short code.
func (s *URLService) Resolve(ctx context.Context, code string) (*model.URL, error) {
	u, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrURLNotFound
		}
		return nil, err
	}
	return u, nil
}

// VerifyOwnership reports whether urlID belongs to userID. Re-checked on
// every analytics and AI call.
func (s *URLService) VerifyOwnership(ctx context.Context, urlID, userID int64) (bool, error) {
	return s.repo.VerifyOwnership(ctx, urlID, userID)
}

// Ensure URLService implements URLServiceInterface at compile time
var _ URLServiceInterface = (*URLService)(nil)
