// Package service implements the URL shortening core: code generation,
// idempotent creation, and the read-through/write-through cache protocol
// in front of the persistent store.
package service

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/udogan/url-shortener/internal/cache"
	"github.com/udogan/url-shortener/internal/database"
	"github.com/udogan/url-shortener/internal/models"
)

// ShortCodeLength is the length of every generated short code.
const ShortCodeLength = 8

// ErrMaxRetriesExceeded is returned when the maximum number of retries for
// generating a unique short code is exceeded.
var ErrMaxRetriesExceeded = errors.New("maximum retries exceeded for generating short code")

// URLRepository defines the persistent store interface required by the service.
// The store is the source of truth; every mutation goes through it.
type URLRepository interface {
	// Create inserts a new shortened URL. It returns
	// database.ErrShortCodeExists when the short code is taken and
	// database.ErrOriginalURLExists when the original URL already has a code.
	Create(ctx context.Context, shortCode, originalURL string) (*models.URL, error)

	// GetByShortCode retrieves a URL by its short code.
	// Returns database.ErrURLNotFound if no such record exists.
	GetByShortCode(ctx context.Context, shortCode string) (*models.URL, error)

	// GetByOriginalURL retrieves a URL by its original URL.
	// Returns database.ErrURLNotFound if no such record exists.
	GetByOriginalURL(ctx context.Context, originalURL string) (*models.URL, error)

	// RegisterClick atomically increments the click counter and stamps the
	// click time. Returns database.ErrURLNotFound if no such record exists.
	RegisterClick(ctx context.Context, shortCode string) (*models.URL, error)

	// UpdateStatus sets the lifecycle status of a URL.
	// Returns database.ErrURLNotFound if no such record exists.
	UpdateStatus(ctx context.Context, shortCode string, status models.Status) (*models.URL, error)
}

// URLCache defines the cache interface required by the service. A failing
// cache degrades latency, never correctness: the service treats every cache
// error as a miss on reads and ignores write failures beyond logging them.
type URLCache interface {
	// Get retrieves the cached record for the given short code.
	// Returns cache.ErrCacheMiss when no entry exists.
	Get(ctx context.Context, shortCode string) (*models.URL, error)

	// Set stores the record under its short code, resetting the TTL.
	Set(ctx context.Context, url *models.URL) error

	// Delete removes the cache entry for the given short code.
	Delete(ctx context.Context, shortCode string) error
}

// URLService orchestrates the repository and the cache to implement the
// shortening operations. All dependencies are injected at construction time.
type URLService struct {
	repo   URLRepository
	cache  URLCache
	logger *slog.Logger
}

// NewURLService creates a new URLService with the provided repository,
// cache and logger.
func NewURLService(repo URLRepository, urlCache URLCache, logger *slog.Logger) *URLService {
	return &URLService{
		repo:   repo,
		cache:  urlCache,
		logger: logger,
	}
}

// generateShortCode derives an 8-character candidate code from the original
// URL salted with a fresh UUID: sha256 over url+salt, base64 URL-safe
// alphabet, first 8 characters. The salt makes repeated calls yield
// different candidates; uniqueness is enforced by the store, not here.
func generateShortCode(originalURL string) string {
	sum := sha256.Sum256([]byte(originalURL + uuid.NewString()))
	return base64.RawURLEncoding.EncodeToString(sum[:])[:ShortCodeLength]
}

// ShortenURL returns the shortened URL for originalURL, creating it if
// necessary. Shortening is idempotent: an already-known original URL is
// returned unchanged, no new code is generated. New records are created
// with active status and zero clicks, then written through to the cache.
func (s *URLService) ShortenURL(ctx context.Context, originalURL string) (*models.URL, error) {
	const op = "service.URLService.ShortenURL"
	const maxRetries = 5

	url, err := s.repo.GetByOriginalURL(ctx, originalURL)
	if err == nil {
		s.cacheSet(ctx, url)
		return url, nil
	}
	if !errors.Is(err, database.ErrURLNotFound) {
		return nil, fmt.Errorf("%s: failed to look up original url: %w", op, err)
	}

	for i := 0; i < maxRetries; i++ {
		shortCode := generateShortCode(originalURL)

		url, err := s.repo.Create(ctx, shortCode, originalURL)
		if err != nil {
			// Another candidate happened to collide; a fresh salt
			// yields a new one.
			if errors.Is(err, database.ErrShortCodeExists) {
				continue
			}

			// Lost the creation race for the same original URL;
			// return the winner's record.
			if errors.Is(err, database.ErrOriginalURLExists) {
				url, err := s.repo.GetByOriginalURL(ctx, originalURL)
				if err != nil {
					return nil, fmt.Errorf("%s: failed to look up original url: %w", op, err)
				}

				s.cacheSet(ctx, url)
				return url, nil
			}

			return nil, fmt.Errorf("%s: failed to shorten url: %w", op, err)
		}

		s.cacheSet(ctx, url)
		return url, nil
	}

	return nil, fmt.Errorf("%s: %w", op, ErrMaxRetriesExceeded)
}

// ResolveShortCode retrieves the URL associated with the provided short
// code. The cache is consulted first; on a hit the store is not touched,
// accepting up to the TTL window of staleness on the redirect path. On a
// miss the store is read and the cache backfilled.
func (s *URLService) ResolveShortCode(ctx context.Context, shortCode string) (*models.URL, error) {
	const op = "service.URLService.ResolveShortCode"

	url, err := s.cache.Get(ctx, shortCode)
	if err == nil {
		return url, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.WarnContext(ctx, "cache read failed, falling back to store",
			slog.String("op", op),
			slog.String("short_code", shortCode),
			slog.Any("err", err),
		)
	}

	url, err = s.repo.GetByShortCode(ctx, shortCode)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to resolve short code: %w", op, err)
	}

	s.cacheSet(ctx, url)

	return url, nil
}

// RegisterClick records a redirect: it increments the click counter and
// sets the last-clicked time atomically in the store, then refreshes the
// cache entry. The cache is bypassed on the read side since a mutation is
// about to occur.
func (s *URLService) RegisterClick(ctx context.Context, shortCode string) (*models.URL, error) {
	const op = "service.URLService.RegisterClick"

	url, err := s.repo.RegisterClick(ctx, shortCode)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to register click: %w", op, err)
	}

	s.cacheSet(ctx, url)

	return url, nil
}

// UpdateStatus sets the lifecycle status of the URL with the given short
// code in the store, then refreshes the cache entry. Until that refresh is
// visible a cached entry may still serve the old status for up to the TTL.
func (s *URLService) UpdateStatus(ctx context.Context, shortCode string, status models.Status) (*models.URL, error) {
	const op = "service.URLService.UpdateStatus"

	url, err := s.repo.UpdateStatus(ctx, shortCode, status)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to update url status: %w", op, err)
	}

	s.cacheSet(ctx, url)

	return url, nil
}

// cacheSet writes the record through to the cache. Cache failures are
// logged and swallowed: the store already holds the truth.
func (s *URLService) cacheSet(ctx context.Context, url *models.URL) {
	if err := s.cache.Set(ctx, url); err != nil {
		s.logger.WarnContext(ctx, "cache write failed",
			slog.String("short_code", url.ShortCode),
			slog.Any("err", err),
		)
	}
}
