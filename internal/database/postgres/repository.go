package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/udogan/url-shortener/internal/database"
	"github.com/udogan/url-shortener/internal/models"
)

type urlRecord struct {
	ID            int64      `db:"id"`
	ShortCode     string     `db:"short_code"`
	OriginalURL   string     `db:"original_url"`
	ClickCount    int64      `db:"click_count"`
	LastClickedAt *time.Time `db:"last_clicked_at"`
	Status        string     `db:"status"`
	CreatedAt     time.Time  `db:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at"`
}

func (r *urlRecord) ToURL() *models.URL {
	return &models.URL{
		ID:            r.ID,
		ShortCode:     r.ShortCode,
		OriginalURL:   r.OriginalURL,
		ClickCount:    r.ClickCount,
		LastClickedAt: r.LastClickedAt,
		Status:        models.Status(r.Status),
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

// URLRepository stores shortened URLs in a PostgreSQL database.
type URLRepository struct {
	db *sqlx.DB
}

// NewURLRepository returns a URLRepository backed by the given database handle.
func NewURLRepository(db *sqlx.DB) *URLRepository {
	return &URLRepository{
		db: db,
	}
}

// Create inserts a new shortened URL with zero clicks and active status.
// The unique indexes are the authority on uniqueness: a duplicate short
// code fails with database.ErrShortCodeExists (caller regenerates the code
// and retries) and a duplicate original URL fails with
// database.ErrOriginalURLExists (caller returns the existing record).
func (r *URLRepository) Create(ctx context.Context, shortCode, originalURL string) (*models.URL, error) {
	const op = "database.postgres.URLRepository.Create"

	rec := new(urlRecord)
	query := `INSERT INTO urls(short_code, original_url)
		VALUES ($1, $2)
		RETURNING *`

	err := r.db.GetContext(ctx, rec, query, shortCode, originalURL)
	if err != nil {
		if constraint, ok := uniqueViolation(err); ok {
			if constraint == "urls_original_url_key" {
				return nil, fmt.Errorf("%s: %w", op, database.ErrOriginalURLExists)
			}

			return nil, fmt.Errorf("%s: %w", op, database.ErrShortCodeExists)
		}

		return nil, fmt.Errorf("%s: failed to create url record: %w", op, err)
	}

	return rec.ToURL(), nil
}

// GetByShortCode retrieves a URL by its short code.
func (r *URLRepository) GetByShortCode(ctx context.Context, shortCode string) (*models.URL, error) {
	const op = "database.postgres.URLRepository.GetByShortCode"

	rec := new(urlRecord)
	query := `SELECT * FROM urls WHERE short_code = $1`

	err := r.db.GetContext(ctx, rec, query, shortCode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, database.ErrURLNotFound)
		}

		return nil, fmt.Errorf("%s: failed to get url record: %w", op, err)
	}

	return rec.ToURL(), nil
}

// GetByOriginalURL retrieves a URL by its original URL. Shortening is
// idempotent per original URL, so at most one row matches.
func (r *URLRepository) GetByOriginalURL(ctx context.Context, originalURL string) (*models.URL, error) {
	const op = "database.postgres.URLRepository.GetByOriginalURL"

	rec := new(urlRecord)
	query := `SELECT * FROM urls WHERE original_url = $1`

	err := r.db.GetContext(ctx, rec, query, originalURL)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, database.ErrURLNotFound)
		}

		return nil, fmt.Errorf("%s: failed to get url record: %w", op, err)
	}

	return rec.ToURL(), nil
}

// RegisterClick atomically increments the click counter and stamps the
// click time in a single statement, so concurrent clicks on the same code
// never lose an increment.
func (r *URLRepository) RegisterClick(ctx context.Context, shortCode string) (*models.URL, error) {
	const op = "database.postgres.URLRepository.RegisterClick"

	rec := new(urlRecord)
	query := `UPDATE urls
		SET click_count = click_count + 1,
			last_clicked_at = now(),
			updated_at = now()
		WHERE short_code = $1
		RETURNING *`

	err := r.db.GetContext(ctx, rec, query, shortCode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, database.ErrURLNotFound)
		}

		return nil, fmt.Errorf("%s: failed to register click: %w", op, err)
	}

	return rec.ToURL(), nil
}

// UpdateStatus sets the lifecycle status of the URL with the given short code.
func (r *URLRepository) UpdateStatus(ctx context.Context, shortCode string, status models.Status) (*models.URL, error) {
	const op = "database.postgres.URLRepository.UpdateStatus"

	rec := new(urlRecord)
	query := `UPDATE urls
		SET status = $1,
			updated_at = now()
		WHERE short_code = $2
		RETURNING *`

	err := r.db.GetContext(ctx, rec, query, status.String(), shortCode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, database.ErrURLNotFound)
		}

		return nil, fmt.Errorf("%s: failed to update url status: %w", op, err)
	}

	return rec.ToURL(), nil
}
