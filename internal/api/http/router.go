// Package http exposes the URL shortening service over HTTP.
package http

import (
	"context"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v2"
	"github.com/go-playground/validator/v10"

	"github.com/udogan/url-shortener/internal/models"
)

// URLService defines the interface for the core URL shortening business logic.
type URLService interface {
	// ShortenURL returns the shortened URL for originalURL, creating it if
	// necessary. Shortening the same original URL twice returns the same record.
	ShortenURL(ctx context.Context, originalURL string) (*models.URL, error)

	// ResolveShortCode retrieves the URL associated with the given short code.
	ResolveShortCode(ctx context.Context, shortCode string) (*models.URL, error)

	// RegisterClick records a redirect through the given short code.
	RegisterClick(ctx context.Context, shortCode string) (*models.URL, error)

	// UpdateStatus sets the lifecycle status of the URL with the given short code.
	UpdateStatus(ctx context.Context, shortCode string, status models.Status) (*models.URL, error)
}

// getValidate initializes a validator that reports field names from JSON tags.
func getValidate() *validator.Validate {
	validate := validator.New()

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return validate
}

// NewRouter initializes a new HTTP router with all routes and middleware configured.
// baseURL is the public base used to build short URLs in responses.
func NewRouter(logger *httplog.Logger, urlSvc URLService, baseURL string) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httplog.RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	validate := getValidate()
	baseURL = strings.TrimRight(baseURL, "/")

	r.Get("/ping", handlePing)
	r.Post("/shorten", handleShortenURL(urlSvc, validate, baseURL))
	r.Get("/stats/{shortCode}", handleGetURLStats(urlSvc, baseURL))
	r.Get("/{shortCode}", handleRedirect(urlSvc))
	r.Put("/{shortCode}/status", handleUpdateStatus(urlSvc, validate, baseURL))

	return r
}
