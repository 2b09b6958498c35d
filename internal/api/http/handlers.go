package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httplog/v2"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"github.com/udogan/url-shortener/internal/database"
	"github.com/udogan/url-shortener/internal/models"
	"github.com/udogan/url-shortener/pkg/response"
)

// timeLayout is the timestamp format used in response payloads.
const timeLayout = "2006-01-02 15:04:05"

// shortCodeRegexp matches well-formed short codes: 8 characters from the
// URL-safe alphabet. Malformed codes are rejected before reaching the service.
var shortCodeRegexp = regexp.MustCompile(`^[A-Za-z0-9_-]{8}$`)

// handlePing handles health check requests to ensure the server is running.
func handlePing(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "pong")
}

// urlRequest represents the request payload for shortening a URL.
// Only http and https URLs are accepted.
type urlRequest struct {
	URL string `json:"url" validate:"required,http_url"`
}

// statusRequest represents the request payload for updating a URL's status.
type statusRequest struct {
	Status string `json:"status" validate:"required"`
}

// urlResponse represents the response payload for a shortened URL operation.
type urlResponse struct {
	OriginalURL   string  `json:"original_url"`
	ShortURL      string  `json:"short_url"`
	ShortCode     string  `json:"short_code"`
	CreatedAt     string  `json:"created_at"`
	ClickCount    int64   `json:"click_count"`
	LastClickedAt *string `json:"last_clicked_at"`
	Status        string  `json:"status"`
}

// toURLResponse converts a URL model from the business layer into a response payload.
func toURLResponse(baseURL string, url *models.URL) urlResponse {
	resp := urlResponse{
		OriginalURL: url.OriginalURL,
		ShortURL:    baseURL + "/" + url.ShortCode,
		ShortCode:   url.ShortCode,
		CreatedAt:   url.CreatedAt.Format(timeLayout),
		ClickCount:  url.ClickCount,
		Status:      url.Status.String(),
	}

	if url.LastClickedAt != nil {
		lastClickedAt := url.LastClickedAt.Format(timeLayout)
		resp.LastClickedAt = &lastClickedAt
	}

	return resp
}

// handleShortenURL handles POST requests to shorten a URL.
//
// The request must contain a valid absolute URL. Shortening an already-known
// URL returns its existing record instead of creating a new one.
func handleShortenURL(svc URLService, validate *validator.Validate, baseURL string) http.HandlerFunc {
	const op = "api.http.handleShortenURL"
	const successMsg = "The URL has been shortened successfully."

	return func(w http.ResponseWriter, r *http.Request) {
		var req urlRequest

		if err := render.DecodeJSON(r.Body, &req); err != nil {
			if errors.Is(err, io.EOF) {
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, response.EmptyRequestBodyResponse)
				return
			}

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.BadRequestResponse)
			return
		}

		if err := validate.Struct(req); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.ValidationErrorResponse(err))
			return
		}

		url, err := svc.ShortenURL(r.Context(), req.URL)
		if err != nil {
			httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.ServerErrorResponse)
			return
		}

		render.Status(r, http.StatusOK)
		render.JSON(w, r, response.SuccessResponse(successMsg, toURLResponse(baseURL, url)))
	}
}

// handleRedirect handles GET requests for a short code and redirects to the
// original URL.
//
// Only active URLs redirect; inactive or expired ones are rejected with a
// 400. Every successful redirect registers a click.
func handleRedirect(svc URLService) http.HandlerFunc {
	const op = "api.http.handleRedirect"

	return func(w http.ResponseWriter, r *http.Request) {
		shortCode := chi.URLParam(r, "shortCode")

		if !shortCodeRegexp.MatchString(shortCode) {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.ErrorResponse("Invalid short code format."))
			return
		}

		url, err := svc.ResolveShortCode(r.Context(), shortCode)
		if err != nil {
			if errors.Is(err, database.ErrURLNotFound) {
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, response.ResourceNotFoundResponse)
				return
			}

			httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.ServerErrorResponse)
			return
		}

		if url.Status != models.StatusActive {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.ErrorResponse(
				fmt.Sprintf("This URL is in %s status and no longer active.", url.Status),
			))
			return
		}

		if _, err := svc.RegisterClick(r.Context(), shortCode); err != nil {
			if errors.Is(err, database.ErrURLNotFound) {
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, response.ResourceNotFoundResponse)
				return
			}

			httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.ServerErrorResponse)
			return
		}

		http.Redirect(w, r, url.OriginalURL, http.StatusFound)
	}
}

// handleGetURLStats handles GET requests for the statistics of a shortened URL.
func handleGetURLStats(svc URLService, baseURL string) http.HandlerFunc {
	const op = "api.http.handleGetURLStats"
	const successMsg = "The URL statistics retrieved successfully."

	return func(w http.ResponseWriter, r *http.Request) {
		shortCode := chi.URLParam(r, "shortCode")

		if !shortCodeRegexp.MatchString(shortCode) {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.ErrorResponse("Invalid short code format."))
			return
		}

		url, err := svc.ResolveShortCode(r.Context(), shortCode)
		if err != nil {
			if errors.Is(err, database.ErrURLNotFound) {
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, response.ResourceNotFoundResponse)
				return
			}

			httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.ServerErrorResponse)
			return
		}

		render.Status(r, http.StatusOK)
		render.JSON(w, r, response.SuccessResponse(successMsg, toURLResponse(baseURL, url)))
	}
}

// handleUpdateStatus handles PUT requests to change the lifecycle status of
// a shortened URL. Status names are matched case-insensitively.
func handleUpdateStatus(svc URLService, validate *validator.Validate, baseURL string) http.HandlerFunc {
	const op = "api.http.handleUpdateStatus"
	const successMsg = "The URL status was successfully updated."

	return func(w http.ResponseWriter, r *http.Request) {
		shortCode := chi.URLParam(r, "shortCode")

		if !shortCodeRegexp.MatchString(shortCode) {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.ErrorResponse("Invalid short code format."))
			return
		}

		var req statusRequest

		if err := render.DecodeJSON(r.Body, &req); err != nil {
			if errors.Is(err, io.EOF) {
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, response.EmptyRequestBodyResponse)
				return
			}

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.BadRequestResponse)
			return
		}

		if err := validate.Struct(req); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.ValidationErrorResponse(err))
			return
		}

		status, err := models.ParseStatus(req.Status)
		if err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.ErrorResponse(
				"Invalid status value. Must be one of: active, inactive, expired.",
			))
			return
		}

		url, err := svc.UpdateStatus(r.Context(), shortCode, status)
		if err != nil {
			if errors.Is(err, database.ErrURLNotFound) {
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, response.ResourceNotFoundResponse)
				return
			}

			httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.ServerErrorResponse)
			return
		}

		render.Status(r, http.StatusOK)
		render.JSON(w, r, response.SuccessResponse(successMsg, toURLResponse(baseURL, url)))
	}
}
