package models

import (
	"fmt"
	"strings"
	"time"
)

// Status represents the lifecycle state of a shortened URL.
type Status string

const (
	// StatusActive marks a URL that resolves and redirects normally.
	StatusActive Status = "active"
	// StatusInactive marks a URL that has been manually disabled.
	StatusInactive Status = "inactive"
	// StatusExpired marks a URL whose lifetime has ended.
	StatusExpired Status = "expired"
)

// ParseStatus converts a string into a Status. Matching is case-insensitive.
// It returns an error for unknown values.
func ParseStatus(s string) (Status, error) {
	switch Status(strings.ToLower(s)) {
	case StatusActive:
		return StatusActive, nil
	case StatusInactive:
		return StatusInactive, nil
	case StatusExpired:
		return StatusExpired, nil
	default:
		return "", fmt.Errorf("unknown url status: %q", s)
	}
}

// String returns the status name.
func (s Status) String() string {
	return string(s)
}

// URL represents a shortened URL and its associated metadata.
type URL struct {
	// ID is the unique identifier for the shortened URL record.
	ID int64
	// ShortCode is the short code associated with the original URL.
	ShortCode string
	// OriginalURL is the original, full-length URL that the short code points to.
	OriginalURL string
	// ClickCount tracks the number of times the shortened URL has been followed.
	ClickCount int64
	// LastClickedAt is the timestamp of the most recent click, nil until the first one.
	LastClickedAt *time.Time
	// Status is the lifecycle state of the URL.
	Status Status
	// CreatedAt is the timestamp indicating when the shortened URL was created.
	CreatedAt time.Time
	// UpdatedAt is the timestamp indicating when the shortened URL was last updated.
	UpdatedAt time.Time
}
