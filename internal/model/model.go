// Package model defines domain entities used by services, repositories and handlers.
package model

import (
	"time"

	"github.com/gofrs/uuid/v5"
)

// Account is a durable user record. CredentialHash is stored on disk but is
// never part of any API-facing shape.
type Account struct {
	ID             uuid.UUID  `json:"id"`
	Username       string     `json:"username"` // display case preserved; uniqueness is case-insensitive
	CredentialHash string     `json:"credential_hash"`
	IsAdmin        bool       `json:"is_admin"`
	CreatedAt      time.Time  `json:"created_at"`
	LastLogin      *time.Time `json:"last_login,omitempty"`
}

// Public returns the representation safe to expose via the API.
func (a *Account) Public() PublicAccount {
	return PublicAccount{
		ID:        a.ID,
		Username:  a.Username,
		IsAdmin:   a.IsAdmin,
		CreatedAt: a.CreatedAt,
	}
}

// PublicAccount is the external view of an account.
type PublicAccount struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	IsAdmin   bool      `json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
}

// Song is metadata extracted from an audio file in the music folder.
type Song struct {
	ID          string  `json:"id"` // stable hash of the file path
	Title       string  `json:"title"`
	Artist      string  `json:"artist"`
	Album       string  `json:"album"`
	Duration    *int    `json:"duration"` // seconds; nil when unknown
	TrackNumber *int    `json:"track_number"`
	Year        *int    `json:"year"`
	Genre       *string `json:"genre"`
	Format      string  `json:"format"`
	File        string  `json:"file"` // filename, used by the streaming endpoint
	HasCover    bool    `json:"has_cover"`
}

// Page is a paginated slice of results.
type Page[T any] struct {
	Items      []T  `json:"items"`
	Total      int  `json:"total"`
	Page       int  `json:"page"`
	PerPage    int  `json:"per_page"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
	HasPrev    bool `json:"has_prev"`
}

// NewPage builds a Page from already-sliced items and collection totals.
func NewPage[T any](items []T, page, perPage, total int) Page[T] {
	totalPages := 0
	if perPage > 0 {
		totalPages = (total + perPage - 1) / perPage
	}
	return Page[T]{
		Items:      items,
		Total:      total,
		Page:       page,
		PerPage:    perPage,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
		HasPrev:    page > 1,
	}
}
