// Package pagination provides offset-based page requests and result pages
// for search and listing endpoints.
package pagination

import (
	"strings"

	"github.com/pokvault/pokvault/internal/domain"
)

const (
	// DefaultSize is the page size used when the caller does not specify one.
	DefaultSize = 20
	// MaxSize caps the page size a caller can request.
	MaxSize = 100
)

// Request is a sanitized offset/limit page request.
type Request struct {
	Page int
	Size int
}

// NewRequest clamps raw page/size values into a valid Request.
func NewRequest(page, size int) Request {
	if page < 0 {
		page = 0
	}
	if size <= 0 {
		size = DefaultSize
	}
	if size > MaxSize {
		size = MaxSize
	}
	return Request{Page: page, Size: size}
}

// Offset returns the row offset of the request.
func (r Request) Offset() int {
	return r.Page * r.Size
}

// Page is one window of a result set.
//
// TotalElements is exact for keyword queries. For similarity-ranked queries
// it is an approximation (offset + number of rows actually fetched) because
// an exact count would require a full scan of the owner's embedded corpus;
// Approximate marks those pages.
type Page[T any] struct {
	Items         []T   `json:"items"`
	Page          int   `json:"page"`
	Size          int   `json:"size"`
	TotalElements int64 `json:"total_elements"`
	TotalPages    int   `json:"total_pages"`
	Approximate   bool  `json:"approximate,omitempty"`
}

// NewPage assembles a Page from items and a total count.
func NewPage[T any](items []T, req Request, total int64, approximate bool) *Page[T] {
	totalPages := 0
	if req.Size > 0 {
		totalPages = int((total + int64(req.Size) - 1) / int64(req.Size))
	}
	if items == nil {
		items = []T{}
	}
	return &Page[T]{
		Items:         items,
		Page:          req.Page,
		Size:          req.Size,
		TotalElements: total,
		TotalPages:    totalPages,
		Approximate:   approximate,
	}
}

// Sort field and direction allow-listing for pok queries. Only timestamp
// columns may be sorted on; anything else is a loud validation error.
const (
	SortByCreatedAt = "createdAt"
	SortByUpdatedAt = "updatedAt"

	DirectionAsc  = "ASC"
	DirectionDesc = "DESC"
)

// Sort is a validated sort specification.
type Sort struct {
	Field     string
	Direction string
}

// NewSort validates sortBy/sortDirection, applying the updatedAt/DESC
// defaults for empty values.
func NewSort(sortBy, sortDirection string) (Sort, error) {
	field := sortBy
	if field == "" {
		field = SortByUpdatedAt
	}
	if field != SortByCreatedAt && field != SortByUpdatedAt {
		return Sort{}, domain.NewDomainError(domain.ErrCodeValidation,
			"invalid sort field: '"+field+"' (allowed: createdAt, updatedAt)")
	}

	direction := DirectionDesc
	if strings.EqualFold(sortDirection, DirectionAsc) {
		direction = DirectionAsc
	}

	return Sort{Field: field, Direction: direction}, nil
}

// Column maps the allow-listed sort field to its SQL column. Safe to
// interpolate because NewSort rejects everything outside the allow-list.
func (s Sort) Column() string {
	if s.Field == SortByCreatedAt {
		return "created_at"
	}
	return "updated_at"
}
