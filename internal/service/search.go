package service

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/pokvault/pokvault/internal/domain"
	"github.com/pokvault/pokvault/internal/embed"
	"github.com/pokvault/pokvault/internal/pagination"
	"github.com/pokvault/pokvault/internal/telemetry"
)

// SearchMode selects the retrieval strategy.
type SearchMode string

const (
	SearchModeKeyword  SearchMode = "keyword"
	SearchModeSemantic SearchMode = "semantic"
	SearchModeHybrid   SearchMode = "hybrid"
)

// ParseSearchMode maps a raw mode string to a SearchMode. Empty and
// unrecognized values default to keyword.
func ParseSearchMode(raw string) SearchMode {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case string(SearchModeSemantic):
		return SearchModeSemantic
	case string(SearchModeHybrid):
		return SearchModeHybrid
	default:
		return SearchModeKeyword
	}
}

// KeywordQuery is the repository-level shape of a keyword search.
type KeywordQuery struct {
	UserID      string
	Keyword     string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	UpdatedFrom *time.Time
	UpdatedTo   *time.Time
	Sort        pagination.Sort
	Limit       int
	Offset      int
}

// SearchRepository defines the repository interface for search.
type SearchRepository interface {
	SearchKeyword(ctx context.Context, q KeywordQuery) ([]*domain.Pok, int64, error)
	SearchSemantic(ctx context.Context, userID string, query []float32, limit, offset int) ([]*domain.Pok, error)
}

// SearchInput carries the raw, caller-supplied search parameters. Dates are
// RFC 3339 strings straight off the wire; validation happens in Search.
type SearchInput struct {
	UserID        string
	Keyword       string
	Mode          SearchMode
	SortBy        string
	SortDirection string
	CreatedFrom   string
	CreatedTo     string
	UpdatedFrom   string
	UpdatedTo     string
	Page          int
	Size          int
}

const DefaultOverfetchFactor = 3

// SearchEngine serves keyword, semantic, and hybrid search over a user's
// poks. Semantic ranking degrades to keyword search when the embedding
// provider is down; bad request parameters never degrade, they fail.
type SearchEngine struct {
	repo      SearchRepository
	provider  embed.Provider
	overfetch int
}

// NewSearchEngine creates a new SearchEngine instance. provider may be nil
// when no embedding backend is configured; every query then runs as
// keyword search. A non-positive overfetch falls back to the default.
func NewSearchEngine(repo SearchRepository, provider embed.Provider, overfetch int) *SearchEngine {
	if overfetch <= 0 {
		overfetch = DefaultOverfetchFactor
	}
	return &SearchEngine{
		repo:      repo,
		provider:  provider,
		overfetch: overfetch,
	}
}

// Search executes the query in the requested mode.
//
// Semantic and hybrid modes require a non-blank keyword and an available
// provider; a blank keyword or an unavailable provider silently routes to
// keyword search. Semantic page totals are approximate; hybrid pages reuse
// the exact keyword total.
func (e *SearchEngine) Search(ctx context.Context, input SearchInput) (*pagination.Page[*domain.Pok], error) {
	ctx, span := telemetry.StartSpan(ctx, "SearchEngine.Search", telemetry.SpanAttributes{
		UserID:    input.UserID,
		Operation: "search_" + string(input.Mode),
	})
	defer span.End()

	req := pagination.NewRequest(input.Page, input.Size)
	keyword := strings.TrimSpace(input.Keyword)

	semanticWanted := input.Mode == SearchModeSemantic || input.Mode == SearchModeHybrid
	if semanticWanted && keyword != "" && e.provider != nil {
		queryEmbedding, err := e.provider.Embed(ctx, keyword)
		if err == nil {
			return e.searchWithEmbedding(ctx, input, req, queryEmbedding)
		}
		if !embed.IsUnavailable(err) {
			span.SetError(err)
			return nil, err
		}
		log.Printf("embedding provider unavailable, falling back to keyword search: %v", err)
	}

	return e.keywordSearch(ctx, input, req, keyword)
}

// searchWithEmbedding runs the similarity query and, in hybrid mode, merges
// in the keyword results.
func (e *SearchEngine) searchWithEmbedding(ctx context.Context, input SearchInput, req pagination.Request, queryEmbedding []float32) (*pagination.Page[*domain.Pok], error) {
	// Over-fetch so hybrid still fills a page after dedup, and so the
	// approximate total looks ahead of the current page.
	limit := req.Size * e.overfetch
	offset := req.Offset()

	semantic, err := e.repo.SearchSemantic(ctx, input.UserID, queryEmbedding, limit, offset)
	if err != nil {
		return nil, err
	}

	if input.Mode == SearchModeHybrid {
		sort, _ := pagination.NewSort("", "")
		keyword, total, err := e.repo.SearchKeyword(ctx, KeywordQuery{
			UserID:  input.UserID,
			Keyword: strings.TrimSpace(input.Keyword),
			Sort:    sort,
			Limit:   req.Size,
			Offset:  req.Offset(),
		})
		if err != nil {
			return nil, err
		}
		merged := mergePreferringSemantic(semantic, keyword, req.Size)
		return pagination.NewPage(merged, req, total, false), nil
	}

	approxTotal := int64(offset + len(semantic))
	items := semantic
	if len(items) > req.Size {
		items = items[:req.Size]
	}
	return pagination.NewPage(items, req, approxTotal, true), nil
}

func (e *SearchEngine) keywordSearch(ctx context.Context, input SearchInput, req pagination.Request, keyword string) (*pagination.Page[*domain.Pok], error) {
	sort, err := pagination.NewSort(input.SortBy, input.SortDirection)
	if err != nil {
		return nil, err
	}

	q := KeywordQuery{
		UserID:  input.UserID,
		Keyword: keyword,
		Sort:    sort,
		Limit:   req.Size,
		Offset:  req.Offset(),
	}

	if q.CreatedFrom, err = parseDateFilter("createdFrom", input.CreatedFrom); err != nil {
		return nil, err
	}
	if q.CreatedTo, err = parseDateFilter("createdTo", input.CreatedTo); err != nil {
		return nil, err
	}
	if q.UpdatedFrom, err = parseDateFilter("updatedFrom", input.UpdatedFrom); err != nil {
		return nil, err
	}
	if q.UpdatedTo, err = parseDateFilter("updatedTo", input.UpdatedTo); err != nil {
		return nil, err
	}

	items, total, err := e.repo.SearchKeyword(ctx, q)
	if err != nil {
		return nil, err
	}
	return pagination.NewPage(items, req, total, false), nil
}

// parseDateFilter parses an optional RFC 3339 timestamp. A malformed value
// is a validation error, never silently ignored.
func parseDateFilter(name, raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, domain.NewDomainError(domain.ErrCodeValidation,
			"invalid "+name+" date: '"+raw+"' (expected RFC 3339, e.g. 2026-01-02T15:04:05Z)")
	}
	return &t, nil
}

// mergePreferringSemantic concatenates the two result lists keeping
// semantic order first and dropping keyword rows already ranked
// semantically. Capped at size.
func mergePreferringSemantic(semantic, keyword []*domain.Pok, size int) []*domain.Pok {
	seen := make(map[string]struct{}, len(semantic)+len(keyword))
	merged := make([]*domain.Pok, 0, size)

	for _, list := range [][]*domain.Pok{semantic, keyword} {
		for _, pok := range list {
			if len(merged) >= size {
				return merged
			}
			if _, dup := seen[pok.ID]; dup {
				continue
			}
			seen[pok.ID] = struct{}{}
			merged = append(merged, pok)
		}
	}
	return merged
}
