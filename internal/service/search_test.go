package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pokvault/pokvault/internal/domain"
	"github.com/pokvault/pokvault/internal/embed"
	"github.com/pokvault/pokvault/internal/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockSearchRepo mocks the search repository
type MockSearchRepo struct {
	mock.Mock
}

func (m *MockSearchRepo) SearchKeyword(ctx context.Context, q KeywordQuery) ([]*domain.Pok, int64, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*domain.Pok), args.Get(1).(int64), args.Error(2)
}

func (m *MockSearchRepo) SearchSemantic(ctx context.Context, userID string, query []float32, limit, offset int) ([]*domain.Pok, error) {
	args := m.Called(ctx, userID, query, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Pok), args.Error(1)
}

func poks(ids ...string) []*domain.Pok {
	out := make([]*domain.Pok, len(ids))
	for i, id := range ids {
		out[i] = &domain.Pok{ID: id, UserID: "user-1", Content: "content " + id}
	}
	return out
}

func TestSearchEngine_KeywordMode(t *testing.T) {
	mockRepo := new(MockSearchRepo)
	engine := NewSearchEngine(mockRepo, nil, 3)

	results := poks("a", "b")
	mockRepo.On("SearchKeyword", mock.Anything, mock.MatchedBy(func(q KeywordQuery) bool {
		return q.UserID == "user-1" &&
			q.Keyword == "sourdough" &&
			q.Sort.Field == pagination.SortByCreatedAt &&
			q.Sort.Direction == pagination.DirectionAsc &&
			q.Limit == 10 && q.Offset == 20
	})).Return(results, int64(42), nil)

	page, err := engine.Search(context.Background(), SearchInput{
		UserID:        "user-1",
		Keyword:       "sourdough",
		Mode:          SearchModeKeyword,
		SortBy:        "createdAt",
		SortDirection: "asc",
		Page:          2,
		Size:          10,
	})

	require.NoError(t, err)
	assert.Equal(t, results, page.Items)
	assert.Equal(t, int64(42), page.TotalElements)
	assert.Equal(t, 5, page.TotalPages)
	assert.False(t, page.Approximate)
	mockRepo.AssertExpectations(t)
}

func TestSearchEngine_KeywordMode_DateFilters(t *testing.T) {
	mockRepo := new(MockSearchRepo)
	engine := NewSearchEngine(mockRepo, nil, 3)

	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	mockRepo.On("SearchKeyword", mock.Anything, mock.MatchedBy(func(q KeywordQuery) bool {
		return q.CreatedFrom != nil && q.CreatedFrom.Equal(from) &&
			q.CreatedTo == nil && q.UpdatedFrom == nil && q.UpdatedTo == nil
	})).Return(poks(), int64(0), nil)

	_, err := engine.Search(context.Background(), SearchInput{
		UserID:      "user-1",
		CreatedFrom: "2026-01-01T00:00:00Z",
	})

	require.NoError(t, err)
	mockRepo.AssertExpectations(t)
}

func TestSearchEngine_InvalidSortField(t *testing.T) {
	mockRepo := new(MockSearchRepo)
	engine := NewSearchEngine(mockRepo, nil, 3)

	_, err := engine.Search(context.Background(), SearchInput{
		UserID: "user-1",
		SortBy: "title; DROP TABLE poks",
	})

	require.Error(t, err)
	var domainErr *domain.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.ErrCodeValidation, domainErr.Code)
	mockRepo.AssertNotCalled(t, "SearchKeyword")
}

func TestSearchEngine_InvalidDateFilter(t *testing.T) {
	mockRepo := new(MockSearchRepo)
	engine := NewSearchEngine(mockRepo, nil, 3)

	_, err := engine.Search(context.Background(), SearchInput{
		UserID:      "user-1",
		UpdatedFrom: "last tuesday",
	})

	require.Error(t, err)
	var domainErr *domain.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.ErrCodeValidation, domainErr.Code)
	assert.Contains(t, domainErr.Message, "updatedFrom")
	mockRepo.AssertNotCalled(t, "SearchKeyword")
}

func TestSearchEngine_SemanticMode_BlankKeywordFallsBack(t *testing.T) {
	mockRepo := new(MockSearchRepo)
	mockProvider := new(MockEmbedProvider)
	engine := NewSearchEngine(mockRepo, mockProvider, 3)

	mockRepo.On("SearchKeyword", mock.Anything, mock.MatchedBy(func(q KeywordQuery) bool {
		return q.Keyword == ""
	})).Return(poks("a"), int64(1), nil)

	page, err := engine.Search(context.Background(), SearchInput{
		UserID:  "user-1",
		Keyword: "   ",
		Mode:    SearchModeSemantic,
	})

	require.NoError(t, err)
	assert.False(t, page.Approximate)
	mockProvider.AssertNotCalled(t, "Embed")
	mockRepo.AssertNotCalled(t, "SearchSemantic")
}

func TestSearchEngine_SemanticMode_NilProviderFallsBack(t *testing.T) {
	mockRepo := new(MockSearchRepo)
	engine := NewSearchEngine(mockRepo, nil, 3)

	mockRepo.On("SearchKeyword", mock.Anything, mock.Anything).Return(poks("a"), int64(1), nil)

	page, err := engine.Search(context.Background(), SearchInput{
		UserID:  "user-1",
		Keyword: "bread",
		Mode:    SearchModeSemantic,
	})

	require.NoError(t, err)
	assert.False(t, page.Approximate)
	mockRepo.AssertNotCalled(t, "SearchSemantic")
}

func TestSearchEngine_SemanticMode_ProviderUnavailableFallsBack(t *testing.T) {
	mockRepo := new(MockSearchRepo)
	mockProvider := new(MockEmbedProvider)
	engine := NewSearchEngine(mockRepo, mockProvider, 3)

	mockProvider.On("Embed", mock.Anything, "bread").
		Return(nil, &embed.UnavailableError{Reason: "exhausted 3 attempts", Cause: errors.New("503")})
	mockRepo.On("SearchKeyword", mock.Anything, mock.MatchedBy(func(q KeywordQuery) bool {
		return q.Keyword == "bread"
	})).Return(poks("a", "b"), int64(2), nil)

	page, err := engine.Search(context.Background(), SearchInput{
		UserID:  "user-1",
		Keyword: "bread",
		Mode:    SearchModeSemantic,
	})

	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
	assert.False(t, page.Approximate)
	mockRepo.AssertNotCalled(t, "SearchSemantic")
	mockProvider.AssertExpectations(t)
}

func TestSearchEngine_SemanticMode_OverfetchAndApproximateTotal(t *testing.T) {
	mockRepo := new(MockSearchRepo)
	mockProvider := new(MockEmbedProvider)
	engine := NewSearchEngine(mockRepo, mockProvider, 3)

	queryEmbedding := []float32{0.1, 0.2, 0.3}
	fetched := poks("a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k", "l")

	mockProvider.On("Embed", mock.Anything, "bread").Return(queryEmbedding, nil)
	// page 1 size 10: limit is 3x the page size, offset is page*size
	mockRepo.On("SearchSemantic", mock.Anything, "user-1", queryEmbedding, 30, 10).
		Return(fetched, nil)

	page, err := engine.Search(context.Background(), SearchInput{
		UserID:  "user-1",
		Keyword: "bread",
		Mode:    SearchModeSemantic,
		Page:    1,
		Size:    10,
	})

	require.NoError(t, err)
	assert.Len(t, page.Items, 10)
	assert.Equal(t, fetched[:10], page.Items)
	assert.Equal(t, int64(22), page.TotalElements)
	assert.True(t, page.Approximate)
	mockRepo.AssertNotCalled(t, "SearchKeyword")
}

func TestSearchEngine_HybridMode_MergesSemanticFirst(t *testing.T) {
	mockRepo := new(MockSearchRepo)
	mockProvider := new(MockEmbedProvider)
	engine := NewSearchEngine(mockRepo, mockProvider, 3)

	queryEmbedding := []float32{0.1}
	semantic := poks("s1", "both", "s2")
	keyword := poks("both", "k1")

	mockProvider.On("Embed", mock.Anything, "bread").Return(queryEmbedding, nil)
	mockRepo.On("SearchSemantic", mock.Anything, "user-1", queryEmbedding, 30, 0).
		Return(semantic, nil)
	mockRepo.On("SearchKeyword", mock.Anything, mock.MatchedBy(func(q KeywordQuery) bool {
		return q.Keyword == "bread" && q.Limit == 10 && q.Offset == 0
	})).Return(keyword, int64(17), nil)

	page, err := engine.Search(context.Background(), SearchInput{
		UserID:  "user-1",
		Keyword: "bread",
		Mode:    SearchModeHybrid,
		Size:    10,
	})

	require.NoError(t, err)
	ids := make([]string, len(page.Items))
	for i, p := range page.Items {
		ids[i] = p.ID
	}
	assert.Equal(t, []string{"s1", "both", "s2", "k1"}, ids)
	assert.Equal(t, int64(17), page.TotalElements)
	assert.False(t, page.Approximate)
}

func TestSearchEngine_HybridMode_MergeCappedAtPageSize(t *testing.T) {
	mockRepo := new(MockSearchRepo)
	mockProvider := new(MockEmbedProvider)
	engine := NewSearchEngine(mockRepo, mockProvider, 3)

	mockProvider.On("Embed", mock.Anything, "bread").Return([]float32{0.1}, nil)
	mockRepo.On("SearchSemantic", mock.Anything, "user-1", mock.Anything, 6, 0).
		Return(poks("s1", "s2", "s3"), nil)
	mockRepo.On("SearchKeyword", mock.Anything, mock.Anything).
		Return(poks("k1", "k2", "k3"), int64(6), nil)

	page, err := engine.Search(context.Background(), SearchInput{
		UserID:  "user-1",
		Keyword: "bread",
		Mode:    SearchModeHybrid,
		Size:    2,
	})

	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "s1", page.Items[0].ID)
	assert.Equal(t, "s2", page.Items[1].ID)
}

func TestSearchEngine_SemanticMode_RepositoryError(t *testing.T) {
	mockRepo := new(MockSearchRepo)
	mockProvider := new(MockEmbedProvider)
	engine := NewSearchEngine(mockRepo, mockProvider, 3)

	mockProvider.On("Embed", mock.Anything, "bread").Return([]float32{0.1}, nil)
	mockRepo.On("SearchSemantic", mock.Anything, "user-1", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("connection refused"))

	_, err := engine.Search(context.Background(), SearchInput{
		UserID:  "user-1",
		Keyword: "bread",
		Mode:    SearchModeSemantic,
	})

	assert.Error(t, err)
}

func TestParseSearchMode(t *testing.T) {
	assert.Equal(t, SearchModeKeyword, ParseSearchMode(""))
	assert.Equal(t, SearchModeKeyword, ParseSearchMode("keyword"))
	assert.Equal(t, SearchModeKeyword, ParseSearchMode("nonsense"))
	assert.Equal(t, SearchModeSemantic, ParseSearchMode("semantic"))
	assert.Equal(t, SearchModeSemantic, ParseSearchMode(" Semantic "))
	assert.Equal(t, SearchModeHybrid, ParseSearchMode("hybrid"))
}
