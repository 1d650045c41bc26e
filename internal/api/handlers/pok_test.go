package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pokvault/pokvault/internal/api/middleware"
	"github.com/pokvault/pokvault/internal/domain"
	"github.com/pokvault/pokvault/internal/pagination"
	"github.com/pokvault/pokvault/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockPokService struct {
	mock.Mock
}

func (m *MockPokService) Create(ctx context.Context, input service.CreateInput) (*domain.Pok, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Pok), args.Error(1)
}

func (m *MockPokService) GetByID(ctx context.Context, userID, pokID string) (*domain.Pok, error) {
	args := m.Called(ctx, userID, pokID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Pok), args.Error(1)
}

func (m *MockPokService) Update(ctx context.Context, input service.UpdateInput) (*domain.Pok, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Pok), args.Error(1)
}

func (m *MockPokService) Delete(ctx context.Context, userID, pokID string) error {
	args := m.Called(ctx, userID, pokID)
	return args.Error(0)
}

type MockSearchService struct {
	mock.Mock
}

func (m *MockSearchService) Search(ctx context.Context, input service.SearchInput) (*pagination.Page[*domain.Pok], error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*pagination.Page[*domain.Pok]), args.Error(1)
}

func newTestPok() *domain.Pok {
	now := time.Now().UTC()
	return &domain.Pok{
		ID:        "pok-123",
		UserID:    "user-456",
		Title:     "Sourdough",
		Content:   "Feed the starter daily.",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func requestWithUserID(method, url string, body []byte) *http.Request {
	req := httptest.NewRequest(method, url, bytes.NewReader(body))
	ctx := context.WithValue(req.Context(), middleware.UserIDKey, "user-456")
	return req.WithContext(ctx)
}

func TestPokHandler_Create_Success(t *testing.T) {
	mockSvc := new(MockPokService)
	handler := NewPokHandler(mockSvc, new(MockSearchService))

	expected := newTestPok()
	mockSvc.On("Create", mock.Anything, mock.MatchedBy(func(input service.CreateInput) bool {
		return input.UserID == "user-456" && input.Title == "Sourdough" && input.Content == "Feed the starter daily."
	})).Return(expected, nil)

	body, _ := json.Marshal(CreatePokRequest{Title: "Sourdough", Content: "Feed the starter daily."})
	req := requestWithUserID(http.MethodPost, "/poks", body)
	rec := httptest.NewRecorder()

	handler.Create(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		Data PokResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "pok-123", resp.Data.ID)
	assert.False(t, resp.Data.HasEmbedding)
	mockSvc.AssertExpectations(t)
}

func TestPokHandler_Create_MissingContent(t *testing.T) {
	mockSvc := new(MockPokService)
	handler := NewPokHandler(mockSvc, new(MockSearchService))

	body, _ := json.Marshal(CreatePokRequest{Title: "only a title"})
	req := requestWithUserID(http.MethodPost, "/poks", body)
	rec := httptest.NewRecorder()

	handler.Create(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	mockSvc.AssertNotCalled(t, "Create")
}

func TestPokHandler_Create_NoUser(t *testing.T) {
	handler := NewPokHandler(new(MockPokService), new(MockSearchService))

	body, _ := json.Marshal(CreatePokRequest{Content: "body"})
	req := httptest.NewRequest(http.MethodPost, "/poks", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	handler.Create(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPokHandler_Get_Success(t *testing.T) {
	mockSvc := new(MockPokService)
	handler := NewPokHandler(mockSvc, new(MockSearchService))

	expected := newTestPok()
	expected.Embedding = []float32{0.1, 0.2}
	mockSvc.On("GetByID", mock.Anything, "user-456", "pok-123").Return(expected, nil)

	req := requestWithUserID(http.MethodGet, "/poks/pok-123", nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", "pok-123")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	rec := httptest.NewRecorder()

	handler.Get(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data PokResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Data.HasEmbedding)
}

func TestPokHandler_Get_NotFound(t *testing.T) {
	mockSvc := new(MockPokService)
	handler := NewPokHandler(mockSvc, new(MockSearchService))

	mockSvc.On("GetByID", mock.Anything, "user-456", "gone").Return(nil, domain.ErrPokNotFound)

	req := requestWithUserID(http.MethodGet, "/poks/gone", nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", "gone")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	rec := httptest.NewRecorder()

	handler.Get(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPokHandler_Get_AccessDenied(t *testing.T) {
	mockSvc := new(MockPokService)
	handler := NewPokHandler(mockSvc, new(MockSearchService))

	mockSvc.On("GetByID", mock.Anything, "user-456", "pok-123").Return(nil, domain.ErrPokAccessDenied)

	req := requestWithUserID(http.MethodGet, "/poks/pok-123", nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", "pok-123")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	rec := httptest.NewRecorder()

	handler.Get(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestPokHandler_Update_Success(t *testing.T) {
	mockSvc := new(MockPokService)
	handler := NewPokHandler(mockSvc, new(MockSearchService))

	updated := newTestPok()
	updated.Title = "New"
	mockSvc.On("Update", mock.Anything, mock.MatchedBy(func(input service.UpdateInput) bool {
		return input.PokID == "pok-123" && input.UserID == "user-456" && input.Title == "New"
	})).Return(updated, nil)

	body, _ := json.Marshal(UpdatePokRequest{Title: "New", Content: "New content"})
	req := requestWithUserID(http.MethodPut, "/poks/pok-123", body)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", "pok-123")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	rec := httptest.NewRecorder()

	handler.Update(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	mockSvc.AssertExpectations(t)
}

func TestPokHandler_Delete_Success(t *testing.T) {
	mockSvc := new(MockPokService)
	handler := NewPokHandler(mockSvc, new(MockSearchService))

	mockSvc.On("Delete", mock.Anything, "user-456", "pok-123").Return(nil)

	req := requestWithUserID(http.MethodDelete, "/poks/pok-123", nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", "pok-123")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	rec := httptest.NewRecorder()

	handler.Delete(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	mockSvc.AssertExpectations(t)
}

func TestPokHandler_Search_PassesParams(t *testing.T) {
	mockSearch := new(MockSearchService)
	handler := NewPokHandler(new(MockPokService), mockSearch)

	page := pagination.NewPage([]*domain.Pok{newTestPok()}, pagination.NewRequest(2, 10), 21, true)
	mockSearch.On("Search", mock.Anything, mock.MatchedBy(func(input service.SearchInput) bool {
		return input.UserID == "user-456" &&
			input.Keyword == "bread" &&
			input.Mode == service.SearchModeSemantic &&
			input.SortBy == "createdAt" &&
			input.Page == 2 && input.Size == 10
	})).Return(page, nil)

	req := requestWithUserID(http.MethodGet,
		"/poks/search?q=bread&mode=semantic&sortBy=createdAt&page=2&size=10", nil)
	rec := httptest.NewRecorder()

	handler.Search(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data SearchPageResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Data.Items, 1)
	assert.Equal(t, int64(21), resp.Data.TotalElements)
	assert.True(t, resp.Data.Approximate)
	mockSearch.AssertExpectations(t)
}

func TestPokHandler_Search_InvalidSortField(t *testing.T) {
	mockSearch := new(MockSearchService)
	handler := NewPokHandler(new(MockPokService), mockSearch)

	mockSearch.On("Search", mock.Anything, mock.Anything).
		Return(nil, domain.NewDomainError(domain.ErrCodeValidation, "invalid sort field: 'title'"))

	req := requestWithUserID(http.MethodGet, "/poks/search?sortBy=title", nil)
	rec := httptest.NewRecorder()

	handler.Search(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPokHandler_Search_NoUser(t *testing.T) {
	handler := NewPokHandler(new(MockPokService), new(MockSearchService))

	req := httptest.NewRequest(http.MethodGet, "/poks/search?q=bread", nil)
	rec := httptest.NewRecorder()

	handler.Search(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
