package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/pokvault/pokvault/internal/api"
	"github.com/pokvault/pokvault/internal/api/middleware"
	"github.com/pokvault/pokvault/internal/domain"
	"github.com/pokvault/pokvault/internal/pagination"
	"github.com/pokvault/pokvault/internal/service"
	"github.com/go-chi/chi/v5"
)

type PokService interface {
	Create(ctx context.Context, input service.CreateInput) (*domain.Pok, error)
	GetByID(ctx context.Context, userID, pokID string) (*domain.Pok, error)
	Update(ctx context.Context, input service.UpdateInput) (*domain.Pok, error)
	Delete(ctx context.Context, userID, pokID string) error
}

type SearchService interface {
	Search(ctx context.Context, input service.SearchInput) (*pagination.Page[*domain.Pok], error)
}

type PokHandler struct {
	svc    PokService
	search SearchService
}

func NewPokHandler(svc PokService, search SearchService) *PokHandler {
	return &PokHandler{svc: svc, search: search}
}

type CreatePokRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type UpdatePokRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type PokResponse struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Content      string `json:"content"`
	HasEmbedding bool   `json:"has_embedding"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
}

type SearchPageResponse struct {
	Items         []*PokResponse `json:"items"`
	Page          int            `json:"page"`
	Size          int            `json:"size"`
	TotalElements int64          `json:"total_elements"`
	TotalPages    int            `json:"total_pages"`
	Approximate   bool           `json:"approximate,omitempty"`
}

func pokToResponse(p *domain.Pok) *PokResponse {
	return &PokResponse{
		ID:           p.ID,
		Title:        p.Title,
		Content:      p.Content,
		HasEmbedding: p.Embedding != nil,
		CreatedAt:    p.CreatedAt.Format("2006-01-02T15:04:05Z"),
		UpdatedAt:    p.UpdatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

func (h *PokHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req CreatePokRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Content == "" {
		api.Error(w, http.StatusBadRequest, "content is required")
		return
	}

	pok, err := h.svc.Create(r.Context(), service.CreateInput{
		UserID:  userID,
		Title:   req.Title,
		Content: req.Content,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, pokToResponse(pok))
}

func (h *PokHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	pok, err := h.svc.GetByID(r.Context(), userID, id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, pokToResponse(pok))
}

func (h *PokHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	var req UpdatePokRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Content == "" {
		api.Error(w, http.StatusBadRequest, "content is required")
		return
	}

	pok, err := h.svc.Update(r.Context(), service.UpdateInput{
		PokID:   id,
		UserID:  userID,
		Title:   req.Title,
		Content: req.Content,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, pokToResponse(pok))
}

func (h *PokHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	if err := h.svc.Delete(r.Context(), userID, id); err != nil {
		api.HandleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *PokHandler) Search(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	q := r.URL.Query()

	page, err := h.search.Search(r.Context(), service.SearchInput{
		UserID:        userID,
		Keyword:       q.Get("q"),
		Mode:          service.ParseSearchMode(q.Get("mode")),
		SortBy:        q.Get("sortBy"),
		SortDirection: q.Get("sortDirection"),
		CreatedFrom:   q.Get("createdFrom"),
		CreatedTo:     q.Get("createdTo"),
		UpdatedFrom:   q.Get("updatedFrom"),
		UpdatedTo:     q.Get("updatedTo"),
		Page:          queryInt(q.Get("page"), 0),
		Size:          queryInt(q.Get("size"), pagination.DefaultSize),
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	items := make([]*PokResponse, len(page.Items))
	for i, p := range page.Items {
		items[i] = pokToResponse(p)
	}

	api.Success(w, http.StatusOK, &SearchPageResponse{
		Items:         items,
		Page:          page.Page,
		Size:          page.Size,
		TotalElements: page.TotalElements,
		TotalPages:    page.TotalPages,
		Approximate:   page.Approximate,
	})
}

func queryInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}
