package handlers

import (
	"context"
	"net/http"

	"github.com/pokvault/pokvault/internal/api"
)

type BackfillRunner interface {
	Run(ctx context.Context) (int, error)
}

// AdminHandler exposes operator endpoints. Routes using it sit behind the
// internal key middleware, not user token auth.
type AdminHandler struct {
	backfill BackfillRunner
}

func NewAdminHandler(backfill BackfillRunner) *AdminHandler {
	return &AdminHandler{backfill: backfill}
}

type BackfillResponse struct {
	Enqueued int `json:"enqueued"`
}

// BackfillEmbeddings sweeps poks missing an embedding and enqueues
// regeneration. Returns 202: the count is poks enqueued, not completed.
func (h *AdminHandler) BackfillEmbeddings(w http.ResponseWriter, r *http.Request) {
	enqueued, err := h.backfill.Run(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.JSON(w, http.StatusAccepted, BackfillResponse{Enqueued: enqueued})
}
