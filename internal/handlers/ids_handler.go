package handlers

import (
	"net/http"
	"strconv"

	"github.com/journal/journal/internal/idgen"
	"github.com/journal/journal/internal/services"
)

// MintResponse lists freshly minted identifiers.
type MintResponse struct {
	IDs []idgen.ID `json:"ids"`
}

// IDHandler handles the raw identifier endpoints.
type IDHandler struct {
	service services.IDService
}

// NewIDHandler creates a new IDHandler.
func NewIDHandler(svc services.IDService) *IDHandler {
	return &IDHandler{service: svc}
}

// Mint handles POST /api/v1/ids?count=n requests. count defaults to 1.
func (h *IDHandler) Mint(w http.ResponseWriter, r *http.Request) {
	count := 1
	if raw := r.URL.Query().Get("count"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, services.ErrInvalidCount)
			return
		}
		count = n
	}

	ids, err := h.service.Mint(r.Context(), count)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, MintResponse{IDs: ids})
}

// Decode handles GET /api/v1/ids/{id} requests.
func (h *IDHandler) Decode(w http.ResponseWriter, r *http.Request, raw string) {
	decoded, err := h.service.Decode(raw)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, decoded)
}
