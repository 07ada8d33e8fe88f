package handlers

import (
	"net/http"
	"strconv"

	"github.com/journal/journal/internal/idgen"
	"github.com/journal/journal/internal/models"
	"github.com/journal/journal/internal/repository"
	"github.com/journal/journal/internal/services"
)

// AuthorHeader carries the ID of the calling user.
const AuthorHeader = "X-Author-ID"

// EntryListResponse is a page of entries. NextBefore is the cursor for the
// following page and is omitted on the last one.
type EntryListResponse struct {
	Entries    []*models.Entry `json:"entries"`
	NextBefore *idgen.ID       `json:"next_before,omitempty"`
}

// JournalHandler handles user and entry endpoints.
type JournalHandler struct {
	service services.JournalService
}

// NewJournalHandler creates a new JournalHandler.
func NewJournalHandler(svc services.JournalService) *JournalHandler {
	return &JournalHandler{service: svc}
}

// CreateUser handles POST /api/v1/users requests.
func (h *JournalHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req models.UserCreate
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.service.CreateUser(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, user)
}

// GetUser handles GET /api/v1/users/{id} requests.
func (h *JournalHandler) GetUser(w http.ResponseWriter, r *http.Request, rawID string) {
	id, ok := parseID(w, rawID)
	if !ok {
		return
	}

	user, err := h.service.GetUser(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// CreateEntry handles POST /api/v1/entries requests.
func (h *JournalHandler) CreateEntry(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerID(w, r)
	if !ok {
		return
	}

	var req models.EntryCreate
	if !decodeJSON(w, r, &req) {
		return
	}

	entry, err := h.service.CreateEntry(r.Context(), caller, req)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, entry)
}

// GetEntry handles GET /api/v1/entries/{id} requests.
func (h *JournalHandler) GetEntry(w http.ResponseWriter, r *http.Request, rawID string) {
	caller, ok := callerID(w, r)
	if !ok {
		return
	}
	id, ok := parseID(w, rawID)
	if !ok {
		return
	}

	entry, err := h.service.GetEntry(r.Context(), caller, id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, entry)
}

// UpdateEntry handles PUT /api/v1/entries/{id} requests.
func (h *JournalHandler) UpdateEntry(w http.ResponseWriter, r *http.Request, rawID string) {
	caller, ok := callerID(w, r)
	if !ok {
		return
	}
	id, ok := parseID(w, rawID)
	if !ok {
		return
	}

	var req models.EntryUpdate
	if !decodeJSON(w, r, &req) {
		return
	}

	entry, err := h.service.UpdateEntry(r.Context(), caller, id, req)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, entry)
}

// DeleteEntry handles DELETE /api/v1/entries/{id} requests.
func (h *JournalHandler) DeleteEntry(w http.ResponseWriter, r *http.Request, rawID string) {
	caller, ok := callerID(w, r)
	if !ok {
		return
	}
	id, ok := parseID(w, rawID)
	if !ok {
		return
	}

	if err := h.service.DeleteEntry(r.Context(), caller, id); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListEntries handles GET /api/v1/users/{id}/entries?tag=&before=&limit= requests.
func (h *JournalHandler) ListEntries(w http.ResponseWriter, r *http.Request, rawAuthorID string) {
	caller, ok := callerID(w, r)
	if !ok {
		return
	}
	authorID, ok := parseID(w, rawAuthorID)
	if !ok {
		return
	}

	q := r.URL.Query()
	opts := repository.ListOptions{Tag: q.Get("tag")}
	if raw := q.Get("before"); raw != "" {
		before, ok := parseID(w, raw)
		if !ok {
			return
		}
		opts.Before = before
	}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{
				Error: "limit must be a positive integer",
				Code:  "INVALID_LIMIT",
			})
			return
		}
		opts.Limit = n
	}

	entries, err := h.service.ListEntries(r.Context(), caller, authorID, opts)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := EntryListResponse{Entries: entries}
	if opts.Limit > 0 && len(entries) == opts.Limit {
		last := entries[len(entries)-1].ID
		resp.NextBefore = &last
	}
	writeJSON(w, http.StatusOK, resp)
}

// callerID reads the calling user from the AuthorHeader.
func callerID(w http.ResponseWriter, r *http.Request) (idgen.ID, bool) {
	raw := r.Header.Get(AuthorHeader)
	if raw == "" {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error: AuthorHeader + " header is required",
			Code:  "UNAUTHENTICATED",
		})
		return 0, false
	}
	id, err := idgen.Parse(raw)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error: "invalid " + AuthorHeader + " header",
			Code:  "UNAUTHENTICATED",
		})
		return 0, false
	}
	return id, true
}
