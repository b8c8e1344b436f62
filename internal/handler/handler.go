// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the service layer.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"eventsignup/internal/model"
	"eventsignup/internal/service"
)

// Handler holds all HTTP handlers for the sign-up API.
type Handler struct {
	svc *service.Service
}

// New constructs a Handler.
func New(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// ─── Helper utilities ─────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, model.ErrorResponse{Error: msg})
}

// WriteErrorResponse writes a structured error envelope; shared with the
// auth middleware.
func WriteErrorResponse(w http.ResponseWriter, status int, resp model.ErrorResponse) {
	writeJSON(w, status, resp)
}

func decodeJSON(r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, 1<<20) // 1 MB limit
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func editToken(r *http.Request) string {
	if tok := r.Header.Get("X-Edit-Token"); tok != "" {
		return tok
	}
	return r.URL.Query().Get("editToken")
}

// writeServiceError maps domain errors onto HTTP statuses. Conflicts carry
// enough payload for the client to confirm and resubmit.
func writeServiceError(w http.ResponseWriter, err error) {
	var demote *service.WouldDemoteToQueueError
	var invalid *service.InvalidAnswerError
	var conflict *service.EditConflictError

	switch {
	case errors.Is(err, service.ErrNoSuchQuota):
		writeError(w, http.StatusNotFound, "quota doesn't exist")
	case errors.Is(err, service.ErrNoSuchSignup):
		writeError(w, http.StatusNotFound, "signup expired or already deleted")
	case errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, service.ErrSignupsClosed):
		writeJSON(w, http.StatusForbidden, model.ErrorResponse{Error: "signups closed for this event", Code: "SignupsClosed"})
	case errors.Is(err, service.ErrBadCredential):
		writeError(w, http.StatusForbidden, "invalid edit token")
	case errors.As(err, &demote):
		writeJSON(w, http.StatusConflict, struct {
			model.ErrorResponse
			Count int `json:"count"`
		}{
			ErrorResponse: model.ErrorResponse{Error: demote.Error(), Code: "WouldMoveSignupsToQueue"},
			Count:         demote.Count,
		})
	case errors.As(err, &invalid):
		writeJSON(w, http.StatusBadRequest, struct {
			model.ErrorResponse
			QuestionID string `json:"questionId,omitempty"`
			Reason     string `json:"reason"`
		}{
			ErrorResponse: model.ErrorResponse{Error: invalid.Error(), Code: "InvalidAnswer"},
			QuestionID:    invalid.QuestionID,
			Reason:        invalid.Reason,
		})
	case errors.As(err, &conflict):
		writeJSON(w, http.StatusConflict, struct {
			model.ErrorResponse
			UpdatedAt string `json:"updatedAt"`
		}{
			ErrorResponse: model.ErrorResponse{Error: conflict.Error(), Code: "EditConflict"},
			UpdatedAt:     conflict.UpdatedAt.Format("2006-01-02T15:04:05.999999999Z07:00"),
		})
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// ─── Public events ────────────────────────────────────────────────────────────

// ListEvents handles GET /api/events
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.svc.ListEvents(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list events")
		return
	}
	// Return an empty array rather than null for better client compatibility.
	if events == nil {
		events = []model.PublicEventListItem{}
	}
	writeJSON(w, http.StatusOK, events)
}

// GetEvent handles GET /api/events/{id}
func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request) {
	details, err := h.svc.GetEvent(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, details)
}

// ─── Signup lifecycle ─────────────────────────────────────────────────────────

// CreateSignup handles POST /api/signups
func (h *Handler) CreateSignup(w http.ResponseWriter, r *http.Request) {
	var req model.CreateSignupRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.QuotaID == "" {
		writeError(w, http.StatusBadRequest, "quotaId is required")
		return
	}

	resp, err := h.svc.CreateSignup(auditContext(r), req.QuotaID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

// GetSignup handles GET /api/signups/{id}
func (h *Handler) GetSignup(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.GetSignupForEdit(r.Context(), chi.URLParam(r, "id"), editToken(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// UpdateSignup handles PATCH /api/signups/{id}
func (h *Handler) UpdateSignup(w http.ResponseWriter, r *http.Request) {
	var req model.UpdateSignupRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	signup, err := h.svc.UpdateSignup(auditContext(r), chi.URLParam(r, "id"), editToken(r), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": signup.ID})
}

// DeleteSignup handles DELETE /api/signups/{id}
func (h *Handler) DeleteSignup(w http.ResponseWriter, r *http.Request) {
	err := h.svc.DeleteSignup(auditContext(r), chi.URLParam(r, "id"), editToken(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ─── Admin ────────────────────────────────────────────────────────────────────

// GetAdminEvent handles GET /api/admin/events/{id}
func (h *Handler) GetAdminEvent(w http.ResponseWriter, r *http.Request) {
	details, err := h.svc.GetAdminEvent(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, details)
}

// CreateEvent handles POST /api/admin/events
func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req model.UpdateEventRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	details, err := h.svc.CreateEvent(auditContext(r), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, details)
}

// UpdateEvent handles PUT /api/admin/events/{id}
func (h *Handler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	var req model.UpdateEventRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	details, err := h.svc.UpdateEvent(auditContext(r), chi.URLParam(r, "id"), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, details)
}

// RecomputeEvent handles POST /api/admin/events/{id}/recompute
func (h *Handler) RecomputeEvent(w http.ResponseWriter, r *http.Request) {
	allowDemotion := r.URL.Query().Get("moveSignupsToQueue") == "true"
	result, err := h.svc.RecomputeEvent(auditContext(r), chi.URLParam(r, "id"), allowDemotion)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// DeleteSignupAsAdmin handles DELETE /api/admin/signups/{id}
func (h *Handler) DeleteSignupAsAdmin(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteSignupAsAdmin(auditContext(r), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ─── Health check ─────────────────────────────────────────────────────────────

// HealthCheck handles GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
