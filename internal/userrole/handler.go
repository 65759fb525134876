package userrole

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/frahmantamala/access-management/internal"
	"github.com/frahmantamala/access-management/internal/transport"
	"github.com/frahmantamala/access-management/pkg/logger"
	"github.com/go-chi/chi"
)

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(svc ServiceAPI) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     svc,
	}
}

func (h *Handler) Assign(w http.ResponseWriter, r *http.Request) {
	actor, ok := internal.PrincipalFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var dto AssignRoleDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	created, err := h.Service.Assign(actor.UserID, dto)
	if err != nil {
		h.HandleServiceError(w, err, "assign role")
		return
	}

	h.WriteJSON(w, http.StatusCreated, created)
}

func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	actor, ok := internal.PrincipalFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	id, err := h.pathID(r, "id")
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid assignment id")
		return
	}

	var dto ApproveDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	updated, err := h.Service.Approve(id, actor.UserID, dto)
	if err != nil {
		h.HandleServiceError(w, err, "approve role assignment")
		return
	}

	h.WriteJSON(w, http.StatusOK, updated)
}

func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	actor, ok := internal.PrincipalFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	id, err := h.pathID(r, "id")
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid assignment id")
		return
	}

	var dto RejectDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	updated, err := h.Service.Reject(id, actor.UserID, dto)
	if err != nil {
		h.HandleServiceError(w, err, "reject role assignment")
		return
	}

	h.WriteJSON(w, http.StatusOK, updated)
}

func (h *Handler) Revoke(w http.ResponseWriter, r *http.Request) {
	actor, ok := internal.PrincipalFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	id, err := h.pathID(r, "id")
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid assignment id")
		return
	}

	var dto RevokeDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	updated, err := h.Service.Revoke(id, actor.UserID, dto)
	if err != nil {
		h.HandleServiceError(w, err, "revoke role assignment")
		return
	}

	h.WriteJSON(w, http.StatusOK, updated)
}

func (h *Handler) ExtendValidity(w http.ResponseWriter, r *http.Request) {
	id, err := h.pathID(r, "id")
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid assignment id")
		return
	}

	var dto ExtendValidityDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	updated, err := h.Service.ExtendValidity(id, dto)
	if err != nil {
		h.HandleServiceError(w, err, "extend assignment validity")
		return
	}

	h.WriteJSON(w, http.StatusOK, updated)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := h.pathID(r, "id")
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid assignment id")
		return
	}

	found, err := h.Service.GetByID(id)
	if err != nil {
		h.HandleServiceError(w, err, "get role assignment")
		return
	}

	h.WriteJSON(w, http.StatusOK, found)
}

func (h *Handler) ListByUser(w http.ResponseWriter, r *http.Request) {
	userID, err := h.pathID(r, "userID")
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	assignments, err := h.Service.ListByUser(userID)
	if err != nil {
		h.HandleServiceError(w, err, "list user role assignments")
		return
	}

	h.WriteJSON(w, http.StatusOK, assignments)
}

func (h *Handler) ListPending(w http.ResponseWriter, r *http.Request) {
	assignments, err := h.Service.ListPending()
	if err != nil {
		h.HandleServiceError(w, err, "list pending role assignments")
		return
	}

	h.WriteJSON(w, http.StatusOK, assignments)
}

// ListExpiring returns ACTIVE assignments expiring within the `within`
// duration query parameter, defaulting to 7 days.
func (h *Handler) ListExpiring(w http.ResponseWriter, r *http.Request) {
	within := 7 * 24 * time.Hour
	if raw := r.URL.Query().Get("within"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil || parsed <= 0 {
			h.WriteError(w, http.StatusBadRequest, "invalid within duration")
			return
		}
		within = parsed
	}

	assignments, err := h.Service.ListExpiring(within)
	if err != nil {
		h.HandleServiceError(w, err, "list expiring role assignments")
		return
	}

	h.WriteJSON(w, http.StatusOK, assignments)
}

func (h *Handler) Remove(w http.ResponseWriter, r *http.Request) {
	id, err := h.pathID(r, "id")
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid assignment id")
		return
	}

	if err := h.Service.Remove(id); err != nil {
		h.HandleServiceError(w, err, "remove role assignment")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) pathID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, name), 10, 64)
}
