package permission

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

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

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var dto CreatePermissionDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	perm, err := h.Service.Create(dto)
	if err != nil {
		h.HandleServiceError(w, err, "create permission")
		return
	}

	h.WriteJSON(w, http.StatusCreated, perm)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid permission id")
		return
	}

	var dto UpdatePermissionDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	perm, err := h.Service.Update(id, dto)
	if err != nil {
		h.HandleServiceError(w, err, "update permission")
		return
	}

	h.WriteJSON(w, http.StatusOK, perm)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid permission id")
		return
	}

	perm, err := h.Service.GetByID(id)
	if err != nil {
		h.HandleServiceError(w, err, "get permission")
		return
	}

	h.WriteJSON(w, http.StatusOK, perm)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if featureParam := r.URL.Query().Get("feature_id"); featureParam != "" {
		featureID, err := strconv.ParseInt(featureParam, 10, 64)
		if err != nil {
			h.WriteError(w, http.StatusBadRequest, "invalid feature_id")
			return
		}
		perms, err := h.Service.ListByFeature(featureID)
		if err != nil {
			h.HandleServiceError(w, err, "list permissions by feature")
			return
		}
		h.WriteJSON(w, http.StatusOK, perms)
		return
	}

	perms, err := h.Service.List()
	if err != nil {
		h.HandleServiceError(w, err, "list permissions")
		return
	}

	h.WriteJSON(w, http.StatusOK, perms)
}

func (h *Handler) ListActions(w http.ResponseWriter, r *http.Request) {
	h.WriteJSON(w, http.StatusOK, Actions())
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid permission id")
		return
	}

	if err := h.Service.Delete(id); err != nil {
		h.HandleServiceError(w, err, "delete permission")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
