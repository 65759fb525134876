package feature

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
	var dto CreateFeatureDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	f, err := h.Service.Create(dto)
	if err != nil {
		h.HandleServiceError(w, err, "create feature")
		return
	}

	h.WriteJSON(w, http.StatusCreated, f)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := h.pathID(r)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid feature id")
		return
	}

	var dto UpdateFeatureDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	f, err := h.Service.Update(id, dto)
	if err != nil {
		h.HandleServiceError(w, err, "update feature")
		return
	}

	h.WriteJSON(w, http.StatusOK, f)
}

func (h *Handler) SetParent(w http.ResponseWriter, r *http.Request) {
	id, err := h.pathID(r)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid feature id")
		return
	}

	var dto SetParentDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	f, err := h.Service.SetParent(id, dto)
	if err != nil {
		h.HandleServiceError(w, err, "set feature parent")
		return
	}

	h.WriteJSON(w, http.StatusOK, f)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := h.pathID(r)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid feature id")
		return
	}

	f, err := h.Service.GetByID(id)
	if err != nil {
		h.HandleServiceError(w, err, "get feature")
		return
	}

	h.WriteJSON(w, http.StatusOK, f)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("roots") == "true" {
		roots, err := h.Service.ListRoots()
		if err != nil {
			h.HandleServiceError(w, err, "list root features")
			return
		}
		h.WriteJSON(w, http.StatusOK, roots)
		return
	}

	features, err := h.Service.List()
	if err != nil {
		h.HandleServiceError(w, err, "list features")
		return
	}

	h.WriteJSON(w, http.StatusOK, features)
}

func (h *Handler) ListChildren(w http.ResponseWriter, r *http.Request) {
	id, err := h.pathID(r)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid feature id")
		return
	}

	children, err := h.Service.ListChildren(id)
	if err != nil {
		h.HandleServiceError(w, err, "list feature children")
		return
	}

	h.WriteJSON(w, http.StatusOK, children)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := h.pathID(r)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid feature id")
		return
	}

	if err := h.Service.Delete(id); err != nil {
		h.HandleServiceError(w, err, "delete feature")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}
