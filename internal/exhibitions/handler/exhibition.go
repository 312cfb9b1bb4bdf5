package handler

import (
	"net/http"

	"expobook/internal/exhibitions/service"
	httputil "expobook/pkg/http"
	"expobook/pkg/logger"
	"expobook/pkg/middleware"
	"expobook/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type ExhibitionHandler struct {
	service service.ExhibitionService
	log     *logger.Logger
}

func NewExhibitionHandler(service service.ExhibitionService, log *logger.Logger) *ExhibitionHandler {
	return &ExhibitionHandler{
		service: service,
		log:     log,
	}
}

func (h *ExhibitionHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	principal, _ := middleware.PrincipalFromContext(r.Context())

	var exhibition model.Exhibition
	if err := httputil.DecodeJSON(r, &exhibition); err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Create", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := h.service.Create(r.Context(), principal, &exhibition); err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Create", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteCreated(w, exhibition); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "operation", "WriteCreated", "error", err)
	}
}

func (h *ExhibitionHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")

	exhibition, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetByID", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, exhibition); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

func (h *ExhibitionHandler) GetAll(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	exhibitions, err := h.service.List(r.Context())
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetAll", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteList(w, exhibitions, len(exhibitions)); err != nil {
		h.log.Error("failed to write list response", "handler", "GetAll", "operation", "WriteList", "error", err)
	}
}

func (h *ExhibitionHandler) Availability(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")

	report, err := h.service.Availability(r.Context(), id)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Availability", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, report); err != nil {
		h.log.Error("failed to write success response", "handler", "Availability", "operation", "WriteSuccess", "error", err)
	}
}

func (h *ExhibitionHandler) Update(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	principal, _ := middleware.PrincipalFromContext(r.Context())
	id := ps.ByName("id")

	var updates model.ExhibitionUpdate
	if err := httputil.DecodeJSON(r, &updates); err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Update", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	exhibition, err := h.service.Update(r.Context(), principal, id, &updates)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Update", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, exhibition); err != nil {
		h.log.Error("failed to write success response", "handler", "Update", "operation", "WriteSuccess", "error", err)
	}
}

func (h *ExhibitionHandler) Delete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	principal, _ := middleware.PrincipalFromContext(r.Context())
	id := ps.ByName("id")

	if err := h.service.Delete(r.Context(), principal, id); err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Delete", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	httputil.WriteNoContent(w)
}

func (h *ExhibitionHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/exhibitions", h.GetAll)
	router.GET("/api/v1/exhibitions/:id", h.GetByID)
	router.GET("/api/v1/exhibitions/:id/availability", h.Availability)
	router.POST("/api/v1/exhibitions", middleware.RequireAuth(h.Create))
	router.PUT("/api/v1/exhibitions/:id", middleware.RequireAuth(h.Update))
	router.DELETE("/api/v1/exhibitions/:id", middleware.RequireAuth(h.Delete))
}
