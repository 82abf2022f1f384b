package handler

import (
	"net/http"

	"staybook/internal/commissions/service"
	httputil "staybook/pkg/http"
	"staybook/pkg/logger"
	"staybook/pkg/middleware"

	"github.com/julienschmidt/httprouter"
)

type CommissionHandler struct {
	service service.CommissionService
	log     *logger.Logger
}

func NewCommissionHandler(service service.CommissionService, log *logger.Logger) *CommissionHandler {
	return &CommissionHandler{
		service: service,
		log:     log,
	}
}

func (h *CommissionHandler) MarkPaid(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	commission, err := h.service.MarkPaid(r.Context(), middleware.ActorFromContext(r.Context()), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "MarkPaid", err)
		return
	}

	if err := httputil.WriteSuccess(w, commission); err != nil {
		h.log.Error("failed to write success response", "handler", "MarkPaid", "operation", "WriteSuccess", "error", err)
	}
}

func (h *CommissionHandler) Reject(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	commission, err := h.service.Reject(r.Context(), middleware.ActorFromContext(r.Context()), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "Reject", err)
		return
	}

	if err := httputil.WriteSuccess(w, commission); err != nil {
		h.log.Error("failed to write success response", "handler", "Reject", "operation", "WriteSuccess", "error", err)
	}
}

func (h *CommissionHandler) List(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "List", err)
		return
	}

	commissions, total, err := h.service.List(r.Context(), middleware.ActorFromContext(r.Context()), limit, offset)
	if err != nil {
		h.writeError(w, "List", err)
		return
	}

	if err := httputil.WritePaginated(w, commissions, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "List", "operation", "WritePaginated", "error", err)
	}
}

func (h *CommissionHandler) SearchOrphans(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	orphans, err := h.service.SearchOrphans(r.Context(), middleware.ActorFromContext(r.Context()), r.URL.Query().Get("guest_name"))
	if err != nil {
		h.writeError(w, "SearchOrphans", err)
		return
	}

	if err := httputil.WriteSuccess(w, orphans); err != nil {
		h.log.Error("failed to write success response", "handler", "SearchOrphans", "operation", "WriteSuccess", "error", err)
	}
}

func (h *CommissionHandler) Claim(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	result, err := h.service.Claim(r.Context(), middleware.ActorFromContext(r.Context()), ps.ByName("bookingId"))
	if err != nil {
		h.writeError(w, "Claim", err)
		return
	}

	if err := httputil.WriteSuccess(w, result); err != nil {
		h.log.Error("failed to write success response", "handler", "Claim", "operation", "WriteSuccess", "error", err)
	}
}

func (h *CommissionHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *CommissionHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/commissions", h.List)
	router.GET("/api/v1/commissions/orphans", h.SearchOrphans)
	router.POST("/api/v1/commissions/id/:id/pay", h.MarkPaid)
	router.POST("/api/v1/commissions/id/:id/reject", h.Reject)
	router.POST("/api/v1/commissions/claim/:bookingId", h.Claim)
}
