package handler

import (
	"net/http"

	"staybook/internal/bookings/service"
	httputil "staybook/pkg/http"
	"staybook/pkg/logger"
	"staybook/pkg/middleware"
	"staybook/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type BookingHandler struct {
	service service.BookingService
	log     *logger.Logger
}

func NewBookingHandler(service service.BookingService, log *logger.Logger) *BookingHandler {
	return &BookingHandler{
		service: service,
		log:     log,
	}
}

type confirmRequest struct {
	Annotation string `json:"annotation"`
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

type paymentProofRequest struct {
	Reference string `json:"reference"`
}

type checkoutSessionRequest struct {
	SessionID string `json:"session_id"`
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var intake model.BookingIntake
	if err := httputil.DecodeJSON(r, &intake, false); err != nil {
		h.writeError(w, "Create", err)
		return
	}

	booking, err := h.service.Create(r.Context(), middleware.ActorFromContext(r.Context()), &intake)
	if err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := httputil.WriteCreated(w, booking); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "operation", "WriteCreated", "error", err)
	}
}

func (h *BookingHandler) Quote(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.QuoteRequest
	if err := httputil.DecodeJSON(r, &req, false); err != nil {
		h.writeError(w, "Quote", err)
		return
	}

	quote, err := h.service.Quote(r.Context(), &req)
	if err != nil {
		h.writeError(w, "Quote", err)
		return
	}

	h.writeSuccess(w, "Quote", quote)
}

func (h *BookingHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	booking, err := h.service.GetByID(r.Context(), middleware.ActorFromContext(r.Context()), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	h.writeSuccess(w, "GetByID", booking)
}

func (h *BookingHandler) Confirm(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req confirmRequest
	if err := httputil.DecodeJSON(r, &req, true); err != nil {
		h.writeError(w, "Confirm", err)
		return
	}

	result, err := h.service.Confirm(r.Context(), middleware.ActorFromContext(r.Context()), ps.ByName("id"), req.Annotation)
	if err != nil {
		h.writeError(w, "Confirm", err)
		return
	}

	h.writeSuccess(w, "Confirm", result)
}

func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req cancelRequest
	if err := httputil.DecodeJSON(r, &req, true); err != nil {
		h.writeError(w, "Cancel", err)
		return
	}

	result, err := h.service.Cancel(r.Context(), middleware.ActorFromContext(r.Context()), ps.ByName("id"), req.Reason)
	if err != nil {
		h.writeError(w, "Cancel", err)
		return
	}

	h.writeSuccess(w, "Cancel", result)
}

func (h *BookingHandler) Complete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	result, err := h.service.Complete(r.Context(), middleware.ActorFromContext(r.Context()), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "Complete", err)
		return
	}

	h.writeSuccess(w, "Complete", result)
}

func (h *BookingHandler) AddPaymentProof(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req paymentProofRequest
	if err := httputil.DecodeJSON(r, &req, false); err != nil {
		h.writeError(w, "AddPaymentProof", err)
		return
	}

	booking, err := h.service.AddPaymentProof(r.Context(), middleware.ActorFromContext(r.Context()), ps.ByName("id"), req.Reference)
	if err != nil {
		h.writeError(w, "AddPaymentProof", err)
		return
	}

	h.writeSuccess(w, "AddPaymentProof", booking)
}

func (h *BookingHandler) AttachCheckoutSession(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req checkoutSessionRequest
	if err := httputil.DecodeJSON(r, &req, false); err != nil {
		h.writeError(w, "AttachCheckoutSession", err)
		return
	}

	booking, err := h.service.AttachCheckoutSession(r.Context(), middleware.ActorFromContext(r.Context()), ps.ByName("id"), req.SessionID)
	if err != nil {
		h.writeError(w, "AttachCheckoutSession", err)
		return
	}

	h.writeSuccess(w, "AttachCheckoutSession", booking)
}

func (h *BookingHandler) writeSuccess(w http.ResponseWriter, handler string, data any) {
	if err := httputil.WriteSuccess(w, data); err != nil {
		h.log.Error("failed to write success response", "handler", handler, "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *BookingHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/bookings", h.Create)
	router.POST("/api/v1/bookings/quote", h.Quote)
	router.GET("/api/v1/bookings/id/:id", h.GetByID)
	router.POST("/api/v1/bookings/id/:id/confirm", h.Confirm)
	router.POST("/api/v1/bookings/id/:id/cancel", h.Cancel)
	router.POST("/api/v1/bookings/id/:id/complete", h.Complete)
	router.POST("/api/v1/bookings/id/:id/payment-proof", h.AddPaymentProof)
	router.POST("/api/v1/bookings/id/:id/checkout-session", h.AttachCheckoutSession)
}
