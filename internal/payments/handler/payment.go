package handler

import (
	"io"
	"net/http"

	"staybook/internal/payments/service"
	apperrors "staybook/pkg/errors"
	httputil "staybook/pkg/http"
	"staybook/pkg/logger"
	"staybook/pkg/middleware"

	"github.com/julienschmidt/httprouter"
)

type PaymentHandler struct {
	service       service.PaymentService
	webhookSecret string
	log           *logger.Logger
}

func NewPaymentHandler(service service.PaymentService, webhookSecret string, log *logger.Logger) *PaymentHandler {
	return &PaymentHandler{
		service:       service,
		webhookSecret: webhookSecret,
		log:           log,
	}
}

func (h *PaymentHandler) Webhook(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.writeError(w, "Webhook", apperrors.BadRequest("Failed to read request body"))
		return
	}

	result, err := h.service.HandleWebhook(r.Context(), body)
	if err != nil {
		h.writeError(w, "Webhook", err)
		return
	}

	if err := httputil.WriteJSON(w, http.StatusOK, result); err != nil {
		h.log.Error("failed to write JSON response", "handler", "Webhook", "operation", "WriteJSON", "error", err)
	}
}

func (h *PaymentHandler) Status(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	status, err := h.service.Status(r.Context(), ps.ByName("bookingId"))
	if err != nil {
		h.writeError(w, "Status", err)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	if err := httputil.WriteJSON(w, http.StatusOK, status); err != nil {
		h.log.Error("failed to write JSON response", "handler", "Status", "operation", "WriteJSON", "error", err)
	}
}

func (h *PaymentHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *PaymentHandler) RegisterRoutes(router *httprouter.Router) {
	verify := middleware.PaymentSignatureVerification(h.webhookSecret, h.log)
	router.Handler(http.MethodPost, "/api/v1/payments/webhook", verify(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.Webhook(w, r, nil)
	})))
	router.GET("/api/v1/payments/status/:bookingId", h.Status)
}
