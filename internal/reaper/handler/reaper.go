package handler

import (
	"crypto/subtle"
	"net/http"

	"staybook/internal/reaper/service"
	apperrors "staybook/pkg/errors"
	httputil "staybook/pkg/http"
	"staybook/pkg/logger"

	"github.com/julienschmidt/httprouter"
)

const SecretHeader = "X-Reaper-Secret"

type SweepResponse struct {
	Cancelled int `json:"cancelled"`
}

type ReaperHandler struct {
	sweeper service.Sweeper
	secret  string
	log     *logger.Logger
}

func NewReaperHandler(sweeper service.Sweeper, secret string, log *logger.Logger) *ReaperHandler {
	return &ReaperHandler{
		sweeper: sweeper,
		secret:  secret,
		log:     log,
	}
}

func (h *ReaperHandler) Run(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if h.secret != "" && subtle.ConstantTimeCompare([]byte(r.Header.Get(SecretHeader)), []byte(h.secret)) != 1 {
		h.log.Warn("Reaper trigger rejected",
			"security_event", true,
			"remote_addr", r.RemoteAddr,
		)
		if err := httputil.WriteError(w, apperrors.Unauthorized("Invalid reaper secret")); err != nil {
			h.log.Error("failed to write error response", "handler", "Run", "operation", "WriteError", "error", err)
		}
		return
	}

	cancelled, err := h.sweeper.Sweep(r.Context())
	if err != nil {
		if writeErr := httputil.WriteError(w, apperrors.Internal("Reaper sweep failed", err)); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Run", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteJSON(w, http.StatusOK, SweepResponse{Cancelled: cancelled}); err != nil {
		h.log.Error("failed to write JSON response", "handler", "Run", "operation", "WriteJSON", "error", err)
	}
}

func (h *ReaperHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/reaper/run", h.Run)
}
