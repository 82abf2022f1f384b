package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	bookingserrors "staybook/internal/bookings/errors"
	bookings "staybook/internal/bookings/service"
	paymentserrors "staybook/internal/payments/errors"
	"staybook/pkg/config"
	apperrors "staybook/pkg/errors"
	"staybook/pkg/model"
)

const (
	EventCheckoutPaid = "checkout_session.payment.paid"

	StatusConfirmed = "confirmed"
	StatusPending   = "pending"

	systemActorID = "payment-webhook"
)

// WebhookResult is what the provider gets back. Every delivery that was
// understood is acknowledged, including the ones that changed nothing.
type WebhookResult struct {
	Received  bool   `json:"received"`
	EventType string `json:"event_type,omitempty"`
	BookingID string `json:"booking_id,omitempty"`
	Outcome   string `json:"outcome"`
}

const (
	OutcomeConfirmed = "confirmed"
	OutcomeNoOp      = "no_op"
	OutcomeIgnored   = "ignored"
	OutcomeDeferred  = "deferred"
)

type PaymentStatus struct {
	BookingID string `json:"booking_id"`
	Status    string `json:"status"`
}

type PaymentService interface {
	HandleWebhook(ctx context.Context, rawBody []byte) (*WebhookResult, error)
	Status(ctx context.Context, bookingID string) (*PaymentStatus, error)
}

// SessionLookup resolves a booking from the provider's checkout session id
// when the event carries no booking metadata.
type SessionLookup interface {
	FindByCheckoutSession(ctx context.Context, sessionID string) (*model.Booking, error)
}

type webhookEvent struct {
	Data struct {
		ID         string `json:"id"`
		Attributes struct {
			Type string `json:"type"`
			Data struct {
				ID         string `json:"id"`
				Attributes struct {
					Metadata map[string]any `json:"metadata"`
				} `json:"attributes"`
			} `json:"data"`
		} `json:"attributes"`
	} `json:"data"`
}

type paymentService struct {
	bookings bookings.BookingService
	sessions SessionLookup
	cache    StatusCache
	cfg      *config.Config
}

func NewPaymentService(bookingService bookings.BookingService, sessions SessionLookup, cache StatusCache, cfg *config.Config) PaymentService {
	if cache == nil {
		cache = NopStatusCache{}
	}
	return &paymentService{
		bookings: bookingService,
		sessions: sessions,
		cache:    cache,
		cfg:      cfg,
	}
}

func (s *paymentService) HandleWebhook(ctx context.Context, rawBody []byte) (*WebhookResult, error) {
	var event webhookEvent
	if err := json.Unmarshal(rawBody, &event); err != nil {
		s.cfg.Log.Warn("Unparseable payment webhook", "error", err)
		return nil, apperrors.Wrap(paymentserrors.ErrMalformedPayload, apperrors.CodeBadRequest, "Invalid webhook payload", http.StatusBadRequest)
	}

	eventType := event.Data.Attributes.Type
	result := &WebhookResult{Received: true, EventType: eventType, Outcome: OutcomeIgnored}

	if eventType != EventCheckoutPaid {
		s.cfg.Log.Info("Ignoring payment event", "event_id", event.Data.ID, "type", eventType)
		return result, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.WebhookProcessingTimeout)
	defer cancel()

	session := event.Data.Attributes.Data.ID
	bookingID, err := s.correlate(ctx, event)
	if err != nil {
		return s.settle(ctx, result, session, err)
	}
	result.BookingID = bookingID

	annotation := "paid via checkout session"
	if session != "" {
		annotation = fmt.Sprintf("paid via checkout session %s", session)
	}

	confirmed, err := s.bookings.Confirm(ctx, model.SystemActor(systemActorID), bookingID, annotation)
	if err != nil {
		return s.settle(ctx, result, session, err)
	}

	if confirmed.Changed {
		result.Outcome = OutcomeConfirmed
	} else {
		result.Outcome = OutcomeNoOp
		s.cfg.Log.Info("Payment webhook replay or late delivery",
			"booking_id", bookingID,
			"status", confirmed.Booking.Status,
		)
	}
	return result, nil
}

func (s *paymentService) correlate(ctx context.Context, event webhookEvent) (string, error) {
	if id, ok := event.Data.Attributes.Data.Attributes.Metadata["booking_id"].(string); ok && id != "" {
		return id, nil
	}

	session := event.Data.Attributes.Data.ID
	if session == "" {
		return "", paymentserrors.ErrNoCorrelation
	}

	booking, err := s.sessions.FindByCheckoutSession(ctx, session)
	if err != nil {
		return "", err
	}
	return booking.ID, nil
}

// settle decides which processing failures are acknowledged. Only unexpected
// internal errors make the provider retry.
func (s *paymentService) settle(ctx context.Context, result *WebhookResult, session string, err error) (*WebhookResult, error) {
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		s.cfg.Log.Warn("Payment webhook processing deadline exceeded, acknowledging",
			"booking_id", result.BookingID,
			"checkout_session", session,
		)
		result.Outcome = OutcomeDeferred
		return result, nil
	case errors.Is(err, paymentserrors.ErrNoCorrelation),
		errors.Is(err, bookingserrors.ErrNotFound),
		errors.Is(err, bookingserrors.ErrInvalidID),
		apperrors.HasCode(err, apperrors.CodeNotFound),
		apperrors.HasCode(err, apperrors.CodeInvalidInput):
		s.cfg.Log.Warn("Payment webhook for unknown booking",
			"booking_id", result.BookingID,
			"checkout_session", session,
			"error", err,
		)
		return result, nil
	default:
		s.cfg.Log.Error("Payment webhook processing failed",
			"booking_id", result.BookingID,
			"checkout_session", session,
			"error", err,
		)
		if apperrors.IsAppError(err) {
			return nil, err
		}
		return nil, apperrors.Internal("Failed to process payment webhook", err)
	}
}

func (s *paymentService) Status(ctx context.Context, bookingID string) (*PaymentStatus, error) {
	if status, ok := s.cache.Get(ctx, bookingID); ok {
		return &PaymentStatus{BookingID: bookingID, Status: status}, nil
	}

	booking, err := s.bookings.GetByID(ctx, model.SystemActor(systemActorID), bookingID)
	if err != nil {
		return nil, err
	}

	// Pending is what a payment flips, so only a confirmed answer is cached.
	status := StatusPending
	if booking.Status == model.BookingConfirmed || booking.Status == model.BookingCompleted {
		status = StatusConfirmed
		s.cache.Set(ctx, bookingID, status)
	}

	return &PaymentStatus{BookingID: bookingID, Status: status}, nil
}
