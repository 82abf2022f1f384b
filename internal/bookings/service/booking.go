package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	bookingserrors "staybook/internal/bookings/errors"
	"staybook/internal/bookings/repository"
	"staybook/internal/bookings/validator"
	directoryerrors "staybook/internal/directory/errors"
	directory "staybook/internal/directory/repository"
	"staybook/internal/notify"
	"staybook/pkg/config"
	apperrors "staybook/pkg/errors"
	"staybook/pkg/model"
	"staybook/pkg/pricing"
	"staybook/pkg/sanitizer"

	"github.com/google/uuid"
)

const dateLayout = "2006-01-02"

type BookingService interface {
	Create(ctx context.Context, actor model.Actor, intake *model.BookingIntake) (*model.Booking, error)
	Quote(ctx context.Context, req *model.QuoteRequest) (*pricing.Quote, error)
	GetByID(ctx context.Context, actor model.Actor, id string) (*model.Booking, error)
	Confirm(ctx context.Context, actor model.Actor, id string, annotation string) (*TransitionResult, error)
	Cancel(ctx context.Context, actor model.Actor, id string, reason string) (*TransitionResult, error)
	Complete(ctx context.Context, actor model.Actor, id string) (*TransitionResult, error)
	AddPaymentProof(ctx context.Context, actor model.Actor, id string, reference string) (*model.Booking, error)
	AttachCheckoutSession(ctx context.Context, actor model.Actor, id string, sessionID string) (*model.Booking, error)
}

// TransitionResult reports the booking after a transition call. Changed is
// false when the call was an idempotent no-op.
type TransitionResult struct {
	Booking *model.Booking `json:"booking"`
	Changed bool           `json:"changed"`
}

// CommissionDeriver creates the single commission owed for a booking. It is
// called inside the confirm transaction.
type CommissionDeriver interface {
	Derive(ctx context.Context, booking *model.Booking, agent *model.Agent) (*model.Commission, error)
}

// TransitionListener is called once a transition that changed a booking's
// status has been committed, before its notifications go out.
type TransitionListener func(ctx context.Context, booking *model.Booking)

type Option func(*bookingService)

// WithTransitionListener registers l for every committed status change.
func WithTransitionListener(l TransitionListener) Option {
	return func(s *bookingService) {
		s.listeners = append(s.listeners, l)
	}
}

type bookingService struct {
	repo        repository.BookingRepository
	directory   directory.Directory
	commissions CommissionDeriver
	dispatcher  notify.Dispatcher
	validator   *validator.BookingValidator
	listeners   []TransitionListener
	cfg         *config.Config
}

func NewBookingService(
	repo repository.BookingRepository,
	dir directory.Directory,
	commissions CommissionDeriver,
	dispatcher notify.Dispatcher,
	validator *validator.BookingValidator,
	cfg *config.Config,
	opts ...Option,
) BookingService {
	s := &bookingService{
		repo:        repo,
		directory:   dir,
		commissions: commissions,
		dispatcher:  dispatcher,
		validator:   validator,
		cfg:         cfg,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *bookingService) transitioned(ctx context.Context, b *model.Booking) {
	for _, l := range s.listeners {
		l(ctx, b)
	}
}

func (s *bookingService) Create(ctx context.Context, actor model.Actor, intake *model.BookingIntake) (*model.Booking, error) {
	s.sanitize(intake)
	if err := s.validate(intake); err != nil {
		return nil, err
	}

	phone, ok := sanitizer.NormalizeMobile(intake.GuestPhone)
	if !ok {
		return nil, apperrors.Validation("Booking validation failed", map[string]any{"guest_phone": bookingserrors.ErrInvalidPhone.Error()})
	}
	checkIn, checkOut, err := parseStay(intake.CheckIn, intake.CheckOut)
	if err != nil {
		return nil, err
	}

	unit, err := s.lookupUnit(ctx, intake.UnitID)
	if err != nil {
		return nil, err
	}

	agentID, err := s.resolveAgent(ctx, actor, intake.AgentID)
	if err != nil {
		return nil, err
	}

	quote := pricing.Calculate(pricing.Input{
		BasePrice:             unit.BasePrice,
		BasePax:               unit.BasePax,
		ExtraPaxPrice:         unit.ExtraPaxPrice,
		CheckIn:               checkIn,
		CheckOut:              checkOut,
		Adults:                intake.Adults,
		Kids:                  intake.Kids,
		AccessibilityDiscount: intake.IsPWD,
	})

	booking := &model.Booking{
		UnitID:          unit.ID,
		GuestName:       intake.GuestName,
		GuestEmail:      intake.GuestEmail,
		GuestPhone:      phone,
		WalkInGuestName: intake.WalkInGuestName,
		AgentID:         agentID,
		CheckIn:         checkIn,
		CheckOut:        checkOut,
		Adults:          intake.Adults,
		Kids:            intake.Kids,
		Toddlers:        intake.Toddlers,
		HasVehicle:      intake.HasVehicle,
		HasPet:          intake.HasPet,
		IsPWD:           intake.IsPWD,
		Nights:          quote.Nights,
		NightlyRate:     quote.NightlyRate,
		TotalPrice:      quote.TotalPrice,
		DownPayment:     quote.DownPayment,
		Balance:         quote.Balance,
		Status:          model.BookingPending,
		PaymentStatus:   model.PaymentUnpaid,
		Events:          []model.BookingEvent{newEvent(actor, model.EventCreated, nil)},
	}

	err = s.repo.ExecuteTransaction(ctx, func(ctx context.Context) error {
		guest, err := s.directory.UpsertGuest(ctx, &model.Guest{
			Name:  intake.GuestName,
			Email: intake.GuestEmail,
			Phone: phone,
		})
		if err != nil {
			return apperrors.Internal("Failed to record guest", err)
		}
		booking.GuestID = guest.ID
		booking.ID = ""

		if err := s.repo.Create(ctx, booking); err != nil {
			return apperrors.Internal("Failed to create booking", err)
		}
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to create booking", "unit_id", intake.UnitID, "error", err)
		return nil, err
	}

	s.cfg.Log.Info("Booking created successfully",
		"id", booking.ID,
		"unit_id", booking.UnitID,
		"agent_id", booking.AgentID,
		"total_price", booking.TotalPrice,
	)

	s.dispatcher.Record(ctx, model.AuditEntry{
		ActorID:    actor.ID,
		Action:     "booking.created",
		EntityType: "booking",
		EntityID:   booking.ID,
		Details:    map[string]any{"total_price": booking.TotalPrice, "agent_id": booking.AgentID},
	})
	s.dispatcher.Publish(ctx, bookingEvent(notify.EventBookingCreated, actor, booking, nil))

	return booking, nil
}

func (s *bookingService) Quote(ctx context.Context, req *model.QuoteRequest) (*pricing.Quote, error) {
	if err := s.validator.ValidateQuote(req); err != nil {
		return nil, validationError(err)
	}

	checkIn, checkOut, err := parseStay(req.CheckIn, req.CheckOut)
	if err != nil {
		return nil, err
	}
	unit, err := s.lookupUnit(ctx, req.UnitID)
	if err != nil {
		return nil, err
	}

	quote := pricing.Calculate(pricing.Input{
		BasePrice:             unit.BasePrice,
		BasePax:               unit.BasePax,
		ExtraPaxPrice:         unit.ExtraPaxPrice,
		CheckIn:               checkIn,
		CheckOut:              checkOut,
		Adults:                req.Adults,
		Kids:                  req.Kids,
		AccessibilityDiscount: req.IsPWD,
	})
	return &quote, nil
}

func (s *bookingService) GetByID(ctx context.Context, actor model.Actor, id string) (*model.Booking, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}
	if actor.IsAnonymous() {
		return nil, apperrors.Unauthorized("Authentication required")
	}

	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapRepoError(err, id, "Failed to retrieve booking")
	}
	if err := authorizeRead(actor, booking); err != nil {
		return nil, err
	}
	return booking, nil
}

func (s *bookingService) Confirm(ctx context.Context, actor model.Actor, id string, annotation string) (*TransitionResult, error) {
	if err := authorizeTransition(actor); err != nil {
		return nil, err
	}

	var (
		result     *TransitionResult
		agent      *model.Agent
		commission *model.Commission
	)

	payload := map[string]string{}
	if annotation = sanitizer.SanitizeFreeText(annotation); annotation != "" {
		payload["annotation"] = annotation
	}

	err := s.repo.ExecuteTransaction(ctx, func(ctx context.Context) error {
		agent, commission = nil, nil

		booking, changed, err := s.repo.ApplyTransition(ctx, id, repository.Transition{
			From:          model.SourcesOf(model.BookingConfirmed),
			To:            model.BookingConfirmed,
			PaymentStatus: model.PaymentPartial,
			Event:         newEvent(actor, model.EventConfirmed, payload),
		})
		if err != nil {
			return mapRepoError(err, id, "Failed to confirm booking")
		}
		result = &TransitionResult{Booking: booking, Changed: changed}
		if !changed || booking.AgentID == "" {
			return nil
		}

		agent, err = s.directory.FindAgent(ctx, booking.AgentID)
		if err != nil {
			if errors.Is(err, directoryerrors.ErrAgentNotFound) || errors.Is(err, directoryerrors.ErrInvalidID) {
				s.cfg.Log.Warn("Credited agent no longer exists, confirming without commission",
					"booking_id", booking.ID,
					"agent_id", booking.AgentID,
				)
				agent = nil
				return nil
			}
			return apperrors.Internal("Failed to look up agent", err)
		}

		commission, err = s.commissions.Derive(ctx, booking, agent)
		return err
	})
	if err != nil {
		s.cfg.Log.Error("Failed to confirm booking", "id", id, "error", err)
		return nil, err
	}

	if !result.Changed {
		s.cfg.Log.Info("Confirm was a no-op", "id", id, "status", result.Booking.Status)
		return result, nil
	}

	s.cfg.Log.Info("Booking confirmed", "id", id, "actor_id", actor.ID, "actor_role", actor.Role)
	s.transitioned(ctx, result.Booking)
	s.afterConfirm(ctx, actor, result.Booking, agent, commission, annotation)
	return result, nil
}

func (s *bookingService) Cancel(ctx context.Context, actor model.Actor, id string, reason string) (*TransitionResult, error) {
	if err := authorizeTransition(actor); err != nil {
		return nil, err
	}

	payload := map[string]string{}
	if reason = sanitizer.SanitizeFreeText(reason); reason != "" {
		payload["reason"] = reason
	}

	booking, changed, err := s.repo.ApplyTransition(ctx, id, repository.Transition{
		From:  model.SourcesOf(model.BookingCancelled),
		To:    model.BookingCancelled,
		Event: newEvent(actor, model.EventCancelled, payload),
	})
	if err != nil {
		err = mapRepoError(err, id, "Failed to cancel booking")
		s.cfg.Log.Error("Failed to cancel booking", "id", id, "error", err)
		return nil, err
	}

	result := &TransitionResult{Booking: booking, Changed: changed}
	if !changed {
		s.cfg.Log.Info("Cancel was a no-op", "id", id, "status", booking.Status)
		return result, nil
	}

	s.cfg.Log.Info("Booking cancelled", "id", id, "actor_id", actor.ID, "reason", reason)
	s.transitioned(ctx, booking)
	s.afterCancel(ctx, actor, booking, reason)
	return result, nil
}

func (s *bookingService) Complete(ctx context.Context, actor model.Actor, id string) (*TransitionResult, error) {
	if err := authorizeTransition(actor); err != nil {
		return nil, err
	}

	booking, changed, err := s.repo.ApplyTransition(ctx, id, repository.Transition{
		From:  model.SourcesOf(model.BookingCompleted),
		To:    model.BookingCompleted,
		Event: newEvent(actor, model.EventCompleted, nil),
	})
	if err != nil {
		err = mapRepoError(err, id, "Failed to complete booking")
		s.cfg.Log.Error("Failed to complete booking", "id", id, "error", err)
		return nil, err
	}

	if changed {
		s.cfg.Log.Info("Booking completed", "id", id, "actor_id", actor.ID)
		s.transitioned(ctx, booking)
		s.dispatcher.Publish(ctx, bookingEvent(notify.EventBookingCompleted, actor, booking, nil))
	}
	return &TransitionResult{Booking: booking, Changed: changed}, nil
}

func (s *bookingService) AddPaymentProof(ctx context.Context, actor model.Actor, id string, reference string) (*model.Booking, error) {
	reference = sanitizer.SanitizeFreeText(reference)
	if reference == "" {
		return nil, apperrors.Validation("Payment proof reference is required", map[string]any{"reference": "reference is required"})
	}

	booking, err := s.GetByID(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if booking.Status == model.BookingCancelled {
		return nil, apperrors.InvalidState("booking", string(booking.Status), "attach payment proof to")
	}

	event := newEvent(actor, model.EventPaymentProof, map[string]string{"reference": reference})
	if err := s.repo.AppendEvent(ctx, id, event); err != nil {
		return nil, mapRepoError(err, id, "Failed to record payment proof")
	}

	s.cfg.Log.Info("Payment proof recorded", "id", id, "actor_id", actor.ID)
	s.dispatcher.Record(ctx, model.AuditEntry{
		ActorID:    actor.ID,
		Action:     "booking.payment_proof",
		EntityType: "booking",
		EntityID:   id,
		Details:    map[string]any{"reference": reference},
	})

	booking.Events = append(booking.Events, event)
	return booking, nil
}

func (s *bookingService) AttachCheckoutSession(ctx context.Context, actor model.Actor, id string, sessionID string) (*model.Booking, error) {
	sessionID = sanitizer.TrimAndNormalize(sessionID)
	if sessionID == "" {
		return nil, apperrors.Validation("Checkout session ID is required", map[string]any{"checkout_session_id": "checkout_session_id is required"})
	}

	existing, err := s.GetByID(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	event := newEvent(actor, model.EventCheckoutSession, map[string]string{"checkout_session_id": sessionID})
	booking, changed, err := s.repo.SetCheckoutSession(ctx, existing.ID, sessionID, event)
	if err != nil {
		return nil, mapRepoError(err, id, "Failed to attach checkout session")
	}
	if !changed {
		return nil, apperrors.InvalidState("booking", string(booking.Status), "attach checkout session to")
	}

	s.cfg.Log.Info("Checkout session attached", "id", id, "checkout_session_id", sessionID)
	return booking, nil
}

// --- Side effects ---

func (s *bookingService) afterConfirm(ctx context.Context, actor model.Actor, b *model.Booking, agent *model.Agent, commission *model.Commission, annotation string) {
	unitName := s.unitName(ctx, b.UnitID)

	if agent != nil && commission != nil {
		s.dispatcher.Notify(ctx, model.Notification{
			UserID:   agent.ID,
			Title:    "Booking confirmed",
			Message:  fmt.Sprintf("%s's stay at %s is confirmed. Commission of %s is pending approval.", b.DisplayGuestName(), unitName, notify.FormatPeso(commission.Amount)),
			Link:     s.link("/agent/commissions"),
			Severity: model.SeveritySuccess,
		})
	}

	s.dispatcher.SendBookingConfirmation(ctx, notify.ConfirmationMessage{
		BookingID:  b.ID,
		GuestName:  b.GuestName,
		GuestEmail: b.GuestEmail,
		UnitName:   unitName,
		CheckIn:    b.CheckIn,
		CheckOut:   b.CheckOut,
		TotalPrice: b.TotalPrice,
		Balance:    b.Balance,
	})

	details := map[string]any{"annotation": annotation}
	if commission != nil {
		details["commission_id"] = commission.ID
		details["commission_amount"] = commission.Amount
	}
	s.dispatcher.Record(ctx, model.AuditEntry{
		ActorID:    actor.ID,
		Action:     "booking.confirmed",
		EntityType: "booking",
		EntityID:   b.ID,
		Details:    details,
	})

	s.dispatcher.Publish(ctx, bookingEvent(notify.EventBookingConfirmed, actor, b, map[string]any{"annotation": annotation}))
	if commission != nil {
		s.dispatcher.Publish(ctx, notify.Event{
			Type:        notify.EventCommissionCreated,
			AggregateID: commission.ID,
			ActorID:     actor.ID,
			ActorRole:   actor.Role,
			Data: map[string]any{
				"booking_id": b.ID,
				"agent_id":   commission.AgentID,
				"amount":     commission.Amount,
			},
		})
	}
}

func (s *bookingService) afterCancel(ctx context.Context, actor model.Actor, b *model.Booking, reason string) {
	unitName := s.unitName(ctx, b.UnitID)

	if b.AgentID != "" {
		s.dispatcher.Notify(ctx, model.Notification{
			UserID:   b.AgentID,
			Title:    "Booking cancelled",
			Message:  fmt.Sprintf("%s's stay at %s was cancelled.", b.DisplayGuestName(), unitName),
			Link:     s.link("/agent/bookings"),
			Severity: model.SeverityWarning,
		})
	}

	s.dispatcher.SendBookingCancellation(ctx, notify.CancellationMessage{
		BookingID:  b.ID,
		GuestName:  b.GuestName,
		GuestEmail: b.GuestEmail,
		UnitName:   unitName,
		CheckIn:    b.CheckIn,
		CheckOut:   b.CheckOut,
		Reason:     reason,
	})

	s.dispatcher.Record(ctx, model.AuditEntry{
		ActorID:    actor.ID,
		Action:     "booking.cancelled",
		EntityType: "booking",
		EntityID:   b.ID,
		Details:    map[string]any{"reason": reason},
	})

	s.dispatcher.Publish(ctx, bookingEvent(notify.EventBookingCancelled, actor, b, map[string]any{"reason": reason}))
}

func (s *bookingService) unitName(ctx context.Context, unitID string) string {
	unit, err := s.directory.FindUnit(ctx, unitID)
	if err != nil {
		s.cfg.Log.Warn("Failed to resolve unit name", "unit_id", unitID, "error", err)
		return "your unit"
	}
	return unit.Name
}

func (s *bookingService) link(path string) string {
	return s.cfg.PublicBaseURL + path
}

// --- Helpers ---

func (s *bookingService) sanitize(in *model.BookingIntake) {
	in.UnitID = sanitizer.TrimAndNormalize(in.UnitID)
	in.AgentID = sanitizer.TrimAndNormalize(in.AgentID)
	in.GuestName = sanitizer.NormalizeName(in.GuestName)
	in.GuestEmail = sanitizer.NormalizeEmail(in.GuestEmail)
	in.WalkInGuestName = sanitizer.NormalizeName(in.WalkInGuestName)
	in.GuestPhone = sanitizer.TrimAndNormalize(in.GuestPhone)
}

func (s *bookingService) validate(in *model.BookingIntake) error {
	if err := s.validator.Validate(in); err != nil {
		s.cfg.Log.Warn("Booking validation failed", "error", err)
		return validationError(err)
	}
	return nil
}

func (s *bookingService) lookupUnit(ctx context.Context, unitID string) (*model.Unit, error) {
	unit, err := s.directory.FindUnit(ctx, unitID)
	if err != nil {
		if errors.Is(err, directoryerrors.ErrUnitNotFound) || errors.Is(err, directoryerrors.ErrInvalidID) {
			return nil, apperrors.Validation("Booking validation failed", map[string]any{"unit_id": bookingserrors.ErrUnknownUnit.Error()})
		}
		return nil, apperrors.Internal("Failed to look up unit", err)
	}
	return unit, nil
}

// resolveAgent returns the agent credited for a new booking. An agent creating
// a booking without naming one is credited automatically.
func (s *bookingService) resolveAgent(ctx context.Context, actor model.Actor, requested string) (string, error) {
	if requested == "" && actor.HasRole(model.RoleAgent) {
		requested = actor.ID
	}
	if requested == "" {
		return "", nil
	}

	if _, err := s.directory.FindAgent(ctx, requested); err != nil {
		if errors.Is(err, directoryerrors.ErrAgentNotFound) || errors.Is(err, directoryerrors.ErrInvalidID) {
			return "", apperrors.Validation("Booking validation failed", map[string]any{"agent_id": bookingserrors.ErrUnknownAgent.Error()})
		}
		return "", apperrors.Internal("Failed to look up agent", err)
	}
	return requested, nil
}

func parseStay(checkIn, checkOut string) (time.Time, time.Time, error) {
	in, err := time.Parse(dateLayout, checkIn)
	if err != nil {
		return time.Time{}, time.Time{}, apperrors.Validation("Booking validation failed", map[string]any{"check_in": "check_in must be a date in YYYY-MM-DD format"})
	}
	out, err := time.Parse(dateLayout, checkOut)
	if err != nil {
		return time.Time{}, time.Time{}, apperrors.Validation("Booking validation failed", map[string]any{"check_out": "check_out must be a date in YYYY-MM-DD format"})
	}
	return in, out, nil
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return apperrors.Validation("Booking validation failed", verrs.Details())
	}
	return apperrors.Validation("Booking validation failed", map[string]any{"error": err.Error()})
}

func mapRepoError(err error, id string, message string) error {
	switch {
	case apperrors.IsAppError(err):
		return err
	case errors.Is(err, bookingserrors.ErrNotFound):
		return apperrors.NotFoundWithID("Booking", id)
	case errors.Is(err, bookingserrors.ErrInvalidID):
		return apperrors.InvalidInput("Invalid booking ID format")
	default:
		return apperrors.Internal(message, err)
	}
}

func authorizeTransition(actor model.Actor) error {
	if actor.IsAnonymous() {
		return apperrors.Unauthorized("Authentication required")
	}
	if !actor.HasRole(model.RoleAdmin, model.RoleAgent, model.RoleSystem) {
		return apperrors.Forbidden("Only staff may change a booking's status")
	}
	return nil
}

func authorizeRead(actor model.Actor, b *model.Booking) error {
	if actor.HasRole(model.RoleAdmin, model.RoleAgent, model.RoleSystem) {
		return nil
	}
	if actor.Role == model.RoleGuest && actor.ID == b.GuestID {
		return nil
	}
	return apperrors.Forbidden("You do not have access to this booking")
}

func newEvent(actor model.Actor, kind model.BookingEventKind, payload map[string]string) model.BookingEvent {
	if len(payload) == 0 {
		payload = nil
	}
	return model.BookingEvent{
		ID:        uuid.NewString(),
		Kind:      kind,
		ActorID:   actor.ID,
		ActorRole: actor.Role,
		Payload:   payload,
	}
}

func bookingEvent(eventType string, actor model.Actor, b *model.Booking, extra map[string]any) notify.Event {
	data := map[string]any{
		"status":         b.Status,
		"payment_status": b.PaymentStatus,
		"unit_id":        b.UnitID,
		"total_price":    b.TotalPrice,
	}
	if b.AgentID != "" {
		data["agent_id"] = b.AgentID
	}
	for k, v := range extra {
		data[k] = v
	}
	return notify.Event{
		Type:        eventType,
		AggregateID: b.ID,
		ActorID:     actor.ID,
		ActorRole:   actor.Role,
		Data:        data,
	}
}
