package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	bookingserrors "staybook/internal/bookings/errors"
	bookings "staybook/internal/bookings/repository"
	commissionserrors "staybook/internal/commissions/errors"
	"staybook/internal/commissions/repository"
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

type CommissionService interface {
	// Derive creates the commission for a confirmed booking. It must run inside
	// the caller's transaction and refuses a second commission for the booking.
	Derive(ctx context.Context, booking *model.Booking, agent *model.Agent) (*model.Commission, error)
	MarkPaid(ctx context.Context, actor model.Actor, id string) (*model.Commission, error)
	Reject(ctx context.Context, actor model.Actor, id string) (*model.Commission, error)
	SearchOrphans(ctx context.Context, actor model.Actor, guestName string) ([]*OrphanBooking, error)
	Claim(ctx context.Context, actor model.Actor, bookingID string) (*ClaimResult, error)
	List(ctx context.Context, actor model.Actor, limit int, offset int64) ([]*model.Commission, int64, error)
}

// OrphanBooking is the part of an unattributed booking an agent may see
// before claiming it. Guest contact details are withheld.
type OrphanBooking struct {
	ID         string              `json:"id"`
	GuestName  string              `json:"guest_name"`
	UnitID     string              `json:"unit_id"`
	CheckIn    time.Time           `json:"check_in"`
	CheckOut   time.Time           `json:"check_out"`
	Status     model.BookingStatus `json:"status"`
	TotalPrice int64               `json:"total_price"`
	CreatedAt  time.Time           `json:"created_at"`
}

// ClaimResult is the booking after a claim and, for a booking that is
// already CONFIRMED or COMPLETED, the commission derived at the agent's
// current rate.
type ClaimResult struct {
	Booking *model.Booking `json:"booking"`
	// Commission is nil when the booking is still PENDING. It is derived on
	// confirm, at the agent's rate as of that moment rather than the claim.
	Commission *model.Commission `json:"commission,omitempty"`
}

type commissionService struct {
	repo       repository.CommissionRepository
	bookings   bookings.BookingRepository
	agents     directory.AgentDirectory
	dispatcher notify.Dispatcher
	cfg        *config.Config
	now        func() time.Time
}

func NewCommissionService(
	repo repository.CommissionRepository,
	bookingRepo bookings.BookingRepository,
	agents directory.AgentDirectory,
	dispatcher notify.Dispatcher,
	cfg *config.Config,
) CommissionService {
	return &commissionService{
		repo:       repo,
		bookings:   bookingRepo,
		agents:     agents,
		dispatcher: dispatcher,
		cfg:        cfg,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *commissionService) Derive(ctx context.Context, booking *model.Booking, agent *model.Agent) (*model.Commission, error) {
	if booking.Status != model.BookingConfirmed && booking.Status != model.BookingCompleted {
		return nil, apperrors.InvalidState("booking", string(booking.Status), "derive a commission for")
	}
	if agent.CommissionRate < 0 || agent.CommissionRate > 1 {
		return nil, apperrors.Internal("Agent commission rate is out of range",
			fmt.Errorf("agent %s has rate %v", agent.ID, agent.CommissionRate))
	}

	_, err := s.repo.FindByBookingID(ctx, booking.ID)
	switch {
	case err == nil:
		return nil, apperrors.Conflict("A commission already exists for this booking")
	case !errors.Is(err, commissionserrors.ErrNotFound):
		return nil, apperrors.Internal("Failed to check existing commission", err)
	}

	commission := &model.Commission{
		BookingID: booking.ID,
		AgentID:   agent.ID,
		Amount:    pricing.ApplyRate(booking.TotalPrice, agent.CommissionRate),
		Rate:      agent.CommissionRate,
		Status:    model.CommissionPending,
	}
	if err := s.repo.Create(ctx, commission); err != nil {
		if errors.Is(err, commissionserrors.ErrAlreadyExists) {
			return nil, apperrors.Conflict("A commission already exists for this booking")
		}
		return nil, apperrors.Internal("Failed to create commission", err)
	}

	s.cfg.Log.Info("Commission derived",
		"id", commission.ID,
		"booking_id", booking.ID,
		"agent_id", agent.ID,
		"amount", commission.Amount,
	)
	return commission, nil
}

func (s *commissionService) MarkPaid(ctx context.Context, actor model.Actor, id string) (*model.Commission, error) {
	paidAt := s.now().Truncate(time.Millisecond)
	commission, err := s.settle(ctx, actor, id, model.CommissionPaidOut, &paidAt, "pay out")
	if err != nil {
		return nil, err
	}

	s.dispatcher.Notify(ctx, model.Notification{
		UserID:   commission.AgentID,
		Title:    "Commission paid out",
		Message:  fmt.Sprintf("Your commission of %s has been paid out.", notify.FormatPeso(commission.Amount)),
		Link:     s.cfg.PublicBaseURL + "/agent/commissions",
		Severity: model.SeveritySuccess,
	})
	s.afterSettle(ctx, actor, commission, "commission.paid_out", notify.EventCommissionPaidOut)
	return commission, nil
}

func (s *commissionService) Reject(ctx context.Context, actor model.Actor, id string) (*model.Commission, error) {
	commission, err := s.settle(ctx, actor, id, model.CommissionRejected, nil, "reject")
	if err != nil {
		return nil, err
	}

	s.dispatcher.Notify(ctx, model.Notification{
		UserID:   commission.AgentID,
		Title:    "Commission rejected",
		Message:  fmt.Sprintf("Your commission of %s was rejected.", notify.FormatPeso(commission.Amount)),
		Link:     s.cfg.PublicBaseURL + "/agent/commissions",
		Severity: model.SeverityWarning,
	})
	s.afterSettle(ctx, actor, commission, "commission.rejected", notify.EventCommissionRejected)
	return commission, nil
}

// settle moves a PENDING commission to a final status. Any other current
// status is an invalid-state error, never a silent success.
func (s *commissionService) settle(ctx context.Context, actor model.Actor, id string, to model.CommissionStatus, paidAt *time.Time, operation string) (*model.Commission, error) {
	if err := authorize(actor, model.RoleAdmin); err != nil {
		return nil, err
	}
	if id == "" {
		return nil, apperrors.InvalidInput("Commission ID cannot be empty")
	}

	commission, changed, err := s.repo.TransitionStatus(ctx, id, model.CommissionPending, to, paidAt)
	if err != nil {
		switch {
		case errors.Is(err, commissionserrors.ErrNotFound):
			return nil, apperrors.NotFoundWithID("Commission", id)
		case errors.Is(err, commissionserrors.ErrInvalidID):
			return nil, apperrors.InvalidInput("Invalid commission ID format")
		default:
			s.cfg.Log.Error("Failed to update commission", "id", id, "to", to, "error", err)
			return nil, apperrors.Internal("Failed to update commission", err)
		}
	}
	if !changed {
		s.cfg.Log.Warn("Refused commission transition",
			"id", id,
			"current", commission.Status,
			"operation", operation,
			"actor_id", actor.ID,
		)
		return nil, apperrors.InvalidState("commission", string(commission.Status), operation)
	}

	s.cfg.Log.Info("Commission settled", "id", id, "status", to, "actor_id", actor.ID)
	return commission, nil
}

func (s *commissionService) afterSettle(ctx context.Context, actor model.Actor, c *model.Commission, action string, eventType string) {
	s.dispatcher.Record(ctx, model.AuditEntry{
		ActorID:    actor.ID,
		Action:     action,
		EntityType: "commission",
		EntityID:   c.ID,
		Details: map[string]any{
			"booking_id": c.BookingID,
			"agent_id":   c.AgentID,
			"amount":     c.Amount,
		},
	})
	s.dispatcher.Publish(ctx, commissionEvent(eventType, actor, c))
}

func (s *commissionService) SearchOrphans(ctx context.Context, actor model.Actor, guestName string) ([]*OrphanBooking, error) {
	if err := authorize(actor, model.RoleAgent); err != nil {
		return nil, err
	}

	pattern := sanitizer.NameSearchPattern(guestName)
	if pattern == "" {
		return nil, apperrors.Validation("Invalid search", map[string]any{"guest_name": "guest_name must be at least 2 characters"})
	}

	found, err := s.bookings.SearchOrphans(ctx, pattern, s.claimCutoff(), s.cfg.OrphanSearchLimit)
	if err != nil {
		s.cfg.Log.Error("Failed to search orphan bookings", "error", err)
		return nil, apperrors.Internal("Failed to search bookings", err)
	}

	orphans := make([]*OrphanBooking, 0, len(found))
	for _, b := range found {
		orphans = append(orphans, &OrphanBooking{
			ID:         b.ID,
			GuestName:  b.DisplayGuestName(),
			UnitID:     b.UnitID,
			CheckIn:    b.CheckIn,
			CheckOut:   b.CheckOut,
			Status:     b.Status,
			TotalPrice: b.TotalPrice,
			CreatedAt:  b.CreatedAt,
		})
	}

	s.cfg.Log.Debug("Orphan search completed", "agent_id", actor.ID, "count", len(orphans))
	return orphans, nil
}

func (s *commissionService) Claim(ctx context.Context, actor model.Actor, bookingID string) (*ClaimResult, error) {
	if err := authorize(actor, model.RoleAgent); err != nil {
		return nil, err
	}
	if bookingID == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}

	agent, err := s.agents.FindAgent(ctx, actor.ID)
	if err != nil {
		if errors.Is(err, directoryerrors.ErrAgentNotFound) || errors.Is(err, directoryerrors.ErrInvalidID) {
			return nil, apperrors.Forbidden("No agent profile exists for this account")
		}
		return nil, apperrors.Internal("Failed to look up agent", err)
	}

	cutoff := s.claimCutoff()
	var result *ClaimResult

	err = s.bookings.ExecuteTransaction(ctx, func(ctx context.Context) error {
		result = nil

		current, err := s.bookings.FindByID(ctx, bookingID)
		if err != nil {
			return mapBookingError(err, bookingID)
		}
		if err := claimable(current, cutoff); err != nil {
			return err
		}

		_, err = s.repo.FindByBookingID(ctx, bookingID)
		switch {
		case err == nil:
			return apperrors.Conflict("This booking already has a commission")
		case !errors.Is(err, commissionserrors.ErrNotFound):
			return apperrors.Internal("Failed to check existing commission", err)
		}

		event := model.BookingEvent{
			ID:        uuid.NewString(),
			Kind:      model.EventAgentClaimed,
			ActorID:   actor.ID,
			ActorRole: actor.Role,
		}
		claimed, err := s.bookings.AssignAgent(ctx, bookingID, agent.ID, cutoff, event)
		if err != nil {
			if errors.Is(err, bookingserrors.ErrNotApplied) {
				return apperrors.Conflict("This booking can no longer be claimed")
			}
			return mapBookingError(err, bookingID)
		}
		result = &ClaimResult{Booking: claimed}

		if claimed.Status == model.BookingPending {
			return nil
		}
		result.Commission, err = s.Derive(ctx, claimed, agent)
		return err
	})
	if err != nil {
		s.cfg.Log.Warn("Claim refused", "booking_id", bookingID, "agent_id", agent.ID, "error", err)
		return nil, err
	}

	s.cfg.Log.Info("Booking claimed", "booking_id", bookingID, "agent_id", agent.ID, "status", result.Booking.Status)

	s.dispatcher.Record(ctx, model.AuditEntry{
		ActorID:    actor.ID,
		Action:     "commission.claimed",
		EntityType: "booking",
		EntityID:   bookingID,
		Details:    map[string]any{"agent_id": agent.ID, "status": result.Booking.Status},
	})
	s.dispatcher.Publish(ctx, notify.Event{
		Type:        notify.EventCommissionClaimed,
		AggregateID: bookingID,
		ActorID:     actor.ID,
		ActorRole:   actor.Role,
		Data:        map[string]any{"agent_id": agent.ID},
	})
	if result.Commission != nil {
		s.dispatcher.Publish(ctx, commissionEvent(notify.EventCommissionCreated, actor, result.Commission))
	}
	return result, nil
}

func (s *commissionService) List(ctx context.Context, actor model.Actor, limit int, offset int64) ([]*model.Commission, int64, error) {
	if err := authorize(actor, model.RoleAdmin, model.RoleAgent); err != nil {
		return nil, 0, err
	}

	agentID := actor.ID
	if actor.Role == model.RoleAdmin {
		agentID = ""
	}

	var count int64
	var commissions []*model.Commission
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.repo.CountByAgent(ctx, agentID)
		if errCount != nil {
			s.cfg.Log.Error("Failed to count commissions", "agent_id", agentID, "error", errCount)
			errCount = apperrors.Internal("Failed to count commissions", errCount)
		}
	}()

	go func() {
		defer wg.Done()
		commissions, errFind = s.repo.FindByAgent(ctx, agentID, limit, offset)
		if errFind != nil {
			s.cfg.Log.Error("Failed to list commissions", "agent_id", agentID, "error", errFind)
			errFind = apperrors.Internal("Failed to retrieve commissions", errFind)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	return commissions, count, nil
}

func (s *commissionService) claimCutoff() time.Time {
	return s.now().Add(-s.cfg.ClaimWindow)
}

func claimable(b *model.Booking, cutoff time.Time) error {
	if b.AgentID != "" {
		return apperrors.Conflict("This booking is already credited to an agent")
	}
	if b.Status == model.BookingCancelled {
		return apperrors.InvalidState("booking", string(b.Status), "claim")
	}
	if b.CreatedAt.Before(cutoff) {
		return apperrors.New(apperrors.CodeInvalidState, "This booking is outside the claim window", http.StatusConflict).
			WithDetails(map[string]any{"resource": "booking", "created_at": b.CreatedAt, "operation": "claim"})
	}
	return nil
}

func authorize(actor model.Actor, roles ...model.Role) error {
	if actor.IsAnonymous() {
		return apperrors.Unauthorized("Authentication required")
	}
	if !actor.HasRole(roles...) {
		return apperrors.Forbidden("You are not allowed to perform this action")
	}
	return nil
}

func mapBookingError(err error, id string) error {
	switch {
	case apperrors.IsAppError(err):
		return err
	case errors.Is(err, bookingserrors.ErrNotFound):
		return apperrors.NotFoundWithID("Booking", id)
	case errors.Is(err, bookingserrors.ErrInvalidID):
		return apperrors.InvalidInput("Invalid booking ID format")
	default:
		return apperrors.Internal("Failed to load booking", err)
	}
}

func commissionEvent(eventType string, actor model.Actor, c *model.Commission) notify.Event {
	return notify.Event{
		Type:        eventType,
		AggregateID: c.ID,
		ActorID:     actor.ID,
		ActorRole:   actor.Role,
		Data: map[string]any{
			"booking_id": c.BookingID,
			"agent_id":   c.AgentID,
			"amount":     c.Amount,
			"status":     c.Status,
		},
	}
}
