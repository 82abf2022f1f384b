package notify

import (
	"context"
	"time"

	"staybook/pkg/config"
	"staybook/pkg/logger"
	"staybook/pkg/model"
)

// Dispatcher fans out the side effects of a committed transition. None of its
// methods report failure: delivery problems are logged and dropped so they can
// never undo the state change that triggered them.
type Dispatcher interface {
	Notify(ctx context.Context, n model.Notification)
	Record(ctx context.Context, entry model.AuditEntry)
	SendBookingConfirmation(ctx context.Context, msg ConfirmationMessage)
	SendBookingCancellation(ctx context.Context, msg CancellationMessage)
	Publish(ctx context.Context, event Event)
}

type NotificationStore interface {
	InsertNotification(ctx context.Context, n *model.Notification) error
}

type AuditStore interface {
	InsertAudit(ctx context.Context, entry *model.AuditEntry) error
}

type Mailer interface {
	Send(ctx context.Context, mail Mail) error
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

type Sink struct {
	notifications NotificationStore
	audit         AuditStore
	mailer        Mailer
	publisher     Publisher
	log           *logger.Logger
	timeout       time.Duration
	now           func() time.Time
}

func NewSink(cfg *config.Config, notifications NotificationStore, audit AuditStore, mailer Mailer, publisher Publisher) *Sink {
	return &Sink{
		notifications: notifications,
		audit:         audit,
		mailer:        mailer,
		publisher:     publisher,
		log:           cfg.Log.Component("notify"),
		timeout:       cfg.NotificationTimeout,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Detach returns a context that survives the caller's cancellation but not
// its deadline. The result expires after timeout or at the caller's deadline,
// whichever comes first.
func Detach(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	deadline := time.Now().Add(timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	return context.WithDeadline(context.WithoutCancel(ctx), deadline)
}

// run executes fn on a detached context so a client hanging up cannot abort a
// delivery, while a caller with a deadline still bounds it.
func (s *Sink) run(ctx context.Context, op string, fn func(ctx context.Context) error, attrs ...any) {
	ctx, cancel := Detach(ctx, s.timeout)
	defer cancel()

	if err := fn(ctx); err != nil {
		s.log.Warn("Side effect failed", append([]any{"op", op, "error", err}, attrs...)...)
		return
	}
	s.log.Debug("Side effect delivered", append([]any{"op", op}, attrs...)...)
}

func (s *Sink) Notify(ctx context.Context, n model.Notification) {
	if n.UserID == "" {
		return
	}
	if n.Severity == "" {
		n.Severity = model.SeverityInfo
	}
	n.CreatedAt = s.now()

	s.run(ctx, "notify", func(ctx context.Context) error {
		return s.notifications.InsertNotification(ctx, &n)
	}, "user_id", n.UserID, "title", n.Title)
}

func (s *Sink) Record(ctx context.Context, entry model.AuditEntry) {
	entry.CreatedAt = s.now()

	s.run(ctx, "audit", func(ctx context.Context) error {
		return s.audit.InsertAudit(ctx, &entry)
	}, "action", entry.Action, "entity_id", entry.EntityID)
}

func (s *Sink) SendBookingConfirmation(ctx context.Context, msg ConfirmationMessage) {
	if msg.GuestEmail == "" {
		return
	}
	s.run(ctx, "confirmation_mail", func(ctx context.Context) error {
		return s.mailer.Send(ctx, msg.Mail())
	}, "booking_id", msg.BookingID)
}

func (s *Sink) SendBookingCancellation(ctx context.Context, msg CancellationMessage) {
	if msg.GuestEmail == "" {
		return
	}
	s.run(ctx, "cancellation_mail", func(ctx context.Context) error {
		return s.mailer.Send(ctx, msg.Mail())
	}, "booking_id", msg.BookingID)
}

func (s *Sink) Publish(ctx context.Context, event Event) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = s.now()
	}
	s.run(ctx, "publish", func(ctx context.Context) error {
		return s.publisher.Publish(ctx, event)
	}, "event_type", event.Type, "aggregate_id", event.AggregateID)
}
