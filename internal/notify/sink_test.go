package notify

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"staybook/pkg/config"
	"staybook/pkg/logger"
	"staybook/pkg/model"
)

type fakeStore struct {
	mu            sync.Mutex
	notifications []model.Notification
	audit         []model.AuditEntry
	err           error
}

func (f *fakeStore) InsertNotification(_ context.Context, n *model.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.notifications = append(f.notifications, *n)
	return nil
}

func (f *fakeStore) InsertAudit(_ context.Context, e *model.AuditEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.audit = append(f.audit, *e)
	return nil
}

type fakeMailer struct {
	sendFunc func(ctx context.Context, mail Mail) error
	sent     []Mail
}

func (f *fakeMailer) Send(ctx context.Context, mail Mail) error {
	if f.sendFunc != nil {
		if err := f.sendFunc(ctx, mail); err != nil {
			return err
		}
	}
	f.sent = append(f.sent, mail)
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		Log:                 logger.Discard(),
		NotificationTimeout: time.Second,
	}
}

func TestSink_ConfirmationMail(t *testing.T) {
	mailer := &fakeMailer{}
	sink := NewSink(testConfig(), &fakeStore{}, &fakeStore{}, mailer, NopPublisher{})

	sink.SendBookingConfirmation(context.Background(), ConfirmationMessage{
		BookingID:  "b1",
		GuestName:  "Juan",
		GuestEmail: "juan@example.com",
		UnitName:   "Villa Uno",
		CheckIn:    time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		CheckOut:   time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC),
		TotalPrice: 700000,
		Balance:    350000,
	})

	if len(mailer.sent) != 1 {
		t.Fatalf("expected one mail, got %d", len(mailer.sent))
	}
	body := mailer.sent[0].Body
	for _, want := range []string{"Juan", "Villa Uno", "Mar 1, 2026", "Mar 3, 2026", "₱7,000.00", "₱3,500.00"} {
		if !strings.Contains(body, want) {
			t.Errorf("mail body missing %q:\n%s", want, body)
		}
	}
}

func TestSink_SkipsGuestWithoutAddress(t *testing.T) {
	mailer := &fakeMailer{}
	sink := NewSink(testConfig(), &fakeStore{}, &fakeStore{}, mailer, NopPublisher{})

	sink.SendBookingCancellation(context.Background(), CancellationMessage{BookingID: "b1", Reason: "x"})

	if len(mailer.sent) != 0 {
		t.Errorf("expected no mail without a guest address")
	}
}

func TestSink_FailuresAreSwallowed(t *testing.T) {
	store := &fakeStore{err: errors.New("mongo down")}
	mailer := &fakeMailer{sendFunc: func(context.Context, Mail) error { return errors.New("smtp down") }}
	sink := NewSink(testConfig(), store, store, mailer, NopPublisher{})

	ctx := context.Background()
	sink.Notify(ctx, model.Notification{UserID: "agent-1", Title: "t"})
	sink.Record(ctx, model.AuditEntry{ActorID: "admin", Action: "commission.paid_out"})
	sink.SendBookingCancellation(ctx, CancellationMessage{BookingID: "b1", GuestEmail: "g@example.com"})
}

func TestSink_DetachedFromCallerCancellation(t *testing.T) {
	var sawErr error
	mailer := &fakeMailer{sendFunc: func(ctx context.Context, _ Mail) error {
		sawErr = ctx.Err()
		return nil
	}}
	sink := NewSink(testConfig(), &fakeStore{}, &fakeStore{}, mailer, NopPublisher{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sink.SendBookingConfirmation(ctx, ConfirmationMessage{BookingID: "b1", GuestEmail: "g@example.com"})

	if sawErr != nil {
		t.Errorf("side effect context should not inherit cancellation, got %v", sawErr)
	}
	if len(mailer.sent) != 1 {
		t.Errorf("expected the mail to be sent")
	}
}

func TestSink_CallerDeadlineBoundsDelivery(t *testing.T) {
	mailer := &fakeMailer{sendFunc: func(ctx context.Context, _ Mail) error {
		<-ctx.Done()
		return ctx.Err()
	}}
	cfg := testConfig()
	cfg.NotificationTimeout = 2 * time.Second
	sink := NewSink(cfg, &fakeStore{}, &fakeStore{}, mailer, NopPublisher{})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	sink.SendBookingConfirmation(ctx, ConfirmationMessage{BookingID: "b1", GuestEmail: "g@example.com"})
	sink.SendBookingCancellation(ctx, CancellationMessage{BookingID: "b1", GuestEmail: "g@example.com"})

	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("deliveries outlived the caller deadline: %s", elapsed)
	}
	if len(mailer.sent) != 0 {
		t.Errorf("expected both sends to be abandoned, got %d", len(mailer.sent))
	}
}

func TestDetach(t *testing.T) {
	tests := []struct {
		name        string
		parent      func() (context.Context, context.CancelFunc)
		timeout     time.Duration
		maxDeadline time.Duration
	}{
		{
			name:        "no caller deadline uses timeout",
			parent:      func() (context.Context, context.CancelFunc) { return context.WithCancel(context.Background()) },
			timeout:     100 * time.Millisecond,
			maxDeadline: 100 * time.Millisecond,
		},
		{
			name: "earlier caller deadline wins",
			parent: func() (context.Context, context.CancelFunc) {
				return context.WithTimeout(context.Background(), 20*time.Millisecond)
			},
			timeout:     time.Hour,
			maxDeadline: 20 * time.Millisecond,
		},
		{
			name: "later caller deadline is capped",
			parent: func() (context.Context, context.CancelFunc) {
				return context.WithTimeout(context.Background(), time.Hour)
			},
			timeout:     100 * time.Millisecond,
			maxDeadline: 100 * time.Millisecond,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parent, cancelParent := tt.parent()
			start := time.Now()
			ctx, cancel := Detach(parent, tt.timeout)
			defer cancel()

			cancelParent()
			if err := ctx.Err(); err != nil {
				t.Fatalf("detached context inherited cancellation: %v", err)
			}

			deadline, ok := ctx.Deadline()
			if !ok {
				t.Fatal("expected a deadline")
			}
			if deadline.After(start.Add(tt.maxDeadline + 10*time.Millisecond)) {
				t.Errorf("deadline %s is later than expected %s", deadline.Sub(start), tt.maxDeadline)
			}
		})
	}
}

func TestSink_NotifyDefaults(t *testing.T) {
	store := &fakeStore{}
	sink := NewSink(testConfig(), store, store, &fakeMailer{}, NopPublisher{})

	sink.Notify(context.Background(), model.Notification{UserID: "agent-1", Title: "Commission paid"})
	sink.Notify(context.Background(), model.Notification{Title: "no recipient"})

	if len(store.notifications) != 1 {
		t.Fatalf("expected one stored notification, got %d", len(store.notifications))
	}
	n := store.notifications[0]
	if n.Severity != model.SeverityInfo || n.CreatedAt.IsZero() {
		t.Errorf("expected defaults to be filled, got %+v", n)
	}
}

func TestFormatPeso(t *testing.T) {
	tests := map[int64]string{
		0:         "₱0.00",
		5:         "₱0.05",
		700000:    "₱7,000.00",
		70000050:  "₱700,000.50",
		123456789: "₱1,234,567.89",
		-150:      "-₱1.50",
	}
	for in, want := range tests {
		if got := FormatPeso(in); got != want {
			t.Errorf("FormatPeso(%d) = %q, want %q", in, got, want)
		}
	}
}
