package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	bookingservice "staybook/internal/bookings/service"
	"staybook/internal/bookings/validator"
	commissionservice "staybook/internal/commissions/service"
	"staybook/internal/notify"
	"staybook/internal/testutil"
	"staybook/pkg/config"
	apperrors "staybook/pkg/errors"
	"staybook/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var admin = model.Actor{ID: "admin-1", Role: model.RoleAdmin}

type fixture struct {
	store      *testutil.Store
	dispatcher *testutil.Dispatcher
	cache      *memoryCache
	bookings   bookingservice.BookingService
	svc        PaymentService
	bookingID  string
}

type memoryCache struct {
	mu          sync.Mutex
	entries     map[string]string
	invalidated []string
}

func (c *memoryCache) Get(_ context.Context, id string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.entries[id]
	return s, ok
}

func (c *memoryCache) Set(_ context.Context, id, status string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[id] = status
}

func (c *memoryCache) Invalidate(_ context.Context, id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, id)
	c.invalidated = append(c.invalidated, id)
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWith(t, testutil.Config(), &testutil.Dispatcher{})
}

func newFixtureWith(t *testing.T, cfg *config.Config, dispatcher notify.Dispatcher) *fixture {
	t.Helper()

	store := testutil.NewStore()
	cache := &memoryCache{entries: map[string]string{}}

	unitID := store.AddUnit(model.Unit{Name: "Casa Azul", BasePrice: 400000, BasePax: 4, ExtraPaxPrice: 50000})
	agentID := store.AddAgent(model.Agent{Name: "Ana Reyes", CommissionRate: 0.1})

	commissions := commissionservice.NewCommissionService(store.Commissions(), store.Bookings(), store, dispatcher, cfg)
	bookings := bookingservice.NewBookingService(
		store.Bookings(), store, commissions, dispatcher, validator.NewBookingValidator(cfg.Log), cfg,
		bookingservice.WithTransitionListener(InvalidateOnTransition(cache)),
	)

	bookingID := store.PutBooking(model.Booking{
		UnitID:            unitID,
		AgentID:           agentID,
		GuestName:         "Juan Dela Cruz",
		GuestPhone:        "+639171234567",
		GuestEmail:        "juan@example.com",
		Status:            model.BookingPending,
		PaymentStatus:     model.PaymentUnpaid,
		TotalPrice:        800000,
		CheckoutSessionID: "cs_live_123",
	})

	recorder, _ := dispatcher.(*testutil.Dispatcher)
	return &fixture{
		store:      store,
		dispatcher: recorder,
		cache:      cache,
		bookings:   bookings,
		svc:        NewPaymentService(bookings, store.Bookings(), cache, cfg),
		bookingID:  bookingID,
	}
}

func paidEvent(sessionID, bookingID string) []byte {
	metadata := `{}`
	if bookingID != "" {
		metadata = fmt.Sprintf(`{"booking_id":%q}`, bookingID)
	}
	return []byte(fmt.Sprintf(`{"data":{"id":"evt_1","attributes":{"type":"checkout_session.payment.paid","data":{"id":%q,"attributes":{"metadata":%s}}}}}`, sessionID, metadata))
}

func TestHandleWebhook_ConfirmsOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	result, err := f.svc.HandleWebhook(ctx, paidEvent("cs_live_123", f.bookingID))
	require.NoError(t, err)
	assert.Equal(t, OutcomeConfirmed, result.Outcome)
	assert.Equal(t, f.bookingID, result.BookingID)

	b := f.store.Booking(f.bookingID)
	assert.Equal(t, model.BookingConfirmed, b.Status)
	assert.Equal(t, model.PaymentPartial, b.PaymentStatus)
	last := b.Events[len(b.Events)-1]
	assert.Equal(t, model.EventConfirmed, last.Kind)
	assert.Equal(t, model.RoleSystem, last.ActorRole)
	assert.Contains(t, last.Payload["annotation"], "cs_live_123")

	replay, err := f.svc.HandleWebhook(ctx, paidEvent("cs_live_123", f.bookingID))
	require.NoError(t, err)
	assert.Equal(t, OutcomeNoOp, replay.Outcome)
	assert.Len(t, f.store.CommissionsFor(f.bookingID), 1)
	assert.Len(t, f.dispatcher.Events(notify.EventBookingConfirmed), 1)
	assert.Equal(t, []string{f.bookingID}, f.cache.invalidated)
}

func TestHandleWebhook_FallsBackToCheckoutSession(t *testing.T) {
	f := newFixture(t)

	result, err := f.svc.HandleWebhook(context.Background(), paidEvent("cs_live_123", ""))

	require.NoError(t, err)
	assert.Equal(t, OutcomeConfirmed, result.Outcome)
	assert.Equal(t, f.bookingID, result.BookingID)
	assert.Equal(t, model.BookingConfirmed, f.store.Booking(f.bookingID).Status)
}

func TestHandleWebhook_AcknowledgedWithoutChange(t *testing.T) {
	tests := []struct {
		name string
		body []byte
	}{
		{"other event type", []byte(`{"data":{"attributes":{"type":"payment.failed"}}}`)},
		{"no correlation", paidEvent("", "")},
		{"unknown session", paidEvent("cs_unknown", "")},
		{"unknown booking", paidEvent("cs_live_123", "665f1c2e9b1d4a0012345678")},
		{"malformed booking id", paidEvent("cs_live_123", "not-an-id")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			result, err := f.svc.HandleWebhook(context.Background(), tt.body)

			require.NoError(t, err)
			assert.True(t, result.Received)
			assert.Equal(t, model.BookingPending, f.store.Booking(f.bookingID).Status)
			assert.Empty(t, f.dispatcher.Events(""))
		})
	}
}

func TestHandleWebhook_MalformedBody(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.HandleWebhook(context.Background(), []byte(`{"data":`))

	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeBadRequest))
}

func TestHandleWebhook_DeadlineIsAcknowledged(t *testing.T) {
	f := newFixture(t)
	cfg := testutil.Config()
	cfg.WebhookProcessingTimeout = 20 * time.Millisecond
	f.svc.(*paymentService).cfg = cfg

	f.store.TransitionHook = func(ctx context.Context, id string, to model.BookingStatus) error {
		<-ctx.Done()
		return ctx.Err()
	}

	result, err := f.svc.HandleWebhook(context.Background(), paidEvent("cs_live_123", f.bookingID))

	require.NoError(t, err)
	assert.Equal(t, OutcomeDeferred, result.Outcome)
	assert.Equal(t, model.BookingPending, f.store.Booking(f.bookingID).Status)
}

func TestHandleWebhook_UnexpectedErrorIsReturned(t *testing.T) {
	f := newFixture(t)
	f.store.TransitionHook = func(ctx context.Context, id string, to model.BookingStatus) error {
		return assert.AnError
	}

	_, err := f.svc.HandleWebhook(context.Background(), paidEvent("cs_live_123", f.bookingID))

	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInternal))
}

func TestStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	status, err := f.svc.Status(ctx, f.bookingID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, status.Status)

	_, err = f.svc.HandleWebhook(ctx, paidEvent("cs_live_123", f.bookingID))
	require.NoError(t, err)

	status, err = f.svc.Status(ctx, f.bookingID)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, status.Status)

	completed := f.store.PutBooking(model.Booking{Status: model.BookingCompleted})
	status, err = f.svc.Status(ctx, completed)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, status.Status)

	cancelled := f.store.PutBooking(model.Booking{Status: model.BookingCancelled})
	status, err = f.svc.Status(ctx, cancelled)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, status.Status)

	_, err = f.svc.Status(ctx, "665f1c2e9b1d4a0012345678")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

func TestStatus_PendingIsNotCached(t *testing.T) {
	f := newFixture(t)

	status, err := f.svc.Status(context.Background(), f.bookingID)

	require.NoError(t, err)
	assert.Equal(t, StatusPending, status.Status)
	_, cached := f.cache.Get(context.Background(), f.bookingID)
	assert.False(t, cached)
}

func TestStatus_FollowsManualTransitions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	status, err := f.svc.Status(ctx, f.bookingID)
	require.NoError(t, err)
	require.Equal(t, StatusPending, status.Status)

	confirmed, err := f.bookings.Confirm(ctx, admin, f.bookingID, "paid at front desk")
	require.NoError(t, err)
	require.True(t, confirmed.Changed)

	status, err = f.svc.Status(ctx, f.bookingID)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, status.Status)
	cachedStatus, cached := f.cache.Get(ctx, f.bookingID)
	require.True(t, cached)
	assert.Equal(t, StatusConfirmed, cachedStatus)

	cancelled, err := f.bookings.Cancel(ctx, admin, f.bookingID, "guest withdrew")
	require.NoError(t, err)
	require.True(t, cancelled.Changed)

	status, err = f.svc.Status(ctx, f.bookingID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, status.Status)
	assert.Equal(t, []string{f.bookingID, f.bookingID}, f.cache.invalidated)
}

type blockingMailer struct{}

func (blockingMailer) Send(ctx context.Context, _ notify.Mail) error {
	<-ctx.Done()
	return ctx.Err()
}

type discardStore struct{}

func (discardStore) InsertNotification(context.Context, *model.Notification) error { return nil }
func (discardStore) InsertAudit(context.Context, *model.AuditEntry) error          { return nil }

func TestHandleWebhook_SideEffectsBoundedByProcessingTimeout(t *testing.T) {
	cfg := testutil.Config()
	cfg.WebhookProcessingTimeout = 100 * time.Millisecond
	cfg.NotificationTimeout = 2 * time.Second
	sink := notify.NewSink(cfg, discardStore{}, discardStore{}, blockingMailer{}, notify.NopPublisher{})
	f := newFixtureWith(t, cfg, sink)

	start := time.Now()
	result, err := f.svc.HandleWebhook(context.Background(), paidEvent("cs_live_123", f.bookingID))
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Equal(t, OutcomeConfirmed, result.Outcome)
	assert.Equal(t, model.BookingConfirmed, f.store.Booking(f.bookingID).Status)
	assert.Less(t, elapsed, time.Second)
}

func TestStatus_ServedFromCache(t *testing.T) {
	f := newFixture(t)
	f.cache.entries[f.bookingID] = StatusConfirmed

	status, err := f.svc.Status(context.Background(), f.bookingID)

	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, status.Status)
}
