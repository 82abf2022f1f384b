package service

import (
	"context"
	"sync"
	"testing"
	"time"

	bookingservice "staybook/internal/bookings/service"
	"staybook/internal/bookings/validator"
	"staybook/internal/notify"
	"staybook/internal/testutil"
	apperrors "staybook/pkg/errors"
	"staybook/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var admin = model.Actor{ID: "admin-1", Role: model.RoleAdmin}

type fixture struct {
	store      *testutil.Store
	dispatcher *testutil.Dispatcher
	svc        *commissionService
	agentID    string
	agent      model.Actor
	now        time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := testutil.NewStore()
	dispatcher := &testutil.Dispatcher{}
	now := time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC)
	store.Now = func() time.Time { return now }

	agentID := store.AddAgent(model.Agent{Name: "Ana Reyes", CommissionRate: 0.125})
	svc := NewCommissionService(store.Commissions(), store.Bookings(), store, dispatcher, testutil.Config()).(*commissionService)
	svc.now = func() time.Time { return now }

	return &fixture{
		store:      store,
		dispatcher: dispatcher,
		svc:        svc,
		agentID:    agentID,
		agent:      model.Actor{ID: agentID, Role: model.RoleAgent},
		now:        now,
	}
}

func (f *fixture) booking(status model.BookingStatus, guestName string, age time.Duration) string {
	return f.store.PutBooking(model.Booking{
		GuestName:     guestName,
		TotalPrice:    700001,
		Status:        status,
		PaymentStatus: model.PaymentPartial,
		CreatedAt:     f.now.Add(-age),
	})
}

func (f *fixture) pendingCommission(t *testing.T) *model.Commission {
	t.Helper()
	id := f.booking(model.BookingConfirmed, "Juan Dela Cruz", time.Hour)
	agent, err := f.store.FindAgent(context.Background(), f.agentID)
	require.NoError(t, err)
	c, err := f.svc.Derive(context.Background(), f.store.Booking(id), agent)
	require.NoError(t, err)
	return c
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, code), "expected %s, got %v", code, err)
}

func TestDerive(t *testing.T) {
	f := newFixture(t)
	c := f.pendingCommission(t)

	// round(700001 * 0.125) = round(87500.125)
	assert.Equal(t, int64(87500), c.Amount)
	assert.Equal(t, 0.125, c.Rate)
	assert.Equal(t, model.CommissionPending, c.Status)
	assert.Nil(t, c.PaidAt)
}

func TestDerive_Guards(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	agent, err := f.store.FindAgent(ctx, f.agentID)
	require.NoError(t, err)

	pending := f.store.Booking(f.booking(model.BookingPending, "Maria", time.Hour))
	_, err = f.svc.Derive(ctx, pending, agent)
	assertCode(t, err, apperrors.CodeInvalidState)

	confirmed := f.store.Booking(f.booking(model.BookingConfirmed, "Maria", time.Hour))
	_, err = f.svc.Derive(ctx, confirmed, agent)
	require.NoError(t, err)
	_, err = f.svc.Derive(ctx, confirmed, agent)
	assertCode(t, err, apperrors.CodeConflict)
	assert.Len(t, f.store.CommissionsFor(confirmed.ID), 1)

	greedy := &model.Agent{ID: f.agentID, CommissionRate: 1.5}
	other := f.store.Booking(f.booking(model.BookingConfirmed, "Pedro", time.Hour))
	_, err = f.svc.Derive(ctx, other, greedy)
	assertCode(t, err, apperrors.CodeInternal)
}

func TestMarkPaidAndReject(t *testing.T) {
	tests := []struct {
		name       string
		prepare    func(f *fixture, id string)
		act        func(f *fixture, id string) (*model.Commission, error)
		wantStatus model.CommissionStatus
		wantCode   string
	}{
		{
			name:       "pay pending",
			act:        func(f *fixture, id string) (*model.Commission, error) { return f.svc.MarkPaid(context.Background(), admin, id) },
			wantStatus: model.CommissionPaidOut,
		},
		{
			name:       "reject pending",
			act:        func(f *fixture, id string) (*model.Commission, error) { return f.svc.Reject(context.Background(), admin, id) },
			wantStatus: model.CommissionRejected,
		},
		{
			name: "pay rejected",
			prepare: func(f *fixture, id string) {
				_, _ = f.svc.Reject(context.Background(), admin, id)
			},
			act:      func(f *fixture, id string) (*model.Commission, error) { return f.svc.MarkPaid(context.Background(), admin, id) },
			wantCode: apperrors.CodeInvalidState,
		},
		{
			name: "pay twice",
			prepare: func(f *fixture, id string) {
				_, _ = f.svc.MarkPaid(context.Background(), admin, id)
			},
			act:      func(f *fixture, id string) (*model.Commission, error) { return f.svc.MarkPaid(context.Background(), admin, id) },
			wantCode: apperrors.CodeInvalidState,
		},
		{
			name: "reject paid",
			prepare: func(f *fixture, id string) {
				_, _ = f.svc.MarkPaid(context.Background(), admin, id)
			},
			act:      func(f *fixture, id string) (*model.Commission, error) { return f.svc.Reject(context.Background(), admin, id) },
			wantCode: apperrors.CodeInvalidState,
		},
		{
			name:     "agent cannot pay",
			act:      func(f *fixture, id string) (*model.Commission, error) { return f.svc.MarkPaid(context.Background(), f.agent, id) },
			wantCode: apperrors.CodeForbidden,
		},
		{
			name:     "anonymous cannot reject",
			act:      func(f *fixture, id string) (*model.Commission, error) { return f.svc.Reject(context.Background(), model.Actor{}, id) },
			wantCode: apperrors.CodeUnauthorized,
		},
		{
			name: "unknown commission",
			act: func(f *fixture, _ string) (*model.Commission, error) {
				return f.svc.MarkPaid(context.Background(), admin, "65f1c0ffee0000000000aaaa")
			},
			wantCode: apperrors.CodeNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			c := f.pendingCommission(t)
			if tt.prepare != nil {
				tt.prepare(f, c.ID)
			}
			before := len(f.dispatcher.Audits())

			got, err := tt.act(f, c.ID)
			if tt.wantCode != "" {
				assertCode(t, err, tt.wantCode)
				assert.Len(t, f.dispatcher.Audits(), before)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, got.Status)
			if tt.wantStatus == model.CommissionPaidOut {
				require.NotNil(t, got.PaidAt)
				assert.True(t, got.PaidAt.Equal(f.now))
			} else {
				assert.Nil(t, got.PaidAt)
			}

			notifications := f.dispatcher.Notifications()
			require.Len(t, notifications, 1)
			assert.Equal(t, f.agentID, notifications[0].UserID)
			assert.Len(t, f.dispatcher.Audits(), before+1)
		})
	}
}

func TestMarkPaid_ConcurrentAdminsSettleOnce(t *testing.T) {
	f := newFixture(t)
	c := f.pendingCommission(t)

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.svc.MarkPaid(context.Background(), admin, c.ID); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Len(t, f.dispatcher.Events(notify.EventCommissionPaidOut), 1)
}

func TestSearchOrphans(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	match := f.booking(model.BookingConfirmed, "Juan Dela Cruz", 2*24*time.Hour)
	f.booking(model.BookingConfirmed, "Juan Dela Cruz", 40*24*time.Hour)
	f.booking(model.BookingCancelled, "Juan Dela Cruz", time.Hour)
	f.booking(model.BookingPending, "Maria Santos", time.Hour)
	walkIn := f.store.PutBooking(model.Booking{
		GuestName:       "Front Desk",
		WalkInGuestName: "JUAN P. CRUZ",
		Status:          model.BookingPending,
		CreatedAt:       f.now.Add(-time.Hour),
	})
	f.store.PutBooking(model.Booking{
		GuestName: "Juan Dela Cruz",
		AgentID:   f.agentID,
		Status:    model.BookingConfirmed,
		CreatedAt: f.now.Add(-time.Hour),
	})

	orphans, err := f.svc.SearchOrphans(ctx, f.agent, "juan cruz")
	require.NoError(t, err)

	ids := map[string]string{}
	for _, o := range orphans {
		ids[o.ID] = o.GuestName
	}
	assert.Len(t, ids, 2)
	assert.Equal(t, "Juan Dela Cruz", ids[match])
	assert.Equal(t, "JUAN P. CRUZ", ids[walkIn])

	_, err = f.svc.SearchOrphans(ctx, f.agent, "j")
	assertCode(t, err, apperrors.CodeValidation)

	_, err = f.svc.SearchOrphans(ctx, admin, "juan")
	assertCode(t, err, apperrors.CodeForbidden)
}

func TestClaim(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("confirmed booking derives commission", func(t *testing.T) {
		id := f.booking(model.BookingConfirmed, "Juan Dela Cruz", 24*time.Hour)

		res, err := f.svc.Claim(ctx, f.agent, id)
		require.NoError(t, err)
		assert.Equal(t, f.agentID, res.Booking.AgentID)
		require.NotNil(t, res.Commission)
		assert.Equal(t, int64(87500), res.Commission.Amount)
		assert.Len(t, f.store.CommissionsFor(id), 1)

		last := res.Booking.Events[len(res.Booking.Events)-1]
		assert.Equal(t, model.EventAgentClaimed, last.Kind)
	})

	t.Run("pending booking waits for confirm", func(t *testing.T) {
		id := f.booking(model.BookingPending, "Maria Santos", time.Hour)

		res, err := f.svc.Claim(ctx, f.agent, id)
		require.NoError(t, err)
		assert.Equal(t, f.agentID, res.Booking.AgentID)
		assert.Nil(t, res.Commission)
		assert.Empty(t, f.store.CommissionsFor(id))
	})

	t.Run("already assigned", func(t *testing.T) {
		id := f.booking(model.BookingConfirmed, "Pedro Penduko", time.Hour)
		_, err := f.svc.Claim(ctx, f.agent, id)
		require.NoError(t, err)

		_, err = f.svc.Claim(ctx, f.agent, id)
		assertCode(t, err, apperrors.CodeConflict)
		assert.Len(t, f.store.CommissionsFor(id), 1)
	})

	t.Run("existing commission", func(t *testing.T) {
		id := f.booking(model.BookingConfirmed, "Rosa Lim", time.Hour)
		f.store.PutCommission(model.Commission{BookingID: id, AgentID: "someone", Status: model.CommissionRejected})

		_, err := f.svc.Claim(ctx, f.agent, id)
		assertCode(t, err, apperrors.CodeConflict)
		assert.Empty(t, f.store.Booking(id).AgentID)
	})

	t.Run("cancelled", func(t *testing.T) {
		id := f.booking(model.BookingCancelled, "Lito Cruz", time.Hour)
		_, err := f.svc.Claim(ctx, f.agent, id)
		assertCode(t, err, apperrors.CodeInvalidState)
	})

	t.Run("outside window", func(t *testing.T) {
		id := f.booking(model.BookingConfirmed, "Old Guest", 31*24*time.Hour)
		_, err := f.svc.Claim(ctx, f.agent, id)
		assertCode(t, err, apperrors.CodeInvalidState)
		assert.Empty(t, f.store.Booking(id).AgentID)
	})

	t.Run("unknown agent profile", func(t *testing.T) {
		id := f.booking(model.BookingConfirmed, "Nobody", time.Hour)
		stranger := model.Actor{ID: "65f1c0ffee0000000000ffff", Role: model.RoleAgent}
		_, err := f.svc.Claim(ctx, stranger, id)
		assertCode(t, err, apperrors.CodeForbidden)
	})
}

func TestClaim_PendingBookingUsesRateAtConfirm(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cfg := testutil.Config()
	bookings := bookingservice.NewBookingService(f.store.Bookings(), f.store, f.svc, f.dispatcher, validator.NewBookingValidator(cfg.Log), cfg)

	id := f.booking(model.BookingPending, "Maria Santos", time.Hour)
	res, err := f.svc.Claim(ctx, f.agent, id)
	require.NoError(t, err)
	require.Nil(t, res.Commission)

	f.store.AddAgent(model.Agent{ID: f.agentID, Name: "Ana Reyes", CommissionRate: 0.2})

	confirmed, err := bookings.Confirm(ctx, admin, id, "")
	require.NoError(t, err)
	require.True(t, confirmed.Changed)

	commissions := f.store.CommissionsFor(id)
	require.Len(t, commissions, 1)
	assert.Equal(t, 0.2, commissions[0].Rate)
	assert.Equal(t, int64(140000), commissions[0].Amount)
	assert.Equal(t, f.agentID, commissions[0].AgentID)
}

func TestClaim_ConcurrentAgentsOneWins(t *testing.T) {
	f := newFixture(t)
	rival := f.store.AddAgent(model.Agent{Name: "Ben Tan", CommissionRate: 0.05})
	id := f.booking(model.BookingConfirmed, "Juan Dela Cruz", time.Hour)

	actors := []model.Actor{f.agent, {ID: rival, Role: model.RoleAgent}}
	var wg sync.WaitGroup
	errs := make([]error, len(actors))
	for i, a := range actors {
		wg.Add(1)
		go func(i int, a model.Actor) {
			defer wg.Done()
			_, errs[i] = f.svc.Claim(context.Background(), a, id)
		}(i, a)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
		}
	}
	assert.Equal(t, 1, wins)

	commissions := f.store.CommissionsFor(id)
	require.Len(t, commissions, 1)
	assert.Equal(t, f.store.Booking(id).AgentID, commissions[0].AgentID)
}

func TestList(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.pendingCommission(t)
	f.pendingCommission(t)
	f.store.PutCommission(model.Commission{BookingID: "other", AgentID: "65f1c0ffee0000000000cccc", Status: model.CommissionPending})

	mine, total, err := f.svc.List(ctx, f.agent, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, mine, 2)

	all, total, err := f.svc.List(ctx, admin, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, all, 3)

	_, _, err = f.svc.List(ctx, model.Actor{ID: "g1", Role: model.RoleGuest}, 10, 0)
	assertCode(t, err, apperrors.CodeForbidden)
}
