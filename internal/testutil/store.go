// Package testutil provides in-memory stand-ins for the MongoDB repositories
// and the notification sink. The stores keep the conditional-update semantics
// of the real repositories and serialize transactions, so services can be
// exercised concurrently in tests.
package testutil

import (
	"context"
	"regexp"
	"sort"
	"sync"
	"time"

	bookingserrors "staybook/internal/bookings/errors"
	bookings "staybook/internal/bookings/repository"
	commissionserrors "staybook/internal/commissions/errors"
	commissions "staybook/internal/commissions/repository"
	directoryerrors "staybook/internal/directory/errors"
	directory "staybook/internal/directory/repository"
	mongotx "staybook/pkg/db/mongo"
	"staybook/pkg/model"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type txKey struct{}

var (
	_ bookings.BookingRepository       = (*BookingStore)(nil)
	_ commissions.CommissionRepository = (*CommissionStore)(nil)
	_ directory.Directory              = (*Store)(nil)
)

// Store holds every collection. One transaction runs at a time; a failing
// transaction restores the state it started from.
type Store struct {
	txMu sync.Mutex
	mu   sync.Mutex

	bookings    map[string]*model.Booking
	commissions map[string]*model.Commission
	units       map[string]*model.Unit
	agents      map[string]*model.Agent
	guests      map[string]*model.Guest

	// Now stamps created_at/updated_at. Tests may replace it before use.
	Now func() time.Time

	// TransitionHook, when set, runs before every booking transition and can
	// fail it.
	TransitionHook func(ctx context.Context, id string, to model.BookingStatus) error
	// StaleQueryErr fails FindStalePending when set.
	StaleQueryErr error
}

func NewStore() *Store {
	return &Store{
		bookings:    map[string]*model.Booking{},
		commissions: map[string]*model.Commission{},
		units:       map[string]*model.Unit{},
		agents:      map[string]*model.Agent{},
		guests:      map[string]*model.Guest{},
		Now:         mongotx.Now,
	}
}

func (s *Store) Bookings() *BookingStore {
	return &BookingStore{store: s}
}

func (s *Store) Commissions() *CommissionStore {
	return &CommissionStore{store: s}
}

// Directory returns the store itself, which serves units, agents and guests.
func (s *Store) Directory() *Store {
	return s
}

// --- transactions ---

func (s *Store) execute(ctx context.Context, fn mongotx.TransactionFunc) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	snapshot := s.snapshot()
	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		s.restore(snapshot)
		return err
	}
	return nil
}

// single serializes a standalone operation against running transactions.
func (s *Store) single(ctx context.Context) func() {
	if ctx.Value(txKey{}) != nil {
		return func() {}
	}
	s.txMu.Lock()
	return s.txMu.Unlock
}

type snapshot struct {
	bookings    map[string]*model.Booking
	commissions map[string]*model.Commission
	guests      map[string]*model.Guest
}

func (s *Store) snapshot() snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := snapshot{
		bookings:    make(map[string]*model.Booking, len(s.bookings)),
		commissions: make(map[string]*model.Commission, len(s.commissions)),
		guests:      make(map[string]*model.Guest, len(s.guests)),
	}
	for k, v := range s.bookings {
		snap.bookings[k] = copyBooking(v)
	}
	for k, v := range s.commissions {
		snap.commissions[k] = copyCommission(v)
	}
	for k, v := range s.guests {
		g := *v
		snap.guests[k] = &g
	}
	return snap
}

func (s *Store) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bookings = snap.bookings
	s.commissions = snap.commissions
	s.guests = snap.guests
}

// --- seeding and inspection ---

func (s *Store) AddUnit(u model.Unit) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == "" {
		u.ID = primitive.NewObjectID().Hex()
	}
	s.units[u.ID] = &u
	return u.ID
}

func (s *Store) AddAgent(a model.Agent) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ID == "" {
		a.ID = primitive.NewObjectID().Hex()
	}
	s.agents[a.ID] = &a
	return a.ID
}

// PutBooking stores b as is, keeping its CreatedAt when set.
func (s *Store) PutBooking(b model.Booking) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b.ID == "" {
		b.ID = primitive.NewObjectID().Hex()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = s.Now()
	}
	if b.UpdatedAt.IsZero() {
		b.UpdatedAt = b.CreatedAt
	}
	if b.Events == nil {
		b.Events = []model.BookingEvent{}
	}
	s.bookings[b.ID] = copyBooking(&b)
	return b.ID
}

// PutCommission stores c as is.
func (s *Store) PutCommission(c model.Commission) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == "" {
		c.ID = primitive.NewObjectID().Hex()
	}
	s.commissions[c.ID] = copyCommission(&c)
	return c.ID
}

func (s *Store) Booking(id string) *model.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return nil
	}
	return copyBooking(b)
}

func (s *Store) CommissionsFor(bookingID string) []*model.Commission {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.Commission
	for _, c := range s.commissions {
		if c.BookingID == bookingID {
			out = append(out, copyCommission(c))
		}
	}
	return out
}

func (s *Store) Guests() []*model.Guest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*model.Guest, 0, len(s.guests))
	for _, g := range s.guests {
		copied := *g
		out = append(out, &copied)
	}
	return out
}

// --- directory ---

func (s *Store) FindUnit(_ context.Context, id string) (*model.Unit, error) {
	if !primitive.IsValidObjectID(id) {
		return nil, directoryerrors.ErrInvalidID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.units[id]
	if !ok {
		return nil, directoryerrors.ErrUnitNotFound
	}
	copied := *u
	return &copied, nil
}

func (s *Store) FindAgent(_ context.Context, id string) (*model.Agent, error) {
	if !primitive.IsValidObjectID(id) {
		return nil, directoryerrors.ErrInvalidID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.agents[id]
	if !ok {
		return nil, directoryerrors.ErrAgentNotFound
	}
	copied := *a
	return &copied, nil
}

func (s *Store) UpsertGuest(ctx context.Context, guest *model.Guest) (*model.Guest, error) {
	defer s.single(ctx)()
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.Now()
	stored, ok := s.guests[guest.Phone]
	if !ok {
		stored = &model.Guest{
			ID:        primitive.NewObjectID().Hex(),
			Phone:     guest.Phone,
			CreatedAt: now,
		}
		s.guests[guest.Phone] = stored
	}
	stored.Name = guest.Name
	if guest.Email != "" {
		stored.Email = guest.Email
	}
	stored.UpdatedAt = now

	copied := *stored
	return &copied, nil
}

// --- bookings ---

type BookingStore struct {
	store *Store
}

func (r *BookingStore) Create(ctx context.Context, booking *model.Booking) error {
	defer r.store.single(ctx)()
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.Now()
	booking.ID = primitive.NewObjectID().Hex()
	booking.CreatedAt = now
	booking.UpdatedAt = now
	if booking.Events == nil {
		booking.Events = []model.BookingEvent{}
	}
	for i := range booking.Events {
		if booking.Events[i].At.IsZero() {
			booking.Events[i].At = now
		}
	}
	s.bookings[booking.ID] = copyBooking(booking)
	return nil
}

func (r *BookingStore) FindByID(_ context.Context, id string) (*model.Booking, error) {
	if !primitive.IsValidObjectID(id) {
		return nil, bookingserrors.ErrInvalidID
	}
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return nil, bookingserrors.ErrNotFound
	}
	return copyBooking(b), nil
}

func (r *BookingStore) FindByCheckoutSession(_ context.Context, sessionID string) (*model.Booking, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.bookings {
		if sessionID != "" && b.CheckoutSessionID == sessionID {
			return copyBooking(b), nil
		}
	}
	return nil, bookingserrors.ErrNotFound
}

func (r *BookingStore) ApplyTransition(ctx context.Context, id string, t bookings.Transition) (*model.Booking, bool, error) {
	if !primitive.IsValidObjectID(id) {
		return nil, false, bookingserrors.ErrInvalidID
	}
	if hook := r.store.TransitionHook; hook != nil {
		if err := hook(ctx, id, t.To); err != nil {
			return nil, false, err
		}
	}

	defer r.store.single(ctx)()
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bookings[id]
	if !ok {
		return nil, false, bookingserrors.ErrNotFound
	}
	if !containsStatus(t.From, b.Status) {
		return copyBooking(b), false, nil
	}

	now := s.Now()
	b.Status = t.To
	if t.PaymentStatus != "" {
		b.PaymentStatus = t.PaymentStatus
	}
	if t.Event.At.IsZero() {
		t.Event.At = now
	}
	b.Events = append(b.Events, t.Event)
	b.UpdatedAt = now
	return copyBooking(b), true, nil
}

func (r *BookingStore) AppendEvent(ctx context.Context, id string, event model.BookingEvent) error {
	if !primitive.IsValidObjectID(id) {
		return bookingserrors.ErrInvalidID
	}
	defer r.store.single(ctx)()
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bookings[id]
	if !ok {
		return bookingserrors.ErrNotFound
	}
	now := s.Now()
	if event.At.IsZero() {
		event.At = now
	}
	b.Events = append(b.Events, event)
	b.UpdatedAt = now
	return nil
}

func (r *BookingStore) SetCheckoutSession(ctx context.Context, id string, sessionID string, event model.BookingEvent) (*model.Booking, bool, error) {
	if !primitive.IsValidObjectID(id) {
		return nil, false, bookingserrors.ErrInvalidID
	}
	defer r.store.single(ctx)()
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bookings[id]
	if !ok {
		return nil, false, bookingserrors.ErrNotFound
	}
	if b.Status != model.BookingPending {
		return copyBooking(b), false, nil
	}

	now := s.Now()
	if event.At.IsZero() {
		event.At = now
	}
	b.CheckoutSessionID = sessionID
	b.Events = append(b.Events, event)
	b.UpdatedAt = now
	return copyBooking(b), true, nil
}

func (r *BookingStore) AssignAgent(ctx context.Context, id string, agentID string, createdAfter time.Time, event model.BookingEvent) (*model.Booking, error) {
	if !primitive.IsValidObjectID(id) {
		return nil, bookingserrors.ErrInvalidID
	}
	defer r.store.single(ctx)()
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bookings[id]
	if !ok || b.AgentID != "" || b.Status == model.BookingCancelled || b.CreatedAt.Before(createdAfter) {
		return nil, bookingserrors.ErrNotApplied
	}

	now := s.Now()
	if event.At.IsZero() {
		event.At = now
	}
	b.AgentID = agentID
	b.Events = append(b.Events, event)
	b.UpdatedAt = now
	return copyBooking(b), nil
}

func (r *BookingStore) FindStalePending(_ context.Context, createdBefore time.Time, limit int) ([]*model.Booking, error) {
	s := r.store
	if s.StaleQueryErr != nil {
		return nil, s.StaleQueryErr
	}
	return r.filter(func(b *model.Booking) bool {
		return b.Status == model.BookingPending && b.CreatedAt.Before(createdBefore)
	}, true, limit), nil
}

func (r *BookingStore) SearchOrphans(_ context.Context, namePattern string, createdAfter time.Time, limit int) ([]*model.Booking, error) {
	re, err := regexp.Compile(namePattern)
	if err != nil {
		return nil, err
	}
	return r.filter(func(b *model.Booking) bool {
		return b.AgentID == "" &&
			b.Status != model.BookingCancelled &&
			!b.CreatedAt.Before(createdAfter) &&
			(re.MatchString(b.GuestName) || re.MatchString(b.WalkInGuestName))
	}, false, limit), nil
}

func (r *BookingStore) filter(match func(*model.Booking) bool, oldestFirst bool, limit int) []*model.Booking {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []*model.Booking{}
	for _, b := range s.bookings {
		if match(b) {
			out = append(out, copyBooking(b))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if oldestFirst {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (r *BookingStore) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.store.execute(ctx, fn)
}

// --- commissions ---

type CommissionStore struct {
	store *Store
}

func (r *CommissionStore) Create(ctx context.Context, commission *model.Commission) error {
	defer r.store.single(ctx)()
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.commissions {
		if c.BookingID == commission.BookingID {
			return commissionserrors.ErrAlreadyExists
		}
	}

	now := s.Now()
	commission.ID = primitive.NewObjectID().Hex()
	commission.CreatedAt = now
	commission.UpdatedAt = now
	s.commissions[commission.ID] = copyCommission(commission)
	return nil
}

func (r *CommissionStore) FindByID(_ context.Context, id string) (*model.Commission, error) {
	if !primitive.IsValidObjectID(id) {
		return nil, commissionserrors.ErrInvalidID
	}
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.commissions[id]
	if !ok {
		return nil, commissionserrors.ErrNotFound
	}
	return copyCommission(c), nil
}

func (r *CommissionStore) FindByBookingID(_ context.Context, bookingID string) (*model.Commission, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.commissions {
		if c.BookingID == bookingID {
			return copyCommission(c), nil
		}
	}
	return nil, commissionserrors.ErrNotFound
}

func (r *CommissionStore) TransitionStatus(ctx context.Context, id string, from, to model.CommissionStatus, paidAt *time.Time) (*model.Commission, bool, error) {
	if !primitive.IsValidObjectID(id) {
		return nil, false, commissionserrors.ErrInvalidID
	}
	defer r.store.single(ctx)()
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.commissions[id]
	if !ok {
		return nil, false, commissionserrors.ErrNotFound
	}
	if c.Status != from {
		return copyCommission(c), false, nil
	}
	c.Status = to
	if paidAt != nil {
		at := *paidAt
		c.PaidAt = &at
	}
	c.UpdatedAt = s.Now()
	return copyCommission(c), true, nil
}

func (r *CommissionStore) FindByAgent(_ context.Context, agentID string, limit int, offset int64) ([]*model.Commission, error) {
	all := r.byAgent(agentID)
	if offset >= int64(len(all)) {
		return []*model.Commission{}, nil
	}
	all = all[offset:]
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (r *CommissionStore) CountByAgent(_ context.Context, agentID string) (int64, error) {
	return int64(len(r.byAgent(agentID))), nil
}

func (r *CommissionStore) byAgent(agentID string) []*model.Commission {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []*model.Commission{}
	for _, c := range s.commissions {
		if agentID == "" || c.AgentID == agentID {
			out = append(out, copyCommission(c))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (r *CommissionStore) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.store.execute(ctx, fn)
}

// --- helpers ---

func containsStatus(list []model.BookingStatus, status model.BookingStatus) bool {
	for _, s := range list {
		if s == status {
			return true
		}
	}
	return false
}

func copyBooking(b *model.Booking) *model.Booking {
	copied := *b
	copied.Events = make([]model.BookingEvent, len(b.Events))
	for i, e := range b.Events {
		if e.Payload != nil {
			payload := make(map[string]string, len(e.Payload))
			for k, v := range e.Payload {
				payload[k] = v
			}
			e.Payload = payload
		}
		copied.Events[i] = e
	}
	return &copied
}

func copyCommission(c *model.Commission) *model.Commission {
	copied := *c
	if c.PaidAt != nil {
		at := *c.PaidAt
		copied.PaidAt = &at
	}
	return &copied
}
