package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	bookingserrors "staybook/internal/bookings/errors"
	"staybook/pkg/config"
	mongotx "staybook/pkg/db/mongo"
	"staybook/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "Bookings"
)

// Transition describes a guarded status change. It is applied only when the
// booking's current status is one of From; Event is appended in the same write.
type Transition struct {
	From          []model.BookingStatus
	To            model.BookingStatus
	PaymentStatus model.PaymentStatus
	Event         model.BookingEvent
}

type BookingRepository interface {
	Create(ctx context.Context, booking *model.Booking) error
	FindByID(ctx context.Context, id string) (*model.Booking, error)
	FindByCheckoutSession(ctx context.Context, sessionID string) (*model.Booking, error)
	// ApplyTransition returns the booking after the call and whether this call
	// changed it. A booking in a state outside t.From is returned unchanged.
	ApplyTransition(ctx context.Context, id string, t Transition) (*model.Booking, bool, error)
	AppendEvent(ctx context.Context, id string, event model.BookingEvent) error
	SetCheckoutSession(ctx context.Context, id string, sessionID string, event model.BookingEvent) (*model.Booking, bool, error)
	// AssignAgent sets agent_id on an orphan booking that is not cancelled and was
	// created at or after createdAfter. Returns ErrNotApplied otherwise.
	AssignAgent(ctx context.Context, id string, agentID string, createdAfter time.Time, event model.BookingEvent) (*model.Booking, error)
	FindStalePending(ctx context.Context, createdBefore time.Time, limit int) ([]*model.Booking, error)
	SearchOrphans(ctx context.Context, namePattern string, createdAfter time.Time, limit int) ([]*model.Booking, error)
	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

type mongoBookingRepository struct {
	cfg        *config.Config
	db         *mongo.Database
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

func NewMongoBookingRepository(cfg *config.Config) BookingRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoBookingRepository{
		cfg:        cfg,
		db:         db,
		collection: db.Collection(CollectionName),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

func parseID(id string) (primitive.ObjectID, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, id)
	}
	return objectID, nil
}

func orphanFilter() bson.M {
	return bson.M{"$or": bson.A{
		bson.M{"agent_id": bson.M{"$exists": false}},
		bson.M{"agent_id": ""},
	}}
}

func (r *mongoBookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := mongotx.Now()
	booking.CreatedAt = now
	booking.UpdatedAt = now
	if booking.Events == nil {
		booking.Events = []model.BookingEvent{}
	}

	result, err := r.collection.InsertOne(ctx, booking)
	if err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		booking.ID = oid.Hex()
	}
	return nil
}

func (r *mongoBookingRepository) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	objectID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	return r.findOne(ctx, bson.M{"_id": objectID})
}

func (r *mongoBookingRepository) FindByCheckoutSession(ctx context.Context, sessionID string) (*model.Booking, error) {
	if sessionID == "" {
		return nil, bookingserrors.ErrNotFound
	}
	return r.findOne(ctx, bson.M{"checkout_session_id": sessionID})
}

func (r *mongoBookingRepository) findOne(ctx context.Context, filter bson.M) (*model.Booking, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var booking model.Booking
	err := r.collection.FindOne(ctx, filter).Decode(&booking)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, bookingserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find booking: %w", err)
	}

	return &booking, nil
}

func (r *mongoBookingRepository) ApplyTransition(ctx context.Context, id string, t Transition) (*model.Booking, bool, error) {
	objectID, err := parseID(id)
	if err != nil {
		return nil, false, err
	}

	now := mongotx.Now()
	set := bson.M{
		"status":     t.To,
		"updated_at": now,
	}
	if t.PaymentStatus != "" {
		set["payment_status"] = t.PaymentStatus
	}
	if t.Event.At.IsZero() {
		t.Event.At = now
	}

	filter := bson.M{
		"_id":    objectID,
		"status": bson.M{"$in": t.From},
	}
	update := bson.M{
		"$set":  set,
		"$push": bson.M{"events": t.Event},
	}

	return r.conditionalUpdate(ctx, objectID, filter, update)
}

func (r *mongoBookingRepository) SetCheckoutSession(ctx context.Context, id string, sessionID string, event model.BookingEvent) (*model.Booking, bool, error) {
	objectID, err := parseID(id)
	if err != nil {
		return nil, false, err
	}

	now := mongotx.Now()
	if event.At.IsZero() {
		event.At = now
	}

	filter := bson.M{
		"_id":    objectID,
		"status": model.BookingPending,
	}
	update := bson.M{
		"$set": bson.M{
			"checkout_session_id": sessionID,
			"updated_at":          now,
		},
		"$push": bson.M{"events": event},
	}

	return r.conditionalUpdate(ctx, objectID, filter, update)
}

// conditionalUpdate applies update when filter matches. On a miss it re-reads
// the booking so callers can tell "not found" apart from "state moved on".
func (r *mongoBookingRepository) conditionalUpdate(ctx context.Context, objectID primitive.ObjectID, filter, update bson.M) (*model.Booking, bool, error) {
	writeCtx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var booking model.Booking
	err := r.collection.FindOneAndUpdate(writeCtx, filter, update, opts).Decode(&booking)
	if err == nil {
		return &booking, true, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, fmt.Errorf("failed to update booking: %w", err)
	}

	current, err := r.findOne(ctx, bson.M{"_id": objectID})
	if err != nil {
		return nil, false, err
	}
	return current, false, nil
}

func (r *mongoBookingRepository) AppendEvent(ctx context.Context, id string, event model.BookingEvent) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := parseID(id)
	if err != nil {
		return err
	}

	now := mongotx.Now()
	if event.At.IsZero() {
		event.At = now
	}

	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": objectID},
		bson.M{
			"$set":  bson.M{"updated_at": now},
			"$push": bson.M{"events": event},
		},
	)
	if err != nil {
		return fmt.Errorf("failed to append booking event: %w", err)
	}
	if result.MatchedCount == 0 {
		return bookingserrors.ErrNotFound
	}
	return nil
}

func (r *mongoBookingRepository) AssignAgent(ctx context.Context, id string, agentID string, createdAfter time.Time, event model.BookingEvent) (*model.Booking, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	now := mongotx.Now()
	if event.At.IsZero() {
		event.At = now
	}

	filter := orphanFilter()
	filter["_id"] = objectID
	filter["status"] = bson.M{"$ne": model.BookingCancelled}
	filter["created_at"] = bson.M{"$gte": createdAfter}

	update := bson.M{
		"$set": bson.M{
			"agent_id":   agentID,
			"updated_at": now,
		},
		"$push": bson.M{"events": event},
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var booking model.Booking
	err = r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&booking)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, bookingserrors.ErrNotApplied
		}
		return nil, fmt.Errorf("failed to assign agent: %w", err)
	}
	return &booking, nil
}

func (r *mongoBookingRepository) FindStalePending(ctx context.Context, createdBefore time.Time, limit int) ([]*model.Booking, error) {
	filter := bson.M{
		"status":     model.BookingPending,
		"created_at": bson.M{"$lt": createdBefore},
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}).
		SetLimit(int64(limit))

	return r.find(ctx, filter, opts)
}

func (r *mongoBookingRepository) SearchOrphans(ctx context.Context, namePattern string, createdAfter time.Time, limit int) ([]*model.Booking, error) {
	nameRegex := primitive.Regex{Pattern: namePattern}

	filter := bson.M{
		"$and": bson.A{
			orphanFilter(),
			bson.M{"$or": bson.A{
				bson.M{"guest_name": nameRegex},
				bson.M{"walk_in_guest_name": nameRegex},
			}},
		},
		"status":     bson.M{"$ne": model.BookingCancelled},
		"created_at": bson.M{"$gte": createdAfter},
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit))

	return r.find(ctx, filter, opts)
}

func (r *mongoBookingRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*model.Booking, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find bookings: %w", err)
	}
	defer cursor.Close(ctx)

	bookings := []*model.Booking{}
	if err = cursor.All(ctx, &bookings); err != nil {
		return nil, fmt.Errorf("failed to decode bookings: %w", err)
	}

	return bookings, nil
}

func (r *mongoBookingRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}
