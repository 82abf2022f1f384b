package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	commissionserrors "staybook/internal/commissions/errors"
	"staybook/pkg/config"
	mongotx "staybook/pkg/db/mongo"
	"staybook/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "Commissions"
)

type CommissionRepository interface {
	// Create inserts a commission. The unique index on booking_id turns a second
	// insert for the same booking into ErrAlreadyExists.
	Create(ctx context.Context, commission *model.Commission) error
	FindByID(ctx context.Context, id string) (*model.Commission, error)
	FindByBookingID(ctx context.Context, bookingID string) (*model.Commission, error)
	// TransitionStatus moves a commission from one status to another. The returned
	// bool is false, with the current record, when the status did not match from.
	TransitionStatus(ctx context.Context, id string, from, to model.CommissionStatus, paidAt *time.Time) (*model.Commission, bool, error)
	FindByAgent(ctx context.Context, agentID string, limit int, offset int64) ([]*model.Commission, error)
	CountByAgent(ctx context.Context, agentID string) (int64, error)
	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

type mongoCommissionRepository struct {
	cfg        *config.Config
	db         *mongo.Database
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

func NewMongoCommissionRepository(cfg *config.Config) CommissionRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoCommissionRepository{
		cfg:        cfg,
		db:         db,
		collection: db.Collection(CollectionName),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

func (r *mongoCommissionRepository) Create(ctx context.Context, commission *model.Commission) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := mongotx.Now()
	commission.CreatedAt = now
	commission.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, commission)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return commissionserrors.ErrAlreadyExists
		}
		return fmt.Errorf("failed to create commission: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		commission.ID = oid.Hex()
	}
	return nil
}

func (r *mongoCommissionRepository) FindByID(ctx context.Context, id string) (*model.Commission, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", commissionserrors.ErrInvalidID, id)
	}
	return r.findOne(ctx, bson.M{"_id": objectID})
}

func (r *mongoCommissionRepository) FindByBookingID(ctx context.Context, bookingID string) (*model.Commission, error) {
	return r.findOne(ctx, bson.M{"booking_id": bookingID})
}

func (r *mongoCommissionRepository) findOne(ctx context.Context, filter bson.M) (*model.Commission, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var commission model.Commission
	if err := r.collection.FindOne(ctx, filter).Decode(&commission); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, commissionserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find commission: %w", err)
	}
	return &commission, nil
}

func (r *mongoCommissionRepository) TransitionStatus(ctx context.Context, id string, from, to model.CommissionStatus, paidAt *time.Time) (*model.Commission, bool, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %s", commissionserrors.ErrInvalidID, id)
	}

	set := bson.M{
		"status":     to,
		"updated_at": mongotx.Now(),
	}
	if paidAt != nil {
		set["paid_at"] = paidAt.UTC().Truncate(time.Millisecond)
	}

	writeCtx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var commission model.Commission
	err = r.collection.FindOneAndUpdate(writeCtx,
		bson.M{"_id": objectID, "status": from},
		bson.M{"$set": set},
		opts,
	).Decode(&commission)
	if err == nil {
		return &commission, true, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, fmt.Errorf("failed to update commission: %w", err)
	}

	current, err := r.findOne(ctx, bson.M{"_id": objectID})
	if err != nil {
		return nil, false, err
	}
	return current, false, nil
}

func agentFilter(agentID string) bson.M {
	if agentID == "" {
		return bson.M{}
	}
	return bson.M{"agent_id": agentID}
}

func (r *mongoCommissionRepository) FindByAgent(ctx context.Context, agentID string, limit int, offset int64) ([]*model.Commission, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)

	cursor, err := r.collection.Find(ctx, agentFilter(agentID), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find commissions: %w", err)
	}
	defer cursor.Close(ctx)

	commissions := []*model.Commission{}
	if err = cursor.All(ctx, &commissions); err != nil {
		return nil, fmt.Errorf("failed to decode commissions: %w", err)
	}
	return commissions, nil
}

func (r *mongoCommissionRepository) CountByAgent(ctx context.Context, agentID string) (int64, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, agentFilter(agentID))
	if err != nil {
		return 0, fmt.Errorf("failed to count commissions: %w", err)
	}
	return count, nil
}

func (r *mongoCommissionRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}
