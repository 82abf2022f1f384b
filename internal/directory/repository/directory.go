package repository

import (
	"context"
	"errors"
	"fmt"

	directoryerrors "staybook/internal/directory/errors"
	"staybook/pkg/config"
	mongotx "staybook/pkg/db/mongo"
	"staybook/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	UnitsCollectionName  = "Units"
	AgentsCollectionName = "Agents"
	GuestsCollectionName = "Guests"
)

// UnitDirectory is read-only: listing content is managed elsewhere.
type UnitDirectory interface {
	FindUnit(ctx context.Context, id string) (*model.Unit, error)
}

type AgentDirectory interface {
	FindAgent(ctx context.Context, id string) (*model.Agent, error)
}

type GuestDirectory interface {
	// UpsertGuest finds the guest by canonical phone, refreshing name and email,
	// or creates one.
	UpsertGuest(ctx context.Context, guest *model.Guest) (*model.Guest, error)
}

type Directory interface {
	UnitDirectory
	AgentDirectory
	GuestDirectory
}

type mongoDirectory struct {
	cfg    *config.Config
	units  *mongo.Collection
	agents *mongo.Collection
	guests *mongo.Collection
}

func NewMongoDirectory(cfg *config.Config) Directory {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoDirectory{
		cfg:    cfg,
		units:  db.Collection(UnitsCollectionName),
		agents: db.Collection(AgentsCollectionName),
		guests: db.Collection(GuestsCollectionName),
	}
}

func (d *mongoDirectory) FindUnit(ctx context.Context, id string) (*model.Unit, error) {
	var unit model.Unit
	if err := d.findByID(ctx, d.units, id, &unit, directoryerrors.ErrUnitNotFound); err != nil {
		return nil, err
	}
	return &unit, nil
}

func (d *mongoDirectory) FindAgent(ctx context.Context, id string) (*model.Agent, error) {
	var agent model.Agent
	if err := d.findByID(ctx, d.agents, id, &agent, directoryerrors.ErrAgentNotFound); err != nil {
		return nil, err
	}
	return &agent, nil
}

func (d *mongoDirectory) findByID(ctx context.Context, coll *mongo.Collection, id string, out any, notFound error) error {
	ctx, cancel := mongotx.WithTimeout(ctx, d.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", directoryerrors.ErrInvalidID, id)
	}

	if err := coll.FindOne(ctx, bson.M{"_id": objectID}).Decode(out); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return notFound
		}
		return fmt.Errorf("failed to find %s: %w", coll.Name(), err)
	}
	return nil
}

func (d *mongoDirectory) UpsertGuest(ctx context.Context, guest *model.Guest) (*model.Guest, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, d.cfg.WriteTimeout)
	defer cancel()

	now := mongotx.Now()
	set := bson.M{
		"name":       guest.Name,
		"updated_at": now,
	}
	if guest.Email != "" {
		set["email"] = guest.Email
	}

	update := bson.M{
		"$set":         set,
		"$setOnInsert": bson.M{"created_at": now},
	}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var stored model.Guest
	err := d.guests.FindOneAndUpdate(ctx, bson.M{"phone": guest.Phone}, update, opts).Decode(&stored)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert guest: %w", err)
	}
	return &stored, nil
}
