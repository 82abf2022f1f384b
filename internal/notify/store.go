package notify

import (
	"context"
	"fmt"

	"staybook/pkg/config"
	mongotx "staybook/pkg/db/mongo"
	"staybook/pkg/model"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	NotificationsCollectionName = "Notifications"
	AuditCollectionName         = "Audit_log"
)

// MongoStore persists in-app notifications and audit entries.
type MongoStore struct {
	cfg           *config.Config
	notifications *mongo.Collection
	audit         *mongo.Collection
}

func NewMongoStore(cfg *config.Config) *MongoStore {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &MongoStore{
		cfg:           cfg,
		notifications: db.Collection(NotificationsCollectionName),
		audit:         db.Collection(AuditCollectionName),
	}
}

func (s *MongoStore) InsertNotification(ctx context.Context, n *model.Notification) error {
	ctx, cancel := mongotx.WithTimeout(ctx, s.cfg.WriteTimeout)
	defer cancel()

	result, err := s.notifications.InsertOne(ctx, n)
	if err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}
	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		n.ID = oid.Hex()
	}
	return nil
}

func (s *MongoStore) InsertAudit(ctx context.Context, entry *model.AuditEntry) error {
	ctx, cancel := mongotx.WithTimeout(ctx, s.cfg.WriteTimeout)
	defer cancel()

	result, err := s.audit.InsertOne(ctx, entry)
	if err != nil {
		return fmt.Errorf("failed to insert audit entry: %w", err)
	}
	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		entry.ID = oid.Hex()
	}
	return nil
}
