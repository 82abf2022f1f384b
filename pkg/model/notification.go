package model

import "time"

type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
)

type Notification struct {
	ID        string    `json:"id,omitempty" bson:"_id,omitempty"`
	UserID    string    `json:"user_id" bson:"user_id"`
	Title     string    `json:"title" bson:"title"`
	Message   string    `json:"message" bson:"message"`
	Link      string    `json:"link,omitempty" bson:"link,omitempty"`
	Severity  Severity  `json:"severity" bson:"severity"`
	Read      bool      `json:"read" bson:"read"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

type AuditEntry struct {
	ID         string         `json:"id,omitempty" bson:"_id,omitempty"`
	ActorID    string         `json:"actor_id" bson:"actor_id"`
	Action     string         `json:"action" bson:"action"`
	EntityType string         `json:"entity_type" bson:"entity_type"`
	EntityID   string         `json:"entity_id" bson:"entity_id"`
	Details    map[string]any `json:"details,omitempty" bson:"details,omitempty"`
	CreatedAt  time.Time      `json:"created_at" bson:"created_at"`
}
