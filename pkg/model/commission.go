package model

import "time"

type CommissionStatus string

const (
	CommissionPending  CommissionStatus = "PENDING"
	CommissionPaidOut  CommissionStatus = "PAID_OUT"
	CommissionRejected CommissionStatus = "REJECTED"
)

// Commission is a referral payout owed to an agent. Amount and Rate are frozen
// when the record is created.
type Commission struct {
	ID        string           `json:"id,omitempty" bson:"_id,omitempty"`
	BookingID string           `json:"booking_id" bson:"booking_id"`
	AgentID   string           `json:"agent_id" bson:"agent_id"`
	Amount    int64            `json:"amount" bson:"amount"`
	Rate      float64          `json:"rate" bson:"rate"`
	Status    CommissionStatus `json:"status" bson:"status"`
	PaidAt    *time.Time       `json:"paid_at,omitempty" bson:"paid_at,omitempty"`
	CreatedAt time.Time        `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time        `json:"updated_at" bson:"updated_at"`
}
