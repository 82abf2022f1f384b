package model

import "time"

type Agent struct {
	ID             string  `json:"id,omitempty" bson:"_id,omitempty"`
	Name           string  `json:"name" bson:"name"`
	Email          string  `json:"email,omitempty" bson:"email,omitempty"`
	Phone          string  `json:"phone,omitempty" bson:"phone,omitempty"`
	CommissionRate float64 `json:"commission_rate" bson:"commission_rate"`
}

type Unit struct {
	ID            string `json:"id,omitempty" bson:"_id,omitempty"`
	Name          string `json:"name" bson:"name"`
	BasePrice     int64  `json:"base_price" bson:"base_price"`
	BasePax       int    `json:"base_pax" bson:"base_pax"`
	ExtraPaxPrice int64  `json:"extra_pax_price" bson:"extra_pax_price"`
}

// Guest is identified by the canonical mobile number.
type Guest struct {
	ID        string    `json:"id,omitempty" bson:"_id,omitempty"`
	Name      string    `json:"name" bson:"name"`
	Email     string    `json:"email,omitempty" bson:"email,omitempty"`
	Phone     string    `json:"phone" bson:"phone"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}
