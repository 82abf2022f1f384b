package model

import (
	"time"
)

type BookingStatus string

const (
	BookingPending   BookingStatus = "PENDING"
	BookingConfirmed BookingStatus = "CONFIRMED"
	BookingCancelled BookingStatus = "CANCELLED"
	BookingCompleted BookingStatus = "COMPLETED"
)

// bookingTransitions is the complete lifecycle graph. No edge re-enters PENDING.
var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingPending:   {BookingConfirmed, BookingCancelled},
	BookingConfirmed: {BookingCompleted, BookingCancelled},
	BookingCancelled: {},
	BookingCompleted: {},
}

func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	for _, allowed := range bookingTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s BookingStatus) IsTerminal() bool {
	edges, ok := bookingTransitions[s]
	return ok && len(edges) == 0
}

// SourcesOf lists the states that may move to target.
func SourcesOf(target BookingStatus) []BookingStatus {
	var sources []BookingStatus
	for _, from := range []BookingStatus{BookingPending, BookingConfirmed, BookingCancelled, BookingCompleted} {
		if from.CanTransitionTo(target) {
			sources = append(sources, from)
		}
	}
	return sources
}

type PaymentStatus string

const (
	PaymentUnpaid  PaymentStatus = "UNPAID"
	PaymentPartial PaymentStatus = "PARTIAL"
	PaymentPaid    PaymentStatus = "PAID"
)

type Booking struct {
	ID                string         `json:"id,omitempty" bson:"_id,omitempty"`
	UnitID            string         `json:"unit_id" bson:"unit_id"`
	GuestID           string         `json:"guest_id" bson:"guest_id"`
	GuestName         string         `json:"guest_name" bson:"guest_name"`
	GuestEmail        string         `json:"guest_email,omitempty" bson:"guest_email,omitempty"`
	GuestPhone        string         `json:"guest_phone" bson:"guest_phone"`
	WalkInGuestName   string         `json:"walk_in_guest_name,omitempty" bson:"walk_in_guest_name,omitempty"`
	AgentID           string         `json:"agent_id,omitempty" bson:"agent_id,omitempty"`
	CheckIn           time.Time      `json:"check_in" bson:"check_in"`
	CheckOut          time.Time      `json:"check_out" bson:"check_out"`
	Adults            int            `json:"adults" bson:"adults"`
	Kids              int            `json:"kids" bson:"kids"`
	Toddlers          int            `json:"toddlers" bson:"toddlers"`
	HasVehicle        bool           `json:"has_vehicle" bson:"has_vehicle"`
	HasPet            bool           `json:"has_pet" bson:"has_pet"`
	IsPWD             bool           `json:"is_pwd" bson:"is_pwd"`
	Nights            int            `json:"nights" bson:"nights"`
	NightlyRate       int64          `json:"nightly_rate" bson:"nightly_rate"`
	TotalPrice        int64          `json:"total_price" bson:"total_price"`
	DownPayment       int64          `json:"down_payment" bson:"down_payment"`
	Balance           int64          `json:"balance" bson:"balance"`
	Status            BookingStatus  `json:"status" bson:"status"`
	PaymentStatus     PaymentStatus  `json:"payment_status" bson:"payment_status"`
	Events            []BookingEvent `json:"events" bson:"events"`
	CheckoutSessionID string         `json:"checkout_session_id,omitempty" bson:"checkout_session_id,omitempty"`
	CreatedAt         time.Time      `json:"created_at" bson:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at" bson:"updated_at"`
}

// DisplayGuestName prefers the walk-in name recorded for manual bookings.
func (b *Booking) DisplayGuestName() string {
	if b.WalkInGuestName != "" {
		return b.WalkInGuestName
	}
	return b.GuestName
}

type BookingEventKind string

const (
	EventCreated         BookingEventKind = "created"
	EventConfirmed       BookingEventKind = "confirmed"
	EventCancelled       BookingEventKind = "cancelled"
	EventCompleted       BookingEventKind = "completed"
	EventPaymentProof    BookingEventKind = "payment_proof"
	EventCheckoutSession BookingEventKind = "checkout_session"
	EventAgentClaimed    BookingEventKind = "agent_claimed"
)

// BookingEvent is one entry in a booking's append-only history.
type BookingEvent struct {
	ID        string            `json:"id" bson:"id"`
	Kind      BookingEventKind  `json:"kind" bson:"kind"`
	ActorID   string            `json:"actor_id" bson:"actor_id"`
	ActorRole Role              `json:"actor_role" bson:"actor_role"`
	At        time.Time         `json:"at" bson:"at"`
	Payload   map[string]string `json:"payload,omitempty" bson:"payload,omitempty"`
}

type BookingIntake struct {
	UnitID          string `json:"unit_id" validate:"required,max=64"`
	CheckIn         string `json:"check_in" validate:"required,datetime=2006-01-02"`
	CheckOut        string `json:"check_out" validate:"required,datetime=2006-01-02"`
	Adults          int    `json:"adults" validate:"min=0,max=50"`
	Kids            int    `json:"kids" validate:"min=0,max=50"`
	Toddlers        int    `json:"toddlers" validate:"min=0,max=20"`
	GuestName       string `json:"guest_name" validate:"required,min=2,max=100"`
	GuestEmail      string `json:"guest_email" validate:"omitempty,email,max=254"`
	GuestPhone      string `json:"guest_phone" validate:"required,ph_mobile"`
	WalkInGuestName string `json:"walk_in_guest_name,omitempty" validate:"omitempty,min=2,max=100"`
	AgentID         string `json:"agent_id,omitempty" validate:"omitempty,max=64"`
	HasVehicle      bool   `json:"has_vehicle"`
	HasPet          bool   `json:"has_pet"`
	IsPWD           bool   `json:"is_pwd"`
}

type QuoteRequest struct {
	UnitID   string `json:"unit_id" validate:"required,max=64"`
	CheckIn  string `json:"check_in" validate:"required,datetime=2006-01-02"`
	CheckOut string `json:"check_out" validate:"required,datetime=2006-01-02"`
	Adults   int    `json:"adults" validate:"min=0,max=50"`
	Kids     int    `json:"kids" validate:"min=0,max=50"`
	IsPWD    bool   `json:"is_pwd"`
}
