package notify

import (
	"fmt"
	"strings"
	"time"

	"staybook/pkg/model"
)

const (
	EventBookingCreated     = "booking.created"
	EventBookingConfirmed   = "booking.confirmed"
	EventBookingCancelled   = "booking.cancelled"
	EventBookingCompleted   = "booking.completed"
	EventCommissionCreated  = "commission.created"
	EventCommissionPaidOut  = "commission.paid_out"
	EventCommissionRejected = "commission.rejected"
	EventCommissionClaimed  = "commission.claimed"
)

// Event is a domain event announced to other services.
type Event struct {
	Type        string         `json:"type"`
	AggregateID string         `json:"aggregate_id"`
	ActorID     string         `json:"actor_id"`
	ActorRole   model.Role     `json:"actor_role"`
	OccurredAt  time.Time      `json:"occurred_at"`
	Data        map[string]any `json:"data,omitempty"`
}

type Mail struct {
	To      string
	Subject string
	Body    string
}

type ConfirmationMessage struct {
	BookingID  string
	GuestName  string
	GuestEmail string
	UnitName   string
	CheckIn    time.Time
	CheckOut   time.Time
	TotalPrice int64
	Balance    int64
}

type CancellationMessage struct {
	BookingID  string
	GuestName  string
	GuestEmail string
	UnitName   string
	CheckIn    time.Time
	CheckOut   time.Time
	Reason     string
}

const dateLayout = "Jan 2, 2006"

func (m ConfirmationMessage) Mail() Mail {
	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\n", m.GuestName)
	fmt.Fprintf(&b, "Your stay at %s from %s to %s is confirmed.\n\n", m.UnitName, m.CheckIn.Format(dateLayout), m.CheckOut.Format(dateLayout))
	fmt.Fprintf(&b, "Total price: %s\n", FormatPeso(m.TotalPrice))
	fmt.Fprintf(&b, "Remaining balance: %s\n\n", FormatPeso(m.Balance))
	fmt.Fprintf(&b, "Booking reference: %s\n", m.BookingID)

	return Mail{
		To:      m.GuestEmail,
		Subject: fmt.Sprintf("Booking confirmed: %s", m.UnitName),
		Body:    b.String(),
	}
}

func (m CancellationMessage) Mail() Mail {
	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\n", m.GuestName)
	fmt.Fprintf(&b, "Your reservation at %s from %s to %s has been cancelled.\n\n", m.UnitName, m.CheckIn.Format(dateLayout), m.CheckOut.Format(dateLayout))
	if m.Reason != "" {
		fmt.Fprintf(&b, "Reason: %s\n\n", m.Reason)
	}
	fmt.Fprintf(&b, "Booking reference: %s\n", m.BookingID)

	return Mail{
		To:      m.GuestEmail,
		Subject: fmt.Sprintf("Booking cancelled: %s", m.UnitName),
		Body:    b.String(),
	}
}

// FormatPeso renders centavos as a peso amount, e.g. 70000050 -> "₱700,000.50".
func FormatPeso(centavos int64) string {
	sign := ""
	if centavos < 0 {
		sign = "-"
		centavos = -centavos
	}

	whole := fmt.Sprintf("%d", centavos/100)
	var grouped strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			grouped.WriteByte(',')
		}
		grouped.WriteRune(r)
	}
	return fmt.Sprintf("%s₱%s.%02d", sign, grouped.String(), centavos%100)
}
