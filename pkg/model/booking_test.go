package model

import "testing"

func TestBookingStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from BookingStatus
		to   BookingStatus
		want bool
	}{
		{BookingPending, BookingConfirmed, true},
		{BookingPending, BookingCancelled, true},
		{BookingPending, BookingCompleted, false},
		{BookingConfirmed, BookingCompleted, true},
		{BookingConfirmed, BookingCancelled, true},
		{BookingConfirmed, BookingPending, false},
		{BookingCancelled, BookingConfirmed, false},
		{BookingCancelled, BookingPending, false},
		{BookingCompleted, BookingCancelled, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
				t.Errorf("CanTransitionTo() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBookingStatus_IsTerminal(t *testing.T) {
	for status, want := range map[BookingStatus]bool{
		BookingPending:   false,
		BookingConfirmed: false,
		BookingCancelled: true,
		BookingCompleted: true,
		"UNKNOWN":        false,
	} {
		if got := status.IsTerminal(); got != want {
			t.Errorf("%s.IsTerminal() = %v, want %v", status, got, want)
		}
	}
}

func TestSourcesOf(t *testing.T) {
	got := SourcesOf(BookingCancelled)
	if len(got) != 2 || got[0] != BookingPending || got[1] != BookingConfirmed {
		t.Errorf("SourcesOf(CANCELLED) = %v", got)
	}
	if got := SourcesOf(BookingPending); len(got) != 0 {
		t.Errorf("nothing may re-enter PENDING, got %v", got)
	}
}

func TestActor_HasRole(t *testing.T) {
	if (Actor{Role: RoleAdmin}).HasRole(RoleAdmin) {
		t.Errorf("anonymous actor must not carry a role")
	}
	if !(Actor{ID: "a1", Role: RoleAgent}).HasRole(RoleAdmin, RoleAgent) {
		t.Errorf("agent should match")
	}
	if (Actor{ID: "g1", Role: RoleGuest}).HasRole(RoleAdmin) {
		t.Errorf("guest should not match admin")
	}
}
