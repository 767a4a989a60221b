package models

import "testing"

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from    BookingState
		to      BookingState
		allowed bool
	}{
		{StateResolved, StateSearched, true},
		{StateSearched, StateRoomFetched, true},
		{StateRoomFetched, StateBlocked, true},
		{StateBlocked, StateBooked, true},
		{StateBlocked, StateBookedPendingFunds, true},

		// No skipping stages.
		{StateResolved, StateBlocked, false},
		{StateSearched, StateBooked, false},
		{StateRoomFetched, StateBookedPendingFunds, false},

		// No going backwards.
		{StateBlocked, StateSearched, false},
		{StateBooked, StateBlocked, false},

		// Any non-terminal state can fail.
		{StateResolved, StateFailed, true},
		{StateSearched, StateFailed, true},
		{StateRoomFetched, StateFailed, true},
		{StateBlocked, StateFailed, true},

		// Terminal states stay terminal.
		{StateBooked, StateFailed, false},
		{StateBookedPendingFunds, StateFailed, false},
		{StateFailed, StateSearched, false},
		{StateFailed, StateFailed, false},
	}

	for _, tc := range cases {
		if got := tc.from.CanTransition(tc.to); got != tc.allowed {
			t.Errorf("CanTransition(%s -> %s) = %v, want %v", tc.from, tc.to, got, tc.allowed)
		}
	}
}

func TestTerminal(t *testing.T) {
	terminal := []BookingState{StateBooked, StateBookedPendingFunds, StateFailed}
	for _, s := range terminal {
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	live := []BookingState{StateResolved, StateSearched, StateRoomFetched, StateBlocked}
	for _, s := range live {
		if s.Terminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}
