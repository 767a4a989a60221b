/**
 * @description
 * Pipeline state machine for one supplier booking attempt.
 * Transitions are one-directional and single-attempt: FAILED is reachable from any
 * non-terminal state, and there is no re-entry from FAILED back into an earlier
 * state. A new attempt (new trace id) must be started instead.
 */

package models

// BookingState is the lifecycle position of a BookingAttempt.
type BookingState string

const (
	StateResolved           BookingState = "RESOLVED"
	StateSearched           BookingState = "SEARCHED"
	StateRoomFetched        BookingState = "ROOM_FETCHED"
	StateBlocked            BookingState = "BLOCKED"
	StateBooked             BookingState = "BOOKED"
	StateBookedPendingFunds BookingState = "BOOKED_PENDING_FUNDS"
	StateFailed             BookingState = "FAILED"
)

// forward transitions; FAILED is handled separately in CanTransition
var nextStates = map[BookingState]BookingState{
	StateResolved:    StateSearched,
	StateSearched:    StateRoomFetched,
	StateRoomFetched: StateBlocked,
	StateBlocked:     StateBooked,
}

// Terminal reports whether the state admits no further transitions.
// BOOKED and BOOKED_PENDING_FUNDS are both terminal successes; FAILED is terminal.
func (s BookingState) Terminal() bool {
	switch s {
	case StateBooked, StateBookedPendingFunds, StateFailed:
		return true
	}
	return false
}

// CanTransition reports whether moving from s to next is a legal pipeline step.
// BOOKED_PENDING_FUNDS is a distinguished terminal variant of BOOKED and is only
// reachable from BLOCKED, the same as BOOKED.
func (s BookingState) CanTransition(next BookingState) bool {
	if s.Terminal() {
		return false
	}
	if next == StateFailed {
		return true
	}
	if next == StateBookedPendingFunds {
		return s == StateBlocked
	}
	return nextStates[s] == next
}
