/**
 * @description
 * Error taxonomy for the TBO hotel supplier API.
 * Maps the supplier's numeric error codes into a closed classification during
 * response normalization, so downstream code never string-matches raw messages.
 *
 * @notes
 * - ResponseStatus == 1 is the universal success sentinel across all TBO calls.
 * - The "insufficient agency balance" rejection on Book is special-cased: on
 *   non-production agency accounts it means the booking request itself was valid
 *   and would have confirmed but for account funding. It is classified as
 *   ClassPendingFunds, not as a genuine booking failure.
 */

package tbo

import (
	"errors"
	"fmt"
	"strings"
)

// Classification buckets a supplier failure for the orchestrator.
type Classification int

const (
	// ClassFatal terminates the attempt; retrying the same trace will not succeed.
	ClassFatal Classification = iota
	// ClassRetryable is a transient supplier-side condition worth a bounded retry.
	ClassRetryable
	// ClassPendingFunds means the booking request was accepted in every respect
	// except agency account funding.
	ClassPendingFunds
)

// InsufficientFundsMessage is the exact sentinel TBO returns on Book when the
// agency account cannot cover the reservation.
const InsufficientFundsMessage = "Agency do not have enough balance."

// CodeInsufficientFunds is the documented TBO error code for the same condition.
const CodeInsufficientFunds = 5004

// knownErrors maps documented TBO error codes to a readable message and class.
var knownErrors = map[int]struct {
	message string
	class   Classification
}{
	5001: {"invalid TokenId or authentication failed", ClassFatal},
	5002: {"hotel not available", ClassRetryable},
	5003: {"room not available", ClassRetryable},
	5004: {"agency balance insufficient", ClassPendingFunds},
	5005: {"invalid guest details", ClassFatal},
	5006: {"invalid passenger information", ClassFatal},
	5007: {"price changed significantly", ClassRetryable},
	5008: {"cancellation policy changed", ClassRetryable},
}

// SupplierError is a normalized TBO failure: the stage that produced it, the
// supplier's code/message preserved verbatim, and its classification.
type SupplierError struct {
	Op      string // supplier operation, e.g. "BlockRoom"
	Code    int
	Message string // raw supplier message, never rewritten
	Class   Classification
}

func (e *SupplierError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("tbo %s failed: %s (code=%d)", e.Op, e.Message, e.Code)
	}
	return fmt.Sprintf("tbo %s failed: %s", e.Op, e.Message)
}

// newSupplierError classifies a non-success supplier response.
// Unknown codes fall back to an unclassified fatal error that still preserves
// the raw message for diagnostics.
func newSupplierError(op string, code int, message string) *SupplierError {
	class := ClassFatal
	if known, ok := knownErrors[code]; ok {
		class = known.class
	} else if strings.TrimSpace(message) == InsufficientFundsMessage {
		// Some environments return the balance rejection without its code.
		class = ClassPendingFunds
	}
	if message == "" {
		message = "unclassified supplier error"
	}
	return &SupplierError{Op: op, Code: code, Message: message, Class: class}
}

// IsPendingFunds reports whether err is the insufficient-agency-balance
// rejection, i.e. a logically successful booking request.
func IsPendingFunds(err error) bool {
	var se *SupplierError
	return errors.As(err, &se) && se.Class == ClassPendingFunds
}

// IsFatal reports whether err terminates the attempt with no retry.
func IsFatal(err error) bool {
	var se *SupplierError
	if errors.As(err, &se) {
		return se.Class == ClassFatal
	}
	return false
}

// Fatal conditions raised client-side rather than by the supplier. All of them
// terminate the attempt without retry.
var (
	// ErrDestinationNotFound: the destination could not be resolved to a supplier
	// location id. Correct the input upstream; retrying cannot help.
	ErrDestinationNotFound = errors.New("tbo: destination not resolvable")

	// ErrNoHotels: search succeeded but returned zero offers.
	ErrNoHotels = errors.New("tbo: search returned no hotels")

	// ErrNoRooms: the selected offer had no rooms left between search and fetch.
	ErrNoRooms = errors.New("tbo: no rooms available for selected hotel")
)
