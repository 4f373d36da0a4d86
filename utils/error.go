package utils

import "errors"

var ErrorRecordNotFound = errors.New("record not found")

// Ingestion-time errors: rejected before any unit is created or mutated.
var (
	ErrMalformedRecord  = errors.New("malformed record")
	ErrCurrencyMismatch = errors.New("currency mismatch")
	ErrUnknownSource    = errors.New("unknown source")
)

// State-machine guards: rejected without side effects.
var (
	ErrInvalidTransition      = errors.New("invalid transition")
	ErrConcurrentModification = errors.New("concurrent modification")
	ErrDisputeAlreadyOpen     = errors.New("dispute already open")
	ErrUnitTerminal           = errors.New("unit is terminal")
	ErrDifferenceNotAccepted  = errors.New("difference not resolved or accepted")
)

// ErrorCode maps engine errors to stable codes the dashboard keys UI copy on
// ("someone else just updated this" vs a generic failure).
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrMalformedRecord):
		return "MALFORMED_RECORD"
	case errors.Is(err, ErrCurrencyMismatch):
		return "CURRENCY_MISMATCH"
	case errors.Is(err, ErrUnknownSource):
		return "UNKNOWN_SOURCE"
	case errors.Is(err, ErrInvalidTransition):
		return "INVALID_TRANSITION"
	case errors.Is(err, ErrConcurrentModification):
		return "CONCURRENT_MODIFICATION"
	case errors.Is(err, ErrDisputeAlreadyOpen):
		return "DISPUTE_ALREADY_OPEN"
	case errors.Is(err, ErrUnitTerminal):
		return "UNIT_TERMINAL"
	case errors.Is(err, ErrDifferenceNotAccepted):
		return "DIFFERENCE_NOT_ACCEPTED"
	case errors.Is(err, ErrorRecordNotFound):
		return "NOT_FOUND"
	default:
		return "INTERNAL"
	}
}
