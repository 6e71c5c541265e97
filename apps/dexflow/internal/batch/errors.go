package batch

import "fmt"

// ErrorKind classifies a per-order stage failure. Transient kinds leave the
// order at its current status for the next scheduled run; Terminal escalates
// to the failed status.
type ErrorKind int

const (
	// KindTransient covers network/RPC/API errors. Retried by re-entry.
	KindTransient ErrorKind = iota
	// KindInsufficientFunds means the wallet cannot cover the sell amount
	// yet. Re-checked every tick until funded externally.
	KindInsufficientFunds
	// KindRouteUnavailable means no swap route could be generated right now.
	KindRouteUnavailable
	// KindTerminal is an explicit rejection or revert. No automatic retry.
	KindTerminal
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindInsufficientFunds:
		return "insufficient_funds"
	case KindRouteUnavailable:
		return "route_unavailable"
	case KindTerminal:
		return "terminal"
	default:
		return "unknown"
	}
}

// StageError is the tagged failure carried through stage results in place of
// an untyped error, so callers can distinguish "retry next tick" from
// "escalate to failed".
type StageError struct {
	Kind    ErrorKind
	OrderID string
	Err     error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("order %s: %s: %v", e.OrderID, e.Kind, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether the order should stay at its current status.
func (e *StageError) IsRetryable() bool {
	return e.Kind != KindTerminal
}

func Transient(orderID string, err error) *StageError {
	return &StageError{Kind: KindTransient, OrderID: orderID, Err: err}
}

func InsufficientFunds(orderID string, err error) *StageError {
	return &StageError{Kind: KindInsufficientFunds, OrderID: orderID, Err: err}
}

func RouteUnavailable(orderID string, err error) *StageError {
	return &StageError{Kind: KindRouteUnavailable, OrderID: orderID, Err: err}
}

func Terminal(orderID string, err error) *StageError {
	return &StageError{Kind: KindTerminal, OrderID: orderID, Err: err}
}
