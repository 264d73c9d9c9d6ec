package models

import "fmt"

// TradingError is the structured, non-retriable error shape surfaced to
// callers of the trading core. Every sentinel below carries enough context
// to serialize without string-parsing.
type TradingError struct {
	Code    string
	Symbol  string
	Detail  string
	wrapped error
}

func (e *TradingError) Error() string {
	if e.Symbol != "" {
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Symbol, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Detail)
}

func (e *TradingError) Unwrap() error { return e.wrapped }

func newErr(code, symbol, detail string, wrapped error) *TradingError {
	return &TradingError{Code: code, Symbol: symbol, Detail: detail, wrapped: wrapped}
}

// ErrSymbolUnknown is returned when a signal names a symbol the broker
// cannot qualify.
func ErrSymbolUnknown(symbol string) error {
	return newErr("SymbolUnknown", symbol, "symbol could not be qualified with the broker", nil)
}

// ErrQuoteUnavailable is returned when no usable quote can be obtained.
func ErrQuoteUnavailable(symbol string, cause error) error {
	return newErr("QuoteUnavailable", symbol, "no quote available to price the order", cause)
}

// ErrPlacementRejected is returned when the broker rejects an order request.
func ErrPlacementRejected(symbol string, cause error) error {
	return newErr("PlacementRejected", symbol, "broker rejected the order", cause)
}

// ErrInvalidTransition is returned when an action is not valid for the
// symbol's current position state.
func ErrInvalidTransition(symbol string, state PositionState, action Action) error {
	return newErr("InvalidTransition", symbol,
		fmt.Sprintf("action %s is not valid from state %s", action, state), nil)
}

// ErrSessionClosed is returned when no session permits trading right now.
// reason carries the session decision's explanation (e.g. "market is
// closed", "pre-market trading disabled") so callers don't have to
// re-derive why.
func ErrSessionClosed(symbol, reason string) error {
	return newErr("SessionClosed", symbol, reason, nil)
}

// ErrQuantityExceedsMax is returned when a signal's requested quantity
// exceeds the configured maximum position size.
func ErrQuantityExceedsMax(symbol string, requested, max int64) error {
	return newErr("QuantityExceedsMax", symbol,
		fmt.Sprintf("requested quantity %d exceeds max position size %d", requested, max), nil)
}

// ErrLinkLost is returned when the broker link is lost: the stream
// supervisor has exhausted its bounded reconnect attempts, or a broker call
// needed to process a signal failed. cause carries the underlying error.
func ErrLinkLost(cause error) error {
	return newErr("LinkLost", "", "broker link lost", cause)
}

// ErrMaxResubmissionsReached is returned when a pending order has hit its
// resubmission cap without filling.
func ErrMaxResubmissionsReached(symbol string, brokerOrderID string) error {
	return newErr("MaxResubmissionsReached", symbol,
		fmt.Sprintf("order %s reached the resubmission cap without filling", brokerOrderID), nil)
}
