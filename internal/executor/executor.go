// Package executor turns a validated signal into a concrete broker order:
// picking market vs. limit by session, and computing the limit-price buffer
// when a limit order is required.
package executor

import (
	"fmt"
	"time"

	"tradingbridge/internal/broker"
	"tradingbridge/internal/models"
	"tradingbridge/internal/session"
	"tradingbridge/internal/validator"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// buffer is applied to the reference price to build a marketable limit
// price: above the price for a buy, below it for a sell.
var buffer = decimal.NewFromFloat(0.001)

// Executor places the broker order for a validated signal.
type Executor struct {
	link  broker.Link
	clock *session.Clock
	log   zerolog.Logger

	enablePreMarket  bool
	enablePostMarket bool
}

func New(link broker.Link, clock *session.Clock, enablePreMarket, enablePostMarket bool, log zerolog.Logger) *Executor {
	return &Executor{
		link: link, clock: clock, log: log.With().Str("component", "executor").Logger(),
		enablePreMarket: enablePreMarket, enablePostMarket: enablePostMarket,
	}
}

// Plan is the computed order shape before submission, returned separately
// from Execute so the caller can inspect it (the controller uses OrderType
// to decide whether the placed order is tracked as pending).
type Plan struct {
	Side       models.Side
	OrderType  models.OrderType
	LimitPrice decimal.Decimal
	Session    models.SessionKind
}

// Decide reports the session classification and order-type policy for dt,
// without touching the broker. Split out from Plan so callers can enforce
// the session gate ahead of other validation (a closed-session signal
// must be rejected as SessionClosed, not as an invalid transition).
func (e *Executor) Decide(dt time.Time) session.Decision {
	return e.clock.Decide(dt, e.enablePreMarket, e.enablePostMarket)
}

// Plan decides the order shape for an already-gated session decision:
// qualifying the symbol with the broker and, for limit orders, computing
// the buffered price. CanTrade is re-checked defensively, but callers are
// expected to have gated on Decide first.
func (e *Executor) Plan(signal models.Signal, side models.Side, decision session.Decision) (Plan, error) {
	if !decision.CanTrade {
		return Plan{}, models.ErrSessionClosed(signal.Symbol, decision.Reason)
	}

	if _, err := e.link.Qualify(signal.Symbol); err != nil {
		return Plan{}, models.ErrSymbolUnknown(signal.Symbol)
	}

	plan := Plan{Side: side, OrderType: decision.OrderType, Session: decision.Session}
	if decision.OrderType != models.OrderLimit {
		return plan, nil
	}

	quote, err := e.link.GetQuote(signal.Symbol)
	if err != nil {
		return Plan{}, err
	}
	reference := quote.Mid()
	if reference.IsZero() {
		return Plan{}, models.ErrQuoteUnavailable(signal.Symbol, fmt.Errorf("zero-width quote"))
	}

	plan.LimitPrice = bufferedPrice(reference, side)
	return plan, nil
}

// RepriceLimit recomputes a fresh buffered limit price for a resubmission.
// It is independent of the current session decision: once an order is a
// pending limit order, cancel-and-replace keeps it a limit order at a
// fresh price until the resubmission cap is reached, regardless of which
// session the sweep happens to land in.
func (e *Executor) RepriceLimit(symbol string, side models.Side) (decimal.Decimal, error) {
	quote, err := e.link.GetQuote(symbol)
	if err != nil {
		return decimal.Decimal{}, err
	}
	reference := quote.Mid()
	if reference.IsZero() {
		return decimal.Decimal{}, models.ErrQuoteUnavailable(symbol, fmt.Errorf("zero-width quote"))
	}
	return bufferedPrice(reference, side), nil
}

// bufferedPrice nudges the reference price by the marketability buffer and
// rounds to two decimals with banker's rounding (round-half-to-even),
// matching the original engine's `round(price, 2)` on Python's default
// banker's-rounding float behavior.
func bufferedPrice(reference decimal.Decimal, side models.Side) decimal.Decimal {
	var adjusted decimal.Decimal
	if side == models.SideBuy {
		adjusted = reference.Mul(decimal.NewFromInt(1).Add(buffer))
	} else {
		adjusted = reference.Mul(decimal.NewFromInt(1).Sub(buffer))
	}
	return adjusted.RoundBank(2)
}

// Execute submits the planned order and returns the broker's resulting
// order record.
func (e *Executor) Execute(signal models.Signal, plan Plan) (*models.Order, error) {
	order, err := e.link.PlaceOrder(signal.Symbol, signal.Quantity, plan.Side, plan.OrderType, plan.LimitPrice)
	if err != nil {
		return nil, err
	}
	e.log.Info().Str("symbol", signal.Symbol).Str("side", string(plan.Side)).
		Str("type", string(plan.OrderType)).Str("broker_order_id", order.ID).Msg("order submitted")
	return order, nil
}

// BrokerSide re-exports the validator's action->side mapping so callers of
// this package don't need to import validator directly just for that.
func BrokerSide(action models.Action) models.Side { return validator.BrokerSide(action) }
