// Package models holds the data types shared across the trading bridge: the
// position state machine, signal and pending-order bookkeeping, and the
// broker-facing records mirrored from the Alpaca SDK's own shapes.
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PositionState is the three-state sequential position machine of the
// trading engine: a symbol is always exactly FLAT, LONG, or SHORT.
type PositionState string

const (
	Flat  PositionState = "FLAT"
	Long  PositionState = "LONG"
	Short PositionState = "SHORT"
)

// Action is the action requested by an inbound alert.
type Action string

const (
	ActionBuy   Action = "BUY"
	ActionSell  Action = "SELL"
	ActionShort Action = "SHORT"
	ActionCover Action = "COVER"
)

// Side is the broker-facing order side, derived from Action alone (BUY and
// COVER buy; SELL and SHORT sell).
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Signal is a parsed, validated inbound trading alert.
type Signal struct {
	Symbol     string
	Action     Action
	Quantity   decimal.Decimal
	Price      decimal.Decimal // optional hint from the alert source, may be zero
	ReceivedAt time.Time
}

// PositionRecord is the ledger's view of one symbol's current position.
type PositionRecord struct {
	Symbol        string
	State         PositionState
	Quantity      decimal.Decimal
	AvgEntryPrice decimal.Decimal
	UpdatedAt     time.Time
}

// ConnectionState is the broker-link supervisor's state machine.
type ConnectionState string

const (
	Disconnected ConnectionState = "DISCONNECTED"
	Connecting   ConnectionState = "CONNECTING"
	Connected    ConnectionState = "CONNECTED"
	Backoff      ConnectionState = "BACKOFF"
)

// SessionKind is the trading-session classification used to pick order type.
type SessionKind string

const (
	SessionPre     SessionKind = "PRE"
	SessionRegular SessionKind = "REGULAR"
	SessionPost    SessionKind = "POST"
	SessionClosed  SessionKind = "CLOSED"
)

// OrderType mirrors the broker's market/limit distinction chosen by session.
type OrderType string

const (
	OrderMarket OrderType = "market"
	OrderLimit  OrderType = "limit"
)

// OrderStatus is the broker's order lifecycle status.
type OrderStatus string

const (
	OrderPendingNew OrderStatus = "pending_new"
	OrderOpen       OrderStatus = "open"
	OrderFilled     OrderStatus = "filled"
	OrderCanceled   OrderStatus = "canceled"
	OrderRejected   OrderStatus = "rejected"
	OrderExpired    OrderStatus = "expired"
)

// IsTerminal reports whether an order in this status will never change again.
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case OrderFilled, OrderCanceled, OrderRejected, OrderExpired:
		return true
	default:
		return false
	}
}

// PendingOrder tracks an in-flight limit order awaiting a fill, subject to
// the timed cancel-and-replace policy. SubmittedAt is preserved across
// resubmissions (age-since-intent, not age-since-last-attempt); only
// LastResubmittedAt advances.
type PendingOrder struct {
	Symbol            string
	BrokerOrderID     string
	Signal            Signal
	Side              Side
	LimitPrice        decimal.Decimal
	SubmittedAt       time.Time
	LastResubmittedAt time.Time
	ResubmissionCount int
}
