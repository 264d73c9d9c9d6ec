// Package broker wraps the Alpaca trade/market-data REST clients behind a
// narrow interface the trading core depends on, and layers an order-events
// stream with a reconnect supervisor on top.
package broker

import (
	"time"

	"tradingbridge/internal/models"

	"github.com/shopspring/decimal"
)

// Link is the surface the trading core needs from a broker: quoting,
// order placement/cancellation, and position/account reconciliation.
type Link interface {
	Qualify(symbol string) (*models.Asset, error)
	GetQuote(symbol string) (*models.Quote, error)
	GetClock() (*models.Clock, error)
	GetAccount() (*models.Account, error)

	PlaceOrder(symbol string, qty decimal.Decimal, side models.Side, orderType models.OrderType, limitPrice decimal.Decimal) (*models.Order, error)
	GetOrder(orderID string) (*models.Order, error)
	CancelOrder(orderID string) error
	ListOpenOrders() ([]models.Order, error)

	ListPositions() ([]models.BrokerPosition, error)
	GetPosition(symbol string) (*models.BrokerPosition, error)
}

// Event is a single asynchronous update delivered over the order-events
// stream: a fill, a status change, or a connection-state transition.
type Event struct {
	Kind          EventKind
	Order         *models.Order
	ConnState     models.ConnectionState
	OccurredAt    time.Time
	Err           error
}

// EventKind distinguishes the three shapes an Event can carry.
type EventKind string

const (
	EventFill       EventKind = "fill"
	EventStatus     EventKind = "status"
	EventConnection EventKind = "connection"
)
