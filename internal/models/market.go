package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order is the broker's view of a single order, decimal-valued throughout.
type Order struct {
	ID             string
	ClientOrderID  string
	Symbol         string
	Qty            decimal.Decimal
	FilledQty      decimal.Decimal
	Type           OrderType
	Side           Side
	Status         OrderStatus
	LimitPrice     decimal.Decimal
	FilledAvgPrice decimal.Decimal
	CreatedAt      time.Time
	FilledAt       *time.Time
	FailReason     string
}

// Quote is a best bid/ask snapshot for a symbol.
type Quote struct {
	Symbol    string
	BidPrice  decimal.Decimal
	AskPrice  decimal.Decimal
	Timestamp time.Time
}

// Mid returns the midpoint of bid and ask. It is the only reference price
// the executor uses for limit orders; there is no last-trade fallback, and
// a zero midpoint is reported as an unavailable quote.
func (q Quote) Mid() decimal.Decimal {
	return q.BidPrice.Add(q.AskPrice).Div(decimal.NewFromInt(2))
}

// Account is the broker account's equity/buying-power snapshot.
type Account struct {
	ID          string
	Currency    string
	Equity      decimal.Decimal
	BuyingPower decimal.Decimal
	Cash        decimal.Decimal
}

// Clock is the broker's market-clock snapshot.
type Clock struct {
	Timestamp time.Time
	IsOpen    bool
	NextOpen  time.Time
	NextClose time.Time
}

// Asset is a tradable instrument returned from a symbol search/qualify call.
type Asset struct {
	ID       string
	Symbol   string
	Name     string
	Class    string
	Exchange string
	Status   string
	Tradable bool
}

// BrokerPosition is the broker's own view of a held position, used to
// reconcile the local ledger against ground truth.
type BrokerPosition struct {
	Symbol        string
	Qty           decimal.Decimal
	AvgEntryPrice decimal.Decimal
	CurrentPrice  decimal.Decimal
	MarketValue   decimal.Decimal
	UnrealizedPL  decimal.Decimal
}
