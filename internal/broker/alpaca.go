package broker

import (
	"fmt"
	"strings"

	"tradingbridge/internal/models"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// AlpacaLink implements Link against the real Alpaca REST APIs. Method
// shapes mirror the original provider: values where the SDK returns values,
// nil-checked dereferences where it returns optional pointers.
type AlpacaLink struct {
	md   *marketdata.Client
	trade *alpaca.Client
	log  zerolog.Logger
}

var _ Link = (*AlpacaLink)(nil)

// NewAlpacaLink builds a broker link from the configured key/secret/base URL.
func NewAlpacaLink(keyID, secretKey, baseURL string, log zerolog.Logger) *AlpacaLink {
	return &AlpacaLink{
		md: marketdata.NewClient(marketdata.ClientOpts{
			APIKey: keyID, APISecret: secretKey,
		}),
		trade: alpaca.NewClient(alpaca.ClientOpts{
			APIKey: keyID, APISecret: secretKey, BaseURL: baseURL,
		}),
		log: log.With().Str("component", "broker").Logger(),
	}
}

// Qualify confirms the symbol is a known, tradable US equity asset.
func (l *AlpacaLink) Qualify(symbol string) (*models.Asset, error) {
	assets, err := l.trade.GetAssets(alpaca.GetAssetsRequest{
		Status: "active", AssetClass: "us_equity",
	})
	if err != nil {
		return nil, fmt.Errorf("listing assets: %w", err)
	}
	upper := strings.ToUpper(symbol)
	for _, a := range assets {
		if strings.EqualFold(a.Symbol, upper) {
			if !a.Tradable {
				return nil, models.ErrSymbolUnknown(symbol)
			}
			return &models.Asset{
				ID: a.ID, Symbol: a.Symbol, Name: a.Name,
				Class: string(a.Class), Exchange: a.Exchange,
				Status: string(a.Status), Tradable: a.Tradable,
			}, nil
		}
	}
	return nil, models.ErrSymbolUnknown(symbol)
}

// GetQuote returns the latest best bid/ask for symbol.
func (l *AlpacaLink) GetQuote(symbol string) (*models.Quote, error) {
	q, err := l.md.GetLatestQuote(symbol, marketdata.GetLatestQuoteRequest{})
	if err != nil {
		return nil, models.ErrQuoteUnavailable(symbol, err)
	}
	if q == nil {
		return nil, models.ErrQuoteUnavailable(symbol, nil)
	}
	return &models.Quote{
		Symbol:    symbol,
		BidPrice:  decimal.NewFromFloat(q.BidPrice),
		AskPrice:  decimal.NewFromFloat(q.AskPrice),
		Timestamp: q.Timestamp,
	}, nil
}

// GetClock returns the broker's current market-clock snapshot.
func (l *AlpacaLink) GetClock() (*models.Clock, error) {
	c, err := l.trade.GetClock()
	if err != nil {
		return nil, fmt.Errorf("getting clock: %w", err)
	}
	return &models.Clock{
		Timestamp: c.Timestamp, IsOpen: c.IsOpen,
		NextOpen: c.NextOpen, NextClose: c.NextClose,
	}, nil
}

// GetAccount returns the broker account's equity/buying-power snapshot.
func (l *AlpacaLink) GetAccount() (*models.Account, error) {
	a, err := l.trade.GetAccount()
	if err != nil {
		return nil, fmt.Errorf("getting account: %w", err)
	}
	return &models.Account{
		ID: a.ID, Currency: a.Currency,
		Equity: a.Equity, BuyingPower: a.BuyingPower, Cash: a.Cash,
	}, nil
}

// PlaceOrder submits a single market or limit order. Bracket orders
// (stop-loss/take-profit) are out of scope here — this bridge places one
// order per signal and tracks its own resubmission policy instead.
func (l *AlpacaLink) PlaceOrder(symbol string, qty decimal.Decimal, side models.Side, orderType models.OrderType, limitPrice decimal.Decimal) (*models.Order, error) {
	req := alpaca.PlaceOrderRequest{
		Symbol:      symbol,
		Qty:         &qty,
		Side:        alpaca.Side(side),
		TimeInForce: alpaca.Day,
	}
	switch orderType {
	case models.OrderLimit:
		req.Type = alpaca.Limit
		req.LimitPrice = &limitPrice
	default:
		req.Type = alpaca.Market
	}

	o, err := l.trade.PlaceOrder(req)
	if err != nil {
		return nil, models.ErrPlacementRejected(symbol, err)
	}
	return mapOrder(o), nil
}

// GetOrder fetches a single order's current state by broker order ID.
func (l *AlpacaLink) GetOrder(orderID string) (*models.Order, error) {
	o, err := l.trade.GetOrder(orderID)
	if err != nil {
		return nil, fmt.Errorf("getting order %s: %w", orderID, err)
	}
	return mapOrder(o), nil
}

// CancelOrder requests cancellation of an open order.
func (l *AlpacaLink) CancelOrder(orderID string) error {
	if err := l.trade.CancelOrder(orderID); err != nil {
		return fmt.Errorf("canceling order %s: %w", orderID, err)
	}
	return nil
}

// ListOpenOrders returns orders still in a non-terminal, working state.
func (l *AlpacaLink) ListOpenOrders() ([]models.Order, error) {
	orders, err := l.trade.GetOrders(alpaca.GetOrdersRequest{Status: "open", Limit: 100})
	if err != nil {
		return nil, fmt.Errorf("listing open orders: %w", err)
	}
	result := make([]models.Order, 0, len(orders))
	for i := range orders {
		result = append(result, *mapOrder(&orders[i]))
	}
	return result, nil
}

// ListPositions returns every currently held broker position.
func (l *AlpacaLink) ListPositions() ([]models.BrokerPosition, error) {
	positions, err := l.trade.GetPositions()
	if err != nil {
		return nil, fmt.Errorf("listing positions: %w", err)
	}
	result := make([]models.BrokerPosition, 0, len(positions))
	for _, x := range positions {
		result = append(result, mapPosition(x))
	}
	return result, nil
}

// GetPosition returns the broker's current position for a single symbol,
// or nil if the symbol is currently flat at the broker.
func (l *AlpacaLink) GetPosition(symbol string) (*models.BrokerPosition, error) {
	p, err := l.trade.GetPosition(symbol)
	if err != nil {
		if strings.Contains(err.Error(), "404") || strings.Contains(err.Error(), "position does not exist") {
			return nil, nil
		}
		return nil, fmt.Errorf("getting position %s: %w", symbol, err)
	}
	pos := mapPosition(*p)
	return &pos, nil
}

func mapPosition(x alpaca.Position) models.BrokerPosition {
	current := decimal.Zero
	if x.CurrentPrice != nil {
		current = *x.CurrentPrice
	}
	marketValue := decimal.Zero
	if x.MarketValue != nil {
		marketValue = *x.MarketValue
	}
	unrealizedPL := decimal.Zero
	if x.UnrealizedPL != nil {
		unrealizedPL = *x.UnrealizedPL
	}
	return models.BrokerPosition{
		Symbol:        x.Symbol,
		Qty:           x.Qty,
		AvgEntryPrice: x.AvgEntryPrice,
		CurrentPrice:  current,
		MarketValue:   marketValue,
		UnrealizedPL:  unrealizedPL,
	}
}

func mapOrder(o *alpaca.Order) *models.Order {
	if o == nil {
		return nil
	}
	qty := decimal.Zero
	if o.Qty != nil {
		qty = *o.Qty
	}
	var limitPrice decimal.Decimal
	if o.LimitPrice != nil {
		limitPrice = *o.LimitPrice
	}
	var filledAvgPrice decimal.Decimal
	if o.FilledAvgPrice != nil {
		filledAvgPrice = *o.FilledAvgPrice
	}
	res := &models.Order{
		ID:             o.ID,
		ClientOrderID:  o.ClientOrderID,
		Symbol:         o.Symbol,
		Qty:            qty,
		FilledQty:      o.FilledQty,
		Type:           models.OrderType(o.Type),
		Side:           models.Side(o.Side),
		Status:         mapStatus(string(o.Status)),
		LimitPrice:     limitPrice,
		FilledAvgPrice: filledAvgPrice,
		CreatedAt:      o.CreatedAt,
	}
	if o.FilledAt != nil {
		res.FilledAt = o.FilledAt
	}
	return res
}

// mapStatus collapses Alpaca's finer-grained order statuses down to the
// taxonomy the trading core reasons about.
func mapStatus(s string) models.OrderStatus {
	switch s {
	case "filled":
		return models.OrderFilled
	case "canceled", "pending_cancel":
		return models.OrderCanceled
	case "rejected":
		return models.OrderRejected
	case "expired":
		return models.OrderExpired
	case "new", "accepted", "pending_new", "accepted_for_bidding":
		return models.OrderPendingNew
	default:
		return models.OrderOpen
	}
}
