package broker

import (
	"sync"

	"tradingbridge/internal/models"

	"github.com/shopspring/decimal"
)

// FakeLink is an in-memory Link used by tests elsewhere in this module.
// It is not behind a build tag because nothing outside _test.go files
// constructs it.
type FakeLink struct {
	mu sync.Mutex

	Assets    map[string]*models.Asset
	Quotes    map[string]*models.Quote
	Clock     *models.Clock
	Account   *models.Account
	Positions map[string]*models.BrokerPosition
	Orders    map[string]*models.Order

	NextOrderID int
	PlaceErr    error
	QuoteErr    error
	CancelErr   error
}

var _ Link = (*FakeLink)(nil)

func NewFakeLink() *FakeLink {
	return &FakeLink{
		Assets:    map[string]*models.Asset{},
		Quotes:    map[string]*models.Quote{},
		Positions: map[string]*models.BrokerPosition{},
		Orders:    map[string]*models.Order{},
		Clock:     &models.Clock{IsOpen: true},
		Account:   &models.Account{Equity: decimal.NewFromInt(100000), BuyingPower: decimal.NewFromInt(50000)},
	}
}

func (f *FakeLink) Qualify(symbol string) (*models.Asset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.Assets[symbol]
	if !ok {
		return nil, models.ErrSymbolUnknown(symbol)
	}
	return a, nil
}

func (f *FakeLink) GetQuote(symbol string) (*models.Quote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.QuoteErr != nil {
		return nil, models.ErrQuoteUnavailable(symbol, f.QuoteErr)
	}
	q, ok := f.Quotes[symbol]
	if !ok {
		return nil, models.ErrQuoteUnavailable(symbol, nil)
	}
	return q, nil
}

func (f *FakeLink) GetClock() (*models.Clock, error) { return f.Clock, nil }

func (f *FakeLink) GetAccount() (*models.Account, error) { return f.Account, nil }

func (f *FakeLink) PlaceOrder(symbol string, qty decimal.Decimal, side models.Side, orderType models.OrderType, limitPrice decimal.Decimal) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PlaceErr != nil {
		return nil, models.ErrPlacementRejected(symbol, f.PlaceErr)
	}
	f.NextOrderID++
	id := idFor(f.NextOrderID)
	o := &models.Order{
		ID: id, Symbol: symbol, Qty: qty, Side: side,
		Type: orderType, LimitPrice: limitPrice, Status: models.OrderOpen,
	}
	f.Orders[id] = o
	return o, nil
}

func (f *FakeLink) GetOrder(orderID string) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.Orders[orderID]
	if !ok {
		return nil, models.ErrPlacementRejected(orderID, nil)
	}
	return o, nil
}

func (f *FakeLink) CancelOrder(orderID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.CancelErr != nil {
		return f.CancelErr
	}
	o, ok := f.Orders[orderID]
	if !ok {
		return nil
	}
	o.Status = models.OrderCanceled
	return nil
}

func (f *FakeLink) ListOpenOrders() ([]models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Order
	for _, o := range f.Orders {
		if !o.Status.IsTerminal() {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (f *FakeLink) ListPositions() ([]models.BrokerPosition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.BrokerPosition
	for _, p := range f.Positions {
		out = append(out, *p)
	}
	return out, nil
}

func (f *FakeLink) GetPosition(symbol string) (*models.BrokerPosition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Positions[symbol], nil
}

func idFor(n int) string {
	const alphabet = "0123456789abcdef"
	if n == 0 {
		return "0"
	}
	var buf []byte
	for n > 0 {
		buf = append([]byte{alphabet[n%16]}, buf...)
		n /= 16
	}
	return "ord-" + string(buf)
}
