// Package tracker owns the lifecycle of pending limit orders: registering
// them, sweeping for ones stale enough to cancel-and-replace, and retiring
// them when a terminal broker event arrives.
package tracker

import (
	"sync"
	"time"

	"tradingbridge/internal/broker"
	"tradingbridge/internal/models"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Tracker holds every order currently awaiting a fill, keyed by the
// broker's order ID. Mutation is serialized per instance — callers in this
// module never hold two trackers for the same symbol.
type Tracker struct {
	link broker.Link
	log  zerolog.Logger

	timeout          time.Duration
	maxResubmissions int

	mu      sync.Mutex
	pending map[string]*models.PendingOrder // keyed by BrokerOrderID
}

func New(link broker.Link, timeout time.Duration, maxResubmissions int, log zerolog.Logger) *Tracker {
	return &Tracker{
		link: link, log: log.With().Str("component", "tracker").Logger(),
		timeout: timeout, maxResubmissions: maxResubmissions,
		pending: make(map[string]*models.PendingOrder),
	}
}

// Register begins tracking a freshly-placed limit order. SubmittedAt is set
// once here and preserved across resubmissions; the resubmission clock in
// Sweep runs from the later of SubmittedAt and LastResubmittedAt, so after
// a resubmission it measures age since that resubmission.
func (t *Tracker) Register(order *models.Order, signal models.Signal) {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := time.Now()
	t.pending[order.ID] = &models.PendingOrder{
		Symbol: order.Symbol, BrokerOrderID: order.ID, Signal: signal,
		Side: order.Side, LimitPrice: order.LimitPrice,
		SubmittedAt: now, LastResubmittedAt: now,
	}
}

// OnTerminal removes a pending order once the broker reports a terminal
// status for it (filled, canceled outright, rejected, or expired).
func (t *Tracker) OnTerminal(brokerOrderID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.pending, brokerOrderID)
}

// Snapshot returns every order still being tracked, for status reporting.
func (t *Tracker) Snapshot() []models.PendingOrder {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]models.PendingOrder, 0, len(t.pending))
	for _, p := range t.pending {
		out = append(out, *p)
	}
	return out
}

// Count returns the number of orders currently pending.
func (t *Tracker) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}

// replacePrice is the resubmission's signature: it recomputes a fresh
// buffered limit price for the same side.
type replacePrice func(symbol string, side models.Side) (decimal.Decimal, error)

// Sweep walks every pending order and resubmits the ones whose age since
// the last action (the original submission, or the most recent
// resubmission if any) has crossed the configured timeout, provided they
// haven't hit the resubmission cap. Orders that hit the cap are dropped from
// the tracker and then reported back via onCapped so the caller can notify.
func (t *Tracker) Sweep(price replacePrice, onCapped func(models.PendingOrder)) {
	t.mu.Lock()
	due := make([]*models.PendingOrder, 0)
	now := time.Now()
	for _, p := range t.pending {
		if now.Sub(latest(p.LastResubmittedAt, p.SubmittedAt)) >= t.timeout {
			due = append(due, p)
		}
	}
	t.mu.Unlock()

	for _, p := range due {
		t.resubmit(p, price, onCapped)
	}
}

// latest returns whichever of a, b is later.
func latest(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func (t *Tracker) resubmit(p *models.PendingOrder, price replacePrice, onCapped func(models.PendingOrder)) {
	t.mu.Lock()
	current, stillPending := t.pending[p.BrokerOrderID]
	t.mu.Unlock()
	if !stillPending {
		// A concurrent fill/status event already retired this order.
		return
	}

	if current.ResubmissionCount >= t.maxResubmissions {
		t.mu.Lock()
		delete(t.pending, current.BrokerOrderID)
		t.mu.Unlock()
		err := models.ErrMaxResubmissionsReached(current.Symbol, current.BrokerOrderID)
		t.log.Warn().Err(err).Int("resubmissions", current.ResubmissionCount).Msg("giving up on pending order")
		onCapped(*current)
		return
	}

	// A cancel failure doesn't stop the replace attempt: the broker may
	// have already filled the order, in which case the next terminal
	// event reconciles the tracker and ledger regardless of what happens
	// here.
	if err := t.link.CancelOrder(current.BrokerOrderID); err != nil {
		t.log.Warn().Err(err).Str("broker_order_id", current.BrokerOrderID).
			Msg("cancel before resubmit failed, continuing with replace")
	}

	newPrice, err := price(current.Symbol, current.Side)
	if err != nil {
		t.log.Warn().Err(err).Str("symbol", current.Symbol).Msg("repricing resubmission failed")
		return
	}

	newOrder, err := t.link.PlaceOrder(current.Symbol, current.Signal.Quantity, current.Side, models.OrderLimit, newPrice)
	if err != nil {
		t.log.Warn().Err(err).Str("symbol", current.Symbol).Msg("resubmission placement failed")
		return
	}

	t.mu.Lock()
	delete(t.pending, current.BrokerOrderID)
	t.pending[newOrder.ID] = &models.PendingOrder{
		Symbol: current.Symbol, BrokerOrderID: newOrder.ID, Signal: current.Signal,
		Side: current.Side, LimitPrice: newPrice,
		SubmittedAt: current.SubmittedAt, // preserved: age-since-intent
		LastResubmittedAt: time.Now(), ResubmissionCount: current.ResubmissionCount + 1,
	}
	t.mu.Unlock()

	t.log.Info().Str("symbol", current.Symbol).
		Str("old_broker_order_id", current.BrokerOrderID).Str("new_broker_order_id", newOrder.ID).
		Int("resubmission_count", current.ResubmissionCount+1).Msg("order resubmitted")
}

