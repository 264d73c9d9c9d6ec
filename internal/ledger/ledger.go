// Package ledger tracks each symbol's position state, rebuilding itself
// from the broker's own account of positions rather than from any local
// persistence.
package ledger

import (
	"fmt"
	"sync"
	"time"

	"tradingbridge/internal/broker"
	"tradingbridge/internal/models"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Ledger is the in-memory, broker-reconciled source of truth for position
// state. It holds no file-backed state: a restart calls Refresh and derives
// everything from the broker.
type Ledger struct {
	link broker.Link
	log  zerolog.Logger

	mu        sync.RWMutex
	positions map[string]models.PositionRecord
}

func New(link broker.Link, log zerolog.Logger) *Ledger {
	return &Ledger{
		link:      link,
		log:       log.With().Str("component", "ledger").Logger(),
		positions: make(map[string]models.PositionRecord),
	}
}

// Get returns the current record for symbol, defaulting to FLAT with zero
// quantity if the symbol has never been seen.
func (l *Ledger) Get(symbol string) models.PositionRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if r, ok := l.positions[symbol]; ok {
		return r
	}
	return models.PositionRecord{Symbol: symbol, State: models.Flat}
}

// Refresh rebuilds the ledger's view of symbol from the broker's current
// position. A zero or absent broker position means FLAT; a positive
// quantity held at the broker is LONG (shorts surface as a negative Qty in
// the broker's own convention, mapped to SHORT here).
func (l *Ledger) Refresh(symbol string) (models.PositionRecord, error) {
	pos, err := l.link.GetPosition(symbol)
	if err != nil {
		return models.PositionRecord{}, fmt.Errorf("refreshing %s: %w", symbol, err)
	}

	rec := models.PositionRecord{Symbol: symbol, State: models.Flat, UpdatedAt: time.Now()}
	if pos != nil && !pos.Qty.IsZero() {
		if pos.Qty.IsNegative() {
			rec.State = models.Short
			rec.Quantity = pos.Qty.Abs()
		} else {
			rec.State = models.Long
			rec.Quantity = pos.Qty
		}
		rec.AvgEntryPrice = pos.AvgEntryPrice
	}

	l.mu.Lock()
	l.positions[symbol] = rec
	l.mu.Unlock()

	l.log.Debug().Str("symbol", symbol).Str("state", string(rec.State)).
		Str("qty", rec.Quantity.String()).Msg("ledger refreshed from broker")

	return rec, nil
}

// RefreshAll reconciles every symbol currently known to the ledger plus any
// position the broker reports that the ledger hasn't seen yet.
func (l *Ledger) RefreshAll() error {
	positions, err := l.link.ListPositions()
	if err != nil {
		return fmt.Errorf("listing broker positions: %w", err)
	}

	seen := make(map[string]bool, len(positions))
	for _, p := range positions {
		seen[p.Symbol] = true
		if _, err := l.Refresh(p.Symbol); err != nil {
			return err
		}
	}

	l.mu.Lock()
	for symbol, rec := range l.positions {
		if !seen[symbol] && rec.State != models.Flat {
			l.positions[symbol] = models.PositionRecord{Symbol: symbol, State: models.Flat, UpdatedAt: time.Now()}
		}
	}
	l.mu.Unlock()

	return nil
}

// ApplyFill overwrites the local record for symbol with the given state,
// quantity and average price without consulting the broker. The controller
// calls it right after placing a market order; the next Refresh (which
// ProcessSignal runs before every decision) replaces it with broker truth.
func (l *Ledger) ApplyFill(symbol string, newState models.PositionState, qty, avgPrice decimal.Decimal) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.positions[symbol] = models.PositionRecord{
		Symbol: symbol, State: newState, Quantity: qty,
		AvgEntryPrice: avgPrice, UpdatedAt: time.Now(),
	}
}
