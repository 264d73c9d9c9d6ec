// Package core wires the ledger, validator, executor, and tracker into the
// trading controller: one entry point for inbound signals, one structured
// task tree for the broker-event drain and the resubmission sweep.
package core

import (
	"context"
	"fmt"
	"sync"
	"time"

	"tradingbridge/internal/broker"
	"tradingbridge/internal/executor"
	"tradingbridge/internal/ledger"
	"tradingbridge/internal/models"
	"tradingbridge/internal/tracker"
	"tradingbridge/internal/validator"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// Controller processes inbound signals against the ledger, validator, and
// executor, and runs the broker-event drain plus the resubmission sweep
// as a structured task tree rooted on the broker link.
type Controller struct {
	link     broker.Link
	ledger   *ledger.Ledger
	executor *executor.Executor
	tracker  *tracker.Tracker
	stream   *broker.Supervisor
	log      zerolog.Logger

	maxPositionSize int64
	sweepInterval   time.Duration

	onTerminal func(models.Order, string) // symbol outcome notification hook
	onCapped   func(models.PendingOrder)

	symbolLocks sync.Map // string -> *sync.Mutex
}

// Config bundles the constructor's dependencies.
type Config struct {
	Link            broker.Link
	Ledger          *ledger.Ledger
	Executor        *executor.Executor
	Tracker         *tracker.Tracker
	Stream          *broker.Supervisor
	MaxPositionSize int64
	SweepInterval   time.Duration
	Log             zerolog.Logger
	OnTerminal      func(models.Order, string)
	OnCapped        func(models.PendingOrder)
}

func New(cfg Config) *Controller {
	onTerminal := cfg.OnTerminal
	if onTerminal == nil {
		onTerminal = func(models.Order, string) {}
	}
	onCapped := cfg.OnCapped
	if onCapped == nil {
		onCapped = func(models.PendingOrder) {}
	}
	return &Controller{
		link: cfg.Link, ledger: cfg.Ledger, executor: cfg.Executor, tracker: cfg.Tracker,
		stream: cfg.Stream, log: cfg.Log.With().Str("component", "core").Logger(),
		maxPositionSize: cfg.MaxPositionSize, sweepInterval: cfg.SweepInterval,
		onTerminal: onTerminal, onCapped: onCapped,
	}
}

// lockFor returns the per-symbol mutex, creating it on first use. Two
// signals for different symbols never block each other; two signals for
// the same symbol are strictly serialized.
func (c *Controller) lockFor(symbol string) *sync.Mutex {
	actual, _ := c.symbolLocks.LoadOrStore(symbol, &sync.Mutex{})
	return actual.(*sync.Mutex)
}

// ProcessSignal refreshes the ledger from broker truth, gates on the
// current session, validates the transition, and plans and executes a
// single inbound signal, fully serialized against any other signal for the
// same symbol.
func (c *Controller) ProcessSignal(signal models.Signal) error {
	lock := c.lockFor(signal.Symbol)
	lock.Lock()
	defer lock.Unlock()

	if _, err := c.ledger.Refresh(signal.Symbol); err != nil {
		return models.ErrLinkLost(err)
	}
	record := c.ledger.Get(signal.Symbol)

	decision := c.executor.Decide(time.Now())
	if !decision.CanTrade {
		return models.ErrSessionClosed(signal.Symbol, decision.Reason)
	}

	if err := validator.Validate(signal.Symbol, record.State, signal.Action); err != nil {
		c.log.Warn().Str("symbol", signal.Symbol).Str("action", string(signal.Action)).
			Str("state", string(record.State)).Msg("rejected invalid transition")
		return err
	}

	if signal.Quantity.IntPart() > c.maxPositionSize {
		return models.ErrQuantityExceedsMax(signal.Symbol, signal.Quantity.IntPart(), c.maxPositionSize)
	}

	side := validator.BrokerSide(signal.Action)
	plan, err := c.executor.Plan(signal, side, decision)
	if err != nil {
		return err
	}

	order, err := c.executor.Execute(signal, plan)
	if err != nil {
		return err
	}

	if plan.OrderType == models.OrderLimit {
		c.tracker.Register(order, signal)
	} else {
		// Market orders fill essentially immediately; move the ledger to the
		// target state optimistically and let the next Refresh correct it.
		c.ledger.ApplyFill(signal.Symbol, validator.NextState(signal.Action), signal.Quantity, plan.LimitPrice)
	}

	return nil
}

// Run starts the order-event stream supervisor, the broker-event drain, and
// the resubmission sweep as sibling tasks under a shared cancellation
// context. None of them returns an error, so Run returns nil once ctx is
// canceled and all three have stopped.
func (c *Controller) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		c.stream.Run(gctx)
		return nil
	})

	g.Go(func() error {
		return c.drainEvents(gctx)
	})

	g.Go(func() error {
		return c.runSweep(gctx)
	})

	return g.Wait()
}

// drainEvents consumes broker events in arrival order and reconciles them
// in a fixed sequence: tracker first (so a retried sweep doesn't race a
// fill for the same order), then the ledger.
func (c *Controller) drainEvents(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-c.stream.Events():
			if !ok {
				return nil
			}
			c.handleEvent(ev)
		}
	}
}

func (c *Controller) handleEvent(ev broker.Event) {
	switch ev.Kind {
	case broker.EventConnection:
		if ev.Err != nil {
			c.log.Error().Err(ev.Err).Msg("broker link lost")
		}
	case broker.EventFill, broker.EventStatus:
		if ev.Order == nil {
			return
		}
		lock := c.lockFor(ev.Order.Symbol)
		lock.Lock()
		defer lock.Unlock()

		if ev.Order.Status.IsTerminal() {
			c.tracker.OnTerminal(ev.Order.ID)
			if _, err := c.ledger.Refresh(ev.Order.Symbol); err != nil {
				c.log.Warn().Err(err).Str("symbol", ev.Order.Symbol).Msg("ledger refresh after terminal event failed")
			}
			c.onTerminal(*ev.Order, string(ev.Order.Status))
		}
	}
}

// runSweep fires the tracker's resubmission sweep on a fixed interval
// until ctx is canceled.
func (c *Controller) runSweep(ctx context.Context) error {
	ticker := time.NewTicker(c.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			c.tracker.Sweep(c.repriceFor, c.onCapped)
		}
	}
}

// repriceFor recomputes a fresh buffered limit price for a resubmission.
// It does not re-run the session gate: a pending limit order is replaced
// as a limit order regardless of which session the sweep lands in, so
// this never falls through to a zero-priced market decision.
func (c *Controller) repriceFor(symbol string, side models.Side) (decimal.Decimal, error) {
	price, err := c.executor.RepriceLimit(symbol, side)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("repricing %s: %w", symbol, err)
	}
	return price, nil
}
