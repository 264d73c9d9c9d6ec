package core

import (
	"testing"
	"time"

	"tradingbridge/internal/broker"
	"tradingbridge/internal/executor"
	"tradingbridge/internal/ledger"
	"tradingbridge/internal/models"
	"tradingbridge/internal/session"
	"tradingbridge/internal/tracker"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

func newTestController(t *testing.T) (*Controller, *broker.FakeLink) {
	t.Helper()
	fake := broker.NewFakeLink()
	fake.Assets["AAPL"] = &models.Asset{Symbol: "AAPL", Tradable: true}
	clock, err := session.NewClock("00:00", "00:00", "23:59", "23:59", "UTC")
	if err != nil {
		t.Fatalf("NewClock failed: %v", err)
	}
	l := ledger.New(fake, zerolog.Nop())
	ex := executor.New(fake, clock, true, true, zerolog.Nop())
	tr := tracker.New(fake, time.Minute, 3, zerolog.Nop())
	stream := broker.NewSupervisor("wss://example.invalid", "k", "s", zerolog.Nop())

	ctrl := New(Config{
		Link: fake, Ledger: l, Executor: ex, Tracker: tr, Stream: stream,
		MaxPositionSize: 1000, SweepInterval: time.Minute, Log: zerolog.Nop(),
	})
	return ctrl, fake
}

func TestProcessSignal_FlatToLongMarketOrder(t *testing.T) {
	ctrl, fake := newTestController(t)

	sig := models.Signal{Symbol: "AAPL", Action: models.ActionBuy, Quantity: decimal.NewFromInt(10), ReceivedAt: time.Now()}
	if err := ctrl.ProcessSignal(sig); err != nil {
		t.Fatalf("ProcessSignal failed: %v", err)
	}

	rec := ctrl.ledger.Get("AAPL")
	if rec.State != models.Long {
		t.Errorf("expected ledger to move to LONG, got %s", rec.State)
	}
	if len(fake.Orders) != 1 {
		t.Errorf("expected exactly one order placed, got %d", len(fake.Orders))
	}
}

func TestProcessSignal_RejectsStackedEntry(t *testing.T) {
	ctrl, fake := newTestController(t)

	sig := models.Signal{Symbol: "AAPL", Action: models.ActionBuy, Quantity: decimal.NewFromInt(10), ReceivedAt: time.Now()}
	if err := ctrl.ProcessSignal(sig); err != nil {
		t.Fatalf("first signal failed: %v", err)
	}

	// ProcessSignal refreshes from broker truth before every decision, so
	// the fake broker must reflect the fill the first order produced —
	// otherwise the second signal's pre-flight Refresh would see FLAT.
	fake.Positions["AAPL"] = &models.BrokerPosition{Symbol: "AAPL", Qty: decimal.NewFromInt(10), AvgEntryPrice: decimal.NewFromInt(100)}

	second := models.Signal{Symbol: "AAPL", Action: models.ActionBuy, Quantity: decimal.NewFromInt(10), ReceivedAt: time.Now()}
	if err := ctrl.ProcessSignal(second); err == nil {
		t.Fatal("expected second BUY while LONG to be rejected")
	}
}

func TestProcessSignal_RejectsOverMaxPositionSize(t *testing.T) {
	ctrl, _ := newTestController(t)
	sig := models.Signal{Symbol: "AAPL", Action: models.ActionBuy, Quantity: decimal.NewFromInt(5000), ReceivedAt: time.Now()}
	if err := ctrl.ProcessSignal(sig); err == nil {
		t.Fatal("expected quantity-exceeds-max rejection")
	}
}

func TestHandleEvent_TerminalFillRetiresTrackerEntry(t *testing.T) {
	ctrl, fake := newTestController(t)
	fake.Positions["AAPL"] = &models.BrokerPosition{Symbol: "AAPL", Qty: decimal.NewFromInt(10), AvgEntryPrice: decimal.NewFromInt(100)}

	ctrl.tracker.Register(&models.Order{ID: "ord-9", Symbol: "AAPL"}, models.Signal{Symbol: "AAPL", Quantity: decimal.NewFromInt(10)})

	order := &models.Order{ID: "ord-9", Symbol: "AAPL", Side: models.SideBuy, Status: models.OrderFilled}
	ctrl.handleEvent(broker.Event{Kind: broker.EventFill, Order: order, OccurredAt: time.Now()})

	if ctrl.tracker.Count() != 0 {
		t.Errorf("expected tracker entry retired on terminal fill, count=%d", ctrl.tracker.Count())
	}
	rec := ctrl.ledger.Get("AAPL")
	if rec.State != models.Long {
		t.Errorf("expected ledger refreshed to LONG from broker position, got %s", rec.State)
	}
}
