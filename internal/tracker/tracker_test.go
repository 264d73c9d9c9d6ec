package tracker

import (
	"errors"
	"testing"
	"time"

	"tradingbridge/internal/broker"
	"tradingbridge/internal/models"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

func samePrice(symbol string, side models.Side) (decimal.Decimal, error) {
	return decimal.NewFromInt(100), nil
}

func TestRegisterAndOnTerminal(t *testing.T) {
	fake := broker.NewFakeLink()
	tr := New(fake, time.Minute, 3, zerolog.Nop())

	order := &models.Order{ID: "ord-1", Symbol: "AAPL", Side: models.SideBuy}
	tr.Register(order, models.Signal{Symbol: "AAPL", Quantity: decimal.NewFromInt(10)})
	if tr.Count() != 1 {
		t.Fatalf("expected 1 pending order, got %d", tr.Count())
	}

	tr.OnTerminal("ord-1")
	if tr.Count() != 0 {
		t.Fatalf("expected 0 pending orders after terminal, got %d", tr.Count())
	}
}

func TestSweep_ResubmitsStaleOrder(t *testing.T) {
	fake := broker.NewFakeLink()
	placed, err := fake.PlaceOrder("AAPL", decimal.NewFromInt(10), models.SideBuy, models.OrderLimit, decimal.NewFromInt(99))
	if err != nil {
		t.Fatalf("PlaceOrder failed: %v", err)
	}

	tr := New(fake, 0, 3, zerolog.Nop())
	tr.Register(placed, models.Signal{Symbol: "AAPL", Quantity: decimal.NewFromInt(10)})
	// Force the last action (submission, since there's been no resubmission
	// yet) to look old enough to be swept.
	tr.mu.Lock()
	for _, p := range tr.pending {
		p.SubmittedAt = time.Now().Add(-time.Hour)
		p.LastResubmittedAt = p.SubmittedAt
	}
	tr.mu.Unlock()

	var capped []models.PendingOrder
	tr.Sweep(samePrice, func(p models.PendingOrder) { capped = append(capped, p) })

	if len(capped) != 0 {
		t.Fatalf("expected no capped orders, got %d", len(capped))
	}
	if tr.Count() != 1 {
		t.Fatalf("expected exactly one tracked order after resubmit, got %d", tr.Count())
	}
	for _, p := range tr.Snapshot() {
		if p.ResubmissionCount != 1 {
			t.Errorf("expected resubmission count 1, got %d", p.ResubmissionCount)
		}
		if p.BrokerOrderID == placed.ID {
			t.Errorf("expected a new broker order id after resubmit, still %s", placed.ID)
		}
	}
}

func TestSweep_RetiresAtResubmissionCap(t *testing.T) {
	fake := broker.NewFakeLink()
	placed, _ := fake.PlaceOrder("AAPL", decimal.NewFromInt(10), models.SideBuy, models.OrderLimit, decimal.NewFromInt(99))

	tr := New(fake, 0, 0, zerolog.Nop()) // cap of 0: first sweep should retire immediately
	tr.Register(placed, models.Signal{Symbol: "AAPL", Quantity: decimal.NewFromInt(10)})
	tr.mu.Lock()
	for _, p := range tr.pending {
		p.SubmittedAt = time.Now().Add(-time.Hour)
		p.LastResubmittedAt = p.SubmittedAt
	}
	tr.mu.Unlock()

	var capped []models.PendingOrder
	tr.Sweep(samePrice, func(p models.PendingOrder) { capped = append(capped, p) })

	if len(capped) != 1 {
		t.Fatalf("expected one capped order, got %d", len(capped))
	}
	if tr.Count() != 0 {
		t.Fatalf("expected tracker to be empty after retiring capped order, got %d", tr.Count())
	}
}

func TestSweep_NotDueAgainImmediatelyAfterResubmit(t *testing.T) {
	fake := broker.NewFakeLink()
	placed, err := fake.PlaceOrder("AAPL", decimal.NewFromInt(10), models.SideBuy, models.OrderLimit, decimal.NewFromInt(99))
	if err != nil {
		t.Fatalf("PlaceOrder failed: %v", err)
	}

	tr := New(fake, time.Hour, 3, zerolog.Nop())
	tr.Register(placed, models.Signal{Symbol: "AAPL", Quantity: decimal.NewFromInt(10)})
	tr.mu.Lock()
	for _, p := range tr.pending {
		p.SubmittedAt = time.Now().Add(-2 * time.Hour)
		p.LastResubmittedAt = p.SubmittedAt
	}
	tr.mu.Unlock()

	tr.Sweep(samePrice, func(p models.PendingOrder) { t.Fatal("should not be capped") })
	if tr.Count() != 1 {
		t.Fatalf("expected one resubmitted order tracked, got %d", tr.Count())
	}

	// A second sweep run immediately after the first must not treat the
	// just-resubmitted order as due again: its age is measured from
	// LastResubmittedAt, which the resubmit just advanced to now.
	tr.Sweep(samePrice, func(p models.PendingOrder) { t.Fatal("should not resubmit again so soon") })
	for _, p := range tr.Snapshot() {
		if p.ResubmissionCount != 1 {
			t.Errorf("expected exactly one resubmission, got %d", p.ResubmissionCount)
		}
	}
}

func TestSweep_ResubmitsEvenWhenCancelFails(t *testing.T) {
	fake := broker.NewFakeLink()
	fake.CancelErr = errors.New("broker unreachable")
	placed, err := fake.PlaceOrder("AAPL", decimal.NewFromInt(10), models.SideBuy, models.OrderLimit, decimal.NewFromInt(99))
	if err != nil {
		t.Fatalf("PlaceOrder failed: %v", err)
	}

	tr := New(fake, 0, 3, zerolog.Nop())
	tr.Register(placed, models.Signal{Symbol: "AAPL", Quantity: decimal.NewFromInt(10)})
	tr.mu.Lock()
	for _, p := range tr.pending {
		p.SubmittedAt = time.Now().Add(-time.Hour)
		p.LastResubmittedAt = p.SubmittedAt
	}
	tr.mu.Unlock()

	tr.Sweep(samePrice, func(p models.PendingOrder) { t.Fatal("should not be capped") })

	if tr.Count() != 1 {
		t.Fatalf("expected the replace to go through despite the cancel error, got count %d", tr.Count())
	}
	for _, p := range tr.Snapshot() {
		if p.BrokerOrderID == placed.ID {
			t.Errorf("expected a new broker order id even though cancel failed")
		}
	}
}

func TestSweep_IgnoresOrdersNotYetDue(t *testing.T) {
	fake := broker.NewFakeLink()
	placed, _ := fake.PlaceOrder("AAPL", decimal.NewFromInt(10), models.SideBuy, models.OrderLimit, decimal.NewFromInt(99))

	tr := New(fake, time.Hour, 3, zerolog.Nop())
	tr.Register(placed, models.Signal{Symbol: "AAPL", Quantity: decimal.NewFromInt(10)})

	tr.Sweep(samePrice, func(p models.PendingOrder) { t.Fatal("should not be capped") })
	if tr.Count() != 1 {
		t.Fatalf("expected order to remain untouched, got count %d", tr.Count())
	}
	for _, p := range tr.Snapshot() {
		if p.BrokerOrderID != placed.ID {
			t.Error("expected the original order to remain tracked unchanged")
		}
	}
}
