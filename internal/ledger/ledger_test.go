package ledger

import (
	"testing"

	"tradingbridge/internal/broker"
	"tradingbridge/internal/models"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

func TestGet_DefaultsToFlat(t *testing.T) {
	l := New(broker.NewFakeLink(), zerolog.Nop())
	rec := l.Get("AAPL")
	if rec.State != models.Flat {
		t.Errorf("expected default state FLAT, got %s", rec.State)
	}
}

func TestRefresh_LongPosition(t *testing.T) {
	fake := broker.NewFakeLink()
	fake.Positions["AAPL"] = &models.BrokerPosition{
		Symbol: "AAPL", Qty: decimal.NewFromInt(10), AvgEntryPrice: decimal.NewFromInt(150),
	}
	l := New(fake, zerolog.Nop())

	rec, err := l.Refresh("AAPL")
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if rec.State != models.Long || !rec.Quantity.Equal(decimal.NewFromInt(10)) {
		t.Errorf("expected LONG 10, got %s %s", rec.State, rec.Quantity)
	}
}

func TestRefresh_ShortPosition(t *testing.T) {
	fake := broker.NewFakeLink()
	fake.Positions["AAPL"] = &models.BrokerPosition{
		Symbol: "AAPL", Qty: decimal.NewFromInt(-5), AvgEntryPrice: decimal.NewFromInt(150),
	}
	l := New(fake, zerolog.Nop())

	rec, err := l.Refresh("AAPL")
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if rec.State != models.Short || !rec.Quantity.Equal(decimal.NewFromInt(5)) {
		t.Errorf("expected SHORT 5, got %s %s", rec.State, rec.Quantity)
	}
}

func TestRefresh_NoPositionIsFlat(t *testing.T) {
	fake := broker.NewFakeLink()
	l := New(fake, zerolog.Nop())

	rec, err := l.Refresh("AAPL")
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if rec.State != models.Flat {
		t.Errorf("expected FLAT, got %s", rec.State)
	}
}

func TestApplyFill_OverridesImmediately(t *testing.T) {
	l := New(broker.NewFakeLink(), zerolog.Nop())
	l.ApplyFill("AAPL", models.Long, decimal.NewFromInt(10), decimal.NewFromInt(151))

	rec := l.Get("AAPL")
	if rec.State != models.Long || !rec.Quantity.Equal(decimal.NewFromInt(10)) {
		t.Errorf("expected LONG 10 after ApplyFill, got %s %s", rec.State, rec.Quantity)
	}
}

func TestRefreshAll_ClearsStaleSymbols(t *testing.T) {
	fake := broker.NewFakeLink()
	l := New(fake, zerolog.Nop())
	l.ApplyFill("MSFT", models.Long, decimal.NewFromInt(3), decimal.NewFromInt(300))

	if err := l.RefreshAll(); err != nil {
		t.Fatalf("RefreshAll failed: %v", err)
	}
	rec := l.Get("MSFT")
	if rec.State != models.Flat {
		t.Errorf("expected MSFT cleared to FLAT after RefreshAll found no broker position, got %s", rec.State)
	}
}
