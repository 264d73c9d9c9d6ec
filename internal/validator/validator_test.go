package validator

import (
	"testing"

	"tradingbridge/internal/models"
)

func TestValidate_AllowedTransitions(t *testing.T) {
	cases := []struct {
		state  models.PositionState
		action models.Action
	}{
		{models.Flat, models.ActionBuy},
		{models.Flat, models.ActionShort},
		{models.Long, models.ActionSell},
		{models.Short, models.ActionCover},
	}
	for _, tc := range cases {
		if err := Validate("AAPL", tc.state, tc.action); err != nil {
			t.Errorf("expected %s from %s to be allowed, got error: %v", tc.action, tc.state, err)
		}
	}
}

func TestValidate_RejectsStackedEntry(t *testing.T) {
	cases := []struct {
		state  models.PositionState
		action models.Action
	}{
		{models.Long, models.ActionBuy},
		{models.Long, models.ActionShort},
		{models.Short, models.ActionShort},
		{models.Short, models.ActionSell},
		{models.Flat, models.ActionSell},
		{models.Flat, models.ActionCover},
	}
	for _, tc := range cases {
		if err := Validate("AAPL", tc.state, tc.action); err == nil {
			t.Errorf("expected %s from %s to be rejected", tc.action, tc.state)
		}
	}
}

func TestNextState(t *testing.T) {
	if NextState(models.ActionBuy) != models.Long {
		t.Error("BUY should produce LONG")
	}
	if NextState(models.ActionShort) != models.Short {
		t.Error("SHORT should produce SHORT")
	}
	if NextState(models.ActionSell) != models.Flat {
		t.Error("SELL should produce FLAT")
	}
	if NextState(models.ActionCover) != models.Flat {
		t.Error("COVER should produce FLAT")
	}
}

func TestBrokerSide(t *testing.T) {
	if BrokerSide(models.ActionBuy) != models.SideBuy {
		t.Error("BUY should map to buy side")
	}
	if BrokerSide(models.ActionCover) != models.SideBuy {
		t.Error("COVER should map to buy side")
	}
	if BrokerSide(models.ActionSell) != models.SideSell {
		t.Error("SELL should map to sell side")
	}
	if BrokerSide(models.ActionShort) != models.SideSell {
		t.Error("SHORT should map to sell side")
	}
}
