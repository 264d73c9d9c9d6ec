// Package validator enforces the sequential position-transition table: a
// symbol may only move FLAT->LONG, FLAT->SHORT, LONG->FLAT, SHORT->FLAT,
// never stacking a second entry onto an open position.
package validator

import "tradingbridge/internal/models"

// allowed maps a position state to the set of actions valid from it.
var allowed = map[models.PositionState]map[models.Action]bool{
	models.Flat:  {models.ActionBuy: true, models.ActionShort: true},
	models.Long:  {models.ActionSell: true},
	models.Short: {models.ActionCover: true},
}

// Validate checks whether action is permitted given the symbol's current
// state, returning models.ErrInvalidTransition if not.
func Validate(symbol string, state models.PositionState, action models.Action) error {
	if allowed[state][action] {
		return nil
	}
	return models.ErrInvalidTransition(symbol, state, action)
}

// NextState computes the position state that results from applying action,
// assuming Validate has already approved it.
func NextState(action models.Action) models.PositionState {
	switch action {
	case models.ActionBuy:
		return models.Long
	case models.ActionShort:
		return models.Short
	case models.ActionSell, models.ActionCover:
		return models.Flat
	default:
		return models.Flat
	}
}

// BrokerSide maps an action to the broker-facing order side. SHORT and SELL
// both sell; BUY and COVER both buy.
func BrokerSide(action models.Action) models.Side {
	switch action {
	case models.ActionBuy, models.ActionCover:
		return models.SideBuy
	case models.ActionSell, models.ActionShort:
		return models.SideSell
	default:
		return models.SideBuy
	}
}
