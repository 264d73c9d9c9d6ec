// Package session classifies wall-clock time into trading sessions and
// decides whether, and how, an order may be placed right now.
package session

import (
	"fmt"
	"time"

	"tradingbridge/internal/models"
)

// Clock holds the configured session boundaries, parsed once at startup,
// and the exchange timezone they're expressed in.
type Clock struct {
	PreMarketStart time.Time // HH:MM components only; date is ignored
	MarketOpen     time.Time
	MarketClose    time.Time
	PostMarketEnd  time.Time
	Location       *time.Location
}

// NewClock parses the configured HH:MM boundaries against the named
// exchange timezone.
func NewClock(preStart, open, close, postEnd, tzName string) (*Clock, error) {
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", tzName, err)
	}

	parse := func(hhmm string) (time.Time, error) {
		t, err := time.Parse("15:04", hhmm)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid time %q, expected HH:MM: %w", hhmm, err)
		}
		return t, nil
	}

	pre, err := parse(preStart)
	if err != nil {
		return nil, err
	}
	mo, err := parse(open)
	if err != nil {
		return nil, err
	}
	mc, err := parse(close)
	if err != nil {
		return nil, err
	}
	pe, err := parse(postEnd)
	if err != nil {
		return nil, err
	}

	return &Clock{PreMarketStart: pre, MarketOpen: mo, MarketClose: mc, PostMarketEnd: pe, Location: loc}, nil
}

// minutesOf reduces t (in the exchange timezone) to minutes-since-midnight
// so boundary comparisons ignore the date entirely.
func minutesOf(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

// SessionAt classifies dt into a session. Weekends are always CLOSED.
// Boundaries are half-open [start, end) with ties resolved to the later
// session, matching the original market-hours semantics.
func (c *Clock) SessionAt(dt time.Time) models.SessionKind {
	local := dt.In(c.Location)
	if wd := local.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return models.SessionClosed
	}

	now := minutesOf(local)
	pre := minutesOf(c.PreMarketStart)
	open := minutesOf(c.MarketOpen)
	closeM := minutesOf(c.MarketClose)
	post := minutesOf(c.PostMarketEnd)

	switch {
	case now >= pre && now < open:
		return models.SessionPre
	case now >= open && now < closeM:
		return models.SessionRegular
	case now >= closeM && now < post:
		return models.SessionPost
	default:
		return models.SessionClosed
	}
}

// Decision is the outcome of evaluating whether and how to trade right now.
type Decision struct {
	Session   models.SessionKind
	CanTrade  bool
	OrderType models.OrderType
	Reason    string
}

// Decide evaluates the current session against the enabled-extended-hours
// configuration and returns the order type to use.
func (c *Clock) Decide(dt time.Time, enablePreMarket, enablePostMarket bool) Decision {
	s := c.SessionAt(dt)

	switch s {
	case models.SessionRegular:
		return Decision{Session: s, CanTrade: true, OrderType: models.OrderMarket,
			Reason: "regular market hours - using market orders"}
	case models.SessionPre:
		if !enablePreMarket {
			return Decision{Session: s, CanTrade: false, Reason: "pre-market trading disabled"}
		}
		return Decision{Session: s, CanTrade: true, OrderType: models.OrderLimit,
			Reason: "extended hours (pre-market) - using limit orders"}
	case models.SessionPost:
		if !enablePostMarket {
			return Decision{Session: s, CanTrade: false, Reason: "post-market trading disabled"}
		}
		return Decision{Session: s, CanTrade: true, OrderType: models.OrderLimit,
			Reason: "extended hours (post-market) - using limit orders"}
	default:
		return Decision{Session: s, CanTrade: false, Reason: "market is closed"}
	}
}

// NextTransition reports the next time the session will change and which
// session it will change to, skipping weekends.
func (c *Clock) NextTransition(dt time.Time) (time.Time, models.SessionKind) {
	local := dt.In(c.Location)
	date := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, c.Location)

	combine := func(t time.Time) time.Time {
		return time.Date(date.Year(), date.Month(), date.Day(), t.Hour(), t.Minute(), 0, 0, c.Location)
	}

	transitions := []struct {
		at      time.Time
		session models.SessionKind
	}{
		{combine(c.PreMarketStart), models.SessionPre},
		{combine(c.MarketOpen), models.SessionRegular},
		{combine(c.MarketClose), models.SessionPost},
		{combine(c.PostMarketEnd), models.SessionClosed},
	}

	if local.Weekday() != time.Saturday && local.Weekday() != time.Sunday {
		for _, tr := range transitions {
			if local.Before(tr.at) {
				return tr.at, tr.session
			}
		}
	}

	next := date.AddDate(0, 0, 1)
	for next.Weekday() == time.Saturday || next.Weekday() == time.Sunday {
		next = next.AddDate(0, 0, 1)
	}
	nextOpen := time.Date(next.Year(), next.Month(), next.Day(),
		c.PreMarketStart.Hour(), c.PreMarketStart.Minute(), 0, 0, c.Location)
	return nextOpen, models.SessionPre
}
