package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"tradingbridge/internal/models"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Supervisor owns the order-events websocket connection and its
// DISCONNECTED -> CONNECTING -> CONNECTED -> BACKOFF lifecycle. Events
// (fills, status changes, connection transitions) are delivered on a single
// channel in arrival order.
type Supervisor struct {
	url       string
	keyID     string
	secretKey string
	log       zerolog.Logger

	baseBackoff time.Duration
	maxBackoff  time.Duration
	maxAttempts int

	mu      sync.Mutex
	state   models.ConnectionState
	attempt int

	events chan Event
}

// NewSupervisor builds a stream supervisor with the standard backoff
// policy: 5s base, doubling, 60s ceiling, reset to base on a successful
// connect, giving up after maxAttempts consecutive failures.
func NewSupervisor(url, keyID, secretKey string, log zerolog.Logger) *Supervisor {
	return &Supervisor{
		url:         url,
		keyID:       keyID,
		secretKey:   secretKey,
		log:         log.With().Str("component", "broker.stream").Logger(),
		baseBackoff: 5 * time.Second,
		maxBackoff:  60 * time.Second,
		maxAttempts: 10,
		state:       models.Disconnected,
		events:      make(chan Event, 64),
	}
}

// Events returns the channel order-events are delivered on.
func (s *Supervisor) Events() <-chan Event { return s.events }

// State returns the current connection state.
func (s *Supervisor) State() models.ConnectionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Supervisor) setState(state models.ConnectionState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
	s.emit(Event{Kind: EventConnection, ConnState: state, OccurredAt: time.Now()})
}

func (s *Supervisor) emit(e Event) {
	select {
	case s.events <- e:
	default:
		s.log.Warn().Msg("event channel full, dropping event")
	}
}

// Run drives the connect/reconnect loop until ctx is canceled or the
// reconnect-attempt cap is exhausted, in which case it emits a LinkLost
// connection event and returns.
func (s *Supervisor) Run(ctx context.Context) {
	backoff := s.baseBackoff

	for {
		select {
		case <-ctx.Done():
			s.setState(models.Disconnected)
			return
		default:
		}

		s.setState(models.Connecting)
		connected, err := s.connectAndDrain(ctx)
		if ctx.Err() != nil {
			s.setState(models.Disconnected)
			return
		}

		if connected {
			backoff = s.baseBackoff
		}

		s.mu.Lock()
		s.attempt++
		attempt := s.attempt
		s.mu.Unlock()

		if attempt >= s.maxAttempts {
			s.log.Error().Int("attempts", attempt).Msg("reconnect attempts exhausted")
			s.emit(Event{Kind: EventConnection, ConnState: models.Disconnected,
				OccurredAt: time.Now(), Err: models.ErrLinkLost(err)})
			return
		}

		s.setState(models.Backoff)
		s.log.Warn().Err(err).Dur("backoff", backoff).Int("attempt", attempt).Msg("stream disconnected, backing off")

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			s.setState(models.Disconnected)
			return
		}

		backoff *= 2
		if backoff > s.maxBackoff {
			backoff = s.maxBackoff
		}
	}
}

// connectAndDrain opens the socket, authenticates, and reads events until
// the connection drops or ctx is canceled. Reaching CONNECTED resets the
// attempt counter here. The first returned value reports whether the
// handshake succeeded at all — a true here tells Run to reset the backoff
// delay to base, since the prior backoff schedule no longer applies.
func (s *Supervisor) connectAndDrain(ctx context.Context) (bool, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return false, fmt.Errorf("dialing stream: %w", err)
	}
	defer conn.Close()

	auth := map[string]string{"action": "auth", "key": s.keyID, "secret": s.secretKey}
	if err := conn.WriteJSON(auth); err != nil {
		return false, fmt.Errorf("authenticating stream: %w", err)
	}

	s.mu.Lock()
	s.attempt = 0
	s.mu.Unlock()
	s.setState(models.Connected)

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	for {
		var msg streamMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return true, fmt.Errorf("reading stream: %w", err)
		}
		s.handleMessage(msg)
	}
}

// streamMessage is the trade-updates envelope: a status field and the
// order it concerns, matching the broker's own order-update payload shape.
type streamMessage struct {
	Stream string          `json:"stream"`
	Data   streamOrderData `json:"data"`
}

type streamOrderData struct {
	Event string      `json:"event"`
	Order rawOrder    `json:"order"`
	Price json.Number `json:"price"`
	Qty   json.Number `json:"qty"`
}

type rawOrder struct {
	ID     string `json:"id"`
	Symbol string `json:"symbol"`
	Status string `json:"status"`
	Side   string `json:"side"`
}

func (s *Supervisor) handleMessage(msg streamMessage) {
	status := mapStatus(msg.Data.Order.Status)
	order := &models.Order{
		ID:     msg.Data.Order.ID,
		Symbol: msg.Data.Order.Symbol,
		Side:   models.Side(msg.Data.Order.Side),
		Status: status,
	}

	kind := EventStatus
	if msg.Data.Event == "fill" || msg.Data.Event == "partial_fill" {
		kind = EventFill
	}

	s.emit(Event{Kind: kind, Order: order, OccurredAt: time.Now()})
}
