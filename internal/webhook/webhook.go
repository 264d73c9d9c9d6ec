// Package webhook exposes the HTTP signal intake: HMAC-verified, IP-allowlisted
// alert ingestion, plus health/status reporting.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"tradingbridge/internal/models"
	"tradingbridge/internal/session"
	"tradingbridge/internal/tracker"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Processor is the narrow surface the webhook needs from the trading core.
type Processor interface {
	ProcessSignal(signal models.Signal) error
}

// Server is the gin-based HTTP signal intake.
type Server struct {
	engine  *gin.Engine
	proc    Processor
	tr      *tracker.Tracker
	clock   *session.Clock
	log     zerolog.Logger
	secret  string
	allowed map[string]bool

	defaultQuantity decimal.Decimal
	enablePre       bool
	enablePost      bool
	startedAt       time.Time
}

// New builds the webhook HTTP engine with its routes registered.
func New(proc Processor, tr *tracker.Tracker, clock *session.Clock, secret string, allowedIPs []string,
	defaultQuantity int64, enablePre, enablePost bool, log zerolog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	allowed := make(map[string]bool, len(allowedIPs))
	for _, ip := range allowedIPs {
		allowed[ip] = true
	}

	s := &Server{
		engine: gin.New(), proc: proc, tr: tr, clock: clock,
		log: log.With().Str("component", "webhook").Logger(),
		secret: secret, allowed: allowed,
		defaultQuantity: decimal.NewFromInt(defaultQuantity),
		enablePre:       enablePre, enablePost: enablePost,
		startedAt: time.Now(),
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) routes() {
	s.engine.Use(gin.Recovery())
	s.engine.POST("/webhook", s.ipAllowlist, s.verifySignature, s.handleWebhook)
	s.engine.GET("/healthz", s.handleHealth)
	s.engine.GET("/status", s.handleStatus)
}

// ipAllowlist rejects requests from addresses not on the configured list.
// An empty list allows all — matching the original's "empty means open".
func (s *Server) ipAllowlist(c *gin.Context) {
	if len(s.allowed) == 0 {
		c.Next()
		return
	}
	if !s.allowed[c.ClientIP()] {
		s.log.Warn().Str("remote_ip", c.ClientIP()).Msg("rejected request from unauthorized IP")
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "unauthorized IP"})
		return
	}
	c.Next()
}

// verifySignature checks the X-Signature: sha256=<hex> header against an
// HMAC-SHA256 of the raw request body, skipped entirely when no secret is
// configured (useful for local testing against TradingView's own sandbox).
func (s *Server) verifySignature(c *gin.Context) {
	if s.secret == "" {
		c.Next()
		return
	}

	body, err := c.GetRawData()
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "could not read request body"})
		return
	}
	c.Request.Body = nil
	c.Set("raw_body", body)

	header := c.GetHeader("X-Signature")
	if !strings.HasPrefix(header, "sha256=") {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "invalid signature"})
		return
	}
	expected := strings.TrimPrefix(header, "sha256=")

	mac := hmac.New(sha256.New, []byte(s.secret))
	mac.Write(body)
	computed := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(computed)) {
		s.log.Warn().Msg("invalid webhook signature")
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "invalid signature"})
		return
	}
	c.Next()
}

// alertPayload is the inbound alert shape, mirroring the TradingView-style
// webhook body the original bridge parsed.
type alertPayload struct {
	Action   string          `json:"action"`
	Symbol   string          `json:"symbol"`
	Quantity json.Number     `json:"quantity"`
	Price    json.Number     `json:"price"`
	Message  string          `json:"message"`
}

func (s *Server) handleWebhook(c *gin.Context) {
	var body []byte
	if raw, ok := c.Get("raw_body"); ok {
		body = raw.([]byte)
	} else {
		var err error
		body, err = c.GetRawData()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "could not read request body"})
			return
		}
	}

	var payload alertPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
		return
	}

	signal, err := s.parseSignal(payload)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.log.Info().Str("symbol", signal.Symbol).Str("action", string(signal.Action)).
		Str("quantity", signal.Quantity.String()).Msg("alert received")

	if err := s.proc.ProcessSignal(signal); err != nil {
		// A rejection from the trading core (invalid transition, session
		// closed, quantity over max, ...) is a terminal outcome for this
		// alert, not a delivery failure — respond 200 so the sender
		// observes the rejection instead of retrying the same alert.
		s.log.Warn().Err(err).Str("symbol", signal.Symbol).Msg("signal rejected by trading core")
		c.JSON(http.StatusOK, gin.H{"status": "rejected", "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "alert processed"})
}

// parseSignal validates the action, uppercases the symbol, and falls back
// to the configured default quantity when the alert omits one.
func (s *Server) parseSignal(p alertPayload) (models.Signal, error) {
	action := models.Action(strings.ToUpper(strings.TrimSpace(p.Action)))
	switch action {
	case models.ActionBuy, models.ActionSell, models.ActionShort, models.ActionCover:
	default:
		return models.Signal{}, errInvalidAction(p.Action)
	}

	symbol := strings.ToUpper(strings.TrimSpace(p.Symbol))
	if symbol == "" {
		return models.Signal{}, errMissingSymbol{}
	}

	quantity := s.defaultQuantity
	if p.Quantity.String() != "" {
		q, err := decimal.NewFromString(p.Quantity.String())
		if err != nil || q.Sign() <= 0 {
			return models.Signal{}, errInvalidQuantity(p.Quantity.String())
		}
		quantity = q
	}

	var price decimal.Decimal
	if p.Price.String() != "" {
		if parsed, err := decimal.NewFromString(p.Price.String()); err == nil {
			price = parsed
		}
	}

	return models.Signal{
		Symbol: symbol, Action: action, Quantity: quantity, Price: price,
		ReceivedAt: time.Now(),
	}, nil
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleStatus(c *gin.Context) {
	next, kind := s.clock.NextTransition(time.Now())
	c.JSON(http.StatusOK, gin.H{
		"status":              "running",
		"uptime_seconds":      strconv.Itoa(int(time.Since(s.startedAt).Seconds())),
		"pending_order_count": s.tr.Count(),
		"next_session":        kind,
		"next_session_change": next.Format(time.RFC3339),
	})
}

type errInvalidAction string

func (e errInvalidAction) Error() string { return "invalid or missing action: " + string(e) }

type errMissingSymbol struct{}

func (errMissingSymbol) Error() string { return "missing symbol" }

type errInvalidQuantity string

func (e errInvalidQuantity) Error() string { return "invalid quantity: " + string(e) }
