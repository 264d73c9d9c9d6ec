// Package notify fans out terminal outcomes and link-health events to
// Telegram via the maintained bot API client.
package notify

import (
	"fmt"
	"strconv"

	"tradingbridge/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// Notifier sends operator-facing messages for terminal order outcomes,
// link-health transitions, and resubmission-cap events.
type Notifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	log    zerolog.Logger
}

// New builds a Notifier. If token or chatID is empty, the returned
// Notifier is a no-op — notifications are ambient, not required to run.
func New(token, chatID string, log zerolog.Logger) (*Notifier, error) {
	nlog := log.With().Str("component", "notify").Logger()
	if token == "" || chatID == "" {
		nlog.Info().Msg("telegram notifications disabled: no bot token or chat id configured")
		return &Notifier{log: nlog}, nil
	}

	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("initializing telegram bot: %w", err)
	}

	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid telegram chat id %q: %w", chatID, err)
	}

	return &Notifier{bot: bot, chatID: id, log: nlog}, nil
}

func (n *Notifier) send(text string) {
	if n.bot == nil {
		return
	}
	msg := tgbotapi.NewMessage(n.chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := n.bot.Send(msg); err != nil {
		n.log.Warn().Err(err).Msg("telegram send failed")
	}
}

// OrderTerminal reports a terminal order outcome for a symbol.
func (n *Notifier) OrderTerminal(order models.Order, status string) {
	n.send(fmt.Sprintf("*%s* order %s: %s %s @ %s (status: %s)",
		order.Symbol, order.ID, order.Side, order.Qty.String(), order.FilledAvgPrice.String(), status))
}

// ResubmissionCapped reports that a pending order was retired after
// exhausting its resubmission cap.
func (n *Notifier) ResubmissionCapped(p models.PendingOrder) {
	n.send(fmt.Sprintf("⚠️ *%s* order %s retired: reached max resubmissions (%d)",
		p.Symbol, p.BrokerOrderID, p.ResubmissionCount))
}

// LinkLost reports that the broker connection supervisor gave up.
func (n *Notifier) LinkLost(err error) {
	n.send(fmt.Sprintf("🔌 broker link lost: %v", err))
}
