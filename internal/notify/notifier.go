// Package notify delivers booking notices to the administrator through a
// second bot identity. Delivery is best-effort: a failed notice is logged
// and counted, never propagated back into the booking flow.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"manibot/internal/events"
	"manibot/internal/metrics"
	"manibot/internal/models"
)

type telegramSender interface {
	Send(tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Config tunes delivery pacing and retries.
type Config struct {
	Rate        float64 // messages per second towards the admin chat
	Burst       int
	MaxRetries  int
	RetryDelays []time.Duration
}

// DefaultConfig returns the default delivery configuration.
func DefaultConfig() Config {
	return Config{
		Rate:       20,
		Burst:      30,
		MaxRetries: 3,
		RetryDelays: []time.Duration{
			1 * time.Second,
			5 * time.Second,
			30 * time.Second,
		},
	}
}

// Notifier sends admin notices through the orders bot.
type Notifier struct {
	tg          telegramSender
	adminChatID int64
	limiter     *rate.Limiter
	cfg         Config
	logger      *zerolog.Logger
}

// New creates a notifier over a real bot identity.
func New(token string, adminChatID int64, cfg Config, logger *zerolog.Logger) (*Notifier, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("orders bot auth: %w", err)
	}
	return NewWithSender(api, adminChatID, cfg, logger), nil
}

// NewWithSender allows injecting a mocked Telegram client for tests.
func NewWithSender(tg telegramSender, adminChatID int64, cfg Config, logger *zerolog.Logger) *Notifier {
	if cfg.Rate <= 0 {
		cfg.Rate = DefaultConfig().Rate
	}
	if cfg.Burst <= 0 {
		cfg.Burst = DefaultConfig().Burst
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	return &Notifier{
		tg:          tg,
		adminChatID: adminChatID,
		limiter:     rate.NewLimiter(rate.Limit(cfg.Rate), cfg.Burst),
		cfg:         cfg,
		logger:      logger,
	}
}

// payload mirrors the JSON shape the registration service publishes.
type payload struct {
	Booking models.Booking `json:"booking"`
	Handle  string         `json:"handle"`
}

// Subscribe attaches the notifier to booking lifecycle events. Handlers
// hand off to a goroutine so a slow Telegram API never stalls the flow
// that raised the event.
func (n *Notifier) Subscribe(ctx context.Context, bus *events.EventBus) {
	bus.Subscribe(events.TypeBookingCreated, func(e events.Event) error {
		var p payload
		if err := json.Unmarshal(e.Payload, &p); err != nil {
			n.logger.Error().Err(err).Msg("Bad booking.created payload")
			return err
		}
		go n.deliver(ctx, e.Type, FormatCreated(p.Booking, p.Handle))
		return nil
	})
	bus.Subscribe(events.TypeBookingCancelled, func(e events.Event) error {
		var p payload
		if err := json.Unmarshal(e.Payload, &p); err != nil {
			n.logger.Error().Err(err).Msg("Bad booking.cancelled payload")
			return err
		}
		go n.deliver(ctx, e.Type, FormatCancelled(p.Booking))
		return nil
	})
}

// deliver sends one notice with pacing and a bounded retry ladder.
func (n *Notifier) deliver(ctx context.Context, event, text string) {
	if err := n.limiter.Wait(ctx); err != nil {
		n.logger.Warn().Err(err).Str("event", event).Msg("Notification dropped before send")
		metrics.IncNotifyFailed(event)
		return
	}

	var lastErr error
	for attempt := 0; attempt <= n.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := 5 * time.Second
			if attempt-1 < len(n.cfg.RetryDelays) {
				delay = n.cfg.RetryDelays[attempt-1]
			}
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				metrics.IncNotifyFailed(event)
				return
			}
		}

		msg := tgbotapi.NewMessage(n.adminChatID, text)
		msg.ParseMode = tgbotapi.ModeHTML
		if _, lastErr = n.tg.Send(msg); lastErr == nil {
			n.logger.Debug().Str("event", event).Msg("Admin notified")
			return
		}

		n.logger.Warn().Err(lastErr).
			Str("event", event).
			Int("attempt", attempt+1).
			Msg("Admin notification failed, will retry")
	}

	n.logger.Error().Err(lastErr).Str("event", event).Msg("Admin notification dropped after retries")
	metrics.IncNotifyFailed(event)
}

// FormatCreated renders the new-order notice for the admin channel.
func FormatCreated(b models.Booking, handle string) string {
	if handle == "" {
		handle = "скрыт"
	}
	return fmt.Sprintf("🔔 <b>НОВЫЙ ЗАКАЗ!</b>\n\n👤 %s (%s)\n📅 %s\n⏰ %s",
		b.Name, handle, b.DayLabel, b.TimeSlot)
}

// FormatCancelled renders the cancellation notice.
func FormatCancelled(b models.Booking) string {
	return fmt.Sprintf("❌ <b>ОТМЕНА ЗАПИСИ</b>\n👤 %s\n📅 %s %s",
		b.Name, b.DayLabel, b.TimeSlot)
}
