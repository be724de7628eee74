package notify

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"manibot/internal/events"
	"manibot/internal/models"
	"manibot/internal/service"
)

type fakeSender struct {
	mu       sync.Mutex
	sent     []tgbotapi.MessageConfig
	failures int // fail this many sends before succeeding
	done     chan struct{}
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures > 0 {
		f.failures--
		return tgbotapi.Message{}, errors.New("telegram unavailable")
	}
	f.sent = append(f.sent, c.(tgbotapi.MessageConfig))
	if f.done != nil {
		close(f.done)
		f.done = nil
	}
	return tgbotapi.Message{}, nil
}

func (f *fakeSender) messages() []tgbotapi.MessageConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]tgbotapi.MessageConfig(nil), f.sent...)
}

func quietConfig() Config {
	return Config{
		Rate:        1000,
		Burst:       10,
		MaxRetries:  2,
		RetryDelays: []time.Duration{time.Millisecond, time.Millisecond},
	}
}

func TestDeliverSendsToAdminChat(t *testing.T) {
	sender := &fakeSender{}
	logger := zerolog.New(io.Discard)
	n := NewWithSender(sender, 777, quietConfig(), &logger)

	n.deliver(context.Background(), events.TypeBookingCreated, "привет")

	msgs := sender.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, int64(777), msgs[0].ChatID)
	assert.Equal(t, "привет", msgs[0].Text)
	assert.Equal(t, tgbotapi.ModeHTML, msgs[0].ParseMode)
}

func TestDeliverRetries(t *testing.T) {
	sender := &fakeSender{failures: 2}
	logger := zerolog.New(io.Discard)
	n := NewWithSender(sender, 777, quietConfig(), &logger)

	n.deliver(context.Background(), events.TypeBookingCreated, "заказ")

	msgs := sender.messages()
	require.Len(t, msgs, 1, "third attempt should have landed")
}

func TestDeliverGivesUp(t *testing.T) {
	sender := &fakeSender{failures: 10}
	logger := zerolog.New(io.Discard)
	n := NewWithSender(sender, 777, quietConfig(), &logger)

	// Must return (logging the drop), not block or panic.
	n.deliver(context.Background(), events.TypeBookingCancelled, "отмена")
	assert.Empty(t, sender.messages())
}

func TestSubscribeDeliversPublishedEvents(t *testing.T) {
	done := make(chan struct{})
	sender := &fakeSender{done: done}
	logger := zerolog.New(io.Discard)
	n := NewWithSender(sender, 42, quietConfig(), &logger)

	bus := events.NewEventBus()
	n.Subscribe(context.Background(), bus)

	booking := models.Booking{
		UserID:   1,
		Name:     "Анна Иванова",
		DayLabel: "Пн, 19.01",
		SlotKey:  "curr_mon",
		TimeSlot: "11:00",
	}
	err := bus.PublishJSON(events.TypeBookingCreated, service.BookingCreatedEvent{Booking: booking, Handle: "@anna"})
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("notification never delivered")
	}

	msgs := sender.messages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Text, "НОВЫЙ ЗАКАЗ")
	assert.Contains(t, msgs[0].Text, "Анна Иванова")
	assert.Contains(t, msgs[0].Text, "@anna")
	assert.Contains(t, msgs[0].Text, "Пн, 19.01")
	assert.Contains(t, msgs[0].Text, "11:00")
}

func TestFormatMessages(t *testing.T) {
	b := models.Booking{Name: "Анна", DayLabel: "Пн, 19.01", TimeSlot: "11:00"}

	created := FormatCreated(b, "")
	assert.Contains(t, created, "скрыт", "hidden username placeholder")

	cancelled := FormatCancelled(b)
	assert.True(t, strings.Contains(cancelled, "ОТМЕНА"))
	assert.Contains(t, cancelled, "Пн, 19.01 11:00")
}
