// Package bot is the Telegram presentation layer over the registration flow.
package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"manibot/internal/calendar"
	"manibot/internal/ledger"
	"manibot/internal/models"
	"manibot/internal/service"
)

type telegramClient interface {
	Send(tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	SelfUser() tgbotapi.User
}

type realTelegramClient struct {
	api *tgbotapi.BotAPI
}

func (c *realTelegramClient) Send(msg tgbotapi.Chattable) (tgbotapi.Message, error) {
	return c.api.Send(msg)
}

func (c *realTelegramClient) Request(msg tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	return c.api.Request(msg)
}

func (c *realTelegramClient) GetUpdatesChan(cfg tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return c.api.GetUpdatesChan(cfg)
}

func (c *realTelegramClient) SelfUser() tgbotapi.User {
	return c.api.Self
}

// Bot is a thin Telegram wrapper around the registration service.
type Bot struct {
	svc      *service.Registration
	store    *ledger.Ledger
	resolver *calendar.Resolver
	tg       telegramClient
	adminID  int64
	logger   *zerolog.Logger
}

// New connects to the Telegram API and wires the bot.
func New(token string, debug bool, svc *service.Registration, store *ledger.Ledger, resolver *calendar.Resolver, adminID int64, logger *zerolog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	api.Debug = debug
	return NewWithTelegramClient(&realTelegramClient{api: api}, svc, store, resolver, adminID, logger)
}

// NewWithTelegramClient allows injecting a mocked Telegram client for tests.
func NewWithTelegramClient(tg telegramClient, svc *service.Registration, store *ledger.Ledger, resolver *calendar.Resolver, adminID int64, logger *zerolog.Logger) (*Bot, error) {
	if tg == nil {
		return nil, fmt.Errorf("telegram client is nil")
	}
	return &Bot{
		svc:      svc,
		store:    store,
		resolver: resolver,
		tg:       tg,
		adminID:  adminID,
		logger:   logger,
	}, nil
}

// Start begins polling updates until the context is cancelled.
func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.tg.GetUpdatesChan(u)
	b.logger.Info().Str("username", b.tg.SelfUser().UserName).Msg("Client bot authorized")

	for {
		select {
		case <-ctx.Done():
			return
		case update := <-updates:
			requestID := uuid.New().String()
			l := b.logger.With().Str("request_id", requestID).Logger()
			updateCtx := l.WithContext(ctx)
			b.handleUpdate(updateCtx, &update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update *tgbotapi.Update) {
	l := zerolog.Ctx(ctx)
	if update.CallbackQuery != nil {
		l.Debug().
			Int64("user_id", update.CallbackQuery.From.ID).
			Str("data", update.CallbackQuery.Data).
			Msg("Handling callback query")
		b.handleCallback(ctx, update.CallbackQuery)
		return
	}
	if update.Message != nil {
		l.Debug().
			Int64("user_id", update.Message.From.ID).
			Str("text", update.Message.Text).
			Msg("Handling message")
		b.handleMessage(ctx, update.Message)
		return
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg == nil || msg.From == nil {
		return
	}
	text := strings.TrimSpace(msg.Text)

	switch {
	case strings.HasPrefix(text, "/start"):
		_ = b.svc.AbandonSession(ctx, msg.From.ID)
		b.reply(msg.Chat.ID, "Привет! Я помогу записаться на маникюр 💅")
		b.sendMainMenu(msg.Chat.ID)
		return
	case text == btnBook || strings.HasPrefix(text, "/book"):
		b.startBookingFlow(ctx, msg)
		return
	case text == btnMyBooking || strings.HasPrefix(text, "/my"):
		b.showMyBooking(ctx, msg.Chat.ID, msg.From.ID)
		return
	case strings.HasPrefix(text, "/help"):
		b.reply(msg.Chat.ID, "Доступные команды: /book — записаться, /my — моя запись, /cancel — прервать ввод")
		return
	case strings.HasPrefix(text, "/cancel"):
		_ = b.svc.AbandonSession(ctx, msg.From.ID)
		b.reply(msg.Chat.ID, "Операция отменена.")
		b.sendMainMenu(msg.Chat.ID)
		return
	}

	if b.isAdmin(msg.From.ID) && strings.HasPrefix(text, "/") {
		if b.handleAdminCommands(ctx, msg) {
			return
		}
	}

	// Plain text is only meaningful as the name answer.
	b.handleNameInput(ctx, msg, text)
}

func (b *Bot) handleNameInput(ctx context.Context, msg *tgbotapi.Message, text string) {
	_, err := b.svc.SubmitName(ctx, msg.From.ID, text)
	switch {
	case err == nil:
		b.sendDayMenu(msg.Chat.ID, 0, models.WeekCurrent)
	case errors.Is(err, service.ErrEmptyName):
		b.reply(msg.Chat.ID, "Имя не может быть пустым. Напишите, как вас зовут:")
	case errors.Is(err, service.ErrNoSession):
		b.sendMainMenu(msg.Chat.ID)
	default:
		zerolog.Ctx(ctx).Error().Err(err).Int64("user_id", msg.From.ID).Msg("Name input failed")
		b.reply(msg.Chat.ID, "Что-то пошло не так, попробуйте ещё раз.")
	}
}

func (b *Bot) startBookingFlow(ctx context.Context, msg *tgbotapi.Message) {
	_, err := b.svc.StartRegistration(ctx, msg.From.ID)
	switch {
	case err == nil:
		b.reply(msg.Chat.ID, "Как вас зовут? Напишите имя:")
	case errors.Is(err, ledger.ErrAlreadyBooked):
		booking, getErr := b.svc.GetBooking(ctx, msg.From.ID)
		if getErr != nil || booking == nil {
			b.reply(msg.Chat.ID, "У вас уже есть запись.")
			return
		}
		out := tgbotapi.NewMessage(msg.Chat.ID, "У вас уже есть запись:\n\n"+formatBooking(booking))
		out.ReplyMarkup = cancelBookingKeyboard()
		_, _ = b.tg.Send(out)
	default:
		zerolog.Ctx(ctx).Error().Err(err).Int64("user_id", msg.From.ID).Msg("Failed to start registration")
		b.reply(msg.Chat.ID, "Не удалось начать запись, попробуйте позже.")
	}
}

func (b *Bot) showMyBooking(ctx context.Context, chatID, userID int64) {
	booking, err := b.svc.GetBooking(ctx, userID)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Int64("user_id", userID).Msg("Failed to load booking")
		b.reply(chatID, "Не удалось загрузить запись, попробуйте позже.")
		return
	}
	if booking == nil {
		b.reply(chatID, "У вас пока нет записи. Нажмите «"+btnBook+"», чтобы записаться.")
		return
	}
	out := tgbotapi.NewMessage(chatID, "Ваша запись:\n\n"+formatBooking(booking))
	out.ReplyMarkup = cancelBookingKeyboard()
	_, _ = b.tg.Send(out)
}

func (b *Bot) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	if cq == nil || cq.Message == nil {
		return
	}
	data := cq.Data
	userID := cq.From.ID
	chatID := cq.Message.Chat.ID
	messageID := cq.Message.MessageID

	switch {
	case data == "noop":
		_ = b.answerCallback(cq.ID, "")
	case data == "taken":
		_ = b.answerCallback(cq.ID, "🔒 Это время уже занято")
	case strings.HasPrefix(data, "week:"):
		_ = b.answerCallback(cq.ID, "")
		b.handleWeekToggle(chatID, messageID, strings.TrimPrefix(data, "week:"))
	case strings.HasPrefix(data, "day:"):
		_ = b.answerCallback(cq.ID, "")
		b.handleDayChoice(ctx, chatID, messageID, userID, strings.TrimPrefix(data, "day:"))
	case strings.HasPrefix(data, "time:"):
		b.handleTimeChoice(ctx, cq)
	case strings.HasPrefix(data, "back:days:"):
		_ = b.answerCallback(cq.ID, "")
		b.handleBackToDays(chatID, messageID, strings.TrimPrefix(data, "back:days:"))
	case data == "cancel":
		_ = b.answerCallback(cq.ID, "")
		b.handleCancel(ctx, chatID, messageID, userID)
	case data == "abort":
		_ = b.answerCallback(cq.ID, "")
		_ = b.svc.AbandonSession(ctx, userID)
		b.edit(chatID, messageID, "Операция отменена.")
		b.sendMainMenu(chatID)
	}
}

func (b *Bot) handleWeekToggle(chatID int64, messageID int, raw string) {
	week, err := models.ParseWeekSelector(raw)
	if err != nil {
		return
	}
	b.sendDayMenu(chatID, messageID, week)
}

func (b *Bot) handleDayChoice(ctx context.Context, chatID int64, messageID int, userID int64, raw string) {
	week, dayCode, err := models.SlotKey(raw).Parts()
	if err != nil {
		return
	}

	day, err := b.svc.SubmitDay(ctx, userID, week, dayCode)
	if errors.Is(err, service.ErrNoSession) {
		b.edit(chatID, messageID, "Сценарий устарел, начните заново: /book")
		return
	}
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Int64("user_id", userID).Msg("Day choice failed")
		b.edit(chatID, messageID, "Не удалось выбрать день, попробуйте ещё раз.")
		return
	}
	b.sendTimeMenu(ctx, chatID, messageID, day)
}

func (b *Bot) handleTimeChoice(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	chatID := cq.Message.Chat.ID
	messageID := cq.Message.MessageID
	userID := cq.From.ID

	parts := strings.SplitN(cq.Data, ":", 3)
	if len(parts) != 3 {
		_ = b.answerCallback(cq.ID, "")
		return
	}
	key := models.SlotKey(parts[1])
	timeSlot := parts[2]

	handle := ""
	if cq.From.UserName != "" {
		handle = "@" + cq.From.UserName
	}

	booking, err := b.svc.SubmitTime(ctx, userID, handle, key, timeSlot)
	switch {
	case err == nil:
		_ = b.answerCallback(cq.ID, "")
		b.edit(chatID, messageID, fmt.Sprintf("✅ Вы записаны!\n\n%s\n\nЖдём вас 💅", formatBooking(booking)))
		b.sendMainMenu(chatID)
	case errors.Is(err, ledger.ErrSlotTaken):
		_ = b.answerCallback(cq.ID, "🔒 Это время только что заняли")
		week, dayCode, perr := key.Parts()
		if perr != nil {
			return
		}
		day, derr := b.resolver.ResolveDay(week, dayCode)
		if derr != nil {
			return
		}
		b.sendTimeMenu(ctx, chatID, messageID, day)
	case errors.Is(err, service.ErrNoSession):
		_ = b.answerCallback(cq.ID, "")
		b.edit(chatID, messageID, "Сценарий устарел, начните заново: /book")
	default:
		_ = b.answerCallback(cq.ID, "")
		zerolog.Ctx(ctx).Error().Err(err).Int64("user_id", userID).Msg("Booking commit failed")
		b.edit(chatID, messageID, "Не удалось записаться, попробуйте ещё раз.")
	}
}

func (b *Bot) handleBackToDays(chatID int64, messageID int, raw string) {
	week, err := models.ParseWeekSelector(raw)
	if err != nil {
		week = models.WeekCurrent
	}
	b.sendDayMenu(chatID, messageID, week)
}

func (b *Bot) handleCancel(ctx context.Context, chatID int64, messageID int, userID int64) {
	booking, err := b.svc.CancelBooking(ctx, userID)
	switch {
	case err == nil:
		b.edit(chatID, messageID, fmt.Sprintf("❌ Запись отменена:\n%s %s", booking.DayLabel, booking.TimeSlot))
		b.sendMainMenu(chatID)
	case errors.Is(err, ledger.ErrNoBooking):
		b.edit(chatID, messageID, "У вас нет активной записи.")
	default:
		zerolog.Ctx(ctx).Error().Err(err).Int64("user_id", userID).Msg("Cancel failed")
		b.edit(chatID, messageID, "Не удалось отменить запись, попробуйте позже.")
	}
}

func (b *Bot) isAdmin(id int64) bool {
	return b.adminID != 0 && id == b.adminID
}

func (b *Bot) reply(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	_, _ = b.tg.Send(msg)
}

// edit rewrites an inline-keyboard message in place; falls back to a new
// message when messageID is unknown.
func (b *Bot) edit(chatID int64, messageID int, text string) {
	if messageID == 0 {
		b.reply(chatID, text)
		return
	}
	out := tgbotapi.NewEditMessageText(chatID, messageID, text)
	_, _ = b.tg.Send(out)
}

func (b *Bot) answerCallback(id, text string) error {
	cb := tgbotapi.NewCallback(id, text)
	if text != "" {
		cb.ShowAlert = true
	}
	_, err := b.tg.Request(cb)
	return err
}
