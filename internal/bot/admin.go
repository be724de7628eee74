package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"manibot/internal/audit"
)

// handleAdminCommands dispatches owner-only commands. Returns false when the
// command is unknown so the caller can fall through.
func (b *Bot) handleAdminCommands(ctx context.Context, msg *tgbotapi.Message) bool {
	text := strings.TrimSpace(msg.Text)
	switch {
	case strings.HasPrefix(text, "/find"):
		b.handleFind(ctx, msg.Chat.ID, text)
	case strings.HasPrefix(text, "/list"):
		b.handleList(ctx, msg.Chat.ID)
	case strings.HasPrefix(text, "/export"):
		b.handleExport(ctx, msg.Chat.ID)
	default:
		return false
	}
	return true
}

func (b *Bot) handleFind(ctx context.Context, chatID int64, text string) {
	parts := strings.Fields(text)
	if len(parts) < 2 {
		b.reply(chatID, "Формат: /find <user_id>")
		return
	}
	userID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || userID <= 0 {
		b.reply(chatID, "Некорректный user_id")
		return
	}

	booking, err := b.store.UserBooking(ctx, userID)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Int64("user_id", userID).Msg("Admin lookup failed")
		b.reply(chatID, "Ошибка поиска записи")
		return
	}
	if booking == nil {
		b.reply(chatID, fmt.Sprintf("У пользователя %d нет записи", userID))
		return
	}
	b.reply(chatID, fmt.Sprintf("Запись пользователя %d:\n\n%s", userID, formatBooking(booking)))
}

func (b *Bot) handleList(ctx context.Context, chatID int64) {
	bookings, err := b.store.ListBookings(ctx)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("Admin list failed")
		b.reply(chatID, "Ошибка получения записей")
		return
	}
	if len(bookings) == 0 {
		b.reply(chatID, "Записей пока нет")
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Все записи (%d):\n\n", len(bookings)))
	for _, bk := range bookings {
		sb.WriteString(fmt.Sprintf("🔹 %s %s | %s | id %d\n", bk.DayLabel, bk.TimeSlot, bk.Name, bk.UserID))
	}
	b.reply(chatID, sb.String())
}

func (b *Bot) handleExport(ctx context.Context, chatID int64) {
	bookings, err := b.store.ListBookings(ctx)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("Admin export failed")
		b.reply(chatID, "Ошибка выгрузки записей")
		return
	}

	data, err := audit.BuildWorkbook(bookings)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("Failed to build export workbook")
		b.reply(chatID, "Не удалось сформировать файл")
		return
	}

	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{
		Name:  audit.ExportFileName(time.Now()),
		Bytes: data,
	})
	doc.Caption = fmt.Sprintf("Выгрузка записей: %d шт.", len(bookings))
	if _, err := b.tg.Send(doc); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("Failed to send export document")
		b.reply(chatID, "Не удалось отправить файл")
	}
}
