package bot

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"manibot/internal/calendar"
	"manibot/internal/models"
)

const (
	btnBook      = "📝 Записаться"
	btnMyBooking = "🔎 Моя запись"
)

var mainMenu = tgbotapi.NewReplyKeyboard(
	tgbotapi.NewKeyboardButtonRow(
		tgbotapi.NewKeyboardButton(btnBook),
		tgbotapi.NewKeyboardButton(btnMyBooking),
	),
)

func (b *Bot) sendMainMenu(chatID int64) {
	msg := tgbotapi.NewMessage(chatID, "Выберите действие:")
	msg.ReplyMarkup = mainMenu
	_, _ = b.tg.Send(msg)
}

// dayMenuKeyboard renders the six bookable days two per row, plus the week
// toggle and an abort button.
func dayMenuKeyboard(days []calendar.Day, week models.WeekSelector) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for i := 0; i < len(days); i += 2 {
		row := []tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData(days[i].Label, "day:"+string(days[i].SlotKey)),
		}
		if i+1 < len(days) {
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(days[i+1].Label, "day:"+string(days[i+1].SlotKey)))
		}
		rows = append(rows, row)
	}

	if week == models.WeekCurrent {
		rows = append(rows, []tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData("➡️ Следующая неделя", "week:next"),
		})
	} else {
		rows = append(rows, []tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData("⬅️ Текущая неделя", "week:curr"),
		})
	}
	rows = append(rows, []tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardButtonData("❌ Отмена", "abort"),
	})
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// sendDayMenu shows or re-renders the day picker. messageID 0 sends a new
// message; otherwise the existing one is edited in place.
func (b *Bot) sendDayMenu(chatID int64, messageID int, week models.WeekSelector) {
	days := b.resolver.Resolve(week)
	markup := dayMenuKeyboard(days, week)
	title := "Выберите день:"

	if messageID != 0 {
		out := tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, title, markup)
		_, _ = b.tg.Send(out)
		return
	}
	out := tgbotapi.NewMessage(chatID, title)
	out.ReplyMarkup = markup
	_, _ = b.tg.Send(out)
}

func timeMenuKeyboard(options []timeOptionView, day calendar.Day) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, opt := range options {
		label := "⏰ " + opt.Time
		data := fmt.Sprintf("time:%s:%s", day.SlotKey, opt.Time)
		if opt.Taken {
			label = "🔒 " + opt.Time
			data = "taken"
		}
		rows = append(rows, []tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData(label, data),
		})
	}

	week, _, err := day.SlotKey.Parts()
	if err != nil {
		week = models.WeekCurrent
	}
	rows = append(rows, []tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardButtonData("⬅️ К выбору дня", "back:days:"+string(week)),
	})
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

type timeOptionView struct {
	Time  string
	Taken bool
}

// sendTimeMenu re-renders the time picker with live occupancy.
func (b *Bot) sendTimeMenu(ctx context.Context, chatID int64, messageID int, day calendar.Day) {
	options, err := b.svc.ListAvailableTimes(ctx, day.SlotKey)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("slot_key", string(day.SlotKey)).Msg("Failed to load availability")
		b.edit(chatID, messageID, "Не удалось загрузить время, попробуйте ещё раз.")
		return
	}

	views := make([]timeOptionView, 0, len(options))
	for _, opt := range options {
		views = append(views, timeOptionView{Time: opt.Time, Taken: opt.Taken})
	}

	title := fmt.Sprintf("Выберите время на %s:", day.Label)
	markup := timeMenuKeyboard(views, day)

	if messageID != 0 {
		out := tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, title, markup)
		_, _ = b.tg.Send(out)
		return
	}
	out := tgbotapi.NewMessage(chatID, title)
	out.ReplyMarkup = markup
	_, _ = b.tg.Send(out)
}

func cancelBookingKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("❌ Отменить запись", "cancel"),
		),
	)
}

func formatBooking(b *models.Booking) string {
	return fmt.Sprintf("👤 %s\n📅 %s\n⏰ %s", b.Name, b.DayLabel, b.TimeSlot)
}
