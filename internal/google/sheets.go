// Package google mirrors the booking journal into a Google spreadsheet.
// The sheet is an append-only log; the sqlite ledger stays authoritative.
package google

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"manibot/internal/events"
	"manibot/internal/models"
)

const (
	actionCreated   = "создана"
	actionCancelled = "отменена"

	defaultSheetName = "Журнал"
)

type sheetsAppender interface {
	Append(ctx context.Context, sheetName string, values []interface{}) error
}

// SheetsService streams booking lifecycle rows into a spreadsheet.
type SheetsService struct {
	appender  sheetsAppender
	sheetName string
	logger    *zerolog.Logger
	now       func() time.Time
}

type apiAppender struct {
	srv           *sheets.Service
	spreadsheetID string
}

func (a *apiAppender) Append(ctx context.Context, sheetName string, values []interface{}) error {
	vr := &sheets.ValueRange{Values: [][]interface{}{values}}
	_, err := a.srv.Spreadsheets.Values.Append(a.spreadsheetID, sheetName, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	return err
}

// NewSheetsService authorizes against the Sheets API with a service-account
// credentials file.
func NewSheetsService(ctx context.Context, credentialsFile, spreadsheetID, sheetName string, logger *zerolog.Logger) (*SheetsService, error) {
	data, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}

	creds, err := google.CredentialsFromJSON(ctx, data, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}

	srv, err := sheets.NewService(ctx, option.WithCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("sheets client: %w", err)
	}

	return newSheetsService(&apiAppender{srv: srv, spreadsheetID: spreadsheetID}, sheetName, logger), nil
}

func newSheetsService(appender sheetsAppender, sheetName string, logger *zerolog.Logger) *SheetsService {
	if sheetName == "" {
		sheetName = defaultSheetName
	}
	return &SheetsService{
		appender:  appender,
		sheetName: sheetName,
		logger:    logger,
		now:       time.Now,
	}
}

type eventPayload struct {
	Booking models.Booking `json:"booking"`
}

// Subscribe attaches the journal to booking lifecycle events. Rows are
// appended from a goroutine; a Sheets outage never delays a booking.
func (s *SheetsService) Subscribe(ctx context.Context, bus *events.EventBus) {
	bus.Subscribe(events.TypeBookingCreated, func(e events.Event) error {
		var p eventPayload
		if err := json.Unmarshal(e.Payload, &p); err != nil {
			return err
		}
		go s.record(ctx, actionCreated, p.Booking)
		return nil
	})
	bus.Subscribe(events.TypeBookingCancelled, func(e events.Event) error {
		var p eventPayload
		if err := json.Unmarshal(e.Payload, &p); err != nil {
			return err
		}
		go s.record(ctx, actionCancelled, p.Booking)
		return nil
	})
}

func (s *SheetsService) record(ctx context.Context, action string, b models.Booking) {
	values := bookingRowValues(action, b, s.now())
	if err := s.appender.Append(ctx, s.sheetName, values); err != nil {
		s.logger.Error().Err(err).
			Str("action", action).
			Int64("user_id", b.UserID).
			Msg("Failed to append journal row")
		return
	}
	s.logger.Debug().Str("action", action).Int64("user_id", b.UserID).Msg("Journal row appended")
}

func bookingRowValues(action string, b models.Booking, at time.Time) []interface{} {
	return []interface{}{
		at.Format("2006-01-02 15:04:05"),
		action,
		b.UserID,
		b.Name,
		b.DayLabel,
		string(b.SlotKey),
		b.TimeSlot,
	}
}
