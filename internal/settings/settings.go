// Package settings stores the practice configuration edited by the
// practitioner.
package settings

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/hackgods/practice-scheduling-billing/internal/apperror"
	"github.com/hackgods/practice-scheduling-billing/internal/calendar"
	"github.com/hackgods/practice-scheduling-billing/internal/isodate"
	"github.com/hackgods/practice-scheduling-billing/internal/storage"
)

const StorageKey = "settings"

type NotificationPreferences struct {
	Email bool `json:"email"`
	SMS   bool `json:"sms"`
	Push  bool `json:"push"`
}

type Settings struct {
	PracticeName      string                  `json:"practiceName"`
	Currency          string                  `json:"currency"`
	SessionDuration   int                     `json:"sessionDuration"`
	SessionPrice      decimal.Decimal         `json:"sessionPrice"`
	BufferMinutes     int                     `json:"bufferMinutes"`
	WorkStart         string                  `json:"workStart"`
	WorkEnd           string                  `json:"workEnd"`
	WorkingDays       []int                   `json:"workingDays"`
	ReminderLeadHours int                     `json:"reminderLeadHours"`
	Notifications     NotificationPreferences `json:"notifications"`
}

// Defaults is what Get returns before anything was saved.
func Defaults(currency string) Settings {
	if currency == "" {
		currency = "BRL"
	}
	return Settings{
		PracticeName:      "My Practice",
		Currency:          currency,
		SessionDuration:   50,
		SessionPrice:      decimal.NewFromInt(150),
		BufferMinutes:     10,
		WorkStart:         "08:00",
		WorkEnd:           "18:00",
		WorkingDays:       []int{1, 2, 3, 4, 5},
		ReminderLeadHours: 24,
		Notifications:     NotificationPreferences{Email: true, Push: true},
	}
}

func (s Settings) Validate() error {
	var v apperror.Validator
	v.Check(strings.TrimSpace(s.PracticeName) != "", "practiceName", "is required")
	v.Check(len(s.Currency) == 3, "currency", "must be a 3 letter ISO code")
	v.Check(s.SessionDuration > 0, "sessionDuration", "must be a positive number of minutes")
	v.Check(!s.SessionPrice.IsNegative(), "sessionPrice", "must not be negative")
	v.Check(s.BufferMinutes >= 0, "bufferMinutes", "must not be negative")
	v.Check(s.ReminderLeadHours >= 0, "reminderLeadHours", "must not be negative")

	start, errStart := isodate.ClockMinutes(s.WorkStart)
	end, errEnd := isodate.ClockMinutes(s.WorkEnd)
	v.Check(errStart == nil, "workStart", "must be HH:MM")
	v.Check(errEnd == nil, "workEnd", "must be HH:MM")
	if errStart == nil && errEnd == nil {
		v.Check(start < end, "workEnd", "must be after workStart")
	}
	for _, d := range s.WorkingDays {
		v.Check(d >= 0 && d <= 6, "workingDays", "days are 0 (Sunday) to 6")
	}
	return v.Err()
}

// SlotOptions derives the free-slot search options from the working hours.
func (s Settings) SlotOptions() calendar.SlotOptions {
	return calendar.SlotOptions{
		WorkStart:   s.WorkStart,
		WorkEnd:     s.WorkEnd,
		Duration:    s.SessionDuration,
		Buffer:      s.BufferMinutes,
		WorkingDays: s.WorkingDays,
	}
}

type Store struct {
	kv       storage.KV
	currency string
	logger   *zap.Logger
}

func NewStore(kv storage.KV, defaultCurrency string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{kv: kv, currency: defaultCurrency, logger: logger}
}

// Get returns the saved settings, or the defaults when none were saved.
func (s *Store) Get(ctx context.Context) (Settings, error) {
	var out Settings
	err := storage.GetJSON(ctx, s.kv, StorageKey, &out)
	if errors.Is(err, storage.ErrMiss) {
		return Defaults(s.currency), nil
	}
	if err != nil {
		return Settings{}, fmt.Errorf("load settings: %w", err)
	}
	return out, nil
}

func (s *Store) Save(ctx context.Context, in Settings) (Settings, error) {
	in.PracticeName = strings.TrimSpace(in.PracticeName)
	in.Currency = strings.ToUpper(strings.TrimSpace(in.Currency))
	if err := in.Validate(); err != nil {
		return Settings{}, err
	}
	if err := storage.SetJSON(ctx, s.kv, StorageKey, in); err != nil {
		return Settings{}, fmt.Errorf("save settings: %w", err)
	}
	s.logger.Info("settings saved", zap.String("practice", in.PracticeName))
	return in, nil
}

// Reset drops the saved settings so Get falls back to the defaults.
func (s *Store) Reset(ctx context.Context) error {
	if err := s.kv.Delete(ctx, StorageKey); err != nil {
		return fmt.Errorf("reset settings: %w", err)
	}
	return nil
}
