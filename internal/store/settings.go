package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/ayusman/gazescroll/internal/gesture"
)

// Setting keys.
const (
	KeySensitivity = "sensitivity"
	KeyCooldownMs  = "cooldown_ms"
	KeyMode        = "mode"
)

// SettingsRepository persists the control panel settings.
type SettingsRepository struct {
	db *sql.DB
}

// Settings returns the settings repository for this store.
func (s *Store) Settings() *SettingsRepository {
	return &SettingsRepository{db: s.db}
}

// Get returns the raw value stored for key.
func (r *SettingsRepository) Get(key string) (string, error) {
	var value string
	err := r.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}
	return value, nil
}

// Set stores value for key, replacing any previous value.
func (r *SettingsRepository) Set(key, value string) error {
	_, err := r.db.Exec(
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	return err
}

// Load returns the stored settings. Missing or invalid values fall back to
// the defaults, so a fresh database yields gesture.DefaultSettings().
func (r *SettingsRepository) Load() (gesture.Settings, error) {
	s := gesture.DefaultSettings()

	if v, err := r.Get(KeySensitivity); err == nil {
		if f, perr := strconv.ParseFloat(v, 64); perr == nil {
			s.Sensitivity = f
		}
	} else if !errors.Is(err, ErrNotFound) {
		return s, err
	}

	if v, err := r.Get(KeyCooldownMs); err == nil {
		if ms, perr := strconv.Atoi(v); perr == nil {
			s.CooldownMs = ms
		}
	} else if !errors.Is(err, ErrNotFound) {
		return s, err
	}

	if v, err := r.Get(KeyMode); err == nil {
		s.Mode = gesture.Mode(v)
	} else if !errors.Is(err, ErrNotFound) {
		return s, err
	}

	normalized, err := s.Normalize()
	if err != nil {
		storeLog.Warn().Err(err).Msg("stored settings invalid, using defaults")
		return gesture.DefaultSettings(), nil
	}
	return normalized, nil
}

// Save stores all settings in a single transaction.
func (r *SettingsRepository) Save(s gesture.Settings) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	values := map[string]string{
		KeySensitivity: strconv.FormatFloat(s.Sensitivity, 'f', -1, 64),
		KeyCooldownMs:  strconv.Itoa(s.CooldownMs),
		KeyMode:        string(s.Mode),
	}
	for key, value := range values {
		if _, err := tx.Exec(
			`INSERT INTO settings (key, value) VALUES (?, ?)
			 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
			key, value,
		); err != nil {
			return fmt.Errorf("save %s: %w", key, err)
		}
	}

	return tx.Commit()
}
