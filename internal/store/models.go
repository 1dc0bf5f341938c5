package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/ykvlv/assetwatch/internal/domain"
)

func toNullDate(d *domain.Date) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func fromNullDate(ns sql.NullString) (*domain.Date, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	d, err := domain.ParseDate(ns.String)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// Notification settings are stored as a JSON document so that absent fields
// (reminderDays, channels) stay absent after a round trip.
func toNullJSON(n *domain.NotificationSettings) (sql.NullString, error) {
	if n == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(n)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("encode notification settings: %w", err)
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func fromNullJSON(ns sql.NullString) (*domain.NotificationSettings, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	var n domain.NotificationSettings
	if err := json.Unmarshal([]byte(ns.String), &n); err != nil {
		return nil, fmt.Errorf("decode notification settings: %w", err)
	}
	return &n, nil
}

// boolToString converts a boolean for the key/value settings table.
func boolToString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
