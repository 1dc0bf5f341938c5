package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	// Registers the "sqlite" driver (pure Go).
	_ "modernc.org/sqlite"

	"github.com/ykvlv/assetwatch/internal/domain"
)

// SQLiteRepo implements Repo using an embedded SQLite database.
type SQLiteRepo struct{ db *sql.DB }

// OpenSQLite opens (or creates) the SQLite database at the given path,
// applies recommended PRAGMAs, runs SQL migrations, and returns a repository.
func OpenSQLite(ctx context.Context, path string) (*SQLiteRepo, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// SQLite is a single-writer engine.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := applyPragmas(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}
	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	return &SQLiteRepo{db: db}, nil
}

func applyPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA foreign_keys=ON;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the underlying database resources.
func (r *SQLiteRepo) Close() error {
	return r.db.Close()
}

const resourceColumns = `id, name, provider, category, currency, currency_symbol, cost,
		billing_cycle, expiry_date, start_date, notes, notification, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanResource(row rowScanner) (*domain.Resource, error) {
	var (
		res          domain.Resource
		category     string
		cost         string
		billing      string
		expiryNS     sql.NullString
		startNS      sql.NullString
		notification sql.NullString
		createdAt    int64
		updatedAt    int64
	)
	if err := row.Scan(
		&res.ID, &res.Name, &res.Provider, &category, &res.Currency, &res.CurrencySymbol, &cost,
		&billing, &expiryNS, &startNS, &res.Notes, &notification, &createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}

	var err error
	res.Category = domain.Category(category)
	res.BillingCycle = domain.BillingCycle(billing)
	if res.Cost, err = decimal.NewFromString(cost); err != nil {
		return nil, fmt.Errorf("resource %s: cost: %w", res.ID, err)
	}
	if res.ExpiryDate, err = fromNullDate(expiryNS); err != nil {
		return nil, fmt.Errorf("resource %s: expiry_date: %w", res.ID, err)
	}
	if res.StartDate, err = fromNullDate(startNS); err != nil {
		return nil, fmt.Errorf("resource %s: start_date: %w", res.ID, err)
	}
	if res.Notification, err = fromNullJSON(notification); err != nil {
		return nil, fmt.Errorf("resource %s: %w", res.ID, err)
	}
	res.CreatedAt = time.Unix(createdAt, 0).UTC()
	res.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return &res, nil
}

// ListResources returns all resources ordered by expiry date; undated
// resources come last.
func (r *SQLiteRepo) ListResources(ctx context.Context) ([]domain.Resource, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+resourceColumns+`
		FROM resources
		ORDER BY expiry_date IS NULL, expiry_date ASC, name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Resource
	for rows.Next() {
		res, err := scanResource(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *res)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetResource returns a resource by id or ErrNotFound.
func (r *SQLiteRepo) GetResource(ctx context.Context, id string) (*domain.Resource, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+resourceColumns+` FROM resources WHERE id = ?`, id)
	res, err := scanResource(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return res, err
}

func resourceArgs(res *domain.Resource) ([]any, error) {
	notification, err := toNullJSON(res.Notification)
	if err != nil {
		return nil, err
	}
	return []any{
		res.ID, res.Name, res.Provider, string(res.Category), res.Currency, res.CurrencySymbol,
		res.Cost.String(), string(res.BillingCycle), toNullDate(res.ExpiryDate), toNullDate(res.StartDate),
		res.Notes, notification, res.CreatedAt.UTC().Unix(), res.UpdatedAt.UTC().Unix(),
	}, nil
}

func stampTimes(res *domain.Resource) {
	now := time.Now().UTC().Truncate(time.Second)
	if res.CreatedAt.IsZero() {
		res.CreatedAt = now
	}
	res.UpdatedAt = now
}

// CreateResource inserts a new resource. The caller assigns the id.
func (r *SQLiteRepo) CreateResource(ctx context.Context, res *domain.Resource) error {
	if res == nil || res.ID == "" {
		return errors.New("resource id is required")
	}
	stampTimes(res)
	args, err := resourceArgs(res)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO resources (`+resourceColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, args...)
	return err
}

// UpdateResource replaces all fields of an existing resource.
func (r *SQLiteRepo) UpdateResource(ctx context.Context, res *domain.Resource) error {
	stampTimes(res)
	notification, err := toNullJSON(res.Notification)
	if err != nil {
		return err
	}
	result, err := r.db.ExecContext(ctx, `
		UPDATE resources SET
			name = ?, provider = ?, category = ?, currency = ?, currency_symbol = ?, cost = ?,
			billing_cycle = ?, expiry_date = ?, start_date = ?, notes = ?, notification = ?,
			updated_at = ?
		WHERE id = ?`,
		res.Name, res.Provider, string(res.Category), res.Currency, res.CurrencySymbol, res.Cost.String(),
		string(res.BillingCycle), toNullDate(res.ExpiryDate), toNullDate(res.StartDate), res.Notes, notification,
		res.UpdatedAt.Unix(), res.ID,
	)
	if err != nil {
		return err
	}
	return expectOneRow(result)
}

// UpsertResource inserts or fully replaces a resource, keeping timestamps
// supplied by the caller. Used by bulk import.
func (r *SQLiteRepo) UpsertResource(ctx context.Context, res *domain.Resource) error {
	if res == nil || res.ID == "" {
		return errors.New("resource id is required")
	}
	if res.CreatedAt.IsZero() || res.UpdatedAt.IsZero() {
		stampTimes(res)
	}
	args, err := resourceArgs(res)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO resources (`+resourceColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name            = excluded.name,
			provider        = excluded.provider,
			category        = excluded.category,
			currency        = excluded.currency,
			currency_symbol = excluded.currency_symbol,
			cost            = excluded.cost,
			billing_cycle   = excluded.billing_cycle,
			expiry_date     = excluded.expiry_date,
			start_date      = excluded.start_date,
			notes           = excluded.notes,
			notification    = excluded.notification,
			created_at      = excluded.created_at,
			updated_at      = excluded.updated_at`, args...)
	return err
}

// DeleteResource removes a resource or returns ErrNotFound.
func (r *SQLiteRepo) DeleteResource(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM resources WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return expectOneRow(result)
}

// UpdateResourceNotificationState sets lastNotified inside the stored
// notification settings, creating default settings when the resource had none.
func (r *SQLiteRepo) UpdateResourceNotificationState(ctx context.Context, id string, lastNotified string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var raw sql.NullString
	if err := tx.QueryRowContext(ctx, `SELECT notification FROM resources WHERE id = ?`, id).Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	n, err := fromNullJSON(raw)
	if err != nil {
		return err
	}
	if n == nil {
		n = &domain.NotificationSettings{Enabled: true, UseGlobal: true}
	}
	n.LastNotified = lastNotified

	encoded, err := toNullJSON(n)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE resources SET notification = ? WHERE id = ?`, encoded, id); err != nil {
		return err
	}
	return tx.Commit()
}

func expectOneRow(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Settings keys of the key/value table.
const (
	keyReminderDays    = "reminder_days"
	keyTelegramEnabled = "telegram_enabled"
	keyTelegramChatID  = "telegram_chat_id"
	keyEmailEnabled    = "email_enabled"
	keyEmailAddress    = "email_address"
	keyWebhookEnabled  = "webhook_enabled"
	keyWebhookURL      = "webhook_url"
)

// GetSettings loads the global settings. Missing keys keep their defaults, so
// a fresh database yields domain.DefaultSettings().
func (r *SQLiteRepo) GetSettings(ctx context.Context) (domain.Settings, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT key, value FROM settings`)
	if err != nil {
		return domain.Settings{}, err
	}
	defer rows.Close()

	s := domain.DefaultSettings()
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return domain.Settings{}, err
		}
		switch key {
		case keyReminderDays:
			days, err := strconv.Atoi(value)
			if err != nil {
				return domain.Settings{}, fmt.Errorf("parsing %s: %w", key, err)
			}
			s.ReminderDays = days
		case keyTelegramEnabled:
			s.Telegram.Enabled = value == "true"
		case keyTelegramChatID:
			s.Telegram.ChatID = value
		case keyEmailEnabled:
			s.Email.Enabled = value == "true"
		case keyEmailAddress:
			s.Email.Address = value
		case keyWebhookEnabled:
			s.Webhook.Enabled = value == "true"
		case keyWebhookURL:
			s.Webhook.URL = value
		}
	}
	if err := rows.Err(); err != nil {
		return domain.Settings{}, err
	}
	return s, nil
}

// SaveSettings writes every settings key in one transaction.
func (r *SQLiteRepo) SaveSettings(ctx context.Context, s domain.Settings) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO settings (key, value) VALUES (?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	pairs := [][2]string{
		{keyReminderDays, strconv.Itoa(s.ReminderDays)},
		{keyTelegramEnabled, boolToString(s.Telegram.Enabled)},
		{keyTelegramChatID, s.Telegram.ChatID},
		{keyEmailEnabled, boolToString(s.Email.Enabled)},
		{keyEmailAddress, s.Email.Address},
		{keyWebhookEnabled, boolToString(s.Webhook.Enabled)},
		{keyWebhookURL, s.Webhook.URL},
	}
	for _, kv := range pairs {
		if _, err := stmt.ExecContext(ctx, kv[0], kv[1]); err != nil {
			return fmt.Errorf("save %s: %w", kv[0], err)
		}
	}
	return tx.Commit()
}
