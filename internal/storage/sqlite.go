package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver registration.

	"weatherbot/internal/model"
	"weatherbot/migrations"
)

const timeLayout = "2006-01-02T15:04:05Z"

// SQLite implements Storage backed by a SQLite database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at dsn and runs pending migrations.
// Databases created by older versions without the location scope columns
// are upgraded in place by the migration chain.
func NewSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if err := migrations.Run(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// CreateSubscription inserts a subscription and populates its ID and
// CreatedAt. A duplicate scope is ignored and reported as false.
func (s *SQLite) CreateSubscription(ctx context.Context, sub *model.Subscription) (bool, error) {
	now := time.Now().UTC().Format(timeLayout)
	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO weather_subscriptions
		     (province, group_id, user_id, location_type, full_location, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		sub.Province, sub.GroupID, sub.UserID, string(sub.Kind), sub.FullLocation, now,
	)
	if err != nil {
		return false, fmt.Errorf("insert subscription: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return false, nil
	}
	id, err := res.LastInsertId()
	if err != nil {
		return false, fmt.Errorf("last insert id: %w", err)
	}
	sub.ID = id
	sub.CreatedAt, _ = time.Parse(timeLayout, now)
	return true, nil
}

// DeleteSubscription removes one subscription row. Province and nationwide
// scopes delete by the province key; location scopes delete strictly by the
// full location string so sibling districts in the same province survive.
func (s *SQLite) DeleteSubscription(ctx context.Context, sub model.Subscription) error {
	var err error
	if sub.Kind == model.ScopeLocation {
		_, err = s.db.ExecContext(ctx,
			`DELETE FROM weather_subscriptions
			 WHERE full_location = ? AND group_id = ? AND user_id = ? AND location_type = ?`,
			sub.FullLocation, sub.GroupID, sub.UserID, string(model.ScopeLocation),
		)
	} else {
		_, err = s.db.ExecContext(ctx,
			`DELETE FROM weather_subscriptions
			 WHERE province = ? AND group_id = ? AND user_id = ? AND location_type = ?`,
			sub.Province, sub.GroupID, sub.UserID, string(sub.Kind),
		)
	}
	if err != nil {
		return fmt.Errorf("delete subscription: %w", err)
	}
	return nil
}

// ListSubscriptions returns every subscription, ordered by insertion.
func (s *SQLite) ListSubscriptions(ctx context.Context) ([]model.Subscription, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, province, group_id, user_id, location_type, full_location, created_at
		 FROM weather_subscriptions ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("query subscriptions: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanSubscriptions(rows)
}

// ListUserSubscriptions returns every subscription held by the given user.
func (s *SQLite) ListUserSubscriptions(ctx context.Context, userID string) ([]model.Subscription, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, province, group_id, user_id, location_type, full_location, created_at
		 FROM weather_subscriptions WHERE user_id = ? ORDER BY id`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query user subscriptions: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanSubscriptions(rows)
}

// MarkConsumed records an alarm in the dedup ledger. The insert is
// conditional on the primary key, so a repeated call is a no-op.
func (s *SQLite) MarkConsumed(ctx context.Context, alertID, title, issueTime string) error {
	now := time.Now().UTC().Format(timeLayout)
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO processed_weather_alarms (alertid, title, issuetime, created_at)
		 VALUES (?, ?, ?, ?)`,
		alertID, title, issueTime, now,
	)
	if err != nil {
		return fmt.Errorf("mark consumed: %w", err)
	}
	return nil
}

// IsConsumed checks whether an alarm id is present in the dedup ledger.
func (s *SQLite) IsConsumed(ctx context.Context, alertID string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM processed_weather_alarms WHERE alertid = ?`, alertID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check consumed: %w", err)
	}
	return count > 0, nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanSubscription(row scannable) (model.Subscription, error) {
	var sub model.Subscription
	var kind string
	var created sql.NullString
	err := row.Scan(&sub.ID, &sub.Province, &sub.GroupID, &sub.UserID, &kind, &sub.FullLocation, &created)
	if err != nil {
		return sub, fmt.Errorf("scan subscription: %w", err)
	}
	sub.Kind = model.ScopeKind(kind)
	if created.Valid {
		sub.CreatedAt, _ = time.Parse(timeLayout, created.String)
	}
	return sub, nil
}

func scanSubscriptions(rows *sql.Rows) ([]model.Subscription, error) {
	var subs []model.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}
