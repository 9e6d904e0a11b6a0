package db

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"gumdrop/internal/observability/metrics"
)

// Store wraps a pgx connection pool and exposes typed helpers.
type Store struct {
	pool *pgxpool.Pool
}

// CloseAttempt is one row of close_attempt: the outcome of a single close request.
type CloseAttempt struct {
	ID        int64     `json:"id"`
	Base      string    `json:"base"`
	Method    string    `json:"method"`
	Outcome   string    `json:"outcome"`
	TxID      string    `json:"tx_id,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	Attempts  int       `json:"attempts"`
	CreatedAt time.Time `json:"created_at"`
}

// NotificationLog holds data for notification_log insertions.
type NotificationLog struct {
	BatchID   string
	Position  int
	Channel   string
	Handle    string
	Delivered bool
	Reason    string
}

// New creates a Store backed by a pgx pool.
func New(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

// Close releases underlying connections.
func (s *Store) Close() {
	s.pool.Close()
}

// Ping verifies connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// EnsureSchema guarantees required tables exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	start := time.Now()
	defer func() { metrics.ObserveDBOperation("ensure_schema", time.Since(start)) }()
	_, err := s.pool.Exec(ctx, schemaSQL)
	return err
}

// RunInTx executes fn within a transaction boundary.
func (s *Store) RunInTx(ctx context.Context, fn func(pgx.Tx) error) error {
	start := time.Now()
	defer func() { metrics.ObserveDBOperation("run_in_tx", time.Since(start)) }()
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

// InsertCloseAttempt stores the outcome of a close request.
func (s *Store) InsertCloseAttempt(ctx context.Context, a CloseAttempt) (int64, error) {
	start := time.Now()
	defer func() { metrics.ObserveDBOperation("insert_close_attempt", time.Since(start)) }()
	var id int64
	if err := s.pool.QueryRow(ctx, `
        INSERT INTO close_attempt (base, method, outcome, tx_id, reason, attempts, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, NOW())
        RETURNING id
    `, a.Base, a.Method, a.Outcome, a.TxID, a.Reason, a.Attempts).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

// ListCloseAttempts returns the most recent close attempts for a drop base, newest first.
func (s *Store) ListCloseAttempts(ctx context.Context, base string, limit int) ([]CloseAttempt, error) {
	start := time.Now()
	defer func() { metrics.ObserveDBOperation("list_close_attempts", time.Since(start)) }()
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
        SELECT id, base, method, outcome, tx_id, reason, attempts, created_at
        FROM close_attempt
        WHERE base = $1
        ORDER BY created_at DESC, id DESC
        LIMIT $2
    `, base, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []CloseAttempt
	for rows.Next() {
		var a CloseAttempt
		if err := rows.Scan(&a.ID, &a.Base, &a.Method, &a.Outcome, &a.TxID, &a.Reason, &a.Attempts, &a.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

// InsertNotificationLogsTx stores one row per claimant inside an existing transaction.
func (s *Store) InsertNotificationLogsTx(ctx context.Context, tx pgx.Tx, entries []NotificationLog) error {
	start := time.Now()
	defer func() { metrics.ObserveDBOperation("insert_notification_logs", time.Since(start)) }()
	if len(entries) == 0 {
		return errors.New("notification entries required")
	}
	batch := &pgx.Batch{}
	for _, e := range entries {
		batch.Queue(`
            INSERT INTO notification_log (batch_id, position, channel, handle, delivered, reason)
            VALUES ($1, $2, $3, $4, $5, $6)
            ON CONFLICT (batch_id, position) DO UPDATE
            SET delivered = EXCLUDED.delivered, reason = EXCLUDED.reason
        `, e.BatchID, e.Position, e.Channel, e.Handle, e.Delivered, e.Reason)
	}
	br := tx.SendBatch(ctx, batch)
	return br.Close()
}

// RecordNotifications writes a batch's per-claimant results atomically.
func (s *Store) RecordNotifications(ctx context.Context, entries []NotificationLog) error {
	if len(entries) == 0 {
		return nil
	}
	return s.RunInTx(ctx, func(tx pgx.Tx) error {
		return s.InsertNotificationLogsTx(ctx, tx, entries)
	})
}
