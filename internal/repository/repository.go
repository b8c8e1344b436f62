// Package repository implements all database access for the sign-up platform
// using pgx directly. Every persistence-touching method runs against an
// explicit transaction handle; there is no implicit default connection.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"eventsignup/internal/service"
)

// ErrTxRetriesExhausted is returned when a serializable transaction kept
// hitting serialization conflicts.
var ErrTxRetriesExhausted = errors.New("transaction retries exhausted")

// Postgres is the pgx-backed store. It satisfies service.Store.
type Postgres struct {
	pool       *pgxpool.Pool
	maxRetries int
}

// New constructs the store. maxRetries bounds how often RunSerializable
// replays a transaction after a serialization conflict.
func New(pool *pgxpool.Pool, maxRetries int) *Postgres {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &Postgres{pool: pool, maxRetries: maxRetries}
}

// Pool exposes the underlying pool for read-only queries outside the
// transactional engine (public listings).
func (p *Postgres) Pool() *pgxpool.Pool { return p.pool }

// RunSerializable executes fn inside a serializable transaction, retrying a
// bounded number of times on serialization failures. Domain errors returned
// by fn roll the transaction back and are passed through unchanged.
func (p *Postgres) RunSerializable(ctx context.Context, fn func(tx service.Tx) error) error {
	var lastErr error
	for attempt := 1; attempt <= p.maxRetries; attempt++ {
		err := p.runOnce(ctx, fn)
		if err == nil {
			return nil
		}
		if !isSerializationFailure(err) {
			return err
		}
		lastErr = err
		logrus.WithError(err).WithField("attempt", attempt).
			Debug("serialization conflict, retrying transaction")
		// Brief backoff so the competing transaction can commit first.
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * 10 * time.Millisecond):
		}
	}
	return fmt.Errorf("%w: %v", ErrTxRetriesExhausted, lastErr)
}

func (p *Postgres) runOnce(ctx context.Context, fn func(tx service.Tx) error) error {
	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&pgTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// isSerializationFailure matches serialization_failure and deadlock_detected,
// the two SQLSTATEs Postgres raises when concurrent serializable
// transactions collide.
func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "40001" || pgErr.Code == "40P01"
}

// pgTx adapts one pgx transaction to the service.Tx interface.
type pgTx struct {
	tx pgx.Tx
}
