package repository

import (
	"context"
	"errors"
	"fmt"

	"thoub/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CreditKind selects which of the two per-user balances an operation
// acts on.
type CreditKind string

const (
	CreditMeasurement CreditKind = "measurement"
	CreditGeneration  CreditKind = "generation"
)

// CreditRepository reads the two credit counters on the users row.
// Writes never happen through it: spends run inside CreateWithCredit
// transactions, top-ups inside the webhook event transaction, both via
// the shared ledger statements below.
type CreditRepository interface {
	GetBalance(ctx context.Context, userID string) (*model.CreditBalance, error)
}

type creditRepo struct {
	pool *pgxpool.Pool
}

func NewCreditRepo(pool *pgxpool.Pool) CreditRepository {
	return &creditRepo{pool: pool}
}

func (r *creditRepo) GetBalance(ctx context.Context, userID string) (*model.CreditBalance, error) {
	const q = `SELECT measurement_credits, generation_credits FROM users WHERE id = $1`
	var b model.CreditBalance
	if err := r.pool.QueryRow(ctx, q, userID).Scan(&b.Measurement, &b.Generation); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetching credit balance for user %s: %w", userID, err)
	}
	return &b, nil
}

// execer is satisfied by both pgxpool.Pool and pgx.Tx, so the ledger
// statements can run standalone or inside a larger transaction.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func decrementCredit(ctx context.Context, db execer, userID string, kind CreditKind) error {
	var q string
	var insufficient error
	switch kind {
	case CreditMeasurement:
		q = `UPDATE users SET measurement_credits = measurement_credits - 1, updated_at = NOW()
		     WHERE id = $1 AND measurement_credits > 0`
		insufficient = ErrInsufficientMeasurementCredits
	case CreditGeneration:
		q = `UPDATE users SET generation_credits = generation_credits - 1, updated_at = NOW()
		     WHERE id = $1 AND generation_credits > 0`
		insufficient = ErrInsufficientGenerationCredits
	default:
		return fmt.Errorf("unknown credit kind: %s", kind)
	}
	tag, err := db.Exec(ctx, q, userID)
	if err != nil {
		return fmt.Errorf("decrementing %s credit for user %s: %w", kind, userID, err)
	}
	if tag.RowsAffected() == 0 {
		return insufficient
	}
	return nil
}

func addCredits(ctx context.Context, db execer, userID string, measurement, generation int) error {
	const q = `
		UPDATE users
		SET measurement_credits = measurement_credits + $2,
		    generation_credits = generation_credits + $3,
		    updated_at = NOW()
		WHERE id = $1
	`
	tag, err := db.Exec(ctx, q, userID, measurement, generation)
	if err != nil {
		return fmt.Errorf("adding credits for user %s: %w", userID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
