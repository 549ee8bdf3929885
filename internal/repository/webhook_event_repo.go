package repository

import (
	"context"
	"fmt"

	"thoub/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// WebhookEventRepository applies payment-webhook effects. Each method
// records the Stripe event id and performs the effect in one
// transaction, so a redelivered event is detected by the conflicting
// insert and acked without re-applying anything.
type WebhookEventRepository interface {
	// ApplyCreditTopUp adds the pack amounts to the user's balances.
	// Returns false when the event id was already processed.
	ApplyCreditTopUp(ctx context.Context, eventID, userID string, measurement, generation int) (bool, error)
	// MarkOrderPaid flips the order matching the checkout session id from
	// PENDING to PAID. Returns the paid order, or nil when the event was
	// already processed or no order matches the session (an orphaned
	// session is tolerated, not an error).
	MarkOrderPaid(ctx context.Context, eventID, sessionID string) (*model.Order, error)
}

type webhookEventRepo struct {
	pool *pgxpool.Pool
}

func NewWebhookEventRepo(pool *pgxpool.Pool) WebhookEventRepository {
	return &webhookEventRepo{pool: pool}
}

const recordEventQ = `INSERT INTO webhook_events (event_id) VALUES ($1) ON CONFLICT (event_id) DO NOTHING`

func (r *webhookEventRepo) ApplyCreditTopUp(ctx context.Context, eventID, userID string, measurement, generation int) (bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("starting transaction for top-up event %s: %w", eventID, err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	tag, err := tx.Exec(ctx, recordEventQ, eventID)
	if err != nil {
		return false, fmt.Errorf("recording webhook event %s: %w", eventID, err)
	}
	if tag.RowsAffected() == 0 {
		// Already processed; nothing to apply.
		return false, nil
	}
	if err := addCredits(ctx, tx, userID, measurement, generation); err != nil {
		return false, err
	}
	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("committing top-up event %s: %w", eventID, err)
	}
	return true, nil
}

func (r *webhookEventRepo) MarkOrderPaid(ctx context.Context, eventID, sessionID string) (*model.Order, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("starting transaction for payment event %s: %w", eventID, err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	tag, err := tx.Exec(ctx, recordEventQ, eventID)
	if err != nil {
		return nil, fmt.Errorf("recording webhook event %s: %w", eventID, err)
	}
	if tag.RowsAffected() == 0 {
		return nil, nil
	}
	const q = `
		UPDATE orders SET status = $2
		WHERE stripe_session_id = $1 AND status = $3
		RETURNING id, user_id, total
	`
	var o model.Order
	err = tx.QueryRow(ctx, q, sessionID, model.OrderStatusPaid, model.OrderStatusPending).Scan(&o.ID, &o.UserID, &o.Total)
	if err != nil {
		if err == pgx.ErrNoRows {
			// Orphaned session (order insert failed after the gateway call)
			// or the order was already paid. Record the event and move on.
			if err := tx.Commit(ctx); err != nil {
				return nil, fmt.Errorf("committing payment event %s: %w", eventID, err)
			}
			return nil, nil
		}
		return nil, fmt.Errorf("marking order paid for session %s: %w", sessionID, err)
	}
	o.Status = model.OrderStatusPaid
	o.StripeSessionID = sessionID
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing payment event %s: %w", eventID, err)
	}
	return &o, nil
}
