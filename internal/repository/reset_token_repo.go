package repository

import (
	"context"
	"errors"
	"fmt"

	"thoub/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ResetTokenRepository interface {
	// Replace deletes any previous tokens for the email and stores the
	// new one, keeping at most one live token per email.
	Replace(ctx context.Context, t *model.PasswordResetToken) error
	GetByToken(ctx context.Context, token string) (*model.PasswordResetToken, error)
	Delete(ctx context.Context, token string) error
}

type resetTokenRepo struct {
	pool *pgxpool.Pool
}

func NewResetTokenRepo(pool *pgxpool.Pool) ResetTokenRepository {
	return &resetTokenRepo{pool: pool}
}

func (r *resetTokenRepo) Replace(ctx context.Context, t *model.PasswordResetToken) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("starting transaction for reset token: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	if _, err := tx.Exec(ctx, `DELETE FROM password_reset_tokens WHERE email = $1`, t.Email); err != nil {
		return fmt.Errorf("deleting prior reset tokens for %s: %w", t.Email, err)
	}
	const q = `INSERT INTO password_reset_tokens (token, email, expires_at) VALUES ($1, $2, $3)`
	if _, err := tx.Exec(ctx, q, t.Token, t.Email, t.ExpiresAt); err != nil {
		return fmt.Errorf("inserting reset token for %s: %w", t.Email, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing reset token for %s: %w", t.Email, err)
	}
	return nil
}

func (r *resetTokenRepo) GetByToken(ctx context.Context, token string) (*model.PasswordResetToken, error) {
	const q = `SELECT token, email, expires_at FROM password_reset_tokens WHERE token = $1`
	var t model.PasswordResetToken
	if err := r.pool.QueryRow(ctx, q, token).Scan(&t.Token, &t.Email, &t.ExpiresAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetching reset token: %w", err)
	}
	return &t, nil
}

func (r *resetTokenRepo) Delete(ctx context.Context, token string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM password_reset_tokens WHERE token = $1`, token); err != nil {
		return fmt.Errorf("deleting reset token: %w", err)
	}
	return nil
}
