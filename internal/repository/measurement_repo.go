package repository

import (
	"context"
	"errors"
	"fmt"

	"thoub/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type MeasurementRepository interface {
	// CreateWithCredit persists the measurement and spends one
	// measurement credit in a single transaction. If the conditional
	// decrement affects no row the transaction rolls back and
	// ErrInsufficientMeasurementCredits is returned, so a row only
	// ever exists when a credit was consumed for it.
	CreateWithCredit(ctx context.Context, m *model.Measurement) error
	GetByID(ctx context.Context, id string) (*model.Measurement, error)
	ListByUser(ctx context.Context, userID string) ([]model.Measurement, error)
	// CountOwned returns how many of the given ids exist and belong to
	// the user. Duplicate ids count once.
	CountOwned(ctx context.Context, userID string, ids []string) (int, error)
	// AttachProfileImage sets the profile image on an owned measurement.
	// Returns ErrNotFound when the row is missing or not owned.
	AttachProfileImage(ctx context.Context, userID, measurementID, profileImageID string) error
}

type measurementRepo struct {
	pool *pgxpool.Pool
}

func NewMeasurementRepo(pool *pgxpool.Pool) MeasurementRepository {
	return &measurementRepo{pool: pool}
}

const measurementColumns = `id, user_id, thobe_length, chest, sleeve, shoulder, height_cm, front_image_id, side_image_id, profile_image_id, created_at`

func scanMeasurement(row pgx.Row) (*model.Measurement, error) {
	var m model.Measurement
	err := row.Scan(&m.ID, &m.UserID, &m.ThobeLength, &m.Chest, &m.Sleeve, &m.Shoulder,
		&m.HeightCm, &m.FrontImageID, &m.SideImageID, &m.ProfileImageID, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

func (r *measurementRepo) CreateWithCredit(ctx context.Context, m *model.Measurement) error {
	// Default isolation on purpose. The conditional UPDATE re-checks its
	// WHERE clause after acquiring the row lock, so the loser of two
	// concurrent spends sees RowsAffected 0 and gets the insufficient
	// error; under SERIALIZABLE it would abort with a serialization
	// failure instead.
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("starting transaction for measurement create: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	if err := decrementCredit(ctx, tx, m.UserID, CreditMeasurement); err != nil {
		return err
	}
	const q = `
		INSERT INTO measurements (id, user_id, thobe_length, chest, sleeve, shoulder, height_cm, front_image_id, side_image_id, profile_image_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at
	`
	err = tx.QueryRow(ctx, q, m.ID, m.UserID, m.ThobeLength, m.Chest, m.Sleeve, m.Shoulder,
		m.HeightCm, m.FrontImageID, m.SideImageID, m.ProfileImageID).Scan(&m.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting measurement for user %s: %w", m.UserID, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing measurement for user %s: %w", m.UserID, err)
	}
	return nil
}

func (r *measurementRepo) GetByID(ctx context.Context, id string) (*model.Measurement, error) {
	q := `SELECT ` + measurementColumns + ` FROM measurements WHERE id = $1`
	return scanMeasurement(r.pool.QueryRow(ctx, q, id))
}

func (r *measurementRepo) ListByUser(ctx context.Context, userID string) ([]model.Measurement, error) {
	q := `SELECT ` + measurementColumns + ` FROM measurements WHERE user_id = $1 ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("listing measurements for user %s: %w", userID, err)
	}
	defer rows.Close()

	var out []model.Measurement
	for rows.Next() {
		var m model.Measurement
		if err := rows.Scan(&m.ID, &m.UserID, &m.ThobeLength, &m.Chest, &m.Sleeve, &m.Shoulder,
			&m.HeightCm, &m.FrontImageID, &m.SideImageID, &m.ProfileImageID, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning measurement row: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *measurementRepo) CountOwned(ctx context.Context, userID string, ids []string) (int, error) {
	const q = `SELECT COUNT(*) FROM measurements WHERE user_id = $1 AND id = ANY($2)`
	var count int
	if err := r.pool.QueryRow(ctx, q, userID, ids).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting owned measurements for user %s: %w", userID, err)
	}
	return count, nil
}

func (r *measurementRepo) AttachProfileImage(ctx context.Context, userID, measurementID, profileImageID string) error {
	const q = `UPDATE measurements SET profile_image_id = $3 WHERE id = $2 AND user_id = $1`
	tag, err := r.pool.Exec(ctx, q, userID, measurementID, profileImageID)
	if err != nil {
		return fmt.Errorf("attaching profile image to measurement %s: %w", measurementID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
