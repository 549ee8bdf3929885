package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"thoub/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type GenerationRepository interface {
	// CreateWithCredit persists the generation and spends one generation
	// credit in a single transaction, mirroring
	// MeasurementRepository.CreateWithCredit.
	CreateWithCredit(ctx context.Context, g *model.Generation) error
	GetByID(ctx context.Context, id string) (*model.Generation, error)
	// ListByUser returns the user's catalogue, newest first, with the
	// backing measurement attached to each entry.
	ListByUser(ctx context.Context, userID string) ([]model.Generation, error)
	// DeleteOwned removes a generation only when it belongs to the user.
	// Returns ErrNotFound when the row is missing or not owned.
	DeleteOwned(ctx context.Context, userID, generationID string) error
}

type generationRepo struct {
	pool *pgxpool.Pool
}

func NewGenerationRepo(pool *pgxpool.Pool) GenerationRepository {
	return &generationRepo{pool: pool}
}

func (r *generationRepo) CreateWithCredit(ctx context.Context, g *model.Generation) error {
	cfg, err := json.Marshal(g.Config)
	if err != nil {
		return fmt.Errorf("marshaling style config: %w", err)
	}
	// Default isolation, same reasoning as the measurement repo: the
	// conditional decrement must report RowsAffected 0 to the loser, not
	// a serialization failure.
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("starting transaction for generation create: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	if err := decrementCredit(ctx, tx, g.UserID, CreditGeneration); err != nil {
		return err
	}
	const q = `
		INSERT INTO generations (id, user_id, measurement_id, image_url, config)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`
	err = tx.QueryRow(ctx, q, g.ID, g.UserID, g.MeasurementID, g.ImageURL, cfg).Scan(&g.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting generation for user %s: %w", g.UserID, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing generation for user %s: %w", g.UserID, err)
	}
	return nil
}

func (r *generationRepo) GetByID(ctx context.Context, id string) (*model.Generation, error) {
	const q = `
		SELECT g.id, g.user_id, g.measurement_id, g.image_url, g.config, g.created_at,
		       ` + prefixedMeasurementColumns + `
		FROM generations g
		JOIN measurements m ON m.id = g.measurement_id
		WHERE g.id = $1
	`
	g, err := scanGenerationWithMeasurement(r.pool.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetching generation %s: %w", id, err)
	}
	return g, nil
}

func (r *generationRepo) ListByUser(ctx context.Context, userID string) ([]model.Generation, error) {
	const q = `
		SELECT g.id, g.user_id, g.measurement_id, g.image_url, g.config, g.created_at,
		       ` + prefixedMeasurementColumns + `
		FROM generations g
		JOIN measurements m ON m.id = g.measurement_id
		WHERE g.user_id = $1
		ORDER BY g.created_at DESC
	`
	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("listing generations for user %s: %w", userID, err)
	}
	defer rows.Close()

	var out []model.Generation
	for rows.Next() {
		g, err := scanGenerationWithMeasurement(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning generation row: %w", err)
		}
		out = append(out, *g)
	}
	return out, rows.Err()
}

func (r *generationRepo) DeleteOwned(ctx context.Context, userID, generationID string) error {
	const q = `DELETE FROM generations WHERE id = $2 AND user_id = $1`
	tag, err := r.pool.Exec(ctx, q, userID, generationID)
	if err != nil {
		return fmt.Errorf("deleting generation %s: %w", generationID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

const prefixedMeasurementColumns = `m.id, m.user_id, m.thobe_length, m.chest, m.sleeve, m.shoulder, m.height_cm, m.front_image_id, m.side_image_id, m.profile_image_id, m.created_at`

func scanGenerationWithMeasurement(row pgx.Row) (*model.Generation, error) {
	var g model.Generation
	var m model.Measurement
	var cfg []byte
	err := row.Scan(&g.ID, &g.UserID, &g.MeasurementID, &g.ImageURL, &cfg, &g.CreatedAt,
		&m.ID, &m.UserID, &m.ThobeLength, &m.Chest, &m.Sleeve, &m.Shoulder,
		&m.HeightCm, &m.FrontImageID, &m.SideImageID, &m.ProfileImageID, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(cfg, &g.Config); err != nil {
		return nil, fmt.Errorf("unmarshaling style config: %w", err)
	}
	g.Measurement = &m
	return &g, nil
}
