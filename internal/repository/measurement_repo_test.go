package repository

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"

	"thoub/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// testPool connects to the database named by TEST_DATABASE_URL, which
// must have db/schema.sql applied. Skipped otherwise.
func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL is not set, skip database integration test")
	}
	pool, err := pgxpool.New(context.Background(), url)
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool
}

func seedUser(t *testing.T, pool *pgxpool.Pool, measurementCredits int) string {
	t.Helper()
	ctx := context.Background()
	id := uuid.NewString()
	const q = `INSERT INTO users (id, email, name, measurement_credits, generation_credits)
	           VALUES ($1, $2, 'Test User', $3, 0)`
	if _, err := pool.Exec(ctx, q, id, id+"@example.com", measurementCredits); err != nil {
		t.Fatalf("seeding user: %v", err)
	}
	t.Cleanup(func() {
		pool.Exec(ctx, `DELETE FROM measurements WHERE user_id = $1`, id)
		pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	})
	return id
}

func testMeasurement(userID string) *model.Measurement {
	return &model.Measurement{
		ID:           uuid.NewString(),
		UserID:       userID,
		ThobeLength:  141.5,
		Chest:        108,
		Sleeve:       61,
		Shoulder:     45.5,
		HeightCm:     178,
		FrontImageID: "img-f",
	}
}

// Two concurrent spends against a balance of one must resolve to one
// created row and one distinguished insufficient-credits error, not a
// serialization failure surfacing as a generic 500.
func TestCreateWithCreditConcurrentExhaustion(t *testing.T) {
	pool := testPool(t)
	repo := NewMeasurementRepo(pool)
	userID := seedUser(t, pool, 1)

	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = repo.CreateWithCredit(context.Background(), testMeasurement(userID))
		}(i)
	}
	wg.Wait()

	var successes, insufficient int
	for _, err := range errs {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, ErrInsufficientMeasurementCredits):
			insufficient++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if successes != 1 || insufficient != 1 {
		t.Fatalf("successes = %d, insufficient = %d, want 1 and 1", successes, insufficient)
	}

	var credits, rows int
	if err := pool.QueryRow(context.Background(),
		`SELECT measurement_credits, (SELECT COUNT(*) FROM measurements WHERE user_id = $1) FROM users WHERE id = $1`,
		userID).Scan(&credits, &rows); err != nil {
		t.Fatalf("reading final state: %v", err)
	}
	if credits != 0 || rows != 1 {
		t.Errorf("credits = %d, rows = %d, want 0 and 1", credits, rows)
	}
}

// With enough balance for both, neither concurrent spend may fail.
func TestCreateWithCreditConcurrentWithinBalance(t *testing.T) {
	pool := testPool(t)
	repo := NewMeasurementRepo(pool)
	userID := seedUser(t, pool, 2)

	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = repo.CreateWithCredit(context.Background(), testMeasurement(userID))
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("spend %d returned error: %v", i, err)
		}
	}
}
