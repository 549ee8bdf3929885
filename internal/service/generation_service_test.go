package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"thoub/internal/model"
	"thoub/internal/repository"

	"github.com/rs/zerolog"
)

type fakeCreditRepo struct {
	users *fakeUserRepo
}

func (r *fakeCreditRepo) GetBalance(ctx context.Context, userID string) (*model.CreditBalance, error) {
	u, err := r.users.GetUserByID(ctx, userID)
	if err != nil || u == nil {
		return nil, err
	}
	return &model.CreditBalance{Measurement: u.MeasurementCredits, Generation: u.GenerationCredits}, nil
}

type fakeGenerationRepo struct {
	mu    sync.Mutex
	users *fakeUserRepo
	rows  map[string]*model.Generation
}

func newFakeGenerationRepo(users *fakeUserRepo) *fakeGenerationRepo {
	return &fakeGenerationRepo{users: users, rows: make(map[string]*model.Generation)}
}

func (r *fakeGenerationRepo) CreateWithCredit(ctx context.Context, g *model.Generation) error {
	r.users.mu.Lock()
	u := r.users.byID[g.UserID]
	if u == nil || u.GenerationCredits <= 0 {
		r.users.mu.Unlock()
		return repository.ErrInsufficientGenerationCredits
	}
	u.GenerationCredits--
	r.users.mu.Unlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[g.ID] = g
	return nil
}

func (r *fakeGenerationRepo) GetByID(ctx context.Context, id string) (*model.Generation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rows[id], nil
}

func (r *fakeGenerationRepo) ListByUser(ctx context.Context, userID string) ([]model.Generation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Generation
	for _, g := range r.rows {
		if g.UserID == userID {
			out = append(out, *g)
		}
	}
	return out, nil
}

func (r *fakeGenerationRepo) DeleteOwned(ctx context.Context, userID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.rows[id]
	if !ok || g.UserID != userID {
		return repository.ErrNotFound
	}
	delete(r.rows, id)
	return nil
}

func styleConfig() model.StyleConfig {
	return model.StyleConfig{Fabric: "tex-1", Pattern: "pat-1", Style: "emirati", Closure: "zip", Pocket: true}
}

func generationFixture(t *testing.T, users *fakeUserRepo) (GenerationService, *fakeGenerationRepo, *fakeMeasurementRepo, *fakeVision) {
	t.Helper()
	measurements := newFakeMeasurementRepo(users)
	generations := newFakeGenerationRepo(users)
	vision := &fakeVision{}
	svc := NewGenerationService(generations, measurements, &fakeCreditRepo{users: users}, vision, zerolog.Nop())
	return svc, generations, measurements, vision
}

func TestGenerateSpendsOneCredit(t *testing.T) {
	users := newFakeUserRepo()
	addTestUser(users, "u1", 1, 3)
	svc, _, measurements, _ := generationFixture(t, users)

	m, err := NewMeasurementService(measurements, users, &fakeVision{}, zerolog.Nop()).
		Capture(context.Background(), "u1", captureInput(), 178, "regular")
	if err != nil {
		t.Fatalf("capture failed: %v", err)
	}

	g, err := svc.Generate(context.Background(), "u1", m.ID, "img-profile", styleConfig())
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if g.ImageURL == "" {
		t.Error("expected a rendered image URL")
	}
	if _, gc := users.credits("u1"); gc != 2 {
		t.Errorf("generation credits = %d, want 2", gc)
	}
}

func TestGenerateRejectsForeignMeasurement(t *testing.T) {
	users := newFakeUserRepo()
	addTestUser(users, "u1", 1, 3)
	addTestUser(users, "u2", 0, 3)
	svc, _, measurements, vision := generationFixture(t, users)

	m, err := NewMeasurementService(measurements, users, &fakeVision{}, zerolog.Nop()).
		Capture(context.Background(), "u1", captureInput(), 178, "regular")
	if err != nil {
		t.Fatalf("capture failed: %v", err)
	}

	if _, err := svc.Generate(context.Background(), "u2", m.ID, "img-profile", styleConfig()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign measurement, got %v", err)
	}
	if vision.tryOnCalls != 0 {
		t.Errorf("vision called %d times for a foreign measurement", vision.tryOnCalls)
	}
	if _, gc := users.credits("u2"); gc != 3 {
		t.Errorf("credits were touched: %d", gc)
	}
}

func TestGenerateWithoutCreditsSkipsVision(t *testing.T) {
	users := newFakeUserRepo()
	addTestUser(users, "u1", 1, 0)
	svc, _, measurements, vision := generationFixture(t, users)

	m, err := NewMeasurementService(measurements, users, &fakeVision{}, zerolog.Nop()).
		Capture(context.Background(), "u1", captureInput(), 178, "regular")
	if err != nil {
		t.Fatalf("capture failed: %v", err)
	}

	if _, err := svc.Generate(context.Background(), "u1", m.ID, "img-profile", styleConfig()); !errors.Is(err, repository.ErrInsufficientGenerationCredits) {
		t.Fatalf("expected insufficient-credits error, got %v", err)
	}
	if vision.tryOnCalls != 0 {
		t.Errorf("vision called %d times despite empty balance", vision.tryOnCalls)
	}
}

func TestGenerationGetAndDeleteAreOwnerScoped(t *testing.T) {
	users := newFakeUserRepo()
	addTestUser(users, "u1", 1, 3)
	addTestUser(users, "u2", 0, 3)
	svc, _, measurements, _ := generationFixture(t, users)

	m, err := NewMeasurementService(measurements, users, &fakeVision{}, zerolog.Nop()).
		Capture(context.Background(), "u1", captureInput(), 178, "regular")
	if err != nil {
		t.Fatalf("capture failed: %v", err)
	}
	g, err := svc.Generate(context.Background(), "u1", m.ID, "img-profile", styleConfig())
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	if _, err := svc.Get(context.Background(), "u2", g.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for non-owner get, got %v", err)
	}
	if err := svc.Delete(context.Background(), "u2", g.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for non-owner delete, got %v", err)
	}
	if err := svc.Delete(context.Background(), "u1", g.ID); err != nil {
		t.Fatalf("owner delete failed: %v", err)
	}
	if _, err := svc.Get(context.Background(), "u1", g.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}
