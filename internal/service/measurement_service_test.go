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

// fakeMeasurementRepo enforces the same contract as the real one: the
// row insert and the credit decrement succeed or fail together.
type fakeMeasurementRepo struct {
	mu      sync.Mutex
	users   *fakeUserRepo
	rows    map[string]*model.Measurement
	created int
}

func newFakeMeasurementRepo(users *fakeUserRepo) *fakeMeasurementRepo {
	return &fakeMeasurementRepo{users: users, rows: make(map[string]*model.Measurement)}
}

func (r *fakeMeasurementRepo) CreateWithCredit(ctx context.Context, m *model.Measurement) error {
	r.users.mu.Lock()
	u := r.users.byID[m.UserID]
	if u == nil || u.MeasurementCredits <= 0 {
		r.users.mu.Unlock()
		return repository.ErrInsufficientMeasurementCredits
	}
	u.MeasurementCredits--
	r.users.mu.Unlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[m.ID] = m
	r.created++
	return nil
}

func (r *fakeMeasurementRepo) GetByID(ctx context.Context, id string) (*model.Measurement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rows[id], nil
}

func (r *fakeMeasurementRepo) ListByUser(ctx context.Context, userID string) ([]model.Measurement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Measurement
	for _, m := range r.rows {
		if m.UserID == userID {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (r *fakeMeasurementRepo) CountOwned(ctx context.Context, userID string, ids []string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, id := range ids {
		if m, ok := r.rows[id]; ok && m.UserID == userID {
			count++
		}
	}
	return count, nil
}

func (r *fakeMeasurementRepo) AttachProfileImage(ctx context.Context, userID, measurementID, profileImageID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.rows[measurementID]
	if !ok || m.UserID != userID {
		return repository.ErrNotFound
	}
	m.ProfileImageID = &profileImageID
	return nil
}

type fakeVision struct {
	mu           sync.Mutex
	measureCalls int
	tryOnCalls   int
	measureErr   error
	tryOnErr     error
	imageURL     string
}

func (v *fakeVision) Measure(ctx context.Context, in CaptureInput, heightCm float64, fitType string) (*MeasureResult, error) {
	v.mu.Lock()
	v.measureCalls++
	v.mu.Unlock()
	if v.measureErr != nil {
		return nil, v.measureErr
	}
	return &MeasureResult{
		ThobeLength:    140,
		Chest:          110,
		Sleeve:         62,
		Shoulder:       46,
		FrontImageID:   "img-front",
		ProfileImageID: "img-profile",
	}, nil
}

func (v *fakeVision) TryOn(ctx context.Context, profileImageID string, cfg model.StyleConfig) (string, error) {
	v.mu.Lock()
	v.tryOnCalls++
	v.mu.Unlock()
	if v.tryOnErr != nil {
		return "", v.tryOnErr
	}
	if v.imageURL != "" {
		return v.imageURL, nil
	}
	return "https://cdn.example.com/render.png", nil
}

func addTestUser(users *fakeUserRepo, id string, measurementCredits, generationCredits int) {
	u := &model.User{
		ID:                 id,
		Email:              id + "@example.com",
		Name:               id,
		MeasurementCredits: measurementCredits,
		GenerationCredits:  generationCredits,
	}
	users.mu.Lock()
	users.byID[id] = u
	users.byEmail[u.Email] = u
	users.mu.Unlock()
}

func captureInput() CaptureInput {
	return CaptureInput{
		Front:   CaptureImage{Filename: "front.jpg"},
		Profile: CaptureImage{Filename: "profile.jpg"},
	}
}

func TestCaptureSpendsOneCredit(t *testing.T) {
	users := newFakeUserRepo()
	addTestUser(users, "u1", 1, 0)
	repo := newFakeMeasurementRepo(users)
	svc := NewMeasurementService(repo, users, &fakeVision{}, zerolog.Nop())

	m, err := svc.Capture(context.Background(), "u1", captureInput(), 178, "regular")
	if err != nil {
		t.Fatalf("Capture returned error: %v", err)
	}
	if m.ThobeLength != 140 || m.FrontImageID != "img-front" {
		t.Errorf("unexpected measurement: %+v", m)
	}
	if mc, _ := users.credits("u1"); mc != 0 {
		t.Errorf("credits after capture = %d, want 0", mc)
	}
}

func TestCaptureWithoutCreditsSkipsVision(t *testing.T) {
	users := newFakeUserRepo()
	addTestUser(users, "u1", 0, 0)
	repo := newFakeMeasurementRepo(users)
	vision := &fakeVision{}
	svc := NewMeasurementService(repo, users, vision, zerolog.Nop())

	_, err := svc.Capture(context.Background(), "u1", captureInput(), 178, "regular")
	if !errors.Is(err, repository.ErrInsufficientMeasurementCredits) {
		t.Fatalf("expected insufficient-credits error, got %v", err)
	}
	if vision.measureCalls != 0 {
		t.Errorf("vision called %d times despite empty balance", vision.measureCalls)
	}
}

func TestCaptureVisionFailureCostsNothing(t *testing.T) {
	users := newFakeUserRepo()
	addTestUser(users, "u1", 1, 0)
	repo := newFakeMeasurementRepo(users)
	vision := &fakeVision{measureErr: errors.New("upstream down")}
	svc := NewMeasurementService(repo, users, vision, zerolog.Nop())

	if _, err := svc.Capture(context.Background(), "u1", captureInput(), 178, "regular"); err == nil {
		t.Fatal("expected error from failed vision call")
	}
	if mc, _ := users.credits("u1"); mc != 1 {
		t.Errorf("credits after failed capture = %d, want 1", mc)
	}
	if repo.created != 0 {
		t.Errorf("measurement persisted despite failed vision call")
	}
}

func TestConcurrentCaptureSpendsAtMostBalance(t *testing.T) {
	users := newFakeUserRepo()
	addTestUser(users, "u1", 1, 0)
	repo := newFakeMeasurementRepo(users)
	svc := NewMeasurementService(repo, users, &fakeVision{}, zerolog.Nop())

	const attempts = 8
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Capture(context.Background(), "u1", captureInput(), 178, "regular")
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		}
	}
	if succeeded != 1 {
		t.Errorf("%d captures succeeded with balance 1, want exactly 1", succeeded)
	}
	if mc, _ := users.credits("u1"); mc != 0 {
		t.Errorf("credits after concurrent captures = %d, want 0", mc)
	}
	if repo.created != 1 {
		t.Errorf("%d rows persisted, want 1", repo.created)
	}
}

func TestAttachProfileImage(t *testing.T) {
	users := newFakeUserRepo()
	addTestUser(users, "u1", 1, 0)
	addTestUser(users, "u2", 1, 0)
	repo := newFakeMeasurementRepo(users)
	svc := NewMeasurementService(repo, users, &fakeVision{}, zerolog.Nop())

	m, err := svc.Capture(context.Background(), "u1", captureInput(), 178, "regular")
	if err != nil {
		t.Fatalf("capture failed: %v", err)
	}

	// Someone else's measurement looks missing, not forbidden.
	if err := svc.AttachProfileImage(context.Background(), "u2", m.ID, "img-x"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for non-owner, got %v", err)
	}
	if err := svc.AttachProfileImage(context.Background(), "u1", m.ID, "img-x"); err != nil {
		t.Fatalf("owner attach failed: %v", err)
	}
	got, _ := repo.GetByID(context.Background(), m.ID)
	if got.ProfileImageID == nil || *got.ProfileImageID != "img-x" {
		t.Error("profile image not attached")
	}
}
