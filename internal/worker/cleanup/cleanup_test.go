package cleanup

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/hitoshi/tweetdigest/internal/model"
)

// mockSessionRepo はテスト用のSessionRepositoryモック。
type mockSessionRepo struct {
	deleteExpiredFn func(ctx context.Context, now time.Time) (int64, error)
}

func (m *mockSessionRepo) Create(ctx context.Context, session *model.Session) error { return nil }

func (m *mockSessionRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	return nil, nil
}

func (m *mockSessionRepo) DeleteByID(ctx context.Context, id string) error { return nil }

func (m *mockSessionRepo) DeleteByUserID(ctx context.Context, userID string) error { return nil }

func (m *mockSessionRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	if m.deleteExpiredFn != nil {
		return m.deleteExpiredFn(ctx, now)
	}
	return 0, nil
}

// mockDigestLogRepo はテスト用のDigestLogRepositoryモック。
type mockDigestLogRepo struct {
	deleteOlderThanFn func(ctx context.Context, cutoff time.Time) (int64, error)
}

func (m *mockDigestLogRepo) Create(ctx context.Context, log *model.DigestLog) error { return nil }

func (m *mockDigestLogRepo) ListByUserID(ctx context.Context, userID string, limit int) ([]*model.DigestLog, error) {
	return nil, nil
}

func (m *mockDigestLogRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	if m.deleteOlderThanFn != nil {
		return m.deleteOlderThanFn(ctx, cutoff)
	}
	return 0, nil
}

func newTestJob(sessionRepo *mockSessionRepo, digestLogRepo *mockDigestLogRepo) *CleanupJob {
	return NewCleanupJob(sessionRepo, digestLogRepo, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestCleanupJob_Run(t *testing.T) {
	now := time.Date(2024, 5, 1, 3, 0, 0, 0, time.UTC)

	var gotCutoff time.Time
	sessionRepo := &mockSessionRepo{
		deleteExpiredFn: func(ctx context.Context, at time.Time) (int64, error) {
			if !at.Equal(now) {
				t.Errorf("DeleteExpired at = %v, want %v", at, now)
			}
			return 4, nil
		},
	}
	digestLogRepo := &mockDigestLogRepo{
		deleteOlderThanFn: func(ctx context.Context, cutoff time.Time) (int64, error) {
			gotCutoff = cutoff
			return 12, nil
		},
	}

	job := newTestJob(sessionRepo, digestLogRepo)
	job.nowFn = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	wantCutoff := now.AddDate(0, 0, -90)
	if !gotCutoff.Equal(wantCutoff) {
		t.Errorf("cutoff = %v, want %v", gotCutoff, wantCutoff)
	}
}

func TestCleanupJob_Run_CustomRetention(t *testing.T) {
	now := time.Date(2024, 5, 1, 3, 0, 0, 0, time.UTC)

	var gotCutoff time.Time
	digestLogRepo := &mockDigestLogRepo{
		deleteOlderThanFn: func(ctx context.Context, cutoff time.Time) (int64, error) {
			gotCutoff = cutoff
			return 0, nil
		},
	}

	job := newTestJob(&mockSessionRepo{}, digestLogRepo)
	job.RetentionDays = 30
	job.nowFn = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if want := now.AddDate(0, 0, -30); !gotCutoff.Equal(want) {
		t.Errorf("cutoff = %v, want %v", gotCutoff, want)
	}
}

func TestCleanupJob_Run_SessionDeleteFailure(t *testing.T) {
	sessionRepo := &mockSessionRepo{
		deleteExpiredFn: func(ctx context.Context, now time.Time) (int64, error) {
			return 0, errors.New("connection refused")
		},
	}
	digestLogRepo := &mockDigestLogRepo{
		deleteOlderThanFn: func(ctx context.Context, cutoff time.Time) (int64, error) {
			t.Error("digest log cleanup should not run after session cleanup failure")
			return 0, nil
		},
	}

	job := newTestJob(sessionRepo, digestLogRepo)
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("Run() error = nil, want error")
	}
}

func TestCleanupJob_Run_DigestLogDeleteFailure(t *testing.T) {
	digestLogRepo := &mockDigestLogRepo{
		deleteOlderThanFn: func(ctx context.Context, cutoff time.Time) (int64, error) {
			return 0, errors.New("connection refused")
		},
	}

	job := newTestJob(&mockSessionRepo{}, digestLogRepo)
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("Run() error = nil, want error")
	}
}

func TestCleanupJob_Run_NothingToDelete(t *testing.T) {
	job := newTestJob(&mockSessionRepo{}, &mockDigestLogRepo{})
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
}

func TestCleanupJob_Start_StopsOnCancel(t *testing.T) {
	job := newTestJob(&mockSessionRepo{}, &mockDigestLogRepo{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		job.Start(ctx, time.Hour)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("cleanup job did not stop after cancel")
	}
}
