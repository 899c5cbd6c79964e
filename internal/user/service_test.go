package user

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hitoshi/tweetdigest/internal/model"
)

// mockUserRepo はテスト用のUserRepositoryモック。
type mockUserRepo struct {
	findByIDFn          func(ctx context.Context, id string) (*model.User, error)
	updateEmailFn       func(ctx context.Context, id, email string) error
	updatePreferencesFn func(ctx context.Context, id string, digestEnabled bool, prefs model.Preferences) error
	deleteByIDFn        func(ctx context.Context, id string) error
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockUserRepo) FindByTwitterUserID(ctx context.Context, twitterUserID string) (*model.User, error) {
	return nil, nil
}

func (m *mockUserRepo) Create(ctx context.Context, user *model.User) error { return nil }

func (m *mockUserRepo) ListDigestEnabled(ctx context.Context) ([]*model.User, error) {
	return nil, nil
}

func (m *mockUserRepo) UpdateEmail(ctx context.Context, id, email string) error {
	if m.updateEmailFn != nil {
		return m.updateEmailFn(ctx, id, email)
	}
	return nil
}

func (m *mockUserRepo) UpdatePreferences(ctx context.Context, id string, digestEnabled bool, prefs model.Preferences) error {
	if m.updatePreferencesFn != nil {
		return m.updatePreferencesFn(ctx, id, digestEnabled, prefs)
	}
	return nil
}

func (m *mockUserRepo) UpdateTwitterCredentials(ctx context.Context, id string, twitterUserID, username, displayName, accessToken, accessSecret string) error {
	return nil
}

func (m *mockUserRepo) ClearTwitterCredentials(ctx context.Context, id string) error { return nil }

func (m *mockUserRepo) DeleteByID(ctx context.Context, id string) error {
	if m.deleteByIDFn != nil {
		return m.deleteByIDFn(ctx, id)
	}
	return nil
}

// mockSessionRepo はテスト用のSessionRepositoryモック。
type mockSessionRepo struct {
	deleteByUserIDFn func(ctx context.Context, userID string) error
}

func (m *mockSessionRepo) Create(ctx context.Context, session *model.Session) error { return nil }

func (m *mockSessionRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	return nil, nil
}

func (m *mockSessionRepo) DeleteByID(ctx context.Context, id string) error { return nil }

func (m *mockSessionRepo) DeleteByUserID(ctx context.Context, userID string) error {
	if m.deleteByUserIDFn != nil {
		return m.deleteByUserIDFn(ctx, userID)
	}
	return nil
}

func (m *mockSessionRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	return 0, nil
}

func TestService_GetProfile(t *testing.T) {
	userRepo := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			if id != "user-1" {
				t.Errorf("id = %q, want %q", id, "user-1")
			}
			return &model.User{ID: "user-1", Email: "gopher@example.com"}, nil
		},
	}
	service := NewService(userRepo, &mockSessionRepo{})

	user, err := service.GetProfile(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("GetProfile() error = %v", err)
	}
	if user.Email != "gopher@example.com" {
		t.Errorf("Email = %q, want %q", user.Email, "gopher@example.com")
	}
}

func TestService_GetProfile_NotFound(t *testing.T) {
	service := NewService(&mockUserRepo{}, &mockSessionRepo{})

	_, err := service.GetProfile(context.Background(), "missing")
	if err == nil {
		t.Fatal("GetProfile() error = nil, want error")
	}
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error type = %T, want *model.APIError", err)
	}
	if apiErr.Code != model.ErrCodeUserNotFound {
		t.Errorf("Code = %q, want %q", apiErr.Code, model.ErrCodeUserNotFound)
	}
}

func TestService_UpdateEmail(t *testing.T) {
	var gotEmail string
	userRepo := &mockUserRepo{
		updateEmailFn: func(ctx context.Context, id, email string) error {
			gotEmail = email
			return nil
		},
	}
	service := NewService(userRepo, &mockSessionRepo{})

	if err := service.UpdateEmail(context.Background(), "user-1", "new@example.com"); err != nil {
		t.Fatalf("UpdateEmail() error = %v", err)
	}
	if gotEmail != "new@example.com" {
		t.Errorf("saved email = %q, want %q", gotEmail, "new@example.com")
	}
}

func TestService_UpdateEmail_InvalidFormat(t *testing.T) {
	tests := []struct {
		name  string
		email string
	}{
		{name: "アットマークなし", email: "not-an-email"},
		{name: "空文字", email: ""},
		{name: "表示名付き", email: "Gopher <gopher@example.com>"},
		{name: "空白を含む", email: "go pher@example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			userRepo := &mockUserRepo{
				updateEmailFn: func(ctx context.Context, id, email string) error {
					t.Error("UpdateEmail should not reach the repository")
					return nil
				},
			}
			service := NewService(userRepo, &mockSessionRepo{})

			err := service.UpdateEmail(context.Background(), "user-1", tt.email)
			var apiErr *model.APIError
			if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeInvalidEmail {
				t.Errorf("UpdateEmail(%q) error = %v, want INVALID_EMAIL", tt.email, err)
			}
		})
	}
}

func TestService_UpdatePreferences(t *testing.T) {
	var gotEnabled bool
	var gotPrefs model.Preferences
	userRepo := &mockUserRepo{
		updatePreferencesFn: func(ctx context.Context, id string, digestEnabled bool, prefs model.Preferences) error {
			gotEnabled = digestEnabled
			gotPrefs = prefs
			return nil
		},
	}
	service := NewService(userRepo, &mockSessionRepo{})

	prefs := model.Preferences{DetailLevel: model.DetailLevelHigh, DigestTime: "08:00", Language: "en"}
	if err := service.UpdatePreferences(context.Background(), "user-1", true, prefs); err != nil {
		t.Fatalf("UpdatePreferences() error = %v", err)
	}
	if !gotEnabled {
		t.Error("digestEnabled = false, want true")
	}
	if gotPrefs.DetailLevel != model.DetailLevelHigh {
		t.Errorf("DetailLevel = %q, want %q", gotPrefs.DetailLevel, model.DetailLevelHigh)
	}
}

func TestService_UpdatePreferences_InvalidDetailLevel(t *testing.T) {
	userRepo := &mockUserRepo{
		updatePreferencesFn: func(ctx context.Context, id string, digestEnabled bool, prefs model.Preferences) error {
			t.Error("UpdatePreferences should not reach the repository")
			return nil
		},
	}
	service := NewService(userRepo, &mockSessionRepo{})

	err := service.UpdatePreferences(context.Background(), "user-1", true, model.Preferences{DetailLevel: "extreme"})
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeInvalidPreference {
		t.Errorf("UpdatePreferences() error = %v, want INVALID_PREFERENCE", err)
	}
}

func TestService_Withdraw(t *testing.T) {
	var sessionsDeleted, userDeleted bool
	userRepo := &mockUserRepo{
		deleteByIDFn: func(ctx context.Context, id string) error {
			if !sessionsDeleted {
				t.Error("sessions should be deleted before the user")
			}
			userDeleted = true
			return nil
		},
	}
	sessionRepo := &mockSessionRepo{
		deleteByUserIDFn: func(ctx context.Context, userID string) error {
			sessionsDeleted = true
			return nil
		},
	}
	service := NewService(userRepo, sessionRepo)

	if err := service.Withdraw(context.Background(), "user-1"); err != nil {
		t.Fatalf("Withdraw() error = %v", err)
	}
	if !userDeleted {
		t.Error("user was not deleted")
	}
}

func TestService_Withdraw_SessionDeleteFailure(t *testing.T) {
	userRepo := &mockUserRepo{
		deleteByIDFn: func(ctx context.Context, id string) error {
			t.Error("user should not be deleted when session cleanup fails")
			return nil
		},
	}
	sessionRepo := &mockSessionRepo{
		deleteByUserIDFn: func(ctx context.Context, userID string) error {
			return errors.New("connection reset")
		},
	}
	service := NewService(userRepo, sessionRepo)

	if err := service.Withdraw(context.Background(), "user-1"); err == nil {
		t.Fatal("Withdraw() error = nil, want error")
	}
}
