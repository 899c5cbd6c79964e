package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hitoshi/tweetdigest/internal/model"
)

// --- モック ---

type mockOAuthProvider struct {
	getRequestTokenFn     func(ctx context.Context) (*RequestToken, error)
	exchangeAccessTokenFn func(ctx context.Context, token, secret, verifier string) (*AccessToken, error)
	verifyCredentialsFn   func(ctx context.Context, accessToken, accessSecret string) (*TwitterUserInfo, error)
}

func (m *mockOAuthProvider) GetRequestToken(ctx context.Context) (*RequestToken, error) {
	if m.getRequestTokenFn != nil {
		return m.getRequestTokenFn(ctx)
	}
	return &RequestToken{Token: "req-token", Secret: "req-secret"}, nil
}

func (m *mockOAuthProvider) GetAuthorizeURL(token string) string {
	return "https://api.twitter.com/oauth/authorize?oauth_token=" + token
}

func (m *mockOAuthProvider) ExchangeAccessToken(ctx context.Context, token, secret, verifier string) (*AccessToken, error) {
	if m.exchangeAccessTokenFn != nil {
		return m.exchangeAccessTokenFn(ctx, token, secret, verifier)
	}
	return &AccessToken{Token: "at", Secret: "as", UserID: "tw-12345", ScreenName: "gopher"}, nil
}

func (m *mockOAuthProvider) VerifyCredentials(ctx context.Context, accessToken, accessSecret string) (*TwitterUserInfo, error) {
	if m.verifyCredentialsFn != nil {
		return m.verifyCredentialsFn(ctx, accessToken, accessSecret)
	}
	return &TwitterUserInfo{
		TwitterUserID: "tw-12345",
		Username:      "gopher",
		Name:          "Gopher Dev",
		Email:         "gopher@example.com",
	}, nil
}

type mockUserRepo struct {
	findByTwitterUserIDFn func(ctx context.Context, twitterUserID string) (*model.User, error)
	createFn              func(ctx context.Context, user *model.User) error
	updateCredentialsFn   func(ctx context.Context, id string, twitterUserID, username, displayName, accessToken, accessSecret string) error
	clearCredentialsFn    func(ctx context.Context, id string) error
	findByIDFn            func(ctx context.Context, id string) (*model.User, error)
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}
func (m *mockUserRepo) FindByTwitterUserID(ctx context.Context, twitterUserID string) (*model.User, error) {
	if m.findByTwitterUserIDFn != nil {
		return m.findByTwitterUserIDFn(ctx, twitterUserID)
	}
	return nil, nil
}
func (m *mockUserRepo) Create(ctx context.Context, user *model.User) error {
	if m.createFn != nil {
		return m.createFn(ctx, user)
	}
	return nil
}
func (m *mockUserRepo) ListDigestEnabled(ctx context.Context) ([]*model.User, error) {
	return nil, nil
}
func (m *mockUserRepo) UpdateEmail(ctx context.Context, id, email string) error { return nil }
func (m *mockUserRepo) UpdatePreferences(ctx context.Context, id string, digestEnabled bool, prefs model.Preferences) error {
	return nil
}
func (m *mockUserRepo) UpdateTwitterCredentials(ctx context.Context, id string, twitterUserID, username, displayName, accessToken, accessSecret string) error {
	if m.updateCredentialsFn != nil {
		return m.updateCredentialsFn(ctx, id, twitterUserID, username, displayName, accessToken, accessSecret)
	}
	return nil
}
func (m *mockUserRepo) ClearTwitterCredentials(ctx context.Context, id string) error {
	if m.clearCredentialsFn != nil {
		return m.clearCredentialsFn(ctx, id)
	}
	return nil
}
func (m *mockUserRepo) DeleteByID(ctx context.Context, id string) error { return nil }

type mockSessionRepo struct {
	createFn   func(ctx context.Context, session *model.Session) error
	deleteByID func(ctx context.Context, id string) error
	findByIDFn func(ctx context.Context, id string) (*model.Session, error)
}

func (m *mockSessionRepo) Create(ctx context.Context, session *model.Session) error {
	if m.createFn != nil {
		return m.createFn(ctx, session)
	}
	return nil
}
func (m *mockSessionRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}
func (m *mockSessionRepo) DeleteByID(ctx context.Context, id string) error {
	if m.deleteByID != nil {
		return m.deleteByID(ctx, id)
	}
	return nil
}
func (m *mockSessionRepo) DeleteByUserID(ctx context.Context, userID string) error { return nil }
func (m *mockSessionRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	return 0, nil
}

// --- テスト ---

func newAuthService(oauth *mockOAuthProvider, users *mockUserRepo, sessions *mockSessionRepo) *Service {
	return NewService(oauth, users, sessions, ServiceConfig{SessionMaxAge: 86400})
}

func TestService_StartLogin_ReturnsAuthorizeURL(t *testing.T) {
	svc := newAuthService(&mockOAuthProvider{}, &mockUserRepo{}, &mockSessionRepo{})

	url, err := svc.StartLogin(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "https://api.twitter.com/oauth/authorize?oauth_token=req-token"
	if url != want {
		t.Errorf("url = %q, want %q", url, want)
	}
}

func TestService_HandleCallback_NewUser_CreatesUserAndSession(t *testing.T) {
	var created *model.User
	var sessionCreated *model.Session

	users := &mockUserRepo{
		createFn: func(ctx context.Context, user *model.User) error {
			created = user
			return nil
		},
	}
	sessions := &mockSessionRepo{
		createFn: func(ctx context.Context, session *model.Session) error {
			sessionCreated = session
			return nil
		},
	}

	svc := newAuthService(&mockOAuthProvider{}, users, sessions)

	if _, err := svc.StartLogin(context.Background()); err != nil {
		t.Fatalf("StartLogin failed: %v", err)
	}

	session, err := svc.HandleCallback(context.Background(), "req-token", "verifier-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if created == nil {
		t.Fatal("expected user to be created")
	}
	if created.TwitterUserID != "tw-12345" {
		t.Errorf("twitter_user_id = %q", created.TwitterUserID)
	}
	if created.TwitterAccessToken != "at" || created.TwitterAccessSecret != "as" {
		t.Error("expected access tokens to be stored")
	}
	if created.Email != "gopher@example.com" {
		t.Errorf("email = %q", created.Email)
	}
	if created.Preferences.DetailLevel != model.DetailLevelMedium {
		t.Errorf("detail_level = %q, want medium", created.Preferences.DetailLevel)
	}
	if created.DigestEnabled {
		t.Error("expected digest disabled for new user")
	}

	if sessionCreated == nil || session == nil {
		t.Fatal("expected session to be created")
	}
	if session.UserID != created.ID {
		t.Errorf("session user_id = %q, want %q", session.UserID, created.ID)
	}
	if len(session.ID) != 64 {
		t.Errorf("session ID length = %d, want 64 hex chars", len(session.ID))
	}
}

func TestService_HandleCallback_ExistingUser_UpdatesCredentials(t *testing.T) {
	existing := &model.User{ID: "user-1", TwitterUserID: "tw-12345"}
	var updatedToken string

	users := &mockUserRepo{
		findByTwitterUserIDFn: func(ctx context.Context, twitterUserID string) (*model.User, error) {
			return existing, nil
		},
		updateCredentialsFn: func(ctx context.Context, id string, twitterUserID, username, displayName, accessToken, accessSecret string) error {
			if id != "user-1" {
				t.Errorf("update for id = %q, want user-1", id)
			}
			updatedToken = accessToken
			return nil
		},
		createFn: func(ctx context.Context, user *model.User) error {
			t.Error("Create should not be called for existing user")
			return nil
		},
	}

	svc := newAuthService(&mockOAuthProvider{}, users, &mockSessionRepo{})

	if _, err := svc.StartLogin(context.Background()); err != nil {
		t.Fatalf("StartLogin failed: %v", err)
	}

	session, err := svc.HandleCallback(context.Background(), "req-token", "verifier-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if session.UserID != "user-1" {
		t.Errorf("session user_id = %q", session.UserID)
	}
	if updatedToken != "at" {
		t.Error("expected credentials to be refreshed")
	}
}

func TestService_HandleCallback_UnknownRequestToken(t *testing.T) {
	svc := newAuthService(&mockOAuthProvider{}, &mockUserRepo{}, &mockSessionRepo{})

	if _, err := svc.HandleCallback(context.Background(), "never-issued", "verifier"); err == nil {
		t.Fatal("expected error for unknown request token")
	}
}

func TestService_HandleCallback_ExpiredRequestToken(t *testing.T) {
	svc := newAuthService(&mockOAuthProvider{}, &mockUserRepo{}, &mockSessionRepo{})

	base := time.Date(2026, 1, 15, 8, 0, 0, 0, time.UTC)
	svc.nowFn = func() time.Time { return base }

	if _, err := svc.StartLogin(context.Background()); err != nil {
		t.Fatalf("StartLogin failed: %v", err)
	}

	// TTL経過後のコールバックは拒否される
	svc.nowFn = func() time.Time { return base.Add(requestTokenTTL + time.Minute) }

	if _, err := svc.HandleCallback(context.Background(), "req-token", "verifier"); err == nil {
		t.Fatal("expected error for expired request token")
	}
}

func TestService_HandleCallback_RequestTokenIsSingleUse(t *testing.T) {
	svc := newAuthService(&mockOAuthProvider{}, &mockUserRepo{}, &mockSessionRepo{})

	if _, err := svc.StartLogin(context.Background()); err != nil {
		t.Fatalf("StartLogin failed: %v", err)
	}

	if _, err := svc.HandleCallback(context.Background(), "req-token", "verifier"); err != nil {
		t.Fatalf("first callback failed: %v", err)
	}
	if _, err := svc.HandleCallback(context.Background(), "req-token", "verifier"); err == nil {
		t.Fatal("expected error for reused request token")
	}
}

func TestService_HandleCallback_ExchangeFailure(t *testing.T) {
	oauth := &mockOAuthProvider{
		exchangeAccessTokenFn: func(ctx context.Context, token, secret, verifier string) (*AccessToken, error) {
			return nil, errors.New("exchange failed")
		},
	}
	svc := newAuthService(oauth, &mockUserRepo{}, &mockSessionRepo{})

	if _, err := svc.StartLogin(context.Background()); err != nil {
		t.Fatalf("StartLogin failed: %v", err)
	}
	if _, err := svc.HandleCallback(context.Background(), "req-token", "verifier"); err == nil {
		t.Fatal("expected error when exchange fails")
	}
}

func TestService_Logout_DeletesSession(t *testing.T) {
	var deleted string
	sessions := &mockSessionRepo{
		deleteByID: func(ctx context.Context, id string) error {
			deleted = id
			return nil
		},
	}
	svc := newAuthService(&mockOAuthProvider{}, &mockUserRepo{}, sessions)

	if err := svc.Logout(context.Background(), "session-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if deleted != "session-1" {
		t.Errorf("deleted = %q", deleted)
	}
}

func TestService_Logout_EmptySessionID(t *testing.T) {
	svc := newAuthService(&mockOAuthProvider{}, &mockUserRepo{}, &mockSessionRepo{})

	if err := svc.Logout(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty session ID")
	}
}

func TestService_GetCurrentUser(t *testing.T) {
	sessions := &mockSessionRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Session, error) {
			if id == "valid" {
				return &model.Session{ID: "valid", UserID: "user-1", ExpiresAt: time.Now().Add(time.Hour)}, nil
			}
			return nil, nil
		},
	}
	users := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			if id == "user-1" {
				return &model.User{ID: "user-1", Email: "gopher@example.com"}, nil
			}
			return nil, nil
		},
	}
	svc := newAuthService(&mockOAuthProvider{}, users, sessions)

	user, err := svc.GetCurrentUser(context.Background(), "valid")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.ID != "user-1" {
		t.Errorf("user ID = %q", user.ID)
	}

	if _, err := svc.GetCurrentUser(context.Background(), "expired"); err == nil {
		t.Fatal("expected error for expired session")
	}
}

func TestService_DisconnectTwitter(t *testing.T) {
	var cleared string
	users := &mockUserRepo{
		clearCredentialsFn: func(ctx context.Context, id string) error {
			cleared = id
			return nil
		},
	}
	svc := newAuthService(&mockOAuthProvider{}, users, &mockSessionRepo{})

	if err := svc.DisconnectTwitter(context.Background(), "user-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cleared != "user-1" {
		t.Errorf("cleared = %q", cleared)
	}
}
