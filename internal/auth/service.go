package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/tweetdigest/internal/model"
	"github.com/hitoshi/tweetdigest/internal/repository"
)

// requestTokenTTL は一時トークンの有効期間。
// 認可画面で放置されたフローの秘密情報を残さないための上限。
const requestTokenTTL = 15 * time.Minute

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionMaxAge int // セッション有効期間（秒）
}

// pendingToken は認可待ちの一時トークンの秘密情報。
type pendingToken struct {
	secret    string
	expiresAt time.Time
}

// Service は認証に関するビジネスロジックを提供する。
// 一時トークンの秘密情報はコールバックまでの間のみプロセス内に保持する。
type Service struct {
	oauth       OAuthProvider
	userRepo    repository.UserRepository
	sessionRepo repository.SessionRepository
	config      ServiceConfig

	mu      sync.Mutex
	pending map[string]pendingToken
	nowFn   func() time.Time
}

// NewService はServiceを生成する。
func NewService(
	oauth OAuthProvider,
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	config ServiceConfig,
) *Service {
	return &Service{
		oauth:       oauth,
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		config:      config,
		pending:     make(map[string]pendingToken),
		nowFn:       time.Now,
	}
}

// StartLogin はOAuthフローを開始し、認可画面のURLを返す。
// 一時トークンの秘密情報はコールバック処理まで保持される。
func (s *Service) StartLogin(ctx context.Context) (string, error) {
	token, err := s.oauth.GetRequestToken(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get request token: %w", err)
	}

	now := s.nowFn()
	s.mu.Lock()
	s.prune(now)
	s.pending[token.Token] = pendingToken{
		secret:    token.Secret,
		expiresAt: now.Add(requestTokenTTL),
	}
	s.mu.Unlock()

	return s.oauth.GetAuthorizeURL(token.Token), nil
}

// HandleCallback はOAuthコールバックを処理し、セッションを発行する。
// 未登録ユーザーの場合はusersレコードを自動作成する。
// 登録済みユーザーの場合はTwitterユーザーIDで既存ユーザーを特定し、
// アクセストークンを最新のものに更新してログインする。
func (s *Service) HandleCallback(ctx context.Context, oauthToken, verifier string) (*model.Session, error) {
	if oauthToken == "" || verifier == "" {
		return nil, fmt.Errorf("oauth token and verifier are required")
	}

	// 1. 保持していた一時トークンの秘密情報を取り出す（使い捨て）
	now := s.nowFn()
	s.mu.Lock()
	pending, ok := s.pending[oauthToken]
	delete(s.pending, oauthToken)
	s.prune(now)
	s.mu.Unlock()

	if !ok || now.After(pending.expiresAt) {
		return nil, fmt.Errorf("unknown or expired request token")
	}

	// 2. アクセストークンに交換
	accessToken, err := s.oauth.ExchangeAccessToken(ctx, oauthToken, pending.secret, verifier)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange access token: %w", err)
	}

	// 3. ユーザー情報を取得
	info, err := s.oauth.VerifyCredentials(ctx, accessToken.Token, accessToken.Secret)
	if err != nil {
		return nil, fmt.Errorf("failed to verify credentials: %w", err)
	}

	// 4. TwitterユーザーIDで既存ユーザーを検索
	user, err := s.userRepo.FindByTwitterUserID(ctx, info.TwitterUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	var userID string

	if user != nil {
		// 4a. 既存ユーザー: アクセストークンを更新してログイン
		userID = user.ID
		if err := s.userRepo.UpdateTwitterCredentials(ctx, userID,
			info.TwitterUserID, info.Username, info.Name,
			accessToken.Token, accessToken.Secret,
		); err != nil {
			return nil, fmt.Errorf("failed to update twitter credentials: %w", err)
		}
		slog.Info("existing user logged in",
			slog.String("user_id", userID),
			slog.String("twitter_username", info.Username),
		)
	} else {
		// 4b. 新規ユーザー: usersレコードを作成
		newUser := &model.User{
			ID:                  uuid.New().String(),
			Email:               info.Email,
			TwitterUserID:       info.TwitterUserID,
			TwitterUsername:     info.Username,
			TwitterDisplayName:  info.Name,
			TwitterAccessToken:  accessToken.Token,
			TwitterAccessSecret: accessToken.Secret,
			Preferences: model.Preferences{
				DetailLevel: model.DetailLevelMedium,
			},
			CreatedAt: now,
			UpdatedAt: now,
		}

		if err := s.userRepo.Create(ctx, newUser); err != nil {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}

		userID = newUser.ID
		slog.Info("new user created",
			slog.String("user_id", userID),
			slog.String("twitter_username", info.Username),
		)
	}

	// 5. セッションを発行
	session, err := s.createSession(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return session, nil
}

// Logout はセッションを破棄する。
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("session ID is required")
	}

	if err := s.sessionRepo.DeleteByID(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	slog.Info("user logged out", slog.String("session_id", sessionID))
	return nil
}

// GetCurrentUser はセッションから現在のユーザーを取得する。
func (s *Service) GetCurrentUser(ctx context.Context, sessionID string) (*model.User, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("session ID is required")
	}

	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	if session == nil {
		return nil, fmt.Errorf("session not found or expired")
	}

	user, err := s.userRepo.FindByID(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("user not found")
	}

	return user, nil
}

// DisconnectTwitter はTwitter接続を解除する。
// アクセストークンを消去し、ダイジェスト配信を無効化する。
func (s *Service) DisconnectTwitter(ctx context.Context, userID string) error {
	if err := s.userRepo.ClearTwitterCredentials(ctx, userID); err != nil {
		return fmt.Errorf("failed to clear twitter credentials: %w", err)
	}

	slog.Info("twitter account disconnected", slog.String("user_id", userID))
	return nil
}

// prune は期限切れの一時トークンを削除する。呼び出し元でロックを取得すること。
func (s *Service) prune(now time.Time) {
	for token, pending := range s.pending {
		if now.After(pending.expiresAt) {
			delete(s.pending, token)
		}
	}
}

// createSession はセッションを作成し永続化する。
func (s *Service) createSession(ctx context.Context, userID string) (*model.Session, error) {
	sessionID, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	now := s.nowFn()
	session := &model.Session{
		ID:        sessionID,
		UserID:    userID,
		ExpiresAt: now.Add(time.Duration(s.config.SessionMaxAge) * time.Second),
		CreatedAt: now,
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return session, nil
}

// generateSessionID は暗号的に安全なセッションIDを生成する。
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
