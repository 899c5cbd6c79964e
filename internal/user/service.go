// Package user はユーザープロフィールと設定の管理を提供する。
package user

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"

	"github.com/hitoshi/tweetdigest/internal/model"
	"github.com/hitoshi/tweetdigest/internal/repository"
)

// Service はユーザー管理に関するビジネスロジックを提供する。
type Service struct {
	userRepo    repository.UserRepository
	sessionRepo repository.SessionRepository
}

// NewService はServiceを生成する。
func NewService(userRepo repository.UserRepository, sessionRepo repository.SessionRepository) *Service {
	return &Service{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
	}
}

// GetProfile は指定ユーザーのプロフィールを取得する。
func (s *Service) GetProfile(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}
	return user, nil
}

// UpdateEmail はユーザーのダイジェスト送信先メールアドレスを更新する。
// メールアドレスの形式が不正な場合はエラーを返す。
func (s *Service) UpdateEmail(ctx context.Context, userID, email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return model.NewInvalidEmailError()
	}

	if err := s.userRepo.UpdateEmail(ctx, userID, email); err != nil {
		return fmt.Errorf("failed to update email: %w", err)
	}

	slog.Info("email updated", slog.String("user_id", userID))
	return nil
}

// UpdatePreferences はダイジェスト設定を更新する。
// 詳細度が定義外の値の場合はエラーを返す。
func (s *Service) UpdatePreferences(ctx context.Context, userID string, digestEnabled bool, prefs model.Preferences) error {
	if !prefs.DetailLevel.IsValid() {
		return model.NewInvalidPreferenceError(fmt.Sprintf("detail_level %q は定義されていません", prefs.DetailLevel))
	}

	if err := s.userRepo.UpdatePreferences(ctx, userID, digestEnabled, prefs); err != nil {
		return fmt.Errorf("failed to update preferences: %w", err)
	}

	slog.Info("preferences updated",
		slog.String("user_id", userID),
		slog.Bool("digest_enabled", digestEnabled),
		slog.String("detail_level", string(prefs.DetailLevel)),
	)
	return nil
}

// Withdraw はユーザーの退会処理を実行する。
// セッションを明示的に削除したうえでusersレコードを削除する。
// digest_logsは外部キーのCASCADEで削除される。
func (s *Service) Withdraw(ctx context.Context, userID string) error {
	if err := s.sessionRepo.DeleteByUserID(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete sessions: %w", err)
	}

	if err := s.userRepo.DeleteByID(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	slog.Info("user withdrawn", slog.String("user_id", userID))
	return nil
}
