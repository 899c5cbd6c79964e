// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/tweetdigest/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByTwitterUserID はTwitterユーザーIDでユーザーを検索する。
	// 見つからない場合はnilを返す。
	FindByTwitterUserID(ctx context.Context, twitterUserID string) (*model.User, error)

	// Create はユーザーを作成する。
	Create(ctx context.Context, user *model.User) error

	// ListDigestEnabled はダイジェスト配信の対象ユーザーを返す。
	// digest_enabled = true かつ Twitter認証情報が保存されているユーザーのみ。
	ListDigestEnabled(ctx context.Context) ([]*model.User, error)

	// UpdateEmail はユーザーのメールアドレスを更新する。
	UpdateEmail(ctx context.Context, id, email string) error

	// UpdatePreferences はダイジェスト設定を更新する。
	UpdatePreferences(ctx context.Context, id string, digestEnabled bool, prefs model.Preferences) error

	// UpdateTwitterCredentials はTwitterアカウント情報と認証トークンを保存する。
	UpdateTwitterCredentials(ctx context.Context, id string, twitterUserID, username, displayName, accessToken, accessSecret string) error

	// ClearTwitterCredentials はTwitter接続を解除する。
	// 認証トークンを消去し、digest_enabledをfalseに設定する。
	ClearTwitterCredentials(ctx context.Context, id string) error

	// DeleteByID は指定IDのユーザーを削除する。
	// 関連するsessions、digest_logsはCASCADE削除される。
	DeleteByID(ctx context.Context, id string) error
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
	// DeleteExpired は期限切れセッションを削除し、削除件数を返す。
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// DigestLogRepository はダイジェスト配信結果の永続化インターフェース。
// 追記専用で、Update操作は提供しない。
type DigestLogRepository interface {
	// Create は配信結果を1件記録する。
	Create(ctx context.Context, log *model.DigestLog) error

	// ListByUserID はユーザーの配信履歴をsent_at降順で返す。
	ListByUserID(ctx context.Context, userID string, limit int) ([]*model.DigestLog, error)

	// DeleteOlderThan は指定時刻より古い配信結果を削除し、削除件数を返す。
	// 保持期間を過ぎたログのクリーンアップ用。
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
