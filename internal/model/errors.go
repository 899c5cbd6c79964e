// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, digest, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUnauthorized        = "UNAUTHORIZED"
	ErrCodeUserNotFound        = "USER_NOT_FOUND"
	ErrCodeTwitterNotConnected = "TWITTER_NOT_CONNECTED"
	ErrCodeInvalidPreference   = "INVALID_PREFERENCE"
	ErrCodeInvalidEmail        = "INVALID_EMAIL"
	ErrCodeTimelineFetchFailed = "TIMELINE_FETCH_FAILED"
	ErrCodeDigestSendFailed    = "DIGEST_SEND_FAILED"
	ErrCodeOAuthFailed         = "OAUTH_FAILED"
)

// NewUnauthorizedError は未認証エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewTwitterNotConnectedError はTwitter未接続エラーを生成する。
func NewTwitterNotConnectedError() *APIError {
	return &APIError{
		Code:     ErrCodeTwitterNotConnected,
		Message:  "Twitterアカウントが接続されていません。",
		Category: "digest",
		Action:   "設定画面からTwitterアカウントを接続してください。",
	}
}

// NewInvalidPreferenceError は無効なダイジェスト設定エラーを生成する。
func NewInvalidPreferenceError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidPreference,
		Message:  fmt.Sprintf("無効なダイジェスト設定です: %s", reason),
		Category: "validation",
		Action:   "詳細度には low、medium、high のいずれかを指定してください。",
	}
}

// NewInvalidEmailError は無効なメールアドレスエラーを生成する。
func NewInvalidEmailError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidEmail,
		Message:  "無効なメールアドレスです。",
		Category: "validation",
		Action:   "正しい形式のメールアドレスを入力してください。",
	}
}

// NewTimelineFetchFailedError はタイムライン取得失敗エラーを生成する。
func NewTimelineFetchFailedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeTimelineFetchFailed,
		Message:  fmt.Sprintf("タイムラインの取得に失敗しました: %s", reason),
		Category: "digest",
		Action:   "しばらく待ってから再度お試しください。改善しない場合はTwitterアカウントを再接続してください。",
	}
}

// NewDigestSendFailedError はダイジェスト配信失敗エラーを生成する。
func NewDigestSendFailedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeDigestSendFailed,
		Message:  fmt.Sprintf("ダイジェストの配信に失敗しました: %s", reason),
		Category: "digest",
		Action:   "メールアドレスが正しいか確認し、しばらく待ってから再度お試しください。",
	}
}

// NewOAuthFailedError はOAuth認証失敗エラーを生成する。
func NewOAuthFailedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeOAuthFailed,
		Message:  fmt.Sprintf("Twitter認証に失敗しました: %s", reason),
		Category: "auth",
		Action:   "認証フローを最初からやり直してください。",
	}
}
