// Package model はドメインモデルを定義する。
package model

import "time"

// User はサービス利用ユーザーを表す。
// Twitterアカウント接続前はTwitter系フィールドが空になる。
type User struct {
	ID                  string
	Email               string
	TwitterUserID       string
	TwitterUsername     string
	TwitterDisplayName  string
	TwitterAccessToken  string
	TwitterAccessSecret string
	DigestEnabled       bool
	Preferences         Preferences
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// HasTwitterCredentials はダイジェスト生成に必要な認証情報が揃っているかを返す。
func (u *User) HasTwitterCredentials() bool {
	return u.TwitterAccessToken != "" && u.TwitterAccessSecret != ""
}

// DisplayName はダイジェストの宛名に使う表示名を返す。
// Twitterユーザー名を優先し、無ければメールアドレスのローカル部を使う。
func (u *User) DisplayName() string {
	if u.TwitterUsername != "" {
		return u.TwitterUsername
	}
	for i := 0; i < len(u.Email); i++ {
		if u.Email[i] == '@' {
			return u.Email[:i]
		}
	}
	return u.Email
}

// DetailLevel はダイジェストに含めるツイート数を制御するユーザー設定。
type DetailLevel string

const (
	// DetailLevelLow は最大5件のダイジェスト。
	DetailLevelLow DetailLevel = "low"
	// DetailLevelMedium は最大15件のダイジェスト（デフォルト）。
	DetailLevelMedium DetailLevel = "medium"
	// DetailLevelHigh は最大30件のダイジェスト。
	DetailLevelHigh DetailLevel = "high"
)

// detailLevelLimits は詳細度ごとの最大ツイート数。
var detailLevelLimits = map[DetailLevel]int{
	DetailLevelLow:    5,
	DetailLevelMedium: 15,
	DetailLevelHigh:   30,
}

// Limit は詳細度に対応する最大ツイート数を返す。
// 未知または空の詳細度はmediumの上限にフォールバックする。
func (d DetailLevel) Limit() int {
	if limit, ok := detailLevelLimits[d]; ok {
		return limit
	}
	return detailLevelLimits[DetailLevelMedium]
}

// IsValid は詳細度が定義済みの値かを返す。
func (d DetailLevel) IsValid() bool {
	_, ok := detailLevelLimits[d]
	return ok
}

// Preferences はユーザーのダイジェスト設定を表す。
// DigestTimeとLanguageは任意項目。
type Preferences struct {
	DetailLevel DetailLevel
	DigestTime  string
	Language    string
}

// Session はユーザーのログインセッションを表す。
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}
