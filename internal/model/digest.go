// Package model はドメインモデルを定義する。
package model

import "time"

// DigestStatus はダイジェスト配信の結果ステータスを表す。
type DigestStatus string

const (
	// DigestStatusSent は配信成功。
	DigestStatusSent DigestStatus = "sent"
	// DigestStatusFailed は配信失敗。
	DigestStatusFailed DigestStatus = "failed"
)

// DigestLog はユーザー1人・1実行ごとのダイジェスト配信結果を表す。
// 追記専用で、作成後に更新・削除されることはない。
type DigestLog struct {
	ID           string
	UserID       string
	TweetCount   int
	SentAt       time.Time
	Status       DigestStatus
	ErrorMessage string // 配信失敗時のみ設定される
	CreatedAt    time.Time
}

// Email はレンダリング済みのダイジェストメールを表す。
// 1回のパイプライン実行内で生成・消費され、永続化されない。
type Email struct {
	Subject  string
	BodyHTML string
}
