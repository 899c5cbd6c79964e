// Package model はドメインモデルを定義する。
package model

import "time"

// Tweet はホームタイムラインから取得した1件のツイートを表す。
// パイプライン実行内でのみ生存し、実行をまたいで保持されない。
// 構築後は変更しない。
type Tweet struct {
	ID             string
	Text           string
	AuthorID       string
	AuthorUsername string // author展開に含まれない場合は空
	AuthorName     string // author展開に含まれない場合は空
	CreatedAt      time.Time
	LikeCount      int
	RetweetCount   int
	ReplyCount     int
}

// EngagementScore はランキングに使う重み付きエンゲージメントスコアを返す。
// リツイートは拡散を伴うため2倍に重み付けする。
func (t Tweet) EngagementScore() int {
	return t.LikeCount + 2*t.RetweetCount + t.ReplyCount
}
