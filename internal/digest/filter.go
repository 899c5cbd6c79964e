// Package digest はダイジェスト生成パイプラインを提供する。
//
// タイムラインのツイートを時間窓で絞り込み、エンゲージメント順に並べ、
// ユーザーの詳細度設定に応じて件数を制限し、メールとして送信する。
package digest

import (
	"time"

	"github.com/hitoshi/tweetdigest/internal/model"
)

// FilterByTime は基準時刻からwindowだけ遡った時刻より後に投稿された
// ツイートのみを返す。境界ちょうどのツイートは含まれない。
// 入力の順序は保持される。入力スライスは変更しない。
func FilterByTime(tweets []*model.Tweet, window time.Duration, now time.Time) []*model.Tweet {
	cutoff := now.Add(-window)

	filtered := make([]*model.Tweet, 0, len(tweets))
	for _, tweet := range tweets {
		if tweet.CreatedAt.After(cutoff) {
			filtered = append(filtered, tweet)
		}
	}
	return filtered
}
