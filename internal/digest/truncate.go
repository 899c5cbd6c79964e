package digest

import (
	"github.com/hitoshi/tweetdigest/internal/model"
)

// TruncateByDetailLevel はツイートを詳細度設定に応じた件数に切り詰める。
// low=5件、medium=15件、high=30件。未知の値はmediumとして扱う。
// 件数が上限以下の場合は入力をそのまま返す。
func TruncateByDetailLevel(tweets []*model.Tweet, level model.DetailLevel) []*model.Tweet {
	limit := level.Limit()
	if len(tweets) <= limit {
		return tweets
	}
	return tweets[:limit]
}
