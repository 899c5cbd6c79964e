package digest

import (
	"sort"

	"github.com/hitoshi/tweetdigest/internal/model"
)

// RankByEngagement はツイートをエンゲージメントスコアの降順に並べ替えた
// 新しいスライスを返す。スコアが同点のツイートは入力の相対順序を保持する
// （タイムラインの新しい順がそのまま残る）。入力スライスは変更しない。
func RankByEngagement(tweets []*model.Tweet) []*model.Tweet {
	ranked := make([]*model.Tweet, len(tweets))
	copy(ranked, tweets)

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].EngagementScore() > ranked[j].EngagementScore()
	})
	return ranked
}
