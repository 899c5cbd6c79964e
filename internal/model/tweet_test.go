package model

import "testing"

func TestTweet_EngagementScore(t *testing.T) {
	tests := []struct {
		name  string
		tweet Tweet
		want  int
	}{
		{name: "ゼロ", tweet: Tweet{}, want: 0},
		{name: "いいねのみ", tweet: Tweet{LikeCount: 10}, want: 10},
		{name: "リツイートは2倍", tweet: Tweet{RetweetCount: 10}, want: 20},
		{name: "リプライは等倍", tweet: Tweet{ReplyCount: 10}, want: 10},
		{name: "合算", tweet: Tweet{LikeCount: 3, RetweetCount: 2, ReplyCount: 1}, want: 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.tweet.EngagementScore(); got != tt.want {
				t.Errorf("EngagementScore() = %d, want %d", got, tt.want)
			}
		})
	}
}
