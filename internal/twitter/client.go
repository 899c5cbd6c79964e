package twitter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/hitoshi/tweetdigest/internal/model"
)

const (
	// defaultBaseURL はTwitter API v2のベースURL。
	defaultBaseURL = "https://api.twitter.com"
	// maxPageSize はreverse_chronologicalタイムラインの1リクエスト最大件数。
	maxPageSize = 100
)

// TimelineFetcher はユーザーのホームタイムライン取得のインターフェースを定義する。
type TimelineFetcher interface {
	// FetchTimeline は指定ユーザーのホームタイムラインを新しい順に取得する。
	// ユーザーのOAuthトークンで署名したリクエストを送信する。
	// API呼び出しに失敗した場合はエラーを返す（部分的な結果は返さない）。
	FetchTimeline(ctx context.Context, user *model.User) ([]*model.Tweet, error)
}

// Client はTwitter API v2のクライアント。
// アプリケーションのコンシューマーキーとユーザーごとのアクセストークンを
// 組み合わせてOAuth 1.0a署名を行う。
type Client struct {
	httpClient *http.Client
	signer     *Signer
	logger     *slog.Logger
	limiter    *rate.Limiter
	pageSize   int
	baseURL    string // テスト用にエンドポイントを差し替え可能
}

// NewClient はClientの新しいインスタンスを生成する。
// pageSizeはAPI上限の100件に丸められる。
func NewClient(httpClient *http.Client, signer *Signer, logger *slog.Logger, pageSize int) *Client {
	if pageSize <= 0 || pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return &Client{
		httpClient: httpClient,
		signer:     signer,
		logger:     logger,
		// Twitter APIのレート制限に合わせた保守的な値
		limiter:  rate.NewLimiter(rate.Every(time.Second), 1),
		pageSize: pageSize,
		baseURL:  defaultBaseURL,
	}
}

// timelineResponse はv2タイムラインAPIのレスポンス。
type timelineResponse struct {
	Data []struct {
		ID            string `json:"id"`
		Text          string `json:"text"`
		AuthorID      string `json:"author_id"`
		CreatedAt     string `json:"created_at"`
		PublicMetrics struct {
			LikeCount    int `json:"like_count"`
			RetweetCount int `json:"retweet_count"`
			ReplyCount   int `json:"reply_count"`
		} `json:"public_metrics"`
	} `json:"data"`
	Includes struct {
		Users []struct {
			ID       string `json:"id"`
			Username string `json:"username"`
			Name     string `json:"name"`
		} `json:"users"`
	} `json:"includes"`
}

// FetchTimeline は指定ユーザーのホームタイムラインを新しい順に取得する。
// 1ページ（最大100件）のみ取得する。ダイジェストの上限は最大30件であり、
// 直近24時間で100件を超えるタイムラインでも十分な候補が得られる。
func (c *Client) FetchTimeline(ctx context.Context, user *model.User) ([]*model.Tweet, error) {
	if !user.HasTwitterCredentials() {
		return nil, fmt.Errorf("ユーザーのTwitter認証情報が設定されていません: user_id=%s", user.ID)
	}

	params := map[string]string{
		"max_results":  strconv.Itoa(c.pageSize),
		"tweet.fields": "created_at,public_metrics,author_id",
		"expansions":   "author_id",
		"user.fields":  "username,name",
	}

	reqURL := fmt.Sprintf("%s/2/users/%s/timelines/reverse_chronological?%s",
		c.baseURL, user.TwitterUserID, encodeQuery(params))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	c.signer.Sign(req, user.TwitterAccessToken, user.TwitterAccessSecret, params, nil)
	req.Header.Set("Accept", "application/json")

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("タイムラインの取得に失敗しました",
			slog.String("error", err.Error()),
			slog.String("user_id", user.ID),
		)
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		c.logger.Error("Twitter APIがエラーステータスを返しました",
			slog.Int("http_status", resp.StatusCode),
			slog.String("user_id", user.ID),
			slog.String("body", string(body)),
		)
		return nil, fmt.Errorf("Twitter APIがステータス %d を返しました", resp.StatusCode)
	}

	var result timelineResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("タイムラインのレスポンスのパースに失敗しました: %w", err)
	}

	// expansionsで返された著者情報をIDで引けるようにする
	authors := make(map[string]struct{ username, name string }, len(result.Includes.Users))
	for _, u := range result.Includes.Users {
		authors[u.ID] = struct{ username, name string }{u.Username, u.Name}
	}

	tweets := make([]*model.Tweet, 0, len(result.Data))
	for _, raw := range result.Data {
		createdAt, err := time.Parse(time.RFC3339, raw.CreatedAt)
		if err != nil {
			// created_atが欠落・不正なツイートは時刻ベースの絞り込みが
			// できないため除外する
			c.logger.Warn("ツイートの日時のパースに失敗しました",
				slog.String("tweet_id", raw.ID),
				slog.String("created_at", raw.CreatedAt),
			)
			continue
		}

		tweet := &model.Tweet{
			ID:           raw.ID,
			Text:         raw.Text,
			AuthorID:     raw.AuthorID,
			CreatedAt:    createdAt,
			LikeCount:    raw.PublicMetrics.LikeCount,
			RetweetCount: raw.PublicMetrics.RetweetCount,
			ReplyCount:   raw.PublicMetrics.ReplyCount,
		}
		if author, ok := authors[raw.AuthorID]; ok {
			tweet.AuthorUsername = author.username
			tweet.AuthorName = author.name
		}
		tweets = append(tweets, tweet)
	}

	return tweets, nil
}

// compile-time interface check
var _ TimelineFetcher = (*Client)(nil)
