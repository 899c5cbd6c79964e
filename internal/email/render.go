// Package email はダイジェストメールのレンダリングと送信を提供する。
package email

import (
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/hitoshi/tweetdigest/internal/model"
	"github.com/hitoshi/tweetdigest/internal/security"
)

// RendererService はダイジェストメールのレンダリングのインターフェースを定義する。
type RendererService interface {
	// Render はツイートリストからダイジェストメールを生成する。
	// ツイートが0件の場合も空状態のメッセージを含むメールを生成する。
	// nowは件名の日付と挨拶文の時間帯判定に使用される。
	Render(user *model.User, tweets []*model.Tweet, now time.Time) (*model.Email, error)
}

// Renderer はRendererServiceの実装。
// html/templateによる自動エスケープに加えて、ツイート本文は
// 埋め込み前にサニタイズされる。
type Renderer struct {
	tmpl        *template.Template
	sanitizer   security.TextSanitizerService
	frontendURL string
}

// NewRenderer はRendererの新しいインスタンスを生成する。
// frontendURLは設定ページへのリンクに使用される。
func NewRenderer(sanitizer security.TextSanitizerService, frontendURL string) (*Renderer, error) {
	tmpl, err := template.New("digest").Parse(digestTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse digest template: %w", err)
	}
	return &Renderer{
		tmpl:        tmpl,
		sanitizer:   sanitizer,
		frontendURL: strings.TrimRight(frontendURL, "/"),
	}, nil
}

// templateData はダイジェストテンプレートに渡すデータ。
type templateData struct {
	Greeting    string
	Name        string
	TweetCount  int
	Tweets      []tweetView
	SettingsURL string
}

// tweetView はテンプレート内の1ツイートの表示データ。
type tweetView struct {
	AuthorUsername string
	Text           string
	LikeCount      int
	RetweetCount   int
	ReplyCount     int
	StatusURL      string
}

// Render はツイートリストからダイジェストメールを生成する。
func (r *Renderer) Render(user *model.User, tweets []*model.Tweet, now time.Time) (*model.Email, error) {
	views := make([]tweetView, 0, len(tweets))
	for _, tweet := range tweets {
		view := tweetView{
			AuthorUsername: tweet.AuthorUsername,
			Text:           r.sanitizer.Sanitize(tweet.Text),
			LikeCount:      tweet.LikeCount,
			RetweetCount:   tweet.RetweetCount,
			ReplyCount:     tweet.ReplyCount,
		}
		// 著者が解決できなかったツイートはunknownとして表示する
		if view.AuthorUsername == "" {
			view.AuthorUsername = "unknown"
		}
		if tweet.ID != "" {
			view.StatusURL = "https://twitter.com/i/web/status/" + tweet.ID
		}
		views = append(views, view)
	}

	name := user.DisplayName()
	if name == "" {
		name = "there"
	}

	data := templateData{
		Greeting:    greetingForHour(now.Hour()),
		Name:        name,
		TweetCount:  len(tweets),
		Tweets:      views,
		SettingsURL: r.frontendURL + "/settings",
	}

	var body strings.Builder
	if err := r.tmpl.Execute(&body, data); err != nil {
		return nil, fmt.Errorf("failed to render digest email: %w", err)
	}

	return &model.Email{
		Subject:  "Your Twitter Digest - " + now.Format("January 2, 2006"),
		BodyHTML: body.String(),
	}, nil
}

// greetingForHour は時間帯に応じた挨拶文を返す。
func greetingForHour(hour int) string {
	switch {
	case hour < 12:
		return "Good morning"
	case hour < 18:
		return "Good afternoon"
	default:
		return "Good evening"
	}
}

// digestTemplate はダイジェストメールのHTMLテンプレート。
const digestTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>Your Twitter Digest</title>
  <style>
    body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #1a1a1a; max-width: 600px; margin: 0 auto; padding: 20px; background-color: #f5f5f5; }
    .container { background-color: white; border-radius: 12px; padding: 30px; box-shadow: 0 2px 8px rgba(0,0,0,0.1); }
    .header { border-bottom: 3px solid #1DA1F2; padding-bottom: 20px; margin-bottom: 30px; }
    h1 { color: #1DA1F2; margin: 0 0 10px 0; font-size: 28px; }
    .greeting { color: #666; font-size: 16px; }
    .tweet-card { background-color: #f9f9f9; border-left: 4px solid #1DA1F2; padding: 20px; margin-bottom: 20px; border-radius: 8px; }
    .tweet-author { font-weight: bold; color: #1a1a1a; margin-bottom: 8px; font-size: 16px; }
    .tweet-text { color: #333; margin-bottom: 12px; font-size: 15px; }
    .tweet-meta { color: #888; font-size: 13px; }
    .tweet-meta span { margin-right: 15px; }
    .tweet-link { color: #1DA1F2; text-decoration: none; font-weight: 500; }
    .footer { margin-top: 40px; padding-top: 20px; border-top: 1px solid #e0e0e0; text-align: center; color: #888; font-size: 13px; }
    .stats { background-color: #e8f5fd; padding: 15px; border-radius: 8px; margin-bottom: 25px; }
  </style>
</head>
<body>
  <div class="container">
    <div class="header">
      <h1>&#128038; Your Twitter Digest</h1>
      <p class="greeting">{{.Greeting}}, {{.Name}}!</p>
    </div>
    <div class="stats">
      <span><strong>{{.TweetCount}}</strong> tweets from the last 24 hours</span>
    </div>
    {{if not .Tweets}}<p style="text-align: center; color: #888; padding: 40px 0;">No new tweets in the last 24 hours.</p>{{end}}
    {{range .Tweets}}<div class="tweet-card">
      <div class="tweet-author">@{{.AuthorUsername}}</div>
      <div class="tweet-text">{{.Text}}</div>
      <div class="tweet-meta">
        <span>&#10084;&#65039; {{.LikeCount}}</span>
        <span>&#128260; {{.RetweetCount}}</span>
        <span>&#128172; {{.ReplyCount}}</span>
        {{if .StatusURL}}<a href="{{.StatusURL}}" class="tweet-link">View Tweet &rarr;</a>{{end}}
      </div>
    </div>
    {{end}}
    <div class="footer">
      <p>You&#39;re receiving this because you signed up for Twitter Digest.</p>
      <p><a href="{{.SettingsURL}}" style="color: #1DA1F2;">Update Settings</a></p>
    </div>
  </div>
</body>
</html>
`

// compile-time interface check
var _ RendererService = (*Renderer)(nil)
