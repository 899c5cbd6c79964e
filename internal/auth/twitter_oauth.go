// Package auth はTwitter OAuth認証フロー、セッション管理を提供する。
//
// OAuth 1.0aの3-leggedフローでログインとTwitterアカウント接続を同時に行う。
// 取得したアクセストークンはダイジェスト生成時のタイムライン取得にも使用される。
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/hitoshi/tweetdigest/internal/twitter"
)

const (
	defaultRequestTokenURL      = "https://api.twitter.com/oauth/request_token"
	defaultAuthorizeURL         = "https://api.twitter.com/oauth/authorize"
	defaultAccessTokenURL       = "https://api.twitter.com/oauth/access_token"
	defaultVerifyCredentialsURL = "https://api.twitter.com/1.1/account/verify_credentials.json"
)

// RequestToken は認可前の一時トークン。
type RequestToken struct {
	Token  string
	Secret string
}

// AccessToken は認可後のユーザーアクセストークン。
type AccessToken struct {
	Token      string
	Secret     string
	UserID     string
	ScreenName string
}

// TwitterUserInfo はTwitterから取得したユーザー情報を表す。
type TwitterUserInfo struct {
	TwitterUserID string
	Username      string
	Name          string
	Email         string // メール権限がないアプリでは空
}

// OAuthProvider はTwitter OAuth認証プロバイダーのインターフェース。
type OAuthProvider interface {
	// GetRequestToken は一時トークンを取得する。
	GetRequestToken(ctx context.Context) (*RequestToken, error)
	// GetAuthorizeURL は認可画面のURLを生成する。
	GetAuthorizeURL(token string) string
	// ExchangeAccessToken は認可済みの一時トークンをアクセストークンに交換する。
	ExchangeAccessToken(ctx context.Context, token, secret, verifier string) (*AccessToken, error)
	// VerifyCredentials はアクセストークンでユーザー情報を取得する。
	VerifyCredentials(ctx context.Context, accessToken, accessSecret string) (*TwitterUserInfo, error)
}

// TwitterOAuthConfig はTwitter OAuthプロバイダーの設定。
type TwitterOAuthConfig struct {
	ConsumerKey    string
	ConsumerSecret string
	CallbackURL    string

	// テスト用にオーバーライド可能なURL
	RequestTokenURL      string
	AuthorizeURL         string
	AccessTokenURL       string
	VerifyCredentialsURL string
}

// TwitterOAuthProvider はTwitter OAuth 1.0aによる認証を提供する。
type TwitterOAuthProvider struct {
	httpClient *http.Client
	signer     *twitter.Signer
	config     TwitterOAuthConfig
}

// NewTwitterOAuthProvider はTwitterOAuthProviderを生成する。
func NewTwitterOAuthProvider(httpClient *http.Client, config TwitterOAuthConfig) *TwitterOAuthProvider {
	if config.RequestTokenURL == "" {
		config.RequestTokenURL = defaultRequestTokenURL
	}
	if config.AuthorizeURL == "" {
		config.AuthorizeURL = defaultAuthorizeURL
	}
	if config.AccessTokenURL == "" {
		config.AccessTokenURL = defaultAccessTokenURL
	}
	if config.VerifyCredentialsURL == "" {
		config.VerifyCredentialsURL = defaultVerifyCredentialsURL
	}
	return &TwitterOAuthProvider{
		httpClient: httpClient,
		signer:     twitter.NewSigner(config.ConsumerKey, config.ConsumerSecret),
		config:     config,
	}
}

// GetRequestToken は一時トークンを取得する。
func (p *TwitterOAuthProvider) GetRequestToken(ctx context.Context) (*RequestToken, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.RequestTokenURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request token request: %w", err)
	}
	p.signer.Sign(req, "", "", nil, map[string]string{
		"oauth_callback": p.config.CallbackURL,
	})

	values, err := p.doFormRequest(req)
	if err != nil {
		return nil, fmt.Errorf("request token failed: %w", err)
	}

	if values.Get("oauth_callback_confirmed") != "true" {
		return nil, fmt.Errorf("oauth callback not confirmed")
	}
	token := values.Get("oauth_token")
	secret := values.Get("oauth_token_secret")
	if token == "" || secret == "" {
		return nil, fmt.Errorf("empty request token in response")
	}

	return &RequestToken{Token: token, Secret: secret}, nil
}

// GetAuthorizeURL は認可画面のURLを生成する。
func (p *TwitterOAuthProvider) GetAuthorizeURL(token string) string {
	return p.config.AuthorizeURL + "?oauth_token=" + url.QueryEscape(token)
}

// ExchangeAccessToken は認可済みの一時トークンをアクセストークンに交換する。
func (p *TwitterOAuthProvider) ExchangeAccessToken(ctx context.Context, token, secret, verifier string) (*AccessToken, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.AccessTokenURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create access token request: %w", err)
	}
	p.signer.Sign(req, token, secret, nil, map[string]string{
		"oauth_verifier": verifier,
	})

	values, err := p.doFormRequest(req)
	if err != nil {
		return nil, fmt.Errorf("access token exchange failed: %w", err)
	}

	accessToken := &AccessToken{
		Token:      values.Get("oauth_token"),
		Secret:     values.Get("oauth_token_secret"),
		UserID:     values.Get("user_id"),
		ScreenName: values.Get("screen_name"),
	}
	if accessToken.Token == "" || accessToken.Secret == "" {
		return nil, fmt.Errorf("empty access token in response")
	}
	if accessToken.UserID == "" {
		return nil, fmt.Errorf("empty user_id in response")
	}

	return accessToken, nil
}

// verifyCredentialsResponse はverify_credentialsのレスポンス。
type verifyCredentialsResponse struct {
	IDStr      string `json:"id_str"`
	ScreenName string `json:"screen_name"`
	Name       string `json:"name"`
	Email      string `json:"email"`
}

// VerifyCredentials はアクセストークンでユーザー情報を取得する。
// include_email=trueを指定するが、メール権限のないアプリではemailは空になる。
func (p *TwitterOAuthProvider) VerifyCredentials(ctx context.Context, accessToken, accessSecret string) (*TwitterUserInfo, error) {
	params := map[string]string{
		"include_email":    "true",
		"skip_status":      "true",
		"include_entities": "false",
	}

	reqURL := p.config.VerifyCredentialsURL + "?" + url.Values{
		"include_email":    {"true"},
		"skip_status":      {"true"},
		"include_entities": {"false"},
	}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create verify credentials request: %w", err)
	}
	p.signer.Sign(req, accessToken, accessSecret, params, nil)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("verify credentials request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read verify credentials response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("verify credentials failed with status %d: %s", resp.StatusCode, string(body))
	}

	var info verifyCredentialsResponse
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("failed to parse verify credentials response: %w", err)
	}
	if info.IDStr == "" {
		return nil, fmt.Errorf("empty id_str in verify credentials response")
	}

	return &TwitterUserInfo{
		TwitterUserID: info.IDStr,
		Username:      info.ScreenName,
		Name:          info.Name,
		Email:         info.Email,
	}, nil
}

// doFormRequest はリクエストを実行し、form-urlencodedレスポンスをパースする。
func (p *TwitterOAuthProvider) doFormRequest(req *http.Request) (url.Values, error) {
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, string(body))
	}

	values, err := url.ParseQuery(string(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return values, nil
}

// compile-time interface check
var _ OAuthProvider = (*TwitterOAuthProvider)(nil)
