// Package twitter はTwitter APIとの連携機能を提供する。
//
// OAuth 1.0a署名付きリクエストでユーザーのホームタイムラインを取得し、
// ダイジェスト生成パイプラインにツイートを供給する。
package twitter

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Signer はOAuth 1.0a HMAC-SHA1署名を生成する。
// コンシューマー認証情報を保持し、リクエストごとにユーザートークンを受け取る。
// タイムスタンプとnonceは注入可能で、テストでは固定値に差し替えられる。
type Signer struct {
	consumerKey    string
	consumerSecret string
	nowFn          func() time.Time
	nonceFn        func() string
}

// NewSigner はSignerを生成する。
func NewSigner(consumerKey, consumerSecret string) *Signer {
	return &Signer{
		consumerKey:    consumerKey,
		consumerSecret: consumerSecret,
		nowFn:          time.Now,
		nonceFn:        randomNonce,
	}
}

// Sign はリクエストにOAuth 1.0aのAuthorizationヘッダーを付与する。
// tokenとtokenSecretはリクエストトークン取得時には空文字列でよい。
// paramsには署名ベース文字列に含めるクエリ/フォームパラメータを渡す。
// extraOAuthにはoauth_callbackやoauth_verifier等の追加OAuthパラメータを渡す。
func (s *Signer) Sign(req *http.Request, token, tokenSecret string, params, extraOAuth map[string]string) {
	oauth := map[string]string{
		"oauth_consumer_key":     s.consumerKey,
		"oauth_nonce":            s.nonceFn(),
		"oauth_signature_method": "HMAC-SHA1",
		"oauth_timestamp":        strconv.FormatInt(s.nowFn().Unix(), 10),
		"oauth_version":          "1.0",
	}
	if token != "" {
		oauth["oauth_token"] = token
	}
	for k, v := range extraOAuth {
		oauth[k] = v
	}

	// 署名ベース文字列はOAuthパラメータとリクエストパラメータの全てを含む
	all := make(map[string]string, len(oauth)+len(params))
	for k, v := range oauth {
		all[k] = v
	}
	for k, v := range params {
		all[k] = v
	}

	keys := make([]string, 0, len(all))
	for k := range all {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	paramParts := make([]string, 0, len(keys))
	for _, k := range keys {
		paramParts = append(paramParts, rfc3986(k)+"="+rfc3986(all[k]))
	}
	paramStr := strings.Join(paramParts, "&")

	baseURL := req.URL.Scheme + "://" + req.URL.Host + req.URL.Path
	base := req.Method + "&" + rfc3986(baseURL) + "&" + rfc3986(paramStr)

	signingKey := rfc3986(s.consumerSecret) + "&" + rfc3986(tokenSecret)
	mac := hmac.New(sha1.New, []byte(signingKey))
	mac.Write([]byte(base))
	oauth["oauth_signature"] = base64.StdEncoding.EncodeToString(mac.Sum(nil))

	hdrKeys := make([]string, 0, len(oauth))
	for k := range oauth {
		hdrKeys = append(hdrKeys, k)
	}
	sort.Strings(hdrKeys)

	authParts := make([]string, 0, len(hdrKeys))
	for _, k := range hdrKeys {
		authParts = append(authParts, rfc3986(k)+`="`+rfc3986(oauth[k])+`"`)
	}
	req.Header.Set("Authorization", "OAuth "+strings.Join(authParts, ", "))
}

// randomNonce は32文字のランダムなnonceを生成する。
func randomNonce() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		// crypto/randの失敗は実行環境の異常であり回復不能
		panic(err)
	}
	return hex.EncodeToString(b)
}

// rfc3986 はOAuth署名用のRFC 3986パーセントエンコーディングを行う。
// url.QueryEscapeとはスペースと*の扱いが異なる。
func rfc3986(s string) string {
	escaped := url.QueryEscape(s)
	escaped = strings.ReplaceAll(escaped, "+", "%20")
	escaped = strings.ReplaceAll(escaped, "*", "%2A")
	return escaped
}

// encodeQuery はパラメータをキー順にソートしたクエリ文字列を生成する。
func encodeQuery(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, url.QueryEscape(k)+"="+url.QueryEscape(params[k]))
	}
	return strings.Join(parts, "&")
}
