package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/hitoshi/tweetdigest/internal/middleware"
	"github.com/hitoshi/tweetdigest/internal/model"
)

// AuthService は認証ハンドラが依存するサービスインターフェース。
type AuthService interface {
	StartLogin(ctx context.Context) (string, error)
	HandleCallback(ctx context.Context, oauthToken, verifier string) (*model.Session, error)
	Logout(ctx context.Context, sessionID string) error
	GetCurrentUser(ctx context.Context, sessionID string) (*model.User, error)
	DisconnectTwitter(ctx context.Context, userID string) error
}

// AuthHandlerConfig は認証ハンドラの設定。
type AuthHandlerConfig struct {
	FrontendURL   string
	CookieDomain  string
	CookieSecure  bool
	SessionMaxAge int // 秒
}

// AuthHandler はTwitter OAuth認証のHTTPハンドラ。
type AuthHandler struct {
	authService AuthService
	config      AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(authService AuthService, config AuthHandlerConfig) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		config:      config,
	}
}

// Login はTwitter OAuth認証フローを開始する。
// リクエストトークンを取得し、Twitterの認可ページへリダイレクトする。
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	authorizeURL, err := h.authService.StartLogin(r.Context())
	if err != nil {
		slog.Error("failed to start login", slog.String("error", err.Error()))
		handleServiceError(w, model.NewOAuthFailedError("リクエストトークンを取得できませんでした"))
		return
	}

	http.Redirect(w, r, authorizeURL, http.StatusTemporaryRedirect)
}

// Callback はTwitterからのOAuthコールバックを処理する。
// アクセストークンを交換してセッションを発行し、フロントエンドへリダイレクトする。
// 認証失敗時はエラーコード付きでログインページへ戻す。
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	oauthToken := r.URL.Query().Get("oauth_token")
	verifier := r.URL.Query().Get("oauth_verifier")

	// ユーザーが認可を拒否した場合はdeniedパラメータのみが付く
	if r.URL.Query().Get("denied") != "" || oauthToken == "" || verifier == "" {
		http.Redirect(w, r, h.config.FrontendURL+"/login?error=access_denied", http.StatusTemporaryRedirect)
		return
	}

	session, err := h.authService.HandleCallback(r.Context(), oauthToken, verifier)
	if err != nil {
		slog.Error("oauth callback failed", slog.String("error", err.Error()))
		http.Redirect(w, r, h.config.FrontendURL+"/login?error=oauth_failed", http.StatusTemporaryRedirect)
		return
	}

	h.setSessionCookie(w, session.ID, h.config.SessionMaxAge)
	http.Redirect(w, r, h.config.FrontendURL, http.StatusTemporaryRedirect)
}

// Logout はセッションを破棄し、Cookieを削除する。
// セッション削除に失敗してもCookieは必ず削除する。
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(middleware.SessionCookieName)
	if err == nil && cookie.Value != "" {
		if err := h.authService.Logout(r.Context(), cookie.Value); err != nil {
			slog.Error("failed to delete session", slog.String("error", err.Error()))
		}
	}

	h.setSessionCookie(w, "", -1)
	w.WriteHeader(http.StatusNoContent)
}

// Me は現在のセッションに紐づくユーザー情報を返す。
// 未認証の場合は401を返す。
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(middleware.SessionCookieName)
	if err != nil || cookie.Value == "" {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	user, err := h.authService.GetCurrentUser(r.Context(), cookie.Value)
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	writeJSON(w, http.StatusOK, newProfileResponse(user))
}

// DisconnectTwitter はTwitterアカウントの接続を解除する。
// 認証トークンを消去し、ダイジェスト配信を無効化する。
func (h *AuthHandler) DisconnectTwitter(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	if err := h.authService.DisconnectTwitter(r.Context(), userID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// setSessionCookie はセッションCookieを設定する。
// maxAgeに負値を渡すとCookieを削除する。
func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, sessionID string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    sessionID,
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response", slog.String("error", err.Error()))
	}
}
