package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/hitoshi/tweetdigest/internal/middleware"
	"github.com/hitoshi/tweetdigest/internal/model"
)

// UserService はユーザーハンドラが依存するサービスインターフェース。
type UserService interface {
	GetProfile(ctx context.Context, userID string) (*model.User, error)
	UpdateEmail(ctx context.Context, userID, email string) error
	UpdatePreferences(ctx context.Context, userID string, digestEnabled bool, prefs model.Preferences) error
	Withdraw(ctx context.Context, userID string) error
}

// UserHandler はユーザープロフィールと設定のHTTPハンドラ。
type UserHandler struct {
	userService UserService
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(userService UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// profileResponse はプロフィールAPIのレスポンス。
// アクセストークンなどの認証情報は含めない。
type profileResponse struct {
	ID               string              `json:"id"`
	Email            string              `json:"email"`
	TwitterUsername  string              `json:"twitter_username"`
	TwitterConnected bool                `json:"twitter_connected"`
	DigestEnabled    bool                `json:"digest_enabled"`
	Preferences      preferencesResponse `json:"preferences"`
	CreatedAt        time.Time           `json:"created_at"`
}

type preferencesResponse struct {
	DetailLevel string `json:"detail_level"`
	DigestTime  string `json:"digest_time,omitempty"`
	Language    string `json:"language,omitempty"`
}

func newProfileResponse(user *model.User) profileResponse {
	return profileResponse{
		ID:               user.ID,
		Email:            user.Email,
		TwitterUsername:  user.TwitterUsername,
		TwitterConnected: user.HasTwitterCredentials(),
		DigestEnabled:    user.DigestEnabled,
		Preferences: preferencesResponse{
			DetailLevel: string(user.Preferences.DetailLevel),
			DigestTime:  user.Preferences.DigestTime,
			Language:    user.Preferences.Language,
		},
		CreatedAt: user.CreatedAt,
	}
}

// GetProfile は現在のユーザーのプロフィールを返す。
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	user, err := h.userService.GetProfile(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, newProfileResponse(user))
}

// updateEmailRequest はメールアドレス更新リクエスト。
type updateEmailRequest struct {
	Email string `json:"email"`
}

// UpdateEmail はダイジェスト送信先メールアドレスを更新する。
func (h *UserHandler) UpdateEmail(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	var req updateEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidEmailError())
		return
	}

	if err := h.userService.UpdateEmail(r.Context(), userID, req.Email); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// updatePreferencesRequest はダイジェスト設定更新リクエスト。
type updatePreferencesRequest struct {
	DigestEnabled bool `json:"digest_enabled"`
	Preferences   struct {
		DetailLevel string `json:"detail_level"`
		DigestTime  string `json:"digest_time"`
		Language    string `json:"language"`
	} `json:"preferences"`
}

// UpdatePreferences はダイジェスト設定を更新する。
// 詳細度が省略された場合はmediumとして扱う。
func (h *UserHandler) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	var req updatePreferencesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidPreferenceError("リクエストボディを解析できません"))
		return
	}

	prefs := model.Preferences{
		DetailLevel: model.DetailLevel(req.Preferences.DetailLevel),
		DigestTime:  req.Preferences.DigestTime,
		Language:    req.Preferences.Language,
	}
	if prefs.DetailLevel == "" {
		prefs.DetailLevel = model.DetailLevelMedium
	}

	if err := h.userService.UpdatePreferences(r.Context(), userID, req.DigestEnabled, prefs); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Withdraw は退会処理を実行し、セッションCookieを削除する。
func (h *UserHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	if err := h.userService.Withdraw(r.Context(), userID); err != nil {
		handleServiceError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	w.WriteHeader(http.StatusNoContent)
}
