// Package handler はHTTPハンドラを提供する。
package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/tweetdigest/internal/middleware"
	"github.com/hitoshi/tweetdigest/internal/model"
)

// mapAPIErrorToHTTPStatus はエラーコードをHTTPステータスコードに変換する。
func mapAPIErrorToHTTPStatus(code string) int {
	switch code {
	case model.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case model.ErrCodeUserNotFound:
		return http.StatusNotFound
	case model.ErrCodeTwitterNotConnected,
		model.ErrCodeInvalidPreference,
		model.ErrCodeInvalidEmail:
		return http.StatusBadRequest
	case model.ErrCodeTimelineFetchFailed,
		model.ErrCodeDigestSendFailed,
		model.ErrCodeOAuthFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// handleServiceError はサービス層のエラーを統一フォーマットのHTTPレスポンスに変換する。
// APIError以外のエラーは詳細をログに残し、一般的な500レスポンスを返す。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		middleware.WriteErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr.Code), apiErr)
		return
	}

	slog.Error("unexpected service error", slog.String("error", err.Error()))
	middleware.WriteInternalServerError(w)
}
