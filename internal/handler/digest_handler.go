package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/tweetdigest/internal/digest"
	"github.com/hitoshi/tweetdigest/internal/middleware"
	"github.com/hitoshi/tweetdigest/internal/model"
	"github.com/hitoshi/tweetdigest/internal/repository"
)

// DigestRunner はダイジェストパイプラインの実行インターフェース。
type DigestRunner interface {
	RunForUser(ctx context.Context, user *model.User) (*model.DigestLog, error)
	RunAll(ctx context.Context) (*digest.RunSummary, error)
}

// DigestHandler はダイジェストの手動実行と配信履歴のHTTPハンドラ。
type DigestHandler struct {
	userService UserService
	runner      DigestRunner
	digestLogs  repository.DigestLogRepository
	logger      *slog.Logger
}

// NewDigestHandler はDigestHandlerを生成する。
func NewDigestHandler(userService UserService, runner DigestRunner, digestLogs repository.DigestLogRepository, logger *slog.Logger) *DigestHandler {
	return &DigestHandler{
		userService: userService,
		runner:      runner,
		digestLogs:  digestLogs,
		logger:      logger,
	}
}

// digestLogResponse は配信履歴APIのレスポンス。
type digestLogResponse struct {
	ID           string    `json:"id"`
	TweetCount   int       `json:"tweet_count"`
	Status       string    `json:"status"`
	ErrorMessage string    `json:"error_message,omitempty"`
	SentAt       time.Time `json:"sent_at"`
}

func newDigestLogResponse(log *model.DigestLog) digestLogResponse {
	return digestLogResponse{
		ID:           log.ID,
		TweetCount:   log.TweetCount,
		Status:       string(log.Status),
		ErrorMessage: log.ErrorMessage,
		SentAt:       log.SentAt,
	}
}

// digestHistoryLimit は配信履歴APIが返す最大件数。
const digestHistoryLimit = 30

// RunTest は現在のユーザーに対してダイジェストを即時実行する。
// 配信失敗の場合も履歴には1行記録されるが、即時実行の呼び出し元には
// 配信されなかったことをエラーレスポンスで伝える。
func (h *DigestHandler) RunTest(w http.ResponseWriter, r *http.Request) {
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

	if !user.HasTwitterCredentials() {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewTwitterNotConnectedError())
		return
	}

	log, err := h.runner.RunForUser(r.Context(), user)
	if err != nil {
		handleServiceError(w, model.NewTimelineFetchFailedError(err.Error()))
		return
	}

	if log.Status == model.DigestStatusFailed {
		handleServiceError(w, model.NewDigestSendFailedError(log.ErrorMessage))
		return
	}

	writeJSON(w, http.StatusOK, newDigestLogResponse(log))
}

// History は現在のユーザーの配信履歴を新しい順に返す。
func (h *DigestHandler) History(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	logs, err := h.digestLogs.ListByUserID(r.Context(), userID, digestHistoryLimit)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	responses := make([]digestLogResponse, 0, len(logs))
	for _, log := range logs {
		responses = append(responses, newDigestLogResponse(log))
	}
	writeJSON(w, http.StatusOK, responses)
}

// RunBatch は全対象ユーザーへのバッチ配信を非同期で開始し、202を返す。
// 実行結果はログとメトリクスで確認する。
func (h *DigestHandler) RunBatch(w http.ResponseWriter, r *http.Request) {
	go func() {
		summary, err := h.runner.RunAll(context.Background())
		if err != nil {
			h.logger.Error("バッチ配信に失敗しました", slog.String("error", err.Error()))
			return
		}
		h.logger.Info("バッチ配信が完了しました",
			slog.Int("total", summary.Total),
			slog.Int("sent", summary.Sent),
			slog.Int("failed", summary.Failed),
			slog.Int("skipped", summary.Skipped),
		)
	}()

	w.WriteHeader(http.StatusAccepted)
}
