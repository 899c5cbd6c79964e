package digest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/tweetdigest/internal/email"
	"github.com/hitoshi/tweetdigest/internal/metrics"
	"github.com/hitoshi/tweetdigest/internal/model"
	"github.com/hitoshi/tweetdigest/internal/repository"
	"github.com/hitoshi/tweetdigest/internal/twitter"
)

// RunSummary はバッチ実行の結果サマリー。
type RunSummary struct {
	Total   int // 処理対象ユーザー数
	Sent    int // 送信成功
	Failed  int // 送信失敗（履歴に記録済み）
	Skipped int // 認証情報不足でスキップ
	Errors  int // 取得失敗・パニック等で履歴が残らなかったユーザー数
}

// Service はダイジェスト生成・送信のオーケストレーター。
// 取得、絞り込み、並べ替え、件数制限、レンダリング、送信、履歴記録の
// 一連の流れを1ユーザー単位で実行する。
type Service struct {
	users      repository.UserRepository
	digestLogs repository.DigestLogRepository
	fetcher    twitter.TimelineFetcher
	renderer   email.RendererService
	sender     email.SenderService
	metrics    metrics.MetricsCollector
	logger     *slog.Logger
	window     time.Duration
	nowFn      func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
// windowはダイジェストに含めるツイートの時間窓（通常24時間）。
func NewService(
	users repository.UserRepository,
	digestLogs repository.DigestLogRepository,
	fetcher twitter.TimelineFetcher,
	renderer email.RendererService,
	sender email.SenderService,
	collector metrics.MetricsCollector,
	logger *slog.Logger,
	window time.Duration,
) *Service {
	return &Service{
		users:      users,
		digestLogs: digestLogs,
		fetcher:    fetcher,
		renderer:   renderer,
		sender:     sender,
		metrics:    collector,
		logger:     logger,
		window:     window,
		nowFn:      time.Now,
	}
}

// RunForUser は1ユーザーのダイジェストを生成して送信する。
//
// 結果は以下の3通り:
//   - Twitter認証情報がないユーザーは何もせずスキップする（履歴なし、nilを返す）
//   - タイムライン取得に失敗した場合はエラーを返す（履歴は残らない）
//   - 送信を試行した場合は成功・失敗を問わず履歴を1件記録して返す
//
// 送信失敗は異常ではなく通常の結果として扱い、エラーではなく
// status=failedの履歴として表現する。
func (s *Service) RunForUser(ctx context.Context, user *model.User) (*model.DigestLog, error) {
	start := s.nowFn()

	if !user.HasTwitterCredentials() {
		s.logger.Debug("Twitter未連携のユーザーをスキップしました",
			slog.String("user_id", user.ID),
		)
		s.metrics.RecordDigestSkipped()
		return nil, nil
	}

	tweets, err := s.fetcher.FetchTimeline(ctx, user)
	if err != nil {
		s.metrics.RecordTimelineFetchFailure()
		s.logger.Error("タイムラインの取得に失敗したためダイジェストを中止します",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("タイムラインの取得に失敗しました: %w", err)
	}

	now := s.nowFn()
	recent := FilterByTime(tweets, s.window, now)
	ranked := RankByEngagement(recent)
	final := TruncateByDetailLevel(ranked, user.Preferences.DetailLevel)

	s.logger.Info("ダイジェストを生成します",
		slog.String("user_id", user.ID),
		slog.Int("timeline_count", len(tweets)),
		slog.Int("digest_count", len(final)),
	)

	var sendErr error
	rendered, err := s.renderer.Render(user, final, now)
	if err != nil {
		sendErr = fmt.Errorf("メールのレンダリングに失敗しました: %w", err)
	} else {
		sendErr = s.sender.Send(ctx, user.Email, rendered)
	}

	log := &model.DigestLog{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		SentAt:    s.nowFn(),
		CreatedAt: s.nowFn(),
	}
	if sendErr == nil {
		log.Status = model.DigestStatusSent
		log.TweetCount = len(final)
	} else {
		// 失敗時はエラーメッセージをそのまま記録する
		log.Status = model.DigestStatusFailed
		log.TweetCount = 0
		log.ErrorMessage = sendErr.Error()
	}

	if err := s.digestLogs.Create(ctx, log); err != nil {
		s.logger.Error("ダイジェスト履歴の記録に失敗しました",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	duration := s.nowFn().Sub(start)
	s.metrics.RecordDigestDuration(duration)

	if sendErr == nil {
		s.metrics.RecordDigestSent(len(final))
		s.logger.Info("ダイジェストを送信しました",
			slog.String("user_id", user.ID),
			slog.Int("tweet_count", len(final)),
			slog.Int64("duration_ms", duration.Milliseconds()),
		)
	} else {
		s.metrics.RecordDigestFailed()
		s.logger.Error("ダイジェストの送信に失敗しました",
			slog.String("user_id", user.ID),
			slog.String("error", sendErr.Error()),
		)
	}

	return log, nil
}

// RunAll は配信対象の全ユーザーにダイジェストを順次送信する。
// ユーザーごとの失敗・パニックは他のユーザーの処理に影響しない。
// 対象ユーザーの取得に失敗した場合のみバッチ全体を中止する。
func (s *Service) RunAll(ctx context.Context) (*RunSummary, error) {
	users, err := s.users.ListDigestEnabled(ctx)
	if err != nil {
		return nil, fmt.Errorf("配信対象ユーザーの取得に失敗しました: %w", err)
	}

	s.metrics.RecordBatchRun(len(users))
	s.logger.Info("ダイジェストのバッチ実行を開始します",
		slog.Int("user_count", len(users)),
	)

	summary := &RunSummary{Total: len(users)}
	for _, user := range users {
		log, err := s.runForUserSafe(ctx, user)
		switch {
		case err != nil:
			summary.Errors++
		case log == nil:
			summary.Skipped++
		case log.Status == model.DigestStatusSent:
			summary.Sent++
		default:
			summary.Failed++
		}
	}

	s.logger.Info("ダイジェストのバッチ実行が完了しました",
		slog.Int("total", summary.Total),
		slog.Int("sent", summary.Sent),
		slog.Int("failed", summary.Failed),
		slog.Int("skipped", summary.Skipped),
		slog.Int("errors", summary.Errors),
	)

	return summary, nil
}

// runForUserSafe はRunForUserをパニックから保護して実行する。
func (s *Service) runForUserSafe(ctx context.Context, user *model.User) (log *model.DigestLog, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("ダイジェスト処理中にパニックが発生しました",
				slog.String("user_id", user.ID),
				slog.Any("panic", r),
			)
			log = nil
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return s.RunForUser(ctx, user)
}
