// Package cleanup は期限切れデータの自動削除ジョブを提供する。
// 期限切れセッションと保持期間（デフォルト90日）を超過した配信履歴を
// 日次バッチで削除する。
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/tweetdigest/internal/repository"
)

// CleanupJob は期限切れセッションと古い配信履歴の自動削除ジョブ。
// 日次実行のバッチジョブとして設計されており、冪等な削除処理を保証する。
type CleanupJob struct {
	sessionRepo   repository.SessionRepository
	digestLogRepo repository.DigestLogRepository
	logger        *slog.Logger
	RetentionDays int // 配信履歴の保持日数（デフォルト: 90）

	// テスト用に現在時刻を差し替え可能
	nowFn func() time.Time
}

// NewCleanupJob は新しいCleanupJobを生成する。
// デフォルトの保持日数は90日。
func NewCleanupJob(sessionRepo repository.SessionRepository, digestLogRepo repository.DigestLogRepository, logger *slog.Logger) *CleanupJob {
	return &CleanupJob{
		sessionRepo:   sessionRepo,
		digestLogRepo: digestLogRepo,
		logger:        logger,
		RetentionDays: 90,
		nowFn:         time.Now,
	}
}

// Run は期限切れセッションと保持期間を超過した配信履歴を削除する。
// 冪等: 削除対象がない場合でもエラーにならない。
func (j *CleanupJob) Run(ctx context.Context) error {
	start := j.nowFn()

	sessionCount, err := j.sessionRepo.DeleteExpired(ctx, start)
	if err != nil {
		j.logger.Error("セッションクリーンアップの実行に失敗しました",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("セッションクリーンアップの実行に失敗: %w", err)
	}

	cutoff := start.AddDate(0, 0, -j.RetentionDays)
	logCount, err := j.digestLogRepo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		j.logger.Error("配信履歴クリーンアップの実行に失敗しました",
			slog.String("error", err.Error()),
			slog.Int("retention_days", j.RetentionDays),
		)
		return fmt.Errorf("配信履歴クリーンアップの実行に失敗: %w", err)
	}

	duration := time.Since(start)
	j.logger.Info("クリーンアップジョブが完了しました",
		slog.Int64("deleted_sessions", sessionCount),
		slog.Int64("deleted_digest_logs", logCount),
		slog.Int("retention_days", j.RetentionDays),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}

// Start は日次間隔でクリーンアップジョブを起動する。
// コンテキストがキャンセルされるまで実行を継続する。
func (j *CleanupJob) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	j.logger.Info("クリーンアップスケジューラを開始しました",
		slog.Duration("interval", interval),
	)

	// 起動直後に1回実行
	if err := j.Run(ctx); err != nil {
		j.logger.Error("クリーンアップジョブの実行に失敗しました",
			slog.String("error", err.Error()),
		)
	}

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("クリーンアップスケジューラを停止しました")
			return
		case <-ticker.C:
			if err := j.Run(ctx); err != nil {
				j.logger.Error("クリーンアップジョブの実行に失敗しました",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}
