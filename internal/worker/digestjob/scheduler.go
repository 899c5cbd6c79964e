// Package digestjob はダイジェストの日次バッチ配信を提供する。
// 設定された配信時刻（UTC）に全対象ユーザーへのパイプライン実行を起動する。
package digestjob

import (
	"context"
	"log/slog"
	"time"

	"github.com/hitoshi/tweetdigest/internal/digest"
)

// BatchRunnerService はバッチ配信の実行インターフェース。
type BatchRunnerService interface {
	// RunAll は全対象ユーザーに対してダイジェストパイプラインを実行する。
	RunAll(ctx context.Context) (*digest.RunSummary, error)
}

// Scheduler はダイジェスト配信の日次スケジューリングを行う。
// 毎日hour時0分（UTC）にバッチ配信を起動する。
type Scheduler struct {
	runner BatchRunnerService
	logger *slog.Logger
	hour   int // 配信時刻（0-23、UTC）

	// テスト用に現在時刻を差し替え可能
	nowFn func() time.Time
}

// NewScheduler はSchedulerの新しいインスタンスを生成する。
// hourが範囲外の場合はデフォルトの8時を使用する。
func NewScheduler(runner BatchRunnerService, logger *slog.Logger, hour int) *Scheduler {
	if hour < 0 || hour > 23 {
		hour = 8
	}
	return &Scheduler{
		runner: runner,
		logger: logger,
		hour:   hour,
		nowFn:  time.Now,
	}
}

// nextFire は現在時刻の次の配信時刻を返す。
// 本日の配信時刻を過ぎている場合は翌日の同時刻になる。
func (s *Scheduler) nextFire(now time.Time) time.Time {
	now = now.UTC()
	fire := time.Date(now.Year(), now.Month(), now.Day(), s.hour, 0, 0, 0, time.UTC)
	if !fire.After(now) {
		fire = fire.Add(24 * time.Hour)
	}
	return fire
}

// Start は日次スケジューラを起動する。
// コンテキストがキャンセルされるまで実行を継続する。
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("ダイジェストスケジューラを開始しました",
		slog.Int("digest_hour", s.hour),
	)

	for {
		now := s.nowFn()
		fire := s.nextFire(now)
		timer := time.NewTimer(fire.Sub(now))

		s.logger.Info("次回の配信時刻を設定しました",
			slog.Time("next_fire", fire),
		)

		select {
		case <-ctx.Done():
			timer.Stop()
			s.logger.Info("ダイジェストスケジューラを停止しました")
			return
		case <-timer.C:
			if err := s.RunOnce(ctx); err != nil {
				s.logger.Error("バッチ配信の実行に失敗しました",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// RunOnce はバッチ配信を1回実行し、結果の内訳をログに記録する。
func (s *Scheduler) RunOnce(ctx context.Context) error {
	start := s.nowFn()

	summary, err := s.runner.RunAll(ctx)
	if err != nil {
		return err
	}

	duration := time.Since(start)
	s.logger.Info("バッチ配信が完了しました",
		slog.Int("total", summary.Total),
		slog.Int("sent", summary.Sent),
		slog.Int("failed", summary.Failed),
		slog.Int("skipped", summary.Skipped),
		slog.Int("errors", summary.Errors),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}
