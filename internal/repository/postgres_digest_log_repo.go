package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/tweetdigest/internal/model"
)

// PostgresDigestLogRepo はPostgreSQLを使用したダイジェスト送信履歴リポジトリ。
type PostgresDigestLogRepo struct {
	db *sql.DB
}

// NewPostgresDigestLogRepo はPostgresDigestLogRepoを生成する。
func NewPostgresDigestLogRepo(db *sql.DB) *PostgresDigestLogRepo {
	return &PostgresDigestLogRepo{db: db}
}

// Create は送信履歴を1件追加する。履歴は追記のみで更新されない。
func (r *PostgresDigestLogRepo) Create(ctx context.Context, log *model.DigestLog) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO digest_logs (id, user_id, tweet_count, sent_at, status, error_message, created_at)
		 VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7)`,
		log.ID, log.UserID, log.TweetCount, log.SentAt, log.Status, log.ErrorMessage, log.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create digest log: %w", err)
	}
	return nil
}

// ListByUserID は指定ユーザーの送信履歴を送信日時の降順で取得する。
func (r *PostgresDigestLogRepo) ListByUserID(ctx context.Context, userID string, limit int) ([]*model.DigestLog, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, tweet_count, sent_at, status, COALESCE(error_message, ''), created_at
		 FROM digest_logs
		 WHERE user_id = $1
		 ORDER BY sent_at DESC
		 LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list digest logs: %w", err)
	}
	defer rows.Close()

	var logs []*model.DigestLog
	for rows.Next() {
		log := &model.DigestLog{}
		if err := rows.Scan(&log.ID, &log.UserID, &log.TweetCount, &log.SentAt, &log.Status, &log.ErrorMessage, &log.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan digest log: %w", err)
		}
		logs = append(logs, log)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate digest logs: %w", err)
	}

	return logs, nil
}

// DeleteOlderThan は指定日時より前に送信された履歴を削除し、削除件数を返す。
func (r *PostgresDigestLogRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM digest_logs WHERE sent_at < $1`,
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old digest logs: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return deleted, nil
}

// compile-time interface check
var _ DigestLogRepository = (*PostgresDigestLogRepo)(nil)
