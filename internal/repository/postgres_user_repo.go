package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/tweetdigest/internal/model"
)

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

const userColumns = `id, COALESCE(email, ''), COALESCE(twitter_user_id, ''),
	COALESCE(twitter_username, ''), COALESCE(twitter_display_name, ''),
	COALESCE(twitter_access_token, ''), COALESCE(twitter_access_secret, ''),
	digest_enabled, detail_level, COALESCE(digest_time, ''), COALESCE(language, ''),
	created_at, updated_at`

// scanUser は1行をmodel.Userにスキャンする。
func scanUser(row interface{ Scan(...any) error }) (*model.User, error) {
	user := &model.User{}
	var detailLevel string
	err := row.Scan(
		&user.ID, &user.Email, &user.TwitterUserID,
		&user.TwitterUsername, &user.TwitterDisplayName,
		&user.TwitterAccessToken, &user.TwitterAccessSecret,
		&user.DigestEnabled, &detailLevel, &user.Preferences.DigestTime,
		&user.Preferences.Language, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	user.Preferences.DetailLevel = model.DetailLevel(detailLevel)
	return user, nil
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id)

	user, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by ID: %w", err)
	}
	return user, nil
}

// FindByTwitterUserID はTwitterユーザーIDでユーザーを検索する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByTwitterUserID(ctx context.Context, twitterUserID string) (*model.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE twitter_user_id = $1`, twitterUserID)

	user, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by twitter user ID: %w", err)
	}
	return user, nil
}

// Create はユーザーを作成する。
func (r *PostgresUserRepo) Create(ctx context.Context, user *model.User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, email, twitter_user_id, twitter_username, twitter_display_name,
		    twitter_access_token, twitter_access_secret, digest_enabled, detail_level,
		    digest_time, language, created_at, updated_at)
		 VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''),
		    NULLIF($6, ''), NULLIF($7, ''), $8, $9, NULLIF($10, ''), NULLIF($11, ''), $12, $13)`,
		user.ID, user.Email, user.TwitterUserID, user.TwitterUsername, user.TwitterDisplayName,
		user.TwitterAccessToken, user.TwitterAccessSecret, user.DigestEnabled,
		string(user.Preferences.DetailLevel), user.Preferences.DigestTime,
		user.Preferences.Language, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// ListDigestEnabled はダイジェスト配信の対象ユーザーを返す。
// digest_enabled = true かつ Twitter認証情報が保存されているユーザーのみ。
func (r *PostgresUserRepo) ListDigestEnabled(ctx context.Context) ([]*model.User, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users
		 WHERE digest_enabled = TRUE
		   AND twitter_access_token IS NOT NULL
		   AND twitter_access_secret IS NOT NULL
		 ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list digest-enabled users: %w", err)
	}
	defer rows.Close()

	var users []*model.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}
	return users, nil
}

// UpdateEmail はユーザーのメールアドレスを更新する。
func (r *PostgresUserRepo) UpdateEmail(ctx context.Context, id, email string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET email = NULLIF($2, ''), updated_at = now() WHERE id = $1`,
		id, email)
	if err != nil {
		return fmt.Errorf("failed to update email: %w", err)
	}
	return checkOneRowAffected(result, id)
}

// UpdatePreferences はダイジェスト設定を更新する。
func (r *PostgresUserRepo) UpdatePreferences(ctx context.Context, id string, digestEnabled bool, prefs model.Preferences) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users
		 SET digest_enabled = $2, detail_level = $3,
		     digest_time = NULLIF($4, ''), language = NULLIF($5, ''), updated_at = now()
		 WHERE id = $1`,
		id, digestEnabled, string(prefs.DetailLevel), prefs.DigestTime, prefs.Language)
	if err != nil {
		return fmt.Errorf("failed to update preferences: %w", err)
	}
	return checkOneRowAffected(result, id)
}

// UpdateTwitterCredentials はTwitterアカウント情報と認証トークンを保存する。
func (r *PostgresUserRepo) UpdateTwitterCredentials(ctx context.Context, id string, twitterUserID, username, displayName, accessToken, accessSecret string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users
		 SET twitter_user_id = $2, twitter_username = $3, twitter_display_name = $4,
		     twitter_access_token = $5, twitter_access_secret = $6, updated_at = now()
		 WHERE id = $1`,
		id, twitterUserID, username, displayName, accessToken, accessSecret)
	if err != nil {
		return fmt.Errorf("failed to update twitter credentials: %w", err)
	}
	return checkOneRowAffected(result, id)
}

// ClearTwitterCredentials はTwitter接続を解除する。
// 認証トークンを消去し、digest_enabledをfalseに設定する。
func (r *PostgresUserRepo) ClearTwitterCredentials(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users
		 SET twitter_user_id = NULL, twitter_username = NULL, twitter_display_name = NULL,
		     twitter_access_token = NULL, twitter_access_secret = NULL,
		     digest_enabled = FALSE, updated_at = now()
		 WHERE id = $1`,
		id)
	if err != nil {
		return fmt.Errorf("failed to clear twitter credentials: %w", err)
	}
	return checkOneRowAffected(result, id)
}

// DeleteByID は指定IDのユーザーを削除する。
// 関連するsessions、digest_logsはCASCADE削除される。
func (r *PostgresUserRepo) DeleteByID(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM users WHERE id = $1`,
		id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return checkOneRowAffected(result, id)
}

// checkOneRowAffected は更新・削除が対象行に当たったことを確認する。
func checkOneRowAffected(result sql.Result, id string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("user not found: %s", id)
	}
	return nil
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)
