// Package app はアプリケーションの初期化と起動を提供する。
package app

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/tweetdigest/internal/auth"
	"github.com/hitoshi/tweetdigest/internal/config"
	"github.com/hitoshi/tweetdigest/internal/database"
	"github.com/hitoshi/tweetdigest/internal/digest"
	"github.com/hitoshi/tweetdigest/internal/email"
	"github.com/hitoshi/tweetdigest/internal/handler"
	"github.com/hitoshi/tweetdigest/internal/logger"
	"github.com/hitoshi/tweetdigest/internal/metrics"
	"github.com/hitoshi/tweetdigest/internal/middleware"
	"github.com/hitoshi/tweetdigest/internal/repository"
	"github.com/hitoshi/tweetdigest/internal/security"
	"github.com/hitoshi/tweetdigest/internal/twitter"
	"github.com/hitoshi/tweetdigest/internal/user"
	"github.com/hitoshi/tweetdigest/internal/worker/cleanup"
	"github.com/hitoshi/tweetdigest/internal/worker/digestjob"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
	)

	switch cmd {
	case CommandServe:
		return runServe(cfg)
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// openDatabase はDB接続を開き、疎通を確認する。
func openDatabase(cfg *config.Config) (*sql.DB, error) {
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return db, nil
}

// newDigestService はダイジェストパイプラインの依存関係をワイヤリングする。
// APIサーバーの手動実行とワーカーの日次バッチで共通に使う。
func newDigestService(
	cfg *config.Config,
	userRepo repository.UserRepository,
	digestLogRepo repository.DigestLogRepository,
	collector metrics.MetricsCollector,
) (*digest.Service, error) {
	signer := twitter.NewSigner(cfg.TwitterAPIKey, cfg.TwitterAPISecret)
	fetcher := twitter.NewClient(
		&http.Client{Timeout: cfg.FetchTimeout},
		signer, slog.Default(), cfg.TimelinePageSize,
	)

	sanitizer := security.NewTextSanitizer()
	renderer, err := email.NewRenderer(sanitizer, cfg.FrontendURL)
	if err != nil {
		return nil, fmt.Errorf("failed to build renderer: %w", err)
	}

	sender := email.NewResendSender(
		&http.Client{Timeout: cfg.SendTimeout},
		slog.Default(), cfg.ResendAPIKey, cfg.FromEmail,
	)

	window := time.Duration(cfg.DigestWindowHours) * time.Hour
	return digest.NewService(
		userRepo, digestLogRepo, fetcher, renderer, sender,
		collector, slog.Default(), window,
	), nil
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	slog.Info("database connection established")

	// 2. リポジトリの初期化
	userRepo := repository.NewPostgresUserRepo(db)
	sessionRepo := repository.NewPostgresSessionRepo(db)
	digestLogRepo := repository.NewPostgresDigestLogRepo(db)

	// 3. メトリクスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 4. ドメインサービスの初期化
	oauthProvider := auth.NewTwitterOAuthProvider(
		&http.Client{Timeout: 10 * time.Second},
		auth.TwitterOAuthConfig{
			ConsumerKey:    cfg.TwitterAPIKey,
			ConsumerSecret: cfg.TwitterAPISecret,
			CallbackURL:    cfg.BaseURL + "/auth/twitter/callback",
		},
	)
	authService := auth.NewService(
		oauthProvider, userRepo, sessionRepo,
		auth.ServiceConfig{SessionMaxAge: cfg.SessionMaxAge},
	)
	userService := user.NewService(userRepo, sessionRepo)

	digestService, err := newDigestService(cfg, userRepo, digestLogRepo, collector)
	if err != nil {
		return err
	}

	// 5. ルーターの構築
	rateLimiter := middleware.NewRateLimiter(
		middleware.NewRateLimiterConfig(cfg.RateLimitGeneral, cfg.RateLimitDigest),
	)
	defer rateLimiter.Stop()

	router := handler.NewRouter(handler.RouterDeps{
		AuthHandler: handler.NewAuthHandler(authService, handler.AuthHandlerConfig{
			FrontendURL:   cfg.FrontendURL,
			CookieDomain:  cfg.CookieDomain,
			CookieSecure:  cfg.CookieSecure,
			SessionMaxAge: cfg.SessionMaxAge,
		}),
		UserHandler:   handler.NewUserHandler(userService),
		DigestHandler: handler.NewDigestHandler(userService, digestService, digestLogRepo, slog.Default()),

		SessionFinder:     sessionRepo,
		RateLimiter:       rateLimiter,
		MetricsHandler:    metrics.Handler(registry),
		Logger:            slog.Default(),
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
	})

	// 6. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// DB接続を開き、日次ダイジェストスケジューラとクリーンアップジョブを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	// 1. DB接続
	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	slog.Info("database connection established (worker)")

	// 2. リポジトリの初期化
	userRepo := repository.NewPostgresUserRepo(db)
	sessionRepo := repository.NewPostgresSessionRepo(db)
	digestLogRepo := repository.NewPostgresDigestLogRepo(db)

	// 3. ダイジェストパイプラインの初期化
	collector := metrics.NewCollector(prometheus.NewRegistry())
	digestService, err := newDigestService(cfg, userRepo, digestLogRepo, collector)
	if err != nil {
		return err
	}

	// 4. スケジューラとクリーンアップジョブの初期化
	scheduler := digestjob.NewScheduler(digestService, slog.Default(), cfg.DigestHour)

	cleanupJob := cleanup.NewCleanupJob(sessionRepo, digestLogRepo, slog.Default())
	if cfg.LogRetentionDays > 0 {
		cleanupJob.RetentionDays = cfg.LogRetentionDays
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stop
		slog.Info("shutting down worker...")
		cancel()
	}()

	slog.Info("worker starting",
		slog.Int("digest_hour", cfg.DigestHour),
		slog.Int("log_retention_days", cleanupJob.RetentionDays),
	)

	// クリーンアップジョブを日次でバックグラウンド実行
	go cleanupJob.Start(ctx, 24*time.Hour)

	// ダイジェストスケジューラをメインgoroutineで実行（ブロッキング）
	scheduler.Start(ctx)

	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
