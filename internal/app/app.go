package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/victor/storefront/internal/api"
	"github.com/victor/storefront/internal/config"
	"github.com/victor/storefront/internal/handler"
	"github.com/victor/storefront/internal/logger"
	"github.com/victor/storefront/internal/metrics"
	"github.com/victor/storefront/internal/normalize"
	"github.com/victor/storefront/internal/security"
	"github.com/victor/storefront/internal/session"
	"github.com/victor/storefront/internal/store"
	"github.com/victor/storefront/internal/worker/autoscroll"
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
		slog.String("api_base_url", cfg.APIBaseURL),
	)

	return runServe(cfg)
}

// runServe はゲートウェイサーバーモードで起動する。
// バックエンドAPIクライアント、コレクションストア、セッションを
// ワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. バックエンドのベースURL検証と送信クライアントの構築
	if err := security.ValidateBaseURL(cfg.APIBaseURL); err != nil {
		return fmt.Errorf("invalid backend base URL: %w", err)
	}
	httpClient := security.NewHTTPClient(cfg.APIBaseURL, cfg.FetchTimeout)

	// 2. セッションの初期化（保存済みトークンの復元を含む）
	tokenStore, err := session.NewFileTokenStore(cfg.TokenPath)
	if err != nil {
		return fmt.Errorf("failed to initialize token store: %w", err)
	}
	sess := session.NewService(
		httpClient, slog.Default(),
		cfg.APIBaseURL+"/api/v1/auth/login", tokenStore,
	)

	// 3. メトリクスと送信レートリミッタ
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// req/min -> req/sec に変換。バーストは1分相当まで許容する
	limiter := rate.NewLimiter(
		rate.Limit(float64(cfg.OutboundRatePerMin)/60.0),
		cfg.OutboundRatePerMin,
	)

	// 4. レスポンス正規化（サニタイズと画像URL解決）
	sanitizer := security.NewContentSanitizer()
	normalizer := normalize.NewNormalizer(cfg.APIBaseURL, sanitizer)

	// 5. リソース別APIクライアント
	appsClient := api.NewClient(
		httpClient, slog.Default(), sess, limiter, collector, normalizer,
		api.ClientConfig{
			BaseURL:      cfg.APIBaseURL,
			ResourcePath: "/api/v1/applications",
			Resource:     "applications",
			EnvelopeKeys: []string{"applications"},
		},
	)
	blogsClient := api.NewClient(
		httpClient, slog.Default(), sess, limiter, collector, normalizer,
		api.ClientConfig{
			BaseURL:      cfg.APIBaseURL,
			ResourcePath: "/api/v1/blog",
			Resource:     "blogs",
			EnvelopeKeys: []string{"ads", "blogs"},
		},
	)

	// 6. コレクションストアとコメントスレッド
	appsStore := store.NewListSyncStore(
		appsClient, slog.Default(), collector, "applications",
		cfg.PageSize, cfg.GalleryPreview,
	)
	blogsStore := store.NewListSyncStore(
		blogsClient, slog.Default(), collector, "blogs",
		cfg.PageSize, cfg.GalleryPreview,
	)
	threads := store.NewCommentThreads(blogsStore, slog.Default())

	// バックグラウンドタスク用のコンテキスト。シャットダウンで全て止める
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 7. ギャラリー自動送りタイマー（ブログギャラリーのみ）
	scroller := autoscroll.NewScroller(
		blogsStore, slog.Default(),
		cfg.AutoScrollInterval, cfg.AutoScrollThreshold, cfg.AutoScrollMax,
	)
	go scroller.Start(ctx)

	// 8. ハンドラーとルーターの構築
	appsHandler := handler.NewCollectionHandler(
		ctx, appsStore, store.NewDebouncer(cfg.SearchDebounce), nil, slog.Default(),
	)
	blogsHandler := handler.NewCollectionHandler(
		ctx, blogsStore, store.NewDebouncer(cfg.SearchDebounce), scroller, slog.Default(),
	)
	defer appsHandler.Teardown()
	defer blogsHandler.Teardown()

	deps := &handler.RouterDeps{
		Logger:            slog.Default(),
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,

		Applications: appsHandler,
		Blogs:        blogsHandler,
		Comments:     handler.NewCommentHandler(threads, blogsStore),
		Auth:         handler.NewAuthHandler(sess),

		Gatherer: registry,
	}
	router := handler.NewRouter(deps)

	// 9. 初回ロード。失敗してもストアが空コレクションへフォールバックするため
	// サーバーの起動自体は止めない
	go func() {
		if err := appsStore.Refresh(ctx, ""); err != nil {
			slog.Error("initial applications load failed", slog.String("error", err.Error()))
		}
	}()
	go func() {
		if err := blogsStore.Refresh(ctx, ""); err != nil {
			slog.Error("initial blogs load failed", slog.String("error", err.Error()))
		}
	}()

	// 10. HTTPサーバーの起動
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
		slog.Info("gateway server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down gateway server...")

	// 先にバックグラウンドタスクを止める（遅延リフレッシュ・自動送り）
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("gateway server stopped gracefully")
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
