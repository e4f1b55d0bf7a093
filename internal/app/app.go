// Package app はアプリケーションの初期化・依存関係のワイヤリング・起動を担う。
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

	"github.com/hitoshi/sweetshop/internal/apiclient"
	"github.com/hitoshi/sweetshop/internal/config"
	"github.com/hitoshi/sweetshop/internal/dashboard"
	"github.com/hitoshi/sweetshop/internal/logger"
	"github.com/hitoshi/sweetshop/internal/metrics"
	"github.com/hitoshi/sweetshop/internal/model"
	"github.com/hitoshi/sweetshop/internal/security"
	"github.com/hitoshi/sweetshop/internal/session"
	"github.com/hitoshi/sweetshop/internal/stub"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w, slog.LevelInfo)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. 設定されたログレベルで再セットアップ
	logger.SetupDefault(w, logger.ParseLevel(cfg.LogLevel))

	return cfg, nil
}

// App はクライアントエンジン全体の依存関係を束ねる。
// UIレイヤはSession()とDashboard()を通じて状態を読み、操作を呼び出す。
type App struct {
	cfg       *config.Config
	logger    *slog.Logger
	registry  *prometheus.Registry
	tokens    *apiclient.TokenStore
	sessions  *session.Store
	dashboard *dashboard.Controller
}

// New は全依存関係をワイヤリングしたAppを生成する。
// confirmerは削除操作の確認プロンプト。UIレイヤが実装を差し込む。
func New(cfg *config.Config, confirmer dashboard.Confirmer) *App {
	log := slog.Default()

	// 1. メトリクス
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 2. 資格情報ストアと共通トランスポート
	tokens := apiclient.NewTokenStore(cfg.CredentialsPath)
	httpClient := apiclient.NewHTTPClient(apiclient.TransportConfig{
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
		RequestTimeout: cfg.RequestTimeout,
	}, tokens, collector)

	// 3. APIクライアント
	authGateway := apiclient.NewHTTPAuthGateway(httpClient, cfg.APIBaseURL, tokens, log)
	inventory := apiclient.NewHTTPInventoryClient(httpClient, cfg.APIBaseURL, log)

	// 4. セキュリティサービス
	sanitizer := security.NewContentSanitizer()
	imageGuard := security.NewImageGuard(cfg.RequestTimeout)

	// 5. 状態機械
	sessions := session.NewStore(authGateway, log)
	controller := dashboard.NewController(
		inventory, sessions, sanitizer, imageGuard, confirmer, collector, log,
		dashboard.Config{
			NotificationTTL: cfg.NotificationTTL,
			ProbeImageURLs:  true,
		},
	)

	return &App{
		cfg:       cfg,
		logger:    log,
		registry:  registry,
		tokens:    tokens,
		sessions:  sessions,
		dashboard: controller,
	}
}

// Session はセッションストアを返す。
func (a *App) Session() *session.Store {
	return a.sessions
}

// Dashboard はダッシュボードコントローラを返す。
func (a *App) Dashboard() *dashboard.Controller {
	return a.dashboard
}

// Registry はメトリクスレジストリを返す（スクレイプ用）。
func (a *App) Registry() *prometheus.Registry {
	return a.registry
}

// Start は起動時のセッション解決を行い、認証済みであれば
// ダッシュボードの初回ロードまで実行する。
func (a *App) Start(ctx context.Context) {
	a.sessions.Init(ctx)

	if snap := a.sessions.Snapshot(); snap.CurrentUser != nil {
		a.logger.Info("session restored",
			slog.String("user_id", snap.CurrentUser.ID),
			slog.Bool("is_admin", snap.IsAdmin),
		)
		a.dashboard.Load(ctx)
	}
}

// Teardown はアプリケーション終了時の後始末を行う。
// 認証済みであればログアウトし、ローカルの資格情報を破棄する。
func (a *App) Teardown(ctx context.Context) {
	if snap := a.sessions.Snapshot(); snap.CurrentUser != nil {
		a.sessions.Logout(ctx)
	}
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("STUB_PORT")
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
		slog.String("base_url", cfg.APIBaseURL),
	)

	switch cmd {
	case CommandStub:
		return runStub(cfg)
	case CommandStatus:
		return runStatus(cfg)
	default:
		return runStatus(cfg)
	}
}

// runStatus はセッション解決と在庫取得を1回実行して結果をログに出す。
// デプロイ先APIとの疎通確認用サブコマンド。
func runStatus(cfg *config.Config) error {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout*3)
	defer cancel()

	// 確認プロンプトなしの文脈では破壊的操作は常に拒否する
	a := New(cfg, dashboard.ConfirmerFunc(func(model.Sweet) bool { return false }))
	a.Start(ctx)

	snap := a.sessions.Snapshot()
	if snap.CurrentUser == nil {
		slog.Info("no active session")
		return nil
	}

	view := a.dashboard.Snapshot()
	slog.Info("status",
		slog.String("user", snap.CurrentUser.Email),
		slog.Bool("is_admin", snap.IsAdmin),
		slog.Int("sweets", len(view.Items)),
		slog.Bool("loaded", view.Loaded),
	)
	return nil
}

// runStub はインメモリAPIスタブサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runStub(cfg *config.Config) error {
	store := stub.NewStore()
	seedStub(store)

	server := &http.Server{
		Addr:         ":" + cfg.StubPort,
		Handler:      stub.NewServer(store, slog.Default()).Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("stub server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down stub server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("stub server stopped gracefully")
	return nil
}

// seedStub はスタブ起動時の初期データを投入する。
// 登録APIで作れるのは一般ユーザーのみのため、管理者専用ルート
// （作成・更新・削除・補充）を試すには起動時シードの管理者が必要になる。
func seedStub(store *stub.Store) {
	email := os.Getenv("STUB_ADMIN_EMAIL")
	if email == "" {
		email = "admin@sweetshop.local"
	}
	password := os.Getenv("STUB_ADMIN_PASSWORD")
	if password == "" {
		password = "admin"
	}
	store.SeedAccount(email, password, "Shop Admin", true)

	store.SeedSweet(model.SweetFields{
		Name:        "Daifuku",
		Category:    "wagashi",
		Price:       2.5,
		Quantity:    24,
		Description: "<p>Soft rice cake with sweet bean filling.</p>",
	})
	store.SeedSweet(model.SweetFields{
		Name:     "Eclair",
		Category: "pastry",
		Price:    4.0,
		Quantity: 12,
	})
	store.SeedSweet(model.SweetFields{
		Name:     "Dark Truffle",
		Category: "chocolate",
		Price:    5.5,
		Quantity: 8,
	})

	slog.Info("stub seeded",
		slog.String("admin_email", email),
		slog.Int("sweets", 3),
	)
}

// runHealthcheck はヘルスチェックを実行する。
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
