// Package session はクライアント側のセッション状態機械を提供する。
// 状態は unresolved（初期、loading=true）→ authenticated(Identity) | anonymous の
// 3状態で、起動時の解決が完了すればunresolvedに戻ることはない。
package session

import (
	"context"
	"log/slog"
	"sync"

	"github.com/hitoshi/sweetshop/internal/apiclient"
	"github.com/hitoshi/sweetshop/internal/model"
)

// Snapshot はセッションストアの読み取りサーフェス。
// IsLoading=true の間は認証済み・匿名どちらのUIも描画してはならない
// （第3の過渡状態として扱う）。
type Snapshot struct {
	CurrentUser *model.Identity
	IsLoading   bool
	IsAdmin     bool
}

// Store は現在の認証済みIdentity（または無し）とローディングフラグを保持する。
// IsAdminはゲートウェイが最後に返した値をそのまま保持するだけで、
// クライアント側で計算・昇格することは決してない。
type Store struct {
	mu      sync.RWMutex
	gateway apiclient.AuthGateway
	logger  *slog.Logger

	current *model.Identity
	loading bool
}

// NewStore はStoreを生成する。起動時解決が完了するまでloading状態になる。
func NewStore(gateway apiclient.AuthGateway, logger *slog.Logger) *Store {
	return &Store{
		gateway: gateway,
		logger:  logger,
		loading: true,
	}
}

// Init は保存済み資格情報から既存セッションの復元を試みる。
// 解決の成否にかかわらず必ずloadingを終了させる。
// 復元に失敗した場合は匿名として扱う。
func (s *Store) Init(ctx context.Context) {
	identity, err := s.gateway.ResolveCurrentSession(ctx)
	if err != nil {
		s.logger.Warn("session resolution failed", slog.String("error", err.Error()))
		identity = nil
	}

	s.mu.Lock()
	s.current = identity
	s.loading = false
	s.mu.Unlock()

	if identity != nil {
		s.logger.Info("session restored",
			slog.String("user_id", identity.ID),
			slog.Bool("is_admin", identity.IsAdmin),
		)
	} else {
		s.logger.Info("no existing session")
	}
}

// Login は資格情報でログインし、成功時にauthenticatedへ遷移する。
// 失敗時は状態を変更せず、エラーを呼び出し元（ログインフォーム）に返す。
func (s *Store) Login(ctx context.Context, email, password string) error {
	identity, err := s.gateway.Login(ctx, email, password)
	if err != nil {
		return err
	}

	s.setAuthenticated(identity)
	return nil
}

// Register は新規ユーザーを作成し、成功時にauthenticatedへ遷移する。
// 失敗時は状態を変更せず、エラーを呼び出し元（登録フォーム）に返す。
func (s *Store) Register(ctx context.Context, email, password, fullName string) error {
	identity, err := s.gateway.Register(ctx, email, password, fullName)
	if err != nil {
		return err
	}

	s.setAuthenticated(identity)
	return nil
}

// Logout は資格情報を無効化し、無条件にanonymousへ遷移する。
// ログアウトはベストエフォートで、リモート呼び出しの失敗で
// authenticatedのまま固まることがあってはならない。
func (s *Store) Logout(ctx context.Context) {
	if err := s.gateway.Logout(ctx); err != nil {
		// 失敗は飲み込む。遷移は必ず行う。
		s.logger.Warn("logout call failed", slog.String("error", err.Error()))
	}

	s.mu.Lock()
	s.current = nil
	s.loading = false
	s.mu.Unlock()

	s.logger.Info("user logged out")
}

// Snapshot は現在の状態のコピーを返す。
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var user *model.Identity
	if s.current != nil {
		copied := *s.current
		user = &copied
	}

	return Snapshot{
		CurrentUser: user,
		IsLoading:   s.loading,
		IsAdmin:     s.current != nil && s.current.IsAdmin,
	}
}

// IsAdmin はゲートウェイが最後に返したis_adminを返す。匿名セッションでは常にfalse。
func (s *Store) IsAdmin() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current != nil && s.current.IsAdmin
}

func (s *Store) setAuthenticated(identity *model.Identity) {
	s.mu.Lock()
	s.current = identity
	s.loading = false
	s.mu.Unlock()
}
