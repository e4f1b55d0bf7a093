// Package apiclient はリモートのスイーツショップAPIに対するクライアント境界を提供する。
// Auth GatewayとInventory Clientの2つの契約と、そのHTTP実装を含む。
package apiclient

import (
	"context"

	"github.com/hitoshi/sweetshop/internal/model"
)

// AuthGateway はリモート認証サービスに対する契約。
// セッションストアが唯一の利用者となる。
// どの操作もこの層で自動リトライしてはならない（リトライはトランスポートの責務）。
type AuthGateway interface {
	// Login は資格情報を検証し、成功時は認証済みIdentityを返す。
	// 失敗時はInvalidCredentialsエラーを返し、保存済み資格情報には触れない。
	Login(ctx context.Context, email, password string) (*model.Identity, error)

	// Register は新規ユーザーを作成し、成功時は認証済みIdentityを返す。
	// 失敗時はRegistrationErrorを返す。
	Register(ctx context.Context, email, password, fullName string) (*model.Identity, error)

	// Logout はリモートの資格情報を無効化し、ローカルの保存分を破棄する。
	// リモート呼び出しの成否にかかわらずローカル資格情報は必ず消える。
	Logout(ctx context.Context) error

	// ResolveCurrentSession は保存済み資格情報から既存セッションの復元を試みる。
	// セッションが存在しない・期限切れの場合は (nil, nil) を返す。
	// アクセストークンが拒否された場合は1回だけリフレッシュを試みる。
	ResolveCurrentSession(ctx context.Context) (*model.Identity, error)
}

// InventoryClient はリモートのカタログサービスに対する契約。
// Create/Update/Deleteは特権操作だが、この層では管理者判定を行わない。
// 呼び出し側がisAdminを確認済みであることを信頼し、権限の強制は
// リモートサービスが行う。
type InventoryClient interface {
	// List は全商品のスナップショットを返す。
	List(ctx context.Context) ([]model.Sweet, error)

	// Search は絞り込み条件に合致する商品を返す。
	// 条件はAND結合で、未指定のフィールドは制約にならない。
	Search(ctx context.Context, params model.SearchParams) ([]model.Sweet, error)

	// Create は新しい商品を登録する。
	Create(ctx context.Context, fields model.SweetFields) (*model.Sweet, error)

	// Update は既存商品を更新する。
	Update(ctx context.Context, id string, fields model.SweetFields) (*model.Sweet, error)

	// Delete は商品を削除する。
	Delete(ctx context.Context, id string) error

	// Purchase は購入トランザクションを記録し在庫を減らす。
	// 在庫を超える数量はInsufficientStockエラーになる。
	Purchase(ctx context.Context, id string, quantity int) error

	// Restock は補充トランザクションを記録し在庫を増やす。
	Restock(ctx context.Context, id string, quantity int) error
}
