// Package model はドメインモデルを定義する。
package model

// Identity は認証済みユーザーを表す。
// 正本はリモートの認証サービスであり、クライアントはセッションストアに
// キャッシュするだけで内容を書き換えない。
// IsAdminは特権操作のUIを開くケーパビリティフラグで、認証レスポンスの値を
// そのまま保持する。メールアドレスのパターン等からクライアント側で
// 導出してはならない。
type Identity struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	IsAdmin  bool   `json:"is_admin"`
}

// Credentials はゲートウェイが保持するアクセス/リフレッシュトークンの組。
// 永続化の仕組みはAuth Gatewayの内部事情であり、他のコンポーネントは
// この値に触れない。
type Credentials struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}
