package app

import "github.com/hitoshi/sweetshop/internal/session"

// Screen はUIレイヤが描画すべき画面を表す。
type Screen string

const (
	// ScreenLoading はセッション解決中の過渡画面。
	// 認証済み・匿名どちらのUIもまだ描画してはならない。
	ScreenLoading Screen = "loading"
	// ScreenLogin はログインフォーム画面。
	ScreenLogin Screen = "login"
	// ScreenRegister は新規登録フォーム画面。
	ScreenRegister Screen = "register"
	// ScreenDashboard は在庫ダッシュボード画面。
	ScreenDashboard Screen = "dashboard"
)

// CurrentScreen はセッション状態から描画すべき画面を決定する。
// showRegisterは匿名時にログインと登録のどちらのフォームを出すかの
// UIローカルなトグルで、認証状態には影響しない。
func CurrentScreen(snap session.Snapshot, showRegister bool) Screen {
	if snap.IsLoading {
		return ScreenLoading
	}
	if snap.CurrentUser == nil {
		if showRegister {
			return ScreenRegister
		}
		return ScreenLogin
	}
	return ScreenDashboard
}
