package app

// Command はアプリケーションの起動モードを表す。
type Command string

const (
	// CommandStatus はセッション解決と在庫取得を1回実行して終了することを示す。
	// デプロイ先APIとの疎通確認に使う。
	CommandStatus Command = "status"
	// CommandStub はインメモリAPIスタブサーバーを起動することを示す。
	// ローカル開発と結合テスト用。
	CommandStub Command = "stub"
	// CommandHealthcheck はスタブサーバーのヘルスチェックを実行することを示す。
	// distroless環境でのDockerヘルスチェック用。
	CommandHealthcheck Command = "healthcheck"
)

// ParseCommand はコマンドライン引数からサブコマンドを解析する。
// 引数が空またはサポート外のコマンドの場合はCommandStatusを返す。
func ParseCommand(args []string) Command {
	if len(args) == 0 {
		return CommandStatus
	}

	switch args[0] {
	case "stub":
		return CommandStub
	case "status":
		return CommandStatus
	case "healthcheck":
		return CommandHealthcheck
	default:
		return CommandStatus
	}
}
