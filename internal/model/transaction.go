// Package model はドメインモデルを定義する。
package model

import "time"

// TransactionType は在庫トランザクションの種別を表す。
type TransactionType string

const (
	// TransactionPurchase は購入による在庫減少を示す。
	TransactionPurchase TransactionType = "purchase"
	// TransactionRestock は補充による在庫増加を示す。
	TransactionRestock TransactionType = "restock"
)

// Transaction は購入・補充の監査レコードを表す。
// 追記専用で、クライアントは purchase/restock 呼び出しの副作用として
// 生成をトリガーするだけで読み戻さない。
type Transaction struct {
	ID        string          `json:"id"`
	SweetID   string          `json:"sweet_id"`
	UserID    string          `json:"user_id"`
	Type      TransactionType `json:"transaction_type"`
	Quantity  int             `json:"quantity"`
	CreatedAt time.Time       `json:"created_at"`
}
