// Package model はドメインモデルを定義する。
package model

import "time"

// Sweet はカタログ上の商品（スイーツ）を表す。
// IDはリモートサービスが採番し、クライアントからは不変として扱う。
// Quantityは在庫数を表す非負整数で、購入・補充トランザクションまたは
// 管理者編集を通じてのみ変化する。クライアント側で勝手に増減させてはならない。
type Sweet struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Category    string    `json:"category"`
	Price       float64   `json:"price"`
	Quantity    int       `json:"quantity"`
	Description string    `json:"description"`
	ImageURL    string    `json:"image_url"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// SweetFields は作成・更新リクエストでクライアントが指定できるフィールド。
// ID・created_at・updated_atはサーバー管理のため含まない。
type SweetFields struct {
	Name        string  `json:"name"`
	Category    string  `json:"category"`
	Price       float64 `json:"price"`
	Quantity    int     `json:"quantity"`
	Description string  `json:"description"`
	ImageURL    string  `json:"image_url"`
}

// SearchParams は商品検索の絞り込み条件を表す。
// すべてのフィールドは任意で、指定されたものだけがAND条件で適用される。
type SearchParams struct {
	Name     string
	Category string
	MinPrice *float64
	MaxPrice *float64
}

// IsZero は絞り込み条件が1つも指定されていないかを返す。
// 条件なしの検索は全件取得と等価として扱われる。
func (p SearchParams) IsZero() bool {
	return p.Name == "" && p.Category == "" && p.MinPrice == nil && p.MaxPrice == nil
}
