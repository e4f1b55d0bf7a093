// Package dashboard はカタログ画面のオーケストレーションを提供する。
// 表示中の商品リスト、ローディング・通知状態、作成/編集モーダルの開閉を
// 所有し、すべての読み書きをInventoryClient経由で行う。
//
// 変更アクションの不変条件: 表示リストは常にリモートサービスから取得した
// スナップショットであり、変更後はローカルにパッチせず必ず全件を再取得する
// （updated_atやトランザクション後のquantityなどサーバー計算フィールドとの
// 乖離を避けるための、効率より正しさを取る方針）。
package dashboard

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hitoshi/sweetshop/internal/apiclient"
	"github.com/hitoshi/sweetshop/internal/metrics"
	"github.com/hitoshi/sweetshop/internal/model"
	"github.com/hitoshi/sweetshop/internal/security"
)

// NotificationKind は通知バナーの種別。
type NotificationKind string

const (
	// NotificationSuccess は成功通知。
	NotificationSuccess NotificationKind = "success"
	// NotificationError は失敗通知。
	NotificationError NotificationKind = "error"
)

// Notification は一時的な通知バナーを表す。
// 同時に表示されるのは常に1件で、新しい通知は既存の通知を即座に置き換え、
// 自動消去までの時間もリセットされる。
type Notification struct {
	Kind    NotificationKind
	Message string
}

// ModalMode はモーダルの状態を表す。
type ModalMode string

const (
	// ModalClosed はモーダルが閉じている状態。
	ModalClosed ModalMode = "closed"
	// ModalCreate は新規作成モーダルが開いている状態。
	ModalCreate ModalMode = "create"
	// ModalEdit は編集モーダルが開いている状態。
	ModalEdit ModalMode = "edit"
)

// Modal はモーダルの開閉状態と編集対象を表す。
type Modal struct {
	Mode    ModalMode
	Editing *model.Sweet // ModalEditのときのみ非nil
}

// Confirmer は削除前のユーザー確認を抽象化する。
// 確認が拒否された場合、削除呼び出しは一切行われず状態も変化しない。
type Confirmer interface {
	ConfirmDelete(sweet model.Sweet) bool
}

// ConfirmerFunc は関数をConfirmerとして使うためのアダプタ。
type ConfirmerFunc func(sweet model.Sweet) bool

// ConfirmDelete はConfirmerを実装する。
func (f ConfirmerFunc) ConfirmDelete(sweet model.Sweet) bool {
	return f(sweet)
}

// AdminChecker は特権操作のUIゲートに使う管理者判定の読み取り口。
// 値の正本はセッションストア（ひいては認証サービス）であり、
// このパッケージで判定を導出することはない。
type AdminChecker interface {
	IsAdmin() bool
}

// View はコントローラの読み取りスナップショット。
type View struct {
	Items        []model.Sweet
	IsLoading    bool
	Loaded       bool // 初回ロードが完了したか（空リストとローディング中の区別）
	Notification *Notification
	Modal        Modal
	IsAdmin      bool
}

// Config はコントローラの設定。
type Config struct {
	NotificationTTL time.Duration // 通知の自動消去までの時間

	// ProbeImageURLs を有効にすると、作成・更新時に画像URLへ実際に
	// アクセスして到達可能な画像であることまで確認する。静的検証だけで
	// 済ませたいテストや組み込み利用ではオフにする。
	ProbeImageURLs bool
}

// DefaultConfig はデフォルト設定（通知3秒表示）を返す。
func DefaultConfig() Config {
	return Config{NotificationTTL: 3 * time.Second}
}

// Controller はダッシュボードの状態機械。
// ネットワーク呼び出し中はロックを保持しないため、複数のアクションが
// 重なった場合の表示リストは完了順の後勝ちになる。
type Controller struct {
	inventory  apiclient.InventoryClient
	session    AdminChecker
	sanitizer  security.ContentSanitizerService
	imageGuard security.ImageGuardService
	confirmer   Confirmer
	metrics     metrics.MetricsCollector
	logger      *slog.Logger
	ttl         time.Duration
	probeImages bool

	mu           sync.Mutex
	items        []model.Sweet
	loading      bool
	loaded       bool
	notification *Notification
	notifSeq     int // 通知の世代。古いタイマーによる消去を無効化する
	modal        Modal
}

// NewController はControllerを生成する。
// collectorがnilの場合はメトリクスを記録しない。
func NewController(
	inventory apiclient.InventoryClient,
	session AdminChecker,
	sanitizer security.ContentSanitizerService,
	imageGuard security.ImageGuardService,
	confirmer Confirmer,
	collector metrics.MetricsCollector,
	logger *slog.Logger,
	cfg Config,
) *Controller {
	if collector == nil {
		collector = metrics.NopCollector{}
	}
	return &Controller{
		inventory:   inventory,
		session:     session,
		sanitizer:   sanitizer,
		imageGuard:  imageGuard,
		confirmer:   confirmer,
		metrics:     collector,
		logger:      logger,
		ttl:         cfg.NotificationTTL,
		probeImages: cfg.ProbeImageURLs,
		loading:     true,
		modal:       Modal{Mode: ModalClosed},
	}
}

// Load は商品リストの初回取得を行う。
// 失敗時は既存リストに触れず、エラー通知のみを表示する。
func (c *Controller) Load(ctx context.Context) {
	c.mu.Lock()
	c.loading = true
	c.mu.Unlock()

	sweets, err := c.inventory.List(ctx)

	c.mu.Lock()
	c.loading = false
	c.mu.Unlock()

	if err != nil {
		c.logger.Warn("initial load failed", slog.String("error", err.Error()))
		c.notify(NotificationError, "Failed to load sweets")
		return
	}

	c.setItems(sweets)
}

// Search は絞り込み条件で表示リストを丸ごと置き換える。
// 前回のリストとのマージや絞り込みの重ね掛けは行わず、毎回全く新しい
// クエリとして実行する。条件なしは全件取得と等価。
func (c *Controller) Search(ctx context.Context, params model.SearchParams) {
	var (
		sweets []model.Sweet
		err    error
	)
	if params.IsZero() {
		sweets, err = c.inventory.List(ctx)
	} else {
		sweets, err = c.inventory.Search(ctx, params)
	}

	if err != nil {
		c.logger.Warn("search failed", slog.String("error", err.Error()))
		c.notify(NotificationError, "Search failed")
		return
	}

	c.setItems(sweets)
}

// CreateSweet は商品を新規登録する。
// 成功時は成功通知→リスト再取得→モーダルを閉じる。
// 失敗時はエラー通知を表示しつつエラーを返し、呼び出し元のフォームが
// 編集状態を保てるようにする。
func (c *Controller) CreateSweet(ctx context.Context, fields model.SweetFields) error {
	if err := c.validateFields(fields); err != nil {
		c.metrics.RecordMutation("create", false)
		c.notify(NotificationError, model.UserMessage(err, "Operation failed"))
		return err
	}
	if err := c.verifyImageURL(ctx, fields.ImageURL); err != nil {
		c.metrics.RecordMutation("create", false)
		c.notify(NotificationError, model.UserMessage(err, "Operation failed"))
		return err
	}

	if _, err := c.inventory.Create(ctx, fields); err != nil {
		c.metrics.RecordMutation("create", false)
		c.notify(NotificationError, model.UserMessage(err, "Operation failed"))
		return err
	}

	c.metrics.RecordMutation("create", true)
	c.notify(NotificationSuccess, "Sweet created successfully!")
	c.refresh(ctx)
	c.CloseModal()
	return nil
}

// UpdateSweet は既存商品を更新する。失敗時の契約はCreateSweetと同じ。
func (c *Controller) UpdateSweet(ctx context.Context, id string, fields model.SweetFields) error {
	if err := c.validateFields(fields); err != nil {
		c.metrics.RecordMutation("update", false)
		c.notify(NotificationError, model.UserMessage(err, "Operation failed"))
		return err
	}
	if err := c.verifyImageURL(ctx, fields.ImageURL); err != nil {
		c.metrics.RecordMutation("update", false)
		c.notify(NotificationError, model.UserMessage(err, "Operation failed"))
		return err
	}

	if _, err := c.inventory.Update(ctx, id, fields); err != nil {
		c.metrics.RecordMutation("update", false)
		c.notify(NotificationError, model.UserMessage(err, "Operation failed"))
		return err
	}

	c.metrics.RecordMutation("update", true)
	c.notify(NotificationSuccess, "Sweet updated successfully!")
	c.refresh(ctx)
	c.CloseModal()
	return nil
}

// DeleteSweet は確認を経て商品を削除する。
// 確認が拒否された場合はInventory Clientを一切呼ばず、状態も変化しない。
func (c *Controller) DeleteSweet(ctx context.Context, id string) {
	if !c.confirmer.ConfirmDelete(c.findItem(id)) {
		return
	}

	if err := c.inventory.Delete(ctx, id); err != nil {
		c.metrics.RecordMutation("delete", false)
		c.notify(NotificationError, model.UserMessage(err, "Delete failed"))
		return
	}

	c.metrics.RecordMutation("delete", true)
	c.notify(NotificationSuccess, "Sweet deleted successfully!")
	c.refresh(ctx)
}

// Purchase は購入トランザクションを記録する。
// 在庫不足などの失敗はエラー通知になり、リストは変化しない。
func (c *Controller) Purchase(ctx context.Context, id string, quantity int) {
	if err := c.inventory.Purchase(ctx, id, quantity); err != nil {
		c.metrics.RecordMutation("purchase", false)
		c.notify(NotificationError, model.UserMessage(err, "Purchase failed"))
		return
	}

	c.metrics.RecordMutation("purchase", true)
	c.notify(NotificationSuccess, "Purchase successful!")
	c.refresh(ctx)
}

// Restock は補充トランザクションを記録する。
func (c *Controller) Restock(ctx context.Context, id string, quantity int) {
	if err := c.inventory.Restock(ctx, id, quantity); err != nil {
		c.metrics.RecordMutation("restock", false)
		c.notify(NotificationError, model.UserMessage(err, "Restock failed"))
		return
	}

	c.metrics.RecordMutation("restock", true)
	c.notify(NotificationSuccess, "Restock successful!")
	c.refresh(ctx)
}

// OpenCreateModal は新規作成モーダルを開く。管理者以外には開かない。
func (c *Controller) OpenCreateModal() bool {
	if !c.session.IsAdmin() {
		return false
	}

	c.mu.Lock()
	c.modal = Modal{Mode: ModalCreate}
	c.mu.Unlock()
	return true
}

// OpenEditModal は編集モーダルを対象商品入りで開く。管理者以外には開かない。
func (c *Controller) OpenEditModal(sweet model.Sweet) bool {
	if !c.session.IsAdmin() {
		return false
	}

	c.mu.Lock()
	c.modal = Modal{Mode: ModalEdit, Editing: &sweet}
	c.mu.Unlock()
	return true
}

// CloseModal はモーダルを閉じ、編集対象をクリアする。
func (c *Controller) CloseModal() {
	c.mu.Lock()
	c.modal = Modal{Mode: ModalClosed}
	c.mu.Unlock()
}

// Snapshot は現在の表示状態のコピーを返す。
func (c *Controller) Snapshot() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	items := make([]model.Sweet, len(c.items))
	copy(items, c.items)

	var notif *Notification
	if c.notification != nil {
		copied := *c.notification
		notif = &copied
	}

	modal := c.modal
	if c.modal.Editing != nil {
		copied := *c.modal.Editing
		modal.Editing = &copied
	}

	return View{
		Items:        items,
		IsLoading:    c.loading,
		Loaded:       c.loaded,
		Notification: notif,
		Modal:        modal,
		IsAdmin:      c.session.IsAdmin(),
	}
}

// refresh は変更後のリスト再取得を行う。
// 再取得に失敗した場合は既存リストを残し、エラー通知が直前の成功通知を
// 置き換える（表示リストの鮮度が保証できないため）。
func (c *Controller) refresh(ctx context.Context) {
	c.metrics.RecordListRefresh()

	sweets, err := c.inventory.List(ctx)
	if err != nil {
		c.logger.Warn("refresh after mutation failed", slog.String("error", err.Error()))
		c.notify(NotificationError, "Failed to load sweets")
		return
	}

	c.setItems(sweets)
}

// setItems は取得済みスナップショットで表示リストを置き換える。
// 説明文はサニタイズしてから公開する。
func (c *Controller) setItems(sweets []model.Sweet) {
	for i := range sweets {
		sweets[i].Description = c.sanitizer.Sanitize(sweets[i].Description)
	}

	c.mu.Lock()
	c.items = sweets
	c.loaded = true
	c.mu.Unlock()
}

// notify は通知を表示し、TTL経過後の自動消去タイマーを仕掛ける。
// 新しい通知は世代カウンタを進めるため、置き換えられた通知の古い
// タイマーが発火しても何も起きない。
func (c *Controller) notify(kind NotificationKind, message string) {
	c.metrics.RecordNotification(string(kind))

	c.mu.Lock()
	c.notifSeq++
	seq := c.notifSeq
	c.notification = &Notification{Kind: kind, Message: message}
	c.mu.Unlock()

	time.AfterFunc(c.ttl, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.notifSeq == seq {
			c.notification = nil
		}
	})
}

// findItem は表示中リストからidで商品を探す。
// 見つからない場合はIDだけ入った空の商品を返す（確認プロンプト用）。
func (c *Controller) findItem(id string) model.Sweet {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, s := range c.items {
		if s.ID == id {
			return s
		}
	}
	return model.Sweet{ID: id}
}
