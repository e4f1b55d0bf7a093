package dashboard

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/hitoshi/sweetshop/internal/model"
	"github.com/hitoshi/sweetshop/internal/security"
)

// --- モック ---

type mockInventory struct {
	calls []string

	listFn     func(ctx context.Context) ([]model.Sweet, error)
	searchFn   func(ctx context.Context, params model.SearchParams) ([]model.Sweet, error)
	createFn   func(ctx context.Context, fields model.SweetFields) (*model.Sweet, error)
	updateFn   func(ctx context.Context, id string, fields model.SweetFields) (*model.Sweet, error)
	deleteFn   func(ctx context.Context, id string) error
	purchaseFn func(ctx context.Context, id string, quantity int) error
	restockFn  func(ctx context.Context, id string, quantity int) error
}

func (m *mockInventory) List(ctx context.Context) ([]model.Sweet, error) {
	m.calls = append(m.calls, "list")
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}

func (m *mockInventory) Search(ctx context.Context, params model.SearchParams) ([]model.Sweet, error) {
	m.calls = append(m.calls, "search")
	if m.searchFn != nil {
		return m.searchFn(ctx, params)
	}
	return nil, nil
}

func (m *mockInventory) Create(ctx context.Context, fields model.SweetFields) (*model.Sweet, error) {
	m.calls = append(m.calls, "create")
	if m.createFn != nil {
		return m.createFn(ctx, fields)
	}
	return &model.Sweet{ID: "new"}, nil
}

func (m *mockInventory) Update(ctx context.Context, id string, fields model.SweetFields) (*model.Sweet, error) {
	m.calls = append(m.calls, "update")
	if m.updateFn != nil {
		return m.updateFn(ctx, id, fields)
	}
	return &model.Sweet{ID: id}, nil
}

func (m *mockInventory) Delete(ctx context.Context, id string) error {
	m.calls = append(m.calls, "delete")
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

func (m *mockInventory) Purchase(ctx context.Context, id string, quantity int) error {
	m.calls = append(m.calls, "purchase")
	if m.purchaseFn != nil {
		return m.purchaseFn(ctx, id, quantity)
	}
	return nil
}

func (m *mockInventory) Restock(ctx context.Context, id string, quantity int) error {
	m.calls = append(m.calls, "restock")
	if m.restockFn != nil {
		return m.restockFn(ctx, id, quantity)
	}
	return nil
}

type staticAdmin bool

func (a staticAdmin) IsAdmin() bool { return bool(a) }

type mockImageGuard struct {
	probed     []string
	validateFn func(rawURL string) error
	probeFn    func(ctx context.Context, rawURL string) error
}

func (m *mockImageGuard) ValidateURL(rawURL string) error {
	if m.validateFn != nil {
		return m.validateFn(rawURL)
	}
	return nil
}

func (m *mockImageGuard) Probe(ctx context.Context, rawURL string) error {
	m.probed = append(m.probed, rawURL)
	if m.probeFn != nil {
		return m.probeFn(ctx, rawURL)
	}
	return nil
}

func acceptAll(model.Sweet) bool { return true }
func declineAll(model.Sweet) bool { return false }

func testLogger() *slog.Logger {
	var buf bytes.Buffer
	return slog.New(slog.NewJSONHandler(&buf, nil))
}

func newTestController(inv *mockInventory, admin bool, confirm func(model.Sweet) bool, ttl time.Duration) *Controller {
	return NewController(
		inv,
		staticAdmin(admin),
		security.NewContentSanitizer(),
		security.NewImageGuard(time.Second),
		ConfirmerFunc(confirm),
		nil,
		testLogger(),
		Config{NotificationTTL: ttl},
	)
}

// newProbingController は画像URLの到達確認を有効にしたコントローラを返す。
func newProbingController(inv *mockInventory, guard *mockImageGuard) *Controller {
	return NewController(
		inv,
		staticAdmin(true),
		security.NewContentSanitizer(),
		guard,
		ConfirmerFunc(acceptAll),
		nil,
		testLogger(),
		Config{NotificationTTL: time.Minute, ProbeImageURLs: true},
	)
}

func sampleSweets() []model.Sweet {
	return []model.Sweet{
		{ID: "s-1", Name: "Ladoo", Category: "Indian", Price: 2.5, Quantity: 10},
		{ID: "s-2", Name: "Truffle", Category: "Chocolate", Price: 4, Quantity: 3},
	}
}

// --- テスト ---

func TestLoad_Success_SetsItems(t *testing.T) {
	inv := &mockInventory{
		listFn: func(ctx context.Context) ([]model.Sweet, error) {
			return sampleSweets(), nil
		},
	}
	c := newTestController(inv, false, acceptAll, time.Minute)

	c.Load(context.Background())

	view := c.Snapshot()
	if view.IsLoading {
		t.Error("loading should terminate after Load")
	}
	if !view.Loaded {
		t.Error("Loaded should be true after a successful Load")
	}
	if len(view.Items) != 2 {
		t.Fatalf("len(Items) = %d, want 2", len(view.Items))
	}
	if view.Items[0].Name != "Ladoo" {
		t.Errorf("Items[0].Name = %q, want Ladoo", view.Items[0].Name)
	}
}

func TestLoad_Failure_ShowsErrorNotification(t *testing.T) {
	inv := &mockInventory{
		listFn: func(ctx context.Context) ([]model.Sweet, error) {
			return nil, model.NewNetworkFailureError()
		},
	}
	c := newTestController(inv, false, acceptAll, time.Minute)

	c.Load(context.Background())

	view := c.Snapshot()
	if view.IsLoading {
		t.Error("loading should terminate even on failure")
	}
	if view.Notification == nil {
		t.Fatal("expected an error notification")
	}
	if view.Notification.Kind != NotificationError {
		t.Errorf("Notification.Kind = %q, want error", view.Notification.Kind)
	}
	if view.Notification.Message != "Failed to load sweets" {
		t.Errorf("Notification.Message = %q, want %q", view.Notification.Message, "Failed to load sweets")
	}
}

// 変更後の表示リストは常にフレッシュなlist()スナップショットと一致する。
func TestPurchase_Success_RefreshesListFromServer(t *testing.T) {
	before := sampleSweets()
	after := []model.Sweet{
		{ID: "s-1", Name: "Ladoo", Category: "Indian", Price: 2.5, Quantity: 5},
		{ID: "s-2", Name: "Truffle", Category: "Chocolate", Price: 4, Quantity: 3},
	}
	snapshot := before
	inv := &mockInventory{
		listFn: func(ctx context.Context) ([]model.Sweet, error) {
			out := make([]model.Sweet, len(snapshot))
			copy(out, snapshot)
			return out, nil
		},
		purchaseFn: func(ctx context.Context, id string, quantity int) error {
			snapshot = after
			return nil
		},
	}
	c := newTestController(inv, false, acceptAll, time.Minute)
	c.Load(context.Background())

	c.Purchase(context.Background(), "s-1", 5)

	view := c.Snapshot()
	if view.Items[0].Quantity != 5 {
		t.Errorf("Items[0].Quantity = %d, want server-computed 5", view.Items[0].Quantity)
	}
	if view.Notification == nil || view.Notification.Message != "Purchase successful!" {
		t.Errorf("Notification = %+v, want Purchase successful!", view.Notification)
	}

	// purchaseの後に必ずlistが走る
	want := []string{"list", "purchase", "list"}
	if len(inv.calls) != len(want) {
		t.Fatalf("calls = %v, want %v", inv.calls, want)
	}
	for i := range want {
		if inv.calls[i] != want[i] {
			t.Fatalf("calls = %v, want %v", inv.calls, want)
		}
	}
}

func TestPurchase_InsufficientStock_LeavesListUntouched(t *testing.T) {
	inv := &mockInventory{
		listFn: func(ctx context.Context) ([]model.Sweet, error) {
			return sampleSweets(), nil
		},
		purchaseFn: func(ctx context.Context, id string, quantity int) error {
			return model.NewInsufficientStockError(3)
		},
	}
	c := newTestController(inv, false, acceptAll, time.Minute)
	c.Load(context.Background())

	c.Purchase(context.Background(), "s-2", 5)

	view := c.Snapshot()
	if view.Notification == nil || view.Notification.Kind != NotificationError {
		t.Fatalf("Notification = %+v, want error", view.Notification)
	}
	if view.Notification.Message != "Insufficient stock: only 3 left" {
		t.Errorf("Notification.Message = %q, want the failure's message", view.Notification.Message)
	}
	if view.Items[1].Quantity != 3 {
		t.Errorf("Items[1].Quantity = %d, want unchanged 3", view.Items[1].Quantity)
	}

	// 失敗したアクションの後に再取得は走らない
	for _, call := range inv.calls[1:] {
		if call == "list" {
			t.Errorf("no refresh should follow a failed purchase, calls = %v", inv.calls)
		}
	}
}

func TestDeleteSweet_Declined_MakesNoCallsAndNoStateChange(t *testing.T) {
	inv := &mockInventory{
		listFn: func(ctx context.Context) ([]model.Sweet, error) {
			return sampleSweets(), nil
		},
	}
	c := newTestController(inv, true, declineAll, time.Minute)
	c.Load(context.Background())
	callsBefore := len(inv.calls)
	viewBefore := c.Snapshot()

	c.DeleteSweet(context.Background(), "s-1")

	if len(inv.calls) != callsBefore {
		t.Errorf("declined delete must make zero client calls, calls = %v", inv.calls)
	}
	viewAfter := c.Snapshot()
	if len(viewAfter.Items) != len(viewBefore.Items) {
		t.Error("declined delete must not change state")
	}
	if viewAfter.Notification != nil {
		t.Error("declined delete must not show a notification")
	}
}

func TestDeleteSweet_Confirmed_DeletesAndRefreshes(t *testing.T) {
	var confirmed *model.Sweet
	inv := &mockInventory{
		listFn: func(ctx context.Context) ([]model.Sweet, error) {
			return sampleSweets(), nil
		},
	}
	c := newTestController(inv, true, func(s model.Sweet) bool {
		confirmed = &s
		return true
	}, time.Minute)
	c.Load(context.Background())

	c.DeleteSweet(context.Background(), "s-1")

	if confirmed == nil || confirmed.Name != "Ladoo" {
		t.Errorf("confirm prompt should receive the sweet, got %+v", confirmed)
	}
	view := c.Snapshot()
	if view.Notification == nil || view.Notification.Message != "Sweet deleted successfully!" {
		t.Errorf("Notification = %+v, want Sweet deleted successfully!", view.Notification)
	}

	want := []string{"list", "delete", "list"}
	for i := range want {
		if inv.calls[i] != want[i] {
			t.Fatalf("calls = %v, want %v", inv.calls, want)
		}
	}
}

func TestCreateSweet_Success_NotifiesRefreshesAndClosesModal(t *testing.T) {
	var created model.SweetFields
	inv := &mockInventory{
		listFn: func(ctx context.Context) ([]model.Sweet, error) {
			return sampleSweets(), nil
		},
		createFn: func(ctx context.Context, fields model.SweetFields) (*model.Sweet, error) {
			created = fields
			return &model.Sweet{ID: "s-3", Name: fields.Name}, nil
		},
	}
	c := newTestController(inv, true, acceptAll, time.Minute)
	c.Load(context.Background())
	if !c.OpenCreateModal() {
		t.Fatal("admin should be able to open the create modal")
	}

	fields := model.SweetFields{
		Name: "Ladoo", Category: "Indian", Price: 2.5, Quantity: 10,
		Description: "", ImageURL: "",
	}
	if err := c.CreateSweet(context.Background(), fields); err != nil {
		t.Fatalf("CreateSweet returned error: %v", err)
	}

	if created != fields {
		t.Errorf("create invoked with %+v, want %+v", created, fields)
	}
	view := c.Snapshot()
	if view.Notification == nil || view.Notification.Message != "Sweet created successfully!" {
		t.Errorf("Notification = %+v, want Sweet created successfully!", view.Notification)
	}
	if view.Modal.Mode != ModalClosed {
		t.Errorf("Modal.Mode = %q, want closed", view.Modal.Mode)
	}

	want := []string{"list", "create", "list"}
	for i := range want {
		if inv.calls[i] != want[i] {
			t.Fatalf("calls = %v, want %v", inv.calls, want)
		}
	}
}

func TestCreateSweet_Failure_PropagatesErrorAndKeepsModalOpen(t *testing.T) {
	inv := &mockInventory{
		listFn: func(ctx context.Context) ([]model.Sweet, error) {
			return sampleSweets(), nil
		},
		createFn: func(ctx context.Context, fields model.SweetFields) (*model.Sweet, error) {
			return nil, model.NewUnknownError()
		},
	}
	c := newTestController(inv, true, acceptAll, time.Minute)
	c.Load(context.Background())
	c.OpenCreateModal()

	err := c.CreateSweet(context.Background(), model.SweetFields{
		Name: "Ladoo", Category: "Indian", Price: 2.5, Quantity: 10,
	})
	if err == nil {
		t.Fatal("create failure must be propagated to the invoking form")
	}

	view := c.Snapshot()
	if view.Modal.Mode != ModalCreate {
		t.Errorf("Modal.Mode = %q, want create (form stays open for correction)", view.Modal.Mode)
	}
	if view.Notification == nil || view.Notification.Kind != NotificationError {
		t.Errorf("Notification = %+v, want error", view.Notification)
	}
	if len(view.Items) != 2 {
		t.Error("failed create must leave the list untouched")
	}
}

func TestCreateSweet_ValidationFailure_MakesNoNetworkCall(t *testing.T) {
	inv := &mockInventory{}
	c := newTestController(inv, true, acceptAll, time.Minute)

	cases := []model.SweetFields{
		{Name: "", Category: "Indian", Price: 2.5, Quantity: 1},
		{Name: "Ladoo", Category: "", Price: 2.5, Quantity: 1},
		{Name: "Ladoo", Category: "Indian", Price: 0, Quantity: 1},
		{Name: "Ladoo", Category: "Indian", Price: 2.5, Quantity: -1},
		{Name: "Ladoo", Category: "Indian", Price: 2.5, Quantity: 1, ImageURL: "http://127.0.0.1/a.png"},
	}
	for _, fields := range cases {
		err := c.CreateSweet(context.Background(), fields)
		if err == nil {
			t.Errorf("CreateSweet(%+v) = nil, want validation error", fields)
		}
		if apiErr := model.AsAPIError(err); apiErr == nil || apiErr.Code != model.ErrCodeValidation {
			t.Errorf("CreateSweet(%+v) error = %v, want VALIDATION_ERROR", fields, err)
		}
	}

	for _, call := range inv.calls {
		if call == "create" {
			t.Errorf("validation failures must not reach the network, calls = %v", inv.calls)
		}
	}
}

func TestUpdateSweet_Success(t *testing.T) {
	inv := &mockInventory{
		listFn: func(ctx context.Context) ([]model.Sweet, error) {
			return sampleSweets(), nil
		},
	}
	c := newTestController(inv, true, acceptAll, time.Minute)
	c.Load(context.Background())
	c.OpenEditModal(sampleSweets()[0])

	err := c.UpdateSweet(context.Background(), "s-1", model.SweetFields{
		Name: "Ladoo", Category: "Indian", Price: 3, Quantity: 12,
	})
	if err != nil {
		t.Fatalf("UpdateSweet returned error: %v", err)
	}

	view := c.Snapshot()
	if view.Notification == nil || view.Notification.Message != "Sweet updated successfully!" {
		t.Errorf("Notification = %+v, want Sweet updated successfully!", view.Notification)
	}
	if view.Modal.Mode != ModalClosed {
		t.Errorf("Modal.Mode = %q, want closed", view.Modal.Mode)
	}
}

func TestSearch_ReplacesListEntirely(t *testing.T) {
	filtered := []model.Sweet{
		{ID: "s-2", Name: "Truffle", Category: "Chocolate", Price: 4, Quantity: 3},
	}
	var gotParams model.SearchParams
	inv := &mockInventory{
		listFn: func(ctx context.Context) ([]model.Sweet, error) {
			return sampleSweets(), nil
		},
		searchFn: func(ctx context.Context, params model.SearchParams) ([]model.Sweet, error) {
			gotParams = params
			return filtered, nil
		},
	}
	c := newTestController(inv, false, acceptAll, time.Minute)
	c.Load(context.Background())

	minPrice := 1.0
	c.Search(context.Background(), model.SearchParams{Category: "Chocolate", MinPrice: &minPrice})

	if gotParams.Category != "Chocolate" || gotParams.MinPrice == nil || *gotParams.MinPrice != 1 {
		t.Errorf("search params = %+v, want category Chocolate and minPrice 1", gotParams)
	}
	view := c.Snapshot()
	if len(view.Items) != 1 || view.Items[0].ID != "s-2" {
		t.Errorf("Items = %+v, want the filtered result replacing the prior list", view.Items)
	}
}

func TestSearch_EmptyParams_IsEquivalentToList(t *testing.T) {
	inv := &mockInventory{
		listFn: func(ctx context.Context) ([]model.Sweet, error) {
			return sampleSweets(), nil
		},
	}
	c := newTestController(inv, false, acceptAll, time.Minute)

	c.Search(context.Background(), model.SearchParams{})

	for _, call := range inv.calls {
		if call == "search" {
			t.Errorf("empty search should delegate to list, calls = %v", inv.calls)
		}
	}
	if len(c.Snapshot().Items) != 2 {
		t.Error("empty search should load the full list")
	}
}

func TestSearch_Failure_KeepsListAndNotifies(t *testing.T) {
	inv := &mockInventory{
		listFn: func(ctx context.Context) ([]model.Sweet, error) {
			return sampleSweets(), nil
		},
		searchFn: func(ctx context.Context, params model.SearchParams) ([]model.Sweet, error) {
			return nil, model.NewNetworkFailureError()
		},
	}
	c := newTestController(inv, false, acceptAll, time.Minute)
	c.Load(context.Background())

	c.Search(context.Background(), model.SearchParams{Name: "ladoo"})

	view := c.Snapshot()
	if view.Notification == nil || view.Notification.Message != "Search failed" {
		t.Errorf("Notification = %+v, want Search failed", view.Notification)
	}
	if len(view.Items) != 2 {
		t.Error("failed search must leave the existing list untouched")
	}
}

func TestNotification_AutoDismissesAfterTTL(t *testing.T) {
	inv := &mockInventory{
		listFn: func(ctx context.Context) ([]model.Sweet, error) {
			return nil, model.NewNetworkFailureError()
		},
	}
	c := newTestController(inv, false, acceptAll, 30*time.Millisecond)

	c.Load(context.Background())
	if c.Snapshot().Notification == nil {
		t.Fatal("expected a notification right after the action")
	}

	time.Sleep(80 * time.Millisecond)
	if c.Snapshot().Notification != nil {
		t.Error("notification should auto-dismiss after the TTL")
	}
}

func TestNotification_NewOneSupersedesAndRestartsWindow(t *testing.T) {
	inv := &mockInventory{
		listFn: func(ctx context.Context) ([]model.Sweet, error) {
			return nil, model.NewNetworkFailureError()
		},
		purchaseFn: func(ctx context.Context, id string, quantity int) error {
			return model.NewSweetNotFoundError(id)
		},
	}
	c := newTestController(inv, false, acceptAll, 60*time.Millisecond)

	c.Load(context.Background()) // "Failed to load sweets"
	time.Sleep(35 * time.Millisecond)
	c.Purchase(context.Background(), "gone", 1) // 置き換え、ウィンドウ再start

	view := c.Snapshot()
	if view.Notification == nil || view.Notification.Message != "Sweet not found" {
		t.Fatalf("Notification = %+v, want the superseding message", view.Notification)
	}

	// 最初の通知のタイマーが発火した後も、新しい通知は残っている
	time.Sleep(35 * time.Millisecond)
	view = c.Snapshot()
	if view.Notification == nil || view.Notification.Message != "Sweet not found" {
		t.Errorf("superseded timer must not dismiss the newer notification, got %+v", view.Notification)
	}

	// 新しい通知も自身のTTLで消える
	time.Sleep(60 * time.Millisecond)
	if c.Snapshot().Notification != nil {
		t.Error("superseding notification should dismiss after its own TTL")
	}
}

func TestModals_RequireAdmin(t *testing.T) {
	c := newTestController(&mockInventory{}, false, acceptAll, time.Minute)

	if c.OpenCreateModal() {
		t.Error("non-admin must not open the create modal")
	}
	if c.OpenEditModal(sampleSweets()[0]) {
		t.Error("non-admin must not open the edit modal")
	}
	if c.Snapshot().Modal.Mode != ModalClosed {
		t.Error("modal must stay closed for non-admin")
	}
	if c.Snapshot().IsAdmin {
		t.Error("view must reflect non-admin session")
	}
}

func TestSetItems_SanitizesDescriptions(t *testing.T) {
	inv := &mockInventory{
		listFn: func(ctx context.Context) ([]model.Sweet, error) {
			return []model.Sweet{
				{ID: "s-1", Name: "Ladoo", Description: `<p>Soft</p><script>alert(1)</script>`},
			}, nil
		},
	}
	c := newTestController(inv, false, acceptAll, time.Minute)

	c.Load(context.Background())

	desc := c.Snapshot().Items[0].Description
	if desc != "<p>Soft</p>" {
		t.Errorf("Description = %q, want sanitized <p>Soft</p>", desc)
	}
}

func TestCreateSweet_ProbesImageURLBeforeMutation(t *testing.T) {
	inv := &mockInventory{}
	guard := &mockImageGuard{}
	c := newProbingController(inv, guard)

	fields := model.SweetFields{
		Name: "Ladoo", Category: "Indian", Price: 2.5, Quantity: 10,
		ImageURL: "https://cdn.example.com/ladoo.png",
	}
	if err := c.CreateSweet(context.Background(), fields); err != nil {
		t.Fatalf("CreateSweet returned error: %v", err)
	}

	if len(guard.probed) != 1 || guard.probed[0] != fields.ImageURL {
		t.Errorf("probed = %v, want [%s]", guard.probed, fields.ImageURL)
	}
	if len(inv.calls) == 0 || inv.calls[0] != "create" {
		t.Errorf("calls = %v, want create first", inv.calls)
	}
}

func TestCreateSweet_ProbeFailure_BlocksMutation(t *testing.T) {
	inv := &mockInventory{}
	guard := &mockImageGuard{
		probeFn: func(ctx context.Context, rawURL string) error {
			return errors.New("content type text/html is not an image")
		},
	}
	c := newProbingController(inv, guard)

	err := c.CreateSweet(context.Background(), model.SweetFields{
		Name: "Ladoo", Category: "Indian", Price: 2.5, Quantity: 10,
		ImageURL: "https://cdn.example.com/not-an-image",
	})
	if err == nil {
		t.Fatal("expected error for unreachable image URL")
	}
	apiErr := model.AsAPIError(err)
	if apiErr == nil || apiErr.Code != model.ErrCodeValidation {
		t.Errorf("error = %v, want VALIDATION_ERROR", err)
	}

	if len(inv.calls) != 0 {
		t.Errorf("failed probe must block the mutation, got calls %v", inv.calls)
	}
	view := c.Snapshot()
	if view.Notification == nil || view.Notification.Kind != NotificationError {
		t.Errorf("Notification = %+v, want error kind", view.Notification)
	}
}

func TestUpdateSweet_ProbeFailure_BlocksMutation(t *testing.T) {
	inv := &mockInventory{}
	guard := &mockImageGuard{
		probeFn: func(ctx context.Context, rawURL string) error {
			return errors.New("image request returned status 404")
		},
	}
	c := newProbingController(inv, guard)

	err := c.UpdateSweet(context.Background(), "s-1", model.SweetFields{
		Name: "Ladoo", Category: "Indian", Price: 2.5, Quantity: 10,
		ImageURL: "https://cdn.example.com/gone.png",
	})
	if err == nil {
		t.Fatal("expected error for unreachable image URL")
	}
	if len(inv.calls) != 0 {
		t.Errorf("failed probe must block the mutation, got calls %v", inv.calls)
	}
}

func TestCreateSweet_EmptyImageURL_SkipsProbe(t *testing.T) {
	inv := &mockInventory{}
	guard := &mockImageGuard{}
	c := newProbingController(inv, guard)

	// 画像なしの商品は到達確認の対象外
	if err := c.CreateSweet(context.Background(), model.SweetFields{
		Name: "Ladoo", Category: "Indian", Price: 2.5, Quantity: 10,
	}); err != nil {
		t.Fatalf("CreateSweet returned error: %v", err)
	}
	if len(guard.probed) != 0 {
		t.Errorf("probed = %v, want none for an empty image URL", guard.probed)
	}
}

func TestCreateSweet_ProbeDisabled_SkipsProbe(t *testing.T) {
	inv := &mockInventory{}
	guard := &mockImageGuard{}
	c := NewController(
		inv, staticAdmin(true), security.NewContentSanitizer(), guard,
		ConfirmerFunc(acceptAll), nil, testLogger(),
		Config{NotificationTTL: time.Minute},
	)

	if err := c.CreateSweet(context.Background(), model.SweetFields{
		Name: "Ladoo", Category: "Indian", Price: 2.5, Quantity: 10,
		ImageURL: "https://cdn.example.com/ladoo.png",
	}); err != nil {
		t.Fatalf("CreateSweet returned error: %v", err)
	}
	if len(guard.probed) != 0 {
		t.Errorf("probed = %v, want none when probing is disabled", guard.probed)
	}
}

func TestSearch_OverlappingFetches_LastCompletionWins(t *testing.T) {
	gate1 := make(chan []model.Sweet)
	gate2 := make(chan []model.Sweet)
	started := make(chan int, 2)

	var mu sync.Mutex
	calls := 0
	inv := &mockInventory{
		listFn: func(ctx context.Context) ([]model.Sweet, error) {
			mu.Lock()
			calls++
			k := calls
			mu.Unlock()
			started <- k
			if k == 1 {
				return <-gate1, nil
			}
			return <-gate2, nil
		},
	}
	c := newTestController(inv, false, acceptAll, time.Minute)

	done1 := make(chan struct{})
	done2 := make(chan struct{})
	go func() {
		c.Search(context.Background(), model.SearchParams{})
		close(done1)
	}()
	<-started // 1本目が滞空するまで待つ
	go func() {
		c.Search(context.Background(), model.SearchParams{})
		close(done2)
	}()
	<-started // 2本目も滞空

	// 後に始まった2本目が先に完了する
	gate2 <- []model.Sweet{{ID: "s-early", Name: "Early"}}
	<-done2
	if got := c.Snapshot().Items; len(got) != 1 || got[0].ID != "s-early" {
		t.Fatalf("Items after first completion = %+v, want [s-early]", got)
	}

	// 先に始まった1本目が後から完了し、表示を上書きする（完了順の後勝ち）
	gate1 <- []model.Sweet{{ID: "s-late", Name: "Late"}}
	<-done1
	if got := c.Snapshot().Items; len(got) != 1 || got[0].ID != "s-late" {
		t.Errorf("Items after second completion = %+v, want [s-late]", got)
	}
}
