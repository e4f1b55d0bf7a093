// Package stub は開発・テスト用のインメモリAPIスタブを提供する。
// 本物のリモートサービスと同じワイヤ契約を実装するが、
// 状態はすべてプロセス内に保持し、プロセス終了とともに消える。
package stub

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/sweetshop/internal/model"
)

// Account はスタブ内のユーザーアカウント。
type Account struct {
	ID       string
	Email    string
	Password string
	FullName string
	IsAdmin  bool
}

// Store はスタブのインメモリ状態。すべてのアクセスはmuで直列化する。
type Store struct {
	mu sync.Mutex

	sweets       map[string]model.Sweet
	accounts     map[string]*Account // email -> account
	sessions     map[string]string   // access token -> email
	refreshes    map[string]string   // refresh token -> email
	transactions []model.Transaction
}

// NewStore は空のStoreを生成する。
func NewStore() *Store {
	return &Store{
		sweets:    make(map[string]model.Sweet),
		accounts:  make(map[string]*Account),
		sessions:  make(map[string]string),
		refreshes: make(map[string]string),
	}
}

// SeedAccount はアカウントを直接登録する（起動時のシード用）。
func (s *Store) SeedAccount(email, password, fullName string, isAdmin bool) *Account {
	s.mu.Lock()
	defer s.mu.Unlock()

	account := &Account{
		ID:       uuid.New().String(),
		Email:    email,
		Password: password,
		FullName: fullName,
		IsAdmin:  isAdmin,
	}
	s.accounts[email] = account
	return account
}

// SeedSweet は商品を直接登録する（起動時のシード用）。
func (s *Store) SeedSweet(fields model.SweetFields) model.Sweet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertSweet(fields)
}

// Authenticate は資格情報を検証し、一致するアカウントを返す。
func (s *Store) Authenticate(email, password string) (*Account, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[email]
	if !ok || account.Password != password {
		return nil, false
	}
	return account, true
}

// Register は新規アカウントを作成する。メール重複はfalseを返す。
func (s *Store) Register(email, password, fullName string) (*Account, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.accounts[email]; exists {
		return nil, false
	}
	account := &Account{
		ID:       uuid.New().String(),
		Email:    email,
		Password: password,
		FullName: fullName,
	}
	s.accounts[email] = account
	return account, true
}

// IssueSession はアカウントに新しいトークンペアを発行する。
func (s *Store) IssueSession(account *Account) model.Credentials {
	s.mu.Lock()
	defer s.mu.Unlock()

	creds := model.Credentials{
		AccessToken:  uuid.New().String(),
		RefreshToken: uuid.New().String(),
	}
	s.sessions[creds.AccessToken] = account.Email
	s.refreshes[creds.RefreshToken] = account.Email
	return creds
}

// SessionAccount はアクセストークンからアカウントを解決する。
func (s *Store) SessionAccount(accessToken string) (*Account, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	email, ok := s.sessions[accessToken]
	if !ok {
		return nil, false
	}
	account, ok := s.accounts[email]
	return account, ok
}

// Refresh はリフレッシュトークンを検証し、新しいトークンペアを発行する。
// 使用済みのリフレッシュトークンは無効化する。
func (s *Store) Refresh(refreshToken string) (model.Credentials, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	email, ok := s.refreshes[refreshToken]
	if !ok {
		return model.Credentials{}, false
	}
	delete(s.refreshes, refreshToken)

	creds := model.Credentials{
		AccessToken:  uuid.New().String(),
		RefreshToken: uuid.New().String(),
	}
	s.sessions[creds.AccessToken] = email
	s.refreshes[creds.RefreshToken] = email
	return creds, true
}

// RevokeSession はアクセストークンを失効させる。
func (s *Store) RevokeSession(accessToken string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, accessToken)
}

// ListSweets は全商品を名前順で返す。
func (s *Store) ListSweets() []model.Sweet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.collect(func(model.Sweet) bool { return true })
}

// SearchSweets は指定された条件すべてに合致する商品を返す。
// 名前・カテゴリは部分一致（大文字小文字を無視）、価格は閉区間。
func (s *Store) SearchSweets(params model.SearchParams) []model.Sweet {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := strings.ToLower(params.Name)
	category := strings.ToLower(params.Category)

	return s.collect(func(sweet model.Sweet) bool {
		if name != "" && !strings.Contains(strings.ToLower(sweet.Name), name) {
			return false
		}
		if category != "" && !strings.Contains(strings.ToLower(sweet.Category), category) {
			return false
		}
		if params.MinPrice != nil && sweet.Price < *params.MinPrice {
			return false
		}
		if params.MaxPrice != nil && sweet.Price > *params.MaxPrice {
			return false
		}
		return true
	})
}

// CreateSweet は新しい商品を登録する。
func (s *Store) CreateSweet(fields model.SweetFields) model.Sweet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertSweet(fields)
}

// UpdateSweet は既存商品のフィールドを置き換える。
func (s *Store) UpdateSweet(id string, fields model.SweetFields) (model.Sweet, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sweet, ok := s.sweets[id]
	if !ok {
		return model.Sweet{}, false
	}
	sweet.Name = fields.Name
	sweet.Category = fields.Category
	sweet.Price = fields.Price
	sweet.Quantity = fields.Quantity
	sweet.Description = fields.Description
	sweet.ImageURL = fields.ImageURL
	sweet.UpdatedAt = time.Now().UTC()
	s.sweets[id] = sweet
	return sweet, true
}

// DeleteSweet は商品を削除する。
func (s *Store) DeleteSweet(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sweets[id]; !ok {
		return false
	}
	delete(s.sweets, id)
	return true
}

// ApplyTransaction は購入・補充を在庫に反映し、監査レコードを追記する。
// 在庫は負になれない。残数が不足する購入はremainingを添えて失敗を報告する。
func (s *Store) ApplyTransaction(sweetID, userID string, txType model.TransactionType, quantity int) (remaining int, err *model.APIError) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sweet, ok := s.sweets[sweetID]
	if !ok {
		return 0, model.NewSweetNotFoundError(sweetID)
	}
	if quantity <= 0 {
		return sweet.Quantity, model.NewValidationError("quantity", "Quantity must be greater than zero")
	}

	switch txType {
	case model.TransactionPurchase:
		if sweet.Quantity < quantity {
			return sweet.Quantity, model.NewInsufficientStockError(sweet.Quantity)
		}
		sweet.Quantity -= quantity
	case model.TransactionRestock:
		sweet.Quantity += quantity
	default:
		return sweet.Quantity, model.NewValidationError("transaction_type", "Unknown transaction type")
	}

	sweet.UpdatedAt = time.Now().UTC()
	s.sweets[sweetID] = sweet
	s.transactions = append(s.transactions, model.Transaction{
		ID:        uuid.New().String(),
		SweetID:   sweetID,
		UserID:    userID,
		Type:      txType,
		Quantity:  quantity,
		CreatedAt: time.Now().UTC(),
	})
	return sweet.Quantity, nil
}

// Transactions は監査レコードのコピーを返す。
func (s *Store) Transactions() []model.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Transaction(nil), s.transactions...)
}

// insertSweet は採番・タイムスタンプを付与して商品を登録する。mu保持前提。
func (s *Store) insertSweet(fields model.SweetFields) model.Sweet {
	now := time.Now().UTC()
	sweet := model.Sweet{
		ID:          uuid.New().String(),
		Name:        fields.Name,
		Category:    fields.Category,
		Price:       fields.Price,
		Quantity:    fields.Quantity,
		Description: fields.Description,
		ImageURL:    fields.ImageURL,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.sweets[sweet.ID] = sweet
	return sweet
}

// collect は条件に合う商品を名前順に集める。mu保持前提。
func (s *Store) collect(match func(model.Sweet) bool) []model.Sweet {
	result := make([]model.Sweet, 0, len(s.sweets))
	for _, sweet := range s.sweets {
		if match(sweet) {
			result = append(result, sweet)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}
