package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/hitoshi/sweetshop/internal/model"
)

// TokenStore はアクセス/リフレッシュトークンをリロードをまたいで永続化する。
// 永続化先は0600のJSONファイルで、Auth Gatewayだけがこのストアに触れる。
type TokenStore struct {
	mu    sync.Mutex
	path  string
	creds *model.Credentials
}

// NewTokenStore はTokenStoreを生成する。pathは認証情報ファイルの配置先。
func NewTokenStore(path string) *TokenStore {
	return &TokenStore{path: path}
}

// Load はファイルから保存済み資格情報を読み込む。
// ファイルが存在しない場合は資格情報なしとして正常終了する。
func (s *TokenStore) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.creds = nil
			return nil
		}
		return fmt.Errorf("failed to read credentials file: %w", err)
	}

	var creds model.Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		// 壊れたファイルは資格情報なしとして扱う（次回Saveで上書きされる）
		s.creds = nil
		return nil
	}

	if creds.AccessToken == "" {
		s.creds = nil
		return nil
	}

	s.creds = &creds
	return nil
}

// Save は資格情報をメモリとファイルの両方に保存する。
func (s *TokenStore) Save(creds model.Credentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.creds = &creds

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("failed to create credentials directory: %w", err)
	}

	data, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("failed to marshal credentials: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write credentials file: %w", err)
	}

	return nil
}

// Clear は資格情報をメモリとファイルの両方から破棄する。
// ファイルが存在しない場合も正常終了する。
func (s *TokenStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.creds = nil

	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove credentials file: %w", err)
	}

	return nil
}

// Current は保持中の資格情報のコピーを返す。未保持の場合はnil。
func (s *TokenStore) Current() *model.Credentials {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.creds == nil {
		return nil
	}
	copied := *s.creds
	return &copied
}

// AccessToken は保持中のアクセストークンを返す。未保持の場合は空文字列。
// トランスポートのBearerヘッダ注入に使用する。
func (s *TokenStore) AccessToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.creds == nil {
		return ""
	}
	return s.creds.AccessToken
}
