package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/hitoshi/sweetshop/internal/model"
)

// authResponse は認証エンドポイントのレスポンスペイロード。
// IsAdminはワイヤ互換のためにパースするが、権限の正本はプロフィール
// エンドポイント（/auth/me）であり、この値は参照しない。
type authResponse struct {
	User struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
	Session model.Credentials `json:"session"`
	IsAdmin *bool             `json:"isAdmin,omitempty"`
}

// profileResponse はプロフィールエンドポイントのレスポンスペイロード。
type profileResponse struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	IsAdmin  bool   `json:"is_admin"`
}

// HTTPAuthGateway はAuthGatewayのHTTP実装。
// 資格情報の永続化はTokenStoreに委譲する。
type HTTPAuthGateway struct {
	httpClient *http.Client
	baseURL    string
	tokens     *TokenStore
	logger     *slog.Logger
}

// NewHTTPAuthGateway はHTTPAuthGatewayを生成する。
func NewHTTPAuthGateway(httpClient *http.Client, baseURL string, tokens *TokenStore, logger *slog.Logger) *HTTPAuthGateway {
	return &HTTPAuthGateway{
		httpClient: httpClient,
		baseURL:    baseURL,
		tokens:     tokens,
		logger:     logger,
	}
}

// Login は資格情報を検証し、成功時はプロフィール解決済みのIdentityを返す。
func (g *HTTPAuthGateway) Login(ctx context.Context, email, password string) (*model.Identity, error) {
	payload := map[string]string{"email": email, "password": password}

	resp, err := g.postJSON(ctx, "/auth/login", payload)
	if err != nil {
		g.logger.Warn("login request failed", slog.String("error", err.Error()))
		return nil, model.NewNetworkFailureError()
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		if apiErr := decodeAPIError(resp); apiErr != nil {
			return nil, apiErr
		}
		return nil, model.NewInvalidCredentialsError()
	}

	return g.completeAuth(ctx, resp)
}

// Register は新規ユーザーを作成し、成功時はプロフィール解決済みのIdentityを返す。
func (g *HTTPAuthGateway) Register(ctx context.Context, email, password, fullName string) (*model.Identity, error) {
	payload := map[string]string{
		"email":     email,
		"password":  password,
		"full_name": fullName,
	}

	resp, err := g.postJSON(ctx, "/auth/register", payload)
	if err != nil {
		g.logger.Warn("register request failed", slog.String("error", err.Error()))
		return nil, model.NewNetworkFailureError()
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		if apiErr := decodeAPIError(resp); apiErr != nil {
			return nil, model.NewRegistrationError(apiErr.Message)
		}
		return nil, model.NewRegistrationError("")
	}

	return g.completeAuth(ctx, resp)
}

// Logout はリモートの資格情報を無効化する。
// リモート呼び出しの成否にかかわらずローカルの資格情報は破棄する。
func (g *HTTPAuthGateway) Logout(ctx context.Context) error {
	resp, err := g.postJSON(ctx, "/auth/logout", struct{}{})

	// ローカル資格情報はリモートの結果を待たずに必ず破棄する
	if clearErr := g.tokens.Clear(); clearErr != nil {
		g.logger.Warn("failed to clear stored credentials", slog.String("error", clearErr.Error()))
	}

	if err != nil {
		return fmt.Errorf("logout request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("logout returned status %d", resp.StatusCode)
	}
	return nil
}

// ResolveCurrentSession は保存済み資格情報から既存セッションの復元を試みる。
// アクセストークンが拒否された場合は1回だけリフレッシュして再試行し、
// それでも復元できない場合は資格情報を破棄して匿名と報告する。
func (g *HTTPAuthGateway) ResolveCurrentSession(ctx context.Context) (*model.Identity, error) {
	if err := g.tokens.Load(); err != nil {
		return nil, fmt.Errorf("failed to load stored credentials: %w", err)
	}

	creds := g.tokens.Current()
	if creds == nil {
		return nil, nil
	}

	identity, status, err := g.fetchProfile(ctx)
	if err != nil {
		return nil, err
	}
	if identity != nil {
		return identity, nil
	}

	if status != http.StatusUnauthorized {
		// 認可以外の理由で取れない場合はリフレッシュしても無駄
		g.discardCredentials()
		return nil, nil
	}

	// リフレッシュは1回だけ
	if !g.refresh(ctx, creds.RefreshToken) {
		g.discardCredentials()
		return nil, nil
	}

	identity, _, err = g.fetchProfile(ctx)
	if err != nil {
		return nil, err
	}
	if identity == nil {
		g.discardCredentials()
		return nil, nil
	}
	return identity, nil
}

// completeAuth は認証成功レスポンスからセッションを保存し、
// プロフィールエンドポイントで完全なIdentityを解決する。
// is_adminの正本はプロフィールレスポンスであり、authResponse内の
// isAdminフィールドは使用しない。
func (g *HTTPAuthGateway) completeAuth(ctx context.Context, resp *http.Response) (*model.Identity, error) {
	var auth authResponse
	if err := json.NewDecoder(resp.Body).Decode(&auth); err != nil {
		return nil, fmt.Errorf("failed to decode auth response: %w", err)
	}

	if err := g.tokens.Save(auth.Session); err != nil {
		return nil, fmt.Errorf("failed to persist credentials: %w", err)
	}

	identity, _, err := g.fetchProfile(ctx)
	if err != nil {
		return nil, err
	}
	if identity == nil {
		return nil, model.NewUnknownError()
	}

	g.logger.Info("user authenticated",
		slog.String("user_id", identity.ID),
		slog.Bool("is_admin", identity.IsAdmin),
	)
	return identity, nil
}

// fetchProfile は/auth/meから完全なIdentityを取得する。
// 認証が通らない場合は (nil, status, nil) を返す。
func (g *HTTPAuthGateway) fetchProfile(ctx context.Context) (*model.Identity, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/auth/me", nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build profile request: %w", err)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		g.logger.Warn("profile request failed", slog.String("error", err.Error()))
		return nil, 0, model.NewNetworkFailureError()
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, resp.StatusCode, nil
	}

	var profile profileResponse
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to decode profile response: %w", err)
	}

	return &model.Identity{
		ID:       profile.ID,
		Email:    profile.Email,
		FullName: profile.FullName,
		IsAdmin:  profile.IsAdmin,
	}, resp.StatusCode, nil
}

// refresh はリフレッシュトークンで新しいセッションの取得を試みる。
// 成功時は新しい資格情報を保存してtrueを返す。
func (g *HTTPAuthGateway) refresh(ctx context.Context, refreshToken string) bool {
	if refreshToken == "" {
		return false
	}

	resp, err := g.postJSON(ctx, "/auth/refresh", map[string]string{"refresh_token": refreshToken})
	if err != nil {
		g.logger.Warn("refresh request failed", slog.String("error", err.Error()))
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false
	}

	var body struct {
		Session model.Credentials `json:"session"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return false
	}
	if body.Session.AccessToken == "" {
		return false
	}

	if err := g.tokens.Save(body.Session); err != nil {
		g.logger.Warn("failed to persist refreshed credentials", slog.String("error", err.Error()))
		return false
	}

	g.logger.Info("session refreshed")
	return true
}

// discardCredentials は復元不能になった資格情報を破棄する。
func (g *HTTPAuthGateway) discardCredentials() {
	if err := g.tokens.Clear(); err != nil {
		g.logger.Warn("failed to discard credentials", slog.String("error", err.Error()))
	}
}

// postJSON はJSONボディのPOSTリクエストを送信する。
func (g *HTTPAuthGateway) postJSON(ctx context.Context, path string, payload any) (*http.Response, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return g.httpClient.Do(req)
}
