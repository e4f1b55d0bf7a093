package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/hitoshi/sweetshop/internal/model"
)

// HTTPInventoryClient はInventoryClientのHTTP実装。
// 失敗は常に型付きエラー（model.APIError）として返し、
// ダッシュボードがそのまま通知メッセージに変換できるようにする。
type HTTPInventoryClient struct {
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
}

// NewHTTPInventoryClient はHTTPInventoryClientを生成する。
func NewHTTPInventoryClient(httpClient *http.Client, baseURL string, logger *slog.Logger) *HTTPInventoryClient {
	return &HTTPInventoryClient{
		httpClient: httpClient,
		baseURL:    baseURL,
		logger:     logger,
	}
}

// List は全商品のスナップショットを返す。
func (c *HTTPInventoryClient) List(ctx context.Context) ([]model.Sweet, error) {
	return c.getSweets(ctx, "/api/sweets")
}

// Search は絞り込み条件に合致する商品を返す。
// 未指定のフィールドはクエリに含めず、サーバー側で制約にならない。
func (c *HTTPInventoryClient) Search(ctx context.Context, params model.SearchParams) ([]model.Sweet, error) {
	q := url.Values{}
	if params.Name != "" {
		q.Set("name", params.Name)
	}
	if params.Category != "" {
		q.Set("category", params.Category)
	}
	if params.MinPrice != nil {
		q.Set("min_price", strconv.FormatFloat(*params.MinPrice, 'f', -1, 64))
	}
	if params.MaxPrice != nil {
		q.Set("max_price", strconv.FormatFloat(*params.MaxPrice, 'f', -1, 64))
	}

	path := "/api/sweets/search"
	if encoded := q.Encode(); encoded != "" {
		path += "?" + encoded
	}
	return c.getSweets(ctx, path)
}

// Create は新しい商品を登録する。
func (c *HTTPInventoryClient) Create(ctx context.Context, fields model.SweetFields) (*model.Sweet, error) {
	resp, err := c.do(ctx, http.MethodPost, "/api/sweets", fields)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return nil, c.asError(resp, "")
	}

	var sweet model.Sweet
	if err := json.NewDecoder(resp.Body).Decode(&sweet); err != nil {
		return nil, fmt.Errorf("failed to decode created sweet: %w", err)
	}
	return &sweet, nil
}

// Update は既存商品を更新する。
func (c *HTTPInventoryClient) Update(ctx context.Context, id string, fields model.SweetFields) (*model.Sweet, error) {
	resp, err := c.do(ctx, http.MethodPut, "/api/sweets/"+url.PathEscape(id), fields)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.asError(resp, id)
	}

	var sweet model.Sweet
	if err := json.NewDecoder(resp.Body).Decode(&sweet); err != nil {
		return nil, fmt.Errorf("failed to decode updated sweet: %w", err)
	}
	return &sweet, nil
}

// Delete は商品を削除する。
func (c *HTTPInventoryClient) Delete(ctx context.Context, id string) error {
	resp, err := c.do(ctx, http.MethodDelete, "/api/sweets/"+url.PathEscape(id), nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return c.asError(resp, id)
	}
	return nil
}

// Purchase は購入トランザクションを記録する。
func (c *HTTPInventoryClient) Purchase(ctx context.Context, id string, quantity int) error {
	return c.transact(ctx, id, "purchase", quantity)
}

// Restock は補充トランザクションを記録する。
func (c *HTTPInventoryClient) Restock(ctx context.Context, id string, quantity int) error {
	return c.transact(ctx, id, "restock", quantity)
}

// transact は購入・補充共通のトランザクション呼び出し。
func (c *HTTPInventoryClient) transact(ctx context.Context, id, action string, quantity int) error {
	payload := map[string]int{"quantity": quantity}
	resp, err := c.do(ctx, http.MethodPost, "/api/sweets/"+url.PathEscape(id)+"/"+action, payload)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return c.asError(resp, id)
	}
	return nil
}

// getSweets は商品リストを返すGETエンドポイント共通の呼び出し。
func (c *HTTPInventoryClient) getSweets(ctx context.Context, path string) ([]model.Sweet, error) {
	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.asError(resp, "")
	}

	var sweets []model.Sweet
	if err := json.NewDecoder(resp.Body).Decode(&sweets); err != nil {
		return nil, fmt.Errorf("failed to decode sweets list: %w", err)
	}
	return sweets, nil
}

// do はリクエストを構築して送信する。通信レベルの失敗はNetworkFailureに変換する。
func (c *HTTPInventoryClient) do(ctx context.Context, method, path string, payload any) (*http.Response, error) {
	var body *bytes.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		body = bytes.NewReader(data)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("inventory request failed",
			slog.String("method", method),
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return nil, model.NewNetworkFailureError()
	}
	return resp, nil
}

// asError はエラーレスポンスを型付きエラーに変換する。
func (c *HTTPInventoryClient) asError(resp *http.Response, sweetID string) error {
	if apiErr := decodeAPIError(resp); apiErr != nil {
		return apiErr
	}
	return fallbackInventoryError(resp.StatusCode, sweetID)
}
