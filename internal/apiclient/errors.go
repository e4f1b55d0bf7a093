package apiclient

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/hitoshi/sweetshop/internal/model"
)

// maxErrorBodySize はエラーレスポンスボディの読み込み上限。
const maxErrorBodySize = 1 << 20

// errorResponseBody はAPIエラーレスポンスの統一フォーマット。
// リモートサービスとスタブの両方がこの形でエラーを返す。
type errorResponseBody struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
}

// decodeAPIError はエラーレスポンスボディから型付きエラーを復元する。
// 統一フォーマットでない・コードが空の場合はnilを返し、
// 呼び出し側が操作に応じたフォールバックエラーを選ぶ。
func decodeAPIError(resp *http.Response) *model.APIError {
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
	if err != nil {
		return nil
	}

	var body errorResponseBody
	if err := json.Unmarshal(data, &body); err != nil {
		return nil
	}
	if body.Code == "" {
		return nil
	}

	return &model.APIError{
		Code:     body.Code,
		Message:  body.Message,
		Category: body.Category,
	}
}

// fallbackInventoryError はエラーボディが解釈できなかった場合の
// ステータスコードに基づくフォールバック分類。
func fallbackInventoryError(statusCode int, sweetID string) *model.APIError {
	switch {
	case statusCode == http.StatusNotFound:
		return model.NewSweetNotFoundError(sweetID)
	case statusCode == http.StatusBadRequest:
		return model.NewValidationError("request", "rejected by the server")
	case statusCode >= 500:
		return model.NewNetworkFailureError()
	default:
		return model.NewUnknownError()
	}
}
