// Package model はドメインモデルを定義する。
package model

import (
	"errors"
	"fmt"
)

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリとユーザー向けメッセージを含む。
// メッセージは製品UIの言語（英語）でそのまま通知バナーに表示される。
type APIError struct {
	Code     string // エラーコード
	Message  string // ユーザー向けメッセージ
	Category string // カテゴリ: auth, validation, inventory, network, system
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeNetworkFailure     = "NETWORK_FAILURE"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeRegistrationFailed = "REGISTRATION_FAILED"
	ErrCodeInsufficientStock  = "INSUFFICIENT_STOCK"
	ErrCodeSweetNotFound      = "SWEET_NOT_FOUND"
	ErrCodeValidation         = "VALIDATION_ERROR"
	ErrCodeUnknown            = "UNKNOWN"
)

// NewNetworkFailureError は通信失敗エラーを生成する。
// 下位のエラー内容はログにのみ残し、ユーザーには一般的なメッセージを返す。
func NewNetworkFailureError() *APIError {
	return &APIError{
		Code:     ErrCodeNetworkFailure,
		Message:  "Could not reach the server. Please try again.",
		Category: "network",
	}
}

// NewInvalidCredentialsError は認証失敗エラーを生成する。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "Invalid email or password",
		Category: "auth",
	}
}

// NewRegistrationError は登録失敗エラーを生成する。
// reasonにはサーバーが返した失敗理由をそのまま渡す。
func NewRegistrationError(reason string) *APIError {
	if reason == "" {
		reason = "Registration failed"
	}
	return &APIError{
		Code:     ErrCodeRegistrationFailed,
		Message:  reason,
		Category: "auth",
	}
}

// NewInsufficientStockError は在庫不足エラーを生成する。
// availableには購入可能な残数を渡し、メッセージに埋め込まれる。
func NewInsufficientStockError(available int) *APIError {
	return &APIError{
		Code:     ErrCodeInsufficientStock,
		Message:  fmt.Sprintf("Insufficient stock: only %d left", available),
		Category: "inventory",
	}
}

// NewSweetNotFoundError は商品未検出エラーを生成する。
func NewSweetNotFoundError(sweetID string) *APIError {
	return &APIError{
		Code:     ErrCodeSweetNotFound,
		Message:  "Sweet not found",
		Category: "inventory",
	}
}

// NewValidationError は入力検証エラーを生成する。
// fieldには違反したフィールド名、reasonには違反内容を渡す。
func NewValidationError(field, reason string) *APIError {
	return &APIError{
		Code:     ErrCodeValidation,
		Message:  fmt.Sprintf("%s: %s", field, reason),
		Category: "validation",
	}
}

// NewUnknownError は分類不能なエラーを生成する。
func NewUnknownError() *APIError {
	return &APIError{
		Code:     ErrCodeUnknown,
		Message:  "Something went wrong. Please try again.",
		Category: "system",
	}
}

// AsAPIError はエラーチェーンからAPIErrorを取り出す。
// 見つからない場合はnilを返す。
func AsAPIError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return nil
}

// UserMessage はエラーからユーザー向けメッセージを取り出す。
// APIErrorでない場合はfallbackを返す。通知バナーの本文決定に使用する。
func UserMessage(err error, fallback string) string {
	if apiErr := AsAPIError(err); apiErr != nil && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}
