package dashboard

import (
	"context"
	"strings"

	"github.com/hitoshi/sweetshop/internal/model"
)

// validateFields は作成・更新フォームの入力をネットワーク呼び出しの前に検証する。
// 最初に見つかった違反をValidationError(field, reason)として返す。
func (c *Controller) validateFields(fields model.SweetFields) error {
	if strings.TrimSpace(fields.Name) == "" {
		return model.NewValidationError("name", "required")
	}
	if strings.TrimSpace(fields.Category) == "" {
		return model.NewValidationError("category", "required")
	}
	if fields.Price <= 0 {
		return model.NewValidationError("price", "must be greater than zero")
	}
	if fields.Quantity < 0 {
		return model.NewValidationError("quantity", "must not be negative")
	}
	if err := c.imageGuard.ValidateURL(fields.ImageURL); err != nil {
		return model.NewValidationError("image_url", err.Error())
	}
	return nil
}

// verifyImageURL は画像URLへ安全なクライアントで実際にアクセスし、
// 到達可能な画像であることを確認する。ProbeImageURLsが無効、または
// 画像URLが空（画像なし）の場合は何もしない。
func (c *Controller) verifyImageURL(ctx context.Context, imageURL string) error {
	if !c.probeImages || imageURL == "" {
		return nil
	}
	if err := c.imageGuard.Probe(ctx, imageURL); err != nil {
		return model.NewValidationError("image_url", err.Error())
	}
	return nil
}
