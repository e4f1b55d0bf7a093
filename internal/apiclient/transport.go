package apiclient

import (
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/hitoshi/sweetshop/internal/metrics"
)

// TransportConfig は送信トランスポートの設定を保持する。
type TransportConfig struct {
	RateLimitRPS   float64 // 送信リクエストのレート（req/sec）
	RateLimitBurst int     // バーストサイズ
	RequestTimeout time.Duration
}

// DefaultTransportConfig はデフォルトのトランスポート設定を返す。
func DefaultTransportConfig() TransportConfig {
	return TransportConfig{
		RateLimitRPS:   10,
		RateLimitBurst: 20,
		RequestTimeout: 15 * time.Second,
	}
}

// Transport はAPI呼び出し共通の送信トランスポート。
// リクエストごとにX-Request-IDを付与し、保存済みアクセストークンが
// あればBearerヘッダとして注入する。送信レートはrate.Limiterで平準化する。
// 自動リトライは行わない。
type Transport struct {
	base    http.RoundTripper
	limiter *rate.Limiter
	tokens  *TokenStore
	metrics metrics.MetricsCollector
}

// NewTransport はTransportを生成する。
// baseがnilの場合はhttp.DefaultTransportを使用する。
// collectorがnilの場合はメトリクスを記録しない。
func NewTransport(base http.RoundTripper, cfg TransportConfig, tokens *TokenStore, collector metrics.MetricsCollector) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	if collector == nil {
		collector = metrics.NopCollector{}
	}
	return &Transport{
		base:    base,
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst),
		tokens:  tokens,
		metrics: collector,
	}
}

// RoundTrip はhttp.RoundTripperを実装する。
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.limiter.Wait(req.Context()); err != nil {
		return nil, fmt.Errorf("rate limiter wait canceled: %w", err)
	}

	// RoundTripperはリクエストを変更してはならないため、クローンしてから触る
	cloned := req.Clone(req.Context())
	cloned.Header.Set("X-Request-ID", uuid.New().String())
	cloned.Header.Set("Accept", "application/json")

	if token := t.tokens.AccessToken(); token != "" && cloned.Header.Get("Authorization") == "" {
		cloned.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := t.base.RoundTrip(cloned)
	t.metrics.RecordRequestLatency(time.Since(start))
	if err != nil {
		return nil, err
	}

	t.metrics.RecordHTTPStatus(resp.StatusCode)
	return resp, nil
}

// NewHTTPClient は共通トランスポートを組み込んだhttp.Clientを生成する。
func NewHTTPClient(cfg TransportConfig, tokens *TokenStore, collector metrics.MetricsCollector) *http.Client {
	return &http.Client{
		Transport: NewTransport(nil, cfg, tokens, collector),
		Timeout:   cfg.RequestTimeout,
	}
}
