// Package noren implements the broker ports against a Noren OMS REST API.
package noren

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"vwaptrader/internal/broker"
	"vwaptrader/internal/config"
	"vwaptrader/internal/logger"
	"vwaptrader/internal/pkg/text"

	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"
)

const (
	endpointQuotes  = "GetQuotes"
	endpointSearch  = "SearchScrip"
	endpointSeries  = "TPSeries"
	endpointOrder   = "PlaceOrder"
	maxResponseSize = 4 << 20
)

// Client talks to the Noren REST endpoints. Every call is a POST with a
// jData JSON payload and the session token as jKey. The token is issued
// outside this service.
type Client struct {
	baseURL     *url.URL
	httpClient  *http.Client
	limiter     *rate.Limiter
	userID      string
	token       string
	productType string
	priceType   string
	loc         *time.Location
	nowFn       func() time.Time
}

var _ broker.Broker = (*Client)(nil)

// NewClient constructs a Noren client from configuration. loc is used to
// read the broker's local candle timestamps.
func NewClient(cfg config.BrokerConfig, loc *time.Location) (*Client, error) {
	raw := strings.TrimSpace(cfg.BaseURL)
	if raw == "" {
		return nil, fmt.Errorf("broker.base_url 不能为空")
	}
	parsed, err := url.Parse(strings.TrimRight(raw, "/"))
	if err != nil {
		return nil, fmt.Errorf("解析 broker.base_url 失败: %w", err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	limit := rate.Inf
	if cfg.RatePerSec > 0 {
		limit = rate.Limit(cfg.RatePerSec)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Client{
		baseURL: parsed,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: http.DefaultTransport.(*http.Transport).Clone(),
		},
		limiter:     rate.NewLimiter(limit, burst),
		userID:      strings.TrimSpace(cfg.UserID),
		token:       strings.TrimSpace(cfg.Token),
		productType: cfg.ProductType,
		priceType:   cfg.PriceType,
		loc:         loc,
		nowFn:       time.Now,
	}, nil
}

// SetHTTPClient sets the HTTP client for testing.
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// statusError is a well-formed response whose stat is not Ok.
type statusError struct {
	endpoint string
	message  string
}

func (e *statusError) Error() string {
	if e.message == "" {
		return fmt.Sprintf("noren %s: stat not ok", e.endpoint)
	}
	return fmt.Sprintf("noren %s: %s", e.endpoint, e.message)
}

// post sends payload to endpoint and returns the parsed body. A JSON object
// with stat other than Ok becomes a *statusError; arrays are returned as-is.
func (c *Client) post(ctx context.Context, endpoint string, payload map[string]string) (gjson.Result, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return gjson.Result{}, fmt.Errorf("noren %s: rate limiter: %w", endpoint, err)
	}
	payload["uid"] = c.userID
	buf, err := json.Marshal(payload)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("序列化请求失败: %w", err)
	}
	body := "jData=" + string(buf) + "&jKey=" + c.token

	target := c.baseURL.JoinPath(endpoint)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target.String(), strings.NewReader(body))
	if err != nil {
		return gjson.Result{}, fmt.Errorf("构造请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	start := c.nowFn()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("调用 noren %s 失败: %w", endpoint, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return gjson.Result{}, fmt.Errorf("读取 noren %s 响应失败: %w", endpoint, err)
	}
	logger.Debugf("Noren %s status=%d bytes=%d dur=%s", endpoint, resp.StatusCode, len(data), c.nowFn().Sub(start))

	if resp.StatusCode >= 300 {
		msg := text.Truncate(strings.TrimSpace(string(data)), 512)
		if msg == "" {
			return gjson.Result{}, fmt.Errorf("noren %s 返回错误: %s", endpoint, resp.Status)
		}
		return gjson.Result{}, fmt.Errorf("noren %s 返回错误(%s): %s", endpoint, resp.Status, msg)
	}
	if !gjson.ValidBytes(data) {
		return gjson.Result{}, fmt.Errorf("noren %s 响应不是合法 JSON", endpoint)
	}
	parsed := gjson.ParseBytes(data)
	if parsed.IsObject() && parsed.Get("stat").String() != "Ok" {
		return parsed, &statusError{endpoint: endpoint, message: parsed.Get("emsg").String()}
	}
	return parsed, nil
}
