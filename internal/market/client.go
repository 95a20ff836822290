// Copyright 2026 fanjia1024
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package market 外汇行情数据源客户端：报价与 K 线，带请求限流与按品种缓存
package market

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"fx-advisor/internal/storage/cache"
	apperrors "fx-advisor/pkg/errors"
	"fx-advisor/pkg/log"
	"fx-advisor/pkg/metrics"
	"fx-advisor/pkg/utils"
)

// 默认参数
const (
	DefaultTimeout   = 10 * time.Second
	DefaultQuoteTTL  = 30 * time.Second
	DefaultCandleTTL = 5 * time.Minute
	MaxCandles       = 500
)

// Quote 最新报价
type Quote struct {
	Symbol string    `json:"symbol"`
	Bid    float64   `json:"bid"`
	Ask    float64   `json:"ask"`
	Time   time.Time `json:"timestamp"`
}

// Mid 中间价
func (q Quote) Mid() float64 {
	return (q.Bid + q.Ask) / 2
}

// Spread 点差
func (q Quote) Spread() float64 {
	return q.Ask - q.Bid
}

// Candle K 线
type Candle struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

type candlesResponse struct {
	Candles []Candle `json:"candles"`
}

// Config 客户端配置
type Config struct {
	BaseURL           string
	APIKey            string
	Timeout           time.Duration
	RetryCount        int
	RetryWait         time.Duration
	RequestsPerMinute float64
	QuoteTTL          time.Duration
	CandleTTL         time.Duration
}

// Client 行情客户端。同一品种的结果在 TTL 内从 cache 返回
type Client struct {
	http      *resty.Client
	limiter   *rate.Limiter
	cache     cache.Store
	apiKey    string
	quoteTTL  time.Duration
	candleTTL time.Duration
	logger    *log.Logger
}

// NewClient 创建行情客户端；BaseURL 为空时返回 *errors.ConfigError
func NewClient(cfg Config, store cache.Store, logger *log.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, apperrors.NewConfigError("MARKET_BASE_URL")
	}
	if store == nil {
		store = cache.NewMemoryStore()
	}
	if logger == nil {
		logger = log.Nop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RetryWait <= 0 {
		cfg.RetryWait = 500 * time.Millisecond
	}
	if cfg.QuoteTTL <= 0 {
		cfg.QuoteTTL = DefaultQuoteTTL
	}
	if cfg.CandleTTL <= 0 {
		cfg.CandleTTL = DefaultCandleTTL
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(cfg.RetryWait).
		SetRetryMaxWaitTime(5 * cfg.RetryWait).
		SetHeader("Accept", "application/json").
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return !errors.Is(err, context.Canceled)
			}
			return r.StatusCode() == http.StatusTooManyRequests || r.StatusCode() >= http.StatusInternalServerError
		})

	limit := rate.Inf
	if cfg.RequestsPerMinute > 0 {
		limit = rate.Limit(cfg.RequestsPerMinute / 60)
	}

	return &Client{
		http:      client,
		limiter:   rate.NewLimiter(limit, 1),
		cache:     store,
		apiKey:    cfg.APIKey,
		quoteTTL:  cfg.QuoteTTL,
		candleTTL: cfg.CandleTTL,
		logger:    logger,
	}, nil
}

// Quote 获取最新报价
func (c *Client) Quote(ctx context.Context, symbol string) (*Quote, error) {
	sym, err := NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}
	key := "quote:" + sym

	var q Quote
	if err := c.cache.Get(ctx, key, &q); err == nil {
		metrics.MarketRequestsTotal.WithLabelValues("cache").Inc()
		return &q, nil
	}

	if err := c.fetch(ctx, "/quote", map[string]string{"symbol": sym}, &q); err != nil {
		return nil, err
	}
	if q.Symbol == "" {
		q.Symbol = sym
	}
	c.store(ctx, key, q, c.quoteTTL)
	return &q, nil
}

// Candles 获取最近 limit 根 K 线，按时间升序
func (c *Client) Candles(ctx context.Context, symbol, interval string, limit int) ([]Candle, error) {
	sym, err := NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}
	if interval == "" {
		interval = "1h"
	}
	limit = utils.ClampInt(utils.DefaultInt(limit, 100), 1, MaxCandles)
	key := fmt.Sprintf("candles:%s:%s:%d", sym, interval, limit)

	var candles []Candle
	if err := c.cache.Get(ctx, key, &candles); err == nil {
		metrics.MarketRequestsTotal.WithLabelValues("cache").Inc()
		return candles, nil
	}

	var resp candlesResponse
	err = c.fetch(ctx, "/candles", map[string]string{
		"symbol":   sym,
		"interval": interval,
		"limit":    strconv.Itoa(limit),
	}, &resp)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, resp.Candles, c.candleTTL)
	return resp.Candles, nil
}

func (c *Client) fetch(ctx context.Context, path string, params map[string]string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		metrics.MarketRequestsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("market rate limiter: %w", err)
	}
	req := c.http.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetResult(out)
	if c.apiKey != "" {
		req.SetHeader("X-API-Key", c.apiKey)
	}
	resp, err := req.Get(path)
	if err != nil {
		metrics.MarketRequestsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("market request %s: %w", path, err)
	}
	metrics.MarketRequestsTotal.WithLabelValues("upstream").Inc()
	switch {
	case resp.StatusCode() == http.StatusTooManyRequests:
		return fmt.Errorf("market %s: %w", path, apperrors.ErrRateLimited)
	case resp.StatusCode() == http.StatusNotFound:
		return fmt.Errorf("market %s %s: %w", path, params["symbol"], apperrors.ErrNotFound)
	case resp.IsError():
		return fmt.Errorf("market %s returned %d: %s", path, resp.StatusCode(), strings.TrimSpace(resp.String()))
	}
	return nil
}

func (c *Client) store(ctx context.Context, key string, value any, ttl time.Duration) {
	if err := c.cache.Set(ctx, key, value, ttl); err != nil {
		c.logger.Warn("market cache set failed", "key", key, "error", err)
	}
}

// NormalizeSymbol 统一品种写法：EUR/USD、eur_usd、EUR-USD 均为 EURUSD
func NormalizeSymbol(symbol string) (string, error) {
	var b strings.Builder
	for _, r := range strings.ToUpper(strings.TrimSpace(symbol)) {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '/', r == '_', r == '-', r == ' ':
		default:
			return "", fmt.Errorf("invalid symbol %q: %w", symbol, apperrors.ErrInvalidArg)
		}
	}
	sym := b.String()
	if len(sym) < 3 || len(sym) > 12 {
		return "", fmt.Errorf("invalid symbol %q: %w", symbol, apperrors.ErrInvalidArg)
	}
	return sym, nil
}
