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

package app

import (
	"context"
	"fmt"

	"fx-advisor/internal/advisor"
	"fx-advisor/internal/market"
	"fx-advisor/internal/storage/cache"
	"fx-advisor/pkg/config"
	"fx-advisor/pkg/log"
	"fx-advisor/pkg/secrets"
)

// Bootstrap 统一初始化：日志、密钥、缓存、行情客户端与 Advisor，cmd 内不写业务装配
type Bootstrap struct {
	Config  *config.Config
	Logger  *log.Logger
	Secrets secrets.Store
	Cache   cache.Store
	// Market 未配置 market.base_url 时为 nil，行情工具返回配置缺失错误
	Market  *market.Client
	Advisor *advisor.Advisor
}

// NewBootstrap 根据配置创建 Bootstrap。LLM 提供商缺失不是启动错误：
// 服务照常启动，流式请求以 500 报告缺失的配置项
func NewBootstrap(ctx context.Context, cfg *config.Config) (*Bootstrap, error) {
	if cfg == nil {
		cfg = &config.Config{}
	}
	logger, err := log.NewLogger(&log.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		File:   cfg.Log.File,
	})
	if err != nil {
		return nil, fmt.Errorf("初始化日志failed: %w", err)
	}

	secretStore, err := secrets.NewStore(cfg.Secrets)
	if err != nil {
		return nil, fmt.Errorf("初始化密钥存储failed: %w", err)
	}

	store, err := cache.NewCache(ctx, cfg.Storage.Cache)
	if err != nil {
		return nil, fmt.Errorf("初始化缓存failed: %w", err)
	}

	var marketClient *market.Client
	if cfg.Market.BaseURL != "" {
		marketClient, err = market.NewClient(market.Config{
			BaseURL:           cfg.Market.BaseURL,
			APIKey:            cfg.Market.APIKey,
			Timeout:           config.ParseDuration(cfg.Market.Timeout, market.DefaultTimeout),
			RetryCount:        cfg.Market.RetryCount,
			RequestsPerMinute: cfg.Market.RequestsPerMinute,
			QuoteTTL:          config.ParseDuration(cfg.Market.QuoteTTL, market.DefaultQuoteTTL),
			CandleTTL:         config.ParseDuration(cfg.Market.CandleTTL, market.DefaultCandleTTL),
		}, store, logger)
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("初始化行情客户端failed: %w", err)
		}
	} else {
		logger.Warn("market.base_url 未配置，行情工具不可用")
	}

	providerName, provider, modelInfo, err := cfg.DefaultProvider()
	if err != nil {
		logger.Warn("默认 LLM 未配置，使用 OpenAI 默认值", "error", err)
		providerName = "openai"
	}

	opts := advisor.Options{
		Provider: provider,
		Model:    modelInfo,
		Secrets:  secretStore,
		MaxSteps: cfg.Advisor.MaxSteps,
		Logger:   logger.With("component", "advisor"),
	}
	// 保持接口为 nil，避免 typed nil
	if marketClient != nil {
		opts.Market = marketClient
	}
	adv := advisor.New(opts)
	logger.Info("advisor 已装配", "provider", providerName, "model", modelInfo.Name, "cache", cfg.Storage.Cache.Type)

	return &Bootstrap{
		Config:  cfg,
		Logger:  logger,
		Secrets: secretStore,
		Cache:   store,
		Market:  marketClient,
		Advisor: adv,
	}, nil
}

// Close 释放缓存连接
func (b *Bootstrap) Close() error {
	if b.Cache != nil {
		return b.Cache.Close()
	}
	return nil
}
