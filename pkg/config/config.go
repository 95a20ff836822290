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

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 应用配置结构体
type Config struct {
	API        APIConfig        `mapstructure:"api"`
	Advisor    AdvisorConfig    `mapstructure:"advisor"`
	Model      ModelConfig      `mapstructure:"model"`
	Market     MarketConfig     `mapstructure:"market"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Secrets    SecretsConfig    `mapstructure:"secrets"`
	Log        LogConfig        `mapstructure:"log"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
}

// APIConfig API 服务配置
type APIConfig struct {
	Port       int              `mapstructure:"port"`
	Host       string           `mapstructure:"host"`
	CORS       CORSConfig       `mapstructure:"cors"`
	Middleware MiddlewareConfig `mapstructure:"middleware"`
}

// CORSConfig CORS 配置
type CORSConfig struct {
	Enable       bool     `mapstructure:"enable"`
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// MiddlewareConfig 中间件配置
type MiddlewareConfig struct {
	Auth          bool   `mapstructure:"auth"`
	JWTKey        string `mapstructure:"jwt_key"`
	JWTTimeout    string `mapstructure:"jwt_timeout"`     // 如 "1h"
	JWTMaxRefresh string `mapstructure:"jwt_max_refresh"` // 如 "1h"
}

// AdvisorConfig 流式分析桥接配置
type AdvisorConfig struct {
	Timeout   string `mapstructure:"timeout"`   // 单次流式请求的总时长上限，如 "60s"
	Heartbeat string `mapstructure:"heartbeat"` // 等待快照期间的保活注释间隔，"0" 关闭
	MaxSteps  int    `mapstructure:"max_steps"` // Agent 图单次运行的最大迭代次数，<=0 使用默认
}

// ModelConfig 模型配置
type ModelConfig struct {
	LLM      LLMConfig      `mapstructure:"llm"`
	Defaults DefaultsConfig `mapstructure:"defaults"`
}

// LLMConfig LLM 模型配置
type LLMConfig struct {
	Providers map[string]ProviderConfig `mapstructure:"providers"`
}

// ProviderConfig 模型提供商配置
type ProviderConfig struct {
	APIKey     string               `mapstructure:"api_key"`
	APIKeyName string               `mapstructure:"api_key_name"` // api_key 为空时到 secrets 中查找的键名，如 OPENAI_API_KEY
	BaseURL    string               `mapstructure:"base_url"`
	Models     map[string]ModelInfo `mapstructure:"models"`
}

// ModelInfo 模型信息
type ModelInfo struct {
	Name        string  `mapstructure:"name"`
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
}

// DefaultsConfig 默认模型配置
type DefaultsConfig struct {
	LLM string `mapstructure:"llm"` // provider.model_key，如 openai.gpt_4o
}

// MarketConfig 行情数据源配置
type MarketConfig struct {
	BaseURL           string  `mapstructure:"base_url"`
	APIKey            string  `mapstructure:"api_key"`
	Timeout           string  `mapstructure:"timeout"`
	RetryCount        int     `mapstructure:"retry_count"`
	RequestsPerMinute float64 `mapstructure:"requests_per_minute"`
	QuoteTTL          string  `mapstructure:"quote_ttl"`  // 报价缓存时长，如 "30s"
	CandleTTL         string  `mapstructure:"candle_ttl"` // K 线缓存时长，如 "5m"
}

// StorageConfig 存储配置
type StorageConfig struct {
	Cache CacheConfig `mapstructure:"cache"`
}

// CacheConfig 缓存配置
type CacheConfig struct {
	Type      string `mapstructure:"type"` // memory | redis
	Addr      string `mapstructure:"addr"`
	DB        int    `mapstructure:"db"`
	Password  string `mapstructure:"password"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// SecretsConfig 密钥存储配置
type SecretsConfig struct {
	Provider string      `mapstructure:"provider"` // env | vault | memory
	Vault    VaultConfig `mapstructure:"vault"`
}

// VaultConfig Vault 连接配置
type VaultConfig struct {
	Address    string `mapstructure:"address"`
	Token      string `mapstructure:"token"`
	PathPrefix string `mapstructure:"path_prefix"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// MonitoringConfig 监控配置
type MonitoringConfig struct {
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
	Tracing    TracingConfig    `mapstructure:"tracing"`
}

// TracingConfig 链路追踪配置（OpenTelemetry）
type TracingConfig struct {
	Enable         bool   `mapstructure:"enable"`
	ServiceName    string `mapstructure:"service_name"`
	ExportEndpoint string `mapstructure:"export_endpoint"`
	Insecure       bool   `mapstructure:"insecure"`
}

// PrometheusConfig Prometheus 配置
type PrometheusConfig struct {
	Enable bool `mapstructure:"enable"`
}

// setDefaults 填充缺省值，配置文件未写的键使用这些值
func setDefaults(v *viper.Viper) {
	v.SetDefault("api.port", 8080)
	v.SetDefault("advisor.timeout", "60s")
	v.SetDefault("advisor.heartbeat", "15s")
	v.SetDefault("advisor.max_steps", 12)
	v.SetDefault("market.timeout", "10s")
	v.SetDefault("market.retry_count", 2)
	v.SetDefault("market.requests_per_minute", 120)
	v.SetDefault("market.quote_ttl", "30s")
	v.SetDefault("market.candle_ttl", "5m")
	v.SetDefault("storage.cache.type", "memory")
	v.SetDefault("storage.cache.key_prefix", "fx-advisor:")
	v.SetDefault("secrets.provider", "env")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("monitoring.prometheus.enable", true)
}

// LoadConfig 加载配置文件
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(configPath)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("无法读取配置文件: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("无法解析配置文件: %w", err)
	}

	replaceEnvVars(&config)
	return &config, nil
}

// LoadAPIConfig 加载 API 配置（configs/api.yaml，可用 FX_ADVISOR_CONFIG 覆盖路径）
func LoadAPIConfig() (*Config, error) {
	path := "configs/api.yaml"
	if p := os.Getenv("FX_ADVISOR_CONFIG"); p != "" {
		path = p
	}
	return LoadConfig(path)
}

// replaceEnvVars 替换配置中 ${VAR} 形式的密钥占位；环境变量未设置时置空，交由 secrets 解析
func replaceEnvVars(config *Config) {
	for provider, providerConfig := range config.Model.LLM.Providers {
		providerConfig.APIKey = expandSecret(providerConfig.APIKey)
		config.Model.LLM.Providers[provider] = providerConfig
	}
	config.Market.BaseURL = expandSecret(config.Market.BaseURL)
	config.Market.APIKey = expandSecret(config.Market.APIKey)
	config.Secrets.Vault.Token = expandSecret(config.Secrets.Vault.Token)
}

func expandSecret(raw string) string {
	if !strings.HasPrefix(raw, "$") {
		return raw
	}
	envVar := strings.TrimPrefix(strings.TrimSuffix(raw, "}"), "${")
	envVar = strings.TrimPrefix(envVar, "$")
	return os.Getenv(envVar)
}

// DefaultProvider 解析 Defaults.LLM（provider.model_key），返回提供商配置与模型信息
func (c *Config) DefaultProvider() (string, ProviderConfig, ModelInfo, error) {
	provider, modelKey, err := ParseDefaultKey(c.Model.Defaults.LLM)
	if err != nil {
		return "", ProviderConfig{}, ModelInfo{}, err
	}
	pc, ok := c.Model.LLM.Providers[provider]
	if !ok {
		return "", ProviderConfig{}, ModelInfo{}, fmt.Errorf("LLM provider %q not configured", provider)
	}
	mi, ok := pc.Models[modelKey]
	if !ok {
		return "", ProviderConfig{}, ModelInfo{}, fmt.Errorf("LLM model %q not configured in provider %q", modelKey, provider)
	}
	return provider, pc, mi, nil
}

// ParseDefaultKey 拆分 provider.model_key
func ParseDefaultKey(key string) (provider, modelKey string, err error) {
	parts := strings.SplitN(key, ".", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("default key 格式应为 provider.model_key，如 openai.gpt_4o，当前: %q", key)
	}
	return parts[0], parts[1], nil
}

// ParseDuration 解析时长字符串，无效或空时返回 defaultVal；"0" 返回 0
func ParseDuration(s string, defaultVal time.Duration) time.Duration {
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return defaultVal
	}
	return d
}
