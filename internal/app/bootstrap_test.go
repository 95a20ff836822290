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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fx-advisor/pkg/config"
	apperrors "fx-advisor/pkg/errors"
)

func testConfig() *config.Config {
	return &config.Config{
		Secrets: config.SecretsConfig{Provider: "memory"},
		Storage: config.StorageConfig{Cache: config.CacheConfig{Type: "memory"}},
		Log:     config.LogConfig{Level: "error"},
	}
}

func TestNewBootstrap_WithoutMarketOrProvider(t *testing.T) {
	b, err := NewBootstrap(context.Background(), testConfig())
	require.NoError(t, err)
	defer b.Close()

	assert.Nil(t, b.Market)
	require.NotNil(t, b.Advisor)
	require.NotNil(t, b.Cache)

	err = b.Advisor.Ready(context.Background())
	cfgErr, ok := apperrors.AsConfigError(err)
	require.True(t, ok, "Ready error = %v", err)
	assert.Equal(t, "OPENAI_API_KEY", cfgErr.Setting)
}

func TestNewBootstrap_WithMarketAndProvider(t *testing.T) {
	cfg := testConfig()
	cfg.Market.BaseURL = "http://127.0.0.1:1"
	cfg.Model.Defaults.LLM = "openai.fast"
	cfg.Model.LLM.Providers = map[string]config.ProviderConfig{
		"openai": {
			APIKey: "sk-test",
			Models: map[string]config.ModelInfo{"fast": {Name: "gpt-4o-mini"}},
		},
	}

	b, err := NewBootstrap(context.Background(), cfg)
	require.NoError(t, err)
	defer b.Close()

	assert.NotNil(t, b.Market)
	assert.NoError(t, b.Advisor.Ready(context.Background()))
}

func TestNewBootstrap_UnsupportedCache(t *testing.T) {
	cfg := testConfig()
	cfg.Storage.Cache.Type = "memcached"
	_, err := NewBootstrap(context.Background(), cfg)
	assert.Error(t, err)
}

func TestNewBootstrap_UnsupportedSecretsProvider(t *testing.T) {
	cfg := testConfig()
	cfg.Secrets.Provider = "kms"
	_, err := NewBootstrap(context.Background(), cfg)
	assert.Error(t, err)
}
