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

package secrets

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"fx-advisor/pkg/config"
	apperrors "fx-advisor/pkg/errors"
)

// Store secret 读取接口
type Store interface {
	// Get 获取 secret 值，不存在时返回包装 errors.ErrNotFound 的错误
	Get(ctx context.Context, key string) (string, error)
	// Set 设置 secret 值
	Set(ctx context.Context, key string, value string) error
	// Delete 删除 secret
	Delete(ctx context.Context, key string) error
}

// NewStore 根据配置创建 Store（env | vault | memory）
func NewStore(cfg config.SecretsConfig) (Store, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", "env":
		return NewEnvStore(), nil
	case "memory":
		return NewMemoryStore(), nil
	case "vault":
		return NewVaultStore(VaultConfig{
			Address:    cfg.Vault.Address,
			Token:      cfg.Vault.Token,
			PathPrefix: cfg.Vault.PathPrefix,
		})
	default:
		return nil, fmt.Errorf("unsupported secret provider: %s", cfg.Provider)
	}
}

// Resolve 解析必需的密钥：inline 非空时直接使用，否则到 store 中按 name 查找。
// 两者均缺失时返回 *errors.ConfigError，Setting 为 name；store 读取失败（如 vault 不可达）原样包装返回
func Resolve(ctx context.Context, store Store, inline, name string) (string, error) {
	if v := strings.TrimSpace(inline); v != "" {
		return v, nil
	}
	if name == "" {
		return "", apperrors.NewConfigError("api_key")
	}
	if store == nil {
		return "", apperrors.NewConfigError(name)
	}
	v, err := store.Get(ctx, name)
	if errors.Is(err, apperrors.ErrNotFound) {
		return "", apperrors.NewConfigError(name)
	}
	if err != nil {
		return "", fmt.Errorf("read secret %s: %w", name, err)
	}
	if v = strings.TrimSpace(v); v == "" {
		return "", apperrors.NewConfigError(name)
	}
	return v, nil
}
