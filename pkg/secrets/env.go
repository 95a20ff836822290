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
	"fmt"
	"os"
	"strings"

	apperrors "fx-advisor/pkg/errors"
)

// envStore 从进程环境读取 LLM 与行情服务的密钥（secrets.provider 为空或 env 时使用）
type envStore struct{}

// NewEnvStore 创建基于环境变量的 secret store
func NewEnvStore() Store {
	return &envStore{}
}

// Get 未设置或只含空白时视为不存在，部署时常见的尾部换行会被去掉
func (e *envStore) Get(ctx context.Context, key string) (string, error) {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return "", fmt.Errorf("environment variable %s: %w", key, apperrors.ErrNotFound)
	}
	return strings.TrimSpace(value), nil
}

func (e *envStore) Set(ctx context.Context, key string, value string) error {
	return os.Setenv(key, value)
}

func (e *envStore) Delete(ctx context.Context, key string) error {
	return os.Unsetenv(key)
}
