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

package stream

import (
	"context"
	"errors"
	"fmt"
	"strings"

	apperrors "fx-advisor/pkg/errors"
)

// 面向用户的固定错误文案
const (
	RateLimitMessage    = "Rate limit exceeded. Please start a new chat or wait a moment before trying again."
	TimeoutMessage      = "Request timed out. Please try again with a simpler query."
	UnknownErrorMessage = "Unknown error"
)

// Category 错误分类，用于日志与指标
type Category string

const (
	CategoryConfiguration      Category = "configuration"
	CategoryInvalidRequest     Category = "invalid_request"
	CategoryRateLimited        Category = "rate_limited"
	CategoryTimeout            Category = "timeout"
	CategoryGeneric            Category = "generic"
	CategoryClientDisconnected Category = "client_disconnected"
)

// Translate 将任意失败映射为可展示的文案（按顺序首个匹配），不会 panic
func Translate(err error) string {
	if err == nil {
		return UnknownErrorMessage
	}
	var cfgErr *apperrors.ConfigError
	if errors.As(err, &cfgErr) && cfgErr != nil {
		return cfgErr.Error()
	}
	text := errorText(err)
	if isRateLimited(err, text) {
		return RateLimitMessage
	}
	if isTimeout(err, text) {
		return TimeoutMessage
	}
	if text == "" {
		return UnknownErrorMessage
	}
	return text
}

// CategoryOf 返回错误所属分类
func CategoryOf(err error) Category {
	if err == nil {
		return CategoryGeneric
	}
	text := errorText(err)
	switch {
	case apperrors.IsConfigError(err):
		return CategoryConfiguration
	case apperrors.IsRequestError(err):
		return CategoryInvalidRequest
	case errors.Is(err, context.Canceled):
		return CategoryClientDisconnected
	case isRateLimited(err, text):
		return CategoryRateLimited
	case isTimeout(err, text):
		return CategoryTimeout
	default:
		return CategoryGeneric
	}
}

func isRateLimited(err error, text string) bool {
	return errors.Is(err, apperrors.ErrRateLimited) ||
		strings.Contains(text, "rate_limit_exceeded") ||
		strings.Contains(text, "413")
}

func isTimeout(err error, text string) bool {
	return errors.Is(err, context.DeadlineExceeded) ||
		strings.Contains(strings.ToLower(text), "timeout")
}

// errorText 读取 err.Error()，Error 方法 panic 时退回类型名
func errorText(err error) (text string) {
	defer func() {
		if r := recover(); r != nil {
			text = fmt.Sprintf("%T", err)
		}
	}()
	return err.Error()
}
