// Package errors 提供统一错误辅助与错误分类，不依赖 internal
package errors

import (
	"errors"
	"fmt"
)

// 常用哨兵错误
var (
	ErrNotFound    = errors.New("not found")
	ErrInvalidArg  = errors.New("invalid argument")
	ErrRateLimited = errors.New("rate_limit_exceeded")
)

// ConfigError 必需的外部配置缺失（如上游 API Key）
type ConfigError struct {
	Setting string
}

// Error 实现 error 接口
func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s is not configured", e.Setting)
}

// NewConfigError 创建配置缺失错误
func NewConfigError(setting string) *ConfigError {
	return &ConfigError{Setting: setting}
}

// IsConfigError 检查是否为配置缺失错误
func IsConfigError(err error) bool {
	var cfgErr *ConfigError
	return errors.As(err, &cfgErr)
}

// AsConfigError 取出错误链中的 *ConfigError
func AsConfigError(err error) (*ConfigError, bool) {
	var cfgErr *ConfigError
	if errors.As(err, &cfgErr) && cfgErr != nil {
		return cfgErr, true
	}
	return nil, false
}

// RequestError 请求体不合法
type RequestError struct {
	Field  string
	Reason string
}

// Error 实现 error 接口
func (e *RequestError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// NewRequestError 创建请求错误
func NewRequestError(field, reason string) *RequestError {
	return &RequestError{Field: field, Reason: reason}
}

// IsRequestError 检查是否为请求错误
func IsRequestError(err error) bool {
	var reqErr *RequestError
	return errors.As(err, &reqErr)
}

// Wrap 包装错误并附加消息
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Wrapf 带格式的 Wrap
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
