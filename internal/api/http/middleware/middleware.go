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

package middleware

import (
	"context"
	"strings"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/google/uuid"

	"fx-advisor/pkg/config"
	"fx-advisor/pkg/log"
)

// RequestIDHeader 请求 ID 的请求/响应头
const RequestIDHeader = "X-Request-Id"

// requestIDKey RequestContext 中保存请求 ID 的键
const requestIDKey = "request_id"

// Middleware 中间件管理器
type Middleware struct {
	cors   config.CORSConfig
	logger *log.Logger
}

// NewMiddleware 创建新的中间件管理器，logger 为 nil 时不输出访问日志
func NewMiddleware(cors config.CORSConfig, logger *log.Logger) *Middleware {
	if logger == nil {
		logger = log.Nop()
	}
	return &Middleware{cors: cors, logger: logger}
}

// RequestID 透传或生成请求 ID，写入响应头并保存到 RequestContext
func (m *Middleware) RequestID() app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		id := strings.TrimSpace(string(c.GetHeader(RequestIDHeader)))
		if id == "" || len(id) > 128 {
			id = uuid.New().String()
		}
		c.Set(requestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next(ctx)
	}
}

// RequestIDFrom 读取 RequestID 中间件设置的请求 ID，未经过该中间件时新生成一个
func RequestIDFrom(c *app.RequestContext) string {
	if id := c.GetString(requestIDKey); id != "" {
		return id
	}
	return uuid.New().String()
}

// CORS 跨域中间件；未启用时直接放行
func (m *Middleware) CORS() app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		if !m.cors.Enable {
			c.Next(ctx)
			return
		}
		origin := string(c.GetHeader("Origin"))
		if allowed := m.allowOrigin(origin); allowed != "" {
			c.Header("Access-Control-Allow-Origin", allowed)
			c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-Request-Id")
			c.Header("Access-Control-Expose-Headers", "X-Request-Id")
			c.Header("Access-Control-Max-Age", "86400")
			if allowed != "*" {
				c.Header("Vary", "Origin")
			}
		}
		if string(c.Method()) == consts.MethodOptions {
			c.AbortWithStatus(consts.StatusNoContent)
			return
		}
		c.Next(ctx)
	}
}

// allowOrigin 返回应写入 Allow-Origin 的值；列表为空或含 * 时允许任意来源
func (m *Middleware) allowOrigin(origin string) string {
	if len(m.cors.AllowOrigins) == 0 {
		return "*"
	}
	for _, o := range m.cors.AllowOrigins {
		if o == "*" {
			return "*"
		}
		if origin != "" && strings.EqualFold(o, origin) {
			return origin
		}
	}
	return ""
}
