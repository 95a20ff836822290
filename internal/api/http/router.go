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

package http

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/middlewares/server/recovery"
	"github.com/cloudwego/hertz/pkg/app/server"
	hertzconfig "github.com/cloudwego/hertz/pkg/common/config"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/hertz-contrib/jwt"

	"fx-advisor/internal/api/http/middleware"
)

// StreamPath 流式分析接口路径
const StreamPath = "/api/advisor/stream"

// Router HTTP 路由器
type Router struct {
	handler    *Handler
	middleware *middleware.Middleware
	jwt        *jwt.HertzJWTMiddleware
	metrics    bool
	extra      []app.HandlerFunc
}

// NewRouter 创建新的路由器
func NewRouter(handler *Handler, mw *middleware.Middleware) *Router {
	return &Router{handler: handler, middleware: mw, metrics: true}
}

// SetJWT 设置 JWT 中间件；设置后流式接口需要 Bearer token
func (r *Router) SetJWT(j *jwt.HertzJWTMiddleware) {
	r.jwt = j
}

// Use 追加全局中间件（如链路追踪），在 Build 时先于路由注册
func (r *Router) Use(handlers ...app.HandlerFunc) {
	r.extra = append(r.extra, handlers...)
}

// SetMetricsEnabled 是否暴露 /metrics
func (r *Router) SetMetricsEnabled(enabled bool) {
	r.metrics = enabled
}

// Build 创建 Hertz 服务并注册路由。开启客户端断连感知，使流式请求的 ctx 在连接关闭时取消
func (r *Router) Build(addr string, opts ...hertzconfig.Option) *server.Hertz {
	opts = append([]hertzconfig.Option{
		server.WithHostPorts(addr),
		server.WithSenseClientDisconnection(true),
	}, opts...)
	h := server.New(opts...)

	h.Use(
		recovery.Recovery(),
		r.middleware.RequestID(),
		r.middleware.AccessLog(),
		r.middleware.CORS(),
	)
	if len(r.extra) > 0 {
		h.Use(r.extra...)
	}

	h.GET("/api/health", r.handler.HealthCheck)
	if r.metrics {
		h.GET("/metrics", r.handler.Metrics)
	}

	// 预检请求不经过 JWT
	h.OPTIONS(StreamPath, func(ctx context.Context, c *app.RequestContext) {
		c.Status(consts.StatusNoContent)
	})

	advisor := h.Group("/api/advisor")
	if r.jwt != nil {
		advisor.Use(r.jwt.MiddlewareFunc())
	}
	advisor.POST("/stream", r.handler.AdvisorStream)

	return h
}
