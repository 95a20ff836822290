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
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/cloudwego/hertz/pkg/protocol/sse"

	"fx-advisor/internal/api/http/middleware"
	"fx-advisor/internal/stream"
	apperrors "fx-advisor/pkg/errors"
	"fx-advisor/pkg/log"
	"fx-advisor/pkg/metrics"
)

// Readiness 检查流水线依赖的外部配置是否就绪，*advisor.Advisor 实现
type Readiness interface {
	Ready(ctx context.Context) error
}

// Handler HTTP 处理器
type Handler struct {
	bridge *stream.Bridge
	ready  Readiness
	logger *log.Logger
}

// NewHandler 创建新的 HTTP 处理器；ready 为 nil 时不做就绪检查
func NewHandler(bridge *stream.Bridge, ready Readiness, logger *log.Logger) *Handler {
	if logger == nil {
		logger = log.Nop()
	}
	return &Handler{bridge: bridge, ready: ready, logger: logger}
}

// HealthCheck 健康检查
func (h *Handler) HealthCheck(ctx context.Context, c *app.RequestContext) {
	advisor := "ready"
	if h.ready != nil {
		if err := h.ready.Ready(ctx); err != nil {
			advisor = "unavailable"
			if apperrors.IsConfigError(err) {
				advisor = "unconfigured"
			}
		}
	}
	c.JSON(consts.StatusOK, map[string]interface{}{
		"status":    "ok",
		"advisor":   advisor,
		"timestamp": time.Now().Unix(),
		"service":   "fx-advisor",
	})
}

// Metrics 以 Prometheus 文本格式输出指标
func (h *Handler) Metrics(ctx context.Context, c *app.RequestContext) {
	var buf bytes.Buffer
	if err := metrics.WritePrometheus(&buf); err != nil {
		c.JSON(consts.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	c.Data(consts.StatusOK, "text/plain; version=0.0.4; charset=utf-8", buf.Bytes())
}

// AdvisorStream POST /api/advisor/stream：校验配置与请求体后以 SSE 推送分析事件。
// 响应头发出后的所有失败都以 error 事件告知，不再改变状态码
func (h *Handler) AdvisorStream(ctx context.Context, c *app.RequestContext) {
	requestID := middleware.RequestIDFrom(c)

	if h.ready != nil {
		if err := h.ready.Ready(ctx); err != nil {
			metrics.StreamErrorsTotal.WithLabelValues(string(stream.CategoryOf(err))).Inc()
			h.logger.Error("advisor not ready", "request_id", requestID, "error", err)
			c.JSON(consts.StatusInternalServerError, configErrorBody(err))
			return
		}
	}

	messages, err := stream.ParseRequest(c.Request.Body())
	if err != nil {
		metrics.StreamErrorsTotal.WithLabelValues(string(stream.CategoryInvalidRequest)).Inc()
		c.JSON(consts.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	c.SetStatusCode(consts.StatusOK)
	c.Response.Header.Set("Connection", "keep-alive")
	c.Response.Header.Set("X-Accel-Buffering", "no")
	c.Response.Header.Set(middleware.RequestIDHeader, requestID)

	// 每个事件写出后立即 flush；连接写失败或 ctx 因客户端断开取消时 Run 返回
	w := sse.NewWriter(c)
	h.bridge.Run(ctx, stream.Request{ID: requestID, Messages: messages}, w)
}

// configErrorBody 500 响应体：error 为可展示文案，details 给出处理提示
func configErrorBody(err error) map[string]string {
	if cfgErr, ok := apperrors.AsConfigError(err); ok {
		return map[string]string{
			"error":   stream.Translate(err),
			"details": fmt.Sprintf("set %s in the environment or the configured secret store", cfgErr.Setting),
		}
	}
	return map[string]string{
		"error":   "advisor is not available",
		"details": stream.Translate(err),
	}
}
