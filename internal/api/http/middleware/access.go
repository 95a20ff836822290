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
	"time"

	"github.com/cloudwego/hertz/pkg/app"
)

// AccessLog 记录每个请求的方法、路径、状态码与耗时。
// SSE 响应体在 handler 返回后才写完，这里记录的是响应头发出前的耗时
func (m *Middleware) AccessLog() app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		start := time.Now()
		c.Next(ctx)

		status := c.Response.StatusCode()
		args := []any{
			"request_id", c.GetString(requestIDKey),
			"method", string(c.Method()),
			"path", string(c.Path()),
			"status", status,
			"client_ip", c.ClientIP(),
			"latency", time.Since(start),
		}
		switch {
		case status >= 500:
			m.logger.Error("http request", args...)
		case status >= 400:
			m.logger.Warn("http request", args...)
		default:
			m.logger.Info("http request", args...)
		}
	}
}
