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

package api

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	hertzslog "github.com/hertz-contrib/logger/slog"
	"github.com/hertz-contrib/obs-opentelemetry/provider"
	hertztracing "github.com/hertz-contrib/obs-opentelemetry/tracing"

	"fx-advisor/internal/api/http"
	"fx-advisor/internal/api/http/middleware"
	"fx-advisor/internal/app"
	"fx-advisor/internal/stream"
	"fx-advisor/pkg/config"
	"fx-advisor/pkg/log"
	"fx-advisor/pkg/utils"
)

// otelProviderShutdown 用于优雅关闭时关闭 OpenTelemetry provider
type otelProviderShutdown interface {
	Shutdown(ctx context.Context) error
}

// App API 应用（装配 HTTP Router、Handler、Middleware 与流式桥接）
type App struct {
	config       *app.Bootstrap
	bridge       *stream.Bridge
	router       *http.Router
	hertz        *server.Hertz
	otelProvider otelProviderShutdown
}

// NewApp 创建 API 应用
func NewApp(bootstrap *app.Bootstrap) (*App, error) {
	if bootstrap == nil || bootstrap.Config == nil {
		return nil, fmt.Errorf("bootstrap 未初始化")
	}
	cfg := bootstrap.Config

	bridge := stream.NewBridge(bootstrap.Advisor, stream.Options{
		Timeout:   config.ParseDuration(cfg.Advisor.Timeout, stream.DefaultTimeout),
		Heartbeat: config.ParseDuration(cfg.Advisor.Heartbeat, stream.DefaultHeartbeat),
		Logger:    bootstrap.Logger.With("component", "bridge"),
	})

	handler := http.NewHandler(bridge, bootstrap.Advisor, bootstrap.Logger)
	mw := middleware.NewMiddleware(cfg.API.CORS, bootstrap.Logger.With("component", "http"))
	router := http.NewRouter(handler, mw)
	router.SetMetricsEnabled(cfg.Monitoring.Prometheus.Enable)

	if cfg.API.Middleware.Auth {
		if cfg.API.Middleware.JWTKey == "" {
			return nil, fmt.Errorf("api.middleware.auth 已开启但 jwt_key 为空")
		}
		timeout := config.ParseDuration(cfg.API.Middleware.JWTTimeout, 0)
		maxRefresh := config.ParseDuration(cfg.API.Middleware.JWTMaxRefresh, 0)
		jwtAuth, err := middleware.NewJWTAuth([]byte(cfg.API.Middleware.JWTKey), timeout, maxRefresh)
		if err != nil {
			return nil, fmt.Errorf("初始化 JWT 中间件失败: %w", err)
		}
		router.SetJWT(jwtAuth)
		bootstrap.Logger.Info("JWT 认证已启用", "route", http.StreamPath)
	}

	return &App{
		config: bootstrap,
		bridge: bridge,
		router: router,
	}, nil
}

// Run 启动 HTTP 服务，addr 如 ":8080"
func (a *App) Run(addr string) error {
	a.config.Logger.Info("API 服务启动", "addr", addr)
	cfg := a.config.Config

	// 使用 Hertz slog 扩展，与 bootstrap 配置对齐
	output, err := log.Output(&log.Config{File: cfg.Log.File})
	if err != nil {
		return err
	}
	levelVar := &slog.LevelVar{}
	levelVar.Set(log.ParseLevel(cfg.Log.Level))
	hlog.SetLogger(hertzslog.NewLogger(
		hertzslog.WithOutput(output),
		hertzslog.WithLevel(levelVar),
	))

	a.hertz = a.build(addr)
	return a.hertz.Run()
}

// build 按配置创建 Hertz 服务；可选启用链路追踪（OpenTelemetry）
func (a *App) build(addr string) *server.Hertz {
	tracing := a.config.Config.Monitoring.Tracing
	if !tracing.Enable {
		return a.router.Build(addr)
	}
	exportEndpoint := utils.CoalesceString(tracing.ExportEndpoint, os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"))
	if exportEndpoint == "" {
		a.config.Logger.Warn("链路追踪已开启但未配置 export_endpoint，跳过")
		return a.router.Build(addr)
	}
	serviceName := utils.CoalesceString(tracing.ServiceName, "fx-advisor")
	opts := []provider.Option{
		provider.WithServiceName(serviceName),
		provider.WithExportEndpoint(exportEndpoint),
	}
	if tracing.Insecure {
		opts = append(opts, provider.WithInsecure())
	}
	a.otelProvider = provider.NewOpenTelemetryProvider(opts...)
	tracerOpt, tracerCfg := hertztracing.NewServerTracer()
	a.router.Use(hertztracing.ServerMiddleware(tracerCfg))
	a.config.Logger.Info("链路追踪已启用", "service_name", serviceName, "endpoint", exportEndpoint)
	return a.router.Build(addr, tracerOpt)
}

// Shutdown 优雅关闭（传入 ctx 以支持超时，如 cmd 层 WithTimeout）。
// 进行中的流随连接关闭而取消
func (a *App) Shutdown(ctx context.Context) error {
	if a.otelProvider != nil {
		_ = a.otelProvider.Shutdown(ctx)
	}
	if a.hertz != nil {
		if err := a.hertz.Shutdown(ctx); err != nil {
			return err
		}
	}
	return a.config.Close()
}
