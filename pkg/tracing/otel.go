// Copyright 2026 fanjia1024
// OpenTelemetry spans for advisor streams and tool calls

package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "fx-advisor"

// StartStreamSpan 为一次 SSE 流创建 span
func StartStreamSpan(ctx context.Context, requestID string, historyLen int) (context.Context, trace.Span) {
	tracer := otel.Tracer(tracerName)
	return tracer.Start(ctx, "advisor.stream",
		trace.WithAttributes(
			attribute.String("request.id", requestID),
			attribute.Int("history.len", historyLen),
		),
	)
}

// StartToolSpan 为一次 Advisor 工具调用创建 span
func StartToolSpan(ctx context.Context, toolName string, symbol string) (context.Context, trace.Span) {
	tracer := otel.Tracer(tracerName)
	return tracer.Start(ctx, "tool.invoke",
		trace.WithAttributes(
			attribute.String("tool.name", toolName),
			attribute.String("market.symbol", symbol),
		),
	)
}

// EndSpan 结束 span，err 非空时记录错误状态
func EndSpan(span trace.Span, outcome string, err error) {
	if outcome != "" {
		span.SetAttributes(attribute.String("stream.outcome", outcome))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
