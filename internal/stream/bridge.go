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
	"fmt"
	"time"

	"go.opentelemetry.io/otel/trace"

	"fx-advisor/pkg/log"
	"fx-advisor/pkg/metrics"
	"fx-advisor/pkg/tracing"
)

// 默认参数
const (
	DefaultTimeout   = 60 * time.Second
	DefaultHeartbeat = 15 * time.Second
	DefaultGrace     = time.Second
)

// EventWriter SSE 输出端，hertz 的 *sse.Writer 实现。每次写入后立即刷新，写入阻塞即为背压
type EventWriter interface {
	WriteEvent(id, eventType string, data []byte) error
	WriteKeepAlive() error
}

// State 桥接状态机：streaming -> terminated 或 streaming -> failed -> terminated
type State int

const (
	StateStreaming State = iota
	StateFailed
	StateTerminated
)

// String 返回状态名
func (s State) String() string {
	switch s {
	case StateStreaming:
		return "streaming"
	case StateFailed:
		return "failed"
	case StateTerminated:
		return "terminated"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Outcome 流的结束方式
type Outcome string

const (
	OutcomeFinal        Outcome = "final"
	OutcomeError        Outcome = "error"
	OutcomeEOF          Outcome = "eof"
	OutcomeDisconnected Outcome = "disconnected"
)

// Result 一次 Run 的结果
type Result struct {
	State   State
	Outcome Outcome
	// Events 成功写出的事件数（不含心跳）
	Events int
	// Err 导致 error 或 disconnected 的原因
	Err error
}

// Request 一次流式分析请求
type Request struct {
	ID       string
	Messages []Message
}

// Options Bridge 参数
type Options struct {
	// Timeout 单次请求的总时长上限，<=0 使用 DefaultTimeout
	Timeout time.Duration
	// Heartbeat 保活注释间隔，0 关闭
	Heartbeat time.Duration
	// Grace 取消后等待流水线退出的上限，<=0 使用 DefaultGrace；超过后 Run 直接返回
	Grace  time.Duration
	Logger *log.Logger
	// Now 时钟，测试中可替换
	Now func() time.Time
}

// Bridge 驱动流水线并把快照写成 SSE 事件。Bridge 无请求间共享的可变状态，可并发使用
type Bridge struct {
	pipeline  Pipeline
	timeout   time.Duration
	heartbeat time.Duration
	grace     time.Duration
	logger    *log.Logger
	now       func() time.Time
}

// NewBridge 创建 Bridge
func NewBridge(pipeline Pipeline, opts Options) *Bridge {
	b := &Bridge{
		pipeline:  pipeline,
		timeout:   opts.Timeout,
		heartbeat: opts.Heartbeat,
		grace:     opts.Grace,
		logger:    opts.Logger,
		now:       opts.Now,
	}
	if b.timeout <= 0 {
		b.timeout = DefaultTimeout
	}
	if b.heartbeat < 0 {
		b.heartbeat = 0
	}
	if b.grace <= 0 {
		b.grace = DefaultGrace
	}
	if b.logger == nil {
		b.logger = log.Nop()
	}
	if b.now == nil {
		b.now = time.Now
	}
	return b
}

// run 单次请求的状态
type run struct {
	b      *Bridge
	w      EventWriter
	logger *log.Logger
	state  State
	events int
}

// Run 截断历史、调用流水线并把事件按产生顺序写入 w，直到终态、失败、序列结束或客户端断开。
// 写入失败视为客户端断开。Run 返回前流水线已被取消；不响应取消的流水线最多再等待 grace
func (b *Bridge) Run(ctx context.Context, req Request, w EventWriter) Result {
	start := time.Now()
	metrics.ActiveStreams.Inc()
	defer metrics.ActiveStreams.Dec()

	history := Truncate(req.Messages)
	ctx, span := tracing.StartStreamSpan(ctx, req.ID, len(history))

	r := &run{
		b:      b,
		w:      w,
		logger: b.logger.With("request_id", req.ID),
		state:  StateStreaming,
	}
	res := r.drive(ctx, history)

	metrics.StreamsTotal.WithLabelValues(string(res.Outcome)).Inc()
	metrics.StreamDuration.Observe(time.Since(start).Seconds())
	r.finish(span, res, time.Since(start))
	return res
}

func (r *run) drive(parent context.Context, history []Message) Result {
	ctx, cancel := context.WithTimeout(parent, r.b.timeout)
	defer cancel()

	seq, err := r.b.pipeline.Stream(ctx, Input{Messages: history, Streaming: true})
	if err != nil {
		if parent.Err() != nil {
			return r.disconnected(parent.Err())
		}
		return r.fail(err)
	}
	defer r.release(seq)

	var heartbeat <-chan time.Time
	if r.b.heartbeat > 0 {
		ticker := time.NewTicker(r.b.heartbeat)
		defer ticker.Stop()
		heartbeat = ticker.C
	}

	items := seq.Items()
	for {
		select {
		case <-ctx.Done():
			return r.interrupted(parent, ctx)

		case <-heartbeat:
			if err := r.w.WriteKeepAlive(); err != nil {
				return r.disconnected(err)
			}

		case item, ok := <-items:
			if ctx.Err() != nil {
				return r.interrupted(parent, ctx)
			}
			if !ok {
				return r.terminate(OutcomeEOF, nil)
			}
			if item.Err != nil {
				return r.fail(item.Err)
			}
			terminal, err := r.process(item.Snapshot)
			if err != nil {
				if wErr, isWrite := err.(*writeError); isWrite {
					return r.disconnected(wErr.err)
				}
				return r.fail(err)
			}
			if terminal {
				return r.terminate(OutcomeFinal, nil)
			}
		}
	}
}

type writeError struct{ err error }

func (e *writeError) Error() string { return e.err.Error() }

// process 分类、编码并立即写出一个快照
func (r *run) process(snap *Snapshot) (terminal bool, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("process snapshot: %v", p)
		}
	}()
	c := Classify(snap)
	ev := r.b.eventFor(c, snap)
	if err := r.write(ev); err != nil {
		return false, &writeError{err: err}
	}
	r.logger.Debug("advisor event", "type", ev.Type, "agent", ev.Agent, "status", ev.Status)
	return c.Terminal, nil
}

func (b *Bridge) eventFor(c Classification, snap *Snapshot) AgentEvent {
	var data map[string]any
	if snap != nil {
		data = snap.Data
	}
	if c.Terminal {
		return NewAgentEvent(EventFinal, c.Agent, StatusWorking, c.Message, data, b.now())
	}
	status := StatusWorking
	if c.Kind == KindRouting {
		status = StatusRouting
	}
	return NewAgentEvent(EventAgent, c.Agent, status, c.Message, data, b.now())
}

func (r *run) write(ev AgentEvent) error {
	if err := r.w.WriteEvent("", "", Marshal(ev)); err != nil {
		return err
	}
	r.events++
	metrics.StreamEventsTotal.WithLabelValues(string(ev.Type)).Inc()
	return nil
}

// release 取消流水线并在 grace 内等待其退出
func (r *run) release(seq *Sequence) {
	seq.Cancel()
	timer := time.NewTimer(r.b.grace)
	defer timer.Stop()
	select {
	case <-seq.Done():
	case <-timer.C:
		r.logger.Warn("advisor pipeline still running after cancel", "grace", r.b.grace)
	}
}

// interrupted 区分客户端断开与总时长超时
func (r *run) interrupted(parent, ctx context.Context) Result {
	if err := parent.Err(); err != nil {
		return r.disconnected(err)
	}
	return r.fail(fmt.Errorf("advisor stream timeout after %s: %w", r.b.timeout, ctx.Err()))
}

// fail 进入 failed，写出唯一的 error 事件后终止
func (r *run) fail(err error) Result {
	r.state = StateFailed
	metrics.StreamErrorsTotal.WithLabelValues(string(CategoryOf(err))).Inc()
	if wErr := r.write(NewErrorEvent(Translate(err), r.b.now())); wErr != nil {
		return r.terminate(OutcomeDisconnected, err)
	}
	return r.terminate(OutcomeError, err)
}

// disconnected 客户端已断开：不再写任何内容
func (r *run) disconnected(err error) Result {
	metrics.StreamErrorsTotal.WithLabelValues(string(CategoryClientDisconnected)).Inc()
	return r.terminate(OutcomeDisconnected, err)
}

func (r *run) terminate(outcome Outcome, err error) Result {
	r.state = StateTerminated
	return Result{State: r.state, Outcome: outcome, Events: r.events, Err: err}
}

func (r *run) finish(span trace.Span, res Result, elapsed time.Duration) {
	var spanErr error
	if res.Outcome == OutcomeError {
		spanErr = res.Err
	}
	tracing.EndSpan(span, string(res.Outcome), spanErr)

	switch res.Outcome {
	case OutcomeError:
		r.logger.Warn("advisor stream failed",
			"events", res.Events, "category", CategoryOf(res.Err), "error", res.Err, "duration", elapsed)
	case OutcomeDisconnected:
		r.logger.Info("advisor stream disconnected", "events", res.Events, "duration", elapsed)
	default:
		r.logger.Info("advisor stream finished", "outcome", res.Outcome, "events", res.Events, "duration", elapsed)
	}
}
