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
	"encoding/json"
	"errors"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cloudwego/hertz/pkg/app/client"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/ut"
	"github.com/cloudwego/hertz/pkg/network/standard"
	"github.com/cloudwego/hertz/pkg/protocol"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fx-advisor/internal/api/http/middleware"
	"fx-advisor/internal/stream"
	"fx-advisor/pkg/config"
	apperrors "fx-advisor/pkg/errors"
)

// fakeReadiness 固定返回 err
type fakeReadiness struct{ err error }

func (f fakeReadiness) Ready(ctx context.Context) error { return f.err }

// scriptedPipeline 记录收到的历史并依次交付预置快照
type scriptedPipeline struct {
	mu        sync.Mutex
	got       []stream.Message
	snapshots []*stream.Snapshot
}

func (p *scriptedPipeline) Stream(ctx context.Context, in stream.Input) (*stream.Sequence, error) {
	p.mu.Lock()
	p.got = in.Messages
	p.mu.Unlock()
	return stream.FromSnapshots(ctx, p.snapshots...), nil
}

func (p *scriptedPipeline) history() []stream.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.got
}

func eurUsdSnapshots() []*stream.Snapshot {
	user := stream.SnapshotMessage{Role: stream.RoleUser, Content: "Analyze EUR/USD"}
	routing := stream.SnapshotMessage{Role: stream.RoleAssistant, Content: "[Routing to Technical Analyst] price action and indicators"}
	answer := stream.SnapshotMessage{Role: stream.RoleAssistant, Content: "EUR/USD is consolidating near 1.08."}
	return []*stream.Snapshot{
		{Messages: []stream.SnapshotMessage{user, routing}, Next: "technical"},
		{Messages: []stream.SnapshotMessage{user, routing, answer}, Next: stream.End},
	}
}

func newTestRouter(p stream.Pipeline, ready Readiness) *Router {
	bridge := stream.NewBridge(p, stream.Options{})
	return NewRouter(NewHandler(bridge, ready, nil), middleware.NewMiddleware(config.CORSConfig{}, nil))
}

func newTestServer(p stream.Pipeline, ready Readiness) *server.Hertz {
	return newTestRouter(p, ready).Build(":0")
}

// liveServer 监听真实端口；SSE 响应由连接上的分块写出产生，ut.PerformRequest 无法承载
type liveServer struct {
	base   string
	engine *server.Hertz
}

func startServer(t *testing.T, r *Router) *liveServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	h := r.Build(ln.Addr().String(), server.WithListener(ln), server.WithTransport(standard.NewTransporter))
	go func() { _ = h.Run() }()
	require.Eventually(t, h.IsRunning, 2*time.Second, 5*time.Millisecond)
	t.Cleanup(func() { _ = h.Close() })
	return &liveServer{base: "http://" + ln.Addr().String(), engine: h}
}

func (s *liveServer) post(t *testing.T, path, body string, headers map[string]string) *protocol.Response {
	t.Helper()
	c, err := client.NewClient()
	require.NoError(t, err)
	req, resp := protocol.AcquireRequest(), protocol.AcquireResponse()
	defer protocol.ReleaseRequest(req)
	req.SetRequestURI(s.base + path)
	req.SetMethod(consts.MethodPost)
	req.Header.SetContentTypeBytes([]byte("application/json"))
	req.SetBodyString(body)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	require.NoError(t, c.Do(context.Background(), req, resp))
	return resp
}

func postStream(s *server.Hertz, body string, headers ...ut.Header) *ut.ResponseRecorder {
	b := []byte(body)
	return ut.PerformRequest(s.Engine, "POST", StreamPath, &ut.Body{Body: bytes.NewReader(b), Len: len(b)}, headers...)
}

func decodeEvents(t *testing.T, body []byte) []stream.AgentEvent {
	t.Helper()
	var out []stream.AgentEvent
	for _, frame := range stream.SplitFrames(body) {
		ev, err := stream.Decode(frame)
		require.NoError(t, err)
		out = append(out, ev)
	}
	return out
}

func TestHealthCheck(t *testing.T) {
	s := newTestServer(&scriptedPipeline{}, nil)
	w := ut.PerformRequest(s.Engine, "GET", "/api/health", &ut.Body{Body: bytes.NewReader(nil), Len: 0})
	resp := w.Result()
	if resp.StatusCode() != 200 {
		t.Errorf("HealthCheck status: got %d", resp.StatusCode())
	}
	if !bytes.Contains(resp.Body(), []byte("ok")) {
		t.Errorf("HealthCheck body: %s", resp.Body())
	}
}

func TestHealthCheck_ReportsUnconfiguredAdvisor(t *testing.T) {
	s := newTestServer(&scriptedPipeline{}, fakeReadiness{err: apperrors.NewConfigError("OPENAI_API_KEY")})
	w := ut.PerformRequest(s.Engine, "GET", "/api/health", &ut.Body{Body: bytes.NewReader(nil), Len: 0})
	resp := w.Result()
	assert.Equal(t, 200, resp.StatusCode())

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(resp.Body(), &body))
	assert.Equal(t, "unconfigured", body["advisor"])
}

func TestHealthCheck_ReportsUnavailableSecretStore(t *testing.T) {
	s := newTestServer(&scriptedPipeline{}, fakeReadiness{err: errors.New("read secret OPENAI_API_KEY: permission denied")})
	w := ut.PerformRequest(s.Engine, "GET", "/api/health", &ut.Body{Body: bytes.NewReader(nil), Len: 0})

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Result().Body(), &body))
	assert.Equal(t, "unavailable", body["advisor"])
}

func TestAdvisorStream_SecretStoreFailure(t *testing.T) {
	s := newTestServer(&scriptedPipeline{}, fakeReadiness{err: errors.New("read secret OPENAI_API_KEY: permission denied")})

	resp := postStream(s, streamBody).Result()
	require.Equal(t, 500, resp.StatusCode())
	var body map[string]string
	require.NoError(t, json.Unmarshal(resp.Body(), &body))
	assert.Equal(t, "advisor is not available", body["error"])
	assert.Contains(t, body["details"], "permission denied")
}

func TestAdvisorStream_MissingAPIKey(t *testing.T) {
	p := &scriptedPipeline{snapshots: eurUsdSnapshots()}
	s := newTestServer(p, fakeReadiness{err: apperrors.NewConfigError("OPENAI_API_KEY")})

	w := postStream(s, `{"messages":[{"role":"user","content":"Analyze EUR/USD"}]}`)
	resp := w.Result()
	require.Equal(t, 500, resp.StatusCode())

	var body map[string]string
	require.NoError(t, json.Unmarshal(resp.Body(), &body))
	assert.Equal(t, "OPENAI_API_KEY is not configured", body["error"])
	assert.Contains(t, body["details"], "OPENAI_API_KEY")
	assert.Nil(t, p.history(), "pipeline must not run when configuration is missing")
}

func TestAdvisorStream_InvalidBody(t *testing.T) {
	s := newTestServer(&scriptedPipeline{snapshots: eurUsdSnapshots()}, nil)

	cases := []struct {
		name string
		body string
	}{
		{"empty", ``},
		{"not json", `messages please`},
		{"missing messages", `{}`},
		{"messages not array", `{"messages":"Analyze EUR/USD"}`},
		{"bad role", `{"messages":[{"role":"system","content":"x"}]}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := postStream(s, tc.body).Result()
			assert.Equal(t, 400, resp.StatusCode())
			var body map[string]string
			require.NoError(t, json.Unmarshal(resp.Body(), &body))
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestAdvisorStream_StreamsEvents(t *testing.T) {
	p := &scriptedPipeline{snapshots: eurUsdSnapshots()}
	s := startServer(t, newTestRouter(p, fakeReadiness{}))

	resp := s.post(t, StreamPath, `{"messages":[{"role":"user","content":"Analyze EUR/USD"}]}`,
		map[string]string{middleware.RequestIDHeader: "req-42"})
	require.Equal(t, 200, resp.StatusCode())
	assert.True(t, strings.HasPrefix(string(resp.Header.ContentType()), "text/event-stream"), string(resp.Header.ContentType()))
	assert.Equal(t, "no-cache", resp.Header.Get("Cache-Control"))
	assert.Equal(t, "no", resp.Header.Get("X-Accel-Buffering"))
	assert.Equal(t, "req-42", resp.Header.Get(middleware.RequestIDHeader))

	events := decodeEvents(t, resp.Body())
	require.Len(t, events, 2)
	assert.Equal(t, stream.EventAgent, events[0].Type)
	assert.Equal(t, "Technical Analyst", events[0].Agent)
	assert.Equal(t, stream.StatusRouting, events[0].Status)
	assert.Equal(t, "price action and indicators", events[0].Message)
	assert.Equal(t, stream.EventFinal, events[1].Type)
	assert.Equal(t, "EUR/USD is consolidating near 1.08.", events[1].Message)
}

func TestAdvisorStream_TruncatesHistory(t *testing.T) {
	p := &scriptedPipeline{snapshots: eurUsdSnapshots()}
	s := startServer(t, newTestRouter(p, nil))

	var msgs []string
	for i := 0; i < 10; i++ {
		role := stream.RoleUser
		if i%2 == 1 {
			role = stream.RoleAssistant
		}
		msgs = append(msgs, `{"role":"`+role+`","content":"m`+string(rune('0'+i))+`"}`)
	}
	resp := s.post(t, StreamPath, `{"messages":[`+strings.Join(msgs, ",")+`]}`, nil)
	require.Equal(t, 200, resp.StatusCode())
	require.Len(t, decodeEvents(t, resp.Body()), 2)

	got := p.history()
	require.Len(t, got, stream.HistoryWindow)
	assert.Equal(t, "m4", got[0].Content)
	assert.Equal(t, "m9", got[5].Content)
}

func TestAdvisorStream_EmptyMessagesGetsErrorEvent(t *testing.T) {
	p := stream.PipelineFunc(func(ctx context.Context, in stream.Input) (*stream.Sequence, error) {
		return stream.NewSequence(ctx, func(ctx context.Context, emit stream.EmitFunc) error {
			if len(in.Messages) == 0 {
				return apperrors.NewRequestError("messages", "no user message to analyze")
			}
			return nil
		}), nil
	})
	s := startServer(t, newTestRouter(p, nil))

	resp := s.post(t, StreamPath, `{"messages":[]}`, nil)
	require.Equal(t, 200, resp.StatusCode())
	events := decodeEvents(t, resp.Body())
	require.Len(t, events, 1)
	assert.Equal(t, stream.EventError, events[0].Type)
	assert.Contains(t, events[0].Error, "no user message")
}

func TestMetricsEndpoint(t *testing.T) {
	s := startServer(t, newTestRouter(&scriptedPipeline{snapshots: eurUsdSnapshots()}, nil))
	_ = s.post(t, StreamPath, `{"messages":[{"role":"user","content":"Analyze EUR/USD"}]}`, nil).Body()

	w := ut.PerformRequest(s.engine.Engine, "GET", "/metrics", &ut.Body{Body: bytes.NewReader(nil), Len: 0})
	resp := w.Result()
	require.Equal(t, 200, resp.StatusCode())
	assert.Contains(t, string(resp.Body()), "advisor_streams_total")
}

// slowPipeline 先交付一条路由快照，之后直到 ctx 取消都不再交付
func slowPipeline(stopped chan<- struct{}) stream.Pipeline {
	return stream.PipelineFunc(func(ctx context.Context, in stream.Input) (*stream.Sequence, error) {
		return stream.NewSequence(ctx, func(ctx context.Context, emit stream.EmitFunc) error {
			defer close(stopped)
			if err := emit(eurUsdSnapshots()[0]); err != nil {
				return err
			}
			<-ctx.Done()
			return ctx.Err()
		}), nil
	})
}

func TestAdvisorStream_TimeoutEndsConnection(t *testing.T) {
	stopped := make(chan struct{})
	bridge := stream.NewBridge(slowPipeline(stopped), stream.Options{Timeout: 50 * time.Millisecond})
	r := NewRouter(NewHandler(bridge, nil, nil), middleware.NewMiddleware(config.CORSConfig{}, nil))
	s := startServer(t, r)

	start := time.Now()
	resp := s.post(t, StreamPath, streamBody, nil)
	require.Equal(t, 200, resp.StatusCode())
	assert.Less(t, time.Since(start), 2*time.Second)

	events := decodeEvents(t, resp.Body())
	require.Len(t, events, 2)
	assert.Equal(t, stream.EventAgent, events[0].Type)
	assert.Equal(t, stream.EventError, events[1].Type)
	assert.Equal(t, stream.TimeoutMessage, events[1].Error)
	<-stopped
}
