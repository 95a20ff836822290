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
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// EventType 出站事件类型
type EventType string

const (
	EventAgent EventType = "agent"
	EventFinal EventType = "final"
	EventError EventType = "error"
)

// Status 出站事件状态
type Status string

const (
	StatusRouting Status = "routing"
	StatusWorking Status = "working"
)

var (
	framePrefix = []byte("data: ")
	frameSuffix = []byte("\n\n")
	dataField   = []byte("data:")
)

// HeartbeatFrame 保活注释行（与 sse.Writer.WriteKeepAlive 输出一致），客户端不会将其视为事件
var HeartbeatFrame = []byte(":keep-alive\n")

// AgentEvent 写到连接上的唯一实体。error 类型只序列化 type/error/timestamp
type AgentEvent struct {
	Type      EventType      `json:"type"`
	Agent     string         `json:"agent,omitempty"`
	Status    Status         `json:"status,omitempty"`
	Message   string         `json:"message,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
	Error     string         `json:"error,omitempty"`
	Timestamp string         `json:"timestamp"`
}

type agentPayload struct {
	Type      EventType      `json:"type"`
	Agent     string         `json:"agent"`
	Status    Status         `json:"status"`
	Message   string         `json:"message"`
	Data      map[string]any `json:"data"`
	Timestamp string         `json:"timestamp"`
}

type errorPayload struct {
	Type      EventType `json:"type"`
	Error     string    `json:"error"`
	Timestamp string    `json:"timestamp"`
}

// MarshalJSON 按事件类型输出固定字段集
func (e AgentEvent) MarshalJSON() ([]byte, error) {
	if e.Type == EventError {
		return json.Marshal(errorPayload{Type: e.Type, Error: e.Error, Timestamp: e.Timestamp})
	}
	data := e.Data
	if data == nil {
		data = map[string]any{}
	}
	return json.Marshal(agentPayload{
		Type:      e.Type,
		Agent:     e.Agent,
		Status:    e.Status,
		Message:   e.Message,
		Data:      data,
		Timestamp: e.Timestamp,
	})
}

// FormatTimestamp ISO-8601（UTC，纳秒精度）
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// NewAgentEvent 创建 agent 或 final 事件，data 被复制
func NewAgentEvent(typ EventType, agent string, status Status, message string, data map[string]any, at time.Time) AgentEvent {
	return AgentEvent{
		Type:      typ,
		Agent:     agent,
		Status:    status,
		Message:   message,
		Data:      cloneData(data),
		Timestamp: FormatTimestamp(at),
	}
}

// NewErrorEvent 创建 error 事件
func NewErrorEvent(message string, at time.Time) AgentEvent {
	return AgentEvent{
		Type:      EventError,
		Error:     message,
		Timestamp: FormatTimestamp(at),
	}
}

func cloneData(data map[string]any) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		out[k] = v
	}
	return out
}

// Marshal 序列化事件 JSON。data 中无法序列化的值按 %v 转为文本，不会失败
func Marshal(ev AgentEvent) []byte {
	payload, err := json.Marshal(ev)
	if err != nil {
		ev.Data = sanitize(ev.Data)
		if payload, err = json.Marshal(ev); err != nil {
			payload, _ = json.Marshal(NewErrorEvent(err.Error(), time.Now()))
		}
	}
	return payload
}

// Encode 生成 SSE 帧 "data: <json>\n\n"，与 sse.Writer.WriteEvent("", "", Marshal(ev)) 写出的字节相同
func Encode(ev AgentEvent) []byte {
	payload := Marshal(ev)
	frame := make([]byte, 0, len(framePrefix)+len(payload)+len(frameSuffix))
	frame = append(frame, framePrefix...)
	frame = append(frame, payload...)
	return append(frame, frameSuffix...)
}

// sanitize 逐键检查可序列化性，嵌套 map 递归处理
func sanitize(data map[string]any) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		if nested, ok := v.(map[string]any); ok {
			out[k] = sanitize(nested)
			continue
		}
		if _, err := json.Marshal(v); err != nil {
			out[k] = fmt.Sprintf("%v", v)
			continue
		}
		out[k] = v
	}
	return out
}

// Decode 解析单个 SSE 帧：忽略注释行，data 行按 JSON 解析
func Decode(frame []byte) (AgentEvent, error) {
	payload, ok := framePayload(bytes.TrimSuffix(frame, frameSuffix))
	if !ok {
		return AgentEvent{}, fmt.Errorf("not an SSE data frame: %q", frame)
	}
	var ev AgentEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return AgentEvent{}, fmt.Errorf("decode event: %w", err)
	}
	return ev, nil
}

// SplitFrames 拆分 SSE 响应体中的数据帧，忽略只含注释的帧
func SplitFrames(body []byte) [][]byte {
	var frames [][]byte
	for _, chunk := range bytes.Split(body, frameSuffix) {
		if commentOnly(chunk) {
			continue
		}
		frames = append(frames, append(append([]byte(nil), chunk...), frameSuffix...))
	}
	return frames
}

// framePayload 取出帧中的 data 字段，多个 data 行以换行连接
func framePayload(frame []byte) ([]byte, bool) {
	var (
		payload []byte
		found   bool
	)
	for _, line := range bytes.Split(frame, []byte("\n")) {
		line = bytes.TrimSuffix(line, []byte("\r"))
		if !bytes.HasPrefix(line, dataField) {
			continue
		}
		if found {
			payload = append(payload, '\n')
		}
		payload = append(payload, bytes.TrimPrefix(line[len(dataField):], []byte(" "))...)
		found = true
	}
	return payload, found
}

// commentOnly 帧中只有空行或以 ':' 开头的注释行
func commentOnly(frame []byte) bool {
	for _, line := range bytes.Split(frame, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if len(line) > 0 && line[0] != ':' {
			return false
		}
	}
	return true
}
