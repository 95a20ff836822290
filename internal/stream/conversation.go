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

// Package stream 将多 Agent 分析流水线产生的快照序列桥接为单个有序、可取消的 SSE 事件流。
package stream

import (
	"bytes"
	"encoding/json"
	"fmt"

	apperrors "fx-advisor/pkg/errors"
)

// HistoryWindow 交给流水线的最大历史消息数（最近 3 轮 user/assistant）
const HistoryWindow = 6

// 对话角色
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message 对话消息，切片顺序即时间顺序
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type streamRequest struct {
	Messages json.RawMessage `json:"messages"`
}

// ParseRequest 解析请求体 {messages: Message[]}；messages 缺失或不是数组时返回 *errors.RequestError
func ParseRequest(body []byte) ([]Message, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, apperrors.NewRequestError("", "request body is required")
	}
	var req streamRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, apperrors.NewRequestError("", "request body must be a JSON object")
	}
	raw := bytes.TrimSpace(req.Messages)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, apperrors.NewRequestError("messages", "is required")
	}
	if raw[0] != '[' {
		return nil, apperrors.NewRequestError("messages", "must be an array")
	}
	var msgs []Message
	if err := json.Unmarshal(raw, &msgs); err != nil {
		return nil, apperrors.NewRequestError("messages", "items must be objects with string role and content")
	}
	for i, m := range msgs {
		if m.Role != RoleUser && m.Role != RoleAssistant {
			return nil, apperrors.NewRequestError(fmt.Sprintf("messages[%d].role", i), "must be user or assistant")
		}
	}
	return msgs, nil
}

// Truncate 保留最近 HistoryWindow 条消息；不足时原样返回
func Truncate(msgs []Message) []Message {
	if len(msgs) <= HistoryWindow {
		return msgs
	}
	out := make([]Message, HistoryWindow)
	copy(out, msgs[len(msgs)-HistoryWindow:])
	return out
}
