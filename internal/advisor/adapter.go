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

package advisor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/cloudwego/eino/adk"
	"github.com/cloudwego/eino/schema"

	"fx-advisor/internal/stream"
)

// transferToolName adk 的转交工具，其调用由 TransferToAgent action 体现，不单独上报
const transferToolName = "transfer_to_agent"

// eventSource adk.AsyncIterator 的最小接口
type eventSource interface {
	Next() (*adk.AgentEvent, bool)
}

// adapter 把 adk 事件流转换为快照序列。
// 助手的文本回答延后一项发出：后面还有事件则为中间结果，迭代结束或 Exit 时作为终态发出
type adapter struct {
	history []stream.SnapshotMessage
	current string
	pending *stream.SnapshotMessage
	owner   string
}

func newAdapter(history []stream.Message) *adapter {
	a := &adapter{current: SupervisorAgent}
	for _, m := range history {
		a.history = append(a.history, stream.SnapshotMessage{Role: m.Role, Content: m.Content, Kind: stream.KindContent})
	}
	return a
}

// pump 消费 src 直到结束、出错或 ctx 取消
func (a *adapter) pump(ctx context.Context, src eventSource, emit stream.EmitFunc) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		ev, ok := src.Next()
		if !ok {
			break
		}
		if ev == nil {
			continue
		}
		if ev.Err != nil {
			return ev.Err
		}
		if ev.AgentName != "" {
			a.current = ev.AgentName
		}
		if ev.Output != nil && ev.Output.MessageOutput != nil {
			msg, err := messageOf(ev.Output.MessageOutput)
			if err != nil {
				return err
			}
			if err := a.onMessage(msg, ev.Output.MessageOutput.Role, emit); err != nil {
				return err
			}
		}
		if ev.Action != nil {
			if t := ev.Action.TransferToAgent; t != nil {
				if err := a.onTransfer(t.DestAgentName, emit); err != nil {
					return err
				}
			}
			if ev.Action.Exit {
				return a.flush(emit, true)
			}
		}
	}
	return a.flush(emit, true)
}

func (a *adapter) onMessage(msg *schema.Message, role schema.RoleType, emit stream.EmitFunc) error {
	if msg == nil {
		return nil
	}
	if msg.Role != "" {
		role = msg.Role
	}
	if role == schema.Tool {
		return nil
	}

	calls := make([]schema.ToolCall, 0, len(msg.ToolCalls))
	for _, tc := range msg.ToolCalls {
		if tc.Function.Name != transferToolName {
			calls = append(calls, tc)
		}
	}
	if len(calls) > 0 {
		if err := a.flush(emit, false); err != nil {
			return err
		}
		for _, tc := range calls {
			if err := a.emit(emit, stream.SnapshotMessage{
				Role:    stream.RoleAssistant,
				Content: fmt.Sprintf("Calling %s", tc.Function.Name),
				Kind:    stream.KindContent,
				Agent:   DisplayName(a.current),
			}, a.current, map[string]any{
				"tool": tc.Function.Name,
				"args": toolArgs(tc.Function.Arguments),
			}); err != nil {
				return err
			}
		}
	}

	if strings.TrimSpace(msg.Content) == "" {
		return nil
	}
	if err := a.flush(emit, false); err != nil {
		return err
	}
	a.pending = &stream.SnapshotMessage{
		Role:    stream.RoleAssistant,
		Content: msg.Content,
		Kind:    stream.KindContent,
		Agent:   DisplayName(a.current),
	}
	a.owner = a.current
	return nil
}

func (a *adapter) onTransfer(dest string, emit stream.EmitFunc) error {
	if err := a.flush(emit, false); err != nil {
		return err
	}
	display := DisplayName(dest)
	focus := "taking over"
	if r, ok := RoleByName(dest); ok {
		focus = r.Focus
	}
	a.current = dest
	return a.emit(emit, stream.SnapshotMessage{
		Role:    stream.RoleAssistant,
		Content: fmt.Sprintf("[Routing to %s] %s", display, focus),
		Kind:    stream.KindRouting,
		Agent:   display,
	}, dest, nil)
}

// flush 发出延后的回答；terminal 时 Next 为结束标记
func (a *adapter) flush(emit stream.EmitFunc, terminal bool) error {
	if a.pending == nil {
		return nil
	}
	msg := *a.pending
	a.pending = nil
	next := a.owner
	if terminal {
		next = stream.End
	}
	return a.emit(emit, msg, next, nil)
}

func (a *adapter) emit(emit stream.EmitFunc, msg stream.SnapshotMessage, next string, data map[string]any) error {
	a.history = append(a.history, msg)
	return emit(&stream.Snapshot{
		Messages: a.history[:len(a.history):len(a.history)],
		Next:     next,
		Data:     data,
	})
}

// messageOf 取出完整消息，流式输出时拼接全部分片
func messageOf(mv *adk.MessageVariant) (*schema.Message, error) {
	if !mv.IsStreaming {
		return mv.Message, nil
	}
	if mv.MessageStream == nil {
		return nil, nil
	}
	defer mv.MessageStream.Close()
	var chunks []*schema.Message
	for {
		chunk, err := mv.MessageStream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if chunk != nil {
			chunks = append(chunks, chunk)
		}
	}
	if len(chunks) == 0 {
		return nil, nil
	}
	return schema.ConcatMessages(chunks)
}

// toolArgs 工具参数按 JSON 解析，失败时保留原文
func toolArgs(raw string) any {
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return raw
	}
	return args
}
