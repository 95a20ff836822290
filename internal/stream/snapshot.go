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

import "context"

// End 流水线结束标记，Snapshot.Next 为该值（或为空）时表示终态
const End = "__end__"

// MessageKind 快照消息的类别
type MessageKind string

const (
	// KindContent 实质内容
	KindContent MessageKind = "content"
	// KindRouting 路由公告：流水线将对话交给另一个角色
	KindRouting MessageKind = "routing"
)

// SnapshotMessage 快照中的一条消息。Content 可能不是文本；
// Kind/Agent 为流水线显式给出的路由标记，缺省时退回文本前缀识别
type SnapshotMessage struct {
	Role    string
	Content any
	Kind    MessageKind
	Agent   string
}

// Snapshot 流水线每一步产生的中间状态，桥接器只读不写
type Snapshot struct {
	Messages []SnapshotMessage
	Next     string
	Data     map[string]any
}

// Latest 返回最新一条消息
func (s *Snapshot) Latest() (SnapshotMessage, bool) {
	if s == nil || len(s.Messages) == 0 {
		return SnapshotMessage{}, false
	}
	return s.Messages[len(s.Messages)-1], true
}

// Input 一次流水线调用的输入
type Input struct {
	Messages  []Message
	Streaming bool
}

// Pipeline 多 Agent 分析流水线：给定截断后的历史，返回惰性、可取消的快照序列
type Pipeline interface {
	Stream(ctx context.Context, in Input) (*Sequence, error)
}

// PipelineFunc 函数适配为 Pipeline
type PipelineFunc func(ctx context.Context, in Input) (*Sequence, error)

// Stream 实现 Pipeline
func (f PipelineFunc) Stream(ctx context.Context, in Input) (*Sequence, error) {
	return f(ctx, in)
}
