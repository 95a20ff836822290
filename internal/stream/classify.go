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
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// 缺省值：无法从快照得到有效信息时使用
const (
	UnknownAgent      = "unknown"
	ProcessingMessage = "Processing..."
)

var routingMarker = regexp.MustCompile(`^\[Routing to ([^\]]+)\]\s*`)

// Classification 单个快照的分类结果
type Classification struct {
	Kind     MessageKind
	Agent    string
	Message  string
	Terminal bool
}

// IsTerminal Next 为结束标记或为空时为终态
func IsTerminal(s *Snapshot) bool {
	return s == nil || s.Next == "" || s.Next == End
}

// Classify 判断快照是路由公告还是实质内容，以及是否终态。纯函数，不会 panic
func Classify(s *Snapshot) Classification {
	c := Classification{
		Kind:     KindContent,
		Agent:    UnknownAgent,
		Message:  ProcessingMessage,
		Terminal: IsTerminal(s),
	}
	if s == nil {
		return c
	}
	if !c.Terminal {
		c.Agent = s.Next
	}

	latest, ok := s.Latest()
	if !ok {
		return c
	}
	text := ContentText(latest.Content)

	if agent, rest, routed := routingOf(latest, text); routed {
		c.Kind = KindRouting
		c.Agent = agent
		text = pickText(c.Terminal, text, rest)
	} else if c.Terminal && latest.Agent != "" {
		c.Agent = latest.Agent
	}

	switch {
	case c.Terminal:
		c.Message = text
	case strings.TrimSpace(text) != "":
		c.Message = text
	}
	return c
}

// 终态消息保留完整内容，不剥离路由前缀
func pickText(terminal bool, full, stripped string) string {
	if terminal {
		return full
	}
	return stripped
}

// routingOf 显式标记优先，否则匹配 "[Routing to <name>]" 前缀
func routingOf(m SnapshotMessage, text string) (agent, rest string, ok bool) {
	loc := routingMarker.FindStringSubmatchIndex(text)
	if loc != nil {
		rest = strings.TrimSpace(text[loc[1]:])
	} else {
		rest = strings.TrimSpace(text)
	}
	if m.Kind == KindRouting && strings.TrimSpace(m.Agent) != "" {
		return strings.TrimSpace(m.Agent), rest, true
	}
	if loc == nil {
		return "", "", false
	}
	name := strings.TrimSpace(text[loc[2]:loc[3]])
	if name == "" {
		return "", "", false
	}
	return name, rest, true
}

// ContentText 把消息内容转为文本；非文本内容给出可读的诊断表示
func ContentText(content any) string {
	switch v := content.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case fmt.Stringer:
		return safeString(v)
	case error:
		return v.Error()
	}
	if b, err := json.Marshal(content); err == nil {
		return string(b)
	}
	return fmt.Sprintf("%+v", content)
}

func safeString(s fmt.Stringer) (out string) {
	defer func() {
		if r := recover(); r != nil {
			out = fmt.Sprintf("%T", s)
		}
	}()
	return s.String()
}
