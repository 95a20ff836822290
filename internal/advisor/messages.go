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
	"errors"

	"github.com/cloudwego/eino/adk"
	"github.com/cloudwego/eino/schema"

	"fx-advisor/internal/stream"
)

// ErrEmptyConversation 历史中没有用户消息
var ErrEmptyConversation = errors.New("no user message to analyze")

// ToADKMessages 将对话历史转为 adk.Message；没有任何用户消息时返回 ErrEmptyConversation
func ToADKMessages(history []stream.Message) ([]adk.Message, error) {
	out := make([]adk.Message, 0, len(history))
	hasUser := false
	for _, m := range history {
		if m.Content == "" {
			continue
		}
		role := roleToSchema(m.Role)
		if role == schema.User {
			hasUser = true
		}
		out = append(out, &schema.Message{Role: role, Content: m.Content})
	}
	if !hasUser {
		return nil, ErrEmptyConversation
	}
	return out, nil
}

func roleToSchema(role string) schema.RoleType {
	switch role {
	case stream.RoleUser:
		return schema.User
	case stream.RoleAssistant:
		return schema.Assistant
	default:
		return schema.RoleType(role)
	}
}
