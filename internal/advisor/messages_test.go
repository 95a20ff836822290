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
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fx-advisor/internal/stream"
)

func TestToADKMessages(t *testing.T) {
	msgs, err := ToADKMessages([]stream.Message{
		{Role: stream.RoleUser, Content: "EUR/USD outlook?"},
		{Role: stream.RoleAssistant, Content: "Bullish above 1.08"},
		{Role: stream.RoleAssistant, Content: ""},
		{Role: stream.RoleUser, Content: "And GBP/USD?"},
	})
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, schema.User, msgs[0].Role)
	assert.Equal(t, schema.Assistant, msgs[1].Role)
	assert.Equal(t, "And GBP/USD?", msgs[2].Content)
}

func TestToADKMessages_Empty(t *testing.T) {
	_, err := ToADKMessages(nil)
	assert.ErrorIs(t, err, ErrEmptyConversation)

	_, err = ToADKMessages([]stream.Message{{Role: stream.RoleAssistant, Content: "hello"}})
	assert.ErrorIs(t, err, ErrEmptyConversation)
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "Technical", DisplayName(TechnicalAgent))
	assert.Equal(t, "Fundamentals", DisplayName("FUNDAMENTALS"))
	assert.Equal(t, "macro", DisplayName("macro"))
	assert.Equal(t, SupervisorAgent, Roles()[0].Name)
}
