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
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fx-advisor/internal/stream"
	"fx-advisor/pkg/config"
	apperrors "fx-advisor/pkg/errors"
	"fx-advisor/pkg/secrets"
)

// answeringModel 总是直接回答，不调用工具
type answeringModel struct {
	answer string
}

func (m *answeringModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	return schema.AssistantMessage(m.answer, nil), nil
}

func (m *answeringModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return schema.StreamReaderFromArray([]*schema.Message{schema.AssistantMessage(m.answer, nil)}), nil
}

func (m *answeringModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	return m, nil
}

func storeWithKey(t *testing.T) secrets.Store {
	t.Helper()
	return secrets.NewMemoryStore(map[string]string{DefaultAPIKeyName: "sk-test"})
}

func TestAdvisor_Ready(t *testing.T) {
	a := New(Options{Secrets: secrets.NewMemoryStore()})
	err := a.Ready(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsConfigError(err))
	assert.Equal(t, "OPENAI_API_KEY is not configured", err.Error())

	a = New(Options{Provider: config.ProviderConfig{APIKeyName: "GROQ_API_KEY"}, Secrets: secrets.NewMemoryStore()})
	assert.EqualError(t, a.Ready(context.Background()), "GROQ_API_KEY is not configured")

	assert.NoError(t, New(Options{Secrets: storeWithKey(t)}).Ready(context.Background()))
	assert.NoError(t, New(Options{Provider: config.ProviderConfig{APIKey: "sk-inline"}}).Ready(context.Background()))
}

func TestAdvisor_EmptyConversation(t *testing.T) {
	a := New(Options{Secrets: storeWithKey(t), NewChatModel: func(ctx context.Context, apiKey string) (model.ToolCallingChatModel, error) {
		t.Error("model must not be created for an empty conversation")
		return nil, nil
	}})
	seq, err := a.Stream(context.Background(), stream.Input{Streaming: true})
	require.NoError(t, err)
	defer seq.Close()

	item := <-seq.Items()
	assert.ErrorIs(t, item.Err, ErrEmptyConversation)
}

func TestAdvisor_StreamsFinalAnswer(t *testing.T) {
	var gotKey string
	a := New(Options{
		Secrets: storeWithKey(t),
		NewChatModel: func(ctx context.Context, apiKey string) (model.ToolCallingChatModel, error) {
			gotKey = apiKey
			return &answeringModel{answer: "Trend is bullish"}, nil
		},
	})

	var snaps []*stream.Snapshot
	for _, streaming := range []bool{true, false} {
		seq, err := a.Stream(context.Background(), stream.Input{
			Messages:  []stream.Message{{Role: stream.RoleUser, Content: "EUR/USD outlook?"}},
			Streaming: streaming,
		})
		require.NoError(t, err)
		for item := range seq.Items() {
			require.NoError(t, item.Err)
			snaps = append(snaps, item.Snapshot)
		}
		seq.Close()
	}

	assert.Equal(t, "sk-test", gotKey)
	require.Len(t, snaps, 2)
	for _, s := range snaps {
		c := stream.Classify(s)
		assert.True(t, c.Terminal)
		assert.Equal(t, "Trend is bullish", c.Message)
	}
}
