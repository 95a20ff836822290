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

// Package advisor 基于 eino adk 的外汇分析 Agent 图：supervisor 在 technical、fundamentals、
// sentiment 三个专家之间转交对话，输出转换为 stream.Sequence 快照
package advisor

import (
	"context"
	"fmt"
	"sync"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/adk"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"

	"fx-advisor/internal/stream"
	"fx-advisor/pkg/config"
	"fx-advisor/pkg/log"
	"fx-advisor/pkg/secrets"
	"fx-advisor/pkg/utils"
)

// DefaultAPIKeyName 提供商未指定 api_key_name 时查找的密钥名
const DefaultAPIKeyName = "OPENAI_API_KEY"

// ChatModelFactory 根据 API Key 创建模型
type ChatModelFactory func(ctx context.Context, apiKey string) (model.ToolCallingChatModel, error)

// Options Advisor 参数
type Options struct {
	Provider config.ProviderConfig
	Model    config.ModelInfo
	Secrets  secrets.Store
	// Market 为 nil 时行情工具调用返回配置缺失错误
	Market   MarketData
	MaxSteps int
	Logger   *log.Logger
	// NewChatModel 为空时使用 OpenAI 兼容模型
	NewChatModel ChatModelFactory
}

// Advisor 实现 stream.Pipeline。Runner 在首次调用时构建并复用
type Advisor struct {
	opts    Options
	tools   *toolset
	logger  *log.Logger
	mu      sync.Mutex
	runners map[bool]*adk.Runner
}

var _ stream.Pipeline = (*Advisor)(nil)

// New 创建 Advisor
func New(opts Options) *Advisor {
	if opts.Logger == nil {
		opts.Logger = log.Nop()
	}
	if opts.NewChatModel == nil {
		opts.NewChatModel = openAIFactory(opts.Provider, opts.Model)
	}
	return &Advisor{
		opts:    opts,
		tools:   &toolset{data: opts.Market, logger: opts.Logger},
		logger:  opts.Logger,
		runners: make(map[bool]*adk.Runner),
	}
}

// Ready 检查必需的上游配置（LLM API Key），缺失时返回 *errors.ConfigError
func (a *Advisor) Ready(ctx context.Context) error {
	_, err := a.apiKey(ctx)
	return err
}

func (a *Advisor) apiKey(ctx context.Context) (string, error) {
	name := utils.CoalesceString(a.opts.Provider.APIKeyName, DefaultAPIKeyName)
	return secrets.Resolve(ctx, a.opts.Secrets, a.opts.Provider.APIKey, name)
}

// Stream 运行 Agent 图，返回快照序列
func (a *Advisor) Stream(ctx context.Context, in stream.Input) (*stream.Sequence, error) {
	return stream.NewSequence(ctx, func(ctx context.Context, emit stream.EmitFunc) error {
		msgs, err := ToADKMessages(in.Messages)
		if err != nil {
			return err
		}
		runner, err := a.runner(ctx, in.Streaming)
		if err != nil {
			return err
		}
		iter := runner.Run(ctx, msgs)
		return newAdapter(in.Messages).pump(ctx, iter, emit)
	}), nil
}

// runner 按 streaming 模式懒加载 Runner
func (a *Advisor) runner(ctx context.Context, streaming bool) (*adk.Runner, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if r, ok := a.runners[streaming]; ok {
		return r, nil
	}

	key, err := a.apiKey(ctx)
	if err != nil {
		return nil, err
	}
	cm, err := a.opts.NewChatModel(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("create chat model: %w", err)
	}
	root, err := a.buildGraph(ctx, cm)
	if err != nil {
		return nil, err
	}
	r := adk.NewRunner(ctx, adk.RunnerConfig{
		Agent:           root,
		EnableStreaming: streaming,
	})
	a.runners[streaming] = r
	a.logger.Info("advisor runner ready", "streaming", streaming, "model", a.opts.Model.Name)
	return r, nil
}

// buildGraph supervisor 作为根 Agent，三个专家作为子 Agent
func (a *Advisor) buildGraph(ctx context.Context, cm model.ToolCallingChatModel) (adk.Agent, error) {
	var (
		supervisor adk.Agent
		subAgents  []adk.Agent
	)
	for _, role := range Roles() {
		cfg := &adk.ChatModelAgentConfig{
			Name:          role.Name,
			Description:   role.Description,
			Instruction:   role.Instruction,
			Model:         cm,
			MaxIterations: a.opts.MaxSteps,
		}
		if tools := a.tools.forRole(role.Name); len(tools) > 0 {
			cfg.ToolsConfig = adk.ToolsConfig{
				ToolsNodeConfig: compose.ToolsNodeConfig{Tools: tools},
			}
		}
		agent, err := adk.NewChatModelAgent(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("create agent %s: %w", role.Name, err)
		}
		if role.Name == SupervisorAgent {
			supervisor = agent
			continue
		}
		subAgents = append(subAgents, agent)
	}
	root, err := adk.SetSubAgents(ctx, supervisor, subAgents)
	if err != nil {
		return nil, fmt.Errorf("set sub agents: %w", err)
	}
	return root, nil
}

// openAIFactory OpenAI 兼容模型（base_url 可指向其他兼容服务）
func openAIFactory(pc config.ProviderConfig, mi config.ModelInfo) ChatModelFactory {
	return func(ctx context.Context, apiKey string) (model.ToolCallingChatModel, error) {
		cfg := &openai.ChatModelConfig{
			Model:   utils.CoalesceString(mi.Name, "gpt-4o-mini"),
			APIKey:  apiKey,
			BaseURL: pc.BaseURL,
		}
		if mi.Temperature > 0 {
			t := float32(mi.Temperature)
			cfg.Temperature = &t
		}
		if mi.MaxTokens > 0 {
			n := mi.MaxTokens
			cfg.MaxTokens = &n
		}
		cm, err := openai.NewChatModel(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("创建 OpenAI ChatModel failed: %w", err)
		}
		return cm, nil
	}
}
