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

import "strings"

// Agent 名称（adk Agent.Name，即快照中的 Next）
const (
	SupervisorAgent   = "supervisor"
	TechnicalAgent    = "technical"
	FundamentalsAgent = "fundamentals"
	SentimentAgent    = "sentiment"
)

// Role 图中的一个角色
type Role struct {
	Name        string
	DisplayName string
	// Focus 路由公告中展示的工作描述
	Focus       string
	Description string
	Instruction string
}

var roles = []Role{
	{
		Name:        SupervisorAgent,
		DisplayName: "Supervisor",
		Focus:       "planning the analysis",
		Description: "Coordinates the FX analysis and writes the final answer.",
		Instruction: `You are the lead FX advisor. Read the conversation and decide which specialists are needed:
- technical: price action, trend, support/resistance, indicators such as RSI and moving averages
- fundamentals: rates, central banks, macro data and how they move the currency pair
- sentiment: positioning, risk appetite and news flow
Transfer to one specialist at a time. When you have enough input, answer the user yourself in a few
short paragraphs with a clear bias (bullish, bearish or neutral), key levels and the main risks.
Never give personalised investment advice.`,
	},
	{
		Name:        TechnicalAgent,
		DisplayName: "Technical",
		Focus:       "analyzing price action",
		Description: "Technical analysis of FX pairs from quotes and candles.",
		Instruction: `You are an FX technical analyst. Use get_quote and get_technical_summary for the pair the
user asks about. Report trend, RSI, moving averages and nearby levels in a compact list, then
transfer back to the supervisor.`,
	},
	{
		Name:        FundamentalsAgent,
		DisplayName: "Fundamentals",
		Focus:       "reviewing macro drivers",
		Description: "Macro and central bank view of FX pairs.",
		Instruction: `You are an FX fundamentals analyst. Explain the rate differential, central bank stance and
upcoming data that matter for the pair. Use get_quote for the current level and get_price_history
for the recent range. Be concise, then transfer back to the supervisor.`,
	},
	{
		Name:        SentimentAgent,
		DisplayName: "Sentiment",
		Focus:       "gauging market sentiment",
		Description: "Positioning and risk sentiment for FX pairs.",
		Instruction: `You are an FX sentiment analyst. Describe positioning, risk appetite and how recent price
behaviour reflects them. Use get_price_history when helpful. Be concise, then transfer back to the
supervisor.`,
	},
}

// Roles 返回全部角色（supervisor 在首位）
func Roles() []Role {
	out := make([]Role, len(roles))
	copy(out, roles)
	return out
}

// RoleByName 按 Agent 名称查找角色，大小写不敏感
func RoleByName(name string) (Role, bool) {
	for _, r := range roles {
		if strings.EqualFold(r.Name, name) {
			return r, true
		}
	}
	return Role{}, false
}

// DisplayName 角色展示名；未知名称原样返回
func DisplayName(name string) string {
	if r, ok := RoleByName(name); ok {
		return r.DisplayName
	}
	return name
}
