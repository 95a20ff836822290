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
	"errors"
	"fmt"
	"time"

	"github.com/cloudwego/eino/components/tool"
	toolutils "github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"

	"fx-advisor/internal/market"
	apperrors "fx-advisor/pkg/errors"
	"fx-advisor/pkg/log"
	"fx-advisor/pkg/metrics"
	"fx-advisor/pkg/tracing"
	"fx-advisor/pkg/utils"
)

// 工具名
const (
	ToolQuote            = "get_quote"
	ToolTechnicalSummary = "get_technical_summary"
	ToolPriceHistory     = "get_price_history"
)

// MarketData 工具依赖的行情接口，*market.Client 实现
type MarketData interface {
	Quote(ctx context.Context, symbol string) (*market.Quote, error)
	Candles(ctx context.Context, symbol, interval string, limit int) ([]market.Candle, error)
}

type quoteInput struct {
	Symbol string `json:"symbol"`
}

type candlesInput struct {
	Symbol   string `json:"symbol"`
	Interval string `json:"interval,omitempty"`
	Limit    int    `json:"limit,omitempty"`
}

type quoteOutput struct {
	Symbol string  `json:"symbol"`
	Bid    float64 `json:"bid"`
	Ask    float64 `json:"ask"`
	Mid    float64 `json:"mid"`
	Spread float64 `json:"spread"`
	Time   string  `json:"time,omitempty"`
	Error  string  `json:"error,omitempty"`
}

type historyOutput struct {
	Symbol   string          `json:"symbol"`
	Interval string          `json:"interval"`
	Candles  []market.Candle `json:"candles,omitempty"`
	Error    string          `json:"error,omitempty"`
}

type summaryOutput struct {
	market.Summary
	Error string `json:"error,omitempty"`
}

// toolset 按角色分配的行情工具
type toolset struct {
	data   MarketData
	logger *log.Logger
}

// forRole 返回角色可用的工具；supervisor 只做转交不调工具
func (t *toolset) forRole(name string) []tool.BaseTool {
	switch name {
	case TechnicalAgent:
		return []tool.BaseTool{t.quoteTool(), t.summaryTool()}
	case FundamentalsAgent:
		return []tool.BaseTool{t.quoteTool(), t.historyTool()}
	case SentimentAgent:
		return []tool.BaseTool{t.historyTool()}
	default:
		return nil
	}
}

func (t *toolset) quoteTool() tool.BaseTool {
	const desc = "Latest bid/ask quote for an FX pair. Input: {\"symbol\": \"EUR/USD\"}."
	return inferTool(t, ToolQuote, desc, func(ctx context.Context, in quoteInput) (quoteOutput, error) {
		var out quoteOutput
		err := t.observe(ctx, ToolQuote, in.Symbol, func(ctx context.Context) error {
			q, err := t.data.Quote(ctx, in.Symbol)
			if err != nil {
				return err
			}
			out = quoteOutput{Symbol: q.Symbol, Bid: q.Bid, Ask: q.Ask, Mid: q.Mid(), Spread: q.Spread()}
			if !q.Time.IsZero() {
				out.Time = q.Time.UTC().Format(time.RFC3339)
			}
			return nil
		})
		if recoverable(err) {
			return quoteOutput{Symbol: in.Symbol, Error: err.Error()}, nil
		}
		return out, err
	})
}

func (t *toolset) historyTool() tool.BaseTool {
	const desc = "Recent OHLC candles for an FX pair. Input: {\"symbol\": \"EUR/USD\", \"interval\": \"1d\", \"limit\": 30}."
	return inferTool(t, ToolPriceHistory, desc, func(ctx context.Context, in candlesInput) (historyOutput, error) {
		interval := utils.CoalesceString(in.Interval, "1d")
		out := historyOutput{Symbol: in.Symbol, Interval: interval}
		err := t.observe(ctx, ToolPriceHistory, in.Symbol, func(ctx context.Context) error {
			candles, err := t.data.Candles(ctx, in.Symbol, interval, utils.DefaultInt(in.Limit, 30))
			out.Candles = candles
			return err
		})
		if recoverable(err) {
			out.Error = err.Error()
			return out, nil
		}
		return out, err
	})
}

func (t *toolset) summaryTool() tool.BaseTool {
	const desc = "Technical summary (SMA20, SMA50, RSI14, trend) for an FX pair. Input: {\"symbol\": \"EUR/USD\", \"interval\": \"1h\"}."
	return inferTool(t, ToolTechnicalSummary, desc, func(ctx context.Context, in candlesInput) (summaryOutput, error) {
		interval := utils.CoalesceString(in.Interval, "1h")
		var out summaryOutput
		err := t.observe(ctx, ToolTechnicalSummary, in.Symbol, func(ctx context.Context) error {
			candles, err := t.data.Candles(ctx, in.Symbol, interval, utils.DefaultInt(in.Limit, 100))
			if err != nil {
				return err
			}
			sym, _ := market.NormalizeSymbol(in.Symbol)
			out.Summary = market.Summarize(sym, interval, candles)
			return nil
		})
		if recoverable(err) {
			out.Symbol, out.Interval, out.Error = in.Symbol, interval, err.Error()
			return out, nil
		}
		return out, err
	})
}

// observe 为工具调用记录 span 与耗时
func (t *toolset) observe(ctx context.Context, name, symbol string, fn func(ctx context.Context) error) error {
	if t.data == nil {
		return apperrors.NewConfigError("MARKET_BASE_URL")
	}
	ctx, span := tracing.StartToolSpan(ctx, name, symbol)
	start := time.Now()
	err := fn(ctx)
	metrics.ToolDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	tracing.EndSpan(span, "", err)
	if err != nil {
		t.logger.Warn("advisor tool failed", "tool", name, "symbol", symbol, "error", err)
	}
	return err
}

// recoverable 模型可以自行纠正的错误（品种写错、无数据）以结果形式返回，其余错误终止本次分析
func recoverable(err error) bool {
	return errors.Is(err, apperrors.ErrInvalidArg) || errors.Is(err, apperrors.ErrNotFound)
}

// inferTool 由函数签名推断工具参数，失败时降级为占位工具
func inferTool[T, D any](t *toolset, name, desc string, fn func(context.Context, T) (D, error)) tool.BaseTool {
	it, err := toolutils.InferTool[T, D](name, desc, fn)
	if err != nil {
		return t.unavailable(name, desc, err)
	}
	return it
}

// unavailableTool 创建失败时的占位工具，调用即返回错误
type unavailableTool struct {
	info      *schema.ToolInfo
	createErr error
}

func (u *unavailableTool) Info(ctx context.Context) (*schema.ToolInfo, error) {
	return u.info, nil
}

func (u *unavailableTool) InvokableRun(ctx context.Context, argumentsInJSON string, opts ...tool.Option) (string, error) {
	return "", fmt.Errorf("tool %q unavailable: %w", u.info.Name, u.createErr)
}

func (t *toolset) unavailable(name, desc string, err error) tool.InvokableTool {
	t.logger.Error("创建工具失败，降级为不可用占位工具", "tool", name, "error", err)
	return &unavailableTool{
		info: &schema.ToolInfo{
			Name: name,
			Desc: desc,
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"symbol": {
					Type:     schema.String,
					Desc:     "FX pair, e.g. EUR/USD",
					Required: true,
				},
			}),
		},
		createErr: err,
	}
}
