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
	"fmt"
	"testing"

	"github.com/cloudwego/eino/components/tool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fx-advisor/internal/market"
	apperrors "fx-advisor/pkg/errors"
	"fx-advisor/pkg/log"
)

type fakeMarket struct {
	err error
}

func (f *fakeMarket) Quote(ctx context.Context, symbol string) (*market.Quote, error) {
	if f.err != nil {
		return nil, f.err
	}
	sym, err := market.NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}
	return &market.Quote{Symbol: sym, Bid: 1.0830, Ask: 1.0832}, nil
}

func (f *fakeMarket) Candles(ctx context.Context, symbol, interval string, limit int) ([]market.Candle, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]market.Candle, limit)
	for i := range out {
		out[i] = market.Candle{Close: 1.05 + float64(i)*0.0005}
	}
	return out, nil
}

func invoke(t *testing.T, tools []tool.BaseTool, name, args string) (map[string]any, error) {
	t.Helper()
	for _, bt := range tools {
		info, err := bt.Info(context.Background())
		require.NoError(t, err)
		if info.Name != name {
			continue
		}
		it, ok := bt.(tool.InvokableTool)
		require.True(t, ok)
		raw, err := it.InvokableRun(context.Background(), args)
		if err != nil {
			return nil, err
		}
		var out map[string]any
		require.NoError(t, json.Unmarshal([]byte(raw), &out))
		return out, nil
	}
	t.Fatalf("tool %s not found", name)
	return nil, nil
}

func TestToolset_ForRole(t *testing.T) {
	ts := &toolset{data: &fakeMarket{}, logger: log.Nop()}
	names := func(role string) []string {
		var out []string
		for _, bt := range ts.forRole(role) {
			info, err := bt.Info(context.Background())
			require.NoError(t, err)
			out = append(out, info.Name)
		}
		return out
	}
	assert.Equal(t, []string{ToolQuote, ToolTechnicalSummary}, names(TechnicalAgent))
	assert.Equal(t, []string{ToolQuote, ToolPriceHistory}, names(FundamentalsAgent))
	assert.Equal(t, []string{ToolPriceHistory}, names(SentimentAgent))
	assert.Empty(t, names(SupervisorAgent))
}

func TestQuoteTool(t *testing.T) {
	ts := &toolset{data: &fakeMarket{}, logger: log.Nop()}
	out, err := invoke(t, ts.forRole(TechnicalAgent), ToolQuote, `{"symbol":"EUR/USD"}`)
	require.NoError(t, err)
	assert.Equal(t, "EURUSD", out["symbol"])
	assert.InDelta(t, 1.0831, out["mid"], 1e-9)
}

func TestTechnicalSummaryTool(t *testing.T) {
	ts := &toolset{data: &fakeMarket{}, logger: log.Nop()}
	out, err := invoke(t, ts.forRole(TechnicalAgent), ToolTechnicalSummary, `{"symbol":"EURUSD","interval":"4h"}`)
	require.NoError(t, err)
	assert.Equal(t, "4h", out["interval"])
	assert.Equal(t, "bullish", out["trend"])
}

func TestTool_RecoverableErrorIsResult(t *testing.T) {
	ts := &toolset{data: &fakeMarket{}, logger: log.Nop()}
	out, err := invoke(t, ts.forRole(TechnicalAgent), ToolQuote, `{"symbol":"EUR;USD"}`)
	require.NoError(t, err)
	assert.Contains(t, out["error"], "invalid symbol")

	ts = &toolset{data: &fakeMarket{err: fmt.Errorf("market /candles: %w", apperrors.ErrNotFound)}, logger: log.Nop()}
	out, err = invoke(t, ts.forRole(SentimentAgent), ToolPriceHistory, `{"symbol":"XAUUSD"}`)
	require.NoError(t, err)
	assert.Contains(t, out["error"], "not found")
}

func TestTool_FatalErrorsPropagate(t *testing.T) {
	ts := &toolset{data: &fakeMarket{err: fmt.Errorf("market /quote: %w", apperrors.ErrRateLimited)}, logger: log.Nop()}
	_, err := invoke(t, ts.forRole(FundamentalsAgent), ToolQuote, `{"symbol":"EURUSD"}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate_limit_exceeded")

	ts = &toolset{logger: log.Nop()}
	_, err = invoke(t, ts.forRole(FundamentalsAgent), ToolQuote, `{"symbol":"EURUSD"}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MARKET_BASE_URL is not configured")
}

func TestUnavailableTool(t *testing.T) {
	ts := &toolset{logger: log.Nop()}
	u := ts.unavailable("get_quote", "desc", fmt.Errorf("schema"))
	_, err := u.InvokableRun(context.Background(), "{}")
	assert.EqualError(t, err, `tool "get_quote" unavailable: schema`)
}
