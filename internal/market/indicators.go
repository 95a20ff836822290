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

package market

import "math"

// Summary K 线技术指标摘要，供 technical 角色使用
type Summary struct {
	Symbol    string  `json:"symbol"`
	Interval  string  `json:"interval"`
	Last      float64 `json:"last"`
	SMA20     float64 `json:"sma20"`
	SMA50     float64 `json:"sma50"`
	RSI14     float64 `json:"rsi14"`
	ChangePct float64 `json:"change_pct"`
	Trend     string  `json:"trend"` // bullish | bearish | flat
}

// SMA 最近 n 个值的简单均值；数据不足返回 NaN
func SMA(values []float64, n int) float64 {
	if n <= 0 || len(values) < n {
		return math.NaN()
	}
	var sum float64
	for _, v := range values[len(values)-n:] {
		sum += v
	}
	return sum / float64(n)
}

// RSI Wilder 平滑的相对强弱指数；数据不足返回 NaN
func RSI(values []float64, n int) float64 {
	if n <= 0 || len(values) <= n {
		return math.NaN()
	}
	var gain, loss float64
	for i := 1; i <= n; i++ {
		d := values[i] - values[i-1]
		if d > 0 {
			gain += d
		} else {
			loss -= d
		}
	}
	gain /= float64(n)
	loss /= float64(n)
	for i := n + 1; i < len(values); i++ {
		d := values[i] - values[i-1]
		up, down := 0.0, 0.0
		if d > 0 {
			up = d
		} else {
			down = -d
		}
		gain = (gain*float64(n-1) + up) / float64(n)
		loss = (loss*float64(n-1) + down) / float64(n)
	}
	if loss == 0 {
		return 100
	}
	return 100 - 100/(1+gain/loss)
}

// Summarize 计算收盘价的 SMA20/SMA50/RSI14 与趋势判断
func Summarize(symbol, interval string, candles []Candle) Summary {
	s := Summary{Symbol: symbol, Interval: interval, Trend: "flat"}
	if len(candles) == 0 {
		return s
	}
	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}
	s.Last = closes[len(closes)-1]
	s.SMA20 = round(SMA(closes, 20))
	s.SMA50 = round(SMA(closes, 50))
	s.RSI14 = round(RSI(closes, 14))
	if first := closes[0]; first != 0 {
		s.ChangePct = round((s.Last - first) / first * 100)
	}
	switch {
	case s.SMA20 == 0:
	case s.Last > s.SMA20 && (s.SMA50 == 0 || s.SMA20 >= s.SMA50):
		s.Trend = "bullish"
	case s.Last < s.SMA20 && (s.SMA50 == 0 || s.SMA20 <= s.SMA50):
		s.Trend = "bearish"
	}
	return s
}

// round 保留 5 位小数；NaN 记为 0，便于 JSON 输出
func round(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return math.Round(v*1e5) / 1e5
}
