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

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"fx-advisor/internal/stream"
)

const streamPath = "/api/advisor/stream"

func apiBaseURL() string {
	if u := os.Getenv("FX_ADVISOR_API_URL"); u != "" {
		return strings.TrimRight(u, "/")
	}
	return "http://localhost:8080"
}

func newClient() *resty.Client {
	c := resty.New().
		SetBaseURL(apiBaseURL()).
		SetTimeout(2 * time.Minute).
		SetHeader("Content-Type", "application/json")
	if token := os.Getenv("FX_ADVISOR_TOKEN"); token != "" {
		c.SetAuthToken(token)
	}
	return c
}

func getHealth() (map[string]interface{}, error) {
	var out map[string]interface{}
	resp, err := newClient().R().SetResult(&out).Get("/api/health")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("GET /api/health: %s", resp.String())
	}
	return out, nil
}

// streamAdvisor 发送对话并逐个回调 SSE 事件；非 200 响应返回服务端的 error 字段
func streamAdvisor(ctx context.Context, messages []stream.Message, onEvent func(stream.AgentEvent)) error {
	resp, err := newClient().R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		SetHeader("Accept", "text/event-stream").
		SetBody(map[string]interface{}{"messages": messages}).
		Post(streamPath)
	if err != nil {
		return err
	}
	body := resp.RawBody()
	defer body.Close()

	if resp.StatusCode() != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(body, 64<<10))
		var e struct {
			Error   string `json:"error"`
			Details string `json:"details"`
		}
		if json.Unmarshal(raw, &e) == nil && e.Error != "" {
			if e.Details != "" {
				return fmt.Errorf("POST %s: %d %s (%s)", streamPath, resp.StatusCode(), e.Error, e.Details)
			}
			return fmt.Errorf("POST %s: %d %s", streamPath, resp.StatusCode(), e.Error)
		}
		return fmt.Errorf("POST %s: %d %s", streamPath, resp.StatusCode(), strings.TrimSpace(string(raw)))
	}

	return stream.ReadEvents(body, func(ev stream.AgentEvent) error {
		onEvent(ev)
		return nil
	})
}

func prettyJSON(v interface{}) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}
