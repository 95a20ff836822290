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
	"bufio"
	"bytes"
	"io"
)

// maxFrameSize 单帧上限
const maxFrameSize = 1 << 20

// ReadEvents 从 SSE 响应体中逐帧读取事件并回调 fn，忽略注释行（包括紧贴在数据帧前的保活行）。
// fn 返回错误或读取失败时停止；正常读到 EOF 返回 nil
func ReadEvents(r io.Reader, fn func(AgentEvent) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 4096), maxFrameSize)
	sc.Split(scanFrames)
	for sc.Scan() {
		chunk := sc.Bytes()
		if commentOnly(chunk) {
			continue
		}
		ev, err := Decode(chunk)
		if err != nil {
			return err
		}
		if err := fn(ev); err != nil {
			return err
		}
	}
	return sc.Err()
}

// scanFrames 以空行分隔 SSE 帧
func scanFrames(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.Index(data, frameSuffix); i >= 0 {
		return i + len(frameSuffix), data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}
