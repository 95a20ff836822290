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

package errors

import (
	"errors"
	"testing"
)

func TestWrap(t *testing.T) {
	if Wrap(nil, "msg") != nil {
		t.Error("Wrap(nil, msg) should return nil")
	}
	err := errors.New("base")
	wrapped := Wrap(err, "context")
	if wrapped == nil {
		t.Fatal("Wrap(err, msg) should not return nil")
	}
	if !errors.Is(wrapped, err) {
		t.Error("wrapped error should unwrap to base")
	}
}

func TestWrapf(t *testing.T) {
	if Wrapf(nil, "format %s", "x") != nil {
		t.Error("Wrapf(nil, ...) should return nil")
	}
	err := errors.New("base")
	wrapped := Wrapf(err, "symbol=%s", "EURUSD")
	if !errors.Is(wrapped, err) {
		t.Error("wrapped error should unwrap to base")
	}
	if wrapped.Error() != "symbol=EURUSD: base" {
		t.Errorf("Wrapf message: %q", wrapped.Error())
	}
}

func TestConfigError(t *testing.T) {
	err := Wrap(NewConfigError("OPENAI_API_KEY"), "advisor graph")
	if !IsConfigError(err) {
		t.Fatal("wrapped ConfigError should be detected")
	}
	cfgErr, ok := AsConfigError(err)
	if !ok || cfgErr.Setting != "OPENAI_API_KEY" {
		t.Errorf("AsConfigError: %+v", cfgErr)
	}
	if _, ok := AsConfigError(errors.New("other")); ok {
		t.Error("AsConfigError on plain error")
	}
	if got := NewConfigError("X").Error(); got != "X is not configured" {
		t.Errorf("Error() = %q", got)
	}
	if IsConfigError(errors.New("other")) {
		t.Error("plain error is not a ConfigError")
	}
}

func TestRequestError(t *testing.T) {
	if got := NewRequestError("messages", "is required").Error(); got != "messages: is required" {
		t.Errorf("Error() = %q", got)
	}
	if got := NewRequestError("", "body is not valid JSON").Error(); got != "body is not valid JSON" {
		t.Errorf("Error() without field = %q", got)
	}
	if !IsRequestError(Wrap(NewRequestError("f", "r"), "parse")) {
		t.Error("wrapped RequestError should be detected")
	}
}

func TestSentinels(t *testing.T) {
	if !errors.Is(Wrap(ErrRateLimited, "quote"), ErrRateLimited) {
		t.Error("ErrRateLimited should survive wrapping")
	}
	if errors.Is(ErrNotFound, ErrInvalidArg) {
		t.Error("distinct sentinels must not match")
	}
}
