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
	"context"
	"fmt"
	"sync"
)

// Item 序列中的一项：快照或生产者失败
type Item struct {
	Snapshot *Snapshot
	Err      error
}

// EmitFunc 生产者交付一个快照；消费者取走之前阻塞，ctx 取消时返回 ctx.Err()
type EmitFunc func(s *Snapshot) error

// ProduceFunc 在独立 goroutine 中运行的生产者
type ProduceFunc func(ctx context.Context, emit EmitFunc) error

// Sequence 单消费者的快照序列。通道无缓冲，同一时刻最多一个快照在途；
// 生产者返回的错误作为最后一项交付，随后通道关闭
type Sequence struct {
	items     chan Item
	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
}

// NewSequence 启动生产者并返回序列；调用方必须在结束时 Close
func NewSequence(ctx context.Context, produce ProduceFunc) *Sequence {
	ctx, cancel := context.WithCancel(ctx)
	s := &Sequence{
		items:  make(chan Item),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go s.run(ctx, produce)
	return s
}

// FromSnapshots 依次交付给定快照的序列
func FromSnapshots(ctx context.Context, snapshots ...*Snapshot) *Sequence {
	return NewSequence(ctx, func(ctx context.Context, emit EmitFunc) error {
		for _, snap := range snapshots {
			if err := emit(snap); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Sequence) run(ctx context.Context, produce ProduceFunc) {
	defer close(s.done)
	defer close(s.items)

	emit := func(snap *Snapshot) error {
		select {
		case s.items <- Item{Snapshot: snap}:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	err := safeProduce(ctx, produce, emit)
	if err == nil || ctx.Err() != nil {
		return
	}
	select {
	case s.items <- Item{Err: err}:
	case <-ctx.Done():
	}
}

func safeProduce(ctx context.Context, produce ProduceFunc, emit EmitFunc) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pipeline panic: %v", r)
		}
	}()
	return produce(ctx, emit)
}

// Items 返回只读通道，生产者结束后关闭
func (s *Sequence) Items() <-chan Item {
	return s.items
}

// Done 生产者 goroutine 退出后关闭
func (s *Sequence) Done() <-chan struct{} {
	return s.done
}

// Cancel 取消生产者但不等待其退出，可重复调用
func (s *Sequence) Cancel() {
	s.closeOnce.Do(s.cancel)
}

// Close 取消生产者并等待其退出，可重复调用
func (s *Sequence) Close() {
	s.Cancel()
	<-s.done
}
