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

package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	apperrors "fx-advisor/pkg/errors"
)

// sweepEvery 每写入这么多次清理一次已过期项
const sweepEvery = 256

// MemoryStore 进程内缓存。过期项在读取时删除，并在写入时定期批量清理
type MemoryStore struct {
	items  map[string]*cacheItem
	mu     sync.RWMutex
	writes int
	now    func() time.Time
}

type cacheItem struct {
	value      []byte
	expiration int64 // UnixNano，0 表示不过期
}

func (i *cacheItem) expired(now int64) bool {
	return i.expiration > 0 && i.expiration <= now
}

// NewMemoryStore 创建内存缓存
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items: make(map[string]*cacheItem),
		now:   time.Now,
	}
}

// Set 设置缓存
func (s *MemoryStore) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}
	now := s.now().UnixNano()
	var exp int64
	if expiration > 0 {
		exp = now + int64(expiration)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = &cacheItem{value: data, expiration: exp}
	s.writes++
	if s.writes%sweepEvery == 0 {
		s.sweepLocked(now)
	}
	return nil
}

// Get 获取缓存
func (s *MemoryStore) Get(ctx context.Context, key string, dest interface{}) error {
	item, ok := s.lookup(key)
	if !ok {
		return fmt.Errorf("cache key %s: %w", key, apperrors.ErrNotFound)
	}
	if err := json.Unmarshal(item.value, dest); err != nil {
		return fmt.Errorf("failed to unmarshal cache value: %w", err)
	}
	return nil
}

// lookup 返回未过期的项；已过期的项被删除
func (s *MemoryStore) lookup(key string) (*cacheItem, bool) {
	now := s.now().UnixNano()
	s.mu.RLock()
	item, ok := s.items[key]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if item.expired(now) {
		s.mu.Lock()
		if cur, ok := s.items[key]; ok && cur == item {
			delete(s.items, key)
		}
		s.mu.Unlock()
		return nil, false
	}
	return item, true
}

// Delete 删除缓存
func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key)
	return nil
}

// Exists 检查缓存是否存在
func (s *MemoryStore) Exists(ctx context.Context, key string) (bool, error) {
	_, ok := s.lookup(key)
	return ok, nil
}

// Clear 清除所有缓存
func (s *MemoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = make(map[string]*cacheItem)
	return nil
}

// Len 当前项数（含尚未清理的过期项）
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

func (s *MemoryStore) sweepLocked(now int64) {
	for k, item := range s.items {
		if item.expired(now) {
			delete(s.items, k)
		}
	}
}

// Close 关闭缓存连接
func (s *MemoryStore) Close() error {
	return nil
}
