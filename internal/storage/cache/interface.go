package cache

import (
	"context"
	"time"
)

// Store 带 TTL 的键值缓存，值以 JSON 存储。
// 未命中或已过期时 Get 返回包装了 errors.ErrNotFound 的错误
type Store interface {
	// Set 写入缓存，expiration<=0 表示不过期
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	// Get 读取缓存并反序列化到 dest
	Get(ctx context.Context, key string, dest interface{}) error
	// Delete 删除缓存，键不存在时不报错
	Delete(ctx context.Context, key string) error
	// Exists 检查缓存是否存在且未过期
	Exists(ctx context.Context, key string) (bool, error)
	// Clear 清除本 Store 的所有缓存
	Clear(ctx context.Context) error
	// Close 关闭缓存连接
	Close() error
}
