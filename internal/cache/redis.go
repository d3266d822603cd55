package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/phacogen-next/internal/config"

	"github.com/redis/go-redis/v9"
)

// ErrCacheDisabled 未启用 Redis
var ErrCacheDisabled = errors.New("redis cache disabled")

const (
	defaultPrefix = "pg"
	pingTimeout   = 3 * time.Second
)

type store struct {
	client *redis.Client
	prefix string
}

// current 为 nil 表示缓存关闭，所有读写降级为空操作
var current *store

// InitRedis 连接 Redis；连接失败时保持关闭状态并返回错误
func InitRedis(cfg *config.RedisConfig) error {
	current = nil
	if cfg == nil || !cfg.Enabled {
		return nil
	}
	host := strings.TrimSpace(cfg.Host)
	if host == "" {
		host = "127.0.0.1"
	}
	port := cfg.Port
	if port <= 0 {
		port = 6379
	}
	prefix := strings.TrimSpace(cfg.Prefix)
	if prefix == "" {
		prefix = defaultPrefix
	}
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return fmt.Errorf("ping redis %s:%d: %w", host, port, err)
	}
	current = &store{client: client, prefix: prefix}
	return nil
}

// Enabled 缓存是否可用
func Enabled() bool {
	return current != nil
}

// Client 原始客户端，未启用时为 nil
func Client() *redis.Client {
	if current == nil {
		return nil
	}
	return current.client
}

// Close 关闭连接并回到关闭状态
func Close() error {
	if current == nil {
		return nil
	}
	err := current.client.Close()
	current = nil
	return err
}

// GetJSON 读取 JSON 值，未命中返回 false
func GetJSON(ctx context.Context, key string, dest interface{}) (bool, error) {
	if current == nil {
		return false, nil
	}
	raw, err := current.client.Get(ctx, current.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON 写入 JSON 值
func SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if current == nil {
		return nil
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return current.client.Set(ctx, current.key(key), payload, ttl).Err()
}

// Del 删除键
func Del(ctx context.Context, key string) error {
	if current == nil {
		return nil
	}
	return current.client.Del(ctx, current.key(key)).Err()
}

// Exists 键是否存在
func Exists(ctx context.Context, key string) (bool, error) {
	if current == nil {
		return false, nil
	}
	count, err := current.client.Exists(ctx, current.key(key)).Result()
	return count > 0, err
}

// 键不存在时先以 seed 初始化，再原子递增并刷新过期时间
var dailySequenceScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
  redis.call("SET", KEYS[1], ARGV[1])
end
local value = redis.call("INCR", KEYS[1])
redis.call("PEXPIRE", KEYS[1], ARGV[2])
return value
`)

// NextDailySequence 原子获取计数器下一个值
func NextDailySequence(ctx context.Context, key string, seed int, ttl time.Duration) (int64, error) {
	if current == nil {
		return 0, ErrCacheDisabled
	}
	if seed < 0 {
		seed = 0
	}
	return dailySequenceScript.Run(ctx, current.client, []string{current.key(key)}, seed, ttl.Milliseconds()).Int64()
}

func (s *store) key(key string) string {
	return joinKey(s.prefix, key)
}

func joinKey(prefix, key string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return prefix
	}
	return prefix + ":" + key
}
