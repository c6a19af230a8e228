package storage

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"resume-screener-go/internal/config"
	"resume-screener-go/internal/constants"
)

// Redis 提供键值存储功能：筛选去重集合与重评分布式锁
type Redis struct {
	Client *redis.Client
	config *config.RedisConfig
}

// NewRedisAdapter 创建Redis客户端连接
func NewRedisAdapter(cfg *config.RedisConfig) (*Redis, error) {
	if cfg == nil {
		return nil, fmt.Errorf("redis config cannot be nil")
	}
	if cfg.Address == "" {
		return nil, fmt.Errorf("redis address is required")
	}

	opt := &redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,

		// 连接池设置
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,

		// 超时设置
		DialTimeout:  time.Duration(cfg.DialTimeoutSeconds) * time.Second,
		ReadTimeout:  time.Duration(cfg.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeoutSeconds) * time.Second,
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Address, err)
	}

	return &Redis{
		Client: client,
		config: cfg,
	}, nil
}

// Close 关闭Redis连接
func (r *Redis) Close() error {
	if r.Client != nil {
		return r.Client.Close()
	}
	return nil
}

// Ping 检查Redis连接
func (r *Redis) Ping(ctx context.Context) error {
	if r.Client == nil {
		return fmt.Errorf("redis client is not initialized")
	}
	return r.Client.Ping(ctx).Err()
}

// GetDedupExpireDuration 返回去重记录的过期时间
func (r *Redis) GetDedupExpireDuration() time.Duration {
	days := r.config.DedupRecordExpireDays
	if days <= 0 {
		days = constants.ScreeningDedupExpireDays
	}
	return time.Duration(days) * 24 * time.Hour
}

// ScreeningDigest 计算一次筛选的去重摘要：同一份简历文本对同一岗位描述只算一次
func ScreeningDigest(resumeText, jobDescription string) string {
	sum := md5.Sum([]byte(resumeText + "\x00" + jobDescription))
	return hex.EncodeToString(sum[:])
}

// CheckScreeningDedup 检查筛选摘要是否已存在于去重集合
func (r *Redis) CheckScreeningDedup(ctx context.Context, digest string) (bool, error) {
	if r.Client == nil {
		return false, fmt.Errorf("redis client is not initialized")
	}
	return r.Client.SIsMember(ctx, constants.KeyScreeningDedupSet, digest).Result()
}

// AddScreeningDedup 添加筛选摘要到去重集合并设置过期时间
func (r *Redis) AddScreeningDedup(ctx context.Context, digest string) error {
	if r.Client == nil {
		return fmt.Errorf("redis client is not initialized")
	}
	pipe := r.Client.Pipeline()
	pipe.SAdd(ctx, constants.KeyScreeningDedupSet, digest)
	pipe.ExpireNX(ctx, constants.KeyScreeningDedupSet, r.GetDedupExpireDuration())
	_, err := pipe.Exec(ctx)
	return err
}

// releaseLockScript 只有持有者才能释放锁
var releaseLockScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end
`)

// AcquireRescoreLock 获取重评分布式锁，防止同一岗位描述的重评任务并发执行
func (r *Redis) AcquireRescoreLock(ctx context.Context, jdDigest string, holder string, expiration time.Duration) (bool, error) {
	if r.Client == nil {
		return false, fmt.Errorf("redis client is not initialized")
	}
	lockKey := fmt.Sprintf(constants.KeyRescoreLock, jdDigest)
	return r.Client.SetNX(ctx, lockKey, holder, expiration).Result()
}

// ReleaseRescoreLock 释放重评分布式锁，仅当当前持有者匹配时生效
func (r *Redis) ReleaseRescoreLock(ctx context.Context, jdDigest string, holder string) error {
	if r.Client == nil {
		return fmt.Errorf("redis client is not initialized")
	}
	lockKey := fmt.Sprintf(constants.KeyRescoreLock, jdDigest)
	return releaseLockScript.Run(ctx, r.Client, []string{lockKey}, holder).Err()
}
