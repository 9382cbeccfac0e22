package redis

import (
	"VoiceHub/config"
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisClient struct {
	Client *redis.Client
}

// NewRedisClient 初始化并返回一个新的 RedisClient 实例
func NewRedisClient(cfg *config.RedisConfig) (*RedisClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password, // 密码，没有则留空
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
		// 可选：添加超时配置
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	// PING 测试连接
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := client.Ping(ctx).Result()
	if err != nil {
		return nil, fmt.Errorf("redis client connection test failed: %w", err)
	}

	return &RedisClient{Client: client}, nil
}

func (r *RedisClient) Close() error {
	return r.Client.Close()
}

func onlineUsersKey(roomID uint) string {
	return fmt.Sprintf("room:%d:online_users", roomID)
}

// AddOnlineUser 房间在线名单，展示用。权限状态以数据库为准
func (r *RedisClient) AddOnlineUser(ctx context.Context, roomID, userID uint, username string) error {
	return r.Client.HSet(ctx, onlineUsersKey(roomID), strconv.FormatUint(uint64(userID), 10), username).Err()
}

func (r *RedisClient) RemoveOnlineUser(ctx context.Context, roomID, userID uint) error {
	return r.Client.HDel(ctx, onlineUsersKey(roomID), strconv.FormatUint(uint64(userID), 10)).Err()
}

// GetOnlineUsers 获取指定房间的在线用户
func (r *RedisClient) GetOnlineUsers(ctx context.Context, roomID uint) (map[string]string, error) {
	key := onlineUsersKey(roomID)
	result, err := r.Client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch online users for key %s: %w", key, err)
	}
	return result, nil
}
