// Package queue 命令队列：Redis FIFO 列表
package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/luminatrade/gateway/internal/types"
)

// CommandQueue 单一 FIFO 队列，元素为 JSON 序列化的 Command。
// 投递语义为至少一次，下游不得假设恰好一次。
type CommandQueue struct {
	rdb *redis.Client
	key string
}

// New 创建队列客户端
func New(rdb *redis.Client, key string) *CommandQueue {
	return &CommandQueue{rdb: rdb, key: key}
}

// Key 队列键名
func (q *CommandQueue) Key() string { return q.key }

// Publish 入队。调用方自带超时上下文，超时视为投递失败。
func (q *CommandQueue) Publish(ctx context.Context, cmd *types.Command) error {
	data, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("marshal command: %w", err)
	}
	if err := q.rdb.RPush(ctx, q.key, data).Err(); err != nil {
		return fmt.Errorf("rpush command: %w", err)
	}
	return nil
}

// Depth 队列深度（健康上报用）
func (q *CommandQueue) Depth(ctx context.Context) (int64, error) {
	depth, err := q.rdb.LLen(ctx, q.key).Result()
	if err != nil {
		return 0, fmt.Errorf("llen %s: %w", q.key, err)
	}
	return depth, nil
}
