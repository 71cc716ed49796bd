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

package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"docgrid-client/internal/partition"
	"docgrid-client/pkg/config"
)

// SnapshotStore 路由快照的进程外存储，供新客户端温启动分区映射。
// 快照仅是加速层：缺失或过期时回退权威源，不影响正确性
type SnapshotStore interface {
	Load(ctx context.Context, collectionRID string) ([]partition.KeyRange, bool, error)
	Save(ctx context.Context, collectionRID string, ranges []partition.KeyRange) error
	Drop(ctx context.Context, collectionRID string) error
}

// RedisSnapshotStore 基于 Redis 的路由快照存储
type RedisSnapshotStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisSnapshotStore 创建 Redis 快照存储
func NewRedisSnapshotStore(addr string, db int, ttl time.Duration) *RedisSnapshotStore {
	return &RedisSnapshotStore{
		client: redis.NewClient(&redis.Options{Addr: addr, DB: db}),
		ttl:    ttl,
	}
}

func snapshotKey(collectionRID string) string {
	return "docgrid:routing:" + collectionRID
}

// Load 读取快照；不存在返回 ok=false
func (s *RedisSnapshotStore) Load(ctx context.Context, collectionRID string) ([]partition.KeyRange, bool, error) {
	data, err := s.client.Get(ctx, snapshotKey(collectionRID)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to load routing snapshot: %w", err)
	}
	var ranges []partition.KeyRange
	if err := json.Unmarshal(data, &ranges); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal routing snapshot: %w", err)
	}
	return ranges, true, nil
}

// Save 写入快照并设置 TTL
func (s *RedisSnapshotStore) Save(ctx context.Context, collectionRID string, ranges []partition.KeyRange) error {
	data, err := json.Marshal(ranges)
	if err != nil {
		return fmt.Errorf("failed to marshal routing snapshot: %w", err)
	}
	return s.client.Set(ctx, snapshotKey(collectionRID), data, s.ttl).Err()
}

// Drop 删除快照（与内存失效联动，幂等）
func (s *RedisSnapshotStore) Drop(ctx context.Context, collectionRID string) error {
	return s.client.Del(ctx, snapshotKey(collectionRID)).Err()
}

// Close 关闭底层连接
func (s *RedisSnapshotStore) Close() error {
	return s.client.Close()
}

// NewSnapshotStore 根据配置创建快照存储；type=none 返回 nil
func NewSnapshotStore(cfg config.MetadataConfig) (SnapshotStore, error) {
	switch cfg.SnapshotType {
	case "", "none":
		return nil, nil
	case "redis":
		ttl := config.ParseDuration(cfg.SnapshotTTL, 5*time.Minute)
		return NewRedisSnapshotStore(cfg.RedisAddr, cfg.RedisDB, ttl), nil
	default:
		return nil, fmt.Errorf("unsupported snapshot store type: %s", cfg.SnapshotType)
	}
}
