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

// Package metadata 提供集合与分区路由元数据缓存。缓存为多执行上下文共享、
// 读多写少；Invalidate 幂等，两个上下文对同一陈旧数据竞争失效无害，
// 只会触发一次下一读的强制刷新。
package metadata

import (
	"context"

	"docgrid-client/internal/partition"
)

// CollectionDescriptor 集合描述：Name 为调用方使用的集合名，
// ResourceID 为服务端内部稳定标识（删除重建后会变化）
type CollectionDescriptor struct {
	Name              string   `json:"name"`
	ResourceID        string   `json:"rid"`
	PartitionKeyPaths []string `json:"partitionKeyPaths"`
}

// CollectionCache 集合名到描述符的缓存。Invalidate 后的读必须在
// 权威源更新后返回新数据
type CollectionCache interface {
	// Resolve 解析集合名
	Resolve(ctx context.Context, name string) (*CollectionDescriptor, error)
	// Invalidate 使指定集合的缓存条目失效（幂等）
	Invalidate(name string)
}

// RoutingMapProvider 分区路由映射提供方。split/merge 最终可见，
// 瞬时陈旧可容忍
type RoutingMapProvider interface {
	// OverlappingRanges 返回与 span 相交的分区区间，按键空间升序
	OverlappingRanges(ctx context.Context, collectionRID string, span partition.Span) ([]partition.KeyRange, error)
	// RangeByID 按区间 id 查找；不存在返回 false（如 split 后的父区间）
	RangeByID(ctx context.Context, collectionRID string, rangeID string) (partition.KeyRange, bool, error)
	// Invalidate 使指定集合的路由映射失效（幂等）
	Invalidate(collectionRID string)
}
