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
	"fmt"
	"sync"

	"docgrid-client/internal/partition"
	"docgrid-client/pkg/metrics"
)

// CollectionFetchFunc 从权威源获取集合描述符（通常经传输层访问网关）
type CollectionFetchFunc func(ctx context.Context, name string) (*CollectionDescriptor, error)

// MemoryCollectionCache CollectionCache 的内存实现
type MemoryCollectionCache struct {
	fetch   CollectionFetchFunc
	mu      sync.RWMutex
	entries map[string]*CollectionDescriptor
}

// NewMemoryCollectionCache 创建集合缓存，fetch 为权威源回调
func NewMemoryCollectionCache(fetch CollectionFetchFunc) *MemoryCollectionCache {
	return &MemoryCollectionCache{
		fetch:   fetch,
		entries: make(map[string]*CollectionDescriptor),
	}
}

// Resolve 命中则返回缓存条目，否则回源并缓存
func (c *MemoryCollectionCache) Resolve(ctx context.Context, name string) (*CollectionDescriptor, error) {
	c.mu.RLock()
	desc, ok := c.entries[name]
	c.mu.RUnlock()
	if ok {
		return desc, nil
	}

	desc, err := c.fetch(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve collection %q: %w", name, err)
	}
	c.mu.Lock()
	c.entries[name] = desc
	c.mu.Unlock()
	return desc, nil
}

// Invalidate 删除条目；重复失效幂等
func (c *MemoryCollectionCache) Invalidate(name string) {
	c.mu.Lock()
	delete(c.entries, name)
	c.mu.Unlock()
	metrics.CacheInvalidateTotal.WithLabelValues("collection").Inc()
}

// RoutingFetchFunc 从权威源获取某集合的完整分区区间列表
type RoutingFetchFunc func(ctx context.Context, collectionRID string) ([]partition.KeyRange, error)

// MemoryRoutingMap RoutingMapProvider 的内存实现，按集合缓存整份路由快照
type MemoryRoutingMap struct {
	fetch    RoutingFetchFunc
	snapshot SnapshotStore // 可选，冷启动时先尝试快照
	mu       sync.RWMutex
	maps     map[string][]partition.KeyRange
}

// NewMemoryRoutingMap 创建路由映射缓存；snapshot 可为 nil
func NewMemoryRoutingMap(fetch RoutingFetchFunc, snapshot SnapshotStore) *MemoryRoutingMap {
	return &MemoryRoutingMap{
		fetch:    fetch,
		snapshot: snapshot,
		maps:     make(map[string][]partition.KeyRange),
	}
}

// OverlappingRanges 返回与 span 相交的区间，按键空间升序
func (m *MemoryRoutingMap) OverlappingRanges(ctx context.Context, collectionRID string, span partition.Span) ([]partition.KeyRange, error) {
	ranges, err := m.load(ctx, collectionRID)
	if err != nil {
		return nil, err
	}
	var out []partition.KeyRange
	for _, r := range ranges {
		if r.Span().Overlaps(span) {
			out = append(out, r)
		}
	}
	partition.SortAscending(out)
	return out, nil
}

// RangeByID 按 id 查找区间
func (m *MemoryRoutingMap) RangeByID(ctx context.Context, collectionRID string, rangeID string) (partition.KeyRange, bool, error) {
	ranges, err := m.load(ctx, collectionRID)
	if err != nil {
		return partition.KeyRange{}, false, err
	}
	for _, r := range ranges {
		if r.ID == rangeID {
			return r, true, nil
		}
	}
	return partition.KeyRange{}, false, nil
}

// Invalidate 丢弃快照；重复失效幂等
func (m *MemoryRoutingMap) Invalidate(collectionRID string) {
	m.mu.Lock()
	delete(m.maps, collectionRID)
	m.mu.Unlock()
	if m.snapshot != nil {
		_ = m.snapshot.Drop(context.Background(), collectionRID)
	}
	metrics.CacheInvalidateTotal.WithLabelValues("routing_map").Inc()
}

func (m *MemoryRoutingMap) load(ctx context.Context, collectionRID string) ([]partition.KeyRange, error) {
	m.mu.RLock()
	ranges, ok := m.maps[collectionRID]
	m.mu.RUnlock()
	if ok {
		return ranges, nil
	}

	if m.snapshot != nil {
		if cached, ok, err := m.snapshot.Load(ctx, collectionRID); err == nil && ok {
			m.mu.Lock()
			m.maps[collectionRID] = cached
			m.mu.Unlock()
			return cached, nil
		}
	}

	ranges, err := m.fetch(ctx, collectionRID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch routing map for %q: %w", collectionRID, err)
	}
	partition.SortAscending(ranges)
	m.mu.Lock()
	m.maps[collectionRID] = ranges
	m.mu.Unlock()
	if m.snapshot != nil {
		_ = m.snapshot.Save(ctx, collectionRID, ranges)
	}
	return ranges, nil
}
