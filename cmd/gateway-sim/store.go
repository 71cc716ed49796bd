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

package main

import (
	"encoding/json"
	"fmt"
	"sync"

	"docgrid-client/internal/metadata"
	"docgrid-client/internal/partition"
)

// simStore 内存模拟存储：集合、分区区间与按有效键分片的文档。
// 仅供本地开发与手工验证客户端引擎的路由/重试行为
type simStore struct {
	mu          sync.Mutex
	collections map[string]*simCollection
	nextRangeID int
}

type simCollection struct {
	desc   metadata.CollectionDescriptor
	ranges []partition.KeyRange
	docs   map[string][]simDoc // rangeID -> docs（按有效键有序插入）
}

type simDoc struct {
	ID   string          `json:"id"`
	Key  string          `json:"key"`
	Body json.RawMessage `json:"body"`
}

func newSimStore() *simStore {
	return &simStore{collections: make(map[string]*simCollection)}
}

// createCollection 创建集合并恰好一个全键空间区间
func (s *simStore) createCollection(name string, pkPath string) *simCollection {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := &simCollection{
		desc: metadata.CollectionDescriptor{
			Name:              name,
			ResourceID:        fmt.Sprintf("rid-%s", name),
			PartitionKeyPaths: []string{pkPath},
		},
		ranges: []partition.KeyRange{{ID: s.allocRangeID(), MinInclusive: partition.MinInclusiveKey, MaxExclusive: partition.MaxExclusiveKey}},
		docs:   make(map[string][]simDoc),
	}
	s.collections[name] = c
	return c
}

func (s *simStore) allocRangeID() string {
	id := fmt.Sprintf("%d", s.nextRangeID)
	s.nextRangeID++
	return id
}

// lookup 按集合名或 rid 查找
func (s *simStore) lookup(nameOrRID string) *simCollection {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.collections[nameOrRID]; ok {
		return c
	}
	for _, c := range s.collections {
		if c.desc.ResourceID == nameOrRID {
			return c
		}
	}
	return nil
}

// insert 按分区键有效值写入所属区间
func (s *simStore) insert(c *simCollection, id, key string, body json.RawMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ek := partition.EffectiveKey(key)
	for _, r := range c.ranges {
		if r.Span().Contains(ek) {
			c.docs[r.ID] = append(c.docs[r.ID], simDoc{ID: id, Key: ek, Body: body})
			return
		}
	}
}

// split 将区间从中点分裂为两个子区间并重分配文档
func (s *simStore) split(c *simCollection, rangeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, r := range c.ranges {
		if r.ID != rangeID {
			continue
		}
		mid := midpoint(r.MinInclusive, r.MaxExclusive)
		// 边界共享首字节时中点会退化成空子区间，拒绝继续分裂
		if (partition.Span{Min: r.MinInclusive, Max: mid}).IsEmpty() ||
			(partition.Span{Min: mid, Max: r.MaxExclusive}).IsEmpty() {
			return fmt.Errorf("range %s too narrow to split at %s", rangeID, mid)
		}
		left := partition.KeyRange{ID: s.allocRangeID(), MinInclusive: r.MinInclusive, MaxExclusive: mid}
		right := partition.KeyRange{ID: s.allocRangeID(), MinInclusive: mid, MaxExclusive: r.MaxExclusive}
		for _, d := range c.docs[r.ID] {
			if left.Span().Contains(d.Key) {
				c.docs[left.ID] = append(c.docs[left.ID], d)
			} else {
				c.docs[right.ID] = append(c.docs[right.ID], d)
			}
		}
		delete(c.docs, r.ID)
		c.ranges = append(c.ranges[:i], append([]partition.KeyRange{left, right}, c.ranges[i+1:]...)...)
		return nil
	}
	return fmt.Errorf("range %s not found", rangeID)
}

// rangeByID 查找当前存活的区间
func (s *simStore) rangeByID(c *simCollection, rangeID string) (partition.KeyRange, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range c.ranges {
		if r.ID == rangeID {
			return r, true
		}
	}
	return partition.KeyRange{}, false
}

// rangeForKey 有效键所属区间
func (s *simStore) rangeForKey(c *simCollection, ek string) (partition.KeyRange, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range c.ranges {
		if r.Span().Contains(ek) {
			return r, true
		}
	}
	return partition.KeyRange{}, false
}

// page 取某区间的一页文档
func (s *simStore) page(c *simCollection, rangeID string, offset, limit int) (docs []simDoc, next int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := c.docs[rangeID]
	if offset >= len(all) {
		return nil, -1
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	docs = all[offset:end]
	if end < len(all) {
		return docs, end
	}
	return docs, -1
}

// midpoint 取两个十六进制边界的近似中点；空下界按 "00" 处理
func midpoint(lo, hi string) string {
	if lo == "" {
		lo = "00"
	}
	// 仅比较首字节即可得到足够均匀的分裂点
	var a, b int
	fmt.Sscanf(lo[:2], "%02X", &a)
	fmt.Sscanf(hi[:2], "%02X", &b)
	return fmt.Sprintf("%02X", (a+b)/2)
}
