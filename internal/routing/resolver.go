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

// Package routing 实现路由解析：给定查询声明的分区键区间与可选续读令牌，
// 确定下一个要访问的物理分区。split 在此被透明吸收：令牌指向的区间
// 消失时，按键空间升序改访覆盖原边界的子区间。
package routing

import (
	"context"

	"docgrid-client/internal/continuation"
	"docgrid-client/internal/metadata"
	"docgrid-client/internal/partition"
)

// Resolution 单次解析结果：目标分区、其上的内层续读游标、之后仍需
// 访问的游标序列
type Resolution struct {
	Target     partition.KeyRange
	InnerToken string
	Remaining  continuation.Token
}

// Resolver 路由解析器。providedRanges 按集合 rid 缓存查询声明的区间，
// 生命周期与解析器一致，仅随新建解析器失效（路由映射刷新不清除它）。
// 与所属执行上下文同为 single-flight，不做内部同步
type Resolver struct {
	routingMap     metadata.RoutingMapProvider
	extractor      ProvidedRangesExtractor
	providedRanges map[string][]partition.Span
}

// NewResolver 创建解析器；extractor 为 nil 时使用 FullRangeExtractor
func NewResolver(routingMap metadata.RoutingMapProvider, extractor ProvidedRangesExtractor) *Resolver {
	if extractor == nil {
		extractor = FullRangeExtractor{}
	}
	return &Resolver{
		routingMap:     routingMap,
		extractor:      extractor,
		providedRanges: make(map[string][]partition.Span),
	}
}

// ProvidedRanges 返回查询需访问的键空间区间，按集合 rid 缓存：
// 同一集合重复调用返回同一份切片
func (r *Resolver) ProvidedRanges(queryText string, coll *metadata.CollectionDescriptor) ([]partition.Span, error) {
	if spans, ok := r.providedRanges[coll.ResourceID]; ok {
		return spans, nil
	}
	spans, err := r.extractor.Extract(queryText, coll.PartitionKeyPaths)
	if err != nil {
		return nil, err
	}
	r.providedRanges[coll.ResourceID] = spans
	return spans, nil
}

// ResolveTarget 解析下一个目标分区。resolved=false 表示当前路由映射
// 无法给出一致结果（如集合删除重建或映射迁移中），调用方应强制刷新
// 元数据后重试一次解析
func (r *Resolver) ResolveTarget(ctx context.Context, queryText string, coll *metadata.CollectionDescriptor, token continuation.Token) (Resolution, bool, error) {
	if head, ok := token.Head(); ok {
		return r.resolveFromToken(ctx, coll, head, token.Rest())
	}
	return r.resolveFromQuery(ctx, queryText, coll)
}

// resolveFromToken 从令牌首游标续读；游标指向的区间已消失（split）时
// 改访覆盖原边界的子区间，子区间继承父游标的内层令牌
func (r *Resolver) resolveFromToken(ctx context.Context, coll *metadata.CollectionDescriptor, head continuation.RangeCursor, rest continuation.Token) (Resolution, bool, error) {
	cur, found, err := r.routingMap.RangeByID(ctx, coll.ResourceID, head.RangeID)
	if err != nil {
		return Resolution{}, false, err
	}
	recorded := partition.KeyRange{ID: head.RangeID, MinInclusive: head.MinInclusive, MaxExclusive: head.MaxExclusive}
	if found && cur.SameBounds(recorded) {
		return Resolution{Target: cur, InnerToken: head.InnerToken, Remaining: rest}, true, nil
	}

	// 区间 id 失效或边界不符：按原边界重定位子区间
	children, err := r.routingMap.OverlappingRanges(ctx, coll.ResourceID, recorded.Span())
	if err != nil {
		return Resolution{}, false, err
	}
	if len(children) == 0 {
		return Resolution{}, false, nil
	}
	remaining := make(continuation.Token, 0, len(children)-1+len(rest))
	for _, c := range children[1:] {
		remaining = append(remaining, continuation.RangeCursor{
			RangeID:      c.ID,
			MinInclusive: c.MinInclusive,
			MaxExclusive: c.MaxExclusive,
			InnerToken:   head.InnerToken,
		})
	}
	remaining = append(remaining, rest...)
	return Resolution{Target: children[0], InnerToken: head.InnerToken, Remaining: remaining}, true, nil
}

// resolveFromQuery 无令牌时从查询谓词推导区间并选取键空间升序的首个分区
func (r *Resolver) resolveFromQuery(ctx context.Context, queryText string, coll *metadata.CollectionDescriptor) (Resolution, bool, error) {
	spans, err := r.ProvidedRanges(queryText, coll)
	if err != nil {
		return Resolution{}, false, err
	}

	var ranges []partition.KeyRange
	seen := make(map[string]bool)
	for _, span := range spans {
		overlapping, err := r.routingMap.OverlappingRanges(ctx, coll.ResourceID, span)
		if err != nil {
			return Resolution{}, false, err
		}
		for _, kr := range overlapping {
			if !seen[kr.ID] {
				seen[kr.ID] = true
				ranges = append(ranges, kr)
			}
		}
	}
	if len(ranges) == 0 {
		return Resolution{}, false, nil
	}
	partition.SortAscending(ranges)
	return Resolution{Target: ranges[0], Remaining: continuation.FromRanges(ranges[1:])}, true, nil
}
