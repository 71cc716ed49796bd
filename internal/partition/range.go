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

// Package partition 定义有效分区键空间上的区间模型。
// 键空间为十六进制字符串的字典序区间 ["" .. "FF")；任一时刻集合的
// KeyRange 集合无缝无重叠地覆盖整个键空间，split/merge 仅替换相邻区间。
package partition

import (
	"encoding/binary"
	"encoding/hex"
	"hash/fnv"
	"sort"
	"strings"
)

// 键空间边界
const (
	MinInclusiveKey = ""
	MaxExclusiveKey = "FF"
)

// Span 键空间上的半开区间 [Min, Max)
type Span struct {
	Min string `json:"min"`
	Max string `json:"max"`
}

// FullSpan 覆盖整个键空间的区间
func FullSpan() Span {
	return Span{Min: MinInclusiveKey, Max: MaxExclusiveKey}
}

// IsEmpty 区间是否为空
func (s Span) IsEmpty() bool {
	return s.Min >= s.Max
}

// Contains 点是否落在区间内
func (s Span) Contains(key string) bool {
	return key >= s.Min && key < s.Max
}

// Overlaps 两区间是否相交
func (s Span) Overlaps(other Span) bool {
	if s.IsEmpty() || other.IsEmpty() {
		return false
	}
	return s.Min < other.Max && other.Min < s.Max
}

// Covers s 是否完全覆盖 other
func (s Span) Covers(other Span) bool {
	return s.Min <= other.Min && other.Max <= s.Max
}

// KeyRange 某一物理分区在某一时刻拥有的键空间区间，ID 稳定标识该分区
type KeyRange struct {
	ID           string `json:"id"`
	MinInclusive string `json:"minInclusive"`
	MaxExclusive string `json:"maxExclusive"`
}

// Span 返回该分区区间对应的 Span
func (r KeyRange) Span() Span {
	return Span{Min: r.MinInclusive, Max: r.MaxExclusive}
}

// SameBounds 两个 KeyRange 的键空间边界是否一致
func (r KeyRange) SameBounds(other KeyRange) bool {
	return r.MinInclusive == other.MinInclusive && r.MaxExclusive == other.MaxExclusive
}

// ResolvedRangeInfo 路由解析结果：本次要访问的目标分区 + 之后仍需访问的分区
type ResolvedRangeInfo struct {
	Target    KeyRange
	Remaining []KeyRange
}

// SortAscending 按键空间下界升序排序（同一集合内边界互不重叠，下界即全序）
func SortAscending(ranges []KeyRange) {
	sort.Slice(ranges, func(i, j int) bool {
		return ranges[i].MinInclusive < ranges[j].MinInclusive
	})
}

// EffectiveKey 将分区键值映射到有效键空间（FNV-1a 32 位，十六进制大写）
func EffectiveKey(value string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(value))
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], h.Sum32())
	s := strings.ToUpper(hex.EncodeToString(buf[:]))
	// 保证落在 [.."FF") 内："FF" 前缀折回 "7F"
	if s >= MaxExclusiveKey {
		s = "7" + s[1:]
	}
	return s
}
