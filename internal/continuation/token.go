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

// Package continuation 实现复合续读令牌：按分区作用域的有序游标序列，
// 对调用方不透明。无拓扑变化时一次完整取页往返后字节级不变。
package continuation

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"docgrid-client/internal/partition"
	pkgerrors "docgrid-client/pkg/errors"
)

// RangeCursor 单个分区上的游标：令牌仅在 RangeID 仍指向边界一致的
// 存活分区时可直接续读，否则需经路由映射重定位
type RangeCursor struct {
	RangeID      string `json:"rangeId"`
	MinInclusive string `json:"min"`
	MaxExclusive string `json:"max"`
	InnerToken   string `json:"token,omitempty"`
}

// Token 有序游标序列，首元素为下一次要续读的分区
type Token []RangeCursor

// Head 返回首游标；空令牌返回 false
func (t Token) Head() (RangeCursor, bool) {
	if len(t) == 0 {
		return RangeCursor{}, false
	}
	return t[0], true
}

// Rest 返回除首游标外的剩余序列
func (t Token) Rest() Token {
	if len(t) <= 1 {
		return nil
	}
	return t[1:]
}

// HeadKeyRange 首游标对应的 KeyRange
func (t Token) HeadKeyRange() (partition.KeyRange, bool) {
	head, ok := t.Head()
	if !ok {
		return partition.KeyRange{}, false
	}
	return partition.KeyRange{
		ID:           head.RangeID,
		MinInclusive: head.MinInclusive,
		MaxExclusive: head.MaxExclusive,
	}, true
}

// Encode 序列化为不透明字符串；空令牌编码为空串（表示查询结束）
func (t Token) Encode() (string, error) {
	if len(t) == 0 {
		return "", nil
	}
	data, err := json.Marshal(t)
	if err != nil {
		return "", fmt.Errorf("failed to marshal continuation token: %w", err)
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// Decode 解析不透明字符串；空串返回空令牌。结构非法（缺 rangeId 或边界
// 倒置）按输入错误处理，不可重试
func Decode(s string) (Token, error) {
	if s == "" {
		return nil, nil
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.ErrInvalidArg, "continuation token is not valid base64")
	}
	var t Token
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.ErrInvalidArg, "continuation token is not valid JSON")
	}
	if len(t) == 0 {
		return nil, pkgerrors.Wrap(pkgerrors.ErrInvalidArg, "continuation token has no range cursors")
	}
	for i, c := range t {
		if c.RangeID == "" {
			return nil, pkgerrors.Wrapf(pkgerrors.ErrInvalidArg, "continuation cursor %d has no range id", i)
		}
		if c.MinInclusive > c.MaxExclusive {
			return nil, pkgerrors.Wrapf(pkgerrors.ErrInvalidArg, "continuation cursor %d has inverted bounds", i)
		}
	}
	return t, nil
}

// FromRanges 将尚未访问的分区序列转换为令牌（无内层游标）
func FromRanges(ranges []partition.KeyRange) Token {
	if len(ranges) == 0 {
		return nil
	}
	t := make(Token, 0, len(ranges))
	for _, r := range ranges {
		t = append(t, RangeCursor{
			RangeID:      r.ID,
			MinInclusive: r.MinInclusive,
			MaxExclusive: r.MaxExclusive,
		})
	}
	return t
}
