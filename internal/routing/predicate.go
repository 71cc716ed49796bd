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

package routing

import "docgrid-client/internal/partition"

// ProvidedRangesExtractor 从查询的分区谓词推导需要访问的键空间区间。
// 平台受限时不可用，此时引擎回退 FullRangeExtractor 走全键空间路由
type ProvidedRangesExtractor interface {
	// Extract 返回查询需要访问的区间（升序）；无可利用谓词时返回全键空间
	Extract(queryText string, partitionKeyPaths []string) ([]partition.Span, error)
}

// FullRangeExtractor 兜底提取器：一律返回全键空间
type FullRangeExtractor struct{}

// Extract 返回覆盖整个键空间的单一区间
func (FullRangeExtractor) Extract(queryText string, partitionKeyPaths []string) ([]partition.Span, error) {
	return []partition.Span{partition.FullSpan()}, nil
}
