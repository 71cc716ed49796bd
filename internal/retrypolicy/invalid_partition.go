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

package retrypolicy

import (
	"context"

	"docgrid-client/internal/metadata"
	"docgrid-client/internal/transport"
)

// InvalidPartitionPolicy 处理集合身份陈旧：服务端报告被寻址集合已不是
// 客户端缓存的那个。失效集合缓存条目后重试，不计入对外重试预算
type InvalidPartitionPolicy struct {
	Collections metadata.CollectionCache
}

// Name 策略名
func (p *InvalidPartitionPolicy) Name() string { return "invalid_partition" }

// Classify 认领 KindInvalidPartition；本次逻辑调用内已刷新过则终止
func (p *InvalidPartitionPolicy) Classify(ctx context.Context, failure *transport.Failure, req *transport.Request, rc *RetryContext) Advice {
	if failure.Kind != transport.KindInvalidPartition {
		return Pass()
	}
	if rc.CollectionRefreshed {
		return Advice{Claimed: true}
	}
	rc.CollectionRefreshed = true
	p.Collections.Invalidate(req.Collection)
	return Advice{Claimed: true, Retry: true}
}
