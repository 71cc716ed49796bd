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

// RangeGonePolicy 处理目标分区区间消失：split/merge 与请求竞争。
// 仅对分区资源类型生效；失效该集合的路由映射后经重新解析重试，
// 计入对外重试预算
type RangeGonePolicy struct {
	RoutingMap metadata.RoutingMapProvider
}

// Name 策略名
func (p *RangeGonePolicy) Name() string { return "range_gone" }

// Classify 认领 KindRangeGone；本次逻辑调用内已刷新过则终止
func (p *RangeGonePolicy) Classify(ctx context.Context, failure *transport.Failure, req *transport.Request, rc *RetryContext) Advice {
	if failure.Kind != transport.KindRangeGone {
		return Pass()
	}
	if !req.ResourceType.IsPartitioned() {
		return Pass()
	}
	if rc.RoutingRefreshed {
		return Advice{Claimed: true}
	}
	rc.RoutingRefreshed = true
	p.RoutingMap.Invalidate(req.CollectionRID)
	return Advice{Claimed: true, Retry: true, CountsAgainstBudget: true}
}
