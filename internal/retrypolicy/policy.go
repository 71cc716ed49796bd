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

// Package retrypolicy 实现可组合的重试策略链：固定顺序逐个分类失败，
// 每个策略只刷新自己负责的缓存，拓扑变化恢复与名称解析恢复互不干扰。
// 无人认领的失败立即终止。
package retrypolicy

import (
	"context"

	"docgrid-client/internal/metadata"
	"docgrid-client/internal/transport"
	"docgrid-client/pkg/metrics"
)

// NotYetRetried 诊断中"尚未重试"的哨兵值，每次逻辑调用开始时重置
const NotYetRetried = -1

// RetryContext 单次逻辑调用内的可变计数状态。每类失败至多一次强制
// 刷新，避免刷新风暴
type RetryContext struct {
	// Attempts 计入预算的重试次数；NotYetRetried 表示尚未重试
	Attempts int
	// CollectionRefreshed 本次逻辑调用内集合缓存是否已强制刷新
	CollectionRefreshed bool
	// RoutingRefreshed 本次逻辑调用内路由映射是否已强制刷新
	RoutingRefreshed bool
}

// NewRetryContext 创建新的计数状态（Attempts 为哨兵值）
func NewRetryContext() *RetryContext {
	return &RetryContext{Attempts: NotYetRetried}
}

// RetryCount 对外报告的重试次数：未重试时为 0
func (rc *RetryContext) RetryCount() int {
	if rc.Attempts == NotYetRetried {
		return 0
	}
	return rc.Attempts
}

// Advice 策略对一次失败的裁决
type Advice struct {
	// Claimed 策略是否认领该失败；false 时交由下一个策略
	Claimed bool
	// Retry 认领后是否重试；false 表示终止
	Retry bool
	// CountsAgainstBudget 本次重试是否计入对外可见的重试预算
	CountsAgainstBudget bool
}

// Pass 未认领
func Pass() Advice { return Advice{} }

// Policy 纯"分类并裁决"的策略单元
type Policy interface {
	// Name 策略名（用于指标与日志）
	Name() string
	// Classify 检查失败并给出裁决；认领时可带副作用（失效对应缓存）
	Classify(ctx context.Context, failure *transport.Failure, req *transport.Request, rc *RetryContext) Advice
}

// Chain 固定顺序的策略列表
type Chain []Policy

// Classify 依序询问各策略，返回首个认领的裁决；无人认领返回未认领
func (c Chain) Classify(ctx context.Context, failure *transport.Failure, req *transport.Request, rc *RetryContext) Advice {
	for _, p := range c {
		advice := p.Classify(ctx, failure, req, rc)
		if advice.Claimed {
			if advice.Retry {
				metrics.RetryTotal.WithLabelValues(p.Name()).Inc()
			}
			return advice
		}
	}
	return Pass()
}

// NewDefaultChain 默认策略链：先名称解析恢复，后拓扑变化恢复
func NewDefaultChain(collections metadata.CollectionCache, routingMap metadata.RoutingMapProvider) Chain {
	return Chain{
		&InvalidPartitionPolicy{Collections: collections},
		&RangeGonePolicy{RoutingMap: routingMap},
	}
}
