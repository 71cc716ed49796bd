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

// Package queryexec 实现查询执行上下文：驱动一条逻辑查询到完成，
// 循环构建请求、解析目标分区、经策略链派发、合并诊断并产出下一个
// 续读令牌。同一 ExecutionContext 为 single-flight：调用方必须串行
// 调用 FetchNext，续读游标与 provided-ranges 缓存无内部同步。
package queryexec

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"docgrid-client/internal/continuation"
	"docgrid-client/internal/metadata"
	"docgrid-client/internal/retrypolicy"
	"docgrid-client/internal/routing"
	"docgrid-client/internal/transport"
	"docgrid-client/pkg/config"
	pkgerrors "docgrid-client/pkg/errors"
	"docgrid-client/pkg/log"
	"docgrid-client/pkg/metrics"
	"docgrid-client/pkg/tracing"
)

// Options 单条逻辑查询的选项
type Options struct {
	// PartitionKey 已知精确分区键值时直接路由，绕过区间解析
	PartitionKey string
	// EnableCrossPartition 跨分区开关，字符串布尔（线协议形式）；
	// 空为 false，非法值为致命输入错误
	EnableCrossPartition string
	// IsContinuationExpected 透传给服务端
	IsContinuationExpected bool
	// Version 协议版本，空则使用引擎当前版本
	Version string
	// Continuation 起始续读令牌（上一页产出），空表示从头
	Continuation string
}

// Page 一次逻辑取页的结果；Continuation 为空表示查询结束
type Page struct {
	Items        []json.RawMessage
	Continuation string
	Diagnostics  Diagnostics
}

// Deps 执行上下文的外部协作者
type Deps struct {
	Dispatcher  transport.Dispatcher
	Collections metadata.CollectionCache
	RoutingMap  metadata.RoutingMapProvider
	Extractor   routing.ProvidedRangesExtractor // 可为 nil（全键空间兜底）
	Chain       retrypolicy.Chain               // 空则用默认链
	Logger      *log.Logger
}

// ExecutionContext 驱动单条逻辑查询的编排器
type ExecutionContext struct {
	collection   string
	resourceType transport.ResourceType
	queryText    string
	opts         Options

	deps     Deps
	resolver *routing.Resolver

	maxAttempts int
	backoff     time.Duration

	inFlight     bool
	continuation string
	done         bool
}

// NewExecutionContext 创建执行上下文。provided-ranges 缓存随上下文
// 存活，新查询应新建上下文
func NewExecutionContext(collection string, queryText string, opts Options, deps Deps, retryCfg config.RetryConfig) *ExecutionContext {
	if deps.Logger == nil {
		deps.Logger = log.Default()
	}
	if deps.Chain == nil {
		deps.Chain = retrypolicy.NewDefaultChain(deps.Collections, deps.RoutingMap)
	}
	maxAttempts := retryCfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &ExecutionContext{
		collection:   collection,
		resourceType: transport.ResourceDocument,
		queryText:    queryText,
		opts:         opts,
		deps:         deps,
		resolver:     routing.NewResolver(deps.RoutingMap, deps.Extractor),
		maxAttempts:  maxAttempts,
		backoff:      config.ParseDuration(retryCfg.Backoff, 100*time.Millisecond),
		continuation: opts.Continuation,
	}
}

// crossPartitionEnabled 解析跨分区开关；非法值为致命输入错误
func (e *ExecutionContext) crossPartitionEnabled() (bool, error) {
	if e.opts.EnableCrossPartition == "" {
		return false, nil
	}
	enabled, err := strconv.ParseBool(e.opts.EnableCrossPartition)
	if err != nil {
		return false, pkgerrors.Wrapf(pkgerrors.ErrInvalidArg,
			"header %s has malformed boolean value %q", transport.HeaderEnableCrossPartition, e.opts.EnableCrossPartition)
	}
	return enabled, nil
}

// directRoute 请求是否绕过区间解析：已带精确分区键，或资源类型不分区
func (e *ExecutionContext) directRoute() bool {
	return e.opts.PartitionKey != "" || !e.resourceType.IsPartitioned()
}

// FetchNext 取下一逻辑页。取消信号在每次派发尝试前与重试间隔中生效
func (e *ExecutionContext) FetchNext(ctx context.Context) (*Page, error) {
	if e.inFlight {
		return nil, pkgerrors.Wrap(pkgerrors.ErrInvalidArg, "fetch already in flight on this context")
	}
	crossPartition, err := e.crossPartitionEnabled()
	if err != nil {
		return nil, err
	}
	if e.done {
		return &Page{}, nil
	}

	ctx, span := tracing.StartFetchSpan(ctx, e.collection)
	defer span.End()

	e.inFlight = true
	start := time.Now()
	page, err := e.fetch(ctx, crossPartition)
	e.inFlight = false
	if err != nil {
		return nil, err
	}
	e.continuation = page.Continuation
	e.done = page.Continuation == ""
	metrics.FetchDuration.WithLabelValues(e.collection).Observe(time.Since(start).Seconds())
	metrics.RequestChargeTotal.WithLabelValues(e.collection).Add(page.Diagnostics.RequestCharge)
	return page, nil
}

// Continuation 当前续读令牌（上一页产出）
func (e *ExecutionContext) Continuation() string {
	return e.continuation
}

// Done 查询是否已读尽
func (e *ExecutionContext) Done() bool {
	return e.done
}

// fetch 逻辑取页主循环：每次尝试重建请求，失败经策略链裁决
func (e *ExecutionContext) fetch(ctx context.Context, crossPartition bool) (*Page, error) {
	rc := retrypolicy.NewRetryContext()
	acc := NewAccumulator()
	metadataRefreshed := false
	attempt := 0

	for {
		// 新派发尝试前响应取消
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var token continuation.Token
		var res routing.Resolution
		var coll *metadata.CollectionDescriptor

		req := transport.NewRequest(e.collection, e.resourceType, e.queryText)
		if e.opts.Version != "" {
			req.Headers[transport.HeaderVersion] = e.opts.Version
		}
		if e.opts.EnableCrossPartition != "" {
			req.Headers[transport.HeaderEnableCrossPartition] = e.opts.EnableCrossPartition
		}
		if e.opts.IsContinuationExpected {
			req.Headers[transport.HeaderIsContinuationExpected] = "true"
		}

		if e.directRoute() {
			// 单分区捷径：续读令牌原样透传，服务端游标即引擎游标
			if e.opts.PartitionKey != "" {
				req.Headers[transport.HeaderPartitionKey] = e.opts.PartitionKey
			}
			if e.continuation != "" {
				req.Headers[transport.HeaderContinuation] = e.continuation
			}
		} else {
			var err error
			token, err = continuation.Decode(e.continuation)
			if err != nil {
				return nil, err
			}

			coll, err = e.deps.Collections.Resolve(ctx, e.collection)
			if err != nil {
				return nil, pkgerrors.Wrapf(err, "failed to resolve collection %q", e.collection)
			}
			req.CollectionRID = coll.ResourceID

			var ok bool
			res, ok, err = e.resolver.ResolveTarget(ctx, e.queryText, coll, token)
			if err != nil {
				return nil, pkgerrors.Wrapf(err, "failed to resolve target range for collection %q", e.collection)
			}
			if !ok {
				// 一次强制元数据刷新后重试解析，再失败即致命
				if !metadataRefreshed {
					metadataRefreshed = true
					e.deps.Collections.Invalidate(e.collection)
					e.deps.RoutingMap.Invalidate(coll.ResourceID)
					e.deps.Logger.Warn("routing not resolved, forcing metadata refresh",
						"collection", e.collection, "continuation", e.continuation)
					continue
				}
				return nil, pkgerrors.Wrapf(pkgerrors.ErrRoutingUnresolvable,
					"collection %q (rid %s), continuation %q", e.collection, coll.ResourceID, e.continuation)
			}

			if !crossPartition && len(res.Remaining) > 0 {
				return nil, pkgerrors.Wrapf(pkgerrors.ErrInvalidArg,
					"query against collection %q spans multiple partition key ranges but cross-partition execution is disabled", e.collection)
			}

			req.RouteToRange(res.Target.ID)
			if res.InnerToken != "" {
				req.Headers[transport.HeaderContinuation] = res.InnerToken
			}
		}

		dispatchCtx, dispatchSpan := tracing.StartDispatchSpan(ctx, req.TargetRangeID(), attempt)
		acc.BeginAttempt(req.TargetRangeID())
		resp, err := e.deps.Dispatcher.Send(dispatchCtx, req)
		dispatchSpan.End()
		attempt++

		if err == nil {
			acc.EndAttempt(len(resp.Items), rc.RetryCount())
			metrics.DispatchAttemptTotal.WithLabelValues("success").Inc()
			return e.buildPage(resp, res, acc, rc)
		}

		acc.EndAttempt(0, rc.RetryCount())
		metrics.DispatchAttemptTotal.WithLabelValues("failure").Inc()

		var failure *transport.Failure
		if !errors.As(err, &failure) {
			// 非传输失败（如取消）直接向上传播
			return nil, err
		}

		advice := e.deps.Chain.Classify(ctx, failure, req, rc)
		if !advice.Claimed {
			// 无策略认领：首次出现即向上传播，不吞信息
			return nil, failure
		}
		if !advice.Retry {
			return nil, fmt.Errorf("%w: %w", pkgerrors.ErrRetryExhausted, failure)
		}
		if advice.CountsAgainstBudget {
			if rc.Attempts == retrypolicy.NotYetRetried {
				rc.Attempts = 1
			} else {
				rc.Attempts++
			}
			if rc.Attempts > e.maxAttempts {
				return nil, fmt.Errorf("%w: %w", pkgerrors.ErrRetryExhausted, failure)
			}
		}
		e.deps.Logger.Debug("retrying dispatch",
			"collection", e.collection, "kind", failure.Kind.String(), "attempts", rc.RetryCount())

		// 重试间隔中同样响应取消
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(e.backoff):
		}
	}
}

// buildPage 成功路径：缝合续读令牌并合并诊断
func (e *ExecutionContext) buildPage(resp *transport.Response, res routing.Resolution, acc *Accumulator, rc *retrypolicy.RetryContext) (*Page, error) {
	var next string
	if e.directRoute() {
		next = resp.Continuation
	} else {
		var nextToken continuation.Token
		if resp.Continuation != "" {
			// 目标分区未读尽：首游标更新为服务端内层游标
			nextToken = append(continuation.Token{{
				RangeID:      res.Target.ID,
				MinInclusive: res.Target.MinInclusive,
				MaxExclusive: res.Target.MaxExclusive,
				InnerToken:   resp.Continuation,
			}}, res.Remaining...)
		} else {
			// 目标分区读尽：推进到剩余分区
			nextToken = res.Remaining
		}
		var err error
		next, err = nextToken.Encode()
		if err != nil {
			return nil, err
		}
	}

	return &Page{
		Items:        resp.Items,
		Continuation: next,
		Diagnostics:  MergeDiagnostics(resp, acc, rc.RetryCount()),
	}, nil
}
