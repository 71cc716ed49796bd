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

// Package transport 定义网关线协议与派发器契约。认证、连接管理与
// 退避等待由本层及其下游负责，引擎只消费类型化的成功/失败结果。
package transport

import (
	"context"
	"encoding/json"
	"fmt"
)

// 协议版本
const CurrentVersion = "2026-08-01"

// 请求/响应头
const (
	HeaderContinuation           = "x-docgrid-continuation"
	HeaderPartitionKey           = "x-docgrid-partition-key"
	HeaderEnableCrossPartition   = "x-docgrid-enable-cross-partition"
	HeaderIsContinuationExpected = "x-docgrid-continuation-expected"
	HeaderVersion                = "x-docgrid-version"
	HeaderPartitionKeyRangeID    = "x-docgrid-partition-key-range-id"
	HeaderActivityID             = "x-docgrid-activity-id"
	HeaderSubStatus              = "x-docgrid-substatus"
	HeaderRequestCharge          = "x-docgrid-request-charge"
	HeaderItemCount              = "x-docgrid-item-count"
	HeaderQueryMetrics           = "x-docgrid-query-metrics"
)

// 子状态码，区分同一 HTTP 状态下的失败类别
const (
	SubStatusNameCacheStale = 1001 // 集合身份与客户端缓存不一致
	SubStatusRangeGone      = 1002 // 目标分区区间已不存在（split/merge）
)

// ResourceType 请求面向的资源类型；仅 document 分区
type ResourceType string

const (
	ResourceDocument   ResourceType = "document"
	ResourceCollection ResourceType = "collection"
)

// IsPartitioned 该资源类型是否按分区键路由
func (rt ResourceType) IsPartitioned() bool {
	return rt == ResourceDocument
}

// Request 一次物理派发的请求；每次尝试重新构建，不跨尝试复用
type Request struct {
	Collection    string
	CollectionRID string // 解析后的集合内部标识，路由缓存失效用
	ResourceType  ResourceType
	QueryText     string
	Headers       map[string]string
}

// NewRequest 创建空请求并填充版本头
func NewRequest(collection string, rt ResourceType, queryText string) *Request {
	return &Request{
		Collection:   collection,
		ResourceType: rt,
		QueryText:    queryText,
		Headers:      map[string]string{HeaderVersion: CurrentVersion},
	}
}

// RouteToRange 将请求定向到指定分区区间
func (r *Request) RouteToRange(rangeID string) {
	r.Headers[HeaderPartitionKeyRangeID] = rangeID
}

// TargetRangeID 已定向的分区区间 id，未定向返回空
func (r *Request) TargetRangeID() string {
	return r.Headers[HeaderPartitionKeyRangeID]
}

// Response 一次成功派发的结果
type Response struct {
	Items         []json.RawMessage
	Continuation  string            // 服务端内层续读游标，空表示该分区已读尽
	RequestCharge float64
	QueryMetrics  map[string]string // rangeID -> 原始指标串，可为空
	ActivityID    string
}

// FailureKind 失败类别
type FailureKind int

const (
	// KindTransient 一般瞬时失败（网络、限流、5xx）
	KindTransient FailureKind = iota
	// KindRangeGone 目标分区区间已不存在
	KindRangeGone
	// KindInvalidPartition 集合身份与缓存不一致（名称解析陈旧）
	KindInvalidPartition
	// KindNotFound 资源不存在
	KindNotFound
	// KindBadRequest 请求非法，不可重试
	KindBadRequest
)

// String 失败类别名
func (k FailureKind) String() string {
	switch k {
	case KindRangeGone:
		return "range-gone"
	case KindInvalidPartition:
		return "invalid-partition"
	case KindNotFound:
		return "not-found"
	case KindBadRequest:
		return "bad-request"
	default:
		return "transient"
	}
}

// Failure 类型化的派发失败
type Failure struct {
	Kind       FailureKind
	StatusCode int
	SubStatus  int
	Message    string
}

// Error 实现 error
func (f *Failure) Error() string {
	return fmt.Sprintf("dispatch failed (%s, status=%d, substatus=%d): %s", f.Kind, f.StatusCode, f.SubStatus, f.Message)
}

// Dispatcher 传输派发器：发送请求并返回类型化结果。
// 实现负责超时与在途取消；引擎在每次尝试前检查 ctx
type Dispatcher interface {
	Send(ctx context.Context, req *Request) (*Response, error)
}
