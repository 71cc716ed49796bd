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

package queryexec

import (
	"strconv"
	"strings"

	"docgrid-client/internal/transport"
)

// RangeQueryMetrics 服务端单分区执行指标与客户端观测数据的合并结果
type RangeQueryMetrics struct {
	Raw                    string  `json:"raw"`
	TotalExecutionMs       float64 `json:"totalExecutionMs"`
	RetrievedDocumentCount int     `json:"retrievedDocumentCount"`
	RetryCount             int     `json:"retryCount"`
	RequestCharge          float64 `json:"requestCharge"`
}

// Diagnostics 附着在成功响应上的诊断载荷。RetryCount 仅在本次逻辑
// 调用内有意义，不跨页累计
type Diagnostics struct {
	ActivityID      string                       `json:"activityId"`
	RequestCharge   float64                      `json:"requestCharge"`
	RetryCount      int                          `json:"retryCount"`
	ExecutionRanges []FetchExecutionRange        `json:"executionRanges"`
	Scheduling      SchedulingMetrics            `json:"scheduling"`
	QueryMetrics    map[string]RangeQueryMetrics `json:"queryMetrics,omitempty"`
}

// MergeDiagnostics 纯合并函数：基础响应 + 可选服务端指标 + 客户端计数
// 合成诊断载荷，与派发/重试逻辑解耦
func MergeDiagnostics(resp *transport.Response, acc *Accumulator, retryCount int) Diagnostics {
	d := Diagnostics{
		ActivityID:      resp.ActivityID,
		RequestCharge:   resp.RequestCharge,
		RetryCount:      retryCount,
		ExecutionRanges: acc.Records(),
		Scheduling:      acc.Scheduling(),
	}
	if len(resp.QueryMetrics) > 0 {
		d.QueryMetrics = make(map[string]RangeQueryMetrics, len(resp.QueryMetrics))
		for rangeID, raw := range resp.QueryMetrics {
			m := parseRangeMetrics(raw)
			m.RetryCount = retryCount
			m.RequestCharge = resp.RequestCharge
			d.QueryMetrics[rangeID] = m
		}
	}
	return d
}

// parseRangeMetrics 解析 "k=v;k=v" 形式的服务端指标串；未知键忽略，
// 原始串保留
func parseRangeMetrics(raw string) RangeQueryMetrics {
	m := RangeQueryMetrics{Raw: raw}
	for _, pair := range strings.Split(raw, ";") {
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		switch strings.TrimSpace(k) {
		case "totalExecutionTimeInMs":
			m.TotalExecutionMs, _ = strconv.ParseFloat(strings.TrimSpace(v), 64)
		case "retrievedDocumentCount":
			m.RetrievedDocumentCount, _ = strconv.Atoi(strings.TrimSpace(v))
		}
	}
	return m
}
