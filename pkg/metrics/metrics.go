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

package metrics

import (
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// 全局 Registry，供 CLI 与嵌入方注册与暴露
var DefaultRegistry = prometheus.NewRegistry()

func init() {
	DefaultRegistry.MustRegister(
		FetchDuration, DispatchAttemptTotal, RetryTotal,
		CacheInvalidateTotal, RequestChargeTotal,
	)
}

// FetchDuration 单次逻辑取页耗时（秒）
var FetchDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "docgrid_fetch_duration_seconds",
		Help:    "逻辑取页耗时（秒）",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"collection"},
)

// DispatchAttemptTotal 物理派发尝试总数（按结果）
var DispatchAttemptTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "docgrid_dispatch_attempt_total",
		Help: "物理派发尝试总数（按结果）",
	},
	[]string{"outcome"}, // success | failure
)

// RetryTotal 重试总数（按认领的策略）
var RetryTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "docgrid_retry_total",
		Help: "重试总数（按认领的策略）",
	},
	[]string{"policy"}, // invalid_partition | range_gone
)

// CacheInvalidateTotal 元数据缓存失效总数（按缓存类别）
var CacheInvalidateTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "docgrid_cache_invalidate_total",
		Help: "元数据缓存失效总数",
	},
	[]string{"cache"}, // collection | routing_map
)

// RequestChargeTotal 请求计费累计（按集合）
var RequestChargeTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "docgrid_request_charge_total",
		Help: "请求计费累计",
	},
	[]string{"collection"},
)

// WritePrometheus 将 Prometheus 文本格式写入 w（供 CLI 等复用）
func WritePrometheus(w io.Writer) error {
	metrics, err := DefaultRegistry.Gather()
	if err != nil {
		return err
	}
	enc := expfmt.NewEncoder(w, expfmt.FmtText)
	for _, mf := range metrics {
		if err := enc.Encode(mf); err != nil {
			return err
		}
	}
	return nil
}
