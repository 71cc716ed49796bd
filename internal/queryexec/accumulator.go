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

import "time"

// FetchExecutionRange 单次派发尝试的不可变记录，创建后只追加不修改
type FetchExecutionRange struct {
	RangeID         string    `json:"rangeId"`
	Start           time.Time `json:"start"`
	End             time.Time `json:"end"`
	ItemCount       int       `json:"itemCount"`
	RetryCountAtEnd int       `json:"retryCountAtEnd"`
}

// SchedulingMetrics 整次逻辑取页的总耗时
type SchedulingMetrics struct {
	TotalElapsed time.Duration `json:"totalElapsed"`
}

// Accumulator 按尝试记录起止时间与条目数，只追加；仅用于构建诊断，
// 不参与控制流
type Accumulator struct {
	fetchStart   time.Time
	attemptStart time.Time
	attemptRange string
	records      []FetchExecutionRange
}

// NewAccumulator 创建累加器并记下取页开始时刻
func NewAccumulator() *Accumulator {
	return &Accumulator{fetchStart: time.Now()}
}

// BeginAttempt 记录一次派发尝试开始
func (a *Accumulator) BeginAttempt(rangeID string) {
	a.attemptStart = time.Now()
	a.attemptRange = rangeID
}

// EndAttempt 结束当前尝试并追加不可变记录
func (a *Accumulator) EndAttempt(itemCount, retryCountAtEnd int) {
	a.records = append(a.records, FetchExecutionRange{
		RangeID:         a.attemptRange,
		Start:           a.attemptStart,
		End:             time.Now(),
		ItemCount:       itemCount,
		RetryCountAtEnd: retryCountAtEnd,
	})
}

// Records 返回有序的尝试记录副本
func (a *Accumulator) Records() []FetchExecutionRange {
	out := make([]FetchExecutionRange, len(a.records))
	copy(out, a.records)
	return out
}

// Scheduling 返回整次取页的耗时
func (a *Accumulator) Scheduling() SchedulingMetrics {
	return SchedulingMetrics{TotalElapsed: time.Since(a.fetchStart)}
}
