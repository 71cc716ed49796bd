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

import (
	"context"
	"testing"

	"docgrid-client/internal/continuation"
	"docgrid-client/internal/metadata"
	"docgrid-client/internal/partition"
)

// fakeRoutingMap 固定快照的 RoutingMapProvider
type fakeRoutingMap struct {
	ranges []partition.KeyRange
}

func (f *fakeRoutingMap) OverlappingRanges(ctx context.Context, rid string, span partition.Span) ([]partition.KeyRange, error) {
	var out []partition.KeyRange
	for _, r := range f.ranges {
		if r.Span().Overlaps(span) {
			out = append(out, r)
		}
	}
	partition.SortAscending(out)
	return out, nil
}

func (f *fakeRoutingMap) RangeByID(ctx context.Context, rid string, rangeID string) (partition.KeyRange, bool, error) {
	for _, r := range f.ranges {
		if r.ID == rangeID {
			return r, true, nil
		}
	}
	return partition.KeyRange{}, false, nil
}

func (f *fakeRoutingMap) Invalidate(rid string) {}

// spanExtractor 返回固定区间的提取器
type spanExtractor struct {
	spans []partition.Span
	calls int
}

func (e *spanExtractor) Extract(queryText string, paths []string) ([]partition.Span, error) {
	e.calls++
	return e.spans, nil
}

var testColl = &metadata.CollectionDescriptor{Name: "orders", ResourceID: "rid-1", PartitionKeyPaths: []string{"/tenant"}}

func twoRangeMap() *fakeRoutingMap {
	return &fakeRoutingMap{ranges: []partition.KeyRange{
		{ID: "0", MinInclusive: "", MaxExclusive: "80"},
		{ID: "1", MinInclusive: "80", MaxExclusive: "FF"},
	}}
}

func TestResolveFromQuery_FirstRangeAscending(t *testing.T) {
	r := NewResolver(twoRangeMap(), nil)
	res, ok, err := r.ResolveTarget(context.Background(), "SELECT * FROM c", testColl, nil)
	if err != nil || !ok {
		t.Fatalf("resolve: ok=%v err=%v", ok, err)
	}
	if res.Target.ID != "0" {
		t.Errorf("target: got %s want 0", res.Target.ID)
	}
	if res.InnerToken != "" {
		t.Errorf("fresh resolution should carry no inner token")
	}
	if len(res.Remaining) != 1 || res.Remaining[0].RangeID != "1" {
		t.Errorf("remaining: got %+v", res.Remaining)
	}
}

func TestProvidedRanges_CachedPerCollection(t *testing.T) {
	ext := &spanExtractor{spans: []partition.Span{partition.FullSpan()}}
	r := NewResolver(twoRangeMap(), ext)

	s1, err := r.ProvidedRanges("SELECT * FROM c", testColl)
	if err != nil {
		t.Fatal(err)
	}
	s2, err := r.ProvidedRanges("SELECT * FROM c", testColl)
	if err != nil {
		t.Fatal(err)
	}
	// 同一集合 rid 必须返回同一份缓存切片
	if &s1[0] != &s2[0] {
		t.Error("repeated calls should return the identical cached slice")
	}
	if ext.calls != 1 {
		t.Errorf("extractor calls: got %d want 1", ext.calls)
	}

	other := &metadata.CollectionDescriptor{Name: "orders", ResourceID: "rid-2"}
	if _, err := r.ProvidedRanges("SELECT * FROM c", other); err != nil {
		t.Fatal(err)
	}
	if ext.calls != 2 {
		t.Errorf("new collection rid should recompute, calls=%d", ext.calls)
	}
}

func TestResolveFromToken_LiveRange(t *testing.T) {
	r := NewResolver(twoRangeMap(), nil)
	token := continuation.Token{
		{RangeID: "1", MinInclusive: "80", MaxExclusive: "FF", InnerToken: "inner-9"},
	}
	res, ok, err := r.ResolveTarget(context.Background(), "SELECT * FROM c", testColl, token)
	if err != nil || !ok {
		t.Fatalf("resolve: ok=%v err=%v", ok, err)
	}
	if res.Target.ID != "1" || res.InnerToken != "inner-9" {
		t.Errorf("got target=%s inner=%q", res.Target.ID, res.InnerToken)
	}
	if len(res.Remaining) != 0 {
		t.Errorf("remaining: got %+v", res.Remaining)
	}
}

func TestResolveFromToken_SplitRemap(t *testing.T) {
	// 区间 1 [80,FF) 分裂为 2 [80,C0) 与 3 [C0,FF)
	rm := &fakeRoutingMap{ranges: []partition.KeyRange{
		{ID: "0", MinInclusive: "", MaxExclusive: "80"},
		{ID: "3", MinInclusive: "C0", MaxExclusive: "FF"},
		{ID: "2", MinInclusive: "80", MaxExclusive: "C0"},
	}}
	r := NewResolver(rm, nil)
	token := continuation.Token{
		{RangeID: "1", MinInclusive: "80", MaxExclusive: "FF", InnerToken: "inner-4"},
	}
	res, ok, err := r.ResolveTarget(context.Background(), "SELECT * FROM c", testColl, token)
	if err != nil || !ok {
		t.Fatalf("resolve: ok=%v err=%v", ok, err)
	}
	// 子区间按键空间升序访问，均继承父游标的内层令牌
	if res.Target.ID != "2" || res.InnerToken != "inner-4" {
		t.Errorf("target: got %s inner=%q", res.Target.ID, res.InnerToken)
	}
	if len(res.Remaining) != 1 || res.Remaining[0].RangeID != "3" || res.Remaining[0].InnerToken != "inner-4" {
		t.Errorf("remaining: got %+v", res.Remaining)
	}
}

func TestResolveFromToken_SplitKeepsRestCursors(t *testing.T) {
	rm := &fakeRoutingMap{ranges: []partition.KeyRange{
		{ID: "2", MinInclusive: "", MaxExclusive: "40"},
		{ID: "3", MinInclusive: "40", MaxExclusive: "80"},
		{ID: "1", MinInclusive: "80", MaxExclusive: "FF"},
	}}
	r := NewResolver(rm, nil)
	token := continuation.Token{
		{RangeID: "0", MinInclusive: "", MaxExclusive: "80"},
		{RangeID: "1", MinInclusive: "80", MaxExclusive: "FF"},
	}
	res, ok, err := r.ResolveTarget(context.Background(), "SELECT * FROM c", testColl, token)
	if err != nil || !ok {
		t.Fatalf("resolve: ok=%v err=%v", ok, err)
	}
	if res.Target.ID != "2" {
		t.Errorf("target: got %s", res.Target.ID)
	}
	want := []string{"3", "1"}
	if len(res.Remaining) != 2 || res.Remaining[0].RangeID != want[0] || res.Remaining[1].RangeID != want[1] {
		t.Errorf("remaining: got %+v want ids %v", res.Remaining, want)
	}
}

func TestResolveTarget_NotResolved(t *testing.T) {
	// 空路由映射：集合删除重建或映射迁移中
	r := NewResolver(&fakeRoutingMap{}, nil)
	_, ok, err := r.ResolveTarget(context.Background(), "SELECT * FROM c", testColl, nil)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if ok {
		t.Error("empty routing map should report not resolved")
	}
}
