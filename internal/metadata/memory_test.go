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

package metadata

import (
	"context"
	"sync/atomic"
	"testing"

	"docgrid-client/internal/partition"
)

func testRanges() []partition.KeyRange {
	return []partition.KeyRange{
		{ID: "0", MinInclusive: "", MaxExclusive: "80"},
		{ID: "1", MinInclusive: "80", MaxExclusive: "FF"},
	}
}

func TestCollectionCache_ResolveAndInvalidate(t *testing.T) {
	ctx := context.Background()
	var fetches atomic.Int32
	cache := NewMemoryCollectionCache(func(ctx context.Context, name string) (*CollectionDescriptor, error) {
		fetches.Add(1)
		return &CollectionDescriptor{Name: name, ResourceID: "rid-1", PartitionKeyPaths: []string{"/tenant"}}, nil
	})

	d1, err := cache.Resolve(ctx, "orders")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	d2, err := cache.Resolve(ctx, "orders")
	if err != nil {
		t.Fatalf("Resolve again: %v", err)
	}
	if d1 != d2 {
		t.Error("second Resolve should hit the cache")
	}
	if fetches.Load() != 1 {
		t.Errorf("fetches: got %d want 1", fetches.Load())
	}

	// 失效幂等，刷新后回源
	cache.Invalidate("orders")
	cache.Invalidate("orders")
	if _, err := cache.Resolve(ctx, "orders"); err != nil {
		t.Fatalf("Resolve after invalidate: %v", err)
	}
	if fetches.Load() != 2 {
		t.Errorf("fetches after invalidate: got %d want 2", fetches.Load())
	}
}

func TestRoutingMap_OverlappingRanges(t *testing.T) {
	ctx := context.Background()
	var fetches atomic.Int32
	rm := NewMemoryRoutingMap(func(ctx context.Context, rid string) ([]partition.KeyRange, error) {
		fetches.Add(1)
		return testRanges(), nil
	}, nil)

	all, err := rm.OverlappingRanges(ctx, "rid-1", partition.FullSpan())
	if err != nil {
		t.Fatalf("OverlappingRanges: %v", err)
	}
	if len(all) != 2 || all[0].ID != "0" || all[1].ID != "1" {
		t.Fatalf("full span: got %+v", all)
	}

	right, err := rm.OverlappingRanges(ctx, "rid-1", partition.Span{Min: "90", Max: "A0"})
	if err != nil {
		t.Fatalf("OverlappingRanges: %v", err)
	}
	if len(right) != 1 || right[0].ID != "1" {
		t.Fatalf("right span: got %+v", right)
	}

	if fetches.Load() != 1 {
		t.Errorf("snapshot should be fetched once, got %d", fetches.Load())
	}
}

func TestRoutingMap_RangeByID(t *testing.T) {
	ctx := context.Background()
	rm := NewMemoryRoutingMap(func(ctx context.Context, rid string) ([]partition.KeyRange, error) {
		return testRanges(), nil
	}, nil)

	r, ok, err := rm.RangeByID(ctx, "rid-1", "1")
	if err != nil || !ok {
		t.Fatalf("RangeByID: ok=%v err=%v", ok, err)
	}
	if r.MinInclusive != "80" {
		t.Errorf("got %+v", r)
	}
	_, ok, err = rm.RangeByID(ctx, "rid-1", "gone")
	if err != nil || ok {
		t.Errorf("missing id: ok=%v err=%v", ok, err)
	}
}

func TestRoutingMap_InvalidateRefetches(t *testing.T) {
	ctx := context.Background()
	var fetches atomic.Int32
	rm := NewMemoryRoutingMap(func(ctx context.Context, rid string) ([]partition.KeyRange, error) {
		fetches.Add(1)
		return testRanges(), nil
	}, nil)

	if _, err := rm.OverlappingRanges(ctx, "rid-1", partition.FullSpan()); err != nil {
		t.Fatal(err)
	}
	rm.Invalidate("rid-1")
	rm.Invalidate("rid-1") // 幂等
	if _, err := rm.OverlappingRanges(ctx, "rid-1", partition.FullSpan()); err != nil {
		t.Fatal(err)
	}
	if fetches.Load() != 2 {
		t.Errorf("fetches: got %d want 2", fetches.Load())
	}
}
