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
	"testing"

	"docgrid-client/internal/metadata"
	"docgrid-client/internal/partition"
	"docgrid-client/internal/transport"
)

// countingCollections 记录失效次数的 CollectionCache
type countingCollections struct {
	invalidated []string
}

func (c *countingCollections) Resolve(ctx context.Context, name string) (*metadata.CollectionDescriptor, error) {
	return &metadata.CollectionDescriptor{Name: name, ResourceID: "rid-1"}, nil
}

func (c *countingCollections) Invalidate(name string) {
	c.invalidated = append(c.invalidated, name)
}

// countingRoutingMap 记录失效次数的 RoutingMapProvider
type countingRoutingMap struct {
	invalidated []string
}

func (m *countingRoutingMap) OverlappingRanges(ctx context.Context, rid string, span partition.Span) ([]partition.KeyRange, error) {
	return nil, nil
}

func (m *countingRoutingMap) RangeByID(ctx context.Context, rid string, rangeID string) (partition.KeyRange, bool, error) {
	return partition.KeyRange{}, false, nil
}

func (m *countingRoutingMap) Invalidate(rid string) {
	m.invalidated = append(m.invalidated, rid)
}

func docRequest() *transport.Request {
	req := transport.NewRequest("orders", transport.ResourceDocument, "SELECT 1")
	req.CollectionRID = "rid-1"
	return req
}

func TestInvalidPartition_RefreshOnceNoBudget(t *testing.T) {
	colls := &countingCollections{}
	chain := NewDefaultChain(colls, &countingRoutingMap{})
	rc := NewRetryContext()
	failure := &transport.Failure{Kind: transport.KindInvalidPartition}

	advice := chain.Classify(context.Background(), failure, docRequest(), rc)
	if !advice.Claimed || !advice.Retry {
		t.Fatalf("first failure: got %+v", advice)
	}
	if advice.CountsAgainstBudget {
		t.Error("invalid-partition retry must not consume the retry budget")
	}
	if len(colls.invalidated) != 1 || colls.invalidated[0] != "orders" {
		t.Errorf("invalidations: got %v", colls.invalidated)
	}

	// 同一逻辑调用内第二次同类失败：认领但终止，不再刷新
	advice = chain.Classify(context.Background(), failure, docRequest(), rc)
	if !advice.Claimed || advice.Retry {
		t.Fatalf("second failure: got %+v", advice)
	}
	if len(colls.invalidated) != 1 {
		t.Errorf("cache must be force-refreshed exactly once, got %d", len(colls.invalidated))
	}
}

func TestRangeGone_RefreshOnceWithBudget(t *testing.T) {
	rm := &countingRoutingMap{}
	chain := NewDefaultChain(&countingCollections{}, rm)
	rc := NewRetryContext()
	failure := &transport.Failure{Kind: transport.KindRangeGone}

	advice := chain.Classify(context.Background(), failure, docRequest(), rc)
	if !advice.Claimed || !advice.Retry || !advice.CountsAgainstBudget {
		t.Fatalf("first failure: got %+v", advice)
	}
	if len(rm.invalidated) != 1 || rm.invalidated[0] != "rid-1" {
		t.Errorf("invalidations: got %v", rm.invalidated)
	}

	advice = chain.Classify(context.Background(), failure, docRequest(), rc)
	if !advice.Claimed || advice.Retry {
		t.Fatalf("second failure: got %+v", advice)
	}
	if len(rm.invalidated) != 1 {
		t.Errorf("routing map must be invalidated exactly once, got %d", len(rm.invalidated))
	}
}

func TestRangeGone_NonPartitionedPasses(t *testing.T) {
	rm := &countingRoutingMap{}
	chain := NewDefaultChain(&countingCollections{}, rm)
	req := transport.NewRequest("orders", transport.ResourceCollection, "")
	failure := &transport.Failure{Kind: transport.KindRangeGone}

	advice := chain.Classify(context.Background(), failure, req, NewRetryContext())
	if advice.Claimed {
		t.Error("range-gone on non-partitioned resource should pass through")
	}
	if len(rm.invalidated) != 0 {
		t.Errorf("no invalidation expected, got %v", rm.invalidated)
	}
}

func TestChain_UnclaimedFailure(t *testing.T) {
	chain := NewDefaultChain(&countingCollections{}, &countingRoutingMap{})
	for _, kind := range []transport.FailureKind{
		transport.KindTransient, transport.KindNotFound, transport.KindBadRequest,
	} {
		advice := chain.Classify(context.Background(), &transport.Failure{Kind: kind}, docRequest(), NewRetryContext())
		if advice.Claimed {
			t.Errorf("kind %s should be unclaimed", kind)
		}
	}
}

func TestRetryContext_Sentinel(t *testing.T) {
	rc := NewRetryContext()
	if rc.Attempts != NotYetRetried {
		t.Errorf("fresh context attempts: got %d", rc.Attempts)
	}
	if rc.RetryCount() != 0 {
		t.Errorf("fresh context retry count: got %d", rc.RetryCount())
	}
	rc.Attempts = 2
	if rc.RetryCount() != 2 {
		t.Errorf("retry count: got %d", rc.RetryCount())
	}
}
