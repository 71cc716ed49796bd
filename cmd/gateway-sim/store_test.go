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

package main

import (
	"testing"
)

func TestSplit_RedistributesDocs(t *testing.T) {
	s := newSimStore()
	c := s.createCollection("orders", "/customerId")
	for _, id := range []string{"o-1", "o-2", "o-3", "o-4"} {
		s.insert(c, id, id, []byte(`{}`))
	}
	root := c.ranges[0]

	if err := s.split(c, root.ID); err != nil {
		t.Fatalf("split: %v", err)
	}
	if len(c.ranges) != 2 {
		t.Fatalf("want 2 ranges after split, got %d", len(c.ranges))
	}
	total := 0
	for _, r := range c.ranges {
		if r.Span().IsEmpty() {
			t.Errorf("child range %s has empty span [%s,%s)", r.ID, r.MinInclusive, r.MaxExclusive)
		}
		total += len(c.docs[r.ID])
	}
	if total != 4 {
		t.Errorf("split must preserve documents, got %d", total)
	}
	if _, ok := c.docs[root.ID]; ok {
		t.Error("parent range should no longer hold documents")
	}
}

func TestSplit_RejectsDegenerateMidpoint(t *testing.T) {
	s := newSimStore()
	c := s.createCollection("orders", "/customerId")

	// 反复分裂最左区间直到边界窄到中点退化
	var rejected bool
	for i := 0; i < 16; i++ {
		if err := s.split(c, c.ranges[0].ID); err != nil {
			rejected = true
			break
		}
	}
	if !rejected {
		t.Fatal("narrow range split should eventually be rejected")
	}
	for _, r := range c.ranges {
		if r.Span().IsEmpty() {
			t.Errorf("live range %s has empty span [%s,%s)", r.ID, r.MinInclusive, r.MaxExclusive)
		}
	}
}
