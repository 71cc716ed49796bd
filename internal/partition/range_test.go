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

package partition

import "testing"

func TestSpanContains(t *testing.T) {
	s := Span{Min: "40", Max: "80"}
	if !s.Contains("40") {
		t.Error("lower bound inclusive")
	}
	if s.Contains("80") {
		t.Error("upper bound exclusive")
	}
	if s.Contains("3F") || s.Contains("90") {
		t.Error("out of bounds should not be contained")
	}
}

func TestSpanOverlaps(t *testing.T) {
	a := Span{Min: "", Max: "40"}
	b := Span{Min: "40", Max: "80"}
	if a.Overlaps(b) {
		t.Error("adjacent half-open spans should not overlap")
	}
	c := Span{Min: "30", Max: "50"}
	if !a.Overlaps(c) || !b.Overlaps(c) {
		t.Error("straddling span should overlap both")
	}
	empty := Span{Min: "40", Max: "40"}
	if empty.Overlaps(b) {
		t.Error("empty span overlaps nothing")
	}
}

func TestSpanCovers(t *testing.T) {
	if !FullSpan().Covers(Span{Min: "10", Max: "20"}) {
		t.Error("full span covers everything")
	}
	if (Span{Min: "10", Max: "20"}).Covers(Span{Min: "10", Max: "21"}) {
		t.Error("shorter span does not cover longer")
	}
}

func TestSortAscending(t *testing.T) {
	ranges := []KeyRange{
		{ID: "2", MinInclusive: "80", MaxExclusive: "FF"},
		{ID: "0", MinInclusive: "", MaxExclusive: "40"},
		{ID: "1", MinInclusive: "40", MaxExclusive: "80"},
	}
	SortAscending(ranges)
	for i, want := range []string{"0", "1", "2"} {
		if ranges[i].ID != want {
			t.Fatalf("order[%d]: got %s want %s", i, ranges[i].ID, want)
		}
	}
}

func TestEffectiveKey(t *testing.T) {
	k := EffectiveKey("tenant-42")
	if !FullSpan().Contains(k) {
		t.Fatalf("effective key %q outside key space", k)
	}
	if k != EffectiveKey("tenant-42") {
		t.Error("effective key must be deterministic")
	}
	if len(k) != 8 {
		t.Errorf("effective key width: got %d", len(k))
	}
}
