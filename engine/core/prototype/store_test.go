package prototype

import (
	"math"
	"sync"
	"testing"
)

func TestBoost_ColdStartNoOp(t *testing.T) {
	s := NewStore()

	inputs := []struct {
		category string
		brand    string
		base     float32
	}{
		{"dairy", "danone", 0.0},
		{"dairy", "danone", 0.5},
		{"", "", 0.73},
		{"snack", "", 1.0},
	}

	for _, in := range inputs {
		got := s.Boost([]float32{1, 0}, in.category, in.brand, in.base)
		if got != in.base {
			t.Errorf("Boost on cold store = %f, want %f unchanged", got, in.base)
		}
	}
}

func TestBuild_GroupsAndNormalizes(t *testing.T) {
	s := NewStore()

	err := s.Build([]Sample{
		{Embedding: []float32{2, 0}, Category: "dairy", Brand: "danone"},
		{Embedding: []float32{4, 0}, Category: "dairy", Brand: "danone"},
		{Embedding: []float32{0, 6}, Category: "snack", Brand: "sicam"},
	})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if s.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", s.Len())
	}

	for _, p := range s.Snapshot() {
		var sum float64
		for _, v := range p.Embedding {
			sum += float64(v) * float64(v)
		}
		if math.Abs(sum-1.0) > 1e-5 {
			t.Errorf("prototype %s/%s not L2-normalized: |v|^2 = %f", p.Category, p.Brand, sum)
		}
	}
}

func TestBuild_RejectsBadSamples(t *testing.T) {
	s := NewStore()

	if err := s.Build([]Sample{{Embedding: nil, Category: "dairy"}}); err == nil {
		t.Error("Build() with empty embedding should error")
	}

	err := s.Build([]Sample{
		{Embedding: []float32{1, 0}, Category: "dairy"},
		{Embedding: []float32{1, 0, 0}, Category: "dairy"},
	})
	if err == nil {
		t.Error("Build() with mismatched dimensions should error")
	}
}

func TestClosest_RanksDominantGroupFirst(t *testing.T) {
	s := NewStore()

	// 3 samples of (catX, brandY) around (1,0) and one (catX, brandZ) at (0,1).
	err := s.Build([]Sample{
		{Embedding: []float32{1, 0}, Category: "catX", Brand: "brandY"},
		{Embedding: []float32{0.9, 0.1}, Category: "catX", Brand: "brandY"},
		{Embedding: []float32{1, 0.05}, Category: "catX", Brand: "brandY"},
		{Embedding: []float32{0, 1}, Category: "catX", Brand: "brandZ"},
	})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	// Query with one of the brandY samples.
	matches := s.Closest([]float32{1, 0}, 2)
	if len(matches) != 2 {
		t.Fatalf("Closest() returned %d matches, want 2", len(matches))
	}
	if matches[0].Brand != "brandY" {
		t.Errorf("top prototype brand = %s, want brandY", matches[0].Brand)
	}
	if matches[0].SampleCount != 3 {
		t.Errorf("top prototype sample count = %d, want 3", matches[0].SampleCount)
	}
	if matches[0].Similarity <= matches[1].Similarity {
		t.Error("matches must be sorted by similarity descending")
	}
}

func TestBoost_CategoryAndBrand(t *testing.T) {
	s := NewStore()

	err := s.Build([]Sample{
		{Embedding: []float32{1, 0}, Category: "dairy", Brand: "danone"},
		{Embedding: []float32{0, 1}, Category: "snack", Brand: "sicam"},
	})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	query := []float32{1, 0}

	tests := []struct {
		name     string
		category string
		brand    string
		base     float32
		want     float32
	}{
		{"category and brand match", "dairy", "danone", 0.5, 0.7},
		{"category only", "dairy", "other", 0.5, 0.6},
		{"no match", "snack", "sicam", 0.5, 0.5},
		{"clamped at 1.0", "dairy", "danone", 0.95, 1.0},
		{"empty candidate category", "", "", 0.5, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Boost(query, tt.category, tt.brand, tt.base)
			if math.Abs(float64(got-tt.want)) > 1e-6 {
				t.Errorf("Boost() = %f, want %f", got, tt.want)
			}
		})
	}
}

func TestStore_ConcurrentBoostDuringRebuild(t *testing.T) {
	s := NewStore()

	seed := []Sample{
		{Embedding: []float32{1, 0}, Category: "dairy", Brand: "danone"},
	}
	if err := s.Build(seed); err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	var wg sync.WaitGroup
	stop := make(chan struct{})

	// Readers must always observe a complete table.
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
					got := s.Boost([]float32{1, 0}, "dairy", "danone", 0.5)
					if got != 0.5 && got != 0.7 {
						t.Errorf("Boost() = %f, want 0.5 (cold) or 0.7 (warm)", got)
						return
					}
				}
			}
		}()
	}

	for range 50 {
		if err := s.Build(seed); err != nil {
			t.Errorf("Build() error = %v", err)
		}
	}
	close(stop)
	wg.Wait()
}

func TestSnapshotRestore_RoundTrip(t *testing.T) {
	s := NewStore()
	err := s.Build([]Sample{
		{Embedding: []float32{1, 0}, Category: "dairy", Brand: "danone"},
		{Embedding: []float32{0, 1}, Category: "snack", Brand: "sicam"},
	})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	warm := NewStore()
	warm.Restore(s.Snapshot())

	if warm.Len() != s.Len() {
		t.Fatalf("restored Len() = %d, want %d", warm.Len(), s.Len())
	}
	if got := warm.Boost([]float32{1, 0}, "dairy", "danone", 0.5); got != 0.7 {
		t.Errorf("Boost() after restore = %f, want 0.7", got)
	}
}
