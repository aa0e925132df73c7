// Package prototype maintains one averaged, L2-normalized embedding per
// (category, brand) pair. Prototypes compensate for small per-category sample
// sizes: at query time the closest prototype boosts candidates that share its
// category or brand.
package prototype

import (
	"fmt"
	"math"
	"sort"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// Sample is one labeled training example.
type Sample struct {
	Embedding []float32
	Category  string
	Brand     string
}

// Prototype is an averaged embedding for a (category, brand) pair, plus the
// number of examples it was built from. Embeddings are L2-normalized.
type Prototype struct {
	Category    string
	Brand       string
	Embedding   []float32
	SampleCount int
}

// Match is one prototype ranked by cosine similarity to a query embedding.
type Match struct {
	Category    string
	Brand       string
	Similarity  float32
	SampleCount int
}

// Boost amounts applied on top of a candidate's base score when the closest
// prototype agrees with the candidate. The brand boost supersedes the plain
// category boost; they are not additive.
const (
	categoryBoost = 0.10
	brandBoost    = 0.20
)

type table struct {
	prototypes []Prototype
}

// Store holds the active prototype table. The table is rebuilt wholesale and
// swapped atomically: readers always see either the old or the new complete
// table, never a partial one, and reads never block on other reads.
type Store struct {
	active  atomic.Pointer[table]
	buildMu sync.Mutex
}

// NewStore creates an empty (cold-start) store.
func NewStore() *Store {
	s := &Store{}
	s.active.Store(&table{})
	return s
}

// Len returns the number of active prototypes.
func (s *Store) Len() int {
	return len(s.active.Load().prototypes)
}

// Build groups samples by (category, brand), averages each group's embeddings
// and L2-normalizes the result, then swaps the new table in. Groups are
// independent and averaged in parallel. Incremental updates are deliberately
// unsupported: rebuilding wholesale avoids prototype drift.
func (s *Store) Build(samples []Sample) error {
	s.buildMu.Lock()
	defer s.buildMu.Unlock()

	groups := make(map[string][]Sample)
	order := make([]string, 0)
	var dim int
	for i, sample := range samples {
		if len(sample.Embedding) == 0 {
			return fmt.Errorf("sample %d has an empty embedding", i)
		}
		if dim == 0 {
			dim = len(sample.Embedding)
		} else if len(sample.Embedding) != dim {
			return fmt.Errorf("sample %d has dimension %d, want %d", i, len(sample.Embedding), dim)
		}

		key := sample.Category + "\x00" + sample.Brand
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], sample)
	}

	prototypes := make([]Prototype, len(order))
	var g errgroup.Group
	for i, key := range order {
		group := groups[key]
		slot := i
		g.Go(func() error {
			prototypes[slot] = buildOne(group)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	s.active.Store(&table{prototypes: prototypes})
	return nil
}

// Restore replaces the active table with previously persisted prototypes.
// Used to warm the store from storage without re-averaging the corpus.
func (s *Store) Restore(prototypes []Prototype) {
	s.buildMu.Lock()
	defer s.buildMu.Unlock()

	copied := make([]Prototype, len(prototypes))
	copy(copied, prototypes)
	s.active.Store(&table{prototypes: copied})
}

// Snapshot returns a copy of the active prototype table for persistence.
func (s *Store) Snapshot() []Prototype {
	active := s.active.Load().prototypes
	out := make([]Prototype, len(active))
	copy(out, active)
	return out
}

// Closest returns the topK prototypes ranked by cosine similarity to the
// query embedding. Returns nil when the store is cold or the query is empty.
func (s *Store) Closest(query []float32, topK int) []Match {
	prototypes := s.active.Load().prototypes
	if len(prototypes) == 0 || len(query) == 0 || topK <= 0 {
		return nil
	}

	matches := make([]Match, 0, len(prototypes))
	for _, p := range prototypes {
		matches = append(matches, Match{
			Category:    p.Category,
			Brand:       p.Brand,
			Similarity:  cosine(query, p.Embedding),
			SampleCount: p.SampleCount,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})

	if topK < len(matches) {
		matches = matches[:topK]
	}
	return matches
}

// Boost raises baseScore when the closest prototype agrees with the
// candidate's category (+0.10) or category and brand (+0.20, superseding the
// category boost). The result is clamped to 1.0. With a cold store Boost is a
// no-op returning baseScore unchanged; it never errors.
func (s *Store) Boost(query []float32, candidateCategory, candidateBrand string, baseScore float32) float32 {
	top := s.Closest(query, 1)
	if len(top) == 0 {
		return baseScore
	}

	boosted := baseScore
	if top[0].Category == candidateCategory && candidateCategory != "" {
		if top[0].Brand == candidateBrand && candidateBrand != "" {
			boosted += brandBoost
		} else {
			boosted += categoryBoost
		}
	}

	if boosted > 1 {
		boosted = 1
	}
	return boosted
}

func buildOne(group []Sample) Prototype {
	dim := len(group[0].Embedding)
	mean := make([]float32, dim)
	for _, sample := range group {
		for i, v := range sample.Embedding {
			mean[i] += v
		}
	}

	n := float32(len(group))
	for i := range mean {
		mean[i] /= n
	}
	normalize(mean)

	return Prototype{
		Category:    group[0].Category,
		Brand:       group[0].Brand,
		Embedding:   mean,
		SampleCount: len(group),
	}
}

func normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	norm := float32(math.Sqrt(sum))
	for i := range v {
		v[i] /= norm
	}
}

func cosine(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}
