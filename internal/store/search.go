package store

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/coder/hnsw"

	ramerrors "github.com/Aman-CERP/ram/internal/errors"
)

// HNSW parameters for large candidate sets.
const (
	graphM        = 16
	graphEfSearch = 100
)

// Search returns up to k records nearest to query by cosine distance, closest
// first. Filter fields restrict the candidates exactly before ranking.
func (s *MemoryStore) Search(ctx context.Context, query []float32, k int, filter *Filter) ([]SearchHit, error) {
	if len(query) != s.opts.Dimensions {
		return nil, ramerrors.New(ramerrors.ErrCodeDimensionMismatch,
			fmt.Sprintf("query has %d dimensions, store expects %d", len(query), s.opts.Dimensions), nil)
	}
	if k <= 0 {
		return nil, nil
	}

	var listFilter *Filter
	if filter != nil {
		f := *filter
		f.Limit = 0
		listFilter = &f
	}
	candidates, err := s.List(ctx, listFilter)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	q := normalize(query)
	var hits []SearchHit
	if len(candidates) <= s.opts.ExactSearchLimit || isZero(q) {
		hits = exactSearch(q, candidates)
	} else {
		hits = graphSearch(q, candidates, k)
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Distance < hits[j].Distance
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func exactSearch(q []float32, candidates []Record) []SearchHit {
	hits := make([]SearchHit, 0, len(candidates))
	for _, r := range candidates {
		hits = append(hits, SearchHit{Record: r, Distance: cosineDistance(q, normalize(r.Vector))})
	}
	return hits
}

// cosineDistance is hnsw.CosineDistance with zero vectors treated as
// orthogonal to everything, so a distance is never NaN.
func cosineDistance(a, b []float32) float32 {
	if isZero(a) || isZero(b) {
		return 1
	}
	return hnsw.CosineDistance(a, b)
}

func isZero(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}

func graphSearch(q []float32, candidates []Record, k int) []SearchHit {
	graph := hnsw.NewGraph[uint64]()
	graph.Distance = hnsw.CosineDistance
	graph.M = graphM
	graph.EfSearch = max(graphEfSearch, k)
	graph.Ml = 0.25

	// Zero vectors have no direction; they rank at distance 1 outside the graph.
	var zero []SearchHit
	for i, r := range candidates {
		v := normalize(r.Vector)
		if isZero(v) {
			zero = append(zero, SearchHit{Record: r, Distance: 1})
			continue
		}
		graph.Add(hnsw.MakeNode(uint64(i), v))
	}

	var nodes []hnsw.Node[uint64]
	if graph.Len() > 0 {
		nodes = graph.Search(q, k)
	}
	hits := make([]SearchHit, 0, len(nodes)+len(zero))
	for _, node := range nodes {
		hits = append(hits, SearchHit{
			Record:   candidates[node.Key],
			Distance: cosineDistance(q, node.Value),
		})
	}
	return append(hits, zero...)
}

// normalize returns a unit-length copy of v. A zero vector is returned as is.
func normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	out := make([]float32, len(v))
	if sum == 0 {
		copy(out, v)
		return out
	}
	inv := 1 / math.Sqrt(sum)
	for i, x := range v {
		out[i] = float32(float64(x) * inv)
	}
	return out
}
