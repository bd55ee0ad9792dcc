// Package index provides an exact (flat) nearest-neighbour index over dense
// vectors. It is built once from a fixed corpus and queried many times; any
// change to the corpus requires building a new index.
package index

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// Metric selects how the distance between two vectors is computed. Every
// metric reports a distance: smaller means more similar.
type Metric string

const (
	// InnerProduct reports the negated dot product.
	InnerProduct Metric = "inner_product"
	// L2 reports the squared Euclidean distance.
	L2 Metric = "l2"
	// Cosine reports 1 - cosine similarity.
	Cosine Metric = "cosine"
)

var (
	// ErrEmptyIndex is returned when building from no vectors.
	ErrEmptyIndex = errors.New("index: no vectors")
	// ErrDimension is returned on a vector whose length differs from the index.
	ErrDimension = errors.New("index: dimension mismatch")
)

// ParseMetric maps a configuration string onto a Metric.
func ParseMetric(s string) (Metric, error) {
	switch m := Metric(s); m {
	case InnerProduct, L2, Cosine:
		return m, nil
	case "ip", "dot":
		return InnerProduct, nil
	default:
		return "", fmt.Errorf("index: unknown metric %q", s)
	}
}

// Hit is one search result: the position of the vector in the slice the
// index was built from, and its distance to the query.
type Hit struct {
	Position int
	Score    float32
}

// Flat is a brute-force index. It keeps its own copy of the vectors and is
// safe for concurrent Search calls once built.
type Flat struct {
	metric Metric
	dim    int
	vecs   [][]float32
	norms  []float64 // only for Cosine
}

// Build constructs an index over vectors. All vectors must be non-empty and
// share one dimension.
func Build(metric Metric, vectors [][]float32) (*Flat, error) {
	if _, err := ParseMetric(string(metric)); err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, ErrEmptyIndex
	}
	dim := len(vectors[0])
	if dim == 0 {
		return nil, fmt.Errorf("%w: zero-length vector at 0", ErrDimension)
	}
	f := &Flat{metric: metric, dim: dim, vecs: make([][]float32, len(vectors))}
	for i, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("%w: vector %d has %d, want %d", ErrDimension, i, len(v), dim)
		}
		f.vecs[i] = append([]float32(nil), v...)
	}
	if metric == Cosine {
		f.norms = make([]float64, len(f.vecs))
		for i, v := range f.vecs {
			f.norms[i] = math.Sqrt(dot(v, v))
		}
	}
	return f, nil
}

// Len is the number of indexed vectors.
func (f *Flat) Len() int { return len(f.vecs) }

// Dim is the vector dimension.
func (f *Flat) Dim() int { return f.dim }

// Metric returns the metric the index was built with.
func (f *Flat) Metric() Metric { return f.metric }

// Search returns the min(k, Len()) nearest vectors to query, best first.
// Equal scores are ordered by position.
func (f *Flat) Search(query []float32, k int) ([]Hit, error) {
	if k <= 0 {
		return nil, fmt.Errorf("index: k must be positive, got %d", k)
	}
	if len(query) != f.dim {
		return nil, fmt.Errorf("%w: query has %d, want %d", ErrDimension, len(query), f.dim)
	}

	var qNorm float64
	if f.metric == Cosine {
		qNorm = math.Sqrt(dot(query, query))
	}
	hits := make([]Hit, len(f.vecs))
	for i, v := range f.vecs {
		hits[i] = Hit{Position: i, Score: float32(f.distance(query, qNorm, i, v))}
	}
	sort.SliceStable(hits, func(a, b int) bool { return hits[a].Score < hits[b].Score })
	if k > len(hits) {
		k = len(hits)
	}
	return hits[:k], nil
}

func (f *Flat) distance(q []float32, qNorm float64, i int, v []float32) float64 {
	switch f.metric {
	case L2:
		var s float64
		for j := range q {
			d := float64(q[j]) - float64(v[j])
			s += d * d
		}
		return s
	case Cosine:
		if qNorm == 0 || f.norms[i] == 0 {
			return 1
		}
		return 1 - dot(q, v)/(qNorm*f.norms[i])
	default:
		return -dot(q, v)
	}
}

func dot(a, b []float32) float64 {
	var s float64
	for i := range a {
		s += float64(a[i]) * float64(b[i])
	}
	return s
}
