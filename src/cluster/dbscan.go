// Package cluster implements density-based clustering (DBSCAN) over embedding vectors
// using cosine distance.
//
// Points are scanned in input order. A point whose eps-neighbourhood (itself included)
// holds at least MinSamples points is a core point; clusters grow from core points and
// absorb every point reachable through other core points. A border point reachable from
// two clusters stays in the one discovered first. Points reachable from no core point
// are noise.
package cluster

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"insight-agent/src/contracts"
)

// Noise is the label assigned to points that belong to no cluster.
const Noise = -1

const unvisited = -2

var (
	ErrDimensionMismatch = errors.New("embedding dimensions differ")
	ErrInvalidParams     = errors.New("invalid clustering parameters")
)

// Params controls the density threshold.
type Params struct {
	// Eps is the maximum cosine distance (1 - cosine similarity) between neighbours.
	Eps float64
	// MinSamples is the neighbourhood size, point included, that makes a core point.
	MinSamples int
}

// Validate checks that the parameters can produce a clustering.
func (p Params) Validate() error {
	if p.Eps < 0 || p.Eps > 2 || math.IsNaN(p.Eps) {
		return fmt.Errorf("%w: eps must be between 0.0 and 2.0, got %v", ErrInvalidParams, p.Eps)
	}
	if p.MinSamples < 1 {
		return fmt.Errorf("%w: min_samples must be at least 1, got %d", ErrInvalidParams, p.MinSamples)
	}
	return nil
}

// CosineSimilarity computes similarity between two embeddings.
// Returns 0.0 if vectors have different lengths or either is zero-length or all zeros.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0.0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0.0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// CosineDistance returns 1 - cosine similarity, in [0, 2].
func CosineDistance(a, b []float32) float64 {
	return 1 - CosineSimilarity(a, b)
}

// DBSCAN labels every vector with a cluster id (0, 1, ... in discovery order) or Noise.
// The result is deterministic for a given input order.
func DBSCAN(vectors [][]float32, p Params) ([]int, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	n := len(vectors)
	if n == 0 {
		return []int{}, nil
	}
	dim := len(vectors[0])
	for i, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("%w: vector %d has %d dimensions, want %d", ErrDimensionMismatch, i, len(v), dim)
		}
	}

	neighbours := neighbourhoods(vectors, p.Eps)

	labels := make([]int, n)
	for i := range labels {
		labels[i] = unvisited
	}

	next := 0
	for i := 0; i < n; i++ {
		if labels[i] != unvisited {
			continue
		}
		if len(neighbours[i]) < p.MinSamples {
			labels[i] = Noise
			continue
		}

		id := next
		next++
		labels[i] = id

		queue := append([]int(nil), neighbours[i]...)
		for len(queue) > 0 {
			q := queue[0]
			queue = queue[1:]

			if labels[q] == Noise {
				// border point, previously seen as noise
				labels[q] = id
				continue
			}
			if labels[q] != unvisited {
				continue
			}
			labels[q] = id
			if len(neighbours[q]) >= p.MinSamples {
				queue = append(queue, neighbours[q]...)
			}
		}
	}

	return labels, nil
}

// neighbourhoods returns, for every point, the indices within eps in ascending order.
// Each point is its own neighbour.
func neighbourhoods(vectors [][]float32, eps float64) [][]int {
	n := len(vectors)
	out := make([][]int, n)
	for i := 0; i < n; i++ {
		out[i] = append(out[i], i)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if CosineDistance(vectors[i], vectors[j]) <= eps {
				out[i] = append(out[i], j)
				out[j] = append(out[j], i)
			}
		}
	}
	// keep ascending order so expansion follows scan order
	for i := range out {
		sort.Ints(out[i])
	}
	return out
}

// Merge collapses labelled issues into clusters, ordered by cluster id.
// The representative of each cluster is its lowest-index member; quotes of all
// members are concatenated in index order. Noise is dropped.
func Merge(issues []contracts.ExtractedIssue, labels []int) ([]contracts.Cluster, error) {
	if len(issues) != len(labels) {
		return nil, fmt.Errorf("failed to merge clusters: %d issues but %d labels", len(issues), len(labels))
	}

	byID := make(map[int]*contracts.Cluster)
	var order []int
	for i, label := range labels {
		if label == Noise {
			continue
		}
		c, ok := byID[label]
		if !ok {
			c = &contracts.Cluster{
				Summary:     issues[i].Summary,
				ChannelName: issues[i].ChannelName,
			}
			byID[label] = c
			order = append(order, label)
		}
		c.Quotes = append(c.Quotes, issues[i].Quotes...)
		c.Members++
	}

	sort.Ints(order)
	clusters := make([]contracts.Cluster, 0, len(order))
	for _, id := range order {
		clusters = append(clusters, *byID[id])
	}
	return clusters, nil
}
