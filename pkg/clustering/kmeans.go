// Package clustering groups strings by semantic similarity. Items are
// embedded as one batch and partitioned with seeded Lloyd's k-means, so
// identical inputs always produce identical clusters.
package clustering

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"github.com/c360/sousschef/errors"
)

const (
	// DefaultMaxIterations is the default cap on Lloyd's iterations per run
	DefaultMaxIterations = 100

	// MaxIterationsLimit is the maximum allowed iteration count
	MaxIterationsLimit = 10000

	// DefaultRestarts is the default number of seeded runs
	DefaultRestarts = 3

	// MaxRestartsLimit is the maximum allowed restart count
	MaxRestartsLimit = 100

	// DefaultSeed is the base random seed; restart r runs with seed+r
	DefaultSeed = 1
)

// EmbeddingSource supplies vectors for a batch of texts.
// *embedding.TieredCache satisfies this.
type EmbeddingSource interface {
	GetOrCompute(ctx context.Context, texts []string) ([][]float32, error)
}

// Assignment places one item in a cluster. Cluster ids are in [0, k).
type Assignment struct {
	Item    string `json:"item"`
	Cluster int    `json:"cluster"`
}

// Result is the winning run of one clustering call.
type Result struct {
	// Assignments holds one entry per input item, in input order
	Assignments []Assignment `json:"assignments"`

	// Centroids are the final cluster centers, indexed by cluster id
	Centroids [][]float32 `json:"-"`

	// Inertia is the sum of squared distances from each vector to its
	// centroid. Lower is tighter; the lowest-inertia restart wins.
	Inertia float64 `json:"inertia"`
}

// Groups returns the items of each cluster, indexed by cluster id.
// Items keep their input order within a group; a cluster that ended up
// empty yields an empty slice.
func (r *Result) Groups() [][]string {
	if r == nil || len(r.Assignments) == 0 {
		return nil
	}

	k := len(r.Centroids)
	for _, a := range r.Assignments {
		if a.Cluster+1 > k {
			k = a.Cluster + 1
		}
	}

	groups := make([][]string, k)
	for _, a := range r.Assignments {
		groups[a.Cluster] = append(groups[a.Cluster], a.Item)
	}
	return groups
}

// KMeans clusters strings with seeded Lloyd's iterations and a fixed
// number of random restarts.
type KMeans struct {
	source EmbeddingSource

	// Configuration
	seed          int64 // Base seed; restart r uses seed+r
	restarts      int   // Seeded runs to try, lowest inertia wins
	maxIterations int   // Maximum iterations before forced convergence
}

// NewKMeans creates a k-means clusterer backed by the embedding source.
func NewKMeans(source EmbeddingSource) *KMeans {
	return &KMeans{
		source:        source,
		seed:          DefaultSeed,
		restarts:      DefaultRestarts,
		maxIterations: DefaultMaxIterations,
	}
}

// WithSeed sets the base random seed.
func (km *KMeans) WithSeed(seed int64) *KMeans {
	km.seed = seed
	return km
}

// WithRestarts sets the number of seeded runs with validation
func (km *KMeans) WithRestarts(restarts int) *KMeans {
	// Validate and apply bounds
	if restarts <= 0 {
		restarts = DefaultRestarts
	}
	if restarts > MaxRestartsLimit {
		restarts = MaxRestartsLimit
	}
	km.restarts = restarts
	return km
}

// WithMaxIterations sets the maximum iteration count with validation
func (km *KMeans) WithMaxIterations(max int) *KMeans {
	// Validate and apply bounds
	if max <= 0 {
		max = DefaultMaxIterations
	}
	if max > MaxIterationsLimit {
		max = MaxIterationsLimit
	}
	km.maxIterations = max
	return km
}

// Cluster partitions items into k clusters. Requires 0 < k <= len(items);
// k == len(items) yields singletons. Every item lands in exactly one
// cluster. Embedding failures propagate to the caller, which owns any
// fallback grouping.
func (km *KMeans) Cluster(ctx context.Context, items []string, k int) (*Result, error) {
	// Validate dependencies
	if km.source == nil {
		return nil, errors.WrapFatal(errors.ErrMissingConfig, "KMeans", "Cluster", "embedding source is nil")
	}
	if k <= 0 || k > len(items) {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: k must be in [1, %d], got %d", errors.ErrInvalidData, len(items), k),
			"KMeans", "Cluster", "argument validation")
	}

	vectors, err := km.source.GetOrCompute(ctx, items)
	if err != nil {
		return nil, errors.Wrap(err, "KMeans", "Cluster", "embedding batch")
	}
	if len(vectors) != len(items) {
		return nil, errors.WrapTransient(
			fmt.Errorf("embedding source returned %d vectors for %d items", len(vectors), len(items)),
			"KMeans", "Cluster", "embedding batch")
	}

	var best *run
	for r := 0; r < km.restarts; r++ {
		candidate, err := km.lloyd(ctx, vectors, k, km.seed+int64(r))
		if err != nil {
			return nil, err
		}
		if best == nil || candidate.inertia < best.inertia {
			best = candidate
		}
	}

	assignments := make([]Assignment, len(items))
	for i, item := range items {
		assignments[i] = Assignment{Item: item, Cluster: best.labels[i]}
	}
	return &Result{
		Assignments: assignments,
		Centroids:   best.centroids,
		Inertia:     best.inertia,
	}, nil
}

// run is the outcome of a single seeded Lloyd's run.
type run struct {
	labels    []int
	centroids [][]float32
	inertia   float64
}

// lloyd executes one seeded run: sample k distinct items as initial
// centroids, then alternate assignment and update steps until no
// assignment changes or the iteration cap is hit.
func (km *KMeans) lloyd(ctx context.Context, vectors [][]float32, k int, seed int64) (*run, error) {
	rng := rand.New(rand.NewSource(seed))

	// Initialization: k distinct item indices, so k == len(items)
	// yields singleton clusters
	centroids := make([][]float32, k)
	for i, idx := range rng.Perm(len(vectors))[:k] {
		centroids[i] = append([]float32(nil), vectors[idx]...)
	}

	labels := make([]int, len(vectors))
	for i := range labels {
		labels[i] = -1
	}

	for iter := 0; iter < km.maxIterations; iter++ {
		// Check context cancellation
		select {
		case <-ctx.Done():
			return nil, errors.WrapTransient(ctx.Err(), "KMeans", "Cluster", "context cancelled")
		default:
		}

		// Assignment step
		changed := false
		for i, vector := range vectors {
			nearest := nearestCentroid(vector, centroids)
			if nearest != labels[i] {
				labels[i] = nearest
				changed = true
			}
		}

		// Check convergence
		if !changed {
			break
		}

		// Update step: an empty cluster keeps its previous centroid
		centroids = recomputeCentroids(vectors, labels, centroids, k)
	}

	return &run{
		labels:    labels,
		centroids: centroids,
		inertia:   totalInertia(vectors, labels, centroids),
	}, nil
}

// nearestCentroid returns the index of the closest centroid by squared
// Euclidean distance.
func nearestCentroid(vector []float32, centroids [][]float32) int {
	best := 0
	bestDist := math.MaxFloat64
	for c, centroid := range centroids {
		if dist := squaredDistance(vector, centroid); dist < bestDist {
			bestDist = dist
			best = c
		}
	}
	return best
}

// recomputeCentroids replaces each centroid with the mean of its members.
func recomputeCentroids(vectors [][]float32, labels []int, previous [][]float32, k int) [][]float32 {
	dims := len(vectors[0])
	sums := make([][]float64, k)
	for c := range sums {
		sums[c] = make([]float64, dims)
	}
	counts := make([]int, k)

	for i, vector := range vectors {
		cluster := labels[i]
		counts[cluster]++
		for d := 0; d < dims && d < len(vector); d++ {
			sums[cluster][d] += float64(vector[d])
		}
	}

	centroids := make([][]float32, k)
	for c := 0; c < k; c++ {
		if counts[c] == 0 {
			centroids[c] = previous[c]
			continue
		}
		mean := make([]float32, dims)
		for d := range mean {
			mean[d] = float32(sums[c][d] / float64(counts[c]))
		}
		centroids[c] = mean
	}
	return centroids
}

func squaredDistance(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		diff := float64(a[i]) - float64(b[i])
		sum += diff * diff
	}
	return sum
}

func totalInertia(vectors [][]float32, labels []int, centroids [][]float32) float64 {
	var total float64
	for i, vector := range vectors {
		total += squaredDistance(vector, centroids[labels[i]])
	}
	return total
}
