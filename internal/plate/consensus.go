package plate

import (
	"math"
	"sort"
	"strings"
)

const (
	// MinConfidence is the confidence floor for a detection to reach the
	// plate string.
	MinConfidence = 40.0

	// ClusterTolerance is the inclusive pixel window, on both axes, within
	// which two detections are the same physical character.
	ClusterTolerance = 1.0
)

func sameCharacter(a, b Detection) bool {
	return math.Abs(a.X-b.X) <= ClusterTolerance && math.Abs(a.Y-b.Y) <= ClusterTolerance
}

// Consensus clusters the pool and returns one detection per cluster.
//
// Seeds are taken in pool order. A cluster is every not-yet-clustered
// detection within ClusterTolerance of its seed, and each detection joins
// exactly one cluster. The first detection with the cluster's highest
// confidence represents it. Results are in cluster order.
func Consensus(pool []Detection) []Detection {
	visited := make([]bool, len(pool))
	out := make([]Detection, 0)

	for i := range pool {
		if visited[i] {
			continue
		}
		seed := pool[i]
		best := i
		for j := i; j < len(pool); j++ {
			if visited[j] || !sameCharacter(seed, pool[j]) {
				continue
			}
			visited[j] = true
			if pool[j].Confidence > pool[best].Confidence {
				best = j
			}
		}
		out = append(out, pool[best])
	}

	return out
}

// Select runs Consensus, drops detections below minConfidence and orders the
// rest left-to-right. Equal X keeps cluster order.
func Select(pool []Detection, minConfidence float64) []Detection {
	clusters := Consensus(pool)
	out := make([]Detection, 0, len(clusters))
	for _, d := range clusters {
		if d.Confidence >= minConfidence {
			out = append(out, d)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].X < out[j].X
	})
	return out
}

// Compose concatenates the characters of detections without separators.
func Compose(detections []Detection) string {
	var sb strings.Builder
	for _, d := range detections {
		sb.WriteString(d.Text())
	}
	return sb.String()
}

// Validate reduces a pool to the plate string. An empty string means no
// character survived and is not an error.
func Validate(pool []Detection) string {
	return Compose(Select(pool, MinConfidence))
}
