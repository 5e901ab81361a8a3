package clustering

import (
	"math"
	"strings"

	"github.com/projectdiscovery/utils/errkit"
)

// Linkage decides how the distance between two clusters is derived
// from the distances of their members
type Linkage string

const (
	// Ward merges the pair of clusters whose union least increases the
	// within-cluster variance. Merge distances are reported as
	// sqrt(2*|a|*|b|/(|a|+|b|)) * ||centroid(a)-centroid(b)||.
	Ward Linkage = "ward"
	// Average uses the mean distance over all member pairs
	Average Linkage = "average"
	// Complete uses the largest distance over all member pairs
	Complete Linkage = "complete"
	// Single uses the smallest distance over all member pairs
	Single Linkage = "single"
)

var ErrUnknownLinkage = errkit.New("unknown linkage (must be one of ward, average, complete, single)")

// Linkages lists all supported linkage criteria
var Linkages = []Linkage{Ward, Average, Complete, Single}

// ParseLinkage parses a linkage name, empty string defaults to Ward
func ParseLinkage(value string) (Linkage, error) {
	if value == "" {
		return Ward, nil
	}
	for _, l := range Linkages {
		if strings.EqualFold(value, string(l)) {
			return l, nil
		}
	}
	return "", ErrUnknownLinkage
}

// Merge records one step of the agglomeration.
// A and B are the representative indices of the merged clusters (A < B),
// the union keeps A as its representative.
type Merge struct {
	A, B     int
	Distance float64
	Size     int
}

// condensed is the upper triangle of a symmetric n×n matrix without the diagonal
type condensed struct {
	n    int
	data []float64
}

func newCondensed(n int) *condensed {
	return &condensed{n: n, data: make([]float64, n*(n-1)/2)}
}

func (c *condensed) index(i, j int) int {
	if i > j {
		i, j = j, i
	}
	return c.n*i - i*(i+1)/2 + (j - i - 1)
}

func (c *condensed) get(i, j int) float64 {
	return c.data[c.index(i, j)]
}

func (c *condensed) set(i, j int, v float64) {
	c.data[c.index(i, j)] = v
}

// Agglomerate runs bottom-up hierarchical clustering over the given vectors.
//
// ALGORITHM:
//  1. every vector starts as its own cluster
//  2. the closest pair of clusters (by linkage) is merged, cluster distances
//     to the union are updated with the Lance-Williams recurrence
//  3. step 2 repeats until the smallest remaining merge distance is not
//     below threshold or a single cluster is left
//
// All supported linkages are monotone, so merge distances never decrease and
// stopping at the first merge >= threshold yields the same flat clustering as
// cutting the full dendrogram at threshold.
//
// Ties are broken by index: the pair with the lowest first index wins, then the
// lowest second index. Together with first-appearance labelling this makes the
// result fully deterministic for a given input order.
//
// Labels are numbered in order of first appearance: the cluster holding
// vectors[0] is 0, the next cluster seen while scanning the input is 1 and so on.
func Agglomerate(vectors []Vector, threshold float64, linkage Linkage) ([]int, []Merge) {
	n := len(vectors)
	switch n {
	case 0:
		return []int{}, nil
	case 1:
		return []int{0}, nil
	}

	// ward works on squared distances, the other linkages on plain ones
	dist := newCondensed(n)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d := SquaredDistance(vectors[i], vectors[j])
			if linkage != Ward {
				d = math.Sqrt(d)
			}
			dist.set(i, j, d)
		}
	}

	active := make([]bool, n)
	size := make([]int, n)
	owner := make([]int, n) // owner[i] is the cluster vector i was merged into
	for i := range active {
		active[i] = true
		size[i] = 1
		owner[i] = i
	}

	// nearest neighbour cache
	nn := make([]int, n)
	nnDist := make([]float64, n)
	nearest := func(i int) {
		nn[i], nnDist[i] = -1, math.Inf(1)
		for j := 0; j < n; j++ {
			if j == i || !active[j] {
				continue
			}
			if d := dist.get(i, j); d < nnDist[i] {
				nn[i], nnDist[i] = j, d
			}
		}
	}
	for i := 0; i < n; i++ {
		nearest(i)
	}

	var merges []Merge
	for clusters := n; clusters > 1; clusters-- {
		a := -1
		for i := 0; i < n; i++ {
			if !active[i] || nn[i] < 0 {
				continue
			}
			if a < 0 || nnDist[i] < nnDist[a] {
				a = i
			}
		}
		if a < 0 {
			break
		}
		b := nn[a]
		if b < a {
			a, b = b, a
		}
		d := dist.get(a, b)
		mergeDist := d
		if linkage == Ward {
			mergeDist = math.Sqrt(d)
		}
		if mergeDist >= threshold {
			break
		}

		// lance-williams update of distances from every other cluster to a∪b
		na, nb := float64(size[a]), float64(size[b])
		for k := 0; k < n; k++ {
			if k == a || k == b || !active[k] {
				continue
			}
			dka, dkb := dist.get(k, a), dist.get(k, b)
			var v float64
			switch linkage {
			case Single:
				v = math.Min(dka, dkb)
			case Complete:
				v = math.Max(dka, dkb)
			case Average:
				v = (na*dka + nb*dkb) / (na + nb)
			default:
				nk := float64(size[k])
				v = ((na+nk)*dka + (nb+nk)*dkb - nk*d) / (na + nb + nk)
			}
			dist.set(k, a, v)
		}

		active[b] = false
		size[a] += size[b]
		owner[b] = a
		merges = append(merges, Merge{A: a, B: b, Distance: mergeDist, Size: size[a]})

		// refresh the cache for the union and for clusters that pointed at a or b
		nearest(a)
		for k := 0; k < n; k++ {
			if k == a || !active[k] {
				continue
			}
			if nn[k] == a || nn[k] == b {
				nearest(k)
				continue
			}
			if v := dist.get(k, a); v < nnDist[k] || (v == nnDist[k] && a < nn[k]) {
				nn[k], nnDist[k] = a, v
			}
		}
	}

	return flatten(owner), merges
}

// flatten resolves every vector to its final cluster and numbers the
// clusters in order of first appearance
func flatten(owner []int) []int {
	root := func(i int) int {
		for owner[i] != i {
			i = owner[i]
		}
		return i
	}
	labels := make([]int, len(owner))
	ids := make(map[int]int)
	for i := range owner {
		r := root(i)
		id, ok := ids[r]
		if !ok {
			id = len(ids)
			ids[r] = id
		}
		labels[i] = id
	}
	return labels
}
