package clustering

import (
	"math"
	"sort"
	"strings"
)

// Vector is a sparse row of the tf-idf matrix.
// Indices are sorted in ascending order and point into Model.Terms.
type Vector struct {
	Indices []int
	Values  []float64
}

// Len returns the number of non-zero entries
func (v Vector) Len() int {
	return len(v.Indices)
}

// Norm returns the euclidean norm of the vector
func (v Vector) Norm() float64 {
	var sum float64
	for _, x := range v.Values {
		sum += x * x
	}
	return math.Sqrt(sum)
}

// SquaredDistance returns the squared euclidean distance between two sparse vectors.
// Both vectors are walked once in index order, so the cost is O(len(a)+len(b)).
func SquaredDistance(a, b Vector) float64 {
	var sum float64
	i, j := 0, 0
	for i < len(a.Indices) && j < len(b.Indices) {
		switch {
		case a.Indices[i] == b.Indices[j]:
			d := a.Values[i] - b.Values[j]
			sum += d * d
			i++
			j++
		case a.Indices[i] < b.Indices[j]:
			sum += a.Values[i] * a.Values[i]
			i++
		default:
			sum += b.Values[j] * b.Values[j]
			j++
		}
	}
	for ; i < len(a.Indices); i++ {
		sum += a.Values[i] * a.Values[i]
	}
	for ; j < len(b.Indices); j++ {
		sum += b.Values[j] * b.Values[j]
	}
	return sum
}

// Distance returns the euclidean distance between two sparse vectors
func Distance(a, b Vector) float64 {
	return math.Sqrt(SquaredDistance(a, b))
}

// Tokenize splits a domain into its dot separated labels.
// Labels are kept as-is (no case folding); empty labels such as the
// one produced by a trailing dot are not terms and are dropped.
func Tokenize(domain string) []string {
	parts := strings.Split(domain, ".")
	tokens := parts[:0]
	for _, part := range parts {
		if part != "" {
			tokens = append(tokens, part)
		}
	}
	return tokens
}

// Model is a tf-idf vocabulary fitted on one set of documents.
// It is built fresh for every clustering call and never shared.
type Model struct {
	// Terms is the vocabulary in lexical order (column order of the matrix)
	Terms []string
	// IDF holds the inverse document frequency of every term
	IDF []float64

	index map[string]int
}

// Fit builds the vocabulary and idf weights from tokenized documents.
//
// idf uses the smoothed formula idf(t) = ln((1+n)/(1+df(t))) + 1 where n is
// the number of documents and df(t) the number of documents containing t.
// Smoothing behaves as if an extra document contained every term once,
// which keeps the weight of a term present everywhere at exactly 1.
func Fit(docs [][]string) *Model {
	df := make(map[string]int)
	for _, doc := range docs {
		seen := make(map[string]struct{}, len(doc))
		for _, term := range doc {
			if _, ok := seen[term]; ok {
				continue
			}
			seen[term] = struct{}{}
			df[term]++
		}
	}

	m := &Model{
		Terms: make([]string, 0, len(df)),
		index: make(map[string]int, len(df)),
	}
	for term := range df {
		m.Terms = append(m.Terms, term)
	}
	sort.Strings(m.Terms)

	n := float64(len(docs))
	m.IDF = make([]float64, len(m.Terms))
	for i, term := range m.Terms {
		m.index[term] = i
		m.IDF[i] = math.Log((1+n)/(1+float64(df[term]))) + 1
	}
	return m
}

// Transform converts a tokenized document into an l2 normalized tf-idf vector.
// Terms unknown to the model are ignored. A document without known terms
// yields the zero vector.
func (m *Model) Transform(doc []string) Vector {
	tf := make(map[int]float64, len(doc))
	for _, term := range doc {
		if idx, ok := m.index[term]; ok {
			tf[idx]++
		}
	}

	v := Vector{
		Indices: make([]int, 0, len(tf)),
		Values:  make([]float64, 0, len(tf)),
	}
	for idx := range tf {
		v.Indices = append(v.Indices, idx)
	}
	sort.Ints(v.Indices)
	for _, idx := range v.Indices {
		v.Values = append(v.Values, tf[idx]*m.IDF[idx])
	}

	if norm := v.Norm(); norm > 0 {
		for i := range v.Values {
			v.Values[i] /= norm
		}
	}
	return v
}

// Vectorize tokenizes the given domains, fits a model on them and returns
// one vector per domain in input order.
func Vectorize(domains []string) (*Model, []Vector) {
	docs := make([][]string, len(domains))
	for i, domain := range domains {
		docs[i] = Tokenize(domain)
	}
	model := Fit(docs)
	vectors := make([]Vector, len(docs))
	for i, doc := range docs {
		vectors[i] = model.Transform(doc)
	}
	return model, vectors
}
