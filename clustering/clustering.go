package clustering

import (
	"math"

	"github.com/projectdiscovery/gologger"
	"github.com/projectdiscovery/utils/errkit"
)

// DefaultThreshold is the merge distance cut used when none is configured.
// Vectors are l2 normalized so plain distances live in [0, sqrt(2)].
const DefaultThreshold = 1.3

var (
	ErrInvalidThreshold = errkit.New("distance threshold must be a positive finite number")
	ErrNoDocuments      = errkit.New("no domains provided to cluster")
	ErrEmptyVocabulary  = errkit.New("domains do not contain any non-empty label")
)

type Options struct {
	// Threshold is the maximum merge distance. Clusters closer than
	// Threshold are merged; smaller values give more, tighter clusters.
	Threshold float64
	// Linkage is the inter-cluster distance criterion (default: ward)
	Linkage Linkage
}

func (o *Options) applyDefaults() {
	if o.Threshold == 0 {
		o.Threshold = DefaultThreshold
	}
	if o.Linkage == "" {
		o.Linkage = Ward
	}
}

func (o *Options) validate() error {
	if o.Threshold <= 0 || math.IsNaN(o.Threshold) || math.IsInf(o.Threshold, 0) {
		return ErrInvalidThreshold
	}
	if _, err := ParseLinkage(string(o.Linkage)); err != nil {
		return err
	}
	return nil
}

// Engine clusters the domains of one project.
// It holds configuration only; every call builds its own vocabulary.
type Engine struct {
	options Options
}

// Result of a single clustering call
type Result struct {
	// Labels holds one cluster id per input domain, in input order
	Labels []int
	// Clusters is the number of distinct labels
	Clusters int
	// Terms is the vocabulary size of the call
	Terms int
	// Merges lists the agglomeration steps that were applied
	Merges []Merge
}

// New creates a new clustering engine
func New(opts *Options) (*Engine, error) {
	var o Options
	if opts != nil {
		o = *opts
	}
	o.applyDefaults()
	if err := o.validate(); err != nil {
		return nil, err
	}
	return &Engine{options: o}, nil
}

// Threshold returns the configured merge distance
func (e *Engine) Threshold() float64 {
	return e.options.Threshold
}

// Linkage returns the configured linkage criterion
func (e *Engine) Linkage() Linkage {
	return e.options.Linkage
}

// Cluster assigns a cluster label to every domain.
// A single domain has nothing to merge with and always forms cluster 0.
func (e *Engine) Cluster(domains []string) (*Result, error) {
	switch len(domains) {
	case 0:
		return nil, ErrNoDocuments
	case 1:
		return &Result{Labels: []int{0}, Clusters: 1, Terms: len(Fit([][]string{Tokenize(domains[0])}).Terms)}, nil
	}

	model, vectors := Vectorize(domains)
	if len(model.Terms) == 0 {
		return nil, ErrEmptyVocabulary
	}
	gologger.Debug().Msgf("clustering %d domains over %d terms (linkage=%s threshold=%v)", len(domains), len(model.Terms), e.options.Linkage, e.options.Threshold)

	labels, merges := Agglomerate(vectors, e.options.Threshold, e.options.Linkage)
	for _, m := range merges {
		gologger.Debug().Msgf("merge %s + %s at %.4f (size %d)", domains[m.A], domains[m.B], m.Distance, m.Size)
	}

	return &Result{
		Labels:   labels,
		Clusters: len(domains) - len(merges),
		Terms:    len(model.Terms),
		Merges:   merges,
	}, nil
}
