package subnoise

import (
	"context"
	"errors"
	"fmt"

	"github.com/projectdiscovery/gologger"
	"github.com/projectdiscovery/subnoise/clustering"
	"github.com/projectdiscovery/subnoise/internal/dedupe"
	"golang.org/x/sync/errgroup"
)

// Analyzer Options
type Options struct {
	// Threshold is the clustering merge distance (default: clustering.DefaultThreshold)
	Threshold float64
	// Linkage is the clustering linkage criterion (default: ward)
	Linkage clustering.Linkage
	// RuleTemplate is the template rules are rendered from (default: DefaultRuleTemplate)
	RuleTemplate string
	// UniqueRules skips rules whose (project, pattern) pair was already generated
	UniqueRules bool
	// Concurrency is the number of projects classified in parallel (default: 1)
	Concurrency int
}

func (o *Options) applyDefaults() {
	if o.Concurrency <= 0 {
		o.Concurrency = 1
	}
	if o.RuleTemplate == "" {
		o.RuleTemplate = DefaultRuleTemplate
	}
}

// Analyzer classifies noisy domains per project and maintains the rules for them
type Analyzer struct {
	source  DomainSource
	sink    RuleSink
	options Options
	engine  *clustering.Engine
	rules   *RuleGenerator
}

// New creates a new analyzer reading domains from source and writing rules to sink
func New(source DomainSource, sink RuleSink, opts *Options) (*Analyzer, error) {
	if source == nil {
		return nil, ErrNilSource
	}
	if sink == nil {
		return nil, ErrNilSink
	}
	var o Options
	if opts != nil {
		o = *opts
	}
	o.applyDefaults()

	engine, err := clustering.New(&clustering.Options{Threshold: o.Threshold, Linkage: o.Linkage})
	if err != nil {
		return nil, err
	}
	rules, err := NewRuleGenerator(o.RuleTemplate)
	if err != nil {
		return nil, err
	}
	o.Threshold, o.Linkage = engine.Threshold(), engine.Linkage()
	return &Analyzer{
		source:  source,
		sink:    sink,
		options: o,
		engine:  engine,
		rules:   rules,
	}, nil
}

// ProjectResult is the classification outcome of a single project
type ProjectResult struct {
	ProjectID string   `json:"project_id"`
	Total     int      `json:"total"`
	Filtered  int      `json:"filtered"`
	Clusters  int      `json:"clusters"`
	Noise     []string `json:"noise"`
	Err       error    `json:"-"`
}

// Classify runs label filtering, clustering and majority selection on the
// domains of one project. Failures are recorded on the result.
func (a *Analyzer) Classify(projectID string, domains []string) *ProjectResult {
	res := &ProjectResult{ProjectID: projectID, Total: len(domains), Noise: []string{}}

	filtered := FilterByLevel(domains)
	res.Filtered = len(filtered)
	if len(filtered) == 0 {
		gologger.Verbose().Msgf("project %s: no domain with at least %d labels", projectID, MinLabels)
		return res
	}

	clusters, err := a.engine.Cluster(filtered)
	if err != nil {
		if errors.Is(err, clustering.ErrNoDocuments) || errors.Is(err, clustering.ErrEmptyVocabulary) {
			res.Err = &InsufficientDataError{ProjectID: projectID, Domains: len(filtered), Err: err}
		} else {
			res.Err = fmt.Errorf("project %q: clustering failed: %w", projectID, err)
		}
		return res
	}
	res.Clusters = clusters.Clusters

	noise, label, err := MajorityCluster(clusters.Labels, filtered)
	if err != nil {
		res.Err = fmt.Errorf("project %q: %w", projectID, err)
		return res
	}
	res.Noise = noise
	gologger.Verbose().Msgf("project %s: %d/%d domains clustered into %d groups over %d terms, majority cluster %d holds %d",
		projectID, len(filtered), len(domains), clusters.Clusters, clusters.Terms, label, len(noise))
	return res
}

// Process fetches every domain and classifies each project independently.
// Results follow the order in which projects first appear in the source.
// Only a source failure is returned as error; per project failures are
// recorded on the corresponding result.
func (a *Analyzer) Process(ctx context.Context) ([]*ProjectResult, error) {
	domains, err := a.source.GetAllDomains(ctx)
	if err != nil {
		return nil, &SourceReadError{Err: err}
	}
	projects, groups := GroupByProject(domains)
	gologger.Verbose().Msgf("loaded %d domains across %d projects", len(domains), len(projects))

	results := make([]*ProjectResult, len(projects))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.options.Concurrency)
	for i, project := range projects {
		i, project := i, project
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = a.Classify(project, groups[project])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Report summarizes a run
type Report struct {
	Projects []*ProjectResult `json:"projects"`
	// Rules lists every rule generated from noise domains
	Rules []Rule `json:"rules"`
	// Persisted lists the rules that are durably stored
	Persisted []Rule `json:"persisted"`
	// Failed lists the rules that could not be stored
	Failed []RuleFailure `json:"-"`
	// Invalid lists noise domains no rule could be generated for
	Invalid []*PatternGenerationError `json:"-"`
	// Cleared is true when previous rules were removed
	Cleared bool `json:"cleared"`
	// Atomic is true when clearing and inserting ran in one transaction
	Atomic bool `json:"atomic"`
}

// Noise returns the noise domains keyed by project id
func (r *Report) Noise() map[string][]string {
	m := make(map[string][]string, len(r.Projects))
	for _, p := range r.Projects {
		if p.Err == nil {
			m[p.ProjectID] = p.Noise
		}
	}
	return m
}

// ProjectErrors returns the projects that were skipped and why
func (r *Report) ProjectErrors() map[string]error {
	m := make(map[string]error)
	for _, p := range r.Projects {
		if p.Err != nil {
			m[p.ProjectID] = p.Err
		}
	}
	return m
}

// Run classifies all projects and persists one rule per noise domain.
// When clear is true previous rules are deleted first; with a Transactor
// sink deletion and inserts are committed together or not at all.
//
// The returned report is non-nil whenever domains could be read, even if
// persisting failed, so callers can tell stored rules from failed ones.
func (a *Analyzer) Run(ctx context.Context, clear bool) (*Report, error) {
	projects, err := a.Process(ctx)
	if err != nil {
		return nil, err
	}
	report := &Report{Projects: projects}

	for _, p := range projects {
		if p.Err != nil {
			gologger.Warning().Msgf("skipping project %s: %v", p.ProjectID, p.Err)
			continue
		}
		gologger.Info().Msgf("project %s: %d noise domains %v", p.ProjectID, len(p.Noise), p.Noise)
	}

	report.Rules, report.Invalid = a.GenerateRules(projects)
	for _, invalid := range report.Invalid {
		gologger.Warning().Msgf("%v", invalid)
	}

	if tx, ok := a.sink.(Transactor); ok {
		err = a.persistAtomic(ctx, tx, report, clear)
	} else {
		if clear {
			gologger.Warning().Msgf("rule sink does not support transactions, clearing and inserting rules non-atomically")
		}
		err = a.persist(ctx, a.sink, report, clear)
	}
	if err != nil {
		return report, err
	}
	gologger.Info().Msgf("stored %d rules for %d projects", len(report.Persisted), len(projects))
	return report, nil
}

// GenerateRules renders one rule per noise domain of successfully
// classified projects, in project then domain order
func (a *Analyzer) GenerateRules(projects []*ProjectResult) ([]Rule, []*PatternGenerationError) {
	var (
		rules   []Rule
		invalid []*PatternGenerationError
		seen    dedupe.Backend
	)
	if a.options.UniqueRules {
		var size int
		for _, p := range projects {
			for _, d := range p.Noise {
				size += len(d) + len(p.ProjectID)
			}
		}
		seen = dedupe.New(size)
		defer seen.Cleanup()
	}

	for _, p := range projects {
		if p.Err != nil {
			continue
		}
		for _, domain := range p.Noise {
			pattern, err := a.rules.Generate(domain)
			if err != nil {
				var perr *PatternGenerationError
				if !errors.As(err, &perr) {
					perr = &PatternGenerationError{Domain: domain, Reason: err.Error()}
				}
				invalid = append(invalid, perr)
				continue
			}
			if seen != nil && !seen.Add(p.ProjectID+"\x00"+pattern) {
				continue
			}
			if tail, _ := Tail(domain); coversRegistrableDomain(tail) {
				gologger.Verbose().Msgf("project %s: rule %s matches every host of %s", p.ProjectID, pattern, tail)
			}
			rules = append(rules, Rule{Pattern: pattern, ProjectID: p.ProjectID})
		}
	}
	return rules, invalid
}

// persistAtomic clears and inserts inside one transaction.
// Any failure rolls back everything, leaving previous rules untouched.
func (a *Analyzer) persistAtomic(ctx context.Context, t Transactor, report *Report, clear bool) error {
	tx, err := t.BeginRules(ctx)
	if err != nil {
		return &SinkWriteError{Op: "begin", Err: err}
	}
	if err := a.persist(ctx, tx, report, clear); err != nil {
		if rerr := tx.Rollback(); rerr != nil {
			gologger.Error().Msgf("failed to roll back rules: %v", rerr)
		}
		report.Cleared = false
		for _, r := range report.Persisted {
			report.Failed = append(report.Failed, RuleFailure{Rule: r, Err: err})
		}
		report.Persisted = nil
		return err
	}
	if err := tx.Commit(); err != nil {
		report.Cleared = false
		for _, r := range report.Persisted {
			report.Failed = append(report.Failed, RuleFailure{Rule: r, Err: err})
		}
		report.Persisted = nil
		return &SinkWriteError{Op: "commit", Err: err}
	}
	report.Atomic = true
	return nil
}

// persist writes the report rules to sink. Every insert is attempted so
// the report can tell which rules were stored and which were not.
func (a *Analyzer) persist(ctx context.Context, sink RuleSink, report *Report, clear bool) error {
	if clear {
		if err := sink.DeleteRules(ctx, nil); err != nil {
			return &SinkWriteError{Op: "delete", Err: err}
		}
		report.Cleared = true
	}

	var failed []RuleFailure
	for _, rule := range report.Rules {
		if err := sink.InsertRule(ctx, rule); err != nil {
			failed = append(failed, RuleFailure{Rule: rule, Err: err})
			continue
		}
		report.Persisted = append(report.Persisted, rule)
	}
	if len(failed) > 0 {
		report.Failed = append(report.Failed, failed...)
		return &SinkWriteError{Op: "insert", Failed: failed, Err: failed[0].Err}
	}
	return nil
}
