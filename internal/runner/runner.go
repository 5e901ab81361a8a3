package runner

import (
	"context"
	"encoding/json"
	"os"
	"strconv"

	"github.com/projectdiscovery/goflags"
	"github.com/projectdiscovery/gologger"
	"github.com/projectdiscovery/gologger/levels"
	"github.com/projectdiscovery/subnoise"
	"github.com/projectdiscovery/subnoise/clustering"
	"github.com/projectdiscovery/subnoise/internal/store"
	errorutil "github.com/projectdiscovery/utils/errors"
	fileutil "github.com/projectdiscovery/utils/file"
)

type Options struct {
	Database       string
	Input          string
	Output         string
	Config         string
	AnalyzerConfig string
	Threshold      string
	Linkage        string
	RuleTemplate   string
	Concurrency    int
	Unique         bool
	KeepRules      bool
	DryRun         bool
	Verbose        bool
	Silent         bool
}

func ParseFlags() *Options {
	opts := &Options{}
	flagSet := goflags.NewFlagSet()
	flagSet.SetDescription(`Find templated and auto-generated subdomains per project and emit regex rules filtering them.`)

	flagSet.CreateGroup("input", "Input",
		flagSet.StringVar(&opts.Database, "db", "domains.sqlite", "sqlite database holding the domains and rules tables"),
		flagSet.StringVarP(&opts.Input, "input", "i", "", "read 'domain project_id' lines from file instead of the domains table (stdin supported)"),
	)

	flagSet.CreateGroup("clustering", "Clustering",
		flagSet.StringVarP(&opts.Threshold, "threshold", "t", "", "distance threshold for merging clusters (smaller = more, tighter clusters)"),
		flagSet.StringVarP(&opts.Linkage, "linkage", "lk", "", "cluster linkage (ward, average, complete, single)"),
		flagSet.IntVarP(&opts.Concurrency, "concurrency", "c", 0, "number of projects to classify in parallel"),
	)

	flagSet.CreateGroup("output", "Output",
		flagSet.StringVarP(&opts.Output, "output", "o", "", "write json report of noise domains and rules to file"),
		flagSet.StringVarP(&opts.RuleTemplate, "rule-template", "rt", "", "template used to render rules (vars: {{tail}}, {{domain}})"),
		flagSet.BoolVarP(&opts.Unique, "unique", "u", false, "skip duplicate rules within a project"),
		flagSet.BoolVarP(&opts.KeepRules, "keep-rules", "kr", false, "keep existing rules instead of replacing them"),
		flagSet.BoolVarP(&opts.DryRun, "dry-run", "dr", false, "classify and print rules without writing them"),
		flagSet.BoolVarP(&opts.Verbose, "verbose", "v", false, "display verbose output"),
		flagSet.BoolVar(&opts.Silent, "silent", false, "display results only"),
		flagSet.CallbackVar(printVersion, "version", "display subnoise version"),
	)

	flagSet.CreateGroup("config", "Config",
		flagSet.StringVar(&opts.Config, "config", "", `subnoise cli config file (default '$HOME/.config/subnoise/cli.yaml')`),
		flagSet.StringVar(&opts.AnalyzerConfig, "ac", "", `analyzer config file (default '$HOME/.config/subnoise/config.yaml')`),
	)

	if err := flagSet.Parse(); err != nil {
		gologger.Fatal().Msgf("Could not read flags: %s\n", err)
	}

	if opts.Config != "" {
		if err := flagSet.MergeConfigFile(opts.Config); err != nil {
			gologger.Error().Msgf("failed to read config file got %v", err)
		}
	}

	if opts.Silent {
		gologger.DefaultLogger.SetMaxLevel(levels.LevelSilent)
	} else if opts.Verbose {
		gologger.DefaultLogger.SetMaxLevel(levels.LevelVerbose)
	}
	showBanner()

	return opts
}

func printVersion() {
	gologger.Info().Msgf("Current version: %s", version)
	os.Exit(0)
}

// Runner wires the domain source, rule sink and analyzer of a cli run
type Runner struct {
	options  *Options
	db       *store.SQLiteStore
	analyzer *subnoise.Analyzer
}

// New creates a runner from cli options
func New(opts *Options) (*Runner, error) {
	cfg, err := loadAnalyzerConfig(opts.AnalyzerConfig)
	if err != nil {
		return nil, errorutil.NewWithErr(err).Msgf("could not read analyzer config")
	}
	analyzerOpts, err := analyzerOptions(cfg, opts)
	if err != nil {
		return nil, err
	}

	r := &Runner{options: opts}
	source, sink, err := r.collaborators()
	if err != nil {
		r.Close()
		return nil, err
	}
	r.analyzer, err = subnoise.New(source, sink, analyzerOpts)
	if err != nil {
		r.Close()
		return nil, err
	}
	return r, nil
}

// analyzerOptions applies cli overrides on top of the analyzer config
func analyzerOptions(cfg *subnoise.Config, opts *Options) (*subnoise.Options, error) {
	if opts.Threshold != "" {
		threshold, err := strconv.ParseFloat(opts.Threshold, 64)
		if err != nil {
			return nil, errorutil.New("invalid threshold %q", opts.Threshold)
		}
		cfg.Threshold = threshold
	}
	if opts.Linkage != "" {
		if _, err := clustering.ParseLinkage(opts.Linkage); err != nil {
			return nil, err
		}
		cfg.Linkage = opts.Linkage
	}
	if opts.RuleTemplate != "" {
		cfg.RuleTemplate = opts.RuleTemplate
	}
	if opts.Concurrency > 0 {
		cfg.Concurrency = opts.Concurrency
	}
	if opts.Unique {
		cfg.UniqueRules = true
	}
	return cfg.Options()
}

// collaborators picks the domain source and rule sink for the run
func (r *Runner) collaborators() (subnoise.DomainSource, subnoise.RuleSink, error) {
	var source subnoise.DomainSource

	switch {
	case r.options.Input != "":
		f, err := os.Open(r.options.Input)
		if err != nil {
			return nil, nil, errorutil.NewWithErr(err).Msgf("could not open input %v", r.options.Input)
		}
		domains, err := parseDomains(f)
		_ = f.Close()
		if err != nil {
			return nil, nil, err
		}
		source = subnoise.NewMemoryStore(domains...)
	case fileutil.HasStdin():
		domains, err := parseDomains(os.Stdin)
		if err != nil {
			return nil, nil, err
		}
		source = subnoise.NewMemoryStore(domains...)
	}

	if source != nil && r.options.DryRun {
		return source, subnoise.NewMemoryStore(), nil
	}

	db, err := store.Open(r.options.Database)
	if err != nil {
		return nil, nil, err
	}
	r.db = db
	if source == nil {
		source = db
	}
	if r.options.DryRun {
		return source, subnoise.NewMemoryStore(), nil
	}
	return source, db, nil
}

// Run classifies all projects and replaces (or appends) the stored rules
func (r *Runner) Run(ctx context.Context) error {
	report, err := r.analyzer.Run(ctx, !r.options.KeepRules)
	if report == nil {
		return err
	}

	for _, rule := range report.Rules {
		gologger.Silent().Msgf("%s\t%s", rule.ProjectID, rule.Pattern)
	}
	for _, failed := range report.Failed {
		gologger.Error().Msgf("rule %s for project %s was not stored: %v", failed.Rule.Pattern, failed.Rule.ProjectID, failed.Err)
	}
	if r.options.DryRun {
		gologger.Info().Msgf("dry run: %d rules were not written", len(report.Rules))
	}

	if r.options.Output != "" {
		if werr := writeReport(r.options.Output, report); werr != nil {
			gologger.Error().Msgf("failed to write report to %v got %v", r.options.Output, werr)
		}
	}
	return err
}

// Close releases the database
func (r *Runner) Close() {
	if r.db != nil {
		_ = r.db.Close()
	}
}

type jsonReport struct {
	*subnoise.Report
	Errors map[string]string `json:"errors,omitempty"`
}

func writeReport(path string, report *subnoise.Report) error {
	out := jsonReport{Report: report, Errors: map[string]string{}}
	for project, err := range report.ProjectErrors() {
		out.Errors[project] = err.Error()
	}
	for _, failed := range report.Failed {
		out.Errors[failed.Rule.ProjectID] = failed.Err.Error()
	}
	bin, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, bin, 0644)
}
