package subnoise

import (
	"fmt"
	"strings"

	"github.com/projectdiscovery/utils/errkit"
)

var (
	ErrNilSource = errkit.New("domain source cannot be nil")
	ErrNilSink   = errkit.New("rule sink cannot be nil")
)

// InsufficientDataError is returned when a project has too few usable
// domains for clustering to run
type InsufficientDataError struct {
	ProjectID string
	Domains   int
	Err       error
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("project %q: insufficient data to cluster %d domains: %v", e.ProjectID, e.Domains, e.Err)
}

func (e *InsufficientDataError) Unwrap() error { return e.Err }

// SourceReadError wraps a failure to fetch domains. It aborts the run.
type SourceReadError struct {
	Err error
}

func (e *SourceReadError) Error() string {
	return fmt.Sprintf("failed to read domains: %v", e.Err)
}

func (e *SourceReadError) Unwrap() error { return e.Err }

// RuleFailure is a rule that could not be persisted
type RuleFailure struct {
	Rule Rule
	Err  error
}

// SinkWriteError reports a failed rule write.
// Op is the failing step (begin, delete, insert or commit); for inserts,
// Failed lists every rule that did not make it.
type SinkWriteError struct {
	Op     string
	Failed []RuleFailure
	Err    error
}

func (e *SinkWriteError) Error() string {
	if len(e.Failed) == 0 {
		return fmt.Sprintf("rule sink %s failed: %v", e.Op, e.Err)
	}
	projects := make([]string, 0, len(e.Failed))
	seen := make(map[string]struct{})
	for _, f := range e.Failed {
		if _, ok := seen[f.Rule.ProjectID]; !ok {
			seen[f.Rule.ProjectID] = struct{}{}
			projects = append(projects, f.Rule.ProjectID)
		}
	}
	return fmt.Sprintf("rule sink %s failed for %d rules (projects: %s): %v", e.Op, len(e.Failed), strings.Join(projects, ","), e.Err)
}

func (e *SinkWriteError) Unwrap() error { return e.Err }

// PatternGenerationError is returned for domains a rule cannot be derived from
type PatternGenerationError struct {
	Domain string
	Reason string
}

func (e *PatternGenerationError) Error() string {
	return fmt.Sprintf("cannot generate pattern for %q: %s", e.Domain, e.Reason)
}
