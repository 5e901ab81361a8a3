package subnoise

import (
	"context"
	"strings"
)

// MinLabels is the minimum number of dot separated labels a domain needs
// to take part in clustering
const MinLabels = 3

// Domain is a domain name owned by a project
type Domain struct {
	Name      string `json:"name"`
	ProjectID string `json:"project_id"`
}

// Rule is a regular expression matching noisy domains of a project
type Rule struct {
	Pattern   string `json:"regexp"`
	ProjectID string `json:"project_id"`
}

// RuleFilter restricts DeleteRules to a subset of rules.
// A nil filter selects every rule.
type RuleFilter struct {
	ProjectID string
}

// Match reports whether rule is selected by the filter
func (f *RuleFilter) Match(rule Rule) bool {
	if f == nil {
		return true
	}
	return rule.ProjectID == f.ProjectID
}

// DomainSource provides the full set of domains to analyze
type DomainSource interface {
	// GetAllDomains fetches all domain names and their project ids
	GetAllDomains(ctx context.Context) ([]Domain, error)
}

// RuleSink stores generated rules
type RuleSink interface {
	// InsertRule durably stores a single rule
	InsertRule(ctx context.Context, rule Rule) error
	// DeleteRules durably removes rules selected by filter (nil = all)
	DeleteRules(ctx context.Context, filter *RuleFilter) error
}

// RuleTx is a rule sink whose writes become visible only on Commit
type RuleTx interface {
	RuleSink
	Commit() error
	Rollback() error
}

// Transactor is implemented by sinks able to group writes atomically.
// Run uses it to make clearing and re-inserting rules all-or-nothing.
type Transactor interface {
	BeginRules(ctx context.Context) (RuleTx, error)
}

// LabelCount returns the number of dot separated labels of name
func LabelCount(name string) int {
	return strings.Count(name, ".") + 1
}

// FilterByLevel returns the domains having at least MinLabels labels,
// preserving input order
func FilterByLevel(domains []string) []string {
	filtered := make([]string, 0, len(domains))
	for _, domain := range domains {
		if LabelCount(domain) >= MinLabels {
			filtered = append(filtered, domain)
		}
	}
	return filtered
}

// GroupByProject groups domain names by project id.
// Project ids are returned in order of first appearance.
func GroupByProject(domains []Domain) ([]string, map[string][]string) {
	var order []string
	groups := make(map[string][]string)
	for _, d := range domains {
		if _, ok := groups[d.ProjectID]; !ok {
			order = append(order, d.ProjectID)
		}
		groups[d.ProjectID] = append(groups[d.ProjectID], d.Name)
	}
	return order, groups
}
