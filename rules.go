package subnoise

import (
	"strings"

	"github.com/projectdiscovery/fasttemplate"
	"golang.org/x/net/publicsuffix"
)

const (
	// DefaultRuleTemplate matches any host ending with the last three labels.
	// Labels are not escaped: regex metacharacters inside a domain keep
	// their regex meaning in the generated pattern.
	DefaultRuleTemplate = ".*{{tail}}"

	templateOpen  = "{{"
	templateClose = "}}"
)

// RuleGenerator renders a regex rule for noisy domains.
// Available template variables are {{tail}} (last three labels) and
// {{domain}} (the full domain).
type RuleGenerator struct {
	template string
}

// NewRuleGenerator validates template and returns a generator,
// an empty template selects DefaultRuleTemplate
func NewRuleGenerator(template string) (*RuleGenerator, error) {
	if template == "" {
		template = DefaultRuleTemplate
	}
	if _, err := fasttemplate.NewTemplate(template, templateOpen, templateClose); err != nil {
		return nil, err
	}
	return &RuleGenerator{template: template}, nil
}

// Tail returns the last MinLabels labels of domain joined by dots
func Tail(domain string) (string, error) {
	if domain == "" {
		return "", &PatternGenerationError{Domain: domain, Reason: "empty domain"}
	}
	labels := strings.Split(domain, ".")
	if len(labels) < MinLabels {
		return "", &PatternGenerationError{Domain: domain, Reason: "domain has fewer than 3 labels"}
	}
	return strings.Join(labels[len(labels)-MinLabels:], "."), nil
}

// Generate returns the rule pattern for domain
func (g *RuleGenerator) Generate(domain string) (string, error) {
	tail, err := Tail(domain)
	if err != nil {
		return "", err
	}
	return fasttemplate.ExecuteStringStd(g.template, templateOpen, templateClose, map[string]interface{}{
		"tail":   tail,
		"domain": domain,
	}), nil
}

var defaultRuleGenerator = &RuleGenerator{template: DefaultRuleTemplate}

// GenerateRule returns ".*" followed by the last three labels of domain
func GenerateRule(domain string) (string, error) {
	return defaultRuleGenerator.Generate(domain)
}

// coversRegistrableDomain reports whether tail is itself a registrable
// domain (eTLD+1), in which case a tail rule matches every host of it
func coversRegistrableDomain(tail string) bool {
	root, err := publicsuffix.EffectiveTLDPlusOne(tail)
	return err == nil && root == tail
}
