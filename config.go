package subnoise

import (
	"os"

	"github.com/projectdiscovery/subnoise/clustering"
	"gopkg.in/yaml.v3"
)

// Config holds the analyzer tunables read from yaml
type Config struct {
	Threshold    float64 `yaml:"threshold"`
	Linkage      string  `yaml:"linkage"`
	RuleTemplate string  `yaml:"rule_template"`
	UniqueRules  bool    `yaml:"unique_rules"`
	Concurrency  int     `yaml:"concurrency"`
}

// DefaultConfig is used when no config file is given
var DefaultConfig = Config{
	Threshold:    clustering.DefaultThreshold,
	Linkage:      string(clustering.Ward),
	RuleTemplate: DefaultRuleTemplate,
	Concurrency:  1,
}

// NewConfig reads config from file
func NewConfig(filePath string) (*Config, error) {
	bin, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig
	if err = yaml.Unmarshal(bin, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// GenerateSample creates a sample yaml file with default values
func GenerateSample(filePath string) error {
	bin, err := yaml.Marshal(DefaultConfig)
	if err != nil {
		return err
	}
	return os.WriteFile(filePath, bin, 0644)
}

// Options converts the config to analyzer options
func (c *Config) Options() (*Options, error) {
	linkage, err := clustering.ParseLinkage(c.Linkage)
	if err != nil {
		return nil, err
	}
	return &Options{
		Threshold:    c.Threshold,
		Linkage:      linkage,
		RuleTemplate: c.RuleTemplate,
		UniqueRules:  c.UniqueRules,
		Concurrency:  c.Concurrency,
	}, nil
}
