package runner

import (
	"os"
	"path/filepath"

	"github.com/projectdiscovery/gologger"
	"github.com/projectdiscovery/subnoise"
	fileutil "github.com/projectdiscovery/utils/file"
)

func defaultAnalyzerConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(homeDir, ".config", "subnoise", "config.yaml")
}

// loadAnalyzerConfig reads the analyzer config at path. Without a path the
// default location is used and, when missing, populated with a sample.
func loadAnalyzerConfig(path string) (*subnoise.Config, error) {
	if path != "" {
		return subnoise.NewConfig(path)
	}
	cfg := subnoise.DefaultConfig
	defaultPath := defaultAnalyzerConfigPath()
	if defaultPath == "" {
		return &cfg, nil
	}
	if fileutil.FileExists(defaultPath) {
		loaded, err := subnoise.NewConfig(defaultPath)
		if err != nil {
			gologger.Warning().Msgf("ignoring invalid default config %v: %v", defaultPath, err)
			return &cfg, nil
		}
		return loaded, nil
	}
	if err := os.MkdirAll(filepath.Dir(defaultPath), 0755); err == nil {
		if err := subnoise.GenerateSample(defaultPath); err != nil {
			gologger.Error().Msgf("failed to save default config to %v got: %v", defaultPath, err)
		}
	}
	return &cfg, nil
}
