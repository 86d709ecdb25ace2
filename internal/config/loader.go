package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"popauth/pkg/logging"

	"gopkg.in/yaml.v3"
)

const (
	userConfigDir  = ".config/popauth"
	configFileName = "config.yaml"
)

var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// osUserHomeDir is replaced in tests.
var osUserHomeDir = os.UserHomeDir

func GetDefaultConfigPathOrPanic() string {
	homeDir, err := osUserHomeDir()
	if err != nil {
		panic(fmt.Errorf("could not determine user config directory: %w", err))
	}

	return filepath.Join(homeDir, userConfigDir)
}

// LoadConfig loads config.yaml from configPath, expands ${VAR} references,
// applies defaults and validates every profile.
func LoadConfig(configPath string) (Config, error) {
	configFilePath := filepath.Join(configPath, configFileName)
	config := GetDefaultConfig()

	data, err := os.ReadFile(configFilePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logging.Debug("ConfigLoader", "No config.yaml found at %s, using defaults", configFilePath)
			return config, nil
		}
		return Config{}, fmt.Errorf("error reading config from %s: %w", configFilePath, err)
	}

	if err := yaml.Unmarshal(expandEnv(data), &config); err != nil {
		return Config{}, NewConfigurationErrorWithDetails(configFilePath, "", "parse",
			"config.yaml is not valid YAML", err.Error(),
			[]string{"Check indentation and quoting", "Validate the file with a YAML linter"})
	}
	if config.Profiles == nil {
		config.Profiles = map[string]Profile{}
	}

	errs := NewConfigurationErrorCollection()
	for name, profile := range config.Profiles {
		profile = profile.withDefaults()
		config.Profiles[name] = profile
		for _, e := range profile.Validate() {
			e.FilePath = configFilePath
			e.Profile = name
			errs.Add(e)
		}
	}
	if config.DefaultProfile != "" {
		if _, ok := config.Profiles[config.DefaultProfile]; !ok {
			errs.Add(NewConfigurationError(configFilePath, "", "reference",
				fmt.Sprintf("defaultProfile %q is not defined", config.DefaultProfile)))
		}
	}
	if errs.HasErrors() {
		errs.sort()
		return Config{}, errs
	}

	logging.Debug("ConfigLoader", "Loaded %d profiles from %s", len(config.Profiles), configFilePath)
	return config, nil
}

// expandEnv replaces ${VAR} with the value of VAR. Unset variables expand
// to the empty string.
func expandEnv(data []byte) []byte {
	return envRef.ReplaceAllFunc(data, func(ref []byte) []byte {
		name := envRef.FindSubmatch(ref)[1]
		return []byte(os.Getenv(string(name)))
	})
}

// Profile returns the named profile. An empty name selects DefaultProfile,
// or the only profile if exactly one is defined.
func (c Config) Profile(name string) (Profile, string, error) {
	if name == "" {
		name = c.DefaultProfile
	}
	if name == "" {
		if len(c.Profiles) != 1 {
			return Profile{}, "", fmt.Errorf("no profile selected and %d profiles defined; use --profile", len(c.Profiles))
		}
		for only := range c.Profiles {
			name = only
		}
	}

	p, ok := c.Profiles[name]
	if !ok {
		return Profile{}, "", fmt.Errorf("profile %q not found", name)
	}
	return p, name, nil
}

// ProfileNames returns the defined profile names in sorted order.
func (c Config) ProfileNames() []string {
	names := make([]string, 0, len(c.Profiles))
	for name := range c.Profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
