package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/lvanheel/teamdigest/internal/sender"
	"github.com/lvanheel/teamdigest/internal/window"
)

// DefaultPath is where the configuration file lives unless --config says
// otherwise.
const DefaultPath = "~/.teamdigest.yaml"

// Config is the full configuration file. Report definitions are keyed
// "report*"; other keys under reports are ignored, matching the original
// file layout this tool grew out of.
type Config struct {
	AsanaAPIKey string             `yaml:"asana_api_key"`
	TemplateDir string             `yaml:"template_dir"`
	Reports     map[string]*Report `yaml:"reports"`
}

// Report is one report definition: what to pull, who counts, where it goes.
type Report struct {
	Name              string   `yaml:"name"`
	Frequency         string   `yaml:"frequency"`
	IgnoreProjects    []string `yaml:"ignore_projects"`
	TeamMembers       []string `yaml:"team_members"`
	KeepEmptySections *bool    `yaml:"keep_empty_sections"`

	// Output maps a format tag to its channel settings. The raw nodes are
	// decoded by the sender registered for each tag.
	Output map[string]yaml.Node `yaml:"output"`
}

// KeepEmpty resolves the empty-section switch; the historical behavior
// (keep them) is the default.
func (r *Report) KeepEmpty() bool {
	if r.KeepEmptySections == nil {
		return true
	}
	return *r.KeepEmptySections
}

// ReportNames returns the report definition keys in stable order, limited
// to the "report" prefix.
func (c *Config) ReportNames() []string {
	names := make([]string, 0, len(c.Reports))
	for name := range c.Reports {
		if strings.HasPrefix(name, "report") {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Load reads and validates the configuration file. Validation failures here
// are fatal before any network activity.
func Load(path string) (*Config, error) {
	path = expandHome(path)
	if !strings.HasSuffix(path, "yaml") && !strings.HasSuffix(path, "yml") {
		return nil, fmt.Errorf("configuration file %s must be a yaml file", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not load configuration file %s (check the path): %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	if cfg.AsanaAPIKey == "" {
		cfg.AsanaAPIKey = os.Getenv("TEAMDIGEST_ASANA_KEY")
	}
	if cfg.TemplateDir == "" {
		cfg.TemplateDir = getEnvOrDefault("TEAMDIGEST_TEMPLATE_DIR", "templates")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects bad frequencies, unknown output formats, and missing
// credentials up front.
func (c *Config) Validate() error {
	if c.AsanaAPIKey == "" {
		return fmt.Errorf("no asana_api_key configured (set it in the config file or TEAMDIGEST_ASANA_KEY)")
	}

	names := c.ReportNames()
	if len(names) == 0 {
		return fmt.Errorf("no report definitions found (reports are keyed report1, report2, ...)")
	}

	for _, name := range names {
		r := c.Reports[name]
		if r == nil {
			continue
		}
		if _, err := window.ParseFrequency(r.Frequency); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		if len(r.Output) == 0 {
			return fmt.Errorf("%s: no output channels configured", name)
		}
		for tag := range r.Output {
			if !sender.Known(tag) {
				return fmt.Errorf("%s: invalid output format %q (valid choices: %s)",
					name, tag, strings.Join(sender.Formats(), ","))
			}
		}
	}
	return nil
}

func expandHome(path string) string {
	if strings.HasPrefix(path, "~") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
