// Package config holds the CLI configuration for scan runs and loads
// strict-profile policy files.
package config

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/privacyscope/privacyscope/pkg/netintercept"
	"github.com/privacyscope/privacyscope/pkg/scan"
)

// Config holds all scan command options after flag parsing.
type Config struct {
	// Target settings
	TargetURL string
	ListFile  string // file containing target URLs, one per line

	// Profile settings
	Profile          string // baseline or strict
	StrictConfigFile string // YAML strict policy, implies strict profile
	Both             bool   // run baseline and strict back to back and compare

	// Execution settings
	Timeout time.Duration // per-scan deadline (0 = engine default)
	Headful bool          // show the browser window

	// Catalog settings
	TrackerList string // replacement tracker catalog (empty = bundled)

	// Output settings
	OutputFile    string // result JSON path (empty = stdout report only)
	ScreenshotDir string // artifact directory (empty = discard)
	JSONOutput    bool   // print raw JSON instead of the styled report
	NoColor       bool

	// Metrics
	MetricsPort int // 0 = disabled
}

// Validate checks cross-field consistency after flag parsing.
func (c *Config) Validate() error {
	if c.TargetURL == "" && c.ListFile == "" {
		return fmt.Errorf("config: a target URL (-u) or list file (-l) is required")
	}
	if c.TargetURL != "" && c.ListFile != "" {
		return fmt.Errorf("config: -u and -l are mutually exclusive")
	}
	if c.Both && c.Profile == string(scan.ProfileStrict) {
		return fmt.Errorf("config: -both already runs strict; drop -profile")
	}
	if c.Profile != "" && !scan.Profile(c.Profile).IsValid() {
		return fmt.Errorf("config: unknown profile %q (baseline|strict)", c.Profile)
	}
	if c.StrictConfigFile != "" && c.Profile == string(scan.ProfileBaseline) && !c.Both {
		return fmt.Errorf("config: -strict-config requires the strict profile")
	}
	if c.MetricsPort < 0 || c.MetricsPort > 65535 {
		return fmt.Errorf("config: invalid metrics port %d", c.MetricsPort)
	}
	return nil
}

// EffectiveProfile resolves the profile the single-scan path should run.
func (c *Config) EffectiveProfile() scan.Profile {
	if c.Profile != "" {
		return scan.Profile(c.Profile)
	}
	if c.StrictConfigFile != "" {
		return scan.ProfileStrict
	}
	return scan.ProfileBaseline
}

// LoadStrictConfig reads a strict-profile policy from a YAML file:
//
//	block_third_party: true
//	allowlist_domains:
//	  - cdn.example
//
// An empty path yields the zero policy (tracker blocking only).
func LoadStrictConfig(path string) (netintercept.StrictConfig, error) {
	var cfg netintercept.StrictConfig
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read strict config: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("config: parse strict config %s: %w", path, err)
	}
	return cfg, nil
}
