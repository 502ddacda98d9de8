// Package config loads the studyspec YAML configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Fuabioo/studyspec/internal/audit"
	"github.com/Fuabioo/studyspec/internal/jsontree"
	"github.com/Fuabioo/studyspec/internal/llm"
	"github.com/Fuabioo/studyspec/internal/pathutil"
	"github.com/Fuabioo/studyspec/internal/studyspec"
	"github.com/Fuabioo/studyspec/internal/titles"
)

// DefaultRetention is how long merge history is kept before rotation.
const DefaultRetention = 30 * 24 * time.Hour

// Config is the top-level studyspec configuration.
type Config struct {
	LLM      LLMConfig     `yaml:"llm"`
	Merge    MergeConfig   `yaml:"merge"`
	Template string        `yaml:"template,omitempty"`
	Titles   []titles.Rule `yaml:"titles,omitempty"`
	Audit    *AuditConfig  `yaml:"audit,omitempty"`

	// path is the file the config was read from; empty for the zero config.
	path string
}

// LLMConfig describes the external text service command.
type LLMConfig struct {
	Command string        `yaml:"command"`
	Args    []string      `yaml:"args,omitempty"`
	Env     []string      `yaml:"env,omitempty"`
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

// MergeConfig tunes the selective merge.
type MergeConfig struct {
	// CoerceConflicts replaces intermediate containers of the wrong kind
	// instead of skipping the row.
	CoerceConflicts bool `yaml:"coerce_conflicts"`
}

// AuditConfig controls merge history.
type AuditConfig struct {
	Disabled  bool   `yaml:"disabled"` // default: false (audit enabled)
	DBPath    string `yaml:"db_path,omitempty"`
	Retention string `yaml:"retention,omitempty"` // e.g. "7d", "720h"
}

// Load searches for the config file in standard locations and parses it.
// Search order: $STUDYSPEC_CONFIG → $XDG_CONFIG_HOME/studyspec/config.yaml
// → ~/.config/studyspec/config.yaml.
// Returns the zero Config if no file is found and an error if the file
// exists but is not valid YAML.
func Load() (Config, error) {
	path, err := findConfigPath()
	if err != nil {
		return Config{}, err
	}
	if path == "" {
		return Config{}, nil
	}
	return LoadFrom(path)
}

// LoadFrom parses the config at path.
func LoadFrom(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.path = path
	return cfg, nil
}

// Path returns the file the config was loaded from, or "".
func (c Config) Path() string { return c.path }

// Client returns the process client for the configured service.
func (c Config) Client() llm.ProcessClient {
	return llm.ProcessClient{
		Command: c.LLM.Command,
		Args:    c.LLM.Args,
		Env:     c.LLM.Env,
		Timeout: c.LLM.Timeout,
	}
}

// SetMode returns the setter policy for selective merges.
func (c Config) SetMode() jsontree.SetMode {
	if c.Merge.CoerceConflicts {
		return jsontree.Coerce
	}
	return jsontree.Strict
}

// Resolver compiles the configured title rules ahead of the built-in ones.
func (c Config) Resolver() (*titles.Resolver, error) {
	rules := append(append([]titles.Rule{}, c.Titles...), titles.StudyRules()...)
	r, err := titles.New(rules)
	if err != nil {
		return nil, fmt.Errorf("config: titles: %w", err)
	}
	return r, nil
}

// TemplatePath returns the template override with "~" expanded and relative
// paths resolved against the config file's directory. Empty when unset.
func (c Config) TemplatePath() string {
	base := ""
	if c.path != "" {
		base = filepath.Dir(c.path)
	}
	return pathutil.Resolve(base, c.Template)
}

// CanonicalTemplate returns the configured template file, or the built-in
// template for now when none is set.
func (c Config) CanonicalTemplate(now time.Time) (*jsontree.Node, error) {
	p := c.TemplatePath()
	if p == "" {
		return studyspec.Template(now), nil
	}
	return studyspec.LoadTemplate(p)
}

// AuditEnabled reports whether merges are recorded. $STUDYSPEC_AUDIT=0
// turns auditing off regardless of the file.
func (c Config) AuditEnabled() bool {
	if os.Getenv("STUDYSPEC_AUDIT") == "0" {
		return false
	}
	return c.Audit == nil || !c.Audit.Disabled
}

// AuditDBPath returns the configured database path or the default.
func (c Config) AuditDBPath() string {
	if c.Audit != nil && c.Audit.DBPath != "" {
		return pathutil.ExpandTilde(c.Audit.DBPath)
	}
	return audit.DefaultDBPath()
}

// Retention returns the audit retention window, DefaultRetention when
// unset.
func (c Config) Retention() (time.Duration, error) {
	if c.Audit == nil || c.Audit.Retention == "" {
		return DefaultRetention, nil
	}
	d, err := ParseDuration(c.Audit.Retention)
	if err != nil {
		return 0, fmt.Errorf("config: audit.retention: %w", err)
	}
	return d, nil
}

// Validate reports every problem found in the config. A nil result means
// the config is usable.
func (c Config) Validate() []error {
	var errs []error
	if _, err := c.Resolver(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.Retention(); err != nil {
		errs = append(errs, err)
	}
	if c.Template != "" {
		if _, err := c.CanonicalTemplate(time.Now()); err != nil {
			errs = append(errs, fmt.Errorf("config: template: %w", err))
		}
	}
	if c.LLM.Command != "" {
		parts := strings.Fields(pathutil.ExpandTilde(c.LLM.Command))
		if len(parts) == 0 {
			errs = append(errs, errors.New("config: llm.command is blank"))
		} else if _, err := exec.LookPath(parts[0]); err != nil {
			errs = append(errs, fmt.Errorf("config: llm.command: %w", err))
		}
	}
	if c.LLM.Timeout < 0 {
		errs = append(errs, fmt.Errorf("config: llm.timeout must not be negative, got %s", c.LLM.Timeout))
	}
	return errs
}

// ParseDuration parses "Nd" (days) in addition to time.ParseDuration
// formats such as "36h" or "1h30m".
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty duration")
	}
	if numStr, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(numStr)
		if err != nil {
			return 0, fmt.Errorf("invalid days %q: %w", numStr, err)
		}
		if n < 0 {
			return 0, fmt.Errorf("negative duration %q", s)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %q", s)
	}
	return d, nil
}

// findConfigPath returns the path to the first config file found,
// or empty string if none exists.
func findConfigPath() (string, error) {
	if p := os.Getenv("STUDYSPEC_CONFIG"); p != "" {
		if _, err := os.Stat(p); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return "", fmt.Errorf("config: $STUDYSPEC_CONFIG points to %s which does not exist", p)
			}
			return "", fmt.Errorf("config: stat %s: %w", p, err)
		}
		return p, nil
	}

	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		p := filepath.Join(xdg, "studyspec", "config.yaml")
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", nil // no home: treat as no config
	}
	p := filepath.Join(home, ".config", "studyspec", "config.yaml")
	if _, err := os.Stat(p); err == nil {
		return p, nil
	}
	return "", nil
}
