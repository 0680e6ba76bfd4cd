// Package config loads and validates the tally configuration file.
//
// Configuration is YAML on disk. Loaded values are validated twice:
// structurally against the embedded CUE schema (schema.cue), then
// semantically in Go (cron expressions parse, log types and schedule
// names are unique). A file that fails either check is rejected whole.
package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"

	"github.com/tallybot/tally/internal/schedule"
)

//go:embed schema.cue
var schemaSource []byte

// HistoryLog configures one bounded history log.
type HistoryLog struct {
	Type  string `yaml:"type" json:"type"`
	Cap   int    `yaml:"cap" json:"cap"`
	Dedup bool   `yaml:"dedup" json:"dedup"`
}

// Schedule configures one rollup schedule.
type Schedule struct {
	Name       string `yaml:"name" json:"name"`
	Expression string `yaml:"expression" json:"expression"`
	Timezone   string `yaml:"timezone" json:"timezone"`
	Period     string `yaml:"period" json:"period"`
	Autostart  bool   `yaml:"autostart" json:"autostart"`
}

// Config is the full tally configuration.
type Config struct {
	DatabasePath string       `yaml:"database_path" json:"database_path"`
	CounterTypes []string     `yaml:"counter_types" json:"counter_types"`
	HistoryLogs  []HistoryLog `yaml:"history_logs" json:"history_logs"`
	Schedules    []Schedule   `yaml:"schedules" json:"schedules"`
}

// Default returns the built-in configuration used when no file is
// given. Rollups run shortly after the 08:00 UTC day boundary so the
// closed window is final when they fire.
func Default() *Config {
	return &Config{
		DatabasePath: "tally.db",
		CounterTypes: []string{"message", "reaction"},
		HistoryLogs: []HistoryLog{
			{Type: "presence", Cap: 2},
			{Type: "avatar", Cap: 12, Dedup: true},
		},
		Schedules: []Schedule{
			{Name: "monthly-rollup", Expression: "5 8 1 * *", Timezone: "UTC", Period: "month", Autostart: true},
			{Name: "yearly-rollup", Expression: "15 8 1 1 *", Timezone: "UTC", Period: "year", Autostart: true},
		},
	}
}

// Load reads and validates a YAML configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes and validates YAML configuration bytes. Unknown keys
// are rejected so typos do not silently fall back to defaults.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration against the CUE schema and the
// semantic rules the schema cannot express.
func (c *Config) Validate() error {
	// Absent lists mean "none", which the schema expects as empty
	// lists rather than null.
	if c.CounterTypes == nil {
		c.CounterTypes = []string{}
	}
	if c.HistoryLogs == nil {
		c.HistoryLogs = []HistoryLog{}
	}
	if c.Schedules == nil {
		c.Schedules = []Schedule{}
	}

	if err := c.validateSchema(); err != nil {
		return err
	}

	seenTypes := make(map[string]bool, len(c.HistoryLogs))
	for _, log := range c.HistoryLogs {
		if seenTypes[log.Type] {
			return fmt.Errorf("config: duplicate history log type %q", log.Type)
		}
		seenTypes[log.Type] = true
	}

	seenNames := make(map[string]bool, len(c.Schedules))
	for _, sched := range c.Schedules {
		if seenNames[sched.Name] {
			return fmt.Errorf("config: duplicate schedule name %q", sched.Name)
		}
		seenNames[sched.Name] = true

		if _, err := schedule.ParseSpec(sched.Expression, sched.Timezone); err != nil {
			return fmt.Errorf("config: schedule %q: %w", sched.Name, err)
		}
	}

	return nil
}

// validateSchema unifies the configuration with the embedded CUE
// schema and reports the first structural mismatch with its position.
func (c *Config) validateSchema() error {
	ctx := cuecontext.New()

	schema := ctx.CompileBytes(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("config: compiling schema: %w", err)
	}

	def := schema.LookupPath(cue.ParsePath("#Config"))
	if !def.Exists() {
		return fmt.Errorf("config: schema has no #Config definition")
	}

	unified := def.Unify(ctx.Encode(c))
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("config: %s", cueerrors.Details(err, nil))
	}
	return nil
}
