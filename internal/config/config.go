// Package config holds fastbot's process configuration: agent
// hyperparameters, persistence behavior, and the §6.4 rewrite-rule file
// paths. It is loaded once at startup and treated as read-only afterward —
// config reload is explicitly out of scope (spec.md §9, Preference design
// note).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// AgentKind selects the exploration policy variant (spec.md §4.4, §9 —
// a tagged variant rather than a class hierarchy).
type AgentKind string

const (
	AgentReuse       AgentKind = "reuse"
	AgentDoubleSarsa AgentKind = "double_sarsa"
)

// AgentConfig holds the N-step SARSA / Double-SARSA hyperparameters from
// spec.md §4.4, with the spec's literal constants as defaults.
type AgentConfig struct {
	Kind AgentKind `yaml:"kind"`

	// N-step window length for the reward ring buffer and Q update.
	StepWindow int `yaml:"step_window"`
	// Discount factor applied when accumulating the N-step return.
	Gamma float64 `yaml:"gamma"`
	// Entropy temperature dividing Q-value scores in strategy 4.
	EntropyAlpha float64 `yaml:"entropy_alpha"`
	// Epsilon for the epsilon-greedy fallback (strategy 5): probability of
	// a priority-weighted random action instead of the max-priority one.
	Epsilon float64 `yaml:"epsilon"`
	// Minimum learning rate floor after decay (spec.md §4.4 alpha table).
	AlphaFloor float64 `yaml:"alpha_floor"`
	// BlockThreshold: on_add_node block-count above which Model emits
	// RESTART instead of consulting the policy.
	BlockThreshold int `yaml:"block_threshold"`
	// BlockDetectionEnabled toggles the AbstractAgent block counter.
	BlockDetectionEnabled bool `yaml:"block_detection_enabled"`
}

// PersistenceConfig controls the reuse-model background save loop.
type PersistenceConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Path     string        `yaml:"path"`
	Interval time.Duration `yaml:"interval"`
}

// AbstractionConfig controls the widget-hash and state-hash composition
// toggles from spec.md §3/§3.1.
type AbstractionConfig struct {
	IncludeText          bool `yaml:"include_text"`
	TextLengthLimit      int  `yaml:"text_length_limit"`
	IncludeContentDesc   bool `yaml:"include_content_desc"`
	IncludeIndex         bool `yaml:"include_index"`
	OrderedStateHash     bool `yaml:"ordered_state_hash"`
	RichWidgetHash       bool `yaml:"rich_widget_hash"`
	ParentClickPropagate bool `yaml:"parent_click_propagate"`
}

// RewriteConfig holds the §6.4 configuration file paths consumed by
// Preference. Each path is an opaque byte source; config.Load never opens
// them itself.
type RewriteConfig struct {
	MappingPath      string `yaml:"mapping_path"`       // max.mapping
	ConfigPath       string `yaml:"config_path"`        // max.config
	StringsPath      string `yaml:"strings_path"`       // max.strings
	FuzzingPath      string `yaml:"fuzzing_path"`       // max.fuzzing.strings
	XPathActionsPath string `yaml:"xpath_actions_path"` // max.xpath.actions
	BlackWidgetsPath string `yaml:"black_widgets_path"` // max.widget.black
	TreePruningPath  string `yaml:"tree_pruning_path"`  // max.tree.pruning
	ValidStringsPath string `yaml:"valid_strings_path"` // max.valid.strings

	RandomPickFromStringList bool `yaml:"random_pick_from_string_list"`
	DoInputTextFuzzing       bool `yaml:"do_input_text_fuzzing"`
	ListenMode               bool `yaml:"listen_mode"`
}

// LoggingConfig mirrors internal/logging.Config for the parts that belong
// in a saved file.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	JSONFormat bool   `yaml:"json_format"`
	File       string `yaml:"file"`
}

// Config holds all of fastbot's process configuration.
type Config struct {
	Agent          AgentConfig       `yaml:"agent"`
	Persistence    PersistenceConfig `yaml:"persistence"`
	Abstraction    AbstractionConfig `yaml:"abstraction"`
	Rewrite        RewriteConfig     `yaml:"rewrite"`
	Logging        LoggingConfig     `yaml:"logging"`
	DropDetails    bool              `yaml:"drop_details"`
	DynamicMaxMask uint8             `yaml:"dynamic_max_mask"`
}

// DefaultConfig returns the spec's literal constants: a zero-config Model
// behaves exactly as specified in spec.md §4.4.
func DefaultConfig() *Config {
	return &Config{
		Agent: AgentConfig{
			Kind:                  AgentDoubleSarsa,
			StepWindow:            5,
			Gamma:                 0.8,
			EntropyAlpha:          0.1,
			Epsilon:               0.1,
			AlphaFloor:            0.25,
			BlockThreshold:        3,
			BlockDetectionEnabled: true,
		},
		Persistence: PersistenceConfig{
			Enabled:  true,
			Path:     "fastbot-reuse-model.bin",
			Interval: 10 * time.Minute,
		},
		Abstraction: AbstractionConfig{
			IncludeText:          true,
			TextLengthLimit:      32,
			IncludeContentDesc:   true,
			IncludeIndex:         false,
			OrderedStateHash:     false,
			RichWidgetHash:       false,
			ParentClickPropagate: true,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		DropDetails:    true,
		DynamicMaxMask: 0xFF,
	}
}

// Load reads configuration from a YAML file, falling back to
// DefaultConfig when the file does not exist — matching §7's ConfigError
// policy of logging and continuing rather than failing the process.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes configuration to a YAML file, creating parent directories as
// needed.
func (c *Config) Save(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("config: mkdir %s: %w", dir, err)
		}
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if path := os.Getenv("FASTBOT_REUSE_MODEL_PATH"); path != "" {
		c.Persistence.Path = path
	}
	if path := os.Getenv("FASTBOT_MAPPING_PATH"); path != "" {
		c.Rewrite.MappingPath = path
	}
	if lvl := os.Getenv("FASTBOT_LOG_LEVEL"); lvl != "" {
		c.Logging.Level = lvl
	}
}

// Validate checks invariants a caller is likely to get wrong by hand.
func (c *Config) Validate() error {
	if c.Agent.Kind != AgentReuse && c.Agent.Kind != AgentDoubleSarsa {
		return fmt.Errorf("config: invalid agent kind %q", c.Agent.Kind)
	}
	if c.Agent.StepWindow <= 0 {
		return fmt.Errorf("config: agent.step_window must be positive, got %d", c.Agent.StepWindow)
	}
	if c.Agent.AlphaFloor <= 0 || c.Agent.AlphaFloor > 1 {
		return fmt.Errorf("config: agent.alpha_floor must be in (0,1], got %v", c.Agent.AlphaFloor)
	}
	return nil
}
