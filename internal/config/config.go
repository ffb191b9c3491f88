package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/jaminalder/ndtictactoe/internal/strategy"
	"gopkg.in/yaml.v2"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid config")

// Player selects and tunes one side's move source.
type Player struct {
	Strategy string                      `yaml:"strategy"`
	Options  map[interface{}]interface{} `yaml:"options"`
}

// StringOptions returns Options with string keys, nested maps included, as
// expected by strategy.New.
func (p Player) StringOptions() map[string]interface{} {
	if len(p.Options) == 0 {
		return nil
	}
	out := make(map[string]interface{}, len(p.Options))
	for k, v := range p.Options {
		out[fmt.Sprint(k)] = normalize(v)
	}
	return out
}

func normalize(v interface{}) interface{} {
	switch t := v.(type) {
	case map[interface{}]interface{}:
		m := make(map[string]interface{}, len(t))
		for k, v := range t {
			m[fmt.Sprint(k)] = normalize(v)
		}
		return m
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, v := range t {
			out[i] = normalize(v)
		}
		return out
	default:
		return v
	}
}

type Server struct {
	Addr      string        `yaml:"addr"`
	StepDelay time.Duration `yaml:"step_delay"`
	MaxCells  int           `yaml:"max_cells"`
}

type Log struct {
	Development bool `yaml:"development"`
}

// Config is the file layout read by Load.
type Config struct {
	Dimension int       `yaml:"dimension"`
	Size      int       `yaml:"size"`
	Seed      int64     `yaml:"seed"`
	Render    bool      `yaml:"render"`
	Unique    bool      `yaml:"unique_lines"`
	Players   [2]Player `yaml:"players"`
	Server    Server    `yaml:"server"`
	Log       Log       `yaml:"log"`
}

// Default returns a 3×3 game between an interactive player and a random one.
func Default() Config {
	return Config{
		Dimension: 2,
		Size:      3,
		Render:    true,
		Players: [2]Player{
			{Strategy: strategy.Interactive},
			{Strategy: strategy.Random},
		},
		Server: Server{Addr: ":8080", MaxCells: 1000},
	}
}

// Load reads path over the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := Parse(raw, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Parse decodes YAML into cfg, keeping fields the document leaves out, and
// validates the result.
func Parse(raw []byte, cfg *Config) error {
	if err := yaml.UnmarshalStrict(raw, cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return cfg.Validate()
}

// Validate checks shape and strategy names. Strategy options are checked
// when the strategies are built.
func (c Config) Validate() error {
	if c.Dimension != 2 && c.Dimension != 3 {
		return fmt.Errorf("%w: dimension must be 2 or 3, got %d", ErrInvalid, c.Dimension)
	}
	if c.Size < 1 {
		return fmt.Errorf("%w: size must be positive, got %d", ErrInvalid, c.Size)
	}
	known := map[string]bool{}
	for _, n := range strategy.Names() {
		known[n] = true
	}
	for i, p := range c.Players {
		if !known[p.Strategy] {
			return fmt.Errorf("%w: player %d: unknown strategy %q", ErrInvalid, i, p.Strategy)
		}
	}
	if c.Server.StepDelay < 0 {
		return fmt.Errorf("%w: negative step_delay", ErrInvalid)
	}
	return nil
}
