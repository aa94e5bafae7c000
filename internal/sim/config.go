package sim

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is a simulation scenario: the goods universe, the producers
// posting offers each tick, and the consumers spending income through
// the optimizer. Loaded from YAML; zero fields take defaults.
type Config struct {
	Ticks         int     `yaml:"ticks"`
	Currency      string  `yaml:"currency"`
	FallbackPrice float64 `yaml:"fallback_price"`

	Goods     []GoodConfig     `yaml:"goods"`
	Producers []ProducerConfig `yaml:"producers"`
	Consumers []ConsumerConfig `yaml:"consumers"`
}

type GoodConfig struct {
	Name string `yaml:"name"`
}

// ProducerConfig describes an agent that turns out a fixed quantity of
// one good per tick and offers it at a limit price.
type ProducerConfig struct {
	Name     string  `yaml:"name"`
	Good     string  `yaml:"good"`
	Output   float64 `yaml:"output"`    // Units produced per tick
	AskPrice float64 `yaml:"ask_price"` // Limit price of the standing offer
	Cash     float64 `yaml:"cash"`      // Opening account balance
}

// ConsumerConfig describes an agent with a per-tick income and
// Cobb-Douglas preferences over goods.
type ConsumerConfig struct {
	Name        string             `yaml:"name"`
	Income      float64            `yaml:"income"` // Budget per tick
	Cash        float64            `yaml:"cash"`   // Opening account balance
	Preferences map[string]float64 `yaml:"preferences"`
}

// Load reads a scenario file and applies defaults.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Ticks <= 0 {
		c.Ticks = 10
	}
	if c.Currency == "" {
		c.Currency = "EUR"
	}
	if c.FallbackPrice <= 0 {
		c.FallbackPrice = 1.0
	}
}

func (c *Config) validate() error {
	known := make(map[string]bool, len(c.Goods))
	for _, g := range c.Goods {
		if g.Name == "" {
			return fmt.Errorf("scenario: good with empty name")
		}
		known[g.Name] = true
	}
	for _, p := range c.Producers {
		if !known[p.Good] {
			return fmt.Errorf("scenario: producer %q makes unknown good %q", p.Name, p.Good)
		}
	}
	for _, con := range c.Consumers {
		for good := range con.Preferences {
			if !known[good] {
				return fmt.Errorf("scenario: consumer %q wants unknown good %q", con.Name, good)
			}
		}
	}
	return nil
}

// DefaultConfig is the built-in two-good demo scenario used when no
// file is given.
func DefaultConfig() *Config {
	cfg := &Config{
		Goods: []GoodConfig{{Name: "WHEAT"}, {Name: "KILOWATT"}},
		Producers: []ProducerConfig{
			{Name: "farm", Good: "WHEAT", Output: 50, AskPrice: 2.0, Cash: 100},
			{Name: "plant", Good: "KILOWATT", Output: 80, AskPrice: 1.0, Cash: 100},
		},
		Consumers: []ConsumerConfig{
			{Name: "household-1", Income: 10, Cash: 200,
				Preferences: map[string]float64{"WHEAT": 0.6, "KILOWATT": 0.4}},
			{Name: "household-2", Income: 15, Cash: 300,
				Preferences: map[string]float64{"WHEAT": 0.5, "KILOWATT": 0.5}},
		},
	}
	cfg.applyDefaults()
	return cfg
}
