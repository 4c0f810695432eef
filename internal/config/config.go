package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/RobotXiaoFeng/acado/internal/integrate"
	"github.com/RobotXiaoFeng/acado/internal/qp"
	"github.com/RobotXiaoFeng/acado/internal/sqp"
)

const (
	DefaultIntervals     = 20
	DefaultMaxIterations = 50
	DefaultKKTTolerance  = 1e-6
	DefaultIntegratorTol = 1e-8
)

type Config struct {
	Model         string           `yaml:"model"`
	Intervals     int              `yaml:"intervals"`
	MaxIterations int              `yaml:"max_iterations"`
	KKTTolerance  float64          `yaml:"kkt_tolerance"`
	IntegratorTol float64          `yaml:"integrator_tolerance"`
	QPMethod      string           `yaml:"qp_method"` // condensing or full
	Mode          string           `yaml:"mode"`      // batch or real_time
	Timeout       float64          `yaml:"timeout_seconds"`
	Levenberg     float64          `yaml:"levenberg"`
	LineSearch    LineSearchConfig `yaml:"line_search"`
	Output        OutputConfig     `yaml:"output"`
}

type LineSearchConfig struct {
	Armijo    float64 `yaml:"armijo"`
	Backtrack float64 `yaml:"backtrack"`
	MaxTrials int     `yaml:"max_trials"`
}

type OutputConfig struct {
	Dir  string `yaml:"dir"`
	Plot bool   `yaml:"plot"`
}

func DefaultConfig() *Config {
	return &Config{
		Model:         "rocket",
		Intervals:     DefaultIntervals,
		MaxIterations: DefaultMaxIterations,
		KKTTolerance:  DefaultKKTTolerance,
		IntegratorTol: DefaultIntegratorTol,
		QPMethod:      string(qp.KindCondensing),
		Mode:          "batch",
		Output:        OutputConfig{Dir: "runs"},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate rejects values the solver cannot make sense of.
func (c *Config) Validate() error {
	if c.Intervals < 1 {
		return fmt.Errorf("config: intervals must be at least 1, got %d", c.Intervals)
	}
	if c.QPMethod != string(qp.KindCondensing) && c.QPMethod != string(qp.KindFull) {
		return fmt.Errorf("config: unknown qp_method %q", c.QPMethod)
	}
	if c.Mode != "batch" && c.Mode != "real_time" {
		return fmt.Errorf("config: unknown mode %q", c.Mode)
	}
	return nil
}

// SolverOptions maps the file values onto engine options; unset fields
// keep the engine defaults.
func (c *Config) SolverOptions() sqp.Options {
	opts := sqp.DefaultOptions()
	opts.Intervals = c.Intervals
	if c.MaxIterations > 0 {
		opts.MaxIterations = c.MaxIterations
	}
	if c.KKTTolerance > 0 {
		opts.KKTTolerance = c.KKTTolerance
	}
	if c.IntegratorTol > 0 {
		icfg := integrate.DefaultConfig()
		icfg.Tolerance = c.IntegratorTol
		opts.Integrator = icfg
	}
	if c.QPMethod != "" {
		opts.QPKind = qp.Kind(c.QPMethod)
	}
	if c.Levenberg > 0 {
		opts.Levenberg = c.Levenberg
	}
	if c.LineSearch.Armijo > 0 {
		opts.Armijo = c.LineSearch.Armijo
	}
	if c.LineSearch.Backtrack > 0 {
		opts.Backtrack = c.LineSearch.Backtrack
	}
	if c.LineSearch.MaxTrials > 0 {
		opts.MaxLineTrials = c.LineSearch.MaxTrials
	}
	opts.RealTime = c.Mode == "real_time"
	return opts
}
