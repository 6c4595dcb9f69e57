package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/sourcli/ssm/internal/errors"
	"github.com/sourcli/ssm/internal/format"
	"github.com/sourcli/ssm/internal/rank"
)

const (
	// EnvPrefix prefixes every environment override, e.g. SSM_INTERVAL=2s.
	EnvPrefix = "SSM"
	// GlobalConfigDir is the directory for the user config, relative to $HOME.
	GlobalConfigDir = ".config/ssm"
	// GlobalConfigFile is the user config file name.
	GlobalConfigFile = "config.yaml"
)

// Renderer names.
const (
	RendererTea  = "tea"
	RendererANSI = "ansi"
)

// Config carries runtime options for ssm.
type Config struct {
	Interval        time.Duration     `mapstructure:"interval" yaml:"interval"`
	TopK            int               `mapstructure:"top_k" yaml:"top_k"`
	BarWidth        int               `mapstructure:"bar_width" yaml:"bar_width"`
	Thresholds      format.Thresholds `mapstructure:"thresholds" yaml:"thresholds"`
	Mounts          []string          `mapstructure:"mounts" yaml:"mounts"`
	Interfaces      []string          `mapstructure:"interfaces" yaml:"interfaces"`
	IncludeLoopback bool              `mapstructure:"include_loopback" yaml:"include_loopback"`
	SortBy          string            `mapstructure:"sort_by" yaml:"sort_by"`
	Filter          string            `mapstructure:"filter" yaml:"filter"`
	SampleTimeout   time.Duration     `mapstructure:"sample_timeout" yaml:"sample_timeout"`
	Renderer        string            `mapstructure:"renderer" yaml:"renderer"`
	LogFile         string            `mapstructure:"log_file" yaml:"log_file"`
	NoColor         bool              `mapstructure:"no_color" yaml:"no_color"`
}

func Default() Config {
	return Config{
		Interval:   time.Second,
		TopK:       10,
		BarWidth:   28,
		Thresholds: format.DefaultThresholds,
		Mounts:     []string{"/"},
		Interfaces: []string{},
		SortBy:     string(rank.ByCPU),
		Renderer:   RendererTea,
	}
}

// FlagKeys maps command-line flag names to config keys.
var FlagKeys = map[string]string{
	"interval":       "interval",
	"top":            "top_k",
	"bar-width":      "bar_width",
	"warn":           "thresholds.warning",
	"crit":           "thresholds.critical",
	"mount":          "mounts",
	"iface":          "interfaces",
	"loopback":       "include_loopback",
	"sort":           "sort_by",
	"filter":         "filter",
	"sample-timeout": "sample_timeout",
	"renderer":       "renderer",
	"log-file":       "log_file",
	"no-color":       "no_color",
}

// Load merges defaults, the config file, SSM_* environment variables and
// flags, in increasing priority. An empty path falls back to
// ~/.config/ssm/config.yaml when it exists. flags may be nil.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		path = globalPath()
	} else if _, err := os.Stat(path); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Config file not found: "+path,
			"Check the path passed to --config")
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.WrapWithCode(err, errors.ErrConfig,
				"Failed to read config file",
				"Check that "+path+" is valid YAML")
		}
	}

	if flags != nil {
		for name, key := range FlagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, errors.WrapWithCode(err, errors.ErrConfig, "Failed to bind flag --"+name, "")
				}
			}
		}
	}

	for _, key := range []string{"interval", "sample_timeout"} {
		if err := normalizeSeconds(v, key); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Invalid config format",
			"Durations look like 500ms, 2s or 1m; a bare number means seconds")
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("interval", d.Interval.String())
	v.SetDefault("top_k", d.TopK)
	v.SetDefault("bar_width", d.BarWidth)
	v.SetDefault("thresholds.warning", d.Thresholds.Warning)
	v.SetDefault("thresholds.critical", d.Thresholds.Critical)
	v.SetDefault("mounts", d.Mounts)
	v.SetDefault("interfaces", d.Interfaces)
	v.SetDefault("include_loopback", d.IncludeLoopback)
	v.SetDefault("sort_by", d.SortBy)
	v.SetDefault("filter", d.Filter)
	v.SetDefault("sample_timeout", "0s")
	v.SetDefault("renderer", d.Renderer)
	v.SetDefault("log_file", d.LogFile)
	v.SetDefault("no_color", d.NoColor)
}

// normalizeSeconds rewrites a bare number ("2", 2, 0.5) under key as seconds.
func normalizeSeconds(v *viper.Viper, key string) error {
	var secs float64
	switch raw := v.Get(key).(type) {
	case int:
		secs = float64(raw)
	case int64:
		secs = float64(raw)
	case float64:
		secs = raw
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			// not a bare number, leave it to the duration decoder
			return nil
		}
		secs = n
	default:
		return nil
	}
	v.Set(key, time.Duration(secs*float64(time.Second)).String())
	return nil
}

func globalPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	p := filepath.Join(home, GlobalConfigDir, GlobalConfigFile)
	if _, err := os.Stat(p); err != nil {
		return ""
	}
	return p
}

// Validate checks the config and returns a CONFIG error describing the first problem.
func (c *Config) Validate() error {
	if c.Interval <= 0 {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Refresh interval must be positive, got %s", c.Interval),
			"Use something like --interval 1s")
	}
	if c.TopK < 1 {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Process count must be at least 1, got %d", c.TopK),
			"Use --top 10 or similar")
	}
	if c.BarWidth < 1 {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Bar width must be at least 1, got %d", c.BarWidth),
			"Use --bar-width 28 or similar")
	}
	t := c.Thresholds
	if t.Warning < 0 || t.Warning > 100 || t.Critical < 0 || t.Critical > 100 {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Thresholds must be between 0 and 100, got warning=%g critical=%g", t.Warning, t.Critical),
			"Set thresholds.warning and thresholds.critical as percentages")
	}
	if t.Warning > t.Critical {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Warning threshold %g is above critical threshold %g", t.Warning, t.Critical),
			"Swap the values so warning <= critical")
	}
	if _, err := rank.ParseSortKey(c.SortBy); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, "Invalid sort column", "Use --sort cpu or --sort mem")
	}
	if _, err := c.FilterRegexp(); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("Invalid process filter %q", c.Filter),
			"The filter is a Go regular expression, e.g. 'postgres|redis'")
	}
	if c.SampleTimeout < 0 {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Sample timeout cannot be negative, got %s", c.SampleTimeout),
			"Use 0 to wait for every sample")
	}
	switch c.Renderer {
	case RendererTea, RendererANSI:
	default:
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Unknown renderer %q", c.Renderer),
			"Use --renderer tea or --renderer ansi")
	}
	return nil
}

// FilterRegexp compiles Filter, returning nil when it is empty.
func (c *Config) FilterRegexp() (*regexp.Regexp, error) {
	if c.Filter == "" {
		return nil, nil
	}
	return regexp.Compile(c.Filter)
}

// RankOptions builds process ranking options. Call after Validate.
func (c *Config) RankOptions() rank.Options {
	by, _ := rank.ParseSortKey(c.SortBy)
	re, _ := c.FilterRegexp()
	return rank.Options{By: by, Filter: re}
}

// YAML renders the effective config.
func (c *Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}
