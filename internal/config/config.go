package config

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/efebarandurmaz/cppig/internal/depgraph"
	"github.com/efebarandurmaz/cppig/internal/observability"
	"github.com/efebarandurmaz/cppig/internal/traverse"
)

// Config holds all application configuration.
type Config struct {
	Graph    GraphConfig    `mapstructure:"graph"`
	Limits   LimitsConfig   `mapstructure:"limits"`
	Neo4j    Neo4jConfig    `mapstructure:"neo4j"`
	Tracing  TracingConfig  `mapstructure:"tracing"`
	Temporal TemporalConfig `mapstructure:"temporal"`
	Worker   WorkerConfig   `mapstructure:"worker"`
	Log      LogConfig      `mapstructure:"log"`
}

type GraphConfig struct {
	Name         string   `mapstructure:"name"`
	Format       string   `mapstructure:"format"`
	Silent       bool     `mapstructure:"silent"`
	IncludePaths []string `mapstructure:"include_paths"`
}

// LimitsConfig bounds memory use. Arena sizes accept humanized byte counts
// such as "20MiB" or "512KB".
type LimitsConfig struct {
	MaxQueue   int    `mapstructure:"max_queue"`
	MaxVisited int    `mapstructure:"max_visited"`
	FileArena  string `mapstructure:"file_arena"`
	GraphArena string `mapstructure:"graph_arena"`
}

// Traverse converts the limits to the engine's representation.
func (l LimitsConfig) Traverse() (traverse.Limits, error) {
	fileArena, err := parseSize("limits.file_arena", l.FileArena)
	if err != nil {
		return traverse.Limits{}, err
	}
	graphArena, err := parseSize("limits.graph_arena", l.GraphArena)
	if err != nil {
		return traverse.Limits{}, err
	}
	return traverse.Limits{
		MaxQueue:   l.MaxQueue,
		MaxVisited: l.MaxVisited,
		FileArena:  fileArena,
		GraphArena: graphArena,
	}, nil
}

// Neo4jConfig enables storing edges in Neo4j when URI is set.
type Neo4jConfig struct {
	URI      string `mapstructure:"uri"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
}

type TracingConfig struct {
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	SampleRate   float64 `mapstructure:"sample_rate"`
	Environment  string  `mapstructure:"environment"`
}

type TemporalConfig struct {
	Host      string `mapstructure:"host"`
	Namespace string `mapstructure:"namespace"`
	TaskQueue string `mapstructure:"task_queue"`
}

// WorkerConfig applies to cmd/worker only. An empty HealthAddr disables the
// health endpoints.
type WorkerConfig struct {
	HealthAddr      string        `mapstructure:"health_addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Observability converts to the logger configuration.
func (l LogConfig) Observability() observability.LogConfig {
	return observability.LogConfig{Level: l.Level, Format: l.Format}
}

var defaults = map[string]any{
	"graph.name":              "include_graph",
	"graph.format":            string(depgraph.FormatDOT),
	"graph.silent":            false,
	"graph.include_paths":     []string{},
	"limits.max_queue":        4096,
	"limits.max_visited":      4096,
	"limits.file_arena":       "20MiB",
	"limits.graph_arena":      "20MiB",
	"neo4j.uri":               "",
	"neo4j.username":          "neo4j",
	"neo4j.password":          "",
	"neo4j.database":          "",
	"tracing.otlp_endpoint":   "",
	"tracing.sample_rate":     1.0,
	"tracing.environment":     "development",
	"temporal.host":           "localhost:7233",
	"temporal.namespace":      "default",
	"temporal.task_queue":     "cppig",
	"worker.health_addr":      ":8080",
	"worker.shutdown_timeout": "30s",
	"log.level":               "info",
	"log.format":              "text",
}

// FlagKeys maps configuration keys to the CLI flags that override them.
var FlagKeys = map[string]string{
	"graph.name":          "name",
	"graph.format":        "format",
	"graph.silent":        "silent",
	"graph.include_paths": "include-path",
	"limits.max_queue":    "max-queue",
	"limits.max_visited":  "max-visited",
	"limits.file_arena":   "file-arena",
	"limits.graph_arena":  "graph-arena",
	"log.level":           "log-level",
	"log.format":          "log-format",
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	cfg, err := Load("", nil)
	if err != nil {
		panic(fmt.Sprintf("default config: %v", err))
	}
	return cfg
}

// Load reads configuration from defaults, an optional file, the environment
// (CPPIG_ prefix) and flags, in increasing order of precedence. Flags not
// present in flags are ignored.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix("CPPIG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	if flags != nil {
		for key, name := range FlagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("binding flag --%s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration and reports every problem found.
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Graph.Name) == "" {
		errs = append(errs, errors.New("graph.name must not be empty"))
	}
	if _, err := depgraph.ParseFormat(c.Graph.Format); err != nil {
		errs = append(errs, fmt.Errorf("graph.format: %w", err))
	}
	if c.Limits.MaxQueue <= 0 {
		errs = append(errs, fmt.Errorf("limits.max_queue %d must be positive", c.Limits.MaxQueue))
	}
	if c.Limits.MaxVisited <= 0 {
		errs = append(errs, fmt.Errorf("limits.max_visited %d must be positive", c.Limits.MaxVisited))
	}
	if _, err := c.Limits.Traverse(); err != nil {
		errs = append(errs, err)
	}
	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		errs = append(errs, fmt.Errorf("tracing.sample_rate %.2f is outside [0, 1]", c.Tracing.SampleRate))
	}
	if c.Neo4j.URI != "" && c.Neo4j.Username == "" {
		errs = append(errs, errors.New("neo4j.username is required when neo4j.uri is set"))
	}
	if c.Worker.ShutdownTimeout < 0 {
		errs = append(errs, fmt.Errorf("worker.shutdown_timeout %s must not be negative", c.Worker.ShutdownTimeout))
	}
	if _, err := observability.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format %q must be text or json", c.Log.Format))
	}

	return errors.Join(errs...)
}

func parseSize(key, s string) (int, error) {
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if n == 0 {
		return 0, fmt.Errorf("%s must be positive", key)
	}
	if n > math.MaxInt32 {
		return 0, fmt.Errorf("%s %s exceeds %s", key, s, humanize.IBytes(math.MaxInt32))
	}
	return int(n), nil
}
