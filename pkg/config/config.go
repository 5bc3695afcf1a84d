package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// DefaultEndpoint is the public guifi.net CNML service.
const DefaultEndpoint = "http://guifi.net/en/guifi/cnml"

// Files are the optional config files read by Load, lowest priority first.
var Files = []string{"meshchurn.toml", "meshchurn.yaml"}

// Config holds all configuration for the application
type Config struct {
	// Topology
	Source   string `koanf:"source" validate:"oneof=cnml file"`
	Area     string `koanf:"area" validate:"required_if=Source cnml"`
	Endpoint string `koanf:"endpoint" validate:"omitempty,url"`
	Input    string `koanf:"input" validate:"required_if=Source file"`
	Timeout  int    `koanf:"timeout" validate:"min=1"` // seconds

	// Simulation
	Duration     float64 `koanf:"duration" validate:"gt=0"`
	Wait         string  `koanf:"wait" validate:"required"`
	Off          string  `koanf:"off" validate:"required"`
	Quality      string  `koanf:"quality"`
	Simultaneous bool    `koanf:"simultaneous"`
	Seed         uint64  `koanf:"seed"`
	Verify       bool    `koanf:"verify"`
	Hops         bool    `koanf:"hops"`

	// Output
	Output string `koanf:"output"`
	Format string `koanf:"format" validate:"oneof=graphml dot json yaml"`

	// Serving
	WebMode bool `koanf:"web"`
	Port    int  `koanf:"port" validate:"min=1,max=65535"`
	Watch   bool `koanf:"watch"`

	// Logging
	Verbosity  string `koanf:"verbosity"`
	VerboseCnt int    `koanf:"verbose"`
	LogFormat  string `koanf:"logformat" validate:"oneof=compact json"`
}

// Defaults returns the configuration used when nothing else is set.
func Defaults() map[string]interface{} {
	return map[string]interface{}{
		"source":       "cnml",
		"area":         "",
		"endpoint":     DefaultEndpoint,
		"input":        "",
		"timeout":      60,
		"duration":     3600.0,
		"wait":         "exp:60",
		"off":          "exp:30",
		"quality":      "",
		"simultaneous": false,
		"seed":         uint64(0),
		"verify":       false,
		"hops":         false,
		"output":       "",
		"format":       "graphml",
		"web":          false,
		"port":         8080,
		"watch":        false,
		"verbosity":    "",
		"verbose":      0,
		"logformat":    "compact",
	}
}

// Load loads configuration from defaults, config files, environment variables, and flags.
// Priority: Flags > Env > YAML file > TOML file > Defaults
func Load(f *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(makeMapProvider(Defaults()), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config files (optional) - meshchurn.toml, then meshchurn.yaml
	// We ignore errors here as the files might not exist
	_ = k.Load(file.Provider(Files[0]), toml.Parser())
	_ = k.Load(file.Provider(Files[1]), yaml.Parser())

	// 3. Environment Variables
	// Prefix: MESHCHURN_ (e.g., MESHCHURN_PORT=9090)
	if err := k.Load(env.Provider("MESHCHURN_", ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(
			strings.TrimPrefix(s, "MESHCHURN_")), "_", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags
	if f != nil {
		if err := k.Load(posflag.Provider(f, ".", k), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	// Unmarshal into struct
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints and reports every violation at once.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("invalid config: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s: failed %q (value %v)", strings.ToLower(fe.Field()), fe.Tag(), fe.Value()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

// Helper to use map as a provider
type mapProvider struct {
	m map[string]interface{}
}

func makeMapProvider(m map[string]interface{}) *mapProvider {
	return &mapProvider{m: m}
}

func (p *mapProvider) Read() (map[string]interface{}, error) {
	return p.m, nil
}

func (p *mapProvider) ReadBytes() ([]byte, error) {
	return nil, fmt.Errorf("not implemented")
}
