/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: config.go
Description: Configuration for protodec. Settings load from an optional TOML/YAML/JSON
file through viper, are overridden by PROTODEC_* environment variables and bound
command-line flags, and are checked with validator struct tags.
*/

package config

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"github.com/kleascm/protodec/pkg/logging"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. PROTODEC_SCAN_MIN_SIZE.
const EnvPrefix = "PROTODEC"

// ErrInvalid is returned when a loaded configuration fails validation.
var ErrInvalid = errors.New("config: invalid configuration")

// Config is the complete protodec configuration
type Config struct {
	Log       logging.LoggerConfig `mapstructure:"log" toml:"log"`
	Scan      ScanConfig           `mapstructure:"scan" toml:"scan"`
	Inference InferenceConfig      `mapstructure:"inference" toml:"inference"`
	Capture   CaptureConfig        `mapstructure:"capture" toml:"capture"`
	Store     StoreConfig          `mapstructure:"store" toml:"store"`
	Server    ServerConfig         `mapstructure:"server" toml:"server"`
	Telemetry TelemetryConfig      `mapstructure:"telemetry" toml:"telemetry"`
	Engine    EngineConfig         `mapstructure:"engine" toml:"engine"`
}

// ScanConfig controls embedded-message search.
type ScanConfig struct {
	MinSize int  `mapstructure:"min_size" toml:"min_size" validate:"gte=0"`
	Shards  int  `mapstructure:"shards" toml:"shards" validate:"gte=0,lte=1024"`
	All     bool `mapstructure:"all" toml:"all"`
}

// InferenceConfig controls schema recovery.
type InferenceConfig struct {
	Package string `mapstructure:"package" toml:"package" validate:"required"`
	Mode    string `mapstructure:"mode" toml:"mode" validate:"oneof=auto structural descriptor"`
}

// CaptureConfig lists capture sources.
type CaptureConfig struct {
	Sources     []string      `mapstructure:"sources" toml:"sources" validate:"dive,required"`
	Format      string        `mapstructure:"format" toml:"format" validate:"oneof=bin hex base64 json"`
	Timeout     time.Duration `mapstructure:"timeout" toml:"timeout" validate:"gt=0"`
	Credentials string        `mapstructure:"credentials" toml:"credentials"`
	MaxSize     int64         `mapstructure:"max_size" toml:"max_size" validate:"gt=0"`
}

// StoreConfig configures the result cache. It is disabled when Path is empty and InMemory is false.
type StoreConfig struct {
	Path     string        `mapstructure:"path" toml:"path"`
	InMemory bool          `mapstructure:"in_memory" toml:"in_memory"`
	TTL      time.Duration `mapstructure:"ttl" toml:"ttl" validate:"gte=0"`
}

// Enabled reports whether a store should be opened.
func (s StoreConfig) Enabled() bool { return s.Path != "" || s.InMemory }

type ServerConfig struct {
	Addr    string `mapstructure:"addr" toml:"addr" validate:"required,hostname_port"`
	Metrics bool   `mapstructure:"metrics" toml:"metrics"`
	// MaxBody caps decoded request payloads in bytes.
	MaxBody int64 `mapstructure:"max_body" toml:"max_body" validate:"gt=0"`
}

type TelemetryConfig struct {
	Exporter    string `mapstructure:"exporter" toml:"exporter" validate:"oneof=none stdout"`
	ServiceName string `mapstructure:"service_name" toml:"service_name" validate:"required"`
}

type EngineConfig struct {
	Workers    int    `mapstructure:"workers" toml:"workers" validate:"gte=1,lte=256"`
	Mode       string `mapstructure:"mode" toml:"mode" validate:"oneof=decode scan scan-all"`
	CorpusSize int    `mapstructure:"corpus_size" toml:"corpus_size" validate:"gte=1"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Log: *logging.DefaultLoggerConfig(),
		Scan: ScanConfig{
			MinSize: 1,
		},
		Inference: InferenceConfig{
			Package: "ProtodecMessages",
			Mode:    "auto",
		},
		Capture: CaptureConfig{
			Sources: []string{},
			Format:  "bin",
			Timeout: 30 * time.Second,
			MaxSize: 64 << 20,
		},
		Server: ServerConfig{
			Addr:    "127.0.0.1:8088",
			Metrics: true,
			MaxBody: 16 << 20,
		},
		Telemetry: TelemetryConfig{
			Exporter:    "none",
			ServiceName: "protodec",
		},
		Engine: EngineConfig{
			Workers:    4,
			Mode:       "decode",
			CorpusSize: 10000,
		},
	}
}

// setDefaults registers every key so environment overrides resolve.
func setDefaults(v *viper.Viper, c *Config) {
	v.SetDefault("log.level", string(c.Log.Level))
	v.SetDefault("log.format", string(c.Log.Format))
	v.SetDefault("log.output_dir", c.Log.OutputDir)
	v.SetDefault("log.max_files", c.Log.MaxFiles)
	v.SetDefault("log.timestamp", c.Log.Timestamp)
	v.SetDefault("log.caller", c.Log.Caller)
	v.SetDefault("log.colors", c.Log.Colors)

	v.SetDefault("scan.min_size", c.Scan.MinSize)
	v.SetDefault("scan.shards", c.Scan.Shards)
	v.SetDefault("scan.all", c.Scan.All)

	v.SetDefault("inference.package", c.Inference.Package)
	v.SetDefault("inference.mode", c.Inference.Mode)

	v.SetDefault("capture.sources", c.Capture.Sources)
	v.SetDefault("capture.format", c.Capture.Format)
	v.SetDefault("capture.timeout", c.Capture.Timeout)
	v.SetDefault("capture.credentials", c.Capture.Credentials)
	v.SetDefault("capture.max_size", c.Capture.MaxSize)

	v.SetDefault("store.path", c.Store.Path)
	v.SetDefault("store.in_memory", c.Store.InMemory)
	v.SetDefault("store.ttl", c.Store.TTL)

	v.SetDefault("server.addr", c.Server.Addr)
	v.SetDefault("server.metrics", c.Server.Metrics)
	v.SetDefault("server.max_body", c.Server.MaxBody)

	v.SetDefault("telemetry.exporter", c.Telemetry.Exporter)
	v.SetDefault("telemetry.service_name", c.Telemetry.ServiceName)

	v.SetDefault("engine.workers", c.Engine.Workers)
	v.SetDefault("engine.mode", c.Engine.Mode)
	v.SetDefault("engine.corpus_size", c.Engine.CorpusSize)
}

// Load reads configuration into a Config. path may be empty. v carries any
// flags already bound by the caller; nil uses a fresh viper instance.
func Load(v *viper.Viper, path string) (*Config, error) {
	if v == nil {
		v = viper.New()
	}
	setDefaults(v, Default())

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var validate = validator.New()

// Validate checks every section. Failures wrap ErrInvalid.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if err := c.Log.Validate(); err != nil {
		return fmt.Errorf("%w: log: %v", ErrInvalid, err)
	}
	return nil
}

const templateHeader = `# protodec configuration
#
# Every key can be overridden from the environment as PROTODEC_<SECTION>_<KEY>,
# for example PROTODEC_SCAN_MIN_SIZE=16 or PROTODEC_INFERENCE_MODE=structural.
#
# capture.sources accepts file paths, directories, http(s):// URLs, gs://bucket/prefix,
# html:<path>, html+https://... and browser+https://... entries.

`

// WriteTemplate writes the default configuration as a commented TOML file.
func WriteTemplate(w io.Writer) error {
	if _, err := io.WriteString(w, templateHeader); err != nil {
		return err
	}
	return toml.NewEncoder(w).Encode(Default())
}
