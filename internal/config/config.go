package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	apperrors "minimvc/internal/errors"
)

const (
	// EnvPrefix namespaces every environment override, e.g. MVC_SERVER_PORT.
	EnvPrefix = "MVC"
	// LocationEnv names the bootstrap resource when no path is given.
	LocationEnv = "MVC_CONFIG_LOCATION"
)

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Framework FrameworkConfig `yaml:"framework" envconfig:"FRAMEWORK"`
	Security  SecurityConfig  `yaml:"security" envconfig:"SECURITY"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`

	// Issues holds the configuration errors Load tolerated outside strict
	// mode. Startup records them in its report.
	Issues []error `yaml:"-" ignored:"true"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `yaml:"readTimeout" envconfig:"READ_TIMEOUT" validate:"gt=0"`
	WriteTimeout    time.Duration `yaml:"writeTimeout" envconfig:"WRITE_TIMEOUT" validate:"gt=0"`
	IdleTimeout     time.Duration `yaml:"idleTimeout" envconfig:"IDLE_TIMEOUT"`
	MaxHeaderBytes  int           `yaml:"maxHeaderBytes" envconfig:"MAX_HEADER_BYTES" validate:"gte=0"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" envconfig:"SHUTDOWN_TIMEOUT" validate:"gt=0"`
	// AdminPrefix mounts the introspection endpoints; empty disables them.
	AdminPrefix string `yaml:"adminPrefix" envconfig:"ADMIN_PREFIX"`
}

// FrameworkConfig drives scanning, registration and dispatch
type FrameworkConfig struct {
	ScanPackage   string `yaml:"scanPackage" envconfig:"SCAN_PACKAGE" validate:"required_if=Strict true"`
	ContextPath   string `yaml:"contextPath" envconfig:"CONTEXT_PATH"`
	Strict        bool   `yaml:"strict" envconfig:"STRICT"`
	ParamBinding  string `yaml:"paramBinding" envconfig:"PARAM_BINDING" validate:"oneof=legacy named"`
	NumericParams bool   `yaml:"numericParams" envconfig:"NUMERIC_PARAMS"`
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	RateLimit RateLimitConfig `yaml:"rateLimit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED"`
	RPS     float64 `yaml:"rps" envconfig:"RPS" validate:"gte=0"`
	Burst   int     `yaml:"burst" envconfig:"BURST" validate:"gte=0"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn warning error"`
	Format   string `yaml:"format" envconfig:"FORMAT" validate:"oneof=json text"`
	Output   string `yaml:"output" envconfig:"OUTPUT" validate:"oneof=console file both"`
	FilePath string `yaml:"filePath" envconfig:"FILE_PATH"`
}

// TelemetryConfig contains OpenTelemetry configuration
type TelemetryConfig struct {
	ServiceName    string  `yaml:"serviceName" envconfig:"SERVICE_NAME" validate:"required"`
	Environment    string  `yaml:"environment" envconfig:"ENVIRONMENT"`
	TraceExporter  string  `yaml:"traceExporter" envconfig:"TRACE_EXPORTER" validate:"oneof=stdout none"`
	MetricExporter string  `yaml:"metricExporter" envconfig:"METRIC_EXPORTER" validate:"oneof=prometheus none"`
	SampleRatio    float64 `yaml:"sampleRatio" envconfig:"SAMPLE_RATIO" validate:"gte=0,lte=1"`
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			MaxHeaderBytes:  1 << 20, // 1MB
			ShutdownTimeout: 30 * time.Second,
			AdminPrefix:     "/_mvc",
		},
		Framework: FrameworkConfig{
			ParamBinding: "legacy",
		},
		Security: SecurityConfig{
			RateLimit: RateLimitConfig{
				Enabled: false,
				RPS:     100,
				Burst:   50,
			},
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "console",
			FilePath: "logs/minimvc.log",
		},
		Telemetry: TelemetryConfig{
			ServiceName:    "minimvc",
			Environment:    "development",
			TraceExporter:  "none",
			MetricExporter: "prometheus",
			SampleRatio:    1.0,
		},
	}
}

// Load builds the configuration from defaults, then the YAML resource at
// location, then MVC_* environment variables. An empty location falls back
// to MVC_CONFIG_LOCATION and then to the well-known locations.
//
// A named resource that cannot be loaded is an error in strict mode, as
// decided by the defaults and the environment. Otherwise it is kept in
// Issues and the file is skipped.
func Load(location string) (*Config, error) {
	cfg := Default()

	explicit := true
	if location == "" {
		location = os.Getenv(LocationEnv)
	}
	if location == "" {
		explicit = false
		location = findConfigFile()
	}

	var resourceErr error
	if location != "" {
		if err := cfg.mergeFile(location); err != nil {
			if explicit || !errors.Is(err, os.ErrNotExist) {
				resourceErr = apperrors.NewConfigurationError(location, "cannot load bootstrap resource", err)
			}
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, apperrors.NewConfigurationError(EnvPrefix+"_*", "invalid environment override", err)
	}

	if resourceErr != nil {
		if cfg.Framework.Strict {
			return nil, resourceErr
		}
		cfg.Issues = append(cfg.Issues, resourceErr)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// mergeFile overlays the YAML resource onto cfg. Keys absent from the file
// keep their current value; a file that fails to parse changes nothing.
func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	next := *c
	if err := yaml.Unmarshal(data, &next); err != nil {
		return fmt.Errorf("parse yaml: %w", err)
	}
	*c = next
	return nil
}

// Validate checks every section
func (c *Config) Validate() error {
	c.Framework.ScanPackage = strings.TrimSpace(c.Framework.ScanPackage)
	c.Framework.ParamBinding = strings.ToLower(strings.TrimSpace(c.Framework.ParamBinding))
	c.Logging.Level = strings.ToLower(c.Logging.Level)

	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return apperrors.NewConfigurationError(verrs[0].Namespace(), formatValidationError(verrs[0]), nil)
		}
		return apperrors.NewConfigurationError("config", "validation failed", err)
	}

	if c.Logging.Output != "console" && c.Logging.FilePath == "" {
		return apperrors.NewConfigurationError("Config.Logging.FilePath", "file output requires a file path", nil)
	}
	if c.Framework.ContextPath != "" && !strings.HasPrefix(c.Framework.ContextPath, "/") {
		c.Framework.ContextPath = "/" + c.Framework.ContextPath
	}
	c.Framework.ContextPath = strings.TrimSuffix(c.Framework.ContextPath, "/")
	return nil
}

var validate = validator.New()

// formatValidationError formats validation error messages
func formatValidationError(err validator.FieldError) string {
	field := err.Field()
	param := err.Param()

	switch err.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "required_if":
		return fmt.Sprintf("%s is required in strict mode", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, param)
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, param)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(param, " ", ", "))
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, param)
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", field, param)
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, param)
	default:
		return fmt.Sprintf("%s failed %s validation", field, err.Tag())
	}
}

// findConfigFile returns the first well-known config location that exists
func findConfigFile() string {
	locations := []string{
		"config.yaml",
		"configs/config.yaml",
	}
	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}
	return ""
}
