package app

import (
	stderrors "errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/agentstation/metalayer/pkg/analytics"
	"github.com/agentstation/metalayer/pkg/canonicalize"
	"github.com/agentstation/metalayer/pkg/constants"
	"github.com/agentstation/metalayer/pkg/errors"
	"github.com/agentstation/metalayer/pkg/metadata"
	"github.com/agentstation/metalayer/pkg/mirror"
)

// Config holds the application configuration loaded from config files,
// environment variables and .env files.
type Config struct {
	// Global flags
	Verbose bool
	Quiet   bool
	NoColor bool
	Format  string

	// Config file
	ConfigFile string

	// Catalog
	StorePath  string
	Policy     string
	DataSource string
	Collection string
	Libraries  []string

	// Collaborators
	Analytics     []analytics.ProviderConfig
	Canonicalizer canonicalize.Config
	MinIO         mirror.MinIOConfig
	FetchTimeout  time.Duration
	UserAgent     string
	TablesFile    string

	// Logging configuration
	LogLevel  string
	LogFormat string
	LogOutput string
}

// Defaults.
const (
	DefaultStorePath = "metalayer-catalog.yaml"
	DefaultGemini    = "gemini-2.0-flash"
)

// LoadConfig loads configuration in order of precedence:
// 1. Command-line flags (handled by cobra)
// 2. Environment variables
// 3. .env files
// 4. Config file (.metalayer.yaml in the working or home directory)
// 5. Defaults
func LoadConfig() (*Config, error) {
	return loadConfig(viper.New(), os.Getenv("METALAYER_CONFIG"))
}

func loadConfig(v *viper.Viper, configFile string) (*Config, error) {
	loadEnvFiles()

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	setDefaults(v)
	bindSecrets(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.SetConfigType("yaml")
		v.SetConfigName(".metalayer")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !stderrors.As(err, &notFound) {
			return nil, errors.NewConfigError("config", "cannot read config file", err)
		}
	}

	config := &Config{
		Verbose: v.GetBool("verbose"),
		Quiet:   v.GetBool("quiet"),
		NoColor: v.GetBool("no-color"),
		Format:  v.GetString("format"),

		ConfigFile: v.ConfigFileUsed(),

		StorePath:  v.GetString("store_path"),
		Policy:     v.GetString("policy"),
		DataSource: v.GetString("data_source"),
		Collection: v.GetString("collection"),
		Libraries:  v.GetStringSlice("libraries"),

		FetchTimeout: v.GetDuration("fetch.timeout"),
		UserAgent:    v.GetString("fetch.user_agent"),
		TablesFile:   v.GetString("tables_file"),

		LogLevel:  v.GetString("log_level"),
		LogFormat: v.GetString("log_format"),
		LogOutput: v.GetString("log_output"),
	}
	if err := v.UnmarshalKey("analytics", &config.Analytics); err != nil {
		return nil, errors.NewConfigError("analytics", "cannot decode providers", err)
	}
	if err := v.UnmarshalKey("canonicalizer", &config.Canonicalizer); err != nil {
		return nil, errors.NewConfigError("canonicalizer", "cannot decode settings", err)
	}
	if err := v.UnmarshalKey("minio", &config.MinIO); err != nil {
		return nil, errors.NewConfigError("minio", "cannot decode settings", err)
	}
	applyFallbacks(v, config)

	return config, config.Validate()
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("store_path", DefaultStorePath)
	v.SetDefault("policy", metadata.PolicyAppendOnly)
	v.SetDefault("data_source", constants.DataSourceLibraryStaff)
	v.SetDefault("fetch.timeout", constants.DefaultHTTPTimeout)
	v.SetDefault("log_format", "auto")
	v.SetDefault("log_output", "stderr")
}

// applyFallbacks fills settings that nested config sections leave empty
// from flat environment variables and defaults.
func applyFallbacks(v *viper.Viper, config *Config) {
	fallback := func(field *string, value string) {
		if *field == "" {
			*field = value
		}
	}
	fallback(&config.Canonicalizer.Kind, v.GetString("CANONICALIZER_KIND"))
	fallback(&config.Canonicalizer.Kind, canonicalize.KindHeuristic)
	fallback(&config.Canonicalizer.Model, DefaultGemini)
	fallback(&config.Canonicalizer.APIKey, v.GetString("GEMINI_API_KEY"))
	fallback(&config.MinIO.Endpoint, v.GetString("MINIO_ENDPOINT"))
	fallback(&config.MinIO.Bucket, v.GetString("MINIO_BUCKET"))
	fallback(&config.MinIO.AccessKey, v.GetString("MINIO_ACCESS_KEY"))
	fallback(&config.MinIO.SecretKey, v.GetString("MINIO_SECRET_KEY"))
}

// Validate reports settings that cannot work together.
func (c *Config) Validate() error {
	if _, err := metadata.PolicyByName(c.Policy); err != nil {
		return err
	}
	if c.DataSource == "" {
		return errors.NewConfigError("config", "data_source must not be empty", nil)
	}
	if c.Canonicalizer.Kind == canonicalize.KindGemini && c.Canonicalizer.APIKey == "" {
		return errors.NewConfigError("canonicalizer", "the gemini canonicalizer needs GEMINI_API_KEY", nil)
	}
	return nil
}

// UpdateFromFlags applies parsed command flags, which take precedence
// over config files and the environment.
func (c *Config) UpdateFromFlags(verbose, quiet, noColor bool, format, logLevel string) {
	c.Verbose = verbose
	c.Quiet = quiet
	c.NoColor = noColor
	if format != "" {
		c.Format = format
	}
	if logLevel != "" {
		c.LogLevel = logLevel
	}
}

// MirrorEnabled reports whether a mirror bucket is configured.
func (c *Config) MirrorEnabled() bool {
	return c.MinIO.Endpoint != ""
}

// loadEnvFiles loads environment variables from .env files.
// .env.local overrides .env.
func loadEnvFiles() {
	for _, envFile := range []string{".env.local", ".env"} {
		_ = godotenv.Load(envFile)
	}
}

// bindSecrets binds the flat variables that usually come from .env files.
func bindSecrets(v *viper.Viper) {
	for _, key := range []string{
		"CANONICALIZER_KIND",
		"GEMINI_API_KEY",
		"MINIO_ENDPOINT",
		"MINIO_BUCKET",
		"MINIO_ACCESS_KEY",
		"MINIO_SECRET_KEY",
	} {
		if err := v.BindEnv(key); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to bind environment variable %s: %v\n", key, err)
		}
	}
}
