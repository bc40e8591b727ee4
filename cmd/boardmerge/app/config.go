package app

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/tobiasrohr/FInal-merger/internal/monday"
	"github.com/tobiasrohr/FInal-merger/pkg/constants"
	"github.com/tobiasrohr/FInal-merger/pkg/errors"
	"github.com/tobiasrohr/FInal-merger/pkg/retry"
)

// TokenEnv is the environment variable holding the API token.
const TokenEnv = "MONDAY_API_TOKEN"

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

	// API connection
	Monday monday.Config

	// Run defaults
	BatchSize  int
	SampleSize int

	// Logging configuration
	LogLevel  string
	LogFormat string
	LogOutput string
}

// LoadConfig loads configuration from all sources in order of precedence:
// 1. Command-line flags (handled by cobra)
// 2. Environment variables
// 3. .env files
// 4. Config file (~/.boardmerge.yaml or --config)
// 5. Defaults
func LoadConfig(configFile string) (*Config, error) {
	loadEnvFiles()

	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	setDefaults(v)
	if err := v.BindEnv("monday.token", TokenEnv); err != nil {
		return nil, errors.NewConfigError("config", "cannot bind "+TokenEnv, err)
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.NewConfigError("config", "cannot read config file "+configFile, err)
		}
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName(".boardmerge")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, errors.NewConfigError("config", "cannot read config file", err)
			}
		}
	}

	config := &Config{
		Verbose: v.GetBool("verbose"),
		Quiet:   v.GetBool("quiet"),
		NoColor: v.GetBool("no_color"),
		Format:  v.GetString("format"),

		ConfigFile: v.ConfigFileUsed(),

		Monday: monday.Config{
			Endpoint:          v.GetString("monday.endpoint"),
			Token:             strings.TrimSpace(v.GetString("monday.token")),
			APIVersion:        v.GetString("monday.api_version"),
			AuthScheme:        v.GetString("monday.auth_scheme"),
			RequestsPerMinute: v.GetInt("monday.requests_per_minute"),
			Timeout:           v.GetDuration("monday.timeout"),
			PageSize:          v.GetInt("monday.page_size"),
			Retry: retry.Policy{
				MaxAttempts: v.GetInt("retry.max_attempts"),
				BaseDelay:   v.GetDuration("retry.base_delay"),
				Cap:         v.GetDuration("retry.cap"),
			},
		},

		BatchSize:  v.GetInt("batch_size"),
		SampleSize: v.GetInt("sample_size"),

		LogLevel:  v.GetString("log_level"),
		LogFormat: v.GetString("log_format"),
		LogOutput: v.GetString("log_output"),
	}
	if err := config.Monday.Retry.Validate(); err != nil {
		return nil, errors.NewConfigError("config", "invalid retry policy", err)
	}
	return config, nil
}

func setDefaults(v *viper.Viper) {
	def := monday.DefaultConfig()
	v.SetDefault("monday.endpoint", def.Endpoint)
	v.SetDefault("monday.api_version", def.APIVersion)
	v.SetDefault("monday.auth_scheme", "raw")
	v.SetDefault("monday.requests_per_minute", def.RequestsPerMinute)
	v.SetDefault("monday.timeout", def.Timeout)
	v.SetDefault("monday.page_size", def.PageSize)
	v.SetDefault("retry.max_attempts", def.Retry.MaxAttempts)
	v.SetDefault("retry.base_delay", def.Retry.BaseDelay)
	v.SetDefault("retry.cap", def.Retry.Cap)
	v.SetDefault("batch_size", constants.DefaultBatchSize)
	v.SetDefault("sample_size", constants.DefaultSampleSize)
	v.SetDefault("log_format", "auto")
	v.SetDefault("log_output", "stderr")
}

// UpdateFromFlags applies parsed command flags, which take precedence over
// config files and the environment.
func (c *Config) UpdateFromFlags(verbose, quiet, noColor bool, format, logLevel string) {
	c.Verbose = c.Verbose || verbose
	c.Quiet = c.Quiet || quiet
	c.NoColor = c.NoColor || noColor
	if format != "" {
		c.Format = format
	}
	if logLevel != "" {
		c.LogLevel = logLevel
	}
}

// loadEnvFiles loads .env.local and .env. godotenv never overrides a
// variable that is already set, so the environment beats .env.local, which
// beats .env.
func loadEnvFiles() {
	for _, f := range []string{".env.local", ".env"} {
		_ = godotenv.Load(f)
	}
}
