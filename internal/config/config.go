package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       App       `mapstructure:"app"`
	Storage   Storage   `mapstructure:"storage"`
	Keywords  Keywords  `mapstructure:"keywords"`
	Relevance Relevance `mapstructure:"relevance"`
	Incidents Incidents `mapstructure:"incidents"`
	Alerts    Alerts    `mapstructure:"alerts"`
	Pipeline  Pipeline  `mapstructure:"pipeline"`
	Server    Server    `mapstructure:"server"`
}

// App holds general application configuration
type App struct {
	LogLevel string `mapstructure:"log_level"`
	DataDir  string `mapstructure:"data_dir"`
}

// Storage selects the SQL database
type Storage struct {
	Driver string `mapstructure:"driver"` // sqlite3 or postgres
	DSN    string `mapstructure:"dsn"`
}

// Keywords configures the keyword store and maintenance jobs
type Keywords struct {
	Backend             string        `mapstructure:"backend"` // sql, mcp or memory
	Timeout             time.Duration `mapstructure:"timeout"`
	ReloadInterval      time.Duration `mapstructure:"reload_interval"`
	LearnInterval       time.Duration `mapstructure:"learn_interval"`
	LearnMinFrequency   int           `mapstructure:"learn_min_frequency"`
	LearnMinTokenLength int           `mapstructure:"learn_min_token_length"`
	MCP                 MCPConfig     `mapstructure:"mcp"`
}

// MCPConfig describes how to launch the MCP filesystem server
type MCPConfig struct {
	Command string   `mapstructure:"command"`
	Args    []string `mapstructure:"args"`
	Path    string   `mapstructure:"path"` // Keyword file as seen by the server
}

// Relevance holds scoring thresholds
type Relevance struct {
	MinScore    int    `mapstructure:"min_score"`
	MinWords    int    `mapstructure:"min_words"`
	MinLength   int    `mapstructure:"min_length"`
	LexiconFile string `mapstructure:"lexicon_file"` // Optional YAML lexicon/incident override
}

// Incidents holds window and throttle settings
type Incidents struct {
	WindowMinutes int           `mapstructure:"window_minutes"`
	Threshold     int           `mapstructure:"threshold"`
	Cooldown      time.Duration `mapstructure:"cooldown"`
}

// Alerts configures alert delivery
type Alerts struct {
	Platform          string        `mapstructure:"platform"` // discord, discord_webhook or slack
	ChannelID         string        `mapstructure:"channel_id"`
	BotToken          string        `mapstructure:"bot_token"`
	DiscordWebhookURL string        `mapstructure:"discord_webhook_url"`
	SlackWebhookURL   string        `mapstructure:"slack_webhook_url"`
	Timeout           time.Duration `mapstructure:"timeout"`
	Language          string        `mapstructure:"language"`
	Footer            string        `mapstructure:"footer"`
	QueueSize         int           `mapstructure:"queue_size"`
}

// Pipeline configures the message event loop
type Pipeline struct {
	QueueSize int `mapstructure:"queue_size"`
}

// Server holds HTTP server configuration
type Server struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	AdminAPIKey  string        `mapstructure:"admin_api_key"`
	CORS         CORS          `mapstructure:"cors"`
}

// CORS holds cross-origin settings
type CORS struct {
	Enabled        bool     `mapstructure:"enabled"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Destination returns where alerts are delivered for the configured
// platform: a channel id for the bot, a webhook URL otherwise.
func (a Alerts) Destination() string {
	switch a.Platform {
	case "discord_webhook":
		return a.DiscordWebhookURL
	case "slack":
		return a.SlackWebhookURL
	default:
		return a.ChannelID
	}
}

// Window returns the incident window as a duration.
func (i Incidents) Window() time.Duration {
	return time.Duration(i.WindowMinutes) * time.Minute
}

var globalConfig *Config

// Load loads the configuration from various sources
func Load(configFile string) (*Config, error) {
	if globalConfig != nil {
		return globalConfig, nil
	}

	// Load .env file if it exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: Error loading .env file: %v\n", err)
		}
	}

	// Configure viper
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME")
		viper.SetConfigName(".ffnexus")
		viper.SetConfigType("yaml")
	}

	// Set defaults
	setDefaults()

	// Bind environment variables
	bindEnvironmentVariables()

	// Enable automatic environment variable reading
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	// Unmarshal into struct
	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Apply post-processing
	if err := postProcessConfig(config); err != nil {
		return nil, fmt.Errorf("error post-processing config: %w", err)
	}

	// Validate configuration
	if err := validateConfig(config); err != nil {
		return nil, err
	}

	globalConfig = config
	return config, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// App defaults
	viper.SetDefault("app.log_level", "info")
	viper.SetDefault("app.data_dir", "./data")

	// Storage defaults
	viper.SetDefault("storage.driver", "sqlite3")
	viper.SetDefault("storage.dsn", "")

	// Keyword store defaults
	viper.SetDefault("keywords.backend", "sql")
	viper.SetDefault("keywords.timeout", "4s")
	viper.SetDefault("keywords.reload_interval", "5m")
	viper.SetDefault("keywords.learn_interval", "15m")
	viper.SetDefault("keywords.learn_min_frequency", 3)
	viper.SetDefault("keywords.learn_min_token_length", 4)
	viper.SetDefault("keywords.mcp.command", "npx")
	viper.SetDefault("keywords.mcp.args", []string{})
	viper.SetDefault("keywords.mcp.path", "")

	// Relevance defaults
	viper.SetDefault("relevance.min_score", 2)
	viper.SetDefault("relevance.min_words", 3)
	viper.SetDefault("relevance.min_length", 12)
	viper.SetDefault("relevance.lexicon_file", "")

	// Incident defaults
	viper.SetDefault("incidents.window_minutes", 15)
	viper.SetDefault("incidents.threshold", 1)
	viper.SetDefault("incidents.cooldown", "2m")

	// Alert defaults
	viper.SetDefault("alerts.platform", "discord")
	viper.SetDefault("alerts.channel_id", "")
	viper.SetDefault("alerts.timeout", "5s")
	viper.SetDefault("alerts.language", "pt")
	viper.SetDefault("alerts.footer", "FFNexus • Garena BR")
	viper.SetDefault("alerts.queue_size", 64)

	// Pipeline defaults
	viper.SetDefault("pipeline.queue_size", 256)

	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "10s")
	viper.SetDefault("server.write_timeout", "10s")
	viper.SetDefault("server.cors.enabled", false)
	viper.SetDefault("server.cors.allowed_origins", []string{"*"})
}

// bindEnvironmentVariables sets up flexible environment variable binding
func bindEnvironmentVariables() {
	// Incident window and throttle
	bindEnvKeys("incidents.window_minutes", []string{
		"INCIDENT_WINDOW_MIN",
		"INCIDENT_WINDOW_MINUTES",
	})

	bindEnvKeys("incidents.threshold", []string{
		"INCIDENT_THRESHOLD",
	})

	bindEnvKeys("incidents.cooldown", []string{
		"INCIDENT_COOLDOWN",
	})

	// Relevance thresholds
	bindEnvKeys("relevance.min_score", []string{
		"MIN_SCORE",
	})

	bindEnvKeys("relevance.min_words", []string{
		"MIN_WORDS",
	})

	// Alert destination
	bindEnvKeys("alerts.channel_id", []string{
		"ALERT_CHANNEL_ID",
		"DEST_CHANNEL_ID",
	})

	bindEnvKeys("alerts.bot_token", []string{
		"DISCORD_TOKEN",
		"DISCORD_BOT_TOKEN",
	})

	// Messaging webhooks
	bindEnvKeys("alerts.discord_webhook_url", []string{
		"DISCORD_WEBHOOK_URL",
		"DISCORD_WEBHOOK",
	})

	bindEnvKeys("alerts.slack_webhook_url", []string{
		"SLACK_WEBHOOK_URL",
		"SLACK_WEBHOOK",
	})

	// Database
	bindEnvKeys("storage.dsn", []string{
		"DATABASE_URL",
	})

	bindEnvKeys("server.admin_api_key", []string{
		"ADMIN_API_KEY",
	})

	bindEnvKeys("app.log_level", []string{
		"LOG_LEVEL",
	})
}

// bindEnvKeys binds the first found environment variable to a viper key
func bindEnvKeys(viperKey string, envKeys []string) {
	for _, envKey := range envKeys {
		if value := os.Getenv(envKey); value != "" {
			viper.Set(viperKey, value)
			return
		}
	}
}

// postProcessConfig applies post-processing to configuration values
func postProcessConfig(config *Config) error {
	// Expand paths
	config.App.DataDir = expandPath(config.App.DataDir)
	if config.Relevance.LexiconFile != "" {
		config.Relevance.LexiconFile = expandPath(config.Relevance.LexiconFile)
	}

	config.Storage.Driver = strings.ToLower(strings.TrimSpace(config.Storage.Driver))
	if config.Storage.DSN == "" && config.Storage.Driver == "sqlite3" {
		config.Storage.DSN = filepath.Join(config.App.DataDir, "ffnexus.db")
	}

	// The filesystem server resolves paths against its allowed root, so
	// both are made absolute.
	if config.Keywords.Backend == "mcp" {
		root, err := filepath.Abs(config.App.DataDir)
		if err != nil {
			return fmt.Errorf("invalid data directory %s: %w", config.App.DataDir, err)
		}
		if len(config.Keywords.MCP.Args) == 0 {
			config.Keywords.MCP.Args = []string{"-y", "@modelcontextprotocol/server-filesystem", root}
		}
		if config.Keywords.MCP.Path == "" {
			config.Keywords.MCP.Path = filepath.Join(root, "keywords.json")
		}
	}

	config.Alerts.Platform = strings.ToLower(strings.TrimSpace(config.Alerts.Platform))
	config.Alerts.Language = strings.ToLower(strings.TrimSpace(config.Alerts.Language))

	return nil
}

// expandPath expands ~ and environment variables in paths
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return os.ExpandEnv(path)
}

// validateConfig ensures the configuration is usable
func validateConfig(config *Config) error {
	var errors []string

	switch config.Storage.Driver {
	case "sqlite3":
	case "postgres":
		if config.Storage.DSN == "" {
			errors = append(errors, "PostgreSQL requires a connection string. Set DATABASE_URL or storage.dsn")
		}
	default:
		errors = append(errors, fmt.Sprintf("Unknown storage driver: %s. Supported: sqlite3, postgres", config.Storage.Driver))
	}

	switch config.Keywords.Backend {
	case "sql", "memory":
	case "mcp":
		if config.Keywords.MCP.Command == "" {
			errors = append(errors, "MCP keyword backend requires keywords.mcp.command")
		}
	default:
		errors = append(errors, fmt.Sprintf("Unknown keyword backend: %s. Supported: sql, mcp, memory", config.Keywords.Backend))
	}

	if config.Keywords.Timeout <= 0 {
		errors = append(errors, "keywords.timeout must be positive")
	}
	if config.Keywords.ReloadInterval < 0 || config.Keywords.LearnInterval < 0 {
		errors = append(errors, "keyword reload/learn intervals cannot be negative")
	}
	if config.Keywords.LearnMinFrequency < 1 {
		errors = append(errors, "keywords.learn_min_frequency must be at least 1")
	}
	if config.Keywords.LearnMinTokenLength < 1 {
		errors = append(errors, "keywords.learn_min_token_length must be at least 1")
	}

	if config.Relevance.MinWords < 0 || config.Relevance.MinLength < 0 {
		errors = append(errors, "relevance.min_words and relevance.min_length cannot be negative")
	}

	if config.Incidents.WindowMinutes <= 0 {
		errors = append(errors, fmt.Sprintf("incidents.window_minutes must be positive (got %d)", config.Incidents.WindowMinutes))
	}
	if config.Incidents.Threshold < 1 {
		errors = append(errors, fmt.Sprintf("incidents.threshold must be at least 1 (got %d)", config.Incidents.Threshold))
	}
	if config.Incidents.Cooldown < 0 {
		errors = append(errors, "incidents.cooldown cannot be negative")
	}

	switch config.Alerts.Platform {
	case "discord", "discord_webhook", "slack":
	default:
		errors = append(errors, fmt.Sprintf("Unknown alert platform: %s. Supported: discord, discord_webhook, slack", config.Alerts.Platform))
	}
	if config.Alerts.Platform == "discord" && config.Alerts.ChannelID != "" && config.Alerts.BotToken == "" {
		errors = append(errors, "Discord alerts require a bot token. Set DISCORD_TOKEN or alerts.bot_token")
	}
	switch config.Alerts.Language {
	case "pt", "en":
	default:
		errors = append(errors, fmt.Sprintf("Unknown alert language: %s. Supported: pt, en", config.Alerts.Language))
	}
	if config.Alerts.Timeout <= 0 {
		errors = append(errors, "alerts.timeout must be positive")
	}

	if config.Pipeline.QueueSize < 1 || config.Alerts.QueueSize < 1 {
		errors = append(errors, "queue sizes must be at least 1")
	}

	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		errors = append(errors, fmt.Sprintf("server.port out of range: %d", config.Server.Port))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration errors:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// Reset clears the global configuration (useful for testing)
func Reset() {
	globalConfig = nil
	viper.Reset()
}
