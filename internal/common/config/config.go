// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App          AppConfig         `mapstructure:"app"`
	Server       ServerConfig      `mapstructure:"server"`
	Database     DatabaseConfig    `mapstructure:"database"`
	Funnel       FunnelConfig      `mapstructure:"funnel"`
	Integrations IntegrationConfig `mapstructure:"integrations"`
	Logging      LoggingConfig     `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	EnableCORS   bool   `mapstructure:"enable_cors"`
	ReadTimeout  int    `mapstructure:"read_timeout"`  // milliseconds
	WriteTimeout int    `mapstructure:"write_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string.
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses  []string `mapstructure:"addresses"`
	Username   string   `mapstructure:"username"`
	Password   string   `mapstructure:"password"`
	EventIndex string   `mapstructure:"event_index"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// FunnelConfig holds funnel-core settings shared by every variant.
type FunnelConfig struct {
	// DraftTTL and SessionTTL bound how long abandoned local state is kept,
	// in hours. Zero means no expiry.
	DraftTTL   int `mapstructure:"draft_ttl"`
	SessionTTL int `mapstructure:"session_ttl"`

	// EntryRedirect picks where an unearned deep-link lands:
	// "first_incomplete" (default) or "step_one".
	EntryRedirect string `mapstructure:"entry_redirect"`
}

// IntegrationConfig holds settings for Xano, Meta CAPI, geocoding and AWS.
type IntegrationConfig struct {
	Xano struct {
		Endpoint string `mapstructure:"endpoint"`
		Timeout  int    `mapstructure:"timeout"` // milliseconds
	} `mapstructure:"xano"`

	Meta struct {
		Enabled     bool   `mapstructure:"enabled"`
		EndpointURL string `mapstructure:"endpoint_url"`
		AccessToken string `mapstructure:"access_token"`
		PixelID     string `mapstructure:"pixel_id"`
		Timeout     int    `mapstructure:"timeout"` // milliseconds
	} `mapstructure:"meta"`

	Geocode struct {
		BaseURL     string `mapstructure:"base_url"`
		CountryCode string `mapstructure:"country_code"`
		Timeout     int    `mapstructure:"timeout"` // milliseconds
	} `mapstructure:"geocode"`

	AWS struct {
		Region string `mapstructure:"region"`
		SES    struct {
			Enabled   bool   `mapstructure:"enabled"`
			FromEmail string `mapstructure:"from_email"`
			OpsEmail  string `mapstructure:"ops_email"`
		} `mapstructure:"ses"`
		SNS struct {
			Enabled  bool   `mapstructure:"enabled"`
			OpsPhone string `mapstructure:"ops_phone"`
		} `mapstructure:"sns"`
	} `mapstructure:"aws"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
