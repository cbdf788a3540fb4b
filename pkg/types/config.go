package types

import "time"

// AppConfig is the root configuration for the assistme gateway
type AppConfig struct {
	DebugMode  bool `key:"debugMode" json:"debug_mode"`
	PrettyLogs bool `key:"prettyLogs" json:"pretty_logs"`

	Database   DatabaseConfig     `key:"database" json:"database"`
	Gateway    GatewayConfig      `key:"gateway" json:"gateway"`
	Auth       AuthConfig         `key:"auth" json:"auth"`
	Encryption EncryptionConfig   `key:"encryption" json:"encryption"`
	OAuth      IntegrationOAuth   `key:"oauth" json:"oauth"`
	Weather    WeatherConfig      `key:"weather" json:"weather"`
	News       NewsConfig         `key:"news" json:"news"`
	Summary    SummaryConfig      `key:"summary" json:"summary"`
	Upstream   UpstreamHTTPConfig `key:"upstream" json:"upstream"`
}

// ----------------------------------------------------------------------------
// Database Configuration
// ----------------------------------------------------------------------------

type DatabaseConfig struct {
	Redis    RedisConfig    `key:"redis" json:"redis"`
	Postgres PostgresConfig `key:"postgres" json:"postgres"`
}

type RedisConfig struct {
	Addrs           []string      `key:"addrs" json:"addrs"`
	Username        string        `key:"username" json:"username"`
	Password        string        `key:"password" json:"password"`
	ClientName      string        `key:"clientName" json:"client_name"`
	PoolSize        int           `key:"poolSize" json:"pool_size"`
	MinIdleConns    int           `key:"minIdleConns" json:"min_idle_conns"`
	DialTimeout     time.Duration `key:"dialTimeout" json:"dial_timeout"`
	ReadTimeout     time.Duration `key:"readTimeout" json:"read_timeout"`
	WriteTimeout    time.Duration `key:"writeTimeout" json:"write_timeout"`
	ConnMaxIdleTime time.Duration `key:"connMaxIdleTime" json:"conn_max_idle_time"`
}

// IsConfigured returns true if a redis address is set
func (c RedisConfig) IsConfigured() bool {
	return len(c.Addrs) > 0
}

type PostgresConfig struct {
	Host            string        `key:"host" json:"host"`
	Port            int           `key:"port" json:"port"`
	User            string        `key:"user" json:"user"`
	Password        string        `key:"password" json:"password"`
	Database        string        `key:"database" json:"database"`
	SSLMode         string        `key:"sslMode" json:"ssl_mode"`
	MaxOpenConns    int           `key:"maxOpenConns" json:"max_open_conns"`
	MaxIdleConns    int           `key:"maxIdleConns" json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `key:"connMaxLifetime" json:"conn_max_lifetime"`
}

// ----------------------------------------------------------------------------
// Gateway Configuration
// ----------------------------------------------------------------------------

type GatewayConfig struct {
	HTTP            HTTPConfig    `key:"http" json:"http"`
	ShutdownTimeout time.Duration `key:"shutdownTimeout" json:"shutdown_timeout"`
}

type HTTPConfig struct {
	Host             string     `key:"host" json:"host"`
	Port             int        `key:"port" json:"port"`
	EnablePrettyLogs bool       `key:"enablePrettyLogs" json:"enable_pretty_logs"`
	CORS             CORSConfig `key:"cors" json:"cors"`
}

type CORSConfig struct {
	AllowedOrigins []string `key:"allowOrigins" json:"allow_origins"`
	AllowedMethods []string `key:"allowMethods" json:"allow_methods"`
	AllowedHeaders []string `key:"allowHeaders" json:"allow_headers"`
}

// AuthConfig configures bearer token validation for the user identity.
// Tokens are issued by the auth collaborator; this service only verifies them.
type AuthConfig struct {
	JWTSecret string `key:"jwtSecret" json:"jwt_secret"`
}

// EncryptionConfig provides the secret the token cipher key is derived from
type EncryptionConfig struct {
	Secret string `key:"secret" json:"secret"`
}

// ----------------------------------------------------------------------------
// Integration OAuth Configuration
// ----------------------------------------------------------------------------

// IntegrationOAuth configures OAuth for account integrations (gmail, etc.)
type IntegrationOAuth struct {
	// CallbackURL is the redirect URL registered with every provider,
	// e.g. http://localhost:1994/api/v1/integrations/callback
	CallbackURL string `key:"callbackUrl" json:"callback_url"`

	// StateTTL bounds how long a pending authorization may take
	StateTTL time.Duration `key:"stateTtl" json:"state_ttl"`

	Google GoogleOAuthConfig `key:"google" json:"google"`
}

// GoogleOAuthConfig configures Google OAuth for the gmail integration
type GoogleOAuthConfig struct {
	ClientID     string `key:"clientId" json:"client_id"`
	ClientSecret string `key:"clientSecret" json:"client_secret"`
}

// ----------------------------------------------------------------------------
// Service Configuration
// ----------------------------------------------------------------------------

type WeatherConfig struct {
	TTL time.Duration `key:"ttl" json:"ttl"`
}

type NewsConfig struct {
	Feeds []string      `key:"feeds" json:"feeds"`
	TTL   time.Duration `key:"ttl" json:"ttl"`
}

// SummaryConfig configures the optional Gemini email summarizer
type SummaryConfig struct {
	APIKey string `key:"apiKey" json:"api_key"`
	Model  string `key:"model" json:"model"`
}

// UpstreamHTTPConfig tunes the shared retrying HTTP client
type UpstreamHTTPConfig struct {
	Timeout time.Duration `key:"timeout" json:"timeout"`
	Retries int           `key:"retries" json:"retries"`
	Backoff time.Duration `key:"backoff" json:"backoff"`
}
