// Package config provides configuration management for the OA Metasearch service.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of every environment variable read by Load.
const EnvPrefix = "OASEARCH"

// SSL mode constants for database connections.
const (
	// SSLModeDisable disables SSL (use only for local development).
	SSLModeDisable = "disable"
	// SSLModeRequire requires SSL but does not verify certificates.
	SSLModeRequire = "require"
	// SSLModeVerifyCA verifies the server certificate against a CA.
	SSLModeVerifyCA = "verify-ca"
	// SSLModeVerifyFull verifies the server certificate and hostname.
	SSLModeVerifyFull = "verify-full"
)

// Search backend kinds.
const (
	BackendTypesense   = "typesense"
	BackendMeilisearch = "meilisearch"
	BackendAlgolia     = "algolia"
	BackendPostgres    = "postgres"
	BackendMemory      = "memory"
)

// ErrUnsupportedBackend is returned when search.backend names no known backend.
var ErrUnsupportedBackend = errors.New("unsupported search backend")

// Config holds all configuration for the OA Metasearch service.
type Config struct {
	// Server contains HTTP/gRPC server settings.
	Server ServerConfig `mapstructure:"server"`
	// Database contains PostgreSQL connection settings for the postgres backend.
	Database DatabaseConfig `mapstructure:"database"`
	// Temporal contains Temporal settings for the harvest pipeline.
	Temporal TemporalConfig `mapstructure:"temporal"`
	// Logging contains structured logging settings.
	Logging LoggingConfig `mapstructure:"logging"`
	// Metrics contains Prometheus metrics exposure settings.
	Metrics MetricsConfig `mapstructure:"metrics"`
	// Kafka contains index event publisher settings.
	Kafka KafkaConfig `mapstructure:"kafka"`
	// Search selects and configures the active search backend.
	Search SearchConfig `mapstructure:"search"`
	// Sources contains repository connector configurations.
	Sources SourcesConfig `mapstructure:"sources"`
	// Federation contains paper detail resolution settings.
	Federation FederationConfig `mapstructure:"federation"`
	// Harvest contains offline harvest defaults.
	Harvest HarvestConfig `mapstructure:"harvest"`
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	// Host is the address to bind the server to (default: 0.0.0.0).
	Host string `mapstructure:"host"`
	// HTTPPort is the HTTP server port (default: 8080).
	HTTPPort int `mapstructure:"http_port"`
	// GRPCPort is the gRPC health server port (default: 9090).
	GRPCPort int `mapstructure:"grpc_port"`
	// MetricsPort is the metrics server port (default: 9091).
	MetricsPort int `mapstructure:"metrics_port"`
	// ReadTimeout is the maximum duration for reading request body.
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	// WriteTimeout is the maximum duration for writing response.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// CORSOrigins lists origins allowed to call the API from a browser. Empty disables CORS headers.
	CORSOrigins []string `mapstructure:"cors_origins"`
}

// DatabaseConfig holds database connection configuration.
type DatabaseConfig struct {
	// Host is the PostgreSQL server hostname.
	Host string `mapstructure:"host"`
	// Port is the PostgreSQL server port (default: 5432).
	Port int `mapstructure:"port"`
	// User is the database username.
	User string `mapstructure:"user"`
	// Password is the database password (loaded from OASEARCH_DATABASE_PASSWORD).
	Password string `mapstructure:"-"`
	// Name is the database name.
	Name string `mapstructure:"name"`
	// SSLMode controls SSL connection security (require, verify-ca, verify-full, disable).
	SSLMode string `mapstructure:"ssl_mode"`
	// MaxConns is the maximum number of connections in the pool (default: 20).
	MaxConns int32 `mapstructure:"max_conns"`
	// MinConns is the minimum number of connections to keep open (default: 2).
	MinConns int32 `mapstructure:"min_conns"`
	// MaxConnLifetime is the maximum lifetime of a connection before it's closed.
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	// MaxConnIdleTime is the maximum time a connection can be idle before it's closed.
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
	// HealthCheckPeriod is the interval between health checks of idle connections.
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"`
	// ConnectTimeout is the maximum time to wait for a connection.
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	// MigrationAutoRun applies embedded migrations when the postgres backend starts.
	MigrationAutoRun bool `mapstructure:"migration_auto_run"`
}

// TemporalConfig holds Temporal workflow configuration.
type TemporalConfig struct {
	// HostPort is the Temporal server address.
	HostPort string `mapstructure:"host_port"`
	// Namespace is the Temporal namespace.
	Namespace string `mapstructure:"namespace"`
	// TaskQueue is the task queue name for harvest workflows.
	TaskQueue string `mapstructure:"task_queue"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the log level (trace, debug, info, warn, error, fatal, panic).
	Level string `mapstructure:"level"`
	// Format is the log format (json, console).
	Format string `mapstructure:"format"`
	// Output is the log output destination (stdout, stderr).
	Output string `mapstructure:"output"`
	// AddSource adds source file and line to log output.
	AddSource bool `mapstructure:"add_source"`
	// TimeFormat is the timestamp format.
	TimeFormat string `mapstructure:"time_format"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	// Enabled enables metrics collection and exposure.
	Enabled bool `mapstructure:"enabled"`
	// Path is the HTTP path for metrics endpoint.
	Path string `mapstructure:"path"`
	// Namespace prefixes every metric name.
	Namespace string `mapstructure:"namespace"`
}

// KafkaConfig holds settings for publishing records.indexed events.
type KafkaConfig struct {
	// Enabled controls whether Kafka publishing is active.
	Enabled bool `mapstructure:"enabled"`
	// Brokers is the list of Kafka broker addresses.
	Brokers []string `mapstructure:"brokers"`
	// Topic is the Kafka topic to publish index events to.
	Topic string `mapstructure:"topic"`
	// BatchSize is the maximum number of messages to batch before sending.
	BatchSize int `mapstructure:"batch_size"`
	// BatchTimeout is the maximum time to wait for a batch to fill before sending.
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
	// HarvestTopic carries harvest requests consumed by the worker. Empty disables the listener.
	HarvestTopic string `mapstructure:"harvest_topic"`
	// GroupID is the consumer group of the harvest listener.
	GroupID string `mapstructure:"group_id"`
}

// SearchConfig selects the search backend. Only the section named by Backend is used.
type SearchConfig struct {
	// Backend is one of typesense, meilisearch, algolia, postgres, memory.
	Backend string `mapstructure:"backend"`
	// Index is the collection, index or table name holding OA records.
	Index string `mapstructure:"index"`
	// Timeout bounds every backend request.
	Timeout time.Duration `mapstructure:"timeout"`
	// Typesense contains Typesense settings.
	Typesense TypesenseConfig `mapstructure:"typesense"`
	// Meilisearch contains Meilisearch settings.
	Meilisearch MeilisearchConfig `mapstructure:"meilisearch"`
	// Algolia contains Algolia settings.
	Algolia AlgoliaConfig `mapstructure:"algolia"`
}

// TypesenseConfig holds Typesense connection settings.
type TypesenseConfig struct {
	// URL is the Typesense node URL.
	URL string `mapstructure:"url"`
	// APIKey is the admin API key (loaded from OASEARCH_SEARCH_TYPESENSE_API_KEY).
	APIKey string `mapstructure:"-"`
}

// MeilisearchConfig holds Meilisearch connection settings.
type MeilisearchConfig struct {
	// URL is the Meilisearch host URL.
	URL string `mapstructure:"url"`
	// APIKey is the master or admin key (loaded from OASEARCH_SEARCH_MEILISEARCH_API_KEY).
	APIKey string `mapstructure:"-"`
	// TaskPollInterval is how often enqueued tasks are polled for completion.
	TaskPollInterval time.Duration `mapstructure:"task_poll_interval"`
}

// AlgoliaConfig holds Algolia connection settings.
type AlgoliaConfig struct {
	// AppID is the Algolia application ID.
	AppID string `mapstructure:"app_id"`
	// APIKey is the admin API key (loaded from OASEARCH_SEARCH_ALGOLIA_API_KEY).
	APIKey string `mapstructure:"-"`
	// BaseURL overrides the default https://{app_id}-dsn.algolia.net host.
	BaseURL string `mapstructure:"base_url"`
}

// SourcesConfig holds configuration for all repository connectors.
type SourcesConfig struct {
	// PerSourceTimeout bounds each connector call during fan-out.
	PerSourceTimeout time.Duration `mapstructure:"per_source_timeout"`
	// ArXiv contains arXiv API settings.
	ArXiv SourceConfig `mapstructure:"arxiv"`
	// NCBI contains NCBI E-utilities settings.
	NCBI SourceConfig `mapstructure:"ncbi"`
	// EuropePMC contains Europe PMC REST settings.
	EuropePMC SourceConfig `mapstructure:"europepmc"`
	// DOAJ contains DOAJ API settings.
	DOAJ SourceConfig `mapstructure:"doaj"`
	// BioRxiv contains bioRxiv (via Europe PMC preprints) settings.
	BioRxiv SourceConfig `mapstructure:"biorxiv"`
	// MedRxiv contains medRxiv (via Europe PMC preprints) settings.
	MedRxiv SourceConfig `mapstructure:"medrxiv"`
	// DataCite contains DataCite REST settings.
	DataCite SourceConfig `mapstructure:"datacite"`
}

// SourceConfig holds configuration for a single repository connector.
type SourceConfig struct {
	// Enabled controls whether this source is used.
	Enabled bool `mapstructure:"enabled"`
	// APIKey is the API key (loaded from environment, e.g. OASEARCH_SOURCES_NCBI_API_KEY).
	APIKey string `mapstructure:"-"`
	// BaseURL is the API base URL.
	BaseURL string `mapstructure:"base_url"`
	// Timeout is the timeout for API calls.
	Timeout time.Duration `mapstructure:"timeout"`
	// RateLimit is the maximum requests per second.
	RateLimit float64 `mapstructure:"rate_limit"`
	// MaxResults is the maximum results per query.
	MaxResults int `mapstructure:"max_results"`
	// MaxRetries is the transport retry budget for 429 and 5xx responses.
	MaxRetries int `mapstructure:"max_retries"`
}

// FederationConfig holds paper detail resolution settings.
type FederationConfig struct {
	// ResolvePDF enables landing page scraping for citation_pdf_url.
	ResolvePDF bool `mapstructure:"resolve_pdf"`
	// ResolveTimeout bounds the landing page fetch.
	ResolveTimeout time.Duration `mapstructure:"resolve_timeout"`
	// MaxPageBytes caps the landing page body read.
	MaxPageBytes int64 `mapstructure:"max_page_bytes"`
	// AllowPrivateHosts permits landing pages on loopback and private networks (tests and dev only).
	AllowPrivateHosts bool `mapstructure:"allow_private_hosts"`
}

// HarvestConfig holds offline harvest defaults.
type HarvestConfig struct {
	// BatchSize is the number of records per UpsertMany call.
	BatchSize int `mapstructure:"batch_size"`
	// MaxPerSource caps records fetched from each connector per harvest query.
	MaxPerSource int `mapstructure:"max_per_source"`
}

// DSN returns the PostgreSQL connection string.
func (c *DatabaseConfig) DSN() string {
	params := url.Values{}
	params.Set("sslmode", c.SSLMode)
	if c.ConnectTimeout > 0 {
		params.Set("connect_timeout", fmt.Sprintf("%d", int(c.ConnectTimeout.Seconds())))
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?%s",
		url.QueryEscape(c.User),
		url.QueryEscape(c.Password),
		c.Host,
		c.Port,
		c.Name,
		params.Encode(),
	)
}

// HTTPAddress returns the HTTP server address.
func (c *ServerConfig) HTTPAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.HTTPPort)
}

// GRPCAddress returns the gRPC server address.
func (c *ServerConfig) GRPCAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.GRPCPort)
}

// Load loads configuration from a .env file, environment variables and config files.
func Load() (*Config, error) {
	return LoadFrom("")
}

// LoadFrom behaves like Load but reads configFile instead of searching the
// default locations when configFile is non-empty.
func LoadFrom(configFile string) (*Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/oa-metasearch")
	}

	if err := v.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Secrets use mapstructure:"-" and are read from the environment only.
	loadSecrets(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadDotEnv loads variables from the file named by OASEARCH_ENV_FILE (default .env)
// without overriding variables already set. A missing file is not an error.
func loadDotEnv() error {
	path := os.Getenv(EnvPrefix + "_ENV_FILE")
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// loadSecrets populates secret fields exclusively from environment variables.
func loadSecrets(cfg *Config) {
	cfg.Database.Password = os.Getenv(EnvPrefix + "_DATABASE_PASSWORD")

	cfg.Search.Typesense.APIKey = os.Getenv(EnvPrefix + "_SEARCH_TYPESENSE_API_KEY")
	cfg.Search.Meilisearch.APIKey = os.Getenv(EnvPrefix + "_SEARCH_MEILISEARCH_API_KEY")
	cfg.Search.Algolia.APIKey = os.Getenv(EnvPrefix + "_SEARCH_ALGOLIA_API_KEY")

	cfg.Sources.ArXiv.APIKey = os.Getenv(EnvPrefix + "_SOURCES_ARXIV_API_KEY")
	cfg.Sources.NCBI.APIKey = os.Getenv(EnvPrefix + "_SOURCES_NCBI_API_KEY")
	cfg.Sources.EuropePMC.APIKey = os.Getenv(EnvPrefix + "_SOURCES_EUROPEPMC_API_KEY")
	cfg.Sources.DOAJ.APIKey = os.Getenv(EnvPrefix + "_SOURCES_DOAJ_API_KEY")
	cfg.Sources.BioRxiv.APIKey = os.Getenv(EnvPrefix + "_SOURCES_BIORXIV_API_KEY")
	cfg.Sources.MedRxiv.APIKey = os.Getenv(EnvPrefix + "_SOURCES_MEDRXIV_API_KEY")
	cfg.Sources.DataCite.APIKey = os.Getenv(EnvPrefix + "_SOURCES_DATACITE_API_KEY")
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.http_port", 8080)
	v.SetDefault("server.grpc_port", 9090)
	v.SetDefault("server.metrics_port", 9091)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.cors_origins", []string{})

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "oasearch")
	v.SetDefault("database.name", "oa_metasearch")
	v.SetDefault("database.ssl_mode", SSLModeRequire)
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")
	v.SetDefault("database.health_check_period", "30s")
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.migration_auto_run", false)

	// Temporal defaults
	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.task_queue", "oa-harvest")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.add_source", false)
	v.SetDefault("logging.time_format", time.RFC3339)

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("metrics.namespace", "oasearch")

	// Kafka defaults
	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "oasearch.records.indexed")
	v.SetDefault("kafka.batch_size", 100)
	v.SetDefault("kafka.batch_timeout", "10ms")
	v.SetDefault("kafka.harvest_topic", "oasearch.harvest.requests")
	v.SetDefault("kafka.group_id", "oasearch-worker")

	// Search backend defaults
	v.SetDefault("search.backend", BackendMemory)
	v.SetDefault("search.index", "oa_records")
	v.SetDefault("search.timeout", "10s")
	v.SetDefault("search.typesense.url", "http://localhost:8108")
	v.SetDefault("search.meilisearch.url", "http://localhost:7700")
	v.SetDefault("search.meilisearch.task_poll_interval", "100ms")
	v.SetDefault("search.algolia.app_id", "")
	v.SetDefault("search.algolia.base_url", "")

	// Connector defaults
	v.SetDefault("sources.per_source_timeout", "15s")

	v.SetDefault("sources.arxiv.enabled", true)
	v.SetDefault("sources.arxiv.base_url", "https://export.arxiv.org/api")
	v.SetDefault("sources.arxiv.timeout", "20s")
	v.SetDefault("sources.arxiv.rate_limit", 0.33) // arXiv asks for one request every 3 seconds
	v.SetDefault("sources.arxiv.max_results", 50)

	v.SetDefault("sources.ncbi.enabled", true)
	v.SetDefault("sources.ncbi.base_url", "https://eutils.ncbi.nlm.nih.gov/entrez/eutils")
	v.SetDefault("sources.ncbi.timeout", "20s")
	v.SetDefault("sources.ncbi.rate_limit", 3.0) // 3 req/sec without an API key
	v.SetDefault("sources.ncbi.max_results", 50)

	v.SetDefault("sources.europepmc.enabled", true)
	v.SetDefault("sources.europepmc.base_url", "https://www.ebi.ac.uk/europepmc/webservices/rest")
	v.SetDefault("sources.europepmc.timeout", "20s")
	v.SetDefault("sources.europepmc.rate_limit", 10.0)
	v.SetDefault("sources.europepmc.max_results", 50)

	v.SetDefault("sources.doaj.enabled", true)
	v.SetDefault("sources.doaj.base_url", "https://doaj.org/api")
	v.SetDefault("sources.doaj.timeout", "20s")
	v.SetDefault("sources.doaj.rate_limit", 2.0)
	v.SetDefault("sources.doaj.max_results", 50)

	v.SetDefault("sources.biorxiv.enabled", true)
	v.SetDefault("sources.biorxiv.base_url", "https://www.ebi.ac.uk/europepmc/webservices/rest")
	v.SetDefault("sources.biorxiv.timeout", "20s")
	v.SetDefault("sources.biorxiv.rate_limit", 5.0)
	v.SetDefault("sources.biorxiv.max_results", 50)

	v.SetDefault("sources.medrxiv.enabled", true)
	v.SetDefault("sources.medrxiv.base_url", "https://www.ebi.ac.uk/europepmc/webservices/rest")
	v.SetDefault("sources.medrxiv.timeout", "20s")
	v.SetDefault("sources.medrxiv.rate_limit", 5.0)
	v.SetDefault("sources.medrxiv.max_results", 50)

	v.SetDefault("sources.datacite.enabled", true)
	v.SetDefault("sources.datacite.base_url", "https://api.datacite.org")
	v.SetDefault("sources.datacite.timeout", "20s")
	v.SetDefault("sources.datacite.rate_limit", 5.0)
	v.SetDefault("sources.datacite.max_results", 50)

	// Federation defaults
	v.SetDefault("federation.resolve_pdf", true)
	v.SetDefault("federation.resolve_timeout", "8s")
	v.SetDefault("federation.max_page_bytes", 2<<20)
	v.SetDefault("federation.allow_private_hosts", false)

	// Harvest defaults
	v.SetDefault("harvest.batch_size", 100)
	v.SetDefault("harvest.max_per_source", 100)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	// Validate server ports
	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.Server.HTTPPort)
	}
	if c.Server.GRPCPort <= 0 || c.Server.GRPCPort > 65535 {
		return fmt.Errorf("invalid gRPC port: %d", c.Server.GRPCPort)
	}
	if c.Server.MetricsPort <= 0 || c.Server.MetricsPort > 65535 {
		return fmt.Errorf("invalid metrics port: %d", c.Server.MetricsPort)
	}

	// Validate log level
	validLogLevels := map[string]bool{
		"trace": true, "debug": true, "info": true,
		"warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	if err := c.Search.Validate(); err != nil {
		return err
	}
	if strings.EqualFold(c.Search.Backend, BackendPostgres) {
		if err := c.Database.Validate(); err != nil {
			return err
		}
	}

	if c.Sources.PerSourceTimeout < time.Second || c.Sources.PerSourceTimeout > time.Minute {
		return fmt.Errorf("sources per_source_timeout must be between 1s and 60s, got %s", c.Sources.PerSourceTimeout)
	}

	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("kafka brokers are required when kafka is enabled")
		}
		if c.Kafka.Topic == "" {
			return fmt.Errorf("kafka topic is required when kafka is enabled")
		}
	}

	if c.Harvest.BatchSize <= 0 {
		return fmt.Errorf("harvest batch_size must be positive")
	}

	return nil
}

// Validate checks that the selected backend is known and has its required settings.
func (c *SearchConfig) Validate() error {
	if c.Index == "" {
		return fmt.Errorf("search index is required")
	}
	switch strings.ToLower(c.Backend) {
	case BackendTypesense:
		if c.Typesense.URL == "" || c.Typesense.APIKey == "" {
			return fmt.Errorf("typesense backend requires search.typesense.url and %s_SEARCH_TYPESENSE_API_KEY", EnvPrefix)
		}
	case BackendMeilisearch:
		if c.Meilisearch.URL == "" {
			return fmt.Errorf("meilisearch backend requires search.meilisearch.url")
		}
	case BackendAlgolia:
		if c.Algolia.AppID == "" || c.Algolia.APIKey == "" {
			return fmt.Errorf("algolia backend requires search.algolia.app_id and %s_SEARCH_ALGOLIA_API_KEY", EnvPrefix)
		}
	case BackendPostgres, BackendMemory:
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedBackend, c.Backend)
	}
	return nil
}

// Validate checks the PostgreSQL settings used by the postgres backend.
func (c *DatabaseConfig) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid database port: %d", c.Port)
	}
	if c.Name == "" {
		return fmt.Errorf("database name is required")
	}
	if c.MaxConns < c.MinConns {
		return fmt.Errorf("max_conns (%d) must be >= min_conns (%d)", c.MaxConns, c.MinConns)
	}
	return nil
}
