package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/feral-file/ff-marketplace-mirror/internal/domain"
)

// BaseConfig holds base configuration
type BaseConfig struct {
	Debug     bool   `mapstructure:"debug"`
	LogLevel  string `mapstructure:"log_level"`
	SentryDSN string `mapstructure:"sentry_dsn"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	// SlowQueryThreshold logs queries slower than this as warnings (0 disables)
	SlowQueryThreshold time.Duration `mapstructure:"slow_query_threshold"`
}

// StarknetConfig holds Starknet RPC and contract configuration
type StarknetConfig struct {
	Network             string        `mapstructure:"network"` // mainnet or sepolia
	RPCURL              string        `mapstructure:"rpc_url"`
	MarketplaceContract string        `mapstructure:"marketplace_contract"`
	CollectionContract  string        `mapstructure:"collection_contract"`
	StartBlock          uint64        `mapstructure:"start_block"`
	RPCTimeout          time.Duration `mapstructure:"rpc_timeout"`
	RPCMaxRetries       uint64        `mapstructure:"rpc_max_retries"`
	// RequestsPerSecond caps RPC calls per process, or across processes when redis is configured
	RequestsPerSecond    float64       `mapstructure:"requests_per_second"`
	RequestsBurst        int           `mapstructure:"requests_burst"`
	BlockHeadTTL         time.Duration `mapstructure:"block_head_ttl"`
	BlockHeadStaleWindow time.Duration `mapstructure:"block_head_stale_window"`
}

// Chain returns the chain of the configured network
func (c StarknetConfig) Chain() (domain.Chain, error) {
	return domain.ChainFromNetwork(c.Network)
}

// MirrorConfig holds chain mirror loop configuration
type MirrorConfig struct {
	PollInterval  time.Duration `mapstructure:"poll_interval"`
	BatchSize     uint64        `mapstructure:"batch_size"`
	MetadataBatch int           `mapstructure:"metadata_batch"`
}

// OrchestratorConfig holds job orchestrator configuration
type OrchestratorConfig struct {
	PollInterval    time.Duration `mapstructure:"poll_interval"`
	StaleJobTimeout time.Duration `mapstructure:"stale_job_timeout"`
	// ReaperSchedule and ExpirySchedule are cron specs (e.g., "@every 1m")
	ReaperSchedule string `mapstructure:"reaper_schedule"`
	ExpirySchedule string `mapstructure:"expiry_schedule"`
}

// URIConfig holds URI resolver configuration
type URIConfig struct {
	IPFSGateways []string      `mapstructure:"ipfs_gateways"`
	FetchTimeout time.Duration `mapstructure:"fetch_timeout"`
}

// PinataConfig holds Pinata pinning configuration
type PinataConfig struct {
	JWT     string `mapstructure:"jwt"`
	Gateway string `mapstructure:"gateway"`
	APIURL  string `mapstructure:"api_url"`
}

// NATSConfig holds NATS JetStream configuration for mirrored event publishing
type NATSConfig struct {
	URL            string        `mapstructure:"url"`
	StreamName     string        `mapstructure:"stream_name"`
	MaxReconnects  int           `mapstructure:"max_reconnects"`
	ReconnectWait  time.Duration `mapstructure:"reconnect_wait"`
	ConnectionName string        `mapstructure:"connection_name"`
}

// RedisConfig holds the redis connection used for the shared RPC rate limiter
type RedisConfig struct {
	Addr      string `mapstructure:"addr"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// ServerConfig holds the ops HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// Address returns host:port
func (c ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IndexerConfig holds configuration for the indexer and the operator tools
type IndexerConfig struct {
	BaseConfig   `mapstructure:",squash"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Starknet     StarknetConfig     `mapstructure:"starknet"`
	Mirror       MirrorConfig       `mapstructure:"mirror"`
	Orchestrator OrchestratorConfig `mapstructure:"orchestrator"`
	URI          URIConfig          `mapstructure:"uri"`
	Pinata       PinataConfig       `mapstructure:"pinata"`
	NATS         NATSConfig         `mapstructure:"nats"`
	Redis        RedisConfig        `mapstructure:"redis"`
	Server       ServerConfig       `mapstructure:"server"`
}

// WorkerConfig holds configuration for a standalone queue worker
type WorkerConfig struct {
	BaseConfig   `mapstructure:",squash"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Starknet     StarknetConfig     `mapstructure:"starknet"`
	Orchestrator OrchestratorConfig `mapstructure:"orchestrator"`
	URI          URIConfig          `mapstructure:"uri"`
	Pinata       PinataConfig       `mapstructure:"pinata"`
	Redis        RedisConfig        `mapstructure:"redis"`
}

// LoadIndexerConfig loads configuration for the indexer. The operator tools share it.
func LoadIndexerConfig(service string, configFile string, envPath string) (*IndexerConfig, error) {
	v := configureViper(service, configFile, envPath)
	setCommonDefaults(v)
	v.SetDefault("mirror.poll_interval", "6s")
	v.SetDefault("mirror.batch_size", domain.DEFAULT_BLOCK_BATCH_SIZE)
	v.SetDefault("mirror.metadata_batch", domain.DEFAULT_METADATA_BATCH_SIZE)
	v.SetDefault("nats.stream_name", "MARKETPLACE_EVENTS")
	v.SetDefault("nats.max_reconnects", 10)
	v.SetDefault("nats.reconnect_wait", "2s")
	v.SetDefault("nats.connection_name", service)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8081)
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "10s")

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg IndexerConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Starknet.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadWorkerConfig loads configuration for a standalone worker
func LoadWorkerConfig(configFile string, envPath string) (*WorkerConfig, error) {
	v := configureViper("worker", configFile, envPath)
	setCommonDefaults(v)

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg WorkerConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Starknet.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setCommonDefaults(v *viper.Viper) {
	v.SetDefault("debug", false)
	v.SetDefault("log_level", "")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.slow_query_threshold", "500ms")
	v.SetDefault("starknet.network", "mainnet")
	v.SetDefault("starknet.marketplace_contract", domain.MAINNET_MARKETPLACE_CONTRACT)
	v.SetDefault("starknet.collection_contract", domain.MAINNET_COLLECTION_CONTRACT)
	v.SetDefault("starknet.start_block", domain.MAINNET_START_BLOCK)
	v.SetDefault("starknet.rpc_timeout", "30s")
	v.SetDefault("starknet.rpc_max_retries", 3)
	v.SetDefault("starknet.requests_per_second", 10)
	v.SetDefault("starknet.requests_burst", 5)
	v.SetDefault("starknet.block_head_ttl", "6s")
	v.SetDefault("starknet.block_head_stale_window", "60s")
	v.SetDefault("orchestrator.poll_interval", "2s")
	v.SetDefault("orchestrator.stale_job_timeout", "10m")
	v.SetDefault("orchestrator.reaper_schedule", "@every 1m")
	v.SetDefault("orchestrator.expiry_schedule", "@every 1m")
	v.SetDefault("uri.ipfs_gateways", []string{
		"https://" + domain.DEFAULT_PINATA_GATEWAY + "/ipfs",
		"https://cloudflare-ipfs.com/ipfs",
		domain.DEFAULT_IPFS_GATEWAY + "/ipfs",
	})
	v.SetDefault("uri.fetch_timeout", "10s")
	v.SetDefault("pinata.gateway", domain.DEFAULT_PINATA_GATEWAY)
	v.SetDefault("pinata.api_url", domain.DEFAULT_PINATA_API_URL)
	v.SetDefault("redis.key_prefix", "marketplace-mirror")
}

func (c StarknetConfig) validate() error {
	if _, err := c.Chain(); err != nil {
		return err
	}
	if c.MarketplaceContract == "" || c.CollectionContract == "" {
		return errors.New("starknet contracts must be configured")
	}
	return nil
}

// readConfig reads the config file; a missing file leaves defaults and env vars in place
func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read config: %w", err)
	}
	return nil
}

// configureViper returns a viper instance with the config file and environment variables set
func configureViper(service string, configFile string, envPath string) *viper.Viper {
	v := viper.New()

	loadEnv(envPath, service)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(fmt.Sprintf("cmd/%s/", service))
		v.AddConfigPath("config/")
	}

	v.SetEnvPrefix("MARKETPLACE_MIRROR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Without a config file viper only maps env vars for keys it has seen
	bindAllEnvVars(v)
	return v
}

func bindAllEnvVars(v *viper.Viper) {
	keys := []string{
		"debug",
		"log_level",
		"sentry_dsn",
		// Database
		"database.host",
		"database.port",
		"database.user",
		"database.password",
		"database.dbname",
		"database.sslmode",
		"database.max_open_conns",
		"database.max_idle_conns",
		"database.conn_max_lifetime",
		"database.conn_max_idle_time",
		"database.slow_query_threshold",
		// Starknet
		"starknet.network",
		"starknet.rpc_url",
		"starknet.marketplace_contract",
		"starknet.collection_contract",
		"starknet.start_block",
		"starknet.rpc_timeout",
		"starknet.rpc_max_retries",
		"starknet.requests_per_second",
		"starknet.requests_burst",
		"starknet.block_head_ttl",
		"starknet.block_head_stale_window",
		// Mirror
		"mirror.poll_interval",
		"mirror.batch_size",
		"mirror.metadata_batch",
		// Orchestrator
		"orchestrator.poll_interval",
		"orchestrator.stale_job_timeout",
		"orchestrator.reaper_schedule",
		"orchestrator.expiry_schedule",
		// URI
		"uri.ipfs_gateways",
		"uri.fetch_timeout",
		// Pinata
		"pinata.jwt",
		"pinata.gateway",
		"pinata.api_url",
		// NATS
		"nats.url",
		"nats.stream_name",
		"nats.max_reconnects",
		"nats.reconnect_wait",
		"nats.connection_name",
		// Redis
		"redis.addr",
		"redis.password",
		"redis.db",
		"redis.key_prefix",
		// Server
		"server.host",
		"server.port",
		"server.read_timeout",
		"server.write_timeout",
	}

	for _, key := range keys {
		_ = v.BindEnv(key)
	}
}

// loadEnv loads .env, .env.local and .env.<service>.local from envPath, later files winning
func loadEnv(envPath string, service string) {
	envFiles := []string{".env", ".env.local"}
	if service != "" {
		envFiles = append(envFiles, ".env."+service+".local")
	}

	if envPath == "" {
		envPath = "config/"
	}

	for _, envFile := range envFiles {
		_ = godotenv.Overload(filepath.Join(envPath, envFile))
	}
}

// ChdirRepoRoot changes the working directory to the nearest ancestor holding a config/ directory
func ChdirRepoRoot() {
	cwd, _ := os.Getwd()
	for range 5 {
		if _, err := os.Stat(filepath.Join(cwd, "config")); err == nil {
			_ = os.Chdir(cwd)
			return
		}
		cwd = filepath.Dir(cwd)
	}
}

// DSN returns the database connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}
