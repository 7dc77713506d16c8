package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-marketplace-mirror/internal/domain"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	if content == "" {
		return filepath.Join(t.TempDir(), "nonexistent.yaml")
	}
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadIndexerConfig(t *testing.T) {
	tests := []struct {
		name        string
		configFile  string
		expectError bool
		validate    func(*testing.T, *IndexerConfig)
	}{
		{
			name: "valid config file",
			configFile: `
debug: true
sentry_dsn: "https://sentry.example.com"
database:
  host: localhost
  port: 5433
  user: testuser
  password: testpass
  dbname: testdb
  sslmode: require
starknet:
  network: sepolia
  rpc_url: "https://starknet-sepolia.example.com"
  marketplace_contract: "0x123"
  collection_contract: "0x456"
  start_block: 1000
  requests_per_second: 2.5
mirror:
  poll_interval: 3s
  batch_size: 100
orchestrator:
  stale_job_timeout: 5m
uri:
  ipfs_gateways:
    - "https://gw.example.com"
pinata:
  jwt: "jwt-token"
nats:
  url: "nats://localhost:4222"
redis:
  addr: "localhost:6379"
server:
  port: 9090
`,
			validate: func(t *testing.T, cfg *IndexerConfig) {
				assert.True(t, cfg.Debug)
				assert.Equal(t, "https://sentry.example.com", cfg.SentryDSN)
				assert.Equal(t, 5433, cfg.Database.Port)
				assert.Equal(t, "require", cfg.Database.SSLMode)

				chain, err := cfg.Starknet.Chain()
				require.NoError(t, err)
				assert.Equal(t, domain.ChainStarknetSepolia, chain)
				assert.Equal(t, "0x123", cfg.Starknet.MarketplaceContract)
				assert.Equal(t, uint64(1000), cfg.Starknet.StartBlock)
				assert.InDelta(t, 2.5, cfg.Starknet.RequestsPerSecond, 0.0001)

				assert.Equal(t, 3*time.Second, cfg.Mirror.PollInterval)
				assert.Equal(t, uint64(100), cfg.Mirror.BatchSize)
				assert.Equal(t, 5*time.Minute, cfg.Orchestrator.StaleJobTimeout)
				assert.Equal(t, []string{"https://gw.example.com"}, cfg.URI.IPFSGateways)
				assert.Equal(t, "jwt-token", cfg.Pinata.JWT)
				assert.Equal(t, "nats://localhost:4222", cfg.NATS.URL)
				assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
				assert.Equal(t, "0.0.0.0:9090", cfg.Server.Address())
			},
		},
		{
			name: "config with defaults",
			configFile: `
database:
  host: localhost
starknet:
  rpc_url: "https://starknet-mainnet.example.com"
`,
			validate: func(t *testing.T, cfg *IndexerConfig) {
				assert.Equal(t, 5432, cfg.Database.Port)
				assert.Equal(t, "disable", cfg.Database.SSLMode)

				chain, err := cfg.Starknet.Chain()
				require.NoError(t, err)
				assert.Equal(t, domain.ChainStarknetMainnet, chain)
				assert.Equal(t, domain.MAINNET_MARKETPLACE_CONTRACT, cfg.Starknet.MarketplaceContract)
				assert.Equal(t, domain.MAINNET_COLLECTION_CONTRACT, cfg.Starknet.CollectionContract)
				assert.Equal(t, uint64(domain.MAINNET_START_BLOCK), cfg.Starknet.StartBlock)
				assert.Equal(t, 30*time.Second, cfg.Starknet.RPCTimeout)

				assert.Equal(t, 6*time.Second, cfg.Mirror.PollInterval)
				assert.Equal(t, uint64(500), cfg.Mirror.BatchSize)
				assert.Equal(t, 200, cfg.Mirror.MetadataBatch)
				assert.Equal(t, 2*time.Second, cfg.Orchestrator.PollInterval)
				assert.Equal(t, "@every 1m", cfg.Orchestrator.ReaperSchedule)
				assert.Len(t, cfg.URI.IPFSGateways, 3)
				assert.Equal(t, "https://gateway.pinata.cloud/ipfs", cfg.URI.IPFSGateways[0])
				assert.Equal(t, 10*time.Second, cfg.URI.FetchTimeout)
				assert.Equal(t, "MARKETPLACE_EVENTS", cfg.NATS.StreamName)
				assert.Empty(t, cfg.NATS.URL)
				assert.Empty(t, cfg.Redis.Addr)
				assert.Equal(t, 8081, cfg.Server.Port)
			},
		},
		{
			name:       "missing config file",
			configFile: "",
			validate: func(t *testing.T, cfg *IndexerConfig) {
				assert.Equal(t, uint64(500), cfg.Mirror.BatchSize)
			},
		},
		{
			name: "unsupported network",
			configFile: `
starknet:
  network: goerli
`,
			expectError: true,
		},
		{
			name: "invalid value",
			configFile: `
database:
  port: invalid
`,
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadIndexerConfig("indexer", writeConfig(t, tt.configFile), t.TempDir())

			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, cfg)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, cfg)
			tt.validate(t, cfg)
		})
	}
}

func TestLoadWorkerConfig(t *testing.T) {
	cfg, err := LoadWorkerConfig(writeConfig(t, `
database:
  host: db
orchestrator:
  poll_interval: 500ms
pinata:
  jwt: "abc"
`), t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "db", cfg.Database.Host)
	assert.Equal(t, 500*time.Millisecond, cfg.Orchestrator.PollInterval)
	assert.Equal(t, 10*time.Minute, cfg.Orchestrator.StaleJobTimeout)
	assert.Equal(t, "abc", cfg.Pinata.JWT)
	assert.Equal(t, domain.DEFAULT_PINATA_API_URL, cfg.Pinata.APIURL)
}

func TestDatabaseConfig_DSN(t *testing.T) {
	cfg := DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "user",
		Password: "p@ssw0rd!",
		DBName:   "mirror",
		SSLMode:  "disable",
	}
	assert.Equal(t, "host=localhost port=5432 user=user password=p@ssw0rd! dbname=mirror sslmode=disable", cfg.DSN())
}

func TestConfigWithEnvironmentVariables(t *testing.T) {
	tmpDir := t.TempDir()
	envDir := filepath.Join(tmpDir, "env")
	require.NoError(t, os.MkdirAll(envDir, 0750))

	// godotenv sets process env vars; registering them here restores them after the test
	for _, key := range []string{
		"MARKETPLACE_MIRROR_DEBUG",
		"MARKETPLACE_MIRROR_DATABASE_HOST",
		"MARKETPLACE_MIRROR_DATABASE_PORT",
		"MARKETPLACE_MIRROR_STARKNET_START_BLOCK",
		"MARKETPLACE_MIRROR_PINATA_JWT",
	} {
		t.Setenv(key, "")
	}

	require.NoError(t, os.WriteFile(filepath.Join(envDir, ".env"), []byte(`MARKETPLACE_MIRROR_DEBUG=true
MARKETPLACE_MIRROR_DATABASE_HOST=env-host
MARKETPLACE_MIRROR_DATABASE_PORT=6543
MARKETPLACE_MIRROR_STARKNET_START_BLOCK=7000000
`), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(envDir, ".env.indexer.local"), []byte(`MARKETPLACE_MIRROR_PINATA_JWT=local-jwt
`), 0600))

	configPath := filepath.Join(tmpDir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(`
debug: false
database:
  host: file-host
  port: 5432
`), 0600))

	cfg, err := LoadIndexerConfig("indexer", configPath, envDir)
	require.NoError(t, err)

	assert.True(t, cfg.Debug)
	assert.Equal(t, "env-host", cfg.Database.Host)
	assert.Equal(t, 6543, cfg.Database.Port)
	assert.Equal(t, uint64(7000000), cfg.Starknet.StartBlock)
	assert.Equal(t, "local-jwt", cfg.Pinata.JWT)
}
