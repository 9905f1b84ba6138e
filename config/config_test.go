package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
bech32_prefix: juno
chain_id: juno-1
rpc_endpoint: http://localhost:26657
database_url: postgres://indexer@localhost/indexer
send_webhooks: true
state_event_allowlist:
  osmosis-1:
    - code_ids_keys: ["cl-vault"]
      state_keys: ["contract_info"]
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "juno", cfg.Bech32Prefix)
	require.Equal(t, "juno-1", cfg.ChainID)
	require.True(t, cfg.SendWebhooks)
	require.Equal(t, DefaultResolverTimeout, cfg.ResolverTimeout)

	rules := cfg.AllowlistForChain("osmosis-1")
	require.Len(t, rules, 1)
	require.Equal(t, []string{"cl-vault"}, rules[0].CodeIDsKeys)
	require.Equal(t, []string{"contract_info"}, rules[0].StateKeys)
	require.Nil(t, cfg.AllowlistForChain("juno-1"))
}

func TestLoadExpandsEnv(t *testing.T) {
	t.Setenv("INDEXER_TEST_DB", "postgres://fromenv/indexer")

	path := writeConfig(t, `
bech32_prefix: juno
rpc_endpoint: "envOptional:INDEXER_TEST_RPC_UNSET"
database_url: "env:INDEXER_TEST_DB"
`)

	// optional variable unset becomes empty, which then fails validation
	_, err := Load(path)
	require.ErrorContains(t, err, "rpc_endpoint must be set")

	t.Setenv("INDEXER_TEST_RPC_UNSET", "http://localhost:26657")
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "postgres://fromenv/indexer", cfg.DatabaseURL)
	require.Equal(t, "http://localhost:26657", cfg.RPCEndpoint)
}

func TestLoadRequiredEnvMissing(t *testing.T) {
	path := writeConfig(t, `
bech32_prefix: juno
rpc_endpoint: http://localhost:26657
database_url: "env:INDEXER_TEST_DB_MISSING"
`)

	_, err := Load(path)
	require.ErrorContains(t, err, "INDEXER_TEST_DB_MISSING is not set")
}

func TestValidate(t *testing.T) {
	cfg := &Config{
		Bech32Prefix:    "juno",
		RPCEndpoint:     "http://localhost:26657",
		DatabaseURL:     "postgres://indexer@localhost/indexer",
		ResolverTimeout: time.Second,
	}
	require.NoError(t, cfg.Validate())

	missingPrefix := *cfg
	missingPrefix.Bech32Prefix = ""
	require.Error(t, missingPrefix.Validate())

	missingRPC := *cfg
	missingRPC.RPCEndpoint = ""
	require.Error(t, missingRPC.Validate())
}
