package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleTOML = `
chain_name = "ethereum"
http_endpoint = "https://rpc.example/eth"
ws_endpoint = "wss://rpc.example/eth"
wallet_address = "0xabc"
private_key = "0xdeadbeef"
taxed_tokens = false
order_cancellation = true
order_refresh = true

[logging]
level = "debug"
format = "text"

[simulator]
max_concurrent_balance_checks = 8
`

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "coex.toml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestLoadAppliesDefaultsAndOverrides(t *testing.T) {
	path := writeTempConfig(t, sampleTOML)

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, "ethereum", cfg.ChainName)
	require.Equal(t, "debug", cfg.Logging.Level)
	require.Equal(t, 8, cfg.Simulator.MaxConcurrentBalanceChecks)
	require.Equal(t, "500ms", cfg.TxManager.SubmitRetryBackoff.String())
	require.Equal(t, "12h0m0s", cfg.CheckIn.Interval.String())
}

func TestLoadPrivateKeyEnvOverride(t *testing.T) {
	path := writeTempConfig(t, sampleTOML)
	t.Setenv("COEX_PRIVATE_KEY", "0xoverridden")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "0xoverridden", cfg.PrivateKey)
}

func TestValidateRejectsUnknownChain(t *testing.T) {
	cfg := &Config{ChainName: "not-a-real-chain"}
	err := cfg.Validate()
	require.Error(t, err)
}

func TestValidateRejectsMissingFields(t *testing.T) {
	cfg := &Config{
		ChainName:    "ethereum",
		HTTPEndpoint: "https://rpc",
		WSEndpoint:   "wss://rpc",
	}
	err := cfg.Validate()
	require.Error(t, err)
}

func TestValidateAcceptsCompleteConfig(t *testing.T) {
	cfg := &Config{
		ChainName:     "ethereum",
		HTTPEndpoint:  "https://rpc",
		WSEndpoint:    "wss://rpc",
		WalletAddress: "0xabc",
		PrivateKey:    "0xdeadbeef",
		Simulator:     SimulatorConfig{MaxConcurrentBalanceChecks: 4},
	}
	require.NoError(t, cfg.Validate())
}
