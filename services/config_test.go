package services

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		EnvRPCURL, EnvChainID, EnvAddress, EnvMembers, EnvPrivateKey, EnvGasLimit,
		EnvGasPrice, EnvMaxActionAge, EnvReceiptPollInterval, EnvReceiptTimeout, EnvConcurrency, EnvKeystorePassword,
	} {
		t.Setenv(k, "")
	}
}

func writeEnvFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfigFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfigFromEnv("")
	require.NoError(t, err)
	assert.Equal(t, DefaultRPCURL, cfg.RPCURL)
	assert.Equal(t, int64(DefaultChainID), cfg.ChainID.Int64())
	assert.Equal(t, DefaultReceiptTimeout, cfg.ReceiptTimeout)
	assert.Equal(t, "secret", cfg.KeystorePassword)
	assert.Error(t, cfg.Validate(), "DAO address is required")
}

func TestLoadConfigFromEnv_File(t *testing.T) {
	clearEnv(t)
	path := writeEnvFile(t, `
DAO_RPC_URL=ws://127.0.0.1:8546
DAO_CHAIN_ID=31337
DAO_ADDRESS=0x5FbDB2315678afecb367f032d93F642f64180aa3
DAO_MEMBERS=0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266,0x70997970C51812dc3A010C7d01b50e0d17dc79C8
PRIVATE_KEY=0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80
DAO_GAS_LIMIT=500000
DAO_GAS_PRICE=1000000000
DAO_MAX_ACTION_AGE=10m
DAO_RECEIPT_POLL_INTERVAL=250ms
DAO_SIGN_CONCURRENCY=4
DAO_KEYSTORE_PASSWORD=secret
`)

	cfg, err := LoadConfigFromEnv(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "ws://127.0.0.1:8546", cfg.RPCURL)
	assert.Equal(t, int64(31337), cfg.ChainID.Int64())
	assert.Equal(t, common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3"), cfg.DAOAddress)
	assert.Equal(t, []common.Address{
		common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"),
		common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8"),
	}, cfg.Members)
	assert.Equal(t, uint64(500000), cfg.GasLimit)
	assert.Equal(t, int64(1000000000), cfg.GasPrice.Int64())
	assert.Equal(t, 10*time.Minute, cfg.MaxActionAge)
	assert.Equal(t, 250*time.Millisecond, cfg.ReceiptPollInterval)
	assert.Equal(t, DefaultReceiptTimeout, cfg.ReceiptTimeout)
	assert.Equal(t, 4, cfg.Concurrency)
	assert.NotEmpty(t, cfg.PrivateKey)

	cc := cfg.ClientConfig()
	assert.Equal(t, "ws://127.0.0.1:8546", cc.Endpoint)
	assert.Empty(t, cc.Protocol)
}

func TestLoadConfigFromEnv_ProcessEnvWins(t *testing.T) {
	clearEnv(t)
	path := writeEnvFile(t, "DAO_CHAIN_ID=31337\n")
	t.Setenv(EnvChainID, "5")

	cfg, err := LoadConfigFromEnv(path)
	require.NoError(t, err)
	assert.Equal(t, int64(5), cfg.ChainID.Int64())
}

func TestLoadConfigFromEnv_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  string
	}{
		{name: "chain id", env: "DAO_CHAIN_ID=abc"},
		{name: "zero chain id", env: "DAO_CHAIN_ID=0"},
		{name: "address", env: "DAO_ADDRESS=0x1234"},
		{name: "bad checksum", env: "DAO_ADDRESS=0x5FbDB2315678afecb367f032d93F642f64180aA3"},
		{name: "members", env: "DAO_MEMBERS=0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266,nope"},
		{name: "gas limit", env: "DAO_GAS_LIMIT=-1"},
		{name: "duration", env: "DAO_RECEIPT_TIMEOUT=soon"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			_, err := LoadConfigFromEnv(writeEnvFile(t, tt.env+"\n"))
			assert.Error(t, err)
		})
	}
}

func TestLoadConfigFromEnv_MissingFile(t *testing.T) {
	clearEnv(t)
	_, err := LoadConfigFromEnv(filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}
