package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const sampleYAML = `
port: "9090"
chains:
  - name: ethereum
    symbol: ETH
    rpc: http://localhost:8545
    chain_id: 1
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadAppliesDefaultsAndSecrets(t *testing.T) {
	t.Setenv("WALLET_ENCRYPTION_KEY", "k3y")
	t.Setenv("WALLET_MONGO_URI", "mongodb://db:27017")

	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	require.Equal(t, "9090", cfg.Port)
	require.Equal(t, "wallet_service", cfg.Mongo.Database)
	require.Equal(t, "ethereum", cfg.ENSChain)
	require.Equal(t, 1<<15, cfg.Cipher.ScryptN)
	require.Equal(t, 2*time.Second, cfg.Confirm.PollInterval)
	require.Equal(t, "k3y", cfg.Secrets.EncryptionKey)
	require.Equal(t, "mongodb://db:27017", cfg.Secrets.MongoURI)
	require.Len(t, cfg.Chains, 1)
	require.Equal(t, int64(1), cfg.Chains[0].ChainID)
}

func TestLoadRequiresEncryptionKey(t *testing.T) {
	t.Setenv("WALLET_ENCRYPTION_KEY", "")
	_, err := Load(writeConfig(t, sampleYAML))
	require.Error(t, err)

	require.NoError(t, os.Unsetenv("WALLET_ENCRYPTION_KEY"))
	_, err = Load(writeConfig(t, sampleYAML))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := &Config{
		Chains:   []EthConfig{{Name: "ethereum", RPC: "http://x"}},
		ENSChain: "ethereum",
		Cipher:   CipherConfig{ScryptN: 1 << 14},
	}
	require.NoError(t, cfg.Validate())

	cfg.ENSChain = "base"
	require.Error(t, cfg.Validate())

	cfg.ENSChain = "ethereum"
	cfg.Cipher.ScryptN = 1000
	require.Error(t, cfg.Validate())

	cfg.Cipher.ScryptN = 1 << 21
	require.Error(t, cfg.Validate())

	cfg.Cipher.ScryptN = 1 << 14
	cfg.Chains = append(cfg.Chains, EthConfig{Name: "ethereum", RPC: "http://y"})
	require.Error(t, cfg.Validate())
}
