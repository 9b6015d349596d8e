package client

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAppConfigDefaults(t *testing.T) {
	dir := t.TempDir()

	// No conf file; overrides supply the required contract address.
	cfg, err := LoadAppConfig(dir, ConfigOverrides{ContractAddr: "0xcc"})
	require.NoError(t, err)
	assert.Equal(t, dir, cfg.DataDir)
	assert.Equal(t, "http://127.0.0.1:8545", cfg.RPCURL)
	assert.Equal(t, "0xcc", cfg.ContractAddr)
	assert.Equal(t, filepath.Join(dir, "key.hex"), cfg.KeyFile)
	assert.Equal(t, 5*time.Second, cfg.PollInterval)
	assert.Equal(t, uint64(10), cfg.LookbackBlocks)
}

func TestLoadAppConfigFile(t *testing.T) {
	dir := t.TempDir()
	conf := `rpcurl=https://rpc.example.org
contractaddr=0x00000000000000000000000000000000000000cc
origin=https://vault.example.org
debuglevel=CLNT=debug
pollintervalms=2500
lookbackblocks=20
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, confFilename), []byte(conf), 0o600))

	cfg, err := LoadAppConfig(dir, ConfigOverrides{})
	require.NoError(t, err)
	assert.Equal(t, "https://rpc.example.org", cfg.RPCURL)
	assert.Equal(t, "https://vault.example.org", cfg.Origin)
	assert.Equal(t, "CLNT=debug", cfg.DebugLevel)
	assert.Equal(t, 2500*time.Millisecond, cfg.PollInterval)
	assert.Equal(t, uint64(20), cfg.LookbackBlocks)

	// CLI overrides beat the file.
	cfg, err = LoadAppConfig(dir, ConfigOverrides{RPCURL: "http://localhost:9999"})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9999", cfg.RPCURL)
}

func TestLoadAppConfigRequiresContract(t *testing.T) {
	_, err := LoadAppConfig(t.TempDir(), ConfigOverrides{})
	assert.Error(t, err)
}

func TestLoadAppConfigBadValues(t *testing.T) {
	dir := t.TempDir()
	conf := "contractaddr=0xcc\npollintervalms=nope\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, confFilename), []byte(conf), 0o600))
	_, err := LoadAppConfig(dir, ConfigOverrides{})
	assert.Error(t, err)
}

func TestReadKeyHex(t *testing.T) {
	dir := t.TempDir()
	keyFile := filepath.Join(dir, "key.hex")
	require.NoError(t, os.WriteFile(keyFile, []byte("0xDEADbeef00\n"), 0o600))

	cfg := &AppConfig{KeyFile: keyFile}
	hex, err := cfg.ReadKeyHex()
	require.NoError(t, err)
	assert.Equal(t, "DEADbeef00", hex)

	cfg.KeyFile = filepath.Join(dir, "missing")
	_, err = cfg.ReadKeyHex()
	assert.Error(t, err)
}
