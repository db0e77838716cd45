package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	c := NewDefaultConfig()

	require.NoError(t, c.Validate())
	assert.Equal(t, 10, c.MaxAttempts)
	assert.Equal(t, 250*time.Millisecond, c.MinBackoff)
	assert.Equal(t, 8*time.Second, c.MaxBackoff)
	assert.Equal(t, 8*time.Second, c.NodeMinBackoff)
	assert.Equal(t, time.Hour, c.NodeMaxBackoff)
	assert.Equal(t, filepath.Join(c.DataDir, DefaultKeyfile), c.Keyfile())
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hgclient.yaml")

	yaml := `
network: previewnet
log: warn
max-attempts: 4
min-backoff: 100ms
node-max-backoff: 10m
address-mode: tls
nodes:
  - 0.0.3@127.0.0.1:50211
  - 0.0.4@127.0.0.2:50211
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0600))

	c, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "previewnet", c.Network)
	assert.Equal(t, "warn", c.LogLevel)
	assert.Equal(t, 4, c.MaxAttempts)
	assert.Equal(t, 100*time.Millisecond, c.MinBackoff)
	assert.Equal(t, 10*time.Minute, c.NodeMaxBackoff)
	assert.Equal(t, AddressModeTLS, c.AddressMode)
	// untouched values keep their defaults
	assert.Equal(t, DefaultMaxBackoff, c.MaxBackoff)

	nodes, err := c.ParseNodes()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"127.0.0.1:50211": "0.0.3",
		"127.0.0.2:50211": "0.0.4",
	}, nodes)
}

func TestLoadFileInvalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hgclient.yaml")

	require.NoError(t, os.WriteFile(path, []byte("address-mode: carrier-pigeon\n"), 0600))

	_, err := LoadFile(path)
	assert.Error(t, err)

	_, err = LoadFile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestParseNodesInvalid(t *testing.T) {
	c := NewDefaultConfig()
	c.Nodes = []string{"127.0.0.1:50211"}

	_, err := c.ParseNodes()
	assert.Error(t, err)
}

func TestLogLevel(t *testing.T) {
	assert.Equal(t, logrus.WarnLevel, LogLevel("warn"))
	assert.Equal(t, logrus.DebugLevel, LogLevel("nonsense"))
}
