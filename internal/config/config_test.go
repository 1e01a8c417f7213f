package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 5*time.Second, cfg.Broker.WriteTimeout)
	assert.False(t, cfg.Metrics.Enabled)
	assert.NotEmpty(t, cfg.Log.Appenders)
}

func TestLoadValidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "netkit.yaml")
	content := `
log:
  level: debug
  appenders:
    - type: console
    - type: file
      options:
        filename: /tmp/netkit.log
        maxsize: 10
metrics:
  enabled: true
  listen: "127.0.0.1:9999"
broker:
  write_timeout: 2s
  event_queue: 64
router:
  capture:
    snap_len: 2048
    bpf_filter: "arp or ip"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	require.Len(t, cfg.Log.Appenders, 2)
	assert.Equal(t, "file", cfg.Log.Appenders[1].Type)

	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "127.0.0.1:9999", cfg.Metrics.Listen)
	assert.Equal(t, "/metrics", cfg.Metrics.Path, "unset fields keep defaults")

	assert.Equal(t, 2*time.Second, cfg.Broker.WriteTimeout)
	assert.Equal(t, 64, cfg.Broker.EventQueue)

	assert.Equal(t, "arp or ip", cfg.Router.Capture["bpf_filter"])
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log: [unclosed"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}
