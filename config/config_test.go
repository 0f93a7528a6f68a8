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
	path := filepath.Join(t.TempDir(), "lockberry.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadFullConfig(t *testing.T) {
	path := writeConfig(t, `
node:
  operator_id: vanguard
  listen_addr: /ip4/127.0.0.1/tcp/9100
  peers:
    - /ip4/127.0.0.1/tcp/9000/p2p/QmPeer
  rebroadcast_interval: 500ms
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "vanguard", cfg.Node.OperatorID)
	require.Equal(t, "/ip4/127.0.0.1/tcp/9100", cfg.Node.ListenAddr)
	require.Len(t, cfg.Node.Peers, 1)

	interval, err := cfg.RebroadcastInterval()
	require.NoError(t, err)
	require.Equal(t, 500*time.Millisecond, interval)
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
node:
  operator_id: vanguard
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "/ip4/0.0.0.0/tcp/9000", cfg.Node.ListenAddr)

	interval, err := cfg.RebroadcastInterval()
	require.NoError(t, err)
	require.Equal(t, 2*time.Second, interval)
}

func TestLoadRejectsMissingOperator(t *testing.T) {
	path := writeConfig(t, `
node:
  listen_addr: /ip4/127.0.0.1/tcp/9100
`)

	_, err := Load(path)
	require.ErrorContains(t, err, "operator_id")
}

func TestLoadRejectsBadInterval(t *testing.T) {
	path := writeConfig(t, `
node:
  operator_id: vanguard
  rebroadcast_interval: soon
`)

	_, err := Load(path)
	require.ErrorContains(t, err, "rebroadcast_interval")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}
