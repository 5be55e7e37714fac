package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.Equal(t, 10*time.Second, cfg.Adapter.ConnectTimeout)
	require.Empty(t, cfg.Adapter.Command)
	require.Empty(t, cfg.Bridge.ListenAddr)
	require.Zero(t, cfg.Logging.Verbosity)
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bridge.yaml")
	content := `
adapter:
  command: "python -m debugpy.adapter"
  connect_timeout: 3s
bridge:
  listen_addr: "127.0.0.1:9229"
  transcript_dir: "/var/log/nbdap"
logging:
  verbosity: 2
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "python -m debugpy.adapter", cfg.Adapter.Command)
	require.Equal(t, 3*time.Second, cfg.Adapter.ConnectTimeout)
	require.Equal(t, "127.0.0.1:9229", cfg.Bridge.ListenAddr)
	require.Equal(t, "/var/log/nbdap", cfg.Bridge.TranscriptDir)
	require.Equal(t, 2, cfg.Logging.Verbosity)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("adapter: [unclosed"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("NBDAP_ADAPTER_CMD", "debugpy-run")
	t.Setenv("NBDAP_ADAPTER_ADDR", "127.0.0.1:5678")
	t.Setenv("NBDAP_SCRATCH_DIR", "/tmp/scratch")
	t.Setenv("NBDAP_TRANSCRIPT_DIR", "/tmp/transcripts")
	t.Setenv("NBDAP_LISTEN_ADDR", "127.0.0.1:9000")
	t.Setenv("NBDAP_CONNECT_TIMEOUT", "2500ms")

	cfg := Default()
	ApplyEnv(cfg)

	require.Equal(t, "debugpy-run", cfg.Adapter.Command)
	require.Equal(t, "127.0.0.1:5678", cfg.Adapter.Addr)
	require.Equal(t, "/tmp/scratch", cfg.Bridge.ScratchDir)
	require.Equal(t, "/tmp/transcripts", cfg.Bridge.TranscriptDir)
	require.Equal(t, "127.0.0.1:9000", cfg.Bridge.ListenAddr)
	require.Equal(t, 2500*time.Millisecond, cfg.Adapter.ConnectTimeout)
}

func TestApplyEnvInvalidTimeoutKeepsCurrent(t *testing.T) {
	for _, raw := range []string{"soon", "-3s", "0"} {
		t.Setenv("NBDAP_CONNECT_TIMEOUT", raw)
		cfg := Default()
		ApplyEnv(cfg)
		require.Equal(t, 10*time.Second, cfg.Adapter.ConnectTimeout, "value %q", raw)
	}
}
