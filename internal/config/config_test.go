package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "icecam.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 1, cfg.Components)
	assert.Equal(t, 500*time.Millisecond, cfg.Worker.TickBound)
	assert.Equal(t, 1, cfg.Worker.MaxIOEvents)
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
components: 2
stun_server: stun.example.org:3478
turn:
  server: turn.example.org:3478
  username: alice
  password: secret
  tcp: true
port_min: 40000
port_max: 40100
negotiation_timeout: 45s
worker:
  tick_bound: 250ms
  max_io_events: 4
log_file: /tmp/icecam.log
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 2, cfg.Components)
	assert.Equal(t, "stun.example.org:3478", cfg.STUNServer)
	assert.Equal(t, "alice", cfg.TURN.Username)
	assert.True(t, cfg.TURN.TCP)
	assert.EqualValues(t, 40000, cfg.PortMin)
	assert.Equal(t, 45*time.Second, cfg.NegotiationTimeout)
	assert.Equal(t, 250*time.Millisecond, cfg.Worker.TickBound)
	assert.Equal(t, 4, cfg.Worker.MaxIOEvents)
	assert.Equal(t, "/tmp/icecam.log", cfg.LogFile)

	// Unset keys keep their defaults.
	assert.Equal(t, 256, cfg.Worker.QueueLength)
	assert.Equal(t, 2*time.Second, cfg.KeepaliveInterval)
}

func TestLoadEmptyFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "componets: 2\n"))
	assert.Error(t, err, "unknown keys are rejected")

	_, err = Load(writeConfig(t, "negotiation_timeout: soon\n"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cases := map[string]func(c *Config){
		"no components":       func(c *Config) { c.Components = 0 },
		"too many components": func(c *Config) { c.Components = MaxComponents + 1 },
		"empty port range":    func(c *Config) { c.PortMin, c.PortMax = 5000, 4000 },
		"zero timeout":        func(c *Config) { c.NegotiationTimeout = 0 },
		"zero keepalive":      func(c *Config) { c.KeepaliveInterval = 0 },
		"negative stats":      func(c *Config) { c.StatsInterval = -time.Second },
		"zero tick":           func(c *Config) { c.Worker.TickBound = 0 },
		"zero burst":          func(c *Config) { c.Worker.MaxIOEvents = 0 },
		"zero queue":          func(c *Config) { c.Worker.QueueLength = 0 },
		"negative grace":      func(c *Config) { c.Worker.ShutdownGrace = -time.Second },
		"negative capacity":   func(c *Config) { c.DescriptionCapacity = -1 },
		"orphan credentials":  func(c *Config) { c.TURN.Username = "alice" },
		"bad log level":       func(c *Config) { c.LogLevel = "loud" },
		"negative max host":   func(c *Config) { c.MaxHostCandidates = -1 },
		"nameserver hostname": func(c *Config) { c.Nameserver = "dns.example.org" },
	}
	for name, mutate := range cases {
		cfg := Default()
		mutate(cfg)
		assert.Error(t, cfg.Validate(), name)
	}

	cfg := Default()
	cfg.PortMin = 5000
	assert.NoError(t, cfg.Validate(), "open-ended port range")
}

func TestParseFlags(t *testing.T) {
	cfg, flags, err := Parse("icecam", []string{"-c", "3", "-s", "stun.example.org:3478", "--turn-tcp", "-L", "out.log"})
	require.NoError(t, err)
	assert.False(t, flags.Help)
	assert.Equal(t, 3, cfg.Components)
	assert.Equal(t, "stun.example.org:3478", cfg.STUNServer)
	assert.True(t, cfg.TURN.TCP)
	assert.Equal(t, "out.log", cfg.LogFile)
}

func TestParseNameserverAndMaxHost(t *testing.T) {
	cfg, _, err := Parse("icecam", []string{"-n", "10.0.0.53", "-H", "2"})
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.53", cfg.Nameserver)
	assert.Equal(t, 2, cfg.MaxHostCandidates)

	ec := cfg.EngineConfig()
	assert.Equal(t, "10.0.0.53", ec.Nameserver)
	assert.Equal(t, 2, ec.MaxHostCandidates)

	cfg, _, err = Parse("icecam", []string{"--nameserver=[fe80::1]:5353"})
	require.NoError(t, err)
	assert.Equal(t, "[fe80::1]:5353", cfg.Nameserver)
	assert.Equal(t, 0, cfg.MaxHostCandidates, "unlimited by default")
}

func TestParseFlagsOverrideFile(t *testing.T) {
	path := writeConfig(t, "components: 2\nstun_server: file.example.org:3478\n")
	cfg, flags, err := Parse("icecam", []string{"--config", path, "--comp-cnt=4"})
	require.NoError(t, err)
	assert.Equal(t, path, flags.ConfigFile)
	assert.Equal(t, 4, cfg.Components)
	assert.Equal(t, "file.example.org:3478", cfg.STUNServer)
}

func TestParseHelp(t *testing.T) {
	_, flags, err := Parse("icecam", []string{"-h"})
	require.NoError(t, err)
	assert.True(t, flags.Help)

	_, flags, err = Parse("icecam", []string{"--version"})
	require.NoError(t, err)
	assert.True(t, flags.Version)
}

func TestParseRejects(t *testing.T) {
	_, _, err := Parse("icecam", []string{"--bogus"})
	assert.Error(t, err)

	_, _, err = Parse("icecam", []string{"-c", "0"})
	assert.Error(t, err)
}

func TestEngineConfig(t *testing.T) {
	cfg := Default()
	cfg.STUNServer = "stun.example.org:3478"
	cfg.TURN = TURNConfig{Server: "turn.example.org:3478", Username: "u", Password: "p", TCP: true}
	cfg.EnableIPv6 = true

	ec := cfg.EngineConfig()
	assert.Equal(t, cfg.STUNServer, ec.STUNServer)
	assert.Equal(t, "turn.example.org:3478", ec.TURNServer)
	assert.Equal(t, "u", ec.TURNUsername)
	assert.Equal(t, "p", ec.TURNPassword)
	assert.True(t, ec.TURNOverTCP)
	assert.True(t, ec.EnableIPv6)
	assert.Equal(t, cfg.NegotiationTimeout, ec.NegotiationTimeout)
	assert.Equal(t, cfg.StatsInterval, ec.StatsInterval)
}
