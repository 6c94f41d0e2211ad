// Package config assembles icecam's settings from defaults, an optional YAML
// file and the command line, in that order of precedence.
package config

import (
	"bytes"
	"io"
	"net"
	"os"
	"time"

	"github.com/pkg/errors"
	flag "github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/lanikai/icecam/internal/ice"
	"github.com/lanikai/icecam/internal/logging"
)

// Largest component count accepted.
const MaxComponents = 8

type Config struct {
	// Number of ICE components per session.
	Components int `yaml:"components"`

	// Host:port of STUN server. Empty disables server-reflexive candidates.
	STUNServer string `yaml:"stun_server"`

	TURN TURNConfig `yaml:"turn"`

	// IP[:port] of a DNS server for resolving the STUN and TURN hosts. Empty
	// uses the system resolver.
	Nameserver string `yaml:"nameserver"`

	// Most local addresses used for host candidates. Zero is unlimited.
	MaxHostCandidates int `yaml:"max_host_candidates"`

	EnableIPv6 bool `yaml:"enable_ipv6"`

	// Local UDP port range. Zero means any.
	PortMin uint16 `yaml:"port_min"`
	PortMax uint16 `yaml:"port_max"`

	NegotiationTimeout time.Duration `yaml:"negotiation_timeout"`
	KeepaliveInterval  time.Duration `yaml:"keepalive_interval"`

	// Zero disables the periodic selected-pair log.
	StatsInterval time.Duration `yaml:"stats_interval"`

	Worker WorkerConfig `yaml:"worker"`

	// Size limit for the local description printed by "show".
	DescriptionCapacity int `yaml:"description_capacity"`

	// Log output is copied to this file when set.
	LogFile string `yaml:"log_file"`

	// Default log level. Empty leaves the level from $LOGLEVEL, or info.
	// Tags named in $LOGLEVEL keep their own level either way.
	LogLevel string `yaml:"log_level"`
}

type TURNConfig struct {
	// Host:port of TURN server. Empty disables relayed candidates.
	Server   string `yaml:"server"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	TCP      bool   `yaml:"tcp"`
}

type WorkerConfig struct {
	// Longest single scheduler tick.
	TickBound time.Duration `yaml:"tick_bound"`

	// I/O events handled per tick.
	MaxIOEvents int `yaml:"max_io_events"`

	QueueLength int `yaml:"queue_length"`

	// Pause before joining the worker at shutdown.
	ShutdownGrace time.Duration `yaml:"shutdown_grace"`
}

func Default() *Config {
	return &Config{
		Components:         1,
		NegotiationTimeout: 30 * time.Second,
		KeepaliveInterval:  2 * time.Second,
		StatsInterval:      10 * time.Second,
		Worker: WorkerConfig{
			TickBound:     500 * time.Millisecond,
			MaxIOEvents:   1,
			QueueLength:   256,
			ShutdownGrace: 500 * time.Millisecond,
		},
		DescriptionCapacity: 4096,
	}
}

// Load returns the defaults overlaid with the YAML file at path. An empty
// path yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "cannot read config")
	}
	if err := cfg.decode(bytes.NewReader(data)); err != nil {
		return nil, errors.Wrapf(err, "invalid config %s", path)
	}
	return cfg, nil
}

func (c *Config) decode(r io.Reader) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	err := dec.Decode(c)
	if err == io.EOF {
		// Empty file.
		return nil
	}
	return err
}

// Validate reports the first setting that is out of range.
func (c *Config) Validate() error {
	if c.Components < 1 || c.Components > MaxComponents {
		return errors.Errorf("component count must be between 1 and %d, got %d", MaxComponents, c.Components)
	}
	if c.PortMin > c.PortMax && c.PortMax != 0 {
		return errors.Errorf("port range %d-%d is empty", c.PortMin, c.PortMax)
	}
	if c.NegotiationTimeout <= 0 {
		return errors.New("negotiation timeout must be positive")
	}
	if c.KeepaliveInterval <= 0 {
		return errors.New("keepalive interval must be positive")
	}
	if c.StatsInterval < 0 {
		return errors.New("stats interval must not be negative")
	}
	if c.Worker.TickBound <= 0 {
		return errors.New("worker tick bound must be positive")
	}
	if c.Worker.MaxIOEvents < 1 {
		return errors.New("worker must handle at least one I/O event per tick")
	}
	if c.Worker.QueueLength < 1 {
		return errors.New("worker queue length must be positive")
	}
	if c.Worker.ShutdownGrace < 0 {
		return errors.New("shutdown grace must not be negative")
	}
	if c.DescriptionCapacity < 0 {
		return errors.New("description capacity must not be negative")
	}
	if c.MaxHostCandidates < 0 {
		return errors.New("max host candidates must not be negative")
	}
	if c.Nameserver != "" {
		host := c.Nameserver
		if h, _, err := net.SplitHostPort(c.Nameserver); err == nil {
			host = h
		}
		if net.ParseIP(host) == nil {
			return errors.Errorf("nameserver must be an IP address, got %q", c.Nameserver)
		}
	}
	if c.TURN.Server == "" && (c.TURN.Username != "" || c.TURN.Password != "") {
		return errors.New("TURN credentials given without a TURN server")
	}
	if c.LogLevel != "" {
		if _, err := logging.ParseLevel(c.LogLevel); err != nil {
			return err
		}
	}
	return nil
}

// EngineConfig is the subset of settings the ICE engine needs.
func (c *Config) EngineConfig() ice.Config {
	return ice.Config{
		STUNServer:         c.STUNServer,
		TURNServer:         c.TURN.Server,
		TURNUsername:       c.TURN.Username,
		TURNPassword:       c.TURN.Password,
		TURNOverTCP:        c.TURN.TCP,
		Nameserver:         c.Nameserver,
		MaxHostCandidates:  c.MaxHostCandidates,
		EnableIPv6:         c.EnableIPv6,
		PortMin:            c.PortMin,
		PortMax:            c.PortMax,
		NegotiationTimeout: c.NegotiationTimeout,
		KeepaliveInterval:  c.KeepaliveInterval,
		StatsInterval:      c.StatsInterval,
	}
}

// Flags are the command-line settings that are not part of Config.
type Flags struct {
	ConfigFile string
	Help       bool
	Version    bool
}

// NewFlagSet binds command-line options to cfg and flags. The current values
// in cfg serve as the defaults.
func NewFlagSet(name string, cfg *Config, flags *Flags) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.Usage = func() {}

	fs.IntVarP(&cfg.Components, "comp-cnt", "c", cfg.Components, "Component count")
	fs.StringVarP(&cfg.STUNServer, "stun-srv", "s", cfg.STUNServer, "STUN server address")
	fs.StringVarP(&cfg.TURN.Server, "turn-srv", "t", cfg.TURN.Server, "TURN server address")
	fs.BoolVarP(&cfg.TURN.TCP, "turn-tcp", "T", cfg.TURN.TCP, "Use TCP to connect to TURN server")
	fs.StringVarP(&cfg.TURN.Username, "turn-username", "u", cfg.TURN.Username, "TURN username")
	fs.StringVarP(&cfg.TURN.Password, "turn-password", "p", cfg.TURN.Password, "TURN password")
	fs.StringVarP(&cfg.Nameserver, "nameserver", "n", cfg.Nameserver, "DNS server for STUN/TURN host names")
	fs.IntVarP(&cfg.MaxHostCandidates, "max-host", "H", cfg.MaxHostCandidates, "Maximum number of host candidates")
	fs.BoolVarP(&cfg.EnableIPv6, "enable-ipv6", "6", cfg.EnableIPv6, "Permit use of IPv6")
	fs.Uint16Var(&cfg.PortMin, "port-min", cfg.PortMin, "Lowest local UDP port")
	fs.Uint16Var(&cfg.PortMax, "port-max", cfg.PortMax, "Highest local UDP port")
	fs.DurationVar(&cfg.NegotiationTimeout, "timeout", cfg.NegotiationTimeout, "Negotiation timeout")
	fs.StringVarP(&cfg.LogFile, "log-file", "L", cfg.LogFile, "Save output to log file")
	fs.StringVarP(&cfg.LogLevel, "log-level", "l", cfg.LogLevel, "Default log level")

	fs.StringVar(&flags.ConfigFile, "config", flags.ConfigFile, "YAML configuration file")
	fs.BoolVarP(&flags.Help, "help", "h", false, "Print usage information and exit")
	fs.BoolVarP(&flags.Version, "version", "v", false, "Print version information and exit")
	return fs
}

// Parse builds the configuration from the command line. The arguments are
// parsed twice: once to find the config file, and again on top of the file
// so options given on the command line win.
func Parse(name string, args []string) (*Config, Flags, error) {
	var flags Flags
	if err := NewFlagSet(name, Default(), &flags).Parse(args); err != nil {
		return nil, flags, err
	}
	if flags.Help || flags.Version {
		return Default(), flags, nil
	}

	cfg, err := Load(flags.ConfigFile)
	if err != nil {
		return nil, flags, err
	}
	if err := NewFlagSet(name, cfg, &flags).Parse(args); err != nil {
		return nil, flags, err
	}
	return cfg, flags, cfg.Validate()
}
