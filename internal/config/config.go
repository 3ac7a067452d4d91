// Package config assembles the process configuration from defaults, an
// optional YAML file and RASPIDER_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/GroggNorvek/RaSpider/internal/sim"
	"github.com/GroggNorvek/RaSpider/logging"
)

const (
	EnvAddr     = "RASPIDER_ADDR"
	EnvTickRate = "RASPIDER_TICK_RATE"
	EnvSeed     = "RASPIDER_SEED"
	EnvLogJSON  = "RASPIDER_LOG_JSON"
	EnvPprof    = "RASPIDER_PPROF"

	DefaultAddr              = ":8080"
	DefaultBroadcastInterval = 2
	DefaultReadLimit         = 4096
	DefaultHeartbeatTimeout  = 30 * time.Second
)

type Server struct {
	Addr string `yaml:"addr"`
	// BroadcastInterval sends a snapshot every N ticks.
	BroadcastInterval int           `yaml:"broadcastInterval"`
	ReadLimit         int64         `yaml:"readLimit"`
	HeartbeatTimeout  time.Duration `yaml:"heartbeatTimeout"`
	EnablePprof       bool          `yaml:"pprof"`
}

type Config struct {
	World   sim.Config     `yaml:"world"`
	Loop    sim.LoopConfig `yaml:"loop"`
	Server  Server         `yaml:"server"`
	Logging logging.Config `yaml:"logging"`
}

func Default() Config {
	return Config{
		World: sim.DefaultConfig(),
		Loop:  sim.DefaultLoopConfig(),
		Server: Server{
			Addr:              DefaultAddr,
			BroadcastInterval: DefaultBroadcastInterval,
			ReadLimit:         DefaultReadLimit,
			HeartbeatTimeout:  DefaultHeartbeatTimeout,
		},
		Logging: logging.DefaultConfig(),
	}
}

// Normalized clamps every section. Only an unknown log severity is
// reported as an error.
func (c Config) Normalized() (Config, error) {
	out := c
	out.World = out.World.Normalized()
	out.Loop = out.Loop.Normalized()
	out.Server.Addr = strings.TrimSpace(out.Server.Addr)
	if out.Server.Addr == "" {
		out.Server.Addr = DefaultAddr
	}
	if out.Server.BroadcastInterval <= 0 {
		out.Server.BroadcastInterval = DefaultBroadcastInterval
	}
	if out.Server.ReadLimit <= 0 {
		out.Server.ReadLimit = DefaultReadLimit
	}
	if out.Server.HeartbeatTimeout <= 0 {
		out.Server.HeartbeatTimeout = DefaultHeartbeatTimeout
	}
	logCfg, err := out.Logging.Normalized()
	if err != nil {
		return out, fmt.Errorf("logging: %w", err)
	}
	out.Logging = logCfg
	return out, nil
}

// Load reads path over the defaults. An empty path yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overlays the RASPIDER_* variables found through lookup. Invalid
// values are skipped and reported together; valid ones still apply.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	var errs []error
	if raw, ok := lookup(EnvAddr); ok && strings.TrimSpace(raw) != "" {
		c.Server.Addr = strings.TrimSpace(raw)
	}
	if raw, ok := lookup(EnvTickRate); ok && raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			c.Loop.TickRate = value
		} else {
			errs = append(errs, fmt.Errorf("invalid %s=%q", EnvTickRate, raw))
		}
	}
	if raw, ok := lookup(EnvSeed); ok && raw != "" {
		c.World.Seed = raw
	}
	if raw, ok := lookup(EnvLogJSON); ok && raw != "" {
		c.Logging.JSON.FilePath = raw
		if !c.Logging.HasSink(logging.SinkJSON) {
			c.Logging.EnabledSinks = append(c.Logging.EnabledSinks, logging.SinkJSON)
		}
	}
	if raw, ok := lookup(EnvPprof); ok && raw != "" {
		if value, err := strconv.ParseBool(raw); err == nil {
			c.Server.EnablePprof = value
		} else {
			errs = append(errs, fmt.Errorf("invalid %s=%q: %w", EnvPprof, raw, err))
		}
	}
	return errors.Join(errs...)
}
