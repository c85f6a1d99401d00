package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/mandala-foundation/settler/go/manifold"
)

type daemonConfig struct {
	ListenAddr    string
	LogJSON       bool
	LogLevel      string
	SettlementTTL time.Duration
	PulseInterval time.Duration
	Manifold      manifold.Config
}

func defaultConfig() daemonConfig {
	return daemonConfig{
		ListenAddr:    ":8402",
		LogLevel:      "info",
		SettlementTTL: 15 * time.Minute,
		PulseInterval: 7 * time.Second,
		Manifold:      manifold.DefaultConfig(),
	}
}

type fileConfig struct {
	ListenAddr    string `toml:"listen_addr"`
	LogJSON       bool   `toml:"log_json"`
	LogLevel      string `toml:"log_level"`
	SettlementTTL string `toml:"settlement_ttl"`
	PulseInterval string `toml:"pulse_interval"`

	ManifoldMaxDepth int    `toml:"manifold_max_depth"`
	ManifoldFanout   int    `toml:"manifold_fanout"`
	ManifoldNodeCap  uint64 `toml:"manifold_node_cap"`
	ManifoldSigil    string `toml:"manifold_sigil"`
}

func loadConfig(path string) (daemonConfig, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return daemonConfig{}, fmt.Errorf("load vaultd config: %w", err)
	}

	if meta.IsDefined("listen_addr") {
		addr := strings.TrimSpace(raw.ListenAddr)
		if addr != "" {
			cfg.ListenAddr = addr
		}
	}

	if meta.IsDefined("log_json") {
		cfg.LogJSON = raw.LogJSON
	}

	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.TrimSpace(raw.LogLevel)
	}

	if meta.IsDefined("settlement_ttl") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.SettlementTTL))
		if err != nil {
			return daemonConfig{}, fmt.Errorf("parse settlement_ttl: %w", err)
		}
		cfg.SettlementTTL = d
	}

	if meta.IsDefined("pulse_interval") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.PulseInterval))
		if err != nil {
			return daemonConfig{}, fmt.Errorf("parse pulse_interval: %w", err)
		}
		cfg.PulseInterval = d
	}

	if meta.IsDefined("manifold_max_depth") {
		cfg.Manifold.MaxDepth = raw.ManifoldMaxDepth
	}

	if meta.IsDefined("manifold_fanout") {
		cfg.Manifold.Fanout = raw.ManifoldFanout
	}

	if meta.IsDefined("manifold_node_cap") {
		cfg.Manifold.NodeCap = raw.ManifoldNodeCap
	}

	if meta.IsDefined("manifold_sigil") {
		cfg.Manifold.Sigil = strings.TrimSpace(raw.ManifoldSigil)
	}

	return cfg, nil
}
