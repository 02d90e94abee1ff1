package config

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/eventbridge/internal/protocol/wire"
	tomlv2 "github.com/pelletier/go-toml/v2"
)

const (
	DefaultSensorSocket   = "/dev/socket/svmp_sensors"
	DefaultFbstreamSocket = "/dev/socket/svmp_fbstream"
)

// BridgeConfig is the eventbridged configuration file.
type BridgeConfig struct {
	ID               string   `toml:"id"`
	Addr             string   `toml:"addr"`
	CorsOrigins      []string `toml:"cors_origins"`
	SensorSocket     string   `toml:"sensor_socket"`
	FbstreamSocket   string   `toml:"fbstream_socket"`
	Layout           string   `toml:"layout"`
	SensorQueueDepth int      `toml:"sensor_queue_depth"`
	CoalesceStart    bool     `toml:"coalesce_start"`
	MaxSDPBytes      int      `toml:"max_sdp_bytes"`
}

func DefaultBridgeConfig() BridgeConfig {
	return BridgeConfig{
		ID:               "eventbridge",
		Addr:             "127.0.0.1:8001",
		CorsOrigins:      []string{"http://localhost:3000"},
		SensorSocket:     DefaultSensorSocket,
		FbstreamSocket:   DefaultFbstreamSocket,
		Layout:           "lp64",
		SensorQueueDepth: 256,
		MaxSDPBytes:      wire.DefaultMaxSDPBytes,
	}
}

// LoadBridgeConfig overlays the keys present in path on the defaults. An
// explicitly empty fbstream_socket disables the stream channel.
func LoadBridgeConfig(path string) (BridgeConfig, error) {
	cfg := DefaultBridgeConfig()

	var raw BridgeConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return BridgeConfig{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return BridgeConfig{}, fmt.Errorf("config parse failed (%s): unknown keys %s", path, strings.Join(keys, ", "))
	}

	if meta.IsDefined("id") {
		cfg.ID = strings.TrimSpace(raw.ID)
	}
	if meta.IsDefined("addr") {
		cfg.Addr = strings.TrimSpace(raw.Addr)
	}
	if meta.IsDefined("cors_origins") {
		cfg.CorsOrigins = normalizeList(raw.CorsOrigins)
	}
	if meta.IsDefined("sensor_socket") {
		cfg.SensorSocket = strings.TrimSpace(raw.SensorSocket)
	}
	if meta.IsDefined("fbstream_socket") {
		cfg.FbstreamSocket = strings.TrimSpace(raw.FbstreamSocket)
	}
	if meta.IsDefined("layout") {
		cfg.Layout = strings.TrimSpace(raw.Layout)
	}
	if meta.IsDefined("sensor_queue_depth") {
		cfg.SensorQueueDepth = raw.SensorQueueDepth
	}
	if meta.IsDefined("coalesce_start") {
		cfg.CoalesceStart = raw.CoalesceStart
	}
	if meta.IsDefined("max_sdp_bytes") {
		cfg.MaxSDPBytes = raw.MaxSDPBytes
	}

	if err := ValidateBridgeConfig(cfg); err != nil {
		return BridgeConfig{}, err
	}
	return cfg, nil
}

func ValidateBridgeConfig(cfg BridgeConfig) error {
	if strings.TrimSpace(cfg.ID) == "" {
		return fmt.Errorf("bridge config missing id")
	}
	if strings.TrimSpace(cfg.Addr) == "" {
		return fmt.Errorf("bridge config missing addr")
	}
	if strings.TrimSpace(cfg.SensorSocket) == "" {
		return fmt.Errorf("bridge config missing sensor_socket")
	}
	if _, err := wire.LayoutByName(cfg.Layout); err != nil {
		return fmt.Errorf("bridge config layout: %w", err)
	}
	if cfg.SensorQueueDepth <= 0 {
		return fmt.Errorf("bridge config sensor_queue_depth must be positive")
	}
	if cfg.MaxSDPBytes <= 0 {
		return fmt.Errorf("bridge config max_sdp_bytes must be positive")
	}
	return nil
}

// WireLayout resolves the configured layout name.
func (cfg BridgeConfig) WireLayout() (wire.Layout, error) {
	return wire.LayoutByName(cfg.Layout)
}

// Render writes cfg back out as TOML, e.g. to show the effective settings.
func Render(cfg BridgeConfig) (string, error) {
	out, err := tomlv2.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("config render failed: %w", err)
	}
	return string(out), nil
}

func normalizeList(in []string) []string {
	if len(in) == 0 {
		return []string{}
	}
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}
