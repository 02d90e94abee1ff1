package config

import (
	"fmt"
	"os"
	"strings"
)

func Template(kind string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "bridge", "eventbridge":
		return bridgeTemplate, nil
	default:
		return "", fmt.Errorf("unknown config kind: %s", kind)
	}
}

func WriteTemplate(path, kind string, overwrite bool) error {
	template, err := Template(kind)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}

const bridgeTemplate = `id = "eventbridge"
addr = "127.0.0.1:8001"
cors_origins = ["http://localhost:3000"]

# Sockets are created by the init system before eventbridged starts.
sensor_socket = "/dev/socket/svmp_sensors"
# Leave empty to run without the stream control channel.
fbstream_socket = "/dev/socket/svmp_fbstream"

# lp64 | ilp32 | packed, optionally suffixed -le or -be.
layout = "lp64"
sensor_queue_depth = 256
coalesce_start = false
max_sdp_bytes = 65536
`
