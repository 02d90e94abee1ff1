package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/danmuck/eventbridge/internal/bridge"
	"github.com/danmuck/eventbridge/internal/config"
	"github.com/danmuck/eventbridge/internal/fbstream"
	"github.com/danmuck/eventbridge/internal/observability"
	"github.com/danmuck/eventbridge/internal/sensor"
	"github.com/danmuck/eventbridge/internal/transport/unixsock"
	"github.com/rs/zerolog/log"
	flag "github.com/spf13/pflag"
)

func main() {
	configPath := flag.StringP("config", "c", "cmd/eventbridged/config.toml", "bridge config path")
	flag.Parse()

	observability.InitLogger("eventbridged")
	cfg, err := config.LoadBridgeConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", *configPath).Msg("failed to load bridge config")
	}
	log.Info().Str("path", *configPath).Str("layout", cfg.Layout).Msg("loaded bridge config")

	layout, err := cfg.WireLayout()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid layout")
	}

	sensorConn, err := unixsock.Dial(cfg.SensorSocket)
	if err != nil {
		log.Fatal().Err(err).Str("socket", cfg.SensorSocket).Msg("sensor channel unavailable")
	}
	defer sensorConn.Close()
	dispatcher := sensor.NewDispatcher(sensor.ChannelSender(sensor.NewChannel(sensorConn, layout)), cfg.SensorQueueDepth)
	defer dispatcher.Close()

	server := bridge.Appear(cfg.ID, cfg.Addr, cfg.CorsOrigins)
	server.AttachSensors(dispatcher)

	if cfg.FbstreamSocket != "" {
		client, err := fbstream.Dial(cfg.FbstreamSocket, fbstream.Options{
			Layout:        layout,
			CoalesceStart: cfg.CoalesceStart,
			MaxSDPBytes:   cfg.MaxSDPBytes,
		})
		if err != nil {
			log.Warn().Err(err).Str("socket", cfg.FbstreamSocket).Msg("fbstream channel unavailable; stream routes disabled")
		} else {
			defer client.Close()
			server.AttachStream(client)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().Str("id", server.ID).Str("addr", server.Addr).Msg("eventbridge started")
	if err := server.Serve(ctx); err != nil {
		log.Error().Err(err).Msg("eventbridge stopped")
		return
	}
	dispatcher.Close()
	stats := dispatcher.Stats()
	log.Info().Uint64("sent", stats.Sent).Uint64("failed", stats.Failed).Uint64("dropped", stats.Dropped).Msg("eventbridge shut down")
}
