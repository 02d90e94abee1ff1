package main

import (
	"time"

	"github.com/danmuck/eventbridge/internal/config"
	"github.com/danmuck/eventbridge/internal/observability"
	"github.com/danmuck/eventbridge/internal/protocol/wire"
	"github.com/danmuck/eventbridge/internal/sensor"
	"github.com/danmuck/eventbridge/internal/transport/unixsock"
	"github.com/rs/zerolog/log"
	flag "github.com/spf13/pflag"
)

func main() {
	socket := flag.String("socket", config.DefaultSensorSocket, "sensor socket")
	layoutName := flag.String("layout", "lp64", "record layout: lp64|ilp32|packed[-le|-be]")
	sensorType := flag.Int32("type", 1, "sensor type")
	accuracy := flag.Int32("accuracy", 3, "sensor accuracy")
	timestamp := flag.Int64("timestamp", 0, "sample timestamp; 0 uses the current time in ms")
	values := flag.Float32Slice("values", []float32{0, 0, 0}, "up to three sample values")
	count := flag.Int("count", 1, "samples to send")
	interval := flag.Duration("interval", 0, "delay between samples")
	flag.Parse()

	observability.InitLogger("sensorctl")
	layout, err := wire.LayoutByName(*layoutName)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid layout")
	}
	conn, err := unixsock.Dial(*socket)
	if err != nil {
		log.Fatal().Err(err).Str("socket", *socket).Msg("sensor channel unavailable")
	}
	defer conn.Close()

	dispatcher := sensor.NewDispatcher(sensor.ChannelSender(sensor.NewChannel(conn, layout)), *count)
	for i := 0; i < *count; i++ {
		ts := *timestamp
		if ts == 0 {
			ts = time.Now().UnixMilli()
		}
		if err := dispatcher.Enqueue(sensor.NewSensorEvent(*sensorType, *accuracy, ts, *values)); err != nil {
			log.Error().Err(err).Int("sample", i).Msg("sample not queued")
		}
		if *interval > 0 && i+1 < *count {
			time.Sleep(*interval)
		}
	}
	dispatcher.Close()

	stats := dispatcher.Stats()
	log.Info().
		Str("socket", conn.Path()).
		Stringer("layout", layout).
		Int("record_bytes", layout.SensorEventSize()).
		Uint64("sent", stats.Sent).
		Uint64("failed", stats.Failed).
		Msg("sensor samples sent")
}
