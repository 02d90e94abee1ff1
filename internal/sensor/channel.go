// Package sensor writes sensor samples to the sensor peer socket.
package sensor

import (
	"io"

	"github.com/danmuck/eventbridge/internal/observability"
	"github.com/danmuck/eventbridge/internal/protocol/wire"
	"github.com/danmuck/eventbridge/internal/transport/unixsock"
	"github.com/rs/zerolog/log"
)

const (
	metricsChannel = "sensor"
	metricsRecord  = "sensor_event"
)

// NewSensorEvent builds a sample from already-extracted fields. Missing
// values are zero and values past the third are dropped.
func NewSensorEvent(sensorType, accuracy int32, timestamp int64, values []float32) wire.SensorEvent {
	ev := wire.SensorEvent{
		Type:      sensorType,
		Accuracy:  accuracy,
		Timestamp: timestamp,
	}
	copy(ev.Values[:], values)
	return ev
}

// Channel writes one fixed-size record per sample. It does no locking; the
// owner serializes calls.
type Channel struct {
	w      io.Writer
	layout wire.Layout
	name   string
}

func NewChannel(w io.Writer, layout wire.Layout) *Channel {
	name := "sensor"
	if c, ok := w.(*unixsock.Conn); ok {
		name = c.Path()
	}
	return &Channel{w: w, layout: layout, name: name}
}

func (c *Channel) Layout() wire.Layout {
	return c.layout
}

// Send encodes ev and writes it with a single write call.
func (c *Channel) Send(ev wire.SensorEvent) unixsock.WriteResult {
	rec := c.layout.EncodeSensorEvent(ev)
	res := unixsock.WriteRecord(c.w, rec)
	observability.RecordSocketWrite(metricsChannel, metricsRecord, res.Status().String(), res.Written)

	if err := res.Err(); err != nil {
		log.Error().
			Str("socket", c.name).
			Int32("type", ev.Type).
			Int("written", res.Written).
			Int("expected", res.Expected).
			Err(err).
			Msg("sensor event write failed")
		return res
	}
	log.Trace().
		Str("socket", c.name).
		Int32("type", ev.Type).
		Int32("accuracy", ev.Accuracy).
		Int64("timestamp", ev.Timestamp).
		Msg("sensor event written")
	return res
}
