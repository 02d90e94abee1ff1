package sensor

import (
	"errors"
	"syscall"
	"testing"

	"github.com/danmuck/eventbridge/internal/protocol/wire"
	"github.com/danmuck/eventbridge/internal/testutil/peertest"
	"github.com/danmuck/eventbridge/internal/testutil/testlog"
	"github.com/danmuck/eventbridge/internal/transport/unixsock"
)

func TestNewSensorEventPadsAndTrims(t *testing.T) {
	testlog.Start(t)
	light := NewSensorEvent(5, 3, 10, []float32{120})
	if light.Values != [3]float32{120, 0, 0} {
		t.Fatalf("expected zero fill, got %v", light.Values)
	}
	rot := NewSensorEvent(11, 3, 10, []float32{1, 2, 3, 4, 5})
	if rot.Values != [3]float32{1, 2, 3} {
		t.Fatalf("expected extra values dropped, got %v", rot.Values)
	}
}

func TestChannelSendOverSocket(t *testing.T) {
	testlog.Start(t)
	peer := peertest.Listen(t)
	conn, err := unixsock.Dial(peer.Path)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	srv := peer.Accept(t)

	ch := NewChannel(conn, wire.LayoutLP64)
	ev := NewSensorEvent(1, 3, 1700000000000, []float32{0.1, 0.2, 0.3})
	res := ch.Send(ev)
	if res.Status() != unixsock.WriteFull {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.Written != wire.LayoutLP64.SensorEventSize() {
		t.Fatalf("wrote %d bytes", res.Written)
	}

	raw := peertest.ReadRecord(t, srv, wire.LayoutLP64.SensorEventSize())
	got, err := wire.LayoutLP64.DecodeSensorEvent(raw)
	if err != nil {
		t.Fatalf("peer decode: %v", err)
	}
	if got != ev {
		t.Fatalf("peer saw %+v want %+v", got, ev)
	}
	testlog.Logf("sensor/send: peer decoded %+v", got)
}

func TestChannelSendSurfacesWriteFailures(t *testing.T) {
	testlog.Start(t)
	rec := &peertest.Recorder{ShortBy: 4}
	ch := NewChannel(rec, wire.LayoutPacked)

	res := ch.Send(wire.SensorEvent{Type: 1})
	if res.Status() != unixsock.WritePartial {
		t.Fatalf("expected partial, got %s", res.Status())
	}
	var sw *unixsock.ShortWriteError
	if !errors.As(res.Err(), &sw) || sw.Expected != 28 || sw.Written != 24 {
		t.Fatalf("unexpected error: %v", res.Err())
	}

	rec.WriteErr = syscall.EPIPE
	res = ch.Send(wire.SensorEvent{Type: 1})
	if res.Status() != unixsock.WriteFailed || !errors.Is(res.Err(), syscall.EPIPE) {
		t.Fatalf("expected failed EPIPE, got %s %v", res.Status(), res.Err())
	}
	if len(rec.Writes()) != 1 {
		t.Fatalf("short write must not be retried: %d writes", len(rec.Writes()))
	}
}
