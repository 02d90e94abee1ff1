package sensor

import (
	"errors"
	"sync"

	"github.com/danmuck/eventbridge/internal/observability"
	"github.com/danmuck/eventbridge/internal/protocol/wire"
	"github.com/rs/zerolog/log"
)

const DefaultQueueDepth = 256

var (
	ErrQueueFull        = errors.New("sensor: queue full")
	ErrDispatcherClosed = errors.New("sensor: dispatcher closed")
)

// Sender is the write side a Dispatcher drains into.
type Sender interface {
	Send(ev wire.SensorEvent) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ev wire.SensorEvent) error

func (f SenderFunc) Send(ev wire.SensorEvent) error {
	return f(ev)
}

// ChannelSender adapts a Channel so write failures come back as errors.
func ChannelSender(c *Channel) Sender {
	return SenderFunc(func(ev wire.SensorEvent) error {
		return c.Send(ev).Err()
	})
}

// DispatchStats counts what the writer goroutine has done.
type DispatchStats struct {
	Sent    uint64
	Failed  uint64
	Dropped uint64
}

// Dispatcher accepts samples from any goroutine and writes them from one, so
// they reach the socket in the order Enqueue accepted them.
type Dispatcher struct {
	out   Sender
	queue chan wire.SensorEvent
	done  chan struct{}

	mu     sync.RWMutex
	closed bool

	statsMu sync.Mutex
	stats   DispatchStats
}

func NewDispatcher(out Sender, depth int) *Dispatcher {
	if depth <= 0 {
		depth = DefaultQueueDepth
	}
	d := &Dispatcher{
		out:   out,
		queue: make(chan wire.SensorEvent, depth),
		done:  make(chan struct{}),
	}
	go d.run()
	return d
}

// Enqueue never blocks.
func (d *Dispatcher) Enqueue(ev wire.SensorEvent) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrDispatcherClosed
	}
	select {
	case d.queue <- ev:
		observability.SetSensorQueueDepth(len(d.queue))
		return nil
	default:
		d.statsMu.Lock()
		d.stats.Dropped++
		d.statsMu.Unlock()
		log.Warn().Int32("type", ev.Type).Int("depth", cap(d.queue)).Msg("sensor queue full; event dropped")
		return ErrQueueFull
	}
}

// Close stops intake, writes whatever is queued and waits for the writer.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		<-d.done
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()
	<-d.done
}

func (d *Dispatcher) Stats() DispatchStats {
	d.statsMu.Lock()
	defer d.statsMu.Unlock()
	return d.stats
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for ev := range d.queue {
		observability.SetSensorQueueDepth(len(d.queue))
		err := d.out.Send(ev)
		d.statsMu.Lock()
		if err != nil {
			d.stats.Failed++
		} else {
			d.stats.Sent++
		}
		d.statsMu.Unlock()
	}
}
