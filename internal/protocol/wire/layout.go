package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownLayout  = errors.New("wire: unknown layout")
	ErrInvalidLayout  = errors.New("wire: invalid layout")
	ErrShortRecord    = errors.New("wire: short record")
	ErrOversizeRecord = errors.New("wire: record larger than layout size")
)

// Layout describes how the peer's C structs sit in memory.
type Layout struct {
	Name     string
	Order    binary.ByteOrder
	LongSize int
	Aligned  bool
}

// LayoutLP64 matches a 64-bit Linux/Android peer compiled with default packing.
var LayoutLP64 = Layout{Name: "lp64", Order: binary.NativeEndian, LongSize: 8, Aligned: true}

// LayoutILP32 matches a 32-bit peer where long is 4 bytes.
var LayoutILP32 = Layout{Name: "ilp32", Order: binary.NativeEndian, LongSize: 4, Aligned: true}

// LayoutPacked is LP64 without alignment padding.
var LayoutPacked = Layout{Name: "packed", Order: binary.NativeEndian, LongSize: 8, Aligned: false}

func DefaultLayout() Layout {
	return LayoutLP64
}

// LayoutByName resolves a preset. Suffixes "-le" and "-be" pin the byte order
// instead of using the host's.
func LayoutByName(name string) (Layout, error) {
	raw := strings.ToLower(strings.TrimSpace(name))
	base, order := raw, binary.ByteOrder(nil)
	switch {
	case strings.HasSuffix(raw, "-le"):
		base, order = strings.TrimSuffix(raw, "-le"), binary.LittleEndian
	case strings.HasSuffix(raw, "-be"):
		base, order = strings.TrimSuffix(raw, "-be"), binary.BigEndian
	}

	var l Layout
	switch base {
	case "", "lp64", "native":
		l = LayoutLP64
	case "ilp32":
		l = LayoutILP32
	case "packed":
		l = LayoutPacked
	default:
		return Layout{}, fmt.Errorf("%w: %q", ErrUnknownLayout, name)
	}
	if order != nil {
		l.Order = order
		l.Name = raw
	}
	return l, nil
}

func (l Layout) Validate() error {
	if l.Order == nil {
		return fmt.Errorf("%w: missing byte order", ErrInvalidLayout)
	}
	if l.LongSize != 4 && l.LongSize != 8 {
		return fmt.Errorf("%w: long size %d", ErrInvalidLayout, l.LongSize)
	}
	return nil
}

func (l Layout) String() string {
	if l.Name != "" {
		return l.Name
	}
	return fmt.Sprintf("long%d/aligned=%t", l.LongSize*8, l.Aligned)
}

// align rounds off up to the next multiple of size when the layout applies C
// alignment rules.
func (l Layout) align(off, size int) int {
	if !l.Aligned || size <= 1 {
		return off
	}
	if rem := off % size; rem != 0 {
		return off + size - rem
	}
	return off
}

// SensorEventSize is sizeof(struct svmp_sensor_event_t) for this layout.
func (l Layout) SensorEventSize() int {
	return l.sensorOffsets().size
}

// CommandSize is sizeof(struct svmp_fbstream_event_t) for this layout.
func (l Layout) CommandSize() int {
	return l.commandOffsets().size
}

// InitSize is sizeof(struct svmp_fbstream_init_t). It holds only 4-byte
// members after the IP buffer, so it is the same under every layout.
func (l Layout) InitSize() int {
	return InitRecordSize
}

type sensorOffsets struct {
	typ, accuracy, timestamp, values, size int
}

func (l Layout) sensorOffsets() sensorOffsets {
	var o sensorOffsets
	o.typ = 0
	o.accuracy = 4
	o.timestamp = l.align(8, l.LongSize)
	o.values = o.timestamp + l.LongSize
	end := o.values + 3*4
	o.size = l.align(end, l.LongSize)
	return o
}

type commandOffsets struct {
	cmd, sessid, size int
}

func (l Layout) commandOffsets() commandOffsets {
	var o commandOffsets
	o.sessid = l.align(4, l.LongSize)
	o.size = l.align(o.sessid+l.LongSize, l.LongSize)
	return o
}

func (l Layout) putLong(b []byte, v int64) {
	if l.LongSize == 4 {
		l.Order.PutUint32(b, uint32(int32(v)))
		return
	}
	l.Order.PutUint64(b, uint64(v))
}

func (l Layout) long(b []byte) int64 {
	if l.LongSize == 4 {
		return int64(int32(l.Order.Uint32(b)))
	}
	return int64(l.Order.Uint64(b))
}

func checkRecord(b []byte, want int, what string) error {
	if len(b) < want {
		return fmt.Errorf("%w: %s has %d bytes, want %d", ErrShortRecord, what, len(b), want)
	}
	if len(b) > want {
		return fmt.Errorf("%w: %s has %d bytes, want %d", ErrOversizeRecord, what, len(b), want)
	}
	return nil
}
