package wire

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Command is an fbstream command code. The peer treats unknown codes as its
// own problem; nothing here rejects them.
type Command int32

const (
	CmdStart    Command = 1
	CmdPlay     Command = 2
	CmdPause    Command = 3
	CmdStop     Command = 4
	CmdPrintSDP Command = 5
)

const (
	// IPFieldLen is the size of the IP buffer in the init record.
	IPFieldLen = 16
	// InitRecordSize is IP[16] + vidport + audport.
	InitRecordSize = IPFieldLen + 4 + 4
)

func (c Command) String() string {
	switch c {
	case CmdStart:
		return "start"
	case CmdPlay:
		return "play"
	case CmdPause:
		return "pause"
	case CmdStop:
		return "stop"
	case CmdPrintSDP:
		return "printsdp"
	default:
		return fmt.Sprintf("cmd(%d)", int32(c))
	}
}

var ErrUnknownCommand = errors.New("wire: unknown fbstream command")

// ParseCommand accepts a command name in any case ("sdp" is short for
// printsdp) or a numeric code. Numeric codes are not range checked.
func ParseCommand(raw string) (Command, error) {
	raw = strings.TrimSpace(raw)
	switch strings.ToLower(raw) {
	case "start":
		return CmdStart, nil
	case "play":
		return CmdPlay, nil
	case "pause":
		return CmdPause, nil
	case "stop":
		return CmdStop, nil
	case "printsdp", "sdp":
		return CmdPrintSDP, nil
	}
	n, err := strconv.ParseInt(raw, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrUnknownCommand, raw)
	}
	return Command(n), nil
}

// Known reports whether c is one of the five defined codes.
func (c Command) Known() bool {
	return c >= CmdStart && c <= CmdPrintSDP
}

// SensorEvent is one sensor sample as the sensor peer reads it.
type SensorEvent struct {
	Type      int32
	Accuracy  int32
	Timestamp int64
	Values    [3]float32
}

// FbstreamCommand is the control record written for every fbstream command.
// SessionID is reserved by the peer and carried through untouched.
type FbstreamCommand struct {
	Cmd       Command
	SessionID int64
}

// FbstreamInit follows a START command.
type FbstreamInit struct {
	IP        string
	VideoPort int32
	AudioPort int32
}

func (l Layout) EncodeSensorEvent(ev SensorEvent) []byte {
	o := l.sensorOffsets()
	buf := make([]byte, o.size)
	l.Order.PutUint32(buf[o.typ:o.typ+4], uint32(ev.Type))
	l.Order.PutUint32(buf[o.accuracy:o.accuracy+4], uint32(ev.Accuracy))
	l.putLong(buf[o.timestamp:o.timestamp+l.LongSize], ev.Timestamp)
	for i, v := range ev.Values {
		off := o.values + i*4
		l.Order.PutUint32(buf[off:off+4], math.Float32bits(v))
	}
	return buf
}

func (l Layout) DecodeSensorEvent(b []byte) (SensorEvent, error) {
	o := l.sensorOffsets()
	if err := checkRecord(b, o.size, "sensor event"); err != nil {
		return SensorEvent{}, err
	}
	ev := SensorEvent{
		Type:      int32(l.Order.Uint32(b[o.typ : o.typ+4])),
		Accuracy:  int32(l.Order.Uint32(b[o.accuracy : o.accuracy+4])),
		Timestamp: l.long(b[o.timestamp : o.timestamp+l.LongSize]),
	}
	for i := range ev.Values {
		off := o.values + i*4
		ev.Values[i] = math.Float32frombits(l.Order.Uint32(b[off : off+4]))
	}
	return ev, nil
}

func (l Layout) EncodeCommand(cmd FbstreamCommand) []byte {
	o := l.commandOffsets()
	buf := make([]byte, o.size)
	l.Order.PutUint32(buf[o.cmd:o.cmd+4], uint32(cmd.Cmd))
	l.putLong(buf[o.sessid:o.sessid+l.LongSize], cmd.SessionID)
	return buf
}

func (l Layout) DecodeCommand(b []byte) (FbstreamCommand, error) {
	o := l.commandOffsets()
	if err := checkRecord(b, o.size, "fbstream command"); err != nil {
		return FbstreamCommand{}, err
	}
	return FbstreamCommand{
		Cmd:       Command(int32(l.Order.Uint32(b[o.cmd : o.cmd+4]))),
		SessionID: l.long(b[o.sessid : o.sessid+l.LongSize]),
	}, nil
}

// EncodeInit copies at most IPFieldLen-1 bytes of the IP so the buffer always
// ends in NUL; the rest of the buffer is zero.
func (l Layout) EncodeInit(rec FbstreamInit) []byte {
	buf := make([]byte, InitRecordSize)
	copy(buf[:IPFieldLen-1], rec.IP)
	l.Order.PutUint32(buf[IPFieldLen:IPFieldLen+4], uint32(rec.VideoPort))
	l.Order.PutUint32(buf[IPFieldLen+4:IPFieldLen+8], uint32(rec.AudioPort))
	return buf
}

func (l Layout) DecodeInit(b []byte) (FbstreamInit, error) {
	if err := checkRecord(b, InitRecordSize, "fbstream init"); err != nil {
		return FbstreamInit{}, err
	}
	ip := b[:IPFieldLen]
	if i := bytes.IndexByte(ip, 0); i >= 0 {
		ip = ip[:i]
	}
	return FbstreamInit{
		IP:        string(ip),
		VideoPort: int32(l.Order.Uint32(b[IPFieldLen : IPFieldLen+4])),
		AudioPort: int32(l.Order.Uint32(b[IPFieldLen+4 : IPFieldLen+8])),
	}, nil
}

// IPTruncated reports whether EncodeInit would cut the IP short.
func (rec FbstreamInit) IPTruncated() bool {
	return len(rec.IP) > IPFieldLen-1
}
