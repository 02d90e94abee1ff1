package fbstream

import (
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/danmuck/eventbridge/internal/observability"
	"github.com/danmuck/eventbridge/internal/protocol/wire"
	"github.com/danmuck/eventbridge/internal/transport/unixsock"
	"github.com/rs/zerolog/log"
)

const metricsChannel = "fbstream"

var (
	ErrStartRequiresInit = errors.New("fbstream: start requires an init record")
	ErrInvalidStreamIP   = errors.New("fbstream: stream ip must be an ipv4 address")
)

// Options tune a Client. The zero value uses the default layout, two writes
// for START and the default SDP size bound.
type Options struct {
	Layout        wire.Layout
	CoalesceStart bool
	MaxSDPBytes   int
}

func DefaultOptions() Options {
	return Options{
		Layout:      wire.DefaultLayout(),
		MaxSDPBytes: wire.DefaultMaxSDPBytes,
	}
}

// Reply is what one command produced on the wire.
type Reply struct {
	Writes []unixsock.WriteResult
	SDP    string
}

// Client speaks the control protocol over rw.
type Client struct {
	rw     io.ReadWriter
	closer io.Closer
	opts   Options
	name   string
}

// Dial connects to the fbstream control socket at path. Connect failures are
// returned unlogged; the caller reports them.
func Dial(path string, opts Options) (*Client, error) {
	conn, err := unixsock.Dial(path)
	if err != nil {
		return nil, err
	}
	c := NewClient(conn, opts)
	c.closer = conn
	c.name = conn.Path()
	return c, nil
}

func NewClient(rw io.ReadWriter, opts Options) *Client {
	if opts.Layout.Order == nil {
		opts.Layout = wire.DefaultLayout()
	}
	if opts.MaxSDPBytes <= 0 {
		opts.MaxSDPBytes = wire.DefaultMaxSDPBytes
	}
	return &Client{rw: rw, opts: opts, name: "fbstream"}
}

func (c *Client) Options() Options {
	return c.opts
}

// Close releases the connection when the client dialed it.
func (c *Client) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer.Close()
}

// Send writes cmd and performs the follow-up its code calls for. setup is
// required for START and ignored otherwise.
func (c *Client) Send(cmd wire.FbstreamCommand, setup *wire.FbstreamInit) (Reply, error) {
	if cmd.Cmd == wire.CmdStart && setup == nil {
		return Reply{}, ErrStartRequiresInit
	}

	layout := c.opts.Layout
	cmdRec := layout.EncodeCommand(cmd)
	var reply Reply

	if cmd.Cmd == wire.CmdStart {
		if setup.IPTruncated() {
			log.Warn().Str("socket", c.name).Str("ip", setup.IP).Msg("stream ip truncated to init buffer")
		}
		initRec := layout.EncodeInit(*setup)
		if c.opts.CoalesceStart {
			res := c.write(cmd.Cmd, "start_init", append(cmdRec, initRec...))
			reply.Writes = append(reply.Writes, res)
			return reply, c.writeErr(cmd, res)
		}
		res := c.write(cmd.Cmd, "command", cmdRec)
		reply.Writes = append(reply.Writes, res)
		if err := c.writeErr(cmd, res); err != nil {
			return reply, err
		}
		res = c.write(cmd.Cmd, "init", initRec)
		reply.Writes = append(reply.Writes, res)
		return reply, c.writeErr(cmd, res)
	}

	res := c.write(cmd.Cmd, "command", cmdRec)
	reply.Writes = append(reply.Writes, res)
	if err := c.writeErr(cmd, res); err != nil {
		return reply, err
	}
	if cmd.Cmd != wire.CmdPrintSDP {
		return reply, nil
	}

	sdp, err := layout.ReadSDPReply(c.rw, c.opts.MaxSDPBytes)
	observability.RecordSDPReply(err == nil)
	if err != nil {
		log.Error().Str("socket", c.name).Err(err).Msg("sdp reply read failed")
		return reply, fmt.Errorf("fbstream %s: %w", cmd.Cmd, err)
	}
	log.Debug().Str("socket", c.name).Int("bytes", len(sdp)).Msg("sdp reply received")
	reply.SDP = sdp
	return reply, nil
}

// Start validates the stream address before anything is written.
func (c *Client) Start(sessionID int64, setup wire.FbstreamInit) error {
	ip := net.ParseIP(setup.IP)
	if ip == nil || ip.To4() == nil {
		return fmt.Errorf("%w: %q", ErrInvalidStreamIP, setup.IP)
	}
	_, err := c.Send(wire.FbstreamCommand{Cmd: wire.CmdStart, SessionID: sessionID}, &setup)
	return err
}

func (c *Client) Play(sessionID int64) error {
	return c.simple(wire.CmdPlay, sessionID)
}

func (c *Client) Pause(sessionID int64) error {
	return c.simple(wire.CmdPause, sessionID)
}

func (c *Client) Stop(sessionID int64) error {
	return c.simple(wire.CmdStop, sessionID)
}

// PrintSDP blocks until the peer answers or the connection fails.
func (c *Client) PrintSDP(sessionID int64) (string, error) {
	reply, err := c.Send(wire.FbstreamCommand{Cmd: wire.CmdPrintSDP, SessionID: sessionID}, nil)
	if err != nil {
		return "", err
	}
	return reply.SDP, nil
}

func (c *Client) simple(cmd wire.Command, sessionID int64) error {
	_, err := c.Send(wire.FbstreamCommand{Cmd: cmd, SessionID: sessionID}, nil)
	return err
}

func (c *Client) write(cmd wire.Command, record string, rec []byte) unixsock.WriteResult {
	res := unixsock.WriteRecord(c.rw, rec)
	observability.RecordSocketWrite(metricsChannel, record, res.Status().String(), res.Written)
	if err := res.Err(); err != nil {
		log.Error().
			Str("socket", c.name).
			Stringer("cmd", cmd).
			Str("record", record).
			Int("written", res.Written).
			Int("expected", res.Expected).
			Err(err).
			Msg("fbstream write failed")
	}
	return res
}

func (c *Client) writeErr(cmd wire.FbstreamCommand, res unixsock.WriteResult) error {
	if err := res.Err(); err != nil {
		return fmt.Errorf("fbstream %s: %w", cmd.Cmd, err)
	}
	return nil
}
