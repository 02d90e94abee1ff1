package unixsock

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sys/unix"
)

// MaxPathLen is the longest path that fits sun_path with its terminator.
var MaxPathLen = len(unix.RawSockaddrUnix{}.Path) - 1

var (
	ErrEmptyPath = errors.New("unixsock: empty socket path")
	ErrClosed    = errors.New("unixsock: connection closed")
)

// Dialer connects to peer sockets. The zero value blocks until the kernel
// answers, which for a local socket is immediate.
type Dialer struct {
	Timeout time.Duration
}

// Conn is a connected stream socket to a peer.
type Conn struct {
	conn *net.UnixConn
	path string
}

func Dial(path string) (*Conn, error) {
	var d Dialer
	return d.Dial(path)
}

func (d Dialer) Dial(path string) (*Conn, error) {
	return d.DialContext(context.Background(), path)
}

func (d Dialer) DialContext(ctx context.Context, path string) (*Conn, error) {
	target, err := socketPath(path)
	if err != nil {
		return nil, err
	}

	nd := net.Dialer{Timeout: d.Timeout}
	c, err := nd.DialContext(ctx, "unix", target)
	if err != nil {
		return nil, fmt.Errorf("dial socket %s: %w", target, err)
	}
	uc, ok := c.(*net.UnixConn)
	if !ok {
		_ = c.Close()
		return nil, fmt.Errorf("dial socket %s: unexpected connection type %T", target, c)
	}
	log.Debug().Str("socket", target).Msg("socket connected")
	return &Conn{conn: uc, path: target}, nil
}

// socketPath applies the sun_path limit the way strncpy into a fixed buffer
// would: anything past MaxPathLen bytes is dropped.
func socketPath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", ErrEmptyPath
	}
	if len(path) > MaxPathLen {
		log.Warn().
			Str("socket", path).
			Int("max", MaxPathLen).
			Msg("socket path truncated to sun_path capacity")
		path = path[:MaxPathLen]
	}
	return path, nil
}

func (c *Conn) Path() string {
	return c.path
}

func (c *Conn) Read(p []byte) (int, error) {
	if c == nil || c.conn == nil {
		return 0, ErrClosed
	}
	return c.conn.Read(p)
}

func (c *Conn) Write(p []byte) (int, error) {
	if c == nil || c.conn == nil {
		return 0, ErrClosed
	}
	return c.conn.Write(p)
}

// Fd returns the kernel descriptor backing the connection. It stays owned by
// Conn; callers must not close it.
func (c *Conn) Fd() (uintptr, error) {
	if c == nil || c.conn == nil {
		return 0, ErrClosed
	}
	raw, err := c.conn.SyscallConn()
	if err != nil {
		return 0, err
	}
	var fd uintptr
	if err := raw.Control(func(v uintptr) { fd = v }); err != nil {
		return 0, err
	}
	return fd, nil
}

// Close releases the descriptor and reports the result of close(2).
func (c *Conn) Close() error {
	if c == nil || c.conn == nil {
		return ErrClosed
	}
	err := c.conn.Close()
	if err != nil {
		log.Warn().Str("socket", c.path).Err(err).Msg("socket close failed")
	}
	return err
}
