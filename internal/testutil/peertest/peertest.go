// Package peertest stands in for the privileged peer processes in tests.
package peertest

import (
	"io"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

// Peer is a unix stream listener in a short temp dir.
type Peer struct {
	Path string
	ln   *net.UnixListener
}

func Listen(t *testing.T) *Peer {
	t.Helper()
	// t.TempDir embeds the test name and can overflow sun_path.
	dir, err := os.MkdirTemp("", "eb")
	if err != nil {
		t.Fatalf("mkdir temp: %v", err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(dir) })

	path := filepath.Join(dir, "peer.sock")
	ln, err := net.ListenUnix("unix", &net.UnixAddr{Name: path, Net: "unix"})
	if err != nil {
		t.Fatalf("listen %s: %v", path, err)
	}
	t.Cleanup(func() { _ = ln.Close() })
	return &Peer{Path: path, ln: ln}
}

// Accept waits for the client under test to connect.
func (p *Peer) Accept(t *testing.T) net.Conn {
	t.Helper()
	if err := p.ln.SetDeadline(time.Now().Add(5 * time.Second)); err != nil {
		t.Fatalf("set accept deadline: %v", err)
	}
	c, err := p.ln.Accept()
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	_ = c.SetDeadline(time.Now().Add(5 * time.Second))
	return c
}

// ReadRecord reads exactly n bytes from the client.
func ReadRecord(t *testing.T, c net.Conn, n int) []byte {
	t.Helper()
	buf := make([]byte, n)
	if _, err := io.ReadFull(c, buf); err != nil {
		t.Fatalf("read %d byte record: %v", n, err)
	}
	return buf
}

// Recorder is an io.ReadWriter that keeps every Write call separately and
// serves Reads from Replies one chunk per call.
type Recorder struct {
	mu      sync.Mutex
	writes  [][]byte
	Replies [][]byte

	// ShortBy trims that many bytes off the count of the next write.
	ShortBy int
	// WriteErr fails every write once set.
	WriteErr error
}

func (r *Recorder) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.WriteErr != nil {
		return 0, r.WriteErr
	}
	n := len(p)
	if r.ShortBy > 0 {
		n -= r.ShortBy
		if n < 0 {
			n = 0
		}
		r.ShortBy = 0
	}
	r.writes = append(r.writes, append([]byte(nil), p[:n]...))
	return n, nil
}

func (r *Recorder) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.Replies) == 0 {
		return 0, io.EOF
	}
	n := copy(p, r.Replies[0])
	if n < len(r.Replies[0]) {
		r.Replies[0] = r.Replies[0][n:]
	} else {
		r.Replies = r.Replies[1:]
	}
	return n, nil
}

// Writes returns a copy of the recorded write calls in order.
func (r *Recorder) Writes() [][]byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([][]byte, len(r.writes))
	copy(out, r.writes)
	return out
}
