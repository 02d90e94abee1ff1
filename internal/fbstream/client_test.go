package fbstream

import (
	"bytes"
	"encoding/binary"
	"errors"
	"strings"
	"syscall"
	"testing"

	"github.com/danmuck/eventbridge/internal/protocol/wire"
	"github.com/danmuck/eventbridge/internal/testutil/peertest"
	"github.com/danmuck/eventbridge/internal/testutil/testlog"
	"github.com/danmuck/eventbridge/internal/transport/unixsock"
)

var testLayout = wire.Layout{Name: "lp64-le", Order: binary.LittleEndian, LongSize: 8, Aligned: true}

func newRecorded(opts Options) (*Client, *peertest.Recorder) {
	rec := &peertest.Recorder{}
	opts.Layout = testLayout
	return NewClient(rec, opts), rec
}

func TestStartWritesCommandThenInit(t *testing.T) {
	testlog.Start(t)
	c, rec := newRecorded(Options{})

	setup := wire.FbstreamInit{IP: "10.0.0.2", VideoPort: 5004, AudioPort: 5006}
	if err := c.Start(9, setup); err != nil {
		t.Fatalf("start: %v", err)
	}

	writes := rec.Writes()
	if len(writes) != 2 {
		t.Fatalf("expected exactly 2 writes, got %d", len(writes))
	}
	if len(writes[0]) != testLayout.CommandSize() || len(writes[1]) != testLayout.InitSize() {
		t.Fatalf("unexpected write sizes: %d, %d", len(writes[0]), len(writes[1]))
	}
	cmd, err := testLayout.DecodeCommand(writes[0])
	if err != nil || cmd.Cmd != wire.CmdStart || cmd.SessionID != 9 {
		t.Fatalf("first write is not the start command: %+v err=%v", cmd, err)
	}
	got, err := testLayout.DecodeInit(writes[1])
	if err != nil || got != setup {
		t.Fatalf("second write is not the init record: %+v err=%v", got, err)
	}
	testlog.Logf("fbstream/start: writes=%d sizes=%d,%d", len(writes), len(writes[0]), len(writes[1]))
}

func TestStartCoalescedIsOneWriteSameBytes(t *testing.T) {
	testlog.Start(t)
	split, splitRec := newRecorded(Options{})
	joined, joinedRec := newRecorded(Options{CoalesceStart: true})

	setup := wire.FbstreamInit{IP: "192.168.1.20", VideoPort: 6000}
	if err := split.Start(1, setup); err != nil {
		t.Fatalf("split start: %v", err)
	}
	if err := joined.Start(1, setup); err != nil {
		t.Fatalf("joined start: %v", err)
	}
	jw := joinedRec.Writes()
	if len(jw) != 1 {
		t.Fatalf("expected one write, got %d", len(jw))
	}
	sw := splitRec.Writes()
	if !bytes.Equal(jw[0], append(append([]byte(nil), sw[0]...), sw[1]...)) {
		t.Fatalf("coalesced bytes differ from split bytes")
	}
}

func TestStartRequiresInitAndValidIP(t *testing.T) {
	testlog.Start(t)
	c, rec := newRecorded(Options{})
	if _, err := c.Send(wire.FbstreamCommand{Cmd: wire.CmdStart}, nil); !errors.Is(err, ErrStartRequiresInit) {
		t.Fatalf("expected ErrStartRequiresInit, got %v", err)
	}
	if err := c.Start(0, wire.FbstreamInit{IP: "stream.local"}); !errors.Is(err, ErrInvalidStreamIP) {
		t.Fatalf("expected ErrInvalidStreamIP, got %v", err)
	}
	if err := c.Start(0, wire.FbstreamInit{IP: "::1"}); !errors.Is(err, ErrInvalidStreamIP) {
		t.Fatalf("expected ErrInvalidStreamIP for ipv6, got %v", err)
	}
	if n := len(rec.Writes()); n != 0 {
		t.Fatalf("rejected commands must not write, got %d writes", n)
	}
}

func TestSimpleCommandsAreSingleRecords(t *testing.T) {
	testlog.Start(t)
	c, rec := newRecorded(Options{})
	if err := c.Play(3); err != nil {
		t.Fatalf("play: %v", err)
	}
	if err := c.Pause(3); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if err := c.Stop(3); err != nil {
		t.Fatalf("stop: %v", err)
	}
	writes := rec.Writes()
	want := []wire.Command{wire.CmdPlay, wire.CmdPause, wire.CmdStop}
	if len(writes) != len(want) {
		t.Fatalf("expected %d writes, got %d", len(want), len(writes))
	}
	for i, w := range writes {
		cmd, err := testLayout.DecodeCommand(w)
		if err != nil || cmd.Cmd != want[i] || cmd.SessionID != 3 {
			t.Fatalf("write %d: %+v err=%v", i, cmd, err)
		}
	}
}

func TestUnknownCommandPassesThrough(t *testing.T) {
	testlog.Start(t)
	c, rec := newRecorded(Options{})
	reply, err := c.Send(wire.FbstreamCommand{Cmd: 99, SessionID: -5}, &wire.FbstreamInit{IP: "1.2.3.4"})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	writes := rec.Writes()
	if len(writes) != 1 || len(reply.Writes) != 1 {
		t.Fatalf("unknown code must be a single record, got %d writes", len(writes))
	}
	if !bytes.Equal(writes[0], testLayout.EncodeCommand(wire.FbstreamCommand{Cmd: 99, SessionID: -5})) {
		t.Fatalf("record bytes altered: %x", writes[0])
	}
	if binary.LittleEndian.Uint32(writes[0][:4]) != 99 {
		t.Fatalf("command code altered")
	}
}

func TestPrintSDPReassemblesChunkedReply(t *testing.T) {
	testlog.Start(t)
	c, rec := newRecorded(Options{})
	length := make([]byte, 4)
	binary.LittleEndian.PutUint32(length, 5)
	rec.Replies = [][]byte{length, []byte("hel"), []byte("lo")}

	sdp, err := c.PrintSDP(0)
	if err != nil {
		t.Fatalf("printsdp: %v", err)
	}
	if sdp != "hello" {
		t.Fatalf("unexpected sdp: %q", sdp)
	}
	writes := rec.Writes()
	if len(writes) != 1 {
		t.Fatalf("expected one command write, got %d", len(writes))
	}
	if cmd, _ := testLayout.DecodeCommand(writes[0]); cmd.Cmd != wire.CmdPrintSDP {
		t.Fatalf("unexpected command: %+v", cmd)
	}
}

func TestPrintSDPTruncatedReply(t *testing.T) {
	testlog.Start(t)
	c, rec := newRecorded(Options{})
	length := make([]byte, 4)
	binary.LittleEndian.PutUint32(length, 10)
	rec.Replies = [][]byte{length, []byte("short")}

	if _, err := c.PrintSDP(0); !errors.Is(err, wire.ErrTruncatedReply) {
		t.Fatalf("expected ErrTruncatedReply, got %v", err)
	}
}

func TestPrintSDPRecoversAfterOversizeReply(t *testing.T) {
	testlog.Start(t)
	c, rec := newRecorded(Options{MaxSDPBytes: 16})
	big := "v=0\r\ns=" + strings.Repeat("x", 30) + "\r\n"
	rec.Replies = [][]byte{testLayout.EncodeSDPReply(big), testLayout.EncodeSDPReply("v=0")}

	if _, err := c.PrintSDP(1); !errors.Is(err, wire.ErrSDPTooLarge) {
		t.Fatalf("expected ErrSDPTooLarge, got %v", err)
	}
	sdp, err := c.PrintSDP(1)
	if err != nil {
		t.Fatalf("second printsdp: %v", err)
	}
	if sdp != "v=0" {
		t.Fatalf("unexpected second sdp %q", sdp)
	}
	if n := len(rec.Writes()); n != 2 {
		t.Fatalf("expected one command write per call, got %d", n)
	}
	testlog.Logf("fbstream/printsdp: recovered after oversize reply, sdp=%q", sdp)
}

func TestWriteFailureIsSurfaced(t *testing.T) {
	testlog.Start(t)
	c, rec := newRecorded(Options{})
	rec.WriteErr = syscall.EPIPE
	err := c.Start(1, wire.FbstreamInit{IP: "10.0.0.2", VideoPort: 1})
	if !errors.Is(err, syscall.EPIPE) {
		t.Fatalf("expected EPIPE, got %v", err)
	}

	rec.WriteErr = nil
	rec.ShortBy = 2
	reply, err := c.Send(wire.FbstreamCommand{Cmd: wire.CmdStart}, &wire.FbstreamInit{IP: "10.0.0.2"})
	var sw *unixsock.ShortWriteError
	if !errors.As(err, &sw) {
		t.Fatalf("expected ShortWriteError, got %v", err)
	}
	if len(reply.Writes) != 1 || reply.Writes[0].Status() != unixsock.WritePartial {
		t.Fatalf("init must not follow a short command write: %+v", reply.Writes)
	}
}

func TestClientOverUnixSocket(t *testing.T) {
	testlog.Start(t)
	peer := peertest.Listen(t)
	c, err := Dial(peer.Path, Options{Layout: testLayout})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer c.Close()
	srv := peer.Accept(t)

	const sdp = "v=0\r\no=- 0 0 IN IP4 10.0.0.1\r\ns=fbstream\r\nt=0 0\r\n"
	if _, err := srv.Write(testLayout.EncodeSDPReply(sdp)); err != nil {
		t.Fatalf("peer write: %v", err)
	}
	if err := c.Start(4, wire.FbstreamInit{IP: "10.0.0.2", VideoPort: 5004}); err != nil {
		t.Fatalf("start: %v", err)
	}
	got, err := c.PrintSDP(4)
	if err != nil {
		t.Fatalf("printsdp: %v", err)
	}
	if got != sdp {
		t.Fatalf("unexpected sdp: %q", got)
	}

	start, _ := testLayout.DecodeCommand(peertest.ReadRecord(t, srv, testLayout.CommandSize()))
	setup, _ := testLayout.DecodeInit(peertest.ReadRecord(t, srv, testLayout.InitSize()))
	sdpCmd, _ := testLayout.DecodeCommand(peertest.ReadRecord(t, srv, testLayout.CommandSize()))
	if start.Cmd != wire.CmdStart || setup.IP != "10.0.0.2" || setup.VideoPort != 5004 || sdpCmd.Cmd != wire.CmdPrintSDP {
		t.Fatalf("peer saw start=%+v init=%+v printsdp=%+v", start, setup, sdpCmd)
	}
	testlog.Logf("fbstream/socket: start -> init -> printsdp (%d bytes)", len(got))
}

func TestDialMissingSocket(t *testing.T) {
	testlog.Start(t)
	logged := testlog.Capture(t)
	c, err := Dial("/nonexistent/eventbridge/fbstream.sock", DefaultOptions())
	if err == nil || c != nil {
		t.Fatalf("expected dial failure without client, got client=%v err=%v", c, err)
	}
	if !strings.Contains(err.Error(), "/nonexistent/eventbridge/fbstream.sock") {
		t.Fatalf("expected socket path in error, got %v", err)
	}
	if logged.Len() != 0 {
		t.Fatalf("dial failure logged before reaching the caller: %q", logged.String())
	}
}
