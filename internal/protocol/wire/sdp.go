package wire

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"
)

// SDPLengthSize is the size of the reply length prefix.
const SDPLengthSize = 4

// DefaultMaxSDPBytes bounds the allocation for one SDP reply.
const DefaultMaxSDPBytes = 64 * 1024

var (
	ErrInvalidSDPLength  = errors.New("wire: invalid sdp reply length")
	ErrSDPTooLarge       = errors.New("wire: sdp reply too large")
	ErrTruncatedReply    = errors.New("wire: truncated sdp reply")
	ErrMalformedSDPReply = errors.New("wire: malformed sdp reply")
)

// ReadSDPReply reads the int32 length and then exactly that many payload bytes,
// however many reads that takes. The returned string has no terminator.
// maxBytes <= 0 means DefaultMaxSDPBytes.
func (l Layout) ReadSDPReply(r io.Reader, maxBytes int) (string, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxSDPBytes
	}

	var lenBuf [SDPLengthSize]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return "", fmt.Errorf("%w: length: %w", ErrTruncatedReply, err)
	}
	n := int32(l.Order.Uint32(lenBuf[:]))
	if n < 0 {
		return "", fmt.Errorf("%w: %d", ErrInvalidSDPLength, n)
	}
	if int(n) > maxBytes {
		// Drain the payload so the next reply starts on a length prefix.
		if _, err := io.CopyN(io.Discard, r, int64(n)); err != nil {
			return "", fmt.Errorf("%w: %d > %d: discard: %w", ErrSDPTooLarge, n, maxBytes, err)
		}
		return "", fmt.Errorf("%w: %d > %d", ErrSDPTooLarge, n, maxBytes)
	}

	// n+1 so the buffer is NUL terminated even when the peer omits it.
	buf := make([]byte, int(n)+1)
	if _, err := io.ReadFull(r, buf[:n]); err != nil {
		return "", fmt.Errorf("%w: payload: %w", ErrTruncatedReply, err)
	}

	payload := buf[:n]
	if len(payload) > 0 && payload[len(payload)-1] == 0 {
		payload = payload[:len(payload)-1]
	}
	if i := bytes.IndexByte(payload, 0); i >= 0 {
		return "", fmt.Errorf("%w: terminator at %d, declared length %d", ErrMalformedSDPReply, i, n)
	}
	if !utf8.Valid(payload) {
		return "", fmt.Errorf("%w: invalid utf-8", ErrMalformedSDPReply)
	}
	return string(payload), nil
}

// EncodeSDPReply builds the reply a peer sends for PRINTSDP: the declared
// length covers the string and its terminator.
func (l Layout) EncodeSDPReply(sdp string) []byte {
	n := len(sdp) + 1
	buf := make([]byte, SDPLengthSize+n)
	l.Order.PutUint32(buf[:SDPLengthSize], uint32(int32(n)))
	copy(buf[SDPLengthSize:], sdp)
	return buf
}
