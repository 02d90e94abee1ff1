package unixsock

import (
	"fmt"
	"io"
)

type WriteStatus int

const (
	WriteFull WriteStatus = iota
	WritePartial
	WriteFailed
)

func (s WriteStatus) String() string {
	switch s {
	case WriteFull:
		return "full"
	case WritePartial:
		return "partial"
	default:
		return "failed"
	}
}

// WriteResult is the outcome of writing one record with one write call.
type WriteResult struct {
	Written  int
	Expected int
	Cause    error
}

func (r WriteResult) Status() WriteStatus {
	switch {
	case r.Written >= r.Expected && r.Cause == nil:
		return WriteFull
	case r.Written > 0:
		return WritePartial
	default:
		return WriteFailed
	}
}

// Err is nil only when the whole record went out.
func (r WriteResult) Err() error {
	if r.Status() == WriteFull {
		return nil
	}
	if r.Cause != nil {
		return fmt.Errorf("write %d/%d bytes: %w", r.Written, r.Expected, r.Cause)
	}
	return &ShortWriteError{Written: r.Written, Expected: r.Expected}
}

// ShortWriteError reports a write that returned fewer bytes and no error.
type ShortWriteError struct {
	Written  int
	Expected int
}

func (e *ShortWriteError) Error() string {
	return fmt.Sprintf("unixsock: short write %d/%d bytes", e.Written, e.Expected)
}

func (e *ShortWriteError) Is(target error) bool {
	return target == io.ErrShortWrite
}

// WriteRecord issues exactly one Write for rec and does not loop on a short
// count.
func WriteRecord(w io.Writer, rec []byte) WriteResult {
	n, err := w.Write(rec)
	if n < 0 {
		n = 0
	}
	return WriteResult{Written: n, Expected: len(rec), Cause: err}
}
