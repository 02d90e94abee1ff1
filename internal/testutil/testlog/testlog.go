package testlog

import (
	"bytes"
	"testing"

	"github.com/danmuck/eventbridge/internal/logging"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func Start(t *testing.T) {
	t.Helper()
	logging.ConfigureTests()
	log.Info().Str("test", t.Name()).Msg("test start")
}

// Logf writes a debug trace line for the running test.
func Logf(format string, args ...any) {
	log.Debug().Msgf(format, args...)
}

// Capture routes the global logger into a buffer until the test ends. Tests
// using it must not run in parallel.
func Capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	prev := log.Logger
	buf := &bytes.Buffer{}
	log.Logger = zerolog.New(buf)
	t.Cleanup(func() { log.Logger = prev })
	return buf
}
