package bridge

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/danmuck/eventbridge/internal/fbstream"
	"github.com/danmuck/eventbridge/internal/observability"
	"github.com/danmuck/eventbridge/internal/protocol/wire"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const version = "0.1.0"

// SensorSink takes samples for ordered delivery to the sensor peer.
type SensorSink interface {
	Enqueue(ev wire.SensorEvent) error
}

// StreamControl is the fbstream control surface the bridge drives.
type StreamControl interface {
	Start(sessionID int64, setup wire.FbstreamInit) error
	Send(cmd wire.FbstreamCommand, setup *wire.FbstreamInit) (fbstream.Reply, error)
	PrintSDP(sessionID int64) (string, error)
}

// StreamState is what the bridge last told the fbstream peer. The peer keeps
// no per-connection state the bridge can query, so this is tracked here.
type StreamState struct {
	LastCommand string             `json:"last_command,omitempty"`
	SessionID   int64              `json:"session_id"`
	Init        *wire.FbstreamInit `json:"init,omitempty"`
	Playing     bool               `json:"playing"`
	UpdatedAt   time.Time          `json:"updated_at,omitempty"`
	LastError   string             `json:"last_error,omitempty"`
}

type Bridge struct {
	ID       string
	Addr     string
	Appeared time.Time

	sensorsMu sync.RWMutex
	sensors   SensorSink

	stream StreamControl

	// streamMu serializes every exchange on the shared fbstream connection
	// and guards state.
	streamMu sync.Mutex
	state    StreamState

	router *gin.Engine
}

func Appear(id, addr string, corsOrigins []string) *Bridge {
	observability.RegisterMetrics()
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(log.Logger))
	r.Use(observability.RequestMetricsMiddleware(id))
	r.Use(cors.New(cors.Config{
		AllowOrigins: normalizeOrigins(corsOrigins),
		AllowMethods: []string{"GET", "POST"},
		AllowHeaders: []string{"Origin", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	return &Bridge{
		ID:       id,
		Addr:     addr,
		Appeared: time.Now(),
		router:   r,
	}
}

func (b *Bridge) AttachSensors(s SensorSink) {
	b.sensorsMu.Lock()
	defer b.sensorsMu.Unlock()
	b.sensors = s
}

func (b *Bridge) sensorSink() SensorSink {
	b.sensorsMu.RLock()
	defer b.sensorsMu.RUnlock()
	return b.sensors
}

func (b *Bridge) AttachStream(s StreamControl) {
	b.streamMu.Lock()
	defer b.streamMu.Unlock()
	b.stream = s
}

func (b *Bridge) HTTPRouter() *gin.Engine {
	return b.router
}

func (b *Bridge) State() StreamState {
	b.streamMu.Lock()
	defer b.streamMu.Unlock()
	return b.state
}

// Serve runs until ctx is cancelled, then shuts the listener down.
func (b *Bridge) Serve(ctx context.Context) error {
	b.RegisterRoutes()
	srv := &http.Server{
		Addr:              b.Addr,
		Handler:           b.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}

func normalizeOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"http://localhost:3000"}
	}
	return origins
}
