package bridge

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/danmuck/eventbridge/internal/fbstream"
	"github.com/danmuck/eventbridge/internal/protocol/wire"
	"github.com/danmuck/eventbridge/internal/sensor"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

var (
	ErrSensorsDetached  = errors.New("bridge: sensor channel not attached")
	ErrStreamDetached   = errors.New("bridge: fbstream channel not attached")
	ErrCommandEndpoint  = errors.New("bridge: command has a dedicated endpoint")
	ErrInvalidSessionID = errors.New("bridge: invalid session id")
)

type sensorRequest struct {
	Type      int32     `json:"type"`
	Accuracy  int32     `json:"accuracy"`
	Timestamp int64     `json:"timestamp"`
	Values    []float32 `json:"values"`
}

type startRequest struct {
	SessionID int64  `json:"session_id"`
	IP        string `json:"ip" binding:"required"`
	VideoPort int32  `json:"video_port" binding:"required"`
	AudioPort int32  `json:"audio_port"`
}

func (b *Bridge) RegisterRoutes() {
	r := b.router
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(b.Appeared).String(),
			"service": b.ID,
			"version": version,
		})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/ready", func(c *gin.Context) {
		b.streamMu.Lock()
		streamAttached := b.stream != nil
		b.streamMu.Unlock()
		ready := b.sensorSink() != nil
		status := http.StatusOK
		if !ready {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{
			"ready":    ready,
			"sensor":   ready,
			"fbstream": streamAttached,
			"service":  b.ID,
			"version":  version,
		})
	})

	r.POST("/sensors", b.handleSensor)
	r.POST("/fbstream/start", b.handleStart)
	r.POST("/fbstream/commands/:command", b.handleCommand)
	r.GET("/fbstream/sdp", b.handleSDP)
	r.GET("/fbstream/state", func(c *gin.Context) {
		c.JSON(http.StatusOK, b.State())
	})
}

func (b *Bridge) handleSensor(c *gin.Context) {
	sink := b.sensorSink()
	if sink == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": ErrSensorsDetached.Error()})
		return
	}
	var req sensorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ev := sensor.NewSensorEvent(req.Type, req.Accuracy, req.Timestamp, req.Values)
	if err := sink.Enqueue(ev); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "queued"})
}

func (b *Bridge) handleStart(c *gin.Context) {
	var req startRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	setup := wire.FbstreamInit{IP: strings.TrimSpace(req.IP), VideoPort: req.VideoPort, AudioPort: req.AudioPort}

	b.streamMu.Lock()
	defer b.streamMu.Unlock()
	if b.stream == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": ErrStreamDetached.Error()})
		return
	}
	err := b.stream.Start(req.SessionID, setup)
	b.recordLocked(wire.CmdStart, req.SessionID, &setup, err)
	if err != nil {
		c.JSON(streamErrorStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "command": wire.CmdStart.String()})
}

func (b *Bridge) handleCommand(c *gin.Context) {
	cmd, err := ParseCommand(c.Param("command"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sessionID, err := sessionParam(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	b.streamMu.Lock()
	defer b.streamMu.Unlock()
	if b.stream == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": ErrStreamDetached.Error()})
		return
	}
	reply, err := b.stream.Send(wire.FbstreamCommand{Cmd: cmd, SessionID: sessionID}, nil)
	b.recordLocked(cmd, sessionID, nil, err)
	if err != nil {
		c.JSON(streamErrorStatus(err), gin.H{"error": err.Error()})
		return
	}
	written := 0
	for _, w := range reply.Writes {
		written += w.Written
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "command": cmd.String(), "bytes": written})
}

func (b *Bridge) handleSDP(c *gin.Context) {
	sessionID, err := sessionParam(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	b.streamMu.Lock()
	defer b.streamMu.Unlock()
	if b.stream == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": ErrStreamDetached.Error()})
		return
	}
	raw, err := b.stream.PrintSDP(sessionID)
	b.recordLocked(wire.CmdPrintSDP, sessionID, nil, err)
	if err != nil {
		c.JSON(streamErrorStatus(err), gin.H{"error": err.Error()})
		return
	}

	body := gin.H{"sdp": raw}
	if desc, err := fbstream.ParseSDP(raw); err != nil {
		log.Warn().Err(err).Msg("sdp reply did not parse; returning raw text only")
	} else {
		body["media"] = fbstream.Summarize(desc)
	}
	c.JSON(http.StatusOK, body)
}

// recordLocked updates state; streamMu must be held.
func (b *Bridge) recordLocked(cmd wire.Command, sessionID int64, setup *wire.FbstreamInit, err error) {
	b.state.UpdatedAt = time.Now()
	if err != nil {
		b.state.LastError = err.Error()
		return
	}
	b.state.LastError = ""
	if cmd == wire.CmdPrintSDP {
		return
	}
	b.state.LastCommand = cmd.String()
	b.state.SessionID = sessionID
	switch cmd {
	case wire.CmdStart:
		b.state.Init = setup
		b.state.Playing = false
	case wire.CmdPlay:
		b.state.Playing = true
	case wire.CmdPause:
		b.state.Playing = false
	case wire.CmdStop:
		b.state.Playing = false
		b.state.Init = nil
	}
}

// ParseCommand resolves a command for the generic command route. START and
// PRINTSDP need their own endpoints because they carry extra data.
func ParseCommand(raw string) (wire.Command, error) {
	cmd, err := wire.ParseCommand(raw)
	if err != nil {
		return 0, err
	}
	if cmd == wire.CmdStart || cmd == wire.CmdPrintSDP {
		return 0, ErrCommandEndpoint
	}
	return cmd, nil
}

func sessionParam(c *gin.Context) (int64, error) {
	raw := strings.TrimSpace(c.Query("session"))
	if raw == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, ErrInvalidSessionID
	}
	return id, nil
}

func streamErrorStatus(err error) int {
	switch {
	case errors.Is(err, fbstream.ErrInvalidStreamIP), errors.Is(err, fbstream.ErrStartRequiresInit):
		return http.StatusBadRequest
	case errors.Is(err, sensor.ErrQueueFull), errors.Is(err, sensor.ErrDispatcherClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}
