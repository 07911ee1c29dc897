// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package ws

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/ManuGH/timelinesink/internal/domain/timeline/actor"
	"github.com/ManuGH/timelinesink/internal/domain/timeline/model"
	"github.com/ManuGH/timelinesink/internal/domain/timeline/ports"
	"github.com/ManuGH/timelinesink/internal/ratelimit"
)

// ErrConnClosed is returned by Send once the connection is closing.
var ErrConnClosed = errors.New("connection closed")

var _ ports.GuardedSender = (*conn)(nil)

type conn struct {
	id     string
	ws     *websocket.Conn
	cfg    Config
	logger zerolog.Logger
	actor  *actor.Actor

	out        chan outbound
	done       chan struct{}
	closeOnce  sync.Once
	writerDone chan struct{}
}

// outbound is one queued write. A non-nil guard is evaluated right before
// the packet is written.
type outbound struct {
	packet model.Packet
	guard  ports.WriteGuard
}

func newConn(id string, wsConn *websocket.Conn, cfg Config, logger zerolog.Logger) *conn {
	return &conn{
		id:         id,
		ws:         wsConn,
		cfg:        cfg,
		logger:     logger,
		out:        make(chan outbound, cfg.WriteQueueSize),
		done:       make(chan struct{}),
		writerDone: make(chan struct{}),
	}
}

func (c *conn) close() { c.closeOnce.Do(func() { close(c.done) }) }

// Send queues a packet for the writer. It blocks while the write queue is
// full and fails once the connection is closing.
func (c *conn) Send(p model.Packet) error {
	return c.SendGuarded(p, nil)
}

// SendGuarded queues a packet whose guard is checked by the writer just
// before the write. Packets whose guard refuses are discarded.
func (c *conn) SendGuarded(p model.Packet, guard ports.WriteGuard) error {
	select {
	case <-c.done:
		return ErrConnClosed
	default:
	}
	select {
	case c.out <- outbound{packet: p, guard: guard}:
		return nil
	case <-c.done:
		return ErrConnClosed
	}
}

func (c *conn) serve(ctx context.Context, limiter *ratelimit.Limiter) {
	c.logger.Info().Str("event", "ws.connected").Msg("timeline connection opened")

	go c.writeLoop()
	c.readLoop(ctx, limiter)

	c.close()
	<-c.writerDone
	_ = c.ws.Close()

	c.actor.Disconnect(ctx)
	if limiter != nil {
		limiter.Forget(c.id)
	}
}

func (c *conn) readLoop(ctx context.Context, limiter *ratelimit.Limiter) {
	c.ws.SetReadLimit(c.cfg.MaxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Debug().Err(err).Msg("websocket read failed")
			}
			return
		}
		_ = c.ws.SetReadDeadline(time.Now().Add(c.cfg.PongWait))

		var req model.Request
		if err := json.Unmarshal(data, &req); err != nil {
			if c.Send(model.NewErrorPacket(model.SinkActorName, model.RequestUnknown,
				model.NewError(model.CodeBadRequest, "malformed request: %v", err))) != nil {
				return
			}
			continue
		}
		if limiter != nil && !limiter.Allow(c.id) {
			if c.Send(model.NewErrorPacket(model.SinkActorName, req.Kind(),
				model.NewError(model.CodeBadRequest, "request rate exceeded"))) != nil {
				return
			}
			continue
		}

		if err := c.Send(c.actor.Handle(ctx, req)); err != nil {
			return
		}
	}
}

func (c *conn) writeLoop() {
	defer close(c.writerDone)
	ticker := time.NewTicker(c.cfg.PingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			_ = c.ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(closeGracePeriod))
			_ = c.ws.Close()
			return
		case o := <-c.out:
			if err := c.write(o); err != nil {
				c.logger.Debug().Err(err).Msg("websocket write failed")
				c.close()
				_ = c.ws.Close()
				return
			}
		case <-ticker.C:
			if err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.cfg.WriteWait)); err != nil {
				c.close()
				_ = c.ws.Close()
				return
			}
		}
	}
}

func (c *conn) write(o outbound) error {
	if o.guard != nil {
		release, ok := o.guard()
		if !ok {
			return nil
		}
		defer release()
	}
	_ = c.ws.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
	return c.ws.WriteJSON(o.packet)
}
