// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package actor terminates one UI connection: it dispatches the nine request
// types to the shared sink, enforces registration and the per-connection
// lifecycle, and turns results into reply packets.
package actor

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ManuGH/timelinesink/internal/domain/timeline/lifecycle"
	"github.com/ManuGH/timelinesink/internal/domain/timeline/model"
	"github.com/ManuGH/timelinesink/internal/domain/timeline/ports"
	xglog "github.com/ManuGH/timelinesink/internal/log"
	"github.com/ManuGH/timelinesink/internal/metrics"
	"github.com/ManuGH/timelinesink/internal/telemetry"
)

// Hub is the subset of the sink an actor drives.
type Hub interface {
	Init(ctx context.Context, id model.ClientID, sender ports.PacketSender) error
	IsRegistered(id model.ClientID) bool
	Destroy(ctx context.Context, id model.ClientID) error
	EnableFeatures(ctx context.Context, client model.ClientID, producer model.ProducerID, features []string) error
	DisableFeatures(ctx context.Context, client model.ClientID, producer model.ProducerID, features []string) error
	StartProducer(ctx context.Context, client model.ClientID, producer model.ProducerID, features []string) error
	StopProducer(ctx context.Context, client model.ClientID, producer model.ProducerID) error
	StartListening(ctx context.Context, cfg model.SessionConfig) (alreadyActive bool, err error)
	StopListening(ctx context.Context) error
	ReplyToPing() model.Snapshot
	Snapshot() model.Snapshot
}

// Config wires an actor to its connection.
type Config struct {
	Hub    Hub
	Sender ports.PacketSender
	// ConnID identifies the connection in logs and spans.
	ConnID string
	Logger *zerolog.Logger
}

type Actor struct {
	hub    Hub
	sender ports.PacketSender
	connID string
	logger zerolog.Logger
	tracer trace.Tracer

	mu      sync.Mutex
	state   lifecycle.State
	clients map[model.ClientID]struct{}
}

func New(cfg Config) *Actor {
	logger := xglog.WithComponent("actor")
	if cfg.Logger != nil {
		logger = cfg.Logger.With().Str(xglog.FieldComponent, "actor").Logger()
	}
	if cfg.ConnID != "" {
		logger = logger.With().Str(xglog.FieldConnID, cfg.ConnID).Logger()
	}
	return &Actor{
		hub:     cfg.Hub,
		sender:  cfg.Sender,
		connID:  cfg.ConnID,
		logger:  logger,
		tracer:  telemetry.Tracer(telemetry.TracerName),
		state:   lifecycle.StateConnected,
		clients: make(map[model.ClientID]struct{}),
	}
}

// ID is the actor name used as the "from" field of replies.
func (a *Actor) ID() string { return model.SinkActorName }

// State returns the lifecycle state after catching up with changes other
// connections made to the sink.
func (a *Actor) State() lifecycle.State {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.reconcile(context.Background())
	return a.state
}

// Clients returns the client IDs registered through this actor, sorted.
func (a *Actor) Clients() []model.ClientID {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]model.ClientID, 0, len(a.clients))
	for id := range a.clients {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Handle processes one request and returns the packet to send back. It never
// returns a Go error: failures become error packets.
func (a *Actor) Handle(ctx context.Context, req model.Request) model.Packet {
	kind := req.Kind()

	ctx, span := a.tracer.Start(ctx, "timeline.request", trace.WithAttributes(telemetry.RequestAttributes(req)...))
	defer span.End()

	if req.TimelineUIID != "" {
		ctx = xglog.ContextWithClientID(ctx, string(req.TimelineUIID))
	}

	a.mu.Lock()
	a.reconcile(ctx)
	ack, err := a.dispatch(ctx, kind, req)
	a.mu.Unlock()

	if err != nil {
		me := model.AsError(err)
		span.SetAttributes(telemetry.ErrorAttributes(me.Code)...)
		span.SetStatus(codes.Error, me.Error())
		metrics.IncRequest(kind.String(), string(me.Code))

		l := xglog.WithContext(ctx, a.logger)

		l.Warn().
			Str(xglog.FieldRequest, req.Type).
			Str("code", string(me.Code)).
			Str(xglog.FieldProducerID, string(me.Producer)).
			Msg(me.Error())
		return model.NewErrorPacket(a.ID(), kind, me)
	}

	metrics.IncRequest(kind.String(), "ok")
	return model.NewReplyPacket(a.ID(), kind, ack)
}

func (a *Actor) dispatch(ctx context.Context, kind model.RequestType, req model.Request) (model.Ack, error) {
	ev, ok := lifecycle.EventFor(kind)
	if !ok {
		return model.Ack{}, model.NewError(model.CodeUnrecognizedPacketType, "unrecognized packet type %q", req.Type)
	}
	if err := a.authorize(ev, req); err != nil {
		return model.Ack{}, err
	}

	ack := model.Ack{OK: true}
	var err error

	switch kind {
	case model.RequestPing:
		snap := a.hub.ReplyToPing()
		ack.Snapshot = &snap
	case model.RequestInit:
		err = a.init(ctx, req.TimelineUIID)
	case model.RequestDestroy:
		err = a.destroy(ctx, req.TimelineUIID)
	case model.RequestEnableFeatures:
		err = a.hub.EnableFeatures(ctx, req.TimelineUIID, req.ProducerID, req.Features)
	case model.RequestDisableFeatures:
		err = a.hub.DisableFeatures(ctx, req.TimelineUIID, req.ProducerID, req.Features)
	case model.RequestStartProducer:
		err = a.hub.StartProducer(ctx, req.TimelineUIID, req.ProducerID, req.Features)
	case model.RequestStopProducer:
		err = a.hub.StopProducer(ctx, req.TimelineUIID, req.ProducerID)
	case model.RequestStartRecording:
		var cfg model.SessionConfig
		if cfg, err = req.SessionConfig(); err == nil {
			ack.AlreadyActive, err = a.hub.StartListening(ctx, cfg)
		}
	case model.RequestStopRecording:
		err = a.hub.StopListening(ctx)
	case model.RequestUnknown:
		err = model.NewError(model.CodeUnrecognizedPacketType, "unrecognized packet type %q", req.Type)
	}
	if err != nil {
		return model.Ack{}, err
	}

	if kind != model.RequestDestroy {
		a.advance(ctx, ev)
	}
	return ack, nil
}

// authorize applies the lifecycle decision and, for per-client mutations,
// the registration check. It runs before any state change.
func (a *Actor) authorize(ev lifecycle.EventKind, req model.Request) error {
	d, ok := lifecycle.DecisionFor(a.state, ev)
	if !ok || !d.Allowed {
		return model.UINotRegistered(req.TimelineUIID)
	}
	if ev == lifecycle.EvMutate && !a.hub.IsRegistered(req.TimelineUIID) {
		return model.UINotRegistered(req.TimelineUIID)
	}
	return nil
}

func (a *Actor) advance(ctx context.Context, ev lifecycle.EventKind) {
	next, err := lifecycle.Next(a.state, ev)
	if err != nil {
		// Decisions are checked first; an illegal edge here is a table bug.
		l := xglog.WithContext(ctx, a.logger)
		l.Error().Err(err).Msg("lifecycle transition rejected")
		return
	}
	if next == a.state {
		return
	}
	l := xglog.WithContext(ctx, a.logger)
	l.Debug().
		Str(xglog.FieldOldState, string(a.state)).
		Str(xglog.FieldNewState, string(next)).
		Msg("actor state changed")
	a.state = next
}

// reconcile drops clients the sink no longer knows and follows a recording
// session that ended elsewhere. Clients leave the sink without this actor
// when another connection destroys them or a teardown clears the sink.
func (a *Actor) reconcile(ctx context.Context) {
	if a.state.IsTerminal() || a.state == lifecycle.StateConnected {
		return
	}
	for c := range a.clients {
		if !a.hub.IsRegistered(c) {
			delete(a.clients, c)
		}
	}
	if len(a.clients) == 0 {
		a.advance(ctx, lifecycle.EvReleased)
		return
	}
	if a.state == lifecycle.StateRecording && !a.hub.Snapshot().Active {
		a.advance(ctx, lifecycle.EvSessionEnded)
	}
}

func (a *Actor) init(ctx context.Context, id model.ClientID) error {
	if err := a.hub.Init(ctx, id, a.sender); err != nil {
		if errors.Is(err, model.ErrBadRequest) {
			return err
		}
		return model.NewError(model.CodeBadRequest, "init: %v", err)
	}
	a.clients[id] = struct{}{}
	return nil
}

// destroy unregisters id, or every client of this actor when id is empty.
// The actor itself ends once it has no clients left.
func (a *Actor) destroy(ctx context.Context, id model.ClientID) error {
	targets := []model.ClientID{id}
	if id == "" {
		targets = targets[:0]
		for c := range a.clients {
			targets = append(targets, c)
		}
	}

	var errs []error
	for _, c := range targets {
		if err := a.hub.Destroy(ctx, c); err != nil {
			errs = append(errs, err)
		}
		delete(a.clients, c)
	}
	if err := errors.Join(errs...); err != nil {
		l := xglog.WithContext(ctx, a.logger)
		l.Warn().Err(err).Msg("destroy cleanup reported errors")
	}

	if len(a.clients) == 0 {
		a.advance(ctx, lifecycle.EvDestroy)
	}
	return nil
}

// Disconnect is called when the connection goes away. It destroys every
// client this actor registered and ends the actor.
func (a *Actor) Disconnect(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state.IsTerminal() && len(a.clients) == 0 {
		return
	}
	for c := range a.clients {
		if err := a.hub.Destroy(ctx, c); err != nil {
			l := xglog.WithContext(ctx, a.logger)
			l.Warn().Err(err).
				Str(xglog.FieldClientID, string(c)).
				Msg("disconnect cleanup reported errors")
		}
		delete(a.clients, c)
	}
	a.advance(ctx, lifecycle.EvDisconnect)
	l := xglog.WithContext(ctx, a.logger)
	l.Info().
		Str(xglog.FieldEvent, "actor.disconnected").
		Msg("timeline connection closed")
}
