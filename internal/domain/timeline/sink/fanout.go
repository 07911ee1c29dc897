// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package sink

import (
	"context"
	"time"

	"github.com/ManuGH/timelinesink/internal/domain/timeline/model"
	"github.com/ManuGH/timelinesink/internal/domain/timeline/ports"
	xglog "github.com/ManuGH/timelinesink/internal/log"
	"github.com/ManuGH/timelinesink/internal/metrics"
)

// emitter binds the fan-out path to one producer instance.
func (s *DataSink) emitter(e *producerEntry) ports.Emitter {
	producer := string(e.id)
	return func(ev model.Event) {
		ev.Producer = e.id
		if ev.Time.IsZero() {
			ev.Time = time.Now()
		}
		s.countEmitted(producer, ev.Type)
		s.fanout(e, ev)
	}
}

func (s *DataSink) fanout(e *producerEntry, ev model.Event) {
	producer := string(e.id)

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.producers[e.id] != e || !s.session.IsStarted(e.id) {
		s.countDropped(producer, metrics.DropNotStarted)
		return
	}
	key := ev.Key()
	if !s.session.Enabled(key) {
		s.countDropped(producer, metrics.DropNotEnabled)
		return
	}

	d := delivery{packet: model.NewEventPacket(s.name, ev), entry: e, epoch: e.epoch.Load()}
	delivered := false
	for _, c := range s.clients {
		if !s.session.Wants(c.id, key) {
			continue
		}
		delivered = true
		select {
		case c.queue <- d:
		default:
			s.countDropped(producer, metrics.DropQueueFull)
			s.logger.Debug().
				Str(xglog.FieldClientID, string(c.id)).
				Str(xglog.FieldProducerID, producer).
				Str(xglog.FieldFeature, ev.Type).
				Msg("client queue full, event dropped")
		}
	}
	if !delivered {
		s.countDropped(producer, metrics.DropNoSubscriber)
	}
}

// pump delivers one client's queue in order. A send failure unregisters the
// client.
func (s *DataSink) pump(c *client) {
	guarded, buffered := c.sender.(ports.GuardedSender)
	for {
		select {
		case <-c.done:
			return
		case d := <-c.queue:
			producer := string(d.entry.id)
			var err error
			if buffered {
				err = guarded.SendGuarded(d.packet, func() (func(), bool) {
					release, ok := s.admit(c, d)
					if ok {
						s.countDelivered(producer)
					}
					return release, ok
				})
			} else {
				release, ok := s.admit(c, d)
				if !ok {
					continue
				}
				err = c.sender.Send(d.packet)
				if err == nil {
					s.countDelivered(producer)
				}
				release()
			}
			if err != nil {
				s.countDropped(producer, metrics.DropSendFailed)
				s.dropLost(c, err)
				return
			}
		}
	}
}

// admit re-checks a delivery right before it is written. On success the
// client's gate stays read-held until release is called, which keeps stop
// and destroy from returning mid-write.
func (s *DataSink) admit(c *client, d delivery) (release func(), ok bool) {
	c.gate.RLock()
	if c.closed.Load() || d.entry.epoch.Load() != d.epoch {
		c.gate.RUnlock()
		s.countDropped(string(d.entry.id), metrics.DropStale)
		return nil, false
	}
	return c.gate.RUnlock, true
}

// dropLost unregisters a client whose channel failed. It is a no-op if the
// ID has since been destroyed or re-registered.
func (s *DataSink) dropLost(c *client, cause error) {
	s.logger.Warn().Err(cause).
		Str(xglog.FieldEvent, "sink.client_lost").
		Str(xglog.FieldClientID, string(c.id)).
		Msg("timeline ui channel failed, unregistering")

	s.opMu.Lock()
	defer s.opMu.Unlock()
	if err := s.destroyLocked(context.Background(), c.id, c); err != nil {
		s.logger.Warn().Err(err).
			Str(xglog.FieldClientID, string(c.id)).
			Msg("cleanup after lost client reported errors")
	}
}

func (s *DataSink) countEmitted(producer, feature string) {
	metrics.IncEventEmitted(producer, feature)
	s.instruments.Emitted(context.Background(), producer, feature)
}

func (s *DataSink) countDelivered(producer string) {
	metrics.IncEventDelivered(producer)
	s.instruments.Delivered(context.Background(), producer)
}

func (s *DataSink) countDropped(producer, reason string) {
	metrics.IncEventDropped(producer, reason)
	s.instruments.Dropped(context.Background(), producer, reason)
}
