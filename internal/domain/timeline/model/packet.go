// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package model

// SinkActorName is the actor prefix used as the "from" field of every packet.
const SinkActorName = "dataSink"

// PacketTypeError is the type of packets carrying an ErrorMessage.
const PacketTypeError = "error"

// Packet is the wire envelope for replies and pushed events.
type Packet struct {
	From    string      `json:"from"`
	Type    string      `json:"type"`
	Message interface{} `json:"message,omitempty"`
}

// ErrorMessage is the payload of an error packet.
type ErrorMessage struct {
	Error      ErrorCode  `json:"error"`
	Message    string     `json:"message,omitempty"`
	Request    string     `json:"request,omitempty"`
	ProducerID ProducerID `json:"producerId,omitempty"`
}

// Ack is the payload of a successful reply.
type Ack struct {
	OK            bool      `json:"ok"`
	AlreadyActive bool      `json:"alreadyActive,omitempty"`
	Snapshot      *Snapshot `json:"snapshot,omitempty"`
}

// EventTimeField is the message key carrying the event timestamp in epoch
// milliseconds.
const EventTimeField = "time"

// NewEventPacket wraps an event for delivery to a client. The event time is
// added as EventTimeField unless the data already carries one.
func NewEventPacket(from string, ev Event) Packet {
	msg := make(map[string]interface{}, len(ev.Data)+1)
	for k, v := range ev.Data {
		msg[k] = v
	}
	if _, ok := msg[EventTimeField]; !ok && !ev.Time.IsZero() {
		msg[EventTimeField] = ev.Time.UnixMilli()
	}
	return Packet{From: from, Type: ev.Type, Message: msg}
}

// NewReplyPacket builds the reply to a request of the given type.
func NewReplyPacket(from string, rt RequestType, ack Ack) Packet {
	return Packet{From: from, Type: rt.String(), Message: ack}
}

// NewErrorPacket builds the distinguished error reply.
func NewErrorPacket(from string, rt RequestType, err *Error) Packet {
	msg := ErrorMessage{Error: err.Code, Message: err.Message, ProducerID: err.Producer}
	if rt != RequestUnknown {
		msg.Request = rt.String()
	}
	return Packet{From: from, Type: PacketTypeError, Message: msg}
}
