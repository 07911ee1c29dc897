// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package model

import (
	"errors"
	"fmt"
)

// ErrorCode is the distinguished value carried by error packets.
type ErrorCode string

const (
	CodeUINotRegistered        ErrorCode = "UINotRegistered"
	CodeUnknownProducer        ErrorCode = "UnknownProducer"
	CodeUnknownFeature         ErrorCode = "UnknownFeature"
	CodeProducerStartFailure   ErrorCode = "ProducerStartFailure"
	CodeBadRequest             ErrorCode = "BadRequest"
	CodeUnrecognizedPacketType ErrorCode = "unrecognizedPacketType"
)

var (
	ErrUINotRegistered        = errors.New("timeline ui not registered")
	ErrUnknownProducer        = errors.New("unknown producer")
	ErrUnknownFeature         = errors.New("unknown feature")
	ErrProducerStartFailure   = errors.New("producer start failure")
	ErrBadRequest             = errors.New("bad request")
	ErrUnrecognizedPacketType = errors.New("unrecognized packet type")
)

var sentinels = map[ErrorCode]error{
	CodeUINotRegistered:        ErrUINotRegistered,
	CodeUnknownProducer:        ErrUnknownProducer,
	CodeUnknownFeature:         ErrUnknownFeature,
	CodeProducerStartFailure:   ErrProducerStartFailure,
	CodeBadRequest:             ErrBadRequest,
	CodeUnrecognizedPacketType: ErrUnrecognizedPacketType,
}

// Error is a typed sink failure. It matches its code's sentinel with
// errors.Is and unwraps to the underlying cause, if any.
type Error struct {
	Code     ErrorCode
	Message  string
	Producer ProducerID
	Cause    error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := string(e.Code)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is reports whether target is the sentinel for e's code.
func (e *Error) Is(target error) bool {
	if e == nil {
		return false
	}
	s, ok := sentinels[e.Code]
	return ok && s == target
}

// NewError builds a typed error with a formatted message.
func NewError(code ErrorCode, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// UnknownProducer reports a producer missing from the registry.
func UnknownProducer(id ProducerID) *Error {
	return &Error{Code: CodeUnknownProducer, Message: fmt.Sprintf("producer %q is not registered", id), Producer: id}
}

// UnknownFeature reports a feature the producer does not expose.
func UnknownFeature(id ProducerID, feature string) *Error {
	return &Error{Code: CodeUnknownFeature, Message: fmt.Sprintf("producer %q has no feature %q", id, feature), Producer: id}
}

// UINotRegistered reports a request from an unknown timeline UI.
func UINotRegistered(id ClientID) *Error {
	if id == "" {
		return &Error{Code: CodeUINotRegistered, Message: "missing timelineUIId"}
	}
	return &Error{Code: CodeUINotRegistered, Message: fmt.Sprintf("timeline ui %q is not registered", id)}
}

// ProducerStartFailure reports a producer that failed to start.
func ProducerStartFailure(id ProducerID, cause error) *Error {
	return &Error{Code: CodeProducerStartFailure, Message: fmt.Sprintf("producer %q failed to start", id), Producer: id, Cause: cause}
}

// AsError extracts a typed error. Foreign errors are reported as BadRequest
// so callers always have a code to put on the wire.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var te *Error
	if errors.As(err, &te) {
		return te
	}
	return &Error{Code: CodeBadRequest, Message: "request failed", Cause: err}
}
