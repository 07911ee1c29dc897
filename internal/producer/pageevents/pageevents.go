// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package pageevents relays page lifecycle and user input events captured by
// the browser agent.
package pageevents

import (
	"github.com/ManuGH/timelinesink/internal/domain/timeline/model"
	"github.com/ManuGH/timelinesink/internal/producer"
)

const (
	FeaturePageEvent     = "PageEvent"
	FeatureWindowEvent   = "WindowEvent"
	FeatureMouseEvent    = "MouseEvent"
	FeatureKeyboardEvent = "KeyboardEvent"
)

var Features = []string{FeaturePageEvent, FeatureWindowEvent, FeatureMouseEvent, FeatureKeyboardEvent}

// Producer is the PageEventsProducer.
type Producer struct {
	*producer.Base
}

func New(opts producer.Options) *Producer {
	opts.Normalize = normalize
	return &Producer{Base: producer.NewBase(model.PageEventsProducer, Features, opts)}
}

// normalize requires the DOM event name, e.g. "load" or "click".
func normalize(ev *model.Event) bool {
	name, _ := ev.Data["name"].(string)
	return name != ""
}
