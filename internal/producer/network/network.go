// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package network relays HTTP activity captured by the browser agent.
package network

import (
	"strings"

	"github.com/ManuGH/timelinesink/internal/domain/timeline/model"
	"github.com/ManuGH/timelinesink/internal/producer"
)

const FeatureHTTPEvent = "HTTPEvent"

// Features lists what the producer can emit.
var Features = []string{FeatureHTTPEvent}

// Producer is the NetworkProducer.
type Producer struct {
	*producer.Base
}

func New(opts producer.Options) *Producer {
	opts.Normalize = normalize
	return &Producer{Base: producer.NewBase(model.NetworkProducer, Features, opts)}
}

// normalize requires a url and upper-cases the method, defaulting to GET.
func normalize(ev *model.Event) bool {
	url, _ := ev.Data["url"].(string)
	if strings.TrimSpace(url) == "" {
		return false
	}
	method, _ := ev.Data["method"].(string)
	if method == "" {
		return true
	}
	data := make(map[string]interface{}, len(ev.Data))
	for k, v := range ev.Data {
		data[k] = v
	}
	data["method"] = strings.ToUpper(method)
	ev.Data = data
	return true
}
