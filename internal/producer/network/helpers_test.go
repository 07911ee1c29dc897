// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package network

import (
	"io"

	"github.com/rs/zerolog"

	"github.com/ManuGH/timelinesink/internal/producer"
)

func producerOptions() producer.Options {
	logger := zerolog.New(io.Discard)
	return producer.Options{Logger: &logger}
}
