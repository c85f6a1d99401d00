package settler

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"
)

// LogSink writes every event as a structured log line. It is the default
// sink for the daemon when no external consumer is wired.
type LogSink struct {
	logger zerolog.Logger
}

// NewLogSink creates a sink that logs events at info level.
func NewLogSink(logger zerolog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Publish(_ context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	s.logger.Info().Str("kind", event.Kind()).RawJSON("event", payload).Msg("event")
	return nil
}

// ChannelSink delivers events to a buffered channel. When the buffer is
// full the event is dropped rather than blocking the publisher; the count
// of dropped events is observable.
type ChannelSink struct {
	events  chan Event
	mu      sync.Mutex
	dropped uint64
}

// NewChannelSink creates a channel sink with the given buffer size.
func NewChannelSink(buffer int) *ChannelSink {
	return &ChannelSink{events: make(chan Event, buffer)}
}

func (s *ChannelSink) Publish(_ context.Context, event Event) error {
	select {
	case s.events <- event:
		return nil
	default:
		s.mu.Lock()
		s.dropped++
		s.mu.Unlock()
		return nil
	}
}

// Events exposes the delivery channel for consumers.
func (s *ChannelSink) Events() <-chan Event { return s.events }

// Dropped reports how many events were discarded due to a full buffer.
func (s *ChannelSink) Dropped() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

var (
	_ EventSink = (*LogSink)(nil)
	_ EventSink = (*ChannelSink)(nil)
)
