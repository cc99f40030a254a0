package events

import (
	"context"
	"encoding/json"
	"log"

	"quintos/internal/domain"
)

// LogSink writes events to the process log as single-line JSON. The
// default sink when no external event store is configured.
type LogSink struct{}

func (LogSink) Write(_ context.Context, ev *domain.SystemEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	log.Printf("events.LogSink: %s", payload)
	return nil
}
