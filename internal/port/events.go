package port

import (
	"context"

	"quintos/internal/domain"
)

// EventSink receives lifecycle events. Implementations may drop or fail;
// the emitter swallows errors so the pipeline is never affected.
type EventSink interface {
	Write(ctx context.Context, ev *domain.SystemEvent) error
}

// EventEmitter is the non-blocking producer side handed to the pipeline
// and the gateway.
type EventEmitter interface {
	Emit(ev *domain.SystemEvent)
}
