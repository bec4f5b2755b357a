package journal

import (
	"strconv"
	"time"

	"github.com/cuemby/groupctl/pkg/events"
	"github.com/cuemby/groupctl/pkg/log"
	"github.com/rs/zerolog"
)

const defaultOpenTimeout = 2 * time.Second

// Recorder appends operation.finished events to a Store
type Recorder struct {
	store  Store
	logger zerolog.Logger
	done   chan struct{}
}

// NewRecorder creates a recorder writing to store. A nil logger selects the
// "journal" component logger.
func NewRecorder(store Store, logger *zerolog.Logger) *Recorder {
	return &Recorder{
		store:  store,
		logger: log.ComponentOr(logger, "journal"),
		done:   make(chan struct{}),
	}
}

// Start subscribes to broker and records in the background until the broker
// stops. Call Wait after stopping the broker.
func (r *Recorder) Start(broker *events.Broker) {
	sub := broker.Subscribe()
	go r.Run(sub)
}

// Run records events from sub until it is closed
func (r *Recorder) Run(sub events.Subscriber) {
	defer close(r.done)
	for ev := range sub {
		entry, ok := EntryFromEvent(ev)
		if !ok {
			continue
		}
		if err := r.store.Append(entry); err != nil {
			r.logger.Error().Err(err).Str("op_id", entry.OperationID).Msg("Failed to record outcome")
			continue
		}
		r.logger.Debug().Str("op_id", entry.OperationID).Str("group", entry.Group).Msg("Recorded outcome")
	}
}

// Wait blocks until Run has returned
func (r *Recorder) Wait() {
	<-r.done
}

// EntryFromEvent converts an operation.finished event; other events are
// not journaled
func EntryFromEvent(ev *events.Event) (*Entry, bool) {
	if ev == nil || ev.Type != events.EventOperationFinished {
		return nil, false
	}

	success, _ := strconv.ParseBool(ev.Metadata[events.MetaSuccess])
	duration, _ := time.ParseDuration(ev.Metadata[events.MetaDuration])

	return &Entry{
		OperationID: ev.Metadata[events.MetaOperationID],
		Operation:   ev.Operation,
		Group:       ev.Group,
		Success:     success,
		State:       ev.Metadata[events.MetaState],
		Reason:      ev.Metadata[events.MetaReason],
		Duration:    duration,
		Timestamp:   ev.Timestamp,
	}, true
}
