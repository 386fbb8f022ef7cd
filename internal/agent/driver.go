package agent

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/haasonsaas/atelier/pkg/models"
)

// SourceEvent is one unit from the agent's event source. Either Chunk or
// Err is set; an Err terminates the run.
type SourceEvent struct {
	Chunk any
	Err   error
}

// RecordSink receives wire records in emission order. Done writes the
// stream terminal marker; it is called exactly once per run unless the
// transport has already failed.
type RecordSink interface {
	Send(rec models.Record) error
	Done() error
}

// Driver owns one streaming turn: it pulls source events in arrival
// order, classifies and translates them, and forwards every record to the
// sink immediately. No batching, no reordering, no look-ahead.
type Driver struct {
	logger  *slog.Logger
	metrics *Metrics
}

// NewDriver creates a stream driver.
func NewDriver(logger *slog.Logger) *Driver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Driver{
		logger:  logger.With("component", "driver"),
		metrics: NewMetrics(),
	}
}

// Run drives one turn to completion. The stream always ends with exactly
// one terminal marker, whether the source finished, failed, or the
// driver's own loop broke — except when the client is gone (ctx canceled
// or a sink write failed), in which case nothing further is written.
func (d *Driver) Run(ctx context.Context, source <-chan SourceEvent, sink RecordSink) (err error) {
	acc := NewArgAccumulator()
	translator := NewTranslator(d.logger)
	defer translator.Flush()

	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("stream driver panic", "panic", r)
			d.metrics.ErrorEmitted()
			_ = sink.Send(models.NewError("internal stream error", fmt.Sprint(r)))
			err = sink.Done()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			// Client disconnected: stop pulling, write nothing further.
			d.logger.Info("stream canceled")
			return ctx.Err()
		case ev, ok := <-source:
			if !ok {
				return sink.Done()
			}
			if ev.Err != nil {
				d.logger.Error("event source failed", "error", ev.Err)
				d.metrics.ErrorEmitted()
				if sendErr := sink.Send(models.NewError("agent stream failed", ev.Err.Error())); sendErr != nil {
					return sendErr
				}
				return sink.Done()
			}
			for _, unit := range Classify(ev.Chunk) {
				for _, rec := range translator.Translate(unit, acc) {
					if sendErr := sink.Send(rec); sendErr != nil {
						// Transport gone; abandon silently.
						d.logger.Warn("sink write failed", "error", sendErr)
						return sendErr
					}
				}
			}
		}
	}
}
