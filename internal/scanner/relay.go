package scanner

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/harrison/codeview/internal/logger"
	"github.com/harrison/codeview/internal/metrics"
	"github.com/harrison/codeview/internal/models"
)

// relay coalesces walker results into batches for the consumer.
type relay struct {
	in            <-chan result
	out           chan<- models.Message
	batchSize     int
	flushInterval time.Duration
	cancel        *atomic.Bool
	logger        logger.Logger

	pending []models.Entry
	oldest  time.Time
	gone    bool // Consumer context is done; nothing more is delivered
}

// run consumes in until it is closed, then reports walkErr (if any) and
// sends exactly one Finished. Discoveries arriving after cancellation are
// dropped.
func (r *relay) run(ctx context.Context, walkErr <-chan error) {
	tick := r.flushInterval / 2
	if tick < time.Millisecond {
		tick = time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

loop:
	for {
		select {
		case res, ok := <-r.in:
			if !ok {
				break loop
			}
			r.handle(ctx, res)
		case <-ticker.C:
			if len(r.pending) > 0 && time.Since(r.oldest) >= r.flushInterval {
				r.flush(ctx, metrics.TriggerTimer)
			}
		}
	}

	if r.cancel.Load() {
		r.pending = nil
	} else {
		r.flush(ctx, metrics.TriggerDrain)
	}

	if err := <-walkErr; err != nil {
		r.logger.LogError(fmt.Sprintf("Walk failed: %v", err))
		r.send(ctx, models.ErrorMessage(fmt.Sprintf("Filesystem walk failed: %v", err)))
		metrics.RecordScanError()
	}

	r.send(ctx, models.FinishedMessage())
}

func (r *relay) handle(ctx context.Context, res result) {
	if r.cancel.Load() {
		r.pending = nil
		return
	}

	if res.err != "" {
		r.logger.LogWarn(res.err)
		metrics.RecordScanError()
		r.send(ctx, models.ErrorMessage(res.err))
		return
	}

	if len(r.pending) == 0 {
		r.oldest = time.Now()
	}
	r.pending = append(r.pending, res.entry)
	if len(r.pending) >= r.batchSize {
		r.flush(ctx, metrics.TriggerSize)
	}
}

func (r *relay) flush(ctx context.Context, trigger string) {
	if len(r.pending) == 0 {
		return
	}
	batch := r.pending
	r.pending = make([]models.Entry, 0, r.batchSize)
	metrics.RecordBatch(len(batch), trigger)

	if len(batch) == 1 {
		r.send(ctx, models.AddNodeMessage(batch[0]))
		return
	}
	r.send(ctx, models.AddNodesMessage(batch))
}

// send delivers msg unless the consumer has gone away.
func (r *relay) send(ctx context.Context, msg models.Message) {
	if r.gone {
		return
	}
	select {
	case r.out <- msg:
	case <-ctx.Done():
		r.gone = true
		r.logger.LogDebug(fmt.Sprintf("Consumer gone, dropping %s message", msg.Kind))
	}
}
