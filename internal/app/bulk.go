package service

import (
	"context"
	"errors"

	mutationqueue "github.com/okian/hrdesk/internal/adapters/mq/queue"
	"github.com/okian/hrdesk/internal/domain/catalog"
	"github.com/okian/hrdesk/internal/domain/form"
	"github.com/okian/hrdesk/internal/domain/model"
	"github.com/okian/hrdesk/pkg/logger"
	"github.com/okian/hrdesk/pkg/metrics"
)

// Dispatcher fans a batch of writes out to the worker pool and collects one
// outcome per item. Writes are unordered and not atomic.
type Dispatcher struct {
	queue mutationqueue.Queue
	log   logger.Logger
}

// NewDispatcher creates a dispatcher over queue.
func NewDispatcher(queue mutationqueue.Queue, log logger.Logger) *Dispatcher {
	if log == nil {
		log = logger.Nop()
	}
	return &Dispatcher{queue: queue, log: log}
}

// Dispatch enqueues every mutation and waits for all replies or ctx. Items
// that found no room in the queue before ctx ended and items still pending
// when it ended are reported as failed. Report entries follow the input order.
func (d *Dispatcher) Dispatch(ctx context.Context, flow string, muts []model.Mutation) model.BulkReport {
	report := model.BulkReport{Total: len(muts), Succeeded: []string{}, Failed: []model.ItemFailure{}}
	if len(muts) == 0 {
		return report
	}

	reply := make(chan model.MutationResult, len(muts))
	outcome := make(map[string]*model.MutationResult, len(muts))
	pending := 0
	for _, m := range muts {
		if err := d.queue.EnqueueWait(ctx, model.Job{Mutation: m, Reply: reply}); err != nil {
			outcome[m.Key] = &model.MutationResult{Key: m.Key, Err: err}
			continue
		}
		outcome[m.Key] = nil
		pending++
	}

wait:
	for pending > 0 {
		select {
		case r := <-reply:
			outcome[r.Key] = &r
			pending--
		case <-ctx.Done():
			d.log.Warn(ctx, "bulk dispatch stopped waiting",
				logger.String("flow", flow), logger.Int("pending", pending), logger.Error(ctx.Err()))
			break wait
		}
	}

	for _, m := range muts {
		r := outcome[m.Key]
		switch {
		case r == nil:
			report.Failed = append(report.Failed, model.ItemFailure{Key: m.Key, Message: MsgNoReply})
		case r.Err != nil:
			report.Failed = append(report.Failed, failure(r))
		default:
			report.Succeeded = append(report.Succeeded, m.Key)
		}
	}

	metrics.RecordBulk(flow, len(report.Succeeded), len(report.Failed))
	if !report.OK() {
		d.log.Warn(ctx, "bulk dispatch partially failed",
			logger.String("flow", flow),
			logger.Int("total", report.Total),
			logger.Int("failed", len(report.Failed)))
	}
	return report
}

// failure turns a failed write into the message shown on its row.
func failure(r *model.MutationResult) model.ItemFailure {
	f := model.ItemFailure{Key: r.Key, Status: r.Status}
	switch se, ok := catalog.AsStatus(r.Err); {
	case ok:
		fb := form.MapServerErrors(se.HTTPStatus(), se.ResponseBody(), nil)
		f.Message = fb.Banner
	case errors.Is(r.Err, mutationqueue.ErrRejected):
		f.Message = MsgQueueFull
	default:
		f.Message = form.MsgTransport
	}
	return f
}
