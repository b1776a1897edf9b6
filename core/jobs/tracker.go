package jobs

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"Vedit/apperr"
	"Vedit/metrics"
	"Vedit/model"
)

// Work is the body of a job. The returned id is reported as the job's output.
type Work func(ctx context.Context) (outputID string, err error)

// Tracker admits jobs once per key and records their outcome.
type Tracker struct {
	store Store
	ttl   time.Duration
	log   *zap.Logger
	wg    sync.WaitGroup
}

func NewTracker(store Store, ttl time.Duration, log *zap.Logger) *Tracker {
	if log == nil {
		log = zap.NewNop()
	}
	return &Tracker{store: store, ttl: ttl, log: log.Named("jobs")}
}

// Admit registers key as processing. It returns false when another caller
// already holds a live entry.
func (t *Tracker) Admit(ctx context.Context, key string) (bool, error) {
	return t.store.Begin(ctx, key, model.Job{ID: key, Status: model.JobProcessing}, t.ttl)
}

// Claim registers key as processing unless a job under key is still
// running. Finished jobs may be claimed again.
func (t *Tracker) Claim(ctx context.Context, key string) (bool, error) {
	return t.store.Claim(ctx, key, model.Job{ID: key, Status: model.JobProcessing}, t.ttl)
}

// Run claims key and executes work in the background. The work outlives the
// caller's context; Run for a key that is still processing fails with Conflict.
func (t *Tracker) Run(ctx context.Context, kind, key string, work Work) (model.Job, error) {
	admitted, err := t.Claim(ctx, key)
	if err != nil {
		return model.Job{}, err
	}
	if !admitted {
		return model.Job{}, apperr.Conflict("%s job %s is already running", kind, key)
	}
	return t.Start(ctx, kind, key, work), nil
}

// Start executes work in the background for a key the caller has already
// claimed.
func (t *Tracker) Start(ctx context.Context, kind, key string, work Work) model.Job {
	job := model.Job{ID: key, Status: model.JobProcessing}
	metrics.JobsTotal.WithLabelValues(kind, string(model.JobProcessing)).Inc()
	metrics.JobsInFlight.WithLabelValues(kind).Inc()

	bg := context.WithoutCancel(ctx)
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		defer metrics.JobsInFlight.WithLabelValues(kind).Dec()
		t.finish(bg, kind, key, t.execute(bg, work))
	}()
	return job
}

type outcome struct {
	outputID string
	err      error
}

func (t *Tracker) execute(ctx context.Context, work Work) (res outcome) {
	defer func() {
		if r := recover(); r != nil {
			res = outcome{err: apperr.Newf(apperr.CodeInternal, "job panicked: %v", r)}
		}
	}()
	id, err := work(ctx)
	return outcome{outputID: id, err: err}
}

// finish records the terminal status of key.
func (t *Tracker) finish(ctx context.Context, kind, key string, res outcome) {
	job := model.Job{ID: key, Status: model.JobComplete, OutputID: res.outputID}
	if res.err != nil {
		job = model.Job{ID: key, Status: model.JobError, Error: res.err.Error()}
		t.log.Error("job failed", zap.String("kind", kind), zap.String("key", key), zap.Error(res.err))
	} else {
		t.log.Info("job complete", zap.String("kind", kind), zap.String("key", key), zap.String("output", res.outputID))
	}
	metrics.JobsTotal.WithLabelValues(kind, string(job.Status)).Inc()
	if err := t.store.Set(ctx, key, job, t.ttl); err != nil {
		t.log.Error("failed to record job status", zap.String("key", key), zap.Error(err))
	}
}

// Complete and Fail record a terminal status for work the caller ran itself.
func (t *Tracker) Complete(ctx context.Context, kind, key, outputID string) {
	t.finish(ctx, kind, key, outcome{outputID: outputID})
}

func (t *Tracker) Fail(ctx context.Context, kind, key string, err error) {
	t.finish(ctx, kind, key, outcome{err: err})
}

// Status returns the current record for key.
func (t *Tracker) Status(ctx context.Context, key string) (model.Job, error) {
	return t.store.Get(ctx, key)
}

// Release drops key so it can be admitted again.
func (t *Tracker) Release(ctx context.Context, key string) error {
	return t.store.Delete(ctx, key)
}

// Wait blocks until every background job started by Run has finished.
func (t *Tracker) Wait() {
	t.wg.Wait()
}
