// Package audit records state-changing actions without holding up the request
// that caused them.
package audit

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"storedesk/internal/domain/auditlog"
	"storedesk/internal/obs"

	"go.uber.org/zap"
)

type Appender interface {
	Append(ctx context.Context, e *auditlog.Entry) error
}

type Config struct {
	BufferSize  int
	WorkerCount int
}

func DefaultConfig() Config {
	return Config{BufferSize: 1024, WorkerCount: 2}
}

const appendTimeout = 5 * time.Second

// Recorder appends entries from a buffered queue on background workers.
// Record never blocks: a full or stopped queue drops the entry with a warning.
type Recorder struct {
	repo    Appender
	logger  *zap.SugaredLogger
	entries chan auditlog.Entry
	workers int

	mu      sync.RWMutex
	started bool
	stopped bool
	wg      sync.WaitGroup
}

func NewRecorder(repo Appender, logger *zap.SugaredLogger, cfg Config) *Recorder {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultConfig().BufferSize
	}
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = DefaultConfig().WorkerCount
	}
	return &Recorder{
		repo:    repo,
		logger:  logger,
		entries: make(chan auditlog.Entry, cfg.BufferSize),
		workers: cfg.WorkerCount,
	}
}

func (r *Recorder) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return
	}
	r.started = true

	for i := 0; i < r.workers; i++ {
		r.wg.Add(1)
		go r.work()
	}
	r.logger.Infow("audit recorder started", "workers", r.workers, "buffer", cap(r.entries))
}

func (r *Recorder) work() {
	defer r.wg.Done()
	for e := range r.entries {
		r.write(e)
	}
}

func (r *Recorder) write(e auditlog.Entry) {
	ctx, cancel := context.WithTimeout(context.Background(), appendTimeout)
	defer cancel()

	if err := r.repo.Append(ctx, &e); err != nil {
		r.logger.Warnw("audit append failed",
			"action", e.Action, "entity_type", e.EntityType, "error", err)
	}
}

func (r *Recorder) Record(e auditlog.Entry) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.stopped {
		obs.AuditDropped()
		r.logger.Warnw("audit recorder stopped, dropping entry", "action", e.Action)
		return
	}

	select {
	case r.entries <- e:
	default:
		obs.AuditDropped()
		r.logger.Warnw("audit queue full, dropping entry", "action", e.Action, "entity_type", e.EntityType)
	}
}

// Stop stops accepting entries and drains the queue until ctx is done.
func (r *Recorder) Stop(ctx context.Context) error {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return nil
	}
	r.stopped = true
	close(r.entries)
	started := r.started
	r.mu.Unlock()

	if !started {
		// nobody will drain; flush inline
		for e := range r.entries {
			r.write(e)
		}
		return nil
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Infow("audit recorder stopped")
		return nil
	case <-ctx.Done():
		return errors.Join(errors.New("audit recorder stop timed out"), ctx.Err())
	}
}

// Snapshot marshals v for the before/after columns. Failures yield nil.
func Snapshot(v any) json.RawMessage {
	if v == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return data
}
