package jobs

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/petasbytes/biome-agent/internal/telemetry"
	"github.com/sirupsen/logrus"
	orderedmap "github.com/wk8/go-ordered-map/v2"
	"golang.org/x/sync/errgroup"
)

// DefaultMaxPollers caps concurrently running pollers.
const DefaultMaxPollers = 32

var (
	ErrDuplicateJob = errors.New("jobs: job id already tracked")
	ErrClosed       = errors.New("jobs: registry is shut down")
	ErrBusy         = errors.New("jobs: too many outstanding jobs")
)

// Registry runs pollers detached from the tool call that started them.
// Pollers live on the registry's own context, so they outlast the turn and
// stop only when the job ends or Shutdown is called.
type Registry struct {
	poller *Poller

	ctx    context.Context
	cancel context.CancelFunc
	group  errgroup.Group

	mu      sync.Mutex
	running *orderedmap.OrderedMap[string, Kind]
	seen    map[string]struct{}
	closed  bool
	max     int
}

// NewRegistry returns a registry that runs p for every started job.
// maxPollers <= 0 uses DefaultMaxPollers.
func NewRegistry(p *Poller, maxPollers int) *Registry {
	if maxPollers <= 0 {
		maxPollers = DefaultMaxPollers
	}
	ctx, cancel := context.WithCancel(context.Background())
	r := &Registry{
		poller:  p,
		ctx:     ctx,
		cancel:  cancel,
		running: orderedmap.New[string, Kind](),
		seen:    map[string]struct{}{},
		max:     maxPollers,
	}
	r.group.SetLimit(maxPollers)
	return r
}

// Accepting reports whether Start could currently take a new job.
func (r *Registry) Accepting() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	if r.running.Len() >= r.max {
		return ErrBusy
	}
	return nil
}

// Start polls jobID in the background and returns immediately. ctx only
// contributes its turn id to telemetry; cancelling it does not stop the poll.
// A job id is accepted at most once for the lifetime of the registry.
func (r *Registry) Start(ctx context.Context, jobID string, kind Kind, format Formatter) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	if _, dup := r.seen[jobID]; dup {
		return ErrDuplicateJob
	}

	turnID, _ := telemetry.TurnIDFromContext(ctx)
	pollCtx := telemetry.WithTurnID(r.ctx, turnID)
	started := time.Now()
	ok := r.group.TryGo(func() error {
		if m := r.poller.Metrics; m != nil {
			m.Active.Inc()
			defer m.Active.Dec()
		}
		outcome := r.poller.Poll(pollCtx, jobID, kind, format)

		r.mu.Lock()
		r.running.Delete(jobID)
		r.mu.Unlock()

		if m := r.poller.Metrics; m != nil {
			m.Completed.WithLabelValues(string(kind), string(outcome)).Inc()
		}
		telemetry.Emit("job_finished", map[string]any{
			"turn_id":     turnID,
			"job_id":      jobID,
			"kind":        string(kind),
			"outcome":     string(outcome),
			"duration_ms": time.Since(started).Milliseconds(),
		})
		return nil
	})
	if !ok {
		return ErrBusy
	}

	r.seen[jobID] = struct{}{}
	r.running.Set(jobID, kind)
	if m := r.poller.Metrics; m != nil {
		m.Started.WithLabelValues(string(kind)).Inc()
	}
	telemetry.Emit("job_started", map[string]any{
		"turn_id": turnID,
		"job_id":  jobID,
		"kind":    string(kind),
	})
	return nil
}

// Outstanding lists the jobs still being polled, oldest first.
func (r *Registry) Outstanding() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, r.running.Len())
	for pair := r.running.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Key)
	}
	return out
}

// Wait blocks until every started poller has delivered its notification or
// ctx is done. When ctx ends first, the goroutine waiting on the pollers is
// left behind and exits with the last of them; pollers are not stopped.
func (r *Registry) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		_ = r.group.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown refuses new jobs, cancels running pollers (each still pushes its
// failure notification) and waits for them until ctx is done. Pollers that
// have not returned by then are logged and keep running until they do.
func (r *Registry) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	r.cancel()
	err := r.Wait(ctx)
	if err != nil {
		if left := r.Outstanding(); len(left) > 0 {
			r.poller.logger().WithFields(logrus.Fields{
				"pollers": len(left),
				"jobs":    left,
			}).Warn("pollers still running after shutdown deadline")
		}
	}
	return err
}
