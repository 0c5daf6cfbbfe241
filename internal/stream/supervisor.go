package stream

import (
	"context"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/teranos/nats-geyser-runner/internal/shutdown"
)

// Supervisor owns the errgroup every stream kind's sub-tasks run under.
// StartStreamWorkers returns a Supervisor once every worker's goroutines
// have been spawned; it never waits for them. Wait is for callers that
// do want to block until every worker has exited, namely tests and the
// entrypoint's shutdown path.
type Supervisor struct {
	group   *errgroup.Group
	workers []*Worker
}

// StartStreamWorkers builds one Worker per entry in cfgs and starts its
// fetcher, ordered worker, and queue-depth monitor. It returns as soon as
// every goroutine has been spawned, matching the runner's "start
// everything, then serve /ready" startup sequence.
func StartStreamWorkers(ctx context.Context, cfgs []Config) *Supervisor {
	group, ctx := errgroup.WithContext(ctx)
	s := &Supervisor{group: group, workers: make([]*Worker, 0, len(cfgs))}

	for _, cfg := range cfgs {
		w := NewWorker(cfg)
		s.workers = append(s.workers, w)
		w.Start(ctx, s.group)
	}

	log.WithField("streams", len(cfgs)).Info("stream workers started")
	return s
}

// Wait blocks until every worker's sub-tasks have returned, which only
// happens once shutdown has been triggered or the substrate ends. It is
// not part of the startup path.
func (s *Supervisor) Wait() error {
	return s.group.Wait()
}

// TriggerAndWait fires b and blocks until every worker has fully drained,
// for use by the entrypoint's graceful-shutdown path and by tests.
func (s *Supervisor) TriggerAndWait(b *shutdown.Broadcast) error {
	b.Trigger()
	return s.Wait()
}
