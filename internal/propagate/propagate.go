// Package propagate implements the change propagator: best-effort
// asynchronous pushes of local task mutations to the remote record store.
//
// Submit never blocks the originating local operation. Each push gets
// exactly one attempt; a failure is logged and silently superseded by the
// next successful pull. The queue lives in memory only and does not survive
// process restart. These are deliberate availability trade-offs, not
// delivery guarantees.
package propagate

import (
	"context"
	"log"
	"os"
	"sync"
	"time"

	"github.com/kaitodo/kaitodo/internal/model"
	"github.com/kaitodo/kaitodo/internal/remote"
	"github.com/kaitodo/kaitodo/internal/share"
)

// opKind distinguishes push shapes.
type opKind int

const (
	opUpsert opKind = iota
	opDelete
)

func (k opKind) String() string {
	if k == opDelete {
		return "delete"
	}
	return "upsert"
}

// op is one queued remote write.
type op struct {
	kind         opKind
	listRecordID string
	task         model.TodoTask // snapshot at mutation time (upsert)
	taskID       string         // target identity (delete)
}

// Propagator pushes task mutations to the remote store from a single worker
// goroutine.
type Propagator struct {
	remote  remote.Store
	logger  *log.Logger
	queue   chan op
	pending sync.WaitGroup
	cancel  context.CancelFunc
	done    chan struct{}

	// attemptTimeout bounds a single push attempt.
	attemptTimeout time.Duration
}

// New creates and starts a propagator. Call Stop to shut the worker down.
// If logger is nil, a default logger writing to stderr is used.
func New(rs remote.Store, logger *log.Logger) *Propagator {
	if logger == nil {
		logger = log.New(os.Stderr, "[push] ", log.LstdFlags)
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &Propagator{
		remote:         rs,
		logger:         logger,
		queue:          make(chan op, 64),
		cancel:         cancel,
		done:           make(chan struct{}),
		attemptTimeout: 15 * time.Second,
	}
	go p.run(ctx)
	return p
}

// SubmitUpsert queues a create-or-update push for a task on a shared list.
// The task value is a snapshot; later local edits do not retroactively
// change a queued push.
func (p *Propagator) SubmitUpsert(listRecordID string, task model.TodoTask) {
	p.submit(op{kind: opUpsert, listRecordID: listRecordID, task: task})
}

// SubmitDelete queues a delete push for a task on a shared list.
func (p *Propagator) SubmitDelete(listRecordID, taskID string) {
	p.submit(op{kind: opDelete, listRecordID: listRecordID, taskID: taskID})
}

func (p *Propagator) submit(o op) {
	p.pending.Add(1)
	select {
	case p.queue <- o:
	default:
		// Queue full: drop rather than block the local operation. The
		// next pull reconciles whatever this push would have written.
		p.pending.Done()
		p.logger.Printf("WARNING: push queue full, dropping %v for list %s", o.kind, o.listRecordID)
	}
}

// Flush blocks until every submitted push has been attempted. Mainly for
// tests and for CLI commands that want to push before process exit.
func (p *Propagator) Flush() {
	p.pending.Wait()
}

// Stop flushes outstanding pushes and stops the worker.
func (p *Propagator) Stop() {
	p.pending.Wait()
	p.cancel()
	<-p.done
}

func (p *Propagator) run(ctx context.Context) {
	defer close(p.done)
	for {
		select {
		case <-ctx.Done():
			return
		case o := <-p.queue:
			p.attempt(ctx, o)
			p.pending.Done()
		}
	}
}

// attempt performs the single try for one push. Errors are logged, never
// surfaced.
func (p *Propagator) attempt(ctx context.Context, o op) {
	ctx, cancel := context.WithTimeout(ctx, p.attemptTimeout)
	defer cancel()

	switch o.kind {
	case opUpsert:
		p.pushUpsert(ctx, o)
	case opDelete:
		p.pushDelete(ctx, o)
	}
}

func (p *Propagator) pushUpsert(ctx context.Context, o op) {
	records, err := p.remote.Query(ctx, remote.TypeSharedTask, remote.FieldTaskID, o.task.ID)
	if err != nil {
		p.logger.Printf("Push failed for task %s: %v", o.task.ID, err)
		return
	}

	fields := share.TaskFields(o.listRecordID, o.task)
	if len(records) == 0 {
		if _, err := p.remote.Create(ctx, remote.TypeSharedTask, fields); err != nil {
			p.logger.Printf("Push failed for task %s: %v", o.task.ID, err)
			return
		}
		p.logger.Printf("Pushed new task %s to list %s", o.task.ID, o.listRecordID)
		return
	}

	// Un-completing clears attribution; send explicit empty values so the
	// merge on the server removes them.
	if !o.task.IsCompleted {
		fields[remote.FieldCompletedBy] = ""
		fields[remote.FieldCompletedByName] = ""
		fields[remote.FieldCompletedAt] = ""
	}
	if err := p.remote.Update(ctx, records[0].ID, fields); err != nil {
		p.logger.Printf("Push failed for task %s: %v", o.task.ID, err)
		return
	}
	p.logger.Printf("Pushed update for task %s", o.task.ID)
}

func (p *Propagator) pushDelete(ctx context.Context, o op) {
	records, err := p.remote.Query(ctx, remote.TypeSharedTask, remote.FieldTaskID, o.taskID)
	if err != nil {
		p.logger.Printf("Push failed for task delete %s: %v", o.taskID, err)
		return
	}
	for _, rec := range records {
		if err := p.remote.Delete(ctx, rec.ID); err != nil {
			p.logger.Printf("Push failed for task delete %s: %v", o.taskID, err)
			return
		}
	}
	p.logger.Printf("Pushed delete for task %s", o.taskID)
}
