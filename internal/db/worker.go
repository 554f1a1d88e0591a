package db

import (
	"context"
	"database/sql"
)

// queueSize is the number of write jobs that may wait for the worker.
const queueSize = 256

// TxFn runs inside a write transaction. Returning an error rolls it back.
type TxFn func(ctx context.Context, tx *sql.Tx) error

// job is one queued write.
type job struct {
	ctx context.Context //nolint:containedctx // The caller's context travels with the job.
	fn  TxFn
	ch  chan error
}

// Worker runs write transactions one at a time on a dedicated goroutine.
type Worker struct {
	conn *sql.DB
	jobs chan job
	done chan struct{}
}

// NewWorker starts a worker writing to conn. Close must be called to stop it.
func NewWorker(conn *sql.DB) *Worker {
	w := &Worker{
		conn: conn,
		jobs: make(chan job, queueSize),
		done: make(chan struct{}),
	}

	go w.loop()

	return w
}

// Close drains the queue and stops the worker.
func (w *Worker) Close() {
	close(w.jobs)
	<-w.done
}

// Do runs fn in a transaction and waits for the commit.
// If ctx ends first Do returns ctx.Err(); the queued job still runs with the same ctx.
func (w *Worker) Do(ctx context.Context, fn TxFn) error {
	ch := make(chan error, 1)

	select {
	case w.jobs <- job{ctx: ctx, fn: fn, ch: ch}:
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-ch:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Worker) loop() {
	defer close(w.done)

	for j := range w.jobs {
		j.ch <- w.run(j)
	}
}

func (w *Worker) run(j job) error {
	if err := j.ctx.Err(); err != nil {
		return err
	}

	tx, err := w.conn.BeginTx(j.ctx, nil)
	if err != nil {
		return err
	}

	if err := j.fn(j.ctx, tx); err != nil {
		_ = tx.Rollback()

		return err
	}

	return tx.Commit()
}
