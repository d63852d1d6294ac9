package realm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/roach88/stowage/internal/logging"
	"github.com/roach88/stowage/internal/metrics"
	"github.com/roach88/stowage/internal/schema"
	"github.com/roach88/stowage/internal/store"
)

// ErrorHandler receives every failed operation after it has been logged.
type ErrorHandler func(op string, err error)

// Coordinator is the single writer of a store.
//
// Every mutation is submitted as a job to one FIFO queue and executed by one
// goroutine inside its own transaction. Submitting blocks the caller until
// the job commits or rolls back, so writes are totally ordered by arrival.
//
// Thread-safety model:
//   - Execute and every package-level operation: safe from any goroutine
//   - the function passed to Execute runs on the writer goroutine and must
//     not submit further work to the same Coordinator; doing so fails with
//     ErrNestedWrite. Compose with the *Txn-level functions instead
//   - NewSession: safe from any goroutine; the Session itself is confined
type Coordinator struct {
	store   *store.Store
	reg     *schema.Registry
	log     logging.Logger
	metrics *metrics.Collector
	onError ErrorHandler
	ids     IDGenerator
	clock   Clock
	queue   *jobQueue
	done    chan struct{}

	writer atomic.Uint64 // goroutine id of run
	busy   atomic.Bool   // a job is executing on the writer

	// testHookAfterLookup runs between an upsert's lookup and its merge job.
	testHookAfterLookup func()
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the diagnostics sink. Default: no-op.
func WithLogger(l logging.Logger) Option {
	return func(c *Coordinator) {
		c.log = logging.WithComponent(l, "realm")
	}
}

// WithMetrics records job counts, durations and queue depth.
func WithMetrics(m *metrics.Collector) Option {
	return func(c *Coordinator) {
		c.metrics = m
	}
}

// WithErrorHandler installs a callback for failed operations.
func WithErrorHandler(h ErrorHandler) Option {
	return func(c *Coordinator) {
		c.onError = h
	}
}

// WithIDGenerator overrides object id generation (tests use FixedGenerator).
func WithIDGenerator(g IDGenerator) Option {
	return func(c *Coordinator) {
		c.ids = g
	}
}

// New creates a Coordinator over st and starts its writer goroutine.
// reg must already hold every entity type the caller will use.
func New(st *store.Store, reg *schema.Registry, opts ...Option) *Coordinator {
	c := &Coordinator{
		store: st,
		reg:   reg,
		log:   logging.NewNoop(),
		ids:   UUIDv7Generator{},
		queue: newJobQueue(),
		done:  make(chan struct{}),
	}

	for _, opt := range opts {
		opt(c)
	}

	go c.run()
	return c
}

// Registry returns the entity registry the coordinator was built with.
func (c *Coordinator) Registry() *schema.Registry {
	return c.reg
}

// Execute runs op inside one transaction on the writer goroutine.
//
// The call blocks until op has committed or rolled back. An error returned by
// op, or a panic inside it, rolls the transaction back; nothing is committed.
// No cancellation: once submitted a job runs to completion.
func (c *Coordinator) Execute(op func(*Txn) error) error {
	if op == nil {
		return c.fail("execute", newError(ErrCodeValidation, "execute", "", "nil operation", nil))
	}
	return c.submit("execute", op)
}

// Reset deletes every record of every registered type in one transaction.
func (c *Coordinator) Reset() error {
	return c.submit("reset", func(tx *Txn) error {
		n, err := tx.tx.DeleteType(tx.ctx, c.reg.Names()...)
		if err != nil {
			return err
		}
		c.log.Info("store reset", logging.Int64("deleted", n))
		return nil
	})
}

// Close stops accepting work, waits for queued jobs to finish and stops the
// writer. The store is left open. Safe to call more than once.
func (c *Coordinator) Close() error {
	c.queue.Close()
	<-c.done
	return nil
}

// submit enqueues fn and waits for its result.
func (c *Coordinator) submit(op string, fn func(*Txn) error) error {
	if c.busy.Load() && goroutineID() == c.writer.Load() {
		return c.fail(op, newError(ErrCodeValidation, op, "", "", ErrNestedWrite))
	}

	j := job{op: op, fn: fn, result: make(chan error, 1)}
	if !c.queue.Enqueue(j) {
		return c.fail(op, ErrClosed)
	}
	c.metrics.SetQueueDepth(c.queue.Len())

	if err := <-j.result; err != nil {
		return c.fail(op, err)
	}
	return nil
}

// fail logs err and hands it to the error handler. Returns err.
func (c *Coordinator) fail(op string, err error) error {
	fields := []logging.Field{logging.String("op", op), logging.Err(err)}
	var re *Error
	if errors.As(err, &re) {
		fields = append(fields, logging.String("code", string(re.Code)))
		if re.Type != "" {
			fields = append(fields, logging.String("type", re.Type))
		}
	}
	c.log.Error("operation failed", fields...)

	if c.onError != nil {
		c.onError(op, err)
	}
	return err
}

// run is the writer loop. It owns every transaction the store ever sees.
func (c *Coordinator) run() {
	defer close(c.done)
	c.writer.Store(goroutineID())
	c.log.Debug("writer started")

	for {
		if j, ok := c.queue.TryDequeue(); ok {
			c.metrics.SetQueueDepth(c.queue.Len())
			c.process(j)
			continue
		}

		<-c.queue.Wait()
		// The signal channel is closed by Close; once drained, stop.
		if c.isClosed() && c.queue.Len() == 0 {
			c.log.Debug("writer stopped")
			return
		}
	}
}

func (c *Coordinator) isClosed() bool {
	c.queue.mu.Lock()
	defer c.queue.mu.Unlock()
	return c.queue.closed
}

// process runs one job in its own transaction and delivers the result.
// Called only from run.
func (c *Coordinator) process(j job) {
	start := time.Now()
	c.busy.Store(true)
	err := c.transact(j)
	c.busy.Store(false)
	elapsed := time.Since(start)

	c.metrics.ObserveJob(j.op, elapsed, err)
	if err == nil {
		c.log.Debug("job committed", logging.String("op", j.op), logging.Duration("elapsed", elapsed))
	}
	j.result <- err
}

func (c *Coordinator) transact(j job) (err error) {
	ctx := context.Background()

	tx, err := c.store.Begin(ctx)
	if err != nil {
		return newError(ErrCodeTransaction, j.op, "", "begin", err)
	}
	defer tx.Rollback()

	txn := &Txn{
		ctx:  ctx,
		tx:   tx,
		c:    c,
		conf: &confinement{id: c.clock.Next(), kind: "txn"},
	}
	defer txn.conf.closed.Store(true)

	if err := safeCall(j.op, j.fn, txn); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return newError(ErrCodeTransaction, j.op, "", "commit", err)
	}
	return nil
}

// safeCall runs fn, converting a panic into a TRANSACTION error tagged op.
func safeCall(op string, fn func(*Txn) error, txn *Txn) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = newError(ErrCodeTransaction, op, "", fmt.Sprintf("panic: %v", r), nil)
		}
	}()
	return fn(txn)
}

// goroutineID parses the calling goroutine's id from its stack header,
// "goroutine 42 [running]:".
func goroutineID() uint64 {
	var buf [64]byte
	b := buf[:runtime.Stack(buf[:], false)]
	b = bytes.TrimPrefix(b, []byte("goroutine "))
	if i := bytes.IndexByte(b, ' '); i > 0 {
		b = b[:i]
	}
	id, _ := strconv.ParseUint(string(b), 10, 64)
	return id
}
