package cpu

import (
	"fmt"
	"slices"
	"sync"

	"github.com/born-ml/lazyml/internal/backend"
)

// command is one queued operation. stage and target describe it in errors.
type command struct {
	stage  string
	target string
	run    func() error
}

// Queue is the in-order command queue of a CPU backend.
//
// Non-blocking commands are appended to a pending list; blocking commands and
// Finish execute the list in submission order first. The first failure is kept
// and returned by every later call, the way a lost device stays lost.
type Queue struct {
	backend *Backend

	mu      sync.Mutex
	pending []command
	err     error
}

// Compile-time check that Queue implements backend.Queue.
var _ backend.Queue = (*Queue)(nil)

// Write copies src into dst. The source is captured when the call is made.
func (q *Queue) Write(dst backend.Allocation, src []float32, blocking bool) error {
	a, err := q.backend.resolve(dst)
	if err != nil {
		return backend.Fail("write", dst.Label(), err)
	}
	if len(src) != len(a.data) {
		return backend.Fail("write", a.label,
			fmt.Errorf("%w: host %d, device %d", backend.ErrLengthMismatch, len(src), len(a.data)))
	}

	snapshot := slices.Clone(src)
	return q.submit(command{
		stage:  "write",
		target: a.label,
		run: func() error {
			copy(a.data, snapshot)
			return nil
		},
	}, blocking)
}

// Read copies src into dst.
func (q *Queue) Read(src backend.Allocation, dst []float32, blocking bool) error {
	a, err := q.backend.resolve(src)
	if err != nil {
		return backend.Fail("read", src.Label(), err)
	}
	if len(dst) != len(a.data) {
		return backend.Fail("read", a.label,
			fmt.Errorf("%w: host %d, device %d", backend.ErrLengthMismatch, len(dst), len(a.data)))
	}

	return q.submit(command{
		stage:  "read",
		target: a.label,
		run: func() error {
			copy(dst, a.data)
			return nil
		},
	}, blocking)
}

// Dispatch validates d and enqueues it.
func (q *Queue) Dispatch(d backend.Dispatch) error {
	if err := d.Validate(); err != nil {
		return backend.Fail("dispatch", string(d.Kernel), err)
	}
	fn, ok := q.backend.kernel(d.Kernel)
	if !ok {
		return backend.Fail("dispatch", string(d.Kernel), backend.ErrNotCompiled)
	}

	bufs := make([][]float32, len(d.Buffers))
	for i, alloc := range d.Buffers {
		a, err := q.backend.resolve(alloc)
		if err != nil {
			return backend.Fail("dispatch", string(d.Kernel), err)
		}
		bufs[i] = a.data
	}

	params := slices.Clone(d.Params)
	lanes := d.Lanes
	cfg := q.backend.cfg.Parallel
	return q.submit(command{
		stage:  "dispatch",
		target: string(d.Kernel),
		run: func() error {
			return fn(bufs, params, lanes, cfg)
		},
	}, false)
}

// Finish executes every pending command.
func (q *Queue) Finish() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.flushLocked()
}

// Pending returns the number of commands waiting for a flush.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

func (q *Queue) submit(cmd command, blocking bool) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.err != nil {
		return q.err
	}
	q.pending = append(q.pending, cmd)
	if blocking {
		return q.flushLocked()
	}
	return nil
}

// flushLocked runs pending commands in order (must hold mu).
func (q *Queue) flushLocked() error {
	if q.err != nil {
		return q.err
	}
	for i, cmd := range q.pending {
		if err := cmd.run(); err != nil {
			q.err = backend.Fail(cmd.stage, cmd.target, err)
			q.pending = q.pending[:0]
			return q.err
		}
		q.pending[i] = command{}
	}
	q.pending = q.pending[:0]
	return nil
}

func (q *Queue) reset() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = nil
}
