package orchestrator

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/maastricht-university/facecap/face"
)

// Mailbox is a single-slot frame inbox. Post never blocks: a newer frame
// replaces one the consumer has not taken yet.
type Mailbox struct {
	mu     sync.Mutex
	cond   *sync.Cond
	frame  *face.Frame
	closed bool
	drops  atomic.Uint64
}

func NewMailbox() *Mailbox {
	m := &Mailbox{}
	m.cond = sync.NewCond(&m.mu)
	return m
}

// Post stores f, counting a drop if it overwrites an unconsumed frame.
// Posting after Close is a no-op.
func (m *Mailbox) Post(f face.Frame) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	if m.frame != nil {
		m.drops.Add(1)
	}
	m.frame = &f
	m.cond.Signal()
	m.mu.Unlock()
}

// Close wakes the consumer. A frame already posted can still be taken.
func (m *Mailbox) Close() {
	m.mu.Lock()
	m.closed = true
	m.cond.Broadcast()
	m.mu.Unlock()
}

// Next blocks until a frame is available. ok is false once the mailbox is
// closed and empty, or ctx is done.
func (m *Mailbox) Next(ctx context.Context) (f face.Frame, ok bool) {
	stop := context.AfterFunc(ctx, func() {
		m.mu.Lock()
		m.cond.Broadcast()
		m.mu.Unlock()
	})
	defer stop()

	m.mu.Lock()
	defer m.mu.Unlock()
	for m.frame == nil && !m.closed && ctx.Err() == nil {
		m.cond.Wait()
	}
	if ctx.Err() != nil || m.frame == nil {
		return face.Frame{}, false
	}
	f = *m.frame
	m.frame = nil
	return f, true
}

// Drops counts frames overwritten before the consumer saw them.
func (m *Mailbox) Drops() uint64 { return m.drops.Load() }
