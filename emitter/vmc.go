// Package emitter streams calibrated blendshape values to an avatar renderer
// using the VMC protocol (OSC over UDP).
package emitter

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"github.com/hypebeast/go-osc/osc"
	"github.com/sirupsen/logrus"

	"github.com/maastricht-university/facecap/face"
)

// BlendValAddress is the VMC address for one blendshape value. Receivers
// expect args [name string, value float32] in that order.
const BlendValAddress = "/VMC/Ext/Blend/Val"

type blendVal struct {
	name  string
	value float32
}

// Stats are cumulative counters since Connect.
type Stats struct {
	Sent    uint64
	Dropped uint64 // queue full, message never sent
	Errors  uint64 // encode or write failures
}

// VMC sends one datagram per channel. Emit never blocks: when the queue is
// full the message is dropped. Delivery is best-effort and unordered.
type VMC struct {
	addr  string
	queue chan blendVal
	log   *logrus.Entry

	conn net.Conn
	stop chan struct{}
	wg   sync.WaitGroup
	once sync.Once

	sent    atomic.Uint64
	dropped atomic.Uint64
	errors  atomic.Uint64
}

// NewVMC prepares an emitter for host:port. Nothing is sent until Connect.
func NewVMC(addr string, queueSize int) *VMC {
	if queueSize < 1 {
		queueSize = 1
	}
	return &VMC{
		addr:  addr,
		queue: make(chan blendVal, queueSize),
		stop:  make(chan struct{}),
		log:   logrus.WithFields(logrus.Fields{"component": "emitter", "addr": addr}),
	}
}

// Connect opens the UDP socket and starts the writer.
func (e *VMC) Connect(ctx context.Context) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "udp", e.addr)
	if err != nil {
		return fmt.Errorf("vmc dial %s: %w", e.addr, err)
	}
	e.conn = conn
	e.wg.Add(1)
	go e.writeLoop()
	e.log.Info("vmc emitter ready")
	return nil
}

// Emit queues one message per signal.
func (e *VMC) Emit(signals face.Signals) {
	for name, v := range signals {
		e.Send(name, v)
	}
}

// Send queues a single value and reports whether it was accepted.
func (e *VMC) Send(name string, value float64) bool {
	select {
	case e.queue <- blendVal{name: name, value: float32(value)}:
		return true
	default:
		e.dropped.Add(1)
		return false
	}
}

func (e *VMC) writeLoop() {
	defer e.wg.Done()
	for {
		select {
		case <-e.stop:
			return
		case m := <-e.queue:
			e.write(m)
		}
	}
}

func (e *VMC) write(m blendVal) {
	data, err := Encode(m.name, m.value)
	if err != nil {
		e.errors.Add(1)
		e.log.WithError(err).WithField("name", m.name).Debug("encode failed")
		return
	}
	if _, err := e.conn.Write(data); err != nil {
		// a missing receiver shows up here as ECONNREFUSED; keep going
		if e.errors.Add(1) == 1 {
			e.log.WithError(err).Warn("vmc send failed, further failures logged at debug")
		} else {
			e.log.WithError(err).Debug("vmc send failed")
		}
		return
	}
	e.sent.Add(1)
}

// Encode builds the OSC packet for one blendshape value.
func Encode(name string, value float32) ([]byte, error) {
	return osc.NewMessage(BlendValAddress, name, value).MarshalBinary()
}

// Stats returns the current counters.
func (e *VMC) Stats() Stats {
	return Stats{Sent: e.sent.Load(), Dropped: e.dropped.Load(), Errors: e.errors.Load()}
}

// Close stops the writer and closes the socket. Queued messages are discarded.
func (e *VMC) Close() error {
	var err error
	e.once.Do(func() {
		close(e.stop)
		e.wg.Wait()
		if e.conn != nil {
			err = e.conn.Close()
		}
	})
	return err
}
