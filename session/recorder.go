package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var (
	// ErrNotRecording rejects a snapshot while the recorder is idle.
	ErrNotRecording = errors.New("not recording, start a recording first")
	// ErrNoSignals rejects a snapshot before any frame has been calibrated.
	ErrNoSignals = errors.New("no calibrated signals yet")
)

// State of the recorder.
type State int

const (
	Idle State = iota
	Recording
)

func (s State) String() string {
	if s == Recording {
		return "RECORDING"
	}
	return "IDLE"
}

// Exporter persists a finished session.
type Exporter interface {
	Export(s *Session) (Paths, error)
}

// Recorder gates capture windows. All methods are safe for concurrent use;
// one mutex guards the state flag and the session.
type Recorder struct {
	mu       sync.Mutex
	state    State
	active   *Session
	pending  *Session // stopped but not yet exported
	exporter Exporter
	now      func() time.Time
	log      *logrus.Entry
}

func NewRecorder(exp Exporter) *Recorder {
	return &Recorder{
		exporter: exp,
		now:      time.Now,
		log:      logrus.WithField("component", "recorder"),
	}
}

// State returns the current state.
func (r *Recorder) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Count is the number of snapshots in the active session.
func (r *Recorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active == nil {
		return 0
	}
	return len(r.active.Snapshots)
}

// Toggle starts a recording when idle and stops it when recording. Stopping
// exports a non-empty session; paths is nil when nothing was written.
func (r *Recorder) Toggle() (state State, paths *Paths, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state == Idle {
		r.start()
		return r.state, nil, nil
	}
	paths, err = r.stop()
	return r.state, paths, err
}

func (r *Recorder) start() {
	if r.pending != nil {
		r.log.WithFields(logrus.Fields{
			"session_id": r.pending.ID,
			"snapshots":  len(r.pending.Snapshots),
		}).Warn("discarding unexported session")
		r.pending = nil
	}
	r.active = &Session{ID: uuid.NewString(), StartedAt: r.now()}
	r.state = Recording
	r.log.WithFields(logrus.Fields{
		"session_id": r.active.ID,
		"started_at": r.active.StartedAt.Format("15:04:05"),
	}).Info("recording started")
}

func (r *Recorder) stop() (*Paths, error) {
	s := r.active
	r.active = nil
	r.state = Idle
	r.log.WithFields(logrus.Fields{"session_id": s.ID, "snapshots": len(s.Snapshots)}).Info("recording stopped")
	if len(s.Snapshots) == 0 {
		r.log.Info("nothing recorded")
		return nil, nil
	}
	return r.export(s)
}

// export keeps s as pending until it has been written.
func (r *Recorder) export(s *Session) (*Paths, error) {
	r.pending = s
	p, err := r.exporter.Export(s)
	if err != nil {
		r.log.WithError(err).WithFields(logrus.Fields{
			"session_id": s.ID,
			"snapshots":  len(s.Snapshots),
		}).Error("export failed, session kept in memory")
		return nil, fmt.Errorf("export session %s: %w", s.ID, err)
	}
	r.pending = nil
	r.log.WithFields(logrus.Fields{"json": p.JSON, "csv": p.CSV}).Info("session saved")
	return &p, nil
}

// Snapshot appends build() to the active session. In IDLE it returns
// ErrNotRecording without calling build.
func (r *Recorder) Snapshot(build func() (Snapshot, error)) (Snapshot, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != Recording {
		r.log.Warn("snapshot ignored: press r to start recording first")
		return Snapshot{}, 0, ErrNotRecording
	}
	snap, err := build()
	if err != nil {
		r.log.WithError(err).Warn("snapshot ignored")
		return Snapshot{}, len(r.active.Snapshots), err
	}
	r.active.Snapshots = append(r.active.Snapshots, snap)
	return snap, len(r.active.Snapshots), nil
}

// Close flushes the active session, or a pending one whose export failed,
// and leaves the recorder idle. It is the quit path.
func (r *Recorder) Close() (*Paths, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state == Recording {
		return r.stop()
	}
	if r.pending != nil {
		return r.export(r.pending)
	}
	return nil, nil
}
