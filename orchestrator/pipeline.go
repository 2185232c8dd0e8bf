package orchestrator

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/maastricht-university/facecap/calibration"
	cfg "github.com/maastricht-university/facecap/config"
	"github.com/maastricht-university/facecap/emitter"
	"github.com/maastricht-university/facecap/face"
	"github.com/maastricht-university/facecap/session"
)

// Pipeline funnels every frame through one goroutine: calibrate, emit, cache.
// Commands read the cache under a lock and may race with frames.
type Pipeline struct {
	cfg      *cfg.Root
	cal      *calibration.Calibrator
	builder  *session.Builder
	recorder *session.Recorder
	sink     Sink
	mailbox  *Mailbox
	distance []face.Region
	trace    atomic.Bool
	log      *logrus.Entry

	mu     sync.RWMutex
	latest State
}

func NewPipeline(c *cfg.Root, sink Sink, rec *session.Recorder) *Pipeline {
	classifier := face.NewClassifier(c.Groups)
	return &Pipeline{
		cfg:      c,
		cal:      calibration.New(c.CalibrationOptions()),
		builder:  session.NewBuilder(classifier, c.Regions, c.RegionsNamed(c.Recording.RawRegions)),
		recorder: rec,
		sink:     sink,
		mailbox:  NewMailbox(),
		distance: c.RegionsNamed(c.Recording.DistanceRegions),
		log:      logrus.WithField("component", "pipeline"),
	}
}

// Run consumes src until it ends or ctx is done. It does not flush the
// recorder; call Shutdown for that.
func (p *Pipeline) Run(ctx context.Context, src Source) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errc := make(chan error, 1)
	go func() {
		err := src.Stream(ctx, p.mailbox.Post)
		p.mailbox.Close()
		errc <- err
	}()

	if ms := p.cfg.Ingest.FirstFrameWarnMs; ms > 0 {
		warn := time.AfterFunc(cfg.DurMillis(ms), func() {
			if p.Latest().Frames == 0 {
				p.log.WithField("waited", cfg.DurMillis(ms)).Warn("no frames from detector yet")
			}
		})
		defer warn.Stop()
	}

	for {
		f, ok := p.mailbox.Next(ctx)
		if !ok {
			break
		}
		p.Process(f)
	}
	cancel()
	return <-errc
}

// Process handles one frame. Frames without signals and landmarks leave the
// cached state untouched.
func (p *Pipeline) Process(f face.Frame) {
	if f.Empty() {
		p.mu.Lock()
		p.latest.Skipped++
		p.mu.Unlock()
		return
	}

	if len(f.Landmarks) > 0 {
		dist := face.CheekDistances(f.Landmarks, p.distance)
		p.mu.Lock()
		p.latest.Landmarks = f.Landmarks
		p.latest.CheekDistances = dist
		p.mu.Unlock()
		if p.trace.Load() {
			p.traceCheeks(f.Landmarks, dist)
		}
	}

	if len(f.Signals) == 0 {
		return
	}
	out, proxy, _ := p.cal.Calibrate(f.Signals)
	active := false
	if ch := p.cal.Cheek(); ch != nil {
		active = ch.Active()
	}
	p.sink.Emit(out)

	p.mu.Lock()
	p.latest.FrameTimestampMs = f.TimestampMs
	p.latest.Signals = out
	p.latest.CheekProxy = proxy
	p.latest.CheekActive = active
	p.latest.Frames++
	p.mu.Unlock()
}

// Latest returns the cached state. Maps in it are never mutated afterwards.
func (p *Pipeline) Latest() State {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.latest
}

// ToggleRecording flips the recorder, exporting on stop.
func (p *Pipeline) ToggleRecording() (session.State, *session.Paths, error) {
	return p.recorder.Toggle()
}

// TakeSnapshot records the current state into the active session.
func (p *Pipeline) TakeSnapshot() (session.Snapshot, int, error) {
	snap, n, err := p.recorder.Snapshot(func() (session.Snapshot, error) {
		st := p.Latest()
		if len(st.Signals) == 0 {
			return session.Snapshot{}, session.ErrNoSignals
		}
		return p.builder.Build(session.Input{
			Now:              time.Now(),
			FrameTimestampMs: st.FrameTimestampMs,
			Signals:          st.Signals,
			Landmarks:        st.Landmarks,
			CheekDistances:   st.CheekDistances,
		}), nil
	})
	if err == nil {
		p.logSummary(snap, n)
	}
	return snap, n, err
}

// ToggleTrace switches per-frame cheek distance logging and returns the new setting.
func (p *Pipeline) ToggleTrace() bool {
	for {
		old := p.trace.Load()
		if p.trace.CompareAndSwap(old, !old) {
			return !old
		}
	}
}

// Status collects counters for the operator.
func (p *Pipeline) Status() Status {
	st := p.Latest()
	s := Status{
		Recorder:  p.recorder.State(),
		Snapshots: p.recorder.Count(),
		Frames:    st.Frames,
		Skipped:   st.Skipped,
		Drops:     p.mailbox.Drops(),
	}
	if vmc, ok := p.sink.(*emitter.VMC); ok {
		es := vmc.Stats()
		s.Emitter = &es
	}
	return s
}

// Shutdown flushes any unsaved session. It must run before the process exits.
func (p *Pipeline) Shutdown() (*session.Paths, error) {
	return p.recorder.Close()
}
