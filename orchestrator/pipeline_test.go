package orchestrator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cfg "github.com/maastricht-university/facecap/config"
	"github.com/maastricht-university/facecap/face"
	"github.com/maastricht-university/facecap/session"
)

type recordSink struct {
	mu     sync.Mutex
	frames []face.Signals
}

func (s *recordSink) Emit(sig face.Signals) {
	s.mu.Lock()
	s.frames = append(s.frames, sig)
	s.mu.Unlock()
}

// sliceSource hands each frame to the pipeline and waits until it is consumed,
// so no frame is overwritten in the mailbox.
type sliceSource struct {
	frames []face.Frame
	p      *Pipeline
	err    error
}

func (s *sliceSource) Stream(ctx context.Context, out func(face.Frame)) error {
	for _, f := range s.frames {
		out(f)
		for {
			s.p.mailbox.mu.Lock()
			empty := s.p.mailbox.frame == nil
			s.p.mailbox.mu.Unlock()
			if empty {
				break
			}
		}
	}
	return s.err
}

func mesh() face.LandmarkSet {
	lm := make(face.LandmarkSet, face.LandmarkCount)
	for i := range lm {
		lm[i] = face.Point{X: 0.5, Y: 0.5}
	}
	lm[116] = face.Point{X: 0.3, Y: 0.5}
	return lm
}

func newTestPipeline(t *testing.T) (*Pipeline, *recordSink, string) {
	t.Helper()
	c := cfg.Default()
	c.Ingest.FirstFrameWarnMs = 0
	dir := t.TempDir()
	sink := &recordSink{}
	rec := session.NewRecorder(session.NewFileExporter(dir, c.Recording.DistanceRegions))
	return NewPipeline(c, sink, rec), sink, dir
}

func TestProcessCalibratesAndEmits(t *testing.T) {
	p, sink, _ := newTestPipeline(t)

	p.Process(face.Frame{TimestampMs: 10, Signals: face.Signals{"eyeSquintLeft": 0.5, "mouthPucker": 0.9}})

	require.Len(t, sink.frames, 1)
	emitted := sink.frames[0]
	assert.InDelta(t, 0.3, emitted["eyeSquintLeft"], 1e-12)
	assert.Contains(t, emitted, "cheekPuff")

	st := p.Latest()
	assert.Equal(t, int64(10), st.FrameTimestampMs)
	assert.True(t, st.CheekActive)
	assert.Equal(t, emitted["cheekPuff"], st.CheekProxy)
	assert.Equal(t, emitted, st.Signals, "cached and emitted values come from the same call")
}

func TestProcessSkipsEmptyFrames(t *testing.T) {
	p, sink, _ := newTestPipeline(t)
	p.Process(face.Frame{TimestampMs: 1, Signals: face.Signals{"jawOpen": 0.2}})
	p.Process(face.Frame{TimestampMs: 2})

	st := p.Latest()
	assert.Equal(t, int64(1), st.FrameTimestampMs)
	assert.Equal(t, 0.2, st.Signals["jawOpen"])
	assert.Equal(t, uint64(1), st.Skipped)
	assert.Len(t, sink.frames, 1)
}

func TestLandmarkOnlyFrameDoesNotAdvanceCalibrator(t *testing.T) {
	p, sink, _ := newTestPipeline(t)
	p.Process(face.Frame{Landmarks: mesh()})

	st := p.Latest()
	assert.Empty(t, sink.frames)
	assert.Zero(t, st.Frames)
	assert.Len(t, st.Landmarks, face.LandmarkCount)
	assert.Contains(t, st.CheekDistances, "LEFT_CHEEK")
	assert.Empty(t, p.cal.Cheek().History())
}

func TestSnapshotRequiresRecordingAndSignals(t *testing.T) {
	p, _, _ := newTestPipeline(t)

	_, _, err := p.TakeSnapshot()
	assert.ErrorIs(t, err, session.ErrNotRecording)

	st, _, err := p.ToggleRecording()
	require.NoError(t, err)
	require.Equal(t, session.Recording, st)

	_, _, err = p.TakeSnapshot()
	assert.ErrorIs(t, err, session.ErrNoSignals)

	p.Process(face.Frame{Signals: face.Signals{"jawOpen": 0.2}})
	snap, n, err := p.TakeSnapshot()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 0.2, snap.Blendshapes["MOUTH"]["jawOpen"])
	assert.Contains(t, snap.Blendshapes["CHEEK"], "cheekPuff")
	assert.Len(t, snap.LandmarkRegions, len(face.DefaultRegions))
	assert.Empty(t, snap.LandmarkRegions["NOSE"], "no landmarks yet")
}

func TestRunThenShutdownFlushes(t *testing.T) {
	p, sink, dir := newTestPipeline(t)
	_, _, err := p.ToggleRecording()
	require.NoError(t, err)

	src := &sliceSource{p: p, frames: []face.Frame{
		{TimestampMs: 1, Signals: face.Signals{"mouthPucker": 0.8}, Landmarks: mesh()},
		{TimestampMs: 2},
		{TimestampMs: 3, Signals: face.Signals{"mouthPucker": 0.9}},
	}}
	require.NoError(t, p.Run(context.Background(), src))
	assert.Len(t, sink.frames, 2)
	assert.Equal(t, uint64(1), p.Status().Skipped)

	_, _, err = p.TakeSnapshot()
	require.NoError(t, err)

	paths, err := p.Shutdown()
	require.NoError(t, err)
	require.NotNil(t, paths)
	assert.Equal(t, dir, filepath.Dir(paths.JSON))
	_, err = os.Stat(paths.CSV)
	assert.NoError(t, err)
	assert.Equal(t, session.Idle, p.Status().Recorder)
}

func TestRunReturnsSourceError(t *testing.T) {
	p, _, _ := newTestPipeline(t)
	boom := errors.New("camera unplugged")
	err := p.Run(context.Background(), &sliceSource{p: p, err: boom})
	assert.ErrorIs(t, err, boom)
}

func TestToggleTrace(t *testing.T) {
	p, _, _ := newTestPipeline(t)
	assert.True(t, p.ToggleTrace())
	p.Process(face.Frame{Landmarks: mesh()})
	assert.False(t, p.ToggleTrace())
}
