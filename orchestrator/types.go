package orchestrator

import (
	"context"

	"github.com/maastricht-university/facecap/emitter"
	"github.com/maastricht-university/facecap/face"
	"github.com/maastricht-university/facecap/session"
)

// Source delivers detector frames. out is never called concurrently.
type Source interface {
	Stream(ctx context.Context, out func(face.Frame)) error
}

// Sink receives calibrated signals once per frame. It must not block.
type Sink interface {
	Emit(signals face.Signals)
}

// State is the latest pipeline output. Signals and Landmarks update
// independently and may come from different frames.
type State struct {
	FrameTimestampMs int64
	Signals          face.Signals
	Landmarks        face.LandmarkSet
	CheekDistances   map[string]float64 // region -> distance to nose tip
	CheekProxy       float64
	CheekActive      bool
	Frames           uint64 // frames calibrated
	Skipped          uint64 // frames with neither signals nor landmarks
}

// Status is the operator-facing health summary.
type Status struct {
	Recorder  session.State
	Snapshots int
	Frames    uint64
	Skipped   uint64
	Drops     uint64
	Emitter   *emitter.Stats
}
