package clients

import (
	"net/http"
	"time"

	"github.com/maastricht-university/facecap/face"
)

type HTTP struct{ c *http.Client }

func NewHTTP() *HTTP { return &HTTP{c: &http.Client{Timeout: 10 * time.Second}} }

// --- detector wire format ---
type BlendshapeMsg struct {
	CategoryName string  `json:"category_name"`
	Score        float64 `json:"score"`
}

// FrameMsg is one face-landmarker result as sent by the detector sidecar and
// stored in replay files.
type FrameMsg struct {
	TimestampMs   int64           `json:"timestamp_ms"`
	Blendshapes   []BlendshapeMsg `json:"blendshapes"`
	FaceLandmarks [][]face.Point  `json:"face_landmarks"`
}

// Frame converts the first face of m. Later faces are ignored.
func (m FrameMsg) Frame() face.Frame {
	f := face.Frame{TimestampMs: m.TimestampMs}
	if len(m.Blendshapes) > 0 {
		f.Signals = make(face.Signals, len(m.Blendshapes))
		for _, b := range m.Blendshapes {
			f.Signals[b.CategoryName] = b.Score
		}
	}
	if len(m.FaceLandmarks) > 0 && len(m.FaceLandmarks[0]) > 0 {
		f.Landmarks = face.LandmarkSet(m.FaceLandmarks[0])
	}
	return f
}
