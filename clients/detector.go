package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/maastricht-university/facecap/face"
)

// --- Detector status (/status) ---
type StatusResp struct {
	Model       string `json:"model"`
	RunningMode string `json:"running_mode"`
	Blendshapes bool   `json:"output_face_blendshapes"`
	Camera      string `json:"camera,omitempty"`
	FPS         int    `json:"fps,omitempty"`
}

func (h *HTTP) DetectorStatus(ctx context.Context, url string) (*StatusResp, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := h.c.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("detector status %s: %s", resp.Status, string(body))
	}

	var out StatusResp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("detector status decode: %w", err)
	}
	return &out, nil
}

// --- Detector stream (websocket) ---

// Detector reads face-landmarker results pushed by the detector sidecar,
// one JSON FrameMsg per websocket message.
type Detector struct {
	BaseURL    string
	StreamPath string
	StatusPath string

	http   *HTTP
	dialer *websocket.Dialer
	log    *logrus.Entry
}

func NewDetector(baseURL, streamPath, statusPath string) *Detector {
	return &Detector{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		StreamPath: streamPath,
		StatusPath: statusPath,
		http:       NewHTTP(),
		dialer:     websocket.DefaultDialer,
		log:        logrus.WithField("component", "detector"),
	}
}

// Status probes the sidecar's status endpoint.
func (d *Detector) Status(ctx context.Context) (*StatusResp, error) {
	return d.http.DetectorStatus(ctx, d.BaseURL+d.StatusPath)
}

// StreamURL maps the http(s) base URL onto ws(s).
func (d *Detector) StreamURL() (string, error) {
	u, err := url.Parse(d.BaseURL + d.StreamPath)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("detector url: unsupported scheme %q", u.Scheme)
	}
	return u.String(), nil
}

// Stream delivers frames to out until ctx is done or the connection drops.
// out is called from a single goroutine, never concurrently. Undecodable
// messages are skipped.
func (d *Detector) Stream(ctx context.Context, out func(face.Frame)) error {
	wsURL, err := d.StreamURL()
	if err != nil {
		return err
	}
	conn, _, err := d.dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("detector dial %s: %w", wsURL, err)
	}
	d.log.WithField("url", wsURL).Info("detector stream connected")

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()
	defer conn.Close()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				d.log.Info("detector closed the stream")
				return nil
			}
			return fmt.Errorf("detector read: %w", err)
		}
		var msg FrameMsg
		if err := json.Unmarshal(data, &msg); err != nil {
			d.log.WithError(err).Debug("skipping malformed frame")
			continue
		}
		out(msg.Frame())
	}
}
