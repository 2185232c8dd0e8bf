package calibration

import (
	"github.com/maastricht-university/facecap/face"
)

// CheekOptions configures the cheekPuff proxy. On must be greater than Off.
type CheekOptions struct {
	Source string  // channel the proxy is derived from
	Target string  // channel the proxy is published as
	On     float64 // source >= On switches the proxy on
	Off    float64 // source < Off switches it off
	Max    float64 // source value treated as a full puff
	OutMax float64
	Window int // smoothing window in frames
}

// DefaultCheekOptions derives cheekPuff from mouthPucker.
func DefaultCheekOptions() CheekOptions {
	return CheekOptions{
		Source: "mouthPucker",
		Target: "cheekPuff",
		On:     0.72,
		Off:    0.60,
		Max:    1.0,
		OutMax: 1.0,
		Window: 6,
	}
}

// CheekProxy is a two-threshold latch followed by a moving average.
type CheekProxy struct {
	opts    CheekOptions
	active  bool
	history []float64 // ring buffer, len == Window
	next    int
	filled  int
	last    float64
}

// NewCheekProxy starts inactive with an empty history. A window below 1 is
// treated as 1.
func NewCheekProxy(opts CheekOptions) *CheekProxy {
	if opts.Window < 1 {
		opts.Window = 1
	}
	return &CheekProxy{opts: opts, history: make([]float64, opts.Window)}
}

// Update feeds one source sample and returns the smoothed proxy, rounded to
// 4 decimals. Between Off and On the previous state holds.
func (p *CheekProxy) Update(source float64) float64 {
	switch {
	case source >= p.opts.On:
		p.active = true
	case source < p.opts.Off:
		p.active = false
	}

	p.push(p.raw(source))
	p.last = face.Round4(p.mean())
	return p.last
}

func (p *CheekProxy) raw(source float64) float64 {
	if !p.active {
		return 0
	}
	r := (source - p.opts.On) / (p.opts.Max - p.opts.On) * p.opts.OutMax
	if r < 0 {
		return 0
	}
	if r > p.opts.OutMax {
		return p.opts.OutMax
	}
	return r
}

func (p *CheekProxy) push(v float64) {
	if p.filled < len(p.history) {
		p.filled++
	}
	p.history[p.next] = v
	p.next = (p.next + 1) % len(p.history)
}

func (p *CheekProxy) mean() float64 {
	if p.filled == 0 {
		return 0
	}
	s := 0.0
	for i := 0; i < p.filled; i++ {
		s += p.history[i]
	}
	return s / float64(p.filled)
}

// Active reports the latch state.
func (p *CheekProxy) Active() bool { return p.active }

// Last is the most recent smoothed value.
func (p *CheekProxy) Last() float64 { return p.last }

// History returns the raw values in the window, oldest first.
func (p *CheekProxy) History() []float64 {
	out := make([]float64, 0, p.filled)
	start := 0
	if p.filled == len(p.history) {
		start = p.next
	}
	for i := 0; i < p.filled; i++ {
		out = append(out, p.history[(start+i)%len(p.history)])
	}
	return out
}
