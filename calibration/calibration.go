// Package calibration corrects upstream blendshape bias and derives the
// cheekPuff proxy the detector cannot produce on its own.
package calibration

import (
	"github.com/maastricht-university/facecap/face"
)

// Correction names accepted in Options.Enabled.
const (
	Squint               = "squint"
	Blink                = "blink"
	CheekProxyCorrection = "cheek_proxy"
)

// Options is the static calibration configuration.
type Options struct {
	Enabled []string

	SquintChannels []string
	SquintOffset   float64

	BlinkChannels []string
	BlinkTrigger  float64
	BlinkBoost    float64

	Cheek CheekOptions
}

// DefaultOptions returns the constants the rig was tuned with.
func DefaultOptions() Options {
	return Options{
		Enabled:        []string{Squint, Blink, CheekProxyCorrection},
		SquintChannels: []string{"eyeSquintLeft", "eyeSquintRight"},
		SquintOffset:   0.2,
		BlinkChannels:  []string{"eyeBlinkLeft", "eyeBlinkRight"},
		BlinkTrigger:   0.2,
		BlinkBoost:     1.4,
		Cheek:          DefaultCheekOptions(),
	}
}

type rule uint8

const (
	passThrough rule = iota
	squintRule
	blinkRule
)

// Calibrator applies per-channel corrections and owns the cheek proxy state.
// It is not safe for concurrent use; the pipeline calls it from one goroutine.
type Calibrator struct {
	opts  Options
	rules map[string]rule
	cheek *CheekProxy // nil when the proxy is disabled
}

// New builds a Calibrator. Unknown names in opts.Enabled are ignored.
func New(opts Options) *Calibrator {
	c := &Calibrator{opts: opts, rules: map[string]rule{}}
	for _, e := range opts.Enabled {
		switch e {
		case Squint:
			for _, ch := range opts.SquintChannels {
				c.rules[ch] = squintRule
			}
		case Blink:
			for _, ch := range opts.BlinkChannels {
				c.rules[ch] = blinkRule
			}
		case CheekProxyCorrection:
			c.cheek = NewCheekProxy(opts.Cheek)
		}
	}
	return c
}

// Calibrate corrects one frame's signals. The input map is not modified.
// When the cheek proxy is enabled its smoothed value is written to the
// target channel, replacing any upstream value, and returned as proxy with
// ok set. Every derived value comes from this frame.
func (c *Calibrator) Calibrate(in face.Signals) (out face.Signals, proxy float64, ok bool) {
	out = make(face.Signals, len(in)+1)
	for name, score := range in {
		out[name] = c.correct(name, score)
	}
	if c.cheek == nil {
		return out, 0, false
	}
	proxy = c.cheek.Update(in[c.opts.Cheek.Source])
	out[c.opts.Cheek.Target] = proxy
	return out, proxy, true
}

func (c *Calibrator) correct(name string, s float64) float64 {
	switch c.rules[name] {
	case squintRule:
		return SquintCorrect(s, c.opts.SquintOffset)
	case blinkRule:
		return BlinkBoost(s, c.opts.BlinkTrigger, c.opts.BlinkBoost)
	default:
		return s
	}
}

// Cheek exposes the proxy state, or nil when the proxy is disabled.
func (c *Calibrator) Cheek() *CheekProxy { return c.cheek }

// SquintCorrect subtracts offset, flooring at 0.
func SquintCorrect(s, offset float64) float64 {
	if v := s - offset; v > 0 {
		return v
	}
	return 0
}

// BlinkBoost scales scores above trigger by boost, capping at 1.
func BlinkBoost(s, trigger, boost float64) float64 {
	if s <= trigger {
		return s
	}
	if v := s * boost; v < 1 {
		return v
	}
	return 1
}
