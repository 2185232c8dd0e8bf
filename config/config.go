package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/maastricht-university/facecap/calibration"
	"github.com/maastricht-university/facecap/face"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid config")

type VMC struct {
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	QueueSize int    `yaml:"queue_size"`
}

func (v VMC) Addr() string { return fmt.Sprintf("%s:%d", v.Host, v.Port) }

type Calibration struct {
	Enabled        []string `yaml:"enabled"`
	SquintChannels []string `yaml:"squint_channels"`
	SquintOffset   float64  `yaml:"squint_offset"`
	BlinkChannels  []string `yaml:"blink_channels"`
	BlinkTrigger   float64  `yaml:"blink_trigger"`
	BlinkBoost     float64  `yaml:"blink_boost"`
}

type Cheek struct {
	Source       string  `yaml:"source"`
	Target       string  `yaml:"target"`
	ThresholdOn  float64 `yaml:"threshold_on"`
	ThresholdOff float64 `yaml:"threshold_off"`
	Max          float64 `yaml:"max"`
	OutMax       float64 `yaml:"out_max"`
	SmoothFrames int     `yaml:"smooth_frames"`
}

type Recording struct {
	Dir string `yaml:"dir"`
	// regions whose per-landmark coordinates are kept verbatim in snapshots
	RawRegions []string `yaml:"raw_regions"`
	// regions measured against the nose tip each frame
	DistanceRegions []string `yaml:"distance_regions"`
}

type Ingest struct {
	DetectorURL string `yaml:"detector_url"`
	StreamPath  string `yaml:"stream_path"`
	StatusPath  string `yaml:"status_path"`
	// warn when the detector has sent nothing for this long, in ms
	FirstFrameWarnMs int `yaml:"first_frame_warn_ms"`
}

type Root struct {
	Pipeline struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
		LogLvl  string `yaml:"log_level"`
	} `yaml:"pipeline"`
	VMC         VMC           `yaml:"vmc"`
	Calibration Calibration   `yaml:"calibration"`
	Cheek       Cheek         `yaml:"cheek"`
	Recording   Recording     `yaml:"recording"`
	Ingest      Ingest        `yaml:"ingest"`
	Regions     []face.Region `yaml:"regions"`
	Groups      []face.Group  `yaml:"groups"`

	// Source is the file the config was read from, empty for built-in defaults.
	Source string `yaml:"-"`
}

// Default returns the configuration the rig runs with when no file is found.
func Default() *Root {
	cal := calibration.DefaultOptions()
	var r Root
	r.Pipeline.Name = "facecap"
	r.Pipeline.Version = "0.1.0"
	r.Pipeline.LogLvl = "info"
	r.VMC = VMC{Host: "127.0.0.1", Port: 39539, QueueSize: 512}
	r.Calibration = Calibration{
		Enabled:        cal.Enabled,
		SquintChannels: cal.SquintChannels,
		SquintOffset:   cal.SquintOffset,
		BlinkChannels:  cal.BlinkChannels,
		BlinkTrigger:   cal.BlinkTrigger,
		BlinkBoost:     cal.BlinkBoost,
	}
	r.Cheek = Cheek{
		Source:       cal.Cheek.Source,
		Target:       cal.Cheek.Target,
		ThresholdOn:  cal.Cheek.On,
		ThresholdOff: cal.Cheek.Off,
		Max:          cal.Cheek.Max,
		OutMax:       cal.Cheek.OutMax,
		SmoothFrames: cal.Cheek.Window,
	}
	r.Recording = Recording{
		Dir:             "recordings",
		RawRegions:      []string{"LEFT_CHEEK", "RIGHT_CHEEK"},
		DistanceRegions: []string{"LEFT_CHEEK", "RIGHT_CHEEK"},
	}
	r.Ingest = Ingest{
		DetectorURL:      "http://127.0.0.1:8765",
		StreamPath:       "/stream",
		StatusPath:       "/status",
		FirstFrameWarnMs: 5000,
	}
	r.Regions = face.DefaultRegions
	r.Groups = face.DefaultGroups
	return &r
}

// NewViper returns a viper instance reading FACECAP_* environment variables,
// e.g. FACECAP_VMC_PORT for vmc.port.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("FACECAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the config file named by the "config" key, or the first of the
// conventional locations that exists, on top of Default(). Environment and
// bound flags in v take precedence over the file.
func Load(v *viper.Viper) (*Root, error) {
	cfg := Default()

	explicit := v.GetString("config")
	guess := []string{explicit}
	if explicit == "" {
		env := os.Getenv("CONFIG_ENV")
		if env == "" {
			env = "dev"
		}
		guess = []string{
			filepath.Join("config", env, "config.yaml"),
			filepath.Join("src", "shared", "config.yaml"),
		}
	}
	for _, p := range guess {
		f, err := os.Open(p)
		if err != nil {
			if explicit != "" {
				return nil, fmt.Errorf("config: %w", err)
			}
			continue
		}
		err = yaml.NewDecoder(f).Decode(cfg)
		f.Close()
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("config %s: %w", p, err)
		}
		cfg.Source = p
		break
	}

	overlay(cfg, v)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func overlay(cfg *Root, v *viper.Viper) {
	if v.IsSet("vmc.host") {
		cfg.VMC.Host = v.GetString("vmc.host")
	}
	if v.IsSet("vmc.port") {
		cfg.VMC.Port = v.GetInt("vmc.port")
	}
	if v.IsSet("recording.dir") {
		cfg.Recording.Dir = v.GetString("recording.dir")
	}
	if v.IsSet("log_level") {
		cfg.Pipeline.LogLvl = v.GetString("log_level")
	}
	if v.IsSet("ingest.detector_url") {
		cfg.Ingest.DetectorURL = v.GetString("ingest.detector_url")
	}
}

// Validate checks the calibration constants and table references.
func (r *Root) Validate() error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
	}

	if r.VMC.Host == "" {
		bad("vmc.host is empty")
	}
	if r.VMC.Port <= 0 || r.VMC.Port > 65535 {
		bad("vmc.port %d out of range", r.VMC.Port)
	}
	if r.VMC.QueueSize < 1 {
		bad("vmc.queue_size must be at least 1")
	}
	c := r.Calibration
	if c.SquintOffset < 0 || c.SquintOffset > 1 {
		bad("calibration.squint_offset %v not in [0,1]", c.SquintOffset)
	}
	if c.BlinkTrigger < 0 || c.BlinkTrigger > 1 {
		bad("calibration.blink_trigger %v not in [0,1]", c.BlinkTrigger)
	}
	if c.BlinkBoost < 1 {
		bad("calibration.blink_boost %v below 1", c.BlinkBoost)
	}
	for _, e := range c.Enabled {
		switch e {
		case calibration.Squint, calibration.Blink, calibration.CheekProxyCorrection:
		default:
			bad("calibration.enabled: unknown correction %q", e)
		}
	}
	ch := r.Cheek
	if ch.ThresholdOn <= ch.ThresholdOff {
		bad("cheek.threshold_on %v must be above threshold_off %v", ch.ThresholdOn, ch.ThresholdOff)
	}
	if ch.Max <= ch.ThresholdOn {
		bad("cheek.max %v must be above threshold_on %v", ch.Max, ch.ThresholdOn)
	}
	if ch.OutMax <= 0 {
		bad("cheek.out_max must be positive")
	}
	if ch.SmoothFrames < 1 {
		bad("cheek.smooth_frames must be at least 1")
	}
	if ch.Source == "" || ch.Target == "" {
		bad("cheek.source and cheek.target are required")
	}
	if r.Recording.Dir == "" {
		bad("recording.dir is empty")
	}
	for _, name := range append(append([]string{}, r.Recording.RawRegions...), r.Recording.DistanceRegions...) {
		if _, ok := face.FindRegion(r.Regions, name); !ok {
			bad("recording: unknown region %q", name)
		}
	}
	return errors.Join(errs...)
}

// CalibrationOptions converts the file layout into calibrator options.
func (r *Root) CalibrationOptions() calibration.Options {
	return calibration.Options{
		Enabled:        r.Calibration.Enabled,
		SquintChannels: r.Calibration.SquintChannels,
		SquintOffset:   r.Calibration.SquintOffset,
		BlinkChannels:  r.Calibration.BlinkChannels,
		BlinkTrigger:   r.Calibration.BlinkTrigger,
		BlinkBoost:     r.Calibration.BlinkBoost,
		Cheek: calibration.CheekOptions{
			Source: r.Cheek.Source,
			Target: r.Cheek.Target,
			On:     r.Cheek.ThresholdOn,
			Off:    r.Cheek.ThresholdOff,
			Max:    r.Cheek.Max,
			OutMax: r.Cheek.OutMax,
			Window: r.Cheek.SmoothFrames,
		},
	}
}

// RegionsNamed resolves names against the configured region table, in the
// order given. Unknown names are skipped; Validate reports them.
func (r *Root) RegionsNamed(names []string) []face.Region {
	out := make([]face.Region, 0, len(names))
	for _, n := range names {
		if reg, ok := face.FindRegion(r.Regions, n); ok {
			out = append(out, reg)
		}
	}
	return out
}

func DurMillis(n int) time.Duration { return time.Duration(n) * time.Millisecond }
