package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/maastricht-university/facecap/clients"
	cfg "github.com/maastricht-university/facecap/config"
	"github.com/maastricht-university/facecap/control"
	"github.com/maastricht-university/facecap/emitter"
	"github.com/maastricht-university/facecap/orchestrator"
	"github.com/maastricht-university/facecap/session"
)

func newRootCmd() *cobra.Command {
	v := cfg.NewViper()
	root := &cobra.Command{
		Use:           "facecap",
		Short:         "Calibrate face tracking blendshapes, stream them over VMC and record sessions",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.String("config", "", "config file (default config/$CONFIG_ENV/config.yaml)")
	pf.String("vmc-host", "", "VMC receiver host")
	pf.Int("vmc-port", 0, "VMC receiver port")
	pf.String("out", "", "recording output directory")
	pf.String("log-level", "", "log level (debug, info, warn, error)")
	pf.Bool("no-console", false, "do not read commands from stdin")
	_ = v.BindPFlag("config", pf.Lookup("config"))
	_ = v.BindPFlag("vmc.host", pf.Lookup("vmc-host"))
	_ = v.BindPFlag("vmc.port", pf.Lookup("vmc-port"))
	_ = v.BindPFlag("recording.dir", pf.Lookup("out"))
	_ = v.BindPFlag("log_level", pf.Lookup("log-level"))
	_ = v.BindPFlag("no_console", pf.Lookup("no-console"))

	root.AddCommand(newRunCmd(v), newReplayCmd(v))
	return root
}

func newRunCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Consume the live detector stream",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPipeline(cmd.Context(), v, func(ctx context.Context, conf *cfg.Root) (orchestrator.Source, func(), error) {
				d := clients.NewDetector(conf.Ingest.DetectorURL, conf.Ingest.StreamPath, conf.Ingest.StatusPath)
				st, err := d.Status(ctx)
				if err != nil {
					logrus.WithError(err).Warn("detector status unavailable, connecting anyway")
				} else {
					logrus.WithFields(logrus.Fields{
						"model":       st.Model,
						"mode":        st.RunningMode,
						"blendshapes": st.Blendshapes,
					}).Info("detector ready")
				}
				return d, func() {}, nil
			})
		},
	}
	cmd.Flags().String("detector", "", "detector sidecar base URL")
	_ = v.BindPFlag("ingest.detector_url", cmd.Flags().Lookup("detector"))
	return cmd
}

func newReplayCmd(v *viper.Viper) *cobra.Command {
	var realtime bool
	cmd := &cobra.Command{
		Use:   "replay <frames.ndjson>",
		Short: "Feed recorded detector output through the pipeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd.Context(), v, func(_ context.Context, _ *cfg.Root) (orchestrator.Source, func(), error) {
				f, err := os.Open(args[0])
				if err != nil {
					return nil, nil, err
				}
				return clients.NewReplay(f, realtime), func() { f.Close() }, nil
			})
		},
	}
	cmd.Flags().BoolVar(&realtime, "realtime", true, "pace frames by their timestamps")
	return cmd
}

type sourceFunc func(ctx context.Context, conf *cfg.Root) (orchestrator.Source, func(), error)

func runPipeline(parent context.Context, v *viper.Viper, open sourceFunc) error {
	if parent == nil {
		parent = context.Background()
	}
	conf, err := cfg.Load(v)
	if err != nil {
		return err
	}
	if err := setupLogging(conf.Pipeline.LogLvl); err != nil {
		return err
	}
	logStartup(conf)

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	vmc := emitter.NewVMC(conf.VMC.Addr(), conf.VMC.QueueSize)
	if err := vmc.Connect(ctx); err != nil {
		return err
	}
	defer vmc.Close()

	rec := session.NewRecorder(session.NewFileExporter(conf.Recording.Dir, conf.Recording.DistanceRegions))
	p := orchestrator.NewPipeline(conf, vmc, rec)

	src, closeSrc, err := open(ctx, conf)
	if err != nil {
		return err
	}
	defer closeSrc()

	if !v.GetBool("no_console") {
		fmt.Fprintln(os.Stderr, control.Help)
		go control.NewHandler(os.Stdin, consoleCallbacks(p, cancel)).Run(ctx)
	}

	runErr := p.Run(ctx, src)
	if runErr != nil {
		logrus.WithError(runErr).Error("frame source stopped")
	}

	// the only teardown that must happen before exit
	_, flushErr := p.Shutdown()
	logrus.Info("pipeline finished")
	return errors.Join(runErr, flushErr)
}

func consoleCallbacks(p *orchestrator.Pipeline, quit context.CancelFunc) control.Callbacks {
	log := logrus.WithField("component", "console")
	return control.Callbacks{
		OnToggleRecord: func() error {
			st, _, err := p.ToggleRecording()
			if st == session.Recording {
				log.Info("recording, press s for a snapshot and r again to stop")
			}
			return err
		},
		OnSnapshot: func() error {
			_, _, err := p.TakeSnapshot()
			if errors.Is(err, session.ErrNotRecording) || errors.Is(err, session.ErrNoSignals) {
				return nil // the recorder already warned
			}
			return err
		},
		OnToggleCheek: func() error {
			log.WithField("enabled", p.ToggleTrace()).Info("cheek trace")
			return nil
		},
		OnStatus: func() error {
			s := p.Status()
			fields := logrus.Fields{
				"recorder":  s.Recorder,
				"snapshots": s.Snapshots,
				"frames":    s.Frames,
				"skipped":   s.Skipped,
				"drops":     s.Drops,
			}
			if s.Emitter != nil {
				fields["sent"] = s.Emitter.Sent
				fields["send_dropped"] = s.Emitter.Dropped
				fields["send_errors"] = s.Emitter.Errors
			}
			st := p.Latest()
			fields["cheek_puff"] = st.CheekProxy
			fields["cheek_active"] = st.CheekActive
			log.WithFields(fields).Info("status")
			return nil
		},
		OnQuit: func() error {
			log.Info("quitting")
			quit()
			return nil
		},
	}
}

func setupLogging(level string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	logrus.SetLevel(lvl)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return nil
}

func logStartup(conf *cfg.Root) {
	source := conf.Source
	if source == "" {
		source = "built-in defaults"
	}
	logrus.WithFields(logrus.Fields{
		"config":      source,
		"vmc":         conf.VMC.Addr(),
		"corrections": conf.Calibration.Enabled,
		"cheek_on":    conf.Cheek.ThresholdOn,
		"cheek_off":   conf.Cheek.ThresholdOff,
		"smooth":      conf.Cheek.SmoothFrames,
		"recordings":  conf.Recording.Dir,
	}).Infof("%s %s starting", conf.Pipeline.Name, conf.Pipeline.Version)
}
