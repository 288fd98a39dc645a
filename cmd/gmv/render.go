package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/seisview/gmv/internal/config"
	"github.com/seisview/gmv/internal/pipeline"
)

func renderCmd(loadConfig func() (*config.Config, error)) *cobra.Command {
	var (
		dataDir    string
		stationXML string
		stationCSV string
		startStr   string
		endStr     string
		timeStep   float64
		outPath    string
		fps        int
		maxFrames  int
		maxMemMB   int
		dryRun     bool
	)

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render one movie from a waveform directory",
		Long: `Render scans a directory for SAC, miniSEED, and SEG-Y files and produces
one MP4 for the requested time window. Without --start/--end the window
spans all ingested data. --dry-run prints the frame and memory estimate
and exits without rendering.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			opts := pipeline.Options{
				DataRoot:   firstNonEmpty(dataDir, cfg.Data.Root),
				StationXML: firstNonEmpty(stationXML, cfg.Data.StationXML),
				StationCSV: firstNonEmpty(stationCSV, cfg.Data.StationCSV),
				TimeStep:   cfg.Render.TimeStep,
				OutPath:    outPath,
				MaxFrames:  cfg.Render.MaxFrames,
				MaxMemMB:   cfg.Render.MaxMemMB,
				DryRun:     dryRun,
			}
			if opts.DataRoot == "" {
				return fmt.Errorf("no data directory: set --data-dir or data.root in the config")
			}
			if cmd.Flags().Changed("time-step") {
				opts.TimeStep = timeStep
			}
			if cmd.Flags().Changed("fps") {
				cfg.Render.FPS = fps
			}
			if cmd.Flags().Changed("max-frames") {
				opts.MaxFrames = maxFrames
			}
			if cmd.Flags().Changed("max-mem-mb") {
				opts.MaxMemMB = maxMemMB
			}
			if startStr != "" {
				if opts.Start, err = parseTimeFlag("start", startStr); err != nil {
					return err
				}
			}
			if endStr != "" {
				if opts.End, err = parseTimeFlag("end", endStr); err != nil {
					return err
				}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return pipeline.New(cfg).Run(ctx, opts)
		},
	}

	cmd.Flags().StringVar(&dataDir, "data-dir", "", "Directory searched recursively for waveform files")
	cmd.Flags().StringVar(&stationXML, "station-xml", "", "StationXML inventory file")
	cmd.Flags().StringVar(&stationCSV, "station-csv", "", "Flat station coordinate table")
	cmd.Flags().StringVar(&startStr, "start", "", "Window start, ISO 8601 (default: earliest sample)")
	cmd.Flags().StringVar(&endStr, "end", "", "Window end, ISO 8601 (default: latest sample)")
	cmd.Flags().Float64Var(&timeStep, "time-step", 1.0, "Seconds of data per output frame")
	cmd.Flags().StringVar(&outPath, "out", "gmv.mp4", "Output MP4 path")
	cmd.Flags().IntVar(&fps, "fps", 10, "Output movie frame rate")
	cmd.Flags().IntVar(&maxFrames, "max-frames", 0, "Frame-count ceiling (overrides config)")
	cmd.Flags().IntVar(&maxMemMB, "max-mem-mb", 0, "Estimated-memory ceiling in MiB (overrides config)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the resource estimate and exit")

	return cmd
}

// parseTimeFlag accepts RFC 3339 or the date-only and space-separated forms
// people actually type.
func parseTimeFlag(name, value string) (time.Time, error) {
	layouts := []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid --%s %q: want ISO 8601, e.g. 2016-09-03T12:02:34Z", name, value)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
