// Package main provides the gmv CLI: ground-motion visualization movies
// from seismic waveform archives, either for one explicit time window or
// batched over a USGS earthquake catalog.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/seisview/gmv/internal/config"
	"github.com/seisview/gmv/internal/logger"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		configPath string
		logLevel   string
	)

	cmd := &cobra.Command{
		Use:   "gmv",
		Short: "Ground-motion visualization movies from seismic waveforms",
		Long: `gmv reads SAC, miniSEED, and SEG-Y waveform archives, resolves station
positions from StationXML, flat coordinate tables, or file headers, and
renders an animated station map into an MP4 via ffmpeg.

Examples:
  gmv render --data-dir ./data --out shot.mp4
  gmv render --data-dir ./data --start 2016-09-03T12:02:34Z --end 2016-09-03T12:12:34Z --dry-run
  gmv batch --config config.yaml
`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file (defaults apply without one)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override log level: debug, info, warn, error")

	loadConfig := func() (*config.Config, error) {
		cfg, err := config.Load(configPath)
		if err != nil {
			return nil, err
		}
		if logLevel != "" {
			cfg.Logging.Level = logLevel
		}
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid configuration: %w", err)
		}
		logger.Init(cfg.Logging.Level, cfg.Logging.Format)
		return cfg, nil
	}

	cmd.AddCommand(renderCmd(loadConfig))
	cmd.AddCommand(batchCmd(loadConfig))
	cmd.AddCommand(versionCmd())

	return cmd
}
