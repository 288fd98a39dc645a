package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/seisview/gmv/internal/batch"
	"github.com/seisview/gmv/internal/config"
	"github.com/seisview/gmv/internal/logger"
	"github.com/seisview/gmv/internal/pipeline"
	"github.com/seisview/gmv/internal/storage"
	"github.com/seisview/gmv/internal/telegram"
	"github.com/seisview/gmv/internal/usgs"
)

func batchCmd(loadConfig func() (*config.Config, error)) *cobra.Command {
	var reportOnly bool

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Render every cataloged quake that has no movie yet",
		Long: `Batch queries the USGS earthquake catalog for the configured region and
magnitude floor, skips quakes already present in the render history, and
renders one movie per remaining quake. Ctrl-C finishes the current quake
and stops before the next one.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			store := storage.New(cfg.Storage.MaxRecords, cfg.Storage.HistoryPath, 0o644, 0o755)
			catalog := usgs.NewClient(cfg.Catalog.BaseURL, cfg.Catalog.Timeout)

			var notifier batch.Notifier
			if cfg.Telegram.Enabled {
				tg, err := telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.ChatID,
					cfg.Telegram.MaxRetries, cfg.Telegram.RetryDelayBase)
				if err != nil {
					return err
				}
				notifier = tg
			} else {
				logger.Debug("telegram notifications disabled")
			}

			runner := batch.New(cfg, pipeline.New(cfg), store, catalog, notifier)
			runner.ReportOnly = reportOnly

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return runner.Run(ctx)
		},
	}

	cmd.Flags().BoolVar(&reportOnly, "report-only", false, "List pending quakes without rendering")

	return cmd
}
