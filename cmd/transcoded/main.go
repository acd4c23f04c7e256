package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/mediaforge/transcoded/internal/config"
	"github.com/mediaforge/transcoded/internal/pipeline"
	"github.com/mediaforge/transcoded/internal/version"
)

var rootCmd = &cobra.Command{
	Use:     "transcoded",
	Short:   "Run one transcode job from download to publish",
	Version: version.Detailed(),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		// config errors are usage errors, pipeline errors are not
		cmd.SilenceUsage = true

		slog.Info("starting", "version", version.Detailed())
		return pipeline.New(cfg).Run(cmd.Context())
	},
}

func main() {
	handler := tint.NewHandler(os.Stdout, &tint.Options{
		Level:      slog.LevelDebug,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
		NoColor:    !isatty.IsTerminal(os.Stdout.Fd()),
	})
	slog.SetDefault(slog.New(handler))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
