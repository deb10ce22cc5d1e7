package main

import (
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/betbot/degiro/internal/watch"
	"github.com/betbot/degiro/pkg/logger"
)

func newWatchCmd(a *app) *cobra.Command {
	var interval time.Duration
	cmd := &cobra.Command{
		Use:   "watch <vwd issue id>...",
		Short: "Live quote board in the terminal",
		Args:  cobra.MinimumNArgs(1),
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			if interval <= 0 {
				interval = a.cfg.Watch.Interval.Duration
			}
			c, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			// the board owns the terminal; keep only the file log
			logCfg := a.cfg.LoggerConfig()
			logCfg.Console = io.Discard
			if err := logger.Init(logCfg); err != nil {
				return err
			}
			return watch.Run(cmd.Context(), c, args, interval)
		}),
	}
	cmd.Flags().DurationVarP(&interval, "interval", "i", 0, "poll interval (default from config, 5s)")
	return cmd
}
