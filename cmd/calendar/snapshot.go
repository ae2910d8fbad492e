package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"webcal/internal/capture"
	"webcal/internal/layout"
)

func (a *app) snapshotCmd() *cobra.Command {
	var (
		opts capture.Options
		view string
	)
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Save a PNG of the server-rendered calendar view (needs Chromium)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			mode, err := layout.ParseMode(view)
			if err != nil {
				return err
			}
			if opts.Date != "" {
				if _, err := parseDay(opts.Date, a.now()); err != nil {
					return err
				}
			}
			opts.View = string(mode)
			opts.BaseURL = a.serverRoot()
			opts.Colors = a.cfg.Colors
			if err := capture.Snapshot(cmd.Context(), opts); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", opts.OutputPath)
			return nil
		},
	}
	fs := cmd.Flags()
	fs.StringVarP(&opts.OutputPath, "out", "o", "calendar.png", "Output PNG path")
	fs.StringVar(&view, "view", "month", "View: month, week or day")
	fs.StringVar(&opts.Date, "date", "", "Reference date YYYY-MM-DD (default today)")
	fs.IntVar(&opts.Width, "width", capture.DefaultWidth, "Viewport width")
	fs.IntVar(&opts.Height, "height", capture.DefaultHeight, "Viewport height")
	fs.DurationVar(&opts.Timeout, "capture-timeout", 0, "Capture timeout (default 30s)")
	return cmd
}
