package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"webcal/internal/layout"
	"webcal/internal/render"
	"webcal/internal/shell"
)

func (a *app) viewCmd() *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:       "view [month|week|day]",
		Short:     "Render the calendar grid",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"month", "week", "day"},
		RunE: func(cmd *cobra.Command, args []string) error {
			sh, err := a.viewShell(args, date)
			if err != nil {
				return err
			}
			// A failed load still renders: the grid is empty and the banner
			// explains why.
			loadErr := sh.Reload(cmd.Context())
			if err := drawShell(cmd.OutOrStdout(), sh); err != nil {
				return err
			}
			return loadErr
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "Reference date YYYY-MM-DD (default today)")
	return cmd
}

func (a *app) watchCmd() *cobra.Command {
	var (
		date    string
		refresh time.Duration
	)
	cmd := &cobra.Command{
		Use:   "watch [month|week|day]",
		Short: "Render the calendar grid and reload it periodically",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sh, err := a.viewShell(args, date)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			_ = sh.Reload(cmd.Context())
			if err := drawShell(out, sh); err != nil {
				return err
			}

			w, err := shell.NewWatcher(sh, shell.EverySpec(refresh), a.cfg.Timeout)
			if err != nil {
				return err
			}
			w.OnReload = func(error) {
				// Clear the screen before each redraw.
				fmt.Fprint(out, "\033[H\033[2J")
				_ = drawShell(out, sh)
			}
			w.Start()
			<-cmd.Context().Done()
			<-w.Stop().Done()
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "Reference date YYYY-MM-DD (default today)")
	cmd.Flags().DurationVar(&refresh, "refresh", 30*time.Second, "Reload interval")
	return cmd
}

func (a *app) viewShell(args []string, date string) (*shell.Shell, error) {
	sh := a.shell()
	if len(args) == 1 {
		mode, err := layout.ParseMode(args[0])
		if err != nil {
			return nil, err
		}
		sh.SetView(mode)
	}
	ref, err := parseDay(date, a.now())
	if err != nil {
		return nil, err
	}
	sh.SelectDate(ref)
	return sh, nil
}

func drawShell(w io.Writer, sh *shell.Shell) error {
	g, err := sh.Grid()
	if err != nil {
		return err
	}
	var b strings.Builder
	b.WriteString(render.Error(sh.Error()))
	b.WriteString(render.Grid(g))
	b.WriteString("\n")

	cals := sh.Calendars()
	toggles := make([]render.CalendarToggle, 0, len(cals))
	for _, c := range cals {
		toggles = append(toggles, render.CalendarToggle{CalendarEntry: c.CalendarEntry, Active: c.Active})
	}
	b.WriteString(render.Calendars(toggles))
	_, err = io.WriteString(w, b.String())
	return err
}
