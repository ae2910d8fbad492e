package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"webcal/internal/editor"
	"webcal/internal/model"
	"webcal/internal/render"
)

func (a *app) listCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List every event in insertion order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			events, err := a.client().ListEvents(cmd.Context())
			if err != nil {
				return err
			}
			return printEvents(cmd.OutOrStdout(), events, asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func (a *app) rangeCmd() *cobra.Command {
	var (
		start, end string
		asJSON     bool
	)
	cmd := &cobra.Command{
		Use:   "range",
		Short: "List events overlapping [--start, --end]",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			from, err := model.ParseTimestamp(start)
			if err != nil {
				return fmt.Errorf("invalid --start: %w", err)
			}
			to, err := model.ParseTimestamp(end)
			if err != nil {
				return fmt.Errorf("invalid --end: %w", err)
			}
			events, err := a.client().ListEventsInRange(cmd.Context(), from, to)
			if err != nil {
				return err
			}
			return printEvents(cmd.OutOrStdout(), events, asJSON)
		},
	}
	cmd.Flags().StringVar(&start, "start", "", "Range start (YYYY-MM-DD or ISO-8601)")
	cmd.Flags().StringVar(&end, "end", "", "Range end (YYYY-MM-DD or ISO-8601)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")
	return cmd
}

// formFlags mirrors the editor form. Only flags the user set are applied.
type formFlags struct {
	title, description, start, end, color string
	allDay                                bool
}

func (f *formFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.title, "title", "", "Event title")
	fs.StringVar(&f.description, "description", "", "Event description")
	fs.StringVar(&f.start, "start", "", "Start, "+editor.EditLayout+" local time or ISO-8601")
	fs.StringVar(&f.end, "end", "", "End, "+editor.EditLayout+" local time or ISO-8601")
	fs.StringVar(&f.color, "color", "", "Color: #RRGGBB or blue, green, purple, red, yellow")
	fs.BoolVar(&f.allDay, "all-day", false, "All-day event")
}

func (f *formFlags) apply(cmd *cobra.Command, ed *editor.Editor) error {
	fs := cmd.Flags()
	if fs.Changed("title") {
		ed.SetTitle(f.title)
	}
	if fs.Changed("description") {
		ed.SetDescription(f.description)
	}
	if fs.Changed("start") {
		ed.SetStart(f.start)
	}
	if fs.Changed("end") {
		ed.SetEnd(f.end)
	}
	if fs.Changed("all-day") {
		ed.SetAllDay(f.allDay)
	}
	if fs.Changed("color") {
		c, err := resolveColor(f.color)
		if err != nil {
			return err
		}
		ed.SetColor(c)
	}
	return nil
}

func (a *app) createCmd() *cobra.Command {
	var form formFlags
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an event (start defaults to now, end to one hour later)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sh := a.shell()
			ed := sh.OpenCreate()
			if err := form.apply(cmd, ed); err != nil {
				return err
			}
			if err := sh.Save(cmd.Context()); err != nil {
				return err
			}
			events := sh.Events()
			created := events[len(events)-1]
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", created.ID)
			return printEvents(cmd.OutOrStdout(), []model.Event{created}, false)
		},
	}
	form.register(cmd)
	return cmd
}

func (a *app) updateCmd() *cobra.Command {
	var form formFlags
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update the given fields of an event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sh := a.shell()
			if err := sh.Reload(cmd.Context()); err != nil {
				return err
			}
			ed, err := sh.OpenEdit(args[0])
			if err != nil {
				return err
			}
			if err := form.apply(cmd, ed); err != nil {
				return err
			}
			if err := sh.Save(cmd.Context()); err != nil {
				return err
			}
			for _, e := range sh.Events() {
				if e.ID == args[0] {
					fmt.Fprintf(cmd.OutOrStdout(), "Updated %s\n", e.ID)
					return printEvents(cmd.OutOrStdout(), []model.Event{e}, false)
				}
			}
			return nil
		},
	}
	form.register(cmd)
	return cmd
}

func (a *app) deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sh := a.shell()
			if err := sh.Reload(cmd.Context()); err != nil {
				return err
			}
			if _, err := sh.OpenEdit(args[0]); err != nil {
				return err
			}
			if err := sh.Delete(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	}
}

func printEvents(w io.Writer, events []model.Event, asJSON bool) error {
	if !asJSON {
		_, err := io.WriteString(w, render.Events(events))
		return err
	}
	out := make([]model.WireEvent, 0, len(events))
	for _, e := range events {
		out = append(out, model.ToWire(e))
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// parseDay reads a YYYY-MM-DD flag in local time; empty means now.
func parseDay(s string, now time.Time) (time.Time, error) {
	if s == "" {
		return now, nil
	}
	t, err := time.ParseInLocation("2006-01-02", s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD", s)
	}
	return t, nil
}
