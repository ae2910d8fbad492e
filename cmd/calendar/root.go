package main

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"webcal/internal/client"
	"webcal/internal/layout"
	appLog "webcal/internal/log"
	"webcal/internal/model"
	"webcal/internal/shell"
)

// settings is the resolved client configuration.
type settings struct {
	API       string
	Timeout   time.Duration
	WeekStart time.Weekday
	Colors    []string
}

// app carries configuration shared by every subcommand.
type app struct {
	v   *viper.Viper
	cfg settings
	// now is swapped in tests.
	now func() time.Time
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New(), now: time.Now}

	root := &cobra.Command{
		Use:   "calendar",
		Short: "Month, week and day views of your calendar in the terminal",
		Long: `calendar talks to a calendard server.

Configuration comes from flags, CALENDAR_* environment variables or an
optional config file (--config):
  api         API root (default ` + client.DefaultBaseURL + `)
  timeout     request timeout (default 15s)
  week_start  sunday or monday
  colors      active calendar colors, comma separated`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.String("config", "", "Optional config file (yaml, json or toml)")
	pf.String("api", client.DefaultBaseURL, "API root URL")
	pf.Duration("timeout", 15*time.Second, "HTTP request timeout")
	pf.String("week-start", "sunday", "First day of the week: sunday or monday")
	pf.StringSlice("colors", nil, "Active calendar colors or names (default: every calendar)")
	pf.String("log-level", "warn", "Log level: debug, info, warn, error")

	_ = a.v.BindPFlag("api", pf.Lookup("api"))
	_ = a.v.BindPFlag("timeout", pf.Lookup("timeout"))
	_ = a.v.BindPFlag("week_start", pf.Lookup("week-start"))
	_ = a.v.BindPFlag("colors", pf.Lookup("colors"))
	_ = a.v.BindPFlag("log_level", pf.Lookup("log-level"))

	root.AddCommand(
		a.listCmd(),
		a.rangeCmd(),
		a.createCmd(),
		a.updateCmd(),
		a.deleteCmd(),
		a.viewCmd(),
		a.watchCmd(),
		a.exportCmd(),
		a.importCmd(),
		a.snapshotCmd(),
	)
	return root
}

func (a *app) load(cmd *cobra.Command) error {
	v := a.v
	v.SetEnvPrefix("CALENDAR")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if path, _ := cmd.Flags().GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", path, err)
		}
	}

	appLog.SetLevel(appLog.ParseLevel(v.GetString("log_level")))

	timeout := v.GetDuration("timeout")
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	colors, err := resolveColors(v.GetStringSlice("colors"))
	if err != nil {
		return err
	}
	a.cfg = settings{
		API:       strings.TrimSpace(v.GetString("api")),
		Timeout:   timeout,
		WeekStart: layout.ParseWeekStart(v.GetString("week_start")),
		Colors:    colors,
	}
	appLog.Debug("client settings", "api", a.cfg.API, "timeout", a.cfg.Timeout.String(), "colors", len(colors))
	return nil
}

func (a *app) client() *client.Client {
	return client.New(a.cfg.API, &http.Client{Timeout: a.cfg.Timeout})
}

func (a *app) shell() *shell.Shell {
	return shell.New(a.client(), shell.Options{
		WeekStart:    a.cfg.WeekStart,
		ActiveColors: a.cfg.Colors,
		Now:          a.now,
	})
}

// serverRoot strips the trailing /api from the API root.
func (a *app) serverRoot() string {
	return strings.TrimSuffix(strings.TrimRight(a.cfg.API, "/"), "/api")
}

// resolveColors accepts hex colors or palette labels ("green"), either as
// separate values or comma separated. Empty input means nil (the default set).
func resolveColors(raw []string) ([]string, error) {
	var out []string
	for _, r := range raw {
		for _, part := range strings.Split(r, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			c, err := resolveColor(part)
			if err != nil {
				return nil, err
			}
			out = append(out, c)
		}
	}
	return out, nil
}

func resolveColor(s string) (string, error) {
	if strings.HasPrefix(s, "#") {
		return strings.ToUpper(s), nil
	}
	for _, p := range model.Palette {
		if strings.EqualFold(p.Label, s) {
			return p.Color, nil
		}
	}
	return "", fmt.Errorf("unknown color %q (use a #RRGGBB value or one of blue, green, purple, red, yellow)", s)
}
