package shell

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	appLog "webcal/internal/log"
)

// Watcher reloads a Shell on a cron schedule.
type Watcher struct {
	cron    *cron.Cron
	shell   *Shell
	timeout time.Duration
	// OnReload, if set, runs after every scheduled reload.
	OnReload func(err error)
}

// NewWatcher schedules reloads of sh. spec is a standard 5-field cron
// expression or a descriptor such as "@every 30s".
func NewWatcher(sh *Shell, spec string, timeout time.Duration) (*Watcher, error) {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	w := &Watcher{cron: cron.New(), shell: sh, timeout: timeout}
	if _, err := w.cron.AddFunc(spec, w.tick); err != nil {
		return nil, fmt.Errorf("invalid refresh schedule %q: %w", spec, err)
	}
	return w, nil
}

// EverySpec turns an interval into a cron descriptor.
func EverySpec(d time.Duration) string {
	return "@every " + d.String()
}

func (w *Watcher) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()
	err := w.shell.Reload(ctx)
	if err != nil {
		appLog.Warn("scheduled reload failed", "error", err.Error())
	}
	if w.OnReload != nil {
		w.OnReload(err)
	}
}

// Start runs the schedule in the background.
func (w *Watcher) Start() {
	w.cron.Start()
	appLog.Info("refresh watcher started", "entries", len(w.cron.Entries()))
}

// Stop halts the schedule and returns a context that is done once a running
// reload has finished.
func (w *Watcher) Stop() context.Context {
	return w.cron.Stop()
}
