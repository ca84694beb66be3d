package system

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/calgrid/internal/cli"
	"github.com/julianstephens/calgrid/internal/events"
	"github.com/julianstephens/calgrid/internal/instance"
	"github.com/julianstephens/calgrid/internal/logger"
	"github.com/julianstephens/calgrid/internal/metrics"
	"github.com/julianstephens/calgrid/internal/tui"
)

type TuiCmd struct{}

func (c *TuiCmd) Run(ctx *cli.Context) error {
	if !ctx.IsPostgres() {
		lock, err := instance.Acquire(ctx.Store.GetConfigPath())
		if err != nil {
			if errors.Is(err, instance.ErrLocked) {
				return fmt.Errorf("%w; close it first", err)
			}
			return err
		}
		defer func() {
			if err := lock.Release(); err != nil {
				logger.Warn("Failed to release instance lock", "error", err)
			}
		}()
	}

	// Perform automatic backup on TUI startup (after successful load)
	ctx.PerformAutomaticBackup()

	if mgr := ctx.Backups(); mgr != nil && ctx.Config != nil && ctx.Config.BackupSchedule != "" {
		sched, err := mgr.Schedule(ctx.Config.BackupSchedule)
		if err != nil {
			logger.Warn("Scheduled backups disabled", "error", err)
		}
		defer sched.Stop()
	}

	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	recorder := metrics.New()
	if ctx.Config != nil && ctx.Config.MetricsAddr != "" {
		if _, err := recorder.Serve(runCtx, ctx.Config.MetricsAddr); err != nil {
			return fmt.Errorf("failed to start metrics server: %w", err)
		}
	}

	cal, err := ctx.OpenCalendar(events.WithRecorder(recorder))
	if err != nil {
		return err
	}

	model := tui.NewModel(runCtx, cal.Session)
	if _, err := tea.NewProgram(model, tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("tui exited: %w", err)
	}
	return nil
}
