package backup

import (
	"fmt"

	"github.com/robfig/cron/v3"

	"github.com/julianstephens/calgrid/internal/logger"
)

// Scheduler takes backups on a cron schedule while a session is open.
type Scheduler struct {
	cron *cron.Cron
}

// Schedule runs m.Create on spec, which accepts standard five-field cron
// expressions and descriptors such as "@every 6h" or "@daily".
func (m *Manager) Schedule(spec string) (*Scheduler, error) {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		if _, err := m.Create(); err != nil {
			logger.Warn("Scheduled backup failed", "error", err)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("invalid backup schedule %q: %w", spec, err)
	}
	c.Start()
	logger.Debug("Backup schedule started", "spec", spec)
	return &Scheduler{cron: c}, nil
}

// ValidateSchedule reports whether spec is a schedule Schedule accepts.
func ValidateSchedule(spec string) error {
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("invalid backup schedule %q: %w", spec, err)
	}
	return nil
}

// Stop halts the schedule and waits for a running backup to finish.
func (s *Scheduler) Stop() {
	if s == nil {
		return
	}
	<-s.cron.Stop().Done()
}
