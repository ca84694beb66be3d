package system

import (
	"errors"
	"fmt"
	"time"

	"github.com/julianstephens/calgrid/internal/backup"
	"github.com/julianstephens/calgrid/internal/cli"
	"github.com/julianstephens/calgrid/internal/constants"
	"github.com/julianstephens/calgrid/internal/instance"
	"github.com/julianstephens/calgrid/internal/keyring"
	"github.com/julianstephens/calgrid/internal/validation"
)

// errSkipped marks a check that does not apply to the current setup.
var errSkipped = errors.New("skipped")

// warning is a check failure that does not fail the run.
type warning struct {
	msg string
}

func (w warning) Error() string { return w.msg }

type check struct {
	name string
	// needsDB checks are skipped when the database is unreachable.
	needsDB bool
	run     func(*cli.Context) error
}

var checks = []check{
	{name: "Configuration", run: checkConfig},
	{name: "Database reachable", run: checkDBReachable},
	{name: "Schema version", needsDB: true, run: checkSchemaVersion},
	{name: "Migrations complete", needsDB: true, run: checkMigrationsComplete},
	{name: "Event data", needsDB: true, run: checkEvents},
	{name: "Backups present", run: checkBackupsPresent},
	{name: "Instance lock", run: checkInstanceLock},
	{name: "OS keyring", run: checkKeyring},
	{name: "Clock/timezone", run: checkClockTimezone},
}

// probeKeyring is swapped in tests.
var probeKeyring = keyring.Default.Probe

type DoctorCmd struct{}

func (cmd *DoctorCmd) Run(ctx *cli.Context) error {
	ctx.Println("Running diagnostics...")
	ctx.Println()

	hasError := false
	dbReachable := false

	for _, c := range checks {
		if c.needsDB && !dbReachable {
			ctx.Printf("⊘ %s: SKIPPED (database not reachable)\n", c.name)
			continue
		}

		err := c.run(ctx)
		var w warning
		switch {
		case err == nil:
			ctx.Printf("✓ %s: OK\n", c.name)
			if c.name == "Database reachable" {
				dbReachable = true
			}
		case errors.Is(err, errSkipped):
			ctx.Printf("⊘ %s: SKIPPED\n", c.name)
		case errors.As(err, &w):
			ctx.Printf("⚠ %s: WARNING\n", c.name)
			ctx.Printf("   %v\n", w.msg)
		default:
			ctx.Printf("❌ %s: FAIL\n", c.name)
			ctx.Printf("   Error: %v\n", err)
			hasError = true
		}
	}

	ctx.Println()
	if hasError {
		ctx.Println("Diagnostics completed with errors.")
		return fmt.Errorf("one or more health checks failed")
	}

	ctx.Println("All diagnostics passed!")
	return nil
}

func checkConfig(ctx *cli.Context) error {
	if ctx.Config == nil {
		return errSkipped
	}
	if err := ctx.Config.Validate(); err != nil {
		return err
	}
	if ctx.Config.BackupSchedule != "" {
		if err := backup.ValidateSchedule(ctx.Config.BackupSchedule); err != nil {
			return err
		}
	}
	return nil
}

func checkDBReachable(ctx *cli.Context) error {
	if err := ctx.Store.Load(); err != nil {
		return fmt.Errorf("failed to load database: %w", err)
	}
	if _, err := ctx.Store.GetAllEvents(); err != nil {
		return fmt.Errorf("failed to query database: %w", err)
	}
	return nil
}

func checkSchemaVersion(ctx *cli.Context) error {
	version, err := ctx.Store.SchemaVersion()
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if version < 1 {
		return fmt.Errorf("schema version %d: database was never migrated", version)
	}
	return nil
}

func checkMigrationsComplete(ctx *cli.Context) error {
	m, ok := ctx.Store.(cli.Migrator)
	if !ok {
		return errSkipped
	}
	pending, err := m.PendingMigrations()
	if err != nil {
		return err
	}
	if pending > 0 {
		return fmt.Errorf("%d pending migration(s); run 'calgrid migrate'", pending)
	}
	return nil
}

// checkEvents fails on malformed rows. Overlapping events are expected and only
// reported as a warning.
func checkEvents(ctx *cli.Context) error {
	events, err := ctx.Store.GetAllEvents()
	if err != nil {
		return err
	}
	result := validation.ValidateEvents(events)

	overlaps := 0
	for _, c := range result.Conflicts {
		if c.Type != validation.ConflictOverlappingEvents {
			return errors.New(c.Description)
		}
		overlaps++
	}
	if overlaps > 0 {
		return warning{fmt.Sprintf("%d group(s) of overlapping events across %d event(s)", overlaps, len(events))}
	}
	return nil
}

func checkBackupsPresent(ctx *cli.Context) error {
	mgr := ctx.Backups()
	if mgr == nil {
		return errSkipped
	}
	backups, err := mgr.List()
	if err != nil {
		return warning{fmt.Sprintf("failed to list backups: %v", err)}
	}
	if len(backups) == 0 {
		return warning{fmt.Sprintf("no backups found in %s", mgr.Dir())}
	}
	if age := time.Since(backups[0].Timestamp); age > 7*24*time.Hour {
		return warning{fmt.Sprintf("latest backup is %d days old", int(age.Hours()/24))}
	}
	return nil
}

func checkInstanceLock(ctx *cli.Context) error {
	if ctx.IsPostgres() {
		return errSkipped
	}
	if owner, held := instance.Held(ctx.Store.GetConfigPath()); held {
		return warning{fmt.Sprintf("calendar is open in %s", owner)}
	}
	return nil
}

func checkKeyring(ctx *cli.Context) error {
	status := probeKeyring()
	if !status.Available {
		return warning{"OS keyring is not available; use " + constants.EnvDBConnection + " for PostgreSQL credentials"}
	}
	return nil
}

func checkClockTimezone(ctx *cli.Context) error {
	now := time.Now()
	if now.Year() < 2020 || now.Year() > 2100 {
		return fmt.Errorf("system time appears incorrect: %s", now.Format(time.RFC3339))
	}
	return nil
}
