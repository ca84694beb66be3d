package main

import (
	"path/filepath"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/julianstephens/calgrid/internal/cli"
	"github.com/julianstephens/calgrid/internal/cli/backups"
	"github.com/julianstephens/calgrid/internal/cli/calendar"
	"github.com/julianstephens/calgrid/internal/cli/system"
	"github.com/julianstephens/calgrid/internal/config"
	"github.com/julianstephens/calgrid/internal/constants"
	"github.com/julianstephens/calgrid/internal/errors"
	"github.com/julianstephens/calgrid/internal/logger"
)

var CLI struct {
	Version kong.VersionFlag
	Config  string `help:"Config file path." type:"path" env:"CALGRID_CONFIG" default:"~/.config/calgrid/config.yaml"`
	DB      string `name:"db" help:"SQLite database path or PostgreSQL connection string. PostgreSQL passwords must NOT be embedded; use the OS keyring, CALGRID_DB_CONNECTION or .pgpass instead."`
	Debug   bool   `help:"Enable debug logging."`

	Init     system.InitCmd       `cmd:"" help:"Initialize calgrid storage."`
	Migrate  system.MigrateCmd    `cmd:"" help:"Run database migrations."`
	Doctor   system.DoctorCmd     `cmd:"" help:"Run health checks and diagnostics."`
	Tui      system.TuiCmd        `cmd:"" help:"Launch the interactive calendar." default:"1"`
	Grid     calendar.GridCmd     `cmd:"" help:"Print the month grid."`
	Day      calendar.DayCmd      `cmd:"" help:"Print a day's events and overlaps."`
	Event    calendar.EventCmd    `cmd:"" help:"Manage events."`
	Import   calendar.ImportCmd   `cmd:"" help:"Import events from an iCalendar file."`
	Export   calendar.ExportCmd   `cmd:"" help:"Export events as iCalendar."`
	Validate calendar.ValidateCmd `cmd:"" help:"Check stored events for conflicts."`
	Backup   backups.BackupCmd    `cmd:"" help:"Manage database backups."`
	Keyring  system.KeyringCmd    `cmd:"" help:"Manage the PostgreSQL connection string in the OS keyring."`
}

// Commands that run without a loaded store.
var storeless = map[string]bool{
	"init":    true,
	"keyring": true,
	"doctor":  true,
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name(constants.AppName),
		kong.Description("Month-grid calendar with optimistic event editing"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{"version": constants.Version},
	)
	command := strings.Fields(ctx.Command())[0]

	cfg, err := config.Load(CLI.Config)
	if err != nil {
		errors.Fatal(err)
	}

	if err := logger.Init(logger.Config{
		Debug:     CLI.Debug || cfg.Debug,
		ConfigDir: filepath.Dir(CLI.Config),
		Quiet:     command == "tui",
	}); err != nil {
		errors.Fatalf("failed to initialize logger: %v", err)
	}

	database, source, err := cli.ResolveDatabase(CLI.DB, cfg)
	if err != nil {
		errors.Fatal(err)
	}
	store, err := cli.OpenStore(database, source)
	if err != nil {
		errors.Fatal(err)
	}
	logger.Debug("Storage selected", "source", source, "backend", store.GetConfigPath())

	appCtx := &cli.Context{
		Store:      store,
		Config:     cfg,
		ConfigPath: CLI.Config,
		Database:   database,
		Source:     source,
	}

	// Load the store before running the command (init handles its own setup)
	if !storeless[command] {
		if err := store.Load(); err != nil {
			errors.Fatal(err)
		}
	}

	err = ctx.Run(appCtx)
	if closeErr := store.Close(); closeErr != nil {
		logger.Warn("Failed to close storage", "error", closeErr)
	}
	errors.Fatal(err)
}
