package system

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/julianstephens/calgrid/internal/cli"
	"github.com/julianstephens/calgrid/internal/config"
)

type InitCmd struct {
	Force  bool   `help:"Force reset by deleting existing database before initialization."`
	Source string `help:"Source database path or connection string to copy events from."`
}

func (c *InitCmd) Run(ctx *cli.Context) error {
	if c.Force && !ctx.IsPostgres() {
		dbPath := ctx.Store.GetConfigPath()
		if c.Source != "" && samePath(c.Source, dbPath) {
			return fmt.Errorf("cannot use --force when source and destination are the same: %s", dbPath)
		}
		if _, err := os.Stat(dbPath); err == nil {
			if err := ctx.Store.Close(); err != nil {
				return fmt.Errorf("failed to close existing database: %w", err)
			}
			if err := os.Remove(dbPath); err != nil {
				return fmt.Errorf("failed to delete existing database: %w", err)
			}
			ctx.Printf("Deleted existing database at: %s\n", dbPath)
		} else if !os.IsNotExist(err) {
			return fmt.Errorf("failed to access existing database: %w", err)
		}
	}

	if l, ok := ctx.Store.(interface{ SetMigrationLogger(func(string)) }); ok {
		l.SetMigrationLogger(func(msg string) { ctx.Println(msg) })
	}
	if err := ctx.Store.Init(); err != nil {
		return err
	}
	ctx.Printf("Initialized calgrid storage at: %s\n", ctx.Store.GetConfigPath())

	if ctx.ConfigPath != "" {
		if _, err := os.Stat(ctx.ConfigPath); os.IsNotExist(err) && ctx.Config != nil {
			if err := config.Save(ctx.ConfigPath, ctx.Config); err != nil {
				return fmt.Errorf("failed to write config: %w", err)
			}
			ctx.Printf("Wrote default config to: %s\n", ctx.ConfigPath)
		}
	}

	if c.Source != "" {
		ctx.Printf("Copying events from: %s\n", cli.MaskPassword(c.Source))
		n, err := c.copyEvents(ctx)
		if err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		ctx.Printf("Copied %d event(s).\n", n)
	}
	return nil
}

func (c *InitCmd) copyEvents(ctx *cli.Context) (int, error) {
	source, err := cli.OpenStore(c.Source, cli.SourceFlag)
	if err != nil {
		return 0, err
	}
	if err := source.Load(); err != nil {
		return 0, fmt.Errorf("failed to load source database: %w", err)
	}
	defer source.Close()

	events, err := source.GetAllEvents()
	if err != nil {
		return 0, fmt.Errorf("failed to read events from source: %w", err)
	}
	if err := ctx.Store.ReplaceAllEvents(events); err != nil {
		return 0, fmt.Errorf("failed to write events: %w", err)
	}
	return len(events), nil
}

func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return a == b
	}
	return absA == absB
}
