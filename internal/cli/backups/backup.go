package backups

import (
	"context"
	"errors"
	"fmt"

	"github.com/julianstephens/calgrid/internal/backup"
	"github.com/julianstephens/calgrid/internal/cli"
	"github.com/julianstephens/calgrid/internal/constants"
	"github.com/julianstephens/calgrid/internal/instance"
)

var errPostgres = errors.New("backups are only available for SQLite databases; use pg_dump for PostgreSQL")

func manager(ctx *cli.Context) (*backup.Manager, error) {
	mgr := ctx.Backups()
	if mgr == nil {
		return nil, errPostgres
	}
	return mgr, nil
}

type BackupCreateCmd struct{}

func (c *BackupCreateCmd) Run(ctx *cli.Context) error {
	mgr, err := manager(ctx)
	if err != nil {
		return err
	}
	info, err := mgr.Create()
	if err != nil {
		return fmt.Errorf("backup failed: %w", err)
	}

	ctx.Printf("✓ Backup created: %s\n", info.Name())
	return nil
}

type BackupListCmd struct{}

func (c *BackupListCmd) Run(ctx *cli.Context) error {
	mgr, err := manager(ctx)
	if err != nil {
		return err
	}
	backups, err := mgr.List()
	if err != nil {
		return fmt.Errorf("failed to list backups: %w", err)
	}

	if len(backups) == 0 {
		ctx.Println("No backups found.")
		ctx.Printf("Backups are stored in: %s\n", mgr.Dir())
		return nil
	}

	ctx.Printf("Available backups (%d total, keeping most recent %d):\n\n", len(backups), constants.MaxBackups)
	for _, b := range backups {
		sizeKB := float64(b.Size) / 1024.0
		ctx.Printf("  %s  %s  (%.1f KB)\n", b.Timestamp.Format("2006-01-02 15:04:05"), b.Name(), sizeKB)
	}
	ctx.Printf("\nBackup directory: %s\n", mgr.Dir())
	return nil
}

type BackupRestoreCmd struct {
	BackupFile string `arg:"" help:"Path or filename of the backup to restore, or 'latest'."`
	Yes        bool   `short:"y" help:"Skip the confirmation prompt."`
}

func (c *BackupRestoreCmd) Run(ctx *cli.Context) error {
	mgr, err := manager(ctx)
	if err != nil {
		return err
	}
	backupPath, err := mgr.Resolve(c.BackupFile)
	if err != nil {
		return err
	}

	dbPath := ctx.Store.GetConfigPath()
	if owner, held := instance.Held(dbPath); held {
		return fmt.Errorf("calendar is open in %s; close it before restoring", owner)
	}

	if !c.Yes {
		ctx.Println("⚠️  WARNING: This will replace your current database with the backup.")
		ctx.Println("A backup of your current database will be created before restoring.")
		ctx.Printf("\nRestore from: %s\n", backupPath)
		ok, err := ctx.Confirm("Continue?")
		if err != nil {
			return err
		}
		if !ok {
			ctx.Println("Restore cancelled.")
			return nil
		}
	}

	// Close the current store connection before restoring
	if err := ctx.Store.Close(); err != nil {
		return fmt.Errorf("failed to close database connection: %w", err)
	}

	previous, err := mgr.Restore(backupPath)
	if err != nil {
		return fmt.Errorf("restore failed: %w", err)
	}

	ctx.Println("✓ Database restored successfully!")
	if previous.Path != "" {
		ctx.Printf("  Previous database saved as %s\n", previous.Name())
	}
	return nil
}

// newOffsite is swapped in tests.
var newOffsite = func(cfg backup.OffsiteConfig) (uploader, error) {
	return backup.NewOffsite(cfg)
}

type uploader interface {
	Upload(ctx context.Context, info backup.Info) (string, error)
}

type BackupPushCmd struct {
	BackupFile string `arg:"" optional:"" help:"Path or filename of the backup to push, or 'latest'." default:"latest"`
}

func (c *BackupPushCmd) Run(ctx *cli.Context) error {
	mgr, err := manager(ctx)
	if err != nil {
		return err
	}
	if ctx.Config == nil || ctx.Config.Offsite.Bucket == "" {
		return errors.New("no offsite bucket configured; set offsite.bucket in the config file")
	}

	backupPath, err := mgr.Resolve(c.BackupFile)
	if err != nil {
		return err
	}
	info, err := mgr.Info(backupPath)
	if err != nil {
		return err
	}

	off := ctx.Config.Offsite
	up, err := newOffsite(backup.OffsiteConfig{
		Bucket:   off.Bucket,
		Prefix:   off.Prefix,
		Region:   off.Region,
		Endpoint: off.Endpoint,
	})
	if err != nil {
		return err
	}
	key, err := up.Upload(context.Background(), info)
	if err != nil {
		return fmt.Errorf("push failed: %w", err)
	}

	ctx.Printf("✓ Pushed %s to s3://%s/%s\n", info.Name(), off.Bucket, key)
	return nil
}

// BackupCmd groups the backup subcommands.
type BackupCmd struct {
	Create  BackupCreateCmd  `cmd:"" help:"Create a manual backup." default:"1"`
	List    BackupListCmd    `cmd:"" help:"List available backups."`
	Restore BackupRestoreCmd `cmd:"" help:"Restore from a backup."`
	Push    BackupPushCmd    `cmd:"" help:"Copy a backup to the offsite S3 bucket."`
}
