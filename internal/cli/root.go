package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/julianstephens/calgrid/internal/backup"
	"github.com/julianstephens/calgrid/internal/config"
	"github.com/julianstephens/calgrid/internal/constants"
	"github.com/julianstephens/calgrid/internal/keyring"
	"github.com/julianstephens/calgrid/internal/logger"
	"github.com/julianstephens/calgrid/internal/storage"
	"github.com/julianstephens/calgrid/internal/storage/postgres"
	"github.com/julianstephens/calgrid/internal/storage/sqlite"
)

// Source names where the database location came from.
type Source string

const (
	SourceFlag    Source = "flag"
	SourceEnv     Source = "environment"
	SourceKeyring Source = "keyring"
	SourceConfig  Source = "config"
)

// keyringLookup is swapped in tests.
var keyringLookup = keyring.GetConnectionString

type Context struct {
	Store      storage.Provider
	Config     *config.Config
	ConfigPath string
	// Database is the resolved SQLite path or PostgreSQL connection string.
	Database string
	Source   Source

	Out io.Writer
	In  io.Reader
}

// Migrator is implemented by stores that can report migration progress.
type Migrator interface {
	Migrate(logFn func(string)) (int, error)
	PendingMigrations() (int, error)
}

// Printf writes to the command output.
func (c *Context) Printf(format string, args ...any) {
	fmt.Fprintf(c.Writer(), format, args...)
}

// Print writes to the command output.
func (c *Context) Print(args ...any) {
	fmt.Fprint(c.Writer(), args...)
}

// Println writes a line to the command output.
func (c *Context) Println(args ...any) {
	fmt.Fprintln(c.Writer(), args...)
}

// Writer returns the command output, stdout unless Out is set.
func (c *Context) Writer() io.Writer {
	if c.Out == nil {
		return os.Stdout
	}
	return c.Out
}

// Confirm asks a yes/no question on the command input. Anything but y or yes is no.
func (c *Context) Confirm(prompt string) (bool, error) {
	c.Printf("%s [y/N]: ", prompt)
	in := c.In
	if in == nil {
		in = os.Stdin
	}
	response, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes", nil
}

// IsPostgres reports whether the context points at a PostgreSQL database.
func (c *Context) IsPostgres() bool {
	return IsPostgresConnString(c.Database)
}

// Backups returns the backup manager for a SQLite database, or nil for PostgreSQL.
func (c *Context) Backups() *backup.Manager {
	if c.IsPostgres() || c.Store == nil {
		return nil
	}
	return backup.NewManager(c.Store.GetConfigPath())
}

// PerformAutomaticBackup creates an automatic backup and silently handles errors
func (c *Context) PerformAutomaticBackup() {
	mgr := c.Backups()
	if mgr == nil {
		return
	}
	if _, err := mgr.Create(); err != nil {
		// Log warning but don't interrupt user workflow
		logger.Warn("Automatic backup failed", "error", err)
	}
}

// IsPostgresConnString accepts PostgreSQL URLs and key=value DSNs.
func IsPostgresConnString(s string) bool {
	return config.IsPostgresURL(s) || strings.Contains(s, "host=") || strings.Contains(s, "dbname=")
}

// ResolveDatabase picks the database in precedence order: the --db flag, the
// CALGRID_DB_CONNECTION environment variable, a connection string stored in the OS
// keyring, then the config file.
func ResolveDatabase(flag string, cfg *config.Config) (string, Source, error) {
	if flag != "" {
		return flag, SourceFlag, nil
	}
	if env := strings.TrimSpace(os.Getenv(constants.EnvDBConnection)); env != "" {
		return env, SourceEnv, nil
	}
	if connStr, err := keyringLookup(); err == nil && connStr != "" {
		return connStr, SourceKeyring, nil
	} else if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		logger.Debug("Keyring lookup failed", "error", err)
	}
	if cfg == nil || cfg.Database == "" {
		return "", "", errors.New("no database configured")
	}
	return cfg.Database, SourceConfig, nil
}

// OpenStore returns the storage provider for database. Connection strings from the
// flag or config file must not embed a password; the environment and the keyring
// are where credentials belong.
func OpenStore(database string, source Source) (storage.Provider, error) {
	if !IsPostgresConnString(database) {
		path, err := config.ExpandPath(database)
		if err != nil {
			return nil, err
		}
		return sqlite.NewStore(path), nil
	}

	if _, err := postgres.ValidateConnString(database); err != nil {
		if !errors.Is(err, postgres.ErrEmbeddedCredentials) {
			return nil, err
		}
		if source == SourceFlag || source == SourceConfig {
			return nil, fmt.Errorf("%w; store it with '%s keyring set' or export %s instead",
				err, constants.AppName, constants.EnvDBConnection)
		}
	}
	return postgres.New(database), nil
}

// MaskPassword hides the password in a PostgreSQL connection string for display.
func MaskPassword(connStr string) string {
	if config.IsPostgresURL(connStr) {
		if idx := strings.Index(connStr, "://"); idx != -1 {
			remaining := connStr[idx+3:]
			if atIdx := strings.LastIndex(remaining, "@"); atIdx != -1 {
				userInfo := remaining[:atIdx]
				if colonIdx := strings.Index(userInfo, ":"); colonIdx != -1 {
					return connStr[:idx+3] + userInfo[:colonIdx] + ":****" + connStr[idx+3+atIdx:]
				}
			}
		}
		return connStr
	}

	if strings.Contains(connStr, "password=") {
		parts := strings.Fields(connStr)
		for i, part := range parts {
			if strings.HasPrefix(part, "password=") {
				parts[i] = "password=****"
			}
		}
		return strings.Join(parts, " ")
	}
	return connStr
}
