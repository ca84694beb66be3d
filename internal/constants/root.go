package constants

import "time"

const (
	AppName            = "calgrid"
	DefaultKeyringUser = "database-connection"
	DefaultConfigFile  = "config.yaml"
	DefaultDBFile      = "calgrid.db"
	Version            = "v0.1.0"

	// DateFormat is the standard date format used throughout the application (YYYY-MM-DD)
	DateFormat = "2006-01-02"

	// TimeFormat is the standard time format used throughout the application (HH:MM)
	TimeFormat = "15:04"

	// MonthFormat is used by the grid command (YYYY-MM)
	MonthFormat = "2006-01"

	// Environment variables
	EnvDBConnection = "CALGRID_DB_CONNECTION"
	EnvTestPostgres = "CALGRID_TEST_POSTGRES"

	// Backup constants
	MaxBackups       = 14
	BackupDirName    = "backups"
	BackupFilePrefix = "calgrid-"
	BackupFileSuffix = ".db"

	// Instance lock constants
	LockfileSuffix = ".lock"

	// Grid constants
	GridRows  = 5
	GridCols  = 7
	GridCells = GridRows * GridCols

	// Remote defaults, mirroring the latency of the hosted mock API
	DefaultRemoteTimeout  = 10 * time.Second
	DefaultAddLatency     = 1000 * time.Millisecond
	DefaultUpdateLatency  = 800 * time.Millisecond
	DefaultDeleteLatency  = 600 * time.Millisecond
	DefaultFailureRate    = 0.1
	DefaultMetricsAddress = ""
	DefaultBackupSchedule = "@every 6h"
)
