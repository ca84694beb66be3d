// Package instance guards a calendar database against concurrent interactive
// sessions with a lockfile naming the owning process.
package instance

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/go-ps"

	"github.com/julianstephens/calgrid/internal/constants"
	"github.com/julianstephens/calgrid/internal/logger"
)

var (
	findProcessFunc = ps.FindProcess
	getpidFunc      = os.Getpid
	nowFunc         = time.Now
)

// ErrLocked is returned when another live process owns the database.
var ErrLocked = errors.New("calendar is already open in another calgrid process")

// Owner is the content of a lockfile.
type Owner struct {
	PID        int
	Executable string
	Since      time.Time
}

func (o Owner) String() string {
	return fmt.Sprintf("%s (pid %d) since %s", o.Executable, o.PID, o.Since.Local().Format(time.DateTime))
}

// Lock is a held lockfile.
type Lock struct {
	path  string
	owner Owner
}

// LockPath returns the lockfile path guarding target.
func LockPath(target string) string {
	return target + constants.LockfileSuffix
}

func executableName() string {
	exe, err := os.Executable()
	if err != nil {
		return constants.AppName
	}
	return filepath.Base(exe)
}

// Acquire takes the lock for target. A lockfile left behind by a dead process or
// by an unrelated program that reused its pid is replaced.
func Acquire(target string) (*Lock, error) {
	path := LockPath(target)

	if owner, err := Inspect(target); err == nil {
		if alive(owner) {
			return nil, fmt.Errorf("%w: %s", ErrLocked, owner)
		}
		logger.Warn("Removing stale lockfile", "path", path, "pid", owner.PID)
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to remove stale lockfile: %w", err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		logger.Warn("Replacing unreadable lockfile", "path", path, "error", err)
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to remove malformed lockfile: %w", err)
		}
	}

	owner := Owner{PID: getpidFunc(), Executable: executableName(), Since: nowFunc().UTC()}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		if os.IsExist(err) {
			return nil, ErrLocked
		}
		return nil, fmt.Errorf("failed to create lockfile: %w", err)
	}
	defer f.Close()

	line := fmt.Sprintf("%d|%s|%s\n", owner.PID, owner.Executable, owner.Since.Format(time.RFC3339))
	if _, err := f.WriteString(line); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("failed to write lockfile: %w", err)
	}

	logger.Debug("Acquired instance lock", "path", path, "pid", owner.PID)
	return &Lock{path: path, owner: owner}, nil
}

// Release removes the lockfile if it still names this lock's owner.
func (l *Lock) Release() error {
	if l == nil {
		return nil
	}
	current, err := parseLockfile(l.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if current.PID != l.owner.PID {
		return nil
	}
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove lockfile: %w", err)
	}
	return nil
}

// Owner returns who holds the lock.
func (l *Lock) Owner() Owner {
	return l.owner
}

// Inspect reads the lockfile for target. It returns an error wrapping
// os.ErrNotExist when the database is not locked.
func Inspect(target string) (Owner, error) {
	return parseLockfile(LockPath(target))
}

// Held reports whether a live process currently owns target.
func Held(target string) (Owner, bool) {
	owner, err := Inspect(target)
	if err != nil {
		return Owner{}, false
	}
	return owner, alive(owner)
}

func parseLockfile(path string) (Owner, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Owner{}, err
	}

	parts := strings.Split(strings.TrimSpace(string(content)), "|")
	if len(parts) != 3 {
		return Owner{}, errors.New("lockfile is malformed")
	}
	pid, err := strconv.Atoi(parts[0])
	if err != nil || pid < 1 {
		return Owner{}, errors.New("invalid process ID in lockfile")
	}
	if strings.TrimSpace(parts[1]) == "" {
		return Owner{}, errors.New("executable in lockfile is empty")
	}
	since, err := time.Parse(time.RFC3339, parts[2])
	if err != nil {
		return Owner{}, fmt.Errorf("invalid timestamp in lockfile: %w", err)
	}
	return Owner{PID: pid, Executable: parts[1], Since: since}, nil
}

func alive(owner Owner) bool {
	process, err := findProcessFunc(owner.PID)
	if err != nil || process == nil {
		return false
	}
	// Linux reports the command name truncated to 15 bytes.
	exe := process.Executable()
	return exe == owner.Executable || (len(exe) >= 15 && strings.HasPrefix(owner.Executable, exe))
}
