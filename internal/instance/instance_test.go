package instance

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	ps "github.com/mitchellh/go-ps"
)

type mockProcess struct {
	pid        int
	executable string
}

func (m *mockProcess) Pid() int           { return m.pid }
func (m *mockProcess) PPid() int          { return 0 }
func (m *mockProcess) Executable() string { return m.executable }

// withProcesses replaces the process table for the duration of the test.
func withProcesses(t *testing.T, procs ...*mockProcess) {
	t.Helper()
	old := findProcessFunc
	t.Cleanup(func() { findProcessFunc = old })
	findProcessFunc = func(pid int) (ps.Process, error) {
		for _, p := range procs {
			if p.pid == pid {
				return p, nil
			}
		}
		return nil, nil
	}
}

func withPID(t *testing.T, pid int) {
	t.Helper()
	old := getpidFunc
	t.Cleanup(func() { getpidFunc = old })
	getpidFunc = func() int { return pid }
}

func target(t *testing.T) string {
	return filepath.Join(t.TempDir(), "calgrid.db")
}

func TestAcquireAndRelease(t *testing.T) {
	db := target(t)
	withPID(t, 4242)

	lock, err := Acquire(db)
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	owner, err := Inspect(db)
	if err != nil {
		t.Fatal(err)
	}
	if owner.PID != 4242 || owner.Executable != executableName() {
		t.Errorf("Inspect() = %+v", owner)
	}

	if err := lock.Release(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(LockPath(db)); !os.IsNotExist(err) {
		t.Error("lockfile should be removed")
	}
	if err := lock.Release(); err != nil {
		t.Errorf("second Release() error = %v", err)
	}
}

func TestAcquireRejectsLiveOwner(t *testing.T) {
	db := target(t)
	withPID(t, 100)
	if _, err := Acquire(db); err != nil {
		t.Fatal(err)
	}

	withProcesses(t, &mockProcess{pid: 100, executable: executableName()})
	withPID(t, 200)
	if _, err := Acquire(db); !errors.Is(err, ErrLocked) {
		t.Fatalf("Acquire() error = %v, want ErrLocked", err)
	}
	if owner, held := Held(db); !held || owner.PID != 100 {
		t.Errorf("Held() = %+v, %v", owner, held)
	}
}

func TestAcquireReplacesStaleLock(t *testing.T) {
	tests := []struct {
		name  string
		procs []*mockProcess
	}{
		{"dead process", nil},
		{"pid reused by another program", []*mockProcess{{pid: 100, executable: "bash"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := target(t)
			withPID(t, 100)
			if _, err := Acquire(db); err != nil {
				t.Fatal(err)
			}

			withProcesses(t, tt.procs...)
			withPID(t, 300)
			lock, err := Acquire(db)
			if err != nil {
				t.Fatalf("Acquire() over stale lock error = %v", err)
			}
			if lock.Owner().PID != 300 {
				t.Errorf("owner pid = %d", lock.Owner().PID)
			}
		})
	}
}

func TestAcquireReplacesMalformedLock(t *testing.T) {
	db := target(t)
	if err := os.WriteFile(LockPath(db), []byte("garbage"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := Acquire(db); err != nil {
		t.Errorf("Acquire() error = %v", err)
	}
}

func TestReleaseKeepsForeignLock(t *testing.T) {
	db := target(t)
	withPID(t, 100)
	lock, err := Acquire(db)
	if err != nil {
		t.Fatal(err)
	}

	line := "999|calgrid|" + time.Now().UTC().Format(time.RFC3339) + "\n"
	if err := os.WriteFile(LockPath(db), []byte(line), 0600); err != nil {
		t.Fatal(err)
	}
	if err := lock.Release(); err != nil {
		t.Fatal(err)
	}
	if owner, err := Inspect(db); err != nil || owner.PID != 999 {
		t.Errorf("foreign lock was removed: %+v, %v", owner, err)
	}
}

func TestParseLockfile(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr bool
	}{
		{"valid", "12|calgrid|2024-03-04T09:00:00Z", false},
		{"too few fields", "12|calgrid", true},
		{"bad pid", "x|calgrid|2024-03-04T09:00:00Z", true},
		{"zero pid", "0|calgrid|2024-03-04T09:00:00Z", true},
		{"empty executable", "12| |2024-03-04T09:00:00Z", true},
		{"bad time", "12|calgrid|yesterday", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "x.lock")
			if err := os.WriteFile(path, []byte(tt.content), 0600); err != nil {
				t.Fatal(err)
			}
			_, err := parseLockfile(path)
			if (err != nil) != tt.wantErr {
				t.Errorf("parseLockfile() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestAliveMatchesTruncatedNames(t *testing.T) {
	withProcesses(t, &mockProcess{pid: 7, executable: "calgrid-nightly"})
	if !alive(Owner{PID: 7, Executable: "calgrid-nightly-build"}) {
		t.Error("truncated command name should match")
	}
	if alive(Owner{PID: 7, Executable: "calgrid"}) {
		t.Error("different executable should not match")
	}
}
