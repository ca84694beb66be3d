package backup

import (
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

func setupTestDB(t *testing.T) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "calgrid.db")

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE events (id TEXT PRIMARY KEY, title TEXT NOT NULL);
		INSERT INTO events (id, title) VALUES ('1', 'one'), ('2', 'two');`)
	if err != nil {
		t.Fatalf("failed to seed test database: %v", err)
	}
	return dbPath
}

func countEvents(t *testing.T, path string) int {
	t.Helper()
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM events").Scan(&n); err != nil {
		t.Fatalf("failed to query %s: %v", path, err)
	}
	return n
}

// clock returns a manager time source that advances by step on every call.
func clock(start time.Time, step time.Duration) func() time.Time {
	now := start
	return func() time.Time {
		t := now
		now = now.Add(step)
		return t
	}
}

func TestCreate(t *testing.T) {
	dbPath := setupTestDB(t)
	mgr := NewManager(dbPath)
	mgr.now = func() time.Time { return time.Date(2024, 3, 4, 9, 30, 0, 0, time.Local) }

	info, err := mgr.Create()
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if info.Name() != "calgrid-20240304-0930.db" {
		t.Errorf("Name() = %q", info.Name())
	}
	if filepath.Dir(info.Path) != filepath.Join(filepath.Dir(dbPath), "backups") {
		t.Errorf("backup dir = %q", filepath.Dir(info.Path))
	}
	if info.Size == 0 {
		t.Error("backup should not be empty")
	}
	if n := countEvents(t, info.Path); n != 2 {
		t.Errorf("backup has %d events, want 2", n)
	}
}

func TestCreateMissingDatabase(t *testing.T) {
	mgr := NewManager(filepath.Join(t.TempDir(), "missing.db"))
	if _, err := mgr.Create(); !errors.Is(err, ErrNoDatabase) {
		t.Errorf("Create() error = %v, want ErrNoDatabase", err)
	}
}

func TestCreateNameCollisions(t *testing.T) {
	mgr := NewManager(setupTestDB(t))
	fixed := time.Date(2024, 3, 4, 9, 30, 15, 0, time.Local)
	mgr.now = func() time.Time { return fixed }

	want := []string{
		"calgrid-20240304-0930.db",
		"calgrid-20240304-093015.db",
		"calgrid-20240304-093015-1.db",
		"calgrid-20240304-093015-2.db",
	}
	for _, name := range want {
		info, err := mgr.Create()
		if err != nil {
			t.Fatal(err)
		}
		if info.Name() != name {
			t.Errorf("Name() = %q, want %q", info.Name(), name)
		}
	}

	backups, err := mgr.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(backups) != len(want) {
		t.Errorf("List() returned %d backups, want %d", len(backups), len(want))
	}
}

func TestListOrderAndFiltering(t *testing.T) {
	mgr := NewManager(setupTestDB(t))
	mgr.now = clock(time.Date(2024, 3, 4, 9, 0, 0, 0, time.Local), time.Hour)

	for range 3 {
		if _, err := mgr.Create(); err != nil {
			t.Fatal(err)
		}
	}
	for _, junk := range []string{"notes.txt", "calgrid-garbage.db", "other-20240304-0900.db"} {
		if err := os.WriteFile(filepath.Join(mgr.Dir(), junk), []byte("x"), 0600); err != nil {
			t.Fatal(err)
		}
	}

	backups, err := mgr.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(backups) != 3 {
		t.Fatalf("List() = %d entries, want 3", len(backups))
	}
	for i := 1; i < len(backups); i++ {
		if !backups[i-1].Timestamp.After(backups[i].Timestamp) {
			t.Errorf("backups not sorted newest first: %v then %v", backups[i-1].Timestamp, backups[i].Timestamp)
		}
	}
	if backups[0].Timestamp.Hour() != 11 {
		t.Errorf("newest backup hour = %d, want 11", backups[0].Timestamp.Hour())
	}
}

func TestListWithoutDirectory(t *testing.T) {
	backups, err := NewManager(filepath.Join(t.TempDir(), "calgrid.db")).List()
	if err != nil || len(backups) != 0 {
		t.Errorf("List() = %v, %v", backups, err)
	}
}

func TestRotation(t *testing.T) {
	mgr := NewManager(setupTestDB(t))
	mgr.keep = 3
	mgr.now = clock(time.Date(2024, 3, 1, 0, 0, 0, 0, time.Local), 24*time.Hour)

	for range 5 {
		if _, err := mgr.Create(); err != nil {
			t.Fatal(err)
		}
	}

	backups, _ := mgr.List()
	if len(backups) != 3 {
		t.Fatalf("kept %d backups, want 3", len(backups))
	}
	if got := backups[len(backups)-1].Timestamp.Day(); got != 3 {
		t.Errorf("oldest kept backup day = %d, want 3", got)
	}
}

func TestParseName(t *testing.T) {
	tests := []struct {
		name string
		want string
		ok   bool
	}{
		{"calgrid-20240304-0930.db", "2024-03-04 09:30:00", true},
		{"calgrid-20240304-093015.db", "2024-03-04 09:30:15", true},
		{"calgrid-20240304-093015-12.db", "2024-03-04 09:30:15", true},
		{"calgrid-20240304-093015-x.db", "", false},
		{"calgrid-20240304.db", "", false},
		{"other-20240304-0930.db", "", false},
		{"calgrid-20240304-0930.sqlite", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts, ok := parseName(tt.name)
			if ok != tt.ok {
				t.Fatalf("parseName() ok = %v, want %v", ok, tt.ok)
			}
			if ok && ts.Format(time.DateTime) != tt.want {
				t.Errorf("parseName() = %s, want %s", ts.Format(time.DateTime), tt.want)
			}
		})
	}
}

func TestRestore(t *testing.T) {
	dbPath := setupTestDB(t)
	mgr := NewManager(dbPath)
	mgr.now = clock(time.Date(2024, 3, 4, 9, 0, 0, 0, time.Local), time.Minute)

	saved, err := mgr.Create()
	if err != nil {
		t.Fatal(err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec("INSERT INTO events (id, title) VALUES ('3', 'three')"); err != nil {
		t.Fatal(err)
	}
	db.Close()

	previous, err := mgr.Restore(saved.Path)
	if err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	if n := countEvents(t, dbPath); n != 2 {
		t.Errorf("restored database has %d events, want 2", n)
	}
	if n := countEvents(t, previous.Path); n != 3 {
		t.Errorf("pre-restore backup has %d events, want 3", n)
	}
	if _, err := os.Stat(dbPath + ".restore.tmp"); !os.IsNotExist(err) {
		t.Error("temporary restore file left behind")
	}
}

func TestRestoreRejectsInvalidFiles(t *testing.T) {
	dbPath := setupTestDB(t)
	mgr := NewManager(dbPath)
	dir := t.TempDir()

	garbage := filepath.Join(dir, "garbage.db")
	if err := os.WriteFile(garbage, []byte("this is not sqlite"), 0600); err != nil {
		t.Fatal(err)
	}

	foreign := filepath.Join(dir, "foreign.db")
	db, err := sql.Open("sqlite", foreign)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec("CREATE TABLE other (id INTEGER)"); err != nil {
		t.Fatal(err)
	}
	db.Close()

	for _, path := range []string{filepath.Join(dir, "missing.db"), garbage, foreign} {
		t.Run(filepath.Base(path), func(t *testing.T) {
			if _, err := mgr.Restore(path); err == nil {
				t.Error("Restore() should fail")
			}
			if n := countEvents(t, dbPath); n != 2 {
				t.Errorf("database changed after failed restore: %d events", n)
			}
		})
	}
}

func TestResolve(t *testing.T) {
	mgr := NewManager(setupTestDB(t))
	if _, err := mgr.Resolve("latest"); err == nil {
		t.Error("Resolve(latest) with no backups should fail")
	}

	mgr.now = clock(time.Date(2024, 3, 4, 9, 0, 0, 0, time.Local), time.Hour)
	first, _ := mgr.Create()
	second, _ := mgr.Create()

	tests := []struct {
		arg  string
		want string
	}{
		{"latest", second.Path},
		{first.Name(), first.Path},
		{first.Path, first.Path},
	}
	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			got, err := mgr.Resolve(tt.arg)
			if err != nil || got != tt.want {
				t.Errorf("Resolve(%q) = %q, %v; want %q", tt.arg, got, err, tt.want)
			}
		})
	}

	if _, err := mgr.Resolve("calgrid-19990101-0000.db"); err == nil {
		t.Error("Resolve(unknown) should fail")
	}
}

func TestSchedule(t *testing.T) {
	mgr := NewManager(setupTestDB(t))

	if _, err := mgr.Schedule("not a schedule"); err == nil {
		t.Error("Schedule() should reject a bad spec")
	}

	s, err := mgr.Schedule("@every 1h")
	if err != nil {
		t.Fatalf("Schedule() error = %v", err)
	}
	s.Stop()

	var nilScheduler *Scheduler
	nilScheduler.Stop()
}

func TestValidateSchedule(t *testing.T) {
	for _, spec := range []string{"@every 6h", "@daily", "0 3 * * *"} {
		if err := ValidateSchedule(spec); err != nil {
			t.Errorf("ValidateSchedule(%q) = %v", spec, err)
		}
	}
	for _, spec := range []string{"", "sometimes", "61 * * * *"} {
		if err := ValidateSchedule(spec); err == nil {
			t.Errorf("ValidateSchedule(%q) should fail", spec)
		}
	}
}
