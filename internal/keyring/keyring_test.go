package keyring

import (
	"errors"
	"testing"

	gokeyring "github.com/zalando/go-keyring"
)

func TestConnectionStringLifecycle(t *testing.T) {
	gokeyring.MockInit()
	connStr := "postgres://calgrid@localhost:5432/calgrid?sslmode=disable"

	if _, err := GetConnectionString(); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetConnectionString() on empty keyring error = %v", err)
	}
	if err := SetConnectionString(connStr); err != nil {
		t.Fatalf("SetConnectionString() error = %v", err)
	}
	got, err := GetConnectionString()
	if err != nil || got != connStr {
		t.Fatalf("GetConnectionString() = %q, %v", got, err)
	}
	if !IsAvailable() {
		t.Error("mock keyring should be available")
	}
	if err := DeleteConnectionString(); err != nil {
		t.Fatalf("DeleteConnectionString() error = %v", err)
	}
	if err := DeleteConnectionString(); !errors.Is(err, ErrNotFound) {
		t.Errorf("second DeleteConnectionString() error = %v", err)
	}
}

func TestSetRejectsEmpty(t *testing.T) {
	gokeyring.MockInit()
	for _, s := range []string{"", "   "} {
		if err := SetConnectionString(s); err == nil {
			t.Errorf("SetConnectionString(%q) should fail", s)
		}
	}
}

func TestEntriesAreIndependent(t *testing.T) {
	gokeyring.MockInit()
	other := Entry{Service: "calgrid-test", User: "other"}

	if err := other.Set("host=elsewhere"); err != nil {
		t.Fatal(err)
	}
	if _, err := Default.Get(); !errors.Is(err, ErrNotFound) {
		t.Errorf("Default.Get() error = %v", err)
	}
}

func TestProbe(t *testing.T) {
	gokeyring.MockInit()
	if got := Default.Probe(); got != (Status{Available: true}) {
		t.Errorf("Probe() empty = %+v", got)
	}
	_ = Default.Set("host=localhost")
	if got := Default.Probe(); got != (Status{Available: true, Stored: true}) {
		t.Errorf("Probe() stored = %+v", got)
	}

	gokeyring.MockInitWithError(errors.New("dbus unavailable"))
	if got := Default.Probe(); got.Available {
		t.Errorf("Probe() with failing keyring = %+v", got)
	}
	if _, err := Default.Get(); !errors.Is(err, ErrUnavailable) {
		t.Errorf("Get() error = %v, want ErrUnavailable", err)
	}
}
