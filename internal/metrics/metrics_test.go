package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"

	"github.com/julianstephens/calgrid/internal/events"
	"github.com/julianstephens/calgrid/internal/models"
)

func histogramCount(t *testing.T, o prometheus.Observer) uint64 {
	t.Helper()
	metric, ok := o.(prometheus.Metric)
	if !ok {
		t.Fatalf("observer %T does not implement prometheus.Metric", o)
	}
	var m dto.Metric
	if err := metric.Write(&m); err != nil {
		t.Fatalf("histogram Write() error: %v", err)
	}
	return m.GetHistogram().GetSampleCount()
}

func TestRecorderCountsMutations(t *testing.T) {
	r := New()

	r.MutationStarted(events.KindAdd)
	if got := testutil.ToFloat64(r.inFlight.WithLabelValues("add")); got != 1 {
		t.Errorf("in_flight(add) = %v, want 1", got)
	}

	r.MutationSettled(events.KindAdd, events.OutcomeCommitted, 150*time.Millisecond)
	r.MutationStarted(events.KindAdd)
	r.MutationSettled(events.KindAdd, events.OutcomeRejected, time.Millisecond)

	if got := testutil.ToFloat64(r.inFlight.WithLabelValues("add")); got != 0 {
		t.Errorf("in_flight(add) = %v, want 0", got)
	}
	if got := testutil.ToFloat64(r.mutations.WithLabelValues("add", "committed")); got != 1 {
		t.Errorf("mutations_total(add, committed) = %v", got)
	}
	if got := testutil.ToFloat64(r.mutations.WithLabelValues("add", "rejected")); got != 1 {
		t.Errorf("mutations_total(add, rejected) = %v", got)
	}
	if got := histogramCount(t, r.duration.WithLabelValues("add")); got != 2 {
		t.Errorf("duration samples = %d, want 2", got)
	}
}

func TestRecorderOptions(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(WithRegistry(reg), WithNamespace("test"), WithBuckets([]float64{0.1, 1}))
	r.MutationStarted(events.KindDelete)
	r.MutationSettled(events.KindDelete, events.OutcomeFaulted, time.Second)

	if r.Registry() != reg {
		t.Error("Registry() should return the supplied registry")
	}
	n, err := testutil.GatherAndCount(reg, "test_mutations_total")
	if err != nil || n != 1 {
		t.Errorf("GatherAndCount() = %d, %v", n, err)
	}
}

func TestRecorderWithEngine(t *testing.T) {
	r := New()
	store, _ := events.NewStore(nil)
	engine := events.NewEngine(store, events.WithRecorder(r))

	start := time.Date(2024, 3, 4, 9, 0, 0, 0, time.Local)
	ok := engine.PerformAdd(context.Background(), models.Event{Title: "a", Start: start, End: start.Add(time.Hour)},
		func(_ context.Context, draft models.Event) (models.OperationResult, error) {
			draft.ID = "server-1"
			return models.OperationResult{Success: true, Data: &draft}, nil
		})
	if !ok {
		t.Fatal("PerformAdd failed")
	}
	engine.PerformDelete(context.Background(), "missing", func(context.Context, string) (models.OperationResult, error) {
		return models.OperationResult{Success: true}, nil
	})

	if got := testutil.ToFloat64(r.mutations.WithLabelValues("add", "committed")); got != 1 {
		t.Errorf("committed adds = %v", got)
	}
	if got := testutil.ToFloat64(r.mutations.WithLabelValues("delete", "not_found")); got != 1 {
		t.Errorf("not_found deletes = %v", got)
	}
}

func TestRouter(t *testing.T) {
	r := New()
	r.MutationStarted(events.KindUpdate)
	srv := httptest.NewServer(r.Router())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(body), `calgrid_mutations_in_flight{kind="update"} 1`) {
		t.Errorf("metrics body missing in-flight gauge:\n%s", body)
	}

	resp, err = http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("/healthz status = %d", resp.StatusCode)
	}
}

func TestServeStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	errc, err := New().Serve(ctx, "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	cancel()

	select {
	case err, ok := <-errc:
		if ok && err != nil {
			t.Errorf("Serve() error = %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("server did not stop")
	}
}
