package events

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/julianstephens/calgrid/internal/models"
)

// Remote operation signatures. A non-nil error is a fault; Success == false is a
// reported rejection. Both roll back.
type (
	AddFunc    func(ctx context.Context, draft models.Event) (models.OperationResult, error)
	UpdateFunc func(ctx context.Context, id string, patch models.EventPatch) (models.OperationResult, error)
	DeleteFunc func(ctx context.Context, id string) (models.OperationResult, error)
)

// Outcome is how a mutation settled.
type Outcome string

const (
	OutcomeCommitted Outcome = "committed"
	OutcomeRejected  Outcome = "rejected"
	OutcomeFaulted   Outcome = "faulted"
	OutcomeTimedOut  Outcome = "timed_out"
	OutcomeNotFound  Outcome = "not_found"
	OutcomeDuplicate Outcome = "duplicate"
)

// ErrorHandler receives every failure along with the operation kind and its input
// (the candidate event, the update patch, or the deleted id).
type ErrorHandler func(err error, kind Kind, data any)

// Recorder observes mutation lifecycles. Every MutationStarted is followed by
// exactly one MutationSettled.
type Recorder interface {
	MutationStarted(kind Kind)
	MutationSettled(kind Kind, outcome Outcome, elapsed time.Duration)
}

// Option configures an Engine.
type Option func(*options)

type options struct {
	timeout     time.Duration
	onError     ErrorHandler
	recorder    Recorder
	tracer      trace.Tracer
	onChange    []func()
	placeholder func() string
	optimistic  bool
}

func defaultOptions() options {
	return options{
		tracer:      otel.Tracer("github.com/julianstephens/calgrid/internal/events"),
		placeholder: defaultPlaceholder,
		optimistic:  true,
	}
}

func defaultPlaceholder() string {
	return fmt.Sprintf("temp-%d", time.Now().UnixNano())
}

// WithTimeout bounds every remote call. A call that runs longer resolves as a fault
// and its late result is discarded. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// WithErrorHandler registers a callback for failed mutations.
func WithErrorHandler(fn ErrorHandler) Option {
	return func(o *options) {
		o.onError = fn
	}
}

// WithRecorder attaches a metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(o *options) {
		o.recorder = r
	}
}

// WithTracer overrides the global OpenTelemetry tracer.
func WithTracer(t trace.Tracer) Option {
	return func(o *options) {
		if t != nil {
			o.tracer = t
		}
	}
}

// WithChangeNotifier registers fn to run after every store transition the engine makes.
func WithChangeNotifier(fn func()) Option {
	return func(o *options) {
		if fn != nil {
			o.onChange = append(o.onChange, fn)
		}
	}
}

// WithPlaceholderFunc overrides how placeholder ids for pending adds are generated.
func WithPlaceholderFunc(fn func() string) Option {
	return func(o *options) {
		if fn != nil {
			o.placeholder = fn
		}
	}
}

// WithOptimistic toggles the speculative local apply. When disabled, a mutation
// changes the store only after the remote succeeds, and the store is never rolled
// back. Enabled by default.
func WithOptimistic(enabled bool) Option {
	return func(o *options) {
		o.optimistic = enabled
	}
}
