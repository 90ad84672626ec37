// Package submission drives one journal entry from draft to analyzed entry.
//
// A run validates the draft, optionally waits on a reward ad, then creates the
// entry and requests its analysis, strictly in that order. Nothing is retried;
// a retry is a fresh Submit by the user. An entry that was created but not
// analyzed is a valid end state and is never deleted.
package submission

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/fyrsmithlabs/daybook/internal/adgate"
	"github.com/fyrsmithlabs/daybook/internal/apierrors"
	"github.com/fyrsmithlabs/daybook/internal/diary"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// OriginalLang is the language every draft is written in.
const OriginalLang = "en"

// EntryWriter performs the two server writes.
type EntryWriter interface {
	CreateEntry(ctx context.Context, entry diary.NewEntry) (*diary.Entry, error)
	AnalyzeEntry(ctx context.Context, id int64) error
}

// AdGate is the part of *adgate.Gate the orchestrator uses.
type AdGate interface {
	Ready() bool
	Show(ctx context.Context) adgate.ShowOutcome
}

// Observer receives every state change.
type Observer func(Transition)

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithAdGate makes runs wait on an ad when the gate is ready.
func WithAdGate(g AdGate) Option {
	return func(o *Orchestrator) { o.ads = g }
}

// WithChecks replaces the default draft checks.
func WithChecks(checks ...Check) Option {
	return func(o *Orchestrator) { o.checks = checks }
}

// WithLogger sets the logger. nil means no logging.
func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) {
		if l == nil {
			l = zap.NewNop()
		}
		o.logger = l
	}
}

// WithTracerProvider sets where submission spans go.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *Orchestrator) { o.tracer = tp.Tracer("daybook/submission") }
}

// Orchestrator runs submissions one at a time.
type Orchestrator struct {
	entries EntryWriter
	ads     AdGate
	checks  []Check
	logger  *zap.Logger
	tracer  trace.Tracer

	mu        sync.Mutex
	state     State
	observers []Observer
}

// New creates an idle orchestrator.
func New(entries EntryWriter, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		entries: entries,
		checks:  DefaultChecks(),
		logger:  zap.NewNop(),
		tracer:  otel.Tracer("daybook/submission"),
		state:   StateIdle,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// OnTransition registers an observer. Observers run synchronously on the
// submitting goroutine, outside the orchestrator lock.
func (o *Orchestrator) OnTransition(fn Observer) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.observers = append(o.observers, fn)
}

// State returns the current state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Reset returns a finished orchestrator to idle. It fails with
// ErrIllegalTransition while a run is in progress.
func (o *Orchestrator) Reset() error {
	o.mu.Lock()
	if o.state == StateIdle {
		o.mu.Unlock()
		return nil
	}
	tr, err := o.moveLocked(StateIdle, ReasonNone)
	observers := o.observers
	o.mu.Unlock()
	if err != nil {
		return err
	}
	o.publish(observers, tr)
	return nil
}

// Submit runs draft through validation, the optional ad and both writes.
// It is a no-op returning Busy unless the orchestrator is idle or failed; a
// succeeded orchestrator needs Reset before it accepts another draft.
func (o *Orchestrator) Submit(ctx context.Context, draft Draft) Result {
	if res, started := o.begin(); !started {
		return res
	}

	ctx, span := o.tracer.Start(ctx, "submission.submit")
	defer span.End()

	res := o.run(ctx, draft)

	span.SetAttributes(
		attribute.String("submission.state", string(res.State)),
		attribute.String("submission.reason", string(res.Reason)),
	)
	if res.EntryID != 0 {
		span.SetAttributes(attribute.Int64("entry.id", res.EntryID))
	}
	if res.State == StateFailed {
		span.SetStatus(codes.Error, string(res.Reason))
	}

	reason := string(res.Reason)
	if reason == "" {
		reason = "none"
	}
	SubmissionsTotal.WithLabelValues(string(res.State), reason).Inc()
	return res
}

// begin claims the orchestrator for one run: failed -> idle -> validating.
func (o *Orchestrator) begin() (Result, bool) {
	o.mu.Lock()
	if o.state != StateIdle && o.state != StateFailed {
		state := o.state
		o.mu.Unlock()
		o.logger.Debug("submit ignored, run in progress", zap.String("state", string(state)))
		return Result{State: state, Busy: true}, false
	}

	var trs []Transition
	if o.state != StateIdle {
		tr, err := o.moveLocked(StateIdle, ReasonNone)
		if err != nil {
			o.mu.Unlock()
			return Result{State: o.state, Err: err, Message: apierrors.Normalize(err)}, false
		}
		trs = append(trs, tr)
	}
	tr, err := o.moveLocked(StateValidating, ReasonNone)
	if err != nil {
		o.mu.Unlock()
		return Result{State: o.state, Err: err, Message: apierrors.Normalize(err)}, false
	}
	trs = append(trs, tr)
	observers := o.observers
	o.mu.Unlock()

	o.publish(observers, trs...)
	return Result{}, true
}

func (o *Orchestrator) run(ctx context.Context, draft Draft) Result {
	if violations := Validate(draft, o.checks...); len(violations) > 0 {
		o.logger.Debug("draft rejected", zap.Stringers("violations", []Violation(violations)))
		res := o.fail(ReasonInvalid, nil)
		res.Violations = violations
		res.Message = describeViolations(violations)
		return res
	}

	if o.ads != nil && o.ads.Ready() {
		if err := o.transition(StateAwaitingAd, ReasonNone); err != nil {
			return o.illegal(err)
		}
		switch out := o.ads.Show(ctx); out {
		case adgate.Dismissed:
			o.logger.Info("ad dismissed without reward")
			return o.fail(ReasonAdDismissed, nil)
		default:
			o.logger.Debug("ad finished", zap.String("outcome", string(out)))
		}
	}

	if err := o.transition(StateCreatingEntry, ReasonNone); err != nil {
		return o.illegal(err)
	}
	entry, err := o.entries.CreateEntry(ctx, newEntry(draft))
	if err != nil {
		return o.fail(ReasonCreateError, err)
	}

	if err := o.transition(StateRequestingAnalysis, ReasonNone); err != nil {
		return o.illegal(err)
	}
	if err := o.entries.AnalyzeEntry(ctx, entry.ID); err != nil {
		res := o.fail(ReasonAnalysisError, err)
		res.EntryID = entry.ID
		return res
	}

	if err := o.transition(StateSucceeded, ReasonNone); err != nil {
		return o.illegal(err)
	}
	o.logger.Info("entry submitted", zap.Int64("entry_id", entry.ID))
	return Result{State: StateSucceeded, EntryID: entry.ID}
}

func newEntry(d Draft) diary.NewEntry {
	return diary.NewEntry{
		Title:        strings.TrimSpace(d.Title),
		Meta:         diary.Meta{Weather: d.Weather, Mood: d.Mood},
		OriginalLang: OriginalLang,
		OriginalText: d.Body,
		Date:         d.Date,
	}
}

// fail moves to failed and builds the result. err may be nil.
func (o *Orchestrator) fail(reason FailureReason, err error) Result {
	if terr := o.transition(StateFailed, reason); terr != nil {
		return o.illegal(terr)
	}

	res := Result{State: StateFailed, Reason: reason, Err: err}
	switch reason {
	case ReasonInvalid:
		// Message comes from the violations.
	case ReasonAdDismissed:
		res.Message = "Watch the ad to the end to submit your entry."
	default:
		res.Message = apierrors.Normalize(err)
		res.Cancelled = apierrors.IsCancelled(err)
	}

	if res.Cancelled {
		o.logger.Debug("submission cancelled", zap.String("reason", string(reason)))
	} else if err != nil {
		o.logger.Warn("submission failed",
			zap.String("reason", string(reason)),
			zap.String("kind", string(apierrors.Classify(err))),
			zap.String("message", res.Message),
		)
	}
	return res
}

func (o *Orchestrator) illegal(err error) Result {
	o.logger.Error("submission state machine", zap.Error(err))
	return Result{State: o.State(), Err: err, Message: apierrors.Normalize(err)}
}

func (o *Orchestrator) transition(to State, reason FailureReason) error {
	o.mu.Lock()
	tr, err := o.moveLocked(to, reason)
	observers := o.observers
	o.mu.Unlock()
	if err != nil {
		return err
	}
	o.publish(observers, tr)
	return nil
}

func (o *Orchestrator) moveLocked(to State, reason FailureReason) (Transition, error) {
	if err := CanTransition(o.state, to); err != nil {
		return Transition{}, err
	}
	tr := Transition{From: o.state, To: to, Reason: reason}
	o.state = to
	return tr, nil
}

func (o *Orchestrator) publish(observers []Observer, trs ...Transition) {
	for _, tr := range trs {
		o.logger.Debug("submission transition",
			zap.String("from", string(tr.From)),
			zap.String("to", string(tr.To)),
			zap.String("reason", string(tr.Reason)),
		)
		for _, fn := range observers {
			fn(tr)
		}
	}
}

func describeViolations(vs ValidationResult) string {
	parts := make([]string, 0, len(vs))
	for _, v := range vs {
		parts = append(parts, violationMessage(v))
	}
	return strings.Join(parts, "\n")
}

func violationMessage(v Violation) string {
	switch {
	case v.Field == FieldTitle && v.Kind == TooShort:
		return fmt.Sprintf("Title must be at least %d characters.", MinTitleRunes)
	case v.Field == FieldBody && v.Kind == TooShort:
		return fmt.Sprintf("Write at least %d characters.", MinBodyRunes)
	case v.Kind == DisallowedScript:
		return fmt.Sprintf("The %s must be written in English.", v.Field)
	default:
		return fmt.Sprintf("Choose a valid %s.", v.Field)
	}
}
