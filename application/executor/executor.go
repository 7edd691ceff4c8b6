// Package executor runs scenarios step by step against a fresh browser session.
package executor

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"ui_harness/application/capture"
	"ui_harness/application/locator"
	"ui_harness/application/wait"
	"ui_harness/domain/entities"
	"ui_harness/domain/interfaces"
)

// Options holds the session settings and the default step timeouts
type Options struct {
	Session           entities.SessionOptions
	NavigationTimeout time.Duration
	LocateTimeout     time.Duration
	ActionTimeout     time.Duration
	WaitTimeout       time.Duration
}

// DefaultOptions - returns options for a headless desktop session on localhost:3000
func DefaultOptions() Options {
	return Options{
		Session: entities.SessionOptions{
			BaseURL:  "http://localhost:3000",
			Viewport: entities.DesktopViewport,
			Headless: true,
		},
		NavigationTimeout: 30 * time.Second,
		LocateTimeout:     5 * time.Second,
		ActionTimeout:     5 * time.Second,
		WaitTimeout:       5 * time.Second,
	}
}

// Option customizes an Executor
type Option func(*Executor)

// WithReporter sets the progress reporter
func WithReporter(r interfaces.Reporter) Option {
	return func(e *Executor) { e.reporter = r }
}

// WithHistory stores every result in h
func WithHistory(h interfaces.RunHistory) Option {
	return func(e *Executor) { e.history = h }
}

// WithIDGenerator replaces the run id generator
func WithIDGenerator(f func() string) Option {
	return func(e *Executor) { e.newID = f }
}

// Executor is the step executor. It holds no per-scenario state; every Run
// owns its session for its whole lifetime.
type Executor struct {
	launcher interfaces.Launcher
	waiter   *wait.Engine
	resolver *locator.Resolver
	capturer *capture.Capturer
	reporter interfaces.Reporter
	history  interfaces.RunHistory
	logger   *logrus.Logger
	opts     Options
	newID    func() string
}

// NewExecutor - creates a new executor
func NewExecutor(launcher interfaces.Launcher, capturer *capture.Capturer, logger *logrus.Logger, opts Options, options ...Option) *Executor {
	waiter := wait.NewEngine()
	e := &Executor{
		launcher: launcher,
		waiter:   waiter,
		resolver: locator.NewResolver(waiter, logger),
		capturer: capturer,
		reporter: nopReporter{},
		logger:   logger,
		opts:     opts,
		newID:    uuid.NewString,
	}
	for _, o := range options {
		o(e)
	}
	return e
}

// RunAll runs scenarios one after another, each in its own session.
func (e *Executor) RunAll(ctx context.Context, scenarios []entities.Scenario) []entities.ScenarioResult {
	results := make([]entities.ScenarioResult, 0, len(scenarios))
	for _, sc := range scenarios {
		results = append(results, e.Run(ctx, sc))
	}
	return results
}

// Run executes a scenario and returns its finalized result. The browser
// session is closed before Run returns, whatever the outcome.
func (e *Executor) Run(ctx context.Context, sc entities.Scenario) entities.ScenarioResult {
	r := &run{
		e:       e,
		sc:      sc,
		handles: make(map[string]*locator.Handle),
		state:   entities.StateIdle,
	}
	result := entities.ScenarioResult{
		RunID:     e.newID(),
		Scenario:  sc.Name,
		StartedAt: time.Now(),
	}
	r.entry = e.logger.WithFields(logrus.Fields{"scenario": sc.Name, "run_id": result.RunID})

	e.reporter.ScenarioStarted(sc)
	failure := r.execute(ctx)

	result.FinishedAt = time.Now()
	result.Status = entities.StatusSuccess
	if failure != nil {
		result.Status = entities.StatusFailed
		result.Failure = failure
	}
	result.Log = slices.Clone(r.log)
	result.Artifacts = slices.Clone(r.artifacts)
	result.FinalState = r.state

	if failure != nil {
		r.entry.WithFields(logrus.Fields{
			"kind": failure.Kind,
			"step": failure.StepIndex + 1,
		}).Errorf("Scenario failed: %s", failure.Reason)
	} else {
		r.entry.WithField("duration", result.Duration().Round(time.Millisecond)).Info("Scenario passed")
	}

	e.reporter.ScenarioFinished(result)
	if e.history != nil {
		if err := e.history.Append(result); err != nil {
			r.entry.WithError(err).Warn("Failed to store run history")
		}
	}
	return result
}

// run is the state of one scenario execution
type run struct {
	e         *Executor
	sc        entities.Scenario
	page      interfaces.Page
	handles   map[string]*locator.Handle
	state     entities.ScenarioState
	log       []string
	artifacts []string
	entry     *logrus.Entry
}

func (r *run) execute(ctx context.Context) *entities.Failure {
	if err := r.sc.Validate(); err != nil {
		r.transition(entities.StateFailed)
		return &entities.Failure{Kind: entities.FailureUnexpected, Reason: "invalid scenario: " + err.Error(), StepIndex: -1}
	}

	opts := r.e.opts.Session
	if r.sc.Viewport != nil {
		opts.Viewport = *r.sc.Viewport
	}

	session, err := r.e.launcher.Open(ctx, opts)
	if err != nil {
		r.transition(entities.StateFailed)
		return &entities.Failure{Kind: entities.FailureSession, Reason: err.Error(), StepIndex: -1}
	}
	r.page = session.Page()
	r.transition(entities.StateSessionOpen)

	defer func() {
		if err := session.Close(); err != nil {
			r.entry.WithError(err).Warn("Failed to close browser session")
		}
		if !r.state.Terminal() {
			r.transition(entities.StateClosed)
		}
	}()

	for i, step := range r.sc.Steps {
		desc := step.Describe()
		r.log = append(r.log, desc)
		r.e.reporter.StepStarted(i, step)
		r.entry.WithField("step", i+1).Debug(desc)

		if err := r.runStep(ctx, i, step); err != nil {
			failure := toFailure(i, desc, err)
			r.diagnose(ctx, failure)
			r.transition(entities.StateFailed)
			return failure
		}
	}

	r.transition(entities.StateCaptured)
	return nil
}

// runStep executes one step, turning panics into UnexpectedFault.
func (r *run) runStep(ctx context.Context, index int, step entities.Step) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = &entities.StepError{
				Kind:        entities.FailureUnexpected,
				StepIndex:   index,
				Description: step.Describe(),
				Err:         fmt.Errorf("panic: %v", p),
			}
		}
	}()

	switch step.Kind {
	case entities.StepNavigate:
		return r.navigate(ctx, step)
	case entities.StepLocate:
		return r.locate(ctx, step)
	case entities.StepAct:
		return r.act(ctx, step)
	case entities.StepWait:
		return r.await(ctx, step)
	case entities.StepCapture:
		r.capture(ctx, step)
		return nil
	}
	return fmt.Errorf("unknown step kind %q", step.Kind)
}

// diagnose records the failure checkpoint. Errors are logged and dropped so
// the step failure stays the reported reason.
func (r *run) diagnose(ctx context.Context, failure *entities.Failure) {
	ctx = context.WithoutCancel(ctx)

	if info, err := r.page.Info(ctx); err == nil {
		r.entry.WithFields(logrus.Fields{"url": info.URL, "title": info.Title}).Info("Page at failure")
	}

	path := r.sc.FailureScreenshot
	if path == "" {
		path = r.sc.Name + "_failure.png"
	}
	saved, err := r.e.capturer.Capture(ctx, r.page, path, nil, true)
	if err != nil {
		r.entry.WithError(err).Warn("Diagnostic screenshot not written")
		return
	}
	r.artifacts = append(r.artifacts, saved)
	r.e.reporter.ArtifactSaved(saved)
}

func (r *run) transition(to entities.ScenarioState) {
	if r.state.Terminal() {
		return
	}
	r.entry.WithFields(logrus.Fields{"from": r.state, "to": to}).Debug("State transition")
	r.state = to
}

// bind replaces refs with the pinned query of the stored handle.
func (r *run) bind(q entities.Query) (entities.Query, error) {
	if q.Ref != "" {
		h, ok := r.handles[q.Ref]
		if !ok {
			return q, fmt.Errorf("%w: nothing stored as @%s", entities.ErrElementNotFound, q.Ref)
		}
		return h.Query(), nil
	}
	if q.Within != nil {
		within, err := r.bind(*q.Within)
		if err != nil {
			return q, err
		}
		q.Within = &within
	}
	return q, nil
}

func (r *run) absoluteURL(raw string) (string, error) {
	ref, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if ref.IsAbs() {
		return raw, nil
	}
	base, err := url.Parse(r.e.opts.Session.BaseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base url: %w", err)
	}
	return base.ResolveReference(ref).String(), nil
}

func toFailure(index int, desc string, err error) *entities.Failure {
	reason := err.Error()
	var stepErr *entities.StepError
	if errors.As(err, &stepErr) {
		reason = stepErr.Err.Error()
	}
	return &entities.Failure{
		Kind:            entities.KindOf(err),
		Reason:          reason,
		StepIndex:       index,
		StepDescription: desc,
	}
}

func orDefault(d, fallback time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return fallback
}

type nopReporter struct{}

func (nopReporter) ScenarioStarted(entities.Scenario) {}

func (nopReporter) StepStarted(int, entities.Step) {}

func (nopReporter) ArtifactSaved(string) {}

func (nopReporter) ScenarioFinished(entities.ScenarioResult) {}
