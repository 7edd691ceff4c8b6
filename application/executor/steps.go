package executor

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"ui_harness/application/wait"
	"ui_harness/domain/entities"
	"ui_harness/domain/interfaces"
)

func (r *run) navigate(ctx context.Context, step entities.Step) error {
	r.transition(entities.StateNavigating)

	target, err := r.absoluteURL(step.URL)
	if err != nil {
		return &entities.StepError{Kind: entities.FailureNavigationTimeout, Err: err}
	}
	timeout := orDefault(step.Timeout, r.e.opts.NavigationTimeout)
	if err := r.page.Navigate(ctx, target, timeout); err != nil {
		return &entities.StepError{
			Kind: entities.FailureNavigationTimeout,
			Err:  fmt.Errorf("%s did not load within %s: %w", target, timeout, err),
		}
	}
	return nil
}

func (r *run) locate(ctx context.Context, step entities.Step) error {
	r.transition(entities.StateActing)

	q, err := r.bind(*step.Query)
	if err != nil {
		return err
	}
	timeout := orDefault(step.Timeout, r.e.opts.LocateTimeout)
	h, err := r.e.resolver.Resolve(ctx, r.page, q, timeout, step.PollInterval)
	if err != nil {
		return err
	}
	if step.As != "" {
		r.handles[step.As] = h
	}
	return nil
}

func (r *run) act(ctx context.Context, step entities.Step) error {
	r.transition(entities.StateActing)

	if step.Action == entities.ActionSetViewport {
		if err := r.page.SetViewport(ctx, step.Viewport.Width, step.Viewport.Height); err != nil {
			return fmt.Errorf("set viewport: %w", err)
		}
		return nil
	}

	el, err := r.interactable(ctx, step)
	if err != nil {
		return err
	}

	switch step.Action {
	case entities.ActionClick:
		err = el.Click(ctx)
	case entities.ActionFill:
		err = el.Fill(ctx, step.Value)
	default:
		return fmt.Errorf("unknown action %q", step.Action)
	}
	if err != nil {
		return &entities.StepError{Kind: entities.FailureElementNotInteractable, Err: fmt.Errorf("%s %s: %w", step.Action, step.Target, err)}
	}
	return nil
}

// interactable waits for the action target to be attached, visible and enabled.
// Inline queries are resolved first so a missing element reports ElementNotFound.
func (r *run) interactable(ctx context.Context, step entities.Step) (interfaces.Element, error) {
	q, err := r.bind(*step.Target)
	if err != nil {
		return nil, err
	}
	if step.Target.Ref == "" {
		h, err := r.e.resolver.Resolve(ctx, r.page, q, orDefault(step.Timeout, r.e.opts.LocateTimeout), step.PollInterval)
		if err != nil {
			return nil, err
		}
		q = h.Query()
	}

	var (
		el    interfaces.Element
		state = "detached"
	)
	ready := func(ctx context.Context) (bool, error) {
		cur, err := r.e.resolver.Current(ctx, r.page, q)
		if err != nil {
			state = "detached"
			return false, err
		}
		visible, err := cur.IsVisible(ctx)
		if err != nil || !visible {
			state = "hidden"
			return false, err
		}
		enabled, err := cur.IsEnabled(ctx)
		if err != nil || !enabled {
			state = "disabled"
			return false, err
		}
		el = cur
		return true, nil
	}

	timeout := orDefault(step.Timeout, r.e.opts.ActionTimeout)
	if err := r.e.waiter.Await(ctx, "interactable "+q.String(), ready, timeout, step.PollInterval); err != nil {
		if errors.Is(err, entities.ErrAmbiguousMatch) {
			return nil, err
		}
		return nil, &entities.StepError{
			Kind: entities.FailureElementNotInteractable,
			Err:  fmt.Errorf("%s still %s after %s", step.Target, state, timeout),
		}
	}
	return el, nil
}

func (r *run) await(ctx context.Context, step entities.Step) error {
	r.transition(entities.StateWaiting)

	cond := *step.Condition
	target, err := r.bind(cond.Target)
	if err != nil {
		return err
	}
	cond.Target = target

	timeout := orDefault(step.Timeout, r.e.opts.WaitTimeout)
	return r.e.waiter.Await(ctx, step.Condition.String(), r.predicate(cond), timeout, step.PollInterval)
}

// predicate evaluates cond against the live page. Element lookups happen on
// every poll.
func (r *run) predicate(cond entities.Condition) wait.Predicate {
	current := func(ctx context.Context) (interfaces.Element, error) {
		return r.e.resolver.Current(ctx, r.page, cond.Target)
	}

	switch cond.Type {
	case entities.ConditionVisible:
		return func(ctx context.Context) (bool, error) {
			el, err := current(ctx)
			if err != nil {
				return false, err
			}
			return el.IsVisible(ctx)
		}
	case entities.ConditionAttributeEqual:
		return func(ctx context.Context) (bool, error) {
			el, err := current(ctx)
			if err != nil {
				return false, err
			}
			value, ok, err := el.Attribute(ctx, cond.Attribute)
			return ok && value == cond.Value, err
		}
	case entities.ConditionTextMatches:
		pattern := regexp.MustCompile(cond.Pattern)
		return func(ctx context.Context) (bool, error) {
			el, err := current(ctx)
			if err != nil {
				return false, err
			}
			text, err := el.Text(ctx)
			return err == nil && pattern.MatchString(text), err
		}
	case entities.ConditionCountAtLeast:
		return func(ctx context.Context) (bool, error) {
			n, err := r.e.resolver.Count(ctx, r.page, cond.Target)
			return n >= cond.Count, err
		}
	}
	return func(context.Context) (bool, error) {
		return false, fmt.Errorf("unknown condition type %q", cond.Type)
	}
}

// capture records a checkpoint; it never fails the scenario.
func (r *run) capture(ctx context.Context, step entities.Step) {
	var el interfaces.Element
	if step.Target != nil {
		q, err := r.bind(*step.Target)
		if err == nil {
			el, err = r.e.resolver.Current(ctx, r.page, q)
		}
		if err != nil {
			r.entry.WithError(err).Warnf("Checkpoint %s skipped", step.Path)
			return
		}
	}

	saved, err := r.e.capturer.Capture(ctx, r.page, step.Path, el, !step.ViewportOnly)
	if err != nil {
		r.entry.WithError(err).Warnf("Checkpoint %s skipped", step.Path)
		return
	}
	r.artifacts = append(r.artifacts, saved)
	r.e.reporter.ArtifactSaved(saved)
}
