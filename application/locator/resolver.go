// Package locator resolves declarative queries into elements on a live page.
//
// Nothing is cached: every resolution and every use of a Handle queries the
// page again, because the DOM is expected to change between steps.
package locator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"ui_harness/application/wait"
	"ui_harness/domain/entities"
	"ui_harness/domain/interfaces"
)

// Resolver turns queries into element handles
type Resolver struct {
	waiter *wait.Engine
	logger *logrus.Logger
}

// NewResolver - creates a resolver polling through waiter
func NewResolver(waiter *wait.Engine, logger *logrus.Logger) *Resolver {
	return &Resolver{waiter: waiter, logger: logger}
}

// Handle is a revalidating reference to a resolved element. It remembers the
// query and the match index, not the element itself.
type Handle struct {
	resolver *Resolver
	root     interfaces.Finder
	query    entities.Query
}

// Query returns the query pinned to the resolved index.
func (h *Handle) Query() entities.Query {
	return h.query
}

// Element re-queries the page and returns the current element.
func (h *Handle) Element(ctx context.Context) (interfaces.Element, error) {
	return h.resolver.Current(ctx, h.root, h.query)
}

// Resolve waits up to timeout for q to match and returns a handle to the match.
// Zero matches at the deadline give ErrElementNotFound. More than one match on a
// unique query without an index gives ErrAmbiguousMatch as soon as it is seen.
func (r *Resolver) Resolve(ctx context.Context, root interfaces.Finder, q entities.Query, timeout, interval time.Duration) (*Handle, error) {
	index := 0
	found := func(ctx context.Context) (bool, error) {
		matches, err := r.lookup(ctx, root, q)
		if err != nil {
			return false, err
		}
		if q.Index != nil {
			index = *q.Index
			return len(matches) > index, nil
		}
		if q.Unique && len(matches) > 1 {
			return false, fmt.Errorf("%w: %d elements match %s", entities.ErrAmbiguousMatch, len(matches), q)
		}
		return len(matches) > 0, nil
	}

	start := time.Now()
	if err := r.waiter.Await(ctx, "resolve "+q.String(), found, timeout, interval); err != nil {
		return nil, r.classify(q, err)
	}

	r.logger.WithFields(logrus.Fields{
		"query":   q.String(),
		"index":   index,
		"elapsed": time.Since(start).Round(time.Millisecond),
	}).Debug("Resolved element")

	return &Handle{resolver: r, root: root, query: q.WithIndex(index)}, nil
}

// ResolveAll waits up to timeout for at least one match and returns a handle
// per match. No match at the deadline is an empty result, not an error.
func (r *Resolver) ResolveAll(ctx context.Context, root interfaces.Finder, q entities.Query, timeout, interval time.Duration) ([]*Handle, error) {
	var count int
	some := func(ctx context.Context) (bool, error) {
		matches, err := r.lookup(ctx, root, q)
		if err != nil {
			return false, err
		}
		count = len(matches)
		return count > 0, nil
	}

	err := r.waiter.Await(ctx, "resolve all "+q.String(), some, timeout, interval)
	var timeoutErr *entities.WaitTimeoutError
	if err != nil && !errors.As(err, &timeoutErr) {
		return nil, err
	}

	handles := make([]*Handle, 0, count)
	for i := 0; i < count; i++ {
		unpinned := q
		unpinned.Index = nil
		handles = append(handles, &Handle{resolver: r, root: root, query: unpinned.WithIndex(i)})
	}
	return handles, nil
}

// Count queries the page once and returns the number of matches of q.
func (r *Resolver) Count(ctx context.Context, root interfaces.Finder, q entities.Query) (int, error) {
	matches, err := r.lookup(ctx, root, q)
	if err != nil {
		return 0, err
	}
	return len(matches), nil
}

// Current queries the page once and returns the element q designates.
func (r *Resolver) Current(ctx context.Context, root interfaces.Finder, q entities.Query) (interfaces.Element, error) {
	matches, err := r.lookup(ctx, root, q)
	if err != nil {
		return nil, err
	}
	return pick(matches, q)
}

// lookup runs one query against the page, applying the within scope.
// A missing scope is reported as zero matches.
func (r *Resolver) lookup(ctx context.Context, root interfaces.Finder, q entities.Query) ([]interfaces.Element, error) {
	if q.Within != nil {
		scopes, err := r.lookup(ctx, root, *q.Within)
		if err != nil {
			return nil, err
		}
		scope, err := pick(scopes, *q.Within)
		if errors.Is(err, entities.ErrElementNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		root = scope
	}

	switch q.Kind() {
	case entities.LocateByRole:
		return root.FindByRole(ctx, q.Role, q.Name, q.Exact)
	case entities.LocateByLabel:
		return root.FindByLabel(ctx, q.Label, q.Exact)
	case entities.LocateByText:
		return root.FindByText(ctx, q.Text, q.Exact)
	case entities.LocateBySelector:
		return root.FindBySelector(ctx, q.Selector)
	case entities.LocateByRef:
		return nil, fmt.Errorf("unbound ref @%s", q.Ref)
	}
	return nil, fmt.Errorf("invalid query %s", q)
}

func pick(matches []interfaces.Element, q entities.Query) (interfaces.Element, error) {
	switch {
	case q.Index != nil:
		if *q.Index >= len(matches) {
			return nil, fmt.Errorf("%w: %s (%d matches)", entities.ErrElementNotFound, q, len(matches))
		}
		return matches[*q.Index], nil
	case len(matches) == 0:
		return nil, fmt.Errorf("%w: %s", entities.ErrElementNotFound, q)
	case q.Unique && len(matches) > 1:
		return nil, fmt.Errorf("%w: %d elements match %s", entities.ErrAmbiguousMatch, len(matches), q)
	}
	return matches[0], nil
}

func (r *Resolver) classify(q entities.Query, err error) error {
	var timeoutErr *entities.WaitTimeoutError
	if errors.As(err, &timeoutErr) {
		msg := fmt.Sprintf("%s after %s", q, timeoutErr.Elapsed.Round(time.Millisecond))
		if timeoutErr.LastErr != nil {
			msg += " (" + timeoutErr.LastErr.Error() + ")"
		}
		return fmt.Errorf("%w: %s", entities.ErrElementNotFound, msg)
	}
	return err
}
