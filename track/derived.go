package track

import "fmt"

// Derived is a lazily memoized value backed by its own runner. The runner
// is marked derived, so the engine refreshes it ahead of plain
// subscribers, and its scheduler only flags staleness instead of eagerly
// recomputing. The value itself is an observed slot: reading it inside
// another runner subscribes that runner, and an invalidation notifies it.
type Derived[T comparable] struct {
	u      *Universe
	runner *Runner
	value  T
	dirty  bool
}

// NewDerived registers fn as a derived computation. Nothing runs until the
// first Value call.
func NewDerived[T comparable](u *Universe, fn func() (T, error)) (*Derived[T], error) {
	d := &Derived[T]{
		u:     u,
		dirty: true,
	}
	r, err := Register(u,
		func() (any, error) { return fn() },
		Lazy(),
		WithScheduler(d.invalidate),
	)
	if err != nil {
		return nil, fmt.Errorf("registering derived runner: %w", err)
	}
	r.SetDerived(true)
	d.runner = r
	return d, nil
}

// invalidate is the runner's scheduler: mark stale and pass the change on
// to whoever read the memoized value. Nothing recomputes until the next
// Value call, and repeated invalidations while already stale collapse into
// one downstream notification.
func (d *Derived[T]) invalidate(*Runner) error {
	if d.dirty {
		return nil
	}
	d.dirty = true
	return d.u.NotifyWrite(d, OpSet, valueKey, nil, nil)
}

// Value returns the memoized value, recomputing only when a dependency
// changed since the last computation. The read subscribes the currently
// running runner to future invalidations.
func (d *Derived[T]) Value() (T, error) {
	if d.dirty && d.runner.active {
		v, err := d.runner.Run()
		if err != nil {
			var zero T
			return zero, fmt.Errorf("refreshing derived value: %w", err)
		}
		d.value = v.(T)
		d.dirty = false
	}
	d.u.RecordRead(d, valueKey)
	return d.value, nil
}

// Stop deactivates the backing runner and releases the value slot.
func (d *Derived[T]) Stop() {
	d.runner.Stop()
	d.u.Forget(d)
}
