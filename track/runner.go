package track

// ComputeFunc is the unit of work a runner re-executes.
type ComputeFunc func() (any, error)

// SchedulerFunc, when set, is invoked in place of a direct re-run. The
// scheduler decides when, and whether, to actually call Run again.
type SchedulerFunc func(r *Runner) error

// A Runner wraps a computation together with its current subscriptions and
// lifecycle state. It is the unit the engine notifies when a slot it read
// gets written.
type Runner struct {
	u       *Universe
	compute ComputeFunc
	// scheduler, if any, receives notifications instead of Run.
	scheduler SchedulerFunc
	// subs are the dependency sets this runner currently belongs to.
	// Rebuilt from scratch on every run so branch-dependent reads from a
	// previous run don't linger.
	subs []*depSet
	// parent is the runner that was active when this one started running.
	parent *Runner
	active bool
	// derived runners are notified ahead of plain ones.
	derived bool
	// deferStop records a Stop that arrived while this runner was itself
	// executing.
	deferStop bool
	onStop    func()
}

type registerOptions struct {
	lazy      bool
	scheduler SchedulerFunc
}

type RegisterOption func(*registerOptions)

// Lazy defers the first run until the caller invokes the runner itself.
func Lazy() RegisterOption {
	return func(o *registerOptions) {
		o.lazy = true
	}
}

// WithScheduler routes notifications to fn instead of re-running directly.
func WithScheduler(fn SchedulerFunc) RegisterOption {
	return func(o *registerOptions) {
		o.scheduler = fn
	}
}

// Register wraps fn in a new runner within the universe and, unless
// declared lazy, runs it once so its initial dependencies are recorded.
func Register(u *Universe, fn ComputeFunc, opts ...RegisterOption) (*Runner, error) {
	var o registerOptions
	for _, opt := range opts {
		opt(&o)
	}

	r := &Runner{
		u:         u,
		compute:   fn,
		scheduler: o.scheduler,
		active:    true,
	}

	if !o.lazy {
		if _, err := r.Run(); err != nil {
			return r, err
		}
	}

	return r, nil
}

// Run executes the computation with tracking attributed to this runner.
// Prior subscriptions are discarded first, so only the slots read by this
// run survive as dependencies. A stopped runner still evaluates, it just
// leaves no tracks.
//
// The tracking context is restored on every exit path, failure included,
// and a Stop received mid-run is honored on the way out.
func (r *Runner) Run() (any, error) {
	if !r.active {
		return r.compute()
	}

	u := r.u
	r.parent = u.active
	trackingPrev := u.tracking
	u.active = r
	u.tracking = true

	defer func() {
		u.active = r.parent
		u.tracking = trackingPrev
		r.parent = nil
		if r.deferStop {
			r.deferStop = false
			r.deactivate()
		}
	}()

	r.clearSubs()
	return r.compute()
}

// Stop unsubscribes the runner from every slot and deactivates it. Calling
// it again is a no-op. Stopping a runner that is mid-run only flags the
// request; the in-flight run finishes and the teardown happens on exit,
// since the subscription list being rebuilt must not be yanked out from
// under it. That covers a runner stopping itself and a nested runner
// stopping a suspended ancestor, whose run resumes recording reads after
// the nested one returns.
func (r *Runner) Stop() {
	if !r.active {
		return
	}
	for cur := r.u.active; cur != nil; cur = cur.parent {
		if cur == r {
			r.deferStop = true
			return
		}
	}
	r.deactivate()
}

func (r *Runner) deactivate() {
	r.clearSubs()
	r.subs = nil
	r.active = false
	if r.onStop != nil {
		r.onStop()
		r.onStop = nil
	}
}

// clearSubs purges the runner from every dependency set it belongs to.
// Work is proportional to the runner's own subscriptions, never to the
// size of the universe.
func (r *Runner) clearSubs() {
	for _, deps := range r.subs {
		deps.runners.Remove(r)
	}
	r.subs = r.subs[:0]
}

// dropSet forgets a single dependency set, used when the universe releases
// an observed object out from under its subscribers.
func (r *Runner) dropSet(deps *depSet) {
	for i, s := range r.subs {
		if s == deps {
			r.subs = append(r.subs[:i], r.subs[i+1:]...)
			return
		}
	}
}

// Active reports whether the runner has not been stopped.
func (r *Runner) Active() bool {
	return r.active
}

// SetDerived marks the runner as backing a memoized value, moving it into
// the first notification pass so downstream readers see fresh values.
func (r *Runner) SetDerived(derived bool) {
	r.derived = derived
}

// OnStop registers a callback fired exactly once when the runner
// deactivates.
func (r *Runner) OnStop(fn func()) {
	r.onStop = fn
}
