// Package track is a fine-grained reactive dependency tracking engine.
// Instrumented state reports its reads and writes through RecordRead and
// NotifyWrite, and the engine re-runs exactly the runners that read the
// slots being written.
package track

import mapset "github.com/deckarep/golang-set/v2"

// A depSet is the subscriber collection for one observed slot.
// It's a set because sooner or later registrations must deduplicate:
// a runner reading the same slot twice is still only one subscription.
type depSet struct {
	runners mapset.Set[*Runner]
}

func newDepSet() *depSet {
	return &depSet{runners: mapset.NewThreadUnsafeSet[*Runner]()}
}

// Sequence marks an observed object as index-addressed. Structural writes
// fan out differently for sequences: adding an index reaches the length
// slot's subscribers, and shrinking the length reaches every index that
// fell out of range.
type Sequence interface {
	SequenceLike()
}

// A Universe is one isolated reactive graph: the registry mapping observed
// slots to their subscribers plus the tracking context saying which runner
// is currently executing. Independent universes never see each other's
// state, so tests and tenants can each own one.
type Universe struct {
	// registry is keyed by observed-object identity, then by slot key.
	// It never owns the objects it indexes; Forget is the release valve.
	registry map[any]map[any]*depSet
	// active is the runner currently mid-run, if any.
	active *Runner
	// tracking gates whether reads register dependencies at all.
	tracking bool
}

func NewUniverse() *Universe {
	return &Universe{
		registry: map[any]map[any]*depSet{},
		tracking: true,
	}
}

// RecordRead subscribes the currently running runner to the (obj, key)
// slot. Outside a tracked run it does nothing, which is what makes plain
// non-reactive reads free.
func (u *Universe) RecordRead(obj, key any) {
	if !u.tracking || u.active == nil {
		return
	}

	keyDeps := u.registry[obj]
	if keyDeps == nil {
		keyDeps = map[any]*depSet{}
		u.registry[obj] = keyDeps
	}

	deps := keyDeps[key]
	if deps == nil {
		deps = newDepSet()
		keyDeps[key] = deps
	}

	// Only grow the runner's subscription list on first membership, so the
	// two sides of the graph stay mirror images of each other.
	if deps.runners.Add(u.active) {
		u.active.subs = append(u.active.subs, deps)
	}
}

// PauseTracking turns dependency recording off for the whole universe.
// It's a flat flag, not a counter: overlapping pause/resume pairs are the
// caller's problem. Untracked is the safe wrapper.
func (u *Universe) PauseTracking() {
	u.tracking = false
}

// ResumeTracking turns dependency recording back on.
func (u *Universe) ResumeTracking() {
	u.tracking = true
}

// Untracked runs fn with dependency recording off and restores the
// previous flag on the way out, failure included.
func (u *Universe) Untracked(fn func() error) error {
	trackingPrev := u.tracking
	u.tracking = false
	defer func() {
		u.tracking = trackingPrev
	}()
	return fn()
}

// Forget drops every dependency set registered for obj, unsubscribing any
// runners still attached. The registry holds a non-owning association, so
// an observed object going away must tell the universe, or its entry
// lingers until the universe itself is collected.
func (u *Universe) Forget(obj any) {
	keyDeps := u.registry[obj]
	if keyDeps == nil {
		return
	}
	delete(u.registry, obj)

	for _, deps := range keyDeps {
		for r := range deps.runners.Iter() {
			r.dropSet(deps)
		}
		deps.runners.Clear()
	}
}
