package track

import mapset "github.com/deckarep/golang-set/v2"

// Op classifies a write for structural fan-out purposes. Only additions,
// deletions and clears reach beyond the exact key written.
type Op uint8

const (
	// OpAdd is a key materializing on the object for the first time.
	OpAdd Op = iota
	// OpSet is a plain update of an existing slot.
	OpSet
	// OpDelete removes one key.
	OpDelete
	// OpClear empties the object wholesale; key is ignored.
	OpClear
)

// NotifyWrite resolves every dependency set affected by a write on
// (obj, key), unions their members, and re-runs them: derived runners
// first, then plain ones, with the currently executing runner skipped so a
// computation writing a slot it just read can't retrigger itself.
//
// Beyond the exact key, structural cases fan out:
//   - shrinking a sequence's length reaches every index that fell out of
//     range;
//   - adding an index to a sequence reaches the length slot's subscribers;
//   - adding, deleting or clearing keys on a keyed structure reaches
//     whoever enumerated it, since they could not have subscribed to the
//     exact key;
//   - a clear additionally reaches every registered slot.
//
// A failing runner or scheduler aborts the remaining notifications and the
// error propagates to the caller.
func (u *Universe) NotifyWrite(obj any, op Op, key, newValue, oldValue any) error {
	keyDeps := u.registry[obj]
	if keyDeps == nil {
		return nil
	}

	affected := mapset.NewThreadUnsafeSet[*Runner]()
	collect := func(deps *depSet) {
		if deps == nil {
			return
		}
		for r := range deps.runners.Iter() {
			affected.Add(r)
		}
	}

	collect(keyDeps[key])

	_, isSequence := obj.(Sequence)
	switch {
	case isSequence && key == LengthKey:
		newLen, newOk := asIndex(newValue)
		oldLen, oldOk := asIndex(oldValue)
		if newOk && oldOk && newLen < oldLen {
			for k, deps := range keyDeps {
				if i, ok := asIndex(k); ok && i >= newLen {
					collect(deps)
				}
			}
		}
	case op == OpAdd:
		if isSequence {
			// A new index implicitly changes the length.
			collect(keyDeps[LengthKey])
		} else {
			collect(keyDeps[IterateKey])
		}
	case op == OpDelete:
		collect(keyDeps[IterateKey])
	case op == OpClear:
		collect(keyDeps[IterateKey])
		for _, deps := range keyDeps {
			collect(deps)
		}
	}

	return u.notify(affected)
}

// notify runs a snapshot of affected runners in two passes, derived before
// plain, so memoized values refresh before the consumers that read them.
// Relative order within a pass is unspecified.
func (u *Universe) notify(affected mapset.Set[*Runner]) error {
	if affected.Cardinality() == 0 {
		return nil
	}

	var derived, plain []*Runner
	for r := range affected.Iter() {
		if r.derived {
			derived = append(derived, r)
		} else {
			plain = append(plain, r)
		}
	}

	for _, r := range derived {
		if err := u.notifyRunner(r); err != nil {
			return err
		}
	}
	for _, r := range plain {
		if err := u.notifyRunner(r); err != nil {
			return err
		}
	}
	return nil
}

func (u *Universe) notifyRunner(r *Runner) error {
	if r == u.active {
		return nil
	}
	if r.scheduler != nil {
		return r.scheduler(r)
	}
	_, err := r.Run()
	return err
}

func asIndex(v any) (int, bool) {
	i, ok := v.(int)
	return i, ok
}
