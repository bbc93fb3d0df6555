package observed

import (
	"fmt"
	"reflect"

	"github.com/delaneyj/deptrack/track"
)

// List is a sequence whose index reads, length reads and structural
// changes are tracked. It satisfies track.Sequence, so the engine routes
// additions to the length slot and length shrinks to the indices that fell
// out of range.
type List[T any] struct {
	u     *track.Universe
	items []T
}

func NewList[T any](u *track.Universe, items ...T) *List[T] {
	l := &List[T]{u: u}
	l.items = append(l.items, items...)
	return l
}

// SequenceLike marks the list as index-addressed for structural fan-out.
func (l *List[T]) SequenceLike() {}

// At returns the item at index i, subscribing the currently running runner
// to that index. Out-of-range reads still subscribe, so a later growth or
// shrink touching that index re-runs the reader.
func (l *List[T]) At(i int) (T, bool) {
	l.u.RecordRead(l, i)
	if i < 0 || i >= len(l.items) {
		var zero T
		return zero, false
	}
	return l.items[i], true
}

// Len reports the current length, subscribing to the length slot.
func (l *List[T]) Len() int {
	l.u.RecordRead(l, track.LengthKey)
	return len(l.items)
}

// Set overwrites an existing index. Writing an equal value is silent.
func (l *List[T]) Set(i int, value T) error {
	if i < 0 || i >= len(l.items) {
		return fmt.Errorf("observed list: index %d out of range [0,%d)", i, len(l.items))
	}
	oldValue := l.items[i]
	if reflect.DeepEqual(oldValue, value) {
		return nil
	}
	l.items[i] = value
	return l.u.NotifyWrite(l, track.OpSet, i, value, oldValue)
}

// Append grows the sequence by one. The internal length read must not
// subscribe whoever happens to be appending, and a caller's own paused
// state must survive, hence the save/restore wrapper around it.
func (l *List[T]) Append(value T) error {
	var i int
	if err := l.u.Untracked(func() error {
		i = l.Len()
		return nil
	}); err != nil {
		return err
	}

	l.items = append(l.items, value)
	return l.u.NotifyWrite(l, track.OpAdd, i, value, nil)
}

// Truncate shrinks the sequence to n items, notifying the length slot and,
// through it, every index that became out of range. Growing is not
// supported and lengths at or above the current one are a no-op.
func (l *List[T]) Truncate(n int) error {
	var oldLen int
	if err := l.u.Untracked(func() error {
		oldLen = l.Len()
		return nil
	}); err != nil {
		return err
	}

	if n < 0 {
		return fmt.Errorf("observed list: negative length %d", n)
	}
	if n >= oldLen {
		return nil
	}
	l.items = l.items[:n]
	return l.u.NotifyWrite(l, track.OpSet, track.LengthKey, n, oldLen)
}

// Values returns a snapshot of the items. Iteration reads the length and
// every index, so both structural changes and per-item writes reach the
// caller.
func (l *List[T]) Values() []T {
	l.u.RecordRead(l, track.LengthKey)
	out := make([]T, len(l.items))
	for i, item := range l.items {
		l.u.RecordRead(l, i)
		out[i] = item
	}
	return out
}

// Release drops the list's registry entry.
func (l *List[T]) Release() {
	l.u.Forget(l)
}
