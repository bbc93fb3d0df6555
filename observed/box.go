// Package observed provides instrumented containers that report their
// reads and writes to a track.Universe, so runners that touch them re-run
// when they change.
package observed

import (
	"reflect"

	"github.com/delaneyj/deptrack/track"
)

// slot key for a box's single value
const boxKey = "value"

// Box is the smallest observable unit: one mutable slot.
type Box[T any] struct {
	u     *track.Universe
	value T
}

func NewBox[T any](u *track.Universe, value T) *Box[T] {
	return &Box[T]{u: u, value: value}
}

// Get returns the value, subscribing the currently running runner.
func (b *Box[T]) Get() T {
	b.u.RecordRead(b, boxKey)
	return b.value
}

// Set replaces the value and notifies subscribers. Writing an equal value
// is silent.
func (b *Box[T]) Set(value T) error {
	if reflect.DeepEqual(b.value, value) {
		return nil
	}
	oldValue := b.value
	b.value = value
	return b.u.NotifyWrite(b, track.OpSet, boxKey, value, oldValue)
}

// Peek reads without subscribing, whatever is running.
func (b *Box[T]) Peek() T {
	return b.value
}

// Release drops the box's registry entry; pair with the end of the box's
// own lifetime.
func (b *Box[T]) Release() {
	b.u.Forget(b)
}
