package observed

import (
	"reflect"

	"github.com/delaneyj/deptrack/track"
)

// Map is a keyed structure whose per-key reads, enumerations and
// structural changes are all tracked. Enumerating it subscribes to the
// iteration slot, which is how a reader learns about keys that didn't
// exist when it ran.
type Map[K comparable, V any] struct {
	u       *track.Universe
	entries map[K]V
}

func NewMap[K comparable, V any](u *track.Universe) *Map[K, V] {
	return &Map[K, V]{
		u:       u,
		entries: map[K]V{},
	}
}

// Get returns the value for key, subscribing the currently running runner
// to that exact key. Reading an absent key still subscribes, so a later
// addition re-runs the reader.
func (m *Map[K, V]) Get(key K) (V, bool) {
	m.u.RecordRead(m, key)
	v, ok := m.entries[key]
	return v, ok
}

// Set writes key to value, notifying as an addition when the key is new.
func (m *Map[K, V]) Set(key K, value V) error {
	oldValue, existed := m.entries[key]
	if existed && reflect.DeepEqual(oldValue, value) {
		return nil
	}
	m.entries[key] = value
	if existed {
		return m.u.NotifyWrite(m, track.OpSet, key, value, oldValue)
	}
	return m.u.NotifyWrite(m, track.OpAdd, key, value, nil)
}

// Delete removes key. Removal changes the enumerated key set, so iteration
// subscribers are notified along with the key's own.
func (m *Map[K, V]) Delete(key K) error {
	oldValue, existed := m.entries[key]
	if !existed {
		return nil
	}
	delete(m.entries, key)
	return m.u.NotifyWrite(m, track.OpDelete, key, nil, oldValue)
}

// Clear empties the map, reaching every subscriber it has.
func (m *Map[K, V]) Clear() error {
	if len(m.entries) == 0 {
		return nil
	}
	m.entries = map[K]V{}
	return m.u.NotifyWrite(m, track.OpClear, nil, nil, nil)
}

// Len reports the entry count as an enumeration of the key set.
func (m *Map[K, V]) Len() int {
	m.u.RecordRead(m, track.IterateKey)
	return len(m.entries)
}

// Keys returns a snapshot of the keys, subscribing to the iteration slot.
func (m *Map[K, V]) Keys() []K {
	m.u.RecordRead(m, track.IterateKey)
	keys := make([]K, 0, len(m.entries))
	for k := range m.entries {
		keys = append(keys, k)
	}
	return keys
}

// Range calls fn for every entry. It subscribes to the iteration slot for
// structural changes and to each visited key for value changes.
func (m *Map[K, V]) Range(fn func(key K, value V) bool) {
	m.u.RecordRead(m, track.IterateKey)
	for k, v := range m.entries {
		m.u.RecordRead(m, k)
		if !fn(k, v) {
			return
		}
	}
}

// Release drops the map's registry entry.
func (m *Map[K, V]) Release() {
	m.u.Forget(m)
}
