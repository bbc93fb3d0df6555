package observed_test

import (
	"sort"
	"testing"

	"github.com/delaneyj/deptrack/observed"
	"github.com/delaneyj/deptrack/track"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// per-key reads only react to their own key
func TestMapExactKeyDependency(t *testing.T) {
	u := track.NewUniverse()
	m := observed.NewMap[string, int](u)
	require.NoError(t, m.Set("a", 1))
	require.NoError(t, m.Set("b", 1))

	runs := 0
	_, err := track.Register(u, func() (any, error) {
		runs++
		m.Get("a")
		return nil, nil
	})
	require.NoError(t, err)

	require.NoError(t, m.Set("b", 2))
	assert.Equal(t, 1, runs)

	require.NoError(t, m.Set("a", 2))
	assert.Equal(t, 2, runs)
}

// reading an absent key still subscribes, so its later addition re-runs the reader
func TestMapAbsentReadSeesAddition(t *testing.T) {
	u := track.NewUniverse()
	m := observed.NewMap[string, int](u)

	var present []bool
	_, err := track.Register(u, func() (any, error) {
		_, ok := m.Get("pending")
		present = append(present, ok)
		return nil, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []bool{false}, present)

	require.NoError(t, m.Set("pending", 1))
	assert.Equal(t, []bool{false, true}, present)
}

// enumerators hear about keys they could never have subscribed to
func TestMapAdditionNotifiesEnumerators(t *testing.T) {
	u := track.NewUniverse()
	m := observed.NewMap[string, int](u)
	require.NoError(t, m.Set("a", 1))

	var snapshots [][]string
	_, err := track.Register(u, func() (any, error) {
		keys := m.Keys()
		sort.Strings(keys)
		snapshots = append(snapshots, keys)
		return nil, nil
	})
	require.NoError(t, err)

	require.NoError(t, m.Set("b", 2))
	require.Len(t, snapshots, 2)
	assert.Equal(t, []string{"a", "b"}, snapshots[1])

	// updating an existing key changes no enumeration
	require.NoError(t, m.Set("a", 99))
	assert.Len(t, snapshots, 2)
}

// deletions change the key set, so enumerators re-run
func TestMapDeleteNotifiesEnumerators(t *testing.T) {
	u := track.NewUniverse()
	m := observed.NewMap[string, int](u)
	require.NoError(t, m.Set("a", 1))
	require.NoError(t, m.Set("b", 2))

	var counts []int
	_, err := track.Register(u, func() (any, error) {
		counts = append(counts, m.Len())
		return nil, nil
	})
	require.NoError(t, err)

	require.NoError(t, m.Delete("a"))
	assert.Equal(t, []int{2, 1}, counts)

	// deleting a key that was never there is silent
	require.NoError(t, m.Delete("ghost"))
	assert.Equal(t, []int{2, 1}, counts)
}

// clearing reaches key readers and enumerators alike
func TestMapClearNotifiesEveryone(t *testing.T) {
	u := track.NewUniverse()
	m := observed.NewMap[string, int](u)
	require.NoError(t, m.Set("a", 1))

	keyRuns, lenRuns := 0, 0
	_, err := track.Register(u, func() (any, error) {
		keyRuns++
		m.Get("a")
		return nil, nil
	})
	require.NoError(t, err)
	_, err = track.Register(u, func() (any, error) {
		lenRuns++
		m.Len()
		return nil, nil
	})
	require.NoError(t, err)

	require.NoError(t, m.Clear())
	assert.Equal(t, 2, keyRuns)
	assert.Equal(t, 2, lenRuns)

	// clearing an already empty map is silent
	require.NoError(t, m.Clear())
	assert.Equal(t, 2, keyRuns)
}

// Range subscribes the same way Keys does
func TestMapRangeSubscribesToIteration(t *testing.T) {
	u := track.NewUniverse()
	m := observed.NewMap[string, int](u)
	require.NoError(t, m.Set("a", 1))

	sums := []int{}
	_, err := track.Register(u, func() (any, error) {
		sum := 0
		m.Range(func(_ string, v int) bool {
			sum += v
			return true
		})
		sums = append(sums, sum)
		return nil, nil
	})
	require.NoError(t, err)

	require.NoError(t, m.Set("b", 10))
	assert.Equal(t, []int{1, 11}, sums)
}
