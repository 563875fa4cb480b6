package payload_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/roasbeef/greenroom/internal/baselib/payload"
)

func TestNewAndGet(t *testing.T) {
	p := payload.New("add", 3, 4)
	require.Equal(t, 3, p.Len())

	tag, err := payload.Get[string](p, 0)
	require.NoError(t, err)
	require.Equal(t, "add", tag)

	a, err := payload.Get[int](p, 1)
	require.NoError(t, err)
	require.Equal(t, 3, a)

	_, err = payload.Get[string](p, 1)
	require.Error(t, err)
	var mismatch *payload.ErrTypeMismatch
	require.ErrorAs(t, err, &mismatch)

	_, err = payload.Get[int](p, 99)
	require.Error(t, err)
	var oob *payload.ErrIndexOutOfRange
	require.ErrorAs(t, err, &oob)
}

func TestCloneIsolation(t *testing.T) {
	p1 := payload.New(1, "x")
	p2 := p1.Clone()

	require.True(t, p1.IsShared())
	require.True(t, p2.IsShared())

	require.NoError(t, p2.Set(0, 42))

	v1, err := payload.Get[int](p1, 0)
	require.NoError(t, err)
	require.Equal(t, 1, v1, "mutation through p2 must not be observed through p1")

	v2, err := payload.Get[int](p2, 0)
	require.NoError(t, err)
	require.Equal(t, 42, v2)

	require.False(t, p1.IsShared())
	require.False(t, p2.IsShared())
}

// TestCOWIsolationProperty is a property-based check of spec.md invariant 7:
// after p2 := p1.Clone(), a mutation through p2 is never observed through
// p1, regardless of how many fields or how many interleaved clones exist.
func TestCOWIsolationProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 8).Draw(t, "n")
		fields := make([]any, n)
		for i := range fields {
			fields[i] = rapid.Int().Draw(t, "field")
		}

		base := payload.New(fields...)
		clones := []payload.Payload{base}
		numClones := rapid.IntRange(1, 5).Draw(t, "numClones")
		for i := 0; i < numClones; i++ {
			clones = append(clones, base.Clone())
		}

		idx := rapid.IntRange(0, n-1).Draw(t, "idx")
		newVal := rapid.Int().Draw(t, "newVal")

		mutIdx := rapid.IntRange(0, len(clones)-1).Draw(t, "mutIdx")
		target := clones[mutIdx]
		require.NoError(t, target.Set(idx, newVal))
		clones[mutIdx] = target

		for i, c := range clones {
			if i == mutIdx {
				continue
			}
			v, err := payload.Get[int](c, idx)
			require.NoError(t, err)
			require.Equal(t, fields[idx], v,
				"clone %d must not observe mutation made through clone %d", i, mutIdx)
		}
	})
}

func TestFieldsDefensiveCopy(t *testing.T) {
	p := payload.New(1, 2, 3)
	got := p.Fields()
	got[0] = 999

	v, err := payload.Get[int](p, 0)
	require.NoError(t, err)
	require.Equal(t, 1, v)
}
