package wire_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/roasbeef/greenroom/internal/baselib/wire"
)

func TestAtomRoundTrip(t *testing.T) {
	a, err := wire.NewAtom("add")
	require.NoError(t, err)
	require.Equal(t, "add", a.String())

	a2, err := wire.NewAtom("")
	require.NoError(t, err)
	require.Equal(t, "", a2.String())
}

func TestAtomTooLong(t *testing.T) {
	_, err := wire.NewAtom("this_is_way_too_long")
	require.Error(t, err)
}

func TestAtomUnknownCharsMapToSpace(t *testing.T) {
	a, err := wire.NewAtom("a!b@c")
	require.NoError(t, err)
	require.Equal(t, "a b c", a.String())
}

func TestAtomEquality(t *testing.T) {
	a1 := wire.MustAtom("ok")
	a2 := wire.MustAtom("ok")
	require.Equal(t, a1, a2)

	a3 := wire.MustAtom("ko")
	require.NotEqual(t, a1, a3)
}

// TestAtomRoundTripProperty checks that any string built purely from the
// atom alphabet, truncated to ten characters, decodes back to itself
// (modulo trailing-space trimming).
func TestAtomRoundTripProperty(t *testing.T) {
	const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789_ "

	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 10).Draw(t, "n")
		buf := make([]byte, n)
		for i := range buf {
			idx := rapid.IntRange(0, len(alphabet)-1).Draw(t, "char")
			buf[i] = alphabet[idx]
		}
		s := string(buf)

		a, err := wire.NewAtom(s)
		require.NoError(t, err)

		want := s
		for len(want) > 0 && want[len(want)-1] == ' ' {
			want = want[:len(want)-1]
		}
		require.Equal(t, want, a.String())
	})
}
