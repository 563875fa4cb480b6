package wire_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roasbeef/greenroom/internal/baselib/wire"
)

type addRequest struct {
	A, B int
}

func visitAddRequest(v any, insp wire.Inspector) error {
	req, ok := v.(*addRequest)
	if !ok {
		return nil
	}
	if err := insp.Field("a", &req.A, wire.FieldOpt{}); err != nil {
		return err
	}
	return insp.Field("b", &req.B, wire.FieldOpt{})
}

func TestTypeRegistryBijective(t *testing.T) {
	reg := wire.NewTypeRegistry()

	err := reg.Register(wire.TypeInfo{
		Name:  "add_request",
		Visit: visitAddRequest,
	})
	require.NoError(t, err)

	err = reg.Register(wire.TypeInfo{
		Name:  "add_request",
		Visit: visitAddRequest,
	})
	require.ErrorIs(t, err, wire.ErrAlreadyRegistered)

	info, err := reg.Lookup("add_request")
	require.NoError(t, err)
	require.Equal(t, "add_request", info.Name)
	require.False(t, reg.IsUnsafe("add_request"))

	_, err = reg.Lookup("nope")
	require.ErrorIs(t, err, wire.ErrNotRegistered)
}

func TestTypeRegistryUnsafeFlag(t *testing.T) {
	reg := wire.NewTypeRegistry()
	require.NoError(t, reg.Register(wire.TypeInfo{
		Name:   "local_only",
		Visit:  visitAddRequest,
		Unsafe: true,
	}))

	require.True(t, reg.IsUnsafe("local_only"))
	require.False(t, reg.IsUnsafe("unregistered_name"))
}

func TestRoundTripViaInspector(t *testing.T) {
	in := &addRequest{A: 3, B: 4}
	out := &addRequest{}

	err := wire.RoundTrip(visitAddRequest, in, out)
	require.NoError(t, err)
	require.Equal(t, in.A, out.A)
	require.Equal(t, in.B, out.B)
}

func TestRoundTripReaderExhaustedErrors(t *testing.T) {
	writeV := func(v any, insp wire.Inspector) error {
		req := v.(*addRequest)
		if err := insp.Field("a", &req.A, wire.FieldOpt{}); err != nil {
			return err
		}
		return insp.Field("b", &req.B, wire.FieldOpt{})
	}
	// Reading with a function that expects more fields than were
	// written must surface an exhaustion error rather than silently
	// zero-filling.
	readV := func(v any, insp wire.Inspector) error {
		req := v.(*addRequest)
		if err := insp.Field("a", &req.A, wire.FieldOpt{}); err != nil {
			return err
		}
		if err := insp.Field("b", &req.B, wire.FieldOpt{}); err != nil {
			return err
		}
		var extra int
		return insp.Field("c", &extra, wire.FieldOpt{})
	}

	w := wire.NewWriter()
	require.NoError(t, writeV(&addRequest{A: 1, B: 2}, w))

	r := wire.NewReader(w.Fields())
	out := &addRequest{}
	err := readV(out, r)
	require.Error(t, err)
}
