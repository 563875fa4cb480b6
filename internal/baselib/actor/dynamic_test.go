package actor_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roasbeef/greenroom/internal/baselib/actor"
	"github.com/roasbeef/greenroom/internal/baselib/payload"
)

// pump drives every given ACB's RunQuantum until none of them has pending
// work, or maxRounds is exceeded. Tests in this file spawn
// detached (unscheduled) ACBs and pump them manually rather than standing
// up a full scheduler, since that belongs to internal/scheduler's own
// tests.
func pump(t *testing.T, acbs ...*actor.ControlBlock) {
	t.Helper()
	for round := 0; round < 10_000; round++ {
		progressed := false
		for _, cb := range acbs {
			for cb.HasWork() {
				cb.RunQuantum(1)
				progressed = true
			}
		}
		if !progressed {
			return
		}
	}
	t.Fatal("pump: exceeded max rounds without draining")
}

func TestArithmeticRequestResponse(t *testing.T) {
	adder := actor.SpawnDetached(actor.NewBehavior(
		actor.Case2(func(ctx *actor.HandleContext, a, b int) (int, error) {
			return a + b, nil
		}),
	))

	sender := actor.SpawnDetached(actor.NewBehavior())

	var got int
	var gotErr error
	actor.Ask(adder, sender, 0, func(p payload.Payload) {
		got, _ = payload.Get[int](p, 0)
	}, func(e actor.Error) {
		gotErr = e
	}, 3, 4)

	pump(t, adder, sender)

	require.NoError(t, gotErr)
	require.Equal(t, 7, got)
}

func TestDivisionByZero(t *testing.T) {
	divErr := actor.NewError(1, "math", nil)

	divider := actor.SpawnDetached(actor.NewBehavior(
		actor.Case2(func(ctx *actor.HandleContext, a, b int) (int, error) {
			if b == 0 {
				return 0, divErr
			}
			return a / b, nil
		}),
	))
	sender := actor.SpawnDetached(actor.NewBehavior())

	successCalled := false
	var gotErr actor.Error
	actor.Ask(divider, sender, 0, func(p payload.Payload) {
		successCalled = true
	}, func(e actor.Error) {
		gotErr = e
	}, 10, 0)

	pump(t, divider, sender)

	require.False(t, successCalled)
	require.Equal(t, divErr.Code, gotErr.Code)
	require.Equal(t, divErr.Category, gotErr.Category)
}

func TestLinkPropagationAndMonitor(t *testing.T) {
	boom := actor.NewError(actor.CodeRuntimeError, actor.CategoryRuntime, "kaboom")

	a := actor.SpawnDetached(actor.NewBehavior(
		actor.Case0(func(ctx *actor.HandleContext) (struct{}, error) {
			return struct{}{}, boom
		}),
	))
	b := actor.SpawnDetached(actor.NewBehavior())
	observer := actor.SpawnDetached(actor.NewBehavior())

	actor.Link(a, b)
	actor.Monitor(observer, b)

	var bReason actor.ExitReason
	b.SetSystemHandler(func(ctx *actor.HandleContext, env *actor.Envelope) {
		if env.Kind == actor.KindExit {
			bReason = env.Reason
			ctx.Self().Terminate(env.Reason)
		}
	})

	downCount := 0
	var observedReason actor.ExitReason
	observer.SetSystemHandler(func(ctx *actor.HandleContext, env *actor.Envelope) {
		if env.Kind == actor.KindDown {
			downCount++
			observedReason = env.Reason
		}
	})

	actor.Tell(a, nil, actor.PriorityNormal)
	pump(t, a, b, observer)

	require.True(t, a.IsTerminated())
	require.True(t, b.IsTerminated())
	require.Equal(t, actor.CodeRuntimeError, bReason.Code)
	require.Equal(t, 1, downCount)
	require.Equal(t, actor.CodeRuntimeError, observedReason.Code)
}

func TestStashedRematch(t *testing.T) {
	var processedOrder []string

	intOnly := actor.NewBehavior(
		actor.Case1(func(ctx *actor.HandleContext, n int) (struct{}, error) {
			processedOrder = append(processedOrder, "int")

			floatAndInt := actor.NewBehavior(
				actor.Case1(func(ctx *actor.HandleContext, f float64) (struct{}, error) {
					processedOrder = append(processedOrder, "float")
					return struct{}{}, nil
				}),
			)
			ctx.Become(floatAndInt)
			return struct{}{}, nil
		}),
	).WithDefault(actor.DefaultSkip, nil)

	target := actor.SpawnDetached(intOnly)

	actor.Tell(target, nil, actor.PriorityNormal, 1.0)
	actor.Tell(target, nil, actor.PriorityNormal, 2)

	pump(t, target)

	require.Equal(t, []string{"int", "float"}, processedOrder)
}

func TestAwaitLIFO(t *testing.T) {
	cells := make([]*actor.ControlBlock, 3)
	values := []int{0, 1, 4}
	for i, v := range values {
		v := v
		cells[i] = actor.SpawnDetached(actor.NewBehavior(
			actor.Case0(func(ctx *actor.HandleContext) (int, error) {
				return v, nil
			}),
		))
	}

	sender := actor.SpawnDetached(actor.NewBehavior())

	var fired []int
	for _, cell := range cells {
		cell := cell
		actor.AskAwaited(cell, sender, 0, func(p payload.Payload) {
			v, _ := payload.Get[int](p, 0)
			fired = append(fired, v)
		}, nil)
	}

	all := append([]*actor.ControlBlock{sender}, cells...)
	pump(t, all...)

	require.Equal(t, []int{4, 1, 0}, fired)
}

func TestDelegation(t *testing.T) {
	c := actor.SpawnDetached(actor.NewBehavior(
		actor.Case2(func(ctx *actor.HandleContext, a, b int) (int, error) {
			return a + b, nil
		}),
	))

	var bSawReply bool
	b := actor.SpawnDetached(actor.NewBehavior(
		actor.Case2(func(ctx *actor.HandleContext, a, b2 int) (int, error) {
			ctx.Delegate(c)
			return 0, nil
		}),
	))
	b.SetSystemHandler(func(ctx *actor.HandleContext, env *actor.Envelope) {
		if env.Kind == actor.KindUser {
			bSawReply = true
		}
	})

	a := actor.SpawnDetached(actor.NewBehavior())

	var got int
	var successCount int
	actor.Ask(b, a, 0, func(p payload.Payload) {
		successCount++
		got, _ = payload.Get[int](p, 0)
	}, nil, 1, 2)

	pump(t, a, b, c)

	require.Equal(t, 1, successCount)
	require.Equal(t, 3, got)
	require.False(t, bSawReply)
}

func TestRequestTimeout(t *testing.T) {
	silent := actor.SpawnDetached(actor.NewBehavior())
	sender := actor.SpawnDetached(actor.NewBehavior())

	errCh := make(chan actor.Error, 1)
	actor.Ask(silent, sender, 10*time.Millisecond, func(p payload.Payload) {
	}, func(e actor.Error) {
		errCh <- e
	}, "ping")

	select {
	case e := <-errCh:
		require.Equal(t, actor.CodeRequestTimeout, e.Code)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout error never fired")
	}
}

// TestRequestResponseCollisionAcrossSenders covers a bidirectional request
// topology: x has its own outstanding Ask pending (against silent) while z
// separately Asks x something. Correlation ids are minted per-sender
// starting at 1, so x's pending request and z's inbound request naturally
// mint the same numeric id. x must still treat z's envelope as a fresh
// inbound request and reply to it, rather than mistaking it for the reply
// to its own pending ask.
func TestRequestResponseCollisionAcrossSenders(t *testing.T) {
	silent := actor.SpawnDetached(actor.NewBehavior().WithDefault(actor.DefaultSkip, nil))

	x := actor.SpawnDetached(actor.NewBehavior(
		actor.Case1(func(ctx *actor.HandleContext, n int) (int, error) {
			return n * 2, nil
		}),
	))
	z := actor.SpawnDetached(actor.NewBehavior())

	var xCallbackFired bool
	actor.Ask(silent, x, 0, func(p payload.Payload) {
		xCallbackFired = true
	}, func(e actor.Error) {
		xCallbackFired = true
	}, "ping")

	var zGot int
	var zErr error
	actor.Ask(x, z, 0, func(p payload.Payload) {
		zGot, _ = payload.Get[int](p, 0)
	}, func(e actor.Error) {
		zErr = e
	}, 21)

	pump(t, silent, x, z)

	require.NoError(t, zErr)
	require.Equal(t, 42, zGot,
		"z's request to x must be answered with x's own computed "+
			"reply, not x's unrelated pending ask to silent")
	require.False(t, xCallbackFired,
		"x's own outstanding ask to silent must remain untouched by "+
			"z's colliding correlation id")
}
