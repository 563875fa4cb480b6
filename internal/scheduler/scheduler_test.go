package scheduler_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roasbeef/greenroom/internal/baselib/actor"
	"github.com/roasbeef/greenroom/internal/baselib/payload"
	"github.com/roasbeef/greenroom/internal/scheduler"
)

func smallConfig() scheduler.Config {
	cfg := scheduler.DefaultConfig()
	cfg.Workers = 4
	cfg.Aggressive.Attempts = 4
	cfg.Moderate.Attempts = 2
	cfg.Moderate.Sleep = time.Millisecond
	cfg.Relaxed.Attempts = 2
	cfg.Relaxed.Sleep = 5 * time.Millisecond
	return cfg
}

func TestSchedulerRunsArithmeticActor(t *testing.T) {
	sched := scheduler.New(smallConfig())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sched.Start(ctx)
	defer func() { require.NoError(t, sched.Shutdown(context.Background())) }()

	adder := sched.Spawn(actor.NewBehavior(
		actor.Case2(func(ctx *actor.HandleContext, a, b int) (int, error) {
			return a + b, nil
		}),
	))
	sender := sched.Spawn(actor.NewBehavior())

	resultCh := make(chan int, 1)
	actor.Ask(adder, sender, 2*time.Second, func(p payload.Payload) {
		v, _ := payload.Get[int](p, 0)
		resultCh <- v
	}, func(e actor.Error) {
		t.Errorf("unexpected error: %v", e)
	}, 40, 2)

	select {
	case v := <-resultCh:
		require.Equal(t, 42, v)
	case <-time.After(3 * time.Second):
		t.Fatal("result never arrived")
	}
}

func TestSchedulerFanOutManyActors(t *testing.T) {
	sched := scheduler.New(smallConfig())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sched.Start(ctx)
	defer func() { require.NoError(t, sched.Shutdown(context.Background())) }()

	const n = 50
	sender := sched.Spawn(actor.NewBehavior())

	results := make(chan int, n)
	for i := 0; i < n; i++ {
		doubler := sched.Spawn(actor.NewBehavior(
			actor.Case1(func(ctx *actor.HandleContext, v int) (int, error) {
				return v * 2, nil
			}),
		))
		i := i
		actor.Ask(doubler, sender, 2*time.Second, func(p payload.Payload) {
			v, _ := payload.Get[int](p, 0)
			results <- v
		}, func(e actor.Error) {
			t.Errorf("actor %d: unexpected error: %v", i, e)
		}, i)
	}

	seen := make(map[int]bool, n)
	for i := 0; i < n; i++ {
		select {
		case v := <-results:
			seen[v] = true
		case <-time.After(5 * time.Second):
			t.Fatalf("only received %d/%d results", len(seen), n)
		}
	}
	require.Len(t, seen, n)
}

func TestSchedulerShutdownAfterSend(t *testing.T) {
	sched := scheduler.New(smallConfig())
	ctx := context.Background()
	sched.Start(ctx)

	idle := sched.Spawn(actor.NewBehavior())
	actor.Tell(idle, nil, actor.PriorityNormal, 1)

	require.NoError(t, sched.Shutdown(context.Background()))
}
