package stream_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/roasbeef/greenroom/internal/scheduler"
	"github.com/roasbeef/greenroom/internal/stream"
)

func testScheduler(t *testing.T) *scheduler.Scheduler {
	t.Helper()
	cfg := scheduler.DefaultConfig()
	cfg.Workers = 4
	sched := scheduler.New(cfg)
	ctx, cancel := context.WithCancel(context.Background())
	sched.Start(ctx)
	t.Cleanup(func() {
		cancel()
		_ = sched.Shutdown(context.Background())
	})
	return sched
}

func runPipeline(t *testing.T, mgr *stream.Manager, elements []any,
	predicates []func(any) bool, window int) ([]any, error) {

	t.Helper()

	var mu sync.Mutex
	var got []any
	done := make(chan error, 1)

	err := mgr.Build(context.Background(), stream.Pipeline{
		Elements:   elements,
		Predicates: predicates,
		Window:     window,
		OnElement: func(v any) {
			mu.Lock()
			got = append(got, v)
			mu.Unlock()
		},
		OnDone: func(err error) { done <- err },
	})
	require.NoError(t, err)

	select {
	case err := <-done:
		mu.Lock()
		defer mu.Unlock()
		return got, err
	case <-time.After(5 * time.Second):
		t.Fatal("stream never completed")
		return nil, nil
	}
}

func TestEvenFilterStream(t *testing.T) {
	sched := testScheduler(t)
	mgr := stream.NewManager(sched, 4)

	elements := make([]any, 10)
	for i := range elements {
		elements[i] = i
	}
	even := func(v any) bool { return v.(int)%2 == 0 }

	got, err := runPipeline(t, mgr, elements, []func(any) bool{even}, 2)
	require.NoError(t, err)
	require.Equal(t, []any{0, 2, 4, 6, 8}, got)
}

func TestStreamWithNoStages(t *testing.T) {
	sched := testScheduler(t)
	mgr := stream.NewManager(sched, 4)

	elements := []any{"a", "b", "c"}
	got, err := runPipeline(t, mgr, elements, nil, 1)
	require.NoError(t, err)
	require.Equal(t, elements, got)
}

func TestStreamChainedStages(t *testing.T) {
	sched := testScheduler(t)
	mgr := stream.NewManager(sched, 4)

	elements := make([]any, 30)
	for i := range elements {
		elements[i] = i
	}
	even := func(v any) bool { return v.(int)%2 == 0 }
	divThree := func(v any) bool { return v.(int)%3 == 0 }

	got, err := runPipeline(t, mgr, elements, []func(any) bool{even, divThree}, 3)
	require.NoError(t, err)

	var want []any
	for i := 0; i < 30; i++ {
		if i%2 == 0 && i%3 == 0 {
			want = append(want, i)
		}
	}
	require.Equal(t, want, got)
}

// TestStreamFilterResultProperty checks, across randomly sized streams and
// windows, that the sink always receives exactly the elements the filter
// lets through, in order, regardless of how small the granted credit
// window is. It does not count credit granted against elements emitted.
func TestStreamFilterResultProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(0, 64).Draw(rt, "n")
		window := rapid.IntRange(1, 8).Draw(rt, "window")

		elements := make([]any, n)
		for i := range elements {
			elements[i] = i
		}
		even := func(v any) bool { return v.(int)%2 == 0 }

		sched := scheduler.New(func() scheduler.Config {
			cfg := scheduler.DefaultConfig()
			cfg.Workers = 2
			return cfg
		}())
		ctx, cancel := context.WithCancel(context.Background())
		sched.Start(ctx)
		defer func() {
			cancel()
			_ = sched.Shutdown(context.Background())
		}()

		mgr := stream.NewManager(sched, 2)

		var mu sync.Mutex
		var got []any
		done := make(chan error, 1)

		err := mgr.Build(context.Background(), stream.Pipeline{
			Elements:   elements,
			Predicates: []func(any) bool{even},
			Window:     window,
			OnElement: func(v any) {
				mu.Lock()
				got = append(got, v)
				mu.Unlock()
			},
			OnDone: func(err error) { done <- err },
		})
		if err != nil {
			rt.Fatalf("build: %v", err)
		}

		select {
		case err := <-done:
			if err != nil {
				rt.Fatalf("stream errored: %v", err)
			}
		case <-time.After(5 * time.Second):
			rt.Fatal("stream never completed")
		}

		var want []any
		for i := 0; i < n; i++ {
			if i%2 == 0 {
				want = append(want, i)
			}
		}
		mu.Lock()
		defer mu.Unlock()
		if len(got) != len(want) {
			rt.Fatalf("got %d elements, want %d", len(got), len(want))
		}
		for i := range want {
			if got[i] != want[i] {
				rt.Fatalf("element %d: got %v, want %v", i, got[i], want[i])
			}
		}
	})
}
