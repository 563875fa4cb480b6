package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/roasbeef/greenroom/internal/stream"
)

var streamDemoCmd = &cobra.Command{
	Use:   "stream-demo",
	Short: "Run the stream-of-10-integers-with-even-filter scenario",
	RunE:  runStreamDemo,
}

func runStreamDemo(cmd *cobra.Command, args []string) error {
	d, err := bringUp(cmd)
	if err != nil {
		return err
	}
	defer d.shutdown()

	elements := make([]any, 10)
	for i := range elements {
		elements[i] = i
	}
	even := func(v any) bool { return v.(int)%2 == 0 }

	done := make(chan error, 1)
	err = d.streams.Build(context.Background(), stream.Pipeline{
		Elements:   elements,
		Predicates: []func(any) bool{even},
		Window:     d.Config().Stream.DefaultWindow,
		OnElement: func(v any) {
			fmt.Printf("sink received: %v\n", v)
		},
		OnDone: func(err error) { done <- err },
	})
	if err != nil {
		return fmt.Errorf("building pipeline: %w", err)
	}

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("stream faulted: %w", err)
		}
		fmt.Println("stream completed cleanly")
	case <-time.After(10 * time.Second):
		return fmt.Errorf("stream did not complete in time")
	}
	return nil
}
