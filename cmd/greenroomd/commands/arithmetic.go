package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/roasbeef/greenroom/internal/baselib/actor"
	"github.com/roasbeef/greenroom/internal/baselib/payload"
)

// categoryMath tags the demo calculator's own domain errors, distinct from
// any category internal/baselib/actor or internal/stream register.
const categoryMath actor.ErrorCategory = "math"

// codeDivisionByZero is the demo calculator's one domain error code
// (spec.md §8's "Division by zero" scenario: error `(1, "math")`). It
// shares its number with actor's CodeUnexpectedMessage, but actor.Error's
// kind names apply only to actor's own categories, so e.Error() renders it
// as "error(1, math)". The demo prints the (Code, Category) fields directly.
const codeDivisionByZero actor.Code = 1

var arithmeticCmd = &cobra.Command{
	Use:   "arithmetic",
	Short: "Run the arithmetic request/response and division-by-zero scenarios",
	RunE:  runArithmetic,
}

func runArithmetic(cmd *cobra.Command, args []string) error {
	d, err := bringUp(cmd)
	if err != nil {
		return err
	}
	defer d.shutdown()

	calc := d.sched.Spawn(actor.NewBehavior(
		actor.Case3(func(ctx *actor.HandleContext, op string, a, b int) (int, error) {
			switch op {
			case "add":
				return a + b, nil
			case "div":
				if b == 0 {
					return 0, actor.NewError(codeDivisionByZero, categoryMath, nil)
				}
				return a / b, nil
			default:
				return 0, fmt.Errorf("unknown op %q", op)
			}
		}),
	))
	sender := d.sched.Spawn(actor.NewBehavior())

	addDone := make(chan struct{})
	actor.Ask(calc, sender, 2*time.Second, func(p payload.Payload) {
		v, _ := payload.Get[int](p, 0)
		fmt.Printf("add(3, 4) = %d\n", v)
		close(addDone)
	}, func(e actor.Error) {
		fmt.Printf("add(3, 4): unexpected error: %v\n", e)
		close(addDone)
	}, "add", 3, 4)
	<-addDone

	divDone := make(chan struct{})
	actor.Ask(calc, sender, 2*time.Second, func(p payload.Payload) {
		v, _ := payload.Get[int](p, 0)
		fmt.Printf("div(3, 0): unexpectedly succeeded with %d\n", v)
		close(divDone)
	}, func(e actor.Error) {
		fmt.Printf("div(3, 0) = error(%d, %s)\n", e.Code, e.Category)
		close(divDone)
	}, "div", 3, 0)
	<-divDone

	return nil
}
