package stream

import "github.com/roasbeef/greenroom/internal/baselib/actor"

// Error codes within actor.CategoryStream (spec.md §4.9), numbered from 64
// so they stay apart from actor's own codes (1-10, 100-107). An Error in
// CategoryStream renders through the renderer registered in init below.
const (
	CodeCannotAddUpstream actor.Code = iota + 64
	CodeUpstreamAlreadyExists
	CodeInvalidUpstream
	CodeCannotAddDownstream
	CodeDownstreamAlreadyExists
	CodeInvalidDownstream
	CodeNoDownstreamStagesDefined
	CodeStreamInitFailed
	CodeInvalidStreamState
	CodeUnhandledStreamError
)

var kindNames = map[actor.Code]string{
	CodeCannotAddUpstream:         "cannot_add_upstream",
	CodeUpstreamAlreadyExists:     "upstream_already_exists",
	CodeInvalidUpstream:           "invalid_upstream",
	CodeCannotAddDownstream:       "cannot_add_downstream",
	CodeDownstreamAlreadyExists:   "downstream_already_exists",
	CodeInvalidDownstream:         "invalid_downstream",
	CodeNoDownstreamStagesDefined: "no_downstream_stages_defined",
	CodeStreamInitFailed:          "stream_init_failed",
	CodeInvalidStreamState:        "invalid_stream_state",
	CodeUnhandledStreamError:      "unhandled_stream_error",
}

func newStreamError(code actor.Code, context any) actor.Error {
	return actor.NewError(code, actor.CategoryStream, context)
}

func init() {
	actor.RegisterRenderer(actor.CategoryStream, func(code actor.Code, _ any) string {
		if name, ok := kindNames[code]; ok {
			return name
		}
		return "stream_error"
	})
}
