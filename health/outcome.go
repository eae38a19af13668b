package health

import "context"

// Check reports the health of the host service. A non-nil error fails the
// check and its message becomes the payload output.
type Check func(ctx context.Context) (Outcome, error)

// Outcome is what a Check returns on success: a Bool, a Text or an Other.
// A nil Outcome is treated as absent and classifies as fail.
type Outcome interface {
	outcome()
}

// Bool is a boolean outcome. Only Bool(true) passes.
type Bool bool

// Text is a textual outcome. Only Pass and Warn are healthy.
type Text string

const (
	Pass Text = "pass"
	Warn Text = "warn"
	Fail Text = "fail"
)

type other struct{ v any }

func (Bool) outcome()  {}
func (Text) outcome()  {}
func (other) outcome() {}

// Other wraps any value that is neither a bool nor a string, e.g. the number 1.
// Such outcomes always classify as fail.
func Other(v any) Outcome { return other{v: v} }

// OutcomeOf lifts a dynamic value into an Outcome.
func OutcomeOf(v any) Outcome {
	switch x := v.(type) {
	case nil:
		return nil
	case Outcome:
		return x
	case bool:
		return Bool(x)
	case string:
		return Text(x)
	default:
		return Other(v)
	}
}
