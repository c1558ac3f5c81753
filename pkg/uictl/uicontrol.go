// Package uictl defines small control interfaces that let UI code read and
// adjust state it does not own.
package uictl

import "golang.org/x/exp/constraints"

type Number interface {
	constraints.Integer | constraints.Float
}

// Knob is a simple on/off toggle control.
type Knob interface {
	Read() bool
	On()
	Off()
	Toggle()
}

// Dial is a control that can read some value.
type Dial[N Number] interface {
	Read() N
}

// Stepper is a Dial that can be nudged up or down.
type Stepper[N Number] interface {
	Dial[N]
	Step(delta N)
}

// Clamp limits v to [lo, hi].
func Clamp[N Number](v, lo, hi N) N {
	return max(lo, min(v, hi))
}
