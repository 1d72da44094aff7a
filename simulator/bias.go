package simulator

import "math"

// Bias accumulates corrective feedback. The automation controller adds to it
// and the simulator consumes and decays it once per tick, so every nudge
// fades out instead of turning into permanent drift.
type Bias struct {
	value     float64
	decay     float64
	snapBelow float64
}

func NewBias(decay, snapBelow float64) Bias {
	if decay <= 0 || decay >= 1 {
		decay = 0.95
	}
	if snapBelow <= 0 {
		snapBelow = 0.1
	}
	return Bias{decay: decay, snapBelow: snapBelow}
}

func (b *Bias) Add(delta float64) { b.value += delta }

func (b *Bias) Value() float64 { return b.value }

// Consume returns the current bias and decays it for the next tick. Once the
// magnitude is at or below the snap threshold the bias becomes exactly zero.
func (b *Bias) Consume() float64 {
	v := b.value
	if math.Abs(b.value) > b.snapBelow {
		b.value *= b.decay
	} else {
		b.value = 0
	}
	return v
}
