// Package filter is the structured form of a per-track audio filter chain.
// Stages carry numbers only; turning them into engine syntax is the gateway's job.
package filter

import "math"

type Kind string

const (
	KindVolume Kind = "volume"
	KindDelay  Kind = "delay"
	KindPan    Kind = "pan"
)

// Stage is one typed step of a chain.
type Stage interface {
	Kind() Kind
}

// Chain is applied in order.
type Chain []Stage

// Segment holds a constant gain over [Start, End) seconds. An End of +Inf
// leaves the segment open to the end of the stream.
type Segment struct {
	Start float64
	End   float64
	Gain  float64
}

// Open reports whether the segment runs to the end of the stream.
func (s Segment) Open() bool {
	return math.IsInf(s.End, 1)
}

// Length returns End-Start.
func (s Segment) Length() float64 {
	return s.End - s.Start
}

// VolumeEnvelope is a piecewise-constant gain curve.
type VolumeEnvelope struct {
	Segments []Segment
}

func (VolumeEnvelope) Kind() Kind { return KindVolume }

// Delay shifts the start of the audio on every channel.
type Delay struct {
	Milliseconds int64
}

func (Delay) Kind() Kind { return KindDelay }

// DelayFromSeconds rounds to millisecond precision.
func DelayFromSeconds(seconds float64) Delay {
	return Delay{Milliseconds: int64(math.Round(seconds * 1000))}
}

// Pan attenuates the channel opposite to the pan direction by 1-|Value|.
// Value is in [-1, 1]; negative pans left.
type Pan struct {
	Value float64
}

func (Pan) Kind() Kind { return KindPan }

// Gains returns the left and right channel multipliers.
func (p Pan) Gains() (left, right float64) {
	att := 1 - math.Min(math.Abs(p.Value), 1)
	switch {
	case p.Value > 0:
		return att, 1
	case p.Value < 0:
		return 1, att
	default:
		return 1, 1
	}
}

// Kinds lists the stage kinds in order; handy for assertions and logs.
func (c Chain) Kinds() []Kind {
	kinds := make([]Kind, len(c))
	for i, s := range c {
		kinds[i] = s.Kind()
	}
	return kinds
}
