package export

import (
	"math"
	"sort"

	"Vedit/core/media"
	"Vedit/core/media/filter"
	"Vedit/model"
)

// DefaultGain applies when a track has no envelope points.
const DefaultGain = 0.5

// TrimWindow returns the input window of a cut track, or nil when the track
// plays from the start. The buffered duration wins over the cut duration.
func TrimWindow(t model.Track) *media.Window {
	if !t.IsCut {
		return nil
	}
	w := &media.Window{Seek: math.Max(t.StartTimeBuffer, 0)}
	switch {
	case t.DurationTimeBuffer > 0:
		w.Duration = t.DurationTimeBuffer
	case t.DurationTimeCut > 0:
		w.Duration = t.DurationTimeCut
	}
	return w
}

// EnvelopeSegments turns volume curves into piecewise-constant gain over
// [0, duration). Each consecutive point pair holds the earlier point's value;
// gaps between curves and the tail hold the last known value, and the span
// before the first point holds the first point's value. A non-positive
// duration means the rendered length is unknown, so the tail is left open
// and holds the last value to the end of the stream.
func EnvelopeSegments(curves []model.VolumeCurve, duration float64) []filter.Segment {
	var usable []model.VolumeCurve
	for _, c := range curves {
		if len(c.Data.Times) > 0 && len(c.Data.Times) == len(c.Data.Values) {
			usable = append(usable, c)
		}
	}
	end := duration
	if end <= 0 {
		end = math.Inf(1)
	}
	if len(usable) == 0 {
		return []filter.Segment{{Start: 0, End: end, Gain: DefaultGain}}
	}
	sort.SliceStable(usable, func(i, j int) bool {
		return usable[i].Data.Times[0] < usable[j].Data.Times[0]
	})

	var segs []filter.Segment
	emit := func(start, stop, gain float64) {
		stop = math.Min(stop, end)
		if stop-start <= 0 {
			return
		}
		segs = append(segs, filter.Segment{Start: start, End: stop, Gain: gain})
	}

	cursor := 0.0
	last := usable[0].Data.Values[0]
	for _, c := range usable {
		times, values := c.Data.Times, c.Data.Values
		if times[0] > cursor {
			emit(cursor, times[0], last)
		}
		for i := 0; i+1 < len(times); i++ {
			emit(math.Max(times[i], cursor), times[i+1], values[i])
		}
		if tail := times[len(times)-1]; tail > cursor {
			cursor = tail
		}
		last = values[len(values)-1]
	}
	if end > cursor {
		emit(cursor, end, last)
	}
	return segs
}

// BuildChain assembles the per-track filters in their fixed order: volume
// envelope, then start delay, then pan. envelopeDuration is the length of the
// rendered input.
func BuildChain(t model.Track, envelopeDuration float64) filter.Chain {
	var chain filter.Chain
	if segs := EnvelopeSegments(t.VolumeValues, envelopeDuration); len(segs) > 0 {
		chain = append(chain, filter.VolumeEnvelope{Segments: segs})
	}
	if t.StartTime > 0 {
		chain = append(chain, filter.DelayFromSeconds(t.StartTime/t.EffectiveStretch()))
	}
	if t.PanValue != 0 {
		chain = append(chain, filter.Pan{Value: t.PanValue})
	}
	return chain
}

// renderedLength is the span the envelope is laid over: the trim window when
// it is bounded, otherwise the track's own duration.
func renderedLength(t model.Track, w *media.Window) float64 {
	if w != nil && w.Duration > 0 {
		return w.Duration
	}
	return t.Duration
}
