package media

import (
	"fmt"
	"strconv"
	"strings"

	"Vedit/core/media/filter"
)

// FilterGraph renders a chain as an ffmpeg -af expression. Zero-length
// envelope segments produce nothing; open segments are enabled from their
// start onwards.
func FilterGraph(chain filter.Chain) string {
	var parts []string
	for _, stage := range chain {
		switch s := stage.(type) {
		case filter.VolumeEnvelope:
			for _, seg := range s.Segments {
				if seg.Length() <= 0 {
					continue
				}
				if seg.Open() {
					if seg.Start <= 0 {
						parts = append(parts, "volume="+formatNumber(seg.Gain))
					} else {
						parts = append(parts, fmt.Sprintf("volume=%s:enable='gte(t,%s)'",
							formatNumber(seg.Gain), formatNumber(seg.Start)))
					}
					continue
				}
				parts = append(parts, fmt.Sprintf("volume=%s:enable='gte(t,%s)*lt(t,%s)'",
					formatNumber(seg.Gain), formatNumber(seg.Start), formatNumber(seg.End)))
			}
		case filter.Delay:
			if s.Milliseconds <= 0 {
				continue
			}
			ms := strconv.FormatInt(s.Milliseconds, 10)
			parts = append(parts, "adelay="+ms+"|"+ms)
		case filter.Pan:
			left, right := s.Gains()
			parts = append(parts, fmt.Sprintf("pan=stereo|c0=%s*c0|c1=%s*c1", formatNumber(left), formatNumber(right)))
		}
	}
	return strings.Join(parts, ",")
}

// formatNumber prints at most millisecond precision without trailing zeros.
func formatNumber(v float64) string {
	s := strconv.FormatFloat(v, 'f', 3, 64)
	s = strings.TrimRight(s, "0")
	s = strings.TrimSuffix(s, ".")
	if s == "-0" || s == "" {
		return "0"
	}
	return s
}
