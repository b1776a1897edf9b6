package media

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// ProbeResult is the subset of ffprobe's JSON report the editor reads.
type ProbeResult struct {
	Format  ProbeFormat   `json:"format"`
	Streams []ProbeStream `json:"streams"`
}

type ProbeFormat struct {
	Filename   string            `json:"filename"`
	FormatName string            `json:"format_name"`
	Duration   string            `json:"duration"`
	Size       string            `json:"size"`
	BitRate    string            `json:"bit_rate"`
	Tags       map[string]string `json:"tags"`
}

type ProbeStream struct {
	Index      int               `json:"index"`
	CodecType  string            `json:"codec_type"`
	CodecName  string            `json:"codec_name"`
	Width      int               `json:"width,omitempty"`
	Height     int               `json:"height,omitempty"`
	Channels   int               `json:"channels,omitempty"`
	SampleRate string            `json:"sample_rate,omitempty"`
	Duration   string            `json:"duration,omitempty"`
	Tags       map[string]string `json:"tags,omitempty"`
}

func parseProbe(raw []byte) (*ProbeResult, error) {
	var res ProbeResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, fmt.Errorf("failed to unmarshal ffprobe output: %w", err)
	}
	return &res, nil
}

// Duration returns the container duration in seconds.
func (p *ProbeResult) Duration() (float64, error) {
	if p.Format.Duration == "" {
		for _, s := range p.Streams {
			if s.Duration != "" {
				return strconv.ParseFloat(s.Duration, 64)
			}
		}
		return 0, fmt.Errorf("no duration reported")
	}
	return strconv.ParseFloat(p.Format.Duration, 64)
}

// Size returns the container size in bytes, or 0 when not reported.
func (p *ProbeResult) Size() int64 {
	n, _ := strconv.ParseInt(p.Format.Size, 10, 64)
	return n
}

// VideoStream returns the first video stream, or nil.
func (p *ProbeResult) VideoStream() *ProbeStream {
	for i := range p.Streams {
		if p.Streams[i].CodecType == "video" {
			return &p.Streams[i]
		}
	}
	return nil
}

// HasAudio reports whether any audio stream is present.
func (p *ProbeResult) HasAudio() bool {
	for _, s := range p.Streams {
		if s.CodecType == "audio" {
			return true
		}
	}
	return false
}
