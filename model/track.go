package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// OriginalAudioRef marks a track that plays the project's extracted source audio
// rather than a file from the audio library.
const OriginalAudioRef TrackRef = "-1"

// TrackRef identifies the media behind a timeline entry. Clients send it either
// as a JSON number or a string, so both are accepted.
type TrackRef string

func (r TrackRef) IsOriginal() bool {
	return r == OriginalAudioRef
}

func (r TrackRef) String() string {
	return string(r)
}

func (r *TrackRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*r = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*r = TrackRef(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("idTrack must be a string or number: %w", err)
	}
	if i, err := n.Int64(); err == nil {
		*r = TrackRef(strconv.FormatInt(i, 10))
		return nil
	}
	*r = TrackRef(n.String())
	return nil
}

func (r TrackRef) MarshalJSON() ([]byte, error) {
	if i, err := strconv.ParseInt(string(r), 10, 64); err == nil {
		return []byte(strconv.FormatInt(i, 10)), nil
	}
	return json.Marshal(string(r))
}

// Track is one audio clip placed on a project's timeline.
type Track struct {
	IDTrack            TrackRef      `json:"idTrack"`
	Name               string        `json:"name" validate:"required"`
	Duration           float64       `json:"duration" validate:"gte=0"`
	StartTime          float64       `json:"startTime" validate:"gte=0"`
	StretchFactor      float64       `json:"stretchFactor" validate:"gte=0"`
	Pitch              float64       `json:"pitch"`
	PanValue           float64       `json:"panValue" validate:"gte=-1,lte=1"`
	IsCut              bool          `json:"isCut"`
	StartTimeBuffer    float64       `json:"startTimeBuffer" validate:"gte=0"`
	DurationTimeBuffer float64       `json:"durationTimeBuffer"`
	DurationTimeCut    float64       `json:"durationTimeCut"`
	VolumeValues       []VolumeCurve `json:"volumeValues" validate:"dive"`
}

// EffectiveStretch returns the stretch ratio, treating unset values as 1.
func (t Track) EffectiveStretch() float64 {
	if t.StretchFactor <= 0 {
		return 1
	}
	return t.StretchFactor
}

// VolumeCurve is one envelope curve drawn on a track.
type VolumeCurve struct {
	Data VolumePoints `json:"data"`
}

// VolumePoints holds parallel arrays; Times must be strictly increasing.
type VolumePoints struct {
	Times  []float64 `json:"times"`
	Values []float64 `json:"values"`
}

// Validate checks the curve invariants that struct tags cannot express.
func (c VolumeCurve) Validate() error {
	if len(c.Data.Times) != len(c.Data.Values) {
		return fmt.Errorf("volume curve has %d times but %d values", len(c.Data.Times), len(c.Data.Values))
	}
	for i := 1; i < len(c.Data.Times); i++ {
		if c.Data.Times[i] <= c.Data.Times[i-1] {
			return fmt.Errorf("volume curve times must be strictly increasing (index %d)", i)
		}
	}
	return nil
}

// TrackFilter is the listing state persisted with the timeline.
type TrackFilter struct {
	Name string `json:"name"`
	Sort string `json:"sort"`
	Page int    `json:"page"`
}

// TrackListDocument is the per-project timeline document.
type TrackListDocument struct {
	Tracks map[string]Track `json:"tracks"`
	Filter TrackFilter      `json:"filter"`
}

// NewTrackListDocument returns an empty document with a non-nil track map.
func NewTrackListDocument() *TrackListDocument {
	return &TrackListDocument{Tracks: make(map[string]Track)}
}

// TrackEntry is a track together with its timeline id, as returned by listings.
type TrackEntry struct {
	ID string `json:"id"`
	Track
}

// TrackPage is one page of a filtered track listing.
type TrackPage struct {
	Tracks   []TrackEntry `json:"tracks"`
	Total    int          `json:"total"`
	Page     int          `json:"page"`
	PageSize int          `json:"pageSize"`
}
