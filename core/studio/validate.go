package studio

import (
	"Vedit/apperr"
	"Vedit/model"
	"Vedit/validators"
)

// Stretch bounds.
const (
	MinStretchRatio = 0.25
	MaxStretchRatio = 4
	MinPitch        = -12
	MaxPitch        = 12
)

func validateTrack(id string, t model.Track) error {
	if id == "" {
		return apperr.Validation("track id is required")
	}
	if err := validators.Struct(t); err != nil {
		return err
	}
	for i, c := range t.VolumeValues {
		if err := c.Validate(); err != nil {
			return apperr.Wrap(apperr.CodeValidation, err, "invalid volume curve").
				WithDetails(map[string]any{"track": id, "curve": i})
		}
	}
	return nil
}

func validateStretch(ratio, pitch float64) error {
	if ratio < MinStretchRatio || ratio > MaxStretchRatio {
		return apperr.Validation("stretch ratio must be between %g and %g", float64(MinStretchRatio), float64(MaxStretchRatio))
	}
	if pitch < MinPitch || pitch > MaxPitch {
		return apperr.Validation("pitch must be between %d and %d semitones", MinPitch, MaxPitch)
	}
	return nil
}
