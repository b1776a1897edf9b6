package studio

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"Vedit/apperr"
	"Vedit/core/jobs"
	"Vedit/model"
)

// StretchRequest asks for a time-stretched, pitch-shifted copy of a library file.
type StretchRequest struct {
	Name  string  `json:"name" validate:"required"`
	Ratio float64 `json:"ratio" validate:"gte=0.25,lte=4"`
	Pitch float64 `json:"pitch" validate:"gte=-12,lte=12"`
}

// StretchOutputName is the library name of the stretched copy.
func StretchOutputName(name string, ratio, pitch float64) string {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	return fmt.Sprintf("%s_x%s_p%s.wav", base,
		strconv.FormatFloat(ratio, 'f', -1, 64),
		strconv.FormatFloat(pitch, 'f', -1, 64))
}

// Stretch starts a background job writing the stretched copy into the
// library. The returned job id is what StretchStatus polls.
func (s *Service) Stretch(ctx context.Context, project string, req StretchRequest) (model.Job, error) {
	if err := validateStretch(req.Ratio, req.Pitch); err != nil {
		return model.Job{}, err
	}
	input, err := s.LibraryFilePath(project, req.Name)
	if err != nil {
		return model.Job{}, err
	}
	outName := StretchOutputName(filepath.Base(input), req.Ratio, req.Pitch)
	output, err := s.layout.LibraryPath(project, outName)
	if err != nil {
		return model.Job{}, err
	}

	key := jobs.Key(KindStretch, project, outName)
	return s.jobs.Run(ctx, KindStretch, key, func(ctx context.Context) (string, error) {
		if err := s.stretch(ctx, project, input, output, req); err != nil {
			return "", err
		}
		s.log.Info("stretch complete", zap.String("project", project), zap.String("output", outName))
		return outName, nil
	})
}

func (s *Service) stretch(ctx context.Context, project, input, output string, req StretchRequest) error {
	work := s.layout.WorkDir(project, "stretch-"+uuid.NewString())
	if err := os.MkdirAll(work, 0755); err != nil {
		return apperr.Wrap(apperr.CodeInternal, err, "create stretch work directory")
	}
	defer func() {
		if err := os.RemoveAll(work); err != nil {
			s.log.Warn("stretch cleanup failed", zap.String("dir", work), zap.Error(err))
		}
	}()

	src := input
	if !strings.EqualFold(filepath.Ext(input), ".wav") {
		src = filepath.Join(work, "source.wav")
		if err := s.engine.DecodeWAV(ctx, input, src); err != nil {
			return err
		}
	}
	staged := filepath.Join(work, "stretched.wav")
	if err := s.engine.Stretch(ctx, src, staged, req.Ratio, req.Pitch); err != nil {
		return err
	}
	if err := os.Rename(staged, output); err != nil {
		return apperr.Wrap(apperr.CodeInternal, err, "store stretched file")
	}
	return nil
}

// StretchStatus reports the job that produces the named output.
func (s *Service) StretchStatus(ctx context.Context, project, outName string) (model.Job, error) {
	if _, err := s.projects.Get(project); err != nil {
		return model.Job{}, err
	}
	return s.jobs.Status(ctx, jobs.Key(KindStretch, project, outName))
}
