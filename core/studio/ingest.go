package studio

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"Vedit/apperr"
	"Vedit/core/jobs"
	"Vedit/core/thumbs"
	"Vedit/core/upload"
	"Vedit/metrics"
	"Vedit/model"
	"Vedit/storage"
)

// TestChunk reports whether a chunk has already been received.
func (s *Service) TestChunk(project, identifier string, chunkNumber int) (bool, error) {
	if _, err := s.projects.Get(project); err != nil {
		return false, err
	}
	return s.assembler.ChunkExists(scopedIdentifier(project, identifier), chunkNumber), nil
}

// scopedIdentifier keeps identical client identifiers in different projects apart.
func scopedIdentifier(project, identifier string) string {
	return project + "_" + upload.SanitizeIdentifier(identifier)
}

// ReceiveChunk stores one chunk. The request that completes the upload
// assembles it, records pending metadata and starts background conversion;
// concurrent completions are admitted once.
func (s *Service) ReceiveChunk(ctx context.Context, project string, chunk model.FlowChunk, body io.Reader) (*model.UploadState, error) {
	if _, err := s.projects.Get(project); err != nil {
		return nil, err
	}
	total := upload.TotalChunks(chunk.TotalSize, chunk.ChunkSize)
	if chunk.ChunkNumber < 1 || chunk.ChunkNumber > total {
		return nil, apperr.Validation("chunk %d is outside 1..%d", chunk.ChunkNumber, total)
	}
	name, err := storage.CleanName(filepath.Base(chunk.Filename))
	if err != nil {
		return nil, err
	}

	id := scopedIdentifier(project, chunk.Identifier)
	if _, err := s.assembler.SaveChunk(body, chunk.ChunkNumber, id); err != nil {
		return nil, err
	}
	metrics.ChunksReceivedTotal.Inc()

	state := &model.UploadState{
		Identifier:  chunk.Identifier,
		ChunkNumber: chunk.ChunkNumber,
		TotalChunks: total,
	}
	if !s.assembler.AllChunksExist(total, id) {
		return state, nil
	}

	key := jobs.Key(KindUpload, project, id)
	admitted, err := s.admission.Admit(ctx, key)
	if err != nil {
		return nil, err
	}
	state.Complete = true
	if !admitted {
		s.log.Debug("upload completion already admitted", zap.String("project", project), zap.String("identifier", id))
		return state, nil
	}

	meta, err := s.ingest(ctx, project, id, total, name)
	if err != nil {
		_ = s.admission.Release(ctx, key)
		return nil, err
	}
	state.Metadata = meta
	return state, nil
}

// ingest holds the project's conversion slot before touching the source or
// its metadata, so a running conversion never sees its record replaced. A
// rejected upload keeps its chunks and can be completed again later.
func (s *Service) ingest(ctx context.Context, project, id string, total int, name string) (*model.VideoMetadata, error) {
	key := jobs.Key(KindConvert, project, "video")
	admitted, err := s.jobs.Claim(ctx, key)
	if err != nil {
		return nil, err
	}
	if !admitted {
		return nil, apperr.Conflict("project %s is still converting a previous upload", project)
	}

	meta, err := s.prepare(ctx, project, id, total, name)
	if err != nil {
		if rerr := s.jobs.Release(context.WithoutCancel(ctx), key); rerr != nil {
			s.log.Error("failed to release conversion slot", zap.String("key", key), zap.Error(rerr))
		}
		return nil, err
	}

	source := filepath.Join(s.layout.SourceDir(project), name)
	probed := *meta
	s.jobs.Start(ctx, KindConvert, key, func(ctx context.Context) (string, error) {
		return s.convert(ctx, project, source, probed)
	})
	s.log.Info("upload ingested",
		zap.String("project", project),
		zap.String("file", name),
		zap.Float64("duration", meta.Duration))
	return meta, nil
}

// prepare assembles the source and records its pending metadata.
func (s *Service) prepare(ctx context.Context, project, id string, total int, name string) (*model.VideoMetadata, error) {
	source := filepath.Join(s.layout.SourceDir(project), name)
	err := s.assembler.Assemble(id, total, source)
	s.assembler.Clean(id)
	metrics.UploadsAssembledTotal.WithLabelValues(metrics.Result(err)).Inc()
	if err != nil {
		return nil, err
	}

	meta := s.describe(ctx, source, name)
	if err := s.metadata.Save(project, meta); err != nil {
		return nil, err
	}
	return meta, nil
}

// describe probes the assembled file. A failed probe still yields a pending
// record with what the file system knows.
func (s *Service) describe(ctx context.Context, source, name string) *model.VideoMetadata {
	meta := &model.VideoMetadata{
		Status:   model.VideoPending,
		FileName: name,
		Size:     fileSize(source),
	}
	probe, err := s.engine.Probe(ctx, source)
	if err != nil {
		s.log.Warn("probe failed, keeping partial metadata", zap.String("file", name), zap.Error(err))
		return meta
	}
	if d, err := probe.Duration(); err == nil {
		meta.Duration = d
	}
	if size := probe.Size(); size > 0 {
		meta.Size = size
	}
	meta.Format = probe.Format.FormatName
	meta.Tags = probe.Format.Tags
	meta.HasAudio = probe.HasAudio()
	if v := probe.VideoStream(); v != nil {
		meta.Width = v.Width
		meta.Height = v.Height
	}
	for _, st := range probe.Streams {
		meta.Streams = append(meta.Streams, model.StreamInfo{
			Index:     st.Index,
			CodecType: st.CodecType,
			CodecName: st.CodecName,
			Width:     st.Width,
			Height:    st.Height,
			Channels:  st.Channels,
		})
	}
	return meta
}

// convert produces the muted rendition, the extracted original audio and the
// thumbnail tiles, then publishes the outcome through the metadata status.
func (s *Service) convert(ctx context.Context, project, source string, meta model.VideoMetadata) (string, error) {
	hasThumbs, err := s.renderResources(ctx, project, source, meta)
	_, uerr := s.metadata.Update(project, func(m *model.VideoMetadata) error {
		if err != nil {
			m.Status = model.VideoError
			m.Error = err.Error()
			return nil
		}
		m.Status = model.VideoReady
		m.Error = ""
		m.Thumbnails = hasThumbs
		return nil
	})
	if err != nil {
		return "", err
	}
	if uerr != nil {
		return "", uerr
	}

	p, err := s.projects.Get(project)
	if err != nil {
		return "", err
	}
	p.IsVideoLoaded = true
	if err := s.projects.Update(*p); err != nil {
		return "", err
	}
	return storage.VideoFile, nil
}

// renderResources reports whether any thumbnails were produced.
func (s *Service) renderResources(ctx context.Context, project, source string, meta model.VideoMetadata) (bool, error) {
	video := s.layout.VideoPath(project)
	if err := s.engine.ConvertVideo(ctx, source, video); err != nil {
		return false, err
	}
	if meta.HasAudio {
		if err := s.engine.ExtractAudio(ctx, source, s.layout.OriginalAudioPath(project)); err != nil {
			return false, err
		}
	}

	dir := s.layout.ThumbsDir(project)
	if err := os.RemoveAll(dir); err != nil {
		return false, apperr.Wrap(apperr.CodeInternal, err, "clear thumbnails")
	}
	res, err := s.thumbs.Generate(ctx, thumbs.Source{
		Path:     video,
		Duration: meta.Duration,
		Width:    meta.Width,
		Height:   meta.Height,
	}, dir)
	if err != nil {
		return false, err
	}
	if res.TileErr != nil {
		s.log.Warn("some thumbnail tiles failed", zap.String("project", project), zap.Error(res.TileErr))
	}
	return !res.Empty(), nil
}

// DeleteVideo removes the uploaded video and everything derived from it.
// The project, its timeline and its library stay.
func (s *Service) DeleteVideo(ctx context.Context, project string) error {
	p, err := s.projects.Get(project)
	if err != nil {
		return err
	}
	for _, dir := range []string{s.layout.ResourcesDir(project), s.layout.ThumbsDir(project), s.layout.PublishedDir(project)} {
		if err := os.RemoveAll(dir); err != nil {
			return apperr.Wrap(apperr.CodeInternal, err, "remove video resources")
		}
	}
	if err := s.metadata.Delete(project); err != nil {
		return err
	}
	if err := s.publisher.Remove(ctx, project); err != nil {
		s.log.Error("failed to remove mirrored files", zap.String("project", project), zap.Error(err))
	}
	p.IsVideoLoaded = false
	if err := s.projects.Update(*p); err != nil {
		return err
	}
	s.log.Info("video deleted", zap.String("project", project))
	return nil
}
