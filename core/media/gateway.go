// Package media wraps the external transcoder, prober and time-stretch tools.
// Every invocation the editor makes goes through Gateway.
package media

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"go.uber.org/zap"

	"Vedit/apperr"
	"Vedit/core/media/filter"
)

// Audio intermediates are 16-bit stereo PCM at this rate.
const sampleRate = "44100"

// Paths locates the external tools.
type Paths struct {
	FFmpeg  string
	FFprobe string
	Stretch string
}

// Gateway builds engine invocations and runs them through a Runner.
type Gateway struct {
	paths  Paths
	runner Runner
	log    *zap.Logger
}

// NewGateway returns a gateway; a nil runner executes real processes.
func NewGateway(paths Paths, runner Runner, log *zap.Logger) *Gateway {
	if runner == nil {
		runner = ExecRunner{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Gateway{paths: paths, runner: runner, log: log.Named("media")}
}

// Window selects a portion of the input. Zero Duration means "to the end".
type Window struct {
	Seek     float64
	Duration float64
}

// RenderRequest describes one per-track audio render.
type RenderRequest struct {
	Input   string
	Output  string
	Trim    *Window
	Filters filter.Chain
}

// TileRequest describes one thumbnail mosaic.
type TileRequest struct {
	Input    string
	Output   string
	Start    float64
	Duration float64
	FPS      float64
	Width    int
	Height   int
	Cols     int
	Rows     int
}

// Probe reads container and stream metadata.
func (g *Gateway) Probe(ctx context.Context, input string) (*ProbeResult, error) {
	args := []string{
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		input,
	}
	out, err := g.runner.Run(ctx, g.paths.FFprobe, args...)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, err, fmt.Sprintf("probe %s", filepath.Base(input)))
	}
	res, err := parseProbe(out)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, err, "probe output")
	}
	return res, nil
}

// ExtractAudio writes the input's first audio stream as PCM WAV.
func (g *Gateway) ExtractAudio(ctx context.Context, input, output string) error {
	return g.ffmpeg(ctx, "extract-audio", output, pcmArgs(input, output))
}

// DecodeWAV converts any audio file to the PCM WAV intermediate format.
func (g *Gateway) DecodeWAV(ctx context.Context, input, output string) error {
	return g.ffmpeg(ctx, "decode-wav", output, pcmArgs(input, output))
}

func pcmArgs(input, output string) []string {
	return []string{
		"-y",
		"-i", input,
		"-vn",
		"-ac", "2",
		"-ar", sampleRate,
		"-c:a", "pcm_s16le",
		output,
	}
}

// ConvertVideo re-encodes the input to a silent H.264 MP4 suitable for browser playback.
func (g *Gateway) ConvertVideo(ctx context.Context, input, output string) error {
	args := []string{
		"-y",
		"-i", input,
		"-an",
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-pix_fmt", "yuv420p",
		"-movflags", "+faststart",
		output,
	}
	return g.ffmpeg(ctx, "convert-video", output, args)
}

// RenderArgs builds the ffmpeg arguments for a per-track render.
func RenderArgs(req RenderRequest) []string {
	args := []string{"-y"}
	if req.Trim != nil {
		args = append(args, "-ss", formatNumber(req.Trim.Seek))
		if req.Trim.Duration > 0 {
			args = append(args, "-t", formatNumber(req.Trim.Duration))
		}
	}
	args = append(args, "-i", req.Input)
	if graph := FilterGraph(req.Filters); graph != "" {
		args = append(args, "-af", graph)
	}
	args = append(args, "-ac", "2", "-ar", sampleRate, "-c:a", "pcm_s16le", req.Output)
	return args
}

// RenderAudio trims and filters one track into a WAV.
func (g *Gateway) RenderAudio(ctx context.Context, req RenderRequest) error {
	return g.ffmpeg(ctx, "render-audio", req.Output, RenderArgs(req))
}

// StretchArgs builds the time-stretch tool arguments.
func StretchArgs(input, output string, ratio, pitch float64) []string {
	return []string{
		"-t", strconv.FormatFloat(ratio, 'f', -1, 64),
		"-p", strconv.FormatFloat(pitch, 'f', -1, 64),
		input,
		output,
	}
}

// Stretch changes duration by ratio and shifts pitch by semitones.
func (g *Gateway) Stretch(ctx context.Context, input, output string, ratio, pitch float64) error {
	if err := ensureParent(output); err != nil {
		return err
	}
	args := StretchArgs(input, output, ratio, pitch)
	g.log.Debug("executing stretch", zap.Strings("args", args))
	if _, err := g.runner.Run(ctx, g.paths.Stretch, args...); err != nil {
		return apperr.Wrap(apperr.CodeInternal, err, "stretch")
	}
	return nil
}

// MixArgs builds the mixdown arguments. amix divides each input by the
// input count, so the result is scaled back by the same factor.
func MixArgs(inputs []string, output string, duration float64) []string {
	args := []string{"-y"}
	for _, in := range inputs {
		args = append(args, "-i", in)
	}
	n := strconv.Itoa(len(inputs))
	args = append(args,
		"-filter_complex", fmt.Sprintf("amix=inputs=%s:duration=longest:dropout_transition=0,volume=%s", n, n),
	)
	if duration > 0 {
		args = append(args, "-t", formatNumber(duration))
	}
	args = append(args, "-c:a", "aac", "-b:a", "192k", output)
	return args
}

// MixDown sums rendered tracks into one audio file capped at duration.
func (g *Gateway) MixDown(ctx context.Context, inputs []string, output string, duration float64) error {
	if len(inputs) == 0 {
		return apperr.Validation("mixdown needs at least one input")
	}
	return g.ffmpeg(ctx, "mixdown", output, MixArgs(inputs, output, duration))
}

// MuxArgs builds the stream-copy mux arguments.
func MuxArgs(video, audio, output string, duration float64) []string {
	args := []string{
		"-y",
		"-i", video,
		"-i", audio,
		"-map", "0:v:0",
		"-map", "1:a:0",
		"-c:v", "copy",
		"-c:a", "copy",
	}
	if duration > 0 {
		args = append(args, "-t", formatNumber(duration))
	}
	return append(args, "-movflags", "+faststart", output)
}

// Mux combines the video stream with a mixed audio track without re-encoding.
func (g *Gateway) Mux(ctx context.Context, video, audio, output string, duration float64) error {
	return g.ffmpeg(ctx, "mux", output, MuxArgs(video, audio, output, duration))
}

// CopyVideo writes only the video stream of input to output.
func (g *Gateway) CopyVideo(ctx context.Context, input, output string) error {
	args := []string{
		"-y",
		"-i", input,
		"-map", "0:v:0",
		"-c:v", "copy",
		"-an",
		"-movflags", "+faststart",
		output,
	}
	return g.ffmpeg(ctx, "copy-video", output, args)
}

// TileArgs builds the arguments for one thumbnail mosaic.
func TileArgs(req TileRequest) []string {
	vf := fmt.Sprintf("fps=%s,scale=%d:%d,tile=%dx%d",
		formatNumber(req.FPS), req.Width, req.Height, req.Cols, req.Rows)
	return []string{
		"-y",
		"-ss", formatNumber(req.Start),
		"-t", formatNumber(req.Duration),
		"-i", req.Input,
		"-vf", vf,
		"-frames:v", "1",
		"-q:v", "4",
		req.Output,
	}
}

// Tile renders one mosaic image.
func (g *Gateway) Tile(ctx context.Context, req TileRequest) error {
	return g.ffmpeg(ctx, "tile", req.Output, TileArgs(req))
}

// Frame extracts the single frame at the given second as an image.
func (g *Gateway) Frame(ctx context.Context, input, output string, at float64) error {
	args := []string{
		"-y",
		"-ss", formatNumber(at),
		"-i", input,
		"-frames:v", "1",
		"-q:v", "2",
		output,
	}
	return g.ffmpeg(ctx, "frame", output, args)
}

func (g *Gateway) ffmpeg(ctx context.Context, op, output string, args []string) error {
	if err := ensureParent(output); err != nil {
		return err
	}
	g.log.Debug("executing ffmpeg", zap.String("op", op), zap.Strings("args", args))
	if _, err := g.runner.Run(ctx, g.paths.FFmpeg, args...); err != nil {
		return apperr.Wrap(apperr.CodeInternal, err, op)
	}
	return nil
}

func ensureParent(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return apperr.Wrap(apperr.CodeInternal, err, fmt.Sprintf("create output directory %s", dir))
	}
	return nil
}
