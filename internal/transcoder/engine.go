package transcoder

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"time"

	"transcode-server/internal/mediatypes"
)

// ErrNoVideoStream marks a source with no decodable video stream. This
// is fatal and non-retryable for the job.
var ErrNoVideoStream = errors.New("no decodable video stream found")

// MediaInfo is the probed metadata of a source file.
type MediaInfo struct {
	Dimensions mediatypes.Dimensions
	Duration   float64 // seconds
	VideoCodec string
	AudioCodec string
}

// Engine abstracts the actual media tooling so the orchestrator can be
// exercised without FFmpeg installed.
type Engine interface {
	// Probe reads stream metadata from the file at path.
	Probe(ctx context.Context, path string) (*MediaInfo, error)

	// EncodeWebM encodes src into a VP9/Opus WebM at dst. target bounds
	// the output dimensions; crf is the VP9 constant-quality parameter.
	EncodeWebM(ctx context.Context, src, dst string, crf int, target mediatypes.Dimensions) error

	// ExtractPoster writes a JPEG poster frame from src at the given
	// offset into the source.
	ExtractPoster(ctx context.Context, src, dst string, offset time.Duration) error
}

// FFmpeg is the production Engine backed by the ffmpeg and ffprobe
// binaries.
type FFmpeg struct {
	FFmpegPath  string
	FFprobePath string
}

// NewFFmpeg returns an engine using the given binary paths, defaulting
// to PATH lookup.
func NewFFmpeg(ffmpegPath, ffprobePath string) *FFmpeg {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &FFmpeg{FFmpegPath: ffmpegPath, FFprobePath: ffprobePath}
}

// ffprobe JSON output, narrowed to the fields we read.
type probeOutput struct {
	Streams []struct {
		CodecType string `json:"codec_type"`
		CodecName string `json:"codec_name"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// Probe runs ffprobe and extracts dimensions, duration, and codecs.
func (f *FFmpeg) Probe(ctx context.Context, path string) (*MediaInfo, error) {
	cmd := exec.CommandContext(ctx, f.FFprobePath,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffprobe error: %w - %s", err, stderr.String())
	}

	var out probeOutput
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		return nil, fmt.Errorf("ffprobe output parse error: %w", err)
	}

	info := &MediaInfo{}
	for _, stream := range out.Streams {
		switch stream.CodecType {
		case "video":
			if info.VideoCodec == "" {
				info.VideoCodec = stream.CodecName
				info.Dimensions = mediatypes.Dimensions{Width: stream.Width, Height: stream.Height}
			}
		case "audio":
			if info.AudioCodec == "" {
				info.AudioCodec = stream.CodecName
			}
		}
	}

	if info.VideoCodec == "" || info.Dimensions.IsZero() {
		return nil, ErrNoVideoStream
	}

	if out.Format.Duration != "" {
		info.Duration, _ = strconv.ParseFloat(out.Format.Duration, 64)
	}

	return info, nil
}

// EncodeWebM runs a single VP9/Opus encode at the given CRF. Constant
// quality mode (-b:v 0) with row multithreading; audio is resampled to
// stereo 48 kHz Opus.
func (f *FFmpeg) EncodeWebM(ctx context.Context, src, dst string, crf int, target mediatypes.Dimensions) error {
	args := []string{
		"-i", src,
		"-c:v", "libvpx-vp9",
		"-crf", strconv.Itoa(crf),
		"-b:v", "0",
		"-row-mt", "1",
		"-deadline", "good",
		"-c:a", "libopus",
		"-b:a", "128k",
		"-ar", "48000",
		"-ac", "2",
	}
	if !target.IsZero() {
		args = append(args, "-vf", fmt.Sprintf("scale=%d:%d", target.Width, target.Height))
	}
	args = append(args, "-f", "webm", "-y", dst)

	return f.run(ctx, args)
}

// ExtractPoster grabs one frame at offset as a JPEG.
func (f *FFmpeg) ExtractPoster(ctx context.Context, src, dst string, offset time.Duration) error {
	args := []string{
		"-ss", fmt.Sprintf("%.3f", offset.Seconds()),
		"-i", src,
		"-frames:v", "1",
		"-q:v", "2",
		"-y", dst,
	}
	return f.run(ctx, args)
}

func (f *FFmpeg) run(ctx context.Context, args []string) error {
	cmd := exec.CommandContext(ctx, f.FFmpegPath, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("ffmpeg error: %w - %s", err, tail(stderr.String(), 512))
	}
	return nil
}

// tail returns the last n bytes of s; ffmpeg stderr can be huge and only
// the end matters.
func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
