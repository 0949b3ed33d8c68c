package util

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"video-redub/log"
)

// FFmpeg wraps the ffmpeg / ffprobe binaries resolved at startup.
type FFmpeg struct {
	FfmpegPath  string
	FfprobePath string
	// run executes the prepared command and returns its output, stdout only
	// when the caller routed cmd.Stderr elsewhere; swapped in tests
	run func(cmd *exec.Cmd) ([]byte, error)
}

func NewFFmpeg(ffmpegPath, ffprobePath string) *FFmpeg {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &FFmpeg{
		FfmpegPath:  ffmpegPath,
		FfprobePath: ffprobePath,
		run: func(cmd *exec.Cmd) ([]byte, error) {
			if cmd.Stderr != nil {
				return cmd.Output()
			}
			return cmd.CombinedOutput()
		},
	}
}

// WithRunner returns a copy that executes commands through run.
func (f *FFmpeg) WithRunner(run func(cmd *exec.Cmd) ([]byte, error)) *FFmpeg {
	clone := *f
	clone.run = run
	return &clone
}

func (f *FFmpeg) ffmpeg(ctx context.Context, args ...string) error {
	cmd := exec.CommandContext(ctx, f.FfmpegPath, args...)
	output, err := f.run(cmd)
	if err != nil {
		log.GetLogger().Error("ffmpeg 执行失败", zap.Strings("args", args), zap.String("output", tail(string(output), 2000)), zap.Error(err))
		return fmt.Errorf("ffmpeg: %w: %s", err, tail(strings.TrimSpace(string(output)), 500))
	}
	return nil
}

// ExtractSpeechTrack 把音频处理成单声道、16k采样率的 mp3，用于云端语音识别
func (f *FFmpeg) ExtractSpeechTrack(ctx context.Context, input, output string) error {
	return f.ffmpeg(ctx, "-y", "-i", input, "-vn", "-ac", "1", "-ar", "16000", "-b:a", "192k", output)
}

// DecodeToWav decodes the first audio stream of input into 16-bit PCM WAV.
func (f *FFmpeg) DecodeToWav(ctx context.Context, input, output string, sampleRate, channels int) error {
	return f.ffmpeg(ctx, "-y", "-i", input, "-vn", "-map", "0:a:0",
		"-ac", strconv.Itoa(channels), "-ar", strconv.Itoa(sampleRate),
		"-c:a", "pcm_s16le", "-f", "wav", output)
}

// MuxRequest describes one mux of an untouched video stream with a new audio track.
type MuxRequest struct {
	Video        string
	Audio        string
	Output       string
	Duration     float64
	VideoArgs    []string
	AudioCodec   string
	AudioBitrate string
}

func (r MuxRequest) Args() []string {
	args := []string{"-y", "-i", r.Video, "-i", r.Audio, "-map", "0:v:0", "-map", "1:a:0"}
	args = append(args, r.VideoArgs...)

	codec := r.AudioCodec
	if codec == "" {
		codec = "aac"
	}
	args = append(args, "-c:a", codec)
	if r.AudioBitrate != "" {
		args = append(args, "-b:a", r.AudioBitrate)
	}
	if r.Duration > 0 {
		args = append(args, "-t", strconv.FormatFloat(r.Duration, 'f', 3, 64))
	}
	return append(args, r.Output)
}

func (f *FFmpeg) Mux(ctx context.Context, req MuxRequest) error {
	return f.ffmpeg(ctx, req.Args()...)
}

// Encoders lists the encoders compiled into ffmpeg.
func (f *FFmpeg) Encoders(ctx context.Context) (string, error) {
	cmd := exec.CommandContext(ctx, f.FfmpegPath, "-hide_banner", "-encoders")
	output, err := f.run(cmd)
	if err != nil {
		return "", fmt.Errorf("ffmpeg -encoders: %w", err)
	}
	return string(output), nil
}

// ProbeResult is the subset of ffprobe output the pipeline reads.
type ProbeResult struct {
	Streams []ProbeStream `json:"streams"`
	Format  ProbeFormat   `json:"format"`
}

type ProbeStream struct {
	Index      int    `json:"index"`
	CodecName  string `json:"codec_name"`
	CodecType  string `json:"codec_type"`
	Duration   string `json:"duration"`
	SampleRate string `json:"sample_rate"`
	Channels   int    `json:"channels"`
}

type ProbeFormat struct {
	Duration   string `json:"duration"`
	FormatName string `json:"format_name"`
}

func (r ProbeResult) streamCount(kind string) int {
	count := 0
	for _, stream := range r.Streams {
		if strings.EqualFold(stream.CodecType, kind) {
			count++
		}
	}
	return count
}

func (r ProbeResult) VideoStreamCount() int { return r.streamCount("video") }
func (r ProbeResult) AudioStreamCount() int { return r.streamCount("audio") }

// DurationSeconds returns the container duration, 0 when unavailable.
func (r ProbeResult) DurationSeconds() float64 {
	parsed, err := strconv.ParseFloat(strings.TrimSpace(r.Format.Duration), 64)
	if err != nil || math.IsNaN(parsed) || parsed < 0 {
		return 0
	}
	return parsed
}

func (f *FFmpeg) Probe(ctx context.Context, path string) (ProbeResult, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return ProbeResult{}, errors.New("ffprobe: empty path")
	}
	cmd := exec.CommandContext(ctx, f.FfprobePath, "-v", "error", "-hide_banner", "-show_format", "-show_streams", "-of", "json", "--", path)
	// -v error 仍会把告警写进 stderr，只解析 stdout
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	output, err := f.run(cmd)
	if err != nil {
		return ProbeResult{}, fmt.Errorf("ffprobe: %w: %s", err, tail(strings.TrimSpace(stderr.String()), 500))
	}
	var result ProbeResult
	if err = json.Unmarshal(output, &result); err != nil {
		return ProbeResult{}, fmt.Errorf("ffprobe parse: %w (stderr: %s)", err, tail(strings.TrimSpace(stderr.String()), 500))
	}
	if msg := strings.TrimSpace(stderr.String()); msg != "" {
		log.GetLogger().Warn("ffprobe 输出告警", zap.String("path", path), zap.String("stderr", tail(msg, 2000)))
	}
	return result, nil
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
