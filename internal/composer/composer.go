// Package composer places synthesized clips over the attenuated original audio
// and muxes the result back with the untouched video stream.
package composer

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"video-redub/log"
	apperrors "video-redub/pkg/errors"
	"video-redub/pkg/util"
)

// Clip is one synthesized audio file and the source-timeline second it starts at.
type Clip struct {
	Path   string
	Start  float64
	Timing string // "start --> end" of the segment it was made from
}

// EncodeProfile is a set of ffmpeg output options for the final mux.
type EncodeProfile struct {
	Name         string
	VideoArgs    []string
	AudioCodec   string
	AudioBitrate string
}

// NvencProfile is the high-quality VBR profile for NVIDIA encoders.
func NvencProfile(audioBitrate string) EncodeProfile {
	return EncodeProfile{
		Name: "h264_nvenc",
		VideoArgs: []string{
			"-c:v", "h264_nvenc", "-preset", "hq", "-rc:v", "vbr", "-profile:v", "high",
			"-spatial-aq", "1", "-temporal-aq", "1", "-rc-lookahead", "32",
			"-movflags", "+faststart",
		},
		AudioCodec:   "aac",
		AudioBitrate: audioBitrate,
	}
}

// X264Profile is the software primary profile.
func X264Profile(audioBitrate string) EncodeProfile {
	return EncodeProfile{
		Name:         "libx264",
		VideoArgs:    []string{"-c:v", "libx264", "-preset", "medium", "-crf", "18", "-movflags", "+faststart"},
		AudioCodec:   "aac",
		AudioBitrate: audioBitrate,
	}
}

// BasicProfile is the single fallback tried when the primary encode fails.
func BasicProfile() EncodeProfile {
	return EncodeProfile{
		Name:       "basic",
		VideoArgs:  []string{"-c:v", "libx264"},
		AudioCodec: "aac",
	}
}

type Composer struct {
	FFmpeg     *util.FFmpeg
	SampleRate int
	Channels   int
	Primary    EncodeProfile
	Fallback   EncodeProfile
}

func New(ffmpeg *util.FFmpeg, sampleRate, channels int, primary, fallback EncodeProfile) *Composer {
	if sampleRate <= 0 {
		sampleRate = 44100
	}
	if channels <= 0 {
		channels = 2
	}
	return &Composer{
		FFmpeg:     ffmpeg,
		SampleRate: sampleRate,
		Channels:   channels,
		Primary:    primary,
		Fallback:   fallback,
	}
}

// Compose writes outputPath: the video stream of videoPath, with its audio
// attenuated to originalVolume and every clip laid in at its start time. Clip
// files are deleted only after a successful mux.
func (c *Composer) Compose(ctx context.Context, videoPath string, clips []Clip, originalVolume float64, outputPath string) error {
	logger := log.GetLogger().With(zap.String("video", videoPath), zap.String("output", outputPath))

	probe, err := c.FFmpeg.Probe(ctx, videoPath)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeCompositionFailed, "探测视频失败 probe video failed", err)
	}
	if probe.VideoStreamCount() == 0 {
		return apperrors.WrapWithDetail(apperrors.CodeCompositionFailed, apperrors.ErrCompositionFailed.Message,
			"no video stream in "+videoPath, nil)
	}
	duration := probe.DurationSeconds()

	if err = os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return apperrors.Wrap(apperrors.CodeFileWriteError, "创建输出目录失败", err)
	}
	scratch, err := os.MkdirTemp(filepath.Dir(outputPath), ".mix-*")
	if err != nil {
		return apperrors.Wrap(apperrors.CodeFileWriteError, "创建临时目录失败", err)
	}
	defer os.RemoveAll(scratch)

	mix := StreamMix{
		SampleRate:  c.SampleRate,
		Channels:    c.Channels,
		Attenuation: originalVolume,
		Clips:       make([]Clip, 0, len(clips)),
	}
	if probe.AudioStreamCount() == 0 {
		logger.Info("视频无音轨，使用静音作为底轨 no audio stream, using silence", zap.Float64("duration", duration))
		mix.SilenceFrames = int(math.Round(max(duration, 0) * float64(c.SampleRate)))
	} else {
		mix.Original = filepath.Join(scratch, "original.wav")
		if err = c.FFmpeg.DecodeToWav(ctx, videoPath, mix.Original, c.SampleRate, c.Channels); err != nil {
			return apperrors.Wrap(apperrors.CodeAudioExtract, apperrors.ErrAudioExtract.Message, err)
		}
	}

	for i, clip := range clips {
		wavPath := filepath.Join(scratch, fmt.Sprintf("clip_%d.wav", i))
		if err = c.FFmpeg.DecodeToWav(ctx, clip.Path, wavPath, c.SampleRate, c.Channels); err != nil {
			return apperrors.WrapWithDetail(apperrors.CodeAudioMixFailed, apperrors.ErrAudioMixFailed.Message, clip.Path, err)
		}
		mix.Clips = append(mix.Clips, Clip{Path: wavPath, Start: clip.Start, Timing: clip.Timing})
	}

	mixedPath := filepath.Join(scratch, "mixed.wav")
	frames, err := mix.Render(mixedPath)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeAudioMixFailed, apperrors.ErrAudioMixFailed.Message, err)
	}
	logger.Info("混音完成 mix done", zap.Int("clips", len(clips)),
		zap.Float64("mixed_seconds", float64(frames)/float64(c.SampleRate)))

	if err = c.mux(ctx, videoPath, mixedPath, outputPath, duration); err != nil {
		return err
	}

	removeClips(clips)
	return nil
}

// mux tries the primary profile, then the fallback exactly once.
func (c *Composer) mux(ctx context.Context, videoPath, audioPath, outputPath string, duration float64) error {
	request := func(profile EncodeProfile) util.MuxRequest {
		return util.MuxRequest{
			Video:        videoPath,
			Audio:        audioPath,
			Output:       outputPath,
			Duration:     duration,
			VideoArgs:    profile.VideoArgs,
			AudioCodec:   profile.AudioCodec,
			AudioBitrate: profile.AudioBitrate,
		}
	}

	primaryErr := c.FFmpeg.Mux(ctx, request(c.Primary))
	if primaryErr == nil {
		log.GetLogger().Info("视频合成完成", zap.String("profile", c.Primary.Name), zap.String("output", outputPath))
		return nil
	}
	if ctx.Err() != nil {
		return apperrors.Wrap(apperrors.CodeCanceled, apperrors.ErrCanceled.Message, ctx.Err())
	}
	log.GetLogger().Warn("主编码配置失败，尝试基础配置 primary encode failed, trying fallback",
		zap.String("primary", c.Primary.Name), zap.String("fallback", c.Fallback.Name), zap.Error(primaryErr))

	if err := c.FFmpeg.Mux(ctx, request(c.Fallback)); err != nil {
		return apperrors.WrapWithDetail(apperrors.CodeCompositionFailed, apperrors.ErrCompositionFailed.Message,
			fmt.Sprintf("%s: %v", c.Primary.Name, primaryErr), err)
	}
	log.GetLogger().Info("视频合成完成", zap.String("profile", c.Fallback.Name), zap.String("output", outputPath))
	return nil
}

func removeClips(clips []Clip) {
	dirs := make(map[string]struct{})
	for _, clip := range clips {
		if err := os.Remove(clip.Path); err != nil && !os.IsNotExist(err) {
			log.GetLogger().Warn("删除配音片段失败", zap.String("path", clip.Path), zap.Error(err))
		}
		dirs[filepath.Dir(clip.Path)] = struct{}{}
	}
	for dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err == nil && len(entries) == 0 {
			_ = os.Remove(dir)
		}
	}
}
