// Package pipeline drives one dubbing run through transcription, translation,
// synthesis and composition, keeping every artifact on the source timeline.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"video-redub/config"
	"video-redub/internal/appdirs"
	"video-redub/internal/composer"
	"video-redub/internal/types"
	"video-redub/log"
	apperrors "video-redub/pkg/errors"
	"video-redub/pkg/retry"
	"video-redub/pkg/srt"
	"video-redub/pkg/util"
)

// ProgressFunc receives plain-text progress messages.
type ProgressFunc func(message string)

// Clip is a synthesized segment waiting to be composed.
type Clip = composer.Clip

// Composer renders the final video from the original and the clips.
type Composer interface {
	Compose(ctx context.Context, videoPath string, clips []Clip, originalVolume float64, outputPath string) error
}

// Capabilities are the engines a run uses, constructed by the caller.
type Capabilities struct {
	Transcriber types.Transcriber
	Translator  types.Translator
	Synthesizer types.Synthesizer
	Composer    Composer
}

type Options struct {
	// WorkDir holds the subtitles/, audio/ and output/ directories.
	WorkDir        string
	SpeedRate      float64
	OriginalVolume float64
	// TranslateAttempts is the total number of calls per segment; 1 disables retry.
	TranslateAttempts int
	SynthesisAttempts int
	SynthesisDelay    time.Duration
	TaskID            string
}

// DefaultOptions mirrors the configured defaults.
func DefaultOptions(workDir string) Options {
	conf := config.Get()
	return Options{
		WorkDir:           workDir,
		SpeedRate:         conf.Tts.SpeedRate,
		OriginalVolume:    conf.Compose.OriginalVolume,
		TranslateAttempts: conf.Translate.Attempts,
		SynthesisAttempts: conf.Tts.Attempts,
		SynthesisDelay:    time.Duration(conf.Tts.RetryDelaySeconds) * time.Second,
	}
}

// Request is one full run.
type Request struct {
	VideoPath      string
	VoiceID        string
	SpeedRate      float64
	OriginalVolume float64
}

// Orchestrator runs one job at a time and owns that job's transcript and clips.
// Separate orchestrators share nothing and may run concurrently.
type Orchestrator struct {
	caps     Capabilities
	opts     Options
	layout   appdirs.WorkLayout
	progress ProgressFunc
	logger   *zap.Logger
	stage    Stage
}

func New(caps Capabilities, opts Options, progress ProgressFunc) (*Orchestrator, error) {
	switch {
	case caps.Transcriber == nil:
		return nil, errors.New("pipeline: transcriber is required")
	case caps.Translator == nil:
		return nil, errors.New("pipeline: translator is required")
	case caps.Synthesizer == nil:
		return nil, errors.New("pipeline: synthesizer is required")
	case caps.Composer == nil:
		return nil, errors.New("pipeline: composer is required")
	}
	if opts.SynthesisAttempts < 1 {
		opts.SynthesisAttempts = 3
	}
	if opts.TranslateAttempts < 1 {
		opts.TranslateAttempts = 1
	}
	if progress == nil {
		progress = func(string) {}
	}
	logger := log.GetLogger()
	if opts.TaskID != "" {
		logger = log.ForTask(opts.TaskID)
	}
	return &Orchestrator{
		caps:     caps,
		opts:     opts,
		layout:   appdirs.WorkLayoutFor(opts.WorkDir),
		progress: progress,
		logger:   logger,
		stage:    StageTranscribing,
	}, nil
}

// Stage returns the stage the last run reached.
func (o *Orchestrator) Stage() Stage {
	return o.stage
}

func (o *Orchestrator) Layout() appdirs.WorkLayout {
	return o.layout
}

func (o *Orchestrator) report(format string, args ...any) {
	o.progress(fmt.Sprintf(format, args...))
}

// BaseName is the video file name without directory and extension.
func BaseName(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

func (o *Orchestrator) EnSubtitlePath(videoPath string) string {
	return filepath.Join(o.layout.SubtitleDir, BaseName(videoPath)+"_en.srt")
}

func (o *Orchestrator) CnSubtitlePath(videoPath string) string {
	return filepath.Join(o.layout.SubtitleDir, BaseName(videoPath)+"_cn.srt")
}

func (o *Orchestrator) OutputPath(videoPath string) string {
	return filepath.Join(o.layout.OutputDir, BaseName(videoPath)+"_dubbed.mp4")
}

func (o *Orchestrator) clipPath(base string, n int) string {
	return filepath.Join(o.layout.AudioDir, fmt.Sprintf("%s_speech_%d.mp3", base, n))
}

// baseFromSubtitle recovers {base} from "{base}_en.srt" or "{base}_cn.srt".
func baseFromSubtitle(path string) string {
	name := filepath.Base(path)
	for _, suffix := range []string{"_en.srt", "_cn.srt"} {
		if strings.HasSuffix(name, suffix) {
			return strings.TrimSuffix(name, suffix)
		}
	}
	return BaseName(name)
}

// ValidateRequest checks everything that can be checked before any stage runs.
func ValidateRequest(req Request) error {
	if strings.TrimSpace(req.VideoPath) == "" {
		return apperrors.Input("无效的视频路径 video path is empty")
	}
	info, err := os.Stat(req.VideoPath)
	if err != nil {
		return apperrors.Input("无效的视频路径 video not found: " + req.VideoPath)
	}
	if info.IsDir() {
		return apperrors.Input("video path is a directory: " + req.VideoPath)
	}
	if strings.TrimSpace(req.VoiceID) == "" {
		return apperrors.Input("voice id is empty")
	}
	if req.SpeedRate < config.MinSpeedRate || req.SpeedRate > config.MaxSpeedRate {
		return apperrors.Input(fmt.Sprintf("speed rate %.2f out of range [%.1f, %.1f]", req.SpeedRate, config.MinSpeedRate, config.MaxSpeedRate))
	}
	if req.OriginalVolume < 0 || req.OriginalVolume > 1 {
		return apperrors.Input(fmt.Sprintf("original volume %.2f out of range [0, 1]", req.OriginalVolume))
	}
	return nil
}

// Transcribe writes the source-language subtitle file for videoPath.
func (o *Orchestrator) Transcribe(ctx context.Context, videoPath string) (string, error) {
	if _, err := os.Stat(videoPath); err != nil {
		return "", apperrors.Input("无效的视频路径 video not found: " + videoPath)
	}
	o.report("正在生成英文字幕...")
	o.logger.Info("开始转录", zap.String("video", videoPath))

	transcript, err := o.caps.Transcriber.Transcribe(ctx, videoPath)
	if err != nil {
		return "", stageError(StageTranscribing, apperrors.CodeTranscribeFailed, apperrors.ErrTranscribeFailed.Message, "video="+videoPath, err)
	}

	enPath := o.EnSubtitlePath(videoPath)
	if err = srt.WriteFile(enPath, transcript); err != nil {
		return "", stageError(StageTranscribing, apperrors.CodeFileWriteError, "写入字幕失败 write subtitle failed", enPath, err)
	}
	o.logger.Info("转录完成", zap.String("subtitle", enPath), zap.Int("segments", len(transcript)))
	o.report("英文字幕已生成，共 %d 段", len(transcript))
	return enPath, nil
}

// Translate translates every segment of enSubtitlePath and writes the target
// subtitle file next to it with identical timing.
func (o *Orchestrator) Translate(ctx context.Context, enSubtitlePath string) (string, error) {
	source, err := srt.ParseFile(enSubtitlePath)
	if err != nil {
		return "", stageError(StageTranslating, apperrors.CodeSubtitleParse, apperrors.ErrSubtitleParse.Message, enSubtitlePath, err)
	}
	o.report("正在翻译字幕...")

	policy := retry.Fixed(o.opts.TranslateAttempts, time.Second)
	translated := make(srt.Transcript, len(source))
	for i, seg := range source {
		translated[i] = seg
		if seg.Blank() {
			translated[i].Text = ""
			continue
		}
		text, err := retry.Do(ctx, policy, func(ctx context.Context) (string, error) {
			return o.caps.Translator.Translate(ctx, strings.TrimSpace(seg.Text))
		})
		if err != nil {
			detail := fmt.Sprintf("segment=%d text=%q", i+1, seg.Text)
			return "", stageError(StageTranslating, apperrors.CodeTranslateFailed, apperrors.ErrTranslateFailed.Message, detail, err)
		}
		// 字幕块只有一行文本
		translated[i].Text = strings.Join(strings.Fields(text), " ")
	}

	cnPath := filepath.Join(o.layout.SubtitleDir, baseFromSubtitle(enSubtitlePath)+"_cn.srt")
	if err = srt.WriteFile(cnPath, translated); err != nil {
		return "", stageError(StageTranslating, apperrors.CodeFileWriteError, "写入字幕失败 write subtitle failed", cnPath, err)
	}
	o.logger.Info("翻译完成", zap.String("subtitle", cnPath), zap.Int("segments", len(translated)))
	return cnPath, nil
}

// SynthesizeAll renders one clip per non-empty segment, in order, each placed
// at its segment's start time.
func (o *Orchestrator) SynthesizeAll(ctx context.Context, cnSubtitlePath, voiceID string, speedRate float64) ([]Clip, error) {
	transcript, err := srt.ParseFile(cnSubtitlePath)
	if err != nil {
		return nil, stageError(StageSynthesizing, apperrors.CodeSubtitleParse, apperrors.ErrSubtitleParse.Message, cnSubtitlePath, err)
	}
	if err = os.MkdirAll(o.layout.AudioDir, 0o755); err != nil {
		return nil, stageError(StageSynthesizing, apperrors.CodeFileWriteError, "创建音频目录失败", o.layout.AudioDir, err)
	}
	o.report("正在生成语音...")

	base := baseFromSubtitle(cnSubtitlePath)
	rate := util.RateModifier(speedRate)
	speakable := transcript.Speakable()
	clips := make([]Clip, 0, len(speakable))

	for _, seg := range speakable {
		text := strings.TrimSpace(seg.Text)
		out := o.clipPath(base, len(clips))
		policy := retry.Fixed(o.opts.SynthesisAttempts, o.opts.SynthesisDelay)
		policy.OnRetry = func(attempt int, err error) {
			o.logger.Warn("语音生成失败，准备重试", zap.Int("attempt", attempt), zap.String("text", text), zap.Error(err))
			o.report("语音生成失败，%d/%d 次重试...", attempt, o.opts.SynthesisAttempts)
		}
		attempts := 0
		err := retry.Run(ctx, policy, func(ctx context.Context) error {
			attempts++
			return o.caps.Synthesizer.Synthesize(ctx, text, voiceID, rate, out)
		})
		if err != nil {
			cause := err
			var exhausted *retry.ExhaustedError
			if errors.As(err, &exhausted) {
				cause = exhausted.Err
			}
			synthErr := &SynthesisError{
				Segment:  seg.Index,
				Text:     text,
				Voice:    voiceID,
				Rate:     rate,
				Attempts: attempts,
				Err:      cause,
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, stageError(StageSynthesizing, apperrors.CodeCanceled, apperrors.ErrCanceled.Message, "", ctxErr)
			}
			o.logger.Error("语音生成失败", zap.Int("segment", seg.Index), zap.Int("attempts", attempts),
				zap.Bool("permanent", retry.IsPermanent(cause)), zap.String("text", text),
				zap.String("voice", voiceID), zap.String("rate", rate), zap.Float64("speed_rate", speedRate), zap.Error(cause))
			return nil, stageError(StageSynthesizing, apperrors.CodeTTSFailed, apperrors.ErrTTSFailed.Message,
				fmt.Sprintf("segment=%d voice=%s rate=%q text=%q", seg.Index, voiceID, rate, text), synthErr)
		}

		clips = append(clips, Clip{Path: out, Start: seg.Start, Timing: seg.Timing()})
		o.report("已生成 %d 个语音片段...", len(clips))
	}

	o.logger.Info("语音生成完成", zap.Int("clips", len(clips)), zap.String("voice", voiceID), zap.String("rate", rate))
	return clips, nil
}

// Compose lays the clips over the attenuated original audio and returns the
// dubbed video path.
func (o *Orchestrator) Compose(ctx context.Context, videoPath string, clips []Clip, originalVolume float64) (string, error) {
	if err := validateClips(clips); err != nil {
		return "", stageError(StageComposing, apperrors.CodeCompositionFailed, apperrors.ErrCompositionFailed.Message, "", err)
	}
	o.report("正在合并视频和音频...")

	outputPath := o.OutputPath(videoPath)
	if err := o.caps.Composer.Compose(ctx, videoPath, clips, originalVolume, outputPath); err != nil {
		return "", stageError(StageComposing, apperrors.CodeCompositionFailed, apperrors.ErrCompositionFailed.Message, "output="+outputPath, err)
	}
	o.logger.Info("视频合成完成", zap.String("output", outputPath))
	return outputPath, nil
}

func validateClips(clips []Clip) error {
	for i, clip := range clips {
		if clip.Start < 0 {
			return fmt.Errorf("clip %d starts before zero: %v", i, clip.Start)
		}
		if _, err := os.Stat(clip.Path); err != nil {
			return fmt.Errorf("clip %d missing: %w", i, err)
		}
	}
	return nil
}

// Run chains all four stages with the configured speed rate and original volume.
func (o *Orchestrator) Run(ctx context.Context, videoPath, voiceID string) (string, error) {
	return o.RunWithOptions(ctx, Request{
		VideoPath:      videoPath,
		VoiceID:        voiceID,
		SpeedRate:      o.opts.SpeedRate,
		OriginalVolume: o.opts.OriginalVolume,
	})
}

// run holds the artifacts of one pass through the driver loop.
type run struct {
	req     Request
	enPath  string
	cnPath  string
	clips   []Clip
	output  string
	started time.Time
}

// RunWithOptions is the driver loop: it checks each stage's preconditions,
// runs it, and advances until Done or Failed.
func (o *Orchestrator) RunWithOptions(ctx context.Context, req Request) (string, error) {
	if err := ValidateRequest(req); err != nil {
		o.stage = StageFailed
		return "", err
	}

	state := &run{req: req, started: time.Now()}
	o.stage = StageTranscribing
	for !o.stage.Terminal() {
		if err := ctx.Err(); err != nil {
			return "", o.fail(stageError(o.stage, apperrors.CodeCanceled, apperrors.ErrCanceled.Message, "", err))
		}
		if err := o.checkPreconditions(state); err != nil {
			return "", o.fail(err)
		}
		if err := o.step(ctx, state); err != nil {
			return "", o.fail(err)
		}
		o.logger.Debug("stage finished", zap.String("stage", o.stage.String()))
		o.stage = o.stage.Next()
	}

	o.logger.Info("配音任务完成", zap.String("output", state.output), zap.Duration("elapsed", time.Since(state.started)))
	o.report("处理完成！输出文件：%s", state.output)
	return state.output, nil
}

func (o *Orchestrator) fail(err error) error {
	o.logger.Error("处理失败", zap.String("stage", o.stage.String()), zap.Error(err))
	o.report("错误: 处理失败: %s", apperrors.GetMessage(err))
	o.stage = StageFailed
	return err
}

func (o *Orchestrator) step(ctx context.Context, state *run) (err error) {
	switch o.stage {
	case StageTranscribing:
		state.enPath, err = o.Transcribe(ctx, state.req.VideoPath)
	case StageTranslating:
		state.cnPath, err = o.Translate(ctx, state.enPath)
	case StageSynthesizing:
		state.clips, err = o.SynthesizeAll(ctx, state.cnPath, state.req.VoiceID, state.req.SpeedRate)
	case StageComposing:
		state.output, err = o.Compose(ctx, state.req.VideoPath, state.clips, state.req.OriginalVolume)
	}
	return err
}

func (o *Orchestrator) checkPreconditions(state *run) error {
	var missing string
	switch o.stage {
	case StageTranscribing:
		if _, err := os.Stat(state.req.VideoPath); err != nil {
			return apperrors.Input("无效的视频路径 video not found: " + state.req.VideoPath)
		}
	case StageTranslating:
		missing = requireFile(state.enPath)
	case StageSynthesizing:
		missing = requireFile(state.cnPath)
	case StageComposing:
		if err := validateClips(state.clips); err != nil {
			return stageError(o.stage, apperrors.CodeCompositionFailed, apperrors.ErrCompositionFailed.Message, "", err)
		}
	}
	if missing != "" {
		return stageError(o.stage, apperrors.CodeFileNotFound, apperrors.ErrFileNotFound.Message, missing, nil)
	}
	return nil
}

func requireFile(path string) string {
	if path == "" {
		return "artifact path is empty"
	}
	if _, err := os.Stat(path); err != nil {
		return path
	}
	return ""
}
