package service

import (
	"context"
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"video-redub/config"
	"video-redub/log"
	apperrors "video-redub/pkg/errors"
	"video-redub/pkg/util"
)

const defaultPreviewText = "你好，这是一段语音预览，欢迎使用视频配音工具。"

// PreviewVoice synthesizes a short sample and returns the local clip path.
// Clips are cached per voice, rate and text.
func (s *Service) PreviewVoice(ctx context.Context, voiceId string, speedRate float64, text string) (string, error) {
	if err := ValidateVoice(voiceId); err != nil {
		return "", err
	}
	if speedRate == 0 {
		speedRate = config.Get().Tts.SpeedRate
	}
	if speedRate < config.MinSpeedRate || speedRate > config.MaxSpeedRate {
		return "", apperrors.Input(fmt.Sprintf("speed rate %.2f out of range [%.1f, %.1f]", speedRate, config.MinSpeedRate, config.MaxSpeedRate))
	}
	text = strings.TrimSpace(text)
	if text == "" {
		text = defaultPreviewText
	}

	dir, err := ResolvePreviewDir()
	if err != nil {
		return "", apperrors.Wrap(apperrors.CodeFileWriteError, "解析缓存目录失败", err)
	}
	name := util.SanitizePathName(fmt.Sprintf("%s_%d_%x", voiceId, int(speedRate*100), hashText(text))) + ".mp3"
	out := filepath.Join(dir, name)
	if fileExists(out) {
		return out, nil
	}
	if err = os.MkdirAll(dir, 0o755); err != nil {
		return "", apperrors.Wrap(apperrors.CodeFileWriteError, "创建缓存目录失败", err)
	}

	synthesizer := s.Engines().Synthesizer
	if err = synthesizer.Synthesize(ctx, text, voiceId, util.RateModifier(speedRate), out); err != nil {
		log.GetLogger().Warn("试听生成失败 preview failed", zap.String("voice", voiceId), zap.Error(err))
		return "", apperrors.WrapWithDetail(apperrors.CodeTTSFailed, apperrors.ErrTTSFailed.Message, "voice="+voiceId, err)
	}
	return out, nil
}

// ResolvePreviewDir is where preview clips are cached.
func ResolvePreviewDir() (string, error) {
	return resolveCacheDirPath("preview")
}

func hashText(text string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(text))
	return h.Sum32()
}
