package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"video-redub/config"
	"video-redub/internal/composer"
	"video-redub/internal/deps"
	"video-redub/internal/pipeline"
	"video-redub/internal/progress"
	"video-redub/internal/storage"
	"video-redub/internal/types"
	"video-redub/log"
	"video-redub/pkg/fasterwhisper"
	"video-redub/pkg/openai"
	"video-redub/pkg/translator"
	"video-redub/pkg/tts"
	"video-redub/pkg/util"
)

type Service struct {
	mu           sync.RWMutex
	Transcriber  types.Transcriber
	Translator   types.Translator
	Synthesizer  types.Synthesizer
	Composer     pipeline.Composer
	Capabilities deps.Capabilities
	Hub          *progress.Hub
}

// NewCapabilities resolves external binaries and probes the accelerator once.
func NewCapabilities(ctx context.Context) (deps.Capabilities, []deps.DependencyState) {
	conf := config.Get()
	states := deps.ResolveDependencyInventory(conf.Transcribe.Provider, conf.Tts.Provider)
	deps.ApplyResolvedPaths(states)
	for _, missing := range deps.MissingRequired(states) {
		log.GetLogger().Warn("缺少必需依赖 required dependency missing", zap.String("dependency", missing.ID), zap.String("hint", missing.Hint))
	}

	nvidiaSmi := ""
	for _, state := range states {
		if state.ID == deps.DependencyIDNvidiaSmi && state.Status == deps.DependencyStatusOK {
			nvidiaSmi = state.ResolvedPath
		}
	}

	ff := util.NewFFmpeg(storage.FfmpegPath, storage.FfprobePath)
	caps := deps.NegotiateCapabilities(ctx, conf, deps.Prober{
		Encoders: ff.Encoders,
		HasCUDA:  deps.NvidiaSmiCUDA(nvidiaSmi),
	})
	return caps, states
}

func NewService(caps deps.Capabilities, hub *progress.Hub) *Service {
	s := &Service{Capabilities: caps, Hub: hub}
	s.Reload()
	return s
}

// Reload rebuilds the engines from the current config. Runs already in flight keep
// the engines they started with.
func (s *Service) Reload() {
	conf := config.Get()
	ff := util.NewFFmpeg(storage.FfmpegPath, storage.FfprobePath)

	transcriber := newTranscriber(conf, ff, s.Capabilities)
	translator := newTranslator(conf)
	synthesizer := tts.NewCompositeClient(conf.Tts, conf.App.ParsedProxy, storage.EdgeTtsPath)
	comp := composer.New(ff, conf.Compose.SampleRate, conf.Compose.Channels, s.Capabilities.PrimaryProfile, s.Capabilities.FallbackProfile)

	s.mu.Lock()
	s.Transcriber = transcriber
	s.Translator = translator
	s.Synthesizer = synthesizer
	s.Composer = comp
	s.mu.Unlock()

	log.GetLogger().Info("当前选择的服务 providers selected",
		zap.String("transcriber", conf.Transcribe.Provider),
		zap.String("translator", conf.Translate.Provider),
		zap.String("tts", conf.Tts.Provider),
		zap.String("encoder", s.Capabilities.PrimaryProfile.Name))
}

// Engines snapshots the current engines for one run.
func (s *Service) Engines() pipeline.Capabilities {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return pipeline.Capabilities{
		Transcriber: s.Transcriber,
		Translator:  s.Translator,
		Synthesizer: s.Synthesizer,
		Composer:    s.Composer,
	}
}

func newTranscriber(all config.Config, ff *util.FFmpeg, caps deps.Capabilities) types.Transcriber {
	conf := all.Transcribe
	if conf.Provider == config.TranscribeProviderOpenai {
		client := openai.NewClient(conf.Openai.BaseUrl, conf.Openai.ApiKey, all.App.ParsedProxy)
		if conf.Openai.Model != "" {
			client.TranscribeModel = conf.Openai.Model
		}
		client.Language = conf.Language
		// 上传前先抽取单声道语音，控制文件大小
		client.PrepareAudio = func(ctx context.Context, mediaPath string) (string, func(), error) {
			dir, err := os.MkdirTemp("", "redub-asr-*")
			if err != nil {
				return "", nil, err
			}
			cleanup := func() { _ = os.RemoveAll(dir) }
			out := filepath.Join(dir, "speech.mp3")
			if err = ff.ExtractSpeechTrack(ctx, mediaPath, out); err != nil {
				cleanup()
				return "", nil, errors.Join(errors.New("extract speech track failed"), err)
			}
			return out, cleanup, nil
		}
		return client
	}

	modes := caps.TranscribeModes
	if len(modes) == 0 {
		modes = fasterwhisper.DefaultModes(conf.Fasterwhisper.Model, conf.Fasterwhisper.FallbackModel)
	}
	processor := fasterwhisper.NewFastwhisperProcessor(storage.FasterwhisperPath, modes)
	processor.Language = conf.Language
	if conf.Fasterwhisper.BeamSize > 0 {
		processor.BeamSize = conf.Fasterwhisper.BeamSize
	}
	return processor
}

func newTranslator(all config.Config) types.Translator {
	conf := all.Translate
	if conf.Provider == config.TranslateProviderOpenai {
		client := openai.NewClient(conf.Openai.BaseUrl, conf.Openai.ApiKey, all.App.ParsedProxy)
		if conf.Openai.Model != "" {
			client.TranslateModel = conf.Openai.Model
		}
		return client
	}
	return translator.NewGoogleClient(conf.Google.BaseUrl, conf.SourceLang, conf.TargetLang, all.App.ParsedProxy)
}
