package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap"

	"video-redub/internal/appdirs"
	"video-redub/log"
)

const (
	TranscribeProviderFasterwhisper = "fasterwhisper"
	TranscribeProviderOpenai        = "openai"

	TranslateProviderGoogle = "google"
	TranslateProviderOpenai = "openai"

	TtsProviderEdge    = "edge-tts"
	TtsProviderOpenai  = "openai"
	TtsProviderDoubao  = "doubao"
	TtsProviderMinimax = "minimax"

	AcceleratorAuto = "auto"
	AcceleratorCuda = "cuda"
	AcceleratorNone = "none"

	QueueBackendMemory = "memory"
	QueueBackendRedis  = "redis"

	MinSpeedRate = 0.5
	MaxSpeedRate = 3.0
)

type App struct {
	WorkDir     string   `toml:"work_dir"`
	LogLevel    string   `toml:"log_level"`
	Proxy       string   `toml:"proxy"`
	ParsedProxy *url.URL `toml:"-" json:"-"`
}

type Server struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

type OpenaiCompatible struct {
	BaseUrl string `toml:"base_url"`
	ApiKey  string `toml:"api_key"`
	Model   string `toml:"model"`
}

type Fasterwhisper struct {
	Model         string `toml:"model"`
	FallbackModel string `toml:"fallback_model"`
	BeamSize      int    `toml:"beam_size"`
}

type Transcribe struct {
	Provider      string           `toml:"provider"`
	Language      string           `toml:"language"`
	Fasterwhisper Fasterwhisper    `toml:"fasterwhisper"`
	Openai        OpenaiCompatible `toml:"openai"`
}

type Google struct {
	BaseUrl string `toml:"base_url"`
}

type Translate struct {
	Provider   string           `toml:"provider"`
	SourceLang string           `toml:"source_lang"`
	TargetLang string           `toml:"target_lang"`
	Attempts   int              `toml:"attempts"`
	Google     Google           `toml:"google"`
	Openai     OpenaiCompatible `toml:"openai"`
}

type Doubao struct {
	AppId       string `toml:"app_id"`
	AccessToken string `toml:"access_token"`
	ResourceId  string `toml:"resource_id"`
}

type Minimax struct {
	ApiKey  string `toml:"api_key"`
	GroupId string `toml:"group_id"`
	Model   string `toml:"model"`
}

type Tts struct {
	Provider          string           `toml:"provider"`
	DefaultVoice      string           `toml:"default_voice"`
	SpeedRate         float64          `toml:"speed_rate"`
	Attempts          int              `toml:"attempts"`
	RetryDelaySeconds int              `toml:"retry_delay_seconds"`
	Openai            OpenaiCompatible `toml:"openai"`
	Doubao            Doubao           `toml:"doubao"`
	Minimax           Minimax          `toml:"minimax"`
}

type Compose struct {
	OriginalVolume float64 `toml:"original_volume"`
	SampleRate     int     `toml:"sample_rate"`
	Channels       int     `toml:"channels"`
	AudioBitrate   string  `toml:"audio_bitrate"`
	Accelerator    string  `toml:"accelerator"`
}

type Queue struct {
	Backend       string `toml:"backend"`
	Concurrency   int    `toml:"concurrency"`
	QueueSize     int    `toml:"queue_size"`
	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`
}

type Config struct {
	App        App        `toml:"app"`
	Server     Server     `toml:"server"`
	Transcribe Transcribe `toml:"transcribe"`
	Translate  Translate  `toml:"translate"`
	Tts        Tts        `toml:"tts"`
	Compose    Compose    `toml:"compose"`
	Queue      Queue      `toml:"queue"`
}

// Conf is the loaded configuration. Code that may run next to an HTTP config
// update reads it through Get and writes it through Set.
var (
	Conf   = defaultConfig()
	confMu sync.RWMutex
)

// Get returns a copy of Conf.
func Get() Config {
	confMu.RLock()
	defer confMu.RUnlock()
	return Conf
}

// Set swaps in c and returns the previous configuration.
func Set(c Config) Config {
	confMu.Lock()
	defer confMu.Unlock()
	previous := Conf
	Conf = c
	return previous
}

func defaultConfig() Config {
	return Config{
		App: App{
			LogLevel: "info",
		},
		Server: Server{
			Host: "127.0.0.1",
			Port: 8888,
		},
		Transcribe: Transcribe{
			Provider: TranscribeProviderFasterwhisper,
			Language: "en",
			Fasterwhisper: Fasterwhisper{
				Model:         "medium",
				FallbackModel: "base",
				BeamSize:      5,
			},
			Openai: OpenaiCompatible{Model: "whisper-1"},
		},
		Translate: Translate{
			Provider:   TranslateProviderGoogle,
			SourceLang: "en",
			TargetLang: "zh-CN",
			Attempts:   1,
			Google:     Google{BaseUrl: "https://translate.googleapis.com"},
			Openai:     OpenaiCompatible{Model: "gpt-4o-mini"},
		},
		Tts: Tts{
			Provider:          TtsProviderEdge,
			DefaultVoice:      "zh-CN-XiaoyiNeural",
			SpeedRate:         1.5,
			Attempts:          3,
			RetryDelaySeconds: 2,
			Openai:            OpenaiCompatible{Model: "tts-1"},
			Doubao:            Doubao{ResourceId: "seed-tts-1.0"},
			Minimax:           Minimax{Model: "speech-02-hd"},
		},
		Compose: Compose{
			OriginalVolume: 0.1,
			SampleRate:     44100,
			Channels:       2,
			AudioBitrate:   "192k",
			Accelerator:    AcceleratorAuto,
		},
		Queue: Queue{
			Backend:     QueueBackendMemory,
			Concurrency: 1,
			QueueSize:   32,
			RedisAddr:   "127.0.0.1:6379",
		},
	}
}

var resolveConfigPath = func() (string, error) {
	paths, err := appdirs.Resolve()
	if err != nil {
		return "", err
	}
	return paths.ConfigFile, nil
}

func ResolveConfigPath() (string, error) {
	return resolveConfigPath()
}

// LoadOrCreateConfig loads the config file, writing the defaults first when it is missing.
func LoadOrCreateConfig() (bool, error) {
	configPath, err := resolveConfigPath()
	if err != nil {
		return false, err
	}

	if _, err = os.Stat(configPath); errors.Is(err, os.ErrNotExist) {
		Set(defaultConfig())
		if err = SaveConfig(); err != nil {
			return false, err
		}
		log.GetLogger().Info("未找到配置文件，已生成默认配置 Config created", zap.String("path", configPath))
		return true, nil
	} else if err != nil {
		return false, err
	}

	loaded := defaultConfig()
	if _, err = toml.DecodeFile(configPath, &loaded); err != nil {
		return false, fmt.Errorf("decode config %s: %w", configPath, err)
	}
	Set(loaded)
	log.GetLogger().Info("已加载配置文件 Config loaded", zap.String("path", configPath))
	return false, nil
}

// LoadConfig is LoadOrCreateConfig for callers that only care about success.
func LoadConfig() bool {
	if _, err := LoadOrCreateConfig(); err != nil {
		log.GetLogger().Error("加载配置失败 Failed to load config", zap.Error(err))
		return false
	}
	return true
}

func SaveConfig() error {
	return Save(Get())
}

// Save writes c to the config file without applying it.
func Save(c Config) error {
	configPath, err := resolveConfigPath()
	if err != nil {
		return err
	}
	if err = os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return err
	}

	file, err := os.Create(configPath)
	if err != nil {
		return err
	}
	defer file.Close()

	return toml.NewEncoder(file).Encode(c)
}

// CheckConfig validates Conf and fills derived fields.
func CheckConfig() error {
	confMu.Lock()
	defer confMu.Unlock()
	return Conf.Check()
}

func (c *Config) Check() error {
	c.App.ParsedProxy = nil
	if proxy := strings.TrimSpace(c.App.Proxy); proxy != "" {
		parsed, err := url.Parse(proxy)
		if err != nil {
			return fmt.Errorf("invalid app.proxy %q: %w", proxy, err)
		}
		c.App.ParsedProxy = parsed
	}

	if workDir := strings.TrimSpace(c.App.WorkDir); workDir != "" {
		if err := appdirs.CheckWorkDir(workDir); err != nil {
			return fmt.Errorf("invalid app.work_dir: %w", err)
		}
	}

	switch c.Transcribe.Provider {
	case TranscribeProviderFasterwhisper:
		if c.Transcribe.Fasterwhisper.Model == "" {
			return errors.New("transcribe.fasterwhisper.model is required")
		}
	case TranscribeProviderOpenai:
		if c.Transcribe.Openai.ApiKey == "" {
			return errors.New("transcribe.openai.api_key is required")
		}
	default:
		return fmt.Errorf("unknown transcribe.provider %q", c.Transcribe.Provider)
	}

	switch c.Translate.Provider {
	case TranslateProviderGoogle:
	case TranslateProviderOpenai:
		if c.Translate.Openai.ApiKey == "" {
			return errors.New("translate.openai.api_key is required")
		}
	default:
		return fmt.Errorf("unknown translate.provider %q", c.Translate.Provider)
	}
	if c.Translate.Attempts < 1 {
		c.Translate.Attempts = 1
	}

	switch c.Tts.Provider {
	case TtsProviderEdge:
	case TtsProviderOpenai:
		if c.Tts.Openai.ApiKey == "" {
			return errors.New("tts.openai.api_key is required")
		}
	case TtsProviderDoubao:
		if c.Tts.Doubao.AppId == "" || c.Tts.Doubao.AccessToken == "" {
			return errors.New("tts.doubao.app_id and tts.doubao.access_token are required")
		}
	case TtsProviderMinimax:
		if c.Tts.Minimax.ApiKey == "" {
			return errors.New("tts.minimax.api_key is required")
		}
	default:
		return fmt.Errorf("unknown tts.provider %q", c.Tts.Provider)
	}
	if c.Tts.SpeedRate < MinSpeedRate || c.Tts.SpeedRate > MaxSpeedRate {
		return fmt.Errorf("tts.speed_rate %.2f out of range [%.1f, %.1f]", c.Tts.SpeedRate, MinSpeedRate, MaxSpeedRate)
	}
	if c.Tts.Attempts < 1 {
		return errors.New("tts.attempts must be at least 1")
	}
	if c.Tts.RetryDelaySeconds < 0 {
		return errors.New("tts.retry_delay_seconds must not be negative")
	}

	if c.Compose.OriginalVolume < 0 || c.Compose.OriginalVolume > 1 {
		return fmt.Errorf("compose.original_volume %.2f out of range [0, 1]", c.Compose.OriginalVolume)
	}
	if c.Compose.SampleRate <= 0 {
		return errors.New("compose.sample_rate must be positive")
	}
	if c.Compose.Channels != 1 && c.Compose.Channels != 2 {
		return errors.New("compose.channels must be 1 or 2")
	}
	switch c.Compose.Accelerator {
	case AcceleratorAuto, AcceleratorCuda, AcceleratorNone:
	default:
		return fmt.Errorf("unknown compose.accelerator %q", c.Compose.Accelerator)
	}

	switch c.Queue.Backend {
	case QueueBackendMemory:
	case QueueBackendRedis:
		if c.Queue.RedisAddr == "" {
			return errors.New("queue.redis_addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("unknown queue.backend %q", c.Queue.Backend)
	}
	if c.Queue.Concurrency < 1 {
		c.Queue.Concurrency = 1
	}

	return log.SetConsoleLevel(c.App.LogLevel)
}
