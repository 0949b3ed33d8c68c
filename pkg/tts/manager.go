// Package tts routes synthesis requests to the provider that owns a voice.
package tts

import (
	"context"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"video-redub/config"
	"video-redub/internal/types"
	"video-redub/log"
	"video-redub/pkg/doubao"
	"video-redub/pkg/edgetts"
	"video-redub/pkg/minimax"
	"video-redub/pkg/openai"
)

// CompositeClient manages multiple TTS providers and routes requests
type CompositeClient struct {
	EdgeTTS  types.Synthesizer
	Doubao   types.Synthesizer
	OpenAI   types.Synthesizer
	MiniMax  types.Synthesizer
	Default  types.Synthesizer
	Provider string
}

func NewCompositeClient(conf config.Tts, proxy *url.URL, edgeTTSPath string) *CompositeClient {
	c := &CompositeClient{
		EdgeTTS:  edgetts.NewClient(edgeTTSPath),
		Provider: conf.Provider,
	}

	if conf.Doubao.AppId != "" {
		c.Doubao = doubao.NewDoubaoClient(conf.Doubao.AppId, conf.Doubao.AccessToken, conf.Doubao.ResourceId)
	}
	if conf.Openai.ApiKey != "" {
		client := openai.NewClient(conf.Openai.BaseUrl, conf.Openai.ApiKey, proxy)
		client.SpeechModel = conf.Openai.Model
		c.OpenAI = client
	}
	if conf.Minimax.ApiKey != "" {
		c.MiniMax = minimax.NewMiniMaxClient(conf.Minimax.ApiKey, conf.Minimax.GroupId, conf.Minimax.Model)
	}

	switch conf.Provider {
	case config.TtsProviderDoubao:
		c.Default = c.Doubao
	case config.TtsProviderOpenai:
		c.Default = c.OpenAI
	case config.TtsProviderMinimax:
		c.Default = c.MiniMax
	}
	if c.Default == nil {
		c.Default = c.EdgeTTS
	}
	return c
}

// IsEdgeVoice reports whether voice looks like an Edge neural voice, e.g. zh-CN-XiaoyiNeural.
func IsEdgeVoice(voice string) bool {
	return strings.Count(voice, "-") >= 2 && strings.HasSuffix(voice, "Neural")
}

// IsDoubaoVoice matches the Volcengine speaker naming, e.g. zh_female_shuangkuaisisi_moon_bigtts.
func IsDoubaoVoice(voice string) bool {
	for _, marker := range []string{"bigtts", "_mars_", "_moon_", "volcano"} {
		if strings.Contains(voice, marker) {
			return true
		}
	}
	return false
}

// Route picks the provider for voice without calling it.
func (c *CompositeClient) Route(voice string) (string, types.Synthesizer) {
	if IsEdgeVoice(voice) && c.EdgeTTS != nil {
		return config.TtsProviderEdge, c.EdgeTTS
	}
	if IsDoubaoVoice(voice) && c.Doubao != nil {
		return config.TtsProviderDoubao, c.Doubao
	}
	return c.Provider, c.Default
}

func (c *CompositeClient) Synthesize(ctx context.Context, text, voice, rate, outputFile string) error {
	name, provider := c.Route(voice)
	log.GetLogger().Debug("Routing TTS request", zap.String("provider", name), zap.String("voice", voice), zap.String("rate", rate))
	return provider.Synthesize(ctx, text, voice, rate, outputFile)
}
