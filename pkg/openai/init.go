package openai

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/sashabaranov/go-openai"

	"video-redub/pkg/retry"
)

type Client struct {
	client *openai.Client

	TranslateModel  string
	SpeechModel     string
	TranscribeModel string
	// Language is the spoken language of transcribed media, TargetLanguage the
	// language translations are written in.
	Language       string
	TargetLanguage string

	// PrepareAudio turns a media file into an upload-sized audio file and returns
	// a cleanup func. Nil uploads the media as-is.
	PrepareAudio func(ctx context.Context, mediaPath string) (string, func(), error)
}

func NewClient(baseUrl, apiKey string, proxy *url.URL) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseUrl != "" {
		cfg.BaseURL = baseUrl
	}

	transport := &http.Transport{}
	if proxy != nil {
		transport.Proxy = http.ProxyURL(proxy)
	}

	cfg.HTTPClient = &http.Client{
		Transport: transport,
		// 不设置超时，长视频的识别请求可能持续很久
	}

	return &Client{
		client:          openai.NewClientWithConfig(cfg),
		TranslateModel:  openai.GPT4oMini,
		SpeechModel:     string(openai.TTSModel1),
		TranscribeModel: openai.Whisper1,
		Language:        "en",
		TargetLanguage:  "Simplified Chinese",
	}
}

// classify marks API errors that a retry cannot fix as permanent.
func classify(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return retry.ForStatus(apiErr.HTTPStatusCode, err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return retry.ForStatus(reqErr.HTTPStatusCode, err)
	}
	return err
}
