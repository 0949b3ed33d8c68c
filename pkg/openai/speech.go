package openai

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sashabaranov/go-openai"

	"video-redub/pkg/retry"
	"video-redub/pkg/util"
)

// Synthesize renders text with an OpenAI voice. The rate modifier maps onto the
// speed parameter, which the API clamps to [0.25, 4.0].
func (c *Client) Synthesize(ctx context.Context, text, voice, rate, outputFile string) error {
	speed, err := util.RateMultiplier(rate)
	if err != nil {
		return retry.Permanent(err)
	}
	speed = min(max(speed, 0.25), 4.0)

	if err = os.MkdirAll(filepath.Dir(outputFile), 0o755); err != nil {
		return fmt.Errorf("create output dir failed: %w", err)
	}

	resp, err := c.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(c.SpeechModel),
		Input:          text,
		Voice:          openai.SpeechVoice(voice),
		ResponseFormat: openai.SpeechResponseFormatMp3,
		Speed:          speed,
	})
	if err != nil {
		return classify(fmt.Errorf("openai speech: %w", err))
	}
	defer resp.Close()

	file, err := os.Create(outputFile)
	if err != nil {
		return err
	}
	written, err := io.Copy(file, resp)
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("write speech: %w", err)
	}
	if written == 0 {
		return fmt.Errorf("openai speech returned empty audio")
	}
	return nil
}
