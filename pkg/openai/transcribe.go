package openai

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"video-redub/pkg/srt"
)

// Transcribe uploads the media's speech to the whisper endpoint and returns its segments.
func (c *Client) Transcribe(ctx context.Context, mediaPath string) (srt.Transcript, error) {
	audioPath := mediaPath
	if c.PrepareAudio != nil {
		prepared, cleanup, err := c.PrepareAudio(ctx, mediaPath)
		if err != nil {
			return nil, fmt.Errorf("prepare audio: %w", err)
		}
		if cleanup != nil {
			defer cleanup()
		}
		audioPath = prepared
	}

	resp, err := c.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    c.TranscribeModel,
		FilePath: audioPath,
		Format:   openai.AudioResponseFormatVerboseJSON,
		Language: c.Language,
	})
	if err != nil {
		return nil, fmt.Errorf("openai transcription: %w", err)
	}

	transcript := make(srt.Transcript, 0, len(resp.Segments))
	for _, seg := range resp.Segments {
		text := strings.TrimSpace(seg.Text)
		if seg.End <= seg.Start {
			continue
		}
		transcript = append(transcript, srt.Segment{
			Index: len(transcript) + 1,
			Start: seg.Start,
			End:   seg.End,
			Text:  text,
		})
	}
	return transcript, nil
}
