package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
)

const translateSystemPrompt = `You are a subtitle translator. Translate the user's subtitle line into %s.
Reply with the translation only: no quotes, no notes, no line breaks.`

// Translate translates one subtitle line through a chat completion.
func (c *Client) Translate(ctx context.Context, text string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.TranslateModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: fmt.Sprintf(translateSystemPrompt, c.TargetLanguage)},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
		Temperature: 0.2,
	})
	if err != nil {
		return "", classify(fmt.Errorf("openai chat completion: %w", err))
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai chat completion returned no choices")
	}
	return CleanTranslation(resp.Choices[0].Message.Content), nil
}

// CleanTranslation strips wrapping the model sometimes adds around a single line.
func CleanTranslation(content string) string {
	cleaned := strings.TrimSpace(content)
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)
	for _, pair := range [][2]string{{`"`, `"`}, {"“", "”"}, {"「", "」"}} {
		if len(cleaned) > len(pair[0])+len(pair[1]) && strings.HasPrefix(cleaned, pair[0]) && strings.HasSuffix(cleaned, pair[1]) {
			cleaned = strings.TrimSpace(cleaned[len(pair[0]) : len(cleaned)-len(pair[1])])
		}
	}
	// 字幕只有一行文本
	return strings.Join(strings.Fields(strings.ReplaceAll(cleaned, "\n", " ")), " ")
}
