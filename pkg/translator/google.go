// Package translator talks to the public Google translate web endpoint.
package translator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"video-redub/pkg/retry"
)

const defaultBaseUrl = "https://translate.googleapis.com"

type GoogleClient struct {
	client     *resty.Client
	SourceLang string
	TargetLang string
}

func NewGoogleClient(baseUrl, sourceLang, targetLang string, proxy *url.URL) *GoogleClient {
	if baseUrl == "" {
		baseUrl = defaultBaseUrl
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseUrl, "/")).
		SetTimeout(30*time.Second).
		SetHeader("User-Agent", "Mozilla/5.0 (compatible; video-redub)")
	if proxy != nil {
		client.SetProxy(proxy.String())
	}
	return &GoogleClient{client: client, SourceLang: sourceLang, TargetLang: targetLang}
}

// Translate sends one line and joins the translated sentence chunks.
func (g *GoogleClient) Translate(ctx context.Context, text string) (string, error) {
	resp, err := g.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"client": "gtx",
			"sl":     g.SourceLang,
			"tl":     g.TargetLang,
			"dt":     "t",
			"q":      text,
		}).
		Get("/translate_a/single")
	if err != nil {
		return "", fmt.Errorf("google translate request: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return "", retry.ForStatus(resp.StatusCode(),
			fmt.Errorf("google translate status %d: %s", resp.StatusCode(), strings.TrimSpace(resp.String())))
	}
	return parseResponse(resp.Body())
}

// 返回体形如 [[["译文","原文",null,null,1], ...], null, "en", ...]
func parseResponse(body []byte) (string, error) {
	var payload []json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("decode google translate response: %w", err)
	}
	if len(payload) == 0 {
		return "", errors.New("google translate response is empty")
	}

	var chunks [][]any
	if err := json.Unmarshal(payload[0], &chunks); err != nil {
		return "", fmt.Errorf("decode google translate chunks: %w", err)
	}

	var builder strings.Builder
	for _, chunk := range chunks {
		if len(chunk) == 0 {
			continue
		}
		if s, ok := chunk[0].(string); ok {
			builder.WriteString(s)
		}
	}
	translated := strings.TrimSpace(builder.String())
	if translated == "" {
		return "", errors.New("google translate returned no text")
	}
	return translated, nil
}
