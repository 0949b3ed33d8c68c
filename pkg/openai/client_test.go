package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"video-redub/pkg/retry"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(server.URL+"/v1", "sk-test", nil)
}

func TestTranslate(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var body struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Len(t, body.Messages, 2)
		assert.Contains(t, body.Messages[0].Content, "Simplified Chinese")
		assert.Equal(t, "Hello there", body.Messages[1].Content)

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"choices":[{"index":0,"message":{"role":"assistant","content":"“你好”"}}]}`)
	})

	got, err := client.Translate(context.Background(), "Hello there")
	require.NoError(t, err)
	assert.Equal(t, "你好", got)
}

func TestTranslateWithoutChoices(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"choices":[]}`)
	})

	_, err := client.Translate(context.Background(), "Hello")
	assert.Error(t, err)
}

func TestTranslateServerError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"error":{"message":"quota","type":"insufficient_quota"}}`)
	})

	_, err := client.Translate(context.Background(), "Hello")
	require.Error(t, err)
	assert.False(t, retry.IsPermanent(err))
}

func TestCleanTranslation(t *testing.T) {
	assert.Equal(t, "你好 世界", CleanTranslation("  \"你好\n世界\"  "))
	assert.Equal(t, "你好", CleanTranslation("```你好```"))
	assert.Equal(t, "「", CleanTranslation("「"))
}

func TestSynthesizeWritesAudio(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/audio/speech", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "alloy", body["voice"])
		assert.InDelta(t, 1.5, body["speed"], 1e-9)
		_, _ = w.Write([]byte("fake-mp3"))
	})

	out := filepath.Join(t.TempDir(), "audio", "x_speech_0.mp3")
	require.NoError(t, client.Synthesize(context.Background(), "你好", "alloy", "+50%", out))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "fake-mp3", string(data))
}

func TestSynthesizeRejectsBadRate(t *testing.T) {
	client := NewClient("", "sk-test", nil)
	err := client.Synthesize(context.Background(), "hi", "alloy", "fast", filepath.Join(t.TempDir(), "a.mp3"))
	require.Error(t, err)
	assert.True(t, retry.IsPermanent(err))
}

func TestSynthesizeUnknownVoiceIsPermanent(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":{"message":"Invalid voice","type":"invalid_request_error"}}`)
	})

	err := client.Synthesize(context.Background(), "hi", "nobody", "", filepath.Join(t.TempDir(), "a.mp3"))
	require.Error(t, err)
	assert.True(t, retry.IsPermanent(err))
}

func TestTranscribeMapsSegments(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/audio/transcriptions", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "verbose_json", r.FormValue("response_format"))
		assert.Equal(t, "en", r.FormValue("language"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"task":"transcribe","language":"english","duration":4.2,"text":"Hi. Bye.",
			"segments":[{"id":0,"start":0.0,"end":1.5,"text":" Hi."},{"id":1,"start":2.0,"end":2.0,"text":" skipped"},{"id":2,"start":2.5,"end":4.2,"text":" Bye. "}]}`)
	})

	media := filepath.Join(t.TempDir(), "talk.mp3")
	require.NoError(t, os.WriteFile(media, []byte("audio"), 0o644))

	cleaned := false
	client.PrepareAudio = func(ctx context.Context, mediaPath string) (string, func(), error) {
		assert.Equal(t, media, mediaPath)
		return mediaPath, func() { cleaned = true }, nil
	}

	transcript, err := client.Transcribe(context.Background(), media)
	require.NoError(t, err)
	require.Len(t, transcript, 2)
	assert.Equal(t, "Hi.", transcript[0].Text)
	assert.Equal(t, 2, transcript[1].Index)
	assert.Equal(t, "Bye.", transcript[1].Text)
	assert.Equal(t, 4.2, transcript[1].End)
	assert.True(t, cleaned)
}
