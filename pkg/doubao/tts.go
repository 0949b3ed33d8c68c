package doubao

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"video-redub/log"
	"video-redub/pkg/retry"
	"video-redub/pkg/util"
)

const (
	defaultBaseURL    = "https://openspeech.bytedance.com/api/v3/tts/unidirectional"
	defaultResourceId = "seed-tts-1.0"

	// V3 流式返回中表示合成结束的 code
	codeSessionFinished = 20000000
)

// DoubaoClient synthesizes speech through the Volcengine V3 unidirectional API.
type DoubaoClient struct {
	AppId       string
	AccessToken string
	ResourceId  string
	BaseURL     string
	http        *resty.Client
}

func NewDoubaoClient(appId, accessToken, resourceId string) *DoubaoClient {
	if resourceId == "" {
		resourceId = defaultResourceId
	}
	return &DoubaoClient{
		AppId:       appId,
		AccessToken: accessToken,
		ResourceId:  resourceId,
		BaseURL:     defaultBaseURL,
		http:        resty.New().SetTimeout(60 * time.Second).SetDoNotParseResponse(true),
	}
}

type DoubaoTTSRequest struct {
	User      DoubaoUser      `json:"user"`
	ReqParams DoubaoReqParams `json:"req_params"`
}

type DoubaoUser struct {
	Uid string `json:"uid"`
}

type DoubaoReqParams struct {
	Text        string            `json:"text"`
	Speaker     string            `json:"speaker"`
	AudioParams DoubaoAudioParams `json:"audio_params"`
}

type DoubaoAudioParams struct {
	Format     string `json:"format"`
	SampleRate int    `json:"sample_rate"`
	SpeechRate int    `json:"speech_rate,omitempty"`
}

type DoubaoTTSResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    string `json:"data"`
}

// SpeechRate maps a rate modifier onto the API's [-50, 100] speech_rate range.
func SpeechRate(rate string) (int, error) {
	percent, err := util.RatePercent(rate)
	if err != nil {
		return 0, err
	}
	return min(max(percent, -50), 100), nil
}

func (c *DoubaoClient) Synthesize(ctx context.Context, text, voice, rate, outputFile string) error {
	if err := os.MkdirAll(filepath.Dir(outputFile), 0o755); err != nil {
		return fmt.Errorf("create output dir failed: %w", err)
	}
	speechRate, err := SpeechRate(rate)
	if err != nil {
		return retry.Permanent(err)
	}

	reqBody := DoubaoTTSRequest{
		User: DoubaoUser{Uid: "redub_" + uuid.New().String()[:8]},
		ReqParams: DoubaoReqParams{
			Text:    text,
			Speaker: voice,
			AudioParams: DoubaoAudioParams{
				Format:     "mp3",
				SampleRate: 24000,
				SpeechRate: speechRate,
			},
		},
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("X-Api-App-Key", c.AppId).
		SetHeader("X-Api-Access-Key", c.AccessToken).
		SetHeader("X-Api-Resource-Id", c.ResourceId).
		SetHeader("Content-Type", "application/json").
		SetBody(reqBody).
		Post(c.BaseURL)
	if err != nil {
		return fmt.Errorf("doubao request failed: %w", err)
	}
	body := resp.RawBody()
	defer body.Close()

	if resp.StatusCode() != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(body, 4096))
		return retry.ForStatus(resp.StatusCode(), fmt.Errorf("doubao status %d: %s", resp.StatusCode(), bytes.TrimSpace(raw)))
	}

	audio, err := decodeStream(body)
	if err != nil {
		return err
	}
	if err = os.WriteFile(outputFile, audio, 0o644); err != nil {
		return fmt.Errorf("write output file failed: %w", err)
	}

	log.GetLogger().Debug("Doubao TTS success", zap.String("output", outputFile), zap.Int("bytes", len(audio)))
	return nil
}

// 返回体是连续的 JSON 对象，每个带一段 base64 音频
func decodeStream(r io.Reader) ([]byte, error) {
	decoder := json.NewDecoder(r)
	var audio bytes.Buffer
	for {
		var chunk DoubaoTTSResponse
		if err := decoder.Decode(&chunk); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("decode response stream failed: %w", err)
		}
		if chunk.Code != 0 && chunk.Code != codeSessionFinished {
			return nil, fmt.Errorf("doubao error %d: %s", chunk.Code, chunk.Message)
		}
		if chunk.Data == "" {
			continue
		}
		data, err := base64.StdEncoding.DecodeString(chunk.Data)
		if err != nil {
			return nil, fmt.Errorf("decode base64 chunk failed: %w", err)
		}
		audio.Write(data)
	}
	if audio.Len() == 0 {
		return nil, errors.New("doubao returned no audio data")
	}
	return audio.Bytes(), nil
}
