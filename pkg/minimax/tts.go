package minimax

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"video-redub/log"
	"video-redub/pkg/retry"
	"video-redub/pkg/util"
)

// MiniMaxClient synthesizes speech through the t2a_v2 endpoint.
type MiniMaxClient struct {
	ApiKey  string
	GroupId string
	Model   string
	BaseURL string
	http    *resty.Client
}

func NewMiniMaxClient(apiKey, groupId, model string) *MiniMaxClient {
	if model == "" {
		model = "speech-02-hd"
	}
	return &MiniMaxClient{
		ApiKey:  apiKey,
		GroupId: groupId,
		Model:   model,
		BaseURL: "https://api.minimax.chat/v1/t2a_v2",
		http:    resty.New().SetTimeout(60 * time.Second),
	}
}

type T2ARequest struct {
	Model        string       `json:"model"`
	Text         string       `json:"text"`
	VoiceSetting VoiceSetting `json:"voice_setting"`
	AudioSetting AudioSetting `json:"audio_setting"`
	Stream       bool         `json:"stream"`
}

type VoiceSetting struct {
	VoiceId string  `json:"voice_id"`
	Speed   float64 `json:"speed"`
}

type AudioSetting struct {
	SampleRate int    `json:"sample_rate"`
	Format     string `json:"format"`
	Channel    int    `json:"channel"`
}

type T2AResponse struct {
	BaseResp BaseResp `json:"base_resp"`
	Data     struct {
		Audio  string `json:"audio"`
		Status int    `json:"status"`
	} `json:"data"`
}

// 鉴权失败和参数错误（含未知音色）重试无效
const (
	statusAuthFailed    = 1004
	statusInvalidParams = 2013
)

type BaseResp struct {
	StatusCode int    `json:"status_code"`
	StatusMsg  string `json:"status_msg"`
}

// Speed maps a rate modifier onto the API's [0.5, 2.0] speed range.
func Speed(rate string) (float64, error) {
	multiplier, err := util.RateMultiplier(rate)
	if err != nil {
		return 0, err
	}
	return min(max(multiplier, 0.5), 2.0), nil
}

func (c *MiniMaxClient) Synthesize(ctx context.Context, text, voice, rate, outputFile string) error {
	if err := os.MkdirAll(filepath.Dir(outputFile), 0o755); err != nil {
		return fmt.Errorf("create output dir failed: %w", err)
	}
	speed, err := Speed(rate)
	if err != nil {
		return retry.Permanent(err)
	}

	var apiResp T2AResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(c.ApiKey).
		SetQueryParam("GroupId", c.GroupId).
		SetBody(T2ARequest{
			Model:        c.Model,
			Text:         text,
			VoiceSetting: VoiceSetting{VoiceId: voice, Speed: speed},
			AudioSetting: AudioSetting{SampleRate: 32000, Format: "mp3", Channel: 1},
		}).
		SetResult(&apiResp).
		Post(c.BaseURL)
	if err != nil {
		return fmt.Errorf("minimax request failed: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return retry.ForStatus(resp.StatusCode(), fmt.Errorf("minimax status %d: %s", resp.StatusCode(), resp.String()))
	}
	if code := apiResp.BaseResp.StatusCode; code != 0 {
		err = fmt.Errorf("minimax api error: %d - %s", code, apiResp.BaseResp.StatusMsg)
		if code == statusAuthFailed || code == statusInvalidParams {
			return retry.Permanent(err)
		}
		return err
	}
	if apiResp.Data.Audio == "" {
		return errors.New("minimax returned empty audio")
	}

	// 音频以 hex 字符串返回
	audio, err := hex.DecodeString(apiResp.Data.Audio)
	if err != nil {
		return fmt.Errorf("decode hex audio failed: %w", err)
	}
	if err = os.WriteFile(outputFile, audio, 0o644); err != nil {
		return fmt.Errorf("write output file failed: %w", err)
	}

	log.GetLogger().Debug("MiniMax TTS success", zap.String("output", outputFile), zap.Int("bytes", len(audio)))
	return nil
}
