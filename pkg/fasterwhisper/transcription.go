package fasterwhisper

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"video-redub/log"
	"video-redub/pkg/srt"
)

type outputSegment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

type output struct {
	Segments []outputSegment `json:"segments"`
}

// Args builds the CLI arguments for one execution mode.
func (p *FastwhisperProcessor) Args(mediaPath, outputDir string, mode ExecutionMode) []string {
	args := []string{
		mediaPath,
		"--model", mode.Model,
		"--device", mode.Device,
		"--compute_type", mode.ComputeType,
		"--language", p.Language,
		"--beam_size", strconv.Itoa(p.BeamSize),
		"--output_format", "json",
		"--output_dir", outputDir,
	}
	if p.ModelDir != "" {
		args = append(args, "--model_dir", p.ModelDir)
	}
	return args
}

// Transcribe tries each execution mode in order and returns the first success.
func (p *FastwhisperProcessor) Transcribe(ctx context.Context, mediaPath string) (srt.Transcript, error) {
	if len(p.Modes) == 0 {
		return nil, errors.New("fasterwhisper: no execution mode configured")
	}

	var errs []error
	for i, mode := range p.Modes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if i > 0 {
			log.GetLogger().Warn("fasterwhisper 转录失败，切换执行模式 switching execution mode",
				zap.String("device", mode.Device), zap.String("model", mode.Model))
		}
		transcript, err := p.transcribeWith(ctx, mediaPath, mode)
		if err == nil {
			return transcript, nil
		}
		errs = append(errs, fmt.Errorf("%s/%s: %w", mode.Device, mode.Model, err))
	}
	return nil, errors.Join(errs...)
}

func (p *FastwhisperProcessor) transcribeWith(ctx context.Context, mediaPath string, mode ExecutionMode) (srt.Transcript, error) {
	outputDir, err := os.MkdirTemp(p.WorkDir, "fasterwhisper-*")
	if err != nil {
		return nil, fmt.Errorf("create output dir failed: %w", err)
	}
	defer os.RemoveAll(outputDir)

	cmd := exec.CommandContext(ctx, p.BinPath, p.Args(mediaPath, outputDir, mode)...)
	log.GetLogger().Info("fasterwhisper 开始转录", zap.String("cmd", cmd.String()))
	out, err := p.run(cmd)
	if err != nil {
		log.GetLogger().Error("fasterwhisper 执行失败", zap.ByteString("output", bytes.TrimSpace(out)), zap.Error(err))
		return nil, fmt.Errorf("fasterwhisper failed: %w", err)
	}

	base := strings.TrimSuffix(filepath.Base(mediaPath), filepath.Ext(mediaPath))
	data, err := os.ReadFile(filepath.Join(outputDir, base+".json"))
	if err != nil {
		return nil, fmt.Errorf("read fasterwhisper output failed: %w", err)
	}
	return parseOutput(data)
}

func parseOutput(data []byte) (srt.Transcript, error) {
	var result output
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("decode fasterwhisper output failed: %w", err)
	}

	transcript := make(srt.Transcript, 0, len(result.Segments))
	for _, seg := range result.Segments {
		if seg.End <= seg.Start {
			continue
		}
		transcript = append(transcript, srt.Segment{
			Index: len(transcript) + 1,
			Start: seg.Start,
			End:   seg.End,
			Text:  strings.TrimSpace(seg.Text),
		})
	}
	return transcript, nil
}
