// Package fasterwhisper runs the faster-whisper command line tool and reads its
// JSON output back as a transcript.
package fasterwhisper

import (
	"os"
	"os/exec"
)

// ExecutionMode is one way of running the model. Modes are tried in order.
type ExecutionMode struct {
	Device      string // cuda, cpu
	ComputeType string // float16, int8
	Model       string
}

// DefaultModes is the GPU-first pair used when nothing was negotiated.
func DefaultModes(model, fallbackModel string) []ExecutionMode {
	return []ExecutionMode{
		{Device: "cuda", ComputeType: "float16", Model: model},
		{Device: "cpu", ComputeType: "int8", Model: fallbackModel},
	}
}

type FastwhisperProcessor struct {
	BinPath  string
	ModelDir string
	WorkDir  string // 生成中间文件的目录
	Language string
	BeamSize int
	Modes    []ExecutionMode
	run      func(cmd *exec.Cmd) ([]byte, error)
}

func NewFastwhisperProcessor(binPath string, modes []ExecutionMode) *FastwhisperProcessor {
	// 设置 HuggingFace 镜像，加速国内下载
	if os.Getenv("HF_ENDPOINT") == "" {
		_ = os.Setenv("HF_ENDPOINT", "https://hf-mirror.com")
	}
	if binPath == "" {
		binPath = "faster-whisper-xxl"
	}
	return &FastwhisperProcessor{
		BinPath:  binPath,
		Language: "en",
		BeamSize: 5,
		Modes:    modes,
		run: func(cmd *exec.Cmd) ([]byte, error) {
			return cmd.CombinedOutput()
		},
	}
}
