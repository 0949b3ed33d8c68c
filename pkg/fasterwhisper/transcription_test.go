package fasterwhisper

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleOutput = `{"segments":[
 {"start":0.0,"end":2.5,"text":" Hello world. "},
 {"start":2.5,"end":2.5,"text":"zero length"},
 {"start":3.0,"end":4.2,"text":"Second line"}
]}`

// flagValue returns the value following flag.
func flagValue(args []string, flag string) string {
	for i, arg := range args {
		if arg == flag && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

func TestParseOutput(t *testing.T) {
	transcript, err := parseOutput([]byte(sampleOutput))
	require.NoError(t, err)
	require.Len(t, transcript, 2)
	assert.Equal(t, "Hello world.", transcript[0].Text)
	assert.Equal(t, 2, transcript[1].Index)
	assert.Equal(t, 3.0, transcript[1].Start)
}

func TestArgs(t *testing.T) {
	p := NewFastwhisperProcessor("fw", nil)
	args := p.Args("/v/a.mp4", "/tmp/out", ExecutionMode{Device: "cpu", ComputeType: "int8", Model: "base"})
	assert.Equal(t, []string{
		"/v/a.mp4", "--model", "base", "--device", "cpu", "--compute_type", "int8",
		"--language", "en", "--beam_size", "5", "--output_format", "json", "--output_dir", "/tmp/out",
	}, args)
}

func TestTranscribeFallsBackOnce(t *testing.T) {
	p := NewFastwhisperProcessor("fw", DefaultModes("medium", "base"))
	p.WorkDir = t.TempDir()

	var devices []string
	p.run = func(cmd *exec.Cmd) ([]byte, error) {
		device := flagValue(cmd.Args, "--device")
		devices = append(devices, device)
		if device == "cuda" {
			return []byte("CUDA out of memory"), errors.New("exit status 1")
		}
		err := os.WriteFile(filepath.Join(flagValue(cmd.Args, "--output_dir"), "clip.json"), []byte(sampleOutput), 0o644)
		return nil, err
	}

	transcript, err := p.Transcribe(context.Background(), "/videos/clip.mp4")
	require.NoError(t, err)
	assert.Len(t, transcript, 2)
	assert.Equal(t, []string{"cuda", "cpu"}, devices)
}

func TestTranscribeFailsAfterAllModes(t *testing.T) {
	p := NewFastwhisperProcessor("fw", DefaultModes("medium", "base"))
	p.WorkDir = t.TempDir()
	calls := 0
	p.run = func(cmd *exec.Cmd) ([]byte, error) {
		calls++
		return nil, errors.New("boom")
	}

	_, err := p.Transcribe(context.Background(), "/videos/clip.mp4")
	require.Error(t, err)
	assert.Equal(t, 2, calls)
	assert.Contains(t, err.Error(), "cuda/medium")
	assert.Contains(t, err.Error(), "cpu/base")
}

func TestTranscribeWithoutModes(t *testing.T) {
	_, err := NewFastwhisperProcessor("fw", nil).Transcribe(context.Background(), "a.mp4")
	require.Error(t, err)
}
