// Package edgetts drives the edge-tts command line tool.
package edgetts

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"video-redub/log"
)

type Client struct {
	BinPath string
	// run executes the prepared command; swapped in tests
	run func(cmd *exec.Cmd) ([]byte, error)
}

func NewClient(binPath string) *Client {
	if binPath == "" {
		binPath = "edge-tts"
	}
	return &Client{
		BinPath: binPath,
		run: func(cmd *exec.Cmd) ([]byte, error) {
			return cmd.CombinedOutput()
		},
	}
}

// Args builds the edge-tts argument list. The rate flag is left out when rate is
// empty because some service versions reject an explicit "+0%".
func Args(textFile, voice, rate, outputFile string) []string {
	args := []string{"--file", textFile, "--voice", voice}
	if rate != "" {
		args = append(args, "--rate="+rate)
	}
	return append(args, "--write-media", outputFile)
}

func (c *Client) Synthesize(ctx context.Context, text, voice, rate, outputFile string) error {
	if err := os.MkdirAll(filepath.Dir(outputFile), 0o755); err != nil {
		return fmt.Errorf("create output dir failed: %w", err)
	}

	// 文本走临时文件，避免命令行转义问题
	textFile, err := os.CreateTemp("", "redub-tts-*.txt")
	if err != nil {
		return fmt.Errorf("create text file failed: %w", err)
	}
	defer os.Remove(textFile.Name())
	if _, err = textFile.WriteString(text); err != nil {
		textFile.Close()
		return fmt.Errorf("write text file failed: %w", err)
	}
	if err = textFile.Close(); err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, c.BinPath, Args(textFile.Name(), voice, rate, outputFile)...)
	output, err := c.run(cmd)
	if err != nil {
		log.GetLogger().Warn("edge-tts failed", zap.String("voice", voice), zap.String("rate", rate), zap.ByteString("output", bytes.TrimSpace(output)), zap.Error(err))
		return fmt.Errorf("edge-tts failed: %w: %s", err, strings.TrimSpace(string(output)))
	}

	info, err := os.Stat(outputFile)
	if err != nil {
		return fmt.Errorf("edge-tts output file not found: %w", err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("edge-tts produced an empty file: %s", outputFile)
	}
	return nil
}

// Version returns the reported edge-tts version; used by dependency checks.
func (c *Client) Version(ctx context.Context) (string, error) {
	output, err := c.run(exec.CommandContext(ctx, c.BinPath, "--version"))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(output)), nil
}
