package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"

	"github.com/spf13/cobra"

	"video-redub/config"
	"video-redub/internal/appdirs"
	"video-redub/internal/deps"
	"video-redub/internal/service"
	"video-redub/log"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			printVersion(cmd.OutOrStdout())
		},
	}
}

func printVersion(out io.Writer) {
	fmt.Fprintf(out, "version: %s\ncommit: %s\ndate: %s\n", version, commit, date)
}

func newDiagnoseCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "diagnose",
		Short: "Report dependencies, accelerator capabilities and paths",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			svc := ctx.ensureService(cmd.Context())

			fmt.Fprintf(out, "runtime: %s/%s\n", runtime.GOOS, runtime.GOARCH)
			printVersion(out)
			fmt.Fprintln(out)
			fmt.Fprintln(out, deps.FormatDependencyReport(ctx.states))
			fmt.Fprintln(out)
			fmt.Fprintln(out, renderCapabilities(svc.Capabilities))
			fmt.Fprintln(out)
			printPaths(out, ctx.workDir())

			if missing := deps.MissingRequired(ctx.states); len(missing) > 0 {
				return fmt.Errorf("%d required dependencies missing", len(missing))
			}
			return nil
		},
	}
}

func renderCapabilities(caps deps.Capabilities) string {
	modes := ""
	for i, mode := range caps.TranscribeModes {
		if i > 0 {
			modes += ", "
		}
		modes += mode.Device + "/" + mode.ComputeType + "/" + mode.Model
	}
	conf := config.Get()
	rows := [][]string{
		{"CUDA", strconv.FormatBool(caps.CUDA)},
		{"NVENC", strconv.FormatBool(caps.NVENC)},
		{"Encoder", caps.PrimaryProfile.Name},
		{"Fallback encoder", caps.FallbackProfile.Name},
		{"Transcription modes", modes},
		{"Transcriber", conf.Transcribe.Provider},
		{"Translator", conf.Translate.Provider},
		{"TTS", conf.Tts.Provider},
	}
	return renderTable([]string{"Capability", "Value"}, rows, nil)
}

func printPaths(out io.Writer, workDir string) {
	if configPath, err := config.ResolveConfigPath(); err == nil {
		printPath(out, "config", configPath)
	}
	if logPath, err := log.ResolveLogFilePath(); err == nil {
		printPath(out, "log", logPath)
	}
	printPath(out, "work_dir", workDir)
	if taskRoot, err := service.ResolveTaskRoot(); err == nil {
		printPath(out, "task_root", taskRoot)
	}
	if dirs, err := appdirs.Resolve(); err == nil {
		printPath(out, "cache", dirs.CacheDir)
	}
	if dbPath, err := appdirs.ResolveDBPath(); err == nil {
		printPath(out, "database", dbPath)
	}
}

func printPath(out io.Writer, name, value string) {
	absPath, err := filepath.Abs(value)
	if err != nil {
		fmt.Fprintf(out, "path.%s: %s (abs_error=%v)\n", name, value, err)
		return
	}

	if _, err = os.Stat(absPath); err == nil {
		fmt.Fprintf(out, "path.%s: %s (exists)\n", name, absPath)
		return
	}
	if os.IsNotExist(err) {
		fmt.Fprintf(out, "path.%s: %s (missing)\n", name, absPath)
		return
	}

	fmt.Fprintf(out, "path.%s: %s (error=%v)\n", name, absPath, err)
}
