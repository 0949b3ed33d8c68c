package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var workDirFlag string
	var logLevelFlag string

	ctx := newCommandContext(&workDirFlag, &logLevelFlag)

	rootCmd := &cobra.Command{
		Use:           "redub",
		Short:         "Re-dub English videos with Chinese speech",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			return ctx.ensureConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&workDirFlag, "workdir", "w", "", "Directory for subtitles/, audio/ and output/ (default: configured work dir or .)")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "warn", "Console log level (debug, info, warn, error)")

	rootCmd.AddCommand(newRunCommand(ctx))
	rootCmd.AddCommand(newTranscribeCommand(ctx))
	rootCmd.AddCommand(newTranslateCommand(ctx))
	rootCmd.AddCommand(newSynthesizeCommand(ctx))
	rootCmd.AddCommand(newComposeCommand(ctx))
	rootCmd.AddCommand(newVoicesCommand())
	rootCmd.AddCommand(newPreviewCommand(ctx))
	rootCmd.AddCommand(newDiagnoseCommand(ctx))
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}

// shouldSkipConfig lists commands that work without a config file.
func shouldSkipConfig(cmd *cobra.Command) bool {
	switch cmd.Name() {
	case "version", "voices", "help":
		return true
	}
	return false
}
