package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"video-redub/internal/voice"
)

func newVoicesCommand() *cobra.Command {
	var region string
	cmd := &cobra.Command{
		Use:   "voices",
		Short: "List the Chinese voice catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), renderVoices(voice.ByRegion(voice.Region(region))))
			return nil
		},
	}
	cmd.Flags().StringVar(&region, "region", "", "Only list one region (zh-CN, zh-HK, zh-TW)")
	return cmd
}

func renderVoices(voices []voice.Voice) string {
	rows := make([][]string, 0, len(voices))
	for _, v := range voices {
		marker := ""
		if v.Id == voice.DefaultVoiceId {
			marker = "*"
		}
		rows = append(rows, []string{v.Id + marker, v.Region.Label(), v.Label()})
	}
	return renderTable([]string{"Voice", "Region", "Name"}, rows, nil)
}

func newPreviewCommand(ctx *commandContext) *cobra.Command {
	var opts runOptions
	cmd := &cobra.Command{
		Use:   "preview [TEXT]",
		Short: "Synthesize a short sample with a voice and speed",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.resolve(cmd); err != nil {
				return err
			}
			text := ""
			if len(args) == 1 {
				text = args[0]
			}
			svc := ctx.ensureService(cmd.Context())
			clip, err := svc.PreviewVoice(cmd.Context(), opts.voiceID, opts.speedRate, text)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), clip)
			return nil
		},
	}
	addVoiceFlags(cmd, &opts)
	return cmd
}
