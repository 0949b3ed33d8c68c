package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"video-redub/config"
	"video-redub/internal/pipeline"
	"video-redub/internal/service"
)

// runOptions are the per-run flags shared by the pipeline commands.
type runOptions struct {
	voiceID        string
	speedRate      float64
	originalVolume float64
	reuse          bool
}

func addVoiceFlags(cmd *cobra.Command, opts *runOptions) {
	cmd.Flags().StringVar(&opts.voiceID, "voice", "", "Voice id (default: configured default voice)")
	cmd.Flags().Float64Var(&opts.speedRate, "speed", 1.5, "Speech rate multiplier, 0.5 to 3.0 (default: configured speed rate)")
}

func addVolumeFlag(cmd *cobra.Command, opts *runOptions) {
	cmd.Flags().Float64Var(&opts.originalVolume, "original-volume", 0.1, "Original audio level under the dub, 0 to 1 (default: configured volume)")
}

// resolve fills flags the user did not set from the configuration.
func (o *runOptions) resolve(cmd *cobra.Command) error {
	conf := config.Get()
	if o.voiceID == "" {
		o.voiceID = conf.Tts.DefaultVoice
	}
	if f := cmd.Flags().Lookup("speed"); f != nil && !f.Changed {
		o.speedRate = conf.Tts.SpeedRate
	}
	if f := cmd.Flags().Lookup("original-volume"); f != nil && !f.Changed {
		o.originalVolume = conf.Compose.OriginalVolume
	}
	if cmd.Flags().Lookup("voice") != nil {
		return service.ValidateVoice(o.voiceID)
	}
	return nil
}

func (o runOptions) request(videoPath string) pipeline.Request {
	return pipeline.Request{
		VideoPath:      videoPath,
		VoiceID:        o.voiceID,
		SpeedRate:      o.speedRate,
		OriginalVolume: o.originalVolume,
	}
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	var opts runOptions
	cmd := &cobra.Command{
		Use:   "run VIDEO",
		Short: "Transcribe, translate, synthesize and compose a dubbed video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.resolve(cmd); err != nil {
				return err
			}
			orch, err := ctx.orchestrator(cmd.Context(), cmd.OutOrStdout(), opts)
			if err != nil {
				return err
			}
			output, err := service.Drive(cmd.Context(), orch, opts.request(args[0]), opts.reuse, nil)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), output)
			return nil
		},
	}
	addVoiceFlags(cmd, &opts)
	addVolumeFlag(cmd, &opts)
	cmd.Flags().BoolVar(&opts.reuse, "reuse", false, "Reuse subtitle files left by an earlier run in the work dir")
	return cmd
}

func newTranscribeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "transcribe VIDEO",
		Short: "Write the English subtitle file of a video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			orch, err := ctx.orchestrator(cmd.Context(), cmd.OutOrStdout(), runOptions{})
			if err != nil {
				return err
			}
			path, err := orch.Transcribe(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
}

func newTranslateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "translate EN_SRT",
		Short: "Translate an English subtitle file to Chinese with identical timing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			orch, err := ctx.orchestrator(cmd.Context(), cmd.OutOrStdout(), runOptions{})
			if err != nil {
				return err
			}
			path, err := orch.Translate(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
}

func newSynthesizeCommand(ctx *commandContext) *cobra.Command {
	var opts runOptions
	cmd := &cobra.Command{
		Use:   "synthesize CN_SRT",
		Short: "Render one speech clip per subtitle segment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.resolve(cmd); err != nil {
				return err
			}
			orch, err := ctx.orchestrator(cmd.Context(), cmd.OutOrStdout(), opts)
			if err != nil {
				return err
			}
			clips, err := orch.SynthesizeAll(cmd.Context(), args[0], opts.voiceID, opts.speedRate)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderClips(clips))
			return nil
		},
	}
	addVoiceFlags(cmd, &opts)
	return cmd
}

func newComposeCommand(ctx *commandContext) *cobra.Command {
	var opts runOptions
	cmd := &cobra.Command{
		Use:   "compose VIDEO CN_SRT",
		Short: "Synthesize the Chinese subtitles and compose them over the video",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.resolve(cmd); err != nil {
				return err
			}
			if err := pipeline.ValidateRequest(opts.request(args[0])); err != nil {
				return err
			}
			orch, err := ctx.orchestrator(cmd.Context(), cmd.OutOrStdout(), opts)
			if err != nil {
				return err
			}
			clips, err := orch.SynthesizeAll(cmd.Context(), args[1], opts.voiceID, opts.speedRate)
			if err != nil {
				return err
			}
			output, err := orch.Compose(cmd.Context(), args[0], clips, opts.originalVolume)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), output)
			return nil
		},
	}
	addVoiceFlags(cmd, &opts)
	addVolumeFlag(cmd, &opts)
	return cmd
}

func renderClips(clips []pipeline.Clip) string {
	rows := make([][]string, 0, len(clips))
	for i, clip := range clips {
		rows = append(rows, []string{
			strconv.Itoa(i),
			strconv.FormatFloat(clip.Start, 'f', 3, 64),
			clip.Timing,
			clip.Path,
		})
	}
	return renderTable([]string{"#", "Start", "Timing", "Clip"}, rows, []columnAlignment{alignRight, alignRight, alignLeft, alignLeft})
}
