package deps

import (
	"context"
	"os/exec"
	"strings"

	"go.uber.org/zap"

	"video-redub/config"
	"video-redub/internal/composer"
	"video-redub/log"
	"video-redub/pkg/fasterwhisper"
)

// Capabilities is what the host can do, decided once at startup and passed
// down to the transcriber and composer.
type Capabilities struct {
	CUDA            bool
	NVENC           bool
	TranscribeModes []fasterwhisper.ExecutionMode
	PrimaryProfile  composer.EncodeProfile
	FallbackProfile composer.EncodeProfile
}

// Prober answers the two hardware questions negotiation needs.
type Prober struct {
	Encoders func(ctx context.Context) (string, error)
	HasCUDA  func(ctx context.Context) bool
}

// NvidiaSmiCUDA reports whether nvidia-smi lists at least one GPU.
func NvidiaSmiCUDA(bin string) func(ctx context.Context) bool {
	return func(ctx context.Context) bool {
		if bin == "" {
			bin = "nvidia-smi"
		}
		out, err := exec.CommandContext(ctx, bin, "-L").Output()
		return err == nil && strings.Contains(string(out), "GPU")
	}
}

func NegotiateCapabilities(ctx context.Context, conf config.Config, prober Prober) Capabilities {
	var caps Capabilities

	switch conf.Compose.Accelerator {
	case config.AcceleratorNone:
	case config.AcceleratorCuda:
		caps.CUDA = true
	default:
		caps.CUDA = prober.HasCUDA != nil && prober.HasCUDA(ctx)
	}

	if conf.Compose.Accelerator != config.AcceleratorNone && prober.Encoders != nil {
		encoders, err := prober.Encoders(ctx)
		if err != nil {
			log.GetLogger().Warn("无法获取 ffmpeg 编码器列表 cannot list encoders", zap.Error(err))
		} else {
			caps.NVENC = strings.Contains(encoders, "h264_nvenc")
		}
	}

	whisper := conf.Transcribe.Fasterwhisper
	if caps.CUDA {
		caps.TranscribeModes = fasterwhisper.DefaultModes(whisper.Model, whisper.FallbackModel)
	} else {
		caps.TranscribeModes = []fasterwhisper.ExecutionMode{{Device: "cpu", ComputeType: "int8", Model: whisper.Model}}
		if whisper.FallbackModel != "" && whisper.FallbackModel != whisper.Model {
			caps.TranscribeModes = append(caps.TranscribeModes, fasterwhisper.ExecutionMode{Device: "cpu", ComputeType: "int8", Model: whisper.FallbackModel})
		}
	}

	if caps.NVENC {
		caps.PrimaryProfile = composer.NvencProfile(conf.Compose.AudioBitrate)
	} else {
		caps.PrimaryProfile = composer.X264Profile(conf.Compose.AudioBitrate)
	}
	caps.FallbackProfile = composer.BasicProfile()

	log.GetLogger().Info("硬件能力协商完成 capabilities negotiated",
		zap.Bool("cuda", caps.CUDA), zap.Bool("nvenc", caps.NVENC),
		zap.String("encoder", caps.PrimaryProfile.Name), zap.Int("transcribe_modes", len(caps.TranscribeModes)))
	return caps
}

// FormatCapabilities renders a one-line summary for diagnostics.
func FormatCapabilities(caps Capabilities) string {
	modes := make([]string, 0, len(caps.TranscribeModes))
	for _, mode := range caps.TranscribeModes {
		modes = append(modes, mode.Device+"/"+mode.Model)
	}
	return "cuda=" + yesNo(caps.CUDA) + " nvenc=" + yesNo(caps.NVENC) +
		" encoder=" + caps.PrimaryProfile.Name + " fallback=" + caps.FallbackProfile.Name +
		" transcribe=" + strings.Join(modes, ",")
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
