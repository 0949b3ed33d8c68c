package types

import (
	"context"

	"video-redub/pkg/srt"
)

// Transcriber turns the speech of a media file into timed source-language segments.
type Transcriber interface {
	Transcribe(ctx context.Context, mediaPath string) (srt.Transcript, error)
}

// Translator translates one segment's text.
type Translator interface {
	Translate(ctx context.Context, text string) (string, error)
}

// Synthesizer renders text with a voice into outputFile. An empty rate means the
// engine default speed; otherwise rate is a signed percentage such as "+50%".
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voice, rate, outputFile string) error
}
