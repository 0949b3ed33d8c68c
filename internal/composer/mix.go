package composer

import (
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const pcmBitDepth = 16

// Placement positions a decoded clip on the output timeline.
type Placement struct {
	Clip  *audio.FloatBuffer
	Start float64 // seconds
}

// placed is a clip resolved to its first output frame.
type placed struct {
	offset int
	data   []float64
}

func (p placed) end(channels int) int {
	return p.offset + len(p.data)/channels
}

// startFrame maps a start time to the nearest output frame.
func startFrame(start float64, sampleRate int) (int, error) {
	if start < 0 || math.IsNaN(start) || math.IsInf(start, 0) {
		return 0, fmt.Errorf("invalid start %v", start)
	}
	return int(math.Round(start * float64(sampleRate))), nil
}

// mixWindow attenuates the original samples already in window, whose first
// frame is first on the output timeline, and adds the overlapping part of
// every clip.
func mixWindow(window []float64, first, channels int, attenuation float64, clips []placed) {
	for i := range window {
		window[i] *= attenuation
	}
	last := first + len(window)/channels
	for _, c := range clips {
		from := max(c.offset, first)
		to := min(c.end(channels), last)
		if from >= to {
			continue
		}
		dst := window[(from-first)*channels : (to-first)*channels]
		src := c.data[(from-c.offset)*channels : (to-c.offset)*channels]
		for j, v := range src {
			dst[j] += v
		}
	}
}

func checkFormat(format *audio.Format) error {
	if format == nil {
		return errors.New("no format")
	}
	if format.NumChannels <= 0 || format.SampleRate <= 0 {
		return fmt.Errorf("invalid format %d Hz / %d ch", format.SampleRate, format.NumChannels)
	}
	return nil
}

func place(clip *audio.FloatBuffer, start float64, format audio.Format) (placed, error) {
	if clip == nil || clip.Format == nil {
		return placed{}, errors.New("clip has no format")
	}
	if clip.Format.SampleRate != format.SampleRate || clip.Format.NumChannels != format.NumChannels {
		return placed{}, fmt.Errorf("clip format %d Hz / %d ch does not match %d Hz / %d ch",
			clip.Format.SampleRate, clip.Format.NumChannels, format.SampleRate, format.NumChannels)
	}
	offset, err := startFrame(start, format.SampleRate)
	if err != nil {
		return placed{}, err
	}
	frames := len(clip.Data) / format.NumChannels
	return placed{offset: offset, data: clip.Data[:frames*format.NumChannels]}, nil
}

// Mix scales original by attenuation and adds each clip starting at the frame
// nearest its start time. Clips are neither stretched nor truncated, so the
// result grows past the original when a clip runs beyond it. Overlaps add and
// samples are left unclamped.
//
// Mix holds everything in memory; Render is the streaming form Compose uses.
func Mix(original *audio.FloatBuffer, placements []Placement, attenuation float64) (*audio.FloatBuffer, error) {
	if original == nil {
		return nil, errors.New("mix: original track is nil")
	}
	if err := checkFormat(original.Format); err != nil {
		return nil, fmt.Errorf("mix: original: %w", err)
	}
	format := *original.Format
	channels := format.NumChannels

	totalFrames := len(original.Data) / channels
	clips := make([]placed, 0, len(placements))
	for i, p := range placements {
		c, err := place(p.Clip, p.Start, format)
		if err != nil {
			return nil, fmt.Errorf("mix: clip %d: %w", i, err)
		}
		clips = append(clips, c)
		totalFrames = max(totalFrames, c.end(channels))
	}

	out := &audio.FloatBuffer{
		Format: &audio.Format{SampleRate: format.SampleRate, NumChannels: channels},
		Data:   make([]float64, totalFrames*channels),
	}
	copy(out.Data, original.Data[:len(original.Data)/channels*channels])
	mixWindow(out.Data, 0, channels, attenuation, clips)
	return out, nil
}

// ReadWav decodes a whole PCM WAV file into samples normalized to [-1, 1].
// Used for clips, which are short; the original track is streamed by Render.
func ReadWav(path string) (*audio.FloatBuffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if buf == nil || buf.Format == nil || dec.BitDepth == 0 {
		return nil, fmt.Errorf("decode %s: not a PCM wav file", path)
	}

	scale := pcmScale(int(dec.BitDepth))
	out := &audio.FloatBuffer{
		Format: &audio.Format{SampleRate: buf.Format.SampleRate, NumChannels: buf.Format.NumChannels},
		Data:   make([]float64, len(buf.Data)),
	}
	for i, v := range buf.Data {
		out.Data[i] = float64(v) / scale
	}
	return out, nil
}

func pcmScale(bitDepth int) float64 {
	return math.Pow(2, float64(bitDepth)-1)
}
