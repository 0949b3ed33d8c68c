package composer

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pcmStep is one 16-bit quantization step.
const pcmStep = 1.0 / 32767

func ramp(frames, rate, channels int) *audio.FloatBuffer {
	buf := &audio.FloatBuffer{
		Format: &audio.Format{SampleRate: rate, NumChannels: channels},
		Data:   make([]float64, frames*channels),
	}
	for i := range buf.Data {
		buf.Data[i] = float64(i)/float64(len(buf.Data))*0.8 - 0.4
	}
	return buf
}

func saveWav(t *testing.T, dir, name string, buf *audio.FloatBuffer) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, writeWav(path, buf))
	return path
}

func TestRenderMatchesMixAcrossWindows(t *testing.T) {
	const rate = 100
	for _, channels := range []int{1, 2} {
		dir := t.TempDir()
		original := ramp(100, rate, channels)
		a := constant(0.2, rate, channels, 0.3)
		b := constant(0.3, rate, channels, 0.2)
		c := constant(0.1, rate, channels, -0.25)

		want, err := Mix(original, []Placement{
			{Clip: a, Start: 0.13},
			{Clip: b, Start: 0.9},
			{Clip: c, Start: 0.15},
		}, 0.5)
		require.NoError(t, err)

		// every input and the output pass through 16-bit PCM
		originalPath := saveWav(t, dir, "original.wav", original)
		mix := StreamMix{
			Original: originalPath,
			Clips: []Clip{
				{Path: saveWav(t, dir, "a.wav", a), Start: 0.13},
				{Path: saveWav(t, dir, "b.wav", b), Start: 0.9},
				{Path: saveWav(t, dir, "c.wav", c), Start: 0.15},
			},
			SampleRate:   rate,
			Channels:     channels,
			Attenuation:  0.5,
			WindowFrames: 7,
		}
		out := filepath.Join(dir, "mixed.wav")
		frames, err := mix.Render(out)
		require.NoError(t, err)
		assert.Equal(t, 120, frames, "clip b runs 0.2 s past the original")

		got, err := ReadWav(out)
		require.NoError(t, err)
		require.Len(t, got.Data, len(want.Data))
		for i := range want.Data {
			require.InDelta(t, want.Data[i], got.Data[i], 5*pcmStep, "sample %d (%d ch)", i, channels)
		}
	}
}

func TestRenderWindowSizeDoesNotChangeOutput(t *testing.T) {
	const rate = 50
	dir := t.TempDir()
	originalPath := saveWav(t, dir, "original.wav", ramp(73, rate, 2))
	clipPath := saveWav(t, dir, "clip.wav", constant(0.5, rate, 2, 0.25))

	render := func(window int) []float64 {
		mix := StreamMix{
			Original:     originalPath,
			Clips:        []Clip{{Path: clipPath, Start: 1.1}},
			SampleRate:   rate,
			Channels:     2,
			Attenuation:  0.1,
			WindowFrames: window,
		}
		out := filepath.Join(dir, "mixed.wav")
		_, err := mix.Render(out)
		require.NoError(t, err)
		buf, err := ReadWav(out)
		require.NoError(t, err)
		return buf.Data
	}

	whole := render(1000)
	for _, window := range []int{1, 3, 16, 73} {
		assert.Equal(t, whole, render(window), "window %d", window)
	}
}

func TestRenderSilenceBridgesGapToLateClip(t *testing.T) {
	const rate = 100
	dir := t.TempDir()
	mix := StreamMix{
		SilenceFrames: 10,
		// listed out of order on purpose
		Clips: []Clip{
			{Path: saveWav(t, dir, "late.wav", constant(0.1, rate, 1, 0.5)), Start: 0.5},
			{Path: saveWav(t, dir, "early.wav", constant(0.02, rate, 1, -0.5)), Start: 0},
		},
		SampleRate:   rate,
		Channels:     1,
		Attenuation:  0.1,
		WindowFrames: 8,
	}
	out := filepath.Join(dir, "mixed.wav")
	frames, err := mix.Render(out)
	require.NoError(t, err)
	assert.Equal(t, 60, frames)

	got, err := ReadWav(out)
	require.NoError(t, err)
	require.Len(t, got.Data, 60)
	assert.InDelta(t, -0.5, got.Data[1], pcmStep)
	assert.InDelta(t, 0, got.Data[2], pcmStep)
	assert.InDelta(t, 0, got.Data[49], pcmStep)
	assert.InDelta(t, 0.5, got.Data[50], pcmStep)
	assert.InDelta(t, 0.5, got.Data[59], pcmStep)
}

func TestRenderClampsOverlapsOnlyAtOutput(t *testing.T) {
	const rate = 100
	dir := t.TempDir()
	loud := constant(0.1, rate, 1, 0.8)
	mix := StreamMix{
		SilenceFrames: 10,
		Clips: []Clip{
			{Path: saveWav(t, dir, "a.wav", loud), Start: 0},
			{Path: saveWav(t, dir, "b.wav", loud), Start: 0},
		},
		SampleRate:   rate,
		Channels:     1,
		WindowFrames: 4,
	}
	out := filepath.Join(dir, "mixed.wav")
	_, err := mix.Render(out)
	require.NoError(t, err)

	got, err := ReadWav(out)
	require.NoError(t, err)
	assert.InDelta(t, 32767.0/32768, got.Data[5], pcmStep)
}

func TestRenderRejectsMismatchedFormats(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "mixed.wav")

	mix := StreamMix{
		Original:   saveWav(t, dir, "original.wav", ramp(10, 200, 1)),
		SampleRate: 100,
		Channels:   1,
	}
	_, err := mix.Render(out)
	assert.Error(t, err)

	mix = StreamMix{
		SilenceFrames: 10,
		Clips:         []Clip{{Path: saveWav(t, dir, "stereo.wav", constant(0.1, 100, 2, 0.1)), Start: 0}},
		SampleRate:    100,
		Channels:      1,
	}
	_, err = mix.Render(out)
	assert.Error(t, err)
	assert.NoFileExists(t, out)

	mix = StreamMix{SilenceFrames: 10, Clips: []Clip{{Path: "x.wav", Start: math.NaN()}}, SampleRate: 100, Channels: 1}
	_, err = mix.Render(out)
	assert.Error(t, err)
}
