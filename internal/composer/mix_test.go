package composer

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func constant(seconds float64, rate, channels int, value float64) *audio.FloatBuffer {
	frames := int(math.Round(seconds * float64(rate)))
	buf := &audio.FloatBuffer{
		Format: &audio.Format{SampleRate: rate, NumChannels: channels},
		Data:   make([]float64, frames*channels),
	}
	for i := range buf.Data {
		buf.Data[i] = value
	}
	return buf
}

func durationOf(buf *audio.FloatBuffer) float64 {
	return float64(len(buf.Data)/buf.Format.NumChannels) / float64(buf.Format.SampleRate)
}

// writeWav renders buf as 16-bit PCM in one window.
func writeWav(path string, buf *audio.FloatBuffer) error {
	w, err := newPCMWriter(path, *buf.Format, len(buf.Data)/buf.Format.NumChannels)
	if err != nil {
		return err
	}
	if err = w.write(buf.Data); err != nil {
		w.abort()
		return err
	}
	return w.close()
}

func TestMixPlacesClipAtStart(t *testing.T) {
	const rate = 1000
	original := constant(10, rate, 1, 0.5)
	clip := constant(2, rate, 1, 0.3)

	out, err := Mix(original, []Placement{{Clip: clip, Start: 5}}, 0.1)
	require.NoError(t, err)
	require.Len(t, out.Data, 10*rate)

	assert.InDelta(t, 0.05, out.Data[4999], 1e-9)
	assert.InDelta(t, 0.35, out.Data[5000], 1e-9)
	assert.InDelta(t, 0.35, out.Data[6999], 1e-9)
	assert.InDelta(t, 0.05, out.Data[7000], 1e-9)
	assert.InDelta(t, 0.05, out.Data[0], 1e-9)
}

func TestMixExtendsPastOriginal(t *testing.T) {
	original := constant(1, 100, 2, 0.2)
	clip := constant(1, 100, 2, 0.4)

	out, err := Mix(original, []Placement{{Clip: clip, Start: 0.5}}, 1)
	require.NoError(t, err)
	assert.InDelta(t, 1.5, durationOf(out), 1e-9)
	assert.InDelta(t, 0.6, out.Data[60*2], 1e-9)
	assert.InDelta(t, 0.4, out.Data[len(out.Data)-1], 1e-9)
}

func TestMixOverlapsAddUnclamped(t *testing.T) {
	original := constant(2, 100, 1, 0)
	a := constant(1, 100, 1, 0.7)
	b := constant(1, 100, 1, 0.6)

	out, err := Mix(original, []Placement{{Clip: a, Start: 0}, {Clip: b, Start: 0.5}}, 0.1)
	require.NoError(t, err)
	assert.InDelta(t, 1.3, out.Data[75], 1e-9)
}

func TestMixRoundsStartToNearestFrame(t *testing.T) {
	original := constant(1, 10, 1, 0)
	clip := constant(0.1, 10, 1, 1)

	out, err := Mix(original, []Placement{{Clip: clip, Start: 0.26}}, 0)
	require.NoError(t, err)
	assert.Equal(t, 1.0, out.Data[3])
	assert.Equal(t, 0.0, out.Data[2])
}

func TestMixRejectsBadInput(t *testing.T) {
	original := constant(1, 100, 1, 0)

	_, err := Mix(original, []Placement{{Clip: constant(1, 200, 1, 0), Start: 0}}, 0.1)
	assert.Error(t, err)

	_, err = Mix(original, []Placement{{Clip: constant(1, 100, 1, 0), Start: -1}}, 0.1)
	assert.Error(t, err)

	_, err = Mix(&audio.FloatBuffer{}, nil, 0.1)
	assert.Error(t, err)
}

func TestMixWithoutClipsOnlyAttenuates(t *testing.T) {
	out, err := Mix(constant(1, 100, 1, 0.8), nil, 0.5)
	require.NoError(t, err)
	assert.InDelta(t, 0.4, out.Data[10], 1e-9)
}

func TestWavRoundTripClampsOnRender(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.wav")
	buf := &audio.FloatBuffer{
		Format: &audio.Format{SampleRate: 8000, NumChannels: 1},
		Data:   []float64{0, 0.5, -0.5, 1.7, -2},
	}
	require.NoError(t, writeWav(path, buf))

	got, err := ReadWav(path)
	require.NoError(t, err)
	assert.Equal(t, 8000, got.Format.SampleRate)
	require.Len(t, got.Data, 5)
	assert.InDelta(t, 0.5, got.Data[1], 1e-3)
	assert.InDelta(t, -0.5, got.Data[2], 1e-3)
	assert.InDelta(t, 1.0, got.Data[3], 1e-3)
	assert.InDelta(t, -1.0, got.Data[4], 1e-3)
}
