package composer

import (
	"cmp"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"slices"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// DefaultWindowFrames is how many frames Render keeps in memory per pass.
const DefaultWindowFrames = 1 << 16

// StreamMix describes one streamed mix. Original and every clip path must be
// PCM WAV files at SampleRate / Channels.
type StreamMix struct {
	// Original is the track to attenuate. Empty means SilenceFrames of silence.
	Original      string
	SilenceFrames int
	Clips         []Clip
	SampleRate    int
	Channels      int
	Attenuation   float64
	WindowFrames  int
}

// Render writes the same samples Mix would produce, clamped to 16-bit PCM, to
// outPath. Only one window of the original and the clips overlapping it are
// held in memory. It returns the number of frames written.
func (m StreamMix) Render(outPath string) (int, error) {
	format := audio.Format{SampleRate: m.SampleRate, NumChannels: m.Channels}
	if err := checkFormat(&format); err != nil {
		return 0, fmt.Errorf("render: %w", err)
	}
	channels := m.Channels
	window := m.WindowFrames
	if window <= 0 {
		window = DefaultWindowFrames
	}

	pending, err := m.schedule()
	if err != nil {
		return 0, err
	}

	var src frameSource
	if m.Original == "" {
		src = &silenceSource{remaining: max(m.SilenceFrames, 0), channels: channels}
	} else {
		ws, err := openWavSource(m.Original, format, window)
		if err != nil {
			return 0, err
		}
		defer ws.Close()
		src = ws
	}

	sink, err := newPCMWriter(outPath, format, window)
	if err != nil {
		return 0, err
	}

	buf := make([]float64, window*channels)
	var active []placed
	written := 0
	for {
		n, err := src.read(buf)
		if err != nil {
			sink.abort()
			return written, fmt.Errorf("read %s: %w", m.Original, err)
		}

		end := written + window
		for len(pending) > 0 && pending[0].offset < end {
			c, err := m.load(pending[0], format)
			if err != nil {
				sink.abort()
				return written, err
			}
			active = append(active, c)
			pending = pending[1:]
		}

		frames := n
		for _, c := range active {
			frames = max(frames, min(c.end(channels), end)-written)
		}
		if len(pending) > 0 {
			frames = window
		}
		if frames <= 0 {
			break
		}

		chunk := buf[:frames*channels]
		mixWindow(chunk, written, channels, m.Attenuation, active)
		if err = sink.write(chunk); err != nil {
			sink.abort()
			return written, err
		}
		written += frames

		active = slices.DeleteFunc(active, func(c placed) bool { return c.end(channels) <= written })
	}

	if written == 0 {
		// header only
		if err = sink.write(nil); err != nil {
			sink.abort()
			return 0, err
		}
	}
	return written, sink.close()
}

type scheduled struct {
	index  int
	offset int
}

// schedule orders clips by first frame so they can be loaded as the window
// reaches them.
func (m StreamMix) schedule() ([]scheduled, error) {
	out := make([]scheduled, 0, len(m.Clips))
	for i, clip := range m.Clips {
		offset, err := startFrame(clip.Start, m.SampleRate)
		if err != nil {
			return nil, fmt.Errorf("render: clip %d: %w", i, err)
		}
		out = append(out, scheduled{index: i, offset: offset})
	}
	slices.SortStableFunc(out, func(a, b scheduled) int { return cmp.Compare(a.offset, b.offset) })
	return out, nil
}

func (m StreamMix) load(s scheduled, format audio.Format) (placed, error) {
	clip := m.Clips[s.index]
	buf, err := ReadWav(clip.Path)
	if err != nil {
		return placed{}, fmt.Errorf("render: clip %d: %w", s.index, err)
	}
	c, err := place(buf, clip.Start, format)
	if err != nil {
		return placed{}, fmt.Errorf("render: clip %d %s: %w", s.index, clip.Path, err)
	}
	return c, nil
}

// frameSource fills dst with the next frames of the original track and zeroes
// the rest. It returns 0 once the track is exhausted.
type frameSource interface {
	read(dst []float64) (int, error)
}

type silenceSource struct {
	remaining int
	channels  int
}

func (s *silenceSource) read(dst []float64) (int, error) {
	frames := min(len(dst)/s.channels, s.remaining)
	s.remaining -= frames
	clear(dst)
	return frames, nil
}

type wavSource struct {
	f        *os.File
	dec      *wav.Decoder
	ints     *audio.IntBuffer
	scale    float64
	channels int
}

func openWavSource(path string, format audio.Format, window int) (*wavSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	dec := wav.NewDecoder(f)
	if err = dec.FwdToPCM(); err != nil {
		f.Close()
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if dec.BitDepth == 0 || int(dec.SampleRate) != format.SampleRate || int(dec.NumChans) != format.NumChannels {
		f.Close()
		return nil, fmt.Errorf("decode %s: got %d Hz / %d ch / %d bit, want %d Hz / %d ch PCM",
			path, dec.SampleRate, dec.NumChans, dec.BitDepth, format.SampleRate, format.NumChannels)
	}
	return &wavSource{
		f:   f,
		dec: dec,
		ints: &audio.IntBuffer{
			Format: &audio.Format{SampleRate: format.SampleRate, NumChannels: format.NumChannels},
			Data:   make([]int, window*format.NumChannels),
		},
		scale:    pcmScale(int(dec.BitDepth)),
		channels: format.NumChannels,
	}, nil
}

func (s *wavSource) read(dst []float64) (int, error) {
	s.ints.Data = s.ints.Data[:len(dst)]
	n, err := s.dec.PCMBuffer(s.ints)
	if err != nil && !errors.Is(err, io.EOF) {
		return 0, err
	}
	frames := n / s.channels
	for i, v := range s.ints.Data[:frames*s.channels] {
		dst[i] = float64(v) / s.scale
	}
	clear(dst[frames*s.channels:])
	return frames, nil
}

func (s *wavSource) Close() error {
	return s.f.Close()
}

// pcmWriter encodes float windows as 16-bit PCM, clamping to [-1, 1].
type pcmWriter struct {
	path string
	f    *os.File
	enc  *wav.Encoder
	ints *audio.IntBuffer
	peak float64
}

func newPCMWriter(path string, format audio.Format, window int) (*pcmWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &pcmWriter{
		path: path,
		f:    f,
		enc:  wav.NewEncoder(f, format.SampleRate, pcmBitDepth, format.NumChannels, 1),
		ints: &audio.IntBuffer{
			Format:         &audio.Format{SampleRate: format.SampleRate, NumChannels: format.NumChannels},
			Data:           make([]int, 0, window*format.NumChannels),
			SourceBitDepth: pcmBitDepth,
		},
		peak: pcmScale(pcmBitDepth) - 1,
	}, nil
}

func (w *pcmWriter) write(samples []float64) error {
	w.ints.Data = w.ints.Data[:0]
	for _, v := range samples {
		w.ints.Data = append(w.ints.Data, int(math.Round(min(max(v, -1), 1)*w.peak)))
	}
	if err := w.enc.Write(w.ints); err != nil {
		return fmt.Errorf("encode %s: %w", w.path, err)
	}
	return nil
}

func (w *pcmWriter) close() error {
	if err := w.enc.Close(); err != nil {
		w.f.Close()
		return fmt.Errorf("finalize %s: %w", w.path, err)
	}
	return w.f.Close()
}

func (w *pcmWriter) abort() {
	w.f.Close()
	_ = os.Remove(w.path)
}
