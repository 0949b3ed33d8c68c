package srt

import (
	"strings"

	"github.com/samber/lo"
)

// Segment is one timed unit of subtitle text. Start and End are seconds on the
// source timeline.
type Segment struct {
	Index int
	Start float64
	End   float64
	Text  string
}

// Timing returns the "start --> end" line for the segment.
func (s Segment) Timing() string {
	return FormatTimingLine(s.Start, s.End)
}

// Blank reports whether the text is empty after trimming.
func (s Segment) Blank() bool {
	return strings.TrimSpace(s.Text) == ""
}

// Transcript is an ordered list of segments, ascending by Start. Segments may overlap.
type Transcript []Segment

// Speakable returns the segments with non-blank text, order preserved.
func (t Transcript) Speakable() Transcript {
	return lo.Filter(t, func(s Segment, _ int) bool {
		return !s.Blank()
	})
}

// Texts returns the segment texts in order.
func (t Transcript) Texts() []string {
	return lo.Map(t, func(s Segment, _ int) string {
		return s.Text
	})
}

// Duration is the end of the last-ending segment.
func (t Transcript) Duration() float64 {
	return lo.Reduce(t, func(acc float64, s Segment, _ int) float64 {
		return max(acc, s.End)
	}, 0)
}
