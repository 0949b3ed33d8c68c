package srt

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerializeSingleSegment(t *testing.T) {
	got := Serialize(Transcript{{Index: 1, Start: 1.0, End: 2.5, Text: "Hello"}})
	assert.Equal(t, "1\n00:00:01,000 --> 00:00:02,500\nHello\n\n", got)
}

func TestSerializeRenumbers(t *testing.T) {
	got := Serialize(Transcript{
		{Index: 7, Start: 0, End: 1, Text: "a"},
		{Index: 3, Start: 1, End: 2, Text: "b"},
	})
	assert.Equal(t, "1\n00:00:00,000 --> 00:00:01,000\na\n\n2\n00:00:01,000 --> 00:00:02,000\nb\n\n", got)
}

func TestParseSerializeRoundTrip(t *testing.T) {
	original := Transcript{
		{Index: 1, Start: 0, End: 1.2, Text: "Hello there."},
		{Index: 2, Start: 1.5, End: 3.75, Text: "General Kenobi!"},
		{Index: 3, Start: 4.001, End: 4.5, Text: "你好"},
		{Index: 4, Start: 3723.042, End: 3725, Text: "late line"},
	}

	parsed := Parse(Serialize(original))
	require.Len(t, parsed, len(original))
	for i := range original {
		assert.InDelta(t, original[i].Start, parsed[i].Start, 1e-9)
		assert.InDelta(t, original[i].End, parsed[i].End, 1e-9)
		assert.Equal(t, original[i].Text, parsed[i].Text)
		assert.Equal(t, i+1, parsed[i].Index)
	}
}

func TestParseKeepsEmptyTextBlocks(t *testing.T) {
	input := "1\n00:00:01,000 --> 00:00:02,000\n\n\n2\n00:00:03,000 --> 00:00:04,000\nsecond\n\n"

	parsed := Parse(input)
	require.Len(t, parsed, 2)
	assert.Equal(t, "", parsed[0].Text)
	assert.True(t, parsed[0].Blank())
	assert.Equal(t, "second", parsed[1].Text)
	assert.Len(t, parsed.Speakable(), 1)
}

func TestParseSkipsStrayLines(t *testing.T) {
	input := strings.Join([]string{
		"WEBVTT-ish header",
		"",
		"1",
		"00:00:01,000 --> 00:00:02,000",
		"first",
		"",
		"garbage between blocks",
		"0",
		"2",
		"not a timing line",
		"3",
		"00:00:05,000 --> 00:00:06,000",
		"third",
		"",
	}, "\n")

	parsed := Parse(input)
	require.Len(t, parsed, 2)
	assert.Equal(t, "first", parsed[0].Text)
	assert.Equal(t, 3, parsed[1].Index)
	assert.Equal(t, "third", parsed[1].Text)
}

func TestParseHandlesCRLFAndBOM(t *testing.T) {
	input := "\uFEFF1\r\n00:00:01,000 --> 00:00:02,000\r\nhi\r\n\r\n"

	parsed := Parse(input)
	require.Len(t, parsed, 1)
	assert.Equal(t, "hi", parsed[0].Text)

	fromReader, err := ParseReader(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, parsed, fromReader)
}

func TestParseTruncatedFinalBlock(t *testing.T) {
	parsed := Parse("1\n00:00:01,000 --> 00:00:02,000")
	require.Len(t, parsed, 1)
	assert.Equal(t, "", parsed[0].Text)
}

func TestWriteFileAndParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "clip_en.srt")
	transcript := Transcript{{Start: 0.5, End: 1.5, Text: "one"}}

	require.NoError(t, WriteFile(path, transcript))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "1\n00:00:00,500 --> 00:00:01,500\none\n\n", string(raw))

	parsed, err := ParseFile(path)
	require.NoError(t, err)
	require.Len(t, parsed, 1)
	assert.Equal(t, "one", parsed[0].Text)
}

func TestTranscriptHelpers(t *testing.T) {
	transcript := Transcript{
		{Start: 0, End: 2, Text: "a"},
		{Start: 1, End: 5, Text: "  "},
		{Start: 3, End: 4, Text: "c"},
	}

	assert.Equal(t, []string{"a", "  ", "c"}, transcript.Texts())
	assert.Equal(t, 5.0, transcript.Duration())
	assert.Equal(t, "00:00:03,000 --> 00:00:04,000", transcript[2].Timing())
	assert.Len(t, transcript.Speakable(), 2)
}
