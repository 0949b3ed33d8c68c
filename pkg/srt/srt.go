package srt

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Parse reads 4-line blocks: a bare positive integer, a timing line, one text
// line, a blank separator. Anything that does not start a well-formed block is
// skipped.
func Parse(text string) Transcript {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	return parseLines(lines)
}

// ParseReader parses subtitle text from r.
func ParseReader(r io.Reader) (Transcript, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, strings.TrimSuffix(scanner.Text(), "\r"))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return parseLines(lines), nil
}

// ParseFile parses the subtitle file at path.
func ParseFile(path string) (Transcript, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return ParseReader(file)
}

func parseLines(lines []string) Transcript {
	var transcript Transcript
	if len(lines) > 0 {
		lines[0] = strings.TrimPrefix(lines[0], "\uFEFF")
	}

	i := 0
	for i < len(lines) {
		index, ok := blockIndex(lines[i])
		if !ok || i+1 >= len(lines) {
			i++
			continue
		}
		start, end, err := ParseTimingLine(lines[i+1])
		if err != nil {
			i++
			continue
		}

		text := ""
		if i+2 < len(lines) {
			text = strings.TrimSpace(lines[i+2])
		}
		transcript = append(transcript, Segment{Index: index, Start: start, End: end, Text: text})

		i += 3
		if i < len(lines) && strings.TrimSpace(lines[i]) == "" {
			i++
		}
	}
	return transcript
}

func blockIndex(line string) (int, bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return 0, false
	}
	for _, r := range trimmed {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	index, err := strconv.Atoi(trimmed)
	if err != nil || index <= 0 {
		return 0, false
	}
	return index, true
}

// Serialize writes every segment as "{i}\n{start} --> {end}\n{text}\n\n",
// numbering from 1 regardless of the segments' own indices.
func Serialize(t Transcript) string {
	var builder strings.Builder
	for i, seg := range t {
		fmt.Fprintf(&builder, "%d\n%s\n%s\n\n", i+1, seg.Timing(), seg.Text)
	}
	return builder.String()
}

// WriteFile serializes t to path, creating the parent directory.
func WriteFile(path string, t Transcript) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(Serialize(t)), 0o644)
}
