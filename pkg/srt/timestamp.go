package srt

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// 时间戳格式 HH:MM:SS,mmm
var timestampRegex = regexp.MustCompile(`^(\d+):(\d{1,2}):(\d{1,2}),(\d{1,3})$`)

// FormatError reports text that is not a valid HH:MM:SS,mmm timestamp or timing line.
type FormatError struct {
	Input  string
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("invalid timestamp %q: %s", e.Input, e.Reason)
}

// ParseTimestamp converts "HH:MM:SS,mmm" to seconds.
func ParseTimestamp(text string) (float64, error) {
	trimmed := strings.TrimSpace(text)
	matches := timestampRegex.FindStringSubmatch(trimmed)
	if matches == nil {
		return 0, &FormatError{Input: text, Reason: "expected HH:MM:SS,mmm"}
	}

	fields := make([]int, 4)
	for i, raw := range matches[1:] {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return 0, &FormatError{Input: text, Reason: err.Error()}
		}
		fields[i] = v
	}
	if fields[1] > 59 || fields[2] > 59 {
		return 0, &FormatError{Input: text, Reason: "minutes and seconds must be below 60"}
	}

	whole := fields[0]*3600 + fields[1]*60 + fields[2]
	return float64(whole) + float64(fields[3])/1000, nil
}

// FormatTimestamp renders seconds as "HH:MM:SS,mmm", truncating below the
// millisecond. When seconds*1000 lands at most two ulps under a whole
// millisecond it counts as that millisecond, so 1.001 (stored as 1.000999...)
// renders as 00:00:01,001. Negative input renders as zero.
func FormatTimestamp(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	totalMillis := int64(math.Floor(snapMillis(seconds * 1000)))

	hours := totalMillis / 3_600_000
	minutes := (totalMillis % 3_600_000) / 60_000
	secs := (totalMillis % 60_000) / 1000
	millis := totalMillis % 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, secs, millis)
}

// snapMillis lifts ms to the next whole millisecond when only float rounding
// separates them.
func snapMillis(ms float64) float64 {
	next := math.Ceil(ms)
	if next > ms && math.Nextafter(math.Nextafter(ms, next), next) >= next {
		return next
	}
	return ms
}

// ParseTimingLine parses "start --> end".
func ParseTimingLine(line string) (start, end float64, err error) {
	parts := strings.Split(strings.TrimSpace(line), "-->")
	if len(parts) != 2 {
		return 0, 0, &FormatError{Input: line, Reason: "expected \"start --> end\""}
	}
	if start, err = ParseTimestamp(parts[0]); err != nil {
		return 0, 0, err
	}
	if end, err = ParseTimestamp(parts[1]); err != nil {
		return 0, 0, err
	}
	return start, end, nil
}

// FormatTimingLine renders "start --> end".
func FormatTimingLine(start, end float64) string {
	return FormatTimestamp(start) + " --> " + FormatTimestamp(end)
}
