package process

import (
	"bytes"
	"regexp"
	"strconv"
	"strings"
)

// clockPattern matches the time=HH:MM:SS.cc field ffmpeg prints on its
// periodic status lines.
var clockPattern = regexp.MustCompile(`time=(\d+):([0-5]?\d):([0-5]?\d(?:\.\d+)?)`)

// parseProgressClock extracts the elapsed output timestamp from one encoder
// status line. Lines without a parseable clock (including "time=N/A") report
// ok=false.
func parseProgressClock(line string) (seconds float64, ok bool) {
	match := clockPattern.FindStringSubmatch(line)
	if match == nil {
		return 0, false
	}
	hours, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return 0, false
	}
	minutes, err := strconv.ParseFloat(match[2], 64)
	if err != nil {
		return 0, false
	}
	secs, err := strconv.ParseFloat(match[3], 64)
	if err != nil {
		return 0, false
	}
	return hours*3600 + minutes*60 + secs, true
}

// reporter converts elapsed output seconds into a monotonic percentage.
// Percentages never decrease and never exceed 100; the final 100 is emitted
// by complete, only after the process has succeeded.
type reporter struct {
	expected float64
	sink     func(float64)
	last     float64
}

func newReporter(expectedSeconds float64, sink func(float64)) *reporter {
	return &reporter{expected: expectedSeconds, sink: sink}
}

func (r *reporter) observe(seconds float64) {
	if r.sink == nil || r.expected <= 0 {
		return
	}
	percent := seconds / r.expected * 100
	if percent > 100 {
		percent = 100
	}
	if percent <= r.last {
		return
	}
	r.last = percent
	r.sink(percent)
}

func (r *reporter) complete() {
	if r.sink == nil || r.last >= 100 {
		return
	}
	r.last = 100
	r.sink(100)
}

// scanStatusLines splits encoder output on both carriage returns and
// newlines. ffmpeg redraws its status line with bare \r, so a plain line
// scanner would buffer the whole run as one token.
func scanStatusLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

// tailBuffer keeps the last few diagnostic lines from the encoder so a
// failure message can say what the tool complained about.
type tailBuffer struct {
	limit int
	lines []string
}

func newTailBuffer(limit int) *tailBuffer {
	return &tailBuffer{limit: limit}
}

func (t *tailBuffer) add(line string) {
	t.lines = append(t.lines, line)
	if len(t.lines) > t.limit {
		t.lines = t.lines[len(t.lines)-t.limit:]
	}
}

func (t *tailBuffer) hint() string {
	if len(t.lines) == 0 {
		return ""
	}
	start := len(t.lines) - 3
	if start < 0 {
		start = 0
	}
	return strings.Join(t.lines[start:], "; ")
}
