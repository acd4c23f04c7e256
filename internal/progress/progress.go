// Package progress converts encoder time-mark callbacks into throttled,
// de-duplicated percentage updates.
package progress

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// Sample is one progress callback from an external tool. Percent is only
// meaningful when HasPercent is set; otherwise the percentage is derived
// from Timemark against a reference duration.
type Sample struct {
	Timemark   string
	Percent    float64
	HasPercent bool
}

// ParseTimemark converts a time-mark string to seconds. Accepted forms:
// "HH:MM:SS(.fff)", "MM:SS", plain seconds ("45.5", "03").
func ParseTimemark(mark string) float64 {
	mark = strings.TrimSpace(mark)
	if mark == "" {
		return 0
	}

	if !strings.Contains(mark, ":") {
		v, _ := strconv.ParseFloat(mark, 64)
		return v
	}

	parts := strings.Split(mark, ":")

	secs, _ := strconv.ParseFloat(parts[len(parts)-1], 64)
	parts = parts[:len(parts)-1]

	if len(parts) > 0 {
		mins, _ := strconv.ParseFloat(parts[len(parts)-1], 64)
		secs += mins * 60
		parts = parts[:len(parts)-1]
	}

	if len(parts) > 0 {
		hours, _ := strconv.ParseFloat(parts[len(parts)-1], 64)
		secs += hours * 3600
	}

	return secs
}

// Percentage derives a completion percentage from a sample, rounded to two
// decimals. An explicit percent reported by the tool wins. A zero or
// unknown reference duration yields 0 instead of a division error.
func Percentage(s Sample, duration float64) float64 {
	if s.HasPercent {
		return round2(s.Percent)
	}
	if duration <= 0 {
		return 0
	}
	return round2(ParseTimemark(s.Timemark) / duration * 100)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Tracker rates-limits progress emission and drops samples that round to
// the last emitted percentage. Values above 100 are suppressed rather
// than clamped - they indicate bad duration metadata, not completion.
type Tracker struct {
	throttle    Throttle
	lastPercent float64
	done        bool
	emit        func(percent float64, known bool)
}

// NewTracker wires emit to be called at most once per interval. emit
// receives known=false when no percentage could be derived, so callers
// can still report unpercented activity.
func NewTracker(interval time.Duration, emit func(percent float64, known bool)) *Tracker {
	return &Tracker{
		throttle:    Throttle{Interval: interval},
		lastPercent: -1,
		emit:        emit,
	}
}

// Observe feeds one sample. duration is the reference duration in seconds,
// zero when unknown.
func (t *Tracker) Observe(s Sample, duration float64) {
	if t.done || !t.throttle.Allow() {
		return
	}

	percent := Percentage(s, duration)
	if percent > 100 {
		return
	}

	// dedupe applies at 0% too, or an unknown-duration run would emit one
	// line per throttle tick for its whole lifetime
	if percent == t.lastPercent {
		return
	}
	t.lastPercent = percent

	t.emit(percent, percent > 0)
}

// Finish makes the tracker drop every later sample. A throttled callback
// firing after the work completed must not produce a duplicate terminal
// update.
func (t *Tracker) Finish() {
	t.done = true
}
