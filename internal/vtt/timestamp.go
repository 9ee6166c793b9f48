package vtt

import (
	"fmt"
	"strconv"
	"strings"
)

// Timestamp is a cue time offset stored as integer milliseconds so that
// duration math never accumulates floating-point drift.
type Timestamp int64

const (
	millisPerSecond = 1000
	millisPerMinute = 60 * millisPerSecond
	millisPerHour   = 60 * millisPerMinute
)

// ParseTimestamp parses a WebVTT timestamp of the form HH:MM:SS.mmm or the
// short form MM:SS.mmm.
func ParseTimestamp(value string) (Timestamp, error) {
	value = strings.TrimSpace(value)
	parts := strings.Split(value, ":")

	var hourText, minuteText, secondText string
	switch len(parts) {
	case 2:
		hourText, minuteText, secondText = "0", parts[0], parts[1]
	case 3:
		hourText, minuteText, secondText = parts[0], parts[1], parts[2]
	default:
		return 0, fmt.Errorf("timestamp %q: expected HH:MM:SS.mmm", value)
	}

	hours, err := strconv.Atoi(hourText)
	if err != nil || hours < 0 {
		return 0, fmt.Errorf("timestamp %q: bad hours", value)
	}
	minutes, err := strconv.Atoi(minuteText)
	if err != nil || minutes < 0 || minutes > 59 {
		return 0, fmt.Errorf("timestamp %q: bad minutes", value)
	}

	secondParts := strings.SplitN(secondText, ".", 2)
	if len(secondParts) != 2 || len(secondParts[1]) != 3 {
		return 0, fmt.Errorf("timestamp %q: expected millisecond precision", value)
	}
	seconds, err := strconv.Atoi(secondParts[0])
	if err != nil || seconds < 0 || seconds > 59 {
		return 0, fmt.Errorf("timestamp %q: bad seconds", value)
	}
	millis, err := strconv.Atoi(secondParts[1])
	if err != nil || millis < 0 {
		return 0, fmt.Errorf("timestamp %q: bad milliseconds", value)
	}

	total := int64(hours)*millisPerHour + int64(minutes)*millisPerMinute +
		int64(seconds)*millisPerSecond + int64(millis)
	return Timestamp(total), nil
}

// String renders the canonical HH:MM:SS.mmm form used in output records.
func (t Timestamp) String() string {
	ms := int64(t)
	if ms < 0 {
		ms = 0
	}
	hours := ms / millisPerHour
	ms -= hours * millisPerHour
	minutes := ms / millisPerMinute
	ms -= minutes * millisPerMinute
	seconds := ms / millisPerSecond
	ms -= seconds * millisPerSecond
	return fmt.Sprintf("%02d:%02d:%02d.%03d", hours, minutes, seconds, ms)
}

// Milliseconds returns the raw millisecond count.
func (t Timestamp) Milliseconds() int64 { return int64(t) }
