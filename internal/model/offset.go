package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Offset is a position in a track, in whole seconds.
//
// Negative values count back from the end of the track. Whether zero means
// "start" or "end" depends on which side of a cut it is used on, so
// resolution is left to the audio tool.
type Offset int

// ParseOffset accepts a plain integer second count ("15", "-5") or a
// timestamp in mm:ss or hh:mm:ss form ("1:30", "01:02:03").
func ParseOffset(raw string) (Offset, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, fmt.Errorf("empty offset")
	}

	negative := strings.HasPrefix(s, "-")
	if negative {
		s = s[1:]
	}

	parts := strings.Split(s, ":")
	if len(parts) > 3 {
		return 0, fmt.Errorf("invalid offset %q", raw)
	}

	seconds := 0
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid offset %q", raw)
		}
		if i > 0 && n >= 60 {
			return 0, fmt.Errorf("invalid offset %q: component %d out of range", raw, n)
		}
		seconds = seconds*60 + n
	}

	if negative {
		seconds = -seconds
	}
	return Offset(seconds), nil
}

// Seconds returns the offset as an int.
func (o Offset) Seconds() int {
	return int(o)
}

// ResolveStart turns a start offset into an absolute position for a track of the
// given length. Negative offsets count back from the end.
func (o Offset) ResolveStart(total time.Duration) time.Duration {
	d := time.Duration(o) * time.Second
	if o < 0 {
		return clamp(total+d, 0, total)
	}
	return clamp(d, 0, total)
}

// ResolveEnd turns an end offset into an absolute position. Zero and negative
// offsets count back from the end, so 0 means "until the end".
func (o Offset) ResolveEnd(total time.Duration) time.Duration {
	d := time.Duration(o) * time.Second
	if o <= 0 {
		return clamp(total+d, 0, total)
	}
	return clamp(d, 0, total)
}

func clamp(v, lo, hi time.Duration) time.Duration {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
