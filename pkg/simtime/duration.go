package simtime

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Duration is a span of simulation time.
type Duration struct {
	Secs  int64  `cbor:"secs" json:"secs" yaml:"secs"`
	Nanos uint32 `cbor:"nanos" json:"nanos" yaml:"nanos"`
}

// NewDuration builds a duration, carrying nanosecond overflow into seconds.
func NewDuration(secs int64, nanos int64) Duration {
	s, n := normalize(secs, nanos)
	return Duration{Secs: s, Nanos: n}
}

// DurationOf converts a time.Duration.
func DurationOf(d time.Duration) Duration {
	return NewDuration(0, int64(d))
}

// Seconds is shorthand for a whole number of seconds.
func Seconds(secs int64) Duration {
	return Duration{Secs: secs}
}

// Std converts to a time.Duration, saturating outside its range.
func (d Duration) Std() time.Duration {
	const (
		maxSecs  = math.MaxInt64 / nanosPerSec
		maxNanos = math.MaxInt64 % nanosPerSec
		// MinInt64 = (-maxSecs-1)*1e9 + minNanos
		minSecs  = -maxSecs - 1
		minNanos = nanosPerSec - maxNanos - 1
	)
	switch {
	case d.Secs > maxSecs, d.Secs == maxSecs && int64(d.Nanos) > maxNanos:
		return time.Duration(math.MaxInt64)
	case d.Secs < minSecs, d.Secs == minSecs && int64(d.Nanos) < minNanos:
		return time.Duration(math.MinInt64)
	case d.Secs == minSecs:
		return time.Duration(d.Secs+1)*time.Second + time.Duration(int64(d.Nanos)-nanosPerSec)
	}
	return time.Duration(d.Secs)*time.Second + time.Duration(d.Nanos)
}

// IsPositive reports whether d is strictly greater than zero.
func (d Duration) IsPositive() bool {
	return d.Secs > 0 || (d.Secs == 0 && d.Nanos > 0)
}

func (d Duration) IsZero() bool {
	return d.Secs == 0 && d.Nanos == 0
}

func (d Duration) String() string {
	return d.Std().String()
}

func (Duration) isDeadline() {}

// ParseDuration accepts Go duration syntax ("1.5s", "250ms", "1h30m") or a
// plain number of seconds ("3", "0.25"). Negative durations are rejected.
func ParseDuration(s string) (Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Duration{}, fmt.Errorf("empty duration")
	}
	if strings.HasPrefix(s, "-") {
		return Duration{}, fmt.Errorf("invalid duration %q: must not be negative", s)
	}

	if std, err := time.ParseDuration(s); err == nil {
		return DurationOf(std), nil
	}

	secs, nanos, err := parseSeconds(s)
	if err != nil {
		return Duration{}, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	return NewDuration(secs, nanos), nil
}

// Deadline is a target simulation time: either an absolute MonotonicTime or
// a Duration relative to the current simulation time.
type Deadline interface {
	isDeadline()
}

// ParseDeadline reads "+<duration>" as a relative deadline and anything else
// as an absolute time.
func ParseDeadline(s string) (Deadline, error) {
	s = strings.TrimSpace(s)
	if rel, ok := strings.CutPrefix(s, "+"); ok {
		return ParseDuration(rel)
	}
	return ParseMonotonicTime(s)
}
