// Package simtime holds the time values exchanged with a simulation server.
//
// Simulation time is a monotonic TAI timestamp counted from the 1970-01-01
// 00:00:00 epoch. It is expressed as whole seconds plus a nanosecond part
// that always lies in [0, 1e9).
package simtime

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const nanosPerSec = 1_000_000_000

const dateLayout = "2006-01-02 15:04:05"

// MonotonicTime is an absolute simulation timestamp.
type MonotonicTime struct {
	Secs  int64  `cbor:"secs" json:"secs" yaml:"secs"`
	Nanos uint32 `cbor:"nanos" json:"nanos" yaml:"nanos"`
}

// Epoch is 1970-01-01 00:00:00 TAI.
var Epoch = MonotonicTime{}

// NewMonotonicTime builds a timestamp, carrying any nanosecond overflow
// (positive or negative) into the seconds.
func NewMonotonicTime(secs int64, nanos int64) MonotonicTime {
	s, n := normalize(secs, nanos)
	return MonotonicTime{Secs: s, Nanos: n}
}

// FromDate builds a timestamp from a calendar date. Leap seconds are not
// accounted for.
func FromDate(year int, month time.Month, day, hour, min, sec, nanos int) MonotonicTime {
	t := time.Date(year, month, day, hour, min, sec, 0, time.UTC)
	return NewMonotonicTime(t.Unix(), int64(nanos))
}

// FromTime converts a wall-clock time, read as if it were on the TAI scale.
func FromTime(t time.Time) MonotonicTime {
	return NewMonotonicTime(t.Unix(), int64(t.Nanosecond()))
}

// Time returns the timestamp as a UTC time.Time with the same calendar reading.
func (t MonotonicTime) Time() time.Time {
	return time.Unix(t.Secs, int64(t.Nanos)).UTC()
}

func (t MonotonicTime) Add(d Duration) MonotonicTime {
	return NewMonotonicTime(t.Secs+d.Secs, int64(t.Nanos)+int64(d.Nanos))
}

// Sub returns t-u.
func (t MonotonicTime) Sub(u MonotonicTime) Duration {
	return NewDuration(t.Secs-u.Secs, int64(t.Nanos)-int64(u.Nanos))
}

// Compare returns -1, 0 or +1.
func (t MonotonicTime) Compare(u MonotonicTime) int {
	switch {
	case t.Secs < u.Secs:
		return -1
	case t.Secs > u.Secs:
		return 1
	case t.Nanos < u.Nanos:
		return -1
	case t.Nanos > u.Nanos:
		return 1
	}
	return 0
}

func (t MonotonicTime) Before(u MonotonicTime) bool { return t.Compare(u) < 0 }
func (t MonotonicTime) After(u MonotonicTime) bool  { return t.Compare(u) > 0 }
func (t MonotonicTime) Equal(u MonotonicTime) bool  { return t.Compare(u) == 0 }

func (t MonotonicTime) String() string {
	return fmt.Sprintf("%s.%09d", t.Time().Format(dateLayout), t.Nanos)
}

func (MonotonicTime) isDeadline() {}

// ParseMonotonicTime accepts either a calendar reading such as
// "1957-11-04 19:28:34.5" or a signed number of seconds since the epoch
// such as "3" or "-1.25".
func ParseMonotonicTime(s string) (MonotonicTime, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return MonotonicTime{}, fmt.Errorf("empty time")
	}

	if strings.Count(s, "-") >= 2 || strings.Contains(s, ":") {
		date, frac, _ := strings.Cut(s, ".")
		t, err := time.ParseInLocation(dateLayout, strings.Replace(date, "T", " ", 1), time.UTC)
		if err != nil {
			return MonotonicTime{}, fmt.Errorf("invalid time %q: %w", s, err)
		}
		nanos, err := parseFraction(frac)
		if err != nil {
			return MonotonicTime{}, fmt.Errorf("invalid time %q: %w", s, err)
		}
		return NewMonotonicTime(t.Unix(), nanos), nil
	}

	secs, nanos, err := parseSeconds(s)
	if err != nil {
		return MonotonicTime{}, fmt.Errorf("invalid time %q: %w", s, err)
	}
	return NewMonotonicTime(secs, nanos), nil
}

func normalize(secs, nanos int64) (int64, uint32) {
	secs += nanos / nanosPerSec
	nanos %= nanosPerSec
	if nanos < 0 {
		nanos += nanosPerSec
		secs--
	}
	return secs, uint32(nanos)
}

// parseSeconds reads "[-]secs[.fraction]" as a signed (secs, nanos) pair
// suitable for normalize.
func parseSeconds(s string) (int64, int64, error) {
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(strings.TrimPrefix(s, "-"), "+")

	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" {
		whole = "0"
	}
	secs, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, 0, err
	}
	nanos, err := parseFraction(frac)
	if err != nil {
		return 0, 0, err
	}
	if neg {
		return -secs, -nanos, nil
	}
	return secs, nanos, nil
}

func parseFraction(frac string) (int64, error) {
	if frac == "" {
		return 0, nil
	}
	if len(frac) > 9 {
		return 0, fmt.Errorf("more than 9 fractional digits")
	}
	frac += strings.Repeat("0", 9-len(frac))
	n, err := strconv.ParseUint(frac, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid fraction: %w", err)
	}
	return int64(n), nil
}
