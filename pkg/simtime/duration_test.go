package simtime

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDurationConversions(t *testing.T) {
	d := DurationOf(1500 * time.Millisecond)
	assert.Equal(t, Duration{Secs: 1, Nanos: 500_000_000}, d)
	assert.Equal(t, 1500*time.Millisecond, d.Std())
	assert.Equal(t, "1.5s", d.String())

	assert.True(t, Seconds(1).IsPositive())
	assert.False(t, Duration{}.IsPositive())
	assert.True(t, Duration{}.IsZero())
}

func TestDurationStdSaturates(t *testing.T) {
	const maxSecs = math.MaxInt64 / nanosPerSec

	tests := []struct {
		name string
		d    Duration
		want time.Duration
	}{
		{"largest exact", Duration{Secs: maxSecs, Nanos: 854_775_807}, time.Duration(math.MaxInt64)},
		{"nanos past max", Duration{Secs: maxSecs, Nanos: 854_775_808}, time.Duration(math.MaxInt64)},
		{"nanos near limit", Duration{Secs: maxSecs, Nanos: 999_999_999}, time.Duration(math.MaxInt64)},
		{"secs past max", Duration{Secs: math.MaxInt64 / 2}, time.Duration(math.MaxInt64)},
		{"below max", Duration{Secs: maxSecs, Nanos: 1}, time.Duration(maxSecs*nanosPerSec + 1)},
		{"smallest exact", Duration{Secs: -maxSecs - 1, Nanos: 145_224_192}, time.Duration(math.MinInt64)},
		{"nanos past min", Duration{Secs: -maxSecs - 1, Nanos: 1}, time.Duration(math.MinInt64)},
		{"above min", Duration{Secs: -maxSecs - 1, Nanos: 145_224_193}, time.Duration(math.MinInt64 + 1)},
		{"secs past min", Duration{Secs: math.MinInt64 / 2}, time.Duration(math.MinInt64)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.d.Std())
		})
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in      string
		want    Duration
		wantErr bool
	}{
		{in: "3", want: Duration{Secs: 3}},
		{in: "0.001", want: Duration{Nanos: 1_000_000}},
		{in: "250ms", want: Duration{Nanos: 250_000_000}},
		{in: "1m30s", want: Duration{Secs: 90}},
		{in: "-1s", wantErr: true},
		{in: "soon", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDuration(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseDeadline(t *testing.T) {
	rel, err := ParseDeadline("+2s")
	require.NoError(t, err)
	assert.Equal(t, Seconds(2), rel)

	abs, err := ParseDeadline("6")
	require.NoError(t, err)
	assert.Equal(t, MonotonicTime{Secs: 6}, abs)
}
