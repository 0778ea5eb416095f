package simtime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMonotonicTimeNormalizes(t *testing.T) {
	tests := []struct {
		name      string
		secs      int64
		nanos     int64
		wantSecs  int64
		wantNanos uint32
	}{
		{"already normal", 3, 500, 3, 500},
		{"positive overflow", 1, 2_500_000_000, 3, 500_000_000},
		{"negative nanos", 0, -1, -1, 999_999_999},
		{"negative overflow", 2, -3_000_000_001, -2, 999_999_999},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewMonotonicTime(tt.secs, tt.nanos)
			assert.Equal(t, tt.wantSecs, got.Secs)
			assert.Equal(t, tt.wantNanos, got.Nanos)
		})
	}
}

func TestFromDate(t *testing.T) {
	t0 := FromDate(1957, time.November, 4, 19, 28, 34, 0)
	assert.Equal(t, int64(-383632286), t0.Secs)
	assert.Equal(t, "1957-11-04 19:28:34.000000000", t0.String())

	assert.Equal(t, Epoch, FromDate(1970, time.January, 1, 0, 0, 0, 0))
}

func TestMonotonicTimeArithmetic(t *testing.T) {
	t0 := NewMonotonicTime(10, 900_000_000)
	t1 := t0.Add(NewDuration(1, 200_000_000))

	assert.Equal(t, MonotonicTime{Secs: 12, Nanos: 100_000_000}, t1)
	assert.Equal(t, NewDuration(1, 200_000_000), t1.Sub(t0))
	assert.True(t, t0.Before(t1))
	assert.True(t, t1.After(t0))
	assert.True(t, t1.Equal(MonotonicTime{Secs: 12, Nanos: 100_000_000}))
	assert.Equal(t, 0, t0.Compare(t0))
}

func TestParseMonotonicTime(t *testing.T) {
	tests := []struct {
		in      string
		want    MonotonicTime
		wantErr bool
	}{
		{in: "3", want: MonotonicTime{Secs: 3}},
		{in: "3.25", want: MonotonicTime{Secs: 3, Nanos: 250_000_000}},
		{in: "-1.5", want: MonotonicTime{Secs: -2, Nanos: 500_000_000}},
		{in: "1970-01-01 00:00:01.000000002", want: MonotonicTime{Secs: 1, Nanos: 2}},
		{in: "1970-01-02T00:00:00", want: MonotonicTime{Secs: 86400}},
		{in: "", wantErr: true},
		{in: "abc", wantErr: true},
		{in: "1.0123456789", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMonotonicTime(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseMonotonicTimeRoundTripsString(t *testing.T) {
	t0 := FromDate(2024, time.March, 9, 12, 0, 1, 42)
	got, err := ParseMonotonicTime(t0.String())
	require.NoError(t, err)
	assert.Equal(t, t0, got)
}
