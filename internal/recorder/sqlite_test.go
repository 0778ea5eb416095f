package recorder

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexosim/nexosim-go/pkg/client"
	"github.com/nexosim/nexosim-go/pkg/serialization"
	"github.com/nexosim/nexosim-go/pkg/simtime"
)

func encode(t *testing.T, values ...any) [][]byte {
	t.Helper()
	out := make([][]byte, len(values))
	for i, v := range values {
		data, err := serialization.Marshal(v)
		require.NoError(t, err)
		out[i] = data
	}
	return out
}

func TestRecordAndReadBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.sqlite3")
	r, err := NewSQLiteRecorder(path, 10, nil)
	require.NoError(t, err)
	defer r.Close()

	now := simtime.NewMonotonicTime(12, 500)
	require.NoError(t, r.Record(client.SinkBatch{Sink: "output", Time: now, Events: encode(t, "a", map[string]int{"n": 1}), Seq: 4}))
	require.NoError(t, r.Record(client.SinkBatch{Sink: "count", Time: now, Events: encode(t, 7)}))

	// Nothing is written before the batch fills or Flush is called.
	events, err := r.Events("")
	require.NoError(t, err)
	assert.Empty(t, events)

	require.NoError(t, r.Flush())

	events, err = r.Events("output")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "output", events[0].Sink)
	assert.Equal(t, now, events[0].Time)
	assert.Equal(t, uint64(4), events[0].Seq)
	assert.Equal(t, uint64(5), events[1].Seq)
	assert.Equal(t, `"a"`, events[0].PayloadJSON)
	assert.Equal(t, `{"n":1}`, events[1].PayloadJSON)
	assert.False(t, events[0].RecordedAt.IsZero())

	decoded, err := serialization.Decode[string](events[0].Payload)
	require.NoError(t, err)
	assert.Equal(t, "a", decoded)

	all, err := r.Events("")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestAutomaticFlush(t *testing.T) {
	r, err := NewSQLiteRecorder(filepath.Join(t.TempDir(), "auto.sqlite3"), 2, nil)
	require.NoError(t, err)
	defer r.Close()

	require.NoError(t, r.Record(client.SinkBatch{Sink: "s", Events: encode(t, 1, 2, 3)}))

	events, err := r.Events("s")
	require.NoError(t, err)
	assert.Len(t, events, 3)
}

func TestCloseFlushesAndPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "persist.sqlite3")
	r, err := NewSQLiteRecorder(path, 100, nil)
	require.NoError(t, err)

	require.NoError(t, r.Record(client.SinkBatch{Sink: "s", Events: encode(t, true)}))
	require.NoError(t, r.Close())
	require.NoError(t, r.Close())
	assert.Error(t, r.Record(client.SinkBatch{Sink: "s", Events: encode(t, false)}))

	reopened, err := NewSQLiteRecorder(path, 100, nil)
	require.NoError(t, err)
	defer reopened.Close()

	events, err := reopened.Events("s")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "true", events[0].PayloadJSON)
}

func TestDirectoryPathGetsGeneratedName(t *testing.T) {
	dir := t.TempDir()
	r, err := NewSQLiteRecorder(dir, 0, nil)
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, dir, filepath.Dir(r.Path()))
	assert.True(t, strings.HasPrefix(filepath.Base(r.Path()), "nexo_events_"))
	_, err = os.Stat(r.Path())
	assert.NoError(t, err)
}
