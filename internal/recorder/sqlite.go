// Package recorder persists events drained from simulation sinks.
package recorder

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	// Need to use SQLite connections.
	_ "github.com/mattn/go-sqlite3"

	"github.com/rs/xid"

	"github.com/nexosim/nexosim-go/pkg/client"
	"github.com/nexosim/nexosim-go/pkg/logger"
	"github.com/nexosim/nexosim-go/pkg/serialization"
	"github.com/nexosim/nexosim-go/pkg/simtime"
)

// DefaultBatchSize is the number of buffered events that triggers a flush.
const DefaultBatchSize = 256

// Event is one recorded sink event.
type Event struct {
	ID          int64
	Sink        string
	Time        simtime.MonotonicTime
	Seq         uint64
	Payload     []byte
	PayloadJSON string
	RecordedAt  time.Time
}

// SQLiteRecorder buffers sink events and writes them to a SQLite database
// in batched transactions. It is safe for concurrent use.
type SQLiteRecorder struct {
	mu        sync.Mutex
	db        *sql.DB
	statement *sql.Stmt
	path      string
	batchSize int
	pending   []Event
	closed    bool
	log       *logger.Logger
}

// NewSQLiteRecorder opens or creates the database at path. When path is
// empty or names a directory, a fresh file named after an xid is created
// there.
func NewSQLiteRecorder(path string, batchSize int, log *logger.Logger) (*SQLiteRecorder, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if log == nil {
		log = logger.Discard()
	}

	path, err := resolvePath(path)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}

	r := &SQLiteRecorder{
		db:        db,
		path:      path,
		batchSize: batchSize,
		log:       log.WithComponent("recorder").WithField("db", path),
	}
	if err := r.createTable(); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := r.prepareStatement(); err != nil {
		_ = db.Close()
		return nil, err
	}

	r.log.Debug("recorder opened", "batch_size", batchSize)
	return r, nil
}

func resolvePath(path string) (string, error) {
	fileName := "nexo_events_" + xid.New().String() + ".sqlite3"
	if path == "" {
		return fileName, nil
	}

	info, err := os.Stat(path)
	switch {
	case err == nil && info.IsDir():
		return filepath.Join(path, fileName), nil
	case err == nil, os.IsNotExist(err):
		return path, nil
	default:
		return "", fmt.Errorf("failed to stat %s: %w", path, err)
	}
}

func (r *SQLiteRecorder) createTable() error {
	_, err := r.db.Exec(`
		CREATE TABLE IF NOT EXISTS events (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			sink         TEXT    NOT NULL,
			sim_secs     INTEGER NOT NULL,
			sim_nanos    INTEGER NOT NULL,
			seq          INTEGER NOT NULL,
			payload      BLOB    NOT NULL,
			payload_json TEXT,
			recorded_at  INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS events_sink ON events (sink, seq);
	`)
	if err != nil {
		return fmt.Errorf("failed to create events table: %w", err)
	}
	return nil
}

func (r *SQLiteRecorder) prepareStatement() error {
	stmt, err := r.db.Prepare(`INSERT INTO events
		(sink, sim_secs, sim_nanos, seq, payload, payload_json, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	r.statement = stmt
	return nil
}

// Path returns the database file name.
func (r *SQLiteRecorder) Path() string {
	return r.path
}

// Record buffers every event of a batch, flushing once the buffer reaches
// the batch size.
func (r *SQLiteRecorder) Record(batch client.SinkBatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return fmt.Errorf("recorder %s is closed", r.path)
	}

	now := time.Now().UTC()
	for i, payload := range batch.Events {
		evt := Event{
			Sink:       batch.Sink,
			Time:       batch.Time,
			Seq:        batch.Seq + uint64(i),
			Payload:    payload,
			RecordedAt: now,
		}
		if js, err := serialization.ToJSON(payload); err == nil {
			evt.PayloadJSON = string(js)
		} else {
			r.log.Debug("payload has no JSON form", "sink", batch.Sink, "error", err)
		}
		r.pending = append(r.pending, evt)
	}

	if len(r.pending) >= r.batchSize {
		return r.flushLocked()
	}
	return nil
}

// Flush writes all buffered events in one transaction.
func (r *SQLiteRecorder) Flush() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.flushLocked()
}

func (r *SQLiteRecorder) flushLocked() error {
	if len(r.pending) == 0 || r.closed {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	stmt := tx.Stmt(r.statement)
	for _, evt := range r.pending {
		_, err := stmt.Exec(
			evt.Sink,
			evt.Time.Secs,
			int64(evt.Time.Nanos),
			int64(evt.Seq),
			evt.Payload,
			evt.PayloadJSON,
			evt.RecordedAt.UnixNano(),
		)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to insert event %s#%d: %w", evt.Sink, evt.Seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit events: %w", err)
	}

	r.log.Debug("events flushed", "count", len(r.pending))
	r.pending = nil
	return nil
}

// Events reads back the recorded events of a sink in insertion order. An
// empty sink name selects every sink.
func (r *SQLiteRecorder) Events(sink string) ([]Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	query := `SELECT id, sink, sim_secs, sim_nanos, seq, payload, payload_json, recorded_at FROM events`
	var args []interface{}
	if sink != "" {
		query += ` WHERE sink = ?`
		args = append(args, sink)
	}
	query += ` ORDER BY id`

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			evt        Event
			nanos      int64
			seq        int64
			js         sql.NullString
			recordedAt int64
		)
		if err := rows.Scan(&evt.ID, &evt.Sink, &evt.Time.Secs, &nanos, &seq, &evt.Payload, &js, &recordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		evt.Time.Nanos = uint32(nanos)
		evt.Seq = uint64(seq)
		evt.PayloadJSON = js.String
		evt.RecordedAt = time.Unix(0, recordedAt).UTC()
		events = append(events, evt)
	}
	return events, rows.Err()
}

// Close flushes pending events and closes the database. Further calls are
// no-ops.
func (r *SQLiteRecorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	flushErr := r.flushLocked()
	r.closed = true

	if err := r.statement.Close(); err != nil && flushErr == nil {
		flushErr = err
	}
	if err := r.db.Close(); err != nil && flushErr == nil {
		flushErr = err
	}
	return flushErr
}
