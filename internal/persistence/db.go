// Package persistence provides SQLite-based snapshot storage. Snapshots are
// saved as zstd-compressed JSON blobs; the event log is appended per tick.
// See design doc Section 10.
package persistence

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/klauspost/compress/zstd"
	_ "modernc.org/sqlite"

	"github.com/talgya/solsim/internal/engine"
	"github.com/talgya/solsim/internal/event"
)

// ErrNoSnapshot means the store holds no snapshot to resume from.
var ErrNoSnapshot = errors.New("persistence: no snapshot")

// DB wraps a SQLite connection for snapshot and event storage.
type DB struct {
	conn *sqlx.DB
	enc  *zstd.Encoder
	dec  *zstd.Decoder
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		conn.Close()
		return nil, err
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		conn.Close()
		return nil, err
	}

	db := &DB{conn: conn, enc: enc, dec: dec}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	db.enc.Close()
	db.dec.Close()
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS snapshots (
		id TEXT PRIMARY KEY,
		tick INTEGER NOT NULL,
		created_at TEXT NOT NULL DEFAULT (datetime('now')),
		blob BLOB NOT NULL
	);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		tick INTEGER NOT NULL,
		kind TEXT NOT NULL,
		payload TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_snapshots_tick ON snapshots(tick);
	CREATE INDEX IF NOT EXISTS idx_events_tick ON events(tick);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// SaveSnapshot stores a snapshot and returns its id.
func (db *DB) SaveSnapshot(snap *engine.Snapshot) (string, error) {
	raw, err := json.Marshal(snap)
	if err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}
	blob := db.enc.EncodeAll(raw, nil)

	id := uuid.NewString()
	_, err = db.conn.Exec(
		"INSERT INTO snapshots (id, tick, blob) VALUES (?, ?, ?)",
		id, snap.Tick, blob,
	)
	if err != nil {
		return "", fmt.Errorf("insert snapshot: %w", err)
	}
	slog.Info("snapshot saved", "id", id, "tick", snap.Tick,
		"bytes", len(blob), "raw_bytes", len(raw))
	return id, nil
}

// LoadSnapshot fetches a snapshot by id.
func (db *DB) LoadSnapshot(id string) (*engine.Snapshot, error) {
	var blob []byte
	err := db.conn.Get(&blob, "SELECT blob FROM snapshots WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, err
	}
	return db.decode(blob)
}

// LatestSnapshot fetches the snapshot with the highest tick.
func (db *DB) LatestSnapshot() (*engine.Snapshot, error) {
	var blob []byte
	err := db.conn.Get(&blob,
		"SELECT blob FROM snapshots ORDER BY tick DESC, created_at DESC LIMIT 1")
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, err
	}
	return db.decode(blob)
}

func (db *DB) decode(blob []byte) (*engine.Snapshot, error) {
	raw, err := db.dec.DecodeAll(blob, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress snapshot: %w", err)
	}
	var snap engine.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &snap, nil
}

// AppendEvents persists a batch of bus events.
func (db *DB) AppendEvents(events []event.Event) error {
	if len(events) == 0 {
		return nil
	}
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, e := range events {
		payload, err := json.Marshal(e)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(
			"INSERT INTO events (tick, kind, payload) VALUES (?, ?, ?)",
			e.Tick(), string(e.EventKind()), string(payload),
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// StoredEvent is one persisted event row.
type StoredEvent struct {
	ID      int64  `db:"id" json:"id"`
	Tick    uint64 `db:"tick" json:"tick"`
	Kind    string `db:"kind" json:"kind"`
	Payload string `db:"payload" json:"payload"`
}

// RecentEvents returns the most recent persisted events, newest first.
func (db *DB) RecentEvents(limit int) ([]StoredEvent, error) {
	var events []StoredEvent
	err := db.conn.Select(&events,
		"SELECT id, tick, kind, payload FROM events ORDER BY id DESC LIMIT ?",
		limit,
	)
	return events, err
}
