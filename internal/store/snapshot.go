// Package store persists the retrieval index as a single SQLite snapshot file.
package store

import (
	"bytes"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"clausecheck/internal/logging"

	_ "modernc.org/sqlite"
)

// ErrCorruptSnapshot is returned when a snapshot file exists but cannot be read back.
var ErrCorruptSnapshot = errors.New("corrupt index snapshot")

// SnapshotFormat is written to the meta table and checked on load.
const SnapshotFormat = "clausecheck-snapshot/1"

// Record is one persisted chunk with its embedding.
type Record struct {
	ID         string
	Source     string
	ChunkIndex int
	Content    string
	Embedding  []float32
}

// Meta is free-form snapshot metadata (engine name, dimensions, ...).
type Meta map[string]string

const schema = `
CREATE TABLE meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
CREATE TABLE chunks (
	id          TEXT PRIMARY KEY,
	seq         INTEGER NOT NULL UNIQUE,
	source      TEXT NOT NULL,
	chunk_index INTEGER NOT NULL,
	content     TEXT NOT NULL,
	embedding   BLOB NOT NULL
);
CREATE INDEX idx_chunks_source ON chunks(source);
`

// Exists reports whether a snapshot file is present at path.
func Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Save writes records and meta to path atomically: the snapshot is built in a
// temporary file in the same directory and renamed into place, so readers
// never observe a partial snapshot.
func Save(path string, records []Record, meta Meta) (err error) {
	timer := logging.StartTimer(logging.CategoryStore, "Save")
	defer timer.Stop()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp snapshot: %w", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer func() {
		if err != nil {
			os.Remove(tmpPath)
		}
	}()

	if err := writeSnapshot(tmpPath, records, meta); err != nil {
		return err
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to move snapshot into place: %w", err)
	}

	logging.Store("Saved index snapshot: path=%s chunks=%d", path, len(records))
	return nil
}

func writeSnapshot(path string, records []Record, meta Meta) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("failed to open snapshot database: %w", err)
	}
	defer db.Close()

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create snapshot schema: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	metaStmt, err := tx.Prepare("INSERT INTO meta (key, value) VALUES (?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare meta insert: %w", err)
	}
	defer metaStmt.Close()

	all := Meta{"format": SnapshotFormat, "chunk_count": strconv.Itoa(len(records))}
	for k, v := range meta {
		if _, reserved := all[k]; !reserved {
			all[k] = v
		}
	}
	for k, v := range all {
		if _, err := metaStmt.Exec(k, v); err != nil {
			return fmt.Errorf("failed to write meta %s: %w", k, err)
		}
	}

	chunkStmt, err := tx.Prepare(
		"INSERT INTO chunks (id, seq, source, chunk_index, content, embedding) VALUES (?, ?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare chunk insert: %w", err)
	}
	defer chunkStmt.Close()

	for seq, r := range records {
		if _, err := chunkStmt.Exec(r.ID, seq, r.Source, r.ChunkIndex, r.Content, encodeFloat32Slice(r.Embedding)); err != nil {
			return fmt.Errorf("failed to write chunk %s: %w", r.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit snapshot: %w", err)
	}
	return nil
}

// Load reads a snapshot written by Save. Records come back in saved order.
// The file is only read, never modified.
func Load(path string) ([]Record, Meta, error) {
	timer := logging.StartTimer(logging.CategoryStore, "Load")
	defer timer.Stop()

	if !Exists(path) {
		return nil, nil, fmt.Errorf("snapshot not found: %s", path)
	}

	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer db.Close()

	meta, err := loadMeta(db)
	if err != nil {
		return nil, nil, err
	}

	rows, err := db.Query("SELECT id, source, chunk_index, content, embedding FROM chunks ORDER BY seq")
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		var blob []byte
		if err := rows.Scan(&r.ID, &r.Source, &r.ChunkIndex, &r.Content, &blob); err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
		}
		r.Embedding, err = decodeFloat32Slice(blob)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: chunk %s: %v", ErrCorruptSnapshot, r.ID, err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}

	if want := meta["chunk_count"]; want != strconv.Itoa(len(records)) {
		return nil, nil, fmt.Errorf("%w: meta says %s chunks, found %d", ErrCorruptSnapshot, want, len(records))
	}

	logging.StoreDebug("Loaded index snapshot: path=%s chunks=%d", path, len(records))
	return records, meta, nil
}

func loadMeta(db *sql.DB) (Meta, error) {
	rows, err := db.Query("SELECT key, value FROM meta")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	defer rows.Close()

	meta := Meta{}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
		}
		meta[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	if meta["format"] != SnapshotFormat {
		return nil, fmt.Errorf("%w: unknown format %q", ErrCorruptSnapshot, meta["format"])
	}
	return meta, nil
}

// encodeFloat32Slice encodes a float32 slice as a little-endian blob.
func encodeFloat32Slice(vec []float32) []byte {
	buf := new(bytes.Buffer)
	buf.Grow(len(vec) * 4)
	_ = binary.Write(buf, binary.LittleEndian, vec)
	return buf.Bytes()
}

func decodeFloat32Slice(blob []byte) ([]float32, error) {
	if len(blob)%4 != 0 {
		return nil, fmt.Errorf("embedding blob length %d is not a multiple of 4", len(blob))
	}
	vec := make([]float32, len(blob)/4)
	if err := binary.Read(bytes.NewReader(blob), binary.LittleEndian, vec); err != nil {
		return nil, err
	}
	return vec, nil
}
