package archive

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Schema for the segments table, applied when the index is opened.
const Schema = `
CREATE TABLE IF NOT EXISTS segments (
	id TEXT PRIMARY KEY,
	path TEXT NOT NULL,
	started_at INTEGER NOT NULL,
	ended_at INTEGER NOT NULL DEFAULT 0,
	frames INTEGER NOT NULL DEFAULT 0,
	width INTEGER NOT NULL DEFAULT 0,
	height INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_segments_started ON segments(started_at);
`

// Segment is one archived AVI file. EndedAt stays zero while the
// segment is still being written.
type Segment struct {
	ID        string `json:"id"`
	Path      string `json:"path"`
	StartedAt int64  `json:"started_at"`
	EndedAt   int64  `json:"ended_at,omitempty"`
	Frames    int    `json:"frames"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
}

// Index is the SQLite catalog of archived segments.
type Index struct {
	db *sql.DB
}

// NewSegmentID returns a time-ordered unique segment id.
func NewSegmentID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// OpenIndex opens or creates the segment index database.
func OpenIndex(path string) (*Index, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("archive: open index: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=10000",
		"PRAGMA synchronous=NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("archive: set pragma: %w", err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("archive: ping index: %w", err)
	}
	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("archive: init schema: %w", err)
	}
	return &Index{db: db}, nil
}

// Begin records a freshly opened segment.
func (ix *Index) Begin(seg Segment) error {
	_, err := ix.db.Exec(
		`INSERT INTO segments (id, path, started_at, width, height) VALUES (?, ?, ?, ?, ?)`,
		seg.ID, seg.Path, seg.StartedAt, seg.Width, seg.Height)
	if err != nil {
		return fmt.Errorf("archive: index segment: %w", err)
	}
	return nil
}

// Finish closes out a segment row with its end time and frame count.
func (ix *Index) Finish(id string, endedAt int64, frames int) error {
	_, err := ix.db.Exec(
		`UPDATE segments SET ended_at = ?, frames = ? WHERE id = ?`,
		endedAt, frames, id)
	if err != nil {
		return fmt.Errorf("archive: finish segment: %w", err)
	}
	return nil
}

// List returns the most recent segments, newest first.
func (ix *Index) List(ctx context.Context, limit int) ([]Segment, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := ix.db.QueryContext(ctx,
		`SELECT id, path, started_at, ended_at, frames, width, height
		 FROM segments ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("archive: list segments: %w", err)
	}
	defer rows.Close()

	var res []Segment
	for rows.Next() {
		var s Segment
		if err := rows.Scan(&s.ID, &s.Path, &s.StartedAt, &s.EndedAt,
			&s.Frames, &s.Width, &s.Height); err != nil {
			return nil, fmt.Errorf("archive: scan segment: %w", err)
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

// DeleteOlder removes rows for segments that started before cutoff.
// Rows with ended_at = 0 are kept, the segment may still be written.
func (ix *Index) DeleteOlder(cutoff int64) (int64, error) {
	res, err := ix.db.Exec(
		`DELETE FROM segments WHERE started_at < ? AND ended_at != 0`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("archive: prune index: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// Close closes the database.
func (ix *Index) Close() error {
	return ix.db.Close()
}
