package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Save stores body as the current document of key and records it as a new
// revision. Older revisions beyond the retention limit are pruned. All
// changes happen in one transaction.
func (s *Store) Save(key string, body []byte, savedAt time.Time) error {
	stored, compressed := compress(body)
	ts := savedAt.UTC().Format(time.RFC3339Nano)

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`
		INSERT INTO revisions (key, saved_at, raw_size, compressed, body)
		VALUES (?, ?, ?, ?, ?)
	`, key, ts, len(body), compressed, stored); err != nil {
		return fmt.Errorf("failed to save %s: %w", key, classify(err))
	}

	if _, err := tx.Exec(`
		INSERT OR REPLACE INTO documents (key, saved_at, raw_size, compressed, body)
		VALUES (?, ?, ?, ?, ?)
	`, key, ts, len(body), compressed, stored); err != nil {
		return fmt.Errorf("failed to save %s: %w", key, classify(err))
	}

	if _, err := tx.Exec(`
		DELETE FROM revisions
		WHERE key = ? AND id NOT IN (
			SELECT id FROM revisions WHERE key = ? ORDER BY id DESC LIMIT ?
		)
	`, key, key, s.retention); err != nil {
		return fmt.Errorf("failed to prune revisions of %s: %w", key, classify(err))
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit %s: %w", key, err)
	}
	return nil
}

// Load returns the current document of key.
func (s *Store) Load(key string) ([]byte, *Info, error) {
	row := s.db.QueryRow(`
		SELECT key, saved_at, raw_size, compressed, body
		FROM documents
		WHERE key = ?
	`, key)
	return scanDocument(row, 0, key)
}

// LoadRevision returns a past revision by id.
func (s *Store) LoadRevision(id int64) ([]byte, *Info, error) {
	row := s.db.QueryRow(`
		SELECT key, saved_at, raw_size, compressed, body
		FROM revisions
		WHERE id = ?
	`, id)
	return scanDocument(row, id, fmt.Sprintf("revision %d", id))
}

func scanDocument(row *sql.Row, id int64, what string) ([]byte, *Info, error) {
	var (
		info       Info
		savedAt    string
		compressed bool
		body       []byte
	)
	err := row.Scan(&info.Key, &savedAt, &info.Size, &compressed, &body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, fmt.Errorf("%w: %s", ErrNotFound, what)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load %s: %w", what, classify(err))
	}

	info.Revision = id
	info.StoredSize = len(body)
	info.SavedAt, err = time.Parse(time.RFC3339Nano, savedAt)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse saved_at for %s: %w", what, err)
	}

	data, err := decompress(body, info.Size, compressed)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load %s: %w", what, err)
	}
	return data, &info, nil
}

// List returns the current document of every key, ordered by key.
func (s *Store) List() ([]*Info, error) {
	rows, err := s.db.Query(`
		SELECT key, saved_at, raw_size, length(body)
		FROM documents
		ORDER BY key
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", classify(err))
	}
	defer rows.Close()

	return scanInfos(rows, false)
}

// History returns the retained revisions of key, newest first.
func (s *Store) History(key string) ([]*Info, error) {
	rows, err := s.db.Query(`
		SELECT id, key, saved_at, raw_size, length(body)
		FROM revisions
		WHERE key = ?
		ORDER BY id DESC
	`, key)
	if err != nil {
		return nil, fmt.Errorf("failed to list revisions of %s: %w", key, classify(err))
	}
	defer rows.Close()

	return scanInfos(rows, true)
}

func scanInfos(rows *sql.Rows, withID bool) ([]*Info, error) {
	var infos []*Info
	for rows.Next() {
		var info Info
		var savedAt string
		var err error
		if withID {
			err = rows.Scan(&info.Revision, &info.Key, &savedAt, &info.Size, &info.StoredSize)
		} else {
			err = rows.Scan(&info.Key, &savedAt, &info.Size, &info.StoredSize)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		info.SavedAt, err = time.Parse(time.RFC3339Nano, savedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse saved_at for %s: %w", info.Key, err)
		}
		infos = append(infos, &info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating documents: %w", err)
	}
	return infos, nil
}
