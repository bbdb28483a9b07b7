package store

const schema = `
CREATE TABLE IF NOT EXISTS documents (
    key TEXT PRIMARY KEY,
    saved_at TIMESTAMP NOT NULL,
    raw_size INTEGER NOT NULL,
    compressed BOOLEAN NOT NULL,
    body BLOB NOT NULL
);

CREATE TABLE IF NOT EXISTS revisions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    key TEXT NOT NULL,
    saved_at TIMESTAMP NOT NULL,
    raw_size INTEGER NOT NULL,
    compressed BOOLEAN NOT NULL,
    body BLOB NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_revisions_key ON revisions(key, id);
`
