package store

const schemaSQL = `
CREATE TABLE IF NOT EXISTS workbooks (
    source_id       TEXT PRIMARY KEY,
    name            TEXT NOT NULL,
    path            TEXT NOT NULL DEFAULT '',
    sheet           TEXT NOT NULL DEFAULT '',
    mtime_ns        INTEGER NOT NULL DEFAULT 0,
    size_bytes      INTEGER NOT NULL DEFAULT 0,
    row_count       INTEGER NOT NULL DEFAULT 0,
    invalid_dates   INTEGER NOT NULL DEFAULT 0,
    parsed_at       TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS registrations (
    source_id       TEXT NOT NULL REFERENCES workbooks(source_id) ON DELETE CASCADE,
    row_num         INTEGER NOT NULL,
    plate           TEXT NOT NULL,
    client_name     TEXT NOT NULL,
    tax_id          TEXT NOT NULL,
    tax_id_norm     TEXT NOT NULL,
    registered_at   TEXT NOT NULL DEFAULT '',
    brand           TEXT NOT NULL DEFAULT '',
    segment         TEXT NOT NULL DEFAULT '',
    model           TEXT NOT NULL DEFAULT '',
    extra_json      TEXT NOT NULL DEFAULT '',
    PRIMARY KEY (source_id, row_num)
);

CREATE TABLE IF NOT EXISTS active_source (
    id              INTEGER PRIMARY KEY CHECK (id = 1),
    source_id       TEXT NOT NULL,
    path            TEXT NOT NULL DEFAULT '',
    set_at          TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_workbooks_path ON workbooks(path);
CREATE INDEX IF NOT EXISTS idx_registrations_tax ON registrations(source_id, tax_id_norm);
`
