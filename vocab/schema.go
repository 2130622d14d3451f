package vocab

// Schema is the DDL for the custom vocabulary store. Names are stored with
// the spelling the user typed; uniqueness is case-insensitive through the
// lower-cased key column. A row with listed = 0 only carries a colour
// override, typically for a built-in name.
const Schema = `
CREATE TABLE IF NOT EXISTS vocab_entries (
	kind       TEXT NOT NULL CHECK (kind IN ('label', 'decoration')),
	key        TEXT NOT NULL,
	name       TEXT NOT NULL,
	listed     INTEGER NOT NULL DEFAULT 1,
	color      TEXT NOT NULL DEFAULT '',
	position   INTEGER NOT NULL DEFAULT 0,
	updated_at INTEGER NOT NULL,
	PRIMARY KEY (kind, key)
);
CREATE INDEX IF NOT EXISTS idx_vocab_entries_position ON vocab_entries(kind, position);
`
