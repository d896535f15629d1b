package index

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Zuo-Peng/chatmerge/internal/parse"
	"github.com/Zuo-Peng/chatmerge/internal/scan"
	"github.com/Zuo-Peng/chatmerge/internal/store"
)

const schema = `
PRAGMA journal_mode = WAL;
PRAGMA synchronous = NORMAL;
PRAGMA cache_size = -64000;
PRAGMA busy_timeout = 5000;

CREATE TABLE IF NOT EXISTS sources (
    path     TEXT PRIMARY KEY,
    kind     TEXT NOT NULL,
    files    TEXT NOT NULL DEFAULT '[]',
    mtime    INTEGER NOT NULL DEFAULT 0,
    size     INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS messages (
    id            INTEGER PRIMARY KEY,
    sender_name   TEXT,
    sender_id     TEXT,
    ts            INTEGER,
    text          TEXT NOT NULL DEFAULT '',
    mentions      TEXT NOT NULL DEFAULT '[]',
    links         TEXT NOT NULL DEFAULT '[]',
    message_links TEXT NOT NULL DEFAULT '[]',
    media         TEXT NOT NULL DEFAULT '',
    reply_to      TEXT NOT NULL DEFAULT '[]',
    origin_file   TEXT NOT NULL DEFAULT '',
    origin_line   INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS messages_ts ON messages(ts);

CREATE VIRTUAL TABLE IF NOT EXISTS messages_fts USING fts5(
    text,
    sender_name,
    content=messages,
    content_rowid=id,
    tokenize='unicode61'
);

-- triggers to keep FTS in sync
CREATE TRIGGER IF NOT EXISTS messages_ai AFTER INSERT ON messages BEGIN
    INSERT INTO messages_fts(rowid, text, sender_name) VALUES (new.id, new.text, new.sender_name);
END;

CREATE TRIGGER IF NOT EXISTS messages_ad AFTER DELETE ON messages BEGIN
    INSERT INTO messages_fts(messages_fts, rowid, text, sender_name) VALUES('delete', old.id, old.text, old.sender_name);
END;

CREATE TRIGGER IF NOT EXISTS messages_au AFTER UPDATE ON messages BEGIN
    INSERT INTO messages_fts(messages_fts, rowid, text, sender_name) VALUES('delete', old.id, old.text, old.sender_name);
    INSERT INTO messages_fts(rowid, text, sender_name) VALUES (new.id, new.text, new.sender_name);
END;

CREATE TABLE IF NOT EXISTS sender_history (
    sender_id TEXT NOT NULL,
    pos       INTEGER NOT NULL,
    name      TEXT NOT NULL,
    PRIMARY KEY (sender_id, pos)
);

CREATE TABLE IF NOT EXISTS actions (
    kind     TEXT NOT NULL,
    actor    TEXT NOT NULL DEFAULT '',
    actor_id TEXT NOT NULL DEFAULT '',
    ts       INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT);
`

// schemaVersion should be bumped whenever extraction or merge logic changes
// to force a rebuild.
const schemaVersion = "1"

type DB struct {
	db *sql.DB
}

func OpenDB(dbPath string) (*DB, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	d := &DB{db: db}
	if err := d.migrateSchemaVersion(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return d, nil
}

func (d *DB) migrateSchemaVersion() error {
	ver, err := d.Meta("schema_version")
	if err != nil {
		return err
	}
	if ver == schemaVersion {
		return nil
	}
	// forget recorded sources so the next index run rebuilds everything
	if _, err := d.db.Exec("DELETE FROM sources"); err != nil {
		return err
	}
	return d.SetMeta("schema_version", schemaVersion)
}

func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) Raw() *sql.DB {
	return d.db
}

// Meta returns the value stored under key, or "" if there is none.
func (d *DB) Meta(key string) (string, error) {
	var v sql.NullString
	err := d.db.QueryRow("SELECT value FROM meta WHERE key = ?", key).Scan(&v)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return v.String, err
}

func (d *DB) SetMeta(key, value string) error {
	_, err := d.db.Exec("INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)", key, value)
	return err
}

// Fresh reports whether the cache was built from exactly these sources, each
// unchanged since.
func (d *DB) Fresh(sources []scan.Source) (bool, error) {
	recorded, err := d.Sources()
	if err != nil {
		return false, err
	}
	if len(recorded) == 0 || len(recorded) != len(sources) {
		return false, nil
	}
	byPath := make(map[string]scan.Source, len(recorded))
	for _, r := range recorded {
		byPath[r.Path] = r
	}
	for _, s := range sources {
		r, ok := byPath[s.Path]
		if !ok || r.Kind != s.Kind || r.Mtime.Unix() != s.Mtime.Unix() || r.Size != s.Size {
			return false, nil
		}
	}
	return true, nil
}

// Sources returns the exports the cached store was built from.
func (d *DB) Sources() ([]scan.Source, error) {
	rows, err := d.db.Query("SELECT path, kind, files, mtime, size FROM sources ORDER BY path")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []scan.Source
	for rows.Next() {
		var s scan.Source
		var files string
		var mtime int64
		if err := rows.Scan(&s.Path, &s.Kind, &files, &mtime, &s.Size); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(files), &s.Files); err != nil {
			return nil, fmt.Errorf("source %s: %w", s.Path, err)
		}
		s.Mtime = time.Unix(mtime, 0)
		out = append(out, s)
	}
	return out, rows.Err()
}

// Save replaces the whole cache with snap in one transaction.
func (d *DB) Save(snap *Snapshot) error {
	tx, err := d.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"sources", "messages", "sender_history", "actions"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	for _, s := range snap.Sources {
		files, err := json.Marshal(s.Files)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(
			"INSERT INTO sources (path, kind, files, mtime, size) VALUES (?, ?, ?, ?, ?)",
			s.Path, s.Kind, string(files), s.Mtime.Unix(), s.Size,
		); err != nil {
			return err
		}
	}

	stmt, err := tx.Prepare(
		`INSERT INTO messages (id, sender_name, sender_id, ts, text, mentions, links, message_links, media, reply_to, origin_file, origin_line)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, m := range snap.Store.Sorted() {
		lists, err := encodeLists(m)
		if err != nil {
			return fmt.Errorf("message %d: %w", m.ID, err)
		}
		o := snap.Origins[m.ID]
		if _, err := stmt.Exec(
			m.ID,
			nullable(m.SenderName),
			nullable(m.SenderID),
			nullable(m.Timestamp),
			m.Text,
			lists[0], lists[1], lists[2],
			m.Media,
			lists[3],
			o.File,
			o.Line,
		); err != nil {
			return fmt.Errorf("message %d: %w", m.ID, err)
		}
	}

	for id, names := range snap.Store.SenderHistory {
		for pos, name := range names {
			if _, err := tx.Exec(
				"INSERT INTO sender_history (sender_id, pos, name) VALUES (?, ?, ?)",
				id, pos, name,
			); err != nil {
				return err
			}
		}
	}

	for _, a := range snap.Actions {
		if _, err := tx.Exec(
			"INSERT INTO actions (kind, actor, actor_id, ts) VALUES (?, ?, ?, ?)",
			a.Kind, a.Actor, a.ActorID, a.Timestamp,
		); err != nil {
			return err
		}
	}

	meta := map[string]string{
		"build_id": snap.BuildID,
		"built_at": strconv.FormatInt(snap.BuiltAt.Unix(), 10),
		"earliest": strconv.FormatInt(snap.Store.Earliest, 10),
		"latest":   strconv.FormatInt(snap.Store.Latest, 10),
	}
	for k, v := range meta {
		if _, err := tx.Exec("INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)", k, v); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// Load reads the cached snapshot back. Bounds come from the stored meta so an
// empty cache keeps the empty-store sentinels.
func (d *DB) Load() (*Snapshot, error) {
	snap := &Snapshot{
		Store:   store.New(),
		Origins: make(map[int64]parse.Origin),
	}

	rows, err := d.db.Query(`SELECT ` + messageColumns + ` FROM messages ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		m, o, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		snap.Store.Add(m)
		snap.Origins[m.ID] = o
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	hist, err := d.db.Query("SELECT sender_id, name FROM sender_history ORDER BY sender_id, pos")
	if err != nil {
		return nil, err
	}
	defer hist.Close()
	for hist.Next() {
		var id, name string
		if err := hist.Scan(&id, &name); err != nil {
			return nil, err
		}
		snap.Store.SenderHistory[id] = append(snap.Store.SenderHistory[id], name)
	}
	if err := hist.Err(); err != nil {
		return nil, err
	}

	if snap.Actions, err = d.Actions(); err != nil {
		return nil, err
	}
	if snap.Sources, err = d.Sources(); err != nil {
		return nil, err
	}

	if snap.BuildID, err = d.Meta("build_id"); err != nil {
		return nil, err
	}
	builtAt, err := d.Meta("built_at")
	if err != nil {
		return nil, err
	}
	if sec, err := strconv.ParseInt(builtAt, 10, 64); err == nil {
		snap.BuiltAt = time.Unix(sec, 0)
	}
	for key, dst := range map[string]*int64{"earliest": &snap.Store.Earliest, "latest": &snap.Store.Latest} {
		v, err := d.Meta(key)
		if err != nil {
			return nil, err
		}
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
	return snap, nil
}

func (d *DB) Actions() ([]store.Action, error) {
	rows, err := d.db.Query("SELECT kind, actor, actor_id, ts FROM actions ORDER BY ts, rowid")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.Action
	for rows.Next() {
		var a store.Action
		if err := rows.Scan(&a.Kind, &a.Actor, &a.ActorID, &a.Timestamp); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// MessageRow is one cached message together with where it was read from.
type MessageRow struct {
	*store.Message
	Origin parse.Origin
}

const messageColumns = "id, sender_name, sender_id, ts, text, mentions, links, message_links, media, reply_to, origin_file, origin_line"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMessage(r rowScanner) (*store.Message, parse.Origin, error) {
	var m store.Message
	var o parse.Origin
	var name, sender sql.NullString
	var ts sql.NullInt64
	var mentions, links, msgLinks, replies string
	if err := r.Scan(&m.ID, &name, &sender, &ts, &m.Text, &mentions, &links, &msgLinks, &m.Media, &replies, &o.File, &o.Line); err != nil {
		return nil, o, err
	}
	if name.Valid {
		m.SenderName = &name.String
	}
	if sender.Valid {
		m.SenderID = &sender.String
	}
	if ts.Valid {
		m.Timestamp = &ts.Int64
	}
	for _, f := range []struct {
		raw string
		dst any
	}{
		{mentions, &m.Mentions},
		{links, &m.Links},
		{msgLinks, &m.MessageLinks},
		{replies, &m.ReplyTo},
	} {
		if f.raw == "[]" {
			continue
		}
		if err := json.Unmarshal([]byte(f.raw), f.dst); err != nil {
			return nil, o, fmt.Errorf("message %d: %w", m.ID, err)
		}
	}
	return &m, o, nil
}

// GetMessage returns the cached message with id, or nil if there is none.
func (d *DB) GetMessage(id int64) (*MessageRow, error) {
	m, o, err := scanMessage(d.db.QueryRow(`SELECT `+messageColumns+` FROM messages WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &MessageRow{Message: m, Origin: o}, nil
}

// MessagesWindow returns up to context messages on each side of id, in id
// order, and the position of id inside the window (-1 if id is not cached).
func (d *DB) MessagesWindow(id int64, context int) ([]MessageRow, int, error) {
	rows, err := d.db.Query(`
		SELECT * FROM (
			SELECT `+messageColumns+` FROM messages WHERE id < ? ORDER BY id DESC LIMIT ?
		)
		UNION ALL
		SELECT * FROM (
			SELECT `+messageColumns+` FROM messages WHERE id >= ? ORDER BY id LIMIT ?
		)
		ORDER BY id`,
		id, context, id, context+1,
	)
	if err != nil {
		return nil, -1, err
	}
	defer rows.Close()

	var out []MessageRow
	hit := -1
	for rows.Next() {
		m, o, err := scanMessage(rows)
		if err != nil {
			return nil, -1, err
		}
		if m.ID == id {
			hit = len(out)
		}
		out = append(out, MessageRow{Message: m, Origin: o})
	}
	return out, hit, rows.Err()
}

// CountOutside returns how many cached messages sit below first and above last.
func (d *DB) CountOutside(first, last int64) (before, after int, err error) {
	err = d.db.QueryRow(
		"SELECT (SELECT COUNT(*) FROM messages WHERE id < ?), (SELECT COUNT(*) FROM messages WHERE id > ?)",
		first, last,
	).Scan(&before, &after)
	return before, after, err
}

func (d *DB) MessageCount() (int, error) {
	var n int
	err := d.db.QueryRow("SELECT COUNT(*) FROM messages").Scan(&n)
	return n, err
}

func (d *DB) SenderCount() (int, error) {
	var n int
	err := d.db.QueryRow("SELECT COUNT(DISTINCT sender_id) FROM sender_history").Scan(&n)
	return n, err
}

func (d *DB) ActionCount() (int, error) {
	var n int
	err := d.db.QueryRow("SELECT COUNT(*) FROM actions").Scan(&n)
	return n, err
}

func encodeLists(m *store.Message) ([4]string, error) {
	var out [4]string
	for i, v := range []any{m.Mentions, m.Links, m.MessageLinks, m.ReplyTo} {
		b, err := json.Marshal(v)
		if err != nil {
			return out, err
		}
		out[i] = string(b)
	}
	// nil slices marshal to null; keep the column a list
	for i := range out {
		if out[i] == "null" {
			out[i] = "[]"
		}
	}
	return out, nil
}

func nullable[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}
