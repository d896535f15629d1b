package search

import (
	"database/sql"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/Zuo-Peng/chatmerge/internal/index"
	"github.com/Zuo-Peng/chatmerge/internal/store"
)

type Result struct {
	ID         int64
	SenderName string
	SenderID   string
	Timestamp  int64
	Snippet    string
	Text       string
	Rank       float64
}

type Options struct {
	Query  string
	Sender string // "" = all; matches display name or sender id
	Since  int64  // 0 = no filter, unix seconds
	Until  int64  // 0 = no filter, unix seconds
	Limit  int
}

// containsCJK returns true if the string contains any CJK Unified Ideograph.
// unicode61 does not segment those, so such queries go through LIKE.
func containsCJK(s string) bool {
	for _, r := range s {
		if unicode.Is(unicode.Han, r) {
			return true
		}
	}
	return false
}

// makeSnippet extracts a snippet around the first occurrence of query in text.
func makeSnippet(text, query string, contextChars int) string {
	lower := strings.ToLower(text)
	qLower := strings.ToLower(query)
	idx := strings.Index(lower, qLower)
	if query == "" || idx < 0 || len(lower) != len(text) {
		// no match (or case folding moved bytes), return head
		if len([]rune(text)) > contextChars*2 {
			return string([]rune(text)[:contextChars*2]) + "..."
		}
		return text
	}
	runes := []rune(text)
	qLen := len([]rune(query))
	runePos := len([]rune(text[:idx]))
	start := max(runePos-contextChars, 0)
	end := min(runePos+qLen+contextChars, len(runes))
	prefix := ""
	suffix := ""
	if start > 0 {
		prefix = "..."
	}
	if end < len(runes) {
		suffix = "..."
	}
	snippet := string(runes[start:runePos]) +
		">>>" + string(runes[runePos:runePos+qLen]) + "<<<" +
		string(runes[runePos+qLen:end])
	return prefix + snippet + suffix
}

// ftsQuery quotes every term so punctuation in names and links is matched
// literally instead of being read as FTS5 syntax.
func ftsQuery(q string) string {
	terms := strings.Fields(q)
	for i, t := range terms {
		terms[i] = `"` + strings.ReplaceAll(t, `"`, `""`) + `"`
	}
	return strings.Join(terms, " ")
}

func Search(db *index.DB, opts Options) ([]Result, error) {
	if strings.TrimSpace(opts.Query) == "" {
		return nil, fmt.Errorf("empty query")
	}
	if opts.Limit <= 0 {
		opts.Limit = 100
	}
	if containsCJK(opts.Query) {
		return searchLike(db, opts)
	}
	return searchFTS(db, opts)
}

func filters(opts Options) ([]string, []any) {
	var conditions []string
	var args []any

	// sender filter
	if opts.Sender != "" {
		conditions = append(conditions, "(m.sender_name = ? OR m.sender_id = ?)")
		args = append(args, opts.Sender, opts.Sender)
	}

	// time range
	if opts.Since != 0 {
		conditions = append(conditions, "m.ts >= ?")
		args = append(args, opts.Since)
	}
	if opts.Until != 0 {
		conditions = append(conditions, "m.ts <= ?")
		args = append(args, opts.Until)
	}
	return conditions, args
}

func searchFTS(db *index.DB, opts Options) ([]Result, error) {
	conditions, args := filters(opts)
	conditions = append([]string{"messages_fts MATCH ?"}, conditions...)
	args = append([]any{ftsQuery(opts.Query)}, args...)

	query := fmt.Sprintf(`
		SELECT
			m.id,
			COALESCE(m.sender_name, ''),
			COALESCE(m.sender_id, ''),
			COALESCE(m.ts, 0),
			snippet(messages_fts, 0, '>>>','<<<', '...', 40) as snip,
			m.text,
			bm25(messages_fts, 1.0, 0.5) as rank
		FROM messages_fts
		JOIN messages m ON messages_fts.rowid = m.id
		WHERE %s
		ORDER BY rank
		LIMIT ?
	`, strings.Join(conditions, " AND "))
	args = append(args, opts.Limit)

	rows, err := db.Raw().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("search query: %w", err)
	}
	defer rows.Close()

	return scanResults(rows)
}

func searchLike(db *index.DB, opts Options) ([]Result, error) {
	conditions, args := filters(opts)
	// LIKE match for CJK substring search
	conditions = append([]string{"m.text LIKE ?"}, conditions...)
	args = append([]any{"%" + opts.Query + "%"}, args...)

	query := fmt.Sprintf(`
		SELECT
			m.id,
			COALESCE(m.sender_name, ''),
			COALESCE(m.sender_id, ''),
			COALESCE(m.ts, 0),
			m.text
		FROM messages m
		WHERE %s
		ORDER BY m.ts DESC, m.id DESC
		LIMIT ?
	`, strings.Join(conditions, " AND "))
	args = append(args, opts.Limit)

	rows, err := db.Raw().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("search query: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		if err := rows.Scan(&r.ID, &r.SenderName, &r.SenderID, &r.Timestamp, &r.Text); err != nil {
			return nil, err
		}
		r.Snippet = makeSnippet(r.Text, opts.Query, 30)
		results = append(results, r)
	}
	return results, rows.Err()
}

// List returns messages newest first, honouring the sender and time filters.
func List(db *index.DB, opts Options) ([]Result, error) {
	if opts.Limit <= 0 {
		opts.Limit = 1000
	}
	conditions, args := filters(opts)
	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`
		SELECT
			m.id,
			COALESCE(m.sender_name, ''),
			COALESCE(m.sender_id, ''),
			COALESCE(m.ts, 0),
			m.text
		FROM messages m
		%s
		ORDER BY m.ts DESC, m.id DESC
		LIMIT ?
	`, where)
	args = append(args, opts.Limit)

	rows, err := db.Raw().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list query: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		if err := rows.Scan(&r.ID, &r.SenderName, &r.SenderID, &r.Timestamp, &r.Text); err != nil {
			return nil, err
		}
		r.Snippet = makeSnippet(r.Text, "", 40)
		results = append(results, r)
	}
	return results, rows.Err()
}

func scanResults(rows *sql.Rows) ([]Result, error) {
	var results []Result
	for rows.Next() {
		var r Result
		if err := rows.Scan(
			&r.ID, &r.SenderName, &r.SenderID, &r.Timestamp,
			&r.Snippet, &r.Text, &r.Rank,
		); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// Grep returns the messages of st whose text matches pattern.
func Grep(st *store.Store, pattern string) (*store.Store, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("search pattern: %w", err)
	}
	return st.Filter(func(m *store.Message) bool { return re.MatchString(m.Text) }), nil
}
