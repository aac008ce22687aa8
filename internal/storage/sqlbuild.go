package storage

import (
	"fmt"
	"strings"
)

// Dialect is the identifier-quoting and bind-parameter syntax of a SQL
// backend.
type Dialect interface {
	Quote(ident string) string
	// Placeholder returns the bind marker for the 1-based parameter n.
	Placeholder(n int) string
}

// QuoteDouble quotes an identifier with ANSI double quotes, escaping
// embedded quotes.
func QuoteDouble(id string) string { return `"` + strings.ReplaceAll(id, `"`, `""`) + `"` }

// QuoteList quotes each column with d.
func QuoteList(d Dialect, cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = d.Quote(c)
	}
	return out
}

// Placeholders returns n bind markers starting at 1.
func Placeholders(d Dialect, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = d.Placeholder(i + 1)
	}
	return out
}

// OnConflictInsert builds a single-row INSERT … ON CONFLICT statement for
// backends with the PostgreSQL/SQLite upsert grammar.
//
//   - InsertOnce on a single-key table targets that key with DO NOTHING.
//   - InsertOnce on a multi-key table uses an untargeted DO NOTHING, which
//     absorbs a conflict on any of the keys.
//   - UpsertLatest targets the key and overwrites t.Update from EXCLUDED.
func OnConflictInsert(d Dialect, t Table, p ConflictPolicy) (string, error) {
	if err := Validate(t, p); err != nil {
		return "", err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "INSERT INTO %s (%s) VALUES (%s) ON CONFLICT",
		d.Quote(t.Name),
		strings.Join(QuoteList(d, t.Columns), ", "),
		strings.Join(Placeholders(d, len(t.Columns)), ", "),
	)

	switch p {
	case InsertOnce:
		if len(t.Keys) == 1 {
			fmt.Fprintf(&sb, " (%s)", strings.Join(QuoteList(d, t.Keys[0]), ", "))
		}
		sb.WriteString(" DO NOTHING")
	case UpsertLatest:
		sets := make([]string, len(t.Update))
		for i, c := range t.Update {
			sets[i] = fmt.Sprintf("%s = EXCLUDED.%s", d.Quote(c), d.Quote(c))
		}
		fmt.Fprintf(&sb, " (%s) DO UPDATE SET %s",
			strings.Join(QuoteList(d, t.Keys[0]), ", "),
			strings.Join(sets, ", "),
		)
	}
	return sb.String(), nil
}

// LookupSongSQL builds the exact-match song lookup joining songs to artists.
// Ties are broken by song_id so the result is deterministic.
func LookupSongSQL(d Dialect) string {
	return fmt.Sprintf(
		"SELECT s.%[1]s, s.%[2]s FROM %[3]s s JOIN %[4]s a ON s.%[2]s = a.%[2]s"+
			" WHERE s.%[5]s = %[8]s AND a.%[6]s = %[9]s AND s.%[7]s = %[10]s"+
			" ORDER BY s.%[1]s LIMIT 1",
		d.Quote("song_id"), d.Quote("artist_id"),
		d.Quote(Songs.Name), d.Quote(Artists.Name),
		d.Quote("title"), d.Quote("name"), d.Quote("duration"),
		d.Placeholder(1), d.Placeholder(2), d.Placeholder(3),
	)
}

// CountSQL returns SELECT COUNT(*) for t.
func CountSQL(d Dialect, t Table) string {
	return "SELECT COUNT(*) FROM " + d.Quote(t.Name)
}
