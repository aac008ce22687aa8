package extract

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// PlaybackPage is the page value of events that represent a song being
// played.
const PlaybackPage = "NextSong"

// SongRecord is one entry of the song catalog.
type SongRecord struct {
	SongID          string
	Title           string
	ArtistID        string
	Year            int
	Duration        float64
	ArtistName      string
	ArtistLocation  string
	ArtistLatitude  *float64
	ArtistLongitude *float64
}

// EventRecord is one line of a listening log.
type EventRecord struct {
	// Line is the 1-based line number in the source file.
	Line int

	TS        int64 // epoch milliseconds
	UserID    int64 // 0 when the event carries no user
	FirstName string
	LastName  string
	Gender    string
	Level     string
	Page      string
	Song      string
	Artist    string
	Length    *float64
	SessionID int64
	Location  string
	UserAgent string
}

// IsPlayback reports whether the event is an actual song play.
func (r EventRecord) IsPlayback() bool { return r.Page == PlaybackPage }

// Playbacks returns the playback events of recs in their original order.
func Playbacks(recs []EventRecord) []EventRecord {
	out := make([]EventRecord, 0, len(recs))
	for _, r := range recs {
		if r.IsPlayback() {
			out = append(out, r)
		}
	}
	return out
}

// rawSong mirrors the catalog JSON. Pointers distinguish absent from zero.
type rawSong struct {
	SongID          *string  `json:"song_id"`
	Title           *string  `json:"title"`
	ArtistID        *string  `json:"artist_id"`
	Year            *int     `json:"year"`
	Duration        *float64 `json:"duration"`
	ArtistName      *string  `json:"artist_name"`
	ArtistLocation  *string  `json:"artist_location"`
	ArtistLatitude  *float64 `json:"artist_latitude"`
	ArtistLongitude *float64 `json:"artist_longitude"`
}

// str dereferences p, treating an absent value as empty.
func str(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// rawEvent mirrors the event-log JSON. Values stay raw until the page is
// known: only playbacks are held to typed fields.
type rawEvent struct {
	TS        json.RawMessage `json:"ts"`
	UserID    json.RawMessage `json:"userId"`
	FirstName json.RawMessage `json:"firstName"`
	LastName  json.RawMessage `json:"lastName"`
	Gender    json.RawMessage `json:"gender"`
	Level     json.RawMessage `json:"level"`
	Page      json.RawMessage `json:"page"`
	Song      json.RawMessage `json:"song"`
	Artist    json.RawMessage `json:"artist"`
	Length    json.RawMessage `json:"length"`
	SessionID json.RawMessage `json:"sessionId"`
	Location  json.RawMessage `json:"location"`
	UserAgent json.RawMessage `json:"userAgent"`
}

func present(b json.RawMessage) bool {
	return len(b) > 0 && !bytes.Equal(b, []byte("null"))
}

// fields converts raw values, keeping the first conversion error and the
// field it came from.
type fields struct {
	name string
	err  error
}

func (f *fields) fail(name string, err error) {
	if f.err == nil {
		f.name, f.err = name, err
	}
}

func (f *fields) str(name string, b json.RawMessage) string {
	var s string
	if present(b) {
		if err := json.Unmarshal(b, &s); err != nil {
			f.fail(name, err)
		}
	}
	return s
}

func (f *fields) num(name string, b json.RawMessage) int64 {
	var n int64
	if present(b) {
		if err := json.Unmarshal(b, &n); err != nil {
			f.fail(name, err)
		}
	}
	return n
}

func (f *fields) float(name string, b json.RawMessage) *float64 {
	if !present(b) {
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		f.fail(name, err)
		return nil
	}
	return &v
}

// userID accepts both "39" and 39; the logs use strings, with "" for
// logged-out sessions. The bool reports whether a user was given.
func (f *fields) userID(name string, b json.RawMessage) (int64, bool) {
	if !present(b) {
		return 0, false
	}
	s := string(bytes.TrimSpace(b))
	if s[0] == '"' {
		if err := json.Unmarshal(b, &s); err != nil {
			f.fail(name, err)
			return 0, false
		}
		if s == "" {
			return 0, false
		}
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		f.fail(name, fmt.Errorf("userId %s is not an integer", b))
		return 0, false
	}
	return n, true
}
