// Package extract turns raw catalog and event-log files into typed records.
//
// Event logs are newline-delimited JSON. Catalog files hold one or more JSON
// objects, which may span lines. Records come back in file order; an empty file yields no records and no error. Invalid JSON and
// missing required fields are reported as *ParseError.
package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"golang.org/x/text/unicode/norm"

	"github.com/manchhui/Data-Modelling-With-Postgres/internal/datasource"
	jsonparser "github.com/manchhui/Data-Modelling-With-Postgres/internal/parser/json"
)

// Kind selects how a file is interpreted.
type Kind string

const (
	KindSong  Kind = "song"
	KindEvent Kind = "event"
)

// Extractor parses source files. The zero value is ready to use.
type Extractor struct {
	// NormalizeUnicode rewrites every string field to Unicode NFC so that
	// catalog and log text compare equal regardless of the producer's
	// normalization form.
	NormalizeUnicode bool
}

// Songs parses a song-catalog file.
func (x Extractor) Songs(ctx context.Context, src datasource.Source) ([]SongRecord, error) {
	var out []SongRecord
	err := x.each(ctx, src, KindSong, func(ln jsonparser.Line) error {
		var raw rawSong
		if err := json.Unmarshal(ln.Raw, &raw); err != nil {
			return &ParseError{Path: src.Name(), Line: ln.Number, Err: err}
		}
		rec, err := x.song(src.Name(), ln.Number, raw)
		if err != nil {
			return err
		}
		out = append(out, rec)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Events parses a listening-log file. All events are returned; use
// Playbacks to keep the song plays.
func (x Extractor) Events(ctx context.Context, src datasource.Source) ([]EventRecord, error) {
	var out []EventRecord
	err := x.each(ctx, src, KindEvent, func(ln jsonparser.Line) error {
		var raw rawEvent
		if err := json.Unmarshal(ln.Raw, &raw); err != nil {
			return &ParseError{Path: src.Name(), Line: ln.Number, Err: err}
		}
		rec, err := x.event(src.Name(), ln.Number, raw)
		if err != nil {
			return err
		}
		out = append(out, rec)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

type lineReader interface {
	Next() (jsonparser.Line, error)
}

func (x Extractor) each(ctx context.Context, src datasource.Source, kind Kind, fn func(jsonparser.Line) error) error {
	rc, err := src.Open(ctx)
	if err != nil {
		return err
	}
	defer rc.Close()

	var dec lineReader = jsonparser.NewDecoder(rc)
	if kind == KindSong {
		dec = jsonparser.NewObjectDecoder(rc)
	}
	for {
		ln, err := dec.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			var se *jsonparser.SyntaxError
			if errors.As(err, &se) {
				return &ParseError{Path: src.Name(), Line: se.Line, Err: se.Err}
			}
			return fmt.Errorf("read %s: %w", src.Name(), err)
		}
		if err := fn(ln); err != nil {
			return err
		}
	}
}

func (x Extractor) song(path string, line int, raw rawSong) (SongRecord, error) {
	if raw.SongID == nil || *raw.SongID == "" {
		return SongRecord{}, missing(path, line, "song_id")
	}
	if raw.ArtistID == nil || *raw.ArtistID == "" {
		return SongRecord{}, missing(path, line, "artist_id")
	}
	rec := SongRecord{
		SongID:          *raw.SongID,
		Title:           x.text(str(raw.Title)),
		ArtistID:        *raw.ArtistID,
		ArtistName:      x.text(str(raw.ArtistName)),
		ArtistLocation:  x.text(str(raw.ArtistLocation)),
		ArtistLatitude:  raw.ArtistLatitude,
		ArtistLongitude: raw.ArtistLongitude,
	}
	if raw.Year != nil {
		rec.Year = *raw.Year
	}
	if raw.Duration != nil {
		rec.Duration = *raw.Duration
	}
	return rec, nil
}

func (x Extractor) event(path string, line int, raw rawEvent) (EventRecord, error) {
	var f fields
	rec := EventRecord{
		Line:      line,
		TS:        f.num("ts", raw.TS),
		FirstName: x.text(f.str("firstName", raw.FirstName)),
		LastName:  x.text(f.str("lastName", raw.LastName)),
		Gender:    f.str("gender", raw.Gender),
		Level:     f.str("level", raw.Level),
		Page:      f.str("page", raw.Page),
		Song:      x.text(f.str("song", raw.Song)),
		Artist:    x.text(f.str("artist", raw.Artist)),
		Length:    f.float("length", raw.Length),
		SessionID: f.num("sessionId", raw.SessionID),
		Location:  x.text(f.str("location", raw.Location)),
		UserAgent: f.str("userAgent", raw.UserAgent),
	}
	uid, hasUser := f.userID("userId", raw.UserID)
	rec.UserID = uid
	if !rec.IsPlayback() {
		// Other pages feed no table; their fields are taken as found.
		return rec, nil
	}
	if f.err != nil {
		return EventRecord{}, &ParseError{Path: path, Line: line, Field: f.name, Err: f.err}
	}

	// A playback feeds the time, user and songplay rows.
	switch {
	case !present(raw.TS):
		return EventRecord{}, missing(path, line, "ts")
	case !hasUser:
		return EventRecord{}, missing(path, line, "userId")
	case rec.Level == "":
		return EventRecord{}, missing(path, line, "level")
	case !present(raw.SessionID):
		return EventRecord{}, missing(path, line, "sessionId")
	case !present(raw.Location):
		return EventRecord{}, missing(path, line, "location")
	case !present(raw.UserAgent):
		return EventRecord{}, missing(path, line, "userAgent")
	}
	return rec, nil
}

func (x Extractor) text(s string) string {
	if !x.NormalizeUnicode {
		return s
	}
	return norm.NFC.String(s)
}
