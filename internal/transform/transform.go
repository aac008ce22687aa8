// Package transform maps extracted records onto star-schema rows.
//
// Catalog records map one-to-one onto a song and an artist row. Playback
// events produce a time row, a user row and a songplay row each; the
// songplay's song and artist ids come from a SongLookup against the already
// loaded dimensions.
package transform

import (
	"context"
	"fmt"

	"github.com/manchhui/Data-Modelling-With-Postgres/internal/extract"
	"github.com/manchhui/Data-Modelling-With-Postgres/internal/model"
)

// SongLookup resolves a played song against the songs and artists
// dimensions. A match requires title, artist name and duration to be equal;
// found is false when nothing matches.
type SongLookup interface {
	LookupSong(ctx context.Context, title, artist string, duration float64) (songID, artistID string, found bool, err error)
}

// LookupFunc adapts a plain function to SongLookup.
type LookupFunc func(ctx context.Context, title, artist string, duration float64) (string, string, bool, error)

func (f LookupFunc) LookupSong(ctx context.Context, title, artist string, duration float64) (string, string, bool, error) {
	return f(ctx, title, artist, duration)
}

// Catalog maps a song-catalog record to its song and artist rows.
func Catalog(rec extract.SongRecord) (model.Song, model.Artist) {
	song := model.Song{
		SongID:   rec.SongID,
		Title:    rec.Title,
		ArtistID: rec.ArtistID,
		Year:     rec.Year,
		Duration: rec.Duration,
	}
	artist := model.Artist{
		ArtistID:  rec.ArtistID,
		Name:      rec.ArtistName,
		Location:  rec.ArtistLocation,
		Latitude:  rec.ArtistLatitude,
		Longitude: rec.ArtistLongitude,
	}
	return song, artist
}

// EventRows holds the rows derived from one log file. Each slice is in file
// order and has one entry per playback; duplicates are collapsed by the
// store's write policy, not here.
type EventRows struct {
	Times     []model.TimeDim
	Users     []model.User
	SongPlays []model.SongPlay
}

// Events transforms the playback records of one file. The lookup is called
// once per record, in order, and its errors abort the transform. Records
// that are not playbacks are skipped.
func Events(ctx context.Context, recs []extract.EventRecord, lookup SongLookup, ids IDGenerator) (EventRows, error) {
	out := EventRows{
		Times:     make([]model.TimeDim, 0, len(recs)),
		Users:     make([]model.User, 0, len(recs)),
		SongPlays: make([]model.SongPlay, 0, len(recs)),
	}

	for _, r := range recs {
		if !r.IsPlayback() {
			continue
		}
		td := DecomposeTime(r.TS)
		out.Times = append(out.Times, td)

		out.Users = append(out.Users, model.User{
			UserID:    r.UserID,
			FirstName: r.FirstName,
			LastName:  r.LastName,
			Gender:    model.Gender(r.Gender),
			Level:     model.Level(r.Level),
		})

		play := model.SongPlay{
			SongPlayID: ids.Next(td.StartTime, r.UserID, r.SessionID),
			StartTime:  td.StartTime,
			UserID:     r.UserID,
			Level:      model.Level(r.Level),
			SessionID:  r.SessionID,
			Location:   r.Location,
			UserAgent:  r.UserAgent,
		}
		if r.Length != nil {
			songID, artistID, found, err := lookup.LookupSong(ctx, r.Song, r.Artist, *r.Length)
			if err != nil {
				return EventRows{}, fmt.Errorf("lookup %q by %q (line %d): %w", r.Song, r.Artist, r.Line, err)
			}
			if found {
				play.SongID, play.ArtistID = &songID, &artistID
			}
		}
		out.SongPlays = append(out.SongPlays, play)
	}
	return out, nil
}
