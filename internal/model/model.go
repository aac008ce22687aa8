// Package model holds the typed rows written to the star schema: the songs,
// artists, users and time dimensions and the songplays fact table.
//
// Rows are plain structs. Values returns the row in destination column order
// and is only called at the store-write boundary.
package model

import "time"

// Level is a user's subscription tier.
type Level string

const (
	LevelFree Level = "free"
	LevelPaid Level = "paid"
)

// Gender as recorded in the event logs.
type Gender string

const (
	GenderMale   Gender = "M"
	GenderFemale Gender = "F"
)

// Song is a row of the songs dimension.
type Song struct {
	SongID   string
	Title    string
	ArtistID string
	Year     int
	Duration float64
}

// Values returns song_id, title, artist_id, year, duration.
func (s Song) Values() []any {
	return []any{s.SongID, s.Title, s.ArtistID, s.Year, s.Duration}
}

// Artist is a row of the artists dimension.
type Artist struct {
	ArtistID  string
	Name      string
	Location  string
	Latitude  *float64
	Longitude *float64
}

// Values returns artist_id, name, location, latitude, longitude.
func (a Artist) Values() []any {
	return []any{a.ArtistID, a.Name, a.Location, floatOrNil(a.Latitude), floatOrNil(a.Longitude)}
}

// User is a row of the users dimension. Only Level changes after the first
// insert.
type User struct {
	UserID    int64
	FirstName string
	LastName  string
	Gender    Gender
	Level     Level
}

// Values returns user_id, first_name, last_name, gender, level. An empty
// gender is written as NULL.
func (u User) Values() []any {
	var gender any
	if u.Gender != "" {
		gender = string(u.Gender)
	}
	return []any{u.UserID, stringOrNil(u.FirstName), stringOrNil(u.LastName), gender, string(u.Level)}
}

// TimeDim is a row of the time dimension. Every field is a pure function of
// StartTime.
type TimeDim struct {
	StartTime time.Time
	Hour      int
	Day       int
	Week      int
	Month     int
	Year      int
	Weekday   int // Monday=0 ... Sunday=6
}

// Values returns start_time, hour, day, week, month, year, weekday.
func (t TimeDim) Values() []any {
	return []any{t.StartTime, t.Hour, t.Day, t.Week, t.Month, t.Year, t.Weekday}
}

// SongPlay is a row of the songplays fact table. SongID and ArtistID are nil
// when the lookup join found no matching song.
type SongPlay struct {
	SongPlayID int64
	StartTime  time.Time
	UserID     int64
	Level      Level
	SongID     *string
	ArtistID   *string
	SessionID  int64
	Location   string
	UserAgent  string
}

// Values returns songplay_id, start_time, user_id, level, song_id,
// artist_id, session_id, location, user_agent.
func (p SongPlay) Values() []any {
	return []any{
		p.SongPlayID,
		p.StartTime,
		p.UserID,
		string(p.Level),
		stringPtrOrNil(p.SongID),
		stringPtrOrNil(p.ArtistID),
		p.SessionID,
		p.Location,
		p.UserAgent,
	}
}

func floatOrNil(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

func stringOrNil(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func stringPtrOrNil(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}
