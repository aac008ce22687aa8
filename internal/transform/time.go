package transform

import (
	"time"

	"github.com/manchhui/Data-Modelling-With-Postgres/internal/model"
)

// StartTime converts an epoch-millisecond timestamp to a UTC time.
func StartTime(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

// DecomposeTime derives the time-dimension row for an epoch-millisecond
// timestamp. Calendar fields are taken in UTC; week is the ISO-8601 week and
// weekday counts from Monday=0 to Sunday=6.
func DecomposeTime(ms int64) model.TimeDim {
	t := StartTime(ms)
	_, week := t.ISOWeek()
	return model.TimeDim{
		StartTime: t,
		Hour:      t.Hour(),
		Day:       t.Day(),
		Week:      week,
		Month:     int(t.Month()),
		Year:      t.Year(),
		Weekday:   (int(t.Weekday()) + 6) % 7,
	}
}
