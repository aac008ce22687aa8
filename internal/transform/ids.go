package transform

import (
	"encoding/binary"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/zeebo/xxh3"
)

// IDGenerator assigns songplay_id values.
type IDGenerator interface {
	Next(start time.Time, userID, sessionID int64) int64
}

// HashIDs derives songplay_id from (start_time, user_id, session_id), the
// natural key of a song play. Re-ingesting the same play yields the same id.
type HashIDs struct{}

// Next returns the xxh3 hash of the natural key reinterpreted as int64.
func (HashIDs) Next(start time.Time, userID, sessionID int64) int64 {
	var buf [24]byte
	binary.BigEndian.PutUint64(buf[0:8], uint64(start.UnixNano()))
	binary.BigEndian.PutUint64(buf[8:16], uint64(userID))
	binary.BigEndian.PutUint64(buf[16:24], uint64(sessionID))
	return int64(xxh3.Hash(buf[:]))
}

// SequenceIDs hands out 1, 2, 3, ... for the lifetime of one ingest run. The
// ids are unique within the run but not stable across runs; the songplays
// uniqueness constraint on the natural key dedupes re-ingested plays.
type SequenceIDs struct {
	n atomic.Int64
}

// Next ignores the natural key and returns the next sequence number.
func (s *SequenceIDs) Next(time.Time, int64, int64) int64 {
	return s.n.Add(1)
}

// ID generator names accepted by NewIDGenerator.
const (
	IDsHash     = "hash"
	IDsSequence = "sequence"
)

// NewIDGenerator returns the generator registered under name.
func NewIDGenerator(name string) (IDGenerator, error) {
	switch name {
	case "", IDsHash:
		return HashIDs{}, nil
	case IDsSequence:
		return &SequenceIDs{}, nil
	default:
		return nil, fmt.Errorf("unknown songplay id generator %q", name)
	}
}
