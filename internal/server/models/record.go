package models

import (
	"time"

	"github.com/dmitrijs2005/timekeeper/internal/timex"
)

// TimeRecord is a confirmed punch. Timestamp is naive local time kept in UTC.
// UserID and Matricula are zero when the owner was unknown at write time.
type TimeRecord struct {
	ID           int64
	UserID       int64
	Matricula    string
	UserName     string
	RecordType   string
	Timestamp    time.Time
	Neighborhood string
	City         string
}

// Signature identifies "the same punch" across stores: the record type and
// the timestamp truncated to whole seconds.
type Signature struct {
	RecordType string
	Timestamp  string
}

func SignatureOf(recordType string, ts time.Time) Signature {
	return Signature{RecordType: recordType, Timestamp: timex.FormatSeconds(ts)}
}

func (r TimeRecord) Signature() Signature { return SignatureOf(r.RecordType, r.Timestamp) }

// QueueEntry is a punch captured in the mirror while the primary was
// unreachable. ID is local to the mirror's OfflineQueue.
type QueueEntry struct {
	TimeRecord
}

// Owner is a distinct (matricula, user id) pair found in the queue.
type Owner struct {
	Matricula string
	UserID    int64
}
