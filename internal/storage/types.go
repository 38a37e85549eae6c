package storage

import "time"

// Record is the persisted form of a countdown deadline.
type Record struct {
	DeadlineMillis int64 `json:"deadlineTimestampMillis"`
	SetAtMillis    int64 `json:"setAtMillis"`
}

// NewRecord builds a Record from wall-clock times.
func NewRecord(deadline, setAt time.Time) Record {
	return Record{
		DeadlineMillis: deadline.UnixMilli(),
		SetAtMillis:    setAt.UnixMilli(),
	}
}

// Deadline returns the deadline as a time.Time in the local zone.
func (r Record) Deadline() time.Time {
	return time.UnixMilli(r.DeadlineMillis)
}

// SetAt returns when the deadline was stored.
func (r Record) SetAt() time.Time {
	return time.UnixMilli(r.SetAtMillis)
}
