package model

import (
	"errors"
	"strings"
	"sync/atomic"
	"time"
)

var ErrEmptyText = errors.New("record text must not be empty")

// Factory builds records from raw input and hands out ids that only grow.
type Factory struct {
	lastID atomic.Int64
	now    func() time.Time
}

func NewFactory(now func() time.Time) *Factory {
	if now == nil {
		now = time.Now
	}
	return &Factory{now: now}
}

// Resume makes the next id follow lastID. It never moves the sequence
// backwards.
func (f *Factory) Resume(lastID int64) {
	for {
		cur := f.lastID.Load()
		if lastID <= cur {
			return
		}
		if f.lastID.CompareAndSwap(cur, lastID) {
			return
		}
	}
}

// Create combines the calendar day of date with the wall clock of clock
// into the record's scheduled time. Immediate records ignore both for
// delivery but keep them for display.
func (f *Factory) Create(text, attachmentPath string, date, clock time.Time, immediate bool) (Record, error) {
	if strings.TrimSpace(text) == "" {
		return Record{}, ErrEmptyText
	}

	return Record{
		ID:             f.lastID.Add(1),
		Text:           text,
		AttachmentPath: attachmentPath,
		ScheduledAt:    Combine(date, clock),
		Immediate:      immediate,
		Status:         Queued,
		CreatedAt:      f.now(),
	}, nil
}

// Combine returns date's year/month/day at clock's hour/minute/second in
// date's location.
func Combine(date, clock time.Time) time.Time {
	y, m, d := date.Date()
	clock = clock.In(date.Location())
	return time.Date(y, m, d, clock.Hour(), clock.Minute(), clock.Second(), clock.Nanosecond(), date.Location())
}
