package model

import (
	"fmt"
	"time"
)

type Status string

const (
	Queued   Status = "queued"
	Starting Status = "starting"
	Sent     Status = "sent"
	Failed   Status = "failed"
)

// ParseStatus rejects anything outside the closed set of statuses.
func ParseStatus(raw string) (Status, error) {
	s := Status(raw)
	if !s.Valid() {
		return "", fmt.Errorf("invalid status %q", raw)
	}
	return s, nil
}

func (s Status) Valid() bool {
	switch s {
	case Queued, Starting, Sent, Failed:
		return true
	}
	return false
}

// Terminal reports whether no further transition is allowed.
func (s Status) Terminal() bool {
	return s == Sent || s == Failed
}

// rank orders statuses along the only legal direction of travel.
func (s Status) rank() int {
	switch s {
	case Queued:
		return 1
	case Starting:
		return 2
	case Sent, Failed:
		return 3
	}
	return 0
}

// CanAdvanceTo reports whether moving from s to next keeps the lifecycle
// monotonic. Terminal statuses may be rewritten by another terminal one.
func (s Status) CanAdvanceTo(next Status) bool {
	if !next.Valid() {
		return false
	}
	return next.rank() >= s.rank()
}

type Record struct {
	ID             int64
	Text           string
	AttachmentPath string
	ScheduledAt    time.Time
	Immediate      bool
	Status         Status
	OutcomeCode    int
	CreatedAt      time.Time
	AttemptedAt    time.Time
}

func (r Record) HasAttachment() bool {
	return r.AttachmentPath != ""
}
