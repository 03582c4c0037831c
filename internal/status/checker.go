// Package status derives and advances record statuses.
package status

import (
	"time"

	"github.com/LeventeLantos/tweet-automation/internal/model"
)

// NoResponse is the outcome recorded when the posting boundary never
// answered, e.g. a transport error or a local rejection.
const NoResponse = 0

type Checker struct {
	now func() time.Time
}

func NewChecker(now func() time.Time) Checker {
	if now == nil {
		now = time.Now
	}
	return Checker{now: now}
}

// CheckStatus marks a scheduled record Queued while its time is still
// ahead. Immediate or overdue records are left as they are.
func (c Checker) CheckStatus(rec *model.Record) {
	if rec.Immediate {
		return
	}
	if c.now().Before(rec.ScheduledAt) {
		advance(rec, model.Queued)
	}
}

// CheckStatusOfSendImmediately authorizes a send by marking the record
// Starting. Terminal records stay terminal.
func (c Checker) CheckStatusOfSendImmediately(rec *model.Record) {
	advance(rec, model.Starting)
}

// ChangeStatusByResponse applies Classify(outcome) to rec.
func (c Checker) ChangeStatusByResponse(rec *model.Record, outcome int) {
	rec.Status = Classify(outcome)
}

// Classify maps a transport outcome code onto a terminal status.
func Classify(outcome int) model.Status {
	if outcome >= 200 && outcome <= 299 {
		return model.Sent
	}
	return model.Failed
}

func advance(rec *model.Record, next model.Status) {
	if rec.Status == "" || rec.Status.CanAdvanceTo(next) {
		rec.Status = next
	}
}
