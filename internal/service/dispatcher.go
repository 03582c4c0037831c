package service

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/LeventeLantos/tweet-automation/internal/client"
	"github.com/LeventeLantos/tweet-automation/internal/logsink"
	"github.com/LeventeLantos/tweet-automation/internal/model"
	"github.com/LeventeLantos/tweet-automation/internal/scheduler"
	"github.com/LeventeLantos/tweet-automation/internal/status"
)

var (
	ErrScheduleTooFar   = errors.New("scheduled time is too far ahead")
	ErrAlreadyDelivered = errors.New("record already delivered")
)

// Diagnostics receives the timestamped lines written from the send path.
type Diagnostics interface {
	Append(level logsink.Level, message string) error
}

type DispatcherConfig struct {
	// ContentMax caps the text length in runes; 0 disables the check.
	ContentMax int
	// MaxAhead rejects schedules further out than this; 0 disables it.
	MaxAhead time.Duration
	Now      func() time.Time
}

// Dispatcher sends records now or at their scheduled time. Sends are
// never retried: whatever the first attempt returns is final.
type Dispatcher struct {
	poster  client.Poster
	sched   *scheduler.Scheduler
	diag    Diagnostics
	checker status.Checker

	contentMax int
	maxAhead   time.Duration
	now        func() time.Time

	onOutcome func(ctx context.Context, rec model.Record) error
}

func NewDispatcher(poster client.Poster, sched *scheduler.Scheduler, diag Diagnostics, cfg DispatcherConfig) *Dispatcher {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	if diag == nil {
		diag = discard{}
	}
	return &Dispatcher{
		poster:     poster,
		sched:      sched,
		diag:       diag,
		checker:    status.NewChecker(now),
		contentMax: cfg.ContentMax,
		maxAhead:   cfg.MaxAhead,
		now:        now,
	}
}

// WithHooks installs the callback that receives every final outcome.
func (d *Dispatcher) WithHooks(onOutcome func(ctx context.Context, rec model.Record) error) *Dispatcher {
	d.onOutcome = onOutcome
	return d
}

// Validate reports whether rec can be dispatched at all.
func (d *Dispatcher) Validate(rec model.Record) error {
	if rec.Status.Terminal() {
		return fmt.Errorf("%w: id %d is %s", ErrAlreadyDelivered, rec.ID, rec.Status)
	}
	if !rec.Immediate && d.maxAhead > 0 {
		if ahead := rec.ScheduledAt.Sub(d.now()); ahead > d.maxAhead {
			return fmt.Errorf("%w: %s exceeds %s", ErrScheduleTooFar, ahead.Round(time.Second), d.maxAhead)
		}
	}
	return nil
}

// Dispatch hands rec to the scheduler and returns at once with the
// status it was given. Records whose time has already come are sent as
// immediate ones.
func (d *Dispatcher) Dispatch(creds model.Credentials, rec model.Record) (model.Record, error) {
	if err := d.Validate(rec); err != nil {
		return rec, err
	}

	if rec.Immediate {
		d.checker.CheckStatusOfSendImmediately(&rec)
		d.logf(logsink.Debug, "Sending record immediately. ID: %d", rec.ID)
		d.enqueue(creds, rec, d.now())
		return rec, nil
	}

	d.checker.CheckStatus(&rec)
	delay := rec.ScheduledAt.Sub(d.now())
	if delay <= 0 {
		d.checker.CheckStatusOfSendImmediately(&rec)
		d.logf(logsink.Debug, "Scheduled time has passed, sending now. ID: %d", rec.ID)
		d.enqueue(creds, rec, d.now())
		return rec, nil
	}

	d.logf(logsink.Debug, "Record scheduled in %s. ID: %d", delay.Round(time.Millisecond), rec.ID)
	d.enqueue(creds, rec, rec.ScheduledAt)
	return rec, nil
}

// Cancel stops a pending send. A send already talking to the posting
// service has its context cancelled instead.
func (d *Dispatcher) Cancel(id int64) bool {
	if d.sched.Cancel(id) {
		d.logf(logsink.Debug, "Pending send cancelled. ID: %d", id)
		return true
	}
	return false
}

// Deliver performs one send attempt synchronously and returns the record
// with its final status.
func (d *Dispatcher) Deliver(ctx context.Context, creds model.Credentials, rec model.Record) model.Record {
	d.checker.CheckStatusOfSendImmediately(&rec)
	if rec.Status != model.Starting {
		d.logf(logsink.Debug, "Record is %s, not sending. ID: %d", rec.Status, rec.ID)
		return rec
	}

	code := d.post(ctx, creds, rec)
	rec.OutcomeCode = code
	rec.AttemptedAt = d.now()
	d.checker.ChangeStatusByResponse(&rec, code)

	level := logsink.Debug
	if rec.Status == model.Failed {
		level = logsink.Error
	}
	d.logf(level, "Done sending record, outcome %d, status %s. ID: %d", code, rec.Status, rec.ID)

	if d.onOutcome != nil {
		// The outcome must be recorded even if the send was cancelled.
		if err := d.onOutcome(context.WithoutCancel(ctx), rec); err != nil {
			d.logf(logsink.Error, "Recording outcome failed: %v. ID: %d", err, rec.ID)
		}
	}
	return rec
}

func (d *Dispatcher) enqueue(creds model.Credentials, rec model.Record, at time.Time) {
	d.sched.Schedule(rec.ID, at, func(ctx context.Context) {
		d.Deliver(ctx, creds, rec)
	})
}

func (d *Dispatcher) post(ctx context.Context, creds model.Credentials, rec model.Record) int {
	if d.contentMax > 0 {
		if n := utf8.RuneCountInString(rec.Text); n > d.contentMax {
			d.logf(logsink.Error, "Text is %d chars, limit is %d. ID: %d", n, d.contentMax, rec.ID)
			return status.NoResponse
		}
	}

	d.logf(logsink.Debug, "Calling posting API. ID: %d", rec.ID)
	code, err := d.poster.Post(ctx, creds, rec.Text, rec.AttachmentPath)
	if err != nil {
		d.logf(logsink.Error, "Posting API error: %v. ID: %d", err, rec.ID)
		return status.NoResponse
	}
	d.logf(logsink.Debug, "Response from posting API: %d. ID: %d", code, rec.ID)
	return code
}

func (d *Dispatcher) logf(level logsink.Level, format string, args ...any) {
	_ = d.diag.Append(level, fmt.Sprintf(format, args...))
}

type discard struct{}

func (discard) Append(logsink.Level, string) error { return nil }
