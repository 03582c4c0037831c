package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/LeventeLantos/tweet-automation/internal/cache"
	"github.com/LeventeLantos/tweet-automation/internal/logsink"
	"github.com/LeventeLantos/tweet-automation/internal/model"
)

var ErrMissingCredentials = errors.New("posting credentials are not configured")

type RecordStore interface {
	Append(ctx context.Context, rec model.Record) error
	Delete(ctx context.Context, id int64) (bool, error)
	Update(ctx context.Context, rec model.Record) (bool, error)
	List(ctx context.Context) []model.Record
	Get(ctx context.Context, id int64) (model.Record, bool)
	MaxID() int64
}

type CredentialStore interface {
	Load(ctx context.Context) (model.Credentials, error)
	Save(ctx context.Context, c model.Credentials) error
	Clear(ctx context.Context) error
}

// Draft is the raw input for a new record.
type Draft struct {
	Text           string
	AttachmentPath string
	Date           time.Time
	Clock          time.Time
	Immediate      bool
}

type Deps struct {
	Factory     *model.Factory
	Records     RecordStore
	Credentials CredentialStore
	Dispatcher  *Dispatcher
	Deliveries  cache.DeliveryCache
	Diagnostics Diagnostics
	Logger      *slog.Logger
}

// Automation ties record creation, storage and delivery together.
type Automation struct {
	factory    *model.Factory
	records    RecordStore
	creds      CredentialStore
	dispatcher *Dispatcher
	deliveries cache.DeliveryCache
	diag       Diagnostics
	logger     *slog.Logger

	// mu pairs Submit's append with its dispatch and Delete's cancel with
	// its removal, so a delete never falls between the two.
	mu sync.Mutex
}

func NewAutomation(deps Deps) *Automation {
	a := &Automation{
		factory:    deps.Factory,
		records:    deps.Records,
		creds:      deps.Credentials,
		dispatcher: deps.Dispatcher,
		deliveries: deps.Deliveries,
		diag:       deps.Diagnostics,
		logger:     deps.Logger,
	}
	if a.factory == nil {
		a.factory = model.NewFactory(nil)
	}
	if a.deliveries == nil {
		a.deliveries = cache.Noop{}
	}
	if a.diag == nil {
		a.diag = discard{}
	}
	if a.logger == nil {
		a.logger = slog.Default()
	}
	a.logger = a.logger.With(slog.String("component", "automation"))

	a.dispatcher.WithHooks(a.recordOutcome)
	return a
}

// Submit creates a record from draft, stores it and hands it to the
// dispatcher. Nothing is stored when the draft is invalid.
func (a *Automation) Submit(ctx context.Context, draft Draft) (model.Record, error) {
	creds, err := a.credentials(ctx)
	if err != nil {
		return model.Record{}, err
	}

	rec, err := a.factory.Create(draft.Text, draft.AttachmentPath, draft.Date, draft.Clock, draft.Immediate)
	if err != nil {
		return model.Record{}, err
	}
	if err := a.dispatcher.Validate(rec); err != nil {
		return model.Record{}, err
	}

	dispatched, err := a.store(ctx, creds, rec)
	if err != nil {
		return rec, err
	}

	// The send may already have finished; Update refuses to move a
	// terminal status back.
	if dispatched.Status != rec.Status {
		if _, err := a.records.Update(ctx, dispatched); err != nil {
			a.logger.Error("store dispatched status", "record_id", rec.ID, "error", err)
		}
	}
	return dispatched, nil
}

func (a *Automation) store(ctx context.Context, creds model.Credentials, rec model.Record) (model.Record, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.records.Append(ctx, rec); err != nil {
		return model.Record{}, fmt.Errorf("store record %d: %w", rec.ID, err)
	}
	a.logf(logsink.Debug, "New record stored. ID: %d", rec.ID)

	return a.dispatcher.Dispatch(creds, rec)
}

// Delete cancels any pending send for id and removes the record. Unknown
// ids report false without error.
func (a *Automation) Delete(ctx context.Context, id int64) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	cancelled := a.dispatcher.Cancel(id)

	ok, err := a.records.Delete(ctx, id)
	if err != nil {
		return false, fmt.Errorf("delete record %d: %w", id, err)
	}
	if ok {
		a.logf(logsink.Debug, "Record deleted, pending send cancelled: %t. ID: %d", cancelled, id)
	}
	return ok, nil
}

// Resume re-dispatches every stored record that has not reached a final
// status. It is meant to run once at startup.
func (a *Automation) Resume(ctx context.Context) (int, error) {
	a.factory.Resume(a.records.MaxID())

	var pending []model.Record
	for _, rec := range a.records.List(ctx) {
		if !rec.Status.Terminal() {
			pending = append(pending, rec)
		}
	}
	if len(pending) == 0 {
		a.logger.Info("no pending records to resume")
		return 0, nil
	}

	creds, err := a.credentials(ctx)
	if err != nil {
		a.logger.Warn("pending records left queued", "count", len(pending), "error", err)
		return 0, err
	}

	resumed := 0
	for _, rec := range pending {
		dispatched, err := a.dispatcher.Dispatch(creds, rec)
		if err != nil {
			a.logger.Error("resume record", "record_id", rec.ID, "error", err)
			continue
		}
		if dispatched.Status != rec.Status {
			if _, err := a.records.Update(ctx, dispatched); err != nil {
				a.logger.Error("store resumed status", "record_id", rec.ID, "error", err)
			}
		}
		resumed++
	}

	a.logger.Info("resumed pending records", "count", resumed)
	return resumed, nil
}

func (a *Automation) Records(ctx context.Context) []model.Record {
	return a.records.List(ctx)
}

func (a *Automation) Record(ctx context.Context, id int64) (model.Record, bool) {
	return a.records.Get(ctx, id)
}

// Delivery reports what the delivery cache holds for id. A cache miss or
// an unreachable cache both report false; the snapshot stays the source
// of truth.
func (a *Automation) Delivery(ctx context.Context, id int64) (cache.Delivery, bool) {
	d, err := a.deliveries.Lookup(ctx, id)
	if err != nil {
		if !errors.Is(err, cache.ErrNotCached) {
			a.logger.Warn("delivery cache lookup", "record_id", id, "error", err)
		}
		return cache.Delivery{}, false
	}
	return d, true
}

func (a *Automation) SaveCredentials(ctx context.Context, c model.Credentials) error {
	a.logf(logsink.Debug, "Saving credentials.")
	return a.creds.Save(ctx, c)
}

func (a *Automation) ClearCredentials(ctx context.Context) error {
	a.logf(logsink.Debug, "Clearing credentials.")
	return a.creds.Clear(ctx)
}

func (a *Automation) CredentialsConfigured(ctx context.Context) (bool, error) {
	c, err := a.creds.Load(ctx)
	if err != nil {
		return false, err
	}
	return c.Complete(), nil
}

func (a *Automation) credentials(ctx context.Context) (model.Credentials, error) {
	c, err := a.creds.Load(ctx)
	if err != nil {
		return model.Credentials{}, fmt.Errorf("load credentials: %w", err)
	}
	if !c.Complete() {
		return model.Credentials{}, ErrMissingCredentials
	}
	return c, nil
}

func (a *Automation) recordOutcome(ctx context.Context, rec model.Record) error {
	ok, err := a.records.Update(ctx, rec)
	if err != nil {
		return err
	}
	if !ok {
		a.logf(logsink.Debug, "Outcome for a removed record dropped. ID: %d", rec.ID)
	}

	if rec.Status == model.Sent {
		if err := a.deliveries.StoreSent(ctx, rec.ID, rec.OutcomeCode, rec.AttemptedAt); err != nil {
			return fmt.Errorf("cache delivery: %w", err)
		}
	}
	return nil
}

func (a *Automation) logf(level logsink.Level, format string, args ...any) {
	_ = a.diag.Append(level, fmt.Sprintf(format, args...))
}
