package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/LeventeLantos/tweet-automation/internal/cache"
	"github.com/LeventeLantos/tweet-automation/internal/logsink"
	"github.com/LeventeLantos/tweet-automation/internal/model"
	"github.com/LeventeLantos/tweet-automation/internal/scheduler"
	"github.com/LeventeLantos/tweet-automation/internal/service"
)

// Service is the part of service.Automation the API drives.
type Service interface {
	Submit(ctx context.Context, draft service.Draft) (model.Record, error)
	Delete(ctx context.Context, id int64) (bool, error)
	Records(ctx context.Context) []model.Record
	Record(ctx context.Context, id int64) (model.Record, bool)
	Delivery(ctx context.Context, id int64) (cache.Delivery, bool)
	SaveCredentials(ctx context.Context, c model.Credentials) error
	ClearCredentials(ctx context.Context) error
	CredentialsConfigured(ctx context.Context) (bool, error)
}

// AccessLog receives one ACCESS line per handled request.
type AccessLog interface {
	Append(level logsink.Level, message string) error
}

type Handler struct {
	sched  *scheduler.Scheduler
	svc    Service
	access AccessLog
}

func NewHandler(s *scheduler.Scheduler, svc Service, access AccessLog) *Handler {
	return &Handler{sched: s, svc: svc, access: access}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handler) SchedulerStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.schedulerState())
}

func (h *Handler) SchedulerStart(w http.ResponseWriter, r *http.Request) {
	h.sched.Start()
	h.logAccess("Scheduler start requested.")
	writeJSON(w, http.StatusOK, h.schedulerState())
}

func (h *Handler) SchedulerStop(w http.ResponseWriter, r *http.Request) {
	h.sched.Stop()
	h.logAccess("Scheduler stop requested.")
	writeJSON(w, http.StatusOK, h.schedulerState())
}

func (h *Handler) schedulerState() map[string]any {
	return map[string]any{
		"running":   h.sched.IsRunning(),
		"pending":   h.sched.Pending(),
		"in_flight": h.sched.InFlight(),
	}
}

type recordView struct {
	ID             int64      `json:"id"`
	Text           string     `json:"text"`
	AttachmentPath string     `json:"attachment_path,omitempty"`
	ScheduledAt    time.Time  `json:"scheduled_at"`
	Immediate      bool       `json:"immediate"`
	Status         string     `json:"status"`
	OutcomeCode    int        `json:"outcome_code,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	AttemptedAt    *time.Time `json:"attempted_at,omitempty"`
	DeliveredAt    *time.Time `json:"delivered_at,omitempty"`
}

func toView(rec model.Record) recordView {
	v := recordView{
		ID:             rec.ID,
		Text:           rec.Text,
		AttachmentPath: rec.AttachmentPath,
		ScheduledAt:    rec.ScheduledAt,
		Immediate:      rec.Immediate,
		Status:         string(rec.Status),
		OutcomeCode:    rec.OutcomeCode,
		CreatedAt:      rec.CreatedAt,
	}
	if !rec.AttemptedAt.IsZero() {
		at := rec.AttemptedAt
		v.AttemptedAt = &at
	}
	return v
}

func (h *Handler) ListRecords(w http.ResponseWriter, r *http.Request) {
	var want model.Status
	if raw := r.URL.Query().Get("status"); raw != "" {
		s, err := model.ParseStatus(raw)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		want = s
	}

	items := make([]recordView, 0)
	for _, rec := range h.svc.Records(r.Context()) {
		if want != "" && rec.Status != want {
			continue
		}
		items = append(items, toView(rec))
	}

	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *Handler) GetRecord(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	rec, found := h.svc.Record(r.Context(), id)
	if !found {
		http.Error(w, "record not found", http.StatusNotFound)
		return
	}

	v := toView(rec)
	if d, ok := h.svc.Delivery(r.Context(), id); ok {
		v.DeliveredAt = &d.SentAt
	}
	writeJSON(w, http.StatusOK, v)
}

type createRecordRequest struct {
	Text           string     `json:"text"`
	AttachmentPath string     `json:"attachment_path"`
	ScheduledAt    *time.Time `json:"scheduled_at"`
	Immediate      bool       `json:"immediate"`
}

func (h *Handler) CreateRecord(w http.ResponseWriter, r *http.Request) {
	var req createRecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}

	at := time.Now()
	switch {
	case req.ScheduledAt != nil:
		at = *req.ScheduledAt
	case !req.Immediate:
		http.Error(w, "scheduled_at is required unless immediate is set", http.StatusBadRequest)
		return
	}

	h.logAccess("Send requested, immediate: %t.", req.Immediate)

	rec, err := h.svc.Submit(r.Context(), service.Draft{
		Text:           req.Text,
		AttachmentPath: req.AttachmentPath,
		Date:           at,
		Clock:          at,
		Immediate:      req.Immediate,
	})
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	writeJSON(w, http.StatusCreated, toView(rec))
}

func (h *Handler) DeleteRecord(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	h.logAccess("Delete requested. ID: %d", id)

	deleted, err := h.svc.Delete(r.Context(), id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if !deleted {
		http.Error(w, "record not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type credentialsRequest struct {
	ConsumerKey       string `json:"consumer_key"`
	ConsumerSecret    string `json:"consumer_secret"`
	AccessToken       string `json:"access_token"`
	AccessTokenSecret string `json:"access_token_secret"`
}

func (h *Handler) PutCredentials(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}

	c := model.Credentials(req)
	if !c.Complete() {
		http.Error(w, "all four credential fields are required", http.StatusBadRequest)
		return
	}

	h.logAccess("Credentials save requested.")

	if err := h.svc.SaveCredentials(r.Context(), c); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"configured": true})
}

func (h *Handler) DeleteCredentials(w http.ResponseWriter, r *http.Request) {
	h.logAccess("Credentials clear requested.")

	if err := h.svc.ClearCredentials(r.Context()); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) GetCredentials(w http.ResponseWriter, r *http.Request) {
	ok, err := h.svc.CredentialsConfigured(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"configured": ok})
}

func (h *Handler) logAccess(format string, args ...any) {
	if h.access == nil {
		return
	}
	_ = h.access.Append(logsink.Access, fmt.Sprintf(format, args...))
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrEmptyText),
		errors.Is(err, service.ErrScheduleTooFar),
		errors.Is(err, service.ErrAlreadyDelivered):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrMissingCredentials):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "invalid record id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
