package api

import "net/http"

func Router(h *Handler) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /v1/health", h.Health)

	mux.HandleFunc("GET /v1/scheduler/status", h.SchedulerStatus)
	mux.HandleFunc("POST /v1/scheduler/start", h.SchedulerStart)
	mux.HandleFunc("POST /v1/scheduler/stop", h.SchedulerStop)

	mux.HandleFunc("GET /v1/records", h.ListRecords)
	mux.HandleFunc("POST /v1/records", h.CreateRecord)
	mux.HandleFunc("GET /v1/records/{id}", h.GetRecord)
	mux.HandleFunc("DELETE /v1/records/{id}", h.DeleteRecord)

	mux.HandleFunc("GET /v1/credentials", h.GetCredentials)
	mux.HandleFunc("PUT /v1/credentials", h.PutCredentials)
	mux.HandleFunc("DELETE /v1/credentials", h.DeleteCredentials)

	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("tweet-automation"))
	})

	return mux
}
