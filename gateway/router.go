package gateway

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"vipgate.org/core/gateway/queue"
	"vipgate.org/core/report"
)

// Router exposes the operational surface: liveness, counters, and manual
// report triggers for admins retrying a failed delivery.
func (g *Gateway) Router() http.Handler {
	mux := chi.NewRouter()

	mux.Get("/health", g.health)
	mux.Get("/stats", g.stats)
	mux.Post("/report/weekly", g.triggerReport("weekly-report", report.WeeklyTitle))
	mux.Post("/report/monthly", g.triggerReport("monthly-report", report.MonthlyTitle))

	return mux
}

func (g *Gateway) health(w http.ResponseWriter, r *http.Request) {
	if err := g.db.Ping(); err != nil {
		http.Error(w, "db unavailable", http.StatusServiceUnavailable)
		return
	}
	w.Write([]byte("ok"))
}

func (g *Gateway) stats(w http.ResponseWriter, r *http.Request) {
	members, err := g.db.MemberCount()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	attempts, err := g.db.AttemptCount()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]int{
		"members":  members,
		"attempts": attempts,
	})
}

// triggerReport enqueues a report run. The manual monthly trigger is
// explicit, so it skips the day-of-month guard.
func (g *Gateway) triggerReport(name, title string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ok := g.queue.Enqueue(queue.Job{
			Name: name,
			Run: func(ctx context.Context) error {
				return g.reporter.Run(ctx, title)
			},
		})
		if !ok {
			http.Error(w, "queue full", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte("queued"))
	}
}
