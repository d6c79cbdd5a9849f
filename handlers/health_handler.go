package handlers

import (
	"context"
	"net/http"
	"time"
)

// Pinger - зависимость, доступность которой проверяет /healthz (например *sql.DB).
type Pinger interface {
	PingContext(ctx context.Context) error
}

func HealthCheck(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if db != nil {
			if err := db.PingContext(ctx); err != nil {
				_ = writeJSON(w, http.StatusServiceUnavailable, jsonResponse{"status": "unavailable", "database": err.Error()}, nil)
				return
			}
		}
		_ = writeJSON(w, http.StatusOK, jsonResponse{"status": "ok"}, nil)
	}
}
