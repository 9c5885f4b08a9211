package transport

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"solana-sentinel/internal/facts"
	"solana-sentinel/internal/observability"
)

// NewMux builds the HTTP API: analysis requests, monitoring control,
// health and metrics, plus the WebSocket endpoint.
func NewMux(service AnalysisService, hub *WSHub) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/tokens/{address}", func(w http.ResponseWriter, r *http.Request) {
		address := r.PathValue("address")
		forceFresh := r.URL.Query().Get("fresh") == "true"

		analysis, err := service.Analyze(r.Context(), address, forceFresh)
		if err != nil {
			if errors.Is(err, facts.ErrInvalidAddress) {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			log.Printf("[transport] analyze %s: %v", address, err)
			writeError(w, http.StatusInternalServerError, "analysis failed")
			return
		}

		writeJSON(w, http.StatusOK, toAnalysisResponse(analysis))
	})

	mux.HandleFunc("GET /api/tokens/{address}/history", func(w http.ResponseWriter, r *http.Request) {
		address := r.PathValue("address")
		analyses, err := service.History(r.Context(), address, queryLimit(r))
		if err != nil {
			log.Printf("[transport] history %s: %v", address, err)
			writeError(w, http.StatusInternalServerError, "history lookup failed")
			return
		}

		out := make([]AnalysisResponse, 0, len(analyses))
		for _, a := range analyses {
			out = append(out, toAnalysisResponse(a))
		}
		writeJSON(w, http.StatusOK, out)
	})

	mux.HandleFunc("GET /api/tokens/{address}/transactions", func(w http.ResponseWriter, r *http.Request) {
		address := r.PathValue("address")
		events, err := service.RecentEvents(r.Context(), address, queryLimit(r))
		if err != nil {
			log.Printf("[transport] transactions %s: %v", address, err)
			writeError(w, http.StatusInternalServerError, "transaction lookup failed")
			return
		}

		out := make([]TransactionResponse, 0, len(events))
		for _, e := range events {
			out = append(out, toTransactionResponse(e.TokenTransaction))
		}
		writeJSON(w, http.StatusOK, out)
	})

	mux.HandleFunc("GET /api/monitored", func(w http.ResponseWriter, r *http.Request) {
		addresses := service.Monitored()
		if addresses == nil {
			addresses = []string{}
		}
		writeJSON(w, http.StatusOK, map[string][]string{"addresses": addresses})
	})

	mux.HandleFunc("DELETE /api/tokens/{address}/monitor", func(w http.ResponseWriter, r *http.Request) {
		address := r.PathValue("address")
		if err := service.StopMonitoring(r.Context(), address); err != nil {
			log.Printf("[transport] stop monitoring %s: %v", address, err)
			writeError(w, http.StatusInternalServerError, "stop monitoring failed")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	mux.Handle("GET /metrics", observability.Handler())
	mux.Handle("GET /ws", hub)

	return mux
}

// defaultHistoryLimit bounds history responses when no limit is given.
const defaultHistoryLimit = 20

// queryLimit parses the limit query parameter, falling back to the
// default for missing or invalid values.
func queryLimit(r *http.Request) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultHistoryLimit
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return defaultHistoryLimit
	}
	return limit
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[transport] encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
