package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/demandradar/demand-radar/internal/analysis"
	"github.com/demandradar/demand-radar/internal/models"
	"github.com/demandradar/demand-radar/internal/ratelimit"
	"github.com/demandradar/demand-radar/internal/reddit"
	"github.com/demandradar/demand-radar/internal/status"
	"github.com/demandradar/demand-radar/internal/suggest"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

const recentStatusLimit = 20

type handlers struct {
	analysis *analysis.Service
	tracker  status.Tracker
	reddit   *reddit.Client
	suggest  *suggest.Service
}

func registerRoutes(router *mux.Router, h *handlers) {
	router.HandleFunc("/health", healthCheckHandler).Methods("GET")
	router.HandleFunc("/metrics", h.metricsHandler).Methods("GET")

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/analysis/analyze", h.analyzeHandler).Methods("POST")
	api.HandleFunc("/status", h.listStatusHandler).Methods("GET")
	api.HandleFunc("/status/{requestId}", h.statusHandler).Methods("GET")
	api.HandleFunc("/subreddits/search", h.subredditSearchHandler).Methods("GET")
	api.HandleFunc("/keywords/suggestions", h.keywordSuggestionsHandler).Methods("GET")
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *handlers) metricsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.analysis.GetMetrics())
}

func (h *handlers) analyzeHandler(w http.ResponseWriter, r *http.Request) {
	var req analysis.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	requestID, err := h.analysis.Accept(r.Context(), req)
	if err != nil {
		var validationErr *analysis.ValidationError
		switch {
		case errors.As(err, &validationErr):
			writeError(w, http.StatusBadRequest, validationErr.Error())
		case errors.Is(err, ratelimit.ErrQuotaExceeded):
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded, try again later")
		default:
			logrus.Errorf("Failed to accept analysis request: %v", err)
			writeError(w, http.StatusInternalServerError, "failed to accept analysis request")
		}
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"requestId": requestID})
}

func (h *handlers) statusHandler(w http.ResponseWriter, r *http.Request) {
	requestID := mux.Vars(r)["requestId"]

	record, err := h.tracker.GetRequestStatus(requestID)
	if err != nil {
		logrus.Errorf("Failed to load status of request %s: %v", requestID, err)
		writeError(w, http.StatusInternalServerError, "failed to load request status")
		return
	}
	if record == nil {
		writeError(w, http.StatusNotFound, "request not found")
		return
	}

	writeJSON(w, http.StatusOK, record)
}

func (h *handlers) listStatusHandler(w http.ResponseWriter, r *http.Request) {
	records, err := h.tracker.ListRecent(recentStatusLimit)
	if err != nil {
		logrus.Errorf("Failed to list recent requests: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to list recent requests")
		return
	}
	if records == nil {
		records = []*models.RequestStatus{}
	}

	writeJSON(w, http.StatusOK, records)
}

func (h *handlers) subredditSearchHandler(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")

	names, err := h.reddit.SearchSubreddits(r.Context(), query)
	if err != nil {
		logrus.Errorf("Subreddit search failed for %q: %v", query, err)
		writeError(w, http.StatusBadGateway, "subreddit search unavailable")
		return
	}

	suggestions := make([]models.SubredditSuggestion, 0, len(names))
	for _, name := range names {
		suggestions = append(suggestions, models.SubredditSuggestion{
			Name:        name,
			DisplayName: "r/" + name,
		})
	}

	writeJSON(w, http.StatusOK, suggestions)
}

func (h *handlers) keywordSuggestionsHandler(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	writeJSON(w, http.StatusOK, h.suggest.GetSuggestions(r.Context(), query))
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logrus.Errorf("Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, map[string]string{"error": message})
}
