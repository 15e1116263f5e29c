package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"emailgame/services"

	"github.com/gorilla/mux"
)

type LeaderboardHandler struct {
	service *services.LeaderboardService
}

func NewLeaderboardHandler(service *services.LeaderboardService) *LeaderboardHandler {
	return &LeaderboardHandler{service: service}
}

func (h *LeaderboardHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/scenarios/{id}/leaderboard", h.GetLeaderboard).Methods("GET")
}

func (h *LeaderboardHandler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	scenarioID := vars["id"]

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			h.writeErrorResponse(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = parsed
	}

	entries, err := h.service.GetLeaderboard(scenarioID, limit)
	if err != nil {
		log.Printf("[ERROR] Failed to load leaderboard for scenario %s: %v", scenarioID, err)
		h.writeErrorResponse(w, http.StatusInternalServerError, "Failed to load leaderboard")
		return
	}

	h.writeJSONResponse(w, http.StatusOK, entries)
}

func (h *LeaderboardHandler) writeJSONResponse(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

func (h *LeaderboardHandler) writeErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
