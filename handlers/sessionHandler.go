package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"

	"emailgame/services"

	"github.com/gorilla/mux"
)

type SessionHandler struct {
	service *services.SessionService
}

func NewSessionHandler(service *services.SessionService) *SessionHandler {
	return &SessionHandler{service: service}
}

func (h *SessionHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/sessions", h.CreateSession).Methods("POST")
	// Registered before /sessions/{id} so "leaderboard" is not taken as an id.
	router.HandleFunc("/sessions/leaderboard", h.GetCompletionLeaderboard).Methods("GET")
	router.HandleFunc("/sessions/{id}", h.GetSession).Methods("GET")
	router.HandleFunc("/sessions/{id}/progress", h.GetProgress).Methods("GET")
	router.HandleFunc("/sessions/{id}/levels/{level}/turns", h.GetTurns).Methods("GET")
}

func (h *SessionHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.service.CreateSession()
	if err != nil {
		log.Printf("[ERROR] Failed to create session: %v", err)
		h.writeErrorResponse(w, http.StatusInternalServerError, "Failed to create session")
		return
	}

	h.writeJSONResponse(w, http.StatusCreated, session)
}

func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	sessionID := vars["id"]

	session, err := h.service.GetSession(sessionID)
	if err != nil {
		if isNotFound(err) {
			h.writeErrorResponse(w, http.StatusNotFound, err.Error())
			return
		}
		log.Printf("[ERROR] Failed to get session %s: %v", sessionID, err)
		h.writeErrorResponse(w, http.StatusInternalServerError, "Failed to get session")
		return
	}

	h.writeJSONResponse(w, http.StatusOK, session)
}

func (h *SessionHandler) GetProgress(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	sessionID := vars["id"]

	progress, err := h.service.GetProgress(sessionID)
	if err != nil {
		if isNotFound(err) {
			h.writeErrorResponse(w, http.StatusNotFound, err.Error())
			return
		}
		log.Printf("[ERROR] Failed to get progress for session %s: %v", sessionID, err)
		h.writeErrorResponse(w, http.StatusInternalServerError, "Failed to get session progress")
		return
	}

	h.writeJSONResponse(w, http.StatusOK, progress)
}

func (h *SessionHandler) GetTurns(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	sessionID := vars["id"]
	level, err := strconv.Atoi(vars["level"])
	if err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, "Invalid level")
		return
	}

	turns, err := h.service.GetTurns(sessionID, level)
	if err != nil {
		log.Printf("[ERROR] Failed to get turns for session %s level %d: %v", sessionID, level, err)
		h.writeErrorResponse(w, http.StatusInternalServerError, "Failed to get turns")
		return
	}

	h.writeJSONResponse(w, http.StatusOK, turns)
}

func (h *SessionHandler) GetCompletionLeaderboard(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.GetCompletionLeaderboard()
	if err != nil {
		log.Printf("[ERROR] Failed to get completion leaderboard: %v", err)
		h.writeErrorResponse(w, http.StatusInternalServerError, "Failed to get completion leaderboard")
		return
	}

	h.writeJSONResponse(w, http.StatusOK, entries)
}

// isNotFound matches the repository's "x not found" errors without a
// dedicated sentinel type.
func isNotFound(err error) bool {
	return err != nil && strings.Contains(err.Error(), "not found")
}

func (h *SessionHandler) writeJSONResponse(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

func (h *SessionHandler) writeErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
