package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"emailgame/services"

	"github.com/gorilla/mux"
)

type SubmitEmailBody struct {
	PlayerName string `json:"player_name,omitempty"`
	EmailText  string `json:"email_text"`
}

type GameHandler struct {
	service *services.GameService
}

func NewGameHandler(service *services.GameService) *GameHandler {
	return &GameHandler{service: service}
}

func (h *GameHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/sessions/{id}/levels/{level}/submissions", h.SubmitEmail).Methods("POST")
}

func (h *GameHandler) SubmitEmail(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	sessionID := vars["id"]
	level, err := strconv.Atoi(vars["level"])
	if err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, "Invalid level")
		return
	}

	var body SubmitEmailBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		log.Printf("[ERROR] Failed to decode submission JSON: %v", err)
		h.writeErrorResponse(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}

	if body.EmailText == "" {
		h.writeErrorResponse(w, http.StatusBadRequest, "email_text is required")
		return
	}

	log.Printf("[INFO] Received email submission for session %s level %d", sessionID, level)

	result, err := h.service.SubmitEmail(r.Context(), &services.SubmitEmailRequest{
		SessionID:  sessionID,
		Level:      level,
		PlayerName: body.PlayerName,
		EmailText:  body.EmailText,
	})
	if err != nil {
		if errors.Is(err, services.ErrScenarioNotFound) || isNotFound(err) {
			h.writeErrorResponse(w, http.StatusNotFound, err.Error())
			return
		}
		log.Printf("[ERROR] Email submission failed: %v", err)
		h.writeErrorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	log.Printf("[INFO] Email submission graded: level %d turn %d passed=%t",
		result.Level, result.TurnNumber, result.LevelPassed)
	h.writeJSONResponse(w, http.StatusOK, result)
}

func (h *GameHandler) writeJSONResponse(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

func (h *GameHandler) writeErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
