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

type ScenarioHandler struct {
	service *services.ScenarioService
}

func NewScenarioHandler(service *services.ScenarioService) *ScenarioHandler {
	return &ScenarioHandler{service: service}
}

func (h *ScenarioHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/scenarios", h.ListScenarios).Methods("GET")
	router.HandleFunc("/scenarios/{id}", h.GetScenario).Methods("GET")
	router.HandleFunc("/levels/{level}/scenario", h.GetLevelScenario).Methods("GET")
}

func (h *ScenarioHandler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	scenarios, err := h.service.ListScenarios()
	if err != nil {
		log.Printf("[ERROR] Failed to list scenarios: %v", err)
		h.writeErrorResponse(w, http.StatusInternalServerError, "Failed to list scenarios")
		return
	}

	h.writeJSONResponse(w, http.StatusOK, scenarios)
}

func (h *ScenarioHandler) GetScenario(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id := vars["id"]

	scenario, err := h.service.LoadScenario(id)
	if err != nil {
		if errors.Is(err, services.ErrScenarioNotFound) {
			h.writeErrorResponse(w, http.StatusNotFound, err.Error())
			return
		}
		log.Printf("[ERROR] Failed to load scenario %s: %v", id, err)
		h.writeErrorResponse(w, http.StatusInternalServerError, "Failed to load scenario")
		return
	}

	h.writeJSONResponse(w, http.StatusOK, scenario)
}

func (h *ScenarioHandler) GetLevelScenario(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	level, err := strconv.Atoi(vars["level"])
	if err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, "Invalid level")
		return
	}

	scenario, err := h.service.ScenarioForLevel(level)
	if err != nil {
		if errors.Is(err, services.ErrScenarioNotFound) {
			h.writeErrorResponse(w, http.StatusNotFound, err.Error())
			return
		}
		log.Printf("[ERROR] Failed to load scenario for level %d: %v", level, err)
		h.writeErrorResponse(w, http.StatusInternalServerError, "Failed to load scenario")
		return
	}

	h.writeJSONResponse(w, http.StatusOK, scenario)
}

func (h *ScenarioHandler) writeJSONResponse(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

func (h *ScenarioHandler) writeErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
