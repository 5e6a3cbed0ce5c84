// internal/server/handlers/respond.go

package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"legisdash/internal/domain/dataset"
	"legisdash/internal/logging"
	"legisdash/internal/service/dashboard"
)

// Helper for JSON responses
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("Failed to marshal response"))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

// Helper for error responses
func respondWithError(w http.ResponseWriter, log logging.Logger, code int, message string, err error) {
	response := map[string]string{"error": message}

	if err != nil && code >= 500 {
		log.WithError(err).WithField("code", code).Error(message)
	}

	jsonResponse, _ := json.Marshal(response)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(jsonResponse)
}

// respondWithServiceError maps dashboard errors to status codes
func respondWithServiceError(w http.ResponseWriter, log logging.Logger, err error) {
	var loadErr *dataset.LoadError
	var colErr *dataset.InvalidColumnError

	switch {
	case errors.As(err, &loadErr):
		respondWithError(w, log, http.StatusUnprocessableEntity, "Erro ao carregar o arquivo CSV: "+err.Error(), nil)
	case errors.As(err, &colErr):
		respondWithError(w, log, http.StatusBadRequest, colErr.Error(), nil)
	case errors.Is(err, dataset.ErrNegativeLimit):
		respondWithError(w, log, http.StatusBadRequest, err.Error(), nil)
	case errors.Is(err, dataset.ErrNotFound):
		respondWithError(w, log, http.StatusNotFound, "Dataset not found", nil)
	case errors.Is(err, dashboard.ErrStoreUnavailable), errors.Is(err, dashboard.ErrLookupUnavailable):
		respondWithError(w, log, http.StatusServiceUnavailable, err.Error(), nil)
	case errors.Is(err, dashboard.ErrNoHandles):
		respondWithError(w, log, http.StatusUnprocessableEntity, err.Error(), nil)
	default:
		respondWithError(w, log, http.StatusInternalServerError, "Internal error", err)
	}
}
