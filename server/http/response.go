package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/w-h-a/ragchat/provider"
)

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorBody{Error: message})
}

// writeDomainError maps the engine's error taxonomy onto status codes:
// configuration errors are the caller's fault, auth failures get 401, and
// provider outages get 503 so clients can retry later.
func writeDomainError(w http.ResponseWriter, err error) {
	var cfgErr *provider.ConfigError
	if errors.As(err, &cfgErr) {
		writeError(w, http.StatusBadRequest, cfgErr.Error())
		return
	}

	var genErr *provider.GenerationError
	if errors.As(err, &genErr) {
		switch genErr.Kind {
		case provider.KindAuth:
			writeError(w, http.StatusUnauthorized, genErr.Error())
		case provider.KindUnavailable:
			writeError(w, http.StatusServiceUnavailable, genErr.Error())
		default:
			writeError(w, http.StatusInternalServerError, genErr.Error())
		}
		return
	}

	writeError(w, http.StatusInternalServerError, err.Error())
}
