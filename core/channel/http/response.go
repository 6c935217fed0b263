package http

import (
	"encoding/json"
	"net/http"

	"github.com/artpar/anvil/core/record"
	"github.com/artpar/anvil/core/runtime"
)

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeResult(w http.ResponseWriter, status int, result runtime.Result[record.Record]) {
	writeJSON(w, status, result)
}
