// Package httpapi is the thin HTTP demultiplexer that feeds the filter,
// cache, relay driver, and publish worker components. It owns only
// routing and JSON envelope encoding; every substantive decision is made
// by the packages it calls into.
package httpapi

import (
	"encoding/json"
	"net/http"

	"relaygate.dev/internal/chk"
)

// ReadResponse is the read-path response envelope.
type ReadResponse struct {
	Events          []json.RawMessage `json:"events"`
	EOSE            bool              `json:"eose"`
	Complete        bool              `json:"complete"`
	Cached          bool              `json:"cached"`
	CacheAgeSeconds *int64            `json:"cache_age_seconds,omitempty"`
}

// errorBody is the shared {error, detail} rendering contract every error
// taxonomy in this project (filter, auth, cache, relay) maps onto.
type errorBody struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	chk.E(json.NewEncoder(w).Encode(v))
}

func writeError(w http.ResponseWriter, status int, kind, detail string) {
	writeJSON(w, status, errorBody{Error: kind, Detail: detail})
}
