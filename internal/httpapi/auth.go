package httpapi

import (
	"net/http"
	"time"

	"relaygate.dev/internal/authnip98"
	"relaygate.dev/internal/nostrevent"
)

// validateRequest adapts authnip98.Validate's typed *Error to a plain
// error so handlers don't need to import authnip98 themselves.
func validateRequest(r *http.Request, requestURL string) (*nostrevent.AuthEnvelope, error) {
	env, rejErr := authnip98.Validate(r, requestURL, time.Now())
	if rejErr != nil {
		return nil, rejErr
	}
	return env, nil
}
