package httpapi

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"relaygate.dev/internal/cacheutil"
	"relaygate.dev/internal/chk"
	"relaygate.dev/internal/filter"
	"relaygate.dev/internal/logger"
	"relaygate.dev/internal/metrics"
	"relaygate.dev/internal/nostrevent"
	"relaygate.dev/internal/publish"
	"relaygate.dev/internal/relay"
)

// Gateway holds the collaborators every handler needs.
type Gateway struct {
	Cache    cacheutil.Cache
	Queue    publish.Queue
	RelayURL string
}

// resolveRead serves a canonical filter byte sequence from cache if warm,
// otherwise runs a relay driver invocation and writes the result back.
func (g *Gateway) resolveRead(ctx context.Context, canonical []byte) (*ReadResponse, int, error) {
	key := filter.Fingerprint(canonical)
	ttl := filter.TTLSeconds(canonical)

	if filter.IsSingleEventLookup(canonical) {
		logger.T.F("single-event lookup shape for key %s", key)
	}

	entry, age, found, err := g.Cache.GetQuery(key)
	if err != nil {
		// A KV get failure is treated as a miss-equivalent on the read
		// path: fall through to the relay rather than surface an error.
		chk.E(err)
		found = false
	}

	if found {
		metrics.CacheHits.Inc()
		ageCopy := age
		return &ReadResponse{
			Events: entry.Events, EOSE: entry.EOSE, Complete: entry.EOSE,
			Cached: true, CacheAgeSeconds: &ageCopy,
		}, ttl, nil
	}

	metrics.CacheMisses.Inc()
	result, err := relay.Run(ctx, g.RelayURL, canonical)
	if err != nil {
		return nil, ttl, err
	}

	newEntry := &cacheutil.Entry{Events: result.Events, EOSE: result.EOSE()}
	chk.E(g.Cache.PutQuery(key, newEntry, ttl))

	return &ReadResponse{
		Events: result.Events, EOSE: result.EOSE(), Complete: result.EOSE(),
		Cached: false,
	}, ttl, nil
}

func setCacheControl(w http.ResponseWriter, ttlSeconds int) {
	w.Header().Set(
		"Cache-Control",
		fmt.Sprintf("public, max-age=%d, s-maxage=%d", ttlSeconds, ttlSeconds),
	)
}

func (g *Gateway) handleQuery(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("filter")
	if raw == "" {
		writeError(w, http.StatusBadRequest, "invalid_filter", "missing filter parameter")
		return
	}
	canonical, err := filter.DecodeQueryParam(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_filter", "invalid base64url encoding")
		return
	}
	g.serveRead(w, r, canonical)
}

func (g *Gateway) handleProfile(w http.ResponseWriter, r *http.Request, pubkey string) {
	canonical := []byte(`{"authors":["` + pubkey + `"],"kinds":[0],"limit":1}`)
	g.serveRead(w, r, canonical)
}

func (g *Gateway) handleEvent(w http.ResponseWriter, r *http.Request, id string) {
	canonical := []byte(`{"ids":["` + id + `"],"limit":1}`)
	g.serveRead(w, r, canonical)
}

func (g *Gateway) serveRead(w http.ResponseWriter, r *http.Request, canonical []byte) {
	resp, ttl, err := g.resolveRead(r.Context(), canonical)
	if err != nil {
		chk.E(err)
		writeError(w, http.StatusInternalServerError, "relay_unavailable", err.Error())
		return
	}
	setCacheControl(w, ttl)
	writeJSON(w, http.StatusOK, resp)
}

func (g *Gateway) handlePublish(w http.ResponseWriter, r *http.Request) {
	requestURL := externalURL(r)
	_, rejErr := validateRequest(r, requestURL)
	if rejErr != nil {
		writeError(w, http.StatusUnauthorized, "auth_failed", rejErr.Error())
		return
	}

	body, err := readBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}

	if err := g.Queue.Enqueue(r.Context(), body); err != nil {
		chk.E(err)
		writeError(w, http.StatusInternalServerError, "enqueue_failed", err.Error())
		return
	}

	eventID := nostrevent.ExtractID(body)
	chk.E(g.Cache.SetStatus(eventID, &cacheutil.PublishStatus{Status: "queued"}))

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

func (g *Gateway) handlePublishStatus(w http.ResponseWriter, r *http.Request, id string) {
	status, found, err := g.Cache.GetStatus(id)
	if err != nil {
		chk.E(err)
		writeError(w, http.StatusInternalServerError, "cache_unavailable", err.Error())
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "not_found", "no status for event_id")
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "not_found", "endpoint not found")
}

const landingPage = `<!doctype html><html><head><title>relaygate</title></head>` +
	`<body><h1>relaygate</h1><p>REST caching gateway for a Nostr relay.</p></body></html>`

func handleLanding(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(landingPage))
}

func externalURL(r *http.Request) string {
	scheme := "https"
	if r.TLS == nil {
		scheme = "http"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	return scheme + "://" + r.Host + r.URL.RequestURI()
}

func readBody(r *http.Request) ([]byte, error) {
	defer r.Body.Close()
	return io.ReadAll(io.LimitReader(r.Body, 1<<20))
}
