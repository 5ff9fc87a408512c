package httpapi

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/schnorr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relaygate.dev/internal/cacheutil"
	"relaygate.dev/internal/filter"
	"relaygate.dev/internal/nostrevent"
	"relaygate.dev/internal/publish"
)

func signedAuthHeader(t *testing.T, method, url string) string {
	t.Helper()
	priv, err := secp256k1.GeneratePrivateKey()
	require.NoError(t, err)

	env := &nostrevent.AuthEnvelope{
		Pubkey:    hex.EncodeToString(schnorr.SerializePubKey(priv.PubKey())),
		CreatedAt: time.Now().Unix(),
		Kind:      27235,
		Tags:      [][]string{{"u", url}, {"method", method}},
	}
	id, err := nostrevent.ComputedID(env)
	require.NoError(t, err)
	env.ID = id

	idBytes, err := hex.DecodeString(id)
	require.NoError(t, err)
	sig, err := schnorr.Sign(priv, idBytes)
	require.NoError(t, err)
	env.Sig = hex.EncodeToString(sig.Serialize())

	raw, err := json.Marshal(env)
	require.NoError(t, err)
	return "Nostr " + base64.StdEncoding.EncodeToString(raw)
}

type stubCache struct {
	queries  map[string]*cacheutil.Entry
	statuses map[string]*cacheutil.PublishStatus
}

func newStubCache() *stubCache {
	return &stubCache{
		queries:  map[string]*cacheutil.Entry{},
		statuses: map[string]*cacheutil.PublishStatus{},
	}
}

func (s *stubCache) GetQuery(key string) (*cacheutil.Entry, int64, bool, error) {
	e, ok := s.queries[key]
	if !ok {
		return nil, 0, false, nil
	}
	return e, 5, true, nil
}
func (s *stubCache) PutQuery(key string, e *cacheutil.Entry, ttl int) error {
	s.queries[key] = e
	return nil
}
func (s *stubCache) Close() error { return nil }
func (s *stubCache) GetStatus(id string) (*cacheutil.PublishStatus, bool, error) {
	st, ok := s.statuses[id]
	return st, ok, nil
}
func (s *stubCache) SetStatus(id string, st *cacheutil.PublishStatus) error {
	s.statuses[id] = st
	return nil
}

type stubQueue struct {
	enqueued [][]byte
	failNext bool
}

func (q *stubQueue) Enqueue(_ context.Context, raw []byte) error {
	if q.failNext {
		return assert.AnError
	}
	q.enqueued = append(q.enqueued, raw)
	return nil
}
func (q *stubQueue) Dequeue(context.Context) (*publish.Message, error) { return nil, nil }
func (q *stubQueue) Ack(context.Context, *publish.Message) error       { return nil }
func (q *stubQueue) Retry(context.Context, *publish.Message) error     { return nil }

func TestHandleQueryMissingFilter(t *testing.T) {
	g := &Gateway{Cache: newStubCache()}
	req := httptest.NewRequest(http.MethodGet, "/query", nil)
	w := httptest.NewRecorder()
	g.handleQuery(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var body errorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "invalid_filter", body.Error)
	assert.Equal(t, "missing filter parameter", body.Detail)
}

func TestUnknownRouteIs404(t *testing.T) {
	g := &Gateway{Cache: newStubCache()}
	router := NewRouter(g)
	req := httptest.NewRequest(http.MethodGet, "/foo/bar", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	var body errorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "not_found", body.Error)
}

func TestQueryCacheWarmOnSecondRequest(t *testing.T) {
	srv := fakeRelayServer(
		t, func(ctx context.Context, c *websocket.Conn) {
			c.Write(ctx, websocket.MessageText, []byte(`["EVENT","s",{"id":"a"}]`))
			c.Write(ctx, websocket.MessageText, []byte(`["EOSE","s"]`))
			time.Sleep(20 * time.Millisecond)
		},
	)

	g := &Gateway{Cache: newStubCache(), RelayURL: wsURL(srv)}
	raw := filter.EncodeQueryParam([]byte(`{"kinds":[0],"limit":1}`))

	req1 := httptest.NewRequest(http.MethodGet, "/query?filter="+url.QueryEscape(raw), nil)
	w1 := httptest.NewRecorder()
	g.handleQuery(w1, req1)
	require.Equal(t, http.StatusOK, w1.Code)
	var resp1 ReadResponse
	require.NoError(t, json.Unmarshal(w1.Body.Bytes(), &resp1))
	assert.False(t, resp1.Cached)

	req2 := httptest.NewRequest(http.MethodGet, "/query?filter="+url.QueryEscape(raw), nil)
	w2 := httptest.NewRecorder()
	g.handleQuery(w2, req2)
	require.Equal(t, http.StatusOK, w2.Code)
	var resp2 ReadResponse
	require.NoError(t, json.Unmarshal(w2.Body.Bytes(), &resp2))
	assert.True(t, resp2.Cached)
	require.NotNil(t, resp2.CacheAgeSeconds)
	assert.GreaterOrEqual(t, *resp2.CacheAgeSeconds, int64(0))
	assert.Equal(t, resp1.Events, resp2.Events)
}

func TestPublishWithoutHeaderIsAuthFailed(t *testing.T) {
	g := &Gateway{Cache: newStubCache()}
	req := httptest.NewRequest(http.MethodPost, "/publish", nil)
	w := httptest.NewRecorder()
	g.handlePublish(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	var body errorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "auth_failed", body.Error)
}

func TestPublishWithBearerTokenIsAuthFailed(t *testing.T) {
	g := &Gateway{Cache: newStubCache()}
	req := httptest.NewRequest(http.MethodPost, "/publish", nil)
	req.Header.Set("Authorization", "Bearer x")
	w := httptest.NewRecorder()
	g.handlePublish(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPublishEnqueuesAndReturns202(t *testing.T) {
	g := &Gateway{Cache: newStubCache(), Queue: &stubQueue{}}

	body := []byte(`{"id":"deadbeef","pubkey":"ab","created_at":1,"kind":1,"tags":[],"content":"hi","sig":"cd"}`)
	req := httptest.NewRequest(http.MethodPost, "/publish", bytes.NewReader(body))
	req.Header.Set("Authorization", signedAuthHeader(t, http.MethodPost, externalURL(req)))
	w := httptest.NewRecorder()
	g.handlePublish(w, req)

	assert.Equal(t, http.StatusAccepted, w.Code)
	status, found, _ := g.Cache.GetStatus("deadbeef")
	require.True(t, found)
	assert.Equal(t, "queued", status.Status)
}

func TestPublishEnqueueFailureIs500NotAccepted(t *testing.T) {
	g := &Gateway{Cache: newStubCache(), Queue: &stubQueue{failNext: true}}

	body := []byte(`{"id":"deadbeef"}`)
	req := httptest.NewRequest(http.MethodPost, "/publish", bytes.NewReader(body))
	req.Header.Set("Authorization", signedAuthHeader(t, http.MethodPost, externalURL(req)))
	w := httptest.NewRecorder()
	g.handlePublish(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func fakeRelayServer(t *testing.T, script func(ctx context.Context, c *websocket.Conn)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(
		http.HandlerFunc(
			func(w http.ResponseWriter, r *http.Request) {
				c, err := websocket.Accept(w, r, nil)
				require.NoError(t, err)
				defer c.Close(websocket.StatusNormalClosure, "")
				script(r.Context(), c)
			},
		),
	)
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server) string { return "ws" + srv.URL[len("http"):] }
