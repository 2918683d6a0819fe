package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/selivandex/news-pulse/internal/adapters/config"
	"github.com/selivandex/news-pulse/internal/dashboard"
	"github.com/selivandex/news-pulse/internal/explain"
	"github.com/selivandex/news-pulse/pkg/models"
)

type fakeExplainer struct {
	caller string
	req    explain.Request
	err    error
}

func (f *fakeExplainer) Explain(_ context.Context, callerID string, req explain.Request) (*models.Explanation, error) {
	f.caller = callerID
	f.req = req
	if f.err != nil {
		return nil, f.err
	}
	return &models.Explanation{Bullets: []string{"b"}, ShortTermImpact: "s", LongTermImpact: "l"}, nil
}

type fakeDashboard struct {
	category string
	cursor   string
	limit    int
	pulseErr error
}

func (f *fakeDashboard) ListArticles(_ context.Context, category, cursor string, limit int) (*dashboard.Page, error) {
	f.category, f.cursor, f.limit = category, cursor, limit
	if cursor == "bad" {
		return nil, dashboard.ErrInvalidCursor
	}
	return &dashboard.Page{Articles: []models.Article{{ID: "1"}}, NextCursor: "next"}, nil
}

func (f *fakeDashboard) TopTopics(_ context.Context, limit int) ([]models.TopicStat, error) {
	return []models.TopicStat{{Key: "rates", Topic: "Rates", Frequency: 3}}, nil
}

func (f *fakeDashboard) IPOHeat(context.Context) (*models.IPOHeat, error) {
	return &models.IPOHeat{Level: models.HeatMedium}, nil
}

func (f *fakeDashboard) MarketPulse(context.Context) (*models.MarketPulse, error) {
	if f.pulseErr != nil {
		return nil, f.pulseErr
	}
	return &models.MarketPulse{Score: 0.402, Label: models.PulseNeutral, BasedOnCount: 4}, nil
}

func newTestServer(ex *fakeExplainer, dash *fakeDashboard) *Server {
	return NewServer(&config.APIConfig{
		Port:   "0",
		Tokens: map[string]string{"alice": "secret-a", "bob": "secret-b"},
	}, ex, dash, NewHub())
}

func do(t *testing.T, h http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestExplainEndpoint(t *testing.T) {
	ex := &fakeExplainer{}
	h := newTestServer(ex, &fakeDashboard{}).Handler()

	rec := do(t, h, http.MethodPost, "/api/explain", "secret-b", `{"articleId":"42","textToExplain":"why"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "bob", ex.caller)
	assert.Equal(t, explain.Request{ArticleID: "42", TextToExplain: "why"}, ex.req)

	var got models.Explanation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, []string{"b"}, got.Bullets)
}

func TestExplainEndpointErrors(t *testing.T) {
	tests := []struct {
		name  string
		token string
		body  string
		err   error
		code  int
		kind  string
	}{
		{name: "no token", body: `{}`, code: http.StatusUnauthorized, kind: "unauthenticated"},
		{name: "wrong token", token: "nope", body: `{}`, code: http.StatusUnauthorized, kind: "unauthenticated"},
		{name: "malformed body", token: "secret-a", body: `{`, code: http.StatusBadRequest, kind: "invalid_argument"},
		{
			name: "invalid argument", token: "secret-a", body: `{}`,
			err:  &explain.Error{Kind: explain.InvalidArgument, Message: "unknown article"},
			code: http.StatusBadRequest, kind: "invalid_argument",
		},
		{
			name: "internal", token: "secret-a", body: `{"articleId":"1","textToExplain":"x"}`,
			err:  &explain.Error{Kind: explain.Internal, Message: "failed", Err: errors.New("quota exceeded")},
			code: http.StatusInternalServerError, kind: "internal",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestServer(&fakeExplainer{err: tt.err}, &fakeDashboard{}).Handler()
			rec := do(t, h, http.MethodPost, "/api/explain", tt.token, tt.body)
			assert.Equal(t, tt.code, rec.Code)

			var resp errorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.kind, resp.Error)
			assert.NotContains(t, resp.Message, "quota")
		})
	}
}

func TestDashboardEndpoints(t *testing.T) {
	dash := &fakeDashboard{}
	h := newTestServer(&fakeExplainer{}, dash).Handler()

	rec := do(t, h, http.MethodGet, "/api/articles?category=crypto&cursor=abc&limit=20", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "crypto", dash.category)
	assert.Equal(t, "abc", dash.cursor)
	assert.Equal(t, 20, dash.limit)
	assert.Contains(t, rec.Body.String(), `"nextCursor":"next"`)

	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/api/articles?cursor=bad", "", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/api/articles?limit=ten", "", "").Code)

	rec = do(t, h, http.MethodGet, "/api/topics", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"id":"rates"`)

	rec = do(t, h, http.MethodGet, "/api/ipo-heat", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"level":"Medium"`)

	rec = do(t, h, http.MethodGet, "/api/pulse", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"label":"Neutral"`)

	assert.Equal(t, http.StatusMethodNotAllowed, do(t, h, http.MethodGet, "/api/explain", "", "").Code)
}

func TestPulseNotComputedYet(t *testing.T) {
	h := newTestServer(&fakeExplainer{}, &fakeDashboard{pulseErr: dashboard.ErrNoPulse}).Handler()
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/api/pulse", "", "").Code)
}

func TestAuthenticatorIdentify(t *testing.T) {
	a := NewAuthenticator(map[string]string{"alice": "t1"})
	assert.Equal(t, "alice", a.Identify("t1"))
	assert.Empty(t, a.Identify("t2"))
	assert.Empty(t, a.Identify(""))
}

func TestStreamBroadcastsCommittedRuns(t *testing.T) {
	hub := NewHub()
	s := newTestServer(&fakeExplainer{}, &fakeDashboard{})
	s.hub = hub
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/api/stream", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, hub.OnRunCommitted(context.Background(), &models.RunReport{RunID: "run-7", Enriched: 2}))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var event StreamEvent
	require.NoError(t, conn.ReadJSON(&event))
	assert.Equal(t, "run_committed", event.Type)
	assert.Equal(t, "run-7", event.Report.RunID)

	hub.Close()
	assert.Equal(t, 0, hub.Clients())
}
