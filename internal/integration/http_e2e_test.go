//go:build integration || !unit

package integration

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doctor_reputation/internal/bootstrap"
	"doctor_reputation/internal/domain"
	"doctor_reputation/internal/shared"
)

// ---------- fake upstreams ----------

type upstream struct {
	mu   sync.Mutex
	hits map[string]int
}

func (u *upstream) count(prefix string) int {
	u.mu.Lock()
	defer u.mu.Unlock()
	n := 0
	for p, c := range u.hits {
		if strings.HasPrefix(p, prefix) {
			n += c
		}
	}
	return n
}

func (u *upstream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	u.mu.Lock()
	u.hits[r.URL.Path]++
	u.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.URL.Path == "/rms/best-doctors/":
		_, _ = io.WriteString(w, `{"total_pages": 1, "results": []}`)
	case r.URL.Path == "/rs-search/site_search":
		_, _ = io.WriteString(w, `{"contents": [
			{"id": 77, "title": "Dr. Kim Smith", "specialty": "Plastic Surgeon", "uri": "/dr/kim-smith",
			 "rating": 4.9, "review_count": 120, "city": "Austin", "state": "TX"},
			{"id": 78, "title": "Dr. Lee Smith", "specialty": "Dermatologist", "uri": "/dr/lee-smith",
			 "rating": 4.1, "review_count": 15, "city": "Dallas", "state": "TX"}
		]}`)
	case r.URL.Path == "/rs-api/reviews" && r.URL.Query().Get("provider_id") == "77":
		_, _ = io.WriteString(w, `{"total": 3, "reviews": [
			{"id": 1, "body": "Great result", "rating": 5, "created_at": "2022-05-01T00:00:00Z"},
			{"id": 2, "body": "Very happy", "rating": 4, "created_at": "2021-05-01T00:00:00Z"},
			{"id": 3, "body": "Not worth it", "rating": 1, "created_at": "2020-05-01T00:00:00Z"}
		]}`)
	case r.URL.Path == "/rs-api/reviews":
		_, _ = io.WriteString(w, `{"total": 0, "reviews": []}`)
	default:
		http.NotFound(w, r)
	}
}

type chatServer struct {
	mu    sync.Mutex
	calls int
}

func (c *chatServer) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func (c *chatServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	if r.URL.Path != "/chat/completions" || r.Header.Get("Authorization") != "Bearer test-key" {
		http.Error(w, `{"error":{"message":"bad request"}}`, http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = io.WriteString(w, `{"choices": [{"message": {"role": "assistant",
		"content": "KEY INSIGHTS:\n1. Natural results\n2. Clear aftercare\n\nPROFESSIONAL SUMMARY:\nPatients report consistent outcomes."}}]}`)
}

// ---------- harness ----------

type stack struct {
	api  *httptest.Server
	up   *upstream
	chat *chatServer
	mr   *miniredis.Miniredis
}

func newStack(t *testing.T) *stack {
	t.Helper()
	up := &upstream{hits: map[string]int{}}
	upSrv := httptest.NewServer(up)
	t.Cleanup(upSrv.Close)
	chat := &chatServer{}
	chatSrv := httptest.NewServer(chat)
	t.Cleanup(chatSrv.Close)
	mr := miniredis.RunT(t)

	cfg, err := shared.Load()
	require.NoError(t, err)
	cfg.MySQLDSN = ""
	cfg.RedisAddr = mr.Addr()
	cfg.FetchRPS = 1000
	cfg.FetchTimeout = 5 * time.Second
	cfg.RateMDsBaseURL = upSrv.URL + "/rms"
	cfg.RealSelfSearchURL = upSrv.URL + "/rs-search"
	cfg.RealSelfAPIURL = upSrv.URL + "/rs-api"
	cfg.RealSelfSiteURL = "https://www.realself.com"
	cfg.RealSelfImageURL = "https://www.realself.com"
	cfg.RealSelfPacing = 0
	cfg.IWGCBaseURL = upSrv.URL + "/iwgc"
	cfg.SummarizerProvider = "openai"
	cfg.SummarizerAPIKey = "test-key"
	cfg.SummarizerBaseURL = chatSrv.URL
	cfg.SummarizerTimeout = 5 * time.Second

	a, err := bootstrap.Build(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(a.Close)

	api := httptest.NewServer(a.Router(10 * time.Second))
	t.Cleanup(api.Close)
	return &stack{api: api, up: up, chat: chat, mr: mr}
}

func (s *stack) get(t *testing.T, path string) (int, domain.Response) {
	t.Helper()
	res, err := http.Get(s.api.URL + path)
	require.NoError(t, err)
	defer res.Body.Close()
	var out domain.Response
	require.NoError(t, json.NewDecoder(res.Body).Decode(&out))
	return res.StatusCode, out
}

// ---------- tests ----------

func TestE2E_SearchFallsBackAndIsServedFromCache(t *testing.T) {
	s := newStack(t)

	code, resp := s.get(t, "/v1/search?query=smith")
	require.Equal(t, http.StatusOK, code)
	assert.True(t, resp.Success)
	assert.Equal(t, "rs", resp.Source)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "Dr. Kim Smith", resp.Results[0].Name)
	assert.Equal(t, "https://www.realself.com/dr/kim-smith", resp.Results[0].ProfileURL)

	rms, rs := s.up.count("/rms/"), s.up.count("/rs-search/")
	assert.Equal(t, 1, rms)
	assert.Equal(t, 1, rs)
	assert.Zero(t, s.up.count("/iwgc"), "later sources are not consulted once one answers")
	assert.Len(t, s.mr.Keys(), 1)

	code, again := s.get(t, "/v1/search?query=Smith")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, resp, again)
	assert.Equal(t, rms, s.up.count("/rms/"), "a cache hit makes no upstream calls")
	assert.Equal(t, rs, s.up.count("/rs-search/"))
}

func TestE2E_ReportIsSynthesizedOnceThenCached(t *testing.T) {
	s := newStack(t)

	code, resp := s.get(t, "/v1/report?source=rs&identifier=77")
	require.Equal(t, http.StatusOK, code)
	require.NotNil(t, resp.Report)
	rep := resp.Report
	assert.Equal(t, "rs", rep.Source)
	assert.Equal(t, 3, rep.TotalReviews)
	assert.Equal(t, []string{"Natural results", "Clear aftercare"}, rep.Insights)
	assert.Equal(t, "Patients report consistent outcomes.", rep.Summary)
	require.NotNil(t, rep.NegativeHighlight)
	assert.Equal(t, "Not worth it", rep.NegativeHighlight.CommentText)
	assert.Equal(t, 1, s.chat.count())

	_, again := s.get(t, "/v1/report?source=rs&identifier=77")
	assert.Equal(t, resp, again)
	assert.Equal(t, 1, s.chat.count())
	assert.Equal(t, 1, s.up.count("/rs-api/reviews"))
}

func TestE2E_FailuresUseTheEnvelope(t *testing.T) {
	s := newStack(t)

	code, resp := s.get(t, "/v1/report?source=rs&identifier=12")
	assert.Equal(t, http.StatusNotFound, code)
	assert.False(t, resp.Success)
	assert.Equal(t, domain.KindNoResultsFound, resp.ErrorKind)

	code, resp = s.get(t, "/v1/report?source=rms&identifier=dr-gone")
	assert.Equal(t, http.StatusBadGateway, code)
	assert.Equal(t, domain.KindSourceUnavailable, resp.ErrorKind)

	code, resp = s.get(t, "/v1/report?source=nope&identifier=77")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, domain.KindInvalidSource, resp.ErrorKind)
	assert.Empty(t, s.mr.Keys())
}

func TestE2E_MetricsExposed(t *testing.T) {
	s := newStack(t)
	s.get(t, "/v1/search?query=smith")

	res, err := http.Get(s.api.URL + "/metrics")
	require.NoError(t, err)
	defer res.Body.Close()
	body, _ := io.ReadAll(res.Body)
	assert.Contains(t, string(body), "docrep_external_requests_total")
	assert.Contains(t, string(body), "docrep_cache_events_total")
}
