package http

import (
	"bufio"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/square/go-jose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/hkdf"

	"github.com/ndegwamoche/budget-tracker/internal/core"
	"github.com/ndegwamoche/budget-tracker/internal/services"
	"github.com/ndegwamoche/budget-tracker/internal/session"
	"github.com/ndegwamoche/budget-tracker/internal/store/memory"
)

const testSecret = "server-test-secret"

func sessionToken(t *testing.T, userID string) string {
	t.Helper()

	info := []byte("NextAuth.js Generated Encryption Key")
	h := hkdf.New(sha256.New, []byte(testSecret), nil, info)
	key := make([]byte, 32)
	_, err := io.ReadFull(h, key)
	require.NoError(t, err)

	enc, err := jose.NewEncrypter(jose.A256GCM,
		jose.Recipient{Algorithm: jose.DIRECT, Key: key}, nil)
	require.NoError(t, err)

	claims, err := json.Marshal(map[string]interface{}{
		"sub": userID,
		"exp": float64(time.Now().Add(time.Hour).Unix()),
	})
	require.NoError(t, err)

	obj, err := enc.Encrypt(claims)
	require.NoError(t, err)
	token, err := obj.CompactSerialize()
	require.NoError(t, err)
	return token
}

type testEnv struct {
	server *Server
	store  *memory.Store
	token  string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st := memory.New()
	verifier, err := session.NewVerifier(testSecret, nil)
	require.NoError(t, err)

	s := NewServer(Options{
		Addr:       "127.0.0.1:0",
		Records:    services.NewRecordService(st, nil),
		Categories: services.NewCategoryService(st),
		Reports:    services.NewReportService(st, st, 8),
		Watcher:    st,
		Verifier:   verifier,
	})
	t.Cleanup(func() { s.Shutdown(context.Background()) })

	return &testEnv{server: s, store: st, token: sessionToken(t, "u1")}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Authorization", "Bearer "+e.token)
	rec := httptest.NewRecorder()
	e.server.Server.Handler.ServeHTTP(rec, req)
	return rec
}

func TestRequestsWithoutSessionAreRejected(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest("GET", "/api/overview", nil)
	rec := httptest.NewRecorder()
	env.server.Server.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHealthEndpointsNeedNoSession(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		req := httptest.NewRequest("GET", path, nil)
		rec := httptest.NewRecorder()
		env.server.Server.Handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestReadyReportsStoreFailure(t *testing.T) {
	st := memory.New()
	verifier, err := session.NewVerifier(testSecret, nil)
	require.NoError(t, err)

	s := NewServer(Options{
		Records:    services.NewRecordService(st, nil),
		Categories: services.NewCategoryService(st),
		Reports:    services.NewReportService(st, st, 8),
		Watcher:    st,
		Verifier:   verifier,
		Ready: func(context.Context) error {
			return errors.New("store unreachable")
		},
	})
	defer s.Shutdown(context.Background())

	req := httptest.NewRequest("GET", "/readyz", nil)
	rec := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRecordLifecycle(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, "POST", "/api/records", services.RecordInput{
		Amount:     "12.50",
		CategoryID: "cat1",
		Note:       "lunch",
		OccurredOn: "2026-01-15",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created recordView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, int64(1250), created.AmountCents)
	assert.Equal(t, "12.50", created.Amount)

	rec = env.do(t, "GET", "/api/records/"+created.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, "PUT", "/api/records/"+created.ID, services.RecordInput{
		Amount:     "20",
		CategoryID: "cat1",
		OccurredOn: "2026-01-15",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, "GET", "/api/records?year=2026&month=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Records []recordView `json:"records"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Records, 1)
	assert.Equal(t, int64(2000), list.Records[0].AmountCents)

	rec = env.do(t, "DELETE", "/api/records/"+created.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, "GET", "/api/records/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateRecordRejectsBadPayload(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, "POST", "/api/records", services.RecordInput{
		Amount:     "not-a-number",
		CategoryID: "cat1",
		OccurredOn: "2026-01-15",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest("POST", "/api/records", strings.NewReader("{broken"))
	req.Header.Set("Authorization", "Bearer "+env.token)
	raw := httptest.NewRecorder()
	env.server.Server.Handler.ServeHTTP(raw, req)
	assert.Equal(t, http.StatusBadRequest, raw.Code)
}

func TestOverviewAggregates(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	groceries, err := env.store.CreateCategory(ctx, core.Category{OwnerID: "u1", Name: "Groceries"})
	require.NoError(t, err)

	for _, c := range []struct {
		cents int64
		day   core.Day
	}{
		{12000, core.NewDay(2026, 1, 5)},
		{4550, core.NewDay(2026, 1, 12)},
		{20000, core.NewDay(2025, 12, 3)},
	} {
		_, err := env.store.CreateRecord(ctx, core.Record{
			OwnerID: "u1", Amount: core.Money{Cents: c.cents},
			CategoryID: groceries.ID, OccurredOn: c.day,
		})
		require.NoError(t, err)
	}

	rec := env.do(t, "GET", "/api/overview?year=2026&month=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var ov overviewView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ov))
	assert.Equal(t, "2026-01", ov.Month)
	assert.Equal(t, "January 2026", ov.Label)
	assert.Equal(t, int64(16550), ov.TotalCents)
	require.Len(t, ov.ByCategory, 1)
	assert.Equal(t, "Groceries", ov.ByCategory[0].Name)
	assert.Equal(t, float64(100), ov.ByCategory[0].Share)
	assert.Equal(t, int64(-3450), ov.Change.DeltaCents)
	require.Len(t, ov.Recent, 2)
}

func TestOverviewForOtherOwnerIsEmpty(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.store.CreateRecord(ctx, core.Record{
		OwnerID: "someone-else", Amount: core.Money{Cents: 5000},
		CategoryID: "c", OccurredOn: core.NewDay(2026, 1, 5),
	})
	require.NoError(t, err)

	rec := env.do(t, "GET", "/api/overview?year=2026&month=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var ov overviewView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ov))
	assert.Zero(t, ov.TotalCents)
	assert.Empty(t, ov.ByCategory)
}

func TestCategoryLifecycle(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, "POST", "/api/categories", services.CategoryInput{Name: "Groceries"})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created categoryView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = env.do(t, "PUT", "/api/categories/"+created.ID, services.CategoryInput{Name: "Food"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, "GET", "/api/categories", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Categories []categoryView `json:"categories"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Categories, 1)
	assert.Equal(t, "Food", list.Categories[0].Name)

	rec = env.do(t, "DELETE", "/api/categories/"+created.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, "POST", "/api/categories", services.CategoryInput{Name: "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReportXLSXDownload(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, "GET", "/api/report.xlsx?year=2026", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "spending-report-2026.xlsx")
	assert.NotZero(t, rec.Body.Len())
}

func TestEventsStreamDeliversSnapshots(t *testing.T) {
	env := newTestEnv(t)

	ts := httptest.NewServer(env.server.Server.Handler)
	defer ts.Close()

	req, err := http.NewRequest("GET", ts.URL+"/api/events?year=2026&month=1", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+env.token)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")

	scanner := bufio.NewScanner(resp.Body)
	readEvent := func() overviewView {
		t.Helper()
		var ov overviewView
		for scanner.Scan() {
			line := scanner.Text()
			if strings.HasPrefix(line, "data: ") {
				require.NoError(t, json.Unmarshal(
					[]byte(strings.TrimPrefix(line, "data: ")), &ov))
				return ov
			}
		}
		t.Fatal("stream ended before an event arrived")
		return ov
	}

	first := readEvent()
	assert.Zero(t, first.TotalCents)

	_, err = env.store.CreateRecord(context.Background(), core.Record{
		OwnerID: "u1", Amount: core.Money{Cents: 700},
		CategoryID: "c", OccurredOn: core.NewDay(2026, 1, 10),
	})
	require.NoError(t, err)

	second := readEvent()
	assert.Equal(t, int64(700), second.TotalCents)
}

// deadlineRecorder records whether a handler lifted the write deadline.
type deadlineRecorder struct {
	*httptest.ResponseRecorder
	cleared bool
}

func (d *deadlineRecorder) SetWriteDeadline(deadline time.Time) error {
	if deadline.IsZero() {
		d.cleared = true
	}
	return nil
}

// The server runs with a WriteTimeout; the events stream must clear the
// per-connection deadline or it gets severed shortly after opening and
// later snapshots never reach the client.
func TestEventsStreamClearsWriteDeadline(t *testing.T) {
	env := newTestEnv(t)

	ctx, cancel := context.WithCancel(context.Background())
	timer := time.AfterFunc(100*time.Millisecond, cancel)
	defer timer.Stop()

	req := httptest.NewRequest("GET", "/api/events?year=2026&month=1", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer "+env.token)

	rec := &deadlineRecorder{ResponseRecorder: httptest.NewRecorder()}
	env.server.Server.Handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, rec.cleared, "write deadline should be lifted for the stream")
}
