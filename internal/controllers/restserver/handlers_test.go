package restserver

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap/zaptest"

	"github.com/khlaifiabilel/dem4water/internal/catalog"
	"github.com/khlaifiabilel/dem4water/internal/report"
	"github.com/khlaifiabilel/dem4water/pkg/config"
	"github.com/khlaifiabilel/dem4water/pkg/migrate"
)

type fakeStore struct {
	runs    []catalog.Run
	windows map[string][]catalog.WindowRow
	schema  migrate.Status
	err     error
}

func (f *fakeStore) SaveRun(ctx context.Context, run *catalog.Run, windows []catalog.WindowRow) error {
	f.runs = append(f.runs, *run)
	return nil
}

func (f *fakeStore) ListRuns(ctx context.Context, limit int) ([]catalog.Run, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.runs[:min(limit, len(f.runs))], nil
}

func (f *fakeStore) GetRun(ctx context.Context, id string) (*catalog.Run, error) {
	for i := range f.runs {
		if f.runs[i].ID == id {
			return &f.runs[i], nil
		}
	}
	return nil, catalog.ErrNotFound
}

func (f *fakeStore) Windows(ctx context.Context, runID string) ([]catalog.WindowRow, error) {
	return f.windows[runID], nil
}

func (f *fakeStore) LatestForDam(ctx context.Context, damID string) (*catalog.Run, error) {
	for i := range f.runs {
		if f.runs[i].DamID == damID {
			return &f.runs[i], nil
		}
	}
	return nil, catalog.ErrNotFound
}

func (f *fakeStore) Schema(ctx context.Context) (migrate.Status, error) {
	if f.err != nil {
		return migrate.Status{}, f.err
	}
	return f.schema, nil
}

func (f *fakeStore) Close() error { return nil }

func newTestStore() *fakeStore {
	created := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	return &fakeStore{
		runs: []catalog.Run{
			{ID: "run-2", DamID: "7", DamName: "Lac", DamElevation: 240, Mode: "hybrid", Z0: 230, S0: 1000, Alpha: 800, Beta: 1.6, CreatedAt: created},
			{ID: "run-1", DamID: "7", DamName: "Lac", DamElevation: 240, Mode: "absolute", Z0: 229, CreatedAt: created.Add(-time.Hour)},
		},
		windows: map[string][]catalog.WindowRow{
			"run-2": {{RunID: "run-2", Idx: 0, StartIndex: 10, EndIndex: 21, MAE: 3.5}},
		},
		schema: migrate.Status{Current: 2, Latest: 2, Pending: []migrate.Migration{}},
	}
}

func newTestRouter(t *testing.T, store catalog.Store) http.Handler {
	t.Helper()
	var wg sync.WaitGroup
	c := NewController(context.Background(), &wg, store, config.ServerData{}, zaptest.NewLogger(t).Sugar())
	return c.Router()
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestNewControllerDefaults(t *testing.T) {
	var wg sync.WaitGroup
	c := NewController(context.Background(), &wg, newTestStore(), config.ServerData{}, zaptest.NewLogger(t).Sugar())
	assert.Equal(t, "0.0.0.0:8080", c.Server.Addr)

	c = NewController(context.Background(), &wg, newTestStore(), config.ServerData{ListenAddr: "127.0.0.1", Port: 9090}, zaptest.NewLogger(t).Sugar())
	assert.Equal(t, "127.0.0.1:9090", c.Server.Addr)
}

func TestListRuns(t *testing.T) {
	h := newTestRouter(t, newTestStore())

	tests := []struct {
		name   string
		path   string
		status int
		count  int
	}{
		{"default limit", "/api/runs", http.StatusOK, 2},
		{"limit", "/api/runs?limit=1", http.StatusOK, 1},
		{"bad limit", "/api/runs?limit=abc", http.StatusBadRequest, 0},
		{"zero limit", "/api/runs?limit=0", http.StatusBadRequest, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, h, tt.path)
			require.Equal(t, tt.status, rec.Code)
			if tt.status != http.StatusOK {
				return
			}
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			var runs []catalog.Run
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &runs))
			assert.Len(t, runs, tt.count)
			assert.Equal(t, "run-2", runs[0].ID)
		})
	}
}

func TestListRunsEmptyAndFailing(t *testing.T) {
	rec := get(t, newTestRouter(t, &fakeStore{}), "/api/runs")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())

	rec = get(t, newTestRouter(t, &fakeStore{err: errors.New("disk gone")}), "/api/runs")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestGetRun(t *testing.T) {
	h := newTestRouter(t, newTestStore())

	rec := get(t, h, "/api/runs/run-1")
	require.Equal(t, http.StatusOK, rec.Code)
	var run catalog.Run
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &run))
	assert.Equal(t, "absolute", run.Mode)

	assert.Equal(t, http.StatusNotFound, get(t, h, "/api/runs/nope").Code)
}

func TestGetRunWindows(t *testing.T) {
	h := newTestRouter(t, newTestStore())

	rec := get(t, h, "/api/runs/run-2/windows")
	require.Equal(t, http.StatusOK, rec.Code)
	var windows []catalog.WindowRow
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &windows))
	require.Len(t, windows, 1)
	assert.Equal(t, 3.5, windows[0].MAE)

	rec = get(t, h, "/api/runs/run-1/windows")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())

	assert.Equal(t, http.StatusNotFound, get(t, h, "/api/runs/nope/windows").Code)
}

func TestGetDamModel(t *testing.T) {
	h := newTestRouter(t, newTestStore())

	rec := get(t, h, "/api/dams/7/model")
	require.Equal(t, http.StatusOK, rec.Code)
	var doc report.ModelDocument
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Equal(t, "7", doc.ID)
	assert.Equal(t, "Lac", doc.Name)
	assert.Equal(t, 230.0, doc.Model.Z0)
	assert.Equal(t, 1.6, doc.Model.Beta)

	assert.Equal(t, http.StatusNotFound, get(t, h, "/api/dams/8/model").Code)
}

func TestHealthAndMethods(t *testing.T) {
	h := newTestRouter(t, newTestStore())

	rec := get(t, h, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","schema":{"current":2,"latest":2,"pending":[]}}`, rec.Body.String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/runs", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestGetRunWindowsMsgPack(t *testing.T) {
	h := newTestRouter(t, newTestStore())

	rec := get(t, h, "/api/runs/run-2/windows?format=msgpack")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/x-msgpack", rec.Header().Get("Content-Type"))

	var windows []map[string]any
	require.NoError(t, msgpack.Unmarshal(rec.Body.Bytes(), &windows))
	require.Len(t, windows, 1)
	assert.Equal(t, "run-2", windows[0]["run_id"])
	assert.Equal(t, 3.5, windows[0]["mae"])
}

func TestHealthReportsSchema(t *testing.T) {
	behind := newTestStore()
	behind.schema = migrate.Status{Current: 1, Latest: 2, Pending: []migrate.Migration{{Version: 2, Name: "create windows"}}}

	rec := get(t, newTestRouter(t, behind), "/healthz")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"status":"degraded","schema":{"current":1,"latest":2,"pending":[{"version":2,"name":"create windows"}]}}`, rec.Body.String())

	rec = get(t, newTestRouter(t, &fakeStore{err: errors.New("disk gone")}), "/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestStartControllerReportsBindFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var wg sync.WaitGroup
	port := ln.Addr().(*net.TCPAddr).Port
	c := NewController(ctx, &wg, newTestStore(), config.ServerData{ListenAddr: "127.0.0.1", Port: port}, zaptest.NewLogger(t).Sugar())

	assert.Error(t, c.StartController())
	select {
	case err := <-c.Err():
		t.Fatalf("unexpected serve error %v", err)
	default:
	}
}

func TestStartControllerServesUntilCancelled(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	c := NewController(ctx, &wg, newTestStore(), config.ServerData{ListenAddr: "127.0.0.1", Port: port}, zaptest.NewLogger(t).Sugar())
	require.NoError(t, c.StartController())

	resp, err := http.Get("http://" + c.Addr() + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	wg.Wait()
	select {
	case err := <-c.Err():
		t.Fatalf("graceful shutdown reported %v", err)
	default:
	}
}
