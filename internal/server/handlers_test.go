package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kweiss/reelsmith/internal/checkpoint"
	"github.com/kweiss/reelsmith/internal/config"
	"github.com/kweiss/reelsmith/internal/events"
	"github.com/kweiss/reelsmith/internal/executor"
	"github.com/kweiss/reelsmith/internal/lifecycle"
	"github.com/kweiss/reelsmith/internal/registry"
	"github.com/kweiss/reelsmith/internal/types"
)

type testEnv struct {
	server  *Server
	manager *lifecycle.Manager
	reg     registry.Registry
	store   *checkpoint.Store
	bus     *events.Bus
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	t.Setenv("RATE_LIMIT_ENABLED", "false")
	t.Setenv("JWT_SECRET", "")

	dir := t.TempDir()
	reg, err := registry.NewFileRegistry(filepath.Join(dir, "runs.json"))
	require.NoError(t, err)
	store := checkpoint.NewStore(dir)
	bus := events.NewBus(events.DefaultCapacity)
	exec := executor.New(&executor.SimPlanner{}, executor.NewSimTools(0), store)
	manager := lifecycle.NewManager(lifecycle.Options{
		Registry:     reg,
		Checkpoints:  store,
		Bus:          bus,
		Executor:     exec,
		PollInterval: 20 * time.Millisecond,
	})

	cfg := config.Defaults()
	cfg.Simulate = true
	srv, err := New(&cfg, Deps{Manager: manager, Registry: reg, Bus: bus, Checkpoints: store})
	require.NoError(t, err)
	t.Cleanup(srv.rateLimiter.Stop)

	return &testEnv{server: srv, manager: manager, reg: reg, store: store, bus: bus}
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	e.server.httpServer.Handler.ServeHTTP(rr, req)
	return rr
}

func (e *testEnv) postJSON(path string, body any) *httptest.ResponseRecorder {
	data, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return e.do(req)
}

func (e *testEnv) get(path string) *httptest.ResponseRecorder {
	return e.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (e *testEnv) createRun(t *testing.T) types.RunRecord {
	t.Helper()
	rr := e.postJSON("/runs", types.CreateRunRequest{Title: "Tide and Stone", Brief: "a keeper maps the coast"})
	require.Equal(t, http.StatusAccepted, rr.Code, rr.Body.String())

	var rec types.RunRecord
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &rec))
	return rec
}

func (e *testEnv) waitCompleted(t *testing.T, id uuid.UUID) {
	t.Helper()
	require.Eventually(t, func() bool {
		rec, err := e.reg.Get(context.Background(), id)
		return err == nil && rec.Status == types.StatusCompleted
	}, 10*time.Second, 10*time.Millisecond)
}

func TestHealthEndpoint(t *testing.T) {
	env := newTestEnv(t)
	rr := env.get("/health")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
}

func TestCreateRunAcceptedAndExecutes(t *testing.T) {
	env := newTestEnv(t)
	rec := env.createRun(t)

	assert.Equal(t, "Tide and Stone", rec.Title)
	assert.NotEqual(t, uuid.Nil, rec.ID)

	env.waitCompleted(t, rec.ID)

	rr := env.get("/runs/" + rec.ID.String())
	require.Equal(t, http.StatusOK, rr.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, false, resp["running"])
	assert.Equal(t, 1.0, resp["progress"])
	assert.Equal(t, "Simulated Story", resp["title"])
}

func TestCreateRunRejectsInvalidBody(t *testing.T) {
	env := newTestEnv(t)

	rr := env.postJSON("/runs", map[string]string{"title": "no brief"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	req := httptest.NewRequest(http.MethodPost, "/runs", bytes.NewReader([]byte("{not json")))
	rr = env.do(req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestListRunsNewestFirst(t *testing.T) {
	env := newTestEnv(t)
	first := env.createRun(t)
	env.waitCompleted(t, first.ID)
	second := env.createRun(t)
	env.waitCompleted(t, second.ID)

	rr := env.get("/runs")
	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Runs []types.RunRecord `json:"runs"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Len(t, resp.Runs, 2)
	assert.Equal(t, second.ID, resp.Runs[0].ID)
	assert.Equal(t, first.ID, resp.Runs[1].ID)
}

func TestGetRunErrors(t *testing.T) {
	env := newTestEnv(t)

	rr := env.get("/runs/not-a-uuid")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = env.get("/runs/" + uuid.NewString())
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestStopUnknownRunReturns404(t *testing.T) {
	env := newTestEnv(t)
	rr := env.postJSON("/runs/"+uuid.NewString()+"/stop", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestStopCompletedRunIsAccepted(t *testing.T) {
	env := newTestEnv(t)
	rec := env.createRun(t)
	env.waitCompleted(t, rec.ID)

	rr := env.postJSON("/runs/"+rec.ID.String()+"/stop", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"accepted"}`, rr.Body.String())
}

func TestRetryNonFailedRunConflicts(t *testing.T) {
	env := newTestEnv(t)
	rec := env.createRun(t)
	env.waitCompleted(t, rec.ID)

	rr := env.postJSON("/runs/"+rec.ID.String()+"/retry", nil)
	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestSubmitInstruction(t *testing.T) {
	env := newTestEnv(t)
	rec := env.createRun(t)
	env.waitCompleted(t, rec.ID)

	rr := env.postJSON("/runs/"+rec.ID.String()+"/instructions", types.InstructionRequest{
		Stage: string(types.StageShotPlanning),
		Text:  "more close-ups",
	})
	require.Equal(t, http.StatusAccepted, rr.Code, rr.Body.String())

	state, err := env.store.Load(rec.ID.String())
	require.NoError(t, err)
	assert.Equal(t, []string{"more close-ups"}, state.PendingStageInstructions[types.StageShotPlanning])

	rr = env.postJSON("/runs/"+rec.ID.String()+"/instructions", types.InstructionRequest{Stage: "bad", Text: "x"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestRedoStageEndpoint(t *testing.T) {
	env := newTestEnv(t)
	rec := env.createRun(t)
	env.waitCompleted(t, rec.ID)

	rr := env.postJSON("/runs/"+rec.ID.String()+"/redo", types.RedoStageRequest{
		Stage: string(types.StageAssembly),
	})
	require.Equal(t, http.StatusAccepted, rr.Code, rr.Body.String())
	env.waitCompleted(t, rec.ID)
}

func TestRedoItemEndpoint(t *testing.T) {
	env := newTestEnv(t)
	rec := env.createRun(t)
	env.waitCompleted(t, rec.ID)

	rr := env.postJSON("/runs/"+rec.ID.String()+"/redo-item", types.RedoItemRequest{
		Type: "video",
		Shot: 1,
	})
	require.Equal(t, http.StatusAccepted, rr.Code, rr.Body.String())
	env.waitCompleted(t, rec.ID)

	rr = env.postJSON("/runs/"+rec.ID.String()+"/redo-item", types.RedoItemRequest{Type: "spline"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAssetsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	rec := env.createRun(t)
	env.waitCompleted(t, rec.ID)

	rr := env.get("/runs/" + rec.ID.String() + "/assets")
	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Assets   map[string]string `json:"assets"`
		FinalCut string            `json:"final_cut"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Len(t, resp.Assets, 8)
	assert.NotEmpty(t, resp.FinalCut)
}

func TestPlanEndpointReturnsMarkdown(t *testing.T) {
	env := newTestEnv(t)
	rec := env.createRun(t)
	env.waitCompleted(t, rec.ID)

	rr := env.get("/runs/" + rec.ID.String() + "/plan")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "text/markdown")
	assert.Contains(t, rr.Body.String(), "# Simulated Story")
}

func TestMediaServesWorkspaceFilesOnly(t *testing.T) {
	env := newTestEnv(t)
	rec := env.createRun(t)
	env.waitCompleted(t, rec.ID)

	state, err := env.store.Load(rec.ID.String())
	require.NoError(t, err)
	rel, err := filepath.Rel(env.store.Dir(rec.ID.String()), state.FinalCutPath)
	require.NoError(t, err)

	rr := env.get("/runs/" + rec.ID.String() + "/media/" + filepath.ToSlash(rel))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = env.get("/runs/" + rec.ID.String() + "/media/final/missing.mp4")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	// A sibling file outside the run workspace must be unreachable even
	// through dot segments.
	outside := filepath.Join(env.store.Dir("sibling"), "secret.txt")
	require.NoError(t, os.MkdirAll(filepath.Dir(outside), 0o755))
	require.NoError(t, os.WriteFile(outside, []byte("secret"), 0o644))

	rr = env.get("/runs/" + rec.ID.String() + "/media/..%2Fsibling%2Fsecret.txt")
	assert.NotEqual(t, http.StatusOK, rr.Code)
	assert.NotContains(t, rr.Body.String(), "secret")
}
