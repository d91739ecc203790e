package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kweiss/reelsmith/internal/types"
)

// streamEvents performs an SSE request that self-terminates via context
// timeout and returns the raw stream body.
func streamEvents(env *testEnv, path string, header map[string]string, wait time.Duration) string {
	ctx, cancel := context.WithTimeout(context.Background(), wait)
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, path, nil).WithContext(ctx)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rr := env.do(req)
	return rr.Body.String()
}

func TestEventsStreamReplaysHistory(t *testing.T) {
	env := newTestEnv(t)
	rec := env.createRun(t)
	env.waitCompleted(t, rec.ID)

	body := streamEvents(env, "/runs/"+rec.ID.String()+"/events", nil, 200*time.Millisecond)

	assert.Contains(t, body, "id: 1\n")
	assert.Contains(t, body, "event: "+string(types.EventRunStatus))
	assert.Contains(t, body, "event: "+string(types.EventStageCompleted))
	assert.Contains(t, body, `"final_cut"`)
}

func TestEventsStreamResumesFromLastEventID(t *testing.T) {
	env := newTestEnv(t)
	rec := env.createRun(t)
	env.waitCompleted(t, rec.ID)

	last := env.bus.LastID(rec.ID.String())
	require.Greater(t, last, int64(2))

	body := streamEvents(env, "/runs/"+rec.ID.String()+"/events",
		map[string]string{"Last-Event-ID": "2"}, 200*time.Millisecond)

	assert.NotContains(t, body, "id: 1\n")
	assert.NotContains(t, body, "id: 2\n")
	assert.Contains(t, body, "id: 3\n")

	// The query parameter form behaves the same.
	body = streamEvents(env, "/runs/"+rec.ID.String()+"/events?last_event_id=2", nil, 200*time.Millisecond)
	assert.NotContains(t, body, "id: 2\n")
	assert.Contains(t, body, "id: 3\n")
}

func TestEventsStreamUnknownRun(t *testing.T) {
	env := newTestEnv(t)
	rr := env.get("/runs/" + uuid.NewString() + "/events")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestSSEWriterFormat(t *testing.T) {
	rr := httptest.NewRecorder()
	sse, err := NewSSEWriter(rr)
	require.NoError(t, err)

	require.NoError(t, sse.WriteRunEvent(types.RunEvent{
		ID:    7,
		RunID: "run",
		Type:  types.EventStageTransition,
		Payload: map[string]any{
			"from": "analysis",
			"to":   "shot_planning",
		},
	}))
	require.NoError(t, sse.WriteHeartbeat())

	assert.Equal(t, "text/event-stream", rr.Header().Get("Content-Type"))

	lines := strings.Split(rr.Body.String(), "\n")
	assert.Equal(t, "id: 7", lines[0])
	assert.Equal(t, "event: stage_transition", lines[1])
	assert.True(t, strings.HasPrefix(lines[2], "data: {"))
	assert.Contains(t, rr.Body.String(), ": heartbeat\n\n")
}
