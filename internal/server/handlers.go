package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"

	"github.com/google/uuid"

	"github.com/kweiss/reelsmith/internal/checkpoint"
	"github.com/kweiss/reelsmith/internal/registry"
	"github.com/kweiss/reelsmith/internal/stages"
	"github.com/kweiss/reelsmith/internal/types"
)

// handleCreateRun creates a run and starts it in the background.
func (s *Server) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	var req types.CreateRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := req.Validate(); err != nil {
		s.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	rec, err := s.manager.CreateRun(r.Context(), req.Title, req.Brief)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := s.manager.Start(r.Context(), rec.ID); err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.jsonResponse(w, http.StatusAccepted, rec)
}

// handleListRuns lists all runs, newest first.
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	recs, err := s.registry.List(r.Context())
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].CreatedAt.After(recs[j].CreatedAt) })
	s.jsonResponse(w, http.StatusOK, map[string]any{"runs": recs})
}

// handleGetRun returns one run record plus its live checkpoint summary.
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id, ok := s.runID(w, r)
	if !ok {
		return
	}

	rec, err := s.registry.Get(r.Context(), id)
	if err != nil {
		s.registryError(w, err)
		return
	}

	resp := map[string]any{
		"run":     rec,
		"running": s.manager.Running(id),
	}
	if state, err := s.checkpoints.Load(id.String()); err == nil {
		resp["progress"] = state.Progress()
		resp["interrupted"] = state.Interrupted
		resp["awaiting_review"] = state.AwaitingUserReview
		resp["errors"] = state.Errors
		if state.StoryAnalysis != nil {
			resp["title"] = state.StoryAnalysis.Title
		}
	}
	s.jsonResponse(w, http.StatusOK, resp)
}

// handleStop gracefully interrupts a run.
func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	id, ok := s.runID(w, r)
	if !ok {
		return
	}

	warning, err := s.manager.Stop(r.Context(), id)
	if err != nil {
		s.registryError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, stopResponse(warning))
}

// handleRetry resumes a failed run from its last checkpoint.
func (s *Server) handleRetry(w http.ResponseWriter, r *http.Request) {
	id, ok := s.runID(w, r)
	if !ok {
		return
	}

	if err := s.manager.Retry(r.Context(), id); err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			s.errorResponse(w, http.StatusNotFound, "run not found")
			return
		}
		s.errorResponse(w, http.StatusConflict, err.Error())
		return
	}
	s.jsonResponse(w, http.StatusAccepted, map[string]string{"status": "retrying"})
}

// handleContinue releases a run held at the review gate.
func (s *Server) handleContinue(w http.ResponseWriter, r *http.Request) {
	id, ok := s.runID(w, r)
	if !ok {
		return
	}

	warning, err := s.manager.Continue(r.Context(), id)
	if err != nil {
		s.registryError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusAccepted, stopResponse(warning))
}

// handleSubmitInstruction queues a free-text instruction for a stage.
func (s *Server) handleSubmitInstruction(w http.ResponseWriter, r *http.Request) {
	id, ok := s.runID(w, r)
	if !ok {
		return
	}

	var req types.InstructionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := req.Validate(); err != nil {
		s.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	if !types.Stage(req.Stage).Valid() {
		s.errorResponse(w, http.StatusBadRequest, "invalid stage")
		return
	}

	warning, err := s.manager.SubmitInstruction(r.Context(), id, types.Stage(req.Stage), req.Text)
	if err != nil {
		s.registryError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusAccepted, stopResponse(warning))
}

// handleRedoStage rewinds a run to a stage and resumes it.
func (s *Server) handleRedoStage(w http.ResponseWriter, r *http.Request) {
	id, ok := s.runID(w, r)
	if !ok {
		return
	}

	var req types.RedoStageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := req.Validate(); err != nil {
		s.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	if !types.Stage(req.Stage).Valid() {
		s.errorResponse(w, http.StatusBadRequest, "invalid stage")
		return
	}

	warning, err := s.manager.RedoFromStage(r.Context(), id, types.Stage(req.Stage))
	if err != nil {
		s.registryError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusAccepted, stopResponse(warning))
}

// handleRedoItem invalidates one produced item (plus dependents) and
// resumes the run.
func (s *Server) handleRedoItem(w http.ResponseWriter, r *http.Request) {
	id, ok := s.runID(w, r)
	if !ok {
		return
	}

	var req types.RedoItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := req.Validate(); err != nil {
		s.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	spec := stages.ItemSpec{Type: stages.ItemType(req.Type), Key: req.Key, Shot: req.Shot}
	warning, err := s.manager.RedoItem(r.Context(), id, spec)
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			s.errorResponse(w, http.StatusNotFound, "run not found")
			return
		}
		s.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	s.jsonResponse(w, http.StatusAccepted, stopResponse(warning))
}

// handleAssets returns the run's produced artifacts grouped by stage.
func (s *Server) handleAssets(w http.ResponseWriter, r *http.Request) {
	id, ok := s.runID(w, r)
	if !ok {
		return
	}

	state, err := s.checkpoints.Load(id.String())
	if err != nil {
		s.checkpointError(w, err)
		return
	}

	s.jsonResponse(w, http.StatusOK, map[string]any{
		"assets":        state.GeneratedAssets,
		"frames":        state.GeneratedFrames,
		"videos":        state.GeneratedVideos,
		"final_cut":     state.FinalCutPath,
		"verifications": state.Verifications,
	})
}

// handlePlan returns the human-readable plan snapshot as markdown.
func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	id, ok := s.runID(w, r)
	if !ok {
		return
	}

	state, err := s.checkpoints.Load(id.String())
	if err != nil {
		s.checkpointError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(checkpoint.RenderPlan(state)))
}

// runID parses the {id} path segment, writing a 400 on failure.
func (s *Server) runID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid run id")
		return uuid.Nil, false
	}
	return id, true
}

func (s *Server) registryError(w http.ResponseWriter, err error) {
	if errors.Is(err, registry.ErrNotFound) {
		s.errorResponse(w, http.StatusNotFound, "run not found")
		return
	}
	s.errorResponse(w, http.StatusInternalServerError, err.Error())
}

func (s *Server) checkpointError(w http.ResponseWriter, err error) {
	if errors.Is(err, checkpoint.ErrNotFound) {
		s.errorResponse(w, http.StatusNotFound, "run not found")
		return
	}
	s.errorResponse(w, http.StatusInternalServerError, err.Error())
}

// stopResponse shapes a control-operation acknowledgement, surfacing a
// force-takeover warning when present.
func stopResponse(warning string) map[string]string {
	resp := map[string]string{"status": "accepted"}
	if warning != "" {
		resp["warning"] = warning
	}
	return resp
}
