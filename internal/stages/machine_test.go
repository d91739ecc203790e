package stages

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kweiss/reelsmith/internal/interrupt"
	"github.com/kweiss/reelsmith/internal/types"
)

// memCheckpointer records saves without touching disk.
type memCheckpointer struct {
	saves int
}

func (m *memCheckpointer) Save(_ *types.RunState) error {
	m.saves++
	return nil
}

// scriptedExecutor runs a function per invocation.
type scriptedExecutor struct {
	fn    func(stage types.Stage, state *types.RunState) error
	calls []types.Stage
}

func (e *scriptedExecutor) ExecuteStage(_ context.Context, _ *interrupt.Signal, stage types.Stage, state *types.RunState) error {
	e.calls = append(e.calls, stage)
	if e.fn != nil {
		return e.fn(stage, state)
	}
	return nil
}

// fillStage satisfies NeededWork for the given stage by producing
// plausible artifacts.
func fillStage(stage types.Stage, state *types.RunState) {
	switch stage {
	case types.StageAnalysis:
		state.StoryAnalysis = &types.StoryAnalysis{
			Title:      "T",
			ArtStyle:   "ink wash",
			Characters: []types.Character{{Name: "Lily"}},
			Locations:  []types.Location{{Name: "Pier"}},
			Scenes:     []types.Scene{{Number: 1, Location: "Pier"}},
		}
	case types.StageShotPlanning:
		for i := range state.StoryAnalysis.Scenes {
			state.StoryAnalysis.Scenes[i].Shots = []types.Shot{
				{Number: 1, Location: "Pier", Characters: []string{"Lily"}},
				{Number: 2, Location: "Pier"},
			}
		}
	case types.StageAssetGeneration:
		for _, c := range state.StoryAnalysis.Characters {
			state.GeneratedAssets[types.AssetKey(types.KindCharacter, c.Name, types.ViewFront)] = "f.png"
			state.GeneratedAssets[types.AssetKey(types.KindCharacter, c.Name, types.ViewAngle)] = "a.png"
		}
		for _, l := range state.StoryAnalysis.Locations {
			state.GeneratedAssets[types.AssetKey(types.KindLocation, l.Name, types.ViewFront)] = "f.png"
			state.GeneratedAssets[types.AssetKey(types.KindLocation, l.Name, types.ViewAngle)] = "a.png"
		}
		RebuildAssetLibrary(state)
	case types.StageFrameGeneration:
		for _, shot := range state.StoryAnalysis.AllShots() {
			state.GeneratedFrames[shot.Number] = &types.FramePair{Start: "s.png", End: "e.png"}
		}
	case types.StageVideoGeneration:
		for _, shot := range state.StoryAnalysis.AllShots() {
			state.GeneratedVideos[shot.Number] = "c.mp4"
		}
	case types.StageAssembly:
		state.FinalCutPath = "final/final_cut.mp4"
	}
}

// completedState returns a state with every stage's artifacts produced
// and marked complete.
func completedState(t *testing.T) *types.RunState {
	t.Helper()
	state := types.NewRunState("run", "brief")
	exec := &scriptedExecutor{fn: func(stage types.Stage, state *types.RunState) error {
		fillStage(stage, state)
		return nil
	}}
	ckpt := &memCheckpointer{}
	sig := interrupt.NewSignal()
	for !Terminal(state) {
		require.NoError(t, Advance(context.Background(), sig, state, exec, ckpt))
	}
	return state
}

func TestAdvanceRunsAllStagesInOrder(t *testing.T) {
	state := types.NewRunState("run", "brief")
	exec := &scriptedExecutor{fn: func(stage types.Stage, state *types.RunState) error {
		fillStage(stage, state)
		return nil
	}}
	ckpt := &memCheckpointer{}
	sig := interrupt.NewSignal()

	for !Terminal(state) {
		require.NoError(t, Advance(context.Background(), sig, state, exec, ckpt))
	}

	assert.Equal(t, types.StageOrder, exec.calls)
	assert.Equal(t, types.StageOrder, state.CompletedStages)
	assert.InDelta(t, 1.0, state.Progress(), 1e-9)
	assert.Greater(t, ckpt.saves, 0)
}

func TestAdvanceZeroProgressIsFailure(t *testing.T) {
	state := types.NewRunState("run", "brief")
	exec := &scriptedExecutor{} // produces nothing
	ckpt := &memCheckpointer{}

	err := Advance(context.Background(), interrupt.NewSignal(), state, exec, ckpt)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unproduced")

	// The run must not advance and the failure must be on the record.
	assert.Equal(t, types.StageAnalysis, state.CurrentStage)
	assert.Empty(t, state.CompletedStages)
	require.Len(t, state.Errors, 1)
	assert.Equal(t, types.StageAnalysis, state.Errors[0].Stage)
}

func TestAdvanceStageFailureRecordsError(t *testing.T) {
	state := types.NewRunState("run", "brief")
	boom := errors.New("model unavailable")
	exec := &scriptedExecutor{fn: func(types.Stage, *types.RunState) error { return boom }}

	err := Advance(context.Background(), interrupt.NewSignal(), state, exec, &memCheckpointer{})
	require.ErrorIs(t, err, boom)
	require.Len(t, state.Errors, 1)
	assert.Equal(t, "model unavailable", state.Errors[0].Error)
	assert.False(t, state.Interrupted)
}

func TestAdvanceInterruptionIsNotAFailure(t *testing.T) {
	state := types.NewRunState("run", "brief")
	exec := &scriptedExecutor{fn: func(types.Stage, *types.RunState) error {
		return interrupt.ErrInterrupted
	}}

	err := Advance(context.Background(), interrupt.NewSignal(), state, exec, &memCheckpointer{})
	require.True(t, interrupt.IsInterrupted(err))
	assert.True(t, state.Interrupted)
	assert.Empty(t, state.Errors)
	assert.Equal(t, types.StageAnalysis, state.CurrentStage)
}

func TestAdvanceSkipsCompletedStage(t *testing.T) {
	state := types.NewRunState("run", "brief")
	fillStage(types.StageAnalysis, state)
	state.CompletedStages = []types.Stage{types.StageAnalysis}

	exec := &scriptedExecutor{fn: func(stage types.Stage, state *types.RunState) error {
		fillStage(stage, state)
		return nil
	}}
	require.NoError(t, Advance(context.Background(), interrupt.NewSignal(), state, exec, &memCheckpointer{}))

	// First Advance only moves the cursor past the completed stage.
	assert.Empty(t, exec.calls)
	assert.Equal(t, types.StageShotPlanning, state.CurrentStage)
}

func TestSkipToForcesReRun(t *testing.T) {
	state := completedState(t)

	require.NoError(t, SkipTo(state, types.StageFrameGeneration))

	assert.Equal(t, types.StageFrameGeneration, state.CurrentStage)
	assert.Equal(t, []types.Stage{
		types.StageAnalysis, types.StageShotPlanning, types.StageAssetGeneration,
	}, state.CompletedStages)

	// Surviving artifacts mean the re-run completes without executor
	// work for stages whose outputs are intact.
	exec := &scriptedExecutor{fn: func(stage types.Stage, state *types.RunState) error {
		fillStage(stage, state)
		return nil
	}}
	sig := interrupt.NewSignal()
	for !Terminal(state) {
		require.NoError(t, Advance(context.Background(), sig, state, exec, &memCheckpointer{}))
	}
	assert.Equal(t, types.StageOrder, state.CompletedStages)
}

func TestSkipToRejectsUnknownStage(t *testing.T) {
	state := types.NewRunState("run", "brief")
	assert.Error(t, SkipTo(state, types.Stage("rendering")))
}

func TestNeededWork(t *testing.T) {
	state := types.NewRunState("run", "brief")
	assert.Equal(t, []string{"story_analysis"}, NeededWork(state, types.StageAnalysis))

	fillStage(types.StageAnalysis, state)
	assert.Empty(t, NeededWork(state, types.StageAnalysis))
	assert.Equal(t, []string{"scene:1"}, NeededWork(state, types.StageShotPlanning))

	fillStage(types.StageShotPlanning, state)
	assert.Empty(t, NeededWork(state, types.StageShotPlanning))

	needed := NeededWork(state, types.StageAssetGeneration)
	assert.Len(t, needed, 4) // front+angle for one character and one location
	assert.Contains(t, needed, "character:Lily:front")
	assert.Contains(t, needed, "location:Pier:angle")

	fillStage(types.StageAssetGeneration, state)
	assert.Empty(t, NeededWork(state, types.StageAssetGeneration))

	assert.Equal(t, []string{"shot:1", "shot:2"}, NeededWork(state, types.StageFrameGeneration))
	// A half-finished pair still needs work.
	state.GeneratedFrames[1] = &types.FramePair{Start: "s.png"}
	assert.Equal(t, []string{"shot:1", "shot:2"}, NeededWork(state, types.StageFrameGeneration))
	fillStage(types.StageFrameGeneration, state)
	assert.Empty(t, NeededWork(state, types.StageFrameGeneration))

	assert.Equal(t, []string{"shot:1", "shot:2"}, NeededWork(state, types.StageVideoGeneration))
	fillStage(types.StageVideoGeneration, state)
	assert.Empty(t, NeededWork(state, types.StageVideoGeneration))

	assert.Equal(t, []string{"final_cut"}, NeededWork(state, types.StageAssembly))
	fillStage(types.StageAssembly, state)
	assert.Empty(t, NeededWork(state, types.StageAssembly))
}
