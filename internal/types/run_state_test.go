// Package types provides type definitions for structured data used throughout the reelsmith system.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRunState(t *testing.T) {
	state := NewRunState("run-1", "a fox learns to fly")

	assert.Equal(t, "run-1", state.OutputDir)
	assert.Equal(t, StageAnalysis, state.CurrentStage)
	assert.Empty(t, state.CompletedStages)
	assert.NotNil(t, state.GeneratedAssets)
	assert.NotNil(t, state.GeneratedFrames)
	assert.NotNil(t, state.GeneratedVideos)
	assert.InDelta(t, 0.0, state.Progress(), 1e-9)
}

func TestStageOrdering(t *testing.T) {
	require.Len(t, StageOrder, StageCount)

	for i, st := range StageOrder {
		assert.True(t, st.Valid())
		assert.Equal(t, i, st.Index())
	}

	next, ok := NextStage(StageAnalysis)
	require.True(t, ok)
	assert.Equal(t, StageShotPlanning, next)

	_, ok = NextStage(StageAssembly)
	assert.False(t, ok)

	assert.True(t, StageAssetGeneration.Before(StageVideoGeneration))
	assert.False(t, StageAssembly.Before(StageAnalysis))
	assert.False(t, Stage("rendering").Valid())
}

func TestQueueAndDrainInstructions(t *testing.T) {
	state := NewRunState("run-1", "brief")

	state.QueueInstruction(StageShotPlanning, "more close-ups")
	state.QueueInstruction(StageShotPlanning, "shorter shots")
	state.QueueInstruction(StageAssembly, "fade to black")

	notes := state.DrainInstructions(StageShotPlanning)
	assert.Equal(t, []string{"more close-ups", "shorter shots"}, notes)

	// Draining is destructive for the stage but leaves others alone.
	assert.Empty(t, state.DrainInstructions(StageShotPlanning))
	assert.Equal(t, []string{"fade to black"}, state.DrainInstructions(StageAssembly))

	// History keeps everything regardless of draining.
	assert.Len(t, state.InstructionHistory, 3)
}

func TestRecordError(t *testing.T) {
	state := NewRunState("run-1", "brief")
	shot := 3
	state.RecordError(StageVideoGeneration, &shot, errors.New("render timed out"))

	require.Len(t, state.Errors, 1)
	assert.Equal(t, StageVideoGeneration, state.Errors[0].Stage)
	assert.Equal(t, 3, *state.Errors[0].Shot)
	assert.Equal(t, "render timed out", state.Errors[0].Error)
	assert.False(t, state.Errors[0].Timestamp.IsZero())
}

func TestRunStateCloneIsDeep(t *testing.T) {
	state := NewRunState("run-1", "brief")
	state.StoryAnalysis = &StoryAnalysis{
		Title: "Original",
		Scenes: []Scene{
			{Number: 1, Shots: []Shot{{Number: 1, Characters: []string{"Lily"}}}},
		},
	}
	state.CompletedStages = []Stage{StageAnalysis}
	state.GeneratedAssets["character:Lily:front"] = "assets/lily.png"
	state.GeneratedFrames[1] = &FramePair{Start: "frames/1s.png"}
	state.GeneratedVideos[1] = "clips/1.mp4"
	state.QueueInstruction(StageAssembly, "note")

	clone := state.Clone()

	clone.StoryAnalysis.Title = "Changed"
	clone.StoryAnalysis.Scenes[0].Shots[0].Characters[0] = "Otis"
	clone.CompletedStages[0] = StageAssembly
	clone.GeneratedAssets["character:Lily:front"] = "elsewhere.png"
	clone.GeneratedFrames[1].Start = "other.png"
	clone.GeneratedVideos[1] = "other.mp4"
	clone.PendingStageInstructions[StageAssembly][0] = "changed"

	assert.Equal(t, "Original", state.StoryAnalysis.Title)
	assert.Equal(t, "Lily", state.StoryAnalysis.Scenes[0].Shots[0].Characters[0])
	assert.Equal(t, StageAnalysis, state.CompletedStages[0])
	assert.Equal(t, "assets/lily.png", state.GeneratedAssets["character:Lily:front"])
	assert.Equal(t, "frames/1s.png", state.GeneratedFrames[1].Start)
	assert.Equal(t, "clips/1.mp4", state.GeneratedVideos[1])
	assert.Equal(t, "note", state.PendingStageInstructions[StageAssembly][0])
}

func TestStoryAnalysisAllShots(t *testing.T) {
	story := &StoryAnalysis{
		Scenes: []Scene{
			{Number: 1, Shots: []Shot{{Number: 1}, {Number: 2}}},
			{Number: 2, Shots: []Shot{{Number: 3}}},
		},
	}

	shots := story.AllShots()
	require.Len(t, shots, 3)
	assert.Equal(t, 1, shots[0].Number)
	assert.Equal(t, 3, shots[2].Number)

	found := story.FindShot(2)
	require.NotNil(t, found)
	assert.Equal(t, 2, found.Number)
	assert.Nil(t, story.FindShot(99))

	var nilStory *StoryAnalysis
	assert.Nil(t, nilStory.AllShots())
}
