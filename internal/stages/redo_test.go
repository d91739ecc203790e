package stages

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kweiss/reelsmith/internal/types"
)

func TestRedoItemFrontAssetCascadesToAngle(t *testing.T) {
	state := completedState(t)
	frontKey := types.AssetKey(types.KindCharacter, "Lily", types.ViewFront)
	angleKey := types.AssetKey(types.KindCharacter, "Lily", types.ViewAngle)

	require.NoError(t, RedoItem(state, ItemSpec{Type: ItemAsset, Key: frontKey}))

	assert.NotContains(t, state.GeneratedAssets, frontKey)
	assert.NotContains(t, state.GeneratedAssets, angleKey)
	assert.NotContains(t, state.AssetLibrary, "character:Lily")
	// Downstream outputs survive at item level; only stage completion is
	// rolled back.
	assert.NotEmpty(t, state.GeneratedFrames)
	assert.NotEmpty(t, state.GeneratedVideos)
	assert.Empty(t, state.FinalCutPath)
	assert.Equal(t, types.StageAssetGeneration, state.CurrentStage)
	assert.Equal(t, []types.Stage{types.StageAnalysis, types.StageShotPlanning}, state.CompletedStages)
}

func TestRedoItemAngleAssetGoesAlone(t *testing.T) {
	state := completedState(t)
	frontKey := types.AssetKey(types.KindLocation, "Pier", types.ViewFront)
	angleKey := types.AssetKey(types.KindLocation, "Pier", types.ViewAngle)

	require.NoError(t, RedoItem(state, ItemSpec{Type: ItemAsset, Key: angleKey}))

	assert.Contains(t, state.GeneratedAssets, frontKey)
	assert.NotContains(t, state.GeneratedAssets, angleKey)
	assert.Contains(t, state.AssetLibrary, "location:Pier")
}

func TestRedoItemStartFrameClearsEndAndVideo(t *testing.T) {
	state := completedState(t)

	require.NoError(t, RedoItem(state, ItemSpec{Type: ItemStartFrame, Shot: 1}))

	pair := state.GeneratedFrames[1]
	require.NotNil(t, pair)
	assert.Empty(t, pair.Start)
	assert.Empty(t, pair.End)
	assert.NotContains(t, state.GeneratedVideos, 1)
	// Other shots are untouched.
	assert.Equal(t, "e.png", state.GeneratedFrames[2].End)
	assert.Contains(t, state.GeneratedVideos, 2)
	assert.Empty(t, state.FinalCutPath)
	assert.Equal(t, types.StageFrameGeneration, state.CurrentStage)
}

func TestRedoItemEndFrameKeepsStart(t *testing.T) {
	state := completedState(t)

	require.NoError(t, RedoItem(state, ItemSpec{Type: ItemEndFrame, Shot: 2}))

	pair := state.GeneratedFrames[2]
	require.NotNil(t, pair)
	assert.Equal(t, "s.png", pair.Start)
	assert.Empty(t, pair.End)
	assert.NotContains(t, state.GeneratedVideos, 2)
	assert.Contains(t, state.GeneratedVideos, 1)
}

func TestRedoItemFramePairRemovesBoth(t *testing.T) {
	state := completedState(t)

	require.NoError(t, RedoItem(state, ItemSpec{Type: ItemFramePair, Shot: 1}))

	assert.NotContains(t, state.GeneratedFrames, 1)
	assert.NotContains(t, state.GeneratedVideos, 1)
	assert.Equal(t, types.StageFrameGeneration, state.CurrentStage)
}

func TestRedoItemVideoLeavesFrames(t *testing.T) {
	state := completedState(t)

	require.NoError(t, RedoItem(state, ItemSpec{Type: ItemVideo, Shot: 1}))

	require.NotNil(t, state.GeneratedFrames[1])
	assert.Equal(t, "s.png", state.GeneratedFrames[1].Start)
	assert.NotContains(t, state.GeneratedVideos, 1)
	assert.Empty(t, state.FinalCutPath)
	assert.Equal(t, types.StageVideoGeneration, state.CurrentStage)
	assert.Equal(t, []types.Stage{
		types.StageAnalysis, types.StageShotPlanning,
		types.StageAssetGeneration, types.StageFrameGeneration,
	}, state.CompletedStages)
}

func TestRedoItemRejectsBadInput(t *testing.T) {
	state := completedState(t)
	assert.Error(t, RedoItem(state, ItemSpec{Type: "clip", Shot: 1}))
	assert.Error(t, RedoItem(state, ItemSpec{Type: ItemAsset, Key: "not-a-key"}))
}

func TestRedoThenAdvanceRegeneratesOnlyMissing(t *testing.T) {
	state := completedState(t)
	require.NoError(t, RedoItem(state, ItemSpec{Type: ItemVideo, Shot: 2}))

	assert.Equal(t, []string{"shot:2"}, NeededWork(state, types.StageVideoGeneration))
	assert.Equal(t, []string{"final_cut"}, NeededWork(state, types.StageAssembly))
}

func TestRebuildAssetLibraryNilWhenEmpty(t *testing.T) {
	state := types.NewRunState("run", "brief")
	state.GeneratedAssets[types.AssetKey(types.KindCharacter, "Otis", types.ViewAngle)] = "a.png"
	RebuildAssetLibrary(state)
	assert.Nil(t, state.AssetLibrary)

	state.GeneratedAssets[types.AssetKey(types.KindCharacter, "Otis", types.ViewFront)] = "f.png"
	RebuildAssetLibrary(state)
	assert.Equal(t, map[string]string{"character:Otis": "f.png"}, state.AssetLibrary)
}
