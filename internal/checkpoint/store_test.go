package checkpoint

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kweiss/reelsmith/internal/types"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	store := NewStore(t.TempDir())
	state := types.NewRunState("run-1", "a lighthouse keeper adopts a seal")
	state.GeneratedAssets["character:Mara:front"] = "assets/character_mara_front.png"
	state.GeneratedFrames[1] = &types.FramePair{Start: "frames/shot_001_start.png"}
	state.QueueInstruction(types.StageShotPlanning, "more close-ups")

	require.NoError(t, store.Save(state))
	assert.False(t, state.LastSavedAt.IsZero())

	loaded, err := store.Load("run-1")
	require.NoError(t, err)
	assert.Equal(t, state.Brief, loaded.Brief)
	assert.Equal(t, state.GeneratedAssets, loaded.GeneratedAssets)
	require.NotNil(t, loaded.GeneratedFrames[1])
	assert.Equal(t, "frames/shot_001_start.png", loaded.GeneratedFrames[1].Start)
	assert.Equal(t, []string{"more close-ups"}, loaded.PendingStageInstructions[types.StageShotPlanning])
	assert.WithinDuration(t, state.LastSavedAt, loaded.LastSavedAt, time.Second)
}

func TestSaveCreatesWorkspaceLayout(t *testing.T) {
	root := t.TempDir()
	store := NewStore(root)
	require.NoError(t, store.Save(types.NewRunState("run-2", "brief")))

	for _, sub := range []string{AssetsDir, FramesDir, ClipsDir, FinalDir} {
		info, err := os.Stat(filepath.Join(root, "run-2", sub))
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
	assert.FileExists(t, filepath.Join(root, "run-2", CheckpointFile))
	assert.FileExists(t, filepath.Join(root, "run-2", PlanFile))
}

func TestLoadMissingReturnsErrNotFound(t *testing.T) {
	store := NewStore(t.TempDir())
	_, err := store.Load("no-such-run")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLoadReinitializesNilMaps(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "sparse")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	doc := []byte(`{"output_dir":"sparse","brief":"b","current_stage":"analysis"}`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, CheckpointFile), doc, 0o644))

	loaded, err := NewStore(root).Load("sparse")
	require.NoError(t, err)
	assert.NotNil(t, loaded.GeneratedAssets)
	assert.NotNil(t, loaded.GeneratedFrames)
	assert.NotNil(t, loaded.GeneratedVideos)
}

func TestDirResolvesAbsoluteKeys(t *testing.T) {
	store := NewStore("/var/lib/reelsmith")
	assert.Equal(t, "/tmp/elsewhere", store.Dir("/tmp/elsewhere"))
	assert.Equal(t, filepath.Join("/var/lib/reelsmith", "run-3"), store.Dir("run-3"))
}

func TestRenderPlanIncludesProgress(t *testing.T) {
	state := types.NewRunState("run-4", "brief")
	state.StoryAnalysis = &types.StoryAnalysis{
		Title:    "Tide and Stone",
		ArtStyle: "ink wash",
		Scenes: []types.Scene{{
			Number:   1,
			Location: "Lighthouse",
			Shots:    []types.Shot{{Number: 1, Description: "wide establishing", DurationSeconds: 4}},
		}},
	}
	state.CompletedStages = []types.Stage{types.StageAnalysis}

	plan := RenderPlan(state)
	assert.Contains(t, plan, "Tide and Stone")
	assert.Contains(t, plan, "wide establishing")
	assert.Contains(t, plan, string(types.StageAnalysis))
}
