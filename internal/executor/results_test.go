package executor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kweiss/reelsmith/internal/types"
)

func validAnalysis() *AnalysisResult {
	return &AnalysisResult{
		Title:    "Tide and Stone",
		ArtStyle: "ink wash",
		Logline:  "A keeper maps the coast.",
		Characters: []ResultCharacter{
			{Name: "Mara", Description: "A cartographer"},
		},
		Locations: []ResultLocation{
			{Name: "Lighthouse", Description: "A chalk-cliff lighthouse"},
		},
		Scenes: []ResultScene{
			{Number: 2, Title: "Later", Location: "Lighthouse", Description: "second"},
			{Number: 1, Title: "First", Location: "Lighthouse", Description: "first"},
		},
	}
}

func validPlan() *ShotPlanResult {
	shot := func(n int) PlannedShot {
		return PlannedShot{
			Number:          n,
			Description:     "a shot",
			Location:        "Lighthouse",
			CameraMovement:  "static",
			DurationSeconds: 4,
			StartFrame:      "open",
			EndFrame:        "close",
		}
	}
	return &ShotPlanResult{Scenes: []PlannedScene{
		{Number: 1, Shots: []PlannedShot{shot(1), shot(2)}},
		{Number: 2, Shots: []PlannedShot{shot(3)}},
	}}
}

func TestAnalysisResultValidate(t *testing.T) {
	require.NoError(t, validAnalysis().Validate())

	missing := validAnalysis()
	missing.ArtStyle = ""
	assert.Error(t, missing.Validate())

	empty := validAnalysis()
	empty.Scenes = nil
	assert.Error(t, empty.Validate())

	blankName := validAnalysis()
	blankName.Characters[0].Name = ""
	assert.Error(t, blankName.Validate())
}

func TestToStorySortsScenesAndLeavesShotsEmpty(t *testing.T) {
	story := validAnalysis().ToStory()
	require.Len(t, story.Scenes, 2)
	assert.Equal(t, 1, story.Scenes[0].Number)
	assert.Equal(t, 2, story.Scenes[1].Number)
	assert.Empty(t, story.Scenes[0].Shots)
	assert.Equal(t, "Tide and Stone", story.Title)
}

func TestShotPlanValidateRejectsDuplicateNumbers(t *testing.T) {
	require.NoError(t, validPlan().Validate())

	dup := validPlan()
	dup.Scenes[1].Shots[0].Number = 2
	err := dup.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate shot number 2")
}

func TestShotPlanValidateRejectsZeroDuration(t *testing.T) {
	plan := validPlan()
	plan.Scenes[0].Shots[0].DurationSeconds = 0
	assert.Error(t, plan.Validate())
}

func TestApplyToReplacesShotsForPlannedScenes(t *testing.T) {
	story := validAnalysis().ToStory()
	story.Scenes[0].Shots = []types.Shot{{Number: 99, Description: "stale"}}

	updated, err := validPlan().ApplyTo(story)
	require.NoError(t, err)

	assert.Len(t, updated.Scenes[0].Shots, 2)
	assert.Equal(t, 1, updated.Scenes[0].Shots[0].Number)
	assert.Len(t, updated.Scenes[1].Shots, 1)

	// Copy-on-write: the input story keeps its stale shots.
	assert.Equal(t, 99, story.Scenes[0].Shots[0].Number)
}

func TestApplyToRejectsUnknownScene(t *testing.T) {
	story := validAnalysis().ToStory()
	plan := validPlan()
	plan.Scenes[1].Number = 7

	_, err := plan.ApplyTo(story)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown scene 7")
}
