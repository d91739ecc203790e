package executor

import (
	"fmt"
	"sort"

	"github.com/go-playground/validator/v10"

	"github.com/kweiss/reelsmith/internal/types"
)

// AnalysisResult is the planner's structured output for the analysis
// stage. It maps one-to-one onto the run state's story analysis, minus
// the shot lists that shot planning fills in later.
type AnalysisResult struct {
	Title    string `json:"title" validate:"required,min=1"`
	ArtStyle string `json:"art_style" validate:"required,min=1"`
	Logline  string `json:"logline" validate:"required,min=1"`

	Characters []ResultCharacter `json:"characters" validate:"required,min=1,dive"`
	Locations  []ResultLocation  `json:"locations" validate:"required,min=1,dive"`
	Scenes     []ResultScene     `json:"scenes" validate:"required,min=1,dive"`
}

// ResultCharacter is a character entry in an analysis result.
type ResultCharacter struct {
	Name        string `json:"name" validate:"required,min=1"`
	Description string `json:"description" validate:"required,min=1"`
}

// ResultLocation is a location entry in an analysis result.
type ResultLocation struct {
	Name        string `json:"name" validate:"required,min=1"`
	Description string `json:"description" validate:"required,min=1"`
}

// ResultScene is a scene entry in an analysis result. Scenes arrive
// without shots; shot planning adds them.
type ResultScene struct {
	Number      int    `json:"number" validate:"required,min=1"`
	Title       string `json:"title" validate:"required,min=1"`
	Location    string `json:"location" validate:"required,min=1"`
	Description string `json:"description" validate:"required,min=1"`
}

// Validate validates the AnalysisResult using the validator.
func (r *AnalysisResult) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// ToStory converts the analysis result into a fresh story analysis with
// empty shot lists, ordered by scene number.
func (r *AnalysisResult) ToStory() *types.StoryAnalysis {
	story := &types.StoryAnalysis{
		Title:    r.Title,
		ArtStyle: r.ArtStyle,
		Logline:  r.Logline,
	}
	for _, c := range r.Characters {
		story.Characters = append(story.Characters, types.Character{Name: c.Name, Description: c.Description})
	}
	for _, l := range r.Locations {
		story.Locations = append(story.Locations, types.Location{Name: l.Name, Description: l.Description})
	}
	scenes := make([]ResultScene, len(r.Scenes))
	copy(scenes, r.Scenes)
	sort.Slice(scenes, func(i, j int) bool { return scenes[i].Number < scenes[j].Number })
	for _, s := range scenes {
		story.Scenes = append(story.Scenes, types.Scene{
			Number:      s.Number,
			Title:       s.Title,
			Location:    s.Location,
			Description: s.Description,
		})
	}
	return story
}

// ShotPlanResult is the planner's structured output for the shot
// planning stage: per-scene shot breakdowns.
type ShotPlanResult struct {
	Scenes []PlannedScene `json:"scenes" validate:"required,min=1,dive"`
}

// PlannedScene holds the shots planned for one scene.
type PlannedScene struct {
	Number int           `json:"number" validate:"required,min=1"`
	Shots  []PlannedShot `json:"shots" validate:"required,min=1,dive"`
}

// PlannedShot is one shot in a shot plan. Shot numbers are globally
// unique across the whole plan, not per scene.
type PlannedShot struct {
	Number          int      `json:"number" validate:"required,min=1"`
	Description     string   `json:"description" validate:"required,min=1"`
	Characters      []string `json:"characters"`
	Location        string   `json:"location" validate:"required,min=1"`
	CameraMovement  string   `json:"camera_movement" validate:"required,min=1"`
	DurationSeconds float64  `json:"duration_seconds" validate:"required,gt=0"`
	StartFrame      string   `json:"start_frame" validate:"required,min=1"`
	EndFrame        string   `json:"end_frame" validate:"required,min=1"`
}

// Validate validates the ShotPlanResult using the validator, then
// enforces global shot-number uniqueness which tags cannot express.
func (r *ShotPlanResult) Validate() error {
	validate := validator.New()
	if err := validate.Struct(r); err != nil {
		return err
	}
	seen := make(map[int]bool)
	for _, sc := range r.Scenes {
		for _, sh := range sc.Shots {
			if seen[sh.Number] {
				return fmt.Errorf("duplicate shot number %d", sh.Number)
			}
			seen[sh.Number] = true
		}
	}
	return nil
}

// ApplyTo returns a copy of the story with the planned shots attached to
// their scenes. Scenes the plan does not mention keep their existing
// shots; planned scenes with no matching story scene are an error.
func (r *ShotPlanResult) ApplyTo(story *types.StoryAnalysis) (*types.StoryAnalysis, error) {
	out := story.Clone()
	byNumber := make(map[int]*types.Scene, len(out.Scenes))
	for i := range out.Scenes {
		byNumber[out.Scenes[i].Number] = &out.Scenes[i]
	}
	for _, planned := range r.Scenes {
		scene, ok := byNumber[planned.Number]
		if !ok {
			return nil, fmt.Errorf("shot plan references unknown scene %d", planned.Number)
		}
		scene.Shots = scene.Shots[:0]
		for _, sh := range planned.Shots {
			scene.Shots = append(scene.Shots, types.Shot{
				Number:          sh.Number,
				Description:     sh.Description,
				Characters:      append([]string(nil), sh.Characters...),
				Location:        sh.Location,
				CameraMovement:  sh.CameraMovement,
				DurationSeconds: sh.DurationSeconds,
				StartFrame:      sh.StartFrame,
				EndFrame:        sh.EndFrame,
			})
		}
	}
	return out, nil
}
