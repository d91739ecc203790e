// Package types provides type definitions for structured data used throughout the reelsmith system.
//
//nolint:revive // types is a standard Go package name pattern
package types

// StoryAnalysis is the plan document produced by the analysis stage and
// enriched with shots by the shot-planning stage.
type StoryAnalysis struct {
	Title      string      `json:"title"`
	ArtStyle   string      `json:"art_style"`
	Logline    string      `json:"logline,omitempty"`
	Characters []Character `json:"characters"`
	Locations  []Location  `json:"locations"`
	Scenes     []Scene     `json:"scenes"`
}

// Character describes a recurring character needing reference images.
type Character struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Appearance  string `json:"appearance,omitempty"`
}

// Location describes a setting needing reference images.
type Location struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Scene is an ordered story beat holding an ordered list of shots.
type Scene struct {
	Number      int    `json:"number"`
	Title       string `json:"title,omitempty"`
	Location    string `json:"location,omitempty"`
	Description string `json:"description"`
	Shots       []Shot `json:"shots"`
}

// Shot is a single camera take. Shot numbers are unique across the whole
// story, not per scene, so they can key the frame and video maps.
type Shot struct {
	Number          int      `json:"number"`
	Description     string   `json:"description"`
	Characters      []string `json:"characters,omitempty"`
	Location        string   `json:"location,omitempty"`
	CameraMovement  string   `json:"camera_movement,omitempty"`
	DurationSeconds float64  `json:"duration_seconds,omitempty"`
	StartFrame      string   `json:"start_frame,omitempty"`
	EndFrame        string   `json:"end_frame,omitempty"`
}

// AllShots returns every shot across all scenes in story order.
func (a *StoryAnalysis) AllShots() []Shot {
	if a == nil {
		return nil
	}
	var shots []Shot
	for _, scene := range a.Scenes {
		shots = append(shots, scene.Shots...)
	}
	return shots
}

// FindShot returns the shot with the given number, or nil.
func (a *StoryAnalysis) FindShot(number int) *Shot {
	if a == nil {
		return nil
	}
	for si := range a.Scenes {
		for ti := range a.Scenes[si].Shots {
			if a.Scenes[si].Shots[ti].Number == number {
				return &a.Scenes[si].Shots[ti]
			}
		}
	}
	return nil
}

// Clone returns a deep copy of the analysis. Update paths copy before
// mutating so the in-memory state never aliases what was last
// checkpointed.
func (a *StoryAnalysis) Clone() *StoryAnalysis {
	if a == nil {
		return nil
	}
	out := &StoryAnalysis{
		Title:    a.Title,
		ArtStyle: a.ArtStyle,
		Logline:  a.Logline,
	}
	if a.Characters != nil {
		out.Characters = make([]Character, len(a.Characters))
		copy(out.Characters, a.Characters)
	}
	if a.Locations != nil {
		out.Locations = make([]Location, len(a.Locations))
		copy(out.Locations, a.Locations)
	}
	if a.Scenes != nil {
		out.Scenes = make([]Scene, len(a.Scenes))
		for i, scene := range a.Scenes {
			cp := scene
			if scene.Shots != nil {
				cp.Shots = make([]Shot, len(scene.Shots))
				for j, shot := range scene.Shots {
					sc := shot
					if shot.Characters != nil {
						sc.Characters = make([]string, len(shot.Characters))
						copy(sc.Characters, shot.Characters)
					}
					cp.Shots[j] = sc
				}
			}
			out.Scenes[i] = cp
		}
	}
	return out
}
