// Package types provides type definitions for structured data used throughout the reelsmith system.
//
//nolint:revive // types is a standard Go package name pattern
package types

import "time"

// FramePair holds the start and end keyframe paths for a shot. Either
// side may be empty while the frame stage is in flight.
type FramePair struct {
	Start string `json:"start,omitempty"`
	End   string `json:"end,omitempty"`
}

// ErrorRecord is an append-only log entry for a stage failure.
type ErrorRecord struct {
	Stage     Stage     `json:"stage"`
	Shot      *int      `json:"shot,omitempty"`
	Error     string    `json:"error"`
	Timestamp time.Time `json:"timestamp"`
}

// Verification is an append-only quality-check outcome.
type Verification struct {
	Stage     Stage     `json:"stage"`
	Target    string    `json:"target"`
	Passed    bool      `json:"passed"`
	Notes     string    `json:"notes,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Instruction is a historical record of an operator note for a stage.
type Instruction struct {
	Stage     Stage     `json:"stage"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// Decision records a review-gate outcome (continue, redo, etc).
type Decision struct {
	Stage     Stage     `json:"stage"`
	Action    string    `json:"action"`
	Note      string    `json:"note,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// RunState is the single checkpointed document for a run. The checkpoint
// store persists it atomically; everything else (registry cache, event
// stream) is derived from it and allowed to lag.
type RunState struct {
	// OutputDir identifies the run's persistent workspace and doubles as
	// the checkpoint key.
	OutputDir string `json:"output_dir"`

	// Brief is the operator-supplied story input consumed by the
	// analysis stage.
	Brief string `json:"brief"`

	CurrentStage    Stage   `json:"current_stage"`
	CompletedStages []Stage `json:"completed_stages"`

	StoryAnalysis *StoryAnalysis `json:"story_analysis,omitempty"`

	// AssetLibrary maps "kind:name" to the front reference-image path,
	// derived from GeneratedAssets for quick lookup by later stages.
	AssetLibrary map[string]string `json:"asset_library,omitempty"`

	// GeneratedAssets maps composite asset keys ("character:Lily:front")
	// to produced file paths. Absence means not yet generated.
	GeneratedAssets map[string]string `json:"generated_assets"`

	// GeneratedFrames maps shot number to keyframe paths.
	GeneratedFrames map[int]*FramePair `json:"generated_frames"`

	// GeneratedVideos maps shot number to a clip path.
	GeneratedVideos map[int]string `json:"generated_videos"`

	// FinalCutPath is the assembled output, set by the assembly stage.
	FinalCutPath string `json:"final_cut_path,omitempty"`

	Errors        []ErrorRecord  `json:"errors,omitempty"`
	Verifications []Verification `json:"verifications,omitempty"`

	// Interrupted is true iff the last execution stopped because the
	// cancellation signal was asserted rather than by completion or
	// failure.
	Interrupted bool `json:"interrupted"`

	AwaitingUserReview       bool              `json:"awaiting_user_review"`
	ContinueRequested        bool              `json:"continue_requested"`
	PendingStageInstructions map[Stage][]string `json:"pending_stage_instructions,omitempty"`
	InstructionHistory       []Instruction     `json:"instruction_history,omitempty"`
	DecisionHistory          []Decision        `json:"decision_history,omitempty"`

	// LastSavedAt is stamped by the checkpoint store on every save.
	LastSavedAt time.Time `json:"last_saved_at"`
}

// NewRunState creates the initial state for a fresh run: positioned at
// the analysis stage with nothing completed.
func NewRunState(outputDir, brief string) *RunState {
	return &RunState{
		OutputDir:       outputDir,
		Brief:           brief,
		CurrentStage:    StageAnalysis,
		CompletedStages: []Stage{},
		GeneratedAssets: map[string]string{},
		GeneratedFrames: map[int]*FramePair{},
		GeneratedVideos: map[int]string{},
	}
}

// StageCompleted reports whether the given stage is marked complete.
func (s *RunState) StageCompleted(stage Stage) bool {
	for _, st := range s.CompletedStages {
		if st == stage {
			return true
		}
	}
	return false
}

// Progress returns the completed fraction of the pipeline.
func (s *RunState) Progress() float64 {
	return float64(len(s.CompletedStages)) / float64(StageCount)
}

// RecordError appends a stage failure to the error log.
func (s *RunState) RecordError(stage Stage, shot *int, err error) {
	s.Errors = append(s.Errors, ErrorRecord{
		Stage:     stage,
		Shot:      shot,
		Error:     err.Error(),
		Timestamp: time.Now().UTC(),
	})
}

// RecordVerification appends a quality-check outcome.
func (s *RunState) RecordVerification(v Verification) {
	if v.Timestamp.IsZero() {
		v.Timestamp = time.Now().UTC()
	}
	s.Verifications = append(s.Verifications, v)
}

// QueueInstruction appends a free-text operator note for a stage and
// mirrors it into the history log.
func (s *RunState) QueueInstruction(stage Stage, text string) {
	if s.PendingStageInstructions == nil {
		s.PendingStageInstructions = map[Stage][]string{}
	}
	s.PendingStageInstructions[stage] = append(s.PendingStageInstructions[stage], text)
	s.InstructionHistory = append(s.InstructionHistory, Instruction{
		Stage:     stage,
		Text:      text,
		CreatedAt: time.Now().UTC(),
	})
}

// DrainInstructions removes and returns the pending notes for a stage.
func (s *RunState) DrainInstructions(stage Stage) []string {
	if s.PendingStageInstructions == nil {
		return nil
	}
	notes := s.PendingStageInstructions[stage]
	delete(s.PendingStageInstructions, stage)
	return notes
}

// RecordDecision appends a review-gate outcome.
func (s *RunState) RecordDecision(stage Stage, action, note string) {
	s.DecisionHistory = append(s.DecisionHistory, Decision{
		Stage:     stage,
		Action:    action,
		Note:      note,
		CreatedAt: time.Now().UTC(),
	})
}

// Clone returns a deep copy of the state so callers can diff successive
// snapshots without aliasing the live document.
func (s *RunState) Clone() *RunState {
	if s == nil {
		return nil
	}
	out := *s
	out.StoryAnalysis = s.StoryAnalysis.Clone()
	out.CompletedStages = append([]Stage(nil), s.CompletedStages...)

	if s.AssetLibrary != nil {
		out.AssetLibrary = make(map[string]string, len(s.AssetLibrary))
		for k, v := range s.AssetLibrary {
			out.AssetLibrary[k] = v
		}
	}
	if s.GeneratedAssets != nil {
		out.GeneratedAssets = make(map[string]string, len(s.GeneratedAssets))
		for k, v := range s.GeneratedAssets {
			out.GeneratedAssets[k] = v
		}
	}
	if s.GeneratedFrames != nil {
		out.GeneratedFrames = make(map[int]*FramePair, len(s.GeneratedFrames))
		for k, v := range s.GeneratedFrames {
			if v != nil {
				cp := *v
				out.GeneratedFrames[k] = &cp
			}
		}
	}
	if s.GeneratedVideos != nil {
		out.GeneratedVideos = make(map[int]string, len(s.GeneratedVideos))
		for k, v := range s.GeneratedVideos {
			out.GeneratedVideos[k] = v
		}
	}
	if s.PendingStageInstructions != nil {
		out.PendingStageInstructions = make(map[Stage][]string, len(s.PendingStageInstructions))
		for k, v := range s.PendingStageInstructions {
			out.PendingStageInstructions[k] = append([]string(nil), v...)
		}
	}
	out.Errors = append([]ErrorRecord(nil), s.Errors...)
	out.Verifications = append([]Verification(nil), s.Verifications...)
	out.InstructionHistory = append([]Instruction(nil), s.InstructionHistory...)
	out.DecisionHistory = append([]Decision(nil), s.DecisionHistory...)
	return &out
}
