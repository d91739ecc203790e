// Package types provides type definitions for structured data used throughout the reelsmith system.
//
//nolint:revive // types is a standard Go package name pattern
package types

// Stage identifies one of the six ordered pipeline phases.
type Stage string

// Canonical pipeline stages, in execution order.
const (
	StageAnalysis        Stage = "analysis"
	StageShotPlanning    Stage = "shot_planning"
	StageAssetGeneration Stage = "asset_generation"
	StageFrameGeneration Stage = "frame_generation"
	StageVideoGeneration Stage = "video_generation"
	StageAssembly        Stage = "assembly"
)

// StageOrder lists the six canonical stages in pipeline order.
var StageOrder = []Stage{
	StageAnalysis,
	StageShotPlanning,
	StageAssetGeneration,
	StageFrameGeneration,
	StageVideoGeneration,
	StageAssembly,
}

// StageCount is the number of pipeline stages.
const StageCount = 6

// Index returns the position of the stage in StageOrder, or -1 for an
// unknown stage name.
func (s Stage) Index() int {
	for i, st := range StageOrder {
		if st == s {
			return i
		}
	}
	return -1
}

// Valid reports whether s is one of the six canonical stage names.
func (s Stage) Valid() bool {
	return s.Index() >= 0
}

// NextStage returns the stage after s. The second return value is false
// when s is the final stage (assembly) or unknown.
func NextStage(s Stage) (Stage, bool) {
	i := s.Index()
	if i < 0 || i >= len(StageOrder)-1 {
		return "", false
	}
	return StageOrder[i+1], true
}

// Before reports whether s comes strictly before other in pipeline order.
func (s Stage) Before(other Stage) bool {
	return s.Index() < other.Index()
}
