// Package stages implements the pipeline state machine: stage
// sequencing over a RunState with skip, resume, and item-level redo
// semantics. Everything here is pure state-transition logic; stage work
// itself is delegated to an Executor and persistence to a Checkpointer.
package stages

import (
	"context"
	"fmt"
	"sort"

	"github.com/kweiss/reelsmith/internal/interrupt"
	"github.com/kweiss/reelsmith/internal/types"
)

// Executor runs a single pipeline stage against the state, mutating it
// in place. Implementations may checkpoint mid-stage so partial progress
// survives interruption. The cancellation token is per run and must be
// observed between external calls.
type Executor interface {
	ExecuteStage(ctx context.Context, sig *interrupt.Signal, stage types.Stage, state *types.RunState) error
}

// Checkpointer persists the state document.
type Checkpointer interface {
	Save(state *types.RunState) error
}

// Terminal reports whether all six stages are complete.
func Terminal(state *types.RunState) bool {
	return len(state.CompletedStages) == types.StageCount
}

// Advance performs one step of the stage loop. If the current stage is
// already complete, or has no remaining work, it is skipped (and marked
// complete in the latter case). Otherwise the executor runs the stage;
// on success the stage is appended to CompletedStages and CurrentStage
// moves forward. A stage that runs without error but leaves required
// items unproduced never advances: it is recorded as a failure instead.
func Advance(ctx context.Context, sig *interrupt.Signal, state *types.RunState, exec Executor, ckpt Checkpointer) error {
	stage := state.CurrentStage
	if !stage.Valid() {
		return fmt.Errorf("invalid current stage %q", stage)
	}

	if state.StageCompleted(stage) {
		advanceCursor(state)
		return ckpt.Save(state)
	}

	// The executor consults NeededWork and produces only missing items,
	// so a stage whose outputs survived a cascade re-completes cheaply.
	if err := exec.ExecuteStage(ctx, sig, stage, state); err != nil {
		if interrupt.IsInterrupted(err) {
			// Interruption is not a failure; partial progress is already
			// checkpointed and the run resumes from here.
			state.Interrupted = true
			if saveErr := ckpt.Save(state); saveErr != nil {
				return fmt.Errorf("interrupted; checkpoint also failed: %w", saveErr)
			}
			return err
		}
		state.RecordError(stage, nil, err)
		if saveErr := ckpt.Save(state); saveErr != nil {
			return fmt.Errorf("stage %s failed (%w); checkpoint also failed: %v", stage, err, saveErr)
		}
		return fmt.Errorf("stage %s failed: %w", stage, err)
	}

	if missing := NeededWork(state, stage); len(missing) > 0 {
		err := fmt.Errorf("stage %s finished with %d items unproduced: %v", stage, len(missing), missing)
		state.RecordError(stage, nil, err)
		if saveErr := ckpt.Save(state); saveErr != nil {
			return fmt.Errorf("%w; checkpoint also failed: %v", err, saveErr)
		}
		return err
	}

	markCompleted(state, stage)
	advanceCursor(state)
	return ckpt.Save(state)
}

// SkipTo marks every stage strictly before target as completed
// (idempotently) and removes target and everything after it from
// CompletedStages, forcing a re-run of target onward.
func SkipTo(state *types.RunState, target types.Stage) error {
	if !target.Valid() {
		return fmt.Errorf("invalid stage %q", target)
	}
	for _, st := range types.StageOrder {
		if st.Before(target) {
			markCompleted(state, st)
		}
	}
	clearCompletedFrom(state, target)
	state.CurrentStage = target
	return nil
}

// NeededWork returns the items a stage still must produce, as stable
// human-readable identifiers. An empty result means the stage's outputs
// are satisfied.
func NeededWork(state *types.RunState, stage types.Stage) []string {
	switch stage {
	case types.StageAnalysis:
		if state.StoryAnalysis == nil {
			return []string{"story_analysis"}
		}
		return nil

	case types.StageShotPlanning:
		if state.StoryAnalysis == nil {
			return []string{"story_analysis"}
		}
		var needed []string
		for _, scene := range state.StoryAnalysis.Scenes {
			if len(scene.Shots) == 0 {
				needed = append(needed, fmt.Sprintf("scene:%d", scene.Number))
			}
		}
		return needed

	case types.StageAssetGeneration:
		if state.StoryAnalysis == nil {
			return []string{"story_analysis"}
		}
		var needed []string
		for _, c := range state.StoryAnalysis.Characters {
			for _, view := range []types.AssetView{types.ViewFront, types.ViewAngle} {
				key := types.AssetKey(types.KindCharacter, c.Name, view)
				if state.GeneratedAssets[key] == "" {
					needed = append(needed, key)
				}
			}
		}
		for _, l := range state.StoryAnalysis.Locations {
			for _, view := range []types.AssetView{types.ViewFront, types.ViewAngle} {
				key := types.AssetKey(types.KindLocation, l.Name, view)
				if state.GeneratedAssets[key] == "" {
					needed = append(needed, key)
				}
			}
		}
		return needed

	case types.StageFrameGeneration:
		var needed []int
		for _, shot := range state.StoryAnalysis.AllShots() {
			pair := state.GeneratedFrames[shot.Number]
			if pair == nil || pair.Start == "" || pair.End == "" {
				needed = append(needed, shot.Number)
			}
		}
		return shotItems(needed)

	case types.StageVideoGeneration:
		var needed []int
		for _, shot := range state.StoryAnalysis.AllShots() {
			if state.GeneratedVideos[shot.Number] == "" {
				needed = append(needed, shot.Number)
			}
		}
		return shotItems(needed)

	case types.StageAssembly:
		if state.FinalCutPath == "" {
			return []string{"final_cut"}
		}
		return nil
	}
	return nil
}

func shotItems(numbers []int) []string {
	if len(numbers) == 0 {
		return nil
	}
	sort.Ints(numbers)
	items := make([]string, len(numbers))
	for i, n := range numbers {
		items[i] = fmt.Sprintf("shot:%d", n)
	}
	return items
}

// markCompleted appends the stage to CompletedStages, keeping the list
// in canonical stage order without duplicates.
func markCompleted(state *types.RunState, stage types.Stage) {
	if state.StageCompleted(stage) {
		return
	}
	state.CompletedStages = append(state.CompletedStages, stage)
	sort.Slice(state.CompletedStages, func(i, j int) bool {
		return state.CompletedStages[i].Before(state.CompletedStages[j])
	})
}

// clearCompletedFrom removes the stage and every later stage from
// CompletedStages, preserving the canonical-prefix invariant.
func clearCompletedFrom(state *types.RunState, stage types.Stage) {
	kept := state.CompletedStages[:0]
	for _, st := range state.CompletedStages {
		if st.Before(stage) {
			kept = append(kept, st)
		}
	}
	state.CompletedStages = kept
}

// advanceCursor points CurrentStage at the first incomplete stage, or
// leaves it at assembly once everything is done.
func advanceCursor(state *types.RunState) {
	for _, st := range types.StageOrder {
		if !state.StageCompleted(st) {
			state.CurrentStage = st
			return
		}
	}
	state.CurrentStage = types.StageAssembly
}
