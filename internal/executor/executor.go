package executor

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/kweiss/reelsmith/internal/checkpoint"
	"github.com/kweiss/reelsmith/internal/interrupt"
	"github.com/kweiss/reelsmith/internal/stages"
	"github.com/kweiss/reelsmith/internal/types"
)

// assetWorkers bounds concurrent image generation during the asset
// stage. Frames and clips stay sequential because of cross-item
// dependencies.
const assetWorkers = 4

// defaultItemAttempts bounds how often a single media tool call is
// attempted before the stage fails.
const defaultItemAttempts = 2

// Executor runs pipeline stages against a run state. It produces only
// the items NeededWork reports as missing, checkpoints after every
// produced item, and checks the cancellation signal between items so an
// interrupt loses at most the item in flight.
type Executor struct {
	planner Planner
	tools   Tools
	ckpt    *checkpoint.Store

	// MaxItemAttempts bounds attempts per media tool call, counting the
	// first. Zero selects the default. Reasoning calls are not retried;
	// a rejected plan fails the stage so the operator can instruct and
	// retry the run.
	MaxItemAttempts int

	// mu serializes state mutation and checkpointing during the
	// parallel asset stage.
	mu sync.Mutex
}

// New creates an executor over the given planner and media tools.
func New(planner Planner, tools Tools, ckpt *checkpoint.Store) *Executor {
	return &Executor{planner: planner, tools: tools, ckpt: ckpt}
}

// ExecuteStage produces the stage's missing outputs. The per-run
// cancellation token is observed before every external call.
func (e *Executor) ExecuteStage(ctx context.Context, sig *interrupt.Signal, stage types.Stage, state *types.RunState) error {
	if len(stages.NeededWork(state, stage)) == 0 {
		return nil
	}
	if err := sig.Err(); err != nil {
		return err
	}

	switch stage {
	case types.StageAnalysis:
		return e.runAnalysis(ctx, state)
	case types.StageShotPlanning:
		return e.runShotPlanning(ctx, state)
	case types.StageAssetGeneration:
		return e.runAssets(ctx, sig, state)
	case types.StageFrameGeneration:
		return e.runFrames(ctx, sig, state)
	case types.StageVideoGeneration:
		return e.runVideos(ctx, sig, state)
	case types.StageAssembly:
		return e.runAssembly(ctx, state)
	}
	return fmt.Errorf("unknown stage %q", stage)
}

// retryCall invokes call until it succeeds or the attempt budget is
// spent, returning the last error. Context cancellation is never
// retried.
func (e *Executor) retryCall(ctx context.Context, call func() (string, error)) (string, error) {
	attempts := e.MaxItemAttempts
	if attempts < 1 {
		attempts = defaultItemAttempts
	}
	var lastErr error
	for i := 0; i < attempts; i++ {
		path, err := call()
		if err == nil {
			return path, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	return "", lastErr
}

func (e *Executor) runAnalysis(ctx context.Context, state *types.RunState) error {
	notes := state.DrainInstructions(types.StageAnalysis)

	result, err := e.planner.AnalyzeStory(ctx, state.Brief, notes)
	if err != nil {
		return err
	}

	state.StoryAnalysis = result.ToStory()
	return e.ckpt.Save(state)
}

func (e *Executor) runShotPlanning(ctx context.Context, state *types.RunState) error {
	notes := state.DrainInstructions(types.StageShotPlanning)

	plan, err := e.planner.PlanShots(ctx, state.StoryAnalysis, notes)
	if err != nil {
		return err
	}

	updated, err := plan.ApplyTo(state.StoryAnalysis)
	if err != nil {
		return err
	}
	state.StoryAnalysis = updated
	return e.ckpt.Save(state)
}

func (e *Executor) runAssets(ctx context.Context, sig *interrupt.Signal, state *types.RunState) error {
	notes := state.DrainInstructions(types.StageAssetGeneration)
	outDir := filepath.Join(e.ckpt.Dir(state.OutputDir), checkpoint.AssetsDir)

	needed := stages.NeededWork(state, types.StageAssetGeneration)
	var fronts, angles []string
	for _, key := range needed {
		_, _, view, err := types.ParseAssetKey(key)
		if err != nil {
			return err
		}
		if view == types.ViewFront {
			fronts = append(fronts, key)
		} else {
			angles = append(angles, key)
		}
	}

	// Fronts first: angle shots are derived from the front reference.
	for _, batch := range [][]string{fronts, angles} {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(assetWorkers)
		for _, key := range batch {
			key := key
			g.Go(func() error {
				return e.generateAsset(gctx, sig, state, key, notes, outDir)
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
	}
	return nil
}

func (e *Executor) generateAsset(ctx context.Context, sig *interrupt.Signal, state *types.RunState, key string, notes []string, outDir string) error {
	if err := sig.Err(); err != nil {
		return err
	}

	kind, name, view, err := types.ParseAssetKey(key)
	if err != nil {
		return err
	}

	spec := RefSpec{
		Kind:         kind,
		Name:         name,
		Description:  e.describeSubject(state, kind, name),
		ArtStyle:     state.StoryAnalysis.ArtStyle,
		OutDir:       outDir,
		Instructions: notes,
	}

	var path string
	switch view {
	case types.ViewFront:
		path, err = e.retryCall(ctx, func() (string, error) {
			return e.tools.Images.GenerateReference(ctx, spec)
		})
	case types.ViewAngle:
		e.mu.Lock()
		front := state.GeneratedAssets[types.AssetKey(kind, name, types.ViewFront)]
		e.mu.Unlock()
		if front == "" {
			return fmt.Errorf("no front reference for %s %q", kind, name)
		}
		path, err = e.retryCall(ctx, func() (string, error) {
			return e.tools.Images.GenerateAngle(ctx, front, spec)
		})
	default:
		return fmt.Errorf("unknown asset view %q", view)
	}
	if err != nil {
		return fmt.Errorf("asset %s: %w", key, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	state.GeneratedAssets[key] = path
	stages.RebuildAssetLibrary(state)
	return e.ckpt.Save(state)
}

func (e *Executor) describeSubject(state *types.RunState, kind types.AssetKind, name string) string {
	switch kind {
	case types.KindCharacter:
		for _, c := range state.StoryAnalysis.Characters {
			if c.Name == name {
				return c.Description
			}
		}
	case types.KindLocation:
		for _, l := range state.StoryAnalysis.Locations {
			if l.Name == name {
				return l.Description
			}
		}
	}
	return ""
}

func (e *Executor) runFrames(ctx context.Context, sig *interrupt.Signal, state *types.RunState) error {
	notes := state.DrainInstructions(types.StageFrameGeneration)
	outDir := filepath.Join(e.ckpt.Dir(state.OutputDir), checkpoint.FramesDir)

	for _, shot := range state.StoryAnalysis.AllShots() {
		pair := state.GeneratedFrames[shot.Number]
		if pair == nil {
			pair = &types.FramePair{}
			state.GeneratedFrames[shot.Number] = pair
		}

		if pair.Start == "" {
			if err := sig.Err(); err != nil {
				return err
			}
			spec := e.frameSpec(state, shot, true, "", outDir, notes)
			path, err := e.retryCall(ctx, func() (string, error) {
				return e.tools.Images.GenerateFrame(ctx, spec)
			})
			if err != nil {
				return fmt.Errorf("start frame for shot %d: %w", shot.Number, err)
			}
			if err := e.verifyFrame(ctx, state, path, spec); err != nil {
				return err
			}
			pair.Start = path
			if err := e.ckpt.Save(state); err != nil {
				return err
			}
		}

		if pair.End == "" {
			if err := sig.Err(); err != nil {
				return err
			}
			spec := e.frameSpec(state, shot, false, pair.Start, outDir, notes)
			path, err := e.retryCall(ctx, func() (string, error) {
				return e.tools.Images.GenerateFrame(ctx, spec)
			})
			if err != nil {
				return fmt.Errorf("end frame for shot %d: %w", shot.Number, err)
			}
			if err := e.verifyFrame(ctx, state, path, spec); err != nil {
				return err
			}
			pair.End = path
			if err := e.ckpt.Save(state); err != nil {
				return err
			}
		}
	}
	return nil
}

func (e *Executor) frameSpec(state *types.RunState, shot types.Shot, start bool, startPath, outDir string, notes []string) FrameSpec {
	refs := make(map[string]string)
	for _, name := range shot.Characters {
		subject := string(types.KindCharacter) + ":" + name
		if p, ok := state.AssetLibrary[subject]; ok {
			refs[subject] = p
		}
	}
	if shot.Location != "" {
		subject := string(types.KindLocation) + ":" + shot.Location
		if p, ok := state.AssetLibrary[subject]; ok {
			refs[subject] = p
		}
	}
	return FrameSpec{
		Shot:           shot,
		Start:          start,
		ArtStyle:       state.StoryAnalysis.ArtStyle,
		References:     refs,
		StartFramePath: startPath,
		OutDir:         outDir,
		Instructions:   notes,
	}
}

func (e *Executor) verifyFrame(ctx context.Context, state *types.RunState, path string, spec FrameSpec) error {
	if e.tools.Verifier == nil {
		return nil
	}
	v, err := e.tools.Verifier.VerifyFrame(ctx, path, spec)
	if err != nil {
		return fmt.Errorf("frame verification for shot %d: %w", spec.Shot.Number, err)
	}
	state.RecordVerification(v)
	return nil
}

func (e *Executor) runVideos(ctx context.Context, sig *interrupt.Signal, state *types.RunState) error {
	notes := state.DrainInstructions(types.StageVideoGeneration)
	outDir := filepath.Join(e.ckpt.Dir(state.OutputDir), checkpoint.ClipsDir)

	prevClip := ""
	for _, shot := range state.StoryAnalysis.AllShots() {
		if existing := state.GeneratedVideos[shot.Number]; existing != "" {
			prevClip = existing
			continue
		}
		if err := sig.Err(); err != nil {
			return err
		}

		pair := state.GeneratedFrames[shot.Number]
		if pair == nil || pair.Start == "" || pair.End == "" {
			return fmt.Errorf("shot %d has no keyframes", shot.Number)
		}

		spec := ClipSpec{
			Shot:         shot,
			StartFrame:   pair.Start,
			EndFrame:     pair.End,
			ArtStyle:     state.StoryAnalysis.ArtStyle,
			PrevClip:     prevClip,
			OutDir:       outDir,
			Instructions: notes,
		}
		path, err := e.retryCall(ctx, func() (string, error) {
			return e.tools.Videos.GenerateClip(ctx, spec)
		})
		if err != nil {
			return fmt.Errorf("clip for shot %d: %w", shot.Number, err)
		}
		if e.tools.Verifier != nil {
			v, err := e.tools.Verifier.VerifyClip(ctx, path, spec)
			if err != nil {
				return fmt.Errorf("clip verification for shot %d: %w", shot.Number, err)
			}
			state.RecordVerification(v)
		}

		state.GeneratedVideos[shot.Number] = path
		prevClip = path
		if err := e.ckpt.Save(state); err != nil {
			return err
		}
	}
	return nil
}

func (e *Executor) runAssembly(ctx context.Context, state *types.RunState) error {
	outDir := filepath.Join(e.ckpt.Dir(state.OutputDir), checkpoint.FinalDir)

	var clips []string
	for _, shot := range state.StoryAnalysis.AllShots() {
		clip := state.GeneratedVideos[shot.Number]
		if clip == "" {
			return fmt.Errorf("shot %d has no clip", shot.Number)
		}
		clips = append(clips, clip)
	}
	if len(clips) == 0 {
		return fmt.Errorf("no clips to assemble")
	}

	path, err := e.retryCall(ctx, func() (string, error) {
		return e.tools.Assembler.Assemble(ctx, clips, outDir)
	})
	if err != nil {
		return fmt.Errorf("assembly failed: %w", err)
	}

	state.FinalCutPath = path
	return e.ckpt.Save(state)
}
