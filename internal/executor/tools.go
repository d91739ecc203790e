// Package executor implements the stage executor boundary: for each
// pipeline stage it turns the run state's needed work into calls on a
// planner (reasoning model) and media tool ports, mutating the state and
// checkpointing partial progress as it goes. The concrete AI/media
// integrations live behind the interfaces here; the pipeline core never
// sees them.
package executor

import (
	"context"

	"github.com/kweiss/reelsmith/internal/types"
)

// RefSpec describes one reference image to generate.
type RefSpec struct {
	Kind         types.AssetKind
	Name         string
	Description  string
	ArtStyle     string
	OutDir       string
	Instructions []string
}

// FrameSpec describes one keyframe to generate.
type FrameSpec struct {
	Shot     types.Shot
	Start    bool // true for the start frame, false for the end frame
	ArtStyle string
	// References maps "kind:name" to reference-image paths for the
	// characters and location appearing in the shot.
	References map[string]string
	// StartFramePath is set when generating an end frame so it can be
	// derived from the start frame.
	StartFramePath string
	OutDir         string
	Instructions   []string
}

// ClipSpec describes one shot video to generate. Clips are produced in
// shot order because later shots may reference earlier outputs.
type ClipSpec struct {
	Shot         types.Shot
	StartFrame   string
	EndFrame     string
	ArtStyle     string
	PrevClip     string
	OutDir       string
	Instructions []string
}

// ImageGenerator produces reference images and keyframes.
type ImageGenerator interface {
	// GenerateReference produces the front reference image for a
	// character or location.
	GenerateReference(ctx context.Context, spec RefSpec) (string, error)
	// GenerateAngle derives an alternate-angle image from the front
	// reference.
	GenerateAngle(ctx context.Context, frontPath string, spec RefSpec) (string, error)
	// GenerateFrame produces a start or end keyframe for a shot.
	GenerateFrame(ctx context.Context, spec FrameSpec) (string, error)
}

// VideoGenerator produces a clip for a shot from its keyframes.
type VideoGenerator interface {
	GenerateClip(ctx context.Context, spec ClipSpec) (string, error)
}

// Assembler concatenates the ordered clips into the final cut.
type Assembler interface {
	Assemble(ctx context.Context, clips []string, outDir string) (string, error)
}

// Verifier optionally quality-checks produced artifacts. A nil Verifier
// skips verification.
type Verifier interface {
	VerifyFrame(ctx context.Context, path string, spec FrameSpec) (types.Verification, error)
	VerifyClip(ctx context.Context, path string, spec ClipSpec) (types.Verification, error)
}

// Tools bundles the media tool ports handed to the executor.
type Tools struct {
	Images    ImageGenerator
	Videos    VideoGenerator
	Assembler Assembler
	Verifier  Verifier
}
