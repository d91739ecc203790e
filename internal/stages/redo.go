package stages

import (
	"fmt"

	"github.com/kweiss/reelsmith/internal/types"
)

// ItemType identifies what kind of artifact an ItemSpec targets.
type ItemType string

// Item types accepted by RedoItem.
const (
	ItemAsset      ItemType = "asset"
	ItemStartFrame ItemType = "start_frame"
	ItemEndFrame   ItemType = "end_frame"
	ItemFramePair  ItemType = "frame_pair"
	ItemVideo      ItemType = "video"
)

// ItemSpec identifies a single produced artifact for fine-grained redo.
// Key is used for assets, Shot for frames and videos.
type ItemSpec struct {
	Type ItemType `json:"type"`
	Key  string   `json:"key,omitempty"`
	Shot int      `json:"shot,omitempty"`
}

// RedoItem deletes the targeted artifact reference and cascades to its
// dependents:
//
//   - a front asset image takes its derived angle image with it; an
//     angle image goes alone
//   - a start frame invalidates its end frame and the shot's video; an
//     end frame invalidates only the video
//   - a video invalidates nothing else at item level
//   - assembly depends on every video, so any invalidation clears the
//     final cut
//
// Every stage whose output the cascade touched (and, to preserve stage
// ordering, every stage after the earliest touched one) is removed from
// CompletedStages, and CurrentStage is set to the earliest affected
// stage.
func RedoItem(state *types.RunState, spec ItemSpec) error {
	var earliest types.Stage

	switch spec.Type {
	case ItemAsset:
		kind, name, view, err := types.ParseAssetKey(spec.Key)
		if err != nil {
			return err
		}
		delete(state.GeneratedAssets, spec.Key)
		if view == types.ViewFront {
			// The angle image is derived from the front image by
			// reference, so it must be re-derived too.
			delete(state.GeneratedAssets, types.AssetKey(kind, name, types.ViewAngle))
		}
		RebuildAssetLibrary(state)
		earliest = types.StageAssetGeneration

	case ItemStartFrame:
		pair := state.GeneratedFrames[spec.Shot]
		if pair != nil {
			pair.Start = ""
			pair.End = ""
		}
		delete(state.GeneratedVideos, spec.Shot)
		earliest = types.StageFrameGeneration

	case ItemEndFrame:
		if pair := state.GeneratedFrames[spec.Shot]; pair != nil {
			pair.End = ""
		}
		delete(state.GeneratedVideos, spec.Shot)
		earliest = types.StageFrameGeneration

	case ItemFramePair:
		delete(state.GeneratedFrames, spec.Shot)
		delete(state.GeneratedVideos, spec.Shot)
		earliest = types.StageFrameGeneration

	case ItemVideo:
		// Frames are upstream of the video and stay untouched.
		delete(state.GeneratedVideos, spec.Shot)
		earliest = types.StageVideoGeneration

	default:
		return fmt.Errorf("unknown redo item type %q", spec.Type)
	}

	// Any upstream invalidation implicitly invalidates assembly.
	state.FinalCutPath = ""

	clearCompletedFrom(state, earliest)
	state.CurrentStage = earliest
	return nil
}

// RebuildAssetLibrary re-derives the "kind:name" → front-image lookup
// from GeneratedAssets.
func RebuildAssetLibrary(state *types.RunState) {
	lib := map[string]string{}
	for key, path := range state.GeneratedAssets {
		kind, name, view, err := types.ParseAssetKey(key)
		if err != nil || view != types.ViewFront {
			continue
		}
		lib[string(kind)+":"+name] = path
	}
	if len(lib) == 0 {
		state.AssetLibrary = nil
		return
	}
	state.AssetLibrary = lib
}
