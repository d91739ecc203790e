package checkpoint

import (
	"fmt"
	"strings"

	"github.com/kweiss/reelsmith/internal/types"
)

// RenderPlan renders the human-readable Markdown snapshot of the current
// plan: story structure plus per-item artifact status.
func RenderPlan(state *types.RunState) string {
	var sb strings.Builder

	a := state.StoryAnalysis
	if a == nil {
		sb.WriteString("# (no plan yet)\n\n")
		sb.WriteString(fmt.Sprintf("Current stage: %s\n", state.CurrentStage))
		return sb.String()
	}

	sb.WriteString(fmt.Sprintf("# %s\n\n", orUntitled(a.Title)))
	if a.Logline != "" {
		sb.WriteString(a.Logline + "\n\n")
	}
	if a.ArtStyle != "" {
		sb.WriteString(fmt.Sprintf("**Art style:** %s\n\n", a.ArtStyle))
	}

	sb.WriteString(fmt.Sprintf("**Progress:** %d/%d stages (current: %s)\n\n",
		len(state.CompletedStages), types.StageCount, state.CurrentStage))

	if len(a.Characters) > 0 {
		sb.WriteString("## Characters\n\n")
		for _, c := range a.Characters {
			sb.WriteString(fmt.Sprintf("- **%s** — %s%s\n", c.Name, c.Description,
				assetMark(state, types.KindCharacter, c.Name)))
		}
		sb.WriteString("\n")
	}

	if len(a.Locations) > 0 {
		sb.WriteString("## Locations\n\n")
		for _, l := range a.Locations {
			sb.WriteString(fmt.Sprintf("- **%s** — %s%s\n", l.Name, l.Description,
				assetMark(state, types.KindLocation, l.Name)))
		}
		sb.WriteString("\n")
	}

	for _, scene := range a.Scenes {
		sb.WriteString(fmt.Sprintf("## Scene %d", scene.Number))
		if scene.Title != "" {
			sb.WriteString(": " + scene.Title)
		}
		sb.WriteString("\n\n")
		if scene.Description != "" {
			sb.WriteString(scene.Description + "\n\n")
		}
		for _, shot := range scene.Shots {
			sb.WriteString(fmt.Sprintf("- Shot %d: %s [%s]\n",
				shot.Number, shot.Description, shotStatus(state, shot.Number)))
		}
		if len(scene.Shots) > 0 {
			sb.WriteString("\n")
		}
	}

	if state.FinalCutPath != "" {
		sb.WriteString(fmt.Sprintf("**Final cut:** %s\n", state.FinalCutPath))
	}

	return sb.String()
}

func orUntitled(title string) string {
	if title == "" {
		return "Untitled"
	}
	return title
}

func assetMark(state *types.RunState, kind types.AssetKind, name string) string {
	front := state.GeneratedAssets[types.AssetKey(kind, name, types.ViewFront)]
	angle := state.GeneratedAssets[types.AssetKey(kind, name, types.ViewAngle)]
	switch {
	case front != "" && angle != "":
		return " ✓"
	case front != "":
		return " (front only)"
	default:
		return ""
	}
}

func shotStatus(state *types.RunState, shot int) string {
	var parts []string
	if pair := state.GeneratedFrames[shot]; pair != nil {
		if pair.Start != "" {
			parts = append(parts, "start")
		}
		if pair.End != "" {
			parts = append(parts, "end")
		}
	}
	if state.GeneratedVideos[shot] != "" {
		parts = append(parts, "video")
	}
	if len(parts) == 0 {
		return "pending"
	}
	return strings.Join(parts, "+")
}
