// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/kweiss/reelsmith/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		// Truncate long lines
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintStoryAnalysis outputs a human-readable summary of the analyzed
// story.
func (p *Printer) PrintStoryAnalysis(story *types.StoryAnalysis) {
	if story == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Title:    %s\n", story.Title))
	sb.WriteString(fmt.Sprintf("Style:    %s\n", story.ArtStyle))
	sb.WriteString(fmt.Sprintf("Logline:  %s\n", story.Logline))
	sb.WriteString("\n")

	if len(story.Characters) > 0 {
		sb.WriteString("Characters:\n")
		count := min(len(story.Characters), maxItemsToShow)
		for i := 0; i < count; i++ {
			sb.WriteString(fmt.Sprintf("  • %s\n", story.Characters[i].Name))
		}
		if len(story.Characters) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(story.Characters)-maxItemsToShow))
		}
		sb.WriteString("\n")
	}

	if len(story.Scenes) > 0 {
		sb.WriteString("Scenes:\n")
		for _, scene := range story.Scenes {
			sb.WriteString(fmt.Sprintf("  %d. %s (%s)\n", scene.Number, scene.Title, scene.Location))
		}
	}

	p.printBox("STORY ANALYSIS", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintShotPlan outputs the per-scene shot breakdown.
func (p *Printer) PrintShotPlan(story *types.StoryAnalysis) {
	if story == nil {
		return
	}

	var sb strings.Builder
	for _, scene := range story.Scenes {
		sb.WriteString(fmt.Sprintf("Scene %d: %s\n", scene.Number, scene.Title))
		for _, shot := range scene.Shots {
			sb.WriteString(fmt.Sprintf("  #%d %.1fs %s\n", shot.Number, shot.DurationSeconds, shot.CameraMovement))
		}
	}

	p.printBox("SHOT PLAN", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintProgress outputs the run's stage and item progress.
func (p *Printer) PrintProgress(state *types.RunState) {
	if state == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Stage:    %s\n", state.CurrentStage))
	sb.WriteString(fmt.Sprintf("Progress: %.0f%%\n", state.Progress()*100))

	done := make(map[types.Stage]bool, len(state.CompletedStages))
	for _, st := range state.CompletedStages {
		done[st] = true
	}
	for _, st := range types.StageOrder {
		mark := " "
		if done[st] {
			mark = "x"
		}
		sb.WriteString(fmt.Sprintf("  [%s] %s\n", mark, st))
	}

	if state.StoryAnalysis != nil {
		shots := state.StoryAnalysis.AllShots()
		frames := 0
		for _, shot := range shots {
			if pair := state.GeneratedFrames[shot.Number]; pair != nil && pair.Start != "" && pair.End != "" {
				frames++
			}
		}
		clips := 0
		for _, shot := range shots {
			if state.GeneratedVideos[shot.Number] != "" {
				clips++
			}
		}
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("Assets:   %d\n", len(state.GeneratedAssets)))
		sb.WriteString(fmt.Sprintf("Frames:   %d/%d shots\n", frames, len(shots)))
		sb.WriteString(fmt.Sprintf("Clips:    %d/%d shots\n", clips, len(shots)))
	}
	if state.FinalCutPath != "" {
		sb.WriteString(fmt.Sprintf("Final:    %s\n", state.FinalCutPath))
	}

	p.printBox("RUN PROGRESS", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintErrors outputs the run's recorded errors, most recent last.
func (p *Printer) PrintErrors(state *types.RunState) {
	if state == nil || len(state.Errors) == 0 {
		return
	}

	var sb strings.Builder
	start := 0
	if len(state.Errors) > maxItemsToShow {
		start = len(state.Errors) - maxItemsToShow
		sb.WriteString(fmt.Sprintf("(%d earlier errors omitted)\n", start))
	}
	for _, rec := range state.Errors[start:] {
		if rec.Shot != nil {
			sb.WriteString(fmt.Sprintf("  %s shot %d: %s\n", rec.Stage, *rec.Shot, rec.Error))
		} else {
			sb.WriteString(fmt.Sprintf("  %s: %s\n", rec.Stage, rec.Error))
		}
	}

	p.printBox("ERRORS", strings.TrimSuffix(sb.String(), "\n"))
}
