package executor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kweiss/reelsmith/internal/types"
)

// SimPlanner is a deterministic planner used by --simulate runs and
// tests. It ignores the model entirely and expands any brief into a
// small fixed two-scene story.
type SimPlanner struct {
	// Delay is inserted before each planning call so interruption
	// behavior can be exercised. Zero means no delay.
	Delay time.Duration
}

// AnalyzeStory returns a fixed two-scene story derived from the brief.
func (p *SimPlanner) AnalyzeStory(ctx context.Context, brief string, instructions []string) (*AnalysisResult, error) {
	if err := p.wait(ctx); err != nil {
		return nil, err
	}
	logline := strings.TrimSpace(brief)
	if logline == "" {
		logline = "A quiet day takes an unexpected turn."
	}
	return &AnalysisResult{
		Title:    "Simulated Story",
		ArtStyle: "flat vector illustration, bold shapes",
		Logline:  logline,
		Characters: []ResultCharacter{
			{Name: "Mara", Description: "A curious cartographer with a red scarf"},
			{Name: "Otis", Description: "A slow-moving tortoise with a brass compass"},
		},
		Locations: []ResultLocation{
			{Name: "Lighthouse", Description: "A weathered lighthouse on a chalk cliff"},
			{Name: "Harbor", Description: "A small fishing harbor at dawn"},
		},
		Scenes: []ResultScene{
			{Number: 1, Title: "The Map", Location: "Lighthouse", Description: "Mara finds an unfinished map in the lighthouse"},
			{Number: 2, Title: "Setting Out", Location: "Harbor", Description: "Mara and Otis leave the harbor to finish the map"},
		},
	}, nil
}

// PlanShots returns two shots per scene with globally sequential
// numbers.
func (p *SimPlanner) PlanShots(ctx context.Context, analysis *types.StoryAnalysis, instructions []string) (*ShotPlanResult, error) {
	if err := p.wait(ctx); err != nil {
		return nil, err
	}
	result := &ShotPlanResult{}
	number := 0
	for _, scene := range analysis.Scenes {
		planned := PlannedScene{Number: scene.Number}
		for i := 0; i < 2; i++ {
			number++
			planned.Shots = append(planned.Shots, PlannedShot{
				Number:          number,
				Description:     fmt.Sprintf("%s, beat %d", scene.Description, i+1),
				Characters:      characterNames(analysis),
				Location:        scene.Location,
				CameraMovement:  "static",
				DurationSeconds: 4,
				StartFrame:      fmt.Sprintf("Opening composition of shot %d", number),
				EndFrame:        fmt.Sprintf("Closing composition of shot %d", number),
			})
		}
		result.Scenes = append(result.Scenes, planned)
	}
	return result, nil
}

func (p *SimPlanner) wait(ctx context.Context) error {
	if p.Delay <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(p.Delay):
		return nil
	}
}

func characterNames(analysis *types.StoryAnalysis) []string {
	names := make([]string, 0, len(analysis.Characters))
	for _, c := range analysis.Characters {
		names = append(names, c.Name)
	}
	return names
}

// SimTools implements the media tool ports by writing small placeholder
// files into the run workspace. Output paths follow the same naming as
// the real tools so downstream code is exercised unchanged.
type SimTools struct {
	// Delay is inserted before each generation call. Zero means no
	// delay.
	Delay time.Duration
}

// NewSimTools returns a Tools bundle backed by placeholder generators.
// The verifier slot is left nil.
func NewSimTools(delay time.Duration) Tools {
	sim := &SimTools{Delay: delay}
	return Tools{Images: sim, Videos: sim, Assembler: sim}
}

// GenerateReference writes a placeholder front reference image.
func (t *SimTools) GenerateReference(ctx context.Context, spec RefSpec) (string, error) {
	name := fmt.Sprintf("%s_%s_front.png", spec.Kind, slug(spec.Name))
	return t.write(ctx, spec.OutDir, name, "reference: "+spec.Description)
}

// GenerateAngle writes a placeholder alternate-angle image.
func (t *SimTools) GenerateAngle(ctx context.Context, frontPath string, spec RefSpec) (string, error) {
	name := fmt.Sprintf("%s_%s_angle.png", spec.Kind, slug(spec.Name))
	return t.write(ctx, spec.OutDir, name, "angle of: "+frontPath)
}

// GenerateFrame writes a placeholder keyframe.
func (t *SimTools) GenerateFrame(ctx context.Context, spec FrameSpec) (string, error) {
	which := "start"
	if !spec.Start {
		which = "end"
	}
	name := fmt.Sprintf("shot_%03d_%s.png", spec.Shot.Number, which)
	return t.write(ctx, spec.OutDir, name, "frame: "+spec.Shot.Description)
}

// GenerateClip writes a placeholder clip.
func (t *SimTools) GenerateClip(ctx context.Context, spec ClipSpec) (string, error) {
	name := fmt.Sprintf("shot_%03d.mp4", spec.Shot.Number)
	return t.write(ctx, spec.OutDir, name, "clip: "+spec.StartFrame+" -> "+spec.EndFrame)
}

// Assemble writes a placeholder final cut listing the clips in order.
func (t *SimTools) Assemble(ctx context.Context, clips []string, outDir string) (string, error) {
	return t.write(ctx, outDir, "final_cut.mp4", strings.Join(clips, "\n"))
}

func (t *SimTools) write(ctx context.Context, dir, name, content string) (string, error) {
	if t.Delay > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(t.Delay):
		}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content+"\n"), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func slug(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var sb strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			sb.WriteRune(r)
		case r == ' ', r == '-', r == '_':
			sb.WriteByte('_')
		}
	}
	return sb.String()
}
