package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kweiss/reelsmith/internal/llm"
	"github.com/kweiss/reelsmith/internal/prompts"
	"github.com/kweiss/reelsmith/internal/schemas"
	"github.com/kweiss/reelsmith/internal/types"
)

// Planner produces the reasoning-stage outputs: the story analysis and
// the shot plan. Instructions are free-form user notes queued against
// the stage; the planner folds them into its prompts.
type Planner interface {
	AnalyzeStory(ctx context.Context, brief string, instructions []string) (*AnalysisResult, error)
	PlanShots(ctx context.Context, analysis *types.StoryAnalysis, instructions []string) (*ShotPlanResult, error)
}

// GeminiPlanner implements Planner on top of the Gemini client. Model
// output is schema-validated before being decoded, so a malformed
// response fails the stage instead of corrupting state.
type GeminiPlanner struct {
	client llm.Client
}

// NewGeminiPlanner creates a planner backed by the given LLM client.
func NewGeminiPlanner(client llm.Client) *GeminiPlanner {
	return &GeminiPlanner{client: client}
}

// AnalyzeStory runs the analysis prompt on the advanced tier.
func (p *GeminiPlanner) AnalyzeStory(ctx context.Context, brief string, instructions []string) (*AnalysisResult, error) {
	prompt := prompts.Format(prompts.MustGet("planning.json", "story_analysis"), map[string]string{
		"Brief": brief,
		"Notes": renderNotes(instructions),
	})

	raw, err := p.client.GenerateJSON(ctx, prompt, llm.TierAdvanced)
	if err != nil {
		return nil, fmt.Errorf("story analysis generation failed: %w", err)
	}

	if err := schemas.ValidateAnalysis(raw); err != nil {
		return nil, fmt.Errorf("story analysis rejected: %w", err)
	}

	var result AnalysisResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return nil, fmt.Errorf("failed to decode story analysis: %w", err)
	}
	if err := result.Validate(); err != nil {
		return nil, fmt.Errorf("story analysis rejected: %w", err)
	}
	return &result, nil
}

// PlanShots runs the shot-planning prompt on the standard tier.
func (p *GeminiPlanner) PlanShots(ctx context.Context, analysis *types.StoryAnalysis, instructions []string) (*ShotPlanResult, error) {
	analysisJSON, err := json.MarshalIndent(analysis, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode story analysis: %w", err)
	}

	prompt := prompts.Format(prompts.MustGet("planning.json", "shot_plan"), map[string]string{
		"Analysis": string(analysisJSON),
		"Notes":    renderNotes(instructions),
	})

	raw, err := p.client.GenerateJSON(ctx, prompt, llm.TierStandard)
	if err != nil {
		return nil, fmt.Errorf("shot planning generation failed: %w", err)
	}

	if err := schemas.ValidateShotPlan(raw); err != nil {
		return nil, fmt.Errorf("shot plan rejected: %w", err)
	}

	var result ShotPlanResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return nil, fmt.Errorf("failed to decode shot plan: %w", err)
	}
	if err := result.Validate(); err != nil {
		return nil, fmt.Errorf("shot plan rejected: %w", err)
	}
	return &result, nil
}

// renderNotes folds queued user instructions into the notes prompt
// fragment. No instructions renders as an empty string.
func renderNotes(instructions []string) string {
	if len(instructions) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, ins := range instructions {
		sb.WriteString("- ")
		sb.WriteString(ins)
		sb.WriteString("\n")
	}
	return prompts.Format(prompts.MustGet("planning.json", "user_notes"), map[string]string{
		"Items": sb.String(),
	})
}
