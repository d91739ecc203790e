package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kweiss/reelsmith/internal/config"
	"github.com/kweiss/reelsmith/internal/observability"
	"github.com/kweiss/reelsmith/internal/types"
)

var (
	runConfigPath string
	runBrief      string
	runBriefFile  string
	runTitle      string
	runSimulate   bool
	runVerbose    bool
)

var runCommand = &cobra.Command{
	Use:   "run",
	Short: "Run the full generation pipeline end-to-end",
	Long: `Creates a run from a creative brief and drives it through every stage: analysis -> shot planning -> assets -> keyframes -> clips -> assembly.

Interrupting with Ctrl-C checkpoints progress; re-running against the same workspace resumes where it left off.`,
	RunE: runPipelineCmd,
}

func init() {
	runCommand.Flags().StringVar(&runConfigPath, "config", "", "Path to YAML config file")
	runCommand.Flags().StringVarP(&runBrief, "brief", "b", "", "Creative brief text (mutually exclusive with --brief-file)")
	runCommand.Flags().StringVar(&runBriefFile, "brief-file", "", "Path to a file containing the creative brief")
	runCommand.Flags().StringVarP(&runTitle, "title", "t", "", "Working title for the run")
	runCommand.Flags().BoolVar(&runSimulate, "simulate", false, "Use placeholder planner and media tools")
	runCommand.Flags().BoolVarP(&runVerbose, "verbose", "v", false, "Print detailed progress information")
	rootCmd.AddCommand(runCommand)
}

func runPipelineCmd(_ *cobra.Command, _ []string) error {
	if runBrief != "" && runBriefFile != "" {
		return fmt.Errorf("--brief and --brief-file are mutually exclusive")
	}
	brief := runBrief
	if runBriefFile != "" {
		data, err := os.ReadFile(runBriefFile)
		if err != nil {
			return fmt.Errorf("failed to read brief file: %w", err)
		}
		brief = string(data)
	}
	if brief == "" {
		return fmt.Errorf("a creative brief is required (--brief or --brief-file)")
	}

	if runSimulate {
		if err := os.Setenv("SIMULATE", "true"); err != nil {
			return err
		}
	}
	cfg, err := config.Load(runConfigPath)
	if err != nil {
		return err
	}
	// The CLI has no review client; runs go straight through.
	cfg.ReviewGate = false

	ctx := context.Background()
	c, err := build(ctx, cfg)
	if err != nil {
		return err
	}
	defer c.Close()

	rec, err := c.Manager.CreateRun(ctx, runTitle, brief)
	if err != nil {
		return err
	}
	fmt.Printf("Run %s created (workspace %s)\n", rec.ID, rec.OutputDir)

	if err := c.Manager.Start(ctx, rec.ID); err != nil {
		return err
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	printer := observability.NewPrinter(os.Stdout)
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	lastStage := types.Stage("")
	for {
		select {
		case <-stop:
			fmt.Println("\nInterrupting; progress is checkpointed...")
			c.Manager.Shutdown()
			fmt.Println("Stopped. Re-run against the same workspace to resume.")
			return nil
		case <-ticker.C:
		}

		cur, err := c.Registry.Get(ctx, rec.ID)
		if err != nil {
			return err
		}

		if runVerbose && cur.CurrentStage != lastStage {
			lastStage = cur.CurrentStage
			if state, err := c.Checkpoints.Load(rec.ID.String()); err == nil {
				switch cur.CurrentStage {
				case types.StageShotPlanning:
					printer.PrintStoryAnalysis(state.StoryAnalysis)
				case types.StageAssetGeneration:
					printer.PrintShotPlan(state.StoryAnalysis)
				default:
					printer.PrintProgress(state)
				}
			}
		}

		switch cur.Status {
		case types.StatusCompleted:
			state, err := c.Checkpoints.Load(rec.ID.String())
			if err != nil {
				return err
			}
			printer.PrintProgress(state)
			fmt.Printf("Final cut: %s\n", state.FinalCutPath)
			return nil
		case types.StatusFailed:
			if state, err := c.Checkpoints.Load(rec.ID.String()); err == nil {
				printer.PrintErrors(state)
			}
			return fmt.Errorf("run failed: %s", cur.Error)
		}
	}
}
