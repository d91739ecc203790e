package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/kweiss/reelsmith/internal/config"
	"github.com/kweiss/reelsmith/internal/observability"
)

var runsConfigPath string

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List runs in the registry",
	RunE:  listRunsCmd,
}

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show one run's progress from its checkpoint",
	Args:  cobra.ExactArgs(1),
	RunE:  showRunCmd,
}

func init() {
	runsCmd.PersistentFlags().StringVar(&runsConfigPath, "config", "", "Path to YAML config file")
	runsCmd.AddCommand(runsShowCmd)
	rootCmd.AddCommand(runsCmd)
}

// loadForInspection builds read-only components; simulate mode is forced
// so no API key is needed to look at local state.
func loadForInspection(ctx context.Context) (*components, error) {
	if err := os.Setenv("SIMULATE", "true"); err != nil {
		return nil, err
	}
	cfg, err := config.Load(runsConfigPath)
	if err != nil {
		return nil, err
	}
	return build(ctx, cfg)
}

func listRunsCmd(_ *cobra.Command, _ []string) error {
	ctx := context.Background()
	c, err := loadForInspection(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	recs, err := c.Registry.List(ctx)
	if err != nil {
		return err
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].CreatedAt.Before(recs[j].CreatedAt) })

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tSTAGE\tTITLE\tCREATED")
	for _, rec := range recs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			rec.ID, rec.Status, rec.CurrentStage, rec.Title, rec.CreatedAt.Format("2006-01-02 15:04"))
	}
	return w.Flush()
}

func showRunCmd(_ *cobra.Command, args []string) error {
	id, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid run id: %w", err)
	}

	ctx := context.Background()
	c, err := loadForInspection(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	rec, err := c.Registry.Get(ctx, id)
	if err != nil {
		return err
	}
	fmt.Printf("Run %s: %s (%s)\n", rec.ID, rec.Status, rec.OutputDir)
	if rec.Error != "" {
		fmt.Printf("Error: %s\n", rec.Error)
	}

	state, err := c.Checkpoints.Load(id.String())
	if err != nil {
		return err
	}

	printer := observability.NewPrinter(os.Stdout)
	printer.PrintProgress(state)
	printer.PrintErrors(state)
	return nil
}
