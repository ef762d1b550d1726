package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"resurface-backend/internal/config"
)

var rebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Recompute the full relationship graph from the content pool",
	RunE:  runRebuild,
}

func runRebuild(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	app, err := BuildApp(cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	ctx := context.Background()
	if err := app.Service.RebuildGraph(ctx); err != nil {
		return err
	}

	stats := app.Service.RelationshipStats()
	fmt.Printf("rebuilt %d relationships (mean strength %.2f)\n",
		stats.Graph.Total, stats.Graph.MeanStrength)
	return nil
}
