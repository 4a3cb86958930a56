package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dyluth/tarn/internal/creel"
	"github.com/dyluth/tarn/internal/printer"
	"github.com/dyluth/tarn/pkg/lake"
)

var lineageCmd = &cobra.Command{
	Use:   "lineage DATUM_ID",
	Short: "Show the derivation tree rooted at a datum",
	Long: `Show every datum transitively derived from the given one, rendered
as a tree in breadth-first discovery order.

Examples:
  # Show everything derived from a base image
  tarn lineage a1b2c3d4-e5f6-7890-abcd-ef1234567890`,
	Args: cobra.ExactArgs(1),
	RunE: runLineage,
}

func init() {
	rootCmd.AddCommand(lineageCmd)
}

func runLineage(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	env, err := openLake(ctx)
	if err != nil {
		return err
	}
	defer env.Close()

	graph := lake.NewDerivationGraph(env.store)
	if err := creel.RenderLineage(ctx, graph, env.store, args[0], cmd.OutOrStdout()); err != nil {
		if lake.IsNotFound(err) {
			return printer.Error(
				fmt.Sprintf("datum with ID '%s' not found", args[0]),
				"The specified datum does not exist in this lake instance.",
				[]string{"List all datums:\n  tarn datum"},
			)
		}
		return err
	}
	return nil
}
