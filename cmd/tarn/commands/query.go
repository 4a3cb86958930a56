package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dyluth/tarn/internal/creel"
	"github.com/dyluth/tarn/internal/printer"
	"github.com/dyluth/tarn/pkg/lake"
)

var (
	querySpecPath     string
	queryOutputFormat string
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Run a multi-stage derivation query from a YAML spec",
	Long: `Run a derivation query described by a YAML spec file: an ordered
list of stages, each with a filter, a column name, a selection strategy and
(after the first stage) the earlier column its candidates must derive from.

Each result row is one base datum that survived every stage. With
"transpose: true" in the spec, output is the column-to-ID-list map instead.

Example spec:
  stages:
    - column: image
      filter:
        metadata.kind: image
    - column: classification
      derived_from: image
      strategy: latest
      filter:
        metadata.score: {$gte: 0.5}
  limit: 3

Examples:
  tarn query -f query.yml
  tarn query -f query.yml --output=jsonl | jq .image`,
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().StringVarP(&querySpecPath, "file", "f", "", "Path to the query spec YAML file (required)")
	queryCmd.Flags().StringVarP(&queryOutputFormat, "output", "o", "default", "Output format: default or jsonl")
	queryCmd.MarkFlagRequired("file")

	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	var outputFormat creel.OutputFormat
	switch queryOutputFormat {
	case "default":
		outputFormat = creel.OutputFormatDefault
	case "jsonl":
		outputFormat = creel.OutputFormatJSONL
	default:
		return printer.Error(
			"invalid output format",
			fmt.Sprintf("Unknown format: %s", queryOutputFormat),
			[]string{"Valid formats: default, jsonl"},
		)
	}

	env, err := openLake(ctx)
	if err != nil {
		return err
	}
	defer env.Close()

	engine := lake.NewQueryEngine(env.store)
	return creel.RunQuery(ctx, engine, querySpecPath, outputFormat, cmd.OutOrStdout())
}
