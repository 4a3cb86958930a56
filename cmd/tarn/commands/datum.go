package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dyluth/tarn/internal/creel"
	"github.com/dyluth/tarn/internal/printer"
	"github.com/dyluth/tarn/internal/timespec"
	"github.com/dyluth/tarn/pkg/lake"
)

var (
	datumOutputFormat string
	datumSince        string
	datumUntil        string
	datumKind         string
	datumRootsOnly    bool
)

var datumCmd = &cobra.Command{
	Use:   "datum [DATUM_ID]",
	Short: "Inspect lake datums with filtering",
	Long: `Inspect lake datums in list or get mode.

List Mode (no DATUM_ID):
  Displays datums matching filters as a table or JSONL stream, in insert
  order.

Get Mode (with DATUM_ID):
  Displays complete details of a single datum as pretty-printed JSON.
  External payloads are materialized from their registry.

Output Formats (list mode only):
  default - Human-readable table with ID, kind, location and payload
  jsonl   - Line-delimited JSON, one datum per line

Time Filters (list mode only):
  --since  - Show datums added after this time
  --until  - Show datums added before this time

Content Filters (list mode only):
  --kind   - Filter by the metadata.kind field (exact match)
  --roots  - Only base datums with no derived_from parent

Examples:
  # List all datums
  tarn datum

  # Filter by kind and time
  tarn datum --kind=image --since=2h

  # Get datums as JSONL for piping to jq
  tarn datum --output=jsonl | jq 'select(.location.kind=="external") | .id'

  # Get a specific datum
  tarn datum a1b2c3d4-e5f6-7890-abcd-ef1234567890`,
	RunE: runDatum,
}

func init() {
	datumCmd.Flags().StringVarP(&datumOutputFormat, "output", "o", "default", "Output format: default or jsonl (ignored in get mode)")

	// Time-based filters
	datumCmd.Flags().StringVar(&datumSince, "since", "", "Show datums added after time (duration or RFC3339)")
	datumCmd.Flags().StringVar(&datumUntil, "until", "", "Show datums added before time (duration or RFC3339)")

	// Content-based filters
	datumCmd.Flags().StringVar(&datumKind, "kind", "", "Filter by metadata.kind (exact match)")
	datumCmd.Flags().BoolVar(&datumRootsOnly, "roots", false, "Only datums with no derived_from parent")

	rootCmd.AddCommand(datumCmd)
}

func runDatum(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	isGetMode := len(args) > 0

	var outputFormat creel.OutputFormat
	if !isGetMode {
		switch datumOutputFormat {
		case "default":
			outputFormat = creel.OutputFormatDefault
		case "jsonl":
			outputFormat = creel.OutputFormatJSONL
		default:
			return printer.Error(
				"invalid output format",
				fmt.Sprintf("Unknown format: %s", datumOutputFormat),
				[]string{"Valid formats: default, jsonl"},
			)
		}
	}

	env, err := openLake(ctx)
	if err != nil {
		return err
	}
	defer env.Close()

	if isGetMode {
		if err := creel.GetDatum(ctx, env.router, args[0], cmd.OutOrStdout()); err != nil {
			if lake.IsNotFound(err) {
				return printer.Error(
					fmt.Sprintf("datum with ID '%s' not found", args[0]),
					"The specified datum does not exist in this lake instance.",
					[]string{
						"List all datums:\n  tarn datum",
						fmt.Sprintf("Check the instance in %s", configPath),
					},
				)
			}
			return err
		}
		return nil
	}

	sinceMS, untilMS, err := timespec.ParseRange(datumSince, datumUntil)
	if err != nil {
		return printer.Error(
			"invalid time filter",
			err.Error(),
			[]string{"Use duration format like '1h30m' or RFC3339 like '2026-08-24T13:00:00Z'"},
		)
	}

	filterCriteria := &creel.FilterCriteria{
		SinceTimestampMs: sinceMS,
		UntilTimestampMs: untilMS,
		Kind:             datumKind,
		RootsOnly:        datumRootsOnly,
	}

	return creel.ListDatums(ctx, env.store, env.cfg.Instance, outputFormat, filterCriteria, cmd.OutOrStdout())
}
