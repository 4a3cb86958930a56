package creel

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/dyluth/tarn/pkg/lake"
)

// RunQuery loads a derivation query spec from a YAML file, runs it through
// the engine, and writes the results to the writer.
//
// Output depends on the spec: by default each result row prints as a table
// line of datum IDs under the stage column headers; with transpose: true
// the column-to-ID-list map prints as pretty JSON, the shape pipeline code
// consumes. The jsonl format prints each row as one JSON object per line.
func RunQuery(ctx context.Context, engine *lake.QueryEngine, specPath string, format OutputFormat, w io.Writer) error {
	spec, err := lake.LoadQuerySpec(specPath)
	if err != nil {
		return err
	}
	stages, err := spec.CompileStages()
	if err != nil {
		return fmt.Errorf("invalid query spec %s: %w", specPath, err)
	}

	rows, err := engine.QueryData(ctx, stages, spec.Limit)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	if spec.Transpose {
		data, err := json.MarshalIndent(lake.Transpose(stages, rows), "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal transposed result: %w", err)
		}
		if _, err := w.Write(data); err != nil {
			return fmt.Errorf("failed to write query output: %w", err)
		}
		fmt.Fprintln(w)
		return nil
	}

	switch format {
	case OutputFormatDefault:
		formatRowTable(w, stages, rows)
	case OutputFormatJSONL:
		for _, row := range rows {
			data, err := json.Marshal(row)
			if err != nil {
				return fmt.Errorf("failed to marshal result row: %w", err)
			}
			if _, err := fmt.Fprintf(w, "%s\n", string(data)); err != nil {
				return fmt.Errorf("failed to write query output: %w", err)
			}
		}
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}

	return nil
}

// formatRowTable prints result rows as a table with one column per stage.
// Missing stages assign no IDs, so their columns are skipped. IDs print in
// full so the output can feed other commands.
func formatRowTable(w io.Writer, stages []lake.StageSpec, rows []lake.Row) {
	if len(rows) == 0 {
		fmt.Fprintf(w, "No rows matched\n")
		return
	}

	columns := make([]string, 0, len(stages))
	for _, stage := range stages {
		if stage.Strategy == lake.StrategyMissing {
			continue
		}
		columns = append(columns, stage.Column)
	}

	for _, col := range columns {
		fmt.Fprintf(w, "%-38s", col)
	}
	fmt.Fprintln(w)
	for range columns {
		fmt.Fprintf(w, "%-38s", "------------------------------------")
	}
	fmt.Fprintln(w)

	for _, row := range rows {
		for _, col := range columns {
			fmt.Fprintf(w, "%-38s", row[col])
		}
		fmt.Fprintln(w)
	}

	countMsg := "row"
	if len(rows) != 1 {
		countMsg = "rows"
	}
	fmt.Fprintf(w, "\n%d %s found\n", len(rows), countMsg)
}
