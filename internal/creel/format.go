package creel

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dyluth/tarn/pkg/lake"
)

// FormatTable writes datums as a formatted table to the provided writer.
// The table includes columns: ID, KIND, LOC, PARENT, AGE, and PAYLOAD
// (truncated). Returns the number of datums formatted.
func FormatTable(w io.Writer, datums []*lake.Datum, instanceName string) int {
	if len(datums) == 0 {
		fmt.Fprintf(w, "No datums found for instance '%s'\n", instanceName)
		return 0
	}

	fmt.Fprintf(w, "Datums for instance '%s':\n\n", instanceName)

	fmt.Fprintf(w, "%-10s %-14s %-9s %-10s %-8s %s\n",
		"ID", "KIND", "LOC", "PARENT", "AGE", "PAYLOAD")
	fmt.Fprintf(w, "%-10s %-14s %-9s %-10s %-8s %s\n",
		"----------", "--------------", "---------", "----------", "--------", "----------------------------------------")

	for _, d := range datums {
		fmt.Fprintf(w, "%-10s %-14s %-9s %-10s %-8s %s\n",
			formatID(d.ID),
			formatKind(d.Metadata),
			string(d.Location.Kind),
			formatParent(d.DerivedFrom),
			formatAge(d.AddedAtMs),
			formatPayload(d),
		)
	}

	countMsg := "datum"
	if len(datums) != 1 {
		countMsg = "datums"
	}
	fmt.Fprintf(w, "\n%d %s found\n", len(datums), countMsg)

	return len(datums)
}

// FormatJSONL writes datums as line-delimited JSON (JSONL) to the provided
// writer. Each datum is written as a single JSON object on its own line,
// ready for processing with tools like jq.
func FormatJSONL(w io.Writer, datums []*lake.Datum) error {
	for _, d := range datums {
		data, err := json.Marshal(d)
		if err != nil {
			return fmt.Errorf("failed to marshal datum to JSON: %w", err)
		}
		if _, err := fmt.Fprintf(w, "%s\n", string(data)); err != nil {
			return fmt.Errorf("failed to write JSONL output: %w", err)
		}
	}
	return nil
}

// FormatSingleJSON writes a single datum as pretty-printed JSON to the
// provided writer. Used in get mode to display complete datum details.
func FormatSingleJSON(w io.Writer, d *lake.Datum) error {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal datum to JSON: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write JSON output: %w", err)
	}
	fmt.Fprintln(w)
	return nil
}

// formatID truncates a datum ID to first 8 characters for compact display.
func formatID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// formatKind pulls the conventional "kind" metadata field for the table.
// Datums without one show "-".
func formatKind(md lake.Metadata) string {
	kind, ok := md["kind"].(string)
	if !ok || kind == "" {
		return "-"
	}
	if len(kind) > 14 {
		return kind[:11] + "..."
	}
	return kind
}

// formatParent shows the truncated derived_from ID, or "-" for roots.
func formatParent(parent string) string {
	if parent == "" {
		return "-"
	}
	return formatID(parent)
}

// formatPayload truncates the payload to its first line with max 40
// characters for table display. External payloads are not materialized for
// listing, so they show the registry location instead.
func formatPayload(d *lake.Datum) string {
	if d.Location.Kind == lake.LocationExternal && len(d.Data) == 0 {
		return fmt.Sprintf("@%s", d.Location.URI)
	}
	if len(d.Data) == 0 {
		return "-"
	}

	var firstLine string
	for _, line := range strings.Split(string(d.Data), "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed != "" {
			firstLine = trimmed
			break
		}
	}
	if firstLine == "" {
		return "-"
	}
	if len(firstLine) > 40 {
		return firstLine[:37] + "..."
	}
	return firstLine
}

// formatAge formats a Unix millisecond timestamp as relative time like
// "2m ago" or "1h ago".
func formatAge(timestampMs int64) string {
	if timestampMs == 0 {
		return "-"
	}

	t := time.Unix(timestampMs/1000, (timestampMs%1000)*1000000)
	diff := time.Since(t)

	if diff < time.Minute {
		return fmt.Sprintf("%ds ago", int(diff.Seconds()))
	} else if diff < time.Hour {
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	} else if diff < 24*time.Hour {
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	}
	return fmt.Sprintf("%dd ago", int(diff.Hours()/24))
}
