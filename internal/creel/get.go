package creel

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/dyluth/tarn/pkg/lake"
)

// GetDatum retrieves a single datum by ID through the router, so external
// payloads arrive materialized, and writes it as pretty-printed JSON to the
// writer. Returns an error if the datum ID is invalid or the datum does not
// exist; lake.IsNotFound distinguishes the latter.
func GetDatum(ctx context.Context, router *lake.Router, datumID string, w io.Writer) error {
	if _, err := uuid.Parse(datumID); err != nil {
		return fmt.Errorf("invalid datum ID format: must be a valid UUID")
	}

	d, err := router.Get(ctx, datumID)
	if err != nil {
		if lake.IsNotFound(err) {
			return err
		}
		return fmt.Errorf("failed to fetch datum: %w", err)
	}

	if err := FormatSingleJSON(w, d); err != nil {
		return fmt.Errorf("failed to format datum: %w", err)
	}

	return nil
}
