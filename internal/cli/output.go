// Package cli provides output formatting for the command-line interface.
package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/banglatutor/aparichita/internal/models"
	"github.com/banglatutor/aparichita/internal/rag"
	"github.com/banglatutor/aparichita/pkg/utils"
)

// OutputFormat selects how results are rendered.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// WriteQueryResponse writes a processed query response to w in the given format.
func WriteQueryResponse(w io.Writer, resp *rag.QueryResponse, format OutputFormat) error {
	if format == OutputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}
	fmt.Fprintf(w, "\n%s\n", resp.Response)
	if len(resp.RetrievedChunks) > 0 {
		fmt.Fprintf(w, "\n--- Sources (%d, language: %s) ---\n", len(resp.RetrievedChunks), resp.Language)
		writeChunks(w, resp.RetrievedChunks)
	}
	return nil
}

// WriteChunks writes raw retrieval results to w in the given format.
func WriteChunks(w io.Writer, chunks []models.QueryResult, format OutputFormat) error {
	if format == OutputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(chunks)
	}
	writeChunks(w, chunks)
	return nil
}

func writeChunks(w io.Writer, chunks []models.QueryResult) {
	for _, c := range chunks {
		if c.Distance != nil {
			fmt.Fprintf(w, "[%s] distance=%.4f\n", c.ID, *c.Distance)
		} else {
			fmt.Fprintf(w, "[%s]\n", c.ID)
		}
		fmt.Fprintf(w, "  %s\n", utils.Truncate(c.Content, 200))
	}
}
