// Package tools contains the MCP tool implementations for the EDR search
// server.
package tools

import (
	"fmt"

	"github.com/seclens/edrsearch-mcp/internal/records"
	"github.com/seclens/edrsearch-mcp/pkg/edr"
)

// SearchResultOutput is the common output shape of the search tools.
type SearchResultOutput struct {
	TotalResults     int          `json:"total_results"`
	Records          []edr.Record `json:"records,omitzero"`
	Truncated        bool         `json:"truncated,omitempty"`
	Projected        []any        `json:"projected,omitzero"`
	ProjectionErrors []string     `json:"projection_errors,omitzero"`
	Hint             string       `json:"hint,omitempty"`
}

// shapeSearchOutput bounds a search result for the tool boundary. With a jq
// expression the projected values replace the raw records; otherwise the
// records are capped at maxRecords (0 falls back to the configured limit).
func (d *Deps) shapeSearchOutput(recs []edr.Record, jq string, maxRecords int) (SearchResultOutput, error) {
	out := SearchResultOutput{TotalResults: len(recs)}
	if len(recs) == 0 {
		out.Hint = "no events matched; widen search_period or relax the query"
		return out, nil
	}

	if jq != "" {
		proj, err := records.Compile(jq)
		if err != nil {
			return SearchResultOutput{}, ErrInvalidInput(err.Error())
		}
		result := proj.Apply(recs, false, 0)
		out.Projected = result.Values
		out.ProjectionErrors = result.Errors
		return out, nil
	}

	limit := maxRecords
	if limit <= 0 {
		limit = d.Config.ToolMaxRecords
	}
	if len(recs) > limit {
		out.Records = recs[:limit]
		out.Truncated = true
		out.Hint = fmt.Sprintf("showing %d of %d records; narrow the query or set a jq projection", limit, len(recs))
	} else {
		out.Records = recs
	}
	return out, nil
}
