package tools

import (
	"context"
	"strings"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// SearchEventsInput is the input for edr_search_events.
type SearchEventsInput struct {
	TenantCode   string `json:"tenant_code,omitempty" jsonschema:"Tenant code selecting the backend credentials (default: configured default tenant)"`
	Query        string `json:"query" jsonschema:"Raw event query string in the backend dialect. Use the pivot tools for the common patterns; this is the escape hatch."`
	SearchPeriod string `json:"search_period,omitempty" jsonschema:"Relative time range, e.g. 1h, 24h, 7d (default: configured)"`
	Repository   string `json:"repository,omitempty" jsonschema:"Event repository to search (default: configured)"`
	JQ           string `json:"jq,omitempty" jsonschema:"Optional jq expression projecting each returned event"`
	MaxRecords   int    `json:"max_records,omitempty" jsonschema:"Max raw records to return (default: configured limit)"`
}

// ToolSearchEvents runs a caller-supplied query string unchanged.
func ToolSearchEvents(d *Deps) func(ctx context.Context, req *sdkmcp.CallToolRequest, input SearchEventsInput) (*sdkmcp.CallToolResult, SearchResultOutput, error) {
	return func(ctx context.Context, req *sdkmcp.CallToolRequest, input SearchEventsInput) (*sdkmcp.CallToolResult, SearchResultOutput, error) {
		if strings.TrimSpace(input.Query) == "" {
			return nil, SearchResultOutput{}, ErrInvalidInput("query is required")
		}

		inv, err := d.Investigator(ctx, input.TenantCode)
		if err != nil {
			return nil, SearchResultOutput{}, err
		}

		recs, err := inv.RawSearch(ctx, input.Query, d.SearchOptions(input.SearchPeriod, input.Repository))
		if err != nil {
			return nil, SearchResultOutput{}, WrapBackendError(err)
		}

		output, err := d.shapeSearchOutput(recs, input.JQ, input.MaxRecords)
		if err != nil {
			return nil, SearchResultOutput{}, err
		}
		return nil, output, nil
	}
}
