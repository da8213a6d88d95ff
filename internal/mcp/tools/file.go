package tools

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/seclens/edrsearch-mcp/internal/investigate"
	"github.com/seclens/edrsearch-mcp/pkg/edr"
)

// FileSearchInput carries the shared parameters of the file pivot tools.
type FileSearchInput struct {
	TenantCode   string `json:"tenant_code,omitempty" jsonschema:"Tenant code selecting the backend credentials (default: configured default tenant)"`
	FileName     string `json:"file_name,omitempty" jsonschema:"Pivot filename (e.g. malware.exe). Give exactly one of file_name or hash where both are accepted."`
	Hash         string `json:"hash,omitempty" jsonschema:"Pivot SHA256 hash. Give exactly one of file_name or hash where both are accepted."`
	HostID       string `json:"host_id,omitempty" jsonschema:"Agent ID to restrict the search to one host. Empty searches all hosts."`
	ExcludeHost  bool   `json:"exclude_host,omitempty" jsonschema:"Invert the host restriction: search everywhere except host_id"`
	SearchPeriod string `json:"search_period,omitempty" jsonschema:"Relative time range, e.g. 1h, 24h, 7d (default: configured)"`
	Repository   string `json:"repository,omitempty" jsonschema:"Event repository to search (default: configured)"`
	JQ           string `json:"jq,omitempty" jsonschema:"Optional jq expression projecting each returned event"`
	MaxRecords   int    `json:"max_records,omitempty" jsonschema:"Max raw records to return (default: configured limit)"`
}

func (in FileSearchInput) target() investigate.FileTarget {
	return investigate.FileTarget{Filename: in.FileName, Hash: in.Hash}
}

// fileTemplateFn runs one file template against an investigator.
type fileTemplateFn func(ctx context.Context, inv *investigate.Investigator, in FileSearchInput, opts edr.SearchOptions) ([]edr.Record, error)

// fileTool builds a handler around a file template, handling the shared
// tenant resolution, search tuning, and output shaping.
func fileTool(d *Deps, run fileTemplateFn) func(ctx context.Context, req *sdkmcp.CallToolRequest, input FileSearchInput) (*sdkmcp.CallToolResult, SearchResultOutput, error) {
	return func(ctx context.Context, req *sdkmcp.CallToolRequest, input FileSearchInput) (*sdkmcp.CallToolResult, SearchResultOutput, error) {
		inv, err := d.Investigator(ctx, input.TenantCode)
		if err != nil {
			return nil, SearchResultOutput{}, err
		}

		recs, err := run(ctx, inv, input, d.SearchOptions(input.SearchPeriod, input.Repository))
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

// ToolHashByFilename finds SHA256 hashes recorded for a filename.
func ToolHashByFilename(d *Deps) func(ctx context.Context, req *sdkmcp.CallToolRequest, input FileSearchInput) (*sdkmcp.CallToolResult, SearchResultOutput, error) {
	return fileTool(d, func(ctx context.Context, inv *investigate.Investigator, in FileSearchInput, opts edr.SearchOptions) ([]edr.Record, error) {
		return inv.HashByFilename(ctx, in.FileName, investigate.ScopeFrom(in.HostID, in.ExcludeHost), opts)
	})
}

// ToolFileCreatorProcess finds the process that wrote a file.
func ToolFileCreatorProcess(d *Deps) func(ctx context.Context, req *sdkmcp.CallToolRequest, input FileSearchInput) (*sdkmcp.CallToolResult, SearchResultOutput, error) {
	return fileTool(d, func(ctx context.Context, inv *investigate.Investigator, in FileSearchInput, opts edr.SearchOptions) ([]edr.Record, error) {
		return inv.CreatorProcess(ctx, in.target(), investigate.ScopeFrom(in.HostID, in.ExcludeHost), opts)
	})
}

// ToolFileExecutorProcess finds process starts that executed a file.
func ToolFileExecutorProcess(d *Deps) func(ctx context.Context, req *sdkmcp.CallToolRequest, input FileSearchInput) (*sdkmcp.CallToolResult, SearchResultOutput, error) {
	return fileTool(d, func(ctx context.Context, inv *investigate.Investigator, in FileSearchInput, opts edr.SearchOptions) ([]edr.Record, error) {
		return inv.ExecutorProcess(ctx, in.target(), investigate.ScopeFrom(in.HostID, in.ExcludeHost), opts)
	})
}

// ToolScriptContent finds recorded script bodies for a filename.
func ToolScriptContent(d *Deps) func(ctx context.Context, req *sdkmcp.CallToolRequest, input FileSearchInput) (*sdkmcp.CallToolResult, SearchResultOutput, error) {
	return fileTool(d, func(ctx context.Context, inv *investigate.Investigator, in FileSearchInput, opts edr.SearchOptions) ([]edr.Record, error) {
		return inv.ScriptContentByFilename(ctx, in.FileName, investigate.ScopeFrom(in.HostID, in.ExcludeHost), opts)
	})
}

// ToolModuleLoader finds processes that loaded a module.
func ToolModuleLoader(d *Deps) func(ctx context.Context, req *sdkmcp.CallToolRequest, input FileSearchInput) (*sdkmcp.CallToolResult, SearchResultOutput, error) {
	return fileTool(d, func(ctx context.Context, inv *investigate.Investigator, in FileSearchInput, opts edr.SearchOptions) ([]edr.Record, error) {
		return inv.ModuleLoader(ctx, in.target(), investigate.ScopeFrom(in.HostID, in.ExcludeHost), opts)
	})
}

// ToolFileDownloadURL finds the URL a file was downloaded from.
func ToolFileDownloadURL(d *Deps) func(ctx context.Context, req *sdkmcp.CallToolRequest, input FileSearchInput) (*sdkmcp.CallToolResult, SearchResultOutput, error) {
	return fileTool(d, func(ctx context.Context, inv *investigate.Investigator, in FileSearchInput, opts edr.SearchOptions) ([]edr.Record, error) {
		return inv.DownloadURL(ctx, in.target(), investigate.ScopeFrom(in.HostID, in.ExcludeHost), opts)
	})
}

// ToolCompressedFileOperations finds archive creation and access activity.
func ToolCompressedFileOperations(d *Deps) func(ctx context.Context, req *sdkmcp.CallToolRequest, input FileSearchInput) (*sdkmcp.CallToolResult, SearchResultOutput, error) {
	return fileTool(d, func(ctx context.Context, inv *investigate.Investigator, in FileSearchInput, opts edr.SearchOptions) ([]edr.Record, error) {
		return inv.CompressedFileOperations(ctx, investigate.ScopeFrom(in.HostID, in.ExcludeHost), opts)
	})
}
