package tools

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/seclens/edrsearch-mcp/internal/investigate"
	"github.com/seclens/edrsearch-mcp/pkg/edr"
)

// ProcessSearchInput carries the shared parameters of the process pivot
// tools. All of them require host_id.
type ProcessSearchInput struct {
	TenantCode   string `json:"tenant_code,omitempty" jsonschema:"Tenant code selecting the backend credentials (default: configured default tenant)"`
	HostID       string `json:"host_id" jsonschema:"Agent ID of the target host (required)"`
	ProcessID    string `json:"process_id,omitempty" jsonschema:"Target process ID"`
	FileName     string `json:"file_name,omitempty" jsonschema:"Filename to match in the command line (edr_process_with_filename_in_cmdline)"`
	ParentName   string `json:"parent_name,omitempty" jsonschema:"Parent process base filename (edr_child_processes_by_parent_name)"`
	Activity     string `json:"activity,omitempty" jsonschema:"File activity kind for edr_process_file_activity: created, deleted, opened, renamed, or directories"`
	SearchPeriod string `json:"search_period,omitempty" jsonschema:"Relative time range, e.g. 1h, 24h, 7d (default: configured)"`
	Repository   string `json:"repository,omitempty" jsonschema:"Event repository to search (default: configured)"`
	JQ           string `json:"jq,omitempty" jsonschema:"Optional jq expression projecting each returned event"`
	MaxRecords   int    `json:"max_records,omitempty" jsonschema:"Max raw records to return (default: configured limit)"`
}

type processTemplateFn func(ctx context.Context, inv *investigate.Investigator, in ProcessSearchInput, opts edr.SearchOptions) ([]edr.Record, error)

func processTool(d *Deps, run processTemplateFn) func(ctx context.Context, req *sdkmcp.CallToolRequest, input ProcessSearchInput) (*sdkmcp.CallToolResult, SearchResultOutput, error) {
	return func(ctx context.Context, req *sdkmcp.CallToolRequest, input ProcessSearchInput) (*sdkmcp.CallToolResult, SearchResultOutput, error) {
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

// GetProcessInfoInput is the input for edr_get_process_info.
type GetProcessInfoInput struct {
	TenantCode   string `json:"tenant_code,omitempty" jsonschema:"Tenant code selecting the backend credentials (default: configured default tenant)"`
	HostID       string `json:"host_id" jsonschema:"Agent ID of the target host (required)"`
	ProcessID    string `json:"process_id" jsonschema:"Target process ID"`
	SearchPeriod string `json:"search_period,omitempty" jsonschema:"Relative time range, e.g. 1h, 24h, 7d (default: 7d)"`
	Repository   string `json:"repository,omitempty" jsonschema:"Event repository to search (default: configured)"`
}

// GetProcessInfoOutput is the output for edr_get_process_info. It lifts the
// first matching start event into flat fields.
type GetProcessInfoOutput struct {
	Found         bool   `json:"found"`
	HostID        string `json:"host_id,omitempty"`
	ProcessID     string `json:"process_id,omitempty"`
	ProcessName   string `json:"process_name,omitempty"`
	ProcessPath   string `json:"process_path,omitempty"`
	CommandLine   string `json:"command_line,omitempty"`
	HashValue     string `json:"hash_value,omitempty"`
	ParentProcess string `json:"parent_process,omitempty"`
	ParentPID     string `json:"parent_process_id,omitempty"`
	Timestamp     string `json:"timestamp,omitempty"`
	TotalResults  int    `json:"total_results"`
}

// ToolGetProcessInfo resolves one process id to its execution details.
func ToolGetProcessInfo(d *Deps) func(ctx context.Context, req *sdkmcp.CallToolRequest, input GetProcessInfoInput) (*sdkmcp.CallToolResult, GetProcessInfoOutput, error) {
	return func(ctx context.Context, req *sdkmcp.CallToolRequest, input GetProcessInfoInput) (*sdkmcp.CallToolResult, GetProcessInfoOutput, error) {
		inv, err := d.Investigator(ctx, input.TenantCode)
		if err != nil {
			return nil, GetProcessInfoOutput{}, err
		}

		period := input.SearchPeriod
		if period == "" {
			period = "7d"
		}
		recs, err := inv.ProcessDetailsByPID(ctx, input.ProcessID, input.HostID,
			d.SearchOptions(period, input.Repository))
		if err != nil {
			return nil, GetProcessInfoOutput{}, WrapBackendError(err)
		}
		if len(recs) == 0 {
			return nil, GetProcessInfoOutput{Found: false}, nil
		}

		first := recs[0]
		return nil, GetProcessInfoOutput{
			Found:         true,
			HostID:        first.GetString("aid"),
			ProcessID:     first.GetString("ProcessId"),
			ProcessName:   first.GetString("ProcessName"),
			ProcessPath:   first.GetString("ProcessPath"),
			CommandLine:   first.GetString("CommandLine"),
			HashValue:     first.GetString("SHA256HashData"),
			ParentProcess: first.GetString("ParentProcessName"),
			ParentPID:     first.GetString("ParentProcessId"),
			Timestamp:     first.GetString("timestamp"),
			TotalResults:  len(recs),
		}, nil
	}
}

// ToolProcessWithFilenameInCmdline finds processes whose command line
// mentions a filename.
func ToolProcessWithFilenameInCmdline(d *Deps) func(ctx context.Context, req *sdkmcp.CallToolRequest, input ProcessSearchInput) (*sdkmcp.CallToolResult, SearchResultOutput, error) {
	return processTool(d, func(ctx context.Context, inv *investigate.Investigator, in ProcessSearchInput, opts edr.SearchOptions) ([]edr.Record, error) {
		return inv.ProcessWithFilenameInCmdline(ctx, in.FileName, in.HostID, opts)
	})
}

// ToolChildProcessesByParentName lists processes started by a named parent.
func ToolChildProcessesByParentName(d *Deps) func(ctx context.Context, req *sdkmcp.CallToolRequest, input ProcessSearchInput) (*sdkmcp.CallToolResult, SearchResultOutput, error) {
	return processTool(d, func(ctx context.Context, inv *investigate.Investigator, in ProcessSearchInput, opts edr.SearchOptions) ([]edr.Record, error) {
		return inv.ChildProcessesByParentName(ctx, in.ParentName, in.HostID, opts)
	})
}

// ToolProcessStartup finds the startup record of a process id.
func ToolProcessStartup(d *Deps) func(ctx context.Context, req *sdkmcp.CallToolRequest, input ProcessSearchInput) (*sdkmcp.CallToolResult, SearchResultOutput, error) {
	return processTool(d, func(ctx context.Context, inv *investigate.Investigator, in ProcessSearchInput, opts edr.SearchOptions) ([]edr.Record, error) {
		return inv.ProcessStartupByPID(ctx, in.ProcessID, in.HostID, opts)
	})
}

// ToolChildProcesses lists processes spawned by a process id.
func ToolChildProcesses(d *Deps) func(ctx context.Context, req *sdkmcp.CallToolRequest, input ProcessSearchInput) (*sdkmcp.CallToolResult, SearchResultOutput, error) {
	return processTool(d, func(ctx context.Context, inv *investigate.Investigator, in ProcessSearchInput, opts edr.SearchOptions) ([]edr.Record, error) {
		return inv.ChildProcessesByPID(ctx, in.ProcessID, in.HostID, opts)
	})
}

// ToolDNSRequests lists name resolutions performed by a process id.
func ToolDNSRequests(d *Deps) func(ctx context.Context, req *sdkmcp.CallToolRequest, input ProcessSearchInput) (*sdkmcp.CallToolResult, SearchResultOutput, error) {
	return processTool(d, func(ctx context.Context, inv *investigate.Investigator, in ProcessSearchInput, opts edr.SearchOptions) ([]edr.Record, error) {
		return inv.DNSRequestsByPID(ctx, in.ProcessID, in.HostID, opts)
	})
}

// ToolNetworkConnections lists network peers contacted by a process id.
func ToolNetworkConnections(d *Deps) func(ctx context.Context, req *sdkmcp.CallToolRequest, input ProcessSearchInput) (*sdkmcp.CallToolResult, SearchResultOutput, error) {
	return processTool(d, func(ctx context.Context, inv *investigate.Investigator, in ProcessSearchInput, opts edr.SearchOptions) ([]edr.Record, error) {
		return inv.NetworkConnectionsByPID(ctx, in.ProcessID, in.HostID, opts)
	})
}

// ToolProcessFileActivity lists file operations performed by a process id.
// The activity parameter selects the operation kind.
func ToolProcessFileActivity(d *Deps) func(ctx context.Context, req *sdkmcp.CallToolRequest, input ProcessSearchInput) (*sdkmcp.CallToolResult, SearchResultOutput, error) {
	return processTool(d, func(ctx context.Context, inv *investigate.Investigator, in ProcessSearchInput, opts edr.SearchOptions) ([]edr.Record, error) {
		switch in.Activity {
		case "created":
			return inv.CreatedFilesByPID(ctx, in.ProcessID, in.HostID, opts)
		case "deleted":
			return inv.DeletedFilesByPID(ctx, in.ProcessID, in.HostID, opts)
		case "opened":
			return inv.OpenedFilesByPID(ctx, in.ProcessID, in.HostID, opts)
		case "renamed":
			return inv.RenamedFilesByPID(ctx, in.ProcessID, in.HostID, opts)
		case "directories":
			return inv.CreatedDirectoriesByPID(ctx, in.ProcessID, in.HostID, opts)
		default:
			return nil, ErrInvalidInput("activity must be one of: created, deleted, opened, renamed, directories")
		}
	})
}
