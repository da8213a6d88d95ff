package investigate

import (
	"context"
	"fmt"

	"github.com/seclens/edrsearch-mcp/pkg/edr"
	"github.com/seclens/edrsearch-mcp/pkg/query"
)

// processStartFields is the projection shared by the process-start templates.
var processStartFields = []string{
	"timestamp", "aid", "FilePath", "FileName", "TargetProcessId",
	"CommandLine", "ParentBaseFileName", "ParentProcessId",
}

// fileOperationFields is the projection shared by the per-process file
// operation templates.
var fileOperationFields = []string{
	"timestamp", "aid", "#event_simpleName", "FileName", "FilePath", "SHA256HashData",
}

// ProcessWithFilenameInCmdline finds process starts on a host whose command
// line mentions the given filename.
func (inv *Investigator) ProcessWithFilenameInCmdline(ctx context.Context, filename, aid string, opts edr.SearchOptions) ([]edr.Record, error) {
	scope, err := requireHost(aid)
	if err != nil {
		return nil, err
	}
	if filename == "" {
		return nil, fmt.Errorf("%w: filename", query.ErrEmptyTemplate)
	}

	b := query.New().
		Contains("#event_simpleName", "ProcessRollup2").
		Contains("CommandLine", filename).
		Select(processStartFields...)

	return inv.run(ctx, "process.filename_in_cmdline", b, scope, opts)
}

// ChildProcessesByParentName finds processes started by a parent of the given
// base filename on a host.
func (inv *Investigator) ChildProcessesByParentName(ctx context.Context, parentName, aid string, opts edr.SearchOptions) ([]edr.Record, error) {
	scope, err := requireHost(aid)
	if err != nil {
		return nil, err
	}
	if parentName == "" {
		return nil, fmt.Errorf("%w: parent name", query.ErrEmptyTemplate)
	}

	b := query.New().
		Contains("#event_simpleName", "ProcessRollup2").
		Where("ParentBaseFileName", parentName).
		Select(processStartFields...)

	return inv.run(ctx, "process.children_by_parent_name", b, scope, opts)
}

// ProcessStartupByPID finds the startup record of a process id on a host. The
// match is deliberately not restricted to one event type so related records
// carrying the id surface too.
func (inv *Investigator) ProcessStartupByPID(ctx context.Context, processID, aid string, opts edr.SearchOptions) ([]edr.Record, error) {
	scope, err := requireHost(aid)
	if err != nil {
		return nil, err
	}
	if processID == "" {
		return nil, fmt.Errorf("%w: process id", query.ErrEmptyTemplate)
	}

	b := query.New().
		Where("TargetProcessId", processID).
		Select(processStartFields...)

	return inv.run(ctx, "process.startup_by_pid", b, scope, opts)
}

// ProcessDetailsByPID resolves a process id on a host to its start event,
// projected with uniform ProcessId/ProcessName field names.
func (inv *Investigator) ProcessDetailsByPID(ctx context.Context, processID, aid string, opts edr.SearchOptions) ([]edr.Record, error) {
	scope, err := requireHost(aid)
	if err != nil {
		return nil, err
	}
	if processID == "" {
		return nil, fmt.Errorf("%w: process id", query.ErrEmptyTemplate)
	}

	b := query.New().
		Where("TargetProcessId", processID).
		Contains("#event_simpleName", "ProcessRollup2").
		Rename("ProcessId", "TargetProcessId").
		Rename("ProcessName", "FileName").
		Rename("ProcessPath", "FilePath").
		Rename("ParentProcessName", "ParentBaseFileName").
		Select("timestamp", "aid", "ProcessPath", "ProcessName", "ProcessId",
			"CommandLine", "ParentProcessName", "ParentProcessId")

	return inv.run(ctx, "process.details_by_pid", b, scope, opts)
}

// ChildProcessesByPID finds the processes a process id spawned on a host.
func (inv *Investigator) ChildProcessesByPID(ctx context.Context, processID, aid string, opts edr.SearchOptions) ([]edr.Record, error) {
	scope, err := requireHost(aid)
	if err != nil {
		return nil, err
	}
	if processID == "" {
		return nil, fmt.Errorf("%w: process id", query.ErrEmptyTemplate)
	}

	b := query.New().
		Where("ParentProcessId", processID).
		Contains("#event_simpleName", "ProcessRollup2").
		Select("timestamp", "aid", "FilePath", "FileName",
			"TargetProcessId", "CommandLine", "SHA256HashData")

	return inv.run(ctx, "process.children_by_pid", b, scope, opts)
}

// DNSRequestsByPID finds the name resolutions a process performed on a host.
func (inv *Investigator) DNSRequestsByPID(ctx context.Context, processID, aid string, opts edr.SearchOptions) ([]edr.Record, error) {
	scope, err := requireHost(aid)
	if err != nil {
		return nil, err
	}
	if processID == "" {
		return nil, fmt.Errorf("%w: process id", query.ErrEmptyTemplate)
	}

	b := query.New().
		Where("ContextProcessId", processID).
		Where("#event_simpleName", "DnsRequest").
		Select("timestamp", "aid", "DomainName", "IP4Records", "IP6Records")

	return inv.run(ctx, "process.dns_requests_by_pid", b, scope, opts)
}

// NetworkConnectionsByPID finds the network peers a process contacted on a
// host.
func (inv *Investigator) NetworkConnectionsByPID(ctx context.Context, processID, aid string, opts edr.SearchOptions) ([]edr.Record, error) {
	scope, err := requireHost(aid)
	if err != nil {
		return nil, err
	}
	if processID == "" {
		return nil, fmt.Errorf("%w: process id", query.ErrEmptyTemplate)
	}

	b := query.New().
		Where("ContextProcessId", processID).
		Contains("#event_simpleName", "Network").
		Select("timestamp", "aid", "DomainName", "LocalIP", "LPort", "RemoteIP", "RPort")

	return inv.run(ctx, "process.network_connections_by_pid", b, scope, opts)
}

// CreatedFilesByPID finds files a process wrote or created on a host.
func (inv *Investigator) CreatedFilesByPID(ctx context.Context, processID, aid string, opts edr.SearchOptions) ([]edr.Record, error) {
	scope, err := requireHost(aid)
	if err != nil {
		return nil, err
	}
	if processID == "" {
		return nil, fmt.Errorf("%w: process id", query.ErrEmptyTemplate)
	}

	b := query.New().
		Where("ContextProcessId", processID).
		Subquery(query.NewWithMode(query.Or).
			Contains("#event_simpleName", "Written").
			Where("#event_simpleName", "FileCreateInfo")).
		Select(fileOperationFields...)

	return inv.run(ctx, "process.created_files_by_pid", b, scope, opts)
}

// DeletedFilesByPID finds files a process deleted on a host.
func (inv *Investigator) DeletedFilesByPID(ctx context.Context, processID, aid string, opts edr.SearchOptions) ([]edr.Record, error) {
	scope, err := requireHost(aid)
	if err != nil {
		return nil, err
	}
	if processID == "" {
		return nil, fmt.Errorf("%w: process id", query.ErrEmptyTemplate)
	}

	b := query.New().
		Where("ContextProcessId", processID).
		Subquery(query.NewWithMode(query.Or).
			Contains("#event_simpleName", "Deleted").
			Where("#event_simpleName", "FileDeleteInfo")).
		Select(fileOperationFields...)

	return inv.run(ctx, "process.deleted_files_by_pid", b, scope, opts)
}

// OpenedFilesByPID finds files a process opened on a host.
func (inv *Investigator) OpenedFilesByPID(ctx context.Context, processID, aid string, opts edr.SearchOptions) ([]edr.Record, error) {
	scope, err := requireHost(aid)
	if err != nil {
		return nil, err
	}
	if processID == "" {
		return nil, fmt.Errorf("%w: process id", query.ErrEmptyTemplate)
	}

	b := query.New().
		Where("ContextProcessId", processID).
		Where("#event_simpleName", "FileOpenInfo").
		Select(fileOperationFields...)

	return inv.run(ctx, "process.opened_files_by_pid", b, scope, opts)
}

// RenamedFilesByPID finds files a process renamed on a host.
func (inv *Investigator) RenamedFilesByPID(ctx context.Context, processID, aid string, opts edr.SearchOptions) ([]edr.Record, error) {
	scope, err := requireHost(aid)
	if err != nil {
		return nil, err
	}
	if processID == "" {
		return nil, fmt.Errorf("%w: process id", query.ErrEmptyTemplate)
	}

	b := query.New().
		Where("ContextProcessId", processID).
		Contains("#event_simpleName", "Rename").
		Select("timestamp", "aid", "#event_simpleName",
			"FileName", "FilePath", "SourceFileName", "SHA256HashData")

	return inv.run(ctx, "process.renamed_files_by_pid", b, scope, opts)
}

// CreatedDirectoriesByPID finds directories a process created on a host.
func (inv *Investigator) CreatedDirectoriesByPID(ctx context.Context, processID, aid string, opts edr.SearchOptions) ([]edr.Record, error) {
	scope, err := requireHost(aid)
	if err != nil {
		return nil, err
	}
	if processID == "" {
		return nil, fmt.Errorf("%w: process id", query.ErrEmptyTemplate)
	}

	b := query.New().
		Where("ContextProcessId", processID).
		Where("#event_simpleName", "DirectoryCreate").
		Select("timestamp", "aid", "#event_simpleName", "FileName", "FilePath")

	return inv.run(ctx, "process.created_directories_by_pid", b, scope, opts)
}
