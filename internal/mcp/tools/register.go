package tools

import (
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// Register registers all tools with the MCP server.
func Register(srv *sdkmcp.Server, d *Deps) {
	// Alerts
	AddTool(srv, &sdkmcp.Tool{
		Name:        "edr_get_alert",
		Description: "Retrieve one security alert by its composite ID. Returns the alert's key pivot attributes (file name, path, SHA256 hash, process id, host id) plus the full record. Typical starting point of an investigation; feed hash_value into edr_hash_by_filename or process_id into edr_get_process_info.",
	}, ToolGetAlert(d))

	AddTool(srv, &sdkmcp.Tool{
		Name:        "edr_get_alerts",
		Description: "Resolve a batch of composite alert IDs to their detail records in one call. IDs unknown to the backend are silently absent from the result.",
	}, ToolGetAlerts(d))

	AddTool(srv, &sdkmcp.Tool{
		Name:        "edr_search_alerts",
		Description: "Filter alerts with a backend filter expression (e.g. severity:>=70) and return their detail records. An empty filter matches everything; use limit/offset/sort to page.",
	}, ToolSearchAlerts(d))

	// File pivots
	AddTool(srv, &sdkmcp.Tool{
		Name:        "edr_hash_by_filename",
		Description: "Find SHA256 hashes recorded for a filename across the environment. Optionally restrict to one host (host_id) or exclude one host (exclude_host=true). Use the returned hash with the file pivot tools that accept a hash.",
	}, ToolHashByFilename(d))

	AddTool(srv, &sdkmcp.Tool{
		Name:        "edr_file_creator_process",
		Description: "Find the process that wrote a file, pivoting from its filename or SHA256 hash (give exactly one). Returns the writing process id and name per write event.",
	}, ToolFileCreatorProcess(d))

	AddTool(srv, &sdkmcp.Tool{
		Name:        "edr_file_executor_process",
		Description: "Find process-start events that executed a file, pivoting from its filename or SHA256 hash (give exactly one). A filename also matches anywhere in the command line.",
	}, ToolFileExecutorProcess(d))

	AddTool(srv, &sdkmcp.Tool{
		Name:        "edr_script_content",
		Description: "Retrieve recorded script bodies for a script filename (e.g. a PowerShell or batch file). Only events that captured ScriptContent are returned.",
	}, ToolScriptContent(d))

	AddTool(srv, &sdkmcp.Tool{
		Name:        "edr_module_loader",
		Description: "Find processes that loaded a module (DLL/shared object), pivoting from its filename or SHA256 hash (give exactly one).",
	}, ToolModuleLoader(d))

	AddTool(srv, &sdkmcp.Tool{
		Name:        "edr_file_download_url",
		Description: "Find the source URL a file was downloaded from, pivoting from its filename or SHA256 hash (give exactly one). Returns the downloading process alongside the URL.",
	}, ToolFileDownloadURL(d))

	AddTool(srv, &sdkmcp.Tool{
		Name:        "edr_compressed_file_operations",
		Description: "Find processes creating or opening archive files (zip, rar, 7z, iso and similar). Useful for spotting staging and exfiltration activity. Takes no pivot value; scope with host_id if needed.",
	}, ToolCompressedFileOperations(d))

	// Process pivots (host_id required)
	AddTool(srv, &sdkmcp.Tool{
		Name:        "edr_get_process_info",
		Description: "Get the execution details of one process id on a host: executable, command line, SHA256 hash, parent process. Returns the first matching start event as flat fields plus the total match count.",
	}, ToolGetProcessInfo(d))

	AddTool(srv, &sdkmcp.Tool{
		Name:        "edr_process_with_filename_in_cmdline",
		Description: "Find process starts on a host whose command line mentions a filename. host_id is required.",
	}, ToolProcessWithFilenameInCmdline(d))

	AddTool(srv, &sdkmcp.Tool{
		Name:        "edr_child_processes_by_parent_name",
		Description: "List processes started by a parent of the given base filename (e.g. explorer.exe) on a host. host_id is required.",
	}, ToolChildProcessesByParentName(d))

	AddTool(srv, &sdkmcp.Tool{
		Name:        "edr_process_startup",
		Description: "Find the startup record of a process id on a host. host_id is required.",
	}, ToolProcessStartup(d))

	AddTool(srv, &sdkmcp.Tool{
		Name:        "edr_child_processes",
		Description: "List the processes a process id spawned on a host. host_id is required.",
	}, ToolChildProcesses(d))

	AddTool(srv, &sdkmcp.Tool{
		Name:        "edr_dns_requests",
		Description: "List the DNS name resolutions a process performed on a host, with resolved A/AAAA records. host_id is required.",
	}, ToolDNSRequests(d))

	AddTool(srv, &sdkmcp.Tool{
		Name:        "edr_network_connections",
		Description: "List the network peers a process contacted on a host (local/remote IP and port). host_id is required.",
	}, ToolNetworkConnections(d))

	AddTool(srv, &sdkmcp.Tool{
		Name:        "edr_process_file_activity",
		Description: "List file operations performed by a process id on a host. Set activity to created, deleted, opened, renamed, or directories. host_id is required.",
	}, ToolProcessFileActivity(d))

	// Escape hatch and introspection
	AddTool(srv, &sdkmcp.Tool{
		Name:        "edr_search_events",
		Description: "Run a raw event query string in the backend dialect. Prefer the pivot tools; use this when no template fits. The query runs unchanged, including any host scoping it carries.",
	}, ToolSearchEvents(d))

	AddTool(srv, &sdkmcp.Tool{
		Name:        "edr_tenants_list",
		Description: "List tenant codes that currently hold an authenticated session, plus the configured default tenant. Never exposes credentials.",
	}, ToolTenantsList(d))
}
