package investigate

import (
	"context"
	"fmt"

	"github.com/seclens/edrsearch-mcp/pkg/edr"
	"github.com/seclens/edrsearch-mcp/pkg/query"
)

// compressedExtensions matches archive and image container files by name.
const compressedExtensions = `.+\.(zip|rar|7z|tar|gz|bz2|xz|lzh|sitx|dmg|iso|jar|apk)`

// HashByFilename finds events recording a SHA256 hash for the given filename.
func (inv *Investigator) HashByFilename(ctx context.Context, filename string, scope query.HostScope, opts edr.SearchOptions) ([]edr.Record, error) {
	if filename == "" {
		return nil, fmt.Errorf("%w: filename", query.ErrEmptyTemplate)
	}

	b := query.New().
		Where("FileName", filename).
		Has("SHA256HashData").
		Select("timestamp", "aid", "#event_simpleName", "FilePath", "FileName", "SHA256HashData")

	return inv.run(ctx, "file.hash_by_filename", b, scope, opts)
}

// CreatorProcess finds the process that wrote a file, pivoting from its
// filename or hash.
func (inv *Investigator) CreatorProcess(ctx context.Context, target FileTarget, scope query.HostScope, opts edr.SearchOptions) ([]edr.Record, error) {
	if err := target.validate(); err != nil {
		return nil, err
	}

	b := query.New()
	target.apply(b)
	b.Contains("#event_simpleName", "Written").
		Rename("ProcessId", "ContextProcessId").
		Rename("ProcessName", "ContextBaseFileName").
		Select("timestamp", "aid", "#event_simpleName", "FilePath", "FileName",
			"ProcessId", "ProcessName", "SHA256HashData")

	return inv.run(ctx, "file.creator_process", b, scope, opts)
}

// ExecutorProcess finds process-start events that executed a file. A filename
// target also matches the filename anywhere in the command line.
func (inv *Investigator) ExecutorProcess(ctx context.Context, target FileTarget, scope query.HostScope, opts edr.SearchOptions) ([]edr.Record, error) {
	if err := target.validate(); err != nil {
		return nil, err
	}

	b := query.New().Contains("#event_simpleName", "ProcessRollup2")
	if target.Filename != "" {
		b.Subquery(query.NewWithMode(query.Or).
			Where("FileName", target.Filename).
			Contains("CommandLine", target.Filename))
	} else {
		b.Where("SHA256HashData", target.Hash)
	}
	b.Rename("ProcessId", "TargetProcessId").
		Rename("ProcessName", "FileName").
		Rename("ProcessPath", "FilePath").
		Rename("ParentProcessName", "ParentBaseFileName").
		Select("timestamp", "aid", "ProcessPath", "ProcessName", "ProcessId",
			"CommandLine", "SHA256HashData", "ParentProcessName", "ParentProcessId")

	return inv.run(ctx, "file.executor_process", b, scope, opts)
}

// ScriptContentByFilename finds events that recorded the body of a script.
func (inv *Investigator) ScriptContentByFilename(ctx context.Context, filename string, scope query.HostScope, opts edr.SearchOptions) ([]edr.Record, error) {
	if filename == "" {
		return nil, fmt.Errorf("%w: filename", query.ErrEmptyTemplate)
	}

	b := query.New().
		Where("FileName", filename).
		Has("ScriptContent").
		Select("timestamp", "aid", "#event_simpleName", "FileName", "FilePath", "ScriptContent")

	return inv.run(ctx, "file.script_content", b, scope, opts)
}

// ModuleLoader finds processes that loaded a module, pivoting from its
// filename or hash.
func (inv *Investigator) ModuleLoader(ctx context.Context, target FileTarget, scope query.HostScope, opts edr.SearchOptions) ([]edr.Record, error) {
	if err := target.validate(); err != nil {
		return nil, err
	}

	b := query.New().Where("#event_simpleName", "ClassifiedModuleLoad")
	target.apply(b)
	b.Rename("ProcessId", "ContextProcessId").
		Rename("ProcessName", "ContextBaseFileName").
		Select("timestamp", "aid", "FilePath", "FileName", "ProcessName", "ProcessId", "SHA256HashData")

	return inv.run(ctx, "file.module_loader", b, scope, opts)
}

// DownloadURL finds the source URL a file was downloaded from, pivoting from
// its filename or hash.
func (inv *Investigator) DownloadURL(ctx context.Context, target FileTarget, scope query.HostScope, opts edr.SearchOptions) ([]edr.Record, error) {
	if err := target.validate(); err != nil {
		return nil, err
	}

	b := query.New()
	target.apply(b)
	b.Subquery(query.NewWithMode(query.Or).
		Has("HostUrl").
		Has("ReferrerUrl")).
		Rename("SourceUrl", "HostUrl").
		Rename("SourceUrl", "ReferrerUrl").
		Rename("ProcessId", "ContextProcessId").
		Rename("ProcessName", "ContextBaseFileName").
		Select("timestamp", "aid", "#event_simpleName", "FilePath", "FileName",
			"SourceUrl", "ProcessId", "ProcessName")

	return inv.run(ctx, "file.download_url", b, scope, opts)
}

// CompressedFileOperations finds processes creating or opening archive files.
// The case statement projects a uniform ProcessId/ProcessName pair whether the
// event is a process start or a file operation.
func (inv *Investigator) CompressedFileOperations(ctx context.Context, scope query.HostScope, opts edr.SearchOptions) ([]edr.Record, error) {
	b := query.New().
		Subquery(query.NewWithMode(query.Or).
			Regex("FileName", compressedExtensions+"$").
			Regex("CommandLine", compressedExtensions))

	processStart := query.When(query.New().Contains("#event_simpleName", "ProcessRollup2")).
		ThenRename("ProcessId", "TargetProcessId").
		ThenRename("ProcessName", "FileName")
	fileOperation := query.When(query.New().Where("#event_simpleName", "*")).
		ThenRename("ProcessId", "ContextProcessId").
		ThenRename("CompressedFile", "FileName").
		ThenRename("ProcessName", "ContextBaseFileName")

	b.Case(processStart, fileOperation).
		Select("timestamp", "aid", "#event_simpleName",
			"ProcessName", "ProcessId", "CompressedFile", "CommandLine")

	return inv.run(ctx, "file.compressed_file_operations", b, scope, opts)
}
