package prompts

import (
	"context"
	"fmt"
	"strings"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// HandleHuntFile serves the file-hunting workflow guide.
func HandleHuntFile(cfg *Config) func(ctx context.Context, req *sdkmcp.GetPromptRequest) (*sdkmcp.GetPromptResult, error) {
	return func(ctx context.Context, req *sdkmcp.GetPromptRequest) (*sdkmcp.GetPromptResult, error) {
		args := req.Params.Arguments
		fileName := args["file_name"]
		hash := args["hash"]

		var sb strings.Builder
		sb.WriteString("# File Hunting Workflow\n\n")
		switch {
		case hash != "":
			fmt.Fprintf(&sb, "Hunt for the file with SHA256 `%s`.\n\n", hash)
		case fileName != "":
			fmt.Fprintf(&sb, "Hunt for `%s` across the environment.\n\n", fileName)
		}

		sb.WriteString("## Resolve the identity\n")
		sb.WriteString("Start from a filename with `edr_hash_by_filename`; the hash is the stable identity, filenames are trivially renamed. Pivot on the hash from here on.\n\n")

		sb.WriteString("## Map the spread\n")
		sb.WriteString("- `edr_hash_by_filename` without host_id lists every host the name appears on (jq: `.aid` to get the host list).\n")
		sb.WriteString("- `edr_file_executor_process` with the hash shows where it actually ran, not just where it sits.\n\n")

		sb.WriteString("## Establish provenance\n")
		sb.WriteString("- `edr_file_creator_process` — what wrote it (an archiver or browser points at delivery, a script at staging).\n")
		sb.WriteString("- `edr_file_download_url` — the source URL if it was downloaded.\n")
		sb.WriteString("- `edr_compressed_file_operations` on affected hosts — archive activity around the same window often reveals staging.\n\n")

		sb.WriteString("## Rules\n")
		sb.WriteString(fmt.Sprintf("- Default search window is %s; spread-mapping usually needs search_period: 7d or more.\n", cfg.SearchStart))
		sb.WriteString("- Tools that accept filename-or-hash take exactly one of the two.\n")
		sb.WriteString("- exclude_host=true inverts host scoping: everywhere except the named host.\n")

		return &sdkmcp.GetPromptResult{
			Description: "File hunting workflow",
			Messages: []*sdkmcp.PromptMessage{
				{
					Role:    "user",
					Content: &sdkmcp.TextContent{Text: sb.String()},
				},
			},
		}, nil
	}
}
