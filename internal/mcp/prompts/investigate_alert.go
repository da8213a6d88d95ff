package prompts

import (
	"context"
	"fmt"
	"strings"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// HandleInvestigateAlert serves the alert triage workflow guide.
func HandleInvestigateAlert(cfg *Config) func(ctx context.Context, req *sdkmcp.GetPromptRequest) (*sdkmcp.GetPromptResult, error) {
	return func(ctx context.Context, req *sdkmcp.GetPromptRequest) (*sdkmcp.GetPromptResult, error) {
		tenant := req.Params.Arguments["tenant_code"]
		if tenant == "" {
			tenant = cfg.DefaultTenant
		}
		alertID := req.Params.Arguments["alert_id"]

		var sb strings.Builder
		sb.WriteString("# Alert Triage Workflow\n\n")
		if alertID != "" {
			fmt.Fprintf(&sb, "Investigate alert `%s`", alertID)
			if tenant != "" {
				fmt.Fprintf(&sb, " in tenant `%s`", tenant)
			}
			sb.WriteString(".\n\n")
		}

		sb.WriteString("## Step 1 — Fetch the alert\n")
		sb.WriteString("Call `edr_get_alert` with the alert ID. Note the lifted pivot attributes: file_name, hash_value, process_id, host_id.\n\n")

		sb.WriteString("## Step 2 — Establish file context\n")
		sb.WriteString("- `edr_hash_by_filename` with file_name to see everywhere the file appears.\n")
		sb.WriteString("- `edr_file_creator_process` and `edr_file_executor_process` with the hash to find what wrote and what ran it.\n")
		sb.WriteString("- `edr_file_download_url` with the hash to find where it came from.\n\n")

		sb.WriteString("## Step 3 — Follow the process\n")
		sb.WriteString("With process_id and host_id from the alert:\n")
		sb.WriteString("- `edr_get_process_info` for command line and parent.\n")
		sb.WriteString("- `edr_child_processes` for what it spawned.\n")
		sb.WriteString("- `edr_dns_requests` and `edr_network_connections` for its network activity.\n")
		sb.WriteString("- `edr_process_file_activity` (activity: created) for dropped files; repeat the file steps on anything suspicious.\n\n")

		sb.WriteString("## Rules\n")
		sb.WriteString(fmt.Sprintf("- Default search window is %s; pass search_period (e.g. 7d) when hunting older activity.\n", cfg.SearchStart))
		sb.WriteString("- All process tools require host_id; take it from the alert.\n")
		sb.WriteString("- An empty result is an answer, not an error: the activity did not occur in the searched window.\n")
		sb.WriteString("- Use the jq parameter to trim wide events before reasoning over them.\n")

		return &sdkmcp.GetPromptResult{
			Description: "Alert triage workflow",
			Messages: []*sdkmcp.PromptMessage{
				{
					Role:    "user",
					Content: &sdkmcp.TextContent{Text: sb.String()},
				},
			},
		}, nil
	}
}
