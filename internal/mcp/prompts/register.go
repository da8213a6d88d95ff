package prompts

import (
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// Register registers all prompts with the MCP server.
func Register(srv *sdkmcp.Server, cfg *Config) {
	srv.AddPrompt(&sdkmcp.Prompt{
		Name:        "investigate_alert",
		Description: "RECOMMENDED: Guided alert triage workflow. Start here when investigating an alert - walks through file context, process lineage, and network activity without guessing tool order.",
		Arguments: []*sdkmcp.PromptArgument{
			{
				Name:        "tenant_code",
				Description: "Tenant to investigate in",
				Required:    false,
			},
			{
				Name:        "alert_id",
				Description: "Composite alert ID to triage",
				Required:    false,
			},
		},
	}, HandleInvestigateAlert(cfg))

	srv.AddPrompt(&sdkmcp.Prompt{
		Name:        "hunt_file",
		Description: "RECOMMENDED: Guided file hunting workflow. Maps spread, provenance, and execution of a file by name or SHA256 hash across the environment.",
		Arguments: []*sdkmcp.PromptArgument{
			{
				Name:        "file_name",
				Description: "Filename to hunt",
				Required:    false,
			},
			{
				Name:        "hash",
				Description: "SHA256 hash to hunt",
				Required:    false,
			},
		},
	}, HandleHuntFile(cfg))
}
