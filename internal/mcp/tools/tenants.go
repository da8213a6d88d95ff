package tools

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// TenantsListInput is the input for edr_tenants_list.
type TenantsListInput struct{}

// TenantsListOutput is the output for edr_tenants_list.
type TenantsListOutput struct {
	ActiveTenants []string `json:"active_tenants,omitzero" jsonschema:"Tenant codes with an authenticated session"`
	DefaultTenant string   `json:"default_tenant,omitempty"`
}

// ToolTenantsList reports which tenants currently hold a session. It never
// lists credentials, only codes.
func ToolTenantsList(d *Deps) func(ctx context.Context, req *sdkmcp.CallToolRequest, input TenantsListInput) (*sdkmcp.CallToolResult, TenantsListOutput, error) {
	return func(ctx context.Context, req *sdkmcp.CallToolRequest, input TenantsListInput) (*sdkmcp.CallToolResult, TenantsListOutput, error) {
		return nil, TenantsListOutput{
			ActiveTenants: d.Registry.Codes(),
			DefaultTenant: d.Config.DefaultTenant,
		}, nil
	}
}
