package tools

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/seclens/edrsearch-mcp/pkg/edr"
)

// GetAlertInput is the input for edr_get_alert.
type GetAlertInput struct {
	TenantCode string `json:"tenant_code,omitempty" jsonschema:"Tenant code selecting the backend credentials (default: configured default tenant)"`
	AlertID    string `json:"alert_id" jsonschema:"Composite alert identifier"`
}

// GetAlertOutput is the output for edr_get_alert.
type GetAlertOutput struct {
	Found       bool       `json:"found"`
	AlertID     string     `json:"alert_id"`
	Description string     `json:"description,omitempty"`
	FileName    string     `json:"file_name,omitempty"`
	FilePath    string     `json:"file_path,omitempty"`
	HashValue   string     `json:"hash_value,omitempty"`
	ProcessID   string     `json:"process_id,omitempty"`
	HostID      string     `json:"host_id,omitempty"`
	Alert       edr.Record `json:"alert,omitzero"`
}

// ToolGetAlert retrieves one alert with its pivot attributes lifted out.
func ToolGetAlert(d *Deps) func(ctx context.Context, req *sdkmcp.CallToolRequest, input GetAlertInput) (*sdkmcp.CallToolResult, GetAlertOutput, error) {
	return func(ctx context.Context, req *sdkmcp.CallToolRequest, input GetAlertInput) (*sdkmcp.CallToolResult, GetAlertOutput, error) {
		inv, err := d.Investigator(ctx, input.TenantCode)
		if err != nil {
			return nil, GetAlertOutput{}, err
		}

		alert, err := inv.AlertByID(ctx, input.AlertID)
		if err != nil {
			return nil, GetAlertOutput{}, WrapBackendError(err)
		}
		if alert == nil {
			return nil, GetAlertOutput{Found: false, AlertID: input.AlertID}, nil
		}

		return nil, GetAlertOutput{
			Found:       true,
			AlertID:     input.AlertID,
			Description: alert.GetString("description"),
			FileName:    alert.GetString("file_name"),
			FilePath:    alert.GetString("file_path"),
			HashValue:   alert.GetString("sha256"),
			ProcessID:   alert.GetString("process_id"),
			HostID:      alert.GetString("agent_id"),
			Alert:       alert,
		}, nil
	}
}

// SearchAlertsInput is the input for edr_search_alerts.
type SearchAlertsInput struct {
	TenantCode string `json:"tenant_code,omitempty" jsonschema:"Tenant code selecting the backend credentials (default: configured default tenant)"`
	Filter     string `json:"filter,omitempty" jsonschema:"Alert filter expression (e.g. severity:>=70). Empty matches everything."`
	Limit      int    `json:"limit,omitempty" jsonschema:"Max alerts to return (default: 100)"`
	Offset     int    `json:"offset,omitempty" jsonschema:"Pagination offset"`
	Sort       string `json:"sort,omitempty" jsonschema:"Sort expression (e.g. created_timestamp|desc)"`
}

// SearchAlertsOutput is the output for edr_search_alerts.
type SearchAlertsOutput struct {
	TotalResults int          `json:"total_results"`
	Alerts       []edr.Record `json:"alerts,omitzero"`
	Hint         string       `json:"hint,omitempty"`
}

// ToolSearchAlerts filters alerts and returns their detail records.
func ToolSearchAlerts(d *Deps) func(ctx context.Context, req *sdkmcp.CallToolRequest, input SearchAlertsInput) (*sdkmcp.CallToolResult, SearchAlertsOutput, error) {
	return func(ctx context.Context, req *sdkmcp.CallToolRequest, input SearchAlertsInput) (*sdkmcp.CallToolResult, SearchAlertsOutput, error) {
		inv, err := d.Investigator(ctx, input.TenantCode)
		if err != nil {
			return nil, SearchAlertsOutput{}, err
		}

		limit := input.Limit
		if limit <= 0 {
			limit = d.Config.DefaultAlertLimit
		}

		alerts, err := inv.SearchAlerts(ctx, input.Filter, edr.AlertQueryOptions{
			Limit:  limit,
			Offset: input.Offset,
			Sort:   input.Sort,
		})
		if err != nil {
			return nil, SearchAlertsOutput{}, WrapBackendError(err)
		}

		output := SearchAlertsOutput{
			TotalResults: len(alerts),
			Alerts:       alerts,
		}
		if len(alerts) == 0 {
			output.Hint = "no alerts matched the filter"
		}
		return nil, output, nil
	}
}

// GetAlertsInput is the input for edr_get_alerts.
type GetAlertsInput struct {
	TenantCode string   `json:"tenant_code,omitempty" jsonschema:"Tenant code selecting the backend credentials (default: configured default tenant)"`
	AlertIDs   []string `json:"alert_ids" jsonschema:"Composite alert identifiers to resolve"`
}

// GetAlertsOutput is the output for edr_get_alerts.
type GetAlertsOutput struct {
	TotalResults int          `json:"total_results"`
	Alerts       []edr.Record `json:"alerts,omitzero"`
	Hint         string       `json:"hint,omitempty"`
}

// ToolGetAlerts resolves a batch of alert ids to detail records.
func ToolGetAlerts(d *Deps) func(ctx context.Context, req *sdkmcp.CallToolRequest, input GetAlertsInput) (*sdkmcp.CallToolResult, GetAlertsOutput, error) {
	return func(ctx context.Context, req *sdkmcp.CallToolRequest, input GetAlertsInput) (*sdkmcp.CallToolResult, GetAlertsOutput, error) {
		inv, err := d.Investigator(ctx, input.TenantCode)
		if err != nil {
			return nil, GetAlertsOutput{}, err
		}

		alerts, err := inv.AlertsByIDs(ctx, input.AlertIDs)
		if err != nil {
			return nil, GetAlertsOutput{}, WrapBackendError(err)
		}

		output := GetAlertsOutput{
			TotalResults: len(alerts),
			Alerts:       alerts,
		}
		if len(alerts) < len(input.AlertIDs) {
			output.Hint = "some alert ids were unknown to the backend"
		}
		return nil, output, nil
	}
}
