// Package prompts contains MCP prompt implementations for the EDR search
// server.
package prompts

// Config holds configuration needed by prompts.
type Config struct {
	DefaultTenant string
	SearchStart   string
}
