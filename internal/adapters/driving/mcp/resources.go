package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// CapabilitiesURI describes what this server can do for the configured account.
const CapabilitiesURI = "drive://capabilities"

// Capabilities is the body of the capabilities resource.
type Capabilities struct {
	Server     string   `json:"server"`
	Version    string   `json:"version"`
	AccountID  string   `json:"account_id"`
	Tools      []string `json:"tools"`
	Watch      bool     `json:"watch"`
	Downloads  bool     `json:"downloads"`
	Catalog    bool     `json:"catalog"`
	WebhookURL string   `json:"webhook_url,omitempty"`
}

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         CapabilitiesURI,
		Name:        "capabilities",
		Description: "Tools and optional features available for the configured Drive account",
		MIMEType:    "application/json",
	}, s.handleCapabilitiesResource)
}

func (s *Server) capabilities() Capabilities {
	return Capabilities{
		Server:     "connect-googledrive",
		Version:    Version,
		AccountID:  s.ports.AccountID,
		Tools:      toolNames,
		Watch:      s.ports.Watch != nil,
		Downloads:  s.ports.Downloads != nil,
		Catalog:    s.ports.Catalog != nil,
		WebhookURL: s.ports.WebhookURL,
	}
}

func (s *Server) handleCapabilitiesResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(s.capabilities(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling capabilities: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}
