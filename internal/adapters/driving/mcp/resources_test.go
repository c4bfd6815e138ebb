package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServer_handleCapabilitiesResource(t *testing.T) {
	ctx := context.Background()
	req := &mcp.ReadResourceRequest{Params: &mcp.ReadResourceParams{URI: CapabilitiesURI}}

	t.Run("all features", func(t *testing.T) {
		env := newTestEnv()
		env.ports.WebhookURL = "https://example.com/hook"
		server, err := NewServer(env.ports)
		require.NoError(t, err)

		result, err := server.handleCapabilitiesResource(ctx, req)
		require.NoError(t, err)
		require.Len(t, result.Contents, 1)
		assert.Equal(t, CapabilitiesURI, result.Contents[0].URI)
		assert.Equal(t, "application/json", result.Contents[0].MIMEType)

		var caps Capabilities
		require.NoError(t, json.Unmarshal([]byte(result.Contents[0].Text), &caps))
		assert.Equal(t, "work", caps.AccountID)
		assert.Equal(t, Version, caps.Version)
		assert.True(t, caps.Watch)
		assert.True(t, caps.Downloads)
		assert.True(t, caps.Catalog)
		assert.Equal(t, "https://example.com/hook", caps.WebhookURL)
		assert.Len(t, caps.Tools, 14)
		assert.Contains(t, caps.Tools, "drive_sync_changes")
	})

	t.Run("optional ports missing", func(t *testing.T) {
		env := newTestEnv()
		server, err := NewServer(&Ports{Drive: env.api, Sync: env.ports.Sync})
		require.NoError(t, err)

		result, err := server.handleCapabilitiesResource(ctx, req)
		require.NoError(t, err)

		var caps Capabilities
		require.NoError(t, json.Unmarshal([]byte(result.Contents[0].Text), &caps))
		assert.False(t, caps.Watch)
		assert.False(t, caps.Downloads)
		assert.False(t, caps.Catalog)
		assert.Empty(t, caps.WebhookURL)
	})
}
