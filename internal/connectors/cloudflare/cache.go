package cloudflare

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// ErrEmptyPurge is returned when a selective purge names nothing to purge.
var ErrEmptyPurge = errors.New("cloudflare: purge needs files, tags, hosts or prefixes")

// PurgeRequest selects cached content to purge.
type PurgeRequest struct {
	Files    []string `json:"files,omitempty"`
	Tags     []string `json:"tags,omitempty"`
	Hosts    []string `json:"hosts,omitempty"`
	Prefixes []string `json:"prefixes,omitempty"`
}

func (r PurgeRequest) empty() bool {
	return len(r.Files) == 0 && len(r.Tags) == 0 && len(r.Hosts) == 0 && len(r.Prefixes) == 0
}

// CacheService handles cache purge endpoints.
type CacheService struct {
	c *Client
}

// PurgeEverything purges all cached content of a zone.
func (s *CacheService) PurgeEverything(ctx context.Context, zoneID string) (string, error) {
	body := map[string]bool{"purge_everything": true}
	r, err := send[idResult](ctx, s.c, http.MethodPost, zonePath(zoneID, "purge_cache"), body)
	if err != nil {
		return "", fmt.Errorf("purge zone %s: %w", zoneID, err)
	}
	return r.ID, nil
}

// Purge purges the selected content of a zone.
func (s *CacheService) Purge(ctx context.Context, zoneID string, req PurgeRequest) (string, error) {
	if req.empty() {
		return "", ErrEmptyPurge
	}
	r, err := send[idResult](ctx, s.c, http.MethodPost, zonePath(zoneID, "purge_cache"), req)
	if err != nil {
		return "", fmt.Errorf("purge zone %s: %w", zoneID, err)
	}
	return r.ID, nil
}
