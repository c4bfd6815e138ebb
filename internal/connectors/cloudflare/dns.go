package cloudflare

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// DNSRecord is a DNS record in a zone.
type DNSRecord struct {
	ID         string     `json:"id,omitempty"`
	ZoneID     string     `json:"zone_id,omitempty"`
	ZoneName   string     `json:"zone_name,omitempty"`
	Name       string     `json:"name"`
	Type       string     `json:"type"`
	Content    string     `json:"content"`
	Proxiable  bool       `json:"proxiable,omitempty"`
	Proxied    *bool      `json:"proxied,omitempty"`
	TTL        int        `json:"ttl,omitempty"`
	Priority   *uint16    `json:"priority,omitempty"`
	Comment    string     `json:"comment,omitempty"`
	Tags       []string   `json:"tags,omitempty"`
	CreatedOn  *time.Time `json:"created_on,omitempty"`
	ModifiedOn *time.Time `json:"modified_on,omitempty"`
}

// DNSRecordPatch changes selected fields of a record.
type DNSRecordPatch struct {
	Name    *string  `json:"name,omitempty"`
	Type    *string  `json:"type,omitempty"`
	Content *string  `json:"content,omitempty"`
	Proxied *bool    `json:"proxied,omitempty"`
	TTL     *int     `json:"ttl,omitempty"`
	Comment *string  `json:"comment,omitempty"`
	Tags    []string `json:"tags,omitempty"`
}

// DNSListParams filters a record listing.
type DNSListParams struct {
	PageParams
	Type    string
	Name    string
	Content string
}

func (p DNSListParams) query() url.Values {
	q := url.Values{}
	q.Set("type", p.Type)
	q.Set("name", p.Name)
	q.Set("content", p.Content)
	p.PageParams.apply(q)
	return q
}

// DNSService handles DNS record endpoints.
type DNSService struct {
	c *Client
}

// List returns one page of records in a zone.
func (s *DNSService) List(ctx context.Context, zoneID string, params DNSListParams) ([]DNSRecord, *ResultInfo, error) {
	recs, info, err := get[[]DNSRecord](ctx, s.c, zonePath(zoneID, "dns_records"), params.query())
	if err != nil {
		return nil, nil, fmt.Errorf("list dns records: %w", err)
	}
	return recs, info, nil
}

// ListAll returns every record in a zone matching params.
func (s *DNSService) ListAll(ctx context.Context, zoneID string, params DNSListParams) ([]DNSRecord, error) {
	return listAll(ctx, params.PerPage, func(ctx context.Context, p PageParams) ([]DNSRecord, *ResultInfo, error) {
		params.PageParams = p
		return s.List(ctx, zoneID, params)
	})
}

// Get retrieves a record.
func (s *DNSService) Get(ctx context.Context, zoneID, recordID string) (*DNSRecord, error) {
	r, _, err := get[DNSRecord](ctx, s.c, zonePath(zoneID, "dns_records", recordID), nil)
	if err != nil {
		return nil, fmt.Errorf("get dns record %s: %w", recordID, err)
	}
	return &r, nil
}

// Create adds a record.
func (s *DNSService) Create(ctx context.Context, zoneID string, rec DNSRecord) (*DNSRecord, error) {
	if rec.Type == "" || rec.Name == "" || rec.Content == "" {
		return nil, fmt.Errorf("cloudflare: dns record needs type, name and content")
	}
	r, err := send[DNSRecord](ctx, s.c, http.MethodPost, zonePath(zoneID, "dns_records"), rec)
	if err != nil {
		return nil, fmt.Errorf("create dns record %s: %w", rec.Name, err)
	}
	return &r, nil
}

// Update replaces a record.
func (s *DNSService) Update(ctx context.Context, zoneID, recordID string, rec DNSRecord) (*DNSRecord, error) {
	r, err := send[DNSRecord](ctx, s.c, http.MethodPut, zonePath(zoneID, "dns_records", recordID), rec)
	if err != nil {
		return nil, fmt.Errorf("update dns record %s: %w", recordID, err)
	}
	return &r, nil
}

// Patch changes selected fields of a record.
func (s *DNSService) Patch(ctx context.Context, zoneID, recordID string, patch DNSRecordPatch) (*DNSRecord, error) {
	r, err := send[DNSRecord](ctx, s.c, http.MethodPatch, zonePath(zoneID, "dns_records", recordID), patch)
	if err != nil {
		return nil, fmt.Errorf("patch dns record %s: %w", recordID, err)
	}
	return &r, nil
}

// Delete removes a record and returns its ID.
func (s *DNSService) Delete(ctx context.Context, zoneID, recordID string) (string, error) {
	r, err := send[idResult](ctx, s.c, http.MethodDelete, zonePath(zoneID, "dns_records", recordID), nil)
	if err != nil {
		return "", fmt.Errorf("delete dns record %s: %w", recordID, err)
	}
	return r.ID, nil
}
