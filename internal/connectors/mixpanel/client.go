// Package mixpanel provides a typed client for the Mixpanel ingestion,
// export and query APIs.
//
// Mixpanel splits its API across three hosts per data residency region;
// Client holds one REST client per host and authenticates all of them with
// a service account (HTTP basic auth).
package mixpanel

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/custodia-labs/connect-cli/internal/connectors/rest"
	"github.com/custodia-labs/connect-cli/internal/core/domain"
)

// Regions.
const (
	RegionUS = "us"
	RegionEU = "eu"
)

// Hosts holds the base URLs for one region.
type Hosts struct {
	Ingest string
	Export string
	Query  string
}

var regionHosts = map[string]Hosts{
	RegionUS: {
		Ingest: "https://api.mixpanel.com",
		Export: "https://data.mixpanel.com",
		Query:  "https://mixpanel.com",
	},
	RegionEU: {
		Ingest: "https://api-eu.mixpanel.com",
		Export: "https://data-eu.mixpanel.com",
		Query:  "https://eu.mixpanel.com",
	},
}

// ErrUnknownRegion is returned for a region other than "us" or "eu".
var ErrUnknownRegion = errors.New("mixpanel: region must be \"us\" or \"eu\"")

// ErrNoProjectToken is returned by profile updates without a project token.
var ErrNoProjectToken = errors.New("mixpanel: profile updates need MIXPANEL_PROJECT_TOKEN")

// HostsFor returns the hosts of a region; empty means "us".
func HostsFor(region string) (Hosts, error) {
	if region == "" {
		region = RegionUS
	}
	h, ok := regionHosts[strings.ToLower(region)]
	if !ok {
		return Hosts{}, fmt.Errorf("%w: %q", ErrUnknownRegion, region)
	}
	return h, nil
}

const requestsPerSecond = 1

// Config configures a Client.
type Config struct {
	// Username and Secret are the service account credentials.
	Username string
	Secret   string
	// ProjectID scopes import and query calls.
	ProjectID string
	// Region is "us" (default) or "eu".
	Region string
	// ProjectToken is needed for profile updates through /engage.
	ProjectToken string
	// Hosts overrides the region hosts; empty fields keep the region's value.
	Hosts Hosts
}

// Client is the Mixpanel API facade.
type Client struct {
	ingest *rest.Client
	export *rest.Client
	query  *rest.Client

	projectID    string
	projectToken string

	Events      *EventsService
	Query       *QueryService
	Engage      *EngageService
	Annotations *AnnotationsService
	Cohorts     *CohortsService
}

// New creates a Mixpanel client.
func New(cfg Config, opts ...rest.Option) (*Client, error) {
	if cfg.Username == "" || cfg.Secret == "" {
		return nil, fmt.Errorf("mixpanel: %w: set MIXPANEL_USERNAME and MIXPANEL_API_KEY", domain.ErrAuthRequired)
	}
	hosts, err := HostsFor(cfg.Region)
	if err != nil {
		return nil, err
	}
	if cfg.Hosts.Ingest != "" {
		hosts.Ingest = cfg.Hosts.Ingest
	}
	if cfg.Hosts.Export != "" {
		hosts.Export = cfg.Hosts.Export
	}
	if cfg.Hosts.Query != "" {
		hosts.Query = cfg.Hosts.Query
	}

	// One limiter shared by the three hosts; Mixpanel rate limits per project.
	limiter := rest.NewRateLimiter(requestsPerSecond, 5)
	base := []rest.Option{
		rest.WithName("mixpanel"),
		rest.WithAuth(rest.BasicAuth{Username: cfg.Username, Password: cfg.Secret}),
		rest.WithRateLimiter(limiter),
	}
	build := func(host string) *rest.Client {
		all := append(append([]rest.Option{}, base...), opts...)
		return rest.New(host, all...)
	}

	c := &Client{
		ingest:       build(hosts.Ingest),
		export:       build(hosts.Export),
		query:        build(hosts.Query),
		projectID:    cfg.ProjectID,
		projectToken: cfg.ProjectToken,
	}
	c.Events = &EventsService{c: c}
	c.Query = &QueryService{c: c}
	c.Engage = &EngageService{c: c}
	c.Annotations = &AnnotationsService{c: c}
	c.Cohorts = &CohortsService{c: c}
	return c, nil
}

// REST returns the query host client.
func (c *Client) REST() *rest.Client {
	return c.query
}

// projectQuery returns query values carrying project_id when configured.
func (c *Client) projectQuery() url.Values {
	q := url.Values{}
	q.Set("project_id", c.projectID)
	return q
}
